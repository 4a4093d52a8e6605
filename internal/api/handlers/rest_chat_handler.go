package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pakolx/market/internal/services"
)

// RestChatHandler handles buyer/seller conversations.
type RestChatHandler struct {
	chatService services.IChatService
}

// NewRestChatHandler creates a new RestChatHandler.
func NewRestChatHandler(chatService services.IChatService) *RestChatHandler {
	return &RestChatHandler{chatService: chatService}
}

type startConversationBody struct {
	AdID    string `json:"ad_id"`
	StoreID string `json:"store_id"`
	Message string `json:"message"`
}

func optionalObjectID(hex string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Start handles POST /v1/conversations. An existing conversation is reused.
func (h *RestChatHandler) Start(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var body startConversationBody
	if !bindJSON(c, &body) {
		return
	}
	adID, err := optionalObjectID(body.AdID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ad_id format"})
		return
	}
	storeID, err := optionalObjectID(body.StoreID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid store_id format"})
		return
	}
	conversation, err := h.chatService.Start(c.Request.Context(), userID, adID, storeID, body.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversation)
}

// List handles GET /v1/conversations
func (h *RestChatHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversations, err := h.chatService.ListConversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": conversations})
}

// UnreadCount handles GET /v1/conversations/unread-count
func (h *RestChatHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	count, err := h.chatService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// Messages handles GET /v1/conversations/:id/messages?after=<message id>
func (h *RestChatHandler) Messages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}
	after, err := optionalObjectID(c.Query("after"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid after format"})
		return
	}
	messages, err := h.chatService.ListMessages(c.Request.Context(), conversationID, userID, after)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": messages})
}

type sendMessageBody struct {
	Content string `json:"content"`
}

// Send handles POST /v1/conversations/:id/messages
func (h *RestChatHandler) Send(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body sendMessageBody
	if !bindJSON(c, &body) {
		return
	}
	message, err := h.chatService.Send(c.Request.Context(), conversationID, userID, body.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// MarkSeen handles POST /v1/conversations/:id/seen
func (h *RestChatHandler) MarkSeen(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}
	marked, err := h.chatService.MarkSeen(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}
