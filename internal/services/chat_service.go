package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pakolx/market/internal/db"
	"pakolx/market/internal/metrics"
	"pakolx/market/internal/models"
)

const (
	previewLength      = 100
	maxMessagesPerPage = 500
)

// IChatService is the append-and-poll messaging between buyers and sellers.
type IChatService interface {
	Start(ctx context.Context, buyerID primitive.ObjectID, adID, storeID *primitive.ObjectID, firstMessage string) (*models.Conversation, error)
	Send(ctx context.Context, conversationID, senderID primitive.ObjectID, content string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID, userID primitive.ObjectID, after *primitive.ObjectID) ([]models.Message, error)
	ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.ConversationSummary, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkSeen(ctx context.Context, conversationID, userID primitive.ObjectID) (int64, error)
}

type chatService struct {
	db *mongo.Database
}

// NewChatService creates a new ChatService.
func NewChatService(db *mongo.Database) IChatService {
	return &chatService{db: db}
}

func (s *chatService) conversations() *mongo.Collection {
	return s.db.Collection(db.ConversationsCollection)
}

func (s *chatService) messages() *mongo.Collection {
	return s.db.Collection(db.MessagesCollection)
}

// sellerFor resolves the counterpart of a new conversation.
func (s *chatService) sellerFor(ctx context.Context, adID, storeID *primitive.ObjectID) (primitive.ObjectID, error) {
	if adID != nil {
		filter, err := publicAdFilter(ctx, s.db)
		if err != nil {
			return primitive.NilObjectID, err
		}
		filter["_id"] = *adID
		var ad models.Ad
		if err := s.db.Collection(db.AdsCollection).FindOne(ctx, filter).Decode(&ad); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return primitive.NilObjectID, ErrNotFound
			}
			return primitive.NilObjectID, fmt.Errorf("error loading ad %s: %w", adID.Hex(), err)
		}
		return ad.UserID, nil
	}

	var store models.Store
	if err := s.db.Collection(db.StoresCollection).FindOne(ctx, bson.M{"_id": *storeID}).Decode(&store); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return primitive.NilObjectID, ErrNotFound
		}
		return primitive.NilObjectID, fmt.Errorf("error loading store %s: %w", storeID.Hex(), err)
	}
	if _, err := requireActiveUser(ctx, s.db, store.OwnerID); err != nil {
		if errors.Is(err, ErrUserBanned) {
			return primitive.NilObjectID, ErrNotFound
		}
		return primitive.NilObjectID, err
	}
	return store.OwnerID, nil
}

// Start opens, or reuses, the conversation of buyerID about an ad or a store.
func (s *chatService) Start(ctx context.Context, buyerID primitive.ObjectID, adID, storeID *primitive.ObjectID, firstMessage string) (*models.Conversation, error) {
	if (adID == nil) == (storeID == nil) {
		return nil, fieldError("ad_id", "exactly one of ad_id or store_id is required")
	}
	if _, err := requireActiveUser(ctx, s.db, buyerID); err != nil {
		return nil, err
	}
	sellerID, err := s.sellerFor(ctx, adID, storeID)
	if err != nil {
		return nil, err
	}
	if sellerID == buyerID {
		return nil, fieldError("conversation", "cannot start a conversation with yourself")
	}

	// nil pointers are stored as null, matching the unique index on the key.
	var adVal, storeVal interface{}
	if adID != nil {
		adVal = *adID
	}
	if storeID != nil {
		storeVal = *storeID
	}
	filter := bson.M{"ad_id": adVal, "store_id": storeVal, "buyer_id": buyerID, "seller_id": sellerID}
	update := bson.M{"$setOnInsert": bson.M{"_id": primitive.NewObjectID(), "created_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv models.Conversation
	err = db.Try(func(attempt int) error {
		// A concurrent upsert loses with a duplicate key; the retry finds the winner.
		return s.conversations().FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation for buyer %s: %w", buyerID.Hex(), err)
	}

	if firstMessage != "" {
		if _, err := s.Send(ctx, conv.ID, buyerID, firstMessage); err != nil {
			return nil, err
		}
		if err := s.conversations().FindOne(ctx, bson.M{"_id": conv.ID}).Decode(&conv); err != nil {
			return nil, fmt.Errorf("failed to reload conversation %s: %w", conv.ID.Hex(), err)
		}
	}
	return &conv, nil
}

// participantConversation loads the conversation and checks userID takes part in it.
func (s *chatService) participantConversation(ctx context.Context, conversationID, userID primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.conversations().FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error loading conversation %s: %w", conversationID.Hex(), err)
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrForbidden
	}
	return &conv, nil
}

// Send appends a message from a participant to the other participant.
func (s *chatService) Send(ctx context.Context, conversationID, senderID primitive.ObjectID, content string) (*models.Message, error) {
	if _, err := requireActiveUser(ctx, s.db, senderID); err != nil {
		return nil, err
	}
	content, err := ValidateMessageContent(content)
	if err != nil {
		return nil, err
	}
	conv, err := s.participantConversation(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     conv.Counterpart(senderID),
		Content:        content,
		IsSeen:         false,
		CreatedAt:      now,
	}
	msg.GenIDIfEmpty()
	if _, err := s.messages().InsertOne(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to insert message in %s: %w", conv.ID.Hex(), err)
	}

	preview := []rune(content)
	if len(preview) > previewLength {
		preview = preview[:previewLength]
	}
	_, err = s.conversations().UpdateOne(ctx,
		bson.M{"_id": conv.ID},
		bson.M{"$set": bson.M{"last_message": string(preview), "last_message_at": now}})
	if err != nil {
		log.WithError(err).WithField("conversation_id", conv.ID.Hex()).Warn("Failed to update conversation preview")
	}
	metrics.RecordMessage()
	return msg, nil
}

// ListMessages returns messages in insertion order and marks the ones
// addressed to userID as seen. after limits the result to newer messages.
func (s *chatService) ListMessages(ctx context.Context, conversationID, userID primitive.ObjectID, after *primitive.ObjectID) ([]models.Message, error) {
	conv, err := s.participantConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"conversation_id": conv.ID}
	if after != nil {
		filter["_id"] = bson.M{"$gt": *after}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(maxMessagesPerPage)
	cursor, err := s.messages().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of %s: %w", conv.ID.Hex(), err)
	}
	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	if _, err := s.markSeen(ctx, conv.ID, userID); err != nil {
		log.WithError(err).WithField("conversation_id", conv.ID.Hex()).Warn("Failed to mark messages seen")
	}
	return msgs, nil
}

func (s *chatService) markSeen(ctx context.Context, conversationID, userID primitive.ObjectID) (int64, error) {
	result, err := s.messages().UpdateMany(ctx,
		bson.M{"conversation_id": conversationID, "receiver_id": userID, "is_seen": false},
		bson.M{"$set": bson.M{"is_seen": true}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages seen in %s: %w", conversationID.Hex(), err)
	}
	return result.ModifiedCount, nil
}

// MarkSeen marks every message addressed to userID in the conversation as seen.
func (s *chatService) MarkSeen(ctx context.Context, conversationID, userID primitive.ObjectID) (int64, error) {
	conv, err := s.participantConversation(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	return s.markSeen(ctx, conv.ID, userID)
}

// ListConversations returns userID's conversations, latest activity first,
// each with the number of unseen messages addressed to userID.
func (s *chatService) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.ConversationSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{bson.M{"buyer_id": userID}, bson.M{"seller_id": userID}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_message_at", Value: -1}, {Key: "created_at", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from": db.MessagesCollection,
			"let":  bson.M{"cid": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$conversation_id", "$$cid"}},
					bson.M{"$eq": bson.A{"$receiver_id", userID}},
					bson.M{"$eq": bson.A{"$is_seen", false}},
				}}}},
				bson.M{"$count": "n"},
			},
			"as": "unread_docs",
		}}},
		{{Key: "$addFields", Value: bson.M{"unread": bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$unread_docs.n", 0}}, 0}}}}},
		{{Key: "$project", Value: bson.M{"unread_docs": 0}}},
	}
	cursor, err := s.conversations().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations of %s: %w", userID.Hex(), err)
	}
	summaries := []models.ConversationSummary{}
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return summaries, nil
}

// UnreadCount is the number of unseen messages addressed to userID.
func (s *chatService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	count, err := s.messages().CountDocuments(ctx, bson.M{"receiver_id": userID, "is_seen": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages of %s: %w", userID.Hex(), err)
	}
	return count, nil
}
