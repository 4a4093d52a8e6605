package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pakolx/market/internal/services"
)

// RestFavoriteHandler handles a user's saved ads.
type RestFavoriteHandler struct {
	favoriteService services.IFavoriteService
}

// NewRestFavoriteHandler creates a new RestFavoriteHandler.
func NewRestFavoriteHandler(favoriteService services.IFavoriteService) *RestFavoriteHandler {
	return &RestFavoriteHandler{favoriteService: favoriteService}
}

// Add handles POST /v1/ads/:id/favorite
func (h *RestFavoriteHandler) Add(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	adID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.favoriteService.Add(c.Request.Context(), userID, adID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": true})
}

// Remove handles DELETE /v1/ads/:id/favorite
func (h *RestFavoriteHandler) Remove(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	adID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.favoriteService.Remove(c.Request.Context(), userID, adID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": false})
}

// List handles GET /v1/me/favorites
func (h *RestFavoriteHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ads, err := h.favoriteService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ads})
}
