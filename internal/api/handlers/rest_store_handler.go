package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pakolx/market/internal/api/middleware"
	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
)

// RestStoreHandler handles seller stores.
type RestStoreHandler struct {
	storeService services.IStoreService
	adService    services.IAdService
}

// NewRestStoreHandler creates a new RestStoreHandler.
func NewRestStoreHandler(storeService services.IStoreService, adService services.IAdService) *RestStoreHandler {
	return &RestStoreHandler{storeService: storeService, adService: adService}
}

// List handles GET /v1/stores?q=&city=
func (h *RestStoreHandler) List(c *gin.Context) {
	stores, page, err := h.storeService.List(c.Request.Context(), strings.TrimSpace(c.Query("q")), strings.TrimSpace(c.Query("city")), pageQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, stores, page)
}

// GetBySlug handles GET /v1/stores/:slug: the store with its owner's public ads.
func (h *RestStoreHandler) GetBySlug(c *gin.Context) {
	ctx := c.Request.Context()
	store, err := h.storeService.FindBySlug(ctx, c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	pg := pageQuery(c)
	ownerID := store.OwnerID
	ads, page, err := h.adService.Search(ctx, models.AdSearch{UserID: &ownerID, Page: pg.Page, Limit: pg.Limit})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"store": store, "ads": ads, "pagination": page})
}

// Create handles POST /v1/stores
func (h *RestStoreHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.StoreInput
	if !bindJSON(c, &in) {
		return
	}
	store, err := h.storeService.Create(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, store)
}

// Mine handles GET /v1/me/store
func (h *RestStoreHandler) Mine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	store, err := h.storeService.FindByOwner(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

// Update handles PUT /v1/stores/:id
func (h *RestStoreHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	storeID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.StoreInput
	if !bindJSON(c, &in) {
		return
	}
	store, err := h.storeService.Update(c.Request.Context(), storeID, userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

// Delete handles DELETE /v1/stores/:id and DELETE /v1/admin/stores/:id
func (h *RestStoreHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	storeID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.storeService.Delete(c.Request.Context(), storeID, userID, middleware.IsAdmin(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
