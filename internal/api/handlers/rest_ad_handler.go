package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pakolx/market/internal/api/middleware"
	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
)

const relatedAdsLimit = 8

// RestAdHandler handles REST requests for ads.
type RestAdHandler struct {
	adService services.IAdService
}

// NewRestAdHandler creates a new RestAdHandler.
func NewRestAdHandler(adService services.IAdService) *RestAdHandler {
	return &RestAdHandler{adService: adService}
}

// parseAdSearch reads the public search filters from the query string.
func parseAdSearch(c *gin.Context) (models.AdSearch, bool) {
	q := models.AdSearch{
		Query:       strings.TrimSpace(c.Query("q")),
		SubCategory: c.Query("sub_category"),
		City:        strings.TrimSpace(c.Query("city")),
		Sort:        models.AdSort(c.Query("sort")),
	}
	pg := pageQuery(c)
	q.Page, q.Limit = pg.Page, pg.Limit

	if category := c.Query("category"); category != "" {
		if id, err := primitive.ObjectIDFromHex(category); err == nil {
			q.CategoryID = &id
		} else {
			q.CategorySlug = category
		}
	}
	if condition := strings.ToUpper(c.Query("condition")); condition != "" {
		if condition != string(models.ConditionNew) && condition != string(models.ConditionUsed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "condition must be NEW or USED"})
			return q, false
		}
		q.Condition = models.Condition(condition)
	}
	for param, dst := range map[string]**float64{"min_price": &q.MinPrice, "max_price": &q.MaxPrice} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
			return q, false
		}
		*dst = &v
	}
	q.FeaturedOnly = c.Query("featured") == "true"
	return q, true
}

// Search handles GET /v1/ads
func (h *RestAdHandler) Search(c *gin.Context) {
	q, ok := parseAdSearch(c)
	if !ok {
		return
	}
	ads, page, err := h.adService.Search(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, ads, page)
}

// GetByID handles GET /v1/ads/:id and counts a view.
func (h *RestAdHandler) GetByID(c *gin.Context) {
	adID, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ad, err := h.adService.FindPublicByID(ctx, adID)
	if err != nil {
		respondError(c, err)
		return
	}

	viewer := "ip:" + c.ClientIP()
	if userID, ok := middleware.UserID(c); ok {
		viewer = "user:" + userID.Hex()
	}
	if err := h.adService.RecordView(ctx, adID, viewer, middleware.Settings(c)); err != nil {
		log.WithError(err).WithField("ad_id", adID.Hex()).Warn("Failed to record ad view")
	}
	c.JSON(http.StatusOK, ad)
}

// Related handles GET /v1/ads/:id/related
func (h *RestAdHandler) Related(c *gin.Context) {
	adID, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ad, err := h.adService.FindPublicByID(ctx, adID)
	if err != nil {
		respondError(c, err)
		return
	}
	ads, err := h.adService.Related(ctx, ad, relatedAdsLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ads})
}

// ListByUser handles GET /v1/users/:id/ads
func (h *RestAdHandler) ListByUser(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	pg := pageQuery(c)
	ads, page, err := h.adService.Search(c.Request.Context(), models.AdSearch{UserID: &userID, Page: pg.Page, Limit: pg.Limit})
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, ads, page)
}

// Create handles POST /v1/ads
func (h *RestAdHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.AdInput
	if !bindJSON(c, &in) {
		return
	}
	ad, err := h.adService.Create(c.Request.Context(), userID, in, middleware.Settings(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ad)
}

func statusQuery(c *gin.Context) (models.AdStatus, bool) {
	status := models.AdStatus(strings.ToUpper(c.Query("status")))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return "", false
	}
	return status, true
}

// ListMine handles GET /v1/me/ads
func (h *RestAdHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	status, ok := statusQuery(c)
	if !ok {
		return
	}
	ads, page, err := h.adService.ListByUser(c.Request.Context(), userID, status, pageQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, ads, page)
}

// GetMine handles GET /v1/me/ads/:id
func (h *RestAdHandler) GetMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	adID, ok := paramID(c, "id")
	if !ok {
		return
	}
	ad, err := h.adService.FindOwned(c.Request.Context(), adID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ad)
}

// Update handles PUT /v1/ads/:id
func (h *RestAdHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	adID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch services.AdPatch
	if !bindJSON(c, &patch) {
		return
	}
	ad, err := h.adService.Update(c.Request.Context(), adID, userID, patch, middleware.Settings(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ad)
}

// Delete handles DELETE /v1/ads/:id and DELETE /v1/admin/ads/:id
func (h *RestAdHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	adID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.adService.Delete(c.Request.Context(), adID, userID, middleware.IsAdmin(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AdminList handles GET /v1/admin/ads?status=
func (h *RestAdHandler) AdminList(c *gin.Context) {
	status, ok := statusQuery(c)
	if !ok {
		return
	}
	ads, page, err := h.adService.AdminList(c.Request.Context(), status, pageQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, ads, page)
}

// Approve handles POST /v1/admin/ads/:id/approve
func (h *RestAdHandler) Approve(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	adID, ok := paramID(c, "id")
	if !ok {
		return
	}
	ad, err := h.adService.Approve(c.Request.Context(), adID, adminID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ad)
}

// Reject handles POST /v1/admin/ads/:id/reject with an optional reason.
func (h *RestAdHandler) Reject(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	adID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body reasonBody
	if !bindOptionalJSON(c, &body) {
		return
	}
	ad, err := h.adService.Reject(c.Request.Context(), adID, adminID, strings.TrimSpace(body.Reason))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ad)
}
