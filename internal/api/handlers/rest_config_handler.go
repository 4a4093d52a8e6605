package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pakolx/market/internal/api/middleware"
	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
)

// RestConfigHandler handles site configuration and bank details.
type RestConfigHandler struct {
	configService services.IConfigService
}

// NewRestConfigHandler creates a new RestConfigHandler.
func NewRestConfigHandler(configService services.IConfigService) *RestConfigHandler {
	return &RestConfigHandler{configService: configService}
}

// GetPublicConfig returns the publicly accessible configuration parameters.
// Handles GET /v1/config
func (h *RestConfigHandler) GetPublicConfig(c *gin.Context) {
	publicConfig, err := h.configService.GetAllPublic(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve configuration"})
		return
	}
	c.JSON(http.StatusOK, publicConfig)
}

// GetBankDetails handles GET /v1/bank-details
func (h *RestConfigHandler) GetBankDetails(c *gin.Context) {
	details, err := h.configService.GetBankDetails(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// GetAll handles GET /v1/admin/config: stored entries plus the effective settings.
func (h *RestConfigHandler) GetAll(c *gin.Context) {
	entries, err := h.configService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "settings": middleware.Settings(c)})
}

type setConfigBody struct {
	Value  interface{} `json:"value"`
	Public *bool       `json:"public"`
}

// SetValue handles PUT /v1/admin/config/:key
func (h *RestConfigHandler) SetValue(c *gin.Context) {
	var body setConfigBody
	if !bindJSON(c, &body) {
		return
	}
	if body.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return
	}
	entry, err := h.configService.SetConfigValue(c.Request.Context(), c.Param("key"), body.Value, body.Public)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// SetBankDetails handles PUT /v1/admin/bank-details
func (h *RestConfigHandler) SetBankDetails(c *gin.Context) {
	var details models.BankDetails
	if !bindJSON(c, &details) {
		return
	}
	saved, err := h.configService.SetBankDetails(c.Request.Context(), &details)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// SetRateLimitRule handles PUT /v1/admin/rate-limits
func (h *RestConfigHandler) SetRateLimitRule(c *gin.Context) {
	var rule models.RateLimitRule
	if !bindJSON(c, &rule) {
		return
	}
	if err := h.configService.SetRateLimitRule(c.Request.Context(), &rule); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}
