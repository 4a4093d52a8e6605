package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"pakolx/market/internal/services"
)

// RestUserHandler handles public profiles and user administration.
type RestUserHandler struct {
	userService  services.IUserService
	statsService services.IStatsService
}

// NewRestUserHandler creates a new RestUserHandler.
func NewRestUserHandler(userService services.IUserService, statsService services.IStatsService) *RestUserHandler {
	return &RestUserHandler{userService: userService, statsService: statsService}
}

// GetUserByID handles GET /v1/users/:id
func (h *RestUserHandler) GetUserByID(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	profile, err := h.userService.PublicProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// List handles GET /v1/admin/users?q=&banned=
func (h *RestUserHandler) List(c *gin.Context) {
	var banned *bool
	if raw := c.Query("banned"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid banned filter"})
			return
		}
		banned = &v
	}
	users, page, err := h.userService.List(c.Request.Context(), strings.TrimSpace(c.Query("q")), banned, pageQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, users, page)
}

// Ban handles POST /v1/admin/users/:id/ban
func (h *RestUserHandler) Ban(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Ban(c.Request.Context(), userID, adminID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"banned": true})
}

// Unban handles POST /v1/admin/users/:id/unban
func (h *RestUserHandler) Unban(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Unban(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"banned": false})
}

// Stats handles GET /v1/admin/stats
func (h *RestUserHandler) Stats(c *gin.Context) {
	stats, err := h.statsService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
