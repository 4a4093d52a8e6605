package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pakolx/market/internal/api/middleware"
	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
	"pakolx/market/internal/storage"
)

// respondError maps a service error to its HTTP status and body.
// Unknown errors are attached to the context for the request logger.
func respondError(c *gin.Context, err error) {
	if ve, ok := services.IsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "fields": ve.Fields})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrUserBanned):
		c.JSON(http.StatusForbidden, gin.H{"error": "Your account is banned"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to do this"})
	case errors.Is(err, services.ErrAlreadyProcessed):
		c.JSON(http.StatusConflict, gin.H{"error": "Already processed"})
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrInvalidFolder),
		errors.Is(err, storage.ErrUnsupportedType),
		errors.Is(err, storage.ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrStorageUnavailable):
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File storage is unavailable"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// paramID parses the ObjectID path parameter name, answering 400 when invalid.
func paramID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " format"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// currentUser returns the authenticated user. Routes using it sit behind
// AuthMiddleware, so a miss is answered with 401.
func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
	return id, ok
}

// pageQuery reads page and limit; services clamp the values.
func pageQuery(c *gin.Context) models.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return models.Page{Page: page, Limit: limit}
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty or missing body.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

// reasonBody is shared by the reject, resolve and dismiss endpoints.
type reasonBody struct {
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

func listResponse(c *gin.Context, data interface{}, page models.Page) {
	c.JSON(http.StatusOK, gin.H{"data": data, "pagination": page})
}
