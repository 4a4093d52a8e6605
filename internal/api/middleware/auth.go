package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pakolx/market/internal/auth"
)

const (
	// ContextKeyUserID holds the key for user ID in Gin context.
	ContextKeyUserID = "userID"
	// ContextKeyIsAdmin holds the key for admin status in Gin context.
	ContextKeyIsAdmin = "isAdmin"
)

// bearerClaims extracts and validates the bearer token of the request.
// ok is false when no Authorization header was sent.
func bearerClaims(c *gin.Context, jwtSecret string) (claims *auth.Claims, ok bool, errMsg string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false, "Authorization header required"
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, true, "Authorization header format must be Bearer {token}"
	}
	claims, err := auth.ValidateJWT(parts[1], jwtSecret)
	if err != nil {
		return nil, true, "Invalid or expired token"
	}
	if _, err := claims.ObjectID(); err != nil {
		return nil, true, "Invalid or expired token"
	}
	return claims, true, ""
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _, errMsg := bearerClaims(c, jwtSecret)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
			return
		}
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the user of a valid token and lets anonymous
// or invalid requests through as guests.
func OptionalAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, _, _ := bearerClaims(c, jwtSecret); claims != nil {
			c.Set(ContextKeyUserID, claims.UserID)
			c.Set(ContextKeyIsAdmin, claims.IsAdmin)
		}
		c.Next()
	}
}

// AdminMiddleware creates a Gin middleware to check for admin privileges.
// Assumes AuthMiddleware runs first.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrator privileges required"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user, if any.
func UserID(c *gin.Context) (primitive.ObjectID, bool) {
	hex := c.GetString(ContextKeyUserID)
	if hex == "" {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextKeyIsAdmin)
}
