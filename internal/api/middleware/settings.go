package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"pakolx/market/internal/models"
)

// ContextKeySettings holds the per-request SiteSettings snapshot.
const ContextKeySettings = "siteSettings"

// SettingsSource provides the current site settings.
type SettingsSource interface {
	Snapshot(ctx context.Context) models.SiteSettings
}

// SettingsMiddleware takes one settings snapshot per request.
func SettingsMiddleware(src SettingsSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeySettings, src.Snapshot(c.Request.Context()))
		c.Next()
	}
}

// Settings returns the snapshot of the request, or the defaults when the
// middleware did not run.
func Settings(c *gin.Context) models.SiteSettings {
	if v, ok := c.Get(ContextKeySettings); ok {
		if s, ok := v.(models.SiteSettings); ok {
			return s
		}
	}
	return models.DefaultSiteSettings()
}
