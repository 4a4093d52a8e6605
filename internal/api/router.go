package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"pakolx/market/internal/api/handlers"
	"pakolx/market/internal/api/middleware"
	"pakolx/market/internal/cache"
	"pakolx/market/internal/config"
	"pakolx/market/internal/email"
	"pakolx/market/internal/metrics"
	"pakolx/market/internal/services"
	"pakolx/market/internal/storage"
)

// Deps are the long-lived clients the public API is built on.
type Deps struct {
	DB       *mongo.Database
	Redis    *redis.Client
	Config   services.IConfigService
	Storage  storage.IS3Storage
	Notifier services.Notifier
	Images   handlers.ImageEnqueuer
}

// SetupRouter configures and returns the main Gin engine. ctx bounds the
// lifetime of background helpers such as the rate limiter cleanup.
func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	userService := services.NewUserService(deps.DB, cfg, deps.Notifier)
	categoryService := services.NewCategoryService(deps.DB)
	adService := services.NewAdService(deps.DB, cfg, categoryService, cache.NewViewTracker(deps.Redis), deps.Notifier)
	featureRequestService := services.NewFeatureRequestService(deps.DB, deps.Notifier)
	reportService := services.NewReportService(deps.DB, deps.Notifier)
	chatService := services.NewChatService(deps.DB)
	storeService := services.NewStoreService(deps.DB)
	favoriteService := services.NewFavoriteService(deps.DB)
	statsService := services.NewStatsService(deps.DB)
	templateService := services.NewEmailTemplateService(deps.DB)

	r := gin.New()
	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg, deps.Config)

	// Order matters: CORS preflights never reach the limiter.
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.CorsAllowedOrigin))
	r.Use(middleware.RequestLogger())
	r.Use(metrics.GinMiddleware())
	r.Use(rateLimiter.Limit())
	r.Use(middleware.SettingsMiddleware(deps.Config))

	jsonApiHandler := handlers.NewJsonApiHandler(cfg, userService)
	configHandler := handlers.NewRestConfigHandler(deps.Config)
	categoryHandler := handlers.NewRestCategoryHandler(categoryService)
	adHandler := handlers.NewRestAdHandler(adService)
	moderationHandler := handlers.NewRestModerationHandler(featureRequestService, reportService)
	chatHandler := handlers.NewRestChatHandler(chatService)
	storeHandler := handlers.NewRestStoreHandler(storeService, adService)
	favoriteHandler := handlers.NewRestFavoriteHandler(favoriteService)
	userHandler := handlers.NewRestUserHandler(userService, statsService)
	uploadHandler := handlers.NewRestUploadHandler(cfg, deps.Storage, deps.Images)
	templateHandler := handlers.NewRestEmailTemplateHandler(templateService)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
		v1.POST("/api", jsonApiHandler.HandleRequest)
		v1.GET("/config", configHandler.GetPublicConfig)
		v1.GET("/bank-details", configHandler.GetBankDetails)

		v1.GET("/categories", categoryHandler.List)
		v1.GET("/categories/:slug", categoryHandler.GetBySlug)

		v1.GET("/ads", adHandler.Search)
		v1.GET("/ads/:id", middleware.OptionalAuthMiddleware(cfg.JwtSecret), adHandler.GetByID)
		v1.GET("/ads/:id/related", adHandler.Related)

		v1.GET("/users/:id", userHandler.GetUserByID)
		v1.GET("/users/:id/ads", adHandler.ListByUser)

		v1.GET("/stores", storeHandler.List)
		v1.GET("/stores/:slug", storeHandler.GetBySlug)

		authRequired := v1.Group("")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.POST("/ads", adHandler.Create)
			authRequired.PUT("/ads/:id", adHandler.Update)
			authRequired.DELETE("/ads/:id", adHandler.Delete)
			authRequired.GET("/me/ads", adHandler.ListMine)
			authRequired.GET("/me/ads/:id", adHandler.GetMine)

			authRequired.POST("/ads/:id/feature-requests", moderationHandler.SubmitFeatureRequest)
			authRequired.GET("/me/feature-requests", moderationHandler.ListMyFeatureRequests)
			authRequired.POST("/ads/:id/reports", moderationHandler.CreateReport)

			authRequired.POST("/ads/:id/favorite", favoriteHandler.Add)
			authRequired.DELETE("/ads/:id/favorite", favoriteHandler.Remove)
			authRequired.GET("/me/favorites", favoriteHandler.List)

			authRequired.POST("/conversations", chatHandler.Start)
			authRequired.GET("/conversations", chatHandler.List)
			authRequired.GET("/conversations/unread-count", chatHandler.UnreadCount)
			authRequired.GET("/conversations/:id/messages", chatHandler.Messages)
			authRequired.POST("/conversations/:id/messages", chatHandler.Send)
			authRequired.POST("/conversations/:id/seen", chatHandler.MarkSeen)

			authRequired.POST("/stores", storeHandler.Create)
			authRequired.GET("/me/store", storeHandler.Mine)
			authRequired.PUT("/stores/:id", storeHandler.Update)
			authRequired.DELETE("/stores/:id", storeHandler.Delete)

			authRequired.POST("/upload", uploadHandler.Upload)
			authRequired.POST("/upload/presign", uploadHandler.Presign)
		}

		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.GET("/stats", userHandler.Stats)

			adminRequired.GET("/ads", adHandler.AdminList)
			adminRequired.POST("/ads/:id/approve", adHandler.Approve)
			adminRequired.POST("/ads/:id/reject", adHandler.Reject)
			adminRequired.DELETE("/ads/:id", adHandler.Delete)

			adminRequired.GET("/users", userHandler.List)
			adminRequired.POST("/users/:id/ban", userHandler.Ban)
			adminRequired.POST("/users/:id/unban", userHandler.Unban)

			adminRequired.GET("/feature-requests", moderationHandler.ListFeatureRequests)
			adminRequired.POST("/feature-requests/:id/approve", moderationHandler.ApproveFeatureRequest)
			adminRequired.POST("/feature-requests/:id/reject", moderationHandler.RejectFeatureRequest)

			adminRequired.GET("/reports", moderationHandler.ListReports)
			adminRequired.POST("/reports/:id/resolve", moderationHandler.ResolveReport)
			adminRequired.POST("/reports/:id/dismiss", moderationHandler.DismissReport)

			adminRequired.GET("/config", configHandler.GetAll)
			adminRequired.PUT("/config/:key", configHandler.SetValue)
			adminRequired.PUT("/bank-details", configHandler.SetBankDetails)
			adminRequired.PUT("/rate-limits", configHandler.SetRateLimitRule)

			adminRequired.GET("/email-templates", templateHandler.List)
			adminRequired.GET("/email-templates/:id", templateHandler.Get)
			adminRequired.PUT("/email-templates/:id", templateHandler.Save)
			adminRequired.DELETE("/email-templates/:id", templateHandler.Reset)

			adminRequired.POST("/categories", categoryHandler.Create)
			adminRequired.PUT("/categories/:id", categoryHandler.Update)
			adminRequired.DELETE("/categories/:id", categoryHandler.Delete)
			adminRequired.POST("/categories/:id/subcategories", categoryHandler.AddSubCategory)
			adminRequired.DELETE("/categories/:id/subcategories/:slug", categoryHandler.RemoveSubCategory)

			adminRequired.DELETE("/stores/:id", storeHandler.Delete)
		}
	}

	return r
}

// SetupServiceRouter configures the internal service engine: shutdown,
// captured test emails, metrics and health.
func SetupServiceRouter(db *mongo.Database, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status := gin.H{"mongo": "ok", "redis": "ok"}
		healthy := true
		if err := db.Client().Ping(ctx, nil); err != nil {
			status["mongo"] = err.Error()
			healthy = false
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
			healthy = false
		}
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	})

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Info("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Warn("Shutdown channel already signaled or blocked")
			}
		case "getTestEmail":
			var args []string // [templateID, email]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateID, email]"})
				return
			}
			getTestEmail(c, rdb, email.MockEmailKey(args[1], args[0]))
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// getTestEmail polls Redis briefly for an email captured by RedisSender,
// deleting it once read.
func getTestEmail(c *gin.Context, rdb *redis.Client, redisKey string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var raw string
	var err error
	for i := 0; i < 10; i++ {
		raw, err = rdb.Get(ctx, redisKey).Result()
		if err == nil {
			rdb.Del(ctx, redisKey)
			break
		}
		if err != redis.Nil {
			log.Errorf("Service API: error getting key %s from Redis: %v", redisKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
		return
	}

	var captured email.MockEmail
	if err := json.Unmarshal([]byte(raw), &captured); err != nil {
		log.Errorf("Service API: error unmarshalling email data from key %s: %v", redisKey, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": captured})
}
