package http

import (
	"time"

	"rewards_backend/internal/config"
	"rewards_backend/internal/http/handlers"
	"rewards_backend/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Per-user limits on the endpoints that sample the catalog.
const (
	chestOpenLimit  = 30
	chestOpenWindow = time.Minute
)

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, cfg *config.Config) {
	r.Use(middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	window := time.Duration(cfg.APIRateWindow) * time.Second
	limiter := middleware.SimpleRateLimit(cfg.APIRateLimit, window)
	if middleware.RedisConfigured() {
		limiter = middleware.RedisRateLimit(cfg.APIRateLimit, window)
	}

	v1 := r.Group("/api/v1")
	v1.Use(limiter)
	registerAPIRoutes(v1, h)

	// live chest states, events and avatar previews
	r.GET("/ws", middleware.JWT(), h.WS)
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler) {
	api.GET("/catalog/:rarity", h.CatalogTier)

	auth := api.Group("")
	auth.Use(middleware.JWT())

	drawRL := middleware.UserRateLimit("draw", chestOpenLimit, chestOpenWindow)

	rewards := auth.Group("/rewards")
	{
		rewards.GET("", h.ListRewards)
		rewards.POST("/draw", drawRL, h.PreviewDraw)
		rewards.POST("/starter", h.GrantStarter)
	}

	chests := auth.Group("/chests")
	{
		chests.POST("", drawRL, h.OpenChest)
		chests.GET("/:id", h.GetChest)
		chests.POST("/:id/interact", h.InteractChest)
		chests.POST("/:id/continue", h.ContinueChest)
		chests.DELETE("/:id", h.DiscardChest)
	}

	av := auth.Group("/avatar")
	{
		av.GET("", h.GetAvatar)
		av.PUT("", h.SaveAvatar)
		av.GET("/render", h.RenderAvatar)
	}

	prog := auth.Group("/progress")
	{
		prog.POST("/xp", h.ApplyXP)
		prog.POST("/achievements/ack", h.AckAchievements)
		prog.POST("/tutorial/complete", h.CompleteTutorial)
		prog.GET("/history", h.History)
	}

	auth.GET("/preferences", h.GetPreferences)
	auth.PUT("/preferences", h.SavePreferences)
}
