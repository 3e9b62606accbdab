package http

import (
	"github.com/gin-gonic/gin"

	"github.com/serpprice/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(NewIPRateLimiter(cfg.RateLimit.PerIP, cfg.RateLimit.Burst)))
	{
		analysis := v1.Group("/analysis")
		{
			analysis.POST("", handler.Analyze)
			analysis.POST("/csv", handler.AnalyzeCSV)
		}

		v1.POST("/match", handler.MatchTitles)
		v1.POST("/specs", handler.ExtractSpecs)

		cache := v1.Group("/cache")
		{
			cache.DELETE("", handler.ClearCache)
			cache.POST("/evict", handler.EvictCache)
		}
	}

	return router
}
