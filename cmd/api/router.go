package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"familytree-backend/internal/infrastructure/metrics"
	"familytree-backend/internal/shared/middleware"
	"familytree-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(c.Config.CORS.AllowedOrigins),
	)
	if c.Metrics != nil {
		router.Use(metrics.Middleware(c.Metrics))
		router.GET("/metrics", gin.WrapH(c.Metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/health", healthCheckHandler(c))
		c.PersonHandler.RegisterRoutes(api)
	}

	return router
}

// ========================================
// HEALTH CHECK
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK

		// Database is required
		dbStatus := "ok"
		if err := appCtx.DB.HealthCheck(ctx); err != nil {
			dbStatus = "error: " + err.Error()
			status = "unavailable"
			code = http.StatusServiceUnavailable
		}

		// Redis is optional: a failure degrades caching and the cleanup queue only
		redisStatus := "disabled"
		if appCtx.Redis != nil {
			redisStatus = "ok"
			if err := appCtx.Redis.Ping(ctx); err != nil {
				redisStatus = "error: " + err.Error()
				if status == "ok" {
					status = "degraded"
				}
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
			"services": gin.H{
				"database":    dbStatus,
				"redis":       redisStatus,
				"photo_store": appCtx.Photos.Driver(),
			},
		})
	}
}
