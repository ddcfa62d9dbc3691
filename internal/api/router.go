package api

import (
	"context"
	"net/http"
	"time"

	"github.com/blog-engagement-api/internal/config"
	"github.com/blog-engagement-api/internal/realtime"
	"github.com/blog-engagement-api/internal/service"
	"github.com/blog-engagement-api/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router wrapped in CORS handling
func NewRouter(services *service.Services, hub *realtime.Hub, cfg *config.Config, log zerolog.Logger) http.Handler {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(secureHeadersMiddleware())

	// Handlers
	postHandler := NewPostHandler(services, hub, cfg, log)
	engagementHandler := NewEngagementHandler(services, cfg, log)
	commentHandler := NewCommentHandler(services, cfg, log)

	requireAuth := authMiddleware(cfg.Auth.JWTSecret, true)
	optionalAuth := authMiddleware(cfg.Auth.JWTSecret, false)

	// Health check
	router.GET("/health", healthCheck(services))
	router.GET("/metrics", metricsHandler(services))

	// API v1
	v1 := router.Group("/v1")
	{
		posts := v1.Group("/posts")
		{
			posts.POST("", requireAuth, postHandler.CreatePost)
			posts.GET("/:id", optionalAuth, postHandler.GetPost)
			posts.GET("/:id/live", postHandler.Live)

			// Engagement endpoints
			posts.PUT("/:id/like", requireAuth, engagementHandler.Like)
			posts.PUT("/:id/dislike", requireAuth, engagementHandler.Dislike)

			// Comment endpoints
			posts.POST("/:id/comments", requireAuth, commentHandler.CreateComment)
			posts.GET("/:id/comments", commentHandler.ListComments)
			posts.GET("/:id/comments/count", commentHandler.CountComments)
		}

		v1.DELETE("/comments/:id", requireAuth, commentHandler.DeleteComment)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})

	return c.Handler(router)
}

// healthCheck reports healthy when the store answers
func healthCheck(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if err := services.Stats.Ping(ctx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   logger.ServiceName,
		})
	}
}

// metricsHandler returns record counts of the active store
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		postsCount, _ := services.Stats.GetCount(ctx, "posts")
		commentsCount, _ := services.Stats.GetCount(ctx, "comments")
		usersCount, _ := services.Stats.GetCount(ctx, "users")

		c.JSON(http.StatusOK, gin.H{
			"database": gin.H{
				"posts":    postsCount,
				"comments": commentsCount,
				"users":    usersCount,
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// secureHeadersMiddleware sets response headers that harden JSON responses
func secureHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// contextWithTimeout creates a context with timeout for handlers
func contextWithTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}
