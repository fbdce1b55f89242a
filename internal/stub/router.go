package stub

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/examind/examtaker/internal/config"
	"github.com/examind/examtaker/internal/response"
)

// SetupRouter configures the stub gateway's routes and middleware.
func SetupRouter(h *Handler, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-Exam-Stub"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())

	// Every reply is marked so stub data can never pass for the real
	// central system.
	router.Use(func(c *gin.Context) {
		c.Header("X-Exam-Stub", "development")
		c.Next()
	})

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok", "stub": true})
	})

	// ─── Sessions ──────────────────────────────────────────────────────
	api := router.Group("/api/v1")
	{
		api.POST("/sessions", h.Admit)

		sessions := api.Group("/sessions", h.RequireSession())
		{
			sessions.POST("/start", h.Start)
			sessions.GET("/validate", h.Validate)
			sessions.GET("/questions", h.Questions)
			sessions.PUT("/responses", h.SaveResponses)
			sessions.POST("/submit", h.Submit)
		}
	}

	// ─── WebSocket ─────────────────────────────────────────────────────
	wsGroup := router.Group("/ws/v1", h.RequireSession())
	{
		wsGroup.GET("/sessions/events", h.Events)
	}

	return router
}
