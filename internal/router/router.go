package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-review/internal/config"
	"github.com/stemsi/exstem-review/internal/handler"
	"github.com/stemsi/exstem-review/internal/middleware"
	"github.com/stemsi/exstem-review/internal/response"
)

// reviewerCacheSeconds is how long clients may reuse catalog reads.
const reviewerCacheSeconds = 60

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Reviewer *handler.ReviewerHandler
	Library  *handler.LibraryHandler
	Attempt  *handler.AttemptHandler
	Support  *handler.SupportHandler
	WS       *handler.WSHandler
	System   *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.TokenValidator,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Brotli skips websocket upgrades on its own.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)

	authAPI := router.Group("/api/v1/auth")
	{
		authAPI.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		authAPI.GET("/me", middleware.RequireJWT(auth), handlers.Auth.Me)
	}

	// ─── 2. User Group (JWT) ───────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireJWT(auth))
	{
		reviewers := api.Group("/reviewers")
		reviewers.Use(middleware.CacheControl("private", reviewerCacheSeconds))
		{
			reviewers.GET("", handlers.Reviewer.List)
			reviewers.GET("/:id", handlers.Reviewer.Get)
		}

		api.GET("/library", handlers.Library.List)
		api.POST("/library/:reviewer_id", handlers.Library.Add)
		api.DELETE("/library/:reviewer_id", handlers.Library.Remove)

		api.POST("/exam/:reviewer_id/start", handlers.Attempt.Start)

		attempts := api.Group("/attempts/:attempt_id")
		{
			attempts.PUT("/answers", handlers.Attempt.SaveAnswer)
			attempts.POST("/pause", handlers.Attempt.Pause)
			attempts.POST("/submit", handlers.Attempt.Submit)
			attempts.GET("/result", handlers.Attempt.Result)
			attempts.GET("/review", handlers.Attempt.Review)
		}

		api.POST("/support/tickets", handlers.Support.Create)
	}

	// ─── 3. WebSocket Group (Query Token) ──────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(auth))
	{
		ws.GET("/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	return router
}
