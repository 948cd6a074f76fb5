package router

import (
	"github.com/anonto42/onlyme/internal/app"
	"github.com/anonto42/onlyme/internal/handlers"
	"github.com/anonto42/onlyme/internal/metrics"
	"github.com/anonto42/onlyme/internal/middleware"
	"github.com/anonto42/onlyme/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Options configures SetupRoutes.
type Options struct {
	Registry    *app.Registry
	Preferences *session.Preferences
	// Limiter is applied to authenticated routes when set.
	Limiter        *middleware.RateLimiter
	MetricsEnabled bool
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, opts Options) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)
	if opts.MetricsEnabled {
		e.GET("/metrics", metrics.Handler())
		log.Info().Msg("Metrics endpoint configured.")
	}

	// --- Unprotected routes for authentication ---
	authHandler := handlers.NewAuthHandler(opts.Registry)
	authGroup := e.Group("/api/v1/auth")
	if opts.Limiter != nil {
		authGroup.Use(opts.Limiter.Middleware())
	}
	authHandler.RegisterAuthRoutes(authGroup)
	log.Info().Msg("Auth routes configured.")

	// --- Protected routes (require a live session) ---
	api := e.Group("/api/v1")
	api.Use(middleware.ScopeAuthMiddleware(opts.Registry))
	if opts.Limiter != nil {
		api.Use(opts.Limiter.Middleware())
	}
	log.Info().Msg("Session middleware applied to /api/v1 group.")

	authHandler.RegisterMeRoutes(api)

	handlers.NewSettingsHandler(opts.Preferences).RegisterSettingsRoutes(api)
	log.Info().Msg("Settings routes configured.")

	handlers.NewStatusHandler().RegisterStatusRoutes(api)
	log.Info().Msg("Status routes configured.")

	handlers.NewFeedHandler().RegisterFeedRoutes(api)
	log.Info().Msg("Feed routes configured.")

	handlers.NewPostHandler().RegisterPostRoutes(api)
	handlers.NewLikeHandler().RegisterLikeRoutes(api)
	handlers.NewCommentHandler().RegisterCommentRoutes(api)
	log.Info().Msg("Post routes configured.")

	handlers.NewUserHandler().RegisterProfileRoutes(api)
	handlers.NewFollowHandler().RegisterFollowRoutes(api)
	log.Info().Msg("User profile routes configured.")

	handlers.NewWalletHandler().RegisterWalletRoutes(api)
	log.Info().Msg("Wallet routes configured.")

	handlers.NewMessageHandler().RegisterMessageRoutes(api)
	log.Info().Msg("Message routes configured.")

	handlers.NewNotificationHandler().RegisterNotificationRoutes(api)
	log.Info().Msg("Notification routes configured.")

	log.Info().Msg("All routes configured.")
}
