package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/onlyme/internal/app"
	"github.com/anonto42/onlyme/internal/localstore"
	"github.com/anonto42/onlyme/internal/media"
	"github.com/anonto42/onlyme/internal/metrics"
	"github.com/anonto42/onlyme/internal/middleware"
	"github.com/anonto42/onlyme/internal/realtime"
	"github.com/anonto42/onlyme/internal/repositories"
	"github.com/anonto42/onlyme/internal/router"
	"github.com/anonto42/onlyme/internal/services"
	"github.com/anonto42/onlyme/internal/session"
	"github.com/anonto42/onlyme/internal/status"
	"github.com/anonto42/onlyme/pkg/config"
	"github.com/anonto42/onlyme/pkg/firebase"
	"github.com/anonto42/onlyme/pkg/logger"
	"github.com/anonto42/onlyme/pkg/supabase"
	"github.com/anonto42/onlyme/validators"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Setup("info", true)
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.IsDevelopment())

	// Initialize local state connections
	stores, err := config.InitStores(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize local store")
	}
	defer stores.CloseStores()

	local, err := localstore.Open(cfg, stores)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open local store")
	}

	client, err := supabase.New(supabase.Config{
		URL:      cfg.SupabaseURL,
		AnonKey:  cfg.SupabaseAnonKey,
		Timeout:  cfg.RequestTimeout,
		Observer: metrics.ObserveGatewayRequest,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Supabase client")
	}

	ctx := context.Background()
	uploader, err := newUploader(ctx, cfg, client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize media storage")
	}

	source, stopSource := newChangeSource(cfg, client)
	defer stopSource()

	prefs := session.NewPreferences(local)
	registry := app.NewRegistry(&app.Shared{
		Auth:      client.Auth(),
		JWTSecret: cfg.SupabaseJWTSecret,
		Repos: services.Repositories{
			Posts:         repositories.NewSupabasePostRepository(client),
			Likes:         repositories.NewSupabaseLikeRepository(client),
			Comments:      repositories.NewSupabaseCommentRepository(client),
			Follows:       repositories.NewSupabaseFollowRepository(client),
			Points:        repositories.NewSupabasePointsRepository(client),
			Users:         repositories.NewSupabaseUserRepository(client),
			Messages:      repositories.NewSupabaseMessageRepository(client),
			Notifications: repositories.NewSupabaseNotificationRepository(client),
			Settings:      repositories.NewSupabaseSettingsRepository(client),
		},
		Uploader:    uploader,
		Source:      source,
		Statuses:    status.NewStore(local, uploader),
		Preferences: prefs,
	})
	defer registry.Close()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.NewValidator()

	// Setup global middleware
	config.SetupMiddleware(e, cfg)

	var limiter *middleware.RateLimiter
	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	registry.StartSweep(time.Minute, stopCleanup)
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		limiter.StartCleanup(10*time.Minute, stopCleanup)
	}

	// Setup routes and dependencies
	router.SetupRoutes(e, router.Options{
		Registry:       registry,
		Preferences:    prefs,
		Limiter:        limiter,
		MetricsEnabled: cfg.MetricsEnabled,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// newUploader returns the object storage selected by cfg.StorageDriver, or
// nil when uploads are disabled.
func newUploader(ctx context.Context, cfg *config.Config, client *supabase.Client) (media.Uploader, error) {
	switch cfg.StorageDriver {
	case "supabase":
		return media.NewSupabaseUploader(client), nil
	case "s3":
		u, err := media.NewS3Uploader(ctx, media.S3Options{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return u, nil
	case "firebase":
		fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseBucket)
		if err != nil {
			return nil, err
		}
		return media.NewFirebaseUploader(fb), nil
	}
	log.Warn().Msg("Media storage disabled; posts with media will be rejected")
	return nil, nil
}

// newChangeSource returns the realtime websocket client or the polling
// fallback, with its shutdown function.
func newChangeSource(cfg *config.Config, client *supabase.Client) (realtime.Source, func()) {
	if cfg.RealtimeMode == "poll" {
		poller := supabase.NewChangePoller(client, cfg.PollInterval)
		log.Info().Dur("interval", cfg.PollInterval).Msg("Polling for changes.")
		return poller, poller.Stop
	}

	rt := supabase.NewRealtimeClient(client)
	log.Info().Msg("Using realtime websocket for changes.")
	return rt, func() {
		if err := rt.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing realtime connection")
		}
	}
}
