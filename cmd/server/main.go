package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filedrop/internal/api"
	"filedrop/internal/api/handlers"
	"filedrop/internal/api/middleware"
	"filedrop/internal/engine/billing"
	"filedrop/internal/engine/cascade"
	"filedrop/internal/engine/inboxes"
	"filedrop/internal/engine/profiles"
	"filedrop/internal/engine/submissions"
	"filedrop/internal/pkg/logger"
	"filedrop/internal/pkg/metrics"
	"filedrop/internal/pkg/telemetry"
	"filedrop/internal/platform/audit"
	"filedrop/internal/platform/auth"
	"filedrop/internal/platform/cache"
	"filedrop/internal/platform/config"
	"filedrop/internal/platform/database"
	"filedrop/internal/platform/repositories"
	"filedrop/internal/platform/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// inboxCache is the slug cache plus the refresh signal; both backends provide all three.
type inboxCache interface {
	cache.InboxCache
	cache.Notifier
	cache.Subscriber
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logging)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	// Database
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	// Repositories
	profileRepo := repositories.NewProfileRepository(db)
	inboxRepo := repositories.NewInboxRepository(db)
	submissionRepo := repositories.NewSubmissionRepository(db)

	// Cache
	var (
		slugCache inboxCache
		rdb       *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to redis")
		}
		defer rc.Close()
		slugCache, rdb = rc, rc.Client()
	} else {
		log.Info().Msg("redis not configured, using in-process slug cache")
		slugCache = cache.NewMemory(cfg.Redis.SlugTTL)
	}

	// Storage
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to initialize storage")
	}
	var filesDir string
	if local, ok := store.(*storage.LocalStore); ok {
		filesDir = local.Dir()
	}

	// Identity
	tokenSvc := auth.NewTokenService(cfg.Auth.JWTSecret)
	var provider auth.Provider = tokenSvc
	if cfg.Auth.RemoteCheck && cfg.Auth.GoTrueURL != "" {
		provider = auth.NewGoTrueProvider(cfg.Auth.GoTrueURL, cfg.Auth.GoTrueKey, tokenSvc)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Services
	cascadeSvc := cascade.NewService(inboxRepo, submissionRepo, profileRepo, store, slugCache, slugCache, m)
	inboxSvc := inboxes.NewService(inboxRepo, profileRepo, cascadeSvc, slugCache, slugCache, m, cfg.Site.URL)
	submissionSvc := submissions.NewService(inboxSvc, inboxRepo, submissionRepo, profileRepo, store, slugCache, m)
	profileSvc := profiles.NewService(profileRepo, inboxRepo, m)

	webhooks := billing.NewHandler(
		billing.NewStripeVerifier(cfg.Stripe.WebhookSecret),
		profileRepo,
		audit.NewLogger(db),
		m,
	)
	sessions := billing.NewSessions(
		billing.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.UnlimitedPriceID, cfg.Site.URL),
		profileRepo,
	)

	// Router
	router := api.NewRouter(&api.Dependencies{
		InboxHandler:      handlers.NewInboxHandler(inboxSvc, submissionSvc),
		SubmissionHandler: handlers.NewSubmissionHandler(inboxSvc, submissionSvc, cascadeSvc, cfg.Server.MaxUploadBytes),
		ProfileHandler:    handlers.NewProfileHandler(profileSvc),
		BillingHandler:    handlers.NewBillingHandler(webhooks, sessions),
		EventsHandler:     handlers.NewEventsHandler(slugCache),
		HealthHandler:     handlers.NewHealthHandler(db, rdb),
		MetricsHandler:    handlers.NewMetricsHandler(m),
		AuthMiddleware:    middleware.NewAuthMiddleware(provider, profileSvc),
		Metrics:           m,
		FilesDir:          filesDir,
	})

	var handler http.Handler = router
	if cfg.Telemetry.Enabled {
		handler = otelhttp.NewHandler(router, cfg.Telemetry.ServiceName)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush traces")
	}
	log.Info().Msg("server stopped")
}
