package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/watchearn/watchearn/internal/ads"
	"github.com/watchearn/watchearn/internal/api"
	"github.com/watchearn/watchearn/internal/audit"
	"github.com/watchearn/watchearn/internal/auth"
	"github.com/watchearn/watchearn/internal/config"
	"github.com/watchearn/watchearn/internal/database"
	"github.com/watchearn/watchearn/internal/events"
	"github.com/watchearn/watchearn/internal/ledger"
	"github.com/watchearn/watchearn/internal/middleware"
	"github.com/watchearn/watchearn/internal/profile"
	iredis "github.com/watchearn/watchearn/internal/redis"
	"github.com/watchearn/watchearn/internal/server"
	"github.com/watchearn/watchearn/internal/verify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DB.MigrationsPath != "" {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS JetStream. Optional: the ledger settles claims without it,
	// only the audit trail lags.
	var natsClient *events.Client
	if cfg.NATS.URL != "" {
		natsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Warn("connecting to nats failed, audit trail disabled", "error", err)
			natsClient = nil
		} else {
			defer natsClient.Close()
		}
	}

	// Auth (validation only; tokens are minted by the auth provider)
	jwtManager := auth.NewJWTManager(cfg.JWT.AccessSecret, cfg.JWT.Issuer)

	// Ledger
	ledgerRepo := ledger.NewRepository(pool)
	limitCache := ledger.NewLimitCache(redisClient, cfg.Ads.LimitCacheTTL)
	var publisher ledger.EventPublisher
	if natsClient != nil {
		publisher = events.NewPublisher(natsClient.JetStream())
	}
	ledgerSvc := ledger.NewService(ledgerRepo, limitCache, publisher, cfg.Ads)
	ledgerHandler := ledger.NewHandler(ledgerSvc)

	// Verifier stub
	verifyHandler := verify.NewHandler()

	// Catalog and profile
	adsHandler := ads.NewHandler(ads.DefaultCatalog())
	profileHandler := profile.NewHandler(profile.NewRepository(pool))

	// Audit trail
	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo)
	if natsClient != nil {
		consumer := audit.NewConsumer(auditRepo, events.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	// Per-IP limit on the public verifier endpoint
	verifyLimiter := middleware.NewRateLimiter(redisClient, cfg.Ads.VerifyRatePerMinute, 60)

	router := api.NewRouter(pool, redisClient, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		VerifyRateLimiter:  verifyLimiter.Middleware,
	}, api.HandlerSet{
		VerifyAdView: verifyHandler.Verify,

		AdViewLimit:    ledgerHandler.Limit,
		AdViewComplete: ledgerHandler.Complete,
		AdViewHistory:  ledgerHandler.History,

		ListAuditEntries: auditHandler.List,

		ListAds:    adsHandler.List,
		GetProfile: profileHandler.Get,

		AuthMiddleware: auth.Middleware(jwtManager),
	})

	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
