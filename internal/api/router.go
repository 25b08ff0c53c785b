package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/watchearn/watchearn/internal/database"
	"github.com/watchearn/watchearn/internal/events"
	mw "github.com/watchearn/watchearn/internal/middleware"
	"github.com/watchearn/watchearn/internal/redis"
)

// HandlerSet holds handler functions injected from main.go to avoid
// import cycles.
type HandlerSet struct {
	// Verifier stub (public, rate limited)
	VerifyAdView http.HandlerFunc

	// Ledger RPCs
	AdViewLimit    http.HandlerFunc
	AdViewComplete http.HandlerFunc
	AdViewHistory  http.HandlerFunc

	// Review trail
	ListAuditEntries http.HandlerFunc

	// Catalog and balance
	ListAds    http.HandlerFunc
	GetProfile http.HandlerFunc

	// Auth middleware
	AuthMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	VerifyRateLimiter  func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, redisClient *goredis.Client, natsClient *events.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)

	// Liveness probe, always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe, checks DB, Redis and NATS
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"redis":    "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if redisClient != nil {
			if err := redis.HealthCheck(r.Context(), redisClient); err != nil {
				health["redis"] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		} else {
			health["redis"] = "not configured"
		}

		if natsClient != nil && !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if natsClient == nil {
			health["nats"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Verifier stub (public). It manages its own wildcard CORS
		// because ad provider callbacks come from arbitrary origins and
		// carry no bearer token; abuse is bounded with a per-IP rate
		// limit instead.
		r.Route("/verify", func(r chi.Router) {
			if cfg.VerifyRateLimiter != nil {
				r.Use(cfg.VerifyRateLimiter)
			}
			r.Post("/ad-view", h.VerifyAdView)
			r.Options("/ad-view", h.VerifyAdView)
		})

		// Protected routes, restricted to the configured web origins
		r.Group(func(r chi.Router) {
			r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))
			r.Use(h.AuthMiddleware)

			r.Route("/adviews", func(r chi.Router) {
				r.Get("/limit", h.AdViewLimit)
				r.Post("/complete", h.AdViewComplete)
				r.Get("/history", h.AdViewHistory)
				r.Get("/audit", h.ListAuditEntries)
			})

			r.Get("/ads", h.ListAds)
			r.Get("/profile", h.GetProfile)
		})
	})

	return r
}
