package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	mw "github.com/aiox-platform/alchemist/internal/middleware"
	inats "github.com/aiox-platform/alchemist/internal/nats"
	iredis "github.com/aiox-platform/alchemist/internal/redis"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	CreateTurn http.HandlerFunc
	GetSession http.HandlerFunc
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	TurnRateLimiter    func(http.Handler) http.Handler
}

// NewRouter wires the HTTP surface. redisClient and natsClient are nil when
// the corresponding feature is disabled.
func NewRouter(redisClient *goredis.Client, natsClient *inats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status": "healthy",
			"redis":  "healthy",
			"nats":   "healthy",
		}

		if redisClient == nil {
			health["redis"] = "not configured"
		} else if err := iredis.HealthCheck(r.Context(), redisClient); err != nil {
			// The limiter fails open, so Redis loss degrades but does not block turns.
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
		}

		if natsClient == nil {
			health["nats"] = "not configured"
		} else if !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
		}

		JSON(w, http.StatusOK, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/users/{userID}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.TurnRateLimiter != nil {
				r.Use(cfg.TurnRateLimiter)
			}
			r.Post("/turns", h.CreateTurn)
		})
		r.Get("/session", h.GetSession)
	})

	return r
}
