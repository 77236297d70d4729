package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ricirt/pulse/internal/api/handler"
	apimw "github.com/ricirt/pulse/internal/api/middleware"
	"github.com/ricirt/pulse/internal/broadcast"
	"github.com/ricirt/pulse/internal/config"
	"github.com/ricirt/pulse/internal/ratelimiter"
	"github.com/ricirt/pulse/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.AnalysisService,
	hub *broadcast.Hub,
	limiters *ratelimiter.ClientLimiters,
	reg prometheus.Gatherer,
	cfg *config.Config,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-ID"},
		ExposedHeaders: []string{"X-Correlation-ID"},
		MaxAge:         300,
	}))
	r.Use(apimw.CorrelationID) // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	limited := apimw.RateLimit(limiters, logger)

	// --- handler instances ---
	qh := handler.NewQueueHandler(svc, logger)
	sh := handler.NewStreamHandler(svc, logger)
	rh := handler.NewRealtimeHandler(hub, cfg.CORSOrigins, cfg.WSPingInterval, cfg.WSWriteTimeout, logger)
	hh := handler.NewHealthHandler(time.Now())

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Real-time push channel
	r.Get("/ws", rh.WebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", hh.Health)

		// Queue: /stats must be registered before /{requestId}
		// so chi does not treat the literal string "stats" as an ID.
		r.With(limited).Post("/queue", qh.Enqueue)
		r.Get("/queue/stats", qh.Stats)
		r.Delete("/queue/{requestId}", qh.Cancel)

		r.With(limited).Get("/stream", sh.Stream)
		r.Get("/events", rh.Events)
	})

	return r
}
