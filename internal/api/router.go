package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue-etc/internal/queue"
)

// RecalcService is what the HTTP layer needs from queue.Service.
type RecalcService interface {
	RecalcForVisit(ctx context.Context, id string) (*queue.Result, error)
	RecalcForDateSession(ctx context.Context, date time.Time, session queue.Session) (*queue.Result, error)
	RecalcToday(ctx context.Context) ([]*queue.Result, error)
	SessionQueue(ctx context.Context, date time.Time, session queue.Session) ([]*queue.Visit, error)
}

type RouterConfig struct {
	Service       RecalcService
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Gatherer      prometheus.Gatherer
	Logger        *zap.Logger
	RecalcTimeout time.Duration
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RecalcTimeout <= 0 {
		cfg.RecalcTimeout = 20 * time.Second
	}

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	if cfg.PgPool != nil {
		health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
		r.Get("/health/live", health.Liveness)
		r.Get("/health/ready", health.Readiness)
	}

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// Change hooks called by the visit and settings stores
	r.Post("/hooks/visit-changed", visitChangedHook(cfg.Service, cfg.RecalcTimeout))
	r.Post("/hooks/settings-changed", settingsChangedHook(cfg.Service, cfg.RecalcTimeout))

	// Manual recalculation
	r.Post("/recalc/visits/{id}", recalcVisitHandler(cfg.Service, cfg.RecalcTimeout))
	r.Post("/recalc/sessions/{date}/{session}", recalcSessionHandler(cfg.Service, cfg.RecalcTimeout))

	// Read side
	r.Get("/sessions/{date}/{session}/queue", sessionQueueHandler(cfg.Service))

	return r
}
