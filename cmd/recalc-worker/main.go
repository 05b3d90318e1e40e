package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue-etc/internal/config"
	"github.com/hackgods/clinic-queue-etc/internal/db"
	"github.com/hackgods/clinic-queue-etc/internal/logging"
	"github.com/hackgods/clinic-queue-etc/internal/metrics"
	"github.com/hackgods/clinic-queue-etc/internal/queue"
	redisclient "github.com/hackgods/clinic-queue-etc/internal/redis"
	"github.com/hackgods/clinic-queue-etc/internal/trigger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("recalc-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	if err := db.EnsureSchema(rootCtx, pgPool); err != nil {
		logger.Fatal("schema error", zap.Error(err))
	}

	locker := redisclient.NopLocker()
	if cfg.LockEnabled {
		rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			logger.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("error closing redis", zap.Error(err))
			}
		}()
		locker = redisclient.NewRedisSessionLocker(rdb, cfg.LockTTL, cfg.LockWait)
		logger.Info("connected to Redis")
	}

	svc := queue.NewService(
		queue.NewPgVisitStore(pgPool),
		queue.NewPgSettingsStore(pgPool),
		logger.Named("queue"),
		queue.WithLocker(locker),
		queue.WithMetrics(metrics.NewRecalcMetrics(prometheus.DefaultRegisterer)),
	)

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	listener := trigger.NewListener(pgPool, svc, logger.Named("trigger"), cfg.RecalcTimeout)
	go func() {
		if err := listener.Run(rootCtx); err != nil {
			logger.Error("listener stopped", zap.Error(err))
		}
	}()

	// Run once at startup
	runOnce(rootCtx, svc, logger, cfg.RecalcTimeout)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping recalc worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, logger, cfg.RecalcTimeout)
		}
	}
}

// runOnce sweeps both sessions of today so ETCs follow the clock even when
// nothing changes in the data.
func runOnce(ctx context.Context, svc *queue.Service, logger *zap.Logger, timeout time.Duration) {
	runCtx, cancel := context.WithTimeout(queue.WithTrigger(ctx, "sweep"), timeout)
	defer cancel()

	start := time.Now()
	if _, err := svc.RecalcToday(runCtx); err != nil {
		logger.Error("sweep error", zap.Error(err))
		return
	}
	logger.Info("sweep complete", zap.Duration("took", time.Since(start)))
}
