package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ricirt/pulse/internal/api"
	"github.com/ricirt/pulse/internal/broadcast"
	"github.com/ricirt/pulse/internal/config"
	"github.com/ricirt/pulse/internal/db"
	"github.com/ricirt/pulse/internal/idgen"
	"github.com/ricirt/pulse/internal/metrics"
	"github.com/ricirt/pulse/internal/processor"
	"github.com/ricirt/pulse/internal/provider"
	"github.com/ricirt/pulse/internal/queue"
	"github.com/ricirt/pulse/internal/ratelimiter"
	"github.com/ricirt/pulse/internal/repository"
	"github.com/ricirt/pulse/internal/service"
	"github.com/ricirt/pulse/internal/stream"
	"github.com/ricirt/pulse/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if logger, err = newLogger(cfg.LogLevel); err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("invalid LOG_LEVEL, using info", zap.String("level", cfg.LogLevel))
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	// ---- subject directory ----
	var subjects repository.SubjectRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("database migrations applied")
		subjects = repository.NewPgSubjectRepository(pool)
	} else {
		logger.Info("DATABASE_URL not set, using in-memory subject directory")
		subjects = repository.NewMemorySubjectRepository()
	}

	seeded, err := repository.SeedIfEmpty(ctx, subjects, newFaker(cfg.SubjectSeed, 0), cfg.SubjectCount)
	if err != nil {
		logger.Fatal("failed to seed subjects", zap.Error(err))
	}
	if seeded > 0 {
		logger.Info("subject directory seeded", zap.Int("count", seeded))
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	q, err := queue.New(cfg.QueueMaxDepth, queue.OverflowPolicy(cfg.QueueOverflowPolicy))
	if err != nil {
		logger.Fatal("failed to create queue", zap.Error(err))
	}
	hub := broadcast.New(cfg.HubSubscriberBuffer, logger.With(zap.String("component", "hub")), m.HubHooks())
	limiters := ratelimiter.New(cfg.RateLimitPerClient, cfg.RateLimitBurst)

	proc := processor.NewSimulated(
		processor.NewLatency(cfg.ProcessingDelay, cfg.ProcessingJitter),
		cfg.ProcessingFailureRate,
		newFaker(cfg.SubjectSeed, 1),
	)
	transport := stream.NewTransport(
		subjects,
		stream.NewNarrator(newFaker(cfg.SubjectSeed, 2)),
		stream.Options{
			Mode:      stream.ChunkMode(cfg.StreamChunkMode),
			BlockSize: cfg.StreamChunkSize,
			MinDelay:  cfg.StreamMinDelay,
			MaxDelay:  cfg.StreamMaxDelay,
		},
		m.StreamHooks(),
		logger.With(zap.String("component", "stream")),
	)

	// ---- background workers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	sched := worker.NewScheduler(q, proc, hub, cfg.SchedulerConcurrency, cfg.ProcessingTimeout,
		logger.With(zap.String("component", "scheduler")), m.SchedulerHooks())
	sched.Start(workerCtx)

	housekeeper := worker.NewHousekeeper(q, limiters, cfg.LimiterIdleTTL, cfg.HousekeepingInterval,
		m.SetQueueDepth, logger.With(zap.String("component", "housekeeper")))
	go housekeeper.Run(workerCtx)

	if cfg.ResultWebhookURL != "" {
		fwd := provider.NewWebhookForwarder(cfg.ResultWebhookURL, cfg.ResultWebhookTimeout)
		forwarder := worker.NewForwardWorker(hub, fwd, logger.With(zap.String("component", "forwarder")))
		go forwarder.Run(workerCtx)
	}

	svc := service.NewAnalysisService(q, idgen.UUID{}, subjects, hub, sched, transport, service.Options{
		MaxPayload:     cfg.MaxPayloadLength,
		UnknownSubject: service.SubjectPolicy(cfg.UnknownSubjectPolicy),
		OnEnqueued:     m.OnEnqueued,
		OnCancelled:    m.OnCancelled,
	}, logger.With(zap.String("component", "service")))

	// ---- HTTP server ----
	router := api.NewRouter(svc, hub, limiters, reg, cfg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Reject new enqueues (503) and stop the scheduler from dequeuing.
	q.Close()
	cancelWorkers()

	// 2. Let in-flight items finish and publish to still-connected clients.
	sched.Wait()

	// 3. Disconnect WebSocket and SSE subscribers so their handlers return.
	hub.Close()

	// 4. Stop the HTTP server. Open activity streams end when their
	// clients leave or the timeout expires.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped cleanly", zap.Int("abandoned_items", q.Len()))
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// newFaker gives each component its own generator; a Faker is not safe to
// share between components that lock it independently. Seed 0 is random.
func newFaker(seed int64, offset uint64) *gofakeit.Faker {
	if seed == 0 {
		return gofakeit.New(0)
	}
	return gofakeit.New(uint64(seed) + offset)
}
