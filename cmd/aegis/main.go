package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegis-platform/aegis/internal/app"
	"github.com/aegis-platform/aegis/internal/audit"
	audithttp "github.com/aegis-platform/aegis/internal/audit/http"
	"github.com/aegis-platform/aegis/internal/authz"
	"github.com/aegis-platform/aegis/internal/observability"
	"github.com/aegis-platform/aegis/internal/platform/cache"
	"github.com/aegis-platform/aegis/internal/platform/db"
	"github.com/aegis-platform/aegis/internal/principal"
	"github.com/aegis-platform/aegis/internal/teams"
)

// meteredRecorder forwards decisions to the audit sink and counts
// outcomes for Prometheus on the way through.
type meteredRecorder struct {
	sink    *audit.Sink
	metrics *observability.Metrics
}

func (r meteredRecorder) Record(ctx context.Context, event audit.Event) {
	r.metrics.ObserveDecision(event.Granted)
	r.sink.Record(ctx, event)
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	authzRepo := authz.NewRepository(pool)
	roleStore := authz.NewCachedRoleStore(authzRepo, redisClient, cfg.RoleCacheTTL, logger)
	resolver := authz.NewResolver(roleStore, authzRepo)

	auditRepo := audit.NewRepository(pool)
	sink := audit.NewSink(auditRepo, logger, audit.SinkOptions{
		QueueSize:     cfg.AuditQueueSize,
		FlushInterval: cfg.AuditFlushInterval,
		OnDrop:        metrics.AuditDropped,
	})
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sink.Close(drainCtx); err != nil {
			logger.Warn("audit sink close", slog.Any("error", err))
		}
	}()

	enforcer := authz.NewEnforcer(resolver, authzRepo, meteredRecorder{sink: sink, metrics: metrics}, logger)
	guard := authz.Middleware{Enforcer: enforcer, Logger: logger}

	auditService := audit.NewService(auditRepo)
	teamsService := teams.NewService(teams.NewRepository(pool), enforcer)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		Metrics:      metrics,
		Principals:   principal.NewTokenResolver(redisClient, ""),
		AuthzHandler: authz.NewHandler(logger, enforcer),
		AuditHandler: audithttp.NewHandler(logger, auditService, guard),
		TeamsHandler: teams.NewHandler(logger, teamsService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
