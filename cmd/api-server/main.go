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

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/barbershop-scheduling/internal/api"
	"github.com/hackgods/barbershop-scheduling/internal/assistant"
	"github.com/hackgods/barbershop-scheduling/internal/booking"
	"github.com/hackgods/barbershop-scheduling/internal/config"
	"github.com/hackgods/barbershop-scheduling/internal/db"
	"github.com/hackgods/barbershop-scheduling/internal/metrics"
	redisclient "github.com/hackgods/barbershop-scheduling/internal/redis"
	"github.com/hackgods/barbershop-scheduling/internal/session"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load error", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

	if err := run(cfg, logger); err != nil {
		logger.Error("api-server stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("api-server shut down")
}

func run(cfg config.Config, logger *slog.Logger) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := cfg.Scheduling.Policy()
	if err != nil {
		return err
	}

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	if err := db.Migrate(rootCtx, pgPool, logger); err != nil {
		return err
	}

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", "err", err)
		}
	}()
	logger.Info("connected to Redis", "addr", cfg.RedisAddr)

	m := metrics.New("barbershop")

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, locker, policy, logger, booking.WithRecorder(m))

	chat := assistant.NewRouter(svc, newSessionStore(cfg, rdb), policy.Location, logger,
		assistant.WithIntentRecorder(m))

	health := api.NewHealthHandler(cfg.Env, version,
		api.Check{Name: "postgres", Critical: true, Ping: pgPool.Ping},
		api.Check{Name: "redis", Ping: redisclient.Ping(rdb)},
	)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Booking:     svc,
			Chat:        chat,
			Health:      health,
			Metrics:     m,
			MetricsPath: cfg.MetricsPath,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-rootCtx.Done():
	}

	logger.Info("shutting down api-server", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newSessionStore(cfg config.Config, rdb *redis.Client) session.Store {
	if cfg.SessionBackend == "redis" {
		return session.NewRedisStore(rdb, cfg.SessionTTL)
	}
	return session.NewMemoryStore(cfg.SessionTTL)
}

func newLogger(env string) *slog.Logger {
	if env == "prod" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
