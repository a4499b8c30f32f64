package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hackgods/careslot/internal/api"
	"github.com/hackgods/careslot/internal/appointment"
	"github.com/hackgods/careslot/internal/config"
	"github.com/hackgods/careslot/internal/db"
	"github.com/hackgods/careslot/internal/logging"
	"github.com/hackgods/careslot/internal/metrics"
	"github.com/hackgods/careslot/internal/notification"
	redisclient "github.com/hackgods/careslot/internal/redis"
	"github.com/hackgods/careslot/internal/schedule"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api-server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("timezone", cfg.Location.String()),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		v, err := db.Migrate(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", zap.Uint("version", v))
	}

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolConfig{})
	cancelPg()
	if err != nil {
		return fmt.Errorf("postgres connection: %w", err)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	// Redis is optional: without it bookings run unlocked and notifications
	// are written straight to Postgres.
	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Warn("redis unavailable, running without slot locks and notification stream", zap.Error(err))
		rdb = nil
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("error closing redis", zap.Error(err))
			}
		}()
		logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
	}

	m := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)
	inbox := notification.NewPgStore(pgPool)

	var sink notification.Sink = inbox
	var locker appointment.Locker
	if rdb != nil {
		sink = notification.NewStreamSink(rdb, cfg.NotifyStream)
		locker = redisclient.NewSlotLocker(rdb, cfg.LockTTL, logger)
	}

	dispatcher := notification.NewDispatcher(sink, notification.DispatcherConfig{
		QueueSize: cfg.NotifyQueueSize,
		Workers:   cfg.NotifyWorkers,
	}, m, logger.Named("dispatcher"))

	schedules := schedule.NewManager(schedule.NewPgStore(pgPool), cfg.DefaultSlotMinutes, logger.Named("schedule"))
	svc := appointment.NewService(appointment.NewPgRepository(pgPool), schedules, appointment.Options{
		Locker:   locker,
		Notifier: dispatcher,
		Metrics:  m,
		Logger:   logger.Named("appointment"),
		Location: cfg.Location,
	})

	deps := []api.Dependency{{Name: "postgres", Required: true, Ping: pgPool.Ping}}
	if rdb != nil {
		deps = append(deps, api.Dependency{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	router := api.NewRouter(api.RouterConfig{
		Service:        svc,
		Notifications:  inbox,
		Health:         api.NewHealthHandler(cfg.Env, version, deps...),
		Metrics:        promhttp.Handler(),
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
		BookingLimiter: api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
	// Flush queued notifications after the last request has finished.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("notification queue not drained", zap.Error(err))
	}

	logger.Info("api-server stopped")
	return nil
}
