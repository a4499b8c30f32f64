package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/careslot/internal/config"
	"github.com/hackgods/careslot/internal/db"
	"github.com/hackgods/careslot/internal/logging"
	"github.com/hackgods/careslot/internal/notification"
	redisclient "github.com/hackgods/careslot/internal/redis"
)

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

	logger.Info("notification-worker starting up",
		zap.String("env", cfg.Env),
		zap.String("stream", cfg.NotifyStream),
		zap.Duration("interval", cfg.WorkerInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolConfig{MaxConns: 4})
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		PoolSize: 4,
	})
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	// The name must survive restarts, otherwise entries left pending by the
	// previous run are only recovered once they go idle and get claimed.
	consumerName := cfg.NotifyConsumer
	if consumerName == "" {
		consumerName, _ = os.Hostname()
	}
	consumer := notification.NewStreamConsumer(rdb, notification.NewPgStore(pgPool), notification.ConsumerConfig{
		Stream:   cfg.NotifyStream,
		Consumer: consumerName,
		Block:    -1,
	}, logger)

	if err := consumer.EnsureGroup(rootCtx); err != nil {
		logger.Fatal("ensure consumer group", zap.Error(err))
	}
	logger.Info("joined notification consumer group", zap.String("consumer", consumerName))

	// Run once at startup
	runOnce(rootCtx, consumer, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping notification worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, consumer, logger)
		}
	}
}

// runOnce drains whatever is waiting on the stream, batch by batch.
func runOnce(ctx context.Context, consumer *notification.StreamConsumer, logger *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	total := 0
	for {
		n, err := consumer.Poll(runCtx)
		total += n
		if err != nil {
			logger.Error("notification poll error", zap.Error(err))
			return
		}
		if n == 0 {
			break
		}
	}
	if total > 0 {
		logger.Info("notifications stored", zap.Int("count", total), zap.Duration("took", time.Since(start)))
	}
}
