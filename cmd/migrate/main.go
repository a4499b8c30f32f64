package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hackgods/careslot/internal/config"
	"github.com/hackgods/careslot/internal/db"
	"github.com/hackgods/careslot/internal/logging"
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

	version, err := db.Migrate(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("database is up to date", zap.Uint("version", version))
}
