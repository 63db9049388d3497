// ====================================
// File: cmd/engine/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/config"
	"github.com/rovshanmuradov/conviction-engine/internal/engine"
	"github.com/rovshanmuradov/conviction-engine/internal/utils/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to the engine configuration")
	flag.Parse()

	// .env до чтения конфигурации: переменные CONVICTION_* перекрывают файл
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		LogFile:     cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxAge:      cfg.Log.MaxAge,
		MaxBackups:  cfg.Log.MaxBackups,
		Compress:    cfg.Log.Compress,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Debug("No .env file, using process environment")
	}
	log.Info("Starting conviction engine", zap.String("network", cfg.Network), zap.String("rpc", cfg.RPCURL))

	runner, err := engine.NewRunner(cfg, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize engine", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runner.Run(ctx); err != nil {
		log.Error("Engine stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Engine stopped")
}
