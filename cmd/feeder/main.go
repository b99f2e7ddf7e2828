package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"coinfeed/config"
	"coinfeed/internal/bittrex/feeder"
	"coinfeed/logger"

	"go.uber.org/zap"
)

const (
	exitOK = iota
	exitConfig
	exitFeeder
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup happens before exit.
func run() int {
	// viper config
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return exitConfig
	}
	cfg.ResolveSecrets()
	if err := cfg.Validate(); err != nil {
		log.Printf("invalid config: %v", err)
		return exitConfig
	}

	// zap logger
	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return exitConfig
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run feeder
	if err := feeder.Run(ctx, cfg, zlog); err != nil {
		zlog.Error("feeder failed", zap.Error(err))
		return exitFeeder
	}
	zlog.Info("feeder finished")
	return exitOK
}
