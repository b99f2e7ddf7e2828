// Package feeder wires config, storage and the exchange client into one
// price-feeding run.
package feeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coinfeed/config"
	"coinfeed/internal/bittrex/pricestore"
	"coinfeed/internal/bittrex/scheduler"
	"coinfeed/pkg/bittrex"
	"coinfeed/pkg/storage/postgres"
	"coinfeed/pkg/storage/redis"

	"go.uber.org/zap"
)

// Run connects to Postgres, Bittrex and optionally Redis, then executes the
// feeder steps configured in cfg.Feeder. It blocks while scheduling is enabled.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	interval, err := bittrex.ParseCandleInterval(cfg.Bittrex.REST.CandleInterval)
	if err != nil {
		return err
	}

	// Initialize PostgreSQL Client
	postgresClient, err := postgres.Initialize(cfg.Postgres, cfg.Log.Environment, true)
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer postgresClient.Close()

	restClient := bittrex.NewRESTClient(bittrex.Options{
		BaseURL:        cfg.Bittrex.REST.BaseURL,
		APIKey:         cfg.Bittrex.APIKey,
		APISecret:      cfg.Bittrex.APISecret,
		Timeout:        cfg.Bittrex.REST.Timeout,
		RequestsPerSec: cfg.Bittrex.REST.RequestsPerSec,
		MaxRetries:     cfg.Bittrex.REST.MaxRetries,
		Logger:         logger.With(zap.String("component", "bittrex")),
	})

	opts := []pricestore.Option{
		pricestore.WithLogger(logger),
		pricestore.WithCandleInterval(interval),
	}
	if cfg.Redis.Enabled {
		cache, err := redis.New(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer cache.Close()
		opts = append(opts, pricestore.WithPriceCache(cache))
	}

	store := pricestore.New(restClient, postgresClient, cfg.Feeder.Symbols, opts...)
	return Execute(ctx, cfg.Feeder, store, logger)
}

// Execute runs the feeder steps against an assembled store.
func Execute(ctx context.Context, cfg config.FeederConfig, store *pricestore.Store, logger *zap.Logger) error {
	if cfg.ResetSchema {
		if err := withTimeout(ctx, cfg.OpTimeout, store.CreateSchema); err != nil {
			return err
		}
	}

	// A partial registry is still usable; unregistered symbols fail later per symbol.
	if err := withTimeout(ctx, cfg.OpTimeout, store.SyncCoinRegistry); err != nil {
		if postgres.IsMissingTable(err) {
			logger.Warn("coins/prices tables are missing; run once with feeder.reset_schema=true to create them", zap.Error(err))
		} else {
			logger.Warn("coin registry incomplete", zap.Error(err))
		}
	}

	for _, symbol := range cfg.AddSymbols {
		err := withTimeout(ctx, cfg.OpTimeout, func(ctx context.Context) error {
			return store.TrackNewCoin(ctx, symbol)
		})
		var verr *pricestore.ValidationError
		switch {
		case err == nil:
			logger.Info("now tracking coin", zap.String("symbol", symbol))
		case errors.Is(err, pricestore.ErrAlreadyTracked):
		case errors.As(err, &verr):
			logger.Warn("rejected coin", zap.String("symbol", symbol), zap.Int("status", verr.Status))
		default:
			logger.Warn("failed to track coin", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	opCtx, cancel := opContext(ctx, cfg.OpTimeout)
	quotes := store.FetchAllCurrentPrices(opCtx)
	cancel()
	logger.Info("fetched current prices", zap.Int("symbols", len(quotes)))

	if cfg.Backfill {
		opCtx, cancel := opContext(ctx, cfg.OpTimeout)
		report := store.BackfillFromCandles(opCtx)
		cancel()
		logger.Info("backfill finished", zap.Int("inserted", report.Inserted()), zap.Strings("failed", report.Failed()))
	}

	for _, symbol := range cfg.ChartSymbols {
		opCtx, cancel := opContext(ctx, cfg.OpTimeout)
		points, err := store.QuerySeries(opCtx, symbol)
		cancel()
		if err != nil {
			logger.Warn("failed to query series", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		Summarize(points).Log(logger, symbol)
	}

	if !cfg.Schedule {
		return nil
	}

	runner := &scheduler.IntervalRunner{
		Interval: cfg.Interval,
		Logger:   logger,
		Task: func(ctx context.Context) error {
			opCtx, cancel := opContext(ctx, cfg.OpTimeout)
			defer cancel()
			report := store.IngestLatestPrices(opCtx)
			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("ingest failed for %d symbols: %v", len(failed), failed)
			}
			return nil
		},
	}
	logger.Info("scheduling price ingestion", zap.Duration("interval", cfg.Interval))
	return runner.Run(ctx)
}

func opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func withTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	opCtx, cancel := opContext(ctx, timeout)
	defer cancel()
	return fn(opCtx)
}
