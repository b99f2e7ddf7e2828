package pricestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"coinfeed/pkg/storage/postgres"

	"go.uber.org/zap"
)

// SyncCoinRegistry reloads the coin id cache from storage and registers every
// tracked symbol that has no row yet. Running it again is a no-op apart from the reload.
func (s *Store) SyncCoinRegistry(ctx context.Context) error {
	existing, err := s.repo.LoadCoins(ctx)
	if err != nil {
		return fmt.Errorf("sync coin registry: %w", err)
	}
	s.coins.Replace(existing)

	var errs []error
	for _, symbol := range s.symbols.GetAll() {
		if _, ok := s.coins.Get(symbol); ok {
			continue
		}
		id, err := s.repo.InsertCoin(ctx, symbol)
		if err != nil {
			s.logger.Warn("failed to register coin", zap.String("symbol", symbol), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		s.coins.Set(symbol, id)
		s.logger.Info("registered coin", zap.String("symbol", symbol), zap.Int64("coin_id", id))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("sync coin registry: %w", err)
	}
	return nil
}

// TrackNewCoin starts tracking symbol after confirming the exchange quotes it.
// Already tracked symbols return ErrAlreadyTracked without any exchange or storage call.
// If the symbol cannot be registered it is not left tracked.
func (s *Store) TrackNewCoin(ctx context.Context, symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return errors.New("track coin: empty symbol")
	}
	if len(symbol) > postgres.MaxSymbolLength {
		return fmt.Errorf("track coin: %w: %q", postgres.ErrSymbolTooLong, symbol)
	}

	if s.symbols.Contains(symbol) {
		s.logger.Info("coin is already being tracked", zap.String("symbol", symbol))
		return fmt.Errorf("%w: %s", ErrAlreadyTracked, symbol)
	}

	status, _, err := s.exchange.GetLatestPrice(ctx, symbol)
	if err != nil || status != http.StatusOK {
		verr := &ValidationError{Symbol: symbol, Status: status, Err: err}
		s.logger.Warn("could not add coin", zap.String("symbol", symbol), zap.Int("status", status), zap.Error(err))
		return verr
	}

	s.symbols.Add(symbol)
	err = s.SyncCoinRegistry(ctx)
	if _, ok := s.coins.Get(symbol); !ok {
		s.symbols.Remove(symbol)
		s.logger.Warn("rolled back coin without id", zap.String("symbol", symbol), zap.Error(err))
		if err == nil {
			err = fmt.Errorf("%w: %s", ErrNotRegistered, symbol)
		}
		return fmt.Errorf("track coin %s: %w", symbol, err)
	}
	return err
}
