// Package pricestore tracks a set of Bittrex symbols, assigns them coin ids
// and moves exchange prices into storage.
package pricestore

import (
	"context"
	"time"

	"coinfeed/internal/bittrex/memorystore"
	"coinfeed/pkg/bittrex"
	"coinfeed/pkg/storage/postgres"

	"go.uber.org/zap"
)

// Exchange is the subset of the Bittrex REST client the store depends on.
type Exchange interface {
	GetLatestPrice(ctx context.Context, symbol string) (int, *float64, error)
	GetLatestTrade(ctx context.Context, symbol string) (int, *bittrex.Trade, error)
	GetRecentCandles(ctx context.Context, symbol string, interval bittrex.CandleInterval) (int, []bittrex.Candle, error)
}

// Repository owns the coins and prices tables.
type Repository interface {
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error
	LoadCoins(ctx context.Context) (map[string]int64, error)
	InsertCoin(ctx context.Context, symbol string) (int64, error)
	InsertPrices(ctx context.Context, records []postgres.PriceRecord) (int, error)
	QuerySeries(ctx context.Context, symbol string) ([]postgres.SeriesPoint, error)
}

// PriceCache receives every successfully fetched latest price.
type PriceCache interface {
	SetLatestPrice(ctx context.Context, symbol string, price float64, fetchedAt time.Time) error
}

type Store struct {
	exchange Exchange
	repo     Repository
	cache    PriceCache

	symbols *memorystore.MemorySymbolStore
	coins   *memorystore.MemoryCoinStore

	interval bittrex.CandleInterval
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithPriceCache(c PriceCache) Option {
	return func(s *Store) { s.cache = c }
}

// WithCandleInterval sets the bucket size used by BackfillFromCandles. Default HOUR_1.
func WithCandleInterval(iv bittrex.CandleInterval) Option {
	return func(s *Store) { s.interval = iv }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds a Store tracking symbols in the given order.
func New(exchange Exchange, repo Repository, symbols []string, opts ...Option) *Store {
	s := &Store{
		exchange: exchange,
		repo:     repo,
		symbols:  memorystore.NewSymbolStore(symbols...),
		coins:    memorystore.NewCoinStore(),
		interval: bittrex.IntervalHour1,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "pricestore"))
	return s
}

// TrackedSymbols returns the tracked symbols in tracking order.
func (s *Store) TrackedSymbols() []string {
	return s.symbols.GetAll()
}

// CoinIDs returns a copy of the symbol -> coin_id cache.
func (s *Store) CoinIDs() map[string]int64 {
	return s.coins.Snapshot()
}
