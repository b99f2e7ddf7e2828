package pricestore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Quote is the outcome of one latest-price fetch.
type Quote struct {
	Symbol    string
	Status    int
	Price     *float64
	FetchedAt time.Time
	Err       error
}

// OK reports whether the quote carries a price.
func (q Quote) OK() bool {
	return q.Err == nil && q.Status == http.StatusOK && q.Price != nil
}

// FetchAllCurrentPrices asks the exchange for the latest price of every tracked
// symbol. A failing symbol is recorded and the batch continues.
func (s *Store) FetchAllCurrentPrices(ctx context.Context) map[string]Quote {
	quotes := make(map[string]Quote)

	for _, symbol := range s.symbols.GetAll() {
		status, price, err := s.exchange.GetLatestPrice(ctx, symbol)
		q := Quote{Symbol: symbol, Status: status, Price: price, FetchedAt: s.now(), Err: err}
		if err == nil && status != http.StatusOK {
			q.Err = &StatusError{Status: status}
		}
		quotes[symbol] = q

		if !q.OK() {
			s.logger.Warn("could not get price", zap.String("symbol", symbol), zap.Int("status", status), zap.Error(q.Err))
			continue
		}
		s.logger.Info("latest price", zap.String("symbol", symbol), zap.Float64("price", *price))
		s.cachePrice(ctx, symbol, *price, q.FetchedAt)
	}

	return quotes
}

// QuerySeries returns the stored (price, time_secs) points of symbol, oldest first.
func (s *Store) QuerySeries(ctx context.Context, symbol string) ([]Point, error) {
	rows, err := s.repo.QuerySeries(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("query series %s: %w", symbol, err)
	}

	points := make([]Point, len(rows))
	for i, r := range rows {
		points[i] = Point{Price: r.Price, TimeSecs: r.TimeSecs}
	}
	return points, nil
}

// Point is one chartable observation.
type Point struct {
	Price    float64
	TimeSecs int64
}

func (p Point) Time() time.Time {
	return time.Unix(p.TimeSecs, 0).UTC()
}

func (s *Store) cachePrice(ctx context.Context, symbol string, price float64, at time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetLatestPrice(ctx, symbol, price, at); err != nil {
		s.logger.Warn("failed to cache latest price", zap.String("symbol", symbol), zap.Error(err))
	}
}
