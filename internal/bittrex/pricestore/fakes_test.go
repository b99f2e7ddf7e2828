package pricestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"coinfeed/pkg/bittrex"
	"coinfeed/pkg/storage/postgres"
)

type fakeQuote struct {
	status int
	price  float64
	err    error
}

type fakeCandles struct {
	status  int
	candles []bittrex.Candle
	err     error
}

type fakeExchange struct {
	mu          sync.Mutex
	quotes      map[string]fakeQuote
	trades      map[string]bittrex.Trade
	candles     map[string]fakeCandles
	priceCalls  map[string]int
	candleCalls int
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		quotes:     map[string]fakeQuote{},
		trades:     map[string]bittrex.Trade{},
		candles:    map[string]fakeCandles{},
		priceCalls: map[string]int{},
	}
}

func (f *fakeExchange) GetLatestPrice(_ context.Context, symbol string) (int, *float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls[symbol]++

	q, ok := f.quotes[symbol]
	if !ok {
		return http.StatusNotFound, nil, nil
	}
	if q.err != nil || q.status != http.StatusOK {
		return q.status, nil, q.err
	}
	p := q.price
	return q.status, &p, nil
}

func (f *fakeExchange) GetLatestTrade(_ context.Context, symbol string) (int, *bittrex.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trades[symbol]
	if !ok {
		return http.StatusNotFound, nil, nil
	}
	return http.StatusOK, &t, nil
}

func (f *fakeExchange) GetRecentCandles(_ context.Context, symbol string, _ bittrex.CandleInterval) (int, []bittrex.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candleCalls++
	c, ok := f.candles[symbol]
	if !ok {
		return http.StatusNotFound, nil, nil
	}
	if c.err != nil || c.status != http.StatusOK {
		return c.status, nil, c.err
	}
	return c.status, c.candles, nil
}

// fakeRepo mimics the coins/prices tables, including the missing-table error.
type fakeRepo struct {
	exists bool
	nextID int64
	coins  map[string]int64
	prices map[string]postgres.PriceRecord

	loadCalls       int
	insertCoinCalls int
	insertCoinErr   map[string]error
}

func newFakeRepo() *fakeRepo {
	r := &fakeRepo{insertCoinErr: map[string]error{}}
	r.reset()
	return r
}

func (r *fakeRepo) reset() {
	r.exists = true
	r.nextID = 0
	r.coins = map[string]int64{}
	r.prices = map[string]postgres.PriceRecord{}
}

var errNoTable = errors.New(`relation "coins" does not exist`)

func (r *fakeRepo) CreateSchema(context.Context) error {
	r.reset()
	return nil
}

func (r *fakeRepo) DropSchema(context.Context) error {
	r.exists = false
	r.coins, r.prices = nil, nil
	return nil
}

func (r *fakeRepo) LoadCoins(context.Context) (map[string]int64, error) {
	r.loadCalls++
	if !r.exists {
		return nil, errNoTable
	}
	out := make(map[string]int64, len(r.coins))
	for k, v := range r.coins {
		out[k] = v
	}
	return out, nil
}

func (r *fakeRepo) InsertCoin(_ context.Context, symbol string) (int64, error) {
	r.insertCoinCalls++
	if !r.exists {
		return 0, errNoTable
	}
	if err := r.insertCoinErr[symbol]; err != nil {
		return 0, err
	}
	if _, ok := r.coins[symbol]; ok {
		return 0, fmt.Errorf("duplicate coin %s", symbol)
	}
	r.nextID++
	r.coins[symbol] = r.nextID
	return r.nextID, nil
}

func (r *fakeRepo) InsertPrices(_ context.Context, records []postgres.PriceRecord) (int, error) {
	if !r.exists {
		return 0, errNoTable
	}
	n := 0
	for _, rec := range records {
		if _, ok := r.prices[rec.PID]; ok {
			continue
		}
		r.prices[rec.PID] = rec
		n++
	}
	return n, nil
}

func (r *fakeRepo) QuerySeries(_ context.Context, symbol string) ([]postgres.SeriesPoint, error) {
	if !r.exists {
		return nil, errNoTable
	}
	id, ok := r.coins[symbol]
	if !ok {
		return nil, postgres.ErrCoinNotFound
	}
	var rows []postgres.PriceRecord
	for _, rec := range r.prices {
		if rec.CoinID == id {
			rows = append(rows, rec)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TimeSecs < rows[j].TimeSecs })

	out := make([]postgres.SeriesPoint, len(rows))
	for i, rec := range rows {
		out[i] = postgres.SeriesPoint{Price: rec.Price, TimeSecs: rec.TimeSecs}
	}
	return out, nil
}

type fakeCache struct {
	prices map[string]float64
	times  map[string]time.Time
}

func (c *fakeCache) SetLatestPrice(_ context.Context, symbol string, price float64, fetchedAt time.Time) error {
	if c.prices == nil {
		c.prices = map[string]float64{}
		c.times = map[string]time.Time{}
	}
	c.prices[symbol] = price
	c.times[symbol] = fetchedAt
	return nil
}
