package pricestore

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"coinfeed/pkg/bittrex"
	"coinfeed/pkg/storage/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, symbols ...string) (*Store, *fakeExchange, *fakeRepo) {
	t.Helper()
	ex := newFakeExchange()
	repo := newFakeRepo()
	return New(ex, repo, symbols), ex, repo
}

// go test -v --run TestSyncCoinRegistryIdempotent
func TestSyncCoinRegistryIdempotent(t *testing.T) {
	store, _, repo := newTestStore(t, "BTC-USD", "ETH-USD")
	ctx := context.Background()

	require.NoError(t, store.SyncCoinRegistry(ctx))
	first := store.CoinIDs()
	assert.Equal(t, map[string]int64{"BTC-USD": 1, "ETH-USD": 2}, first)

	require.NoError(t, store.SyncCoinRegistry(ctx))
	assert.Equal(t, first, store.CoinIDs())
	assert.Len(t, repo.coins, 2, "no duplicate coin rows")
	assert.Equal(t, 2, repo.insertCoinCalls)
	assert.Equal(t, 2, repo.loadCalls)
}

// go test -v --run TestSyncCoinRegistryPicksUpExistingRows
func TestSyncCoinRegistryPicksUpExistingRows(t *testing.T) {
	store, _, repo := newTestStore(t, "BTC-USD", "ETH-USD")
	repo.coins["ETH-USD"] = 7
	repo.nextID = 7

	require.NoError(t, store.SyncCoinRegistry(context.Background()))
	assert.Equal(t, map[string]int64{"ETH-USD": 7, "BTC-USD": 8}, store.CoinIDs())
}

// go test -v --run TestSyncCoinRegistryContinuesPastFailure
func TestSyncCoinRegistryContinuesPastFailure(t *testing.T) {
	store, _, repo := newTestStore(t, "BAD-USD", "BTC-USD")
	repo.insertCoinErr["BAD-USD"] = postgres.ErrSymbolTooLong

	err := store.SyncCoinRegistry(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, postgres.ErrSymbolTooLong)
	assert.Equal(t, map[string]int64{"BTC-USD": 1}, store.CoinIDs())
}

// go test -v --run TestTrackNewCoin
func TestTrackNewCoin(t *testing.T) {
	store, ex, repo := newTestStore(t, "BTC-USD")
	ctx := context.Background()
	ex.quotes["DOGE-USD"] = fakeQuote{status: http.StatusOK, price: 0.07}

	require.NoError(t, store.SyncCoinRegistry(ctx))
	require.NoError(t, store.TrackNewCoin(ctx, "DOGE-USD"))

	assert.Equal(t, []string{"BTC-USD", "DOGE-USD"}, store.TrackedSymbols())
	assert.Equal(t, int64(2), store.CoinIDs()["DOGE-USD"])
	assert.Equal(t, int64(2), repo.coins["DOGE-USD"])
}

// go test -v --run TestTrackNewCoinAlreadyTracked
func TestTrackNewCoinAlreadyTracked(t *testing.T) {
	store, ex, repo := newTestStore(t, "BTC-USD")
	ctx := context.Background()
	require.NoError(t, store.SyncCoinRegistry(ctx))
	loads, inserts := repo.loadCalls, repo.insertCoinCalls

	err := store.TrackNewCoin(ctx, "BTC-USD")
	assert.ErrorIs(t, err, ErrAlreadyTracked)
	assert.Equal(t, loads, repo.loadCalls, "storage must not be contacted again")
	assert.Equal(t, inserts, repo.insertCoinCalls)
	assert.Zero(t, ex.priceCalls["BTC-USD"])
	assert.Equal(t, []string{"BTC-USD"}, store.TrackedSymbols())
}

// go test -v --run TestTrackNewCoinRejectedByExchange
func TestTrackNewCoinRejectedByExchange(t *testing.T) {
	tests := map[string]fakeQuote{
		"not found":   {status: http.StatusNotFound},
		"server down": {status: http.StatusServiceUnavailable},
		"unreachable": {err: errors.New("dial tcp: connection refused")},
	}
	for name, q := range tests {
		t.Run(name, func(t *testing.T) {
			store, ex, repo := newTestStore(t, "BTC-USD")
			ctx := context.Background()
			require.NoError(t, store.SyncCoinRegistry(ctx))
			ex.quotes["FAKE-USD"] = q
			loads := repo.loadCalls

			err := store.TrackNewCoin(ctx, "FAKE-USD")

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "FAKE-USD", verr.Symbol)
			assert.Equal(t, q.status, verr.Status)
			assert.Equal(t, []string{"BTC-USD"}, store.TrackedSymbols())
			assert.NotContains(t, store.CoinIDs(), "FAKE-USD")
			assert.NotContains(t, repo.coins, "FAKE-USD")
			assert.Equal(t, loads, repo.loadCalls)
		})
	}
}

// go test -v --run TestTrackNewCoinSymbolTooLong
func TestTrackNewCoinSymbolTooLong(t *testing.T) {
	store, ex, repo := newTestStore(t, "BTC-USD")
	ctx := context.Background()
	require.NoError(t, store.SyncCoinRegistry(ctx))
	const long = "AVERYLONGSYMBOLNAME-USD"
	ex.quotes[long] = fakeQuote{status: http.StatusOK, price: 1}
	inserts := repo.insertCoinCalls

	err := store.TrackNewCoin(ctx, long)
	assert.ErrorIs(t, err, postgres.ErrSymbolTooLong)
	assert.Zero(t, ex.priceCalls[long], "exchange must not be asked")
	assert.Equal(t, inserts, repo.insertCoinCalls)
	assert.Equal(t, []string{"BTC-USD"}, store.TrackedSymbols())
}

// go test -v --run TestTrackNewCoinRollsBackOnInsertFailure
func TestTrackNewCoinRollsBackOnInsertFailure(t *testing.T) {
	store, ex, repo := newTestStore(t, "BTC-USD")
	ctx := context.Background()
	require.NoError(t, store.SyncCoinRegistry(ctx))
	ex.quotes["ADA-USD"] = fakeQuote{status: http.StatusOK, price: 0.3}
	outage := errors.New("connection refused")
	repo.insertCoinErr["ADA-USD"] = outage

	err := store.TrackNewCoin(ctx, "ADA-USD")
	assert.ErrorIs(t, err, outage)
	assert.Equal(t, []string{"BTC-USD"}, store.TrackedSymbols())
	assert.NotContains(t, store.CoinIDs(), "ADA-USD")

	// backfill must not keep failing for a symbol that never got an id
	report := store.BackfillFromCandles(ctx)
	assert.NotContains(t, report, "ADA-USD")

	delete(repo.insertCoinErr, "ADA-USD")
	require.NoError(t, store.TrackNewCoin(ctx, "ADA-USD"))
	assert.Equal(t, []string{"BTC-USD", "ADA-USD"}, store.TrackedSymbols())
	assert.Equal(t, int64(2), store.CoinIDs()["ADA-USD"])
}

// go test -v --run TestFetchAllCurrentPricesContinuesOnError
func TestFetchAllCurrentPricesContinuesOnError(t *testing.T) {
	ex := newFakeExchange()
	cache := &fakeCache{}
	store := New(ex, newFakeRepo(), []string{"BTC-USD", "GONE-USD", "ETH-USD", "ERR-USD"}, WithPriceCache(cache))
	ex.quotes["BTC-USD"] = fakeQuote{status: http.StatusOK, price: 16650.25}
	ex.quotes["ETH-USD"] = fakeQuote{status: http.StatusOK, price: 1200.5}
	ex.quotes["ERR-USD"] = fakeQuote{err: errors.New("timeout")}

	quotes := store.FetchAllCurrentPrices(context.Background())
	require.Len(t, quotes, 4)

	assert.True(t, quotes["BTC-USD"].OK())
	assert.Equal(t, 16650.25, *quotes["BTC-USD"].Price)
	assert.True(t, quotes["ETH-USD"].OK())

	assert.False(t, quotes["GONE-USD"].OK())
	assert.Equal(t, http.StatusNotFound, quotes["GONE-USD"].Status)
	assert.Nil(t, quotes["GONE-USD"].Price)
	var serr *StatusError
	assert.ErrorAs(t, quotes["GONE-USD"].Err, &serr)

	assert.False(t, quotes["ERR-USD"].OK())
	assert.EqualError(t, quotes["ERR-USD"].Err, "timeout")

	assert.Equal(t, map[string]float64{"BTC-USD": 16650.25, "ETH-USD": 1200.5}, cache.prices)
}

// go test -v --run TestQuotesCarryFetchTime
func TestQuotesCarryFetchTime(t *testing.T) {
	ex := newFakeExchange()
	repo := newFakeRepo()
	cache := &fakeCache{}
	fetched := time.Date(2023, 1, 1, 0, 5, 0, 0, time.UTC)
	store := New(ex, repo, []string{"BTC-USD", "GONE-USD"}, WithPriceCache(cache), WithClock(func() time.Time { return fetched }))
	ex.quotes["BTC-USD"] = fakeQuote{status: http.StatusOK, price: 16650.25}
	ex.trades["BTC-USD"] = bittrex.Trade{ExecutedAt: "2023-01-01T00:04:59Z", Rate: 16651, Quantity: 1}
	ctx := context.Background()

	quotes := store.FetchAllCurrentPrices(ctx)
	assert.Equal(t, "BTC-USD", quotes["BTC-USD"].Symbol)
	assert.Equal(t, fetched, quotes["BTC-USD"].FetchedAt)
	assert.Equal(t, "GONE-USD", quotes["GONE-USD"].Symbol)
	assert.Equal(t, fetched, cache.times["BTC-USD"])
	assert.NotContains(t, cache.times, "GONE-USD")

	require.NoError(t, store.SyncCoinRegistry(ctx))
	cache.times = map[string]time.Time{}
	store.IngestLatestPrices(ctx)
	assert.Equal(t, 16651.0, cache.prices["BTC-USD"])
	assert.Equal(t, fetched, cache.times["BTC-USD"])
}

// go test -v --run TestTradeAndCandleShareKeySpace
func TestTradeAndCandleShareKeySpace(t *testing.T) {
	store, ex, repo := newTestStore(t, "BTC-USD")
	ctx := context.Background()
	require.NoError(t, store.SyncCoinRegistry(ctx))
	ex.trades["BTC-USD"] = bittrex.Trade{ExecutedAt: "2023-01-01T00:00:00Z", Rate: 99.5, Quantity: 0.1}
	ex.candles["BTC-USD"] = fakeCandles{status: http.StatusOK, candles: []bittrex.Candle{
		{Close: 100, Volume: 5, StartsAt: "2023-01-01T00:00:00Z"},
	}}

	require.Equal(t, 1, store.IngestLatestPrices(ctx)["BTC-USD"].Inserted)

	// a trade on the hour boundary owns the key; the candle close is skipped
	res := store.BackfillFromCandles(ctx)["BTC-USD"]
	assert.NoError(t, res.Err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 99.5, repo.prices["1672531200-BTC-USD"].Price)
}

// go test -v --run TestBackfillFromCandles
func TestBackfillFromCandles(t *testing.T) {
	store, ex, repo := newTestStore(t, "BTC-USD")
	ctx := context.Background()
	ex.candles["BTC-USD"] = fakeCandles{status: http.StatusOK, candles: []bittrex.Candle{
		{Close: 100.0, Volume: 5.0, StartsAt: "2023-01-01T00:00:00Z"},
	}}

	require.NoError(t, store.SyncCoinRegistry(ctx))
	require.Equal(t, int64(1), store.CoinIDs()["BTC-USD"])

	report := store.BackfillFromCandles(ctx)
	assert.Empty(t, report.Failed())
	assert.Equal(t, 1, report.Inserted())

	require.Len(t, repo.prices, 1)
	row, ok := repo.prices["1672531200-BTC-USD"]
	require.True(t, ok, "expected key 1672531200-BTC-USD, got %v", repo.prices)
	assert.Equal(t, postgres.PriceRecord{
		PID:      "1672531200-BTC-USD",
		CoinID:   1,
		Price:    100.0,
		Volume:   5.0,
		TimeSecs: 1672531200,
		Date:     "2023-01-01T00:00:00",
	}, row)

	series, err := store.QuerySeries(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, []Point{{Price: 100.0, TimeSecs: 1672531200}}, series)
}

// go test -v --run TestBackfillSkipsDuplicatesAndBadSymbols
func TestBackfillSkipsDuplicatesAndBadSymbols(t *testing.T) {
	store, ex, repo := newTestStore(t, "BTC-USD", "NOPE-USD", "ETH-USD")
	ctx := context.Background()
	ex.candles["BTC-USD"] = fakeCandles{status: http.StatusOK, candles: []bittrex.Candle{
		{Close: 100, Volume: 5, StartsAt: "2023-01-01T00:00:00Z"},
		{Close: 101, Volume: 6, StartsAt: "garbage"},
		{Close: 102, Volume: 7, StartsAt: "2023-01-01T01:00:00Z"},
	}}
	ex.candles["ETH-USD"] = fakeCandles{status: http.StatusOK, candles: []bittrex.Candle{
		{Close: 1200, Volume: 1, StartsAt: "2023-01-01T00:00:00Z"},
	}}
	require.NoError(t, store.SyncCoinRegistry(ctx))

	first := store.BackfillFromCandles(ctx)
	assert.Equal(t, []string{"NOPE-USD"}, first.Failed())
	assert.Equal(t, http.StatusNotFound, first["NOPE-USD"].Status)
	assert.Equal(t, SymbolResult{Status: 200, Fetched: 3, Invalid: 1, Inserted: 2}, first["BTC-USD"])
	assert.Equal(t, 1, first["ETH-USD"].Inserted)
	assert.Len(t, repo.prices, 3)

	second := store.BackfillFromCandles(ctx)
	assert.Equal(t, 0, second.Inserted())
	assert.Equal(t, 2, second["BTC-USD"].Skipped)
	assert.Equal(t, 1, second["ETH-USD"].Skipped)
	assert.Len(t, repo.prices, 3)
}

// go test -v --run TestBackfillRequiresRegistry
func TestBackfillRequiresRegistry(t *testing.T) {
	store, ex, _ := newTestStore(t, "BTC-USD")
	ex.candles["BTC-USD"] = fakeCandles{status: http.StatusOK}

	report := store.BackfillFromCandles(context.Background())
	assert.ErrorIs(t, report["BTC-USD"].Err, ErrNotRegistered)
	assert.Zero(t, ex.candleCalls)
}

// go test -v --run TestIngestLatestPrices
func TestIngestLatestPrices(t *testing.T) {
	store, ex, repo := newTestStore(t, "BTC-USD", "ETH-USD")
	ctx := context.Background()
	ex.trades["BTC-USD"] = bittrex.Trade{ExecutedAt: "2023-01-01T00:05:00.123Z", Rate: 16650.25, Quantity: 0.5}
	require.NoError(t, store.SyncCoinRegistry(ctx))

	report := store.IngestLatestPrices(ctx)
	assert.Equal(t, []string{"ETH-USD"}, report.Failed())
	assert.Equal(t, 1, report["BTC-USD"].Inserted)

	row := repo.prices["1672531500-BTC-USD"]
	assert.Equal(t, 16650.25, row.Price)
	assert.Equal(t, 0.5, row.Volume)
	assert.Equal(t, "2023-01-01T00:05:00.123", row.Date)

	// same trade on the next tick is a duplicate, not an error
	again := store.IngestLatestPrices(ctx)
	assert.NoError(t, again["BTC-USD"].Err)
	assert.Equal(t, 1, again["BTC-USD"].Skipped)
}

// go test -v --run TestDropSchemaThenQueryFails
func TestDropSchemaThenQueryFails(t *testing.T) {
	store, _, _ := newTestStore(t, "BTC-USD")
	ctx := context.Background()
	require.NoError(t, store.SyncCoinRegistry(ctx))

	require.NoError(t, store.DropSchema(ctx))
	assert.Empty(t, store.CoinIDs())

	series, err := store.QuerySeries(ctx, "BTC-USD")
	require.Error(t, err)
	assert.Nil(t, series)
	assert.Contains(t, err.Error(), "does not exist")
}

// go test -v --run TestCreateSchemaResetsCache
func TestCreateSchemaResetsCache(t *testing.T) {
	store, _, repo := newTestStore(t, "BTC-USD")
	ctx := context.Background()
	require.NoError(t, store.SyncCoinRegistry(ctx))

	require.NoError(t, store.CreateSchema(ctx))
	assert.Empty(t, store.CoinIDs())
	assert.Empty(t, repo.coins)

	require.NoError(t, store.SyncCoinRegistry(ctx))
	assert.Equal(t, map[string]int64{"BTC-USD": 1}, store.CoinIDs())
}
