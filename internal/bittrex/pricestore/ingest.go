package pricestore

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"coinfeed/pkg/bittrex"
	"coinfeed/pkg/storage/postgres"

	"go.uber.org/zap"
)

// SymbolResult summarizes one symbol of a backfill or ingestion pass.
type SymbolResult struct {
	Status   int // exchange HTTP status, 0 if never requested
	Fetched  int // candles or trades received
	Invalid  int // received but unparseable, not stored
	Inserted int
	Skipped  int // duplicate keys already stored
	Err      error
}

// Report maps each tracked symbol to its result.
type Report map[string]SymbolResult

// Inserted returns the total number of rows written.
func (r Report) Inserted() int {
	total := 0
	for _, res := range r {
		total += res.Inserted
	}
	return total
}

// Failed returns the symbols that ended with an error, sorted.
func (r Report) Failed() []string {
	var out []string
	for symbol, res := range r {
		if res.Err != nil {
			out = append(out, symbol)
		}
	}
	sort.Strings(out)
	return out
}

// BackfillFromCandles loads the recent candles of every tracked symbol into
// storage, one transaction per symbol. A failing symbol is recorded and skipped.
func (s *Store) BackfillFromCandles(ctx context.Context) Report {
	report := make(Report)

	for _, symbol := range s.symbols.GetAll() {
		res := s.backfillSymbol(ctx, symbol)
		report[symbol] = res

		if res.Err != nil {
			s.logger.Warn("could not backfill candles", zap.String("symbol", symbol),
				zap.Int("status", res.Status), zap.Error(res.Err))
			continue
		}
		s.logger.Info("finished loading prices", zap.String("symbol", symbol),
			zap.Int("candles", res.Fetched), zap.Int("inserted", res.Inserted),
			zap.Int("skipped", res.Skipped), zap.Int("invalid", res.Invalid))
	}

	return report
}

func (s *Store) backfillSymbol(ctx context.Context, symbol string) SymbolResult {
	coinID, ok := s.coins.Get(symbol)
	if !ok {
		return SymbolResult{Err: fmt.Errorf("%w: %s", ErrNotRegistered, symbol)}
	}

	status, candles, err := s.exchange.GetRecentCandles(ctx, symbol, s.interval)
	res := SymbolResult{Status: status, Fetched: len(candles)}
	if err != nil {
		res.Err = err
		return res
	}
	if status != http.StatusOK {
		res.Err = &StatusError{Status: status}
		return res
	}

	records := make([]postgres.PriceRecord, 0, len(candles))
	for _, c := range candles {
		timeSecs, date, err := bittrex.ParseStartsAt(c.StartsAt)
		if err != nil {
			res.Invalid++
			s.logger.Debug("skipping candle", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		records = append(records, postgres.PriceRecord{
			PID:      bittrex.PriceKey(timeSecs, symbol),
			CoinID:   coinID,
			Price:    c.Close.Float64(),
			Volume:   c.Volume.Float64(),
			TimeSecs: timeSecs,
			Date:     date,
		})
	}

	return s.store(ctx, res, records)
}

// IngestLatestPrices stores the most recent trade of every tracked symbol as a
// price row keyed by its execution second. This is the periodic ingestion step.
func (s *Store) IngestLatestPrices(ctx context.Context) Report {
	report := make(Report)

	for _, symbol := range s.symbols.GetAll() {
		res := s.ingestSymbol(ctx, symbol)
		report[symbol] = res

		if res.Err != nil {
			s.logger.Warn("could not ingest latest price", zap.String("symbol", symbol),
				zap.Int("status", res.Status), zap.Error(res.Err))
			continue
		}
		s.logger.Debug("ingested latest price", zap.String("symbol", symbol),
			zap.Int("inserted", res.Inserted), zap.Int("skipped", res.Skipped))
	}

	return report
}

func (s *Store) ingestSymbol(ctx context.Context, symbol string) SymbolResult {
	coinID, ok := s.coins.Get(symbol)
	if !ok {
		return SymbolResult{Err: fmt.Errorf("%w: %s", ErrNotRegistered, symbol)}
	}

	status, trade, err := s.exchange.GetLatestTrade(ctx, symbol)
	res := SymbolResult{Status: status}
	if err != nil {
		res.Err = err
		return res
	}
	if status != http.StatusOK || trade == nil {
		res.Err = &StatusError{Status: status}
		return res
	}
	res.Fetched = 1

	timeSecs, date, err := bittrex.ParseStartsAt(trade.ExecutedAt)
	if err != nil {
		res.Invalid = 1
		res.Err = err
		return res
	}
	s.cachePrice(ctx, symbol, trade.Rate.Float64(), s.now())

	return s.store(ctx, res, []postgres.PriceRecord{{
		PID:      bittrex.PriceKey(timeSecs, symbol),
		CoinID:   coinID,
		Price:    trade.Rate.Float64(),
		Volume:   trade.Quantity.Float64(),
		TimeSecs: timeSecs,
		Date:     date,
	}})
}

func (s *Store) store(ctx context.Context, res SymbolResult, records []postgres.PriceRecord) SymbolResult {
	inserted, err := s.repo.InsertPrices(ctx, records)
	if err != nil {
		res.Err = err
		return res
	}
	res.Inserted = inserted
	res.Skipped = len(records) - inserted
	return res
}
