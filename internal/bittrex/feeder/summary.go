package feeder

import (
	"time"

	"coinfeed/internal/bittrex/pricestore"

	"go.uber.org/zap"
)

// Summary describes a price series in place of rendering a chart.
type Summary struct {
	Count     int
	First     time.Time
	Last      time.Time
	Min, Max  float64
	LastPrice float64
}

// Summarize expects points oldest first, as QuerySeries returns them.
func Summarize(points []pricestore.Point) Summary {
	if len(points) == 0 {
		return Summary{}
	}
	s := Summary{
		Count:     len(points),
		First:     points[0].Time(),
		Last:      points[len(points)-1].Time(),
		Min:       points[0].Price,
		Max:       points[0].Price,
		LastPrice: points[len(points)-1].Price,
	}
	for _, p := range points[1:] {
		s.Min = min(s.Min, p.Price)
		s.Max = max(s.Max, p.Price)
	}
	return s
}

func (s Summary) Log(logger *zap.Logger, symbol string) {
	if s.Count == 0 {
		logger.Info("no stored prices", zap.String("symbol", symbol))
		return
	}
	logger.Info("price series",
		zap.String("symbol", symbol),
		zap.Int("points", s.Count),
		zap.Time("from", s.First),
		zap.Time("to", s.Last),
		zap.Float64("min", s.Min),
		zap.Float64("max", s.Max),
		zap.Float64("last", s.LastPrice),
	)
}
