package bittrex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Number decodes a JSON number or a numeric string. Bittrex v3 sends
// quantities and rates as strings.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", b, err)
	}
	*n = Number(f)
	return nil
}

func (n Number) Float64() float64 { return float64(n) }

// Trade is one element of GET /v3/markets/{symbol}/trades, most recent first.
type Trade struct {
	ID         string `json:"id"`
	ExecutedAt string `json:"executedAt"` // ISO-8601, trailing Z
	Quantity   Number `json:"quantity"`
	Rate       Number `json:"rate"`
	TakerSide  string `json:"takerSide"` // "BUY" or "SELL"
}

// Candle is one element of GET /v3/markets/{symbol}/candles/{interval}/recent.
type Candle struct {
	StartsAt    string `json:"startsAt"` // ISO-8601 bucket start, trailing Z
	Open        Number `json:"open"`
	High        Number `json:"high"`
	Low         Number `json:"low"`
	Close       Number `json:"close"`
	Volume      Number `json:"volume"`
	QuoteVolume Number `json:"quoteVolume"`
}

// ErrorResponse is the body Bittrex returns with non-2xx statuses.
type ErrorResponse struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}
