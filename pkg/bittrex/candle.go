package bittrex

import (
	"fmt"
	"strings"
	"time"
)

const startsAtLayout = "2006-01-02T15:04:05"

// ParseStartsAt converts an exchange timestamp such as "2023-01-01T00:00:00Z"
// to unix seconds. The returned date is the input with its zone marker
// stripped, which is the form persisted alongside the price.
func ParseStartsAt(s string) (int64, string, error) {
	date := strings.TrimSuffix(strings.TrimSpace(s), "Z")

	layout := startsAtLayout
	if strings.Contains(date, ".") {
		layout = startsAtLayout + ".999999999"
	}

	t, err := time.ParseInLocation(layout, date, time.UTC)
	if err != nil {
		return 0, "", fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.Unix(), date, nil
}

// PriceKey builds the unique price row key "<unix_seconds>-<symbol>".
func PriceKey(timeSecs int64, symbol string) string {
	return fmt.Sprintf("%d-%s", timeSecs, symbol)
}
