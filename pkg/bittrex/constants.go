package bittrex

import "fmt"

const (
	DefaultBaseURL = "https://api.bittrex.com"

	HeaderAPIKey      = "Api-Key"
	HeaderTimestamp   = "Api-Timestamp"
	HeaderContentHash = "Api-Content-Hash"
	HeaderSignature   = "Api-Signature"
)

// CandleInterval is the bucket size segment of the candles endpoint.
type CandleInterval string

const (
	IntervalMinute1 CandleInterval = "MINUTE_1"
	IntervalMinute5 CandleInterval = "MINUTE_5"
	IntervalHour1   CandleInterval = "HOUR_1"
	IntervalDay1    CandleInterval = "DAY_1"
)

// validCandleIntervals maps each interval to its bucket length in seconds.
var validCandleIntervals = map[CandleInterval]int64{
	IntervalMinute1: 60,
	IntervalMinute5: 5 * 60,
	IntervalHour1:   60 * 60,
	IntervalDay1:    24 * 60 * 60,
}

// IsValid checks if the CandleInterval is accepted by the exchange.
func (c CandleInterval) IsValid() bool {
	_, ok := validCandleIntervals[c]
	return ok
}

// Seconds returns the bucket length, or 0 for an unknown interval.
func (c CandleInterval) Seconds() int64 {
	return validCandleIntervals[c]
}

// ParseCandleInterval parses a string into a valid CandleInterval.
func ParseCandleInterval(s string) (CandleInterval, error) {
	interval := CandleInterval(s)
	if !interval.IsValid() {
		return "", fmt.Errorf("invalid candle interval: %s", s)
	}
	return interval, nil
}
