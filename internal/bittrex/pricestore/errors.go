package pricestore

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyTracked = errors.New("symbol already tracked")
	ErrNotRegistered  = errors.New("symbol has no coin id; sync the coin registry first")
)

// ValidationError reports a symbol the exchange would not quote.
type ValidationError struct {
	Symbol string
	Status int   // HTTP status, 0 when the request never completed
	Err    error // transport or decode failure, if any
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validate %s: %v", e.Symbol, e.Err)
	}
	return fmt.Sprintf("validate %s: bittrex status %d", e.Symbol, e.Status)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StatusError is recorded for a symbol whose exchange call returned non-200.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bittrex status %d", e.Status)
}
