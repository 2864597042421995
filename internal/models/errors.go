package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable means a price source failed and no stored
	// fallback existed.
	ErrUpstreamUnavailable = errors.New("upstream price unavailable")

	// ErrNoBitcoinPrice means no Bitcoin price has been recorded yet, so no
	// treasury metric can be computed.
	ErrNoBitcoinPrice = errors.New("no bitcoin price available")

	// ErrCompanyNotFound is returned for reads of an unknown ticker.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrInvalidTicker is returned for empty or over-long tickers.
	ErrInvalidTicker = errors.New("invalid ticker")
)

// PriceUnavailableError reports that every tier of a price source failed.
// Cause is the error from the primary tier.
type PriceUnavailableError struct {
	Source string
	Ticker string
	Cause  error
}

func (e *PriceUnavailableError) Error() string {
	if e.Ticker != "" {
		return fmt.Sprintf("%s price unavailable for %s: %v", e.Source, e.Ticker, e.Cause)
	}
	return fmt.Sprintf("%s price unavailable: %v", e.Source, e.Cause)
}

// Unwrap exposes both ErrUpstreamUnavailable and the primary cause to errors.Is.
func (e *PriceUnavailableError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrUpstreamUnavailable}
	}
	return []error{ErrUpstreamUnavailable, e.Cause}
}
