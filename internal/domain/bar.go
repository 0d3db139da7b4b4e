// Package domain defines the core data types shared across the toolkit:
// daily OHLCV bars and the Frame, a date-indexed column table that
// strategies read bars from and write indicator and signal columns into.
package domain

import (
	"fmt"
	"time"
)

// Bar is one trading day's OHLCV data for a single symbol.
type Bar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Amount float64 // turnover in quote currency; 0 when the source omits it
}

// Day truncates t to midnight UTC. Bars are keyed by calendar date, not by
// intraday timestamps, so every date entering a Frame goes through Day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ValidateBars checks that the bar series is non-empty, single-symbol, and
// strictly increasing in date with no duplicates.
func ValidateBars(bars []Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("empty bar series")
	}
	symbol := bars[0].Symbol
	for i, b := range bars {
		if b.Symbol != symbol {
			return fmt.Errorf("mixed symbols in series: %s and %s", symbol, b.Symbol)
		}
		if i > 0 && !Day(b.Date).After(Day(bars[i-1].Date)) {
			return fmt.Errorf("%s: dates not strictly increasing at %s", symbol, b.Date.Format("2006-01-02"))
		}
	}
	return nil
}
