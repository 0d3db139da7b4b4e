// Package provider fetches daily bar data from external sources.
package provider

import (
	"context"
	"time"

	"tdxtools/internal/domain"
)

// Provider supplies daily OHLCV bars for a symbol. An empty result for a
// symbol with no data in the range is not an error.
type Provider interface {
	// DailyBars returns daily bars for symbol within [start, end], ordered
	// by date.
	DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}
