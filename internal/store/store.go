// Package store defines storage interfaces for persisting and retrieving
// daily bar data and backtest results.
package store

import (
	"context"
	"time"

	"tdxtools/internal/backtest"
	"tdxtools/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// ordered by date.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bar data.
	ListSymbols(ctx context.Context) ([]string, error)
}

// ResultStore persists completed backtest runs.
type ResultStore interface {
	// SaveResult records a finished run's metrics and trade log, returning
	// the assigned run ID.
	SaveResult(ctx context.Context, strategyName string, results *backtest.Results) (int64, error)
}
