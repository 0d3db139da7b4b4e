// Package backtest replays daily bar data through a strategy and simulates
// the resulting trades against a portfolio, producing summary performance
// metrics.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"tdxtools/internal/domain"
	"tdxtools/internal/portfolio"
	"tdxtools/internal/strategy"
)

// Fatal preconditions. Both abort a run before any portfolio mutation.
var (
	ErrNoData     = errors.New("no bar data supplied")
	ErrEmptyRange = errors.New("no trading dates in the requested range")
)

// Config holds the engine's execution parameters.
type Config struct {
	InitialCapital float64
	CommissionRate float64
	Slippage       float64 // fractional price adjustment at execution
	SellLevy       float64 // extra sell-side rate approximating stamp tax
	LotSize        int64   // minimum tradable share block
}

// DefaultConfig returns the standard CN-market parameters.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 100000,
		CommissionRate: 0.0003,
		Slippage:       0.001,
		SellLevy:       0.001,
		LotSize:        100,
	}
}

// Engine is a single-pass, time-ordered backtest simulator. The date loop
// is strictly sequential: each day's trade sizing depends on the previous
// day's ending cash and positions.
type Engine struct {
	cfg       Config
	portfolio *portfolio.Portfolio
	results   *Results
	log       *slog.Logger
}

// New creates an Engine with a fresh portfolio at cfg.InitialCapital.
// InitialCapital and LotSize fall back to DefaultConfig when not positive.
// The cost rates fall back only when negative: an explicit zero configures
// a frictionless simulation.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = def.InitialCapital
	}
	if cfg.CommissionRate < 0 {
		cfg.CommissionRate = def.CommissionRate
	}
	if cfg.Slippage < 0 {
		cfg.Slippage = def.Slippage
	}
	if cfg.SellLevy < 0 {
		cfg.SellLevy = def.SellLevy
	}
	if cfg.LotSize <= 0 {
		cfg.LotSize = def.LotSize
	}
	return &Engine{
		cfg:       cfg,
		portfolio: portfolio.New(cfg.InitialCapital),
		log:       slog.Default().With("component", "backtest"),
	}
}

// Portfolio exposes the engine's portfolio, mainly for inspection in tests.
func (e *Engine) Portfolio() *portfolio.Portfolio { return e.portfolio }

// Results returns the metrics of the last completed run, or nil before any
// run has finished.
func (e *Engine) Results() *Results { return e.results }

// Run executes the backtest over the supplied per-symbol bar frames. start
// and end clip the simulated date range; either may be zero for unbounded.
func (e *Engine) Run(
	ctx context.Context,
	data map[string]*domain.Frame,
	strat strategy.Strategy,
	start, end time.Time,
) (*Results, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("backtest %s: %w", strat.Name(), ErrNoData)
	}

	dates := dateUniverse(data, start, end)
	if len(dates) == 0 {
		return nil, fmt.Errorf("backtest %s: %w", strat.Name(), ErrEmptyRange)
	}

	e.log.Info("starting backtest",
		"strategy", strat.Name(),
		"symbols", len(data),
		"from", dates[0].Format("2006-01-02"),
		"to", dates[len(dates)-1].Format("2006-01-02"),
		"days", len(dates),
	)

	// Signals are computed once per symbol over its full series: indicator
	// look-back windows need complete history, not a truncated slice.
	symbols := make([]string, 0, len(data))
	for sym := range data {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	signals := make(map[string]*domain.Frame, len(data))
	for _, sym := range symbols {
		sf, err := strat.GenerateSignals(data[sym])
		if err != nil {
			return nil, fmt.Errorf("backtest %s: signals for %s: %w", strat.Name(), sym, err)
		}
		signals[sym] = sf
	}

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prices := make(map[string]float64)
		for _, sym := range symbols {
			if row, ok := data[sym].Row(date); ok {
				prices[sym] = data[sym].At(domain.ColClose, row)
			}
		}
		if len(prices) == 0 {
			continue
		}

		for _, sym := range symbols {
			e.executeSignal(sym, date, signals[sym], prices)
		}

		total := e.portfolio.UpdatePositionValues(prices)
		e.portfolio.RecordDailySnapshot(date, total)
	}

	e.results = computeResults(e.cfg.InitialCapital, e.portfolio)
	e.log.Info("backtest finished",
		"trades", e.results.TotalTrades,
		"finalValue", e.results.FinalValue,
	)
	return e.results, nil
}

// executeSignal turns one symbol's position change at one date into a
// portfolio operation. Missing prices, insufficient cash, and insufficient
// holdings are all skipped without interrupting the run.
func (e *Engine) executeSignal(sym string, date time.Time, sigFrame *domain.Frame, prices map[string]float64) {
	row, ok := sigFrame.Row(date)
	if !ok {
		return
	}
	change := sigFrame.At(domain.ColPosition, row)
	if math.IsNaN(change) || change == 0 {
		return
	}
	price, ok := prices[sym]
	if !ok {
		return
	}

	switch {
	case change > 0:
		// Slippage inflates the buy price; size the order with half of the
		// available cash, rounded down to whole lots.
		tradePrice := price * (1 + e.cfg.Slippage)
		available := e.portfolio.Cash() * 0.5
		lots := int64(available / tradePrice / float64(e.cfg.LotSize))
		quantity := lots * e.cfg.LotSize
		if quantity <= 0 {
			return
		}
		e.portfolio.Buy(sym, date, tradePrice, quantity, e.cfg.CommissionRate)

	case change < 0:
		held := e.portfolio.Position(sym)
		if held <= 0 {
			return
		}
		tradePrice := price * (1 - e.cfg.Slippage)
		e.portfolio.Sell(sym, date, tradePrice, held, e.cfg.CommissionRate+e.cfg.SellLevy)
	}
}

// dateUniverse returns the sorted union of all symbols' bar dates, clipped
// to [start, end] when those bounds are non-zero.
func dateUniverse(data map[string]*domain.Frame, start, end time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, f := range data {
		for _, d := range f.Dates() {
			seen[d] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		if !start.IsZero() && d.Before(domain.Day(start)) {
			continue
		}
		if !end.IsZero() && d.After(domain.Day(end)) {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
