// Package portfolio tracks the cash, holdings, trade log, and daily value
// history of one backtest run. A Portfolio is exclusively owned by a single
// engine run and is mutated only through Buy, Sell, and the daily snapshot
// step.
package portfolio

import (
	"log/slog"
	"time"
)

// Action is the side of a trade.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Trade is one executed order. Trades are immutable once appended to the
// portfolio's log.
type Trade struct {
	Symbol     string
	Action     Action
	Date       time.Time
	Price      float64
	Quantity   int64 // shares, lot-aligned by the caller
	Commission float64
	Value      float64 // Price × Quantity
}

// Snapshot is the portfolio state at the end of one simulated date.
type Snapshot struct {
	Date           time.Time
	Cash           float64
	TotalValue     float64
	Positions      map[string]int64
	PositionValues map[string]float64
}

// Portfolio holds cash and per-symbol share counts, with an append-only
// trade log and daily history.
type Portfolio struct {
	initialCapital float64
	cash           float64
	positions      map[string]int64
	positionValues map[string]float64
	trades         []Trade
	history        []Snapshot
	log            *slog.Logger
}

// New creates a Portfolio holding initialCapital in cash.
func New(initialCapital float64) *Portfolio {
	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]int64),
		positionValues: make(map[string]float64),
		log:            slog.Default().With("component", "portfolio"),
	}
}

// InitialCapital returns the starting cash.
func (p *Portfolio) InitialCapital() float64 { return p.initialCapital }

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 { return p.cash }

// Position returns the held share count for a symbol (0 when not held).
func (p *Portfolio) Position(symbol string) int64 { return p.positions[symbol] }

// Positions returns a copy of the holdings map.
func (p *Portfolio) Positions() map[string]int64 {
	out := make(map[string]int64, len(p.positions))
	for k, v := range p.positions {
		out[k] = v
	}
	return out
}

// Trades returns the trade log. Callers must not modify the returned slice.
func (p *Portfolio) Trades() []Trade { return p.trades }

// History returns the daily snapshots. Callers must not modify the returned
// slice.
func (p *Portfolio) History() []Snapshot { return p.history }

// Buy purchases quantity shares at price, charging cost×commissionRate in
// commission. It reports false and changes nothing when cash cannot cover
// cost plus commission.
func (p *Portfolio) Buy(symbol string, date time.Time, price float64, quantity int64, commissionRate float64) bool {
	cost := price * float64(quantity)
	commission := cost * commissionRate

	if p.cash < cost+commission {
		p.log.Warn("buy skipped: insufficient cash",
			"symbol", symbol,
			"needed", cost+commission,
			"available", p.cash,
		)
		return false
	}

	p.cash -= cost + commission
	p.positions[symbol] += quantity
	p.trades = append(p.trades, Trade{
		Symbol:     symbol,
		Action:     ActionBuy,
		Date:       date,
		Price:      price,
		Quantity:   quantity,
		Commission: commission,
		Value:      cost,
	})

	p.log.Debug("buy", "symbol", symbol, "quantity", quantity, "price", price, "commission", commission)
	return true
}

// Sell disposes quantity shares at price, crediting the proceeds net of
// value×commissionRate. It reports false and changes nothing when the
// symbol is not held or held quantity is below the request. Selling the
// entire position removes the symbol from the holdings map.
func (p *Portfolio) Sell(symbol string, date time.Time, price float64, quantity int64, commissionRate float64) bool {
	held, ok := p.positions[symbol]
	if !ok || held < quantity {
		p.log.Warn("sell skipped: insufficient holdings",
			"symbol", symbol,
			"requested", quantity,
			"held", held,
		)
		return false
	}

	value := price * float64(quantity)
	commission := value * commissionRate

	p.cash += value - commission
	p.positions[symbol] -= quantity
	if p.positions[symbol] == 0 {
		delete(p.positions, symbol)
		delete(p.positionValues, symbol)
	}
	p.trades = append(p.trades, Trade{
		Symbol:     symbol,
		Action:     ActionSell,
		Date:       date,
		Price:      price,
		Quantity:   quantity,
		Commission: commission,
		Value:      value,
	})

	p.log.Debug("sell", "symbol", symbol, "quantity", quantity, "price", price, "commission", commission)
	return true
}

// UpdatePositionValues marks every held position to the supplied prices and
// returns cash plus the summed position values. Symbols missing from the
// price map are skipped with a warning and contribute nothing that day.
func (p *Portfolio) UpdatePositionValues(prices map[string]float64) float64 {
	total := p.cash
	clear(p.positionValues)

	for symbol, quantity := range p.positions {
		price, ok := prices[symbol]
		if !ok {
			p.log.Warn("no price for held symbol", "symbol", symbol)
			continue
		}
		value := float64(quantity) * price
		p.positionValues[symbol] = value
		total += value
	}
	return total
}

// RecordDailySnapshot appends the end-of-day state. It is called exactly
// once per simulated date.
func (p *Portfolio) RecordDailySnapshot(date time.Time, totalValue float64) {
	positions := make(map[string]int64, len(p.positions))
	for k, v := range p.positions {
		positions[k] = v
	}
	values := make(map[string]float64, len(p.positionValues))
	for k, v := range p.positionValues {
		values[k] = v
	}
	p.history = append(p.history, Snapshot{
		Date:           date,
		Cash:           p.cash,
		TotalValue:     totalValue,
		Positions:      positions,
		PositionValues: values,
	})
}
