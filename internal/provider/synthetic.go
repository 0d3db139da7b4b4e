package provider

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"tdxtools/internal/domain"
)

// Compile-time interface check.
var _ Provider = (*SyntheticProvider)(nil)

// SyntheticProvider generates deterministic random-walk bars, useful for
// exercising strategies and the backtest engine without market data access.
// The same symbol and seed always produce the same series.
type SyntheticProvider struct {
	Seed       int64
	StartPrice float64
	Volatility float64 // daily standard deviation as a fraction of price
	Drift      float64 // daily expected return
}

// NewSyntheticProvider returns a generator with mild upward drift.
func NewSyntheticProvider(seed int64) *SyntheticProvider {
	return &SyntheticProvider{
		Seed:       seed,
		StartPrice: 10.0,
		Volatility: 0.02,
		Drift:      0.0003,
	}
}

// DailyBars generates weekday bars for the symbol within [start, end].
func (p *SyntheticProvider) DailyBars(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(p.Seed ^ int64(h.Sum64())))

	price := p.StartPrice
	var bars []domain.Bar
	for d := domain.Day(start); !d.After(domain.Day(end)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		ret := p.Drift + p.Volatility*rng.NormFloat64()
		open := price
		close := open * (1 + ret)
		if close < 0.01 {
			close = 0.01
		}
		high := max(open, close) * (1 + 0.005*rng.Float64())
		low := min(open, close) * (1 - 0.005*rng.Float64())
		volume := int64(500000 + rng.Intn(1500000))

		bars = append(bars, domain.Bar{
			Symbol: symbol,
			Date:   d,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
			Amount: close * float64(volume),
		})
		price = close
	}
	return bars, nil
}
