package backtest

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"tdxtools/internal/portfolio"
)

const (
	tradingDaysPerYear = 252
	riskFreeRate       = 0.03
)

// Results aggregates the performance of one backtest run.
type Results struct {
	InitialCapital float64
	FinalValue     float64

	TotalReturn  float64 // fractional, 0.10 means +10%
	AnnualReturn float64
	MaxDrawdown  float64 // <= 0, peak-to-trough fraction
	SharpeRatio  float64
	WinRate      float64 // fraction of round trips closed at a profit

	TotalTrades int
	Trades      []portfolio.Trade
	History     []portfolio.Snapshot
}

// computeResults derives all summary metrics from the portfolio's daily
// snapshot history and trade log.
func computeResults(initialCapital float64, p *portfolio.Portfolio) *Results {
	history := p.History()
	trades := p.Trades()

	r := &Results{
		InitialCapital: initialCapital,
		FinalValue:     initialCapital,
		TotalTrades:    len(trades),
		Trades:         trades,
		History:        history,
	}
	if len(history) == 0 {
		return r
	}

	values := make([]float64, len(history))
	for i, s := range history {
		values[i] = s.TotalValue
	}
	r.FinalValue = values[len(values)-1]
	r.TotalReturn = r.FinalValue/initialCapital - 1

	if len(values) > 1 {
		exponent := tradingDaysPerYear / float64(len(values))
		r.AnnualReturn = math.Pow(1+r.TotalReturn, exponent) - 1
	}

	r.MaxDrawdown = maxDrawdown(values)
	r.SharpeRatio = sharpeRatio(dailyReturns(values))
	r.WinRate = winRate(trades)
	return r
}

// maxDrawdown returns the deepest peak-to-trough decline as a non-positive
// fraction of the running peak.
func maxDrawdown(values []float64) float64 {
	worst := 0.0
	peak := math.Inf(-1)
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (v - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// dailyReturns converts a value series into simple day-over-day returns.
func dailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, values[i]/values[i-1]-1)
	}
	return returns
}

// sharpeRatio annualizes the mean excess daily return over its volatility.
// A flat or too-short series yields zero rather than a division blowup.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := stat.Mean(returns, nil)
	stdev := stat.StdDev(returns, nil)
	if stdev == 0 || math.IsNaN(stdev) {
		return 0
	}
	excess := mean - riskFreeRate/tradingDaysPerYear
	return math.Sqrt(tradingDaysPerYear) * excess / stdev
}

// winRate pairs each buy with the next sell of the same symbol and counts
// the fraction of those round trips that closed above the entry price.
// Pairing is per symbol so interleaved trades across symbols do not create
// phantom round trips.
func winRate(trades []portfolio.Trade) float64 {
	bySymbol := make(map[string][]portfolio.Trade)
	order := make([]string, 0)
	for _, t := range trades {
		if _, ok := bySymbol[t.Symbol]; !ok {
			order = append(order, t.Symbol)
		}
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], t)
	}

	var pairs, wins int
	for _, sym := range order {
		seq := bySymbol[sym]
		for i := 0; i+1 < len(seq); i++ {
			if seq[i].Action != portfolio.ActionBuy || seq[i+1].Action != portfolio.ActionSell {
				continue
			}
			pairs++
			if seq[i+1].Price > seq[i].Price {
				wins++
			}
		}
	}
	if pairs == 0 {
		return 0
	}
	return float64(wins) / float64(pairs)
}

// Span returns the first and last snapshot dates of the run, or zero times
// when no snapshot was recorded.
func (r *Results) Span() (time.Time, time.Time) {
	if len(r.History) == 0 {
		return time.Time{}, time.Time{}
	}
	return r.History[0].Date, r.History[len(r.History)-1].Date
}
