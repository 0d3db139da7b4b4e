// Package builtins provides hand-written strategy implementations that ship
// with the toolkit.
package builtins

import (
	"fmt"
	"math"

	"tdxtools/internal/domain"
	"tdxtools/internal/strategy"
	"tdxtools/internal/ta"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MovingAverageCrossover)(nil)

// Indicator columns added by MovingAverageCrossover.
const (
	ColMAShort = "ma_short"
	ColMALong  = "ma_long"
)

// MovingAverageCrossover signals +1 while the short-window average is above
// the long-window average and -1 while it is below. Bars inside the warm-up
// window stay 0. An exact tie between the two averages resolves to -1.
type MovingAverageCrossover struct {
	shortWindow int
	longWindow  int
}

// NewMovingAverageCrossover creates the strategy with the given short and
// long moving-average windows.
func NewMovingAverageCrossover(short, long int) *MovingAverageCrossover {
	return &MovingAverageCrossover{
		shortWindow: short,
		longWindow:  long,
	}
}

// Name returns an identifier carrying both windows, e.g. "ma-cross-5-20".
func (s *MovingAverageCrossover) Name() string {
	return fmt.Sprintf("ma-cross-%d-%d", s.shortWindow, s.longWindow)
}

// CalculateIndicators adds the ma_short and ma_long columns.
func (s *MovingAverageCrossover) CalculateIndicators(f *domain.Frame) (*domain.Frame, error) {
	closes, ok := f.Col(domain.ColClose)
	if !ok {
		return nil, fmt.Errorf("%s: frame has no close column", s.Name())
	}
	out := f.Clone()
	if err := out.SetCol(ColMAShort, ta.Ma(closes, s.shortWindow)); err != nil {
		return nil, err
	}
	if err := out.SetCol(ColMALong, ta.Ma(closes, s.longWindow)); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateSignals adds the signal and position columns.
func (s *MovingAverageCrossover) GenerateSignals(f *domain.Frame) (*domain.Frame, error) {
	out, err := s.CalculateIndicators(f)
	if err != nil {
		return nil, err
	}
	short, _ := out.Col(ColMAShort)
	long, _ := out.Col(ColMALong)

	signal := make([]float64, out.Len())
	for i := range signal {
		if math.IsNaN(short[i]) || math.IsNaN(long[i]) {
			continue
		}
		if short[i] > long[i] {
			signal[i] = 1
		} else {
			signal[i] = -1
		}
	}
	if err := out.SetCol(domain.ColSignal, signal); err != nil {
		return nil, err
	}
	if err := out.SetCol(domain.ColPosition, strategy.Diff(signal)); err != nil {
		return nil, err
	}
	return out, nil
}
