// Package strategy defines the capability contract all trading strategies
// implement, whether generated from formulas or hand-written, and a
// Registry for looking strategies up by name.
package strategy

import (
	"sort"

	"tdxtools/internal/domain"
)

// Strategy turns a bar frame into a per-bar trading signal. The backtest
// engine depends only on this interface.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// CalculateIndicators returns a copy of the frame with the strategy's
	// indicator columns added. It is pure: existing columns are never
	// removed or modified, and repeated calls on the same input produce
	// identical output.
	CalculateIndicators(f *domain.Frame) (*domain.Frame, error)

	// GenerateSignals calls CalculateIndicators and adds the "signal"
	// column (-1, 0, or +1 per bar) and the "position" column (first
	// difference of signal, 0 at the first bar).
	GenerateSignals(f *domain.Frame) (*domain.Frame, error)
}

// Diff fills the position column from a signal series: position[i] =
// signal[i] - signal[i-1], with the first bar treated as no transition.
func Diff(signal []float64) []float64 {
	out := make([]float64, len(signal))
	for i := 1; i < len(signal); i++ {
		out[i] = signal[i] - signal[i-1]
	}
	return out
}

// Registry holds a named collection of strategies for lookup and
// enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates
// whether the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
