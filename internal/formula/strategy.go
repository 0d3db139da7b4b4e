package formula

import (
	"fmt"
	"math"

	"tdxtools/internal/domain"
	"tdxtools/internal/strategy"
)

// The shared mapping table, built once. Translators only read it.
var defaultTranslator = NewTranslator(DefaultTable())

// Compile-time interface check.
var _ strategy.Strategy = (*Strategy)(nil)

// Strategy is a runnable strategy unit generated from a parsed formula. It
// resolves parameters (override or parsed default), computes the declared
// variables in declaration order via their translated expressions, and
// derives the signal from the formula's output conditions.
type Strategy struct {
	formula *Formula
	params  map[string]float64

	// Translated expression text, aligned with formula.Variables and
	// formula.Conditions.
	varExprs  []string
	condExprs []string
}

// NewStrategy builds a strategy unit from a parsed formula. overrides maps
// parameter names to values; every name must be declared by the formula.
// A parameter whose default did not parse as a number must be overridden.
func NewStrategy(f *Formula, overrides map[string]float64) (*Strategy, error) {
	params := make(map[string]float64, len(f.Params))
	for _, p := range f.Params {
		params[p.Name] = p.Default
	}
	for name, v := range overrides {
		if _, ok := params[name]; !ok {
			return nil, fmt.Errorf("formula %s: override for undeclared parameter %q", f.Name, name)
		}
		params[name] = v
	}
	for name, v := range params {
		if math.IsNaN(v) {
			p, _ := f.Param(name)
			return nil, fmt.Errorf("formula %s: parameter %s has non-numeric default %q and no override", f.Name, name, p.Raw)
		}
	}

	s := &Strategy{
		formula: f,
		params:  params,
	}
	for _, v := range f.Variables {
		t, err := defaultTranslator.Translate(v.Expr)
		if err != nil {
			return nil, fmt.Errorf("formula %s: variable %s: %w", f.Name, v.Name, err)
		}
		s.varExprs = append(s.varExprs, t)
	}
	for _, c := range f.Conditions {
		t, err := defaultTranslator.Translate(c.Expr)
		if err != nil {
			return nil, fmt.Errorf("formula %s: %s condition: %w", f.Name, c.Kind, err)
		}
		s.condExprs = append(s.condExprs, t)
	}
	return s, nil
}

// Name returns the formula name.
func (s *Strategy) Name() string { return s.formula.Name }

// Formula returns the parsed formula this strategy was generated from.
func (s *Strategy) Formula() *Formula { return s.formula }

// ParamValues returns the resolved parameter values.
func (s *Strategy) ParamValues() map[string]float64 {
	out := make(map[string]float64, len(s.params))
	for k, v := range s.params {
		out[k] = v
	}
	return out
}

// env builds the evaluation environment over the frame's columns and the
// resolved parameters.
func (s *Strategy) env(f *domain.Frame) *Env {
	series := make(map[string][]float64)
	for _, name := range f.Names() {
		c, _ := f.Col(name)
		series[name] = c
	}
	return &Env{N: f.Len(), Scalars: s.params, Series: series}
}

// CalculateIndicators computes each declared variable in declaration order
// and adds it as a column. Later variables may reference earlier ones as
// well as parameters and price columns.
func (s *Strategy) CalculateIndicators(f *domain.Frame) (*domain.Frame, error) {
	out := f.Clone()
	env := s.env(out)
	for i, v := range s.formula.Variables {
		val, err := Eval(s.varExprs[i], env)
		if err != nil {
			return nil, fmt.Errorf("formula %s: variable %s: %w", s.formula.Name, v.Name, err)
		}
		col := val.toSeries(out.Len())
		if err := out.SetCol(v.Name, col); err != nil {
			return nil, err
		}
		env.Series[v.Name] = col
	}
	return out, nil
}

// GenerateSignals derives the signal column from the first selection-kind
// condition; with no selection condition it falls back to the buy (+1) and
// sell (-1) conditions, and with no conditions at all the signal is all
// zeros. The position column is the signal's first difference with the
// first bar forced to zero.
func (s *Strategy) GenerateSignals(f *domain.Frame) (*domain.Frame, error) {
	out, err := s.CalculateIndicators(f)
	if err != nil {
		return nil, err
	}
	env := s.env(out)

	signal := make([]float64, out.Len())
	if expr, ok := s.conditionExpr(KindSelection); ok {
		if err := applyCondition(env, expr, signal, 1); err != nil {
			return nil, fmt.Errorf("formula %s: selection: %w", s.formula.Name, err)
		}
	} else {
		if expr, ok := s.conditionExpr(KindBuy); ok {
			if err := applyCondition(env, expr, signal, 1); err != nil {
				return nil, fmt.Errorf("formula %s: buy: %w", s.formula.Name, err)
			}
		}
		if expr, ok := s.conditionExpr(KindSell); ok {
			if err := applyCondition(env, expr, signal, -1); err != nil {
				return nil, fmt.Errorf("formula %s: sell: %w", s.formula.Name, err)
			}
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

// conditionExpr returns the translated expression of the first condition of
// the given kind.
func (s *Strategy) conditionExpr(kind ConditionKind) (string, bool) {
	for i, c := range s.formula.Conditions {
		if c.Kind == kind {
			return s.condExprs[i], true
		}
	}
	return "", false
}

// applyCondition evaluates expr and writes v into signal wherever the
// result is truthy (non-zero and non-NaN).
func applyCondition(env *Env, expr string, signal []float64, v float64) error {
	val, err := Eval(expr, env)
	if err != nil {
		return err
	}
	cond := val.toSeries(len(signal))
	for i, c := range cond {
		if !math.IsNaN(c) && c != 0 {
			signal[i] = v
		}
	}
	return nil
}
