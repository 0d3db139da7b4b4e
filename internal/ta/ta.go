// Package ta provides the vector primitives behind the formula runtime.
// Every function operates on equal-length []float64 series aligned to a bar
// series; positions that cannot be computed yet (indicator warm-up, shifted
// references) are NaN. Rolling and oscillator computations are delegated to
// go-talib; primitives with TDX-specific semantics (weighted SMA, REF,
// CROSS, COUNT, BARSLAST) have no talib counterpart and are implemented
// directly.
package ta

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// nans returns a series of n NaN values.
func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// firstValid returns the index of the first non-NaN value, or -1.
func firstValid(x []float64) int {
	for i, v := range x {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

// wrap1 trims leading NaNs from x, applies fn to the clean tail, and pads
// the result so that the first `lookback` computed positions are NaN. This
// keeps talib (which neither accepts NaN inputs nor NaN-pads its warm-up)
// usable on chained expressions like MA(REF(CLOSE,1),5).
func wrap1(x []float64, lookback int, fn func([]float64) []float64) []float64 {
	out := nans(len(x))
	s := firstValid(x)
	if s < 0 {
		return out
	}
	clean := x[s:]
	if len(clean) <= lookback {
		return out
	}
	r := fn(clean)
	copy(out[s+lookback:], r[lookback:])
	return out
}

// Ma is the simple moving average over n bars.
func Ma(x []float64, n int) []float64 {
	if n < 1 {
		return nans(len(x))
	}
	return wrap1(x, n-1, func(clean []float64) []float64 { return talib.Sma(clean, n) })
}

// Ema is the exponential moving average over n bars, seeded with the simple
// average of the first n values.
func Ema(x []float64, n int) []float64 {
	if n < 1 {
		return nans(len(x))
	}
	return wrap1(x, n-1, func(clean []float64) []float64 { return talib.Ema(clean, n) })
}

// Sma is the TDX weighted moving average: Y = (X*M + Y'*(N-M)) / N, seeded
// with the first valid value of X. Requires 0 < m <= n.
func Sma(x []float64, n, m int) []float64 {
	out := nans(len(x))
	if n < 1 || m < 1 || m > n {
		return out
	}
	s := firstValid(x)
	if s < 0 {
		return out
	}
	prev := x[s]
	out[s] = prev
	for i := s + 1; i < len(x); i++ {
		if math.IsNaN(x[i]) {
			continue
		}
		prev = (x[i]*float64(m) + prev*float64(n-m)) / float64(n)
		out[i] = prev
	}
	return out
}

// Highest is the rolling maximum over n bars (TDX HHV).
func Highest(x []float64, n int) []float64 {
	if n < 1 {
		return nans(len(x))
	}
	return wrap1(x, n-1, func(clean []float64) []float64 { return talib.Max(clean, n) })
}

// Lowest is the rolling minimum over n bars (TDX LLV).
func Lowest(x []float64, n int) []float64 {
	if n < 1 {
		return nans(len(x))
	}
	return wrap1(x, n-1, func(clean []float64) []float64 { return talib.Min(clean, n) })
}

// Sum is the rolling sum over n bars.
func Sum(x []float64, n int) []float64 {
	if n < 1 {
		return nans(len(x))
	}
	return wrap1(x, n-1, func(clean []float64) []float64 { return talib.Sum(clean, n) })
}

// Count returns, per bar, how many of the last n bars satisfy cond (non-zero
// and non-NaN).
func Count(cond []float64, n int) []float64 {
	out := nans(len(cond))
	if n < 1 {
		return out
	}
	truth := make([]float64, len(cond))
	for i, v := range cond {
		if !math.IsNaN(v) && v != 0 {
			truth[i] = 1
		}
	}
	running := 0.0
	for i := range truth {
		running += truth[i]
		if i >= n {
			running -= truth[i-n]
		}
		if i >= n-1 {
			out[i] = running
		}
	}
	return out
}

// Ref shifts x back by n bars: out[i] = x[i-n] (TDX REF). The first n
// positions are NaN.
func Ref(x []float64, n int) []float64 {
	if n <= 0 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	out := nans(len(x))
	for i := n; i < len(x); i++ {
		out[i] = x[i-n]
	}
	return out
}

// Cross reports where a crosses above b: out[i] is 1 only when a[i] > b[i]
// and a[i-1] <= b[i-1], with all four values defined. The first bar is
// always 0.
func Cross(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := 1; i < len(a); i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) || math.IsNaN(a[i-1]) || math.IsNaN(b[i-1]) {
			continue
		}
		if a[i] > b[i] && a[i-1] <= b[i-1] {
			out[i] = 1
		}
	}
	return out
}

// Where selects a[i] where cond[i] is truthy and b[i] otherwise (TDX IF).
// A NaN condition yields NaN.
func Where(cond, a, b []float64) []float64 {
	out := make([]float64, len(cond))
	for i, c := range cond {
		switch {
		case math.IsNaN(c):
			out[i] = math.NaN()
		case c != 0:
			out[i] = a[i]
		default:
			out[i] = b[i]
		}
	}
	return out
}

// BarsLast returns the number of bars since cond was last truthy, 0 on the
// bar where it holds, NaN before the first occurrence.
func BarsLast(cond []float64) []float64 {
	out := nans(len(cond))
	last := -1
	for i, v := range cond {
		if !math.IsNaN(v) && v != 0 {
			last = i
		}
		if last >= 0 {
			out[i] = float64(i - last)
		}
	}
	return out
}

// BarsCount returns the number of valid (non-NaN) bars of x up to and
// including each position.
func BarsCount(x []float64) []float64 {
	out := make([]float64, len(x))
	n := 0.0
	for i, v := range x {
		if !math.IsNaN(v) {
			n++
		}
		out[i] = n
	}
	return out
}

// Rsi is the relative strength index over n bars.
func Rsi(x []float64, n int) []float64 {
	if n < 1 {
		return nans(len(x))
	}
	return wrap1(x, n, func(clean []float64) []float64 { return talib.Rsi(clean, n) })
}

// Macd returns the MACD line (fast EMA minus slow EMA). Defaults when called
// through the formula runtime are 12/26/9.
func Macd(x []float64, fast, slow, signal int) []float64 {
	lookback := slow + signal - 2
	if fast < 1 || slow < 1 || signal < 1 || len(x) <= lookback {
		return nans(len(x))
	}
	return wrap1(x, lookback, func(clean []float64) []float64 {
		macd, _, _ := talib.Macd(clean, fast, slow, signal)
		return macd
	})
}

// BBands returns the middle Bollinger band (n-bar SMA); width is dev
// standard deviations. TDX BOLL refers to the middle band.
func BBands(x []float64, n int, dev float64) []float64 {
	if n < 1 {
		return nans(len(x))
	}
	return wrap1(x, n-1, func(clean []float64) []float64 {
		_, middle, _ := talib.BBands(clean, n, dev, dev, talib.SMA)
		return middle
	})
}

// Cci is the commodity channel index over n bars.
func Cci(high, low, closes []float64, n int) []float64 {
	if n < 1 || len(high) < n {
		return nans(len(high))
	}
	out := talib.Cci(high, low, closes, n)
	for i := 0; i < n-1 && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

// WillR is Williams %R over n bars.
func WillR(high, low, closes []float64, n int) []float64 {
	if n < 1 || len(high) < n {
		return nans(len(high))
	}
	out := talib.WillR(high, low, closes, n)
	for i := 0; i < n-1 && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

// Stoch returns the slow %K line of the stochastic oscillator (TDX KDJ K).
// Defaults when called through the formula runtime are 9/3/3.
func Stoch(high, low, closes []float64, fastK, slowK, slowD int) []float64 {
	lookback := fastK + slowK + slowD - 3
	if fastK < 1 || slowK < 1 || slowD < 1 || len(high) <= lookback {
		return nans(len(high))
	}
	k, _ := talib.Stoch(high, low, closes, fastK, slowK, talib.SMA, slowD, talib.SMA)
	for i := 0; i < lookback && i < len(k); i++ {
		k[i] = math.NaN()
	}
	return k
}

// ---------------------------------------------------------------------------
// Elementwise math
// ---------------------------------------------------------------------------

func unary(x []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = f(v)
	}
	return out
}

func binary(a, b []float64, f func(float64, float64) float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = f(a[i], b[i])
	}
	return out
}

// Abs is the elementwise absolute value.
func Abs(x []float64) []float64 { return unary(x, math.Abs) }

// Sqrt is the elementwise square root.
func Sqrt(x []float64) []float64 { return unary(x, math.Sqrt) }

// Ln is the elementwise natural logarithm.
func Ln(x []float64) []float64 { return unary(x, math.Log) }

// Log10 is the elementwise base-10 logarithm (TDX LOG).
func Log10(x []float64) []float64 { return unary(x, math.Log10) }

// Exp is the elementwise exponential.
func Exp(x []float64) []float64 { return unary(x, math.Exp) }

// Pow raises a to the b-th power elementwise.
func Pow(a, b []float64) []float64 { return binary(a, b, math.Pow) }

// Max is the elementwise maximum of two series (TDX MAX).
func Max(a, b []float64) []float64 { return binary(a, b, math.Max) }

// Min is the elementwise minimum of two series (TDX MIN).
func Min(a, b []float64) []float64 { return binary(a, b, math.Min) }
