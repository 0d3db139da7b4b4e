package domain

import (
	"fmt"
	"math"
	"time"
)

// Price and volume column names present in every Frame built from bars.
const (
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
	ColAmount = "amount"
)

// Signal column names added by strategies.
const (
	ColSignal   = "signal"
	ColPosition = "position"
)

// Frame is a date-indexed table of float64 columns. Rows are trading days in
// strictly ascending order; columns are price fields, computed indicators,
// and signal series. Missing or warm-up values are NaN.
type Frame struct {
	dates []time.Time
	names []string // column insertion order
	cols  map[string][]float64

	rowIndex map[time.Time]int // lazy date → row lookup
}

// NewFrame creates an empty frame over the given dates.
func NewFrame(dates []time.Time) *Frame {
	ds := make([]time.Time, len(dates))
	for i, d := range dates {
		ds[i] = Day(d)
	}
	return &Frame{
		dates: ds,
		cols:  make(map[string][]float64),
	}
}

// FrameFromBars builds a frame with the standard price/volume columns from a
// single-symbol bar series. The series must pass ValidateBars.
func FrameFromBars(bars []Bar) (*Frame, error) {
	if err := ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("building frame: %w", err)
	}
	dates := make([]time.Time, len(bars))
	open := make([]float64, len(bars))
	high := make([]float64, len(bars))
	low := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	volume := make([]float64, len(bars))
	amount := make([]float64, len(bars))
	for i, b := range bars {
		dates[i] = Day(b.Date)
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
		volume[i] = float64(b.Volume)
		amount[i] = b.Amount
	}
	f := NewFrame(dates)
	for _, c := range []struct {
		name string
		vals []float64
	}{
		{ColOpen, open}, {ColHigh, high}, {ColLow, low},
		{ColClose, closes}, {ColVolume, volume}, {ColAmount, amount},
	} {
		if err := f.SetCol(c.name, c.vals); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.dates) }

// Dates returns the row dates. Callers must not modify the returned slice.
func (f *Frame) Dates() []time.Time { return f.dates }

// Date returns the date of row i.
func (f *Frame) Date(i int) time.Time { return f.dates[i] }

// Names returns the column names in insertion order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Col returns the named column. The second return value reports whether the
// column exists. Callers must not modify the returned slice.
func (f *Frame) Col(name string) ([]float64, bool) {
	c, ok := f.cols[name]
	return c, ok
}

// SetCol adds or replaces a column. The values slice must match the frame
// length; it is copied, so the caller keeps ownership of its slice.
func (f *Frame) SetCol(name string, vals []float64) error {
	if len(vals) != len(f.dates) {
		return fmt.Errorf("column %s: length %d does not match frame length %d", name, len(vals), len(f.dates))
	}
	if _, exists := f.cols[name]; !exists {
		f.names = append(f.names, name)
	}
	c := make([]float64, len(vals))
	copy(c, vals)
	f.cols[name] = c
	return nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := NewFrame(f.dates)
	for _, name := range f.names {
		out.SetCol(name, f.cols[name])
	}
	return out
}

// Row returns the row index for a date, if present. The lookup map is built
// on first use; row dates never change after construction.
func (f *Frame) Row(date time.Time) (int, bool) {
	if f.rowIndex == nil {
		f.rowIndex = make(map[time.Time]int, len(f.dates))
		for i, d := range f.dates {
			f.rowIndex[d] = i
		}
	}
	i, ok := f.rowIndex[Day(date)]
	return i, ok
}

// At returns the value of the named column at row i, or NaN when the column
// does not exist.
func (f *Frame) At(name string, i int) float64 {
	c, ok := f.cols[name]
	if !ok {
		return math.NaN()
	}
	return c[i]
}
