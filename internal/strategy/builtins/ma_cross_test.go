package builtins

import (
	"math"
	"testing"
	"time"

	"tdxtools/internal/domain"
)

func frameFromCloses(t *testing.T, closes []float64) *domain.Frame {
	t.Helper()
	bars := make([]domain.Bar, len(closes))
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol: "TEST",
			Date:   date,
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
		date = date.AddDate(0, 0, 1)
	}
	f, err := domain.FrameFromBars(bars)
	if err != nil {
		t.Fatalf("FrameFromBars: %v", err)
	}
	return f
}

func TestName(t *testing.T) {
	s := NewMovingAverageCrossover(5, 20)
	if s.Name() != "ma-cross-5-20" {
		t.Errorf("Name() = %q", s.Name())
	}
}

func TestCalculateIndicators(t *testing.T) {
	s := NewMovingAverageCrossover(2, 4)
	f := frameFromCloses(t, []float64{1, 2, 3, 4, 5, 6})

	out, err := s.CalculateIndicators(f)
	if err != nil {
		t.Fatalf("CalculateIndicators: %v", err)
	}

	short, ok := out.Col(ColMAShort)
	if !ok {
		t.Fatal("ma_short column missing")
	}
	long, ok := out.Col(ColMALong)
	if !ok {
		t.Fatal("ma_long column missing")
	}

	if !math.IsNaN(short[0]) {
		t.Error("short[0] should be NaN inside the warm-up window")
	}
	if short[1] != 1.5 {
		t.Errorf("short[1] = %v, want 1.5", short[1])
	}
	if !math.IsNaN(long[2]) {
		t.Error("long[2] should be NaN inside the warm-up window")
	}
	if long[3] != 2.5 {
		t.Errorf("long[3] = %v, want 2.5", long[3])
	}
}

func TestCalculateIndicatorsIdempotent(t *testing.T) {
	s := NewMovingAverageCrossover(2, 4)
	f := frameFromCloses(t, []float64{1, 2, 3, 4, 5, 6, 7, 8})

	first, err := s.CalculateIndicators(f)
	if err != nil {
		t.Fatalf("CalculateIndicators: %v", err)
	}
	second, err := s.CalculateIndicators(f)
	if err != nil {
		t.Fatalf("CalculateIndicators again: %v", err)
	}

	for _, name := range first.Names() {
		a, _ := first.Col(name)
		b, ok := second.Col(name)
		if !ok {
			t.Fatalf("column %s missing on second run", name)
		}
		for i := range a {
			same := a[i] == b[i] || (math.IsNaN(a[i]) && math.IsNaN(b[i]))
			if !same {
				t.Errorf("%s[%d] = %v then %v, want identical runs", name, i, a[i], b[i])
			}
		}
	}
}

func TestCalculateIndicatorsNoClose(t *testing.T) {
	s := NewMovingAverageCrossover(2, 4)
	f := domain.NewFrame([]time.Time{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	if _, err := s.CalculateIndicators(f); err == nil {
		t.Error("frame without a close column should error")
	}
}

func TestGenerateSignals(t *testing.T) {
	s := NewMovingAverageCrossover(2, 4)
	// Rising closes: once both windows fill the short average leads.
	f := frameFromCloses(t, []float64{1, 2, 3, 4, 5, 6, 7, 8})

	out, err := s.GenerateSignals(f)
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	signal, _ := out.Col(domain.ColSignal)
	position, _ := out.Col(domain.ColPosition)

	for i := 0; i < 3; i++ {
		if signal[i] != 0 {
			t.Errorf("signal[%d] = %v, want 0 during warm-up", i, signal[i])
		}
	}
	for i := 3; i < len(signal); i++ {
		if signal[i] != 1 {
			t.Errorf("signal[%d] = %v, want 1", i, signal[i])
		}
	}

	if position[3] != 1 {
		t.Errorf("position[3] = %v, want 1 at the transition", position[3])
	}
	if position[4] != 0 {
		t.Errorf("position[4] = %v, want 0 while holding", position[4])
	}
}

func TestGenerateSignalsTieResolvesShort(t *testing.T) {
	s := NewMovingAverageCrossover(2, 4)
	// A flat series keeps both averages equal once the windows fill.
	f := frameFromCloses(t, []float64{5, 5, 5, 5, 5, 5})

	out, err := s.GenerateSignals(f)
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	signal, _ := out.Col(domain.ColSignal)
	if signal[4] != -1 {
		t.Errorf("signal[4] = %v, want -1 on an exact tie", signal[4])
	}
}
