package formula

import (
	"math"
	"testing"
	"time"

	"tdxtools/internal/domain"
)

func risingFrame(t *testing.T, n int) *domain.Frame {
	t.Helper()
	bars := make([]domain.Bar, n)
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 10.0
	for i := range bars {
		bars[i] = domain.Bar{
			Symbol: "600000",
			Date:   date,
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price * 1.005,
			Volume: 1000000,
			Amount: price * 1000000,
		}
		price *= 1.01
		date = date.AddDate(0, 0, 1)
	}
	f, err := domain.FrameFromBars(bars)
	if err != nil {
		t.Fatalf("FrameFromBars: %v", err)
	}
	return f
}

func TestNewStrategyResolvesParams(t *testing.T) {
	f := Parse(sampleFormula)

	s, err := NewStrategy(f, map[string]float64{"N1": 3})
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}
	params := s.ParamValues()
	if params["N1"] != 3 {
		t.Errorf("N1 = %v, want override 3", params["N1"])
	}
	if params["N2"] != 20 {
		t.Errorf("N2 = %v, want default 20", params["N2"])
	}
}

func TestNewStrategyUndeclaredOverride(t *testing.T) {
	f := Parse(sampleFormula)
	if _, err := NewStrategy(f, map[string]float64{"NOPE": 1}); err == nil {
		t.Error("override for undeclared parameter should error")
	}
}

func TestNewStrategyNonNumericDefault(t *testing.T) {
	f := Parse("参数: X(abc,1,10)\n选股: CLOSE>0;")

	if _, err := NewStrategy(f, nil); err == nil {
		t.Error("unoverridden non-numeric default should error")
	}
	if _, err := NewStrategy(f, map[string]float64{"X": 5}); err != nil {
		t.Errorf("override should satisfy non-numeric default: %v", err)
	}
}

func TestStrategyCalculateIndicators(t *testing.T) {
	f := Parse("MA1:=MA(CLOSE,3);\n选股: CLOSE>MA1;")
	s, err := NewStrategy(f, nil)
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	frame := risingFrame(t, 10)
	out, err := s.CalculateIndicators(frame)
	if err != nil {
		t.Fatalf("CalculateIndicators: %v", err)
	}

	ma1, ok := out.Col("MA1")
	if !ok {
		t.Fatal("MA1 column missing")
	}
	if !math.IsNaN(ma1[0]) || !math.IsNaN(ma1[1]) {
		t.Error("MA1 warm-up bars should be NaN")
	}
	if math.IsNaN(ma1[2]) {
		t.Error("MA1[2] should be computed")
	}

	// The input frame is untouched.
	if _, ok := frame.Col("MA1"); ok {
		t.Error("CalculateIndicators mutated its input")
	}
}

func TestStrategyIndicatorsIdempotent(t *testing.T) {
	f := Parse("MA1:=MA(CLOSE,3);\nMA2:=MA(CLOSE,5);\n选股: MA1>MA2;")
	s, err := NewStrategy(f, nil)
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	frame := risingFrame(t, 12)
	first, err := s.CalculateIndicators(frame)
	if err != nil {
		t.Fatalf("CalculateIndicators: %v", err)
	}
	second, err := s.CalculateIndicators(frame)
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

func TestStrategyVariableChaining(t *testing.T) {
	f := Parse("A:=MA(CLOSE,2);\nB:=MA(A,2);\n选股: CLOSE>B;")
	s, err := NewStrategy(f, nil)
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	out, err := s.CalculateIndicators(risingFrame(t, 8))
	if err != nil {
		t.Fatalf("CalculateIndicators: %v", err)
	}
	b, ok := out.Col("B")
	if !ok {
		t.Fatal("B column missing")
	}
	// B's warm-up stacks on A's: first defined value is at index 2.
	if !math.IsNaN(b[1]) {
		t.Errorf("B[1] = %v, want NaN", b[1])
	}
	if math.IsNaN(b[2]) {
		t.Error("B[2] should be computed")
	}
}

func TestStrategySelectionSignal(t *testing.T) {
	// A monotonically rising close is always above its moving average once
	// the window fills.
	f := Parse("MA1:=MA(CLOSE,3);\n选股: CLOSE>MA1;")
	s, err := NewStrategy(f, nil)
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	out, err := s.GenerateSignals(risingFrame(t, 10))
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	signal, ok := out.Col(domain.ColSignal)
	if !ok {
		t.Fatal("signal column missing")
	}
	if signal[0] != 0 || signal[1] != 0 {
		t.Error("warm-up bars should carry signal 0")
	}
	for i := 2; i < len(signal); i++ {
		if signal[i] != 1 {
			t.Errorf("signal[%d] = %v, want 1", i, signal[i])
		}
	}

	position, _ := out.Col(domain.ColPosition)
	if position[0] != 0 {
		t.Errorf("position[0] = %v, want 0", position[0])
	}
	if position[2] != 1 {
		t.Errorf("position[2] = %v, want 1 at the 0 to +1 transition", position[2])
	}
}

func TestStrategyBuySellSignals(t *testing.T) {
	f := Parse("MA1:=MA(CLOSE,2);\nMA2:=MA(CLOSE,4);\n买入: CROSS(MA1,MA2);\n卖出: CROSS(MA2,MA1);")
	s, err := NewStrategy(f, nil)
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	out, err := s.GenerateSignals(risingFrame(t, 12))
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	signal, _ := out.Col(domain.ColSignal)
	for i, v := range signal {
		if v != 0 && v != 1 && v != -1 {
			t.Errorf("signal[%d] = %v, want -1, 0, or 1", i, v)
		}
	}
}

func TestStrategyNoConditions(t *testing.T) {
	f := Parse("MA1:=MA(CLOSE,3);")
	s, err := NewStrategy(f, nil)
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	out, err := s.GenerateSignals(risingFrame(t, 6))
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	signal, ok := out.Col(domain.ColSignal)
	if !ok {
		t.Fatal("signal column missing")
	}
	for i, v := range signal {
		if v != 0 {
			t.Errorf("signal[%d] = %v, want 0 with no output conditions", i, v)
		}
	}
}

func TestStrategyName(t *testing.T) {
	f := Parse(sampleFormula)
	s, err := NewStrategy(f, nil)
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}
	if s.Name() != "金叉策略" {
		t.Errorf("Name() = %q", s.Name())
	}
}
