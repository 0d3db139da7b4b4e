package strategy

import (
	"testing"

	"tdxtools/internal/domain"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name   string
		signal []float64
		want   []float64
	}{
		{"empty", nil, nil},
		{"single", []float64{1}, []float64{0}},
		{"hold then flip", []float64{0, 0, 1, 1, -1}, []float64{0, 0, 1, 0, -2}},
		{"first bar no transition", []float64{1, 1}, []float64{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.signal)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Diff[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

type fakeStrategy struct{ name string }

func (s *fakeStrategy) Name() string { return s.name }
func (s *fakeStrategy) CalculateIndicators(f *domain.Frame) (*domain.Frame, error) {
	return f, nil
}
func (s *fakeStrategy) GenerateSignals(f *domain.Frame) (*domain.Frame, error) {
	return f, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeStrategy{name: "beta"})
	r.Register(&fakeStrategy{name: "alpha"})

	if _, ok := r.Get("alpha"); !ok {
		t.Error("Get(alpha) not found")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) should report false")
	}

	names := r.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List() = %v, want [alpha beta]", names)
	}
}

func TestRegistryReplaceSameName(t *testing.T) {
	r := NewRegistry()
	first := &fakeStrategy{name: "dup"}
	second := &fakeStrategy{name: "dup"}
	r.Register(first)
	r.Register(second)

	got, _ := r.Get("dup")
	if got != Strategy(second) {
		t.Error("re-registering a name should replace the entry")
	}
	if len(r.List()) != 1 {
		t.Errorf("List() = %v, want one entry", r.List())
	}
}
