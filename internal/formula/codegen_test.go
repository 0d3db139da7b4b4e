package formula

import (
	"strings"
	"testing"
)

func TestGenerateSource(t *testing.T) {
	f := Parse(sampleFormula)
	gen := NewGenerator(NewTranslator(DefaultTable()))

	code, err := gen.GenerateSource(f, "strategies")
	if err != nil {
		t.Fatalf("GenerateSource: %v", err)
	}
	src := string(code)

	for _, want := range []string{
		"// Code generated by tdx-translate",
		"package strategies",
		"type 金叉策略Params struct {",
		"N1 float64 // default 5, range 1..100",
		"N2 float64 // default 20, range 1..250",
		"func New金叉策略(p 金叉策略Params) (*formula.Strategy, error)",
		`overrides["N1"] = p.N1`,
		"buy: Cross(MA1, MA2)",
		"sell: Cross(MA2, MA1)",
		"const 金叉策略Source = `",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("generated source missing %q\n%s", want, src)
		}
	}
}

func TestGenerateSourceRoundTrip(t *testing.T) {
	f := Parse(sampleFormula)
	gen := NewGenerator(NewTranslator(DefaultTable()))

	code, err := gen.GenerateSource(f, "strategies")
	if err != nil {
		t.Fatalf("GenerateSource: %v", err)
	}

	// The embedded source literal must reparse to the same formula shape.
	src := string(code)
	open := strings.Index(src, "Source = `")
	if open < 0 {
		t.Fatal("no raw source literal emitted")
	}
	open += len("Source = `")
	close := strings.Index(src[open:], "`")
	if close < 0 {
		t.Fatal("unterminated raw source literal")
	}

	f2 := Parse(src[open : open+close])
	if f2.Name != f.Name {
		t.Errorf("reparsed Name = %q, want %q", f2.Name, f.Name)
	}
	if len(f2.Params) != len(f.Params) {
		t.Errorf("reparsed %d params, want %d", len(f2.Params), len(f.Params))
	}
	if len(f2.Conditions) != len(f.Conditions) {
		t.Errorf("reparsed %d conditions, want %d", len(f2.Conditions), len(f.Conditions))
	}
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ma_cross", "Ma_cross"},
		{"金叉策略", "金叉策略"},
		{"5days", "Formula5days"},
		{"a-b", "A_b"},
		{"", "Formula"},
	}
	for _, tt := range tests {
		if got := identifier(tt.in); got != tt.want {
			t.Errorf("identifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuoteSource(t *testing.T) {
	if got := quoteSource("A:=1;"); got != "`A:=1;`" {
		t.Errorf("quoteSource = %q", got)
	}
	if got := quoteSource("has ` tick"); !strings.HasPrefix(got, `"`) {
		t.Errorf("backquoted text should fall back to an interpreted literal: %q", got)
	}
}
