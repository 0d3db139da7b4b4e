// Package formula implements the TDX screening-formula pipeline: parsing
// formula text into an intermediate representation, translating DSL
// expressions into the runtime vocabulary, evaluating them over bar frames,
// and generating ready-to-run strategy units.
package formula

import "math"

// ConditionKind classifies a formula output statement.
type ConditionKind string

const (
	KindSelection ConditionKind = "selection" // 选股
	KindBuy       ConditionKind = "buy"       // 买入
	KindSell      ConditionKind = "sell"      // 卖出
)

// Param is one declared formula parameter, e.g. N1(5,1,100).
type Param struct {
	Name    string
	Default float64  // NaN when the raw default text is not numeric
	Raw     string   // default value exactly as written
	Min     *float64 // nil when the source omits or malforms the bound
	Max     *float64
}

// HasDefault reports whether the parameter's default parsed as a number.
func (p Param) HasDefault() bool { return !math.IsNaN(p.Default) }

// Variable is one intermediate assignment, e.g. MA5:=MA(CLOSE,N1).
type Variable struct {
	Name string
	Expr string
}

// Condition is one output statement, e.g. 选股:金叉.
type Condition struct {
	Kind ConditionKind
	Expr string
}

// Diagnostic records a statement the parser could not classify. Parsing is
// best-effort and never fails as a whole; diagnostics make the dropped
// input observable.
type Diagnostic struct {
	Stmt string
	Msg  string
}

// Formula is the parsed, immutable representation of one formula.
type Formula struct {
	Name        string // "unnamed" when the source carries no 公式名称 line
	Description string
	Params      []Param
	Variables   []Variable // declaration order
	Conditions  []Condition
	Diagnostics []Diagnostic
	Source      string // original formula text
}

// Param looks up a declared parameter by name.
func (f *Formula) Param(name string) (Param, bool) {
	for _, p := range f.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}
