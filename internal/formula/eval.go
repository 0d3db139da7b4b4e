package formula

import (
	"fmt"
	"math"
	"strconv"

	"tdxtools/internal/ta"
)

// Value is the result of evaluating an expression: either a scalar or a
// series aligned to the bar frame. Comparison and logical results are
// encoded as 1/0 with NaN where an operand was undefined.
type Value struct {
	Scalar   float64
	Series   []float64
	IsSeries bool
}

// scalarValue wraps a float64.
func scalarValue(v float64) Value { return Value{Scalar: v} }

// seriesValue wraps a series.
func seriesValue(s []float64) Value { return Value{Series: s, IsSeries: true} }

// toSeries broadcasts a scalar to length n, or returns the series as-is.
func (v Value) toSeries(n int) []float64 {
	if v.IsSeries {
		return v.Series
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = v.Scalar
	}
	return out
}

// Env supplies identifier bindings for evaluation: parameter scalars,
// previously computed variable values, and frame columns.
type Env struct {
	N       int // series length of the underlying frame
	Scalars map[string]float64
	Series  map[string][]float64
}

// Resolve looks up an identifier. Scalars shadow series of the same name.
func (e *Env) Resolve(name string) (Value, bool) {
	if v, ok := e.Scalars[name]; ok {
		return scalarValue(v), true
	}
	if s, ok := e.Series[name]; ok {
		return seriesValue(s), true
	}
	return Value{}, false
}

// Eval parses and evaluates a translated expression against the environment.
func Eval(expr string, env *Env) (Value, error) {
	toks, err := lex(expr)
	if err != nil {
		return Value{}, fmt.Errorf("evaluating %q: %w", expr, err)
	}
	p := &exprParser{toks: toks}
	node, err := p.parseExpr(0)
	if err != nil {
		return Value{}, fmt.Errorf("evaluating %q: %w", expr, err)
	}
	if p.pos != len(p.toks) {
		return Value{}, fmt.Errorf("evaluating %q: unexpected token %q", expr, p.toks[p.pos].text)
	}
	return node.eval(env)
}

// ---------------------------------------------------------------------------
// AST
// ---------------------------------------------------------------------------

type exprNode interface {
	eval(env *Env) (Value, error)
}

type numberNode struct{ value float64 }

type identNode struct{ name string }

type unaryNode struct {
	op string
	x  exprNode
}

type binaryNode struct {
	op   string
	l, r exprNode
}

type callNode struct {
	name string
	args []exprNode
}

// ---------------------------------------------------------------------------
// Pratt parser
// ---------------------------------------------------------------------------

type exprParser struct {
	toks []token
	pos  int
}

// binding powers, loosest first
func precedence(op string) int {
	switch op {
	case "||":
		return 1
	case "&&":
		return 2
	case "==", "!=", ">", "<", ">=", "<=":
		return 3
	case "+", "-":
		return 4
	case "*", "/":
		return 5
	}
	return 0
}

func (p *exprParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *exprParser) parseExpr(minPrec int) (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOp {
			return left, nil
		}
		prec := precedence(t.text)
		if prec == 0 || prec <= minPrec {
			return left, nil
		}
		p.pos++
		right, err := p.parseExpr(prec)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text, l: left, r: right}
	}
}

func (p *exprParser) parseUnary() (exprNode, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	if t.kind == tokOp && (t.text == "-" || t.text == "!") {
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: t.text, x: x}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (exprNode, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	switch t.kind {
	case tokNumber:
		p.pos++
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", t.text)
		}
		return &numberNode{value: v}, nil
	case tokLParen:
		p.pos++
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		p.pos++
		next, ok := p.peek()
		if !ok || next.kind != tokLParen {
			return &identNode{name: t.text}, nil
		}
		p.pos++ // consume '('
		call := &callNode{name: t.text}
		if nt, ok := p.peek(); ok && nt.kind == tokRParen {
			p.pos++
			return call, nil
		}
		for {
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			call.args = append(call.args, arg)
			nt, ok := p.peek()
			if !ok {
				return nil, fmt.Errorf("unterminated call to %s", t.text)
			}
			switch nt.kind {
			case tokComma:
				p.pos++
			case tokRParen:
				p.pos++
				return call, nil
			default:
				return nil, fmt.Errorf("unexpected token %q in call to %s", nt.text, t.text)
			}
		}
	}
	return nil, fmt.Errorf("unexpected token %q", t.text)
}

func (p *exprParser) expect(kind tokenKind) error {
	t, ok := p.peek()
	if !ok || t.kind != kind {
		return fmt.Errorf("expected closing parenthesis")
	}
	p.pos++
	return nil
}

// ---------------------------------------------------------------------------
// Evaluation
// ---------------------------------------------------------------------------

func (n *numberNode) eval(_ *Env) (Value, error) { return scalarValue(n.value), nil }

func (n *identNode) eval(env *Env) (Value, error) {
	v, ok := env.Resolve(n.name)
	if !ok {
		return Value{}, fmt.Errorf("unknown identifier %q", n.name)
	}
	return v, nil
}

func (n *unaryNode) eval(env *Env) (Value, error) {
	v, err := n.x.eval(env)
	if err != nil {
		return Value{}, err
	}
	apply := func(x float64) float64 {
		switch n.op {
		case "-":
			return -x
		default: // "!"
			if math.IsNaN(x) {
				return math.NaN()
			}
			if x == 0 {
				return 1
			}
			return 0
		}
	}
	if !v.IsSeries {
		return scalarValue(apply(v.Scalar)), nil
	}
	out := make([]float64, len(v.Series))
	for i, x := range v.Series {
		out[i] = apply(x)
	}
	return seriesValue(out), nil
}

func (n *binaryNode) eval(env *Env) (Value, error) {
	l, err := n.l.eval(env)
	if err != nil {
		return Value{}, err
	}
	r, err := n.r.eval(env)
	if err != nil {
		return Value{}, err
	}
	f, err := binaryFunc(n.op)
	if err != nil {
		return Value{}, err
	}
	if !l.IsSeries && !r.IsSeries {
		return scalarValue(f(l.Scalar, r.Scalar)), nil
	}
	ls := l.toSeries(env.N)
	rs := r.toSeries(env.N)
	if len(ls) != len(rs) {
		return Value{}, fmt.Errorf("series length mismatch: %d vs %d", len(ls), len(rs))
	}
	out := make([]float64, len(ls))
	for i := range ls {
		out[i] = f(ls[i], rs[i])
	}
	return seriesValue(out), nil
}

func binaryFunc(op string) (func(a, b float64) float64, error) {
	bool2f := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}
	cmp := func(f func(a, b float64) bool) func(a, b float64) float64 {
		return func(a, b float64) float64 {
			if math.IsNaN(a) || math.IsNaN(b) {
				return math.NaN()
			}
			return bool2f(f(a, b))
		}
	}
	switch op {
	case "+":
		return func(a, b float64) float64 { return a + b }, nil
	case "-":
		return func(a, b float64) float64 { return a - b }, nil
	case "*":
		return func(a, b float64) float64 { return a * b }, nil
	case "/":
		return func(a, b float64) float64 { return a / b }, nil
	case ">":
		return cmp(func(a, b float64) bool { return a > b }), nil
	case "<":
		return cmp(func(a, b float64) bool { return a < b }), nil
	case ">=":
		return cmp(func(a, b float64) bool { return a >= b }), nil
	case "<=":
		return cmp(func(a, b float64) bool { return a <= b }), nil
	case "==":
		return cmp(func(a, b float64) bool { return a == b }), nil
	case "!=":
		return cmp(func(a, b float64) bool { return a != b }), nil
	case "&&":
		return cmp(func(a, b float64) bool { return a != 0 && b != 0 }), nil
	case "||":
		return cmp(func(a, b float64) bool { return a != 0 || b != 0 }), nil
	}
	return nil, fmt.Errorf("unsupported operator %q", op)
}

func (n *callNode) eval(env *Env) (Value, error) {
	fn, ok := builtins[n.name]
	if !ok {
		return Value{}, fmt.Errorf("unknown function %q", n.name)
	}
	args := make([]Value, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(env)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return Value{}, fmt.Errorf("%s: got %d arguments, want %d..%d", n.name, len(args), fn.minArgs, fn.maxArgs)
	}
	out, err := fn.impl(args, env.N)
	if err != nil {
		return Value{}, fmt.Errorf("%s: %w", n.name, err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin function registry (the translated runtime vocabulary)
// ---------------------------------------------------------------------------

type builtin struct {
	minArgs int
	maxArgs int // -1 for unbounded
	impl    func(args []Value, n int) (Value, error)
}

func argInt(v Value, def int) (int, error) {
	if v.IsSeries {
		return 0, fmt.Errorf("expected a scalar period, got a series")
	}
	if math.IsNaN(v.Scalar) {
		return def, nil
	}
	return int(v.Scalar), nil
}

// series1 adapts a one-series ta function.
func series1(f func([]float64) []float64) builtin {
	return builtin{1, 1, func(args []Value, n int) (Value, error) {
		return seriesValue(f(args[0].toSeries(n))), nil
	}}
}

// series2 adapts a two-series elementwise ta function.
func series2(f func(a, b []float64) []float64) builtin {
	return builtin{2, 2, func(args []Value, n int) (Value, error) {
		return seriesValue(f(args[0].toSeries(n), args[1].toSeries(n))), nil
	}}
}

// windowed adapts a (series, period) ta function.
func windowed(f func([]float64, int) []float64) builtin {
	return builtin{2, 2, func(args []Value, n int) (Value, error) {
		period, err := argInt(args[1], 0)
		if err != nil {
			return Value{}, err
		}
		return seriesValue(f(args[0].toSeries(n), period)), nil
	}}
}

var builtins = map[string]builtin{
	"Abs":   series1(ta.Abs),
	"Sqrt":  series1(ta.Sqrt),
	"Ln":    series1(ta.Ln),
	"Log10": series1(ta.Log10),
	"Exp":   series1(ta.Exp),
	"Max":   series2(ta.Max),
	"Min":   series2(ta.Min),
	"Pow":   series2(ta.Pow),

	"Ma":      windowed(ta.Ma),
	"Ema":     windowed(ta.Ema),
	"Highest": windowed(ta.Highest),
	"Lowest":  windowed(ta.Lowest),
	"Sum":     windowed(ta.Sum),
	"Count":   windowed(ta.Count),
	"Ref":     windowed(ta.Ref),
	"Rsi":     windowed(ta.Rsi),

	"Sma": {3, 3, func(args []Value, n int) (Value, error) {
		period, err := argInt(args[1], 0)
		if err != nil {
			return Value{}, err
		}
		weight, err := argInt(args[2], 1)
		if err != nil {
			return Value{}, err
		}
		return seriesValue(ta.Sma(args[0].toSeries(n), period, weight)), nil
	}},

	"Cross": series2(ta.Cross),

	"Where": {3, 3, func(args []Value, n int) (Value, error) {
		return seriesValue(ta.Where(args[0].toSeries(n), args[1].toSeries(n), args[2].toSeries(n))), nil
	}},

	"BarsLast":  series1(ta.BarsLast),
	"BarsCount": series1(ta.BarsCount),

	"Macd": {1, 4, func(args []Value, n int) (Value, error) {
		fast, slow, signal := 12, 26, 9
		var err error
		if len(args) > 1 {
			if fast, err = argInt(args[1], fast); err != nil {
				return Value{}, err
			}
		}
		if len(args) > 2 {
			if slow, err = argInt(args[2], slow); err != nil {
				return Value{}, err
			}
		}
		if len(args) > 3 {
			if signal, err = argInt(args[3], signal); err != nil {
				return Value{}, err
			}
		}
		return seriesValue(ta.Macd(args[0].toSeries(n), fast, slow, signal)), nil
	}},

	"BBands": {2, 3, func(args []Value, n int) (Value, error) {
		period, err := argInt(args[1], 20)
		if err != nil {
			return Value{}, err
		}
		dev := 2.0
		if len(args) > 2 {
			if args[2].IsSeries {
				return Value{}, fmt.Errorf("expected a scalar deviation, got a series")
			}
			dev = args[2].Scalar
		}
		return seriesValue(ta.BBands(args[0].toSeries(n), period, dev)), nil
	}},

	"Cci": {4, 4, func(args []Value, n int) (Value, error) {
		period, err := argInt(args[3], 14)
		if err != nil {
			return Value{}, err
		}
		return seriesValue(ta.Cci(args[0].toSeries(n), args[1].toSeries(n), args[2].toSeries(n), period)), nil
	}},

	"WillR": {4, 4, func(args []Value, n int) (Value, error) {
		period, err := argInt(args[3], 14)
		if err != nil {
			return Value{}, err
		}
		return seriesValue(ta.WillR(args[0].toSeries(n), args[1].toSeries(n), args[2].toSeries(n), period)), nil
	}},

	"Stoch": {3, 6, func(args []Value, n int) (Value, error) {
		fastK, slowK, slowD := 9, 3, 3
		var err error
		if len(args) > 3 {
			if fastK, err = argInt(args[3], fastK); err != nil {
				return Value{}, err
			}
		}
		if len(args) > 4 {
			if slowK, err = argInt(args[4], slowK); err != nil {
				return Value{}, err
			}
		}
		if len(args) > 5 {
			if slowD, err = argInt(args[5], slowD); err != nil {
				return Value{}, err
			}
		}
		return seriesValue(ta.Stoch(args[0].toSeries(n), args[1].toSeries(n), args[2].toSeries(n), fastK, slowK, slowD)), nil
	}},
}
