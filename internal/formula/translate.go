package formula

import (
	"fmt"
	"strings"
)

// Table maps the TDX vocabulary to the runtime vocabulary. It is built once
// at startup and shared read-only between translators; nothing mutates it
// after construction.
type Table struct {
	idents map[string]string // whole-identifier substitutions
	ops    map[string]string // operator substitutions
}

// DefaultTable returns the fixed TDX → runtime mapping.
func DefaultTable() *Table {
	return &Table{
		idents: map[string]string{
			// Math primitives.
			"ABS":  "Abs",
			"MAX":  "Max",
			"MIN":  "Min",
			"POW":  "Pow",
			"SQRT": "Sqrt",
			"LN":   "Ln",
			"LOG":  "Log10",
			"EXP":  "Exp",

			// Rolling-window statistics.
			"MA":    "Ma",
			"EMA":   "Ema",
			"SMA":   "Sma",
			"HHV":   "Highest",
			"LLV":   "Lowest",
			"SUM":   "Sum",
			"COUNT": "Count",
			"REF":   "Ref",
			"CROSS": "Cross",

			// Composite indicators.
			"MACD": "Macd",
			"KDJ":  "Stoch",
			"RSI":  "Rsi",
			"BOLL": "BBands",
			"CCI":  "Cci",
			"WR":   "WillR",

			// Conditional selection and bar counting.
			"IF":        "Where",
			"BARSLAST":  "BarsLast",
			"BARSCOUNT": "BarsCount",

			// Price and volume fields, lowered to frame column names.
			"CLOSE":  "close",
			"OPEN":   "open",
			"HIGH":   "high",
			"LOW":    "low",
			"VOLUME": "volume",
			"AMOUNT": "amount",

			// Logical keyword operators.
			"AND": "&&",
			"OR":  "||",
			"NOT": "!",
		},
		ops: map[string]string{
			"=":  "==",
			"<>": "!=",
			"&":  "&&",
			"|":  "||",
		},
	}
}

// Translator rewrites TDX expression text into the runtime expression form.
type Translator struct {
	table *Table
}

// NewTranslator creates a Translator over the given mapping table.
func NewTranslator(table *Table) *Translator {
	return &Translator{table: table}
}

// Translate rewrites a single expression. Substitution is token-level: the
// expression is lexed first and only whole identifier tokens are mapped, so
// MACD survives the MA mapping untouched. Identifiers not in the table
// (parameters, declared variables) pass through unchanged, as do
// comparison operators other than = and <>.
func (tr *Translator) Translate(expr string) (string, error) {
	toks, err := lex(expr)
	if err != nil {
		return "", fmt.Errorf("translating %q: %w", expr, err)
	}
	var b strings.Builder
	for i, t := range toks {
		text := t.text
		switch t.kind {
		case tokIdent:
			if mapped, ok := tr.table.idents[text]; ok {
				text = mapped
			}
		case tokOp:
			if mapped, ok := tr.table.ops[text]; ok {
				text = mapped
			}
		}
		if needsSpace(toks, i) {
			b.WriteString(" ")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// needsSpace keeps the rendered expression readable: no space after an
// opening paren, before a closing paren or comma, or between a callee and
// its argument list.
func needsSpace(toks []token, i int) bool {
	if i == 0 {
		return false
	}
	prev, cur := toks[i-1], toks[i]
	if prev.kind == tokLParen || cur.kind == tokRParen || cur.kind == tokComma {
		return false
	}
	if cur.kind == tokLParen && prev.kind == tokIdent {
		return false
	}
	return true
}
