package formula

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Label prefixes recognised on metadata lines. Both the half-width and
// full-width colon are accepted after a label.
const (
	labelName   = "公式名称"
	labelDesc   = "公式描述"
	labelParams = "参数"
)

var (
	paramEntryRe = regexp.MustCompile(`(\w+)\s*\(([^)]*)\)`)
	assignRe     = regexp.MustCompile(`^([\p{L}_][\p{L}\p{N}_]*)\s*:=\s*(.+)$`)
	conditionRe  = regexp.MustCompile(`^(选股|买入|卖出)\s*[:：]\s*(.+)$`)
)

// Parse extracts a Formula from TDX formula text. It never fails outright:
// metadata, parameters, variables, and output conditions that match the
// statement grammar are collected, and any statement that matches nothing
// is recorded as a Diagnostic rather than aborting the parse.
func Parse(text string) *Formula {
	f := &Formula{
		Name:   "unnamed",
		Source: text,
	}

	var stmtBuf strings.Builder
	for _, rawLine := range strings.Split(text, "\n") {
		line := stripComment(rawLine)
		if line == "" {
			continue
		}
		switch {
		case hasLabel(line, labelName):
			if v := labelValue(line, labelName); v != "" {
				// Name is a single token, like the source format.
				f.Name = strings.Fields(v)[0]
			}
		case hasLabel(line, labelDesc):
			f.Description = labelValue(line, labelDesc)
		case hasLabel(line, labelParams):
			seg, rest := splitLabelSegment(line, labelParams)
			f.Params = append(f.Params, parseParams(seg)...)
			if rest != "" {
				stmtBuf.WriteString(rest)
				stmtBuf.WriteString(" ")
			}
		default:
			stmtBuf.WriteString(line)
			stmtBuf.WriteString(" ")
		}
	}

	for _, stmt := range splitStatements(stmtBuf.String()) {
		f.addStatement(stmt)
	}
	return f
}

// stripComment removes a // line comment, collapses repeated whitespace, and
// trims the line.
func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	return strings.Join(strings.Fields(line), " ")
}

func hasLabel(line, label string) bool {
	rest, ok := strings.CutPrefix(line, label)
	if !ok {
		return false
	}
	rest = strings.TrimSpace(rest)
	return strings.HasPrefix(rest, ":") || strings.HasPrefix(rest, "：")
}

// labelValue returns the text after "label:" with any trailing ';' removed.
func labelValue(line, label string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(line, label))
	rest = strings.TrimPrefix(rest, ":")
	rest = strings.TrimPrefix(rest, "：")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ";"))
}

// splitLabelSegment returns the text after "label:" cut at the first
// statement terminator, plus whatever follows it. Statements may share a
// line with the label, so the remainder must go back into the statement
// stream instead of being consumed by the label.
func splitLabelSegment(line, label string) (segment, rest string) {
	v := strings.TrimSpace(strings.TrimPrefix(line, label))
	v = strings.TrimPrefix(v, ":")
	v = strings.TrimPrefix(v, "：")
	if i := strings.IndexAny(v, ";；"); i >= 0 {
		_, size := utf8.DecodeRuneInString(v[i:])
		return strings.TrimSpace(v[:i]), strings.TrimSpace(v[i+size:])
	}
	return strings.TrimSpace(v), ""
}

// parseParams extracts IDENT(default,min,max) entries from a parameter
// segment. Values that fail numeric parsing are kept as raw text for the
// default and dropped (nil) for the bounds.
func parseParams(segment string) []Param {
	var out []Param
	for _, m := range paramEntryRe.FindAllStringSubmatch(segment, -1) {
		values := strings.Split(m[2], ",")
		p := Param{
			Name:    m[1],
			Default: math.NaN(),
			Raw:     strings.TrimSpace(values[0]),
		}
		if v, err := strconv.ParseFloat(p.Raw, 64); err == nil {
			p.Default = v
		}
		if len(values) > 1 {
			p.Min = parseBound(values[1])
		}
		if len(values) > 2 {
			p.Max = parseBound(values[2])
		}
		out = append(out, p)
	}
	return out
}

func parseBound(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}

// splitStatements splits the accumulated statement stream on ';'. A
// trailing fragment with no terminator is returned as well so it can be
// diagnosed.
func splitStatements(stream string) []string {
	var out []string
	for _, s := range strings.Split(stream, ";") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// addStatement classifies one semicolon-terminated statement.
func (f *Formula) addStatement(stmt string) {
	if m := assignRe.FindStringSubmatch(stmt); m != nil {
		f.addVariable(m[1], strings.TrimSpace(m[2]))
		return
	}
	if m := conditionRe.FindStringSubmatch(stmt); m != nil {
		kind := map[string]ConditionKind{
			"选股": KindSelection,
			"买入": KindBuy,
			"卖出": KindSell,
		}[m[1]]
		f.Conditions = append(f.Conditions, Condition{Kind: kind, Expr: strings.TrimSpace(m[2])})
		return
	}
	f.Diagnostics = append(f.Diagnostics, Diagnostic{
		Stmt: stmt,
		Msg:  "statement is neither an assignment nor an output condition",
	})
}

// addVariable appends a variable declaration. A redeclared name keeps the
// position of its first declaration and takes the latest expression text.
func (f *Formula) addVariable(name, expr string) {
	for i := range f.Variables {
		if f.Variables[i].Name == name {
			f.Variables[i].Expr = expr
			return
		}
	}
	f.Variables = append(f.Variables, Variable{Name: name, Expr: expr})
}
