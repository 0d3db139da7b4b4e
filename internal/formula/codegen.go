package formula

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"
)

// Generator renders a parsed formula into a standalone Go strategy source
// file: a params struct with one field per declared parameter (the zero
// value falls back to the parsed default) and a constructor returning the
// runtime strategy unit. The emitted file is the hand-off artifact between
// the offline translation pipeline and user code.
type Generator struct {
	translator *Translator
}

// NewGenerator creates a Generator over the given translator.
func NewGenerator(tr *Translator) *Generator {
	return &Generator{translator: tr}
}

const sourceTemplate = `// Code generated by tdx-translate from formula "{{.FormulaName}}". DO NOT EDIT.

package {{.Package}}

import (
	"tdxtools/internal/formula"
)
{{if .Description}}
// {{.TypeName}}: {{.Description}}{{end}}
// {{.TypeName}}Params holds the formula's tunable inputs. A zero field
// falls back to the parsed default.
type {{.TypeName}}Params struct {
{{- range .Params}}
	{{.Field}} float64 // default {{.Default}}{{.Bounds}}
{{- end}}
}

// New{{.TypeName}} builds the runnable strategy unit.
func New{{.TypeName}}(p {{.TypeName}}Params) (*formula.Strategy, error) {
	overrides := map[string]float64{}
{{- range .Params}}
	if p.{{.Field}} != 0 {
		overrides[{{printf "%q" .Name}}] = p.{{.Field}}
	}
{{- end}}
	return formula.NewStrategy(formula.Parse({{.TypeName | printf "%sSource" }}), overrides)
}

// Translated output conditions:
{{- range .Conditions}}
//	{{.Kind}}: {{.Expr}}
{{- end}}
const {{.TypeName}}Source = {{.Source}}
`

var codegenTemplate = template.Must(template.New("strategy").Parse(sourceTemplate))

type codegenParam struct {
	Name    string
	Field   string
	Default string
	Bounds  string
}

type codegenCondition struct {
	Kind string
	Expr string
}

// GenerateSource renders the Go source for a parsed formula into the given
// package name.
func (g *Generator) GenerateSource(f *Formula, pkg string) ([]byte, error) {
	typeName := identifier(f.Name)
	data := struct {
		Package     string
		FormulaName string
		Description string
		TypeName    string
		Params      []codegenParam
		Conditions  []codegenCondition
		Source      string
	}{
		Package:     pkg,
		FormulaName: f.Name,
		Description: f.Description,
		TypeName:    typeName,
	}

	for _, p := range f.Params {
		cp := codegenParam{
			Name:    p.Name,
			Field:   identifier(p.Name),
			Default: p.Raw,
		}
		if p.Min != nil && p.Max != nil {
			cp.Bounds = fmt.Sprintf(", range %v..%v", *p.Min, *p.Max)
		}
		data.Params = append(data.Params, cp)
	}
	for _, c := range f.Conditions {
		expr, err := g.translator.Translate(c.Expr)
		if err != nil {
			return nil, fmt.Errorf("generating %s: %w", f.Name, err)
		}
		data.Conditions = append(data.Conditions, codegenCondition{Kind: string(c.Kind), Expr: expr})
	}
	data.Source = quoteSource(f.Source)

	var buf bytes.Buffer
	if err := codegenTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("generating %s: %w", f.Name, err)
	}
	return buf.Bytes(), nil
}

// identifier converts a formula or parameter name into an exported Go
// identifier. Unicode letters are legal in Go identifiers, so Chinese
// formula names survive; anything else becomes an underscore.
func identifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	s := b.String()
	if s == "" {
		return "Formula"
	}
	runes := []rune(s)
	if unicode.IsDigit(runes[0]) {
		return "Formula" + s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// quoteSource renders the formula text as a Go string literal, preferring a
// raw literal unless the text itself contains a backquote.
func quoteSource(src string) string {
	if !strings.Contains(src, "`") {
		return "`" + src + "`"
	}
	return fmt.Sprintf("%q", src)
}
