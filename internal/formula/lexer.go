package formula

import (
	"fmt"
	"strings"
	"unicode"
)

// tokenKind discriminates lexer tokens. The same lexer serves the
// translator (which rewrites identifier and operator tokens) and the
// expression evaluator (which parses the translated stream).
type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
}

// lex tokenizes an expression. Identifiers may contain any Unicode letters
// (formula variables are often written in Chinese), digits, and underscores.
func lex(src string) ([]token, error) {
	var toks []token
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, string(runes[i:j])})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			toks = append(toks, token{tokIdent, string(runes[i:j])})
			i = j
		case strings.ContainsRune("><=!&|+-*/", r):
			j := i + 1
			// Greedily take two-rune operators: >= <= == != <> && ||
			if j < len(runes) {
				two := string(runes[i : j+1])
				switch two {
				case ">=", "<=", "==", "!=", "<>", "&&", "||":
					j++
				}
			}
			toks = append(toks, token{tokOp, string(runes[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}
	return toks, nil
}
