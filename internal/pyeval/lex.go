// Package pyeval evaluates the small slice of Python that the obfuscator
// emits: canonical comparisons, integer arithmetic and shifts, names bound
// by header assignments, escaped string literals, the character-array
// reconstruction, built-in indirection and f-strings with plain
// replacement fields. It exists so tests can check
// that rewritten literals still evaluate to the original values.
package pyeval

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokName
	tokInt
	tokString
	tokFString
	tokOp
)

type token struct {
	kind tokKind
	text string
	pos  int
}

var ops = []string{"**", "<<", ">>", "==", "(", ")", "[", "]", ",", "+", "-", "*", "~", ".", "=", ";", "\n"}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case (c == 'f' || c == 'F') && i+1 < len(src) && (src[i+1] == '\'' || src[i+1] == '"'):
			body, n, err := lexFString(src[i+1:])
			if err != nil {
				return nil, fmt.Errorf("offset %d: %w", i, err)
			}
			toks = append(toks, token{kind: tokFString, text: body, pos: i})
			i += 1 + n
		case c == '_' || isAlpha(c):
			start := i
			for i < len(src) && (src[i] == '_' || isAlpha(src[i]) || isDigit(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokName, text: src[start:i], pos: start})
		case isDigit(c):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokInt, text: src[start:i], pos: start})
		case c == '\'' || c == '"':
			s, n, err := lexString(src[i:])
			if err != nil {
				return nil, fmt.Errorf("offset %d: %w", i, err)
			}
			toks = append(toks, token{kind: tokString, text: s, pos: i})
			i += n
		default:
			matched := false
			for _, op := range ops {
				if strings.HasPrefix(src[i:], op) {
					toks = append(toks, token{kind: tokOp, text: op, pos: i})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("offset %d: unexpected %q", i, c)
			}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

// lexString decodes a quoted literal at the start of src, returning the
// value and the number of bytes consumed.
func lexString(src string) (string, int, error) {
	quote := src[0]
	var b strings.Builder
	i := 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\\' && i+1 < len(src):
			esc := src[i+1]
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[esc]
			if width > 0 {
				if i+2+width > len(src) {
					return "", 0, fmt.Errorf("truncated \\%c escape", esc)
				}
				v, err := strconv.ParseUint(src[i+2:i+2+width], 16, 32)
				if err != nil {
					return "", 0, err
				}
				b.WriteRune(rune(v))
				i += 2 + width
				continue
			}
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
			i += 2
		default:
			r, size := utf8.DecodeRuneInString(src[i:])
			b.WriteRune(r)
			i += size
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

// lexFString returns the undecoded body of the f-string whose opening quote
// starts src, and the number of bytes consumed.
func lexFString(src string) (string, int, error) {
	quote := src[0]
	for i := 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return src[1:i], i + 1, nil
		}
	}
	return "", 0, fmt.Errorf("unterminated f-string")
}

func isAlpha(c byte) bool { return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') }
func isDigit(c byte) bool { return '0' <= c && c <= '9' }
