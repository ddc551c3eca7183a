// Package lexer turns one line of Python into symbols for the rewriter.
//
// There is no grammar here. Pad isolates operators with spaces, Split cuts
// the result on whitespace, and the rewriter folds over the symbols with a
// small State tracking quotes and comments.
package lexer

import (
	"strings"
)

// ASCII character lookup tables for fast classification
var (
	isWhitespace [128]bool
	isLetter     [128]bool
	isDigit      [128]bool
	isIdentStart [128]bool
	isIdentPart  [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isWhitespace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\v'
		isLetter[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
		isDigit[i] = '0' <= ch && ch <= '9'
		isIdentStart[i] = isLetter[i] || ch == '_'
		isIdentPart[i] = isIdentStart[i] || isDigit[i]
	}
}

func identPart(c byte) bool { return c < 128 && isIdentPart[c] }

// CommentMarker starts a comment running to end of line.
const CommentMarker = '#'

// Pad surrounds every operator outside string literals and comments with
// spaces, so that splitting on whitespace yields one symbol per operator.
// A space is also put before a comment marker so the comment starts its
// own symbol. Numeric literals are copied whole, which keeps the sign of
// an exponent such as 1e-5 attached.
func Pad(line string) string {
	var b strings.Builder
	b.Grow(len(line) * 2)

	var quote byte
	prevIdent := false
	for i := 0; i < len(line); {
		c := line[i]

		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(line) {
				b.WriteByte(line[i+1])
				i += 2
				continue
			}
			if c == quote {
				quote = 0
			}
			i++
			continue
		}

		switch {
		case c == '"' || c == '\'':
			quote = c
			b.WriteByte(c)
			prevIdent = false
			i++
		case c == CommentMarker:
			b.WriteByte(' ')
			b.WriteString(line[i:])
			return b.String()
		case !prevIdent && startsNumber(line, i):
			n := numberLen(line[i:])
			b.WriteString(line[i : i+n])
			prevIdent = true
			i += n
		default:
			if op := matchOperator(line[i:]); op != "" {
				b.WriteByte(' ')
				b.WriteString(op)
				b.WriteByte(' ')
				prevIdent = false
				i += len(op)
				continue
			}
			b.WriteByte(c)
			prevIdent = identPart(c)
			i++
		}
	}
	return b.String()
}

func startsNumber(s string, i int) bool {
	c := s[i]
	if c < 128 && isDigit[c] {
		return true
	}
	return c == '.' && i+1 < len(s) && s[i+1] < 128 && isDigit[s[i+1]]
}

// numberLen returns the length of the numeric literal at the start of s:
// digits, letters, underscores and dots, plus a sign directly after an
// exponent marker of a decimal literal.
func numberLen(s string) int {
	hex := len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case identPart(c) || c == '.':
			i++
		case (c == '+' || c == '-') && !hex && i > 0 && (s[i-1] == 'e' || s[i-1] == 'E'):
			i++
		default:
			return i
		}
	}
	return i
}

// Split cuts a padded line into symbols, remembering the whitespace in
// front of each.
func Split(padded string) []Symbol {
	var symbols []Symbol
	i := 0
	for i < len(padded) {
		start := i
		for i < len(padded) && isSpace(padded[i]) {
			i++
		}
		lead := padded[start:i]
		if i == len(padded) {
			break
		}
		textStart := i
		for i < len(padded) && !isSpace(padded[i]) {
			i++
		}
		symbols = append(symbols, Symbol{Text: padded[textStart:i], Lead: lead})
	}
	return symbols
}

func isSpace(c byte) bool { return c < 128 && isWhitespace[c] }

// Fields splits a raw line on whitespace without padding.
func Fields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool { return r < 128 && isWhitespace[r] })
}

// Indent returns the leading run of tabs and spaces of line.
func Indent(line string) string {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[:i]
}

// IdentPrefix returns the identifier at the start of sym: a letter or
// underscore followed by letters, underscores and digits. A symbol that
// starts with anything else, digits included, has no prefix.
func IdentPrefix(sym string) string {
	if sym == "" || sym[0] >= 128 || !isIdentStart[sym[0]] {
		return ""
	}
	i := 1
	for i < len(sym) && identPart(sym[i]) {
		i++
	}
	return sym[:i]
}

// IsDigits reports whether s is a non-empty run of ASCII decimal digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] >= 128 || !isDigit[s[i]] {
			return false
		}
	}
	return true
}

// IsDunder reports whether name is a __special__ name, which Python looks
// up by spelling and so must never be renamed.
func IsDunder(name string) bool {
	if len(name) <= 4 || !strings.HasPrefix(name, "__") || !strings.HasSuffix(name, "__") {
		return false
	}
	return strings.Trim(name, "_") != ""
}
