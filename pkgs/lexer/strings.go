package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// stringPrefixes are the legal Python string prefixes, lower-cased.
var stringPrefixes = map[string]bool{
	"r": true, "u": true, "b": true, "f": true,
	"br": true, "rb": true, "fr": true, "rf": true,
}

// SplitStringPrefix recognises a symbol that opens a string literal,
// optionally behind a prefix such as r or b. It returns the prefix and the
// quote character.
func SplitStringPrefix(sym string) (prefix string, quote byte, ok bool) {
	for n := 0; n <= 2 && n < len(sym); n++ {
		c := sym[n]
		if c == '"' || c == '\'' {
			p := sym[:n]
			if n == 0 || stringPrefixes[strings.ToLower(p)] {
				return p, c, true
			}
			return "", 0, false
		}
		if c >= 128 || !isLetter[c] {
			return "", 0, false
		}
	}
	return "", 0, false
}

// Encodable reports whether a literal with prefix can be rebuilt from its
// characters. Bytes and f-strings cannot.
func Encodable(prefix string) bool {
	p := strings.ToLower(prefix)
	return !strings.ContainsAny(p, "bf")
}

// IsFString reports whether prefix marks a formatted string literal.
func IsFString(prefix string) bool {
	return strings.ContainsAny(prefix, "fF")
}

// IsRaw reports whether prefix turns off escape processing.
func IsRaw(prefix string) bool {
	return strings.ContainsAny(prefix, "rR")
}

// Unescape resolves the backslash escapes of a non-raw Python string body.
// Unknown escapes keep their backslash, as Python does.
func Unescape(body string) string {
	if strings.IndexByte(body, '\\') < 0 {
		return body
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		esc := body[i]
		switch esc {
		case '\n':
			// backslash-newline is a line continuation inside the literal
		case '\\', '\'', '"':
			b.WriteByte(esc)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[esc]
			if i+1+width <= len(body) {
				if v, err := strconv.ParseUint(body[i+1:i+1+width], 16, 32); err == nil && utf8.ValidRune(rune(v)) {
					b.WriteRune(rune(v))
					i += width
					continue
				}
			}
			b.WriteByte('\\')
			b.WriteByte(esc)
		default:
			if esc >= '0' && esc <= '7' {
				j := i
				for j < len(body) && j < i+3 && body[j] >= '0' && body[j] <= '7' {
					j++
				}
				v, _ := strconv.ParseUint(body[i:j], 8, 32)
				b.WriteRune(rune(v))
				i = j - 1
				continue
			}
			b.WriteByte('\\')
			b.WriteByte(esc)
		}
	}
	return b.String()
}
