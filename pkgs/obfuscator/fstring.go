package obfuscator

import (
	"strings"

	"github.com/aledsdavies/pyfog/pkgs/lexer"
)

// rewriteFString renames the identifiers used in the replacement fields of
// an f-string body. Literal text, conversions and format specs stay as they
// are, except for fields nested inside a format spec.
func (c *Context) rewriteFString(body string, raw bool) string {
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); {
		switch {
		case strings.HasPrefix(body[i:], "{{"), strings.HasPrefix(body[i:], "}}"):
			b.WriteString(body[i : i+2])
			i += 2
		case body[i] == '\\' && !raw:
			i += copyEscape(&b, body[i:])
		case body[i] == '{':
			i += c.rewriteField(&b, body[i:])
		default:
			b.WriteByte(body[i])
			i++
		}
	}
	return b.String()
}

// copyEscape copies the backslash escape at the start of s, including the
// braces of a \N{...} named escape, and returns its length.
func copyEscape(b *strings.Builder, s string) int {
	n := min(2, len(s))
	if strings.HasPrefix(s, `\N{`) {
		if end := strings.IndexByte(s, '}'); end > 0 {
			n = end + 1
		}
	}
	b.WriteString(s[:n])
	return n
}

// rewriteField rewrites the replacement field opening s and returns how
// many bytes of s it spans. An unterminated field is copied untouched.
func (c *Context) rewriteField(b *strings.Builder, s string) int {
	end, stop := fieldExprEnd(s, 1)
	if end < 0 {
		b.WriteString(s)
		return len(s)
	}
	expr := s[1:end]
	i := end

	// {expr=} prints its own source text. That text is kept as literal
	// f-string text so renaming the expression does not change the output.
	selfDoc := ""
	if stop == '=' {
		i++
		for i < len(s) && s[i] == ' ' {
			i++
		}
		selfDoc = s[1:i]
	}

	b.WriteString(escapeBraces(selfDoc))
	b.WriteByte('{')
	b.WriteString(c.rewriteExpr(expr))
	if selfDoc != "" && i < len(s) && s[i] == '}' {
		// Without a conversion or spec, the self-documenting form uses repr.
		b.WriteString("!r")
	}

	if i+1 < len(s) && s[i] == '!' {
		b.WriteString(s[i : i+2])
		i += 2
	}
	if i < len(s) && s[i] == ':' {
		b.WriteByte(':')
		i++
		for i < len(s) && s[i] != '}' {
			if s[i] == '{' {
				i += c.rewriteField(b, s[i:])
				continue
			}
			b.WriteByte(s[i])
			i++
		}
	}
	if i < len(s) {
		b.WriteByte('}')
		i++
	}
	return i
}

// rewriteExpr runs a field expression through the symbol dispatcher. String
// literals and built-ins inside it are left alone.
func (c *Context) rewriteExpr(expr string) string {
	out := line{field: true}
	var state lexer.State
	for _, sym := range lexer.Split(lexer.Pad(expr)) {
		if state.Mode() == lexer.InString {
			state.Append(sym)
			c.finishString(&out, &state)
			continue
		}
		c.rewriteSymbol(&out, &state, sym.Text)
	}
	if state.Mode() == lexer.InString {
		out.verbatim(state.Close())
	}

	rewritten := strings.TrimSpace(out.b.String())
	// A brace touching the field delimiter would read as an escaped brace.
	if strings.HasPrefix(rewritten, "{") || strings.HasSuffix(rewritten, "}") {
		rewritten = " " + rewritten + " "
	}
	return rewritten
}

// fieldExprEnd finds where the expression of the field in s ends, scanning
// from offset from. It returns the offset and the byte that ended it: '}',
// '!' for a conversion, ':' for a format spec or '=' for the
// self-documenting form. It returns -1 if the field never closes.
func fieldExprEnd(s string, from int) (int, byte) {
	depth := 0
	for i := from; i < len(s); i++ {
		switch c := s[i]; c {
		case '(', '[', '{':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth == 0 {
				return i, c
			}
			depth--
		case '\'', '"':
			q := s[i : i+1]
			if strings.HasPrefix(s[i:], strings.Repeat(q, 3)) {
				q = strings.Repeat(q, 3)
			}
			end := lexer.FindClosing(s, q, i+len(q))
			if end < 0 {
				return -1, 0
			}
			i = end + len(q) - 1
		case '!':
			if i+1 < len(s) && s[i+1] == '=' {
				i++
				continue
			}
			if depth == 0 {
				return i, c
			}
		case ':':
			if depth == 0 {
				return i, c
			}
		case '=':
			if i+1 < len(s) && s[i+1] == '=' {
				i++
				continue
			}
			if depth == 0 && i > from && !strings.ContainsRune("=!<>", rune(s[i-1])) && endsSelfDoc(s[i+1:]) {
				return i, c
			}
		}
	}
	return -1, 0
}

// endsSelfDoc reports whether the text after an '=' closes the expression.
func endsSelfDoc(rest string) bool {
	rest = strings.TrimLeft(rest, " ")
	return rest != "" && strings.ContainsRune("}!:", rune(rest[0]))
}

func escapeBraces(s string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}
