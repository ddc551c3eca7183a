package obfuscator

import (
	"strings"

	"github.com/aledsdavies/pyfog/pkgs/lexer"
)

// line collects the rewritten symbols of one line. Symbols are glued
// together without spaces, except where two name-like pieces would
// otherwise fuse into one token.
type line struct {
	b          strings.Builder
	lastString bool

	// field is set while rewriting an f-string replacement field, where
	// quotes and backslashes of generated literals could end the string.
	field bool
}

func wordByte(c byte) bool {
	return c >= 128 || c == '_' || c == '"' || c == '\'' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func (l *line) last() byte {
	s := l.b.String()
	if s == "" {
		return 0
	}
	return s[len(s)-1]
}

func (l *line) write(s string) {
	if s == "" {
		return
	}
	if l.b.Len() > 0 && wordByte(l.last()) && wordByte(s[0]) {
		l.b.WriteByte(' ')
	}
	l.b.WriteString(s)
	l.lastString = false
}

// value writes a rewritten string literal. Adjacent literals, which Python
// concatenates implicitly, are joined with + since their replacements are
// plain expressions.
func (l *line) value(s string) {
	if l.lastString {
		l.b.WriteByte('+')
	}
	l.write(s)
	l.lastString = true
}

func (l *line) keyword(kw string) {
	if l.b.Len() > 0 && l.last() != ' ' {
		l.b.WriteByte(' ')
	}
	l.b.WriteString(kw)
	l.b.WriteByte(' ')
	l.lastString = false
}

func (l *line) verbatim(s string) {
	l.b.WriteString(s)
	l.lastString = false
}

func (l *line) empty() bool {
	return strings.TrimSpace(l.b.String()) == ""
}

// RewriteLine obfuscates one line of source. It returns false when the
// line disappears entirely, which happens to comment-only lines when
// comments are being removed. With withHeader the serialized constant pool
// is put in front of the line.
func (c *Context) RewriteLine(src string, withHeader bool) (string, bool) {
	fields := lexer.Fields(src)
	if len(fields) == 0 {
		return src, true
	}
	if c.tables.Imports[fields[0]] {
		return src, true
	}

	var (
		out   line
		state lexer.State
	)
	for _, sym := range lexer.Split(lexer.Pad(src)) {
		switch state.Mode() {
		case lexer.LineComment:
			out.verbatim(sym.Lead + sym.Text)
			continue
		case lexer.InString:
			state.Append(sym)
			c.finishString(&out, &state)
			continue
		}

		if c.classify(sym.Text) == lexer.COMMENT {
			if c.opts.RemoveComments {
				if out.empty() {
					c.logger.Debug("[LEXER] suppressed comment line", "line", src)
					return "", false
				}
				break
			}
			if !out.empty() {
				out.verbatim(" ")
			}
			out.verbatim(sym.Text)
			state.EnterComment()
			continue
		}

		c.rewriteSymbol(&out, &state, sym.Text)
	}

	// Whatever is left of an unterminated string goes out untouched.
	if state.Mode() == lexer.InString {
		out.verbatim(state.Close())
	}

	result := lexer.Indent(src) + strings.TrimSpace(out.b.String())
	if withHeader && c.pool.Len() > 0 {
		result = c.pool.Serialize() + result
	}
	return result, true
}

// classify picks how a symbol outside strings and comments is rewritten.
// Names that must keep their spelling classify as OTHER.
func (c *Context) classify(text string) lexer.Class {
	if _, _, ok := lexer.SplitStringPrefix(text); ok {
		return lexer.STRING
	}
	switch {
	case text[0] == lexer.CommentMarker:
		return lexer.COMMENT
	case c.tables.Reserved[text]:
		return lexer.KEYWORD
	case lexer.IsOperator(text):
		return lexer.OPERATOR
	}
	if _, ok := c.opts.Replacements[text]; ok {
		return lexer.REPLACEMENT
	}
	if lexer.IsDigits(text) {
		return lexer.NUMBER
	}
	if n, _, ok := lexer.ParsePlaceholder(text); ok && n < len(c.hoisted) {
		return lexer.PLACEHOLDER
	}

	name := lexer.IdentPrefix(text)
	suffix := text[len(name):]
	switch {
	case name == "":
		return lexer.OTHER
	case suffix != "" && suffix[0] >= 128:
		// The identifier continues with non-ASCII letters; renaming only
		// the ASCII head would split it.
		return lexer.OTHER
	case c.tables.Builtins[name]:
		return lexer.BUILTIN
	case c.keepsName(name):
		return lexer.OTHER
	}
	return lexer.IDENTIFIER
}

// rewriteSymbol dispatches one symbol outside strings and comments.
func (c *Context) rewriteSymbol(out *line, state *lexer.State, text string) {
	if text == "" {
		return
	}

	switch c.classify(text) {
	case lexer.STRING:
		prefix, _, _ := lexer.SplitStringPrefix(text)
		state.Open(prefix, lexer.OpeningDelim(text[len(prefix):]), text)
		c.finishString(out, state)
	case lexer.KEYWORD:
		out.keyword(text)
	case lexer.REPLACEMENT:
		out.write(c.opts.Replacements[text])
	case lexer.NUMBER:
		expr, _ := c.enc.Literal(text, true)
		out.write(expr)
	case lexer.PLACEHOLDER:
		n, rest, _ := lexer.ParsePlaceholder(text)
		out.value(c.hoisted[n])
		c.rewriteSymbol(out, state, rest)
	case lexer.BUILTIN:
		name := lexer.IdentPrefix(text)
		if !c.opts.ObfuscateBuiltins || out.field {
			out.write(text)
			return
		}
		out.write(c.enc.Builtin(name) + text[len(name):])
	case lexer.IDENTIFIER:
		name := lexer.IdentPrefix(text)
		out.write(c.renames.Name(name) + text[len(name):])
	default: // OPERATOR, COMMENT, OTHER
		out.write(text)
	}
}

// finishString closes the open string literal if its closing delimiter has
// been seen, encodes it, and hands whatever follows back to the dispatcher.
func (c *Context) finishString(out *line, state *lexer.State) {
	text := state.Text()
	prefix, delim := state.Prefix(), state.Delim()
	start := len(prefix) + len(delim)
	end := lexer.FindClosing(text, delim, start)
	if end < 0 {
		return
	}
	literal, rest := text[:end+len(delim)], text[end+len(delim):]
	state.Close()

	body := text[start:end]
	switch {
	case lexer.IsFString(prefix):
		out.value(prefix + delim + c.rewriteFString(body, lexer.IsRaw(prefix)) + delim)
	case !lexer.Encodable(prefix), out.field:
		out.value(literal)
	default:
		value := body
		if !lexer.IsRaw(prefix) {
			value = lexer.Unescape(body)
		}
		out.value(c.enc.String(value, true))
	}
	c.rewriteSymbol(out, state, rest)
}
