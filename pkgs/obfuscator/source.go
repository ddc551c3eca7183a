package obfuscator

import (
	"strings"

	"github.com/aledsdavies/pyfog/pkgs/lexer"
)

// ObfuscateSource rewrites a whole program. String literals are hoisted in
// a first pass over the full text, so a literal gets one pool entry however
// many lines use it and triple-quoted literals may span lines. Blank lines
// are dropped, and the serialized pool becomes the first line after any
// `from __future__` imports, which Python requires at the top.
func (c *Context) ObfuscateSource(src string) string {
	text := c.hoistStrings(src)

	var future, body strings.Builder
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		if isFutureImport(ln) {
			future.WriteString(ln)
			future.WriteByte('\n')
			continue
		}
		rewritten, ok := c.RewriteLine(ln, false)
		if !ok {
			continue
		}
		body.WriteString(rewritten)
		body.WriteByte('\n')
	}

	return future.String() + c.pool.Serialize() + body.String()
}

func isFutureImport(ln string) bool {
	fields := lexer.Fields(ln)
	return lexer.Indent(ln) == "" && len(fields) >= 2 &&
		fields[0] == "from" && fields[1] == "__future__"
}

// hoistStrings encodes every encodable string literal of src and replaces
// it with a placeholder resolving to the encoding.
func (c *Context) hoistStrings(src string) string {
	lits := lexer.ScanStrings(src)
	base := len(c.hoisted)
	encoded := 0
	for _, lit := range lits {
		ref := ""
		if lit.Encodable() {
			ref = c.enc.String(lit.Value(), true)
			encoded++
		}
		c.hoisted = append(c.hoisted, ref)
	}
	c.logger.Debug("[LEXER] hoisted string literals", "found", len(lits), "encoded", encoded)

	return lexer.ReplaceLiterals(src, lits, func(i int) string {
		return lexer.Placeholder(base + i)
	})
}
