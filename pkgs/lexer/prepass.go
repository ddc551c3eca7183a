package lexer

import (
	"strconv"
	"strings"
)

// Literal is one string literal found by ScanStrings. Start and End are
// byte offsets of the whole literal, prefix and quotes included.
type Literal struct {
	Start, End int
	Prefix     string
	Quote      string // ' " ''' or """
	Body       string // text between the quotes, escapes unresolved
}

// Value returns the runtime value of the literal.
func (l Literal) Value() string {
	if IsRaw(l.Prefix) {
		return l.Body
	}
	return Unescape(l.Body)
}

// Encodable reports whether the literal can be replaced by an encoding of
// its value.
func (l Literal) Encodable() bool {
	return Encodable(l.Prefix)
}

// ScanStrings finds every string literal in src that lies outside a
// comment. Single-quoted literals end at the line break if unterminated
// and are then dropped; triple-quoted literals may span lines.
func ScanStrings(src string) []Literal {
	var lits []Literal
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == CommentMarker:
			nl := strings.IndexByte(src[i:], '\n')
			if nl < 0 {
				return lits
			}
			i += nl + 1
		case c == '"' || c == '\'':
			start := i - prefixLen(src, i)
			lit, end, ok := scanLiteral(src, i)
			if ok {
				lit.Start = start
				lit.Prefix = src[start:i]
				lits = append(lits, lit)
			}
			i = end
		default:
			i++
		}
	}
	return lits
}

// prefixLen returns how many letters before the quote at i form a string
// prefix rather than the tail of an identifier.
func prefixLen(src string, i int) int {
	for n := 2; n >= 1; n-- {
		if i-n < 0 {
			continue
		}
		p := src[i-n : i]
		if !stringPrefixes[strings.ToLower(p)] {
			continue
		}
		if i-n > 0 && identPart(src[i-n-1]) {
			continue
		}
		return n
	}
	return 0
}

// scanLiteral reads the literal whose opening quote is at i. It returns the
// offset scanning should resume from.
func scanLiteral(src string, i int) (Literal, int, bool) {
	q := src[i : i+1]
	if strings.HasPrefix(src[i:], strings.Repeat(q, 3)) {
		q = strings.Repeat(q, 3)
	}
	bodyStart := i + len(q)
	for j := bodyStart; j < len(src); j++ {
		switch {
		case src[j] == '\\':
			j++
		case len(q) == 1 && src[j] == '\n':
			return Literal{}, j + 1, false
		case strings.HasPrefix(src[j:], q):
			return Literal{
				End:   j + len(q),
				Quote: q,
				Body:  src[bodyStart:j],
			}, j + len(q), true
		}
	}
	return Literal{}, len(src), false
}

const (
	placeholderOpen  = "\ue000"
	placeholderClose = "\ue001"
)

// Placeholder returns the marker standing in for hoisted literal n. It uses
// private-use runes so it can never collide with real source text.
func Placeholder(n int) string {
	return placeholderOpen + strconv.Itoa(n) + placeholderClose
}

// ParsePlaceholder recognises a symbol starting with a placeholder and
// returns its index and whatever follows it.
func ParsePlaceholder(sym string) (n int, rest string, ok bool) {
	if !strings.HasPrefix(sym, placeholderOpen) {
		return 0, "", false
	}
	body := sym[len(placeholderOpen):]
	end := strings.Index(body, placeholderClose)
	if end < 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(body[:end])
	if err != nil {
		return 0, "", false
	}
	return n, body[end+len(placeholderClose):], true
}

// ReplaceLiterals substitutes each encodable literal in src with repl(i),
// where i indexes lits. Literals are expected in source order.
func ReplaceLiterals(src string, lits []Literal, repl func(i int) string) string {
	var b strings.Builder
	b.Grow(len(src))
	last := 0
	for i, lit := range lits {
		if !lit.Encodable() {
			continue
		}
		b.WriteString(src[last:lit.Start])
		b.WriteString(repl(i))
		last = lit.End
	}
	b.WriteString(src[last:])
	return b.String()
}
