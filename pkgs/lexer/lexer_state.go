package lexer

import (
	"fmt"
	"strings"
)

// Mode is the scan state while folding over one line's symbols
type Mode int

const (
	// Normal dispatches every symbol on its own
	Normal Mode = iota

	// InString accumulates symbols until the closing quote
	InString

	// LineComment passes everything through to end of line
	LineComment
)

// String returns a human-readable mode name
func (m Mode) String() string {
	names := []string{
		"Normal",
		"InString",
		"LineComment",
	}
	if int(m) < len(names) {
		return names[m]
	}
	return fmt.Sprintf("Unknown(%d)", m)
}

// State is Normal | InString(delimiter, prefix, buffer) | LineComment.
// Delim, Prefix and the buffer are only meaningful in InString.
type State struct {
	mode   Mode
	delim  string
	prefix string
	buf    strings.Builder
}

// Mode returns the current mode.
func (s *State) Mode() Mode {
	return s.mode
}

// Delim returns the full delimiter of the current string: one quote, or
// three for a triple-quoted literal.
func (s *State) Delim() string {
	return s.delim
}

// Prefix returns the string prefix (r, b, f, ...) of the current string.
func (s *State) Prefix() string {
	return s.prefix
}

// Open enters InString with the opening text of the literal, prefix and
// delimiter included.
func (s *State) Open(prefix, delim, opening string) {
	s.mode = InString
	s.prefix = prefix
	s.delim = delim
	s.buf.Reset()
	s.buf.WriteString(opening)
}

// Append adds a symbol, with its original leading whitespace, to the
// string being accumulated.
func (s *State) Append(sym Symbol) {
	s.buf.WriteString(sym.Lead)
	s.buf.WriteString(sym.Text)
}

// Text returns everything accumulated so far.
func (s *State) Text() string {
	return s.buf.String()
}

// Close leaves InString and returns the accumulated literal text.
func (s *State) Close() string {
	text := s.buf.String()
	s.Reset()
	return text
}

// EnterComment switches to LineComment for the rest of the line.
func (s *State) EnterComment() {
	s.Reset()
	s.mode = LineComment
}

// Reset returns to Normal.
func (s *State) Reset() {
	s.mode = Normal
	s.delim = ""
	s.prefix = ""
	s.buf.Reset()
}

// FindClosing returns the index of the first unescaped occurrence of delim
// in s at or after from, or -1.
func FindClosing(s, delim string, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(s[i:], delim) {
			return i
		}
	}
	return -1
}

// OpeningDelim returns the delimiter that opens the literal at the start of
// body, which must begin with a quote: three quotes or one.
func OpeningDelim(body string) string {
	if len(body) >= 3 && body[1] == body[0] && body[2] == body[0] {
		return body[:3]
	}
	return body[:1]
}
