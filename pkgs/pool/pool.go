// Package pool implements the constant pool: literal values hoisted into a
// single header of `name=expression` assignments that the rewritten body
// refers to by name.
package pool

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/aledsdavies/pyfog/pkgs/invariant"
	"github.com/aledsdavies/pyfog/pkgs/naming"
)

// Kind distinguishes the literal namespaces sharing one pool, so the
// integer 7 and the string "7" never alias.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindString
	KindBuiltins
)

// String returns the kind name used in debug dumps and symbol maps
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBuiltins:
		return "builtins"
	default:
		return "unknown"
	}
}

// Key identifies a pooled literal.
type Key struct {
	Kind    Kind
	Literal string
}

// Int returns the key of an integer literal in decimal form.
func Int(decimal string) Key { return Key{Kind: KindInt, Literal: decimal} }

// String returns the key of a decoded string value.
func String(value string) Key { return Key{Kind: KindString, Literal: value} }

// Builtins is the key of the module-name string used by built-in indirection.
var Builtins = Key{Kind: KindBuiltins, Literal: "builtins"}

// Entry is one hoisted constant.
type Entry struct {
	Key        Key
	Name       string
	Expression string
	seq        int
}

// Pool maps literals to generated names. A disabled pool never stores
// anything and hands every expression straight back, which is how the
// no-header mode inlines everything.
type Pool struct {
	namer    *naming.Namer
	disabled bool
	byKey    map[Key]*Entry
	ordered  []*Entry
	logger   *slog.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for allocation events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Disabled turns the pool into a pass-through.
func Disabled() Option {
	return func(p *Pool) { p.disabled = true }
}

// New creates a pool drawing names from namer.
func New(namer *naming.Namer, opts ...Option) *Pool {
	invariant.NotNil(namer, "namer")
	p := &Pool{
		namer:  namer,
		byKey:  make(map[Key]*Entry),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enabled reports whether the pool stores entries.
func (p *Pool) Enabled() bool {
	return !p.disabled
}

// Add returns the reference to use for key. An existing entry wins; an
// expression no longer than the next generated name is returned inline
// since hoisting it would save nothing; otherwise a new entry is allocated.
func (p *Pool) Add(key Key, expression string) string {
	if p.disabled {
		return expression
	}
	if e, ok := p.byKey[key]; ok {
		return e.Name
	}
	if len(expression) <= len(p.namer.Peek()) {
		return expression
	}
	return p.store(key, expression)
}

// Define is Add without the inline shortcut: the returned value is always a
// generated name unless the pool is disabled.
func (p *Pool) Define(key Key, expression string) string {
	if p.disabled {
		return expression
	}
	if e, ok := p.byKey[key]; ok {
		return e.Name
	}
	return p.store(key, expression)
}

func (p *Pool) store(key Key, expression string) string {
	invariant.Precondition(expression != "", "empty expression for %s:%s", key.Kind, key.Literal)
	e := &Entry{
		Key:        key,
		Name:       p.namer.Next(),
		Expression: expression,
		seq:        len(p.ordered),
	}
	if n := len(p.ordered); n > 0 {
		invariant.Invariant(len(e.Name) > len(p.ordered[n-1].Name),
			"pool name %q issued after %q", e.Name, p.ordered[n-1].Name)
	}
	p.byKey[key] = e
	p.ordered = append(p.ordered, e)
	p.logger.Debug("[POOL] hoisted constant",
		"kind", key.Kind.String(),
		"literal", key.Literal,
		"name", e.Name,
		"size", len(expression))
	return e.Name
}

// Lookup returns the generated name for key, if pooled.
func (p *Pool) Lookup(key Key) (string, bool) {
	e, ok := p.byKey[key]
	if !ok {
		return "", false
	}
	return e.Name, true
}

// Len returns the number of pooled entries.
func (p *Pool) Len() int {
	return len(p.ordered)
}

// Entries returns the entries in header order.
func (p *Pool) Entries() []Entry {
	sorted := make([]*Entry, len(p.ordered))
	copy(sorted, p.ordered)
	// A name only ever refers to names issued before it, and those are shorter.
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i].Name) != len(sorted[j].Name) {
			return len(sorted[i].Name) < len(sorted[j].Name)
		}
		return sorted[i].seq < sorted[j].seq
	})

	out := make([]Entry, len(sorted))
	for i, e := range sorted {
		out[i] = *e
	}
	return out
}

// Serialize renders the header line, or "" for an empty pool.
func (p *Pool) Serialize() string {
	if len(p.ordered) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range p.Entries() {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(e.Name)
		b.WriteByte('=')
		b.WriteString(e.Expression)
	}
	b.WriteByte('\n')
	return b.String()
}
