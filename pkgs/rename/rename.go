// Package rename keeps the flat identifier table of one obfuscation run.
package rename

import (
	"log/slog"

	"github.com/aledsdavies/pyfog/pkgs/invariant"
	"github.com/aledsdavies/pyfog/pkgs/naming"
)

// Entry is one renamed identifier.
type Entry struct {
	Original  string
	Generated string
}

// Table maps original identifiers to generated names in insertion order.
type Table struct {
	namer  *naming.Namer
	names  map[string]string
	order  []string
	logger *slog.Logger
}

// New creates a table drawing names from namer. Sharing the namer with the
// constant pool keeps identifier and constant names disjoint.
func New(namer *naming.Namer, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Table{
		namer:  namer,
		names:  make(map[string]string),
		logger: logger,
	}
}

// Name returns the generated name for original, allocating one on first use.
func (t *Table) Name(original string) string {
	invariant.Precondition(original != "", "identifier must not be empty")
	if name, ok := t.names[original]; ok {
		return name
	}
	name := t.namer.Next()
	t.names[original] = name
	t.order = append(t.order, original)
	t.logger.Debug("[RENAME] new identifier", "original", original, "generated", name)
	return name
}

// Lookup returns the generated name for original without allocating.
func (t *Table) Lookup(original string) (string, bool) {
	name, ok := t.names[original]
	return name, ok
}

// Len returns the number of renamed identifiers.
func (t *Table) Len() int {
	return len(t.order)
}

// Entries lists the table in the order identifiers were first seen.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.order))
	for i, original := range t.order {
		out[i] = Entry{Original: original, Generated: t.names[original]}
	}
	return out
}
