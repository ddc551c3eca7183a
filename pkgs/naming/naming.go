// Package naming hands out the opaque names used for renamed identifiers
// and hoisted constants.
//
// Every name is the filler repeated n times, n counting up from 1, so a
// name issued later is always strictly longer than any name issued before
// it. The header builder relies on that: sorting by length is sorting by
// allocation order.
package naming

import (
	"strings"

	"github.com/aledsdavies/pyfog/pkgs/invariant"
)

// DefaultFiller is the filler used when none is configured.
const DefaultFiller = "_"

// Namer issues generated names. The zero value is not usable; use New.
type Namer struct {
	filler string
	issued int
}

// New creates a Namer repeating filler. An empty filler falls back to DefaultFiller.
func New(filler string) *Namer {
	if filler == "" {
		filler = DefaultFiller
	}
	return &Namer{filler: filler}
}

// Next allocates and returns a fresh name.
func (n *Namer) Next() string {
	prev := n.issued * len(n.filler)
	n.issued++
	name := strings.Repeat(n.filler, n.issued)
	invariant.Postcondition(len(name) > prev, "name %q not longer than previous (%d)", name, prev)
	return name
}

// Peek returns the name Next would return, without allocating it.
func (n *Namer) Peek() string {
	return strings.Repeat(n.filler, n.issued+1)
}

// Issued reports how many names have been allocated.
func (n *Namer) Issued() int {
	return n.issued
}

// IsGenerated reports whether name has the shape of a generated name.
// It does not check that the name was actually issued.
func (n *Namer) IsGenerated(name string) bool {
	if name == "" || len(name)%len(n.filler) != 0 {
		return false
	}
	return strings.Count(name, n.filler) == len(name)/len(n.filler)
}
