// Package config holds the knobs of an obfuscation run and loads them from
// pyfog.toml or JSON files.
package config

import (
	"fmt"
	"maps"
	"regexp"
	"strings"
)

const (
	// DefaultReservedVar is the loop variable of the string reconstruction expression.
	DefaultReservedVar = "__RSV"
	// DefaultBuiltinsConst names the pooled "builtins" module string in debug output.
	DefaultBuiltinsConst = "__B"
	// DefaultNameFiller is repeated to form generated names.
	DefaultNameFiller = "_"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options controls how source is rewritten.
type Options struct {
	// UseHexStrings emits strings as escaped literals instead of character arrays.
	UseHexStrings bool
	// ObfuscateBuiltins routes built-in names through getattr(__import__(...)).
	ObfuscateBuiltins bool
	// RemoveComments drops comments instead of passing them through.
	RemoveComments bool
	// ForceNoHeader inlines every expression instead of hoisting constants.
	ForceNoHeader bool

	ReservedVar   string
	BuiltinsConst string
	NameFiller    string

	// Replacements maps whole symbols to fixed expressions.
	Replacements map[string]string
	// ExtraReserved and ExtraBuiltins extend the Python tables.
	ExtraReserved []string
	ExtraBuiltins []string
}

// Default returns the options of a plain run.
func Default() Options {
	return Options{
		RemoveComments: true,
		ReservedVar:    DefaultReservedVar,
		BuiltinsConst:  DefaultBuiltinsConst,
		NameFiller:     DefaultNameFiller,
		Replacements:   DefaultReplacements(),
	}
}

// Validate checks the internal names are usable as Python identifiers.
func (o Options) Validate() error {
	if !identPattern.MatchString(o.ReservedVar) {
		return fmt.Errorf("reserved_var %q is not a valid identifier", o.ReservedVar)
	}
	if !identPattern.MatchString(o.BuiltinsConst) {
		return fmt.Errorf("builtins_const %q is not a valid identifier", o.BuiltinsConst)
	}
	if len(o.NameFiller) != 1 || !identPattern.MatchString(o.NameFiller) {
		return fmt.Errorf("name_filler %q must be a single letter or underscore", o.NameFiller)
	}

	// Generated names are runs of the filler; none of them may spell a name
	// that is kept as is.
	kept := map[string]string{
		o.ReservedVar:   "reserved_var",
		o.BuiltinsConst: "builtins_const",
	}
	for _, name := range Keywords {
		kept[name] = "keyword"
	}
	for _, name := range Builtins {
		kept[name] = "built-in"
	}
	for _, name := range o.ExtraReserved {
		kept[name] = "extra_reserved entry"
	}
	for _, name := range o.ExtraBuiltins {
		kept[name] = "extra_builtins entry"
	}
	for name, what := range kept {
		if name != "" && strings.Trim(name, o.NameFiller) == "" {
			return fmt.Errorf("name_filler %q collides with %s %q", o.NameFiller, what, name)
		}
	}
	for _, name := range o.ExtraReserved {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("extra_reserved entry %q is not a valid identifier", name)
		}
	}
	for _, name := range o.ExtraBuiltins {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("extra_builtins entry %q is not a valid identifier", name)
		}
	}
	return nil
}

// Clone returns a copy that shares no maps or slices with o.
func (o Options) Clone() Options {
	c := o
	c.Replacements = maps.Clone(o.Replacements)
	c.ExtraReserved = append([]string(nil), o.ExtraReserved...)
	c.ExtraBuiltins = append([]string(nil), o.ExtraBuiltins...)
	return c
}

// Tables is the lookup form of the keyword and built-in lists.
type Tables struct {
	Reserved map[string]bool
	Builtins map[string]bool
	Imports  map[string]bool
}

// Tables builds the lookup sets for o.
func (o Options) Tables() Tables {
	t := Tables{
		Reserved: make(map[string]bool, len(Keywords)+len(o.ExtraReserved)),
		Builtins: make(map[string]bool, len(Builtins)+len(o.ExtraBuiltins)),
		Imports:  make(map[string]bool, len(ImportKeywords)),
	}
	for _, k := range Keywords {
		t.Reserved[k] = true
	}
	for _, k := range o.ExtraReserved {
		t.Reserved[k] = true
	}
	for _, b := range Builtins {
		t.Builtins[b] = true
	}
	for _, b := range o.ExtraBuiltins {
		t.Builtins[b] = true
	}
	for _, k := range ImportKeywords {
		t.Imports[k] = true
	}
	return t
}
