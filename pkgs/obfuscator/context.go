// Package obfuscator rewrites Python source so it runs the same but reads
// as noise. A Context owns the rename table and the constant pool of one
// run; RewriteLine handles a single line and ObfuscateSource a whole file.
package obfuscator

import (
	"log/slog"

	"github.com/aledsdavies/pyfog/pkgs/config"
	"github.com/aledsdavies/pyfog/pkgs/encoder"
	"github.com/aledsdavies/pyfog/pkgs/invariant"
	"github.com/aledsdavies/pyfog/pkgs/lexer"
	"github.com/aledsdavies/pyfog/pkgs/naming"
	"github.com/aledsdavies/pyfog/pkgs/pool"
	"github.com/aledsdavies/pyfog/pkgs/rename"
)

// Context is the mutable state of one obfuscation run. It is not safe for
// concurrent use.
type Context struct {
	opts   config.Options
	tables config.Tables

	namer   *naming.Namer
	renames *rename.Table
	pool    *pool.Pool
	enc     *encoder.Encoder

	// hoisted holds the reference each string placeholder resolves to
	hoisted []string

	logger *slog.Logger
}

// Option configures a Context.
type Option func(*Context)

// WithLogger routes debug events of the run to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a fresh context for opts. The options must pass
// config.Options.Validate.
func New(opts config.Options, options ...Option) *Context {
	err := opts.Validate()
	invariant.Precondition(err == nil, "invalid options: %v", err)

	c := &Context{
		opts:   opts.Clone(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		opt(c)
	}

	c.tables = c.opts.Tables()
	c.namer = naming.New(c.opts.NameFiller)
	c.renames = rename.New(c.namer, c.logger)

	poolOpts := []pool.Option{pool.WithLogger(c.logger)}
	if c.opts.ForceNoHeader {
		poolOpts = append(poolOpts, pool.Disabled())
	}
	c.pool = pool.New(c.namer, poolOpts...)
	c.enc = encoder.New(c.pool, encoder.Options{
		HexStrings:  c.opts.UseHexStrings,
		ReservedVar: c.opts.ReservedVar,
	})
	return c
}

// Options returns the options the context was created with.
func (c *Context) Options() config.Options {
	return c.opts
}

// Renames exposes the rename table, for debug output and symbol maps.
func (c *Context) Renames() *rename.Table {
	return c.renames
}

// Pool exposes the constant pool, for debug output and symbol maps.
func (c *Context) Pool() *pool.Pool {
	return c.pool
}

// NamesIssued reports how many generated names the run has handed out,
// renames and pool entries together.
func (c *Context) NamesIssued() int {
	return c.namer.Issued()
}

// keepsName reports whether an identifier must survive unrenamed.
func (c *Context) keepsName(name string) bool {
	switch {
	case c.tables.Reserved[name]:
		return true
	case name == c.opts.ReservedVar, name == c.opts.BuiltinsConst:
		return true
	}
	return lexer.IsDunder(name)
}
