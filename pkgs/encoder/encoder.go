// Package encoder turns integer and string literals into Python expressions
// that evaluate to the same value without containing the literal.
//
// Integers are built from two canonical comparisons, () == () (True) and
// () == [] (False), which coerce to 1 and 0 under addition. Everything else is
// a sum of powers of two, each power derived by shifting the previous one,
// with intermediate powers hoisted into the constant pool.
package encoder

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/aledsdavies/pyfog/pkgs/invariant"
	"github.com/aledsdavies/pyfog/pkgs/pool"
)

const (
	// ZeroExpr is False + False.
	ZeroExpr = "((()==[])+(()==[]))"
	// OneExpr is True + False.
	OneExpr = "((()==())+(()==[]))"
)

var (
	bigZero = big.NewInt(0)
	bigOne  = big.NewInt(1)
)

// Options configures an Encoder.
type Options struct {
	// HexStrings emits escaped string literals instead of character arrays.
	HexStrings bool
	// ReservedVar is the loop variable of the character-array reconstruction.
	ReservedVar string
}

// Encoder produces literal expressions, memoizing through a constant pool.
type Encoder struct {
	pool *pool.Pool
	opts Options
}

// New creates an encoder backed by p.
func New(p *pool.Pool, opts Options) *Encoder {
	invariant.NotNil(p, "pool")
	if opts.ReservedVar == "" {
		opts.ReservedVar = "__RSV"
	}
	return &Encoder{pool: p, opts: opts}
}

// Int64 is Int for machine integers.
func (e *Encoder) Int64(n int64, memoize bool) string {
	return e.Int(big.NewInt(n), memoize)
}

// Literal encodes a decimal digit string. ok is false if it is not one.
func (e *Encoder) Literal(decimal string, memoize bool) (expr string, ok bool) {
	n, ok := new(big.Int).SetString(decimal, 10)
	if !ok {
		return "", false
	}
	return e.Int(n, memoize), true
}

// Int returns an expression evaluating to n. With memoize the final
// expression is stored in the pool under n, so later uses share one name.
func (e *Encoder) Int(n *big.Int, memoize bool) string {
	if n.Sign() < 0 {
		abs := new(big.Int).Neg(n)
		return "((" + e.Int(bigZero, false) + "-" + e.Int(bigOne, false) + ")*" + e.Int(abs, memoize) + ")"
	}

	key := pool.Int(n.String())
	if name, ok := e.pool.Lookup(key); ok {
		return name
	}

	switch {
	case n.Sign() == 0:
		return ZeroExpr
	case n.Cmp(bigOne) == 0:
		return OneExpr
	}

	e.seed()

	var terms []string
	for k := 0; k < n.BitLen(); k++ {
		if n.Bit(k) == 1 {
			terms = append(terms, e.powerOfTwo(k))
		}
	}

	expr := terms[0]
	if len(terms) > 1 {
		expr = "(" + strings.Join(terms, "+") + ")"
	}
	invariant.Postcondition(!strings.ContainsAny(expr, "0123456789"), "encoding of %s leaks a digit: %s", n, expr)
	if memoize {
		return e.pool.Add(key, expr)
	}
	return expr
}

// seed defines 0 and 1 in the pool. Every power of two is built on the
// 1-entry, so both must exist before anything else is hoisted.
func (e *Encoder) seed() {
	if !e.pool.Enabled() {
		return
	}
	if _, ok := e.pool.Lookup(pool.Int("1")); ok {
		return
	}
	zero := e.pool.Define(pool.Int("0"), ZeroExpr)
	e.pool.Define(pool.Int("1"), "("+zero+"**"+zero+")")
}

// powerOfTwo returns a term worth 1<<k.
func (e *Encoder) powerOfTwo(k int) string {
	invariant.Precondition(k >= 0, "negative exponent %d", k)
	one := e.Int(bigOne, false)
	if k == 0 {
		return one
	}

	pow := new(big.Int).Lsh(bigOne, uint(k))
	if name, ok := e.pool.Lookup(pool.Int(pow.String())); ok {
		return name
	}
	if shift, ok := e.pool.Lookup(pool.Int(strconv.Itoa(k))); ok {
		return "(" + one + "<<" + shift + ")"
	}

	half := e.Int(new(big.Int).Lsh(bigOne, uint(k-1)), true)
	return "(" + half + "<<" + one + ")"
}

// String returns an expression evaluating to s. Hex mode wins over the
// character-array form.
func (e *Encoder) String(s string, memoize bool) string {
	key := pool.String(s)
	if memoize {
		if name, ok := e.pool.Lookup(key); ok {
			return name
		}
	}

	var expr string
	if e.opts.HexStrings {
		expr = HexLiteral(s)
	} else {
		codes := make([]string, 0, len(s))
		for _, r := range s {
			codes = append(codes, e.Int64(int64(r), false))
		}
		expr = fmt.Sprintf("str(''.join(chr(%[1]s) for %[1]s in [%[2]s]))",
			e.opts.ReservedVar, strings.Join(codes, ","))
	}

	if memoize {
		return e.pool.Add(key, expr)
	}
	return expr
}

// Builtin returns an expression that fetches a built-in function through
// getattr on the builtins module instead of naming it.
func (e *Encoder) Builtin(name string) string {
	module, ok := e.pool.Lookup(pool.Builtins)
	if !ok {
		module = e.pool.Define(pool.Builtins, e.String("builtins", false))
	}
	return "getattr(__import__(" + module + ")," + e.String(name, true) + ")"
}

// HexLiteral renders s as a single-quoted literal of fixed-width escapes.
func HexLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s)*4 + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch {
		case r <= 0xFF:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r <= 0xFFFF:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			fmt.Fprintf(&b, `\U%08x`, r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
