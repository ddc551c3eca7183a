package pyeval

import (
	"fmt"
	"math/big"
	"strings"
)

// Kind is the runtime type of a Value.
type Kind int

const (
	KindInt Kind = iota
	KindStr
	KindTuple
	KindList
	KindBuiltin
)

// Value is a Python value in the evaluated subset.
type Value struct {
	Kind Kind
	Int  *big.Int
	Str  string
	List []Value
}

// IntValue wraps n.
func IntValue(n int64) Value { return Value{Kind: KindInt, Int: big.NewInt(n)} }

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return v.Int.String()
	case KindStr:
		return fmt.Sprintf("%q", v.Str)
	case KindBuiltin:
		return "<built-in " + v.Str + ">"
	case KindTuple:
		return "()"
	default:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
}

// Env holds global bindings.
type Env map[string]Value

type node interface {
	eval(env Env) (Value, error)
}

type intLit struct{ v *big.Int }

type strLit struct{ s string }

type nameRef struct{ name string }

type emptyTup struct{}

type listLit struct{ items []node }

type unary struct {
	op string
	x  node
}

type binary struct {
	op   string
	l, r node
}

type call struct {
	fn   string
	args []node
}

// join is ''.join(chr(v) for v in iter); sep is the literal before .join.
type join struct {
	sep  string
	fn   string
	v    string
	iter node
}

// fstring is an f-string; a part is either literal text or a field.
type fstring struct{ parts []fpart }

type fpart struct {
	lit  string
	expr node
	conv byte
}

func (n fstring) eval(env Env) (Value, error) {
	var b strings.Builder
	for _, part := range n.parts {
		if part.expr == nil {
			b.WriteString(part.lit)
			continue
		}
		v, err := part.expr.eval(env)
		if err != nil {
			return Value{}, err
		}
		if part.conv == 'r' {
			b.WriteString(v.repr())
		} else {
			b.WriteString(v.str())
		}
	}
	return Value{Kind: KindStr, Str: b.String()}, nil
}

// str is Python's str() of v.
func (v Value) str() string {
	if v.Kind == KindStr {
		return v.Str
	}
	return v.String()
}

// repr is Python's repr() of v, for strings without quotes inside.
func (v Value) repr() string {
	if v.Kind == KindStr {
		return "'" + v.Str + "'"
	}
	return v.String()
}

func (n intLit) eval(Env) (Value, error) { return Value{Kind: KindInt, Int: n.v}, nil }
func (n strLit) eval(Env) (Value, error) { return Value{Kind: KindStr, Str: n.s}, nil }
func (emptyTup) eval(Env) (Value, error) { return Value{Kind: KindTuple}, nil }
func (n nameRef) eval(env Env) (Value, error) {
	v, ok := env[n.name]
	if !ok {
		return Value{}, fmt.Errorf("name %q is not defined", n.name)
	}
	return v, nil
}

func (n listLit) eval(env Env) (Value, error) {
	out := Value{Kind: KindList}
	for _, item := range n.items {
		v, err := item.eval(env)
		if err != nil {
			return Value{}, err
		}
		out.List = append(out.List, v)
	}
	return out, nil
}

func (n unary) eval(env Env) (Value, error) {
	x, err := n.x.eval(env)
	if err != nil {
		return Value{}, err
	}
	if x.Kind != KindInt {
		return Value{}, fmt.Errorf("bad operand for unary %s: %s", n.op, x)
	}
	switch n.op {
	case "-":
		return Value{Kind: KindInt, Int: new(big.Int).Neg(x.Int)}, nil
	default: // ~
		return Value{Kind: KindInt, Int: new(big.Int).Not(x.Int)}, nil
	}
}

func (n binary) eval(env Env) (Value, error) {
	l, err := n.l.eval(env)
	if err != nil {
		return Value{}, err
	}
	r, err := n.r.eval(env)
	if err != nil {
		return Value{}, err
	}
	if n.op == "==" {
		if equal(l, r) {
			return IntValue(1), nil
		}
		return IntValue(0), nil
	}
	if n.op == "+" && l.Kind == KindStr && r.Kind == KindStr {
		return Value{Kind: KindStr, Str: l.Str + r.Str}, nil
	}
	if l.Kind != KindInt || r.Kind != KindInt {
		return Value{}, fmt.Errorf("unsupported operands for %s: %s, %s", n.op, l, r)
	}
	a, b := l.Int, r.Int
	out := new(big.Int)
	switch n.op {
	case "+":
		out.Add(a, b)
	case "-":
		out.Sub(a, b)
	case "*":
		out.Mul(a, b)
	case "**":
		if b.Sign() < 0 {
			return Value{}, fmt.Errorf("negative exponent")
		}
		out.Exp(a, b, nil)
	case "<<", ">>":
		if b.Sign() < 0 || !b.IsInt64() || b.Int64() > 1<<20 {
			return Value{}, fmt.Errorf("bad shift count %s", b)
		}
		if n.op == "<<" {
			out.Lsh(a, uint(b.Int64()))
		} else {
			out.Rsh(a, uint(b.Int64()))
		}
	default:
		return Value{}, fmt.Errorf("unknown operator %s", n.op)
	}
	return Value{Kind: KindInt, Int: out}, nil
}

func equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int.Cmp(b.Int) == 0
	case KindStr, KindBuiltin:
		return a.Str == b.Str
	case KindTuple:
		return true
	default:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	}
}

func (n call) eval(env Env) (Value, error) {
	args := make([]Value, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(env)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	switch {
	case n.fn == "str" && len(args) == 1 && args[0].Kind == KindStr:
		return args[0], nil
	case n.fn == "chr" && len(args) == 1 && args[0].Kind == KindInt:
		return Value{Kind: KindStr, Str: string(rune(args[0].Int.Int64()))}, nil
	case n.fn == "__import__" && len(args) == 1 && args[0].Kind == KindStr:
		return Value{Kind: KindBuiltin, Str: args[0].Str}, nil
	case n.fn == "getattr" && len(args) == 2 && args[0].Kind == KindBuiltin && args[1].Kind == KindStr:
		return Value{Kind: KindBuiltin, Str: args[0].Str + "." + args[1].Str}, nil
	}
	return Value{}, fmt.Errorf("unsupported call %s%v", n.fn, args)
}

func (n join) eval(env Env) (Value, error) {
	it, err := n.iter.eval(env)
	if err != nil {
		return Value{}, err
	}
	if it.Kind != KindList && it.Kind != KindTuple {
		return Value{}, fmt.Errorf("cannot iterate %s", it)
	}
	parts := make([]string, 0, len(it.List))
	for _, item := range it.List {
		scope := make(Env, len(env)+1)
		for k, v := range env {
			scope[k] = v
		}
		scope[n.v] = item
		c, err := call{fn: n.fn, args: []node{nameRef{n.v}}}.eval(scope)
		if err != nil {
			return Value{}, err
		}
		parts = append(parts, c.Str)
	}
	return Value{Kind: KindStr, Str: strings.Join(parts, n.sep)}, nil
}
