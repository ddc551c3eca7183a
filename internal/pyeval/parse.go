package pyeval

import (
	"fmt"
	"math/big"
	"strings"
)

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == text
}

func (p *parser) expectOp(text string) error {
	t := p.next()
	if t.kind != tokOp || t.text != text {
		return fmt.Errorf("offset %d: expected %q, got %q", t.pos, text, t.text)
	}
	return nil
}

func (p *parser) expectName(want string) (string, error) {
	t := p.next()
	if t.kind != tokName || (want != "" && t.text != want) {
		return "", fmt.Errorf("offset %d: expected name %q, got %q", t.pos, want, t.text)
	}
	return t.text, nil
}

// Eval evaluates a single expression against env.
func Eval(expr string, env Env) (Value, error) {
	toks, err := lex(expr)
	if err != nil {
		return Value{}, err
	}
	p := &parser{toks: toks}
	n, err := p.expr()
	if err != nil {
		return Value{}, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return Value{}, fmt.Errorf("offset %d: trailing %q", t.pos, t.text)
	}
	return n.eval(env)
}

// Exec runs `name=expr` statements separated by ';' or newlines, binding
// into env. Bare expression statements are evaluated and discarded.
func Exec(src string, env Env) error {
	toks, err := lex(src)
	if err != nil {
		return err
	}
	p := &parser{toks: toks}
	for p.peek().kind != tokEOF {
		if p.isOp(";") || p.isOp("\n") {
			p.next()
			continue
		}
		target := ""
		if p.peek().kind == tokName && p.toks[p.pos+1].kind == tokOp && p.toks[p.pos+1].text == "=" {
			target = p.next().text
			p.next()
		}
		n, err := p.expr()
		if err != nil {
			return err
		}
		v, err := n.eval(env)
		if err != nil {
			return err
		}
		if target != "" {
			env[target] = v
		}
		if t := p.peek(); t.kind != tokEOF && !p.isOp(";") && !p.isOp("\n") {
			return fmt.Errorf("offset %d: unexpected %q after statement", t.pos, t.text)
		}
	}
	return nil
}

func (p *parser) expr() (node, error) {
	l, err := p.shift()
	if err != nil {
		return nil, err
	}
	for p.isOp("==") {
		p.next()
		r, err := p.shift()
		if err != nil {
			return nil, err
		}
		l = binary{op: "==", l: l, r: r}
	}
	return l, nil
}

func (p *parser) shift() (node, error) {
	l, err := p.arith()
	if err != nil {
		return nil, err
	}
	for p.isOp("<<") || p.isOp(">>") {
		op := p.next().text
		r, err := p.arith()
		if err != nil {
			return nil, err
		}
		l = binary{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) arith() (node, error) {
	l, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.next().text
		r, err := p.term()
		if err != nil {
			return nil, err
		}
		l = binary{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) term() (node, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") {
		p.next()
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = binary{op: "*", l: l, r: r}
	}
	return l, nil
}

func (p *parser) unary() (node, error) {
	if p.isOp("-") || p.isOp("~") {
		op := p.next().text
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unary{op: op, x: x}, nil
	}
	return p.power()
}

func (p *parser) power() (node, error) {
	base, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if p.isOp("**") {
		p.next()
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return binary{op: "**", l: base, r: exp}, nil
	}
	return base, nil
}

func (p *parser) postfix() (node, error) {
	n, err := p.atom()
	if err != nil {
		return nil, err
	}
	lit, isStr := n.(strLit)
	if !isStr || !p.isOp(".") {
		return n, nil
	}
	p.next()
	if _, err := p.expectName("join"); err != nil {
		return nil, err
	}
	return p.joinArgs(lit.s)
}

// joinArgs parses `(fn(v) for v in iter)`.
func (p *parser) joinArgs(sep string) (node, error) {
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	fn, err := p.expectName("")
	if err != nil {
		return nil, err
	}
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	v, err := p.expectName("")
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	if _, err := p.expectName("for"); err != nil {
		return nil, err
	}
	if _, err := p.expectName(v); err != nil {
		return nil, err
	}
	if _, err := p.expectName("in"); err != nil {
		return nil, err
	}
	iter, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return join{sep: sep, fn: fn, v: v, iter: iter}, nil
}

func (p *parser) atom() (node, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		v, _ := new(big.Int).SetString(t.text, 10)
		return intLit{v: v}, nil
	case tokString:
		return strLit{s: t.text}, nil
	case tokFString:
		return parseFString(t.text)
	case tokName:
		if !p.isOp("(") {
			return nameRef{name: t.text}, nil
		}
		p.next()
		var args []node
		for !p.isOp(")") {
			a, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if !p.isOp(",") {
				break
			}
			p.next()
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		return call{fn: t.text, args: args}, nil
	case tokOp:
		switch t.text {
		case "(":
			if p.isOp(")") {
				p.next()
				return emptyTup{}, nil
			}
			inner, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return inner, nil
		case "[":
			var items []node
			for !p.isOp("]") {
				item, err := p.expr()
				if err != nil {
					return nil, err
				}
				items = append(items, item)
				if !p.isOp(",") {
					break
				}
				p.next()
			}
			if err := p.expectOp("]"); err != nil {
				return nil, err
			}
			return listLit{items: items}, nil
		}
	}
	return nil, fmt.Errorf("offset %d: unexpected %q", t.pos, t.text)
}

// parseFString splits an f-string body into literal text and replacement
// fields. Fields may carry a !r or !s conversion; format specs and nested
// braces are not supported.
func parseFString(body string) (node, error) {
	var (
		parts []fpart
		lit   strings.Builder
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case (c == '{' || c == '}') && i+1 < len(body) && body[i+1] == c:
			lit.WriteByte(c)
			i++
		case c == '{':
			end := strings.IndexByte(body[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated replacement field in f-string")
			}
			field := strings.TrimSpace(body[i+1 : i+end])
			var conv byte
			if n := len(field); n >= 2 && field[n-2] == '!' {
				conv, field = field[n-1], field[:n-2]
			}
			toks, err := lex(field)
			if err != nil {
				return nil, err
			}
			p := &parser{toks: toks}
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			if t := p.peek(); t.kind != tokEOF {
				return nil, fmt.Errorf("f-string field %q: trailing %q", field, t.text)
			}
			parts = append(parts, fpart{lit: lit.String()}, fpart{expr: x, conv: conv})
			lit.Reset()
			i += end
		default:
			lit.WriteByte(c)
		}
	}
	parts = append(parts, fpart{lit: lit.String()})
	return fstring{parts: parts}, nil
}
