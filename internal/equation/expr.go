package equation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Env resolves variable references during evaluation.
type Env interface {
	Value(ref Ref) (float64, error)
}

// Expr is a node of the right-hand side expression tree.
type Expr interface {
	Eval(env Env) (float64, error)
	String() string
	visitRefs(fn func(Ref))
}

// Literal is a numeric constant.
type Literal struct {
	Value float64
}

// VarRef reads a variable at a period offset.
type VarRef struct {
	Ref Ref
}

// Unary applies a sign to its operand. Op is '-' or '+'.
type Unary struct {
	Op byte
	X  Expr
}

// Binary is one of + - * / ^.
type Binary struct {
	Op   byte
	L, R Expr
}

// Call invokes a whitelisted function.
type Call struct {
	Fn   string
	Args []Expr
}

func (l *Literal) Eval(Env) (float64, error) { return l.Value, nil }
func (l *Literal) String() string           { return strconv.FormatFloat(l.Value, 'g', -1, 64) }
func (l *Literal) visitRefs(func(Ref))      {}

func (v *VarRef) Eval(env Env) (float64, error) { return env.Value(v.Ref) }
func (v *VarRef) String() string                 { return v.Ref.String() }
func (v *VarRef) visitRefs(fn func(Ref))         { fn(v.Ref) }

func (u *Unary) Eval(env Env) (float64, error) {
	x, err := u.X.Eval(env)
	if err != nil {
		return 0, err
	}
	if u.Op == '-' {
		return -x, nil
	}
	return x, nil
}

func (u *Unary) String() string         { return string(u.Op) + u.X.String() }
func (u *Unary) visitRefs(fn func(Ref)) { u.X.visitRefs(fn) }

func (b *Binary) Eval(env Env) (float64, error) {
	l, err := b.L.Eval(env)
	if err != nil {
		return 0, err
	}
	r, err := b.R.Eval(env)
	if err != nil {
		return 0, err
	}
	switch b.Op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		return l / r, nil
	case '^':
		return math.Pow(l, r), nil
	}
	return 0, fmt.Errorf("unknown binary operator %q", b.Op)
}

func (b *Binary) String() string {
	return "(" + b.L.String() + " " + string(b.Op) + " " + b.R.String() + ")"
}

func (b *Binary) visitRefs(fn func(Ref)) {
	b.L.visitRefs(fn)
	b.R.visitRefs(fn)
}

func (c *Call) Eval(env Env) (float64, error) {
	args := make([]float64, len(c.Args))
	for i, a := range c.Args {
		v, err := a.Eval(env)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	fn, ok := functions[c.Fn]
	if !ok {
		return 0, fmt.Errorf("unknown function %q", c.Fn)
	}
	return fn.apply(args), nil
}

func (c *Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return c.Fn + "(" + strings.Join(parts, ", ") + ")"
}

func (c *Call) visitRefs(fn func(Ref)) {
	for _, a := range c.Args {
		a.visitRefs(fn)
	}
}

type function struct {
	minArgs int
	maxArgs int // -1 for variadic
	apply   func(args []float64) float64
}

var functions = map[string]function{
	"log": {1, 1, func(a []float64) float64 { return math.Log(a[0]) }},
	"exp": {1, 1, func(a []float64) float64 { return math.Exp(a[0]) }},
	"abs": {1, 1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"min": {2, -1, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m
	}},
	"max": {2, -1, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m
	}},
}

// Functions returns the names of the supported functions.
func Functions() []string {
	return []string{"abs", "exp", "log", "max", "min"}
}
