// Package equation turns equation strings into an evaluable form.
//
// An equation is `name = expression` where the expression uses numeric
// literals, variable references, the operators + - * / ^ (** is accepted as
// a synonym for ^) and the functions log, exp, abs, min and max. A reference
// may carry a period offset: x[-1] is the previous period, x[+1] the next.
//
// Parsing is delegated to the expr-lang parser and its syntax tree is lowered
// into the small Expr tree defined here, which is then evaluated by a tiny
// interpreter against an Env.
package equation

import (
	"fmt"
)

// Ref is a variable read at a period offset relative to the period being
// solved. Offset 0 is the same period, negative offsets are lags.
type Ref struct {
	Name   string
	Offset int
}

func (r Ref) String() string {
	if r.Offset == 0 {
		return r.Name
	}
	return fmt.Sprintf("%s[%+d]", r.Name, r.Offset)
}

// Equation is a parsed, immutable equation.
type Equation struct {
	Source string // as supplied by the caller
	LHS    string
	Text   string // right-hand side source, trimmed
	RHS    Expr
	Refs   []Ref // unique, in order of first appearance
}

// Eval computes the right-hand side.
func (e *Equation) Eval(env Env) (float64, error) {
	return e.RHS.Eval(env)
}

// SamePeriod returns the names referenced at offset 0.
func (e *Equation) SamePeriod() []string {
	var names []string
	for _, r := range e.Refs {
		if r.Offset == 0 {
			names = append(names, r.Name)
		}
	}
	return names
}

// Window reports the largest lag and the largest lead referenced, both as
// non-negative numbers of periods.
func (e *Equation) Window() (lag, lead int) {
	for _, r := range e.Refs {
		if r.Offset < 0 {
			lag = max(lag, -r.Offset)
		} else {
			lead = max(lead, r.Offset)
		}
	}
	return lag, lead
}

func (e *Equation) String() string {
	return e.LHS + " = " + e.Text
}
