// Package plan builds the solve plan of a model: the table of endogenous
// variables with their equations, the same-period dependency graph, and the
// ordered sequence of blocks the solver walks through in every period.
//
// A Plan is an immutable value. Re-partitioning a model builds a new Plan
// from scratch and swaps it in; nothing is patched in place.
package plan

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vk/modelsolver/internal/dag"
	"github.com/vk/modelsolver/internal/equation"
	"github.com/vk/modelsolver/internal/solveerr"
)

// Block is a set of endogenous variables solved together.
type Block struct {
	// Vars holds indices into the plan's variable table, in equation order.
	Vars []int
	// Simultaneous is set for blocks that need iteration: more than one
	// variable, or a single variable reading itself in the same period.
	Simultaneous bool
}

// Plan is the immutable solve plan.
type Plan struct {
	vars    []string
	eqs     []*equation.Equation
	index   map[string]int
	graph   *dag.Graph
	blocks  []Block
	maxLag  int
	maxLead int
}

// Build creates the plan for the given equations, one per endogenous
// variable, in the order supplied. The order is the tie-breaker for blocks
// that do not depend on each other.
func Build(eqs []*equation.Equation) (*Plan, error) {
	p := &Plan{
		eqs:   slices.Clone(eqs),
		index: make(map[string]int, len(eqs)),
		graph: dag.New(),
	}

	for i, eq := range eqs {
		if _, dup := p.index[eq.LHS]; dup {
			return nil, solveerr.Structure("variable defined by more than one equation", eq.LHS)
		}
		p.index[eq.LHS] = i
		p.vars = append(p.vars, eq.LHS)
		p.graph.AddNode(eq.LHS)

		lag, lead := eq.Window()
		p.maxLag = max(p.maxLag, lag)
		p.maxLead = max(p.maxLead, lead)
	}

	// Edges only for same-period references to endogenous variables; every
	// other name is an exogenous leaf and never becomes a node.
	for _, eq := range eqs {
		for _, name := range eq.SamePeriod() {
			if !p.graph.Has(name) {
				continue
			}
			if err := p.graph.AddEdge(name, eq.LHS); err != nil {
				return nil, fmt.Errorf("linking %s -> %s: %w", name, eq.LHS, err)
			}
		}
	}

	for _, comp := range p.graph.Components() {
		b := Block{Vars: make([]int, len(comp))}
		for i, name := range comp {
			b.Vars[i] = p.index[name]
		}
		slices.Sort(b.Vars)
		b.Simultaneous = len(comp) > 1 || p.graph.HasSelfLoop(comp[0])
		p.blocks = append(p.blocks, b)
	}

	return p, nil
}

// Vars returns the endogenous variables in equation order.
func (p *Plan) Vars() []string {
	return slices.Clone(p.vars)
}

// Var returns the name of variable i.
func (p *Plan) Var(i int) string {
	return p.vars[i]
}

// Equation returns the equation defining variable i.
func (p *Plan) Equation(i int) *equation.Equation {
	return p.eqs[i]
}

// Index returns the position of an endogenous variable.
func (p *Plan) Index(name string) (int, bool) {
	i, ok := p.index[name]
	return i, ok
}

// IsEndogenous reports whether the plan solves for name.
func (p *Plan) IsEndogenous(name string) bool {
	_, ok := p.index[name]
	return ok
}

// NumBlocks returns the number of blocks.
func (p *Plan) NumBlocks() int {
	return len(p.blocks)
}

// Block returns block i, counted from zero in solve order.
func (p *Plan) Block(i int) Block {
	b := p.blocks[i]
	return Block{Vars: slices.Clone(b.Vars), Simultaneous: b.Simultaneous}
}

// BlockVars returns the names of the variables of block i.
func (p *Plan) BlockVars(i int) []string {
	names := make([]string, len(p.blocks[i].Vars))
	for j, v := range p.blocks[i].Vars {
		names[j] = p.vars[v]
	}
	return names
}

// Window returns the largest lag and lead referenced by any equation.
func (p *Plan) Window() (lag, lead int) {
	return p.maxLag, p.maxLead
}

// Required returns every variable a dataset must provide: the endogenous
// variables followed by the other referenced names, in order of appearance.
func (p *Plan) Required() []string {
	names := slices.Clone(p.vars)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, eq := range p.eqs {
		for _, r := range eq.Refs {
			if !seen[r.Name] {
				seen[r.Name] = true
				names = append(names, r.Name)
			}
		}
	}
	return names
}

// Leaves walks the same-period dependency chain of block i back to the
// values that are known before the period is solved: exogenous variables at
// any offset, and endogenous variables at a non-zero offset. The result is
// sorted by name, then offset.
func (p *Plan) Leaves(i int) []equation.Ref {
	visited := make(map[int]bool)
	queue := slices.Clone(p.blocks[i].Vars)
	for _, v := range queue {
		visited[v] = true
	}

	seen := make(map[equation.Ref]bool)
	var leaves []equation.Ref
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]

		// Every plan variable is a graph node, so the lookup cannot fail.
		deps, _ := p.graph.Dependencies(p.vars[v])
		for _, name := range deps {
			if j, ok := p.Index(name); ok && !visited[j] {
				visited[j] = true
				queue = append(queue, j)
			}
		}

		for _, r := range p.eqs[v].Refs {
			if r.Offset == 0 && p.IsEndogenous(r.Name) {
				continue
			}
			if !seen[r] {
				seen[r] = true
				leaves = append(leaves, r)
			}
		}
	}

	slices.SortFunc(leaves, func(a, b equation.Ref) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return a.Offset - b.Offset
	})
	return leaves
}

// String renders the blocks in solve order with their equations.
func (p *Plan) String() string {
	var sb strings.Builder
	for i, b := range p.blocks {
		kind := "sequential"
		if b.Simultaneous {
			kind = "simultaneous"
		}
		fmt.Fprintf(&sb, "block %d [%s]: %s\n", i+1, kind, strings.Join(p.BlockVars(i), ", "))
		for _, v := range b.Vars {
			fmt.Fprintf(&sb, "  %s\n", p.eqs[v])
		}
	}
	return sb.String()
}
