package dag

import "slices"

// tarjan finds the strongly connected components of the graph, following
// edges from a node to its dependencies.
//
// Components are emitted dependencies-first: a component appears after every
// component it can reach. Members of a component are in insertion order.
// The caller must hold the read lock.
func (g *Graph) tarjan() [][]string {
	var (
		index   = 0
		stack   []*node
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(*node)
	strongConnect = func(v *node) {
		indices[v.id] = index
		lowlink[v.id] = index
		index++
		stack = append(stack, v)
		onStack[v.id] = true

		for _, id := range sortedIDs(v.deps) {
			w := g.nodes[id]
			if _, visited := indices[w.id]; !visited {
				strongConnect(w)
				lowlink[v.id] = min(lowlink[v.id], lowlink[w.id])
			} else if onStack[w.id] {
				lowlink[v.id] = min(lowlink[v.id], indices[w.id])
			}
		}

		// v is a root node: pop the stack and emit a component.
		if lowlink[v.id] == indices[v.id] {
			var scc []*node
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w.id] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.SortFunc(scc, func(a, b *node) int { return a.seq - b.seq })
			ids := make([]string, len(scc))
			for i, n := range scc {
				ids[i] = n.id
			}
			sccs = append(sccs, ids)
		}
	}

	for _, id := range g.order {
		if _, visited := indices[id]; !visited {
			strongConnect(g.nodes[id])
		}
	}

	return sccs
}

// Components returns the strongly connected components in a topological order
// of the condensation graph: every component comes after all components it
// depends on. Among components that are ready at the same time, the one whose
// earliest member was inserted first is taken first, so the order is fully
// determined by insertion order.
func (g *Graph) Components() [][]string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	sccs := g.tarjan()

	compOf := make(map[string]int, len(g.nodes))
	for ci, scc := range sccs {
		for _, id := range scc {
			compOf[id] = ci
		}
	}

	// Count distinct upstream components and collect downstream ones.
	pending := make([]int, len(sccs))
	downstream := make([]map[int]bool, len(sccs))
	for ci, scc := range sccs {
		upstream := make(map[int]bool)
		for _, id := range scc {
			for depID := range g.nodes[id].deps {
				if dc := compOf[depID]; dc != ci {
					upstream[dc] = true
				}
			}
		}
		pending[ci] = len(upstream)
		for dc := range upstream {
			if downstream[dc] == nil {
				downstream[dc] = make(map[int]bool)
			}
			downstream[dc][ci] = true
		}
	}

	// first member seq of each component; members are sorted already.
	firstSeq := func(ci int) int { return g.nodes[sccs[ci][0]].seq }

	var ready []int
	for ci := range sccs {
		if pending[ci] == 0 {
			ready = append(ready, ci)
		}
	}

	ordered := make([][]string, 0, len(sccs))
	for len(ready) > 0 {
		best := 0
		for i := 1; i < len(ready); i++ {
			if firstSeq(ready[i]) < firstSeq(ready[best]) {
				best = i
			}
		}
		ci := ready[best]
		ready = slices.Delete(ready, best, best+1)
		ordered = append(ordered, sccs[ci])

		for next := range downstream[ci] {
			pending[next]--
			if pending[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	return ordered
}
