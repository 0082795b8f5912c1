package dag

import "sync"

// Graph is a collection of nodes and their same-period dependencies. Unlike a
// strict DAG it may contain cycles, including self-loops: cycles are what the
// component decomposition exists to find.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// order lists node IDs in insertion order. It drives every deterministic
	// iteration over the graph.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	// id is the unique identifier for the node.
	id string
	// seq is the insertion position, used for tie-breaking.
	seq int
	// selfLoop is set when the node depends on itself.
	selfLoop bool
	// deps holds the set of nodes that this node depends on (predecessors).
	deps map[string]*node
}
