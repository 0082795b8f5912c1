// Package dag holds the same-period dependency graph between endogenous
// variables and decomposes it into solvable components.
//
// An edge from A to B records that B's equation reads A in the same period.
// Lagged and lead references never become edges: their values are already
// known when a period is solved.
//
// The graph is allowed to be cyclic. Components returns the strongly connected
// components in dependency order; a component with more than one member, or a
// single member with a self-loop, is a set of simultaneous equations.
package dag
