// Package modelsolver solves systems of simultaneous equations over a
// period-indexed dataset.
//
// A model is a list of equations, one per endogenous variable:
//
//	m, err := modelsolver.New(
//		[]string{"c = 0.6 * y + 10", "i = 0.2 * y[-1] + r", "y = c + i + g"},
//		[]string{"c", "i", "y"},
//	)
//
// At construction the equations are parsed, the same-period dependency graph
// between endogenous variables is built, and the graph is split into blocks
// of mutually dependent variables. SolveModel then walks the dataset period
// by period, evaluating single-variable blocks directly and iterating
// simultaneous blocks Gauss-Seidel style until they converge.
//
// Errors unwrap to one of the Err* kinds declared in this package and can be
// inspected further with errors.As on the typed errors.
//
// A ModelSolver is safe for concurrent use, but a dataset must not be solved
// by more than one call at a time.
package modelsolver
