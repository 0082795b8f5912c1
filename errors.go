package modelsolver

import "github.com/vk/modelsolver/internal/solveerr"

// Error kinds. Every error returned by this package unwraps to one of these.
var (
	ErrSyntax        = solveerr.ErrSyntax
	ErrUnsupported   = solveerr.ErrUnsupported
	ErrConfig        = solveerr.ErrConfig
	ErrStructure     = solveerr.ErrStructure
	ErrMissingColumn = solveerr.ErrMissingColumn
	ErrNonNumeric    = solveerr.ErrNonNumeric
	ErrIndex         = solveerr.ErrIndex
	ErrConvergence   = solveerr.ErrConvergence
	ErrEvaluation    = solveerr.ErrEvaluation
)

// Typed errors carrying the context of a failure.
type (
	EquationError    = solveerr.EquationError
	ModelError       = solveerr.ModelError
	DataError        = solveerr.DataError
	IndexError       = solveerr.IndexError
	ConvergenceError = solveerr.ConvergenceError
	EvaluationError  = solveerr.EvaluationError
)
