// Package solveerr defines the error taxonomy shared by the parser, the plan
// builder, the solver and the public facade.
//
// Every failure is reported as one of the typed errors below. Each typed error
// unwraps to exactly one sentinel kind, so callers branch with errors.Is on the
// kind and use errors.As when they need the context (column, block, period).
package solveerr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds.
var (
	// ErrSyntax indicates a malformed equation (wrong assignment operator,
	// comparison or boolean operators, unparseable expression).
	ErrSyntax = errors.New("invalid equation syntax")

	// ErrUnsupported indicates an equation using a function or operator
	// outside the supported set.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrConfig indicates inconsistent model or solver configuration, such
	// as a mismatch between equation and endogenous counts.
	ErrConfig = errors.New("invalid model configuration")

	// ErrStructure indicates an inconsistent endogenous/exogenous partition.
	ErrStructure = errors.New("invalid model structure")

	// ErrMissingColumn indicates a variable absent from the dataset.
	ErrMissingColumn = errors.New("missing column")

	// ErrNonNumeric indicates a dataset column holding non-numeric values.
	ErrNonNumeric = errors.New("non-numeric data")

	// ErrIndex indicates an out-of-range block number or period index.
	ErrIndex = errors.New("index out of range")

	// ErrConvergence indicates a simultaneous block that did not reach the
	// tolerance within the iteration cap.
	ErrConvergence = errors.New("convergence failure")

	// ErrEvaluation indicates an equation producing a non-finite value.
	ErrEvaluation = errors.New("numerical evaluation failure")
)

// EquationError reports a problem with a single equation string.
type EquationError struct {
	Kind     error  // ErrSyntax or ErrUnsupported
	Equation string // Source text as supplied
	Detail   string
}

func (e *EquationError) Error() string {
	return fmt.Sprintf("%v in %q: %s", e.Kind, e.Equation, e.Detail)
}

func (e *EquationError) Unwrap() error {
	return e.Kind
}

// Syntax creates an EquationError of kind ErrSyntax.
func Syntax(equation, format string, args ...any) *EquationError {
	return &EquationError{Kind: ErrSyntax, Equation: equation, Detail: fmt.Sprintf(format, args...)}
}

// Unsupported creates an EquationError of kind ErrUnsupported.
func Unsupported(equation, format string, args ...any) *EquationError {
	return &EquationError{Kind: ErrUnsupported, Equation: equation, Detail: fmt.Sprintf(format, args...)}
}

// ModelError reports configuration and structural problems found while
// building or re-partitioning a model.
type ModelError struct {
	Kind      error // ErrConfig or ErrStructure
	Message   string
	Variables []string
}

func (e *ModelError) Error() string {
	if len(e.Variables) == 0 {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Message, strings.Join(e.Variables, ", "))
}

func (e *ModelError) Unwrap() error {
	return e.Kind
}

// Config creates a ModelError of kind ErrConfig.
func Config(message string, vars ...string) *ModelError {
	return &ModelError{Kind: ErrConfig, Message: message, Variables: vars}
}

// Structure creates a ModelError of kind ErrStructure.
func Structure(message string, vars ...string) *ModelError {
	return &ModelError{Kind: ErrStructure, Message: message, Variables: vars}
}

// DataError reports a dataset that cannot feed the model.
type DataError struct {
	Kind   error // ErrMissingColumn or ErrNonNumeric
	Column string
	Row    int // -1 when the whole column is affected
	Detail string
}

func (e *DataError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%v: column %q: %s", e.Kind, e.Column, e.Detail)
	}
	return fmt.Sprintf("%v: column %q, row %d: %s", e.Kind, e.Column, e.Row, e.Detail)
}

func (e *DataError) Unwrap() error {
	return e.Kind
}

// MissingColumn creates a DataError of kind ErrMissingColumn.
func MissingColumn(column string) *DataError {
	return &DataError{Kind: ErrMissingColumn, Column: column, Row: -1, Detail: "variable is not present in the dataset"}
}

// NonNumeric creates a DataError of kind ErrNonNumeric.
func NonNumeric(column string, row int, typeName string) *DataError {
	return &DataError{Kind: ErrNonNumeric, Column: column, Row: row, Detail: "expected number, got " + typeName}
}

// IndexError reports an index outside the half-open range [Low, High).
type IndexError struct {
	What  string // "block" or "period"
	Index int
	Low   int
	High  int
}

func (e *IndexError) Error() string {
	if e.High <= e.Low {
		return fmt.Sprintf("%v: %s %d requested, but no %ss are available", ErrIndex, e.What, e.Index, e.What)
	}
	return fmt.Sprintf("%v: %s %d not in [%d, %d)", ErrIndex, e.What, e.Index, e.Low, e.High)
}

func (e *IndexError) Unwrap() error {
	return ErrIndex
}

// ConvergenceError reports a simultaneous block that kept changing after the
// iteration cap was reached.
type ConvergenceError struct {
	Block       int // 1-based
	Period      int
	PeriodLabel string
	Iterations  int
	Residual    float64 // largest relative change in the final sweep
	Tolerance   float64
	Variables   []string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%v: block %d (%s) at period %s (row %d): residual %.6g above tolerance %.3g after %d iterations",
		ErrConvergence, e.Block, strings.Join(e.Variables, ", "), e.PeriodLabel, e.Period, e.Residual, e.Tolerance, e.Iterations)
}

func (e *ConvergenceError) Unwrap() error {
	return ErrConvergence
}

// EvaluationError reports an equation that produced NaN or an infinity.
type EvaluationError struct {
	Variable    string
	Period      int
	PeriodLabel string
	Value       float64
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%v: %s evaluated to %v at period %s (row %d)", ErrEvaluation, e.Variable, e.Value, e.PeriodLabel, e.Period)
}

func (e *EvaluationError) Unwrap() error {
	return ErrEvaluation
}
