package config

import (
	"fmt"

	"github.com/vk/modelsolver/internal/solveerr"
)

// Initial guesses for the variables of a simultaneous block.
const (
	// GuessPrevious starts from the value solved for the previous period,
	// falling back to the dataset value in the first solved period.
	GuessPrevious = "previous"
	// GuessDataset starts from the value already present in the dataset.
	GuessDataset = "dataset"
)

// Solver holds the iteration settings for simultaneous blocks.
type Solver struct {
	// Tolerance is the largest relative change between two sweeps that still
	// counts as converged.
	Tolerance float64
	// MaxIterations caps the number of Gauss-Seidel sweeps per block and period.
	MaxIterations int
	// Damping scales each update: 1 is plain Gauss-Seidel, smaller values
	// under-relax.
	Damping float64
	// InitialGuess is GuessPrevious or GuessDataset.
	InitialGuess string
}

// DefaultSolver returns the documented defaults.
func DefaultSolver() Solver {
	return Solver{
		Tolerance:     1e-8,
		MaxIterations: 500,
		Damping:       1.0,
		InitialGuess:  GuessPrevious,
	}
}

// NewSolver fills zero fields with defaults and validates the result.
func NewSolver(cfg Solver) (*Solver, error) {
	def := DefaultSolver()
	if cfg.Tolerance == 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.Damping == 0 {
		cfg.Damping = def.Damping
	}
	if cfg.InitialGuess == "" {
		cfg.InitialGuess = def.InitialGuess
	}

	if cfg.Tolerance < 0 {
		return nil, solveerr.Config(fmt.Sprintf("tolerance must be positive, got %g", cfg.Tolerance))
	}
	if cfg.MaxIterations < 1 {
		return nil, solveerr.Config(fmt.Sprintf("max iterations must be at least 1, got %d", cfg.MaxIterations))
	}
	if cfg.Damping < 0 || cfg.Damping > 1 {
		return nil, solveerr.Config(fmt.Sprintf("damping must be in (0, 1], got %g", cfg.Damping))
	}
	switch cfg.InitialGuess {
	case GuessPrevious, GuessDataset:
		// valid
	default:
		return nil, solveerr.Config(fmt.Sprintf("initial guess must be %q or %q, got %q", GuessPrevious, GuessDataset, cfg.InitialGuess))
	}

	return &cfg, nil
}
