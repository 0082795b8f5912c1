package modelsolver

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/modelsolver/internal/config"
	"github.com/vk/modelsolver/internal/ctxlog"
)

// Initial guesses for simultaneous blocks, see WithInitialGuess.
const (
	GuessPrevious = config.GuessPrevious
	GuessDataset  = config.GuessDataset
)

type options struct {
	solver config.Solver
	logger *slog.Logger
}

// Option configures a ModelSolver.
type Option func(*options)

// WithTolerance sets the largest relative change between two Gauss-Seidel
// sweeps that counts as converged. Default 1e-8.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.solver.Tolerance = tol }
}

// WithMaxIterations caps the sweeps per block and period. Default 500.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.solver.MaxIterations = n }
}

// WithDamping sets the relaxation factor in (0, 1]. Default 1.
func WithDamping(d float64) Option {
	return func(o *options) { o.solver.Damping = d }
}

// WithInitialGuess selects where simultaneous blocks start iterating from:
// GuessPrevious (default) or GuessDataset.
func WithInitialGuess(guess string) Option {
	return func(o *options) { o.solver.InitialGuess = guess }
}

// WithLogger sets the logger used when the context passed to a solve does
// not carry one.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLogOutput builds a logger writing to w. level is one of debug, info,
// warn or error; format is "text" or "json".
func WithLogOutput(w io.Writer, level, format string) Option {
	return func(o *options) { o.logger = config.NewLogger(level, format, w) }
}

// withSolver applies the non-zero fields of cfg.
func withSolver(cfg config.Solver) Option {
	return func(o *options) {
		if cfg.Tolerance != 0 {
			o.solver.Tolerance = cfg.Tolerance
		}
		if cfg.MaxIterations != 0 {
			o.solver.MaxIterations = cfg.MaxIterations
		}
		if cfg.Damping != 0 {
			o.solver.Damping = cfg.Damping
		}
		if cfg.InitialGuess != "" {
			o.solver.InitialGuess = cfg.InitialGuess
		}
	}
}

// ContextWithLogger returns a context carrying logger. Solves started with
// that context log there instead of to the logger set with WithLogger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return ctxlog.WithLogger(ctx, logger)
}
