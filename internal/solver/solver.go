// Package solver computes endogenous values period by period.
//
// Within a period the blocks of the plan are visited in solve order.
// A sequential block is evaluated once. A simultaneous block is iterated
// Gauss-Seidel style: each equation is recomputed in turn using the most
// recent values of the others, until the largest relative change of a sweep
// drops below the tolerance or the iteration cap is hit.
//
// The solver works on a Frame of float64 columns owned by the caller, so a
// failed solve never leaves a half-written dataset behind.
package solver

import (
	"context"
	"math"

	"github.com/vk/modelsolver/internal/config"
	"github.com/vk/modelsolver/internal/ctxlog"
	"github.com/vk/modelsolver/internal/equation"
	"github.com/vk/modelsolver/internal/plan"
	"github.com/vk/modelsolver/internal/solveerr"
)

// Frame is the working copy of the dataset columns the plan needs.
type Frame struct {
	Periods []string
	Columns map[string][]float64
}

// Len returns the number of periods.
func (f *Frame) Len() int {
	return len(f.Periods)
}

// periodEnv resolves references relative to period t.
type periodEnv struct {
	frame *Frame
	t     int
}

func (e periodEnv) Value(r equation.Ref) (float64, error) {
	col, ok := e.frame.Columns[r.Name]
	if !ok {
		return 0, solveerr.MissingColumn(r.Name)
	}
	row := e.t + r.Offset
	if row < 0 || row >= len(col) {
		return 0, &solveerr.IndexError{What: "period", Index: row, Low: 0, High: len(col)}
	}
	return col[row], nil
}

// Solver runs a plan over frames.
type Solver struct {
	plan *plan.Plan
	cfg  config.Solver
}

// New creates a solver. cfg is expected to be validated already.
func New(p *plan.Plan, cfg config.Solver) *Solver {
	return &Solver{plan: p, cfg: cfg}
}

// Range returns the half-open row range [start, end) that can be solved in a
// frame of n periods: rows whose lags and leads all fall inside the frame.
func (s *Solver) Range(n int) (start, end int) {
	lag, lead := s.plan.Window()
	return lag, n - lead
}

// Solve solves rows [start, end) in order. Later rows read the values solved
// for earlier ones through lagged references.
func (s *Solver) Solve(ctx context.Context, f *Frame, start, end int) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Solving periods.", "start", start, "end", end, "blocks", s.plan.NumBlocks())

	for t := start; t < end; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.SolvePeriod(ctx, f, t); err != nil {
			return err
		}
	}

	logger.Debug("All periods solved.", "count", end-start)
	return nil
}

// SolvePeriod solves every block for row t, writing results into f.
func (s *Solver) SolvePeriod(ctx context.Context, f *Frame, t int) error {
	start, end := s.Range(f.Len())
	if t < start || t >= end {
		return &solveerr.IndexError{What: "period", Index: t, Low: start, High: end}
	}

	env := periodEnv{frame: f, t: t}
	for bi := 0; bi < s.plan.NumBlocks(); bi++ {
		b := s.plan.Block(bi)
		if !b.Simultaneous {
			v := b.Vars[0]
			if _, err := s.update(env, v, 1.0); err != nil {
				return err
			}
			continue
		}
		if err := s.iterate(ctx, env, bi, b); err != nil {
			return err
		}
	}
	return nil
}

// update evaluates the equation of variable v, applies the damping factor and
// stores the result. It returns the relative change.
func (s *Solver) update(env periodEnv, v int, damping float64) (float64, error) {
	name := s.plan.Var(v)
	col := env.frame.Columns[name]
	old := col[env.t]

	val, err := s.plan.Equation(v).Eval(env)
	if err != nil {
		return 0, err
	}
	next := val
	if damping != 1.0 {
		next = old + damping*(val-old)
	}
	if math.IsNaN(next) || math.IsInf(next, 0) {
		return 0, &solveerr.EvaluationError{Variable: name, Period: env.t, PeriodLabel: env.frame.Periods[env.t], Value: next}
	}

	col[env.t] = next
	return relativeChange(old, next), nil
}

// relativeChange measures |next-old| relative to |old|, switching to an
// absolute measure when |old| is below one so that values near zero can
// still converge.
func relativeChange(old, next float64) float64 {
	if math.IsNaN(old) || math.IsInf(old, 0) {
		return math.Inf(1)
	}
	return math.Abs(next-old) / max(math.Abs(old), 1)
}

// iterate runs Gauss-Seidel sweeps over a simultaneous block.
func (s *Solver) iterate(ctx context.Context, env periodEnv, bi int, b plan.Block) error {
	logger := ctxlog.FromContext(ctx)
	t := env.t

	for _, v := range b.Vars {
		col := env.frame.Columns[s.plan.Var(v)]
		guess := col[t]
		if s.cfg.InitialGuess == config.GuessPrevious && t > 0 && isFinite(col[t-1]) {
			guess = col[t-1]
		}
		if !isFinite(guess) {
			guess = 0
		}
		col[t] = guess
	}

	residual := math.Inf(1)
	for iter := 1; iter <= s.cfg.MaxIterations; iter++ {
		residual = 0
		for _, v := range b.Vars {
			change, err := s.update(env, v, s.cfg.Damping)
			if err != nil {
				return err
			}
			residual = max(residual, change)
		}
		if residual < s.cfg.Tolerance {
			logger.Debug("Block converged.", "block", bi+1, "period", env.frame.Periods[t], "iterations", iter, "residual", residual)
			return nil
		}
	}

	names := s.plan.BlockVars(bi)
	logger.Warn("Block did not converge.", "block", bi+1, "period", env.frame.Periods[t], "variables", names, "residual", residual)
	return &solveerr.ConvergenceError{
		Block:       bi + 1,
		Period:      t,
		PeriodLabel: env.frame.Periods[t],
		Iterations:  s.cfg.MaxIterations,
		Residual:    residual,
		Tolerance:   s.cfg.Tolerance,
		Variables:   names,
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
