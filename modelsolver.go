package modelsolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vk/modelsolver/dataset"
	"github.com/vk/modelsolver/internal/config"
	"github.com/vk/modelsolver/internal/ctxlog"
	"github.com/vk/modelsolver/internal/equation"
	"github.com/vk/modelsolver/internal/plan"
	"github.com/vk/modelsolver/internal/solveerr"
	"github.com/vk/modelsolver/internal/solver"
)

// ModelSolver holds a parsed model and its current solve plan.
type ModelSolver struct {
	mu          sync.RWMutex
	name        string
	description string
	cfg         config.Solver
	logger      *slog.Logger

	// library holds every equation supplied at construction, keyed by the
	// variable it defines. The plan uses the subset that is endogenous.
	library map[string]*equation.Equation
	order   []string
	names   map[string]bool

	plan   *plan.Plan
	solved *solution
}

// solution is a snapshot of the last successful SolveModel call.
type solution struct {
	data       *dataset.Dataset
	start, end int
}

// New parses the equations and builds the solve plan. There must be exactly
// one equation per endogenous variable, each defining a distinct variable.
func New(equations, endogenous []string, opts ...Option) (*ModelSolver, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	cfg, err := config.NewSolver(o.solver)
	if err != nil {
		return nil, err
	}
	logger := o.logger
	if logger == nil {
		logger = config.DiscardLogger()
	}

	if len(equations) != len(endogenous) {
		return nil, solveerr.Config(fmt.Sprintf("mismatched equation/endogenous count: %d equations, %d endogenous variables",
			len(equations), len(endogenous)))
	}

	declared := make(map[string]bool, len(endogenous))
	for _, name := range endogenous {
		if declared[name] {
			return nil, solveerr.Structure("duplicate endogenous variable declaration", name)
		}
		declared[name] = true
	}

	m := &ModelSolver{
		cfg:     *cfg,
		logger:  logger,
		library: make(map[string]*equation.Equation, len(equations)),
		names:   make(map[string]bool),
	}

	for _, src := range equations {
		eq, err := equation.Parse(src)
		if err != nil {
			return nil, err
		}
		if _, dup := m.library[eq.LHS]; dup {
			return nil, solveerr.Structure("variable defined by more than one equation", eq.LHS)
		}
		m.library[eq.LHS] = eq
		m.order = append(m.order, eq.LHS)
		m.names[eq.LHS] = true
		for _, r := range eq.Refs {
			m.names[r.Name] = true
		}
	}
	logger.Debug("Equations parsed.", "count", len(m.order))

	// Counts match and both sides are distinct: an equation defining an
	// undeclared variable always leaves a declared one undefined.
	var undefined []string
	for _, name := range endogenous {
		if _, ok := m.library[name]; !ok {
			undefined = append(undefined, name)
		}
	}
	if len(undefined) > 0 {
		return nil, solveerr.Structure("endogenous variable not defined by any equation", undefined...)
	}

	p, err := m.buildPlan(declared)
	if err != nil {
		return nil, err
	}
	m.plan = p
	m.logPlan()

	return m, nil
}

// buildPlan builds a plan from the library equations of the given
// variables, in the order the equations were supplied.
func (m *ModelSolver) buildPlan(endo map[string]bool) (*plan.Plan, error) {
	var eqs []*equation.Equation
	for _, name := range m.order {
		if endo[name] {
			eqs = append(eqs, m.library[name])
		}
	}
	return plan.Build(eqs)
}

func (m *ModelSolver) logPlan() {
	m.logger.Debug("Solve plan built.", "variables", len(m.plan.Vars()), "blocks", m.plan.NumBlocks())
	for i := 0; i < m.plan.NumBlocks(); i++ {
		m.logger.Debug("Block planned.", "block", i+1, "variables", m.plan.BlockVars(i), "simultaneous", m.plan.Block(i).Simultaneous)
	}
}

// withLogger attaches the model's logger unless the caller already did.
func (m *ModelSolver) withLogger(ctx context.Context) context.Context {
	if _, ok := ctxlog.Lookup(ctx); ok {
		return ctx
	}
	return ctxlog.WithLogger(ctx, m.logger)
}

// Name returns the model name from its definition, if it was loaded from one.
func (m *ModelSolver) Name() string {
	return m.name
}

// Description returns the model description from its definition, if any.
func (m *ModelSolver) Description() string {
	return m.description
}

// Endogenous returns the variables currently solved for, in equation order.
func (m *ModelSolver) Endogenous() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.plan.Vars()
}

// Exogenous returns the variables the current plan reads but does not solve,
// in order of first appearance.
func (m *ModelSolver) Exogenous() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for _, name := range m.plan.Required() {
		if !m.plan.IsEndogenous(name) {
			names = append(names, name)
		}
	}
	return names
}

// Blocks returns the variables of each block in solve order. Block numbers
// used elsewhere in the API are positions in this slice plus one.
func (m *ModelSolver) Blocks() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blocks := make([][]string, m.plan.NumBlocks())
	for i := range blocks {
		blocks[i] = m.plan.BlockVars(i)
	}
	return blocks
}

// Describe renders the solve plan: every block in order with its equations.
func (m *ModelSolver) Describe() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.plan.String()
}

// frame validates ds against the plan and copies the needed columns.
// Presence of every column is checked before any column is converted.
func (m *ModelSolver) frame(ds *dataset.Dataset) (*solver.Frame, error) {
	required := m.plan.Required()
	for _, name := range required {
		if !ds.Has(name) {
			return nil, solveerr.MissingColumn(name)
		}
	}

	f := &solver.Frame{
		Periods: ds.Periods(),
		Columns: make(map[string][]float64, len(required)),
	}
	for _, name := range required {
		vals, err := ds.Floats(name)
		if err != nil {
			return nil, err
		}
		f.Columns[name] = vals
	}
	return f, nil
}

// commit writes the solved rows [start, end) of every endogenous variable.
func (m *ModelSolver) commit(ds *dataset.Dataset, f *solver.Frame, start, end int) error {
	for _, name := range m.plan.Vars() {
		col := f.Columns[name]
		for t := start; t < end; t++ {
			if err := ds.SetFloat(name, t, col[t]); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
		}
	}
	return nil
}

// SolveModel solves every period of ds that has the lags and leads it needs
// and writes the endogenous values back. Rows before the largest lag and
// after the largest lead are left as they are. On failure ds is not modified.
func (m *ModelSolver) SolveModel(ctx context.Context, ds *dataset.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx = m.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)

	f, err := m.frame(ds)
	if err != nil {
		return err
	}

	s := solver.New(m.plan, m.cfg)
	start, end := s.Range(f.Len())
	if start >= end {
		lag, lead := m.plan.Window()
		logger.Warn("Dataset too short for the model.", "periods", f.Len(), "max_lag", lag, "max_lead", lead)
		return &solveerr.IndexError{What: "period", Index: start, Low: start, High: end}
	}

	logger.Info("Solving model.", "model", m.name, "first", ds.Period(start), "last", ds.Period(end-1), "blocks", m.plan.NumBlocks())
	if err := s.Solve(ctx, f, start, end); err != nil {
		return err
	}
	if err := m.commit(ds, f, start, end); err != nil {
		return err
	}

	m.solved = &solution{data: ds.Clone(), start: start, end: end}
	logger.Info("Model solved.", "model", m.name, "periods", end-start)
	return nil
}

// SolvePeriod solves the single row t of ds and writes its endogenous values
// back. t must lie in the range SolveModel would solve.
func (m *ModelSolver) SolvePeriod(ctx context.Context, ds *dataset.Dataset, t int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx = m.withLogger(ctx)

	f, err := m.frame(ds)
	if err != nil {
		return err
	}
	s := solver.New(m.plan, m.cfg)
	if err := s.SolvePeriod(ctx, f, t); err != nil {
		return err
	}
	return m.commit(ds, f, t, t+1)
}

// checkBlock validates a 1-based block number.
func (m *ModelSolver) checkBlock(block int) error {
	if block < 1 || block > m.plan.NumBlocks() {
		return &solveerr.IndexError{What: "block", Index: block, Low: 1, High: m.plan.NumBlocks() + 1}
	}
	return nil
}

// TraceToExogVars walks the same-period dependencies of a block back to the
// values known before the period is solved: exogenous variables and lagged
// or led endogenous ones. Names carry their offset, as in "y[-1]".
func (m *ModelSolver) TraceToExogVars(block int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkBlock(block); err != nil {
		return nil, err
	}
	leaves := m.plan.Leaves(block - 1)
	names := make([]string, len(leaves))
	for i, r := range leaves {
		names[i] = r.String()
	}
	return names, nil
}

// TraceToExogVals returns the values of the block's leaves, as listed by
// TraceToExogVars, at the given period of the last solved dataset. period
// is a row index and must lie in the range the last SolveModel call solved.
func (m *ModelSolver) TraceToExogVals(block, period int) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkBlock(block); err != nil {
		return nil, err
	}
	if m.solved == nil {
		return nil, &solveerr.IndexError{What: "period", Index: period}
	}
	if period < m.solved.start || period >= m.solved.end {
		return nil, &solveerr.IndexError{What: "period", Index: period, Low: m.solved.start, High: m.solved.end}
	}

	vals := make(map[string]float64)
	for _, r := range m.plan.Leaves(block - 1) {
		v, err := m.solved.data.Float(r.Name, period+r.Offset)
		if err != nil {
			return nil, err
		}
		vals[r.String()] = v
	}
	return vals, nil
}

// SwitchEndoVars re-partitions the model. Names in newEndo start being
// solved by their equation; names in newExo stop being solved and are read
// from the dataset instead. The plan is rebuilt from scratch; if anything
// fails the current plan stays in place. A successful switch discards the
// last solution.
func (m *ModelSolver) SwitchEndoVars(newEndo, newExo []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	toEndo := make(map[string]bool, len(newEndo))
	for _, name := range newEndo {
		if _, ok := m.library[name]; !ok {
			return solveerr.Structure("cannot switch a variable with no defining equation", name)
		}
		toEndo[name] = true
	}
	for _, name := range newExo {
		if toEndo[name] {
			return solveerr.Structure("variable listed as both endogenous and exogenous", name)
		}
		if !m.names[name] {
			return solveerr.Structure("cannot switch a variable absent from every equation", name)
		}
	}

	next := make(map[string]bool)
	for _, name := range m.plan.Vars() {
		next[name] = true
	}
	for name := range toEndo {
		next[name] = true
	}
	for _, name := range newExo {
		delete(next, name)
	}
	if len(next) == 0 {
		return solveerr.Structure("switch leaves no endogenous variables")
	}

	p, err := m.buildPlan(next)
	if err != nil {
		return err
	}

	m.logger.Debug("Endogenous set switched.", "endogenous", p.Vars(), "previous", m.plan.Vars())
	m.plan = p
	m.solved = nil
	m.logPlan()
	return nil
}

// Equations returns the equations of the current plan in the order they were
// supplied, normalised as "name = expression".
func (m *ModelSolver) Equations() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vars := m.plan.Vars()
	out := make([]string, len(vars))
	for i := range vars {
		out[i] = m.plan.Equation(i).String()
	}
	return out
}
