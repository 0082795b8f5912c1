package modelsolver_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modelsolver"
	"github.com/vk/modelsolver/dataset"
)

func newDataset(t *testing.T, cols map[string]any) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromGo(nil, cols)
	require.NoError(t, err)
	return ds
}

func floats(t *testing.T, ds *dataset.Dataset, name string) []float64 {
	t.Helper()
	vals, err := ds.Floats(name)
	require.NoError(t, err)
	return vals
}

// income is a small model with a lag, a sequential block and a
// simultaneous block.
func income(t *testing.T, opts ...modelsolver.Option) *modelsolver.ModelSolver {
	t.Helper()
	m, err := modelsolver.New(
		[]string{
			"c = 0.6 * y + 10",
			"i = 0.2 * y[-1] + r",
			"y = c + i + g",
		},
		[]string{"c", "i", "y"},
		opts...,
	)
	require.NoError(t, err)
	return m
}

func incomeData(t *testing.T) *dataset.Dataset {
	return newDataset(t, map[string]any{
		"c": []float64{0, 0, 0},
		"i": []float64{0, 0, 0},
		"y": []float64{100, 0, 0},
		"r": []float64{5, 5, 5},
		"g": []float64{20, 20, 20},
	})
}

func TestSolveModel_DirectSubstitution(t *testing.T) {
	m, err := modelsolver.New([]string{"x1 = a1"}, []string{"x1"})
	require.NoError(t, err)

	ds := newDataset(t, map[string]any{
		"x1": []int{1, 2, 3},
		"a1": []int{4, 5, 6},
	})
	require.NoError(t, m.SolveModel(context.Background(), ds))

	assert.Equal(t, []float64{4, 5, 6}, floats(t, ds, "x1"))
	assert.Equal(t, []float64{4, 5, 6}, floats(t, ds, "a1"))
}

func TestSolveModel_LagsAndSimultaneousBlock(t *testing.T) {
	m := income(t)
	ds := incomeData(t)

	require.NoError(t, m.SolveModel(context.Background(), ds))

	y := floats(t, ds, "y")
	c := floats(t, ds, "c")
	i := floats(t, ds, "i")

	assert.Equal(t, 100.0, y[0], "history row is left alone")
	assert.Equal(t, 0.0, c[0])

	assert.InDelta(t, 25.0, i[1], 1e-9)
	assert.InDelta(t, 137.5, y[1], 1e-5)
	assert.InDelta(t, 92.5, c[1], 1e-5)

	assert.InDelta(t, 32.5, i[2], 1e-5)
	assert.InDelta(t, 156.25, y[2], 1e-5)
	assert.InDelta(t, 103.75, c[2], 1e-5)
}

func TestNew_Errors(t *testing.T) {
	testCases := []struct {
		name       string
		equations  []string
		endogenous []string
		opts       []modelsolver.Option
		wantErr    error
	}{
		{
			name:       "comparison instead of assignment",
			equations:  []string{"x1 == a1"},
			endogenous: []string{"x1"},
			wantErr:    modelsolver.ErrSyntax,
		},
		{
			name:       "unsupported function",
			equations:  []string{"x1 = sqrt(a1)"},
			endogenous: []string{"x1"},
			wantErr:    modelsolver.ErrUnsupported,
		},
		{
			name:       "mismatched counts",
			equations:  []string{"x1 = a1", "x2 = a2"},
			endogenous: []string{"x1"},
			wantErr:    modelsolver.ErrConfig,
		},
		{
			name:       "mismatched counts before parsing",
			equations:  []string{"x1 == a1", "x2 = a2"},
			endogenous: []string{"x1"},
			wantErr:    modelsolver.ErrConfig,
		},
		{
			name:       "endogenous variable without equation",
			equations:  []string{"x1 = a1"},
			endogenous: []string{"x2"},
			wantErr:    modelsolver.ErrStructure,
		},
		{
			name:       "duplicate endogenous variable",
			equations:  []string{"x1 = a1", "x1 = a2"},
			endogenous: []string{"x1", "x1"},
			wantErr:    modelsolver.ErrStructure,
		},
		{
			name:       "variable defined twice",
			equations:  []string{"x1 = a1", "x1 = a2"},
			endogenous: []string{"x1", "x2"},
			wantErr:    modelsolver.ErrStructure,
		},
		{
			name:       "invalid tolerance",
			equations:  []string{"x1 = a1"},
			endogenous: []string{"x1"},
			opts:       []modelsolver.Option{modelsolver.WithTolerance(-1)},
			wantErr:    modelsolver.ErrConfig,
		},
		{
			name:       "invalid initial guess",
			equations:  []string{"x1 = a1"},
			endogenous: []string{"x1"},
			opts:       []modelsolver.Option{modelsolver.WithInitialGuess("zero")},
			wantErr:    modelsolver.ErrConfig,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := modelsolver.New(tc.equations, tc.endogenous, tc.opts...)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
		})
	}
}

func TestNew_UndefinedVariableIsNamed(t *testing.T) {
	_, err := modelsolver.New([]string{"x1 = a1"}, []string{"x2"})

	var modelErr *modelsolver.ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, []string{"x2"}, modelErr.Variables)
}

func TestSolveModel_NonNumericColumn(t *testing.T) {
	m, err := modelsolver.New([]string{"x1 = a1"}, []string{"x1"})
	require.NoError(t, err)

	ds := newDataset(t, map[string]any{
		"x1": []string{"a", "b", "c"},
		"a1": []int{1, 2, 3},
	})
	before := ds.Clone()

	err = m.SolveModel(context.Background(), ds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelsolver.ErrNonNumeric))

	var dataErr *modelsolver.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "x1", dataErr.Column)
	assert.Equal(t, 0, dataErr.Row)

	assert.Equal(t, before, ds)
}

func TestSolveModel_MissingColumn(t *testing.T) {
	m, err := modelsolver.New([]string{"x1 = a1"}, []string{"x1"})
	require.NoError(t, err)

	ds := newDataset(t, map[string]any{
		"a1": []int{1, 2, 3},
	})

	err = m.SolveModel(context.Background(), ds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelsolver.ErrMissingColumn))
	assert.ErrorContains(t, err, "x1")

	var dataErr *modelsolver.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "x1", dataErr.Column)
}

func TestSolveModel_MissingColumnReportedBeforeNonNumeric(t *testing.T) {
	m, err := modelsolver.New([]string{"x1 = a1 + b1"}, []string{"x1"})
	require.NoError(t, err)

	ds := newDataset(t, map[string]any{
		"x1": []string{"a"},
		"a1": []int{1},
	})

	err = m.SolveModel(context.Background(), ds)
	assert.True(t, errors.Is(err, modelsolver.ErrMissingColumn), "got %v", err)
	assert.ErrorContains(t, err, "b1")
}

func TestSolveModel_ConvergenceFailureLeavesDatasetUntouched(t *testing.T) {
	m, err := modelsolver.New([]string{"x = 2 * x + a"}, []string{"x"}, modelsolver.WithMaxIterations(10))
	require.NoError(t, err)

	ds := newDataset(t, map[string]any{
		"x": []float64{7, 7},
		"a": []float64{1, 1},
	})

	err = m.SolveModel(context.Background(), ds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelsolver.ErrConvergence))

	var convErr *modelsolver.ConvergenceError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, 1, convErr.Block)
	assert.Equal(t, 10, convErr.Iterations)

	assert.Equal(t, []float64{7, 7}, floats(t, ds, "x"))
}

func TestSolveModel_MissingValueInInput(t *testing.T) {
	m, err := modelsolver.New([]string{"x1 = a1"}, []string{"x1"})
	require.NoError(t, err)

	ds := newDataset(t, map[string]any{
		"x1": []float64{0, 0, 0},
		"a1": []float64{4, math.NaN(), 6},
	})

	err = m.SolveModel(context.Background(), ds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelsolver.ErrEvaluation), "got %v", err)

	var evalErr *modelsolver.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "x1", evalErr.Variable)
	assert.Equal(t, 1, evalErr.Period)
	assert.Equal(t, []float64{0, 0, 0}, floats(t, ds, "x1"))
}

func TestSolveModel_DatasetTooShort(t *testing.T) {
	m := income(t)
	ds := newDataset(t, map[string]any{
		"c": []float64{0},
		"i": []float64{0},
		"y": []float64{100},
		"r": []float64{5},
		"g": []float64{20},
	})

	err := m.SolveModel(context.Background(), ds)
	assert.True(t, errors.Is(err, modelsolver.ErrIndex), "got %v", err)
}

func TestSolvePeriod(t *testing.T) {
	m := income(t)
	ds := incomeData(t)

	require.NoError(t, m.SolvePeriod(context.Background(), ds, 1))

	y := floats(t, ds, "y")
	assert.InDelta(t, 137.5, y[1], 1e-5)
	assert.Equal(t, 0.0, y[2], "other periods are not solved")

	err := m.SolvePeriod(context.Background(), ds, 0)
	assert.True(t, errors.Is(err, modelsolver.ErrIndex), "row 0 has no lagged values")

	err = m.SolvePeriod(context.Background(), ds, 3)
	assert.True(t, errors.Is(err, modelsolver.ErrIndex))
}

func TestTraceToExogVars(t *testing.T) {
	m := income(t)

	assert.Equal(t, [][]string{{"i"}, {"c", "y"}}, m.Blocks())

	vars, err := m.TraceToExogVars(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"r", "y[-1]"}, vars)

	vars, err = m.TraceToExogVars(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"g", "r", "y[-1]"}, vars)
}

func TestTraceToExogVars_InvalidBlock(t *testing.T) {
	m, err := modelsolver.New([]string{"x1 = a1"}, []string{"x1"})
	require.NoError(t, err)

	for _, block := range []int{0, 2, 999, -1} {
		_, err := m.TraceToExogVars(block)
		assert.True(t, errors.Is(err, modelsolver.ErrIndex), "block %d", block)

		_, err = m.TraceToExogVals(block, 0)
		assert.True(t, errors.Is(err, modelsolver.ErrIndex), "block %d", block)
	}
}

func TestTraceToExogVals(t *testing.T) {
	m := income(t)
	ds := incomeData(t)
	require.NoError(t, m.SolveModel(context.Background(), ds))

	vals, err := m.TraceToExogVals(2, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"g": 20, "r": 5, "y[-1]": 100}, vals)

	vals, err = m.TraceToExogVals(2, 2)
	require.NoError(t, err)
	assert.InDelta(t, 137.5, vals["y[-1]"], 1e-5)

	_, err = m.TraceToExogVals(2, 0)
	assert.True(t, errors.Is(err, modelsolver.ErrIndex), "history rows are outside the solved range")
}

func TestTraceToExogVals_SnapshotIsIndependent(t *testing.T) {
	m, err := modelsolver.New([]string{"x1 = a1"}, []string{"x1"})
	require.NoError(t, err)
	ds := newDataset(t, map[string]any{
		"x1": []int{1, 2, 3},
		"a1": []int{4, 5, 6},
	})
	require.NoError(t, m.SolveModel(context.Background(), ds))

	require.NoError(t, ds.SetFloat("a1", 1, 50))

	vals, err := m.TraceToExogVals(1, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a1": 5}, vals)
}

func TestTraceToExogVals_OutOfRangePeriod(t *testing.T) {
	m, err := modelsolver.New([]string{"x1 = a1"}, []string{"x1"})
	require.NoError(t, err)

	_, err = m.TraceToExogVals(1, 0)
	assert.True(t, errors.Is(err, modelsolver.ErrIndex), "nothing solved yet")

	ds := newDataset(t, map[string]any{
		"x1": []int{1, 2, 3},
		"a1": []int{4, 5, 6},
	})
	require.NoError(t, m.SolveModel(context.Background(), ds))

	_, err = m.TraceToExogVals(1, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelsolver.ErrIndex))

	var idxErr *modelsolver.IndexError
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, "period", idxErr.What)
	assert.Equal(t, 100, idxErr.Index)
}

func TestSwitchEndoVars_UnknownVariable(t *testing.T) {
	m, err := modelsolver.New([]string{"x1 = a1"}, []string{"x1"})
	require.NoError(t, err)
	before := m.Describe()

	err = m.SwitchEndoVars([]string{"nonexistent_var"}, []string{"a1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelsolver.ErrStructure))
	assert.ErrorContains(t, err, "nonexistent_var")

	assert.Equal(t, before, m.Describe())
	assert.Equal(t, []string{"x1"}, m.Endogenous())
}

func TestSwitchEndoVars_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		newEnd []string
		newExo []string
	}{
		{name: "both endogenous and exogenous", newEnd: []string{"c"}, newExo: []string{"c"}},
		{name: "exogenous name in no equation", newExo: []string{"z"}},
		{name: "no endogenous variables left", newExo: []string{"c", "i", "y"}},
		{name: "exogenous variable has no equation", newEnd: []string{"g"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := income(t)
			err := m.SwitchEndoVars(tc.newEnd, tc.newExo)
			require.Error(t, err)
			assert.True(t, errors.Is(err, modelsolver.ErrStructure), "got %v", err)
			assert.Equal(t, []string{"c", "i", "y"}, m.Endogenous())
		})
	}
}

func TestSwitchEndoVars_ExogenizeAndRestore(t *testing.T) {
	m := income(t)
	ds := incomeData(t)
	require.NoError(t, m.SolveModel(context.Background(), ds))

	require.NoError(t, m.SwitchEndoVars(nil, []string{"c"}))
	assert.Equal(t, []string{"i", "y"}, m.Endogenous())
	assert.Equal(t, []string{"r", "c", "g"}, m.Exogenous())
	assert.Equal(t, [][]string{{"i"}, {"y"}}, m.Blocks())

	_, err := m.TraceToExogVals(1, 1)
	assert.True(t, errors.Is(err, modelsolver.ErrIndex), "switching discards the last solution")

	ds = incomeData(t)
	require.NoError(t, ds.SetFloats("c", []float64{0, 50, 50}))
	require.NoError(t, m.SolveModel(context.Background(), ds))

	y := floats(t, ds, "y")
	assert.Equal(t, 95.0, y[1]) // 50 + (0.2*100 + 5) + 20
	assert.Equal(t, []float64{0, 50, 50}, floats(t, ds, "c"))

	require.NoError(t, m.SwitchEndoVars([]string{"c"}, nil))
	assert.Equal(t, []string{"c", "i", "y"}, m.Endogenous())
	assert.Equal(t, [][]string{{"i"}, {"c", "y"}}, m.Blocks())
}

func TestDescribe(t *testing.T) {
	m := income(t)
	want := "block 1 [sequential]: i\n" +
		"  i = 0.2 * y[-1] + r\n" +
		"block 2 [simultaneous]: c, y\n" +
		"  c = 0.6 * y + 10\n" +
		"  y = c + i + g\n"
	assert.Equal(t, want, m.Describe())
	assert.Equal(t, []string{"c = 0.6 * y + 10", "i = 0.2 * y[-1] + r", "y = c + i + g"}, m.Equations())
}

func TestLogging(t *testing.T) {
	var modelLog, ctxLog bytes.Buffer
	m, err := modelsolver.New([]string{"x1 = a1"}, []string{"x1"}, modelsolver.WithLogOutput(&modelLog, "debug", "text"))
	require.NoError(t, err)
	assert.Contains(t, modelLog.String(), "Solve plan built.")

	ds := newDataset(t, map[string]any{"x1": []int{0}, "a1": []int{1}})
	require.NoError(t, m.SolveModel(context.Background(), ds))
	assert.Contains(t, modelLog.String(), "Model solved.")

	modelLog.Reset()
	logger := slog.New(slog.NewJSONHandler(&ctxLog, nil))
	ctx := modelsolver.ContextWithLogger(context.Background(), logger)
	require.NoError(t, m.SolveModel(ctx, ds))

	assert.NotContains(t, modelLog.String(), "Model solved.")
	assert.Contains(t, ctxLog.String(), `"msg":"Model solved."`)
}

func TestSolveModel_LogsSolvedPeriodLabels(t *testing.T) {
	var buf bytes.Buffer
	m := income(t, modelsolver.WithLogOutput(&buf, "info", "json"))

	ds, err := dataset.FromGo([]string{"2021Q4", "2022Q1", "2022Q2"}, map[string]any{
		"c": []float64{0, 0, 0},
		"i": []float64{0, 0, 0},
		"y": []float64{100, 0, 0},
		"r": []float64{5, 5, 5},
		"g": []float64{20, 20, 20},
	})
	require.NoError(t, err)
	require.NoError(t, m.SolveModel(context.Background(), ds))

	assert.Contains(t, buf.String(), `"first":"2022Q1"`)
	assert.Contains(t, buf.String(), `"last":"2022Q2"`)
}
