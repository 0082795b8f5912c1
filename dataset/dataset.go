// Package dataset provides the tabular container a model reads its inputs
// from and writes its solutions to.
//
// Rows are periods, identified by position and by a label. Columns are
// variables, identified by name. Cells are cty values, so a column can hold
// anything the caller supplies (numbers, strings, nulls); the model checks
// that the columns it needs are numeric before any arithmetic happens.
//
// A Dataset is not safe for concurrent mutation.
package dataset

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"

	"github.com/vk/modelsolver/internal/solveerr"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Dataset is a period-indexed, variable-columned table of cty values.
type Dataset struct {
	periods []string
	order   []string
	columns map[string][]cty.Value
}

// New creates an empty dataset with the given period labels.
func New(periods []string) *Dataset {
	return &Dataset{
		periods: slices.Clone(periods),
		columns: make(map[string][]cty.Value),
	}
}

// FromGo builds a dataset from native Go slices, one per column, such as
// []float64, []int or []string. Elements of a []any column are converted one
// by one and nil elements become missing numbers. Columns are added in name
// order. If periods is nil the rows are labelled "0", "1", ...
func FromGo(periods []string, columns map[string]any) (*Dataset, error) {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	var d *Dataset
	for _, name := range names {
		vals, err := toCtyValues(columns[name])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		if d == nil {
			if periods == nil {
				periods = defaultPeriods(len(vals))
			}
			d = New(periods)
		}
		if err := d.SetColumn(name, vals); err != nil {
			return nil, err
		}
	}
	if d == nil {
		d = New(periods)
	}
	return d, nil
}

func defaultPeriods(n int) []string {
	periods := make([]string, n)
	for i := range periods {
		periods[i] = strconv.Itoa(i)
	}
	return periods
}

// toCtyValues converts a Go slice into one cty value per element. Float
// columns go through numberVal so NaN becomes a null number.
func toCtyValues(v any) ([]cty.Value, error) {
	switch items := v.(type) {
	case []float64:
		vals := make([]cty.Value, len(items))
		for i, f := range items {
			vals[i] = numberVal(f)
		}
		return vals, nil
	case []float32:
		vals := make([]cty.Value, len(items))
		for i, f := range items {
			vals[i] = numberVal(float64(f))
		}
		return vals, nil
	case []any:
		vals := make([]cty.Value, len(items))
		for i, item := range items {
			switch f := item.(type) {
			case nil:
				vals[i] = cty.NullVal(cty.Number)
				continue
			case float64:
				vals[i] = numberVal(f)
				continue
			case float32:
				vals[i] = numberVal(float64(f))
				continue
			}
			ty, err := gocty.ImpliedType(item)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			val, err := gocty.ToCtyValue(item, ty)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			vals[i] = val
		}
		return vals, nil
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return nil, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	if !ty.IsListType() {
		return nil, fmt.Errorf("expected a slice, got %s", ty.FriendlyName())
	}
	list, err := gocty.ToCtyValue(v, ty)
	if err != nil {
		return nil, err
	}
	if list.IsNull() || list.LengthInt() == 0 {
		return []cty.Value{}, nil
	}
	return list.AsValueSlice(), nil
}

// Len returns the number of periods.
func (d *Dataset) Len() int {
	return len(d.periods)
}

// Periods returns the period labels.
func (d *Dataset) Periods() []string {
	return slices.Clone(d.periods)
}

// Period returns the label of row i.
func (d *Dataset) Period(i int) string {
	return d.periods[i]
}

// Columns returns the column names in insertion order.
func (d *Dataset) Columns() []string {
	return slices.Clone(d.order)
}

// Has reports whether a column exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.columns[name]
	return ok
}

// Column returns a copy of a column's values.
func (d *Dataset) Column(name string) ([]cty.Value, bool) {
	col, ok := d.columns[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(col), true
}

// Value returns a single cell.
func (d *Dataset) Value(name string, row int) (cty.Value, error) {
	col, ok := d.columns[name]
	if !ok {
		return cty.NilVal, solveerr.MissingColumn(name)
	}
	if row < 0 || row >= len(col) {
		return cty.NilVal, &solveerr.IndexError{What: "period", Index: row, Low: 0, High: len(col)}
	}
	return col[row], nil
}

// SetColumn adds or replaces a column. The number of values must equal the
// number of periods.
func (d *Dataset) SetColumn(name string, vals []cty.Value) error {
	if len(vals) != len(d.periods) {
		return fmt.Errorf("column %q has %d rows, dataset has %d periods", name, len(vals), len(d.periods))
	}
	if _, ok := d.columns[name]; !ok {
		d.order = append(d.order, name)
	}
	d.columns[name] = slices.Clone(vals)
	return nil
}

// SetFloats adds or replaces a numeric column.
func (d *Dataset) SetFloats(name string, vals []float64) error {
	cvals := make([]cty.Value, len(vals))
	for i, v := range vals {
		cvals[i] = numberVal(v)
	}
	return d.SetColumn(name, cvals)
}

// SetFloat overwrites one cell of an existing column with a number.
func (d *Dataset) SetFloat(name string, row int, v float64) error {
	col, ok := d.columns[name]
	if !ok {
		return solveerr.MissingColumn(name)
	}
	if row < 0 || row >= len(col) {
		return &solveerr.IndexError{What: "period", Index: row, Low: 0, High: len(col)}
	}
	col[row] = numberVal(v)
	return nil
}

// Floats returns a column as float64 values. Null numbers become NaN; any
// other non-number cell fails with a non-numeric data error.
func (d *Dataset) Floats(name string) ([]float64, error) {
	col, ok := d.Column(name)
	if !ok {
		return nil, solveerr.MissingColumn(name)
	}
	out := make([]float64, len(col))
	for i, v := range col {
		f, err := toFloat(v)
		if err != nil {
			return nil, solveerr.NonNumeric(name, i, err.Error())
		}
		out[i] = f
	}
	return out, nil
}

// Float returns a single cell as a float64.
func (d *Dataset) Float(name string, row int) (float64, error) {
	v, err := d.Value(name, row)
	if err != nil {
		return 0, err
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, solveerr.NonNumeric(name, row, err.Error())
	}
	return f, nil
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	c := New(d.periods)
	for _, name := range d.order {
		c.order = append(c.order, name)
		c.columns[name] = slices.Clone(d.columns[name])
	}
	return c
}

// toFloat returns an error holding the friendly type name when v is not a
// known number.
func toFloat(v cty.Value) (float64, error) {
	if v.Type() == cty.NilType {
		return 0, fmt.Errorf("nil")
	}
	if !v.Type().Equals(cty.Number) {
		return 0, fmt.Errorf("%s", v.Type().FriendlyName())
	}
	if v.IsNull() {
		return math.NaN(), nil
	}
	if !v.IsKnown() {
		return 0, fmt.Errorf("unknown number")
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

// numberVal maps NaN to a null number; cty numbers cannot hold NaN.
func numberVal(v float64) cty.Value {
	if math.IsNaN(v) {
		return cty.NullVal(cty.Number)
	}
	return cty.NumberFloatVal(v)
}
