package dataset

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"rentsignal/pkg/errors"
)

// Table is a column-oriented frame of engineered features. Numeric columns
// feed the matrix branches; string columns feed the categorical and text
// encoders. Column insertion order is preserved.
type Table struct {
	n        int
	numOrder []string
	nums     map[string][]float64
	strOrder []string
	strs     map[string][]string
}

// NewTable creates an empty table with a fixed row count.
func NewTable(n int) *Table {
	return &Table{
		n:    n,
		nums: map[string][]float64{},
		strs: map[string][]string{},
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.n }

// SetNumeric adds or replaces a numeric column. Non-finite values are
// replaced by zero so downstream matrices stay trainable; the replacement
// is reported as a DataConversionWarning.
func (t *Table) SetNumeric(name string, values []float64) error {
	if len(values) != t.n {
		return errors.NewDimensionError("Table.SetNumeric("+name+")", t.n, len(values), 0)
	}
	cleaned := 0
	col := make([]float64, t.n)
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			col[i] = 0
			cleaned++
			continue
		}
		col[i] = v
	}
	if cleaned > 0 {
		errors.Warn(errors.NewDataConversionWarning("non-finite", "zero", name))
	}
	if _, exists := t.nums[name]; !exists {
		t.numOrder = append(t.numOrder, name)
	}
	t.nums[name] = col
	return nil
}

// Numeric returns a numeric column by name.
func (t *Table) Numeric(name string) ([]float64, error) {
	col, ok := t.nums[name]
	if !ok {
		return nil, errors.NewValueError("Table.Numeric", "no such column "+name)
	}
	return col, nil
}

// SetString adds or replaces a string column.
func (t *Table) SetString(name string, values []string) error {
	if len(values) != t.n {
		return errors.NewDimensionError("Table.SetString("+name+")", t.n, len(values), 0)
	}
	if _, exists := t.strs[name]; !exists {
		t.strOrder = append(t.strOrder, name)
	}
	t.strs[name] = values
	return nil
}

// Strings returns a string column by name.
func (t *Table) Strings(name string) ([]string, error) {
	col, ok := t.strs[name]
	if !ok {
		return nil, errors.NewValueError("Table.Strings", "no such column "+name)
	}
	return col, nil
}

// NumericNames returns numeric column names in insertion order.
func (t *Table) NumericNames() []string {
	out := make([]string, len(t.numOrder))
	copy(out, t.numOrder)
	return out
}

// Matrix assembles the named numeric columns into a dense row-major matrix.
func (t *Table) Matrix(names []string) (*mat.Dense, error) {
	if len(names) == 0 {
		return nil, errors.NewModelError("Table.Matrix", "no columns requested", errors.ErrEmptyData)
	}
	out := mat.NewDense(t.n, len(names), nil)
	for j, name := range names {
		col, err := t.Numeric(name)
		if err != nil {
			return nil, err
		}
		for i := 0; i < t.n; i++ {
			out.Set(i, j, col[i])
		}
	}
	return out, nil
}

// Slice returns a new table holding the given rows, in order.
func (t *Table) Slice(rows []int) (*Table, error) {
	out := NewTable(len(rows))
	for _, name := range t.numOrder {
		src := t.nums[name]
		col := make([]float64, len(rows))
		for i, r := range rows {
			if r < 0 || r >= t.n {
				return nil, errors.NewValueError("Table.Slice", "row index out of range")
			}
			col[i] = src[r]
		}
		out.numOrder = append(out.numOrder, name)
		out.nums[name] = col
	}
	for _, name := range t.strOrder {
		src := t.strs[name]
		col := make([]string, len(rows))
		for i, r := range rows {
			if r < 0 || r >= t.n {
				return nil, errors.NewValueError("Table.Slice", "row index out of range")
			}
			col[i] = src[r]
		}
		out.strOrder = append(out.strOrder, name)
		out.strs[name] = col
	}
	return out, nil
}

// Head returns the first n rows as a new table.
func (t *Table) Head(n int) (*Table, error) {
	if n < 0 || n > t.n {
		return nil, errors.NewValueError("Table.Head", "row count out of range")
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.Slice(rows)
}

// Tail returns the rows from offset to the end as a new table.
func (t *Table) Tail(offset int) (*Table, error) {
	if offset < 0 || offset > t.n {
		return nil, errors.NewValueError("Table.Tail", "offset out of range")
	}
	rows := make([]int, 0, t.n-offset)
	for i := offset; i < t.n; i++ {
		rows = append(rows, i)
	}
	return t.Slice(rows)
}
