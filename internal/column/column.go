// Package column holds the columnar value model at the engine boundary:
// an elementwise float64 column, a column of variable-length float64
// rows, and a group-key column. Columns track per-row validity so a
// null row keeps its index without contributing a value.
//
// This is deliberately not a dataframe: the only operations are the
// ones the density engine needs to receive populations and emit result
// rows in order.
package column

import "fmt"

// Float64 is an elementwise column of float64 values with per-row
// validity. Row order is insertion order.
type Float64 struct {
	values []float64
	valid  []bool
}

// NewFloat64 returns an empty elementwise column with capacity for n rows.
func NewFloat64(n int) *Float64 {
	return &Float64{
		values: make([]float64, 0, n),
		valid:  make([]bool, 0, n),
	}
}

// Float64FromSlice builds a column from values with every row valid.
func Float64FromSlice(values []float64) *Float64 {
	c := NewFloat64(len(values))
	for _, v := range values {
		c.Append(v)
	}
	return c
}

// Append adds a valid value row.
func (c *Float64) Append(v float64) {
	c.values = append(c.values, v)
	c.valid = append(c.valid, true)
}

// AppendNull adds a null row. The row occupies an index but holds no value.
func (c *Float64) AppendNull() {
	c.values = append(c.values, 0)
	c.valid = append(c.valid, false)
}

// Len returns the number of rows, null rows included.
func (c *Float64) Len() int { return len(c.values) }

// IsNull reports whether row i is null.
func (c *Float64) IsNull(i int) bool { return !c.valid[i] }

// Value returns the value at row i. The result is meaningless for a
// null row; check IsNull first.
func (c *Float64) Value(i int) float64 { return c.values[i] }

// Keys is a group-key column parallel to an elementwise value column.
// Arbitrary comparable keys are rendered to strings by the caller at
// the boundary.
type Keys []string

// List is a column of variable-length float64 rows. Rows live in one
// contiguous backing buffer addressed by offsets, so each row is a
// contiguous slice view and the whole column is cache-friendly to scan.
type List struct {
	data    []float64
	offsets []int // len(offsets) == rows+1
	valid   []bool
}

// NewList returns an empty list column with capacity hints for rows
// and total values.
func NewList(rows, values int) *List {
	return &List{
		data:    make([]float64, 0, values),
		offsets: append(make([]int, 0, rows+1), 0),
		valid:   make([]bool, 0, rows),
	}
}

// ListFromRows builds a list column from per-row slices. A nil row is
// stored as null; an empty non-nil row is a valid zero-length row.
func ListFromRows(rows [][]float64) *List {
	var total int
	for _, r := range rows {
		total += len(r)
	}
	l := NewList(len(rows), total)
	for _, r := range rows {
		if r == nil {
			l.AppendNull()
			continue
		}
		l.AppendRow(r)
	}
	return l
}

// ListFromFloat32Rows builds a list column from float32 rows, widening
// each value to float64 once at the boundary. A nil row is null.
func ListFromFloat32Rows(rows [][]float32) *List {
	var total int
	for _, r := range rows {
		total += len(r)
	}
	l := NewList(len(rows), total)
	for _, r := range rows {
		if r == nil {
			l.AppendNull()
			continue
		}
		for _, v := range r {
			l.data = append(l.data, float64(v))
		}
		l.offsets = append(l.offsets, len(l.data))
		l.valid = append(l.valid, true)
	}
	return l
}

// AppendRow adds a valid row holding a copy of vs.
func (l *List) AppendRow(vs []float64) {
	l.data = append(l.data, vs...)
	l.offsets = append(l.offsets, len(l.data))
	l.valid = append(l.valid, true)
}

// AppendNull adds a null row.
func (l *List) AppendNull() {
	l.offsets = append(l.offsets, len(l.data))
	l.valid = append(l.valid, false)
}

// Len returns the number of rows, null rows included.
func (l *List) Len() int { return len(l.valid) }

// IsNull reports whether row i is null.
func (l *List) IsNull(i int) bool { return !l.valid[i] }

// Row returns the row i values as a view into the backing buffer. The
// view is read-only by contract; callers must not mutate it. A null row
// returns nil.
func (l *List) Row(i int) []float64 {
	if !l.valid[i] {
		return nil
	}
	return l.data[l.offsets[i]:l.offsets[i+1]:l.offsets[i+1]]
}

// RowLen returns the length of row i (0 for null rows).
func (l *List) RowLen(i int) int { return l.offsets[i+1] - l.offsets[i] }

// Rows materialises the column as per-row slices, nil for null rows.
// Intended for boundary marshalling and tests, not hot paths.
func (l *List) Rows() [][]float64 {
	out := make([][]float64, l.Len())
	for i := range out {
		if l.valid[i] {
			out[i] = append([]float64{}, l.Row(i)...)
		}
	}
	return out
}

// String summarises the column for diagnostics.
func (l *List) String() string {
	return fmt.Sprintf("column.List{rows: %d, values: %d}", l.Len(), len(l.data))
}
