// Package frame provides the column-major data frame returned by the tabular
// and STILT fetchers. A frame is an ordered set of equally-long typed
// columns; values are held in plain Go slices.
package frame

import (
	"fmt"
	"sort"
	"time"
)

// Column is a named, typed value sequence. Values holds one of []float32,
// []float64, []int32, []int64, []string or []time.Time.
type Column struct {
	Name   string
	Values any
}

// Len returns the number of values in the column.
func (c Column) Len() int {
	switch v := c.Values.(type) {
	case []float32:
		return len(v)
	case []float64:
		return len(v)
	case []int32:
		return len(v)
	case []int64:
		return len(v)
	case []string:
		return len(v)
	case []time.Time:
		return len(v)
	default:
		return 0
	}
}

// Frame is an ordered collection of columns with a common length.
type Frame struct {
	cols  []Column
	index map[string]int
	nRows int
}

// New builds a frame from columns. All columns must share one length.
func New(cols ...Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for _, col := range cols {
		if err := f.add(col); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Frame) add(col Column) error {
	if _, dup := f.index[col.Name]; dup {
		return fmt.Errorf("duplicate column %q", col.Name)
	}
	n := col.Len()
	if len(f.cols) == 0 {
		f.nRows = n
	} else if n != f.nRows {
		return fmt.Errorf("column %q has %d rows, want %d", col.Name, n, f.nRows)
	}
	f.index[col.Name] = len(f.cols)
	f.cols = append(f.cols, col)
	return nil
}

// NRows returns the common column length.
func (f *Frame) NRows() int { return f.nRows }

// NCols returns the number of columns.
func (f *Frame) NCols() int { return len(f.cols) }

// ColNames returns the column names in frame order.
func (f *Frame) ColNames() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (f *Frame) Column(name string) (Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return Column{}, false
	}
	return f.cols[i], true
}

// Float64s returns the named column's values as float64, widening float32
// and integer columns.
func (f *Frame) Float64s(name string) ([]float64, bool) {
	col, ok := f.Column(name)
	if !ok {
		return nil, false
	}
	switch v := col.Values.(type) {
	case []float64:
		return v, true
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case []int32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case []int64:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	default:
		return nil, false
	}
}

// Times returns the named column's values as time.Time.
func (f *Frame) Times(name string) ([]time.Time, bool) {
	col, ok := f.Column(name)
	if !ok {
		return nil, false
	}
	v, ok := col.Values.([]time.Time)
	return v, ok
}

// Strings returns the named column's values as strings.
func (f *Frame) Strings(name string) ([]string, bool) {
	col, ok := f.Column(name)
	if !ok {
		return nil, false
	}
	v, ok := col.Values.([]string)
	return v, ok
}

// Select returns a new frame with only the given columns, in the given
// order. Unknown names are an error.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		col, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("no column %q", name)
		}
		cols = append(cols, col)
	}
	return New(cols...)
}

// FilterRows returns a new frame keeping only rows where keep is true.
// len(keep) must equal NRows.
func (f *Frame) FilterRows(keep []bool) (*Frame, error) {
	if len(keep) != f.nRows {
		return nil, fmt.Errorf("mask length %d, want %d", len(keep), f.nRows)
	}
	cols := make([]Column, len(f.cols))
	for i, col := range f.cols {
		cols[i] = Column{Name: col.Name, Values: filterValues(col.Values, keep)}
	}
	return New(cols...)
}

func filterValues(values any, keep []bool) any {
	switch v := values.(type) {
	case []float32:
		return filterSlice(v, keep)
	case []float64:
		return filterSlice(v, keep)
	case []int32:
		return filterSlice(v, keep)
	case []int64:
		return filterSlice(v, keep)
	case []string:
		return filterSlice(v, keep)
	case []time.Time:
		return filterSlice(v, keep)
	default:
		return values
	}
}

func filterSlice[T any](v []T, keep []bool) []T {
	out := make([]T, 0, len(v))
	for i, x := range v {
		if keep[i] {
			out = append(out, x)
		}
	}
	return out
}

// SortedNames returns names sorted lexicographically, the payload order used
// by the portal's binary representation.
func SortedNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}
