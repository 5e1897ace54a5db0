// Package frame implements a small column-oriented, nullable, typed table
// with the handful of relational operations the case pipeline needs.
package frame

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrColumnNotFound is returned when a named column does not exist.
	ErrColumnNotFound = errors.New("column not found")
	// ErrColumnExists is returned when an operation would duplicate a column name.
	ErrColumnExists = errors.New("column already exists")
	// ErrLengthMismatch is returned when columns of different lengths are combined.
	ErrLengthMismatch = errors.New("column length mismatch")
	// ErrKindMismatch is returned when an expression receives a column of the wrong kind.
	ErrKindMismatch = errors.New("column kind mismatch")
)

// Field describes one column of a frame's schema.
type Field struct {
	Name string
	Kind Kind
}

// Frame is an ordered set of equal-length columns. Operations never mutate
// the receiver; they return a new Frame that may share column storage.
type Frame struct {
	Name  string
	cols  []*Column
	index map[string]int
	rows  int
}

// New builds a frame from columns, which must have unique names and equal lengths.
func New(name string, cols ...*Column) (*Frame, error) {
	f := &Frame{Name: name, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := f.index[c.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrColumnExists, c.Name())
		}
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrLengthMismatch, c.Name(), c.Len(), f.rows)
		}
		f.index[c.Name()] = i
		f.cols = append(f.cols, c)
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.cols) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name()
	}
	return out
}

// Schema returns name and kind for every column.
func (f *Frame) Schema() []Field {
	out := make([]Field, len(f.cols))
	for i, c := range f.cols {
		out[i] = Field{Name: c.Name(), Kind: c.Kind()}
	}
	return out
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return f.cols[i], nil
}

// ColumnAt returns the column at position i.
func (f *Frame) ColumnAt(i int) *Column { return f.cols[i] }

// Row renders row i as text cells.
func (f *Frame) Row(i int) []string {
	out := make([]string, len(f.cols))
	for j, c := range f.cols {
		out[j] = c.Format(i)
	}
	return out
}

// WithColumn replaces the column of the same name in place, or appends it.
func (f *Frame) WithColumn(c *Column) (*Frame, error) {
	if len(f.cols) > 0 && c.Len() != f.rows {
		return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrLengthMismatch, c.Name(), c.Len(), f.rows)
	}
	cols := make([]*Column, len(f.cols), len(f.cols)+1)
	copy(cols, f.cols)
	if i, ok := f.index[c.Name()]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(f.Name, cols...)
}

// Rename changes a column name. A missing column is left alone.
func (f *Frame) Rename(from, to string) (*Frame, error) {
	i, ok := f.index[from]
	if !ok || from == to {
		return f, nil
	}
	if f.Has(to) {
		return nil, fmt.Errorf("rename %s: %w: %s", from, ErrColumnExists, to)
	}
	cols := make([]*Column, len(f.cols))
	copy(cols, f.cols)
	cols[i] = cols[i].Renamed(to)
	return New(f.Name, cols...)
}

// Drop removes the named columns; unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	cols := make([]*Column, 0, len(f.cols))
	for _, c := range f.cols {
		if _, ok := skip[c.Name()]; !ok {
			cols = append(cols, c)
		}
	}
	out, _ := New(f.Name, cols...)
	if len(cols) == 0 {
		out.rows = f.rows
	}
	return out
}

// Select projects the named columns in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c, err := f.Column(n)
		if err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
		cols = append(cols, c)
	}
	return New(f.Name, cols...)
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n < 0 || n >= f.rows {
		return f
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return f.take(idx)
}

func (f *Frame) take(idx []int) *Frame {
	cols := make([]*Column, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.take(idx)
	}
	out, _ := New(f.Name, cols...)
	out.rows = len(idx)
	return out
}

// String renders a plain-text preview table of the frame.
func (f *Frame) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(f.Columns(), " | "))
	b.WriteString("\n")
	for i := 0; i < f.rows; i++ {
		b.WriteString(strings.Join(f.Row(i), " | "))
		b.WriteString("\n")
	}
	return b.String()
}
