package frame

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aarondl/null/v8"
)

// Kind is the logical type of a column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTimestamp
	KindDate
)

// Output layouts for temporal values.
const (
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Temporal reports whether values of the kind are backed by time.Time.
func (k Kind) Temporal() bool { return k == KindTimestamp || k == KindDate }

// Numeric reports whether the kind holds numbers.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// Column is a named, typed vector of nullable cells. Only the slice that
// matches kind is populated; temporal kinds share the times slice.
type Column struct {
	name   string
	kind   Kind
	strs   []null.String
	ints   []null.Int64
	floats []null.Float64
	bools  []null.Bool
	times  []null.Time
}

func NewStringColumn(name string, vals []null.String) *Column {
	return &Column{name: name, kind: KindString, strs: vals}
}

func NewIntColumn(name string, vals []null.Int64) *Column {
	return &Column{name: name, kind: KindInt, ints: vals}
}

func NewFloatColumn(name string, vals []null.Float64) *Column {
	return &Column{name: name, kind: KindFloat, floats: vals}
}

func NewBoolColumn(name string, vals []null.Bool) *Column {
	return &Column{name: name, kind: KindBool, bools: vals}
}

func NewTimestampColumn(name string, vals []null.Time) *Column {
	return &Column{name: name, kind: KindTimestamp, times: vals}
}

// NewDateColumn truncates every valid value to midnight UTC of its calendar day.
func NewDateColumn(name string, vals []null.Time) *Column {
	for i, v := range vals {
		if v.Valid {
			vals[i] = null.TimeFrom(truncateDay(v.Time))
		}
	}
	return &Column{name: name, kind: KindDate, times: vals}
}

// Strings builds a string column from plain values; empty strings stay non-null.
func Strings(name string, vals ...string) *Column {
	out := make([]null.String, len(vals))
	for i, v := range vals {
		out[i] = null.StringFrom(v)
	}
	return NewStringColumn(name, out)
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }

// Len returns the number of cells.
func (c *Column) Len() int {
	switch c.kind {
	case KindString:
		return len(c.strs)
	case KindInt:
		return len(c.ints)
	case KindFloat:
		return len(c.floats)
	case KindBool:
		return len(c.bools)
	default:
		return len(c.times)
	}
}

// IsNull reports whether cell i holds no value.
func (c *Column) IsNull(i int) bool {
	switch c.kind {
	case KindString:
		return !c.strs[i].Valid
	case KindInt:
		return !c.ints[i].Valid
	case KindFloat:
		return !c.floats[i].Valid
	case KindBool:
		return !c.bools[i].Valid
	default:
		return !c.times[i].Valid
	}
}

// NullCount returns the number of null cells.
func (c *Column) NullCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			n++
		}
	}
	return n
}

// Typed accessors. They return an invalid value when the column has another kind.

func (c *Column) String(i int) null.String {
	if c.kind != KindString {
		return null.String{}
	}
	return c.strs[i]
}

func (c *Column) Int(i int) null.Int64 {
	if c.kind != KindInt {
		return null.Int64{}
	}
	return c.ints[i]
}

// Float returns cell i as a float, widening int columns.
func (c *Column) Float(i int) null.Float64 {
	switch c.kind {
	case KindFloat:
		return c.floats[i]
	case KindInt:
		if v := c.ints[i]; v.Valid {
			return null.Float64From(float64(v.Int64))
		}
	}
	return null.Float64{}
}

func (c *Column) Bool(i int) null.Bool {
	if c.kind != KindBool {
		return null.Bool{}
	}
	return c.bools[i]
}

func (c *Column) Time(i int) null.Time {
	if !c.kind.Temporal() {
		return null.Time{}
	}
	return c.times[i]
}

// Value returns cell i as a plain Go value (string, int64, float64, bool,
// time.Time) or nil when null.
func (c *Column) Value(i int) any {
	if c.IsNull(i) {
		return nil
	}
	switch c.kind {
	case KindString:
		return c.strs[i].String
	case KindInt:
		return c.ints[i].Int64
	case KindFloat:
		return c.floats[i].Float64
	case KindBool:
		return c.bools[i].Bool
	default:
		return c.times[i].Time
	}
}

// Format renders cell i as text; null renders as "".
func (c *Column) Format(i int) string {
	if c.IsNull(i) {
		return ""
	}
	switch c.kind {
	case KindString:
		return c.strs[i].String
	case KindInt:
		return strconv.FormatInt(c.ints[i].Int64, 10)
	case KindFloat:
		return strconv.FormatFloat(c.floats[i].Float64, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(c.bools[i].Bool)
	case KindDate:
		return c.times[i].Time.Format(DateLayout)
	default:
		return c.times[i].Time.Format(TimestampLayout)
	}
}

// Renamed returns a shallow copy under a new name; cell storage is shared.
func (c *Column) Renamed(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

// take gathers cells by row index; a negative index yields null.
func (c *Column) take(idx []int) *Column {
	out := &Column{name: c.name, kind: c.kind}
	switch c.kind {
	case KindString:
		out.strs = make([]null.String, len(idx))
		for i, j := range idx {
			if j >= 0 {
				out.strs[i] = c.strs[j]
			}
		}
	case KindInt:
		out.ints = make([]null.Int64, len(idx))
		for i, j := range idx {
			if j >= 0 {
				out.ints[i] = c.ints[j]
			}
		}
	case KindFloat:
		out.floats = make([]null.Float64, len(idx))
		for i, j := range idx {
			if j >= 0 {
				out.floats[i] = c.floats[j]
			}
		}
	case KindBool:
		out.bools = make([]null.Bool, len(idx))
		for i, j := range idx {
			if j >= 0 {
				out.bools[i] = c.bools[j]
			}
		}
	default:
		out.times = make([]null.Time, len(idx))
		for i, j := range idx {
			if j >= 0 {
				out.times[i] = c.times[j]
			}
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
