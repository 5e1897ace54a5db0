package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Column expressions. Each returns a new column named after its first input;
// use Column.Renamed to give it another name. Null inputs yield null outputs
// unless stated otherwise.

// Equals compares the text form of every cell with lit.
func Equals(c *Column, lit string) *Column {
	out := make([]null.Bool, c.Len())
	for i := range out {
		if !c.IsNull(i) {
			out[i] = null.BoolFrom(c.Format(i) == lit)
		}
	}
	return NewBoolColumn(c.Name(), out)
}

// Not negates a bool column.
func Not(c *Column) (*Column, error) {
	if c.Kind() != KindBool {
		return nil, fmt.Errorf("not %s: %w: %s", c.Name(), ErrKindMismatch, c.Kind())
	}
	out := make([]null.Bool, c.Len())
	for i, v := range c.bools {
		if v.Valid {
			out[i] = null.BoolFrom(!v.Bool)
		}
	}
	return NewBoolColumn(c.Name(), out), nil
}

// Lower lowercases a string column using Unicode case rules.
func Lower(c *Column) (*Column, error) {
	caser := cases.Lower(language.Und)
	return mapString(c, "lower", caser.String)
}

// Trim strips leading and trailing ASCII spaces. Tabs and other whitespace
// are kept.
func Trim(c *Column) (*Column, error) {
	return mapString(c, "trim", func(s string) string { return strings.Trim(s, " ") })
}

func mapString(c *Column, op string, fn func(string) string) (*Column, error) {
	if c.Kind() != KindString {
		return nil, fmt.Errorf("%s %s: %w: %s", op, c.Name(), ErrKindMismatch, c.Kind())
	}
	out := make([]null.String, c.Len())
	for i, v := range c.strs {
		if v.Valid {
			out[i] = null.StringFrom(fn(v.String))
		}
	}
	return NewStringColumn(c.Name(), out), nil
}

// DivideBy divides a numeric column by d. Division by zero yields null.
func DivideBy(c *Column, d float64) (*Column, error) {
	if !c.Kind().Numeric() {
		return nil, fmt.Errorf("divide %s: %w: %s", c.Name(), ErrKindMismatch, c.Kind())
	}
	out := make([]null.Float64, c.Len())
	if d == 0 {
		return NewFloatColumn(c.Name(), out), nil
	}
	for i := range out {
		if v := c.Float(i); v.Valid {
			out[i] = null.Float64From(v.Float64 / d)
		}
	}
	return NewFloatColumn(c.Name(), out), nil
}

// ToTimestamp parses a string column with a Go time layout in loc. Cells that
// fail to parse become null; the number of such cells is returned. A column
// that is already temporal is converted to a timestamp column unchanged.
// Two-digit years ("06" without "2006") always land in 2000-2099.
func ToTimestamp(c *Column, layout string, loc *time.Location) (*Column, int, error) {
	if c.Kind().Temporal() {
		return &Column{name: c.name, kind: KindTimestamp, times: c.times}, 0, nil
	}
	if c.Kind() != KindString {
		return nil, 0, fmt.Errorf("to_timestamp %s: %w: %s", c.Name(), ErrKindMismatch, c.Kind())
	}
	if loc == nil {
		loc = time.UTC
	}
	shortYear := strings.Contains(layout, "06") && !strings.Contains(layout, "2006")
	failed := 0
	out := make([]null.Time, c.Len())
	for i, v := range c.strs {
		if !v.Valid {
			continue
		}
		t, err := time.ParseInLocation(layout, v.String, loc)
		if err != nil {
			failed++
			continue
		}
		if shortYear && t.Year() < 2000 {
			t = t.AddDate(100, 0, 0)
		}
		out[i] = null.TimeFrom(t)
	}
	return NewTimestampColumn(c.Name(), out), failed, nil
}

// DateDiff returns the number of calendar days from start to end.
func DateDiff(end, start *Column) (*Column, error) {
	if !end.Kind().Temporal() || !start.Kind().Temporal() {
		return nil, fmt.Errorf("datediff %s, %s: %w: %s, %s", end.Name(), start.Name(), ErrKindMismatch, end.Kind(), start.Kind())
	}
	if end.Len() != start.Len() {
		return nil, fmt.Errorf("datediff %s, %s: %w", end.Name(), start.Name(), ErrLengthMismatch)
	}
	out := make([]null.Int64, end.Len())
	for i := range out {
		e, s := end.times[i], start.times[i]
		if e.Valid && s.Valid {
			out[i] = null.Int64From(daysBetween(s.Time, e.Time))
		}
	}
	return NewIntColumn(end.Name(), out), nil
}

// DateDiffFrom returns the number of calendar days from start to ref.
func DateDiffFrom(ref time.Time, start *Column) (*Column, error) {
	if !start.Kind().Temporal() {
		return nil, fmt.Errorf("datediff %s: %w: %s", start.Name(), ErrKindMismatch, start.Kind())
	}
	out := make([]null.Int64, start.Len())
	for i, s := range start.times {
		if s.Valid {
			out[i] = null.Int64From(daysBetween(s.Time, ref))
		}
	}
	return NewIntColumn(start.Name(), out), nil
}

func daysBetween(from, to time.Time) int64 {
	d := truncateDay(to).Sub(truncateDay(from))
	return int64(math.Round(d.Hours() / 24))
}

// When picks then[i] where cond[i] is true and otherwise[i] everywhere else,
// including rows where cond is null.
func When(cond, then, otherwise *Column) (*Column, error) {
	if cond.Kind() != KindBool {
		return nil, fmt.Errorf("when %s: %w: condition is %s", cond.Name(), ErrKindMismatch, cond.Kind())
	}
	if then.Kind() != otherwise.Kind() {
		return nil, fmt.Errorf("when %s: %w: %s vs %s", cond.Name(), ErrKindMismatch, then.Kind(), otherwise.Kind())
	}
	if cond.Len() != then.Len() || cond.Len() != otherwise.Len() {
		return nil, fmt.Errorf("when %s: %w", cond.Name(), ErrLengthMismatch)
	}
	out := otherwise.take(identity(otherwise.Len()))
	out.name = then.Name()
	for i, b := range cond.bools {
		if !b.Valid || !b.Bool {
			continue
		}
		switch then.kind {
		case KindString:
			out.strs[i] = then.strs[i]
		case KindInt:
			out.ints[i] = then.ints[i]
		case KindFloat:
			out.floats[i] = then.floats[i]
		case KindBool:
			out.bools[i] = then.bools[i]
		default:
			out.times[i] = then.times[i]
		}
	}
	return out, nil
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Cast converts a column to another kind. Values that cannot be represented
// become null.
func Cast(c *Column, to Kind) (*Column, error) {
	if c.Kind() == to {
		return c, nil
	}
	n := c.Len()
	switch to {
	case KindString:
		out := make([]null.String, n)
		for i := range out {
			if !c.IsNull(i) {
				out[i] = null.StringFrom(c.Format(i))
			}
		}
		return NewStringColumn(c.Name(), out), nil
	case KindInt:
		out := make([]null.Int64, n)
		for i := range out {
			if c.IsNull(i) {
				continue
			}
			switch c.Kind() {
			case KindFloat:
				if f := c.floats[i].Float64; !math.IsNaN(f) && !math.IsInf(f, 0) {
					out[i] = null.Int64From(int64(f))
				}
			case KindBool:
				if c.bools[i].Bool {
					out[i] = null.Int64From(1)
				} else {
					out[i] = null.Int64From(0)
				}
			case KindString:
				if v, err := strconv.ParseInt(strings.TrimSpace(c.strs[i].String), 10, 64); err == nil {
					out[i] = null.Int64From(v)
				}
			case KindTimestamp, KindDate:
				out[i] = null.Int64From(c.times[i].Time.Unix())
			}
		}
		return NewIntColumn(c.Name(), out), nil
	case KindFloat:
		out := make([]null.Float64, n)
		for i := range out {
			if c.IsNull(i) {
				continue
			}
			switch c.Kind() {
			case KindInt:
				out[i] = null.Float64From(float64(c.ints[i].Int64))
			case KindBool:
				if c.bools[i].Bool {
					out[i] = null.Float64From(1)
				} else {
					out[i] = null.Float64From(0)
				}
			case KindString:
				if v, err := strconv.ParseFloat(strings.TrimSpace(c.strs[i].String), 64); err == nil {
					out[i] = null.Float64From(v)
				}
			case KindTimestamp, KindDate:
				out[i] = null.Float64From(float64(c.times[i].Time.Unix()))
			}
		}
		return NewFloatColumn(c.Name(), out), nil
	case KindBool:
		out := make([]null.Bool, n)
		for i := range out {
			if c.IsNull(i) {
				continue
			}
			switch c.Kind() {
			case KindInt:
				out[i] = null.BoolFrom(c.ints[i].Int64 != 0)
			case KindFloat:
				out[i] = null.BoolFrom(c.floats[i].Float64 != 0)
			case KindString:
				if b, ok := parseBool(c.strs[i].String); ok {
					out[i] = null.BoolFrom(b)
				}
			}
		}
		return NewBoolColumn(c.Name(), out), nil
	case KindTimestamp, KindDate:
		out := make([]null.Time, n)
		for i := range out {
			if c.IsNull(i) {
				continue
			}
			switch c.Kind() {
			case KindTimestamp, KindDate:
				out[i] = c.times[i]
			case KindString:
				if t, ok := parseISOTime(c.strs[i].String); ok {
					out[i] = null.TimeFrom(t)
				}
			case KindInt:
				out[i] = null.TimeFrom(time.Unix(c.ints[i].Int64, 0).UTC())
			}
		}
		if to == KindDate {
			return NewDateColumn(c.Name(), out), nil
		}
		return NewTimestampColumn(c.Name(), out), nil
	}
	return nil, fmt.Errorf("cast %s: %w: unsupported target %s", c.Name(), ErrKindMismatch, to)
}
