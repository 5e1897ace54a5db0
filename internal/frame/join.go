package frame

import "fmt"

// RightSuffix is appended to right-side columns whose names clash with the left side.
const RightSuffix = "_right"

// LeftJoin joins right onto f using the column on present in both frames.
// Every left row is kept in order; a left row matching k right rows yields k
// rows, and one with no match yields a single row with null right-hand cells.
// Keys compare by their text form and null keys never match. The key column
// appears once, taken from the left side.
func (f *Frame) LeftJoin(right *Frame, on string) (*Frame, error) {
	lk, err := f.Column(on)
	if err != nil {
		return nil, fmt.Errorf("left join: left %w", err)
	}
	rk, err := right.Column(on)
	if err != nil {
		return nil, fmt.Errorf("left join: right %w", err)
	}

	buckets := make(map[string][]int, rk.Len())
	for i := 0; i < rk.Len(); i++ {
		if rk.IsNull(i) {
			continue
		}
		k := rk.Format(i)
		buckets[k] = append(buckets[k], i)
	}

	leftIdx := make([]int, 0, f.rows)
	rightIdx := make([]int, 0, f.rows)
	for i := 0; i < f.rows; i++ {
		var matches []int
		if !lk.IsNull(i) {
			matches = buckets[lk.Format(i)]
		}
		if len(matches) == 0 {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, -1)
			continue
		}
		for _, j := range matches {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, j)
		}
	}

	cols := make([]*Column, 0, f.Width()+right.Width()-1)
	for _, c := range f.cols {
		cols = append(cols, c.take(leftIdx))
	}
	for _, c := range right.cols {
		if c.Name() == on {
			continue
		}
		rc := c.take(rightIdx)
		if f.Has(c.Name()) {
			rc = rc.Renamed(c.Name() + RightSuffix)
		}
		cols = append(cols, rc)
	}
	out, err := New(f.Name, cols...)
	if err != nil {
		return nil, fmt.Errorf("left join: %w", err)
	}
	out.rows = len(leftIdx)
	return out, nil
}
