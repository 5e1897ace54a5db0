package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
)

// Options controls analysis behavior for tabular data.
type Options struct {
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to include in the report.
	// 0 means the default of 5; negative disables samples.
	SampleRows int
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Report is a markdown-friendly analysis of a frame.
type Report struct {
	Name      string
	Rows      int
	Processed int
	Cols      []ColumnSummary
	Samples   [][]string
	Warnings  []string
	Groups    []GroupResult
}

// ColumnSummary captures the column kind and statistics.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|bool|datetime|categorical|text|empty
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Bool counts
	True  int
	False int
	// Datetime range
	Earliest time.Time
	Latest   time.Time
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string
	Size    int
	Metrics map[string]NumSummary // by column name
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// AnalyzeFrame profiles f and returns a Report.
func AnalyzeFrame(f *frame.Frame, opt Options) (*Report, error) {
	rep := &Report{Name: f.Name, Rows: f.Len()}
	processed := f.Len()
	if opt.MaxRows > 0 && opt.MaxRows < processed {
		processed = opt.MaxRows
	}
	rep.Processed = processed
	sampleRows := opt.SampleRows
	if sampleRows == 0 {
		sampleRows = 5
	}
	for i := 0; i < min(sampleRows, processed); i++ {
		rep.Samples = append(rep.Samples, f.Row(i))
	}

	var groupCols []*frame.Column
	for _, name := range opt.GroupBy {
		c, err := f.Column(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("group by: %w", err)
		}
		groupCols = append(groupCols, c)
	}

	rep.Cols = make([]ColumnSummary, 0, f.Width())
	for j := 0; j < f.Width(); j++ {
		rep.Cols = append(rep.Cols, summarize(f.ColumnAt(j), processed, opt))
		if s := rep.Cols[j]; s.NonNull == 0 && processed > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s is entirely null", s.Name))
		}
	}
	if rep.Processed < rep.Rows {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", rep.Processed, rep.Rows))
	}
	if len(groupCols) > 0 {
		rep.Groups = groupBy(f, groupCols, processed)
	}
	return rep, nil
}

func summarize(c *frame.Column, n int, opt Options) ColumnSummary {
	s := ColumnSummary{Name: c.Name()}
	for i := 0; i < n; i++ {
		if c.IsNull(i) {
			s.Missing++
		}
	}
	s.NonNull = n - s.Missing
	if s.NonNull == 0 {
		s.Kind = "empty"
		return s
	}
	switch {
	case c.Kind().Numeric():
		s.Kind = "numeric"
		summarizeNumeric(&s, c, n, opt)
	case c.Kind() == frame.KindBool:
		s.Kind = "bool"
		for i := 0; i < n; i++ {
			if v := c.Bool(i); v.Valid {
				if v.Bool {
					s.True++
				} else {
					s.False++
				}
			}
		}
		s.Unique = min(s.True, 1) + min(s.False, 1)
	case c.Kind().Temporal():
		s.Kind = "datetime"
		seen := map[time.Time]struct{}{}
		for i := 0; i < n; i++ {
			v := c.Time(i)
			if !v.Valid {
				continue
			}
			seen[v.Time] = struct{}{}
			if s.Earliest.IsZero() || v.Time.Before(s.Earliest) {
				s.Earliest = v.Time
			}
			if v.Time.After(s.Latest) {
				s.Latest = v.Time
			}
		}
		s.Unique = len(seen)
	default:
		summarizeText(&s, c, n)
	}
	return s
}

func summarizeNumeric(s *ColumnSummary, c *frame.Column, n int, opt Options) {
	// Welford
	var (
		cnt  int
		mean float64
		m2   float64
	)
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	vals := make([]float64, 0, s.NonNull)
	seen := map[float64]struct{}{}
	for i := 0; i < n; i++ {
		v := c.Float(i)
		if !v.Valid || math.IsNaN(v.Float64) {
			continue
		}
		x := v.Float64
		cnt++
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
		delta := x - mean
		mean += delta / float64(cnt)
		m2 += delta * (x - mean)
		vals = append(vals, x)
		seen[x] = struct{}{}
	}
	if cnt == 0 {
		s.Min, s.Max = 0, 0
		return
	}
	s.Mean = mean
	s.Unique = len(seen)
	if cnt > 1 {
		s.Std = math.Sqrt(m2 / float64(cnt-1))
	}
	if !opt.Outliers || len(vals) < 8 {
		return
	}
	median, mad := medianMAD(vals)
	thr := opt.OutlierThreshold
	if thr <= 0 {
		thr = 3.5
	}
	s.OutlierThreshold = thr
	if mad == 0 {
		return
	}
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			s.OutliersCount++
		}
		if az > s.OutliersMaxAbsZ {
			s.OutliersMaxAbsZ = az
		}
	}
}

func summarizeText(s *ColumnSummary, c *frame.Column, n int) {
	cats := map[string]int{}
	for i := 0; i < n; i++ {
		v := c.String(i)
		if !v.Valid {
			continue
		}
		if len(cats) <= 10000 && len(v.String) <= 64 { // guard memory
			cats[v.String]++
		}
		if len(s.ExampleTexts) < 3 {
			s.ExampleTexts = append(s.ExampleTexts, v.String)
		}
	}
	s.Unique = len(cats)
	if len(cats) == 0 {
		s.Kind = "text"
		return
	}
	s.Kind = "categorical"
	s.ExampleTexts = nil
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > 8 {
		tops = tops[:8]
	}
	s.TopValues = tops
}

func groupBy(f *frame.Frame, keys []*frame.Column, n int) []GroupResult {
	type gAcc struct {
		size int
		sum  map[int]float64
		cnt  map[int]int
		min  map[int]float64
		max  map[int]float64
	}
	var numCols []int
	for j := 0; j < f.Width(); j++ {
		if f.ColumnAt(j).Kind().Numeric() {
			numCols = append(numCols, j)
		}
	}
	groups := map[string]*gAcc{}
	parts := make([]string, len(keys))
	for i := 0; i < n; i++ {
		for k, c := range keys {
			parts[k] = fmt.Sprintf("%s=%s", c.Name(), safeVal(c.Format(i)))
		}
		gkey := strings.Join(parts, " | ")
		ga := groups[gkey]
		if ga == nil {
			ga = &gAcc{sum: map[int]float64{}, cnt: map[int]int{}, min: map[int]float64{}, max: map[int]float64{}}
			groups[gkey] = ga
		}
		ga.size++
		for _, j := range numCols {
			v := f.ColumnAt(j).Float(i)
			if !v.Valid {
				continue
			}
			x := v.Float64
			ga.sum[j] += x
			ga.cnt[j]++
			if m, ok := ga.min[j]; !ok || x < m {
				ga.min[j] = x
			}
			if m, ok := ga.max[j]; !ok || x > m {
				ga.max[j] = x
			}
		}
	}

	out := make([]GroupResult, 0, len(groups))
	for k, ga := range groups {
		gr := GroupResult{Key: k, Size: ga.size, Metrics: map[string]NumSummary{}}
		for _, j := range numCols {
			if ga.cnt[j] == 0 {
				continue
			}
			gr.Metrics[f.ColumnAt(j).Name()] = NumSummary{Count: ga.cnt[j], Min: ga.min[j], Max: ga.max[j], Mean: ga.sum[j] / float64(ga.cnt[j])}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}

// Markdown renders a compact report for the terminal or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if r.Rows > 0 {
		if r.Processed > 0 && r.Processed < r.Rows {
			b.WriteString(fmt.Sprintf("Rows: ~%d (processed %d)\n", r.Rows, r.Processed))
		} else {
			b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
		}
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
				if c.OutliersMaxAbsZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", c.OutliersMaxAbsZ))
				}
			}
		case "bool":
			b.WriteString(fmt.Sprintf("; true %d, false %d", c.True, c.False))
		case "datetime":
			b.WriteString(fmt.Sprintf("; from %s to %s", c.Earliest.Format(frame.TimestampLayout), c.Latest.Format(frame.TimestampLayout)))
		case "categorical":
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case "text":
			if len(c.ExampleTexts) > 0 {
				b.WriteString("; e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(truncate(ex)))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys[:min(6, len(keys))] {
				m := g.Metrics[k]
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max))
			}
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				b.WriteString(safeVal(truncate(val)))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func truncate(s string) string {
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
