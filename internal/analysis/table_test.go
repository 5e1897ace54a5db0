package analysis

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aarondl/null/v8"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
)

var csvRows = []string{
	"dept_division;num_days_late;case_closed;case_opened_date;case_status;note",
	"Storm Water;10.0;true;2018-01-01 00:42:00;Closed;first",
	"Storm Water;11.0;true;2018-01-02 08:00:00;Closed;second",
	"Storm Water;9.5;false;2018-01-03 09:15:00;Open;",
	"Field Operations;10.5;true;2018-02-01 10:00:00;Closed;fourth",
	"Field Operations;9.8;true;2018-02-02 11:00:00;Closed;fifth",
	"Field Operations;10.2;false;2018-02-03 12:00:00;Open;sixth",
	"Storm Water;8.8;true;2018-03-01 13:00:00;Closed;seventh",
	"Field Operations;9.7;true;2018-03-02 14:00:00;Closed;eighth",
	"Storm Water;50.0;;2018-03-03 15:00:00;Closed;ninth",
	"Field Operations;10.1;true;2018-08-08 00:00:00;Closed;tenth",
}

var processedLate = []float64{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50}

func loadFixture(t *testing.T) *frame.Frame {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.csv")
	if err := os.WriteFile(path, []byte(strings.Join(csvRows, "\n")), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	opt := frame.DefaultReadOptions()
	opt.Delimiter = ';'
	f, err := frame.ReadCSVFile(path, opt)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return f
}

func TestAnalyzeFrameAndMarkdown(t *testing.T) {
	opt := DefaultOptions()
	opt.SampleRows = 3
	opt.MaxRows = 9
	opt.GroupBy = []string{"dept_division"}

	rep, err := AnalyzeFrame(loadFixture(t), opt)
	if err != nil {
		t.Fatalf("AnalyzeFrame: %v", err)
	}
	assertReport(t, rep)

	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: cases.csv",
		"Rows: ~10 (processed 9)",
		"- num_days_late: numeric (non-null 9, missing 0.0%)",
		"outliers: 1 above |z|>3.5",
		"- case_closed: bool (non-null 8, missing 11.1%); true 6, false 2",
		"- case_opened_date: datetime",
		"from 2018-01-01 00:42:00 to 2018-03-03 15:00:00",
		"- case_status: categorical",
		"top: Closed(7), Open(2)",
		"[GROUP-BY SUMMARY]",
		"dept_division=Storm Water (n=5)",
		"[HEAD AND SAMPLE ROWS]",
		"| dept_division | num_days_late |",
		"[NOTES]",
		"processed only 9/10 rows due to MaxRows",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestAnalyzeFrameTextAndEmptyColumns(t *testing.T) {
	long := strings.Repeat("x", 70)
	f, err := frame.New("t",
		frame.Strings("address", long, long+"y"),
		frame.NewStringColumn("blank", []null.String{{}, {}}),
	)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	rep, err := AnalyzeFrame(f, DefaultOptions())
	if err != nil {
		t.Fatalf("AnalyzeFrame: %v", err)
	}
	addr := columnByName(t, rep, "address")
	if addr.Kind != "text" || len(addr.ExampleTexts) != 2 {
		t.Fatalf("address = %#v", addr)
	}
	blank := columnByName(t, rep, "blank")
	if blank.Kind != "empty" || blank.Missing != 2 {
		t.Fatalf("blank = %#v", blank)
	}
	if len(rep.Warnings) != 1 || rep.Warnings[0] != "column blank is entirely null" {
		t.Fatalf("warnings = %#v", rep.Warnings)
	}
	if md := rep.Markdown(); !strings.Contains(md, "e.g., "+strings.Repeat("x", 77)+"...") {
		t.Fatalf("long text not truncated:\n%s", md)
	}
}

func TestAnalyzeFrameUnknownGroupColumn(t *testing.T) {
	opt := DefaultOptions()
	opt.GroupBy = []string{"nope"}
	if _, err := AnalyzeFrame(loadFixture(t), opt); err == nil {
		t.Fatalf("expected error for unknown group column")
	}
}

func assertReport(t *testing.T, rep *Report) {
	t.Helper()
	if rep.Name != "cases.csv" {
		t.Fatalf("report name = %q", rep.Name)
	}
	if rep.Rows != 10 || rep.Processed != 9 {
		t.Fatalf("rows = %d processed = %d", rep.Rows, rep.Processed)
	}
	if len(rep.Warnings) != 1 || rep.Warnings[0] != "processed only 9/10 rows due to MaxRows" {
		t.Fatalf("warnings = %#v", rep.Warnings)
	}
	if len(rep.Samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(rep.Samples))
	}
	expectFirst := []string{"Storm Water", "10", "true", "2018-01-01 00:42:00", "Closed", "first"}
	if !equalStrings(rep.Samples[0], expectFirst) {
		t.Fatalf("first sample = %#v, want %#v", rep.Samples[0], expectFirst)
	}

	late := columnByName(t, rep, "num_days_late")
	checkStats(t, late, processedLate)
	count, maxZ := robustOutlierStats(processedLate, 3.5)
	if late.OutliersCount != count || count != 1 {
		t.Fatalf("outliers = %d, want %d", late.OutliersCount, count)
	}
	if !almostEqual(late.OutliersMaxAbsZ, maxZ, 1e-6) {
		t.Fatalf("max |z| = %f, want %f", late.OutliersMaxAbsZ, maxZ)
	}

	closed := columnByName(t, rep, "case_closed")
	if closed.Kind != "bool" || closed.True != 6 || closed.False != 2 || closed.Missing != 1 {
		t.Fatalf("case_closed = %#v", closed)
	}

	note := columnByName(t, rep, "note")
	if note.Kind != "categorical" || note.Missing != 1 || note.Unique != 8 {
		t.Fatalf("note = %#v", note)
	}

	status := columnByName(t, rep, "case_status")
	if len(status.TopValues) == 0 || status.TopValues[0].Value != "Closed" || status.TopValues[0].Count != 7 {
		t.Fatalf("status top = %#v", status.TopValues)
	}

	if len(rep.Groups) != 2 {
		t.Fatalf("groups len = %d, want 2", len(rep.Groups))
	}
	storm, field := rep.Groups[0], rep.Groups[1]
	if storm.Key != "dept_division=Storm Water" || storm.Size != 5 {
		t.Fatalf("storm group = %#v", storm)
	}
	if field.Key != "dept_division=Field Operations" || field.Size != 4 {
		t.Fatalf("field group = %#v", field)
	}
	checkNumSummary(t, storm.Metrics["num_days_late"], subset(processedLate, []int{0, 1, 2, 6, 8}))
	checkNumSummary(t, field.Metrics["num_days_late"], subset(processedLate, []int{3, 4, 5, 7}))
}

func columnByName(t *testing.T, rep *Report, name string) ColumnSummary {
	t.Helper()
	for _, c := range rep.Cols {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %q not found", name)
	return ColumnSummary{}
}

func checkStats(t *testing.T, col ColumnSummary, vals []float64) {
	t.Helper()
	if col.NonNull != len(vals) {
		t.Fatalf("non-null = %d, want %d", col.NonNull, len(vals))
	}
	if !almostEqual(col.Min, minFloat(vals), 1e-6) {
		t.Fatalf("min = %f, want %f", col.Min, minFloat(vals))
	}
	if !almostEqual(col.Max, maxFloat(vals), 1e-6) {
		t.Fatalf("max = %f, want %f", col.Max, maxFloat(vals))
	}
	if !almostEqual(col.Mean, mean(vals), 1e-6) {
		t.Fatalf("mean = %f, want %f", col.Mean, mean(vals))
	}
	if !almostEqual(col.Std, sampleStd(vals), 1e-6) {
		t.Fatalf("std = %f, want %f", col.Std, sampleStd(vals))
	}
}

func checkNumSummary(t *testing.T, s NumSummary, vals []float64) {
	t.Helper()
	if s.Count != len(vals) {
		t.Fatalf("summary count = %d, want %d", s.Count, len(vals))
	}
	if !almostEqual(s.Min, minFloat(vals), 1e-6) {
		t.Fatalf("summary min = %f, want %f", s.Min, minFloat(vals))
	}
	if !almostEqual(s.Max, maxFloat(vals), 1e-6) {
		t.Fatalf("summary max = %f, want %f", s.Max, maxFloat(vals))
	}
	if !almostEqual(s.Mean, mean(vals), 1e-6) {
		t.Fatalf("summary mean = %f, want %f", s.Mean, mean(vals))
	}
}

func robustOutlierStats(vals []float64, threshold float64) (count int, maxAbs float64) {
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	med := quantileValue(cp, 0.5)
	devs := make([]float64, len(cp))
	for i, v := range cp {
		d := math.Abs(v - med)
		devs[i] = d
	}
	sort.Float64s(devs)
	mad := quantileValue(devs, 0.5)
	if mad == 0 {
		return 0, 0
	}
	for _, v := range cp {
		z := 0.6745 * (v - med) / mad
		az := math.Abs(z)
		if az > threshold {
			count++
			if az > maxAbs {
				maxAbs = az
			}
		}
	}
	return
}

func quantileValue(sortedVals []float64, q float64) float64 {
	if len(sortedVals) == 0 {
		return 0
	}
	if q <= 0 {
		return sortedVals[0]
	}
	if q >= 1 {
		return sortedVals[len(sortedVals)-1]
	}
	pos := q * float64(len(sortedVals)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sortedVals[lo]
	}
	w := pos - float64(lo)
	return sortedVals[lo]*(1-w) + sortedVals[hi]*w
}

func subset(vals []float64, idxs []int) []float64 {
	out := make([]float64, len(idxs))
	for i, idx := range idxs {
		out[i] = vals[idx]
	}
	return out
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	var sum float64
	for _, v := range vals {
		diff := v - m
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

func minFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

