package frame

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadCSVInfersSchema(t *testing.T) {
	body := "\ufeffcase_id,num_days_late,council_district,case_closed,flag,stamp,day,note\n" +
		"1014127332,-998.5087616,5,YES,true,2018-01-01 00:42:00,2018-01-01,a\n" +
		"1014127333,2.0,3,NO,false,2018-01-02T08:00:00,2018-01-02,\n" +
		"1014127334,,,NO,,,,c\n"
	f, err := ReadCSV(strings.NewReader(body), "case.csv", DefaultReadOptions())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("rows = %d, want 3", f.Len())
	}
	want := map[string]Kind{
		"case_id":          KindInt,
		"num_days_late":    KindFloat,
		"council_district": KindInt,
		"case_closed":      KindString,
		"flag":             KindBool,
		"stamp":            KindTimestamp,
		"day":              KindDate,
		"note":             KindString,
	}
	for _, fld := range f.Schema() {
		if want[fld.Name] != fld.Kind {
			t.Errorf("%s: kind %s, want %s", fld.Name, fld.Kind, want[fld.Name])
		}
	}
	note, _ := f.Column("note")
	if !note.IsNull(1) {
		t.Fatalf("empty cell should be null")
	}
	late, _ := f.Column("num_days_late")
	if !late.IsNull(2) {
		t.Fatalf("empty numeric cell should be null")
	}
}

func TestReadCSVPadsShortRowsAndHonoursOptions(t *testing.T) {
	body := "a;b;c\n1;2\n3;4;5;6\nNA;x;y\n"
	opt := ReadOptions{Delimiter: ';', InferSchema: false, NullValue: "NA", MaxRows: 3}
	f, err := ReadCSV(strings.NewReader(body), "t", opt)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if f.Width() != 3 || f.Len() != 3 {
		t.Fatalf("shape = %dx%d", f.Len(), f.Width())
	}
	c, _ := f.Column("c")
	if !c.IsNull(0) {
		t.Fatalf("short row should pad with null")
	}
	if got := f.Row(1); strings.Join(got, ",") != "3,4,5" {
		t.Fatalf("long row not truncated: %v", got)
	}
	a, _ := f.Column("a")
	if a.Kind() != KindString || !a.IsNull(2) {
		t.Fatalf("null token not honoured: kind=%s null=%v", a.Kind(), a.IsNull(2))
	}

	opt.MaxRows = 1
	f, err = ReadCSV(strings.NewReader(body), "t", opt)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if f.Len() != 1 {
		t.Fatalf("MaxRows not applied: %d", f.Len())
	}
}

func TestReadCSVRenamesRepeatedHeaders(t *testing.T) {
	body := "a,a,,b\n1,2,3,4\n"
	f, err := ReadCSV(strings.NewReader(body), "d", DefaultReadOptions())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := strings.Join(f.Columns(), ","); got != "a0,a1,_c2,b" {
		t.Fatalf("columns = %s", got)
	}
	a1, _ := f.Column("a1")
	if a1.Int(0).Int64 != 2 {
		t.Fatalf("a1 = %v, want 2", a1.Int(0))
	}
}

func TestReadCSVEmpty(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(""), "empty.csv", DefaultReadOptions())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if f.Len() != 0 || f.Width() != 0 {
		t.Fatalf("expected empty frame")
	}
}

func TestReadCSVFileMissing(t *testing.T) {
	if _, err := ReadCSVFile(filepath.Join(t.TempDir(), "nope.csv"), DefaultReadOptions()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestReadXLSXSheetSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dept.xlsx")
	wb := excelize.NewFile()
	if err := wb.SetSheetName("Sheet1", "Depts"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	rows := [][]any{
		{"dept_division", "dept_subject_to_SLA"},
		{"Code Enforcement", "YES"},
		{"Shelter", "NO"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.SetSheetRow("Depts", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := wb.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = wb.Close()

	f, err := ReadXLSX(path, DefaultReadOptions())
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if f.Len() != 2 || f.Name != "dept.xlsx" {
		t.Fatalf("unexpected frame %s with %d rows", f.Name, f.Len())
	}

	opt := DefaultReadOptions()
	opt.Sheet = "Missing"
	_, err = ReadXLSX(path, opt)
	if err == nil || !strings.Contains(err.Error(), "Available sheets: Depts") {
		t.Fatalf("expected sheet-not-found error, got %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("fixture vanished: %v", err)
	}
}
