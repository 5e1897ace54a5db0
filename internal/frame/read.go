package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/xuri/excelize/v2"
)

// ReadOptions controls how tabular files are turned into frames.
type ReadOptions struct {
	// Delimiter for CSV. If 0, ',' is used.
	Delimiter rune
	// InferSchema picks the narrowest kind per column; otherwise all columns are strings.
	InferSchema bool
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// NullValue is an extra token read as null. Empty cells are always null.
	NullValue string
	// Sheet selects an XLSX worksheet by name; empty means the first sheet.
	Sheet string
}

// DefaultReadOptions mirrors reading with a header row and schema inference.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{Delimiter: ',', InferSchema: true}
}

// ReadCSVFile opens path and reads it with ReadCSV. The frame is named after the file.
func ReadCSVFile(path string, opt ReadOptions) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, filepath.Base(path), opt)
}

// ReadCSV reads a header row followed by data rows.
func ReadCSV(r io.Reader, name string, opt ReadOptions) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(name)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)

	var rows [][]string
	for {
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			break
		}
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return FromRecords(name, header, rows, opt)
}

// ReadXLSX reads a worksheet whose first row is the header.
func ReadXLSX(path string, opt ReadOptions) (*Frame, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return New(filepath.Base(path))
		}
		sheet = sheets[0]
	} else if idx, err := wb.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
			sheet, filepath.Base(path), strings.Join(wb.GetSheetList(), ", "))
	}

	all, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(all) == 0 {
		return New(filepath.Base(path))
	}
	rows := all[1:]
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		rows = rows[:opt.MaxRows]
	}
	return FromRecords(filepath.Base(path), all[0], rows, opt)
}

// FromRecords builds a frame from a header and raw text rows. Short rows are
// padded with nulls and long rows are truncated to the header width. Repeated
// header names get their column index appended (a,a becomes a0,a1) and blank
// names become _c<index>.
func FromRecords(name string, header []string, rows [][]string, opt ReadOptions) (*Frame, error) {
	header = uniqueHeader(header)
	ncol := len(header)
	cells := make([][]null.String, ncol)
	for j := range cells {
		cells[j] = make([]null.String, len(rows))
	}
	for i, rec := range rows {
		for j := 0; j < ncol && j < len(rec); j++ {
			v := rec[j]
			if v == "" || (opt.NullValue != "" && v == opt.NullValue) {
				continue
			}
			cells[j][i] = null.StringFrom(v)
		}
	}

	cols := make([]*Column, ncol)
	for j, h := range header {
		c := NewStringColumn(h, cells[j])
		if opt.InferSchema {
			c = inferColumn(c)
		}
		cols[j] = c
	}
	f, err := New(name, cols...)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return f, nil
}

func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for j, h := range header {
		if j == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[j] = h
		seen[h]++
	}
	for j, h := range out {
		switch {
		case h == "":
			out[j] = "_c" + strconv.Itoa(j)
		case seen[h] > 1:
			out[j] = h + strconv.Itoa(j)
		}
	}
	return out
}

// inferColumn narrows a string column to the first kind every non-null cell
// parses as: int, float, bool, timestamp, date. Otherwise it stays a string.
func inferColumn(c *Column) *Column {
	if c.NullCount() == c.Len() {
		return c
	}
	candidates := []struct {
		kind Kind
		ok   func(string) bool
	}{
		{KindInt, func(s string) bool { _, err := strconv.ParseInt(s, 10, 64); return err == nil }},
		{KindFloat, func(s string) bool { f, err := strconv.ParseFloat(s, 64); return err == nil && !math.IsInf(f, 0) }},
		{KindBool, func(s string) bool { _, ok := parseBool(s); return ok }},
		{KindTimestamp, func(s string) bool { _, ok := parseTimestamp(s); return ok }},
		{KindDate, func(s string) bool { _, err := time.Parse(DateLayout, s); return err == nil }},
	}
	for _, cand := range candidates {
		all := true
		for _, v := range c.strs {
			if v.Valid && !cand.ok(v.String) {
				all = false
				break
			}
		}
		if all {
			out, err := Cast(c, cand.kind)
			if err == nil {
				return out
			}
		}
	}
	return c
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

var timestampLayouts = []string{
	time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseISOTime accepts any ISO timestamp layout or a bare date.
func parseISOTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, ok := parseTimestamp(s); ok {
		return t, true
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
