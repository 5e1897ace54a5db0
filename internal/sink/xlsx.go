package sink

import (
	"context"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
)

type xlsxWriter struct {
	path  string
	sheet string
}

func (w *xlsxWriter) Write(ctx context.Context, f *frame.Frame) error {
	if f.Len()+1 > excelize.TotalRows {
		return fmt.Errorf("xlsx: %d rows exceed the worksheet limit of %d", f.Len(), excelize.TotalRows-1)
	}
	wb := excelize.NewFile()
	defer wb.Close()
	if err := wb.SetSheetName("Sheet1", w.sheet); err != nil {
		return fmt.Errorf("xlsx: name sheet: %w", err)
	}
	bold, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: header style: %w", err)
	}
	sw, err := wb.NewStreamWriter(w.sheet)
	if err != nil {
		return fmt.Errorf("xlsx: stream writer: %w", err)
	}

	header := make([]any, f.Width())
	for j, n := range f.Columns() {
		header[j] = n
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: bold}); err != nil {
		return fmt.Errorf("xlsx: header: %w", err)
	}
	row := make([]any, f.Width())
	for i := 0; i < f.Len(); i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j := range row {
			c := f.ColumnAt(j)
			switch {
			case c.IsNull(i):
				row[j] = nil
			case c.Kind().Temporal():
				row[j] = c.Format(i)
			default:
				row[j] = c.Value(i)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("xlsx: row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush: %w", err)
	}
	return writeAtomic(w.path, func(out *os.File) error {
		if err := wb.Write(out); err != nil {
			return fmt.Errorf("xlsx: write: %w", err)
		}
		return nil
	})
}
