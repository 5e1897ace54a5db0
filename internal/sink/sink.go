// Package sink writes a frame to an output format.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
)

// ErrUnknownFormat is returned for an output format with no writer.
var ErrUnknownFormat = errors.New("unknown output format")

// Writer persists a frame.
type Writer interface {
	Write(ctx context.Context, f *frame.Frame) error
}

// Options tunes individual writers.
type Options struct {
	// Delimiter for csv output. If 0, ',' is used.
	Delimiter rune
	// Table is the SQLite table name.
	Table string
	// Sheet is the XLSX worksheet name.
	Sheet string
}

// Formats lists the supported output formats.
func Formats() []string { return []string{"csv", "jsonl", "xlsx", "sqlite"} }

// FormatFromPath infers a format from the file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return "csv", nil
	case ".jsonl", ".ndjson":
		return "jsonl", nil
	case ".xlsx":
		return "xlsx", nil
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite", nil
	}
	return "", fmt.Errorf("%w: cannot infer from %q (use --format %s)", ErrUnknownFormat, filepath.Base(path), strings.Join(Formats(), "|"))
}

// New returns the writer for format; an empty format is inferred from path.
func New(format, path string, opt Options) (Writer, error) {
	if format == "" {
		f, err := FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	switch strings.ToLower(format) {
	case "csv":
		d := opt.Delimiter
		if d == 0 {
			d = ','
			if strings.EqualFold(filepath.Ext(path), ".tsv") {
				d = '\t'
			}
		}
		return &csvWriter{path: path, delim: d}, nil
	case "jsonl":
		return &jsonlWriter{path: path}, nil
	case "xlsx":
		sheet := opt.Sheet
		if sheet == "" {
			sheet = "cases"
		}
		return &xlsxWriter{path: path, sheet: sheet}, nil
	case "sqlite":
		table := opt.Table
		if table == "" {
			table = "cases"
		}
		return &sqliteWriter{path: path, table: table}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// writeAtomic streams into a temp file next to path and renames it into place.
func writeAtomic(path string, fill func(*os.File) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir output dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if err := fill(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
