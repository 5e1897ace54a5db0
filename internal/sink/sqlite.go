package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
)

// maxParams stays under SQLite's default bound-parameter limit.
const maxParams = 30000

type sqliteWriter struct {
	path  string
	table string
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func sqliteType(k frame.Kind) string {
	switch k {
	case frame.KindInt, frame.KindBool:
		return "INTEGER"
	case frame.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders the DDL for f's schema.
func CreateTableSQL(table string, f *frame.Frame) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	for i, fld := range f.Schema() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(fld.Name))
		b.WriteString(" ")
		b.WriteString(sqliteType(fld.Kind))
	}
	b.WriteString(")")
	return b.String()
}

func sqliteValue(c *frame.Column, i int) any {
	if c.IsNull(i) {
		return nil
	}
	switch c.Kind() {
	case frame.KindBool:
		if c.Bool(i).Bool {
			return int64(1)
		}
		return int64(0)
	case frame.KindTimestamp, frame.KindDate:
		return c.Format(i)
	default:
		return c.Value(i)
	}
}

// Write replaces the table with the frame's rows inside one transaction.
func (w *sqliteWriter) Write(ctx context.Context, f *frame.Frame) error {
	if f.Width() == 0 {
		return fmt.Errorf("sqlite: frame has no columns")
	}
	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir output dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", w.path)
	if err != nil {
		return fmt.Errorf("sqlite: open: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(w.table)); err != nil {
		return fmt.Errorf("sqlite: drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, CreateTableSQL(w.table, f)); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}

	cols := make([]string, f.Width())
	for j, n := range f.Columns() {
		cols[j] = quoteIdent(n)
	}
	batch := maxParams / f.Width()
	if batch < 1 {
		batch = 1
	}
	for start := 0; start < f.Len(); start += batch {
		end := min(start+batch, f.Len())
		ins := sq.Insert(quoteIdent(w.table)).Columns(cols...)
		for i := start; i < end; i++ {
			vals := make([]any, f.Width())
			for j := range vals {
				vals[j] = sqliteValue(f.ColumnAt(j), i)
			}
			ins = ins.Values(vals...)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("sqlite: build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("sqlite: insert rows %d-%d: %w", start+1, end, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}
