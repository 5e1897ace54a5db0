package sink

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
)

type csvWriter struct {
	path  string
	delim rune
}

func (w *csvWriter) Write(ctx context.Context, f *frame.Frame) error {
	return writeAtomic(w.path, func(out *os.File) error {
		bw := bufio.NewWriter(out)
		cw := csv.NewWriter(bw)
		cw.Comma = w.delim
		if err := cw.Write(f.Columns()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for i := 0; i < f.Len(); i++ {
			if i%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if err := cw.Write(f.Row(i)); err != nil {
				return fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("flush csv: %w", err)
		}
		return bw.Flush()
	})
}
