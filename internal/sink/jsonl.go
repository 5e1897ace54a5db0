package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
)

type jsonlWriter struct {
	path string
}

// Write emits one JSON object per row with keys in column order. Nulls are
// JSON null, as are NaN and infinite floats. Temporal values use the
// frame's text layouts.
func (w *jsonlWriter) Write(ctx context.Context, f *frame.Frame) error {
	names := f.Columns()
	keys := make([][]byte, len(names))
	for j, n := range names {
		k, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode key %s: %w", n, err)
		}
		keys[j] = k
	}
	return writeAtomic(w.path, func(out *os.File) error {
		bw := bufio.NewWriter(out)
		for i := 0; i < f.Len(); i++ {
			if i%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			bw.WriteByte('{')
			for j := range names {
				if j > 0 {
					bw.WriteByte(',')
				}
				bw.Write(keys[j])
				bw.WriteByte(':')
				c := f.ColumnAt(j)
				v := c.Value(i)
				switch x := v.(type) {
				case time.Time:
					v = c.Format(i)
				case float64:
					if math.IsNaN(x) || math.IsInf(x, 0) {
						v = nil
					}
				}
				b, err := json.Marshal(v)
				if err != nil {
					return fmt.Errorf("encode row %d column %s: %w", i+1, names[j], err)
				}
				bw.Write(b)
			}
			bw.WriteString("}\n")
		}
		return bw.Flush()
	})
}
