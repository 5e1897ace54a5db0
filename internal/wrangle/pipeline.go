package wrangle

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
	"github.com/KaramelBytes/casewrangle-cli/internal/loader"
	"github.com/KaramelBytes/casewrangle-cli/internal/logging"
)

// Options controls date handling and how inputs are read.
type Options struct {
	// TimestampLayout is the Go layout of the raw case dates.
	TimestampLayout string
	// ReferenceDate is the "today" that case_age is measured against.
	ReferenceDate time.Time
	// Location the raw dates are interpreted in.
	Location *time.Location
	Read     frame.ReadOptions
}

// DefaultOptions returns the settings the case extract was produced with.
func DefaultOptions() Options {
	return Options{
		TimestampLayout: "1/2/06 15:04",
		ReferenceDate:   time.Date(2018, 8, 8, 0, 0, 0, 0, time.UTC),
		Location:        time.UTC,
		Read:            frame.DefaultReadOptions(),
	}
}

// Paths locates the three input tables.
type Paths struct {
	Source string
	Cases  string
	Dept   string
}

// PathsIn joins relative file names onto dir; absolute names are kept.
func PathsIn(dir, cases, dept, source string) Paths {
	join := func(name string) string {
		if filepath.IsAbs(name) || dir == "" {
			return name
		}
		return filepath.Join(dir, name)
	}
	return Paths{Source: join(source), Cases: join(cases), Dept: join(dept)}
}

// Tables holds the loaded inputs.
type Tables struct {
	Source *frame.Frame
	Cases  *frame.Frame
	Dept   *frame.Frame
}

// ReadTables loads the three tables concurrently. The first failure cancels
// the rest and is returned.
func ReadTables(ctx context.Context, p Paths, opt frame.ReadOptions) (*Tables, error) {
	g, ctx := errgroup.WithContext(ctx)
	var t Tables
	load := func(role, path string, dst **frame.Frame) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := loader.Load(path, opt)
			if err != nil {
				return fmt.Errorf("read %s table: %w", role, err)
			}
			*dst = f
			return nil
		})
	}
	load("source", p.Source, &t.Source)
	load("case", p.Cases, &t.Cases)
	load("dept", p.Dept, &t.Dept)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Step is one named stage of the pipeline.
type Step struct {
	Name  string
	Apply func(df *frame.Frame) (*frame.Frame, []string, error)
}

// StepStat records what a step produced.
type StepStat struct {
	Name     string        `json:"name"`
	Rows     int           `json:"rows"`
	Columns  int           `json:"columns"`
	Duration time.Duration `json:"duration"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Result is the wrangled table and per-step statistics.
type Result struct {
	Frame *frame.Frame
	Steps []StepStat
}

// Pipeline runs the case steps in order.
type Pipeline struct {
	opt Options
	log *zap.Logger
}

// NewPipeline returns a pipeline; a nil logger discards output.
func NewPipeline(opt Options, log *zap.Logger) *Pipeline {
	if opt.Location == nil {
		opt.Location = time.UTC
	}
	if opt.TimestampLayout == "" {
		opt.TimestampLayout = DefaultOptions().TimestampLayout
	}
	if opt.ReferenceDate.IsZero() {
		opt.ReferenceDate = DefaultOptions().ReferenceDate
	}
	return &Pipeline{opt: opt, log: logging.OrNop(log)}
}

func plain(fn func(*frame.Frame) (*frame.Frame, error)) func(*frame.Frame) (*frame.Frame, []string, error) {
	return func(df *frame.Frame) (*frame.Frame, []string, error) {
		out, err := fn(df)
		return out, nil, err
	}
}

// Steps lists the stages applied to the case table, joins last.
func (p *Pipeline) Steps(t *Tables) []Step {
	return []Step{
		{Name: "turn_values_to_bools", Apply: plain(TurnValuesToBools)},
		{Name: "turn_district_string", Apply: plain(TurnDistrictString)},
		{Name: "edit_address", Apply: plain(EditAddress)},
		{Name: "create_days_late_to_weeks", Apply: plain(CreateDaysLateToWeeks)},
		{Name: "change_to_date", Apply: func(df *frame.Frame) (*frame.Frame, []string, error) {
			return ChangeToDate(df, p.opt.TimestampLayout, p.opt.Location)
		}},
		{Name: "create_case_age", Apply: plain(func(df *frame.Frame) (*frame.Frame, error) {
			return CreateCaseAge(df, p.opt.ReferenceDate)
		})},
		{Name: "join_dept_data", Apply: plain(func(df *frame.Frame) (*frame.Frame, error) {
			return JoinDeptData(df, t.Dept)
		})},
		{Name: "join_source_data", Apply: plain(func(df *frame.Frame) (*frame.Frame, error) {
			return JoinSourceData(df, t.Source)
		})},
	}
}

// Run applies every step to the case table. Cancellation is checked between steps.
func (p *Pipeline) Run(ctx context.Context, t *Tables) (*Result, error) {
	if t == nil || t.Cases == nil || t.Dept == nil || t.Source == nil {
		return nil, fmt.Errorf("run pipeline: all three tables are required")
	}
	res := &Result{}
	df := t.Cases
	p.log.Info("pipeline started",
		zap.Int("case_rows", t.Cases.Len()),
		zap.Int("dept_rows", t.Dept.Len()),
		zap.Int("source_rows", t.Source.Len()),
	)
	for _, s := range p.Steps(t) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run pipeline before %s: %w", s.Name, err)
		}
		start := time.Now()
		out, warnings, err := s.Apply(df)
		if err != nil {
			p.log.Error("step failed", zap.String("step", s.Name), zap.Error(err))
			return nil, err
		}
		df = out
		stat := StepStat{
			Name:     s.Name,
			Rows:     df.Len(),
			Columns:  df.Width(),
			Duration: time.Since(start),
			Warnings: warnings,
		}
		res.Steps = append(res.Steps, stat)
		p.log.Debug("step done",
			zap.String("step", s.Name),
			zap.Int("rows", stat.Rows),
			zap.Int("columns", stat.Columns),
			zap.Duration("took", stat.Duration),
		)
		for _, w := range warnings {
			p.log.Warn(w, zap.String("step", s.Name))
		}
	}
	res.Frame = df
	p.log.Info("pipeline finished", zap.Int("rows", df.Len()), zap.Int("columns", df.Width()))
	return res, nil
}

// WrangleData reads the three tables and runs the pipeline over them.
func WrangleData(ctx context.Context, paths Paths, opt Options, log *zap.Logger) (*Tables, *Result, error) {
	t, err := ReadTables(ctx, paths, opt.Read)
	if err != nil {
		return nil, nil, err
	}
	res, err := NewPipeline(opt, log).Run(ctx, t)
	if err != nil {
		return t, nil, err
	}
	return t, res, nil
}
