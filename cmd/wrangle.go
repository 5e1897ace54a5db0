package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/casewrangle-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/casewrangle-cli/internal/config"
	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
	"github.com/KaramelBytes/casewrangle-cli/internal/manifest"
	"github.com/KaramelBytes/casewrangle-cli/internal/sink"
	"github.com/KaramelBytes/casewrangle-cli/internal/wrangle"
)

var (
	wrDataDir    string
	wrCaseFile   string
	wrDeptFile   string
	wrSourceFile string
	wrOutput     string
	wrFormat     string
	wrProfile    bool
	wrGroupBy    []string
	wrColumns    []string
	wrHead       int
	wrNoManifest bool
)

var wrangleCmd = &cobra.Command{
	Use:   "wrangle",
	Short: "Clean the case table, join department and source data, and write the result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		applyWrangleFlags(cmd, c)
		opt, err := wrangleOptions(c)
		if err != nil {
			return err
		}
		format := wrFormat
		if format == "" {
			format = c.OutputFormat
		}

		ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
		defer stop()

		paths := wrangle.PathsIn(c.DataDir, c.CaseFile, c.DeptFile, c.SourceFile)
		run := manifest.New(c.ManifestDir, manifest.Settings{
			TimestampLayout: c.TimestampLayout,
			ReferenceDate:   c.ReferenceDate,
			Timezone:        c.Timezone,
		})
		// every failure past this point is recorded in the run manifest
		fail := func(res *wrangle.Result, err error) error {
			run.Finish(res, nil, err)
			saveRun(run)
			return err
		}

		var w sink.Writer
		if wrOutput != "" {
			if w, err = sink.New(format, wrOutput, sink.Options{Table: c.SQLiteTable}); err != nil {
				recordInputs(run, paths, nil)
				return fail(nil, err)
			}
			if format == "" {
				format, _ = sink.FormatFromPath(wrOutput)
			}
		}
		logger.Debug("wrangle starting", zap.String("run", run.ID), zap.String("cases", paths.Cases),
			zap.String("dept", paths.Dept), zap.String("source", paths.Source))

		tables, res, err := wrangle.WrangleData(ctx, paths, opt, logger)
		recordInputs(run, paths, tables)
		if err != nil {
			return fail(nil, err)
		}

		if len(wrColumns) > 0 {
			sel, err := res.Frame.Select(wrColumns...)
			if err != nil {
				return fail(res, fmt.Errorf("select columns: %w", err))
			}
			res.Frame = sel
		}

		var rep *analysis.Report
		if wrProfile {
			popt := analysis.DefaultOptions()
			popt.GroupBy = wrGroupBy
			if rep, err = analysis.AnalyzeFrame(res.Frame, popt); err != nil {
				return fail(res, err)
			}
		}

		out := cmd.OutOrStdout()
		var written *manifest.Table
		if w != nil {
			if err := w.Write(ctx, res.Frame); err != nil {
				return fail(res, fmt.Errorf("write %s: %w", wrOutput, err))
			}
			written = &manifest.Table{Format: format, Path: wrOutput, Rows: res.Frame.Len(), Columns: res.Frame.Width()}
			fmt.Fprintf(out, "✓ Wrote %d rows x %d columns to %s (%s)\n", written.Rows, written.Columns, wrOutput, format)
		} else {
			fmt.Fprintln(out, res.Frame.Head(wrHead).String())
		}
		for _, s := range res.Steps {
			for _, warn := range s.Warnings {
				fmt.Fprintf(out, "⚠ %s: %s\n", s.Name, warn)
			}
		}
		if rep != nil {
			fmt.Fprintln(out, rep.Markdown())
		}

		run.Finish(res, written, nil)
		if !wrNoManifest {
			if err := run.Save(); err != nil {
				return fmt.Errorf("save run manifest: %w", err)
			}
			fmt.Fprintf(out, "✓ Recorded run %s\n", run.ID)
		}
		return nil
	},
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func applyWrangleFlags(cmd *cobra.Command, c *cfgpkg.Global) {
	f := cmd.Flags()
	if f.Changed("data-dir") {
		c.DataDir = wrDataDir
	}
	if f.Changed("case") {
		c.CaseFile = wrCaseFile
	}
	if f.Changed("dept") {
		c.DeptFile = wrDeptFile
	}
	if f.Changed("source") {
		c.SourceFile = wrSourceFile
	}
}

func wrangleOptions(c *cfgpkg.Global) (wrangle.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return wrangle.Options{}, err
	}
	ref, err := c.Reference()
	if err != nil {
		return wrangle.Options{}, err
	}
	delim, err := c.Delim()
	if err != nil {
		return wrangle.Options{}, err
	}
	read := frame.DefaultReadOptions()
	read.Delimiter = delim
	read.MaxRows = c.MaxRows
	return wrangle.Options{
		TimestampLayout: c.TimestampLayout,
		ReferenceDate:   ref,
		Location:        loc,
		Read:            read,
	}, nil
}

func recordInputs(run *manifest.Manifest, p wrangle.Paths, t *wrangle.Tables) {
	if t == nil {
		t = &wrangle.Tables{}
	}
	run.AddInput("case", p.Cases, t.Cases)
	run.AddInput("dept", p.Dept, t.Dept)
	run.AddInput("source", p.Source, t.Source)
}

func saveRun(run *manifest.Manifest) {
	if wrNoManifest {
		return
	}
	if err := run.Save(); err != nil {
		logger.Warn("save run manifest", zap.Error(err))
	}
}

func init() {
	rootCmd.AddCommand(wrangleCmd)
	wrangleCmd.Flags().StringVar(&wrDataDir, "data-dir", "", "directory holding the input tables (overrides config)")
	wrangleCmd.Flags().StringVar(&wrCaseFile, "case", "", "case table file name or path")
	wrangleCmd.Flags().StringVar(&wrDeptFile, "dept", "", "department table file name or path")
	wrangleCmd.Flags().StringVar(&wrSourceFile, "source", "", "source table file name or path")
	wrangleCmd.Flags().StringVarP(&wrOutput, "output", "o", "", "write the wrangled table to this path")
	wrangleCmd.Flags().StringVar(&wrFormat, "format", "", "output format: csv | jsonl | xlsx | sqlite (inferred from -o if omitted)")
	wrangleCmd.Flags().StringSliceVar(&wrColumns, "columns", nil, "keep only these output columns, in this order")
	wrangleCmd.Flags().BoolVar(&wrProfile, "profile", false, "print a profile of the wrangled table")
	wrangleCmd.Flags().StringSliceVar(&wrGroupBy, "group-by", nil, "with --profile: column names to group by")
	wrangleCmd.Flags().IntVar(&wrHead, "head", 5, "rows to preview when no output is written")
	wrangleCmd.Flags().BoolVar(&wrNoManifest, "no-manifest", false, "do not record a run manifest")
}
