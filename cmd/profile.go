package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/casewrangle-cli/internal/analysis"
	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
	"github.com/KaramelBytes/casewrangle-cli/internal/loader"
)

var (
	prOutputPath string
	prDelimiter  string
	prSampleRows int
	prMaxRows    int
	prGroupBy    []string
	prOutliers   bool
	prOutlierThr float64
	prSheetName  string
	prRaw        bool
	prQuiet      bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <files...>",
	Short: "Profile CSV/TSV/XLSX tables and print a concise summary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}

		read := frame.DefaultReadOptions()
		read.InferSchema = !prRaw
		read.Sheet = prSheetName
		if prDelimiter != "" {
			switch prDelimiter {
			case ",":
				read.Delimiter = ','
			case "\t", "tab":
				read.Delimiter = '\t'
			case ";":
				read.Delimiter = ';'
			default:
				return fmt.Errorf("unsupported --delimiter: %s", prDelimiter)
			}
		}

		opt := analysis.DefaultOptions()
		opt.SampleRows = prSampleRows
		if prMaxRows > 0 {
			opt.MaxRows = prMaxRows
		}
		opt.GroupBy = prGroupBy
		opt.Outliers = prOutliers
		if prOutlierThr > 0 {
			opt.OutlierThreshold = prOutlierThr
		}

		out := cmd.OutOrStdout()
		var all strings.Builder
		total := len(files)
		for i, path := range files {
			if !prQuiet && total > 1 {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			f, err := loader.Load(path, read)
			if err != nil {
				return err
			}
			logger.Debug("profiling", zap.String("file", path), zap.Int("rows", f.Len()), zap.Int("columns", f.Width()))
			rep, err := analysis.AnalyzeFrame(f, opt)
			if err != nil {
				return fmt.Errorf("profile %s: %w", filepath.Base(path), err)
			}
			md := rep.Markdown()
			if prOutputPath != "" {
				if i > 0 {
					all.WriteString("\n")
				}
				all.WriteString(md)
				continue
			}
			fmt.Fprintln(out, md)
		}
		if prOutputPath != "" {
			if err := os.WriteFile(prOutputPath, []byte(all.String()), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote profile to %s\n", prOutputPath)
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&prOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
	profileCmd.Flags().StringVar(&prDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	profileCmd.Flags().IntVar(&prSampleRows, "sample-rows", 5, "number of sample rows to include (negative disables)")
	profileCmd.Flags().IntVar(&prMaxRows, "max-rows", 0, "maximum rows to profile (0 = unlimited)")
	profileCmd.Flags().StringSliceVar(&prGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	profileCmd.Flags().BoolVar(&prOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	profileCmd.Flags().Float64Var(&prOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	profileCmd.Flags().StringVar(&prSheetName, "sheet-name", "", "XLSX: sheet name to profile (first sheet if omitted)")
	profileCmd.Flags().BoolVar(&prRaw, "raw", false, "keep every column as text instead of inferring types")
	profileCmd.Flags().BoolVar(&prQuiet, "quiet", false, "suppress progress output")
}
