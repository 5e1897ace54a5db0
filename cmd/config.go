package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/casewrangle-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set casewrangle configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "data_dir: %s\n", cfg.DataDir)
		fmt.Fprintf(out, "case_file: %s\n", cfg.CaseFile)
		fmt.Fprintf(out, "dept_file: %s\n", cfg.DeptFile)
		fmt.Fprintf(out, "source_file: %s\n", cfg.SourceFile)
		fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		if cfg.MaxRows > 0 {
			fmt.Fprintf(out, "max_rows: %d\n", cfg.MaxRows)
		}
		fmt.Fprintf(out, "timestamp_layout: %s\n", cfg.TimestampLayout)
		fmt.Fprintf(out, "reference_date: %s\n", cfg.ReferenceDate)
		fmt.Fprintf(out, "timezone: %s\n", cfg.Timezone)
		if cfg.OutputFormat != "" {
			fmt.Fprintf(out, "output_format: %s\n", cfg.OutputFormat)
		}
		fmt.Fprintf(out, "sqlite_table: %s\n", cfg.SQLiteTable)
		fmt.Fprintf(out, "manifest_dir: %s\n", cfg.ManifestDir)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		next := *c
		switch key {
		case "data_dir":
			next.DataDir = val
		case "case_file":
			next.CaseFile = val
		case "dept_file":
			next.DeptFile = val
		case "source_file":
			next.SourceFile = val
		case "delimiter":
			next.Delimiter = val
		case "max_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for max_rows: %v", val)
			}
			next.MaxRows = i
		case "timestamp_layout":
			next.TimestampLayout = val
		case "reference_date":
			next.ReferenceDate = val
		case "timezone":
			next.Timezone = val
		case "output_format":
			next.OutputFormat = val
		case "sqlite_table":
			next.SQLiteTable = val
		case "manifest_dir":
			next.ManifestDir = val
		case "log_level":
			next.LogLevel = val
		case "log_format":
			next.LogFormat = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		*c = next
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
