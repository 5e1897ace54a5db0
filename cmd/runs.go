package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/casewrangle-cli/internal/manifest"
	"github.com/KaramelBytes/casewrangle-cli/internal/utils"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded wrangle runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		runs, err := manifest.List(c.ManifestDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		for _, r := range runs {
			status := "ok"
			if r.Error != "" {
				status = "failed"
			}
			dest := "(preview)"
			if r.Output != nil {
				dest = fmt.Sprintf("%s -> %s", r.Output.Format, r.Output.Path)
			}
			fmt.Fprintf(out, "- %s  %s  %s  %s\n", r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), status, dest)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a run manifest (id or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		m, err := manifest.Load(c.ManifestDir, args[0])
		if err != nil {
			return err
		}
		b, err := utils.PrettyJSON(m)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}
