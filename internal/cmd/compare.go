package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/github"
	"github.com/repolens/repolens/internal/observability"
	"github.com/repolens/repolens/internal/output"
	"github.com/repolens/repolens/internal/tools"
)

var compareCmd = &cobra.Command{
	Use:   "compare <owner/repo> <owner/repo> [<owner/repo>...]",
	Short: "Compare repositories side-by-side",
	Long: `Compare 2 to 5 GitHub repositories across activity and popularity metrics.

Repositories are fetched concurrently. A repository that cannot be fetched
stays in the report with its error instead of aborting the comparison.`,
	Args: cobra.ArbitraryArgs,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().String("targets-file", "", "YAML file listing repositories to compare (use '-' for stdin)")
	compareCmd.Flags().StringSlice("metrics", nil, "Metrics to compare (default: all)")
	compareCmd.Flags().String("output-format", "table", "Output format: table, json, markdown")
	compareCmd.Flags().String("out", "", "Write output to a file (default stdout)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	targetsPath, err := cmd.Flags().GetString("targets-file")
	if err != nil {
		return err
	}
	metricNames, err := cmd.Flags().GetStringSlice("metrics")
	if err != nil {
		return err
	}
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}

	targets, err := resolveTargets(args, targetsPath)
	if err != nil {
		return err
	}

	cfg := config.GetConfig()
	if cfg == nil {
		return errors.New("config not loaded")
	}

	var sink github.Sink = github.NopSink{}
	if verbose {
		sink = github.LoggerSink{Logger: observability.CLILogger, Tool: "compare"}
	}
	deps := newToolDeps(cfg, sink)

	report, err := tools.CompareRepositories(cmd.Context(), deps, targets, metricNames)
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatCompare(report)
	if err != nil {
		return err
	}

	out, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer out.close() //nolint:errcheck

	_, err = fmt.Fprintln(out.writer, rendered)
	return err
}
