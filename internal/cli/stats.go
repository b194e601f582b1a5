package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/rxnmap/internal/aggregate"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-tier diagnostics",
		Long: `Run the pipeline without writing outputs and report, per tier, the
reactions and clauses resolved, the distribution of clauses per reaction
and of clause sizes, plus the overlap between tiers.

Examples:
  rxnmap stats --config pipeline.yaml
  rxnmap stats --config pipeline.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			_, report, err := buildReport(contextOrBackground(cmd.Context()), rootOpts.Logger, configPath)
			if err != nil {
				return failLoad(f, err)
			}
			stats := aggregate.Describe(report)
			if f.JSON() {
				return f.Success(stats)
			}
			printStats(f.Writer, stats)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "pipeline file, YAML or CUE (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func printStats(w io.Writer, stats aggregate.Stats) {
	fmt.Fprintf(w, "Canonical: %d reaction(s), %d pending\n\n", stats.Canonical, stats.Pending)
	for _, t := range stats.Tiers {
		fmt.Fprintf(w, "%-3s %-26s %6d reaction(s) %6d clause(s)\n", t.Label, t.Tier, t.Reactions, t.Clauses)
		if t.Reactions == 0 {
			continue
		}
		fmt.Fprintf(w, "    clauses per reaction: %s\n", histogram(t.ClausesPerReaction))
		fmt.Fprintf(w, "    clause sizes:         %s\n", histogram(t.ClauseSizes))
	}
	if len(stats.Overlaps) > 0 {
		fmt.Fprintln(w, "\nOverlaps:")
		for _, o := range stats.Overlaps {
			fmt.Fprintf(w, "  %s & %s: %d\n", o.A.Label(), o.B.Label(), o.Reactions)
		}
	}
	if len(stats.Issues) > 0 {
		fmt.Fprintln(w, "\nIssues:")
		for _, kind := range slices.Sorted(maps.Keys(stats.Issues)) {
			fmt.Fprintf(w, "  %s: %d\n", kind, stats.Issues[kind])
		}
	}
}

// histogram renders {1: 4, 2: 1} as "1x4 2x1".
func histogram(h map[int]int) string {
	var out string
	for i, k := range slices.Sorted(maps.Keys(h)) {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%dx%d", k, h[k])
	}
	return out
}
