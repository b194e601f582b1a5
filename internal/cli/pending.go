package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rxnmap/internal/aggregate"
	"github.com/roach88/rxnmap/internal/curation"
	"github.com/roach88/rxnmap/internal/ir"
)

// PendingOptions holds flags for the pending command.
type PendingOptions struct {
	*RootOptions
	Config string
	Dir    string // overrides output.pending_dir
}

// PendingRow is one pending reaction in JSON output.
type PendingRow struct {
	Tier      ir.Tier         `json:"tier"`
	Reaction  ir.Identifier   `json:"reaction"`
	Module    ir.Identifier   `json:"module,omitempty"`
	URL       string          `json:"url"`
	Orthologs []ir.Identifier `json:"orthologs"`
	Enzymes   []ir.Identifier `json:"enzymes,omitempty"`
	Keywords  []string        `json:"keywords,omitempty"`
	Suggested string          `json:"suggested,omitempty"`
	Reason    string          `json:"reason"`
}

// PendingResult lists the pending rows and the sheets written.
type PendingResult struct {
	Rows    []PendingRow `json:"rows"`
	Written []string     `json:"written"`
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PendingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Write curation sheets for reactions without a rule",
		Long: `Run the pipeline and write one CSV sheet per curated tier listing the
reactions that still need a curated rule. Fill the Rule column and list
the sheet under curation in the pipeline file to resolve them.

Examples:
  rxnmap pending --config pipeline.yaml
  rxnmap pending --config pipeline.yaml --dir ./to_curate`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPending(contextOrBackground(cmd.Context()), opts, newFormatter(opts.RootOptions, cmd))
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "pipeline file, YAML or CUE (required)")
	_ = cmd.MarkFlagRequired("config")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "directory for the sheets (default: output.pending_dir)")

	return cmd
}

func runPending(ctx context.Context, opts *PendingOptions, f *OutputFormatter) error {
	p, report, err := buildReport(ctx, opts.Logger, opts.Config)
	if err != nil {
		return failLoad(f, err)
	}

	dir := opts.Dir
	if dir == "" {
		dir = p.Output.PendingDir
	}
	result := PendingResult{Rows: pendingRows(report.Pending), Written: []string{}}
	if dir != "" {
		paths, err := curation.WritePendingDir(dir, report.Pending)
		result.Written = append(result.Written, paths...)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing pending sheets: %v", err), nil)
		}
	}

	if f.JSON() {
		return f.Success(result)
	}
	if len(result.Rows) == 0 {
		fmt.Fprintln(f.Writer, "No reactions pending.")
		return nil
	}
	fmt.Fprintf(f.Writer, "%d pending row(s), %d reaction(s)\n", len(result.Rows), len(report.PendingReactions()))
	for _, tier := range ir.AllTiers {
		rows := report.PendingFor(tier)
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(f.Writer, "\n%s (%s):\n", tier, tier.Label())
		for _, row := range rows {
			line := "  " + string(row.Reaction)
			if row.Module != "" {
				line += " [" + string(row.Module) + "]"
			}
			fmt.Fprintf(f.Writer, "%s: %s\n", line, row.Reason)
		}
	}
	if len(result.Written) > 0 {
		fmt.Fprintln(f.Writer, "\nWrote:")
		for _, path := range result.Written {
			fmt.Fprintf(f.Writer, "  %s\n", path)
		}
	}
	return nil
}

func pendingRows(pending []aggregate.PendingReaction) []PendingRow {
	rows := make([]PendingRow, len(pending))
	for i, p := range pending {
		rows[i] = PendingRow{
			Tier:      p.Tier,
			Reaction:  p.Reaction,
			Module:    p.Module,
			URL:       p.URL(),
			Orthologs: p.Orthologs,
			Enzymes:   p.Enzymes,
			Keywords:  p.Keywords,
			Suggested: p.Suggested.String(),
			Reason:    p.Reason,
		}
	}
	return rows
}
