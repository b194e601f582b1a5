package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rxnmap/internal/ir"
	"github.com/roach88/rxnmap/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	DB  string
	Run string // run ID, or "latest"
}

// RunDetail is one saved run with its canonical mapping and issues.
type RunDetail struct {
	store.RunInfo
	Mapping ir.RuleMap `json:"mapping"`
	Issues  []ir.Issue `json:"issues"`
	// PendingTiers counts pending rows per tier name.
	PendingTiers map[string]int `json:"pending_tiers"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List or inspect saved runs",
		Long: `List the runs saved in a run database, or show one run's canonical
mapping and issues.

Examples:
  rxnmap runs --db out/runs.db
  rxnmap runs --db out/runs.db --run latest --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(contextOrBackground(cmd.Context()), opts, newFormatter(opts.RootOptions, cmd))
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "run database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Run, "run", "", `run ID to show, or "latest"`)

	return cmd
}

func runRuns(ctx context.Context, opts *RunsOptions, f *OutputFormatter) error {
	// Open would create a missing database.
	if _, err := os.Stat(opts.DB); err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run database not found: %s", opts.DB), nil)
	}
	st, err := store.Open(opts.DB)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	defer st.Close()

	if opts.Run == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		if f.JSON() {
			return f.Success(runs)
		}
		printRuns(f.Writer, runs)
		return nil
	}

	detail, err := readRun(ctx, st, opts.Run)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
		}
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	if f.JSON() {
		return f.Success(detail)
	}
	printRunDetail(f.Writer, detail)
	return nil
}

func readRun(ctx context.Context, st *store.Store, id string) (RunDetail, error) {
	var info store.RunInfo
	var err error
	if id == "latest" {
		info, err = st.LatestRun(ctx)
	} else {
		info, err = st.GetRun(ctx, id)
	}
	if err != nil {
		return RunDetail{}, err
	}

	detail := RunDetail{RunInfo: info, PendingTiers: map[string]int{}}
	if detail.Mapping, err = st.ReadMapping(ctx, info.ID); err != nil {
		return RunDetail{}, err
	}
	if detail.Issues, err = st.ReadIssues(ctx, info.ID); err != nil {
		return RunDetail{}, err
	}
	pending, err := st.ReadPending(ctx, info.ID)
	if err != nil {
		return RunDetail{}, err
	}
	for _, p := range pending {
		detail.PendingTiers[string(p.Tier)]++
	}
	return detail, nil
}

func printRuns(w io.Writer, runs []store.RunInfo) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs saved.")
		return
	}
	fmt.Fprintf(w, "%-4s %-36s %9s %7s %6s  %s\n", "SEQ", "ID", "REACTIONS", "PENDING", "ISSUES", "SOURCE")
	for _, r := range runs {
		fmt.Fprintf(w, "%-4d %-36s %9d %7d %6d  %s\n", r.Seq, r.ID, r.Reactions, r.Pending, r.Issues, r.Source)
	}
}

func printRunDetail(w io.Writer, d RunDetail) {
	fmt.Fprintf(w, "Run %s (seq %d)\n", d.ID, d.Seq)
	fmt.Fprintf(w, "Source:    %s\n", d.Source)
	fmt.Fprintf(w, "Digest:    %s\n", d.MappingDigest)
	fmt.Fprintf(w, "Reactions: %d\n", d.Reactions)
	fmt.Fprintf(w, "Pending:   %d\n", d.Pending)
	for _, tier := range ir.AllTiers {
		if n := d.PendingTiers[string(tier)]; n > 0 {
			fmt.Fprintf(w, "  %-3s %d\n", tier.Label(), n)
		}
	}
	if len(d.Issues) > 0 {
		fmt.Fprintf(w, "Issues:    %s\n", issueSummary(d.Issues))
	}
}
