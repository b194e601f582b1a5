package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/rxnmap/internal/aggregate"
	"github.com/roach88/rxnmap/internal/config"
	"github.com/roach88/rxnmap/internal/curation"
	"github.com/roach88/rxnmap/internal/export"
	"github.com/roach88/rxnmap/internal/ir"
	"github.com/roach88/rxnmap/internal/metrics"
	"github.com/roach88/rxnmap/internal/store"
)

// MapOptions holds flags for the map command.
type MapOptions struct {
	*RootOptions
	Config       string
	AllowPending bool
	RunID        string
}

// MapResult summarises a full run.
type MapResult struct {
	RunID     string               `json:"run_id,omitempty"`
	Digest    string               `json:"mapping_digest"`
	Reactions int                  `json:"reactions"`
	Pending   int                  `json:"pending_reactions"`
	Issues    map[ir.IssueKind]int `json:"issues"`
	Written   []string             `json:"written"`
}

// NewMapCommand creates the map command.
func NewMapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MapOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Build the canonical reaction to rule mapping",
		Long: `Run every resolution tier over the inputs named by a pipeline file and
write the outputs it configures: canonical mapping, per-tier rules, CSV,
pending curation sheets, the run store and a metrics textfile.

Exit codes:
  0 - Mapping built, nothing pending (or --allow-pending)
  1 - Reactions still wait for curation
  2 - Command error (invalid pipeline, unreadable input, write failure)

Examples:
  rxnmap map --config pipeline.yaml
  rxnmap map --config pipeline.cue --allow-pending --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMap(ctx, opts, newFormatter(opts.RootOptions, cmd))
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "pipeline file, YAML or CUE (required)")
	_ = cmd.MarkFlagRequired("config")
	cmd.Flags().BoolVar(&opts.AllowPending, "allow-pending", false, "exit 0 even when reactions wait for curation")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id recorded in the store (default: new UUID)")

	return cmd
}

func runMap(ctx context.Context, opts *MapOptions, f *OutputFormatter) error {
	p, report, err := buildReport(ctx, opts.Logger, opts.Config)
	if err != nil {
		return failLoad(f, err)
	}

	digest, err := report.Mapping.Digest()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	result := MapResult{
		Digest:    digest,
		Reactions: report.Mapping.Len(),
		Pending:   len(report.PendingReactions()),
		Issues:    ir.CountIssues(report.Issues),
	}

	written, runID, err := writeOutputs(ctx, p, report, opts.RunID, opts.Logger)
	result.Written = written
	result.RunID = runID
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), result)
	}

	if f.JSON() {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		printMapResult(f.Writer, result, report)
	}

	if result.Pending > 0 && !opts.AllowPending {
		return NewExitError(ExitFailure, fmt.Sprintf("%d reaction(s) wait for curation", result.Pending))
	}
	return nil
}

// writeOutputs writes every output p configures and returns the paths
// written and the stored run id.
func writeOutputs(ctx context.Context, p *config.Pipeline, report *aggregate.Report, runID string, logger *zap.Logger) ([]string, string, error) {
	written := []string{}
	out := p.Output

	files := []struct {
		path  string
		write func(io.Writer) error
	}{
		{out.Mapping, func(w io.Writer) error { return export.WriteMapping(w, report.Mapping) }},
		{out.ByTier, func(w io.Writer) error { return export.WriteByTier(w, report.Tiers) }},
		{out.CSV, func(w io.Writer) error { return export.WriteByTierCSV(w, report.Tiers) }},
	}
	for _, file := range files {
		if file.path == "" {
			continue
		}
		if err := export.WriteFile(file.path, file.write); err != nil {
			return written, "", fmt.Errorf("write %s: %w", file.path, err)
		}
		written = append(written, file.path)
	}

	if out.PendingDir != "" {
		paths, err := curation.WritePendingDir(out.PendingDir, report.Pending)
		written = append(written, paths...)
		if err != nil {
			return written, "", fmt.Errorf("write pending sheets: %w", err)
		}
	}

	if out.Metrics != "" {
		rec := metrics.NewRecorder()
		rec.Observe(report)
		if err := os.MkdirAll(filepath.Dir(out.Metrics), 0o755); err != nil {
			return written, "", fmt.Errorf("write metrics: %w", err)
		}
		if err := rec.WriteTextfile(out.Metrics); err != nil {
			return written, "", fmt.Errorf("write metrics: %w", err)
		}
		written = append(written, out.Metrics)
	}

	if out.DB != "" {
		info, err := saveRun(ctx, out.DB, store.Run{ID: runID, Source: p.Path, Report: report})
		if err != nil {
			return written, "", err
		}
		written = append(written, out.DB)
		runID = info.ID
		logger.Info("run saved", zap.String("run_id", info.ID), zap.Int64("seq", info.Seq))
	}

	for _, path := range written {
		logger.Debug("output written", zap.String("path", path))
	}
	return written, runID, nil
}

func saveRun(ctx context.Context, path string, run store.Run) (store.RunInfo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return store.RunInfo{}, fmt.Errorf("open store: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return store.RunInfo{}, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return st.SaveRun(ctx, run)
}

func printMapResult(w io.Writer, result MapResult, report *aggregate.Report) {
	fmt.Fprintf(w, "Mapped %d reaction(s), %d pending\n", result.Reactions, result.Pending)
	fmt.Fprintf(w, "Digest: %s\n", result.Digest)
	if result.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", result.RunID)
	}
	fmt.Fprintln(w)
	for _, tier := range ir.AllTiers {
		rules := report.Tiers[tier]
		fmt.Fprintf(w, "  %-3s %-26s %6d reaction(s) %6d clause(s)\n",
			tier.Label(), tier, len(rules), rules.ClauseCount())
	}
	if len(report.Issues) > 0 {
		fmt.Fprintf(w, "\nIssues: %s\n", issueSummary(report.Issues))
	}
	if len(result.Written) > 0 {
		fmt.Fprintln(w, "\nWrote:")
		for _, path := range result.Written {
			fmt.Fprintf(w, "  %s\n", path)
		}
	}
}
