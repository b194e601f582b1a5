package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rxnmap/internal/dnf"
	"github.com/roach88/rxnmap/internal/export"
	"github.com/roach88/rxnmap/internal/ir"
	"github.com/roach88/rxnmap/internal/kegg"
	"github.com/roach88/rxnmap/internal/linker"
)

// LinkOptions holds flags for the link command.
type LinkOptions struct {
	*RootOptions
	Modules string
	Module  string
	Workers int
	Output  string
}

// LinkResult is the per-reaction rule map derived from module definitions.
type LinkResult struct {
	Modules int        `json:"modules"`
	Rules   ir.RuleMap `json:"rules"` // reaction -> rule set
	Issues  []ir.Issue `json:"issues"`
}

// NewLinkCommand creates the link command.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LinkOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link compiled modules to their reactions",
		Long: `Compile every module definition and link it to reactions through the
module's orthology table. Results of all modules are merged by reaction.

Examples:
  rxnmap link --modules modules.json
  rxnmap link --modules modules.json --module M00001 -o rules.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(cmd.Context(), opts, newFormatter(opts.RootOptions, cmd))
		},
	}

	cmd.Flags().StringVar(&opts.Modules, "modules", "", "module entries file (required)")
	_ = cmd.MarkFlagRequired("modules")
	cmd.Flags().StringVar(&opts.Module, "module", "", "link only this module")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "parallel compilations (0 = GOMAXPROCS)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runLink(ctx context.Context, opts *LinkOptions, f *OutputFormatter) error {
	modules, err := kegg.LoadModules(opts.Modules)
	if err != nil {
		return failLoad(f, &LoadError{Code: ErrCodeInputLoad, Message: "cannot load modules", Err: err})
	}
	if opts.Module != "" {
		entry, ok := modules[ir.Identifier(opts.Module)]
		if !ok {
			return f.Fail(ExitCommandError, ErrCodeNotFound,
				fmt.Sprintf("module %s not found in %s", opts.Module, opts.Modules), nil)
		}
		modules = map[ir.Identifier]kegg.ModuleEntry{ir.Identifier(opts.Module): entry}
	}

	res, err := dnf.CompileAll(contextOrBackground(ctx), kegg.Definitions(modules),
		dnf.WithWorkers(opts.Workers),
		dnf.WithLogger(opts.Logger))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	perModule := make(map[ir.Identifier]ir.RuleMap, len(res.Rules))
	for m, rs := range res.Rules {
		if table := modules[m].Orthologs; table != nil {
			perModule[m] = linker.LinkModule(rs, table)
		}
	}
	result := LinkResult{
		Modules: len(perModule),
		Rules:   linker.MergeModules(perModule),
		Issues:  res.Issues(),
	}
	f.VerboseLog("Linked %d module(s) to %d reaction(s)", result.Modules, len(result.Rules))

	if opts.Output != "" {
		if err := export.WriteFile(opts.Output, func(w io.Writer) error {
			return writeCanonical(w, result.Rules.IRValue())
		}); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "Linked %d module(s) to %d reaction(s)\n", result.Modules, len(result.Rules))
	for _, r := range result.Rules.Reactions() {
		fmt.Fprintf(f.Writer, "  %s: %s\n", r, result.Rules[r])
	}
	printIssues(f.Writer, result.Issues)
	return nil
}
