package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/rxnmap/internal/definition"
	"github.com/roach88/rxnmap/internal/dnf"
	"github.com/roach88/rxnmap/internal/export"
	"github.com/roach88/rxnmap/internal/ir"
	"github.com/roach88/rxnmap/internal/kegg"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Modules string // module entries file
	Module  string // restrict to one module
	Workers int
	Output  string // output file path
}

// DefinitionResult is the compile output for a literal definition.
type DefinitionResult struct {
	Definition string     `json:"definition"`
	Normalized string     `json:"normalized"`
	Rules      ir.RuleSet `json:"rules"`
}

// ModulesResult is the compile output for a module entry file.
type ModulesResult struct {
	Rules  ir.RuleMap `json:"rules"` // module -> rule set
	Issues []ir.Issue `json:"issues"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [definition]",
		Short: "Compile module definitions to DNF",
		Long: `Compile module definitions to disjunctive normal form.

With a definition argument, the literal definition is compiled. With
--modules, every definition in the entry file is compiled in parallel;
failures are reported as issues and do not stop the batch.

Examples:
  rxnmap compile "K00001+K00002 K00003"
  rxnmap compile --modules modules.json
  rxnmap compile --modules modules.json --module M00001 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			switch {
			case len(args) == 1 && opts.Modules == "":
				return runCompileDefinition(opts, f, args[0])
			case len(args) == 0 && opts.Modules != "":
				return runCompileModules(cmd.Context(), opts, f)
			default:
				return f.Fail(ExitCommandError, ErrCodeGeneric, "give either a definition or --modules", nil)
			}
		},
	}

	cmd.Flags().StringVar(&opts.Modules, "modules", "", "module entries file (JSON)")
	cmd.Flags().StringVar(&opts.Module, "module", "", "compile only this module")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "parallel compilations (0 = GOMAXPROCS)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompileDefinition(opts *CompileOptions, f *OutputFormatter, def string) error {
	rs, normalized, err := compileLiteral(def)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeMalformedDefinition, err.Error(), nil)
	}
	result := DefinitionResult{Definition: def, Normalized: normalized, Rules: rs}

	if opts.Output != "" {
		if err := export.WriteFile(opts.Output, func(w io.Writer) error {
			return writeCanonical(w, rs.IRValue())
		}); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "Definition: %s\n", normalized)
	fmt.Fprintf(f.Writer, "Rules (%d clause(s)):\n", rs.Len())
	for _, c := range rs.Clauses() {
		fmt.Fprintf(f.Writer, "  %s\n", c)
	}
	return nil
}

// compileLiteral returns the rule set and the normalized text of def.
func compileLiteral(def string) (ir.RuleSet, string, error) {
	if definition.ContainsModuleReference(def) {
		return nil, "", fmt.Errorf("%w: %q", dnf.ErrNestedModule, def)
	}
	n, err := definition.Parse(def)
	if err != nil {
		return nil, "", err
	}
	return dnf.Compile(n), definition.Format(n), nil
}

func runCompileModules(ctx context.Context, opts *CompileOptions, f *OutputFormatter) error {
	modules, err := kegg.LoadModules(opts.Modules)
	if err != nil {
		return failLoad(f, &LoadError{Code: ErrCodeInputLoad, Message: "cannot load modules", Err: err})
	}
	defs := kegg.Definitions(modules)
	if opts.Module != "" {
		def, ok := defs[ir.Identifier(opts.Module)]
		if !ok {
			return f.Fail(ExitCommandError, ErrCodeNotFound,
				fmt.Sprintf("module %s has no definition in %s", opts.Module, opts.Modules), nil)
		}
		defs = map[ir.Identifier]string{ir.Identifier(opts.Module): def}
	}
	f.VerboseLog("Compiling %d definition(s) from %s", len(defs), opts.Modules)

	res, err := dnf.CompileAll(contextOrBackground(ctx), defs,
		dnf.WithWorkers(opts.Workers),
		dnf.WithLogger(opts.Logger))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	result := ModulesResult{Rules: make(ir.RuleMap, len(res.Rules)), Issues: res.Issues()}
	for m, rs := range res.Rules {
		result.Rules.Merge(m, rs)
	}
	opts.Logger.Info("modules compiled",
		zap.Int("compiled", len(result.Rules)),
		zap.Int("failed", len(result.Issues)))

	if opts.Module != "" && len(result.Issues) > 0 {
		return f.Fail(ExitCommandError, ErrCodeMalformedDefinition, result.Issues[0].Error(), result.Issues)
	}

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
	fmt.Fprintf(f.Writer, "Compiled %d module(s), %d failed\n", len(result.Rules), len(result.Issues))
	for _, m := range result.Rules.Reactions() {
		fmt.Fprintf(f.Writer, "  %s: %s\n", m, result.Rules[m])
	}
	printIssues(f.Writer, result.Issues)
	if opts.Output != "" {
		fmt.Fprintf(f.Writer, "Wrote rules to %s\n", opts.Output)
	}
	return nil
}

// writeCanonical writes v's canonical JSON and a newline.
func writeCanonical(w io.Writer, v ir.IRValue) error {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func printIssues(w io.Writer, issues []ir.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(w, "\nIssues (%d):\n", len(issues))
	for _, issue := range issues {
		fmt.Fprintf(w, "  %s\n", issue.Error())
		if issue.Detail != "" {
			fmt.Fprintf(w, "    %s\n", issue.Detail)
		}
	}
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
