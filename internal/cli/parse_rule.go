package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rxnmap/internal/curation"
	"github.com/roach88/rxnmap/internal/ir"
)

// ParseRuleResult is the normalized form of a curation rule.
type ParseRuleResult struct {
	Rule       string     `json:"rule"`
	Normalized string     `json:"normalized"`
	Clauses    ir.RuleSet `json:"clauses"`
}

// NewParseRuleCommand creates the parse-rule command.
func NewParseRuleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse-rule <rule>",
		Short: "Check a curation rule",
		Long: `Parse a rule in curation format: clauses separated by ",", identifiers
within a clause joined by "+". Prints the normalized rule.

Exit codes:
  0 - Rule is valid
  1 - Rule is malformed

Examples:
  rxnmap parse-rule "K00001+K00002,K00003"
  rxnmap parse-rule "K00003, K00001+K00002" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			rs, err := curation.ParseRule(args[0])
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeMalformedRule, err.Error(), nil)
			}
			result := ParseRuleResult{Rule: args[0], Normalized: rs.String(), Clauses: rs}
			if f.JSON() {
				return f.Success(result)
			}
			fmt.Fprintf(f.Writer, "%s\n", result.Normalized)
			f.VerboseLog("%d clause(s)", rs.Len())
			return nil
		},
	}
	return cmd
}
