package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/rxnmap/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                     `json:"valid"`
	Errors []config.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <pipeline>",
		Short: "Validate a pipeline file without running it",
		Long: `Validate a pipeline file: syntax, schema (for CUE files), input paths
and curated tiers. Every problem is reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(newFormatter(rootOpts, cmd), args[0])
		},
	}
	return cmd
}

func runValidate(f *OutputFormatter, path string) error {
	p, err := config.Load(path)
	if err != nil {
		code := ErrCodeConfigInvalid
		if errors.Is(err, fs.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return f.Fail(ExitCommandError, code, err.Error(), nil)
	}
	f.VerboseLog("Loaded %s", p.Path)

	result := ValidationResult{Valid: true}
	if errs := p.Validate(); len(errs) > 0 {
		result = ValidationResult{Valid: false, Errors: errs}
	}

	if f.JSON() {
		if !result.Valid {
			_ = f.encode(CLIResponse{
				Status: "error",
				Data:   result,
				Error: &CLIError{
					Code:    ErrCodeConfigInvalid,
					Message: fmt.Sprintf("%d validation error(s)", len(result.Errors)),
				},
			})
			return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
		}
		return f.Success(result)
	}

	if result.Valid {
		fmt.Fprintf(f.Writer, "%s is valid\n", path)
		return nil
	}
	fmt.Fprintf(f.Writer, "%s has %d problem(s):\n", path, len(result.Errors))
	for _, e := range result.Errors {
		fmt.Fprintf(f.Writer, "  %s: %s: %s\n", ErrCodeConfigInvalid, e.Field, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
}
