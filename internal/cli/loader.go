package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/rxnmap/internal/aggregate"
	"github.com/roach88/rxnmap/internal/config"
	"github.com/roach88/rxnmap/internal/curation"
	"github.com/roach88/rxnmap/internal/ir"
	"github.com/roach88/rxnmap/internal/kegg"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeMalformedDefinition = "E201" // Definition does not parse
	ErrCodeMalformedRule       = "E202" // Curation rule does not parse
	ErrCodeConfigInvalid       = "E203" // Pipeline file invalid
	ErrCodeInputLoad           = "E204" // Entries, links or sheets unreadable
)

// LoadError is a failure to load the pipeline or its inputs.
type LoadError struct {
	Code    string
	Message string
	Details any // validation errors, when several
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// failLoad prints err and returns a command-level ExitError.
func failLoad(f *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		msg := le.Message
		if le.Err != nil {
			msg = fmt.Sprintf("%s: %v", le.Message, le.Err)
		}
		return f.Fail(ExitCommandError, le.Code, msg, le.Details)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}

// loadPipeline reads and validates a pipeline file, collecting every
// validation problem.
func loadPipeline(path string) (*config.Pipeline, error) {
	p, err := config.Load(path)
	if err != nil {
		code := ErrCodeConfigInvalid
		if errors.Is(err, fs.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return nil, &LoadError{Code: code, Message: "cannot load pipeline", Err: err}
	}
	if errs := p.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, &LoadError{
			Code:    ErrCodeConfigInvalid,
			Message: fmt.Sprintf("invalid pipeline %s: %s", path, strings.Join(msgs, "; ")),
			Details: errs,
		}
	}
	return p, nil
}

// loadInputs materializes every input a pipeline names.
func loadInputs(p *config.Pipeline, logger *zap.Logger) (aggregate.Inputs, error) {
	fail := func(what string, err error) (aggregate.Inputs, error) {
		return aggregate.Inputs{}, &LoadError{Code: ErrCodeInputLoad, Message: "cannot load " + what, Err: err}
	}

	var in aggregate.Inputs
	var err error
	if in.Modules, err = kegg.LoadModules(p.Modules); err != nil {
		return fail("modules", err)
	}
	if p.AddedModules != "" {
		if in.AddedModules, err = kegg.LoadModules(p.AddedModules); err != nil {
			return fail("added modules", err)
		}
	}
	if in.Reactions, err = kegg.LoadReactions(p.Reactions); err != nil {
		return fail("reactions", err)
	}
	if in.Links, err = kegg.LoadLinksDir(p.Links); err != nil {
		return fail("links", err)
	}

	sheets, err := p.Sheets()
	if err != nil {
		return fail("curation", err)
	}
	if in.Curated, in.Issues, err = curation.ReadSheets(sheets); err != nil {
		return fail("curation", err)
	}

	logger.Info("inputs loaded",
		zap.Int("modules", len(in.Modules)),
		zap.Int("added_modules", len(in.AddedModules)),
		zap.Int("reactions", len(in.Reactions)),
		zap.Int("curated_tiers", len(in.Curated)),
		zap.Int("unresolved_rows", len(in.Issues)))
	return in, nil
}

// buildReport loads a pipeline and aggregates it.
func buildReport(ctx context.Context, logger *zap.Logger, path string) (*config.Pipeline, *aggregate.Report, error) {
	p, err := loadPipeline(path)
	if err != nil {
		return nil, nil, err
	}
	in, err := loadInputs(p, logger)
	if err != nil {
		return nil, nil, err
	}
	opts := []aggregate.Option{aggregate.WithLogger(logger)}
	if p.Workers > 0 {
		opts = append(opts, aggregate.WithWorkers(p.Workers))
	}
	report, err := aggregate.New(opts...).Build(ctx, in)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeGeneric, Message: "aggregation failed", Err: err}
	}
	return p, report, nil
}

// issueSummary renders counts per kind in kind order.
func issueSummary(issues []ir.Issue) string {
	counts := ir.CountIssues(issues)
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}
	slices.Sort(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[ir.IssueKind(k)])
	}
	return strings.Join(parts, ", ")
}
