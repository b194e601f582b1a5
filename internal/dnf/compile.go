package dnf

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/rxnmap/internal/definition"
	"github.com/roach88/rxnmap/internal/ir"
)

// ErrNestedModule is returned for definitions that embed another module id.
var ErrNestedModule = errors.New("definition references another module")

// Compile reduces a parsed definition to its DNF rule set.
func Compile(n definition.Node) ir.RuleSet {
	return Expand(n).Finalize()
}

// CompileDefinition parses and compiles def. Parse failures match
// definition.ErrMalformedDefinition; nested module references match
// ErrNestedModule.
func CompileDefinition(def string) (ir.RuleSet, error) {
	if definition.ContainsModuleReference(def) {
		return nil, fmt.Errorf("%w: %q", ErrNestedModule, def)
	}
	n, err := definition.Parse(def)
	if err != nil {
		return nil, err
	}
	return Compile(n), nil
}

// MustCompileDefinition is like CompileDefinition but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCompileDefinition(def string) ir.RuleSet {
	rs, err := CompileDefinition(def)
	if err != nil {
		panic(err)
	}
	return rs
}

// ModuleError is a compilation failure scoped to one module.
type ModuleError struct {
	Module     ir.Identifier
	Definition string
	Err        error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s: %v", e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error {
	return e.Err
}

// Kind classifies the failure for reporting.
func (e *ModuleError) Kind() ir.IssueKind {
	if errors.Is(e.Err, ErrNestedModule) {
		return ir.IssueNestedModule
	}
	return ir.IssueMalformedDefinition
}

// Issue converts the failure into a report record.
func (e *ModuleError) Issue() ir.Issue {
	issue := ir.Issue{
		Kind:    e.Kind(),
		Subject: string(e.Module),
		Message: e.Err.Error(),
		Detail:  e.Definition,
	}
	var mde *definition.MalformedDefinitionError
	if errors.As(e.Err, &mde) {
		issue.Message = mde.Reason
		issue.Detail = mde.Substring
	}
	return issue
}

// Result holds the outcome of a batch compile.
type Result struct {
	Rules  map[ir.Identifier]ir.RuleSet
	Errors []*ModuleError // sorted by module id
}

// Option configures CompileAll.
type Option func(*options)

type options struct {
	workers int
	logger  *zap.Logger
}

// WithWorkers bounds the number of modules compiled at once.
// Values below 1 select runtime.GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// CompileAll compiles every definition in defs, one module per unit of work.
// Failures are collected per module and never stop the batch; the returned
// error is non-nil only when ctx ends first.
func CompileAll(ctx context.Context, defs map[ir.Identifier]string, opts ...Option) (*Result, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}

	res := &Result{Rules: make(map[ir.Identifier]ir.RuleSet, len(defs))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, id := range slices.Sorted(maps.Keys(defs)) {
		if gctx.Err() != nil {
			break
		}
		def := defs[id]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rs, err := CompileDefinition(def)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors = append(res.Errors, &ModuleError{Module: id, Definition: def, Err: err})
				o.logger.Debug("module not compiled",
					zap.String("module", string(id)),
					zap.Error(err))
				return nil
			}
			res.Rules[id] = rs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(res.Errors, func(a, b *ModuleError) int {
		return cmp.Compare(a.Module, b.Module)
	})
	o.logger.Info("compiled module definitions",
		zap.Int("modules", len(defs)),
		zap.Int("compiled", len(res.Rules)),
		zap.Int("failed", len(res.Errors)),
		zap.Int("workers", o.workers))
	return res, nil
}

// Issues converts every module error into a report record.
func (r *Result) Issues() []ir.Issue {
	out := make([]ir.Issue, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Issue()
	}
	return out
}
