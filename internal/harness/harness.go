package harness

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/rxnmap/internal/aggregate"
	"github.com/roach88/rxnmap/internal/curation"
	"github.com/roach88/rxnmap/internal/ir"
	"github.com/roach88/rxnmap/internal/kegg"
)

// Option configures a Harness.
type Option func(*Harness)

// WithLogger passes a logger to the aggregator.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Harness runs scenarios through the aggregator.
type Harness struct {
	logger *zap.Logger
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
//
// An error means the scenario could not be executed. Failed assertions are
// reported through Result.Pass and Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run builds the scenario inputs, aggregates them and checks every assertion.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	in, err := scenario.Inputs()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	report, err := aggregate.New(aggregate.WithLogger(h.logger), aggregate.WithWorkers(1)).Build(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult()
	result.Report = report
	for i, a := range scenario.Assertions {
		if err := checkAssertion(report, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

// Inputs converts the scenario into aggregator inputs.
func (s *Scenario) Inputs() (aggregate.Inputs, error) {
	in := aggregate.Inputs{
		Modules:      moduleEntries(s.Modules),
		AddedModules: moduleEntries(s.AddedModules),
		Reactions:    make(map[ir.Identifier]kegg.ReactionEntry, len(s.Reactions)),
		Links:        s.Links.build(),
		Curated:      make(map[ir.Tier]ir.RuleMap, len(s.Curated)),
	}
	for id, spec := range s.Reactions {
		in.Reactions[ir.Identifier(id)] = kegg.ReactionEntry{
			ID:        ir.Identifier(id),
			Comment:   spec.Comment,
			Orthologs: spec.Orthologs,
		}
	}
	for name, rules := range s.Curated {
		tier, err := ir.ParseTier(name)
		if err != nil {
			return aggregate.Inputs{}, err
		}
		m := make(ir.RuleMap, len(rules))
		for r, rule := range rules {
			rs, err := curation.ParseRule(rule)
			if err != nil {
				return aggregate.Inputs{}, fmt.Errorf("curated %s %s: %w", tier, r, err)
			}
			m.Merge(ir.Identifier(r), rs)
		}
		in.Curated[tier] = m
	}
	return in, nil
}

func moduleEntries(specs map[string]ModuleSpec) map[ir.Identifier]kegg.ModuleEntry {
	out := make(map[ir.Identifier]kegg.ModuleEntry, len(specs))
	for id, spec := range specs {
		out[ir.Identifier(id)] = kegg.ModuleEntry{
			ID:         ir.Identifier(id),
			Definition: spec.Definition,
			Orthologs:  spec.Orthologs,
		}
	}
	return out
}

func (l LinkSpec) build() kegg.Links {
	table := func(src map[string][]string) kegg.LinkTable {
		t := make(kegg.LinkTable)
		for from, targets := range src {
			for _, to := range targets {
				t.Add(ir.Identifier(from), ir.Identifier(to))
			}
		}
		return t
	}
	links := kegg.Links{
		ModuleOrthology:   table(l.ModuleOrthology),
		ModuleReaction:    table(l.ModuleReaction),
		ReactionOrthology: table(l.ReactionOrthology),
		ReactionModule:    table(l.ReactionModule),
		ReactionEnzyme:    table(l.ReactionEnzyme),
		EnzymeOrthology:   table(l.EnzymeOrthology),
	}
	for r, modules := range links.ModuleReaction.Invert() {
		for m := range modules {
			links.ReactionModule.Add(r, m)
		}
	}
	return links
}
