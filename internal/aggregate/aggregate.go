// Package aggregate combines every resolution tier into the canonical
// reaction to rule mapping.
//
// Tiers are built independently from immutable inputs and merged by union in
// ir.AllTiers order: a reaction resolved by several tiers keeps the clauses of
// all of them. Failures scoped to one module, reaction or curation row become
// ir.Issue records; nothing in a run is fatal except cancellation.
package aggregate

import (
	"cmp"
	"context"
	"runtime"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/rxnmap/internal/ir"
	"github.com/roach88/rxnmap/internal/kegg"
)

// Inputs are the materialized snapshots a run consumes.
type Inputs struct {
	// Modules is the module entry snapshot.
	Modules map[ir.Identifier]kegg.ModuleEntry
	// AddedModules holds entries for modules published after the snapshot.
	AddedModules map[ir.Identifier]kegg.ModuleEntry
	Reactions    map[ir.Identifier]kegg.ReactionEntry
	Links        kegg.Links
	// Curated holds externally curated rules for tiers where Tier.Curated is true.
	Curated map[ir.Tier]ir.RuleMap
	// Issues raised while loading the inputs, such as unreadable curation
	// rows. They are carried into the report.
	Issues []ir.Issue
}

// PendingReaction is a reaction that waits for a curated rule.
type PendingReaction struct {
	Tier      ir.Tier
	Reaction  ir.Identifier
	Module    ir.Identifier   // linking module, tier 3 only
	Orthologs []ir.Identifier // candidate orthologs
	Enzymes   []ir.Identifier // linking enzymes, tier 5 only
	Keywords  []string        // CurationKeywords found in ortholog descriptions
	Suggested ir.RuleSet      // machine suggestion, may be empty
	Reason    string
}

// URL is the KEGG page of the reaction.
func (p PendingReaction) URL() string {
	return "https://www.genome.jp/dbget-bin/www_bget?rn:" + string(p.Reaction)
}

// Report is the outcome of one run.
type Report struct {
	Tiers       map[ir.Tier]ir.RuleMap
	Mapping     *ir.CanonicalMapping
	ModuleRules ir.RuleMap // linker output merged across snapshot modules
	Pending     []PendingReaction
	Issues      []ir.Issue
}

// PendingFor returns the pending rows of tier.
func (r *Report) PendingFor(tier ir.Tier) []PendingReaction {
	var out []PendingReaction
	for _, p := range r.Pending {
		if p.Tier == tier {
			out = append(out, p)
		}
	}
	return out
}

// PendingReactions returns the distinct pending reaction ids.
func (r *Report) PendingReactions() []ir.Identifier {
	ids := make([]ir.Identifier, 0, len(r.Pending))
	for _, p := range r.Pending {
		ids = append(ids, p.Reaction)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithWorkers bounds parallel module compilation.
func WithWorkers(n int) Option {
	return func(a *Aggregator) { a.workers = n }
}

// Aggregator builds reports. It holds no per-run state and may be reused.
type Aggregator struct {
	logger  *zap.Logger
	workers int
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{logger: zap.NewNop(), workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build runs every tier and merges the results.
func (a *Aggregator) Build(ctx context.Context, in Inputs) (*Report, error) {
	b := newBuilder(a.logger, in)
	b.checkEntries()

	if err := b.compileModules(ctx, a.workers); err != nil {
		return nil, err
	}

	steps := []struct {
		name string
		run  func()
	}{
		{"module tiers", b.moduleTiers},
		{"added modules", b.addedModuleTier},
		{"ortholog tiers", b.orthologTiers},
		{"enzyme tiers", b.enzymeTiers},
		{"spontaneous", b.spontaneousTier},
		{"curation", b.applyCuration},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step.run()
		a.logger.Debug("tier step done", zap.String("step", step.name))
	}

	report := b.report()
	for _, tier := range ir.AllTiers {
		a.logger.Debug("tier resolved",
			zap.String("tier", string(tier)),
			zap.Int("reactions", len(report.Tiers[tier])),
			zap.Int("clauses", report.Tiers[tier].ClauseCount()))
	}
	a.logger.Info("mapping built",
		zap.Int("reactions", report.Mapping.Len()),
		zap.Int("pending", len(report.PendingReactions())),
		zap.Int("issues", len(report.Issues)))
	return report, nil
}

func sortPending(rows []PendingReaction) {
	slices.SortFunc(rows, func(a, b PendingReaction) int {
		return cmp.Or(
			cmp.Compare(a.Tier.Index(), b.Tier.Index()),
			cmp.Compare(a.Reaction, b.Reaction),
			cmp.Compare(a.Module, b.Module),
		)
	})
}
