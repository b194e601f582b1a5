package aggregate

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/rxnmap/internal/definition"
	"github.com/roach88/rxnmap/internal/dnf"
	"github.com/roach88/rxnmap/internal/ir"
	"github.com/roach88/rxnmap/internal/kegg"
	"github.com/roach88/rxnmap/internal/linker"
)

// builder holds the scratch state of one Build call.
type builder struct {
	logger *zap.Logger
	in     Inputs

	tiers  map[ir.Tier]ir.RuleMap
	issues []ir.Issue

	compiled   map[ir.Identifier]ir.RuleSet
	unresolved map[ir.Identifier]string // module -> why it cannot be compiled
	perModule  map[ir.Identifier]ir.RuleMap

	// routed collects the candidate curation rows of each curated tier.
	routed  map[ir.Tier]map[ir.Identifier][]PendingReaction
	pending []PendingReaction

	addedChecked map[ir.Identifier]string // added module -> "" when verified

	descriptions map[ir.Identifier]string // ortholog -> description, built on first use
}

func newBuilder(logger *zap.Logger, in Inputs) *builder {
	b := &builder{
		logger:       logger,
		in:           in,
		issues:       slices.Clone(in.Issues),
		tiers:        make(map[ir.Tier]ir.RuleMap, len(ir.AllTiers)),
		unresolved:   make(map[ir.Identifier]string),
		perModule:    make(map[ir.Identifier]ir.RuleMap),
		routed:       make(map[ir.Tier]map[ir.Identifier][]PendingReaction),
		addedChecked: make(map[ir.Identifier]string),
	}
	for _, tier := range ir.AllTiers {
		b.tiers[tier] = make(ir.RuleMap)
	}
	return b
}

func (b *builder) issue(kind ir.IssueKind, subject ir.Identifier, tier ir.Tier, msg, detail string) {
	b.issues = append(b.issues, ir.Issue{
		Kind:    kind,
		Subject: string(subject),
		Tier:    tier,
		Message: msg,
		Detail:  detail,
	})
}

// checkEntries reports entries that lack a field some tier needs.
func (b *builder) checkEntries() {
	for _, id := range kegg.SortedIDs(b.in.Modules) {
		m := b.in.Modules[id]
		if !m.HasDefinition() {
			b.issue(ir.IssueMissingDefinitionField, id, ir.TierModuleComplexAmbiguous,
				"module entry has no definition", "")
			b.unresolved[id] = "module entry has no definition"
		}
		if m.Orthologs == nil {
			b.issue(ir.IssueMissingOrthologyField, id, "",
				"module entry has no orthology field", "")
		}
	}
	for _, id := range kegg.SortedIDs(b.in.Reactions) {
		if b.in.Reactions[id].Comment == nil {
			b.issue(ir.IssueMissingCommentField, id, ir.TierSpontaneous,
				"reaction entry has no comment", "")
		}
	}
}

// compileModules compiles every snapshot definition and links each compiled
// module against its own orthology table.
func (b *builder) compileModules(ctx context.Context, workers int) error {
	res, err := dnf.CompileAll(ctx, kegg.Definitions(b.in.Modules),
		dnf.WithWorkers(workers),
		dnf.WithLogger(b.logger))
	if err != nil {
		return err
	}
	b.compiled = res.Rules
	for _, me := range res.Errors {
		issue := me.Issue()
		issue.Tier = ir.TierModuleComplexAmbiguous
		b.issues = append(b.issues, issue)
		b.unresolved[me.Module] = fmt.Sprintf("%s: %s", issue.Kind, issue.Message)
	}
	for id, rs := range b.compiled {
		if table := b.in.Modules[id].Orthologs; table != nil {
			b.perModule[id] = linker.LinkModule(rs, table)
		}
	}
	return nil
}

// route records a reaction for a curated tier.
func (b *builder) route(row PendingReaction) {
	byReaction, ok := b.routed[row.Tier]
	if !ok {
		byReaction = make(map[ir.Identifier][]PendingReaction)
		b.routed[row.Tier] = byReaction
	}
	rows := byReaction[row.Reaction]
	if slices.ContainsFunc(rows, func(p PendingReaction) bool { return p.Module == row.Module }) {
		return
	}
	byReaction[row.Reaction] = append(rows, row)
}

// keywords returns the curation keywords of reaction r, reporting a missing
// orthology field against tier.
func (b *builder) keywords(r ir.Identifier, tier ir.Tier) []string {
	entry, ok := b.in.Reactions[r]
	if !ok || entry.Orthologs == nil {
		b.issue(ir.IssueMissingOrthologyField, r, tier,
			"reaction entry has no orthology field; keyword flags not computed", "")
		return nil
	}
	return MatchKeywords(entry.Orthologs)
}

func (b *builder) routeModuleReaction(r, m ir.Identifier, reason string) {
	row := PendingReaction{
		Tier:      ir.TierModuleComplexAmbiguous,
		Reaction:  r,
		Module:    m,
		Orthologs: b.in.Links.ReactionOrthology.Targets(r),
		Reason:    reason,
	}
	if rules, ok := b.perModule[m][r]; ok {
		row.Suggested = rules.Clone()
	}
	if entry, ok := b.in.Reactions[r]; ok && entry.Orthologs != nil {
		row.Keywords = MatchKeywords(entry.Orthologs)
	}
	b.route(row)
}

// moduleTiers resolves reactions of snapshot modules: simple modules feed
// module_simple, complex modules feed module_complex_single when the reaction
// has at most one direct ortholog link and module_complex_ambiguous otherwise.
// A complex-module reaction without direct links takes the rule derived from
// the module's orthology table.
func (b *builder) moduleTiers() {
	links := b.in.Links
	simple := b.tiers[ir.TierModuleSimple]
	single := b.tiers[ir.TierModuleComplexSingle]

	for _, m := range kegg.SortedIDs(b.in.Modules) {
		reactions := links.ModuleReaction.Targets(m)
		if reason, bad := b.unresolved[m]; bad {
			for _, r := range reactions {
				b.routeModuleReaction(r, m, reason)
			}
			continue
		}

		if !definition.HasComplexOperators(b.in.Modules[m].DefinitionText()) {
			allowed := links.ModuleOrthology[m]
			candidates := make(linker.Candidates)
			for _, r := range reactions {
				for _, k := range links.ReactionOrthology.Targets(r) {
					if _, ok := allowed[k]; ok {
						candidates.Add(r, k)
					}
				}
			}
			simple.MergeAll(linker.LinkSingletons(candidates))
			continue
		}

		rs := b.compiled[m]
		for _, r := range reactions {
			switch n := links.ReactionOrthology.Count(r); {
			case n == 0:
				// No direct link: fall back on the module's own orthology table.
				if rules := b.perModule[m][r]; !rules.IsEmpty() {
					single.Merge(r, rules)
					continue
				}
				b.issue(ir.IssueUnlinkedReaction, r, ir.TierModuleComplexSingle,
					"reaction has no direct ortholog link and no rule from its module", string(m))
			case n == 1:
				candidates := linker.Candidates{r: links.ReactionOrthology.Targets(r)}
				single.MergeAll(linker.Link(rs, candidates))
			default:
				b.routeModuleReaction(r, m, fmt.Sprintf("reaction links to %d orthologs in a complex module", n))
			}
		}
	}
}

// addedModuleTier resolves reactions linked only to modules missing from the
// snapshot. The single-link shortcut is trusted only when every linking
// module is present in AddedModules with a parseable definition free of
// complex operators.
func (b *builder) addedModuleTier() {
	links := b.in.Links
	added := b.tiers[ir.TierModuleAddedSingle]

	inSnapshot := make(map[ir.Identifier]struct{})
	for m := range b.in.Modules {
		for r := range links.ModuleReaction[m] {
			inSnapshot[r] = struct{}{}
		}
	}

	for _, r := range links.ReactionModule.Keys() {
		if _, ok := inSnapshot[r]; ok || !links.ReactionOrthology.Has(r) {
			continue
		}
		modules := links.ReactionModule.Targets(r)
		if slices.ContainsFunc(modules, func(m ir.Identifier) bool { _, ok := b.in.Modules[m]; return ok }) {
			continue
		}

		if n := links.ReactionOrthology.Count(r); n > 1 {
			for _, m := range modules {
				b.routeModuleReaction(r, m, fmt.Sprintf("reaction links to %d orthologs in an added module", n))
			}
			continue
		}

		verified := true
		for _, m := range modules {
			if reason := b.verifyAdded(m); reason != "" {
				verified = false
				b.routeModuleReaction(r, m, reason)
			}
		}
		if verified {
			added.Add(r, ir.Singleton(links.ReactionOrthology.Targets(r)[0]))
		}
	}
}

// verifyAdded returns why module m cannot be trusted, or "".
// Each module is checked and reported once.
func (b *builder) verifyAdded(m ir.Identifier) string {
	if reason, ok := b.addedChecked[m]; ok {
		return reason
	}
	entry, found := b.in.AddedModules[m]
	def := entry.DefinitionText()
	var reason string
	switch {
	case !found:
		reason = "added module has no entry"
	case !entry.HasDefinition():
		reason = "added module entry has no definition"
	case definition.ContainsModuleReference(def):
		reason = "added module definition references another module"
	case definition.HasComplexOperators(def):
		reason = "added module definition uses complex operators"
	default:
		if _, err := definition.Parse(def); err != nil {
			reason = "added module definition is malformed: " + err.Error()
		}
	}
	b.addedChecked[m] = reason
	if reason != "" {
		b.issue(ir.IssueUnverifiedAddedModule, m, ir.TierModuleAddedSingle, reason, def)
	}
	return reason
}

// orthologTiers resolves reactions with direct ortholog links and no module.
func (b *builder) orthologTiers() {
	links := b.in.Links
	single := b.tiers[ir.TierOrthologSingle]

	for _, r := range links.ReactionOrthology.Keys() {
		if links.ReactionModule.Has(r) {
			continue
		}
		orthologs := links.ReactionOrthology.Targets(r)
		if len(orthologs) == 1 {
			single.Add(r, ir.Singleton(orthologs[0]))
			continue
		}
		b.route(PendingReaction{
			Tier:      ir.TierOrthologAmbiguous,
			Reaction:  r,
			Orthologs: orthologs,
			Keywords:  b.keywords(r, ir.TierOrthologAmbiguous),
			Suggested: singletons(orthologs),
			Reason:    fmt.Sprintf("reaction links to %d orthologs", len(orthologs)),
		})
	}
}

// enzymeTiers resolves reactions with neither module nor ortholog link
// through the orthologs of their enzymes.
func (b *builder) enzymeTiers() {
	links := b.in.Links
	single := b.tiers[ir.TierEnzymeSingle]

	for _, r := range links.ReactionEnzyme.Keys() {
		if links.ReactionModule.Has(r) || links.ReactionOrthology.Has(r) {
			continue
		}
		enzymes := links.ReactionEnzyme.Targets(r)
		via := make(kegg.IDSet)
		for _, e := range enzymes {
			maps.Copy(via, links.EnzymeOrthology[e])
		}
		orthologs := via.Sorted()
		switch len(orthologs) {
		case 0:
			continue
		case 1:
			single.Add(r, ir.Singleton(orthologs[0]))
		default:
			b.route(PendingReaction{
				Tier:      ir.TierEnzymeAmbiguous,
				Reaction:  r,
				Orthologs: orthologs,
				Enzymes:   enzymes,
				Keywords:  b.enzymeKeywords(r, orthologs),
				Suggested: singletons(orthologs),
				Reason:    fmt.Sprintf("enzymes link to %d orthologs", len(orthologs)),
			})
		}
	}
}

// enzymeKeywords flags the orthologs reached through enzymes. Their
// descriptions come from any module or reaction entry that lists them, plus
// the reaction's own orthology field.
func (b *builder) enzymeKeywords(r ir.Identifier, orthologs []ir.Identifier) []string {
	if b.descriptions == nil {
		b.descriptions = make(map[ir.Identifier]string)
		collect := func(table map[string]string) {
			for label, text := range table {
				for _, part := range strings.Split(label, ",") {
					id := ir.Identifier(strings.TrimSpace(part))
					if prev, seen := b.descriptions[id]; !seen || text < prev {
						b.descriptions[id] = text
					}
				}
			}
		}
		for _, m := range b.in.Modules {
			collect(m.Orthologs)
		}
		for _, m := range b.in.AddedModules {
			collect(m.Orthologs)
		}
		for _, e := range b.in.Reactions {
			collect(e.Orthologs)
		}
	}

	texts := maps.Clone(b.in.Reactions[r].Orthologs)
	if texts == nil {
		texts = make(map[string]string)
	}
	for _, k := range orthologs {
		if text, ok := b.descriptions[k]; ok {
			texts[string(k)] = text
		}
	}
	return MatchKeywords(texts)
}

// spontaneousTier adds the spontaneous sentinel for non-enzymatic reactions.
func (b *builder) spontaneousTier() {
	spont := b.tiers[ir.TierSpontaneous]
	for _, r := range kegg.SortedIDs(b.in.Reactions) {
		if IsSpontaneous(b.in.Reactions[r].CommentText()) {
			spont.Add(r, ir.Singleton(ir.Spontaneous))
		}
	}
}

// applyCuration merges curated rules into their tiers. Routed reactions
// without a curated rule become pending.
func (b *builder) applyCuration() {
	for _, tier := range ir.AllTiers {
		if !tier.Curated() {
			continue
		}
		curated := b.in.Curated[tier]
		b.tiers[tier].MergeAll(curated)

		byReaction := b.routed[tier]
		for _, r := range slices.Sorted(maps.Keys(byReaction)) {
			if !curated[r].IsEmpty() {
				continue
			}
			rows := byReaction[r]
			b.pending = append(b.pending, rows...)
			b.issue(ir.IssueAmbiguousTierUnresolved, r, tier,
				"reaction needs a curated rule", rows[0].Reason)
		}
	}
}

func (b *builder) report() *Report {
	mapping := ir.NewCanonicalMapping()
	for _, tier := range ir.AllTiers {
		for r, rs := range b.tiers[tier] {
			mapping.Merge(r, rs)
		}
	}
	ir.SortIssues(b.issues)
	sortPending(b.pending)
	return &Report{
		Tiers:       b.tiers,
		Mapping:     mapping,
		ModuleRules: linker.MergeModules(b.perModule),
		Pending:     b.pending,
		Issues:      b.issues,
	}
}

func singletons(ids []ir.Identifier) ir.RuleSet {
	rs := ir.NewRuleSet()
	for _, id := range ids {
		rs.Add(ir.Singleton(id))
	}
	return rs
}
