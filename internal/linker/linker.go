// Package linker derives per-reaction rules from a module's DNF and its
// orthology table.
package linker

import (
	"maps"
	"regexp"
	"slices"

	"github.com/roach88/rxnmap/internal/ir"
)

var (
	orthologPattern = regexp.MustCompile(`K\d{5}`)
	reactionPattern = regexp.MustCompile(`R\d{5}`)
)

// Candidates maps a reaction to the orthologs a table associates with it.
// Order is irrelevant and duplicates carry no meaning.
type Candidates map[ir.Identifier][]ir.Identifier

// Set returns the distinct candidates of reaction as a lookup set.
func (c Candidates) Set(reaction ir.Identifier) map[ir.Identifier]struct{} {
	set := make(map[ir.Identifier]struct{}, len(c[reaction]))
	for _, id := range c[reaction] {
		set[id] = struct{}{}
	}
	return set
}

// Distinct returns the sorted, deduplicated candidates of reaction.
func (c Candidates) Distinct(reaction ir.Identifier) []ir.Identifier {
	out := slices.Clone(c[reaction])
	slices.Sort(out)
	return slices.Compact(out)
}

// Reactions returns the reactions in sorted order.
func (c Candidates) Reactions() []ir.Identifier {
	return slices.Sorted(maps.Keys(c))
}

// Add appends orthologs to reaction's candidates.
func (c Candidates) Add(reaction ir.Identifier, orthologs ...ir.Identifier) {
	c[reaction] = append(c[reaction], orthologs...)
}

// ParseOrthologyTable extracts ortholog ids from each row label and reaction
// ids from each row text. A row such as
//
//	"K00844,K12407" -> "hexokinase [EC:2.7.1.1] [RN:R01786]"
//
// makes both orthologs candidates for R01786. Rows without a reaction id are
// ignored; a reaction listed on rows without ortholog ids gets an empty list.
func ParseOrthologyTable(table map[string]string) Candidates {
	out := make(Candidates)
	for _, label := range slices.Sorted(maps.Keys(table)) {
		var orthologs []ir.Identifier
		for _, k := range orthologPattern.FindAllString(label, -1) {
			orthologs = append(orthologs, ir.Identifier(k))
		}
		for _, r := range reactionPattern.FindAllString(table[label], -1) {
			out.Add(ir.Identifier(r), orthologs...)
		}
	}
	return out
}

// Link resolves each reaction of one module to the clauses it can use.
//
// When every clause of rs is a singleton the module has no complexes, and each
// candidate ortholog maps to its own singleton clause. Otherwise a reaction
// with one distinct candidate gets that singleton, and a reaction with several
// gets every clause of rs that is a subset of its candidates. Reactions with
// no qualifying clause are absent from the result.
func Link(rs ir.RuleSet, candidates Candidates) ir.RuleMap {
	if rs.AllSingletons() {
		return LinkSingletons(candidates)
	}
	out := make(ir.RuleMap)
	clauses := rs.Clauses()
	for _, reaction := range candidates.Reactions() {
		distinct := candidates.Distinct(reaction)
		switch len(distinct) {
		case 0:
			continue
		case 1:
			out.Add(reaction, ir.Singleton(distinct[0]))
		default:
			set := candidates.Set(reaction)
			for _, c := range clauses {
				if c.SubsetOf(set) {
					out.Add(reaction, c)
				}
			}
		}
	}
	return out
}

// LinkSingletons maps every candidate to its own singleton clause.
func LinkSingletons(candidates Candidates) ir.RuleMap {
	out := make(ir.RuleMap)
	for reaction, orthologs := range candidates {
		for _, id := range orthologs {
			out.Add(reaction, ir.Singleton(id))
		}
	}
	return out
}

// LinkModule parses table and links it against rs.
func LinkModule(rs ir.RuleSet, table map[string]string) ir.RuleMap {
	return Link(rs, ParseOrthologyTable(table))
}

// MergeModules unions per-module results into one reaction-keyed map.
func MergeModules(perModule map[ir.Identifier]ir.RuleMap) ir.RuleMap {
	out := make(ir.RuleMap)
	for _, module := range slices.Sorted(maps.Keys(perModule)) {
		out.MergeAll(perModule[module])
	}
	return out
}

// Restrict returns a copy of c that keeps only orthologs in allowed.
// Reactions left without candidates are dropped.
func (c Candidates) Restrict(allowed map[ir.Identifier]struct{}) Candidates {
	out := make(Candidates, len(c))
	for reaction, orthologs := range c {
		for _, id := range orthologs {
			if _, ok := allowed[id]; ok {
				out.Add(reaction, id)
			}
		}
	}
	return out
}
