package aggregate

import (
	"github.com/roach88/rxnmap/internal/ir"
)

// TierStats summarises one tier.
type TierStats struct {
	Tier      ir.Tier `json:"tier"`
	Label     string  `json:"label"`
	Reactions int     `json:"reactions"`
	Clauses   int     `json:"clauses"`
	// ClausesPerReaction maps a clause count to the reactions having it.
	ClausesPerReaction map[int]int `json:"clauses_per_reaction"`
	// ClauseSizes maps a clause length to the clauses having it.
	ClauseSizes map[int]int `json:"clause_sizes"`
}

// Overlap counts reactions resolved by both tiers.
type Overlap struct {
	A         ir.Tier `json:"a"`
	B         ir.Tier `json:"b"`
	Reactions int     `json:"reactions"`
}

// Stats are diagnostics over a Report.
type Stats struct {
	Tiers     []TierStats          `json:"tiers"`
	Overlaps  []Overlap            `json:"overlaps"`
	Canonical int                  `json:"canonical_reactions"`
	Pending   int                  `json:"pending_reactions"`
	Issues    map[ir.IssueKind]int `json:"issues"`
}

// Describe computes Stats for report. Only non-zero overlaps are listed, in
// ir.AllTiers order.
func Describe(report *Report) Stats {
	stats := Stats{
		Canonical: report.Mapping.Len(),
		Pending:   len(report.PendingReactions()),
		Issues:    ir.CountIssues(report.Issues),
	}

	for _, tier := range ir.AllTiers {
		rules := report.Tiers[tier]
		ts := TierStats{
			Tier:               tier,
			Label:              tier.Label(),
			Reactions:          len(rules),
			ClausesPerReaction: make(map[int]int),
			ClauseSizes:        make(map[int]int),
		}
		for _, rs := range rules {
			ts.Clauses += rs.Len()
			ts.ClausesPerReaction[rs.Len()]++
			for _, c := range rs {
				ts.ClauseSizes[c.Len()]++
			}
		}
		stats.Tiers = append(stats.Tiers, ts)
	}

	for i, a := range ir.AllTiers {
		for _, b := range ir.AllTiers[i+1:] {
			n := 0
			for r := range report.Tiers[a] {
				if _, ok := report.Tiers[b][r]; ok {
					n++
				}
			}
			if n > 0 {
				stats.Overlaps = append(stats.Overlaps, Overlap{A: a, B: b, Reactions: n})
			}
		}
	}
	return stats
}
