package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/rxnmap/internal/aggregate"
	"github.com/roach88/rxnmap/internal/ir"
	"github.com/roach88/rxnmap/internal/testutil"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestReport builds a small report without running the aggregator.
func createTestReport() *aggregate.Report {
	tiers := make(map[ir.Tier]ir.RuleMap, len(ir.AllTiers))
	for _, tier := range ir.AllTiers {
		tiers[tier] = make(ir.RuleMap)
	}
	tiers[ir.TierModuleSimple] = testutil.Rules(map[string]string{"R00001": "K00001", "R00002": "K00002"})
	tiers[ir.TierOrthologSingle] = testutil.Rules(map[string]string{"R00001": "K00003"})
	tiers[ir.TierEnzymeAmbiguous] = testutil.Rules(map[string]string{"R00051": "K00051+K00052"})

	mapping := ir.NewCanonicalMapping()
	for _, tier := range ir.AllTiers {
		for r, rs := range tiers[tier] {
			mapping.Merge(r, rs)
		}
	}
	return &aggregate.Report{
		Tiers:   tiers,
		Mapping: mapping,
		Pending: []aggregate.PendingReaction{
			{
				Tier:      ir.TierModuleComplexAmbiguous,
				Reaction:  "R00010",
				Module:    "M00002",
				Orthologs: []ir.Identifier{"K00010", "K00011"},
				Suggested: testutil.Rules(map[string]string{"x": "K00010+K00011"})["x"],
				Reason:    "reaction links to 2 orthologs in a complex module",
			},
			{
				Tier:      ir.TierOrthologAmbiguous,
				Reaction:  "R00041",
				Orthologs: []ir.Identifier{"K00041", "K00042"},
				Keywords:  []string{"pts"},
			},
			{
				Tier:      ir.TierEnzymeAmbiguous,
				Reaction:  "R00052",
				Orthologs: []ir.Identifier{"K00053", "K00054"},
				Enzymes:   []ir.Identifier{"1.1.1.1"},
			},
		},
		Issues: []ir.Issue{
			{Kind: ir.IssueMalformedDefinition, Subject: "M00003", Tier: ir.TierModuleComplexAmbiguous, Message: "expected an operand", Detail: "K00020+"},
			{Kind: ir.IssueMissingCommentField, Subject: "R00041", Message: "reaction entry has no comment"},
		},
	}
}
