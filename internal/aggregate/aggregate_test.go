package aggregate

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/rxnmap/internal/ir"
	"github.com/roach88/rxnmap/internal/kegg"
	"github.com/roach88/rxnmap/internal/testutil"
)

// fixtureInputs exercises every tier once.
func fixtureInputs() Inputs {
	links := testutil.NewLinks().
		// simple module
		ModuleOrthologs("M00001", "K00001", "K00002").
		ModuleReactions("M00001", "R00001", "R00002").
		ReactionOrthologs("R00001", "K00001", "K00009").
		ReactionOrthologs("R00002", "K00002").
		// complex module
		ModuleOrthologs("M00002", "K00010", "K00011", "K00012").
		ModuleReactions("M00002", "R00010", "R00011").
		ReactionOrthologs("R00010", "K00010", "K00011", "K00012").
		ReactionOrthologs("R00011", "K00012").
		// malformed module
		ModuleReactions("M00003", "R00020").
		ReactionOrthologs("R00020", "K00020").
		// added modules
		ReactionModulesOnly("R00030", "M09001").
		ReactionOrthologs("R00030", "K00030").
		ReactionModulesOnly("R00031", "M09002").
		ReactionOrthologs("R00031", "K00031").
		// ortholog tiers
		ReactionOrthologs("R00040", "K00040").
		ReactionOrthologs("R00041", "K00041", "K00042").
		// enzyme tiers
		ReactionEnzymes("R00050", "1.1.1.1").
		EnzymeOrthologs("1.1.1.1", "K00050").
		ReactionEnzymes("R00051", "2.2.2.2", "3.3.3.3").
		EnzymeOrthologs("2.2.2.2", "K00051").
		EnzymeOrthologs("3.3.3.3", "K00052").
		Build()

	return Inputs{
		Modules: testutil.Modules(
			testutil.Module("M00001", "K00001 K00002", map[string]string{
				"K00001": "enzyme a [RN:R00001]",
				"K00002": "enzyme b [RN:R00002]",
			}),
			testutil.Module("M00002", "K00010+K00011,K00012", map[string]string{
				"K00010,K00012": "alpha subunit [RN:R00010 R00011]",
				"K00011":        "beta subunit [RN:R00010]",
			}),
			testutil.Module("M00003", "K00020+", map[string]string{
				"K00020": "broken [RN:R00020]",
			}),
		),
		AddedModules: testutil.Modules(
			testutil.Module("M09001", "K00030 K00031", map[string]string{}),
		),
		Reactions: map[ir.Identifier]kegg.ReactionEntry{
			"R00040": testutil.Reaction("R00040", "", nil),
			"R00041": {ID: "R00041", Orthologs: map[string]string{
				"K00041": "PTS system, glucose-specific IIA component",
				"K00042": "PTS system, IIB subunit",
			}},
			"R00060": testutil.Reaction("R00060", "Spontaneous reaction", nil),
		},
		Links: links,
		Curated: map[ir.Tier]ir.RuleMap{
			ir.TierModuleComplexAmbiguous: testutil.Rules(map[string]string{"R00020": "K00020"}),
			ir.TierEnzymeAmbiguous:        testutil.Rules(map[string]string{"R00051": "K00051+K00052"}),
		},
	}
}

func build(t *testing.T, in Inputs) *Report {
	t.Helper()
	report, err := New(WithLogger(zaptest.NewLogger(t)), WithWorkers(2)).Build(context.Background(), in)
	require.NoError(t, err)
	return report
}

func TestBuild_Tiers(t *testing.T) {
	report := build(t, fixtureInputs())

	want := map[ir.Tier]map[string]string{
		ir.TierModuleSimple:           {"R00001": "K00001", "R00002": "K00002"},
		ir.TierModuleComplexSingle:    {"R00011": "K00012"},
		ir.TierModuleAddedSingle:      {"R00030": "K00030"},
		ir.TierModuleComplexAmbiguous: {"R00020": "K00020"},
		ir.TierOrthologSingle:         {"R00040": "K00040"},
		ir.TierOrthologAmbiguous:      {},
		ir.TierEnzymeSingle:           {"R00050": "K00050"},
		ir.TierEnzymeAmbiguous:        {"R00051": "K00051+K00052"},
		ir.TierSpontaneous:            {"R00060": "spontaneous"},
	}
	got := make(map[ir.Tier]map[string]string, len(report.Tiers))
	for tier, rules := range report.Tiers {
		got[tier] = rules.Strings()
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tiers mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_CanonicalMappingIsUnion(t *testing.T) {
	report := build(t, fixtureInputs())

	want := map[string]string{
		"R00001": "K00001",
		"R00002": "K00002",
		"R00011": "K00012",
		"R00020": "K00020",
		"R00030": "K00030",
		"R00040": "K00040",
		"R00050": "K00050",
		"R00051": "K00051+K00052",
		"R00060": "spontaneous",
	}
	if diff := cmp.Diff(want, report.Mapping.Rules().Strings()); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}
	_, ok := report.Mapping.Get("R00010")
	assert.False(t, ok, "pending reactions stay out of the mapping")
}

func TestBuild_ModuleRules(t *testing.T) {
	report := build(t, fixtureInputs())

	assert.Equal(t, map[string]string{
		"R00001": "K00001",
		"R00002": "K00002",
		"R00010": "K00010+K00011,K00012",
		"R00011": "K00012",
	}, report.ModuleRules.Strings())
}

func TestBuild_Pending(t *testing.T) {
	report := build(t, fixtureInputs())

	require.Len(t, report.Pending, 3)

	complexRow := report.Pending[0]
	assert.Equal(t, ir.TierModuleComplexAmbiguous, complexRow.Tier)
	assert.Equal(t, ir.Identifier("R00010"), complexRow.Reaction)
	assert.Equal(t, ir.Identifier("M00002"), complexRow.Module)
	assert.Equal(t, "K00010+K00011,K00012", complexRow.Suggested.String())
	assert.Equal(t, []ir.Identifier{"K00010", "K00011", "K00012"}, complexRow.Orthologs)

	added := report.Pending[1]
	assert.Equal(t, ir.TierModuleComplexAmbiguous, added.Tier)
	assert.Equal(t, ir.Identifier("R00031"), added.Reaction)
	assert.Equal(t, ir.Identifier("M09002"), added.Module)
	assert.True(t, added.Suggested.IsEmpty())

	ortho := report.Pending[2]
	assert.Equal(t, ir.TierOrthologAmbiguous, ortho.Tier)
	assert.Equal(t, ir.Identifier("R00041"), ortho.Reaction)
	assert.Equal(t, []string{"pts", "subunit"}, ortho.Keywords)
	assert.Equal(t, "K00041,K00042", ortho.Suggested.String())
	assert.Equal(t, "https://www.genome.jp/dbget-bin/www_bget?rn:R00041", ortho.URL())

	assert.Equal(t, []ir.Identifier{"R00010", "R00031", "R00041"}, report.PendingReactions())
	assert.Len(t, report.PendingFor(ir.TierOrthologAmbiguous), 1)
	assert.Empty(t, report.PendingFor(ir.TierEnzymeAmbiguous))
}

func TestBuild_Issues(t *testing.T) {
	report := build(t, fixtureInputs())

	assert.Equal(t, map[ir.IssueKind]int{
		ir.IssueMalformedDefinition:     1,
		ir.IssueUnverifiedAddedModule:   1,
		ir.IssueAmbiguousTierUnresolved: 3,
		ir.IssueMissingCommentField:     1,
	}, ir.CountIssues(report.Issues))

	for _, issue := range report.Issues {
		switch issue.Kind {
		case ir.IssueMalformedDefinition:
			assert.Equal(t, "M00003", issue.Subject)
			assert.Equal(t, ir.TierModuleComplexAmbiguous, issue.Tier)
		case ir.IssueUnverifiedAddedModule:
			assert.Equal(t, "M09002", issue.Subject)
			assert.Equal(t, "added module has no entry", issue.Message)
		case ir.IssueMissingCommentField:
			assert.Equal(t, "R00041", issue.Subject)
		}
	}
}

func TestBuild_AddedModuleVerification(t *testing.T) {
	tests := []struct {
		name       string
		definition string
		resolved   bool
	}{
		{"plain sequence", "K00030 K00031", true},
		{"complex operators", "K00030+K00031", false},
		{"module reference", "K00030 M00001", false},
		{"malformed", "K00030 \"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Inputs{
				AddedModules: testutil.Modules(testutil.Module("M09001", tt.definition, nil)),
				Links: testutil.NewLinks().
					ReactionModulesOnly("R00030", "M09001").
					ReactionOrthologs("R00030", "K00030").
					Build(),
			}
			report := build(t, in)

			_, ok := report.Tiers[ir.TierModuleAddedSingle]["R00030"]
			assert.Equal(t, tt.resolved, ok)
			if !tt.resolved {
				assert.Equal(t, 1, ir.CountIssues(report.Issues)[ir.IssueUnverifiedAddedModule])
				assert.Equal(t, []ir.Identifier{"R00030"}, report.PendingReactions())
			}
		})
	}
}

func TestBuild_AddedModuleWithSeveralLinksIsAmbiguous(t *testing.T) {
	in := Inputs{
		AddedModules: testutil.Modules(testutil.Module("M09001", "K00030 K00031", nil)),
		Links: testutil.NewLinks().
			ReactionModulesOnly("R00030", "M09001").
			ReactionOrthologs("R00030", "K00030", "K00031").
			Build(),
	}
	report := build(t, in)

	assert.Empty(t, report.Tiers[ir.TierModuleAddedSingle])
	require.Len(t, report.Pending, 1)
	assert.Equal(t, ir.TierModuleComplexAmbiguous, report.Pending[0].Tier)
	assert.Zero(t, ir.CountIssues(report.Issues)[ir.IssueUnverifiedAddedModule])
}

func TestBuild_ReactionInSeveralTiersUnions(t *testing.T) {
	in := Inputs{
		Reactions: testutil.Reactions(testutil.Reaction("R00070", "non-enzymatic in vitro", nil)),
		Links:     testutil.NewLinks().ReactionOrthologs("R00070", "K00070").Build(),
	}
	report := build(t, in)

	rs, ok := report.Mapping.Get("R00070")
	require.True(t, ok)
	assert.Equal(t, "K00070,spontaneous", rs.String())
}

func TestBuild_ModuleAndCuratedClausesUnion(t *testing.T) {
	in := Inputs{
		Modules: testutil.Modules(
			testutil.Module("M00001", "K00001 K00004", map[string]string{
				"K00001": "enzyme a [RN:R00100]",
				"K00004": "enzyme d [RN:R00101]",
			}),
			testutil.Module("M00005", "K00002+K00003", map[string]string{
				"K00002": "alpha subunit [RN:R00100]",
				"K00003": "beta subunit [RN:R00100]",
			}),
		),
		Links: testutil.NewLinks().
			ModuleOrthologs("M00001", "K00001", "K00004").
			ModuleReactions("M00001", "R00100").
			ModuleOrthologs("M00005", "K00002", "K00003").
			ModuleReactions("M00005", "R00100").
			ReactionOrthologs("R00100", "K00001", "K00002").
			Build(),
		Curated: map[ir.Tier]ir.RuleMap{
			ir.TierModuleComplexAmbiguous: testutil.Rules(map[string]string{"R00100": "K00002+K00003"}),
		},
	}
	report := build(t, in)

	assert.Equal(t, "K00001", report.Tiers[ir.TierModuleSimple]["R00100"].String())
	assert.Equal(t, "K00002+K00003", report.Tiers[ir.TierModuleComplexAmbiguous]["R00100"].String())
	rs, ok := report.Mapping.Get("R00100")
	require.True(t, ok)
	assert.Equal(t, "K00001,K00002+K00003", rs.String())
	assert.Empty(t, report.Pending)
}

func TestBuild_ComplexModuleReactionWithoutLinks(t *testing.T) {
	in := Inputs{
		Modules: testutil.Modules(
			testutil.Module("M00002", "K00010+K00011", map[string]string{
				"K00010": "alpha [RN:R00010]",
				"K00011": "beta [RN:R00010]",
			}),
		),
		Links: testutil.NewLinks().
			ModuleOrthologs("M00002", "K00010", "K00011").
			ModuleReactions("M00002", "R00010", "R00012").
			Build(),
	}
	report := build(t, in)

	assert.Equal(t, map[string]string{"R00010": "K00010+K00011"},
		report.Tiers[ir.TierModuleComplexSingle].Strings())

	counts := ir.CountIssues(report.Issues)
	require.Equal(t, 1, counts[ir.IssueUnlinkedReaction])
	for _, issue := range report.Issues {
		if issue.Kind == ir.IssueUnlinkedReaction {
			assert.Equal(t, "R00012", issue.Subject)
			assert.Equal(t, "M00002", issue.Detail)
			assert.Equal(t, ir.TierModuleComplexSingle, issue.Tier)
		}
	}
	_, ok := report.Mapping.Get("R00012")
	assert.False(t, ok)
}

func TestBuild_EnzymeAmbiguousKeywords(t *testing.T) {
	in := Inputs{
		Reactions: map[ir.Identifier]kegg.ReactionEntry{
			"R00090": {ID: "R00090", Orthologs: map[string]string{
				"K00051": "cytochrome c oxidase subunit I",
			}},
			"R00091": {ID: "R00091", Orthologs: map[string]string{}},
		},
		Links: testutil.NewLinks().
			ReactionEnzymes("R00091", "2.2.2.2", "3.3.3.3").
			EnzymeOrthologs("2.2.2.2", "K00051").
			EnzymeOrthologs("3.3.3.3", "K00052").
			Build(),
	}
	report := build(t, in)

	rows := report.PendingFor(ir.TierEnzymeAmbiguous)
	require.Len(t, rows, 1)
	assert.Equal(t, ir.Identifier("R00091"), rows[0].Reaction)
	assert.Equal(t, []string{"subunit"}, rows[0].Keywords)
	assert.Equal(t, []ir.Identifier{"2.2.2.2", "3.3.3.3"}, rows[0].Enzymes)
}

func TestBuild_MissingFields(t *testing.T) {
	in := Inputs{
		Modules: map[ir.Identifier]kegg.ModuleEntry{
			"M00004": {ID: "M00004"},
		},
		Links: testutil.NewLinks().
			ModuleReactions("M00004", "R00080").
			ReactionOrthologs("R00080", "K00080").
			ReactionOrthologs("R00081", "K00081", "K00082").
			Build(),
	}
	report := build(t, in)

	counts := ir.CountIssues(report.Issues)
	assert.Equal(t, 1, counts[ir.IssueMissingDefinitionField])
	// module without orthologs, and reaction R00081 without an entry
	assert.Equal(t, 2, counts[ir.IssueMissingOrthologyField])
	assert.Equal(t, []ir.Identifier{"R00080", "R00081"}, report.PendingReactions())
	assert.Equal(t, "module entry has no definition", report.PendingFor(ir.TierModuleComplexAmbiguous)[0].Reason)
}

func TestBuild_EmptyInputs(t *testing.T) {
	report := build(t, Inputs{})

	assert.Zero(t, report.Mapping.Len())
	assert.Empty(t, report.Pending)
	assert.Empty(t, report.Issues)
	for _, tier := range ir.AllTiers {
		assert.NotNil(t, report.Tiers[tier], tier)
	}
}

func TestBuild_CarriesInputIssues(t *testing.T) {
	row := ir.Issue{
		Kind:    ir.IssueUnresolvedCurationRow,
		Subject: "R00099",
		Tier:    ir.TierOrthologAmbiguous,
		Message: "empty identifier",
	}
	in := Inputs{Issues: []ir.Issue{row}}
	report := build(t, in)

	assert.Equal(t, []ir.Issue{row}, report.Issues)
	report.Issues[0].Subject = "changed"
	assert.Equal(t, "R00099", in.Issues[0].Subject, "input issues are copied")
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Build(ctx, fixtureInputs())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_Deterministic(t *testing.T) {
	first := build(t, fixtureInputs())
	second := build(t, fixtureInputs())

	d1, err := first.Mapping.Digest()
	require.NoError(t, err)
	d2, err := second.Mapping.Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Equal(t, first.Issues, second.Issues)
	assert.Equal(t, first.Pending, second.Pending)
}

func TestDescribe(t *testing.T) {
	stats := Describe(build(t, fixtureInputs()))

	require.Len(t, stats.Tiers, len(ir.AllTiers))
	simple := stats.Tiers[0]
	assert.Equal(t, ir.TierModuleSimple, simple.Tier)
	assert.Equal(t, "1", simple.Label)
	assert.Equal(t, 2, simple.Reactions)
	assert.Equal(t, map[int]int{1: 2}, simple.ClausesPerReaction)
	assert.Equal(t, map[int]int{1: 2}, simple.ClauseSizes)

	enzyme := stats.Tiers[ir.TierEnzymeAmbiguous.Index()]
	assert.Equal(t, map[int]int{2: 1}, enzyme.ClauseSizes)

	assert.Empty(t, stats.Overlaps)
	assert.Equal(t, 9, stats.Canonical)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 3, stats.Issues[ir.IssueAmbiguousTierUnresolved])
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"carrier", "chain"}, MatchKeywords(map[string]string{
		"K1": "acyl CARRIER protein",
		"K2": "heavy chain",
	}))
	assert.Empty(t, MatchKeywords(nil))

	assert.True(t, IsSpontaneous("Non Enzymatic"))
	assert.True(t, IsSpontaneous("occurs spontaneously"))
	assert.False(t, IsSpontaneous("catalysed"))
}
