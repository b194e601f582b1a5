package dnf

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxnmap/internal/definition"
	"github.com/roach88/rxnmap/internal/ir"
)

func TestCompileDefinition_Algebra(t *testing.T) {
	tests := []struct {
		name string
		def  string
		want string
	}{
		{"singleton", "K00001", "K00001"},
		{"quoted singleton", `"spontaneous"`, "spontaneous"},
		{"sequence", "K00001 K00002", "K00001+K00002"},
		{"complex", "K02297+K02298+K02299+K02300", "K02297+K02298+K02299+K02300"},
		{"alternative", "K00001,K00002", "K00001,K00002"},
		{"optional step", "K00001 -K00002", "K00001,K00001+K00002"},
		{"optional chain", "K00001-K00002-K00003", "K00001,K00001+K00002,K00001+K00002+K00003,K00001+K00003"},
		{"repeated id collapses", "K00001 K00001", "K00001"},
		{"duplicate alternative collapses", "K00001,K00001", "K00001"},
		{"double optional", "--K00001", "K00001"},
		{"all optional", "-K00001 -K00002", "K00001,K00001+K00002,K00002"},
		{"group in sequence", "K00001 (K00002,K00003) -K00004", "K00001+K00002,K00001+K00002+K00004,K00001+K00003,K00001+K00003+K00004"},
		{"glycolysis head", "K00844,K12407,K00845 (K01810,K06859) K00850", "K00844,K00845+K00850+K01810,K00845+K00850+K06859,K12407"},
		{"complex of alternatives", "(K00001,K00002)+K00003", "K00001+K00003,K00002+K00003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := CompileDefinition(tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rs.String())
		})
	}
}

func TestCompileDefinition_Idempotent(t *testing.T) {
	def := "K00844,K12407,K00845 (K01810,K06859) K00850 -K00001-K00002"
	first := MustCompileDefinition(def)
	second := MustCompileDefinition(def)
	assert.True(t, first.Equal(second))
	assert.Equal(t, ir.MustRuleSetDigest(first), ir.MustRuleSetDigest(second))
}

func TestCompileDefinition_SingletonLaw(t *testing.T) {
	for _, id := range []string{"K00001", "K99999", "R00200", "C00022"} {
		rs := MustCompileDefinition(id)
		assert.True(t, rs.Equal(ir.NewRuleSet(ir.Singleton(ir.Identifier(id)))), id)
	}
}

func TestCompileDefinition_AlternativeLaw(t *testing.T) {
	ids := []string{"K11023", "K11024", "K11025", "K11026", "K11027"}
	union := ir.NewRuleSet()
	for _, id := range ids {
		union.Union(MustCompileDefinition(id))
	}

	got := MustCompileDefinition(strings.Join(ids, ","))
	assert.True(t, got.Equal(union))
	assert.Equal(t, 5, got.Len())
	assert.True(t, got.AllSingletons())

	a := MustCompileDefinition("K00001+K00002 K00003")
	b := MustCompileDefinition("K00004 -K00005")
	ab := MustCompileDefinition("K00001+K00002 K00003,K00004 -K00005")
	expected := a.Clone()
	expected.Union(b)
	assert.True(t, ab.Equal(expected))
}

func TestCompileDefinition_ChainKeepsHead(t *testing.T) {
	rs := MustCompileDefinition("K11023-K11024-K11025-K11026-K11027")

	assert.Equal(t, 16, rs.Len())
	for _, c := range rs.Clauses() {
		assert.True(t, c.Contains("K11023"), c.Key())
	}
	assert.True(t, rs.Has(ir.Singleton("K11023")))
	assert.True(t, rs.Has(ir.MustClause("K11023", "K11024", "K11025", "K11026", "K11027")))
}

func TestCompileDefinition_NoEmptyClauses(t *testing.T) {
	for _, def := range []string{"-K00001", "-K00001 -K00002", "K00001,-K00002", "-(K00001 -K00002)", "--K00001-K00002"} {
		rs := MustCompileDefinition(def)
		require.False(t, rs.IsEmpty(), def)
		for _, c := range rs.Clauses() {
			assert.Positive(t, c.Len(), def)
		}
	}
}

func TestCompileDefinition_Errors(t *testing.T) {
	_, err := CompileDefinition("K00001++K00002")
	assert.ErrorIs(t, err, definition.ErrMalformedDefinition)

	_, err = CompileDefinition("K00001 M00002")
	assert.ErrorIs(t, err, ErrNestedModule)
}

func TestExpand_KeepsMultiplicity(t *testing.T) {
	e := Expand(definition.MustParse("-K00001"))
	assert.Equal(t, 2, e.Len())
	assert.Equal(t, "[{K00001} {}]", e.String())

	e = Expand(definition.MustParse("K00001,K00001"))
	assert.Equal(t, [][]ir.Identifier{{"K00001"}, {"K00001"}}, e.Terms())
	assert.Equal(t, 1, e.Finalize().Len())

	e = Expand(definition.MustParse("K00001 K00001"))
	assert.Equal(t, [][]ir.Identifier{{"K00001", "K00001"}}, e.Terms())

	e = Expand(definition.MustParse("-K00001 -K00002"))
	assert.Equal(t, "[{K00001,K00002} {K00001} {K00002} {}]", e.String())
}

func TestExpand_OptionalDoesNotAliasChild(t *testing.T) {
	// Two optional wrappers over the same expansion must not share backing arrays.
	e := Expand(definition.MustParse("(-K00001) (-K00002)"))
	assert.Equal(t, "[{K00001,K00002} {K00001} {K00002} {}]", e.String())
}

func TestCompileAll(t *testing.T) {
	defs := map[ir.Identifier]string{
		"M00417": "K02297+K02298+K02299+K02300",
		"M00009": "K00001 (K00002,K00003) -K00004",
		"M00844": "K00844,K12407,K00845 (K01810,K06859) K00850",
		"M90001": "K00001++K00002",
		"M90002": "K00001 M00002",
	}

	res, err := CompileAll(context.Background(), defs, WithWorkers(2))
	require.NoError(t, err)

	require.Len(t, res.Errors, 2)
	assert.Equal(t, ir.Identifier("M90001"), res.Errors[0].Module)
	assert.Equal(t, ir.IssueMalformedDefinition, res.Errors[0].Kind())
	assert.Equal(t, ir.IssueNestedModule, res.Errors[1].Kind())

	var sb strings.Builder
	errs := make(map[ir.Identifier]ir.Issue)
	for _, issue := range res.Issues() {
		errs[ir.Identifier(issue.Subject)] = issue
	}
	for _, id := range slices.Sorted(maps.Keys(defs)) {
		if rs, ok := res.Rules[id]; ok {
			fmt.Fprintf(&sb, "%s\t%s\n", id, rs)
			continue
		}
		fmt.Fprintf(&sb, "%s\t%s\t%s\n", id, errs[id].Kind, errs[id].Message)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "compile_all", []byte(sb.String()))
}

func TestCompileAll_Deterministic(t *testing.T) {
	defs := make(map[ir.Identifier]string)
	for i := range 50 {
		defs[ir.Identifier(fmt.Sprintf("M%05d", i))] = fmt.Sprintf("K%05d+K%05d,-K%05d", i, i+1, i+2)
	}

	first, err := CompileAll(context.Background(), defs, WithWorkers(8))
	require.NoError(t, err)
	second, err := CompileAll(context.Background(), defs, WithWorkers(1))
	require.NoError(t, err)

	require.Len(t, first.Rules, 50)
	for id, rs := range first.Rules {
		assert.True(t, rs.Equal(second.Rules[id]), id)
	}
}

func TestCompileAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CompileAll(ctx, map[ir.Identifier]string{"M00001": "K00001"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestModuleError_Issue(t *testing.T) {
	me := &ModuleError{Module: "M00001", Definition: "K00001 &", Err: &definition.MalformedDefinitionError{
		Definition: "K00001 &",
		Offset:     7,
		Substring:  "&",
		Reason:     "unexpected character '&'",
	}}

	issue := me.Issue()
	assert.Equal(t, ir.IssueMalformedDefinition, issue.Kind)
	assert.Equal(t, "M00001", issue.Subject)
	assert.Equal(t, "unexpected character '&'", issue.Message)
	assert.Equal(t, "&", issue.Detail)
	assert.Contains(t, me.Error(), "module M00001")
}
