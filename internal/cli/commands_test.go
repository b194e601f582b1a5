package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Definition(t *testing.T) {
	stdout, stderr, code := execute(t, "compile", "K00001+K00002,K00003")
	require.Equal(t, ExitSuccess, code, stderr)

	assert.Contains(t, stdout, "Rules (2 clause(s)):")
	assert.Contains(t, stdout, "  K00001+K00002\n")
	assert.Contains(t, stdout, "  K00003\n")
}

func TestCompile_DefinitionToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "rules.json")
	_, stderr, code := execute(t, "compile", "K00001+K00002,K00003", "-o", out)
	require.Equal(t, ExitSuccess, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, `[["K00001","K00002"],["K00003"]]`+"\n", string(data))
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"nested module", []string{"compile", "K00001 M00002"}, ErrCodeMalformedDefinition},
		{"unbalanced", []string{"compile", "(K00001 K00002"}, ErrCodeMalformedDefinition},
		{"no input", []string{"compile"}, ErrCodeGeneric},
		{"missing modules file", []string{"compile", "--modules", "does-not-exist.json"}, ErrCodeInputLoad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, code := execute(t, append([]string{"--format", "json"}, tt.args...)...)
			assert.Equal(t, ExitCommandError, code)
			resp := decodeResponse(t, stdout, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCompile_Modules(t *testing.T) {
	fx := newFixture(t)
	modules := filepath.Join(fx.Dir, "modules.json")

	stdout, stderr, code := execute(t, "--format", "json", "compile", "--modules", modules)
	require.Equal(t, ExitSuccess, code, stderr)

	var data struct {
		Rules map[string]any `json:"rules"`
	}
	resp := decodeResponse(t, stdout, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, data.Rules, "M00001")
	assert.Contains(t, data.Rules, "M00002")

	stdout, _, code = execute(t, "--format", "json", "compile", "--modules", modules, "--module", "M09999")
	assert.Equal(t, ExitCommandError, code)
	resp = decodeResponse(t, stdout, nil)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestLink(t *testing.T) {
	fx := newFixture(t)
	out := filepath.Join(fx.Dir, "out", "linked.json")

	stdout, stderr, code := execute(t, "link", "--modules", filepath.Join(fx.Dir, "modules.json"), "-o", out)
	require.Equal(t, ExitSuccess, code, stderr)

	assert.Contains(t, stdout, "Linked 2 module(s)")
	assert.FileExists(t, out)
}

func TestParseRule(t *testing.T) {
	stdout, stderr, code := execute(t, "parse-rule", "K00003, K00002+K00001")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "K00001+K00002,K00003\n", stdout)

	stdout, _, code = execute(t, "--format", "json", "parse-rule", "K00001+,K00002")
	assert.Equal(t, ExitFailure, code)
	resp := decodeResponse(t, stdout, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMalformedRule, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "clause 1: empty identifier")
}

func TestParseRule_JSON(t *testing.T) {
	stdout, stderr, code := execute(t, "--format", "json", "parse-rule", "K00003,K00001+K00002")
	require.Equal(t, ExitSuccess, code, stderr)

	var data map[string]any
	decodeResponse(t, stdout, &data)
	assert.Equal(t, "K00001+K00002,K00003", data["normalized"])
	assert.Equal(t, []any{[]any{"K00001", "K00002"}, []any{"K00003"}}, data["clauses"])
}

func TestValidate(t *testing.T) {
	fx := newFixture(t)

	stdout, stderr, code := execute(t, "validate", fx.Pipeline)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "is valid")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, os.Remove(filepath.Join(fx.Dir, "reactions.json")))
	writeFile(t, fx.Pipeline, fixturePipeline+"workers: -1\n")

	stdout, _, code := execute(t, "--format", "json", "validate", fx.Pipeline)
	assert.Equal(t, ExitFailure, code)

	var data ValidationResult
	resp := decodeResponse(t, stdout, &data)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, data.Valid)
	fields := make([]string, len(data.Errors))
	for i, e := range data.Errors {
		fields[i] = e.Field
	}
	assert.ElementsMatch(t, []string{"reactions", "workers"}, fields)
}

func TestValidate_MissingFile(t *testing.T) {
	stdout, _, code := execute(t, "--format", "json", "validate", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Equal(t, ExitCommandError, code)
	resp := decodeResponse(t, stdout, nil)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestMap_PendingExitsOne(t *testing.T) {
	fx := newFixture(t)

	stdout, stderr, code := execute(t, "map", "-c", fx.Pipeline)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "Mapped 3 reaction(s), 1 pending")
	assert.Contains(t, stdout, "AMBIGUOUS_TIER_UNRESOLVED=1")
	assert.Contains(t, stderr, "1 reaction(s) wait for curation")

	mapping, err := os.ReadFile(filepath.Join(fx.Dir, "out", "mapping.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"R00001":[["K00001"]],"R00002":[["K00005"]],"R00003":[["K00003","K00004"]]}`, string(mapping))
	assert.True(t, strings.HasSuffix(string(mapping), "\n"))

	for _, name := range []string{"by_tier.json", "by_tier.csv", "runs.db", "metrics.prom", "pending/pending_3_module_complex_ambiguous.csv"} {
		assert.FileExists(t, filepath.Join(fx.Dir, "out", name))
	}
}

func TestMap_AllowPendingJSON(t *testing.T) {
	fx := newFixture(t)

	stdout, stderr, code := execute(t, "--format", "json", "map", "-c", fx.Pipeline, "--allow-pending", "--run-id", "run-1")
	require.Equal(t, ExitSuccess, code, stderr)

	var data MapResult
	resp := decodeResponse(t, stdout, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", data.RunID)
	assert.Equal(t, 3, data.Reactions)
	assert.Equal(t, 1, data.Pending)
	assert.Len(t, data.Digest, 64)
	assert.Len(t, data.Written, 6)

	metrics, err := os.ReadFile(filepath.Join(fx.Dir, "out", "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "rxnmap_canonical_reactions 3")
	assert.Contains(t, string(metrics), `rxnmap_pending_reactions{tier="module_complex_ambiguous"} 1`)
}

func TestMap_DigestStable(t *testing.T) {
	fx := newFixture(t)
	var digests []string
	for range 2 {
		stdout, stderr, code := execute(t, "--format", "json", "map", "-c", fx.Pipeline, "--allow-pending")
		require.Equal(t, ExitSuccess, code, stderr)
		var data MapResult
		decodeResponse(t, stdout, &data)
		digests = append(digests, data.Digest)
	}
	assert.Equal(t, digests[0], digests[1])
}

func TestMap_InputErrors(t *testing.T) {
	fx := newFixture(t)
	writeFile(t, filepath.Join(fx.Dir, "reactions.json"), "{not json")

	stdout, _, code := execute(t, "--format", "json", "map", "-c", fx.Pipeline)
	assert.Equal(t, ExitCommandError, code)
	resp := decodeResponse(t, stdout, nil)
	assert.Equal(t, ErrCodeInputLoad, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "cannot load reactions")
}

func TestMap_RequiresConfig(t *testing.T) {
	_, stderr, code := execute(t, "map")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, `"config" not set`)
}

func TestPending(t *testing.T) {
	fx := newFixture(t)
	dir := filepath.Join(t.TempDir(), "sheets")

	stdout, stderr, code := execute(t, "--format", "json", "pending", "-c", fx.Pipeline, "--dir", dir)
	require.Equal(t, ExitSuccess, code, stderr)

	var data PendingResult
	decodeResponse(t, stdout, &data)
	require.Len(t, data.Rows, 1)
	row := data.Rows[0]
	assert.Equal(t, "R00004", string(row.Reaction))
	assert.Equal(t, "M00002", string(row.Module))
	assert.Equal(t, "module_complex_ambiguous", string(row.Tier))
	assert.Equal(t, []string{"subunit"}, row.Keywords)
	assert.Equal(t, []string{filepath.Join(dir, "pending_3_module_complex_ambiguous.csv")}, data.Written)

	sheet, err := os.ReadFile(data.Written[0])
	require.NoError(t, err)
	assert.Contains(t, string(sheet), "R00004")
}

func TestPending_Text(t *testing.T) {
	fx := newFixture(t)

	stdout, stderr, code := execute(t, "pending", "-c", fx.Pipeline)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "1 pending row(s), 1 reaction(s)")
	assert.Contains(t, stdout, "  R00004 [M00002]: ")
	assert.FileExists(t, filepath.Join(fx.Dir, "out", "pending", "pending_3_module_complex_ambiguous.csv"))
}

func TestStats(t *testing.T) {
	fx := newFixture(t)

	stdout, stderr, code := execute(t, "stats", "-c", fx.Pipeline)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "Canonical: 3 reaction(s), 1 pending")
	assert.Contains(t, stdout, "clauses per reaction: 1x1")
	assert.Contains(t, stdout, "AMBIGUOUS_TIER_UNRESOLVED: 1")
	assert.NotContains(t, stdout, "Overlaps:")
}

func TestRuns(t *testing.T) {
	fx := newFixture(t)
	db := filepath.Join(fx.Dir, "out", "runs.db")

	for _, id := range []string{"run-1", "run-2"} {
		_, stderr, code := execute(t, "map", "-c", fx.Pipeline, "--allow-pending", "--run-id", id)
		require.Equal(t, ExitSuccess, code, stderr)
	}

	stdout, stderr, code := execute(t, "runs", "--db", db)
	require.Equal(t, ExitSuccess, code, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "run-1")
	assert.Contains(t, lines[2], "run-2")

	stdout, stderr, code = execute(t, "--format", "json", "runs", "--db", db, "--run", "latest")
	require.Equal(t, ExitSuccess, code, stderr)
	var detail map[string]any
	decodeResponse(t, stdout, &detail)
	assert.Equal(t, "run-2", detail["id"])
	assert.Equal(t, float64(3), detail["reactions"])
	assert.Equal(t, map[string]any{"module_complex_ambiguous": float64(1)}, detail["pending_tiers"])
	assert.Equal(t, map[string]any{
		"R00001": []any{[]any{"K00001"}},
		"R00002": []any{[]any{"K00005"}},
		"R00003": []any{[]any{"K00003", "K00004"}},
	}, detail["mapping"])
}

func TestRuns_NotFound(t *testing.T) {
	stdout, _, code := execute(t, "--format", "json", "runs", "--db", filepath.Join(t.TempDir(), "none.db"))
	assert.Equal(t, ExitCommandError, code)
	resp := decodeResponse(t, stdout, nil)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)

	fx := newFixture(t)
	_, stderr, code := execute(t, "map", "-c", fx.Pipeline, "--allow-pending")
	require.Equal(t, ExitSuccess, code, stderr)

	stdout, _, code = execute(t, "--format", "json", "runs", "--db", filepath.Join(fx.Dir, "out", "runs.db"), "--run", "missing")
	assert.Equal(t, ExitCommandError, code)
	resp = decodeResponse(t, stdout, nil)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}
