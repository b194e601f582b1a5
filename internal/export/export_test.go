package export

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxnmap/internal/ir"
	"github.com/roach88/rxnmap/internal/testutil"
)

func fixtureTiers() map[ir.Tier]ir.RuleMap {
	return map[ir.Tier]ir.RuleMap{
		ir.TierModuleSimple:        testutil.Rules(map[string]string{"R00001": "K00001"}),
		ir.TierModuleComplexSingle: testutil.Rules(map[string]string{"R00010": "K00012,K00011+K00010"}),
		ir.TierSpontaneous:         testutil.Rules(map[string]string{"R00060": "spontaneous"}),
	}
}

func fixtureMapping() *ir.CanonicalMapping {
	m := ir.NewCanonicalMapping()
	for _, rules := range fixtureTiers() {
		for r, rs := range rules {
			m.Merge(r, rs)
		}
	}
	return m
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestWriteMapping(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMapping(&buf, fixtureMapping()))
	golden(t).Assert(t, "mapping", buf.Bytes())

	var decoded ir.RuleMap
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.True(t, decoded.Equal(fixtureMapping().Rules()))
}

func TestWriteByTier(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteByTier(&buf, fixtureTiers()))
	golden(t).Assert(t, "by_tier", buf.Bytes())
}

func TestWriteByTierCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteByTierCSV(&buf, fixtureTiers()))
	golden(t).Assert(t, "by_tier_csv", buf.Bytes())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.json")
	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		return WriteMapping(w, fixtureMapping())
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"R00060":[["spontaneous"]]`)

	nested := filepath.Join(t.TempDir(), "out", "by_tier", "x.json")
	require.NoError(t, WriteFile(nested, func(io.Writer) error { return nil }))
	assert.FileExists(t, nested)

	err = WriteFile(filepath.Join(path, "x.json"), func(io.Writer) error { return nil })
	assert.Error(t, err, "parent is a file")
}
