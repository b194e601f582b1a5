package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixture is a pipeline directory: two modules, four reactions and a
// tier-3 sheet curating R00003. R00004 stays pending.
type fixture struct {
	Dir      string
	Pipeline string
}

const fixtureModules = `{
  "M00001": {"definition": "K00001 K00002", "orthologs": {"K00001": "hexokinase [EC:2.7.1.1]"}},
  "M00002": {"definition": "K00003+K00004 K00005", "orthologs": {"K00003": "succinate dehydrogenase subunit alpha"}}
}`

const fixtureReactions = `{
  "R00001": {"comment": "", "orthologs": {"K00001": "hexokinase [EC:2.7.1.1]"}},
  "R00002": {"comment": "", "orthologs": {"K00005": "malate dehydrogenase"}},
  "R00003": {"comment": "", "orthologs": {"K00003": "succinate dehydrogenase subunit alpha", "K00004": "succinate dehydrogenase subunit beta"}},
  "R00004": {"comment": "", "orthologs": {"K00003": "succinate dehydrogenase subunit alpha", "K00004": "succinate dehydrogenase subunit beta"}}
}`

var fixtureLinks = map[string]string{
	"md_to_ko.json": `{"M00001": ["K00001", "K00002"], "M00002": ["K00003", "K00004", "K00005"]}`,
	"md_to_rn.json": `{"M00001": ["R00001"], "M00002": ["R00002", "R00003", "R00004"]}`,
	"rn_to_ko.json": `{"R00001": ["K00001", "K00009"], "R00002": ["K00005"], "R00003": ["K00003", "K00004"], "R00004": ["K00003", "K00004"]}`,
}

const fixtureSheet = "Reaction,Rule\nR00003,K00003+K00004\nR00004,NA\n"

const fixturePipeline = `modules: modules.json
reactions: reactions.json
links: links
curation:
  - tier: "3"
    path: curated/tier3.csv
    skip: [NA]
output:
  mapping: out/mapping.json
  by_tier: out/by_tier.json
  csv: out/by_tier.csv
  pending_dir: out/pending
  db: out/runs.db
  metrics: out/metrics.prom
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "modules.json"), fixtureModules)
	writeFile(t, filepath.Join(dir, "reactions.json"), fixtureReactions)
	for name, content := range fixtureLinks {
		writeFile(t, filepath.Join(dir, "links", name), content)
	}
	writeFile(t, filepath.Join(dir, "curated", "tier3.csv"), fixtureSheet)
	writeFile(t, filepath.Join(dir, "pipeline.yaml"), fixturePipeline)
	return fixture{Dir: dir, Pipeline: filepath.Join(dir, "pipeline.yaml")}
}

// execute runs the root command and returns stdout, stderr and the exit code.
func execute(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := Execute(args, stdout, stderr)
	return stdout.String(), stderr.String(), code
}

// decodeResponse decodes a JSON envelope and its data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}
