package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxnmap/internal/ir"
)

// workspace creates the input files a pipeline refers to.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"modules.json", "reactions.json", "curated_3.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "links"), 0o755))
	return dir
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlPipeline = `
modules: modules.json
reactions: reactions.json
links: links
curation:
  - tier: "3"
    path: curated_3.csv
    skip: [NA]
output:
  mapping: out/mapping.json
  db: /var/lib/rxnmap/runs.db
workers: 4
`

func TestLoad_YAML(t *testing.T) {
	dir := workspace(t)
	path := write(t, dir, "pipeline.yaml", yamlPipeline)

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, p.Path)
	assert.Equal(t, filepath.Join(dir, "modules.json"), p.Modules)
	assert.Equal(t, filepath.Join(dir, "links"), p.Links)
	assert.Equal(t, filepath.Join(dir, "out", "mapping.json"), p.Output.Mapping)
	assert.Equal(t, "/var/lib/rxnmap/runs.db", p.Output.DB, "absolute paths are kept")
	assert.Empty(t, p.AddedModules)
	assert.Equal(t, 4, p.Workers)
	assert.Empty(t, p.Validate())

	sheets, err := p.Sheets()
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, ir.TierModuleComplexAmbiguous, sheets[0].Tier)
	assert.Equal(t, []string{"NA"}, sheets[0].Skip)
}

func TestLoad_YAMLUnknownField(t *testing.T) {
	dir := workspace(t)
	path := write(t, dir, "pipeline.yaml", yamlPipeline+"extra: true\n")

	_, err := Load(path)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "invalid pipeline", le.Message)
}

func TestLoad_CUE(t *testing.T) {
	dir := workspace(t)
	path := write(t, dir, "pipeline.cue", `
pipeline: {
	modules:   "modules.json"
	reactions: "reactions.json"
	links:     "links"
	curation: [{tier: "module_complex_ambiguous", path: "curated_3.csv"}]
	output: pending_dir: "pending"
}
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reactions.json"), p.Reactions)
	assert.Equal(t, filepath.Join(dir, "pending"), p.Output.PendingDir)
	require.Len(t, p.Curation, 1)
	assert.Equal(t, "module_complex_ambiguous", p.Curation[0].Tier)
	assert.Empty(t, p.Validate())
}

func TestLoad_CUESchemaViolations(t *testing.T) {
	tests := map[string]string{
		"missing links":  `modules: "m.json", reactions: "r.json"`,
		"uncurated tier": `modules: "m.json", reactions: "r.json", links: "l", curation: [{tier: "4a", path: "x.csv"}]`,
		"unknown field":  `modules: "m.json", reactions: "r.json", links: "l", colour: "red"`,
		"negative":       `modules: "m.json", reactions: "r.json", links: "l", workers: -1`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			path := write(t, t.TempDir(), "pipeline.cue", src)
			_, err := Load(path)
			var le *LoadError
			require.ErrorAs(t, err, &le)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "cannot read", le.Message)
}

func TestValidate_CollectsAll(t *testing.T) {
	dir := workspace(t)
	p := &Pipeline{
		Modules:   filepath.Join(dir, "missing.json"),
		Reactions: "",
		Links:     filepath.Join(dir, "modules.json"),
		Curation: []Curation{
			{Tier: "ortholog_single", Path: filepath.Join(dir, "curated_3.csv")},
			{Tier: "bogus", Path: ""},
		},
		Workers: -2,
	}

	errs := p.Validate()
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.Equal(t, []string{
		"modules",
		"reactions",
		"links",
		"curation[0].tier",
		"curation[1].tier",
		"curation[1].path",
		"workers",
	}, fields)
	assert.Equal(t, "links: "+filepath.Join(dir, "modules.json")+" is not a directory", errs[2].Error())
}
