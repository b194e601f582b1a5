// Package config loads pipeline files.
//
// A pipeline names the input snapshots, the curated sheets and the outputs of
// a mapping run. It is written in YAML, or in CUE validated against the
// embedded #Pipeline schema. Both decode into Pipeline.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rxnmap/internal/curation"
	"github.com/roach88/rxnmap/internal/ir"
)

//go:embed pipeline.cue
var schemaCUE string

// Curation names one curated sheet.
type Curation struct {
	Tier           string   `yaml:"tier" json:"tier"`
	Path           string   `yaml:"path" json:"path"`
	ReactionColumn string   `yaml:"reaction_column,omitempty" json:"reaction_column,omitempty"`
	RuleColumn     string   `yaml:"rule_column,omitempty" json:"rule_column,omitempty"`
	Skip           []string `yaml:"skip,omitempty" json:"skip,omitempty"`
	SkipColumn     string   `yaml:"skip_column,omitempty" json:"skip_column,omitempty"`
}

// Output names the files a run writes. Empty paths are not written.
type Output struct {
	Mapping    string `yaml:"mapping,omitempty" json:"mapping,omitempty"`
	ByTier     string `yaml:"by_tier,omitempty" json:"by_tier,omitempty"`
	CSV        string `yaml:"csv,omitempty" json:"csv,omitempty"`
	PendingDir string `yaml:"pending_dir,omitempty" json:"pending_dir,omitempty"`
	DB         string `yaml:"db,omitempty" json:"db,omitempty"`
	Metrics    string `yaml:"metrics,omitempty" json:"metrics,omitempty"`
}

// Pipeline is a complete run configuration.
type Pipeline struct {
	Modules      string     `yaml:"modules" json:"modules"`
	AddedModules string     `yaml:"added_modules,omitempty" json:"added_modules,omitempty"`
	Reactions    string     `yaml:"reactions" json:"reactions"`
	Links        string     `yaml:"links" json:"links"`
	Curation     []Curation `yaml:"curation,omitempty" json:"curation,omitempty"`
	Output       Output     `yaml:"output,omitempty" json:"output,omitempty"`
	Workers      int        `yaml:"workers,omitempty" json:"workers,omitempty"`

	// Path is the file the pipeline was loaded from.
	Path string `yaml:"-" json:"-"`
}

// LoadError reports a pipeline file that cannot be read or decoded.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ValidationError is one problem found by Validate.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a pipeline file. Files ending in .cue are CUE, anything else is
// YAML. Relative paths in the file are resolved against its directory.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "cannot read", Err: err}
	}

	var p *Pipeline
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		p, err = decodeCUE(path, data)
	} else {
		p, err = decodeYAML(bytes.NewReader(data))
	}
	if err != nil {
		return nil, &LoadError{Path: path, Message: "invalid pipeline", Err: err}
	}
	p.Path = path
	p.resolve(filepath.Dir(path))
	return p, nil
}

// decodeYAML rejects unknown fields.
func decodeYAML(r io.Reader) (*Pipeline, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var p Pipeline
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty pipeline file")
		}
		return nil, err
	}
	return &p, nil
}

func decodeCUE(path string, data []byte) (*Pipeline, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("pipeline.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, err
	}
	if nested := value.LookupPath(cue.ParsePath("pipeline")); nested.Exists() {
		value = nested
	}

	unified := schema.LookupPath(cue.ParsePath("#Pipeline")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}
	var p Pipeline
	if err := unified.Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Pipeline) resolve(dir string) {
	abs := func(path *string) {
		if *path != "" && !filepath.IsAbs(*path) {
			*path = filepath.Join(dir, *path)
		}
	}
	abs(&p.Modules)
	abs(&p.AddedModules)
	abs(&p.Reactions)
	abs(&p.Links)
	for i := range p.Curation {
		abs(&p.Curation[i].Path)
	}
	abs(&p.Output.Mapping)
	abs(&p.Output.ByTier)
	abs(&p.Output.CSV)
	abs(&p.Output.PendingDir)
	abs(&p.Output.DB)
	abs(&p.Output.Metrics)
}

// Validate checks the pipeline and returns every problem found.
// Input paths must exist; output paths are created on write.
func (p *Pipeline) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
	exists := func(field, path string, wantDir bool) {
		if path == "" {
			add(field, "is required")
			return
		}
		info, err := os.Stat(path)
		switch {
		case err != nil:
			add(field, "%s does not exist", path)
		case wantDir && !info.IsDir():
			add(field, "%s is not a directory", path)
		case !wantDir && info.IsDir():
			add(field, "%s is a directory", path)
		}
	}

	exists("modules", p.Modules, false)
	if p.AddedModules != "" {
		exists("added_modules", p.AddedModules, false)
	}
	exists("reactions", p.Reactions, false)
	exists("links", p.Links, true)

	for i, c := range p.Curation {
		field := fmt.Sprintf("curation[%d]", i)
		tier, err := ir.ParseTier(c.Tier)
		switch {
		case err != nil:
			add(field+".tier", "%v", err)
		case !tier.Curated():
			add(field+".tier", "tier %s does not accept curated rules", tier)
		}
		exists(field+".path", c.Path, false)
	}
	if p.Workers < 0 {
		add("workers", "must not be negative, got %d", p.Workers)
	}
	return errs
}

// Sheets converts the curation entries. Call after Validate.
func (p *Pipeline) Sheets() ([]curation.Sheet, error) {
	sheets := make([]curation.Sheet, 0, len(p.Curation))
	for _, c := range p.Curation {
		tier, err := ir.ParseTier(c.Tier)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, curation.Sheet{
			Tier:           tier,
			Path:           c.Path,
			ReactionColumn: c.ReactionColumn,
			RuleColumn:     c.RuleColumn,
			Skip:           c.Skip,
			SkipColumn:     c.SkipColumn,
		})
	}
	return sheets, nil
}
