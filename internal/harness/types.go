package harness

import "github.com/roach88/rxnmap/internal/aggregate"

// ModuleSpec is one module entry in a scenario. Omitting definition or
// orthologs models a source entry that lacks the field.
type ModuleSpec struct {
	Definition *string           `yaml:"definition,omitempty"`
	Orthologs  map[string]string `yaml:"orthologs,omitempty"`
}

// ReactionSpec is one reaction entry in a scenario.
type ReactionSpec struct {
	Comment   *string           `yaml:"comment,omitempty"`
	Orthologs map[string]string `yaml:"orthologs,omitempty"`
}

// LinkSpec lists links as source -> targets.
//
// reaction_module is derived by inverting module_reaction; entries listed
// explicitly are added on top, which models reactions of modules missing
// from the snapshot.
type LinkSpec struct {
	ModuleOrthology   map[string][]string `yaml:"module_orthology,omitempty"`
	ModuleReaction    map[string][]string `yaml:"module_reaction,omitempty"`
	ReactionOrthology map[string][]string `yaml:"reaction_orthology,omitempty"`
	ReactionModule    map[string][]string `yaml:"reaction_module,omitempty"`
	ReactionEnzyme    map[string][]string `yaml:"reaction_enzyme,omitempty"`
	EnzymeOrthology   map[string][]string `yaml:"enzyme_orthology,omitempty"`
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`

	// Report is the aggregation output the assertions ran against.
	Report *aggregate.Report `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
