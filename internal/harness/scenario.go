package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rxnmap/internal/ir"
)

// Scenario is a self-contained aggregation fixture: input snapshots, curated
// rules and the assertions the resulting report must satisfy.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario covers.
	Description string `yaml:"description"`

	Modules      map[string]ModuleSpec   `yaml:"modules,omitempty"`
	AddedModules map[string]ModuleSpec   `yaml:"added_modules,omitempty"`
	Reactions    map[string]ReactionSpec `yaml:"reactions,omitempty"`
	Links        LinkSpec                `yaml:"links"`

	// Curated maps a tier name or label to reaction -> rule in curation
	// format ("K00001+K00002,K00003").
	Curated map[string]map[string]string `yaml:"curated,omitempty"`

	// Assertions validate the report.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion checks one property of the report.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Reaction is the subject of mapping, tier, pending and absent.
	Reaction string `yaml:"reaction,omitempty"`

	// Tier restricts tier, pending and absent.
	Tier string `yaml:"tier,omitempty"`

	// Module restricts pending to one linking module.
	Module string `yaml:"module,omitempty"`

	// Rule is the expected rule set in curation format. Used by mapping and
	// optionally by tier.
	Rule string `yaml:"rule,omitempty"`

	// Kind and Count are used by issue_count.
	Kind  string `yaml:"kind,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Assertion types.
const (
	AssertMapping    = "mapping"
	AssertTier       = "tier"
	AssertPending    = "pending"
	AssertIssueCount = "issue_count"
	AssertAbsent     = "absent"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for tier := range s.Curated {
		t, err := ir.ParseTier(tier)
		if err != nil {
			return fmt.Errorf("curated: %w", err)
		}
		if !t.Curated() {
			return fmt.Errorf("curated: tier %s does not accept curated rules", t)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Tier != "" {
		if _, err := ir.ParseTier(a.Tier); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}

	switch a.Type {
	case AssertMapping:
		if a.Reaction == "" || a.Rule == "" {
			return fmt.Errorf("assertions[%d]: reaction and rule are required for mapping", index)
		}
	case AssertTier:
		if a.Reaction == "" || a.Tier == "" {
			return fmt.Errorf("assertions[%d]: reaction and tier are required for tier", index)
		}
	case AssertPending, AssertAbsent:
		if a.Reaction == "" {
			return fmt.Errorf("assertions[%d]: reaction is required for %s", index, a.Type)
		}
	case AssertIssueCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for issue_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for issue_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
