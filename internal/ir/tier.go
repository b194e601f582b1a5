package ir

import "fmt"

// Tier names one resolution strategy of the aggregation pipeline.
// Tiers merge in the order of AllTiers; merging is union, so the order only
// fixes reporting and persistence order.
type Tier string

const (
	// TierModuleSimple holds reactions in modules without "+", "-" or ",".
	TierModuleSimple Tier = "module_simple"

	// TierModuleComplexSingle holds reactions in complex modules with one direct link.
	TierModuleComplexSingle Tier = "module_complex_single"

	// TierModuleAddedSingle holds reactions only linked to modules added after the
	// entry snapshot, with one direct link and a re-verified simple definition.
	TierModuleAddedSingle Tier = "module_added_single"

	// TierModuleComplexAmbiguous holds reactions in complex modules with several
	// direct links. Resolved only by curation.
	TierModuleComplexAmbiguous Tier = "module_complex_ambiguous"

	// TierOrthologSingle holds module-less reactions with one direct ortholog link.
	TierOrthologSingle Tier = "ortholog_single"

	// TierOrthologAmbiguous holds module-less reactions with several direct links.
	TierOrthologAmbiguous Tier = "ortholog_ambiguous"

	// TierEnzymeSingle holds reactions resolved through an enzyme linked to one ortholog.
	TierEnzymeSingle Tier = "enzyme_single"

	// TierEnzymeAmbiguous holds reactions whose enzymes link to several orthologs.
	TierEnzymeAmbiguous Tier = "enzyme_ambiguous"

	// TierSpontaneous holds reactions whose comment marks them non-enzymatic.
	TierSpontaneous Tier = "spontaneous"
)

// AllTiers lists every tier in merge order.
var AllTiers = []Tier{
	TierModuleSimple,
	TierModuleComplexSingle,
	TierModuleAddedSingle,
	TierModuleComplexAmbiguous,
	TierOrthologSingle,
	TierOrthologAmbiguous,
	TierEnzymeSingle,
	TierEnzymeAmbiguous,
	TierSpontaneous,
}

var tierLabels = map[Tier]string{
	TierModuleSimple:           "1",
	TierModuleComplexSingle:    "2",
	TierModuleAddedSingle:      "2b",
	TierModuleComplexAmbiguous: "3",
	TierOrthologSingle:         "4a",
	TierOrthologAmbiguous:      "4b",
	TierEnzymeSingle:           "5a",
	TierEnzymeAmbiguous:        "5b",
	TierSpontaneous:            "6",
}

// Label returns the short outline number of the tier ("2b", "4a", ...).
func (t Tier) Label() string {
	return tierLabels[t]
}

// Valid reports whether t is one of AllTiers.
func (t Tier) Valid() bool {
	_, ok := tierLabels[t]
	return ok
}

// Curated reports whether the tier accepts externally curated overrides.
func (t Tier) Curated() bool {
	switch t {
	case TierModuleComplexAmbiguous, TierOrthologAmbiguous, TierEnzymeSingle, TierEnzymeAmbiguous:
		return true
	default:
		return false
	}
}

// Index returns the position of t in AllTiers, or -1.
func (t Tier) Index() int {
	for i, other := range AllTiers {
		if other == t {
			return i
		}
	}
	return -1
}

// ParseTier accepts a tier name or its outline label.
func ParseTier(s string) (Tier, error) {
	if t := Tier(s); t.Valid() {
		return t, nil
	}
	for t, label := range tierLabels {
		if label == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tier %q", s)
}
