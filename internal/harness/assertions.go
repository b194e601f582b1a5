package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/rxnmap/internal/aggregate"
	"github.com/roach88/rxnmap/internal/curation"
	"github.com/roach88/rxnmap/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // assertion type
	Expected string // human-readable expected outcome
	Actual   string // human-readable actual outcome
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

func checkAssertion(report *aggregate.Report, a Assertion) error {
	switch a.Type {
	case AssertMapping:
		return assertMapping(report, a)
	case AssertTier:
		return assertTier(report, a)
	case AssertPending:
		return assertPending(report, a)
	case AssertIssueCount:
		return assertIssueCount(report, a)
	case AssertAbsent:
		return assertAbsent(report, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func parseTier(s string) ir.Tier {
	t, _ := ir.ParseTier(s) // checked by validateAssertion
	return t
}

// sameRule compares a rule set with a rule in curation format.
func sameRule(rs ir.RuleSet, rule string) (bool, error) {
	want, err := curation.ParseRule(rule)
	if err != nil {
		return false, err
	}
	return rs.Equal(want), nil
}

// assertMapping checks the canonical rule set of a reaction.
func assertMapping(report *aggregate.Report, a Assertion) error {
	got, ok := report.Mapping.Get(ir.Identifier(a.Reaction))
	if !ok {
		return &AssertionError{
			Type:     AssertMapping,
			Expected: fmt.Sprintf("%s -> %s", a.Reaction, a.Rule),
			Actual:   "reaction not in mapping",
		}
	}
	same, err := sameRule(got, a.Rule)
	if err != nil {
		return err
	}
	if !same {
		return &AssertionError{
			Type:     AssertMapping,
			Expected: fmt.Sprintf("%s -> %s", a.Reaction, a.Rule),
			Actual:   fmt.Sprintf("%s -> %s", a.Reaction, got),
		}
	}
	return nil
}

// assertTier checks that a tier resolved the reaction, with Rule when given.
func assertTier(report *aggregate.Report, a Assertion) error {
	tier := parseTier(a.Tier)
	got, ok := report.Tiers[tier][ir.Identifier(a.Reaction)]
	if !ok {
		return &AssertionError{
			Type:     AssertTier,
			Expected: fmt.Sprintf("%s resolved by tier %s", a.Reaction, tier),
			Actual:   fmt.Sprintf("resolved by %v", tiersOf(report, ir.Identifier(a.Reaction))),
		}
	}
	if a.Rule == "" {
		return nil
	}
	same, err := sameRule(got, a.Rule)
	if err != nil {
		return err
	}
	if !same {
		return &AssertionError{
			Type:     AssertTier,
			Expected: fmt.Sprintf("%s [%s] -> %s", a.Reaction, tier, a.Rule),
			Actual:   fmt.Sprintf("%s [%s] -> %s", a.Reaction, tier, got),
		}
	}
	return nil
}

// assertPending checks that the reaction waits for curation, optionally in
// one tier and for one module.
func assertPending(report *aggregate.Report, a Assertion) error {
	for _, p := range report.Pending {
		if string(p.Reaction) != a.Reaction {
			continue
		}
		if a.Tier != "" && p.Tier != parseTier(a.Tier) {
			continue
		}
		if a.Module != "" && string(p.Module) != a.Module {
			continue
		}
		return nil
	}

	expected := a.Reaction + " pending"
	if a.Tier != "" {
		expected += " in " + string(parseTier(a.Tier))
	}
	if a.Module != "" {
		expected += " for " + a.Module
	}
	var actual []string
	for _, p := range report.Pending {
		if string(p.Reaction) == a.Reaction {
			actual = append(actual, fmt.Sprintf("%s/%s", p.Tier, p.Module))
		}
	}
	return &AssertionError{
		Type:     AssertPending,
		Expected: expected,
		Actual:   fmt.Sprintf("pending rows %v", actual),
	}
}

func assertIssueCount(report *aggregate.Report, a Assertion) error {
	count := ir.CountIssues(report.Issues)[ir.IssueKind(a.Kind)]
	if count != a.Count {
		return &AssertionError{
			Type:     AssertIssueCount,
			Expected: fmt.Sprintf("%d issues of kind %s", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d issues", count),
		}
	}
	return nil
}

// assertAbsent checks that the reaction is missing from one tier, or from
// the canonical mapping when no tier is given.
func assertAbsent(report *aggregate.Report, a Assertion) error {
	r := ir.Identifier(a.Reaction)
	if a.Tier != "" {
		tier := parseTier(a.Tier)
		if got, ok := report.Tiers[tier][r]; ok {
			return &AssertionError{
				Type:     AssertAbsent,
				Expected: fmt.Sprintf("%s not in tier %s", a.Reaction, tier),
				Actual:   fmt.Sprintf("%s [%s] -> %s", a.Reaction, tier, got),
			}
		}
		return nil
	}
	if got, ok := report.Mapping.Get(r); ok {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("%s not in mapping", a.Reaction),
			Actual:   fmt.Sprintf("%s -> %s", a.Reaction, got),
		}
	}
	return nil
}

func tiersOf(report *aggregate.Report, r ir.Identifier) []ir.Tier {
	var out []ir.Tier
	for _, tier := range ir.AllTiers {
		if _, ok := report.Tiers[tier][r]; ok {
			out = append(out, tier)
		}
	}
	return out
}
