package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rxnmap/internal/aggregate"
	"github.com/roach88/rxnmap/internal/ir"
)

// Snapshot renders a report as canonical JSON. Tiers without rules are
// omitted; everything else is sorted, so equal reports give equal bytes.
func Snapshot(name string, report *aggregate.Report) ([]byte, error) {
	tiers := make(ir.IRObject)
	for _, tier := range ir.AllTiers {
		if rules := report.Tiers[tier]; len(rules) > 0 {
			tiers[string(tier)] = rules.IRValue()
		}
	}

	pending := make(ir.IRArray, len(report.Pending))
	for i, p := range report.Pending {
		row := ir.IRObject{
			"tier":      ir.IRString(p.Tier),
			"reaction":  ir.IRString(p.Reaction),
			"orthologs": idArray(p.Orthologs),
			"reason":    ir.IRString(p.Reason),
		}
		if p.Module != "" {
			row["module"] = ir.IRString(p.Module)
		}
		if len(p.Enzymes) > 0 {
			row["enzymes"] = idArray(p.Enzymes)
		}
		if len(p.Keywords) > 0 {
			keywords := make(ir.IRArray, len(p.Keywords))
			for j, k := range p.Keywords {
				keywords[j] = ir.IRString(k)
			}
			row["keywords"] = keywords
		}
		if !p.Suggested.IsEmpty() {
			row["suggested"] = p.Suggested.IRValue()
		}
		pending[i] = row
	}

	issues := make(ir.IRArray, len(report.Issues))
	for i, issue := range report.Issues {
		obj := ir.IRObject{
			"kind":    ir.IRString(issue.Kind),
			"subject": ir.IRString(issue.Subject),
			"message": ir.IRString(issue.Message),
		}
		if issue.Tier != "" {
			obj["tier"] = ir.IRString(issue.Tier)
		}
		if issue.Detail != "" {
			obj["detail"] = ir.IRString(issue.Detail)
		}
		issues[i] = obj
	}

	data, err := ir.MarshalCanonical(ir.IRObject{
		"scenario": ir.IRString(name),
		"mapping":  report.Mapping.Rules().IRValue(),
		"tiers":    tiers,
		"pending":  pending,
		"issues":   issues,
	})
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func idArray(ids []ir.Identifier) ir.IRArray {
	arr := make(ir.IRArray, len(ids))
	for i, id := range ids {
		arr[i] = ir.IRString(id)
	}
	return arr
}

// RunWithGolden runs a scenario and compares its report snapshot with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result.Report)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
