// Package export writes run results in their interchange formats.
//
// JSON outputs are RFC 8785 canonical so that identical mappings produce
// byte-identical files. Rule sets are arrays of sorted identifier arrays.
package export

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/roach88/rxnmap/internal/ir"
)

// WriteMapping writes the canonical mapping as {reaction: [[id, ...], ...]}.
func WriteMapping(w io.Writer, m *ir.CanonicalMapping) error {
	data, err := ir.MarshalCanonical(m.Rules().IRValue())
	if err != nil {
		return fmt.Errorf("export mapping: %w", err)
	}
	return writeLine(w, data)
}

// WriteByTier writes {tier: {reaction: [[id, ...], ...]}} for every tier
// in tiers, including empty ones.
func WriteByTier(w io.Writer, tiers map[ir.Tier]ir.RuleMap) error {
	obj := make(ir.IRObject, len(tiers))
	for tier, rules := range tiers {
		obj[string(tier)] = rules.IRValue()
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return fmt.Errorf("export tiers: %w", err)
	}
	return writeLine(w, data)
}

// WriteByTierCSV writes one reaction,origin,rule row per reaction and tier,
// sorted by tier order then reaction. Origin is the tier name and rule is
// the curation text form.
func WriteByTierCSV(w io.Writer, tiers map[ir.Tier]ir.RuleMap) error {
	type row struct {
		tier     ir.Tier
		reaction ir.Identifier
		rule     string
	}
	var rows []row
	for tier, rules := range tiers {
		for r, rs := range rules {
			rows = append(rows, row{tier, r, rs.String()})
		}
	}
	slices.SortFunc(rows, func(a, b row) int {
		return cmp.Or(
			cmp.Compare(a.tier.Index(), b.tier.Index()),
			cmp.Compare(a.tier, b.tier),
			cmp.Compare(a.reaction, b.reaction),
		)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"reaction", "origin", "rule"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{string(r.reaction), string(r.tier), r.rule}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeLine(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile creates path, and any missing parent directory, and runs write
// against it.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
