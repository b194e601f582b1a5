package curation

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/rxnmap/internal/aggregate"
	"github.com/roach88/rxnmap/internal/ir"
)

// PendingHeader returns the columns written by WritePending. The curator
// fills in the last column.
func PendingHeader() []string {
	header := []string{DefaultReactionColumn, "Module", "url", "KOs", "ECs"}
	header = append(header, aggregate.CurationKeywords...)
	return append(header, "Suggested", DefaultRuleColumn)
}

// WritePending writes the rows of tier as a curation sheet, sorted by
// reaction then module. Rows of other tiers are ignored.
func WritePending(w io.Writer, tier ir.Tier, rows []aggregate.PendingReaction) error {
	var selected []aggregate.PendingReaction
	for _, p := range rows {
		if p.Tier == tier {
			selected = append(selected, p)
		}
	}
	slices.SortFunc(selected, func(a, b aggregate.PendingReaction) int {
		return cmp.Or(cmp.Compare(a.Reaction, b.Reaction), cmp.Compare(a.Module, b.Module))
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(PendingHeader()); err != nil {
		return err
	}
	for _, p := range selected {
		record := []string{
			string(p.Reaction),
			string(p.Module),
			p.URL(),
			joinIDs(p.Orthologs),
			joinIDs(p.Enzymes),
		}
		for _, kw := range aggregate.CurationKeywords {
			record = append(record, strconv.FormatBool(slices.Contains(p.Keywords, kw)))
		}
		record = append(record, p.Suggested.String(), "")
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PendingFileName is the sheet name used for tier by WritePendingDir.
func PendingFileName(tier ir.Tier) string {
	return fmt.Sprintf("pending_%s_%s.csv", tier.Label(), tier)
}

// WritePendingDir writes one sheet per curated tier that has pending rows
// and returns the paths written.
func WritePendingDir(dir string, rows []aggregate.PendingReaction) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for _, tier := range ir.AllTiers {
		if !slices.ContainsFunc(rows, func(p aggregate.PendingReaction) bool { return p.Tier == tier }) {
			continue
		}
		path := filepath.Join(dir, PendingFileName(tier))
		if err := writePendingFile(path, tier, rows); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writePendingFile(path string, tier ir.Tier, rows []aggregate.PendingReaction) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WritePending(f, tier, rows)
}

func joinIDs(ids []ir.Identifier) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
