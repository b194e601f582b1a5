package kegg

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/rxnmap/internal/ir"
)

// Database names a KEGG database.
type Database string

const (
	Pathway   Database = "pathway"
	Brite     Database = "brite"
	Module    Database = "module"
	Orthology Database = "orthology"
	Genome    Database = "genome"
	Compound  Database = "compound"
	Glycan    Database = "glycan"
	Reaction  Database = "reaction"
	RClass    Database = "rclass"
	Enzyme    Database = "enzyme"
	Network   Database = "network"
	Variant   Database = "variant"
	Disease   Database = "disease"
	Drug      Database = "drug"
	DGroup    Database = "dgroup"
)

var abbreviations = map[Database]string{
	Pathway:   "path",
	Brite:     "br",
	Module:    "md",
	Orthology: "ko",
	Genome:    "gn",
	Compound:  "cpd",
	Glycan:    "gl",
	Reaction:  "rn",
	RClass:    "rc",
	Enzyme:    "ec",
	Network:   "ne",
	Variant:   "hsa_var",
	Disease:   "ds",
	Drug:      "dr",
	DGroup:    "dg",
}

// Abbrev returns the id prefix KEGG uses for db ("md" for module).
func (db Database) Abbrev() string {
	return abbreviations[db]
}

// IDSet is a set of identifiers.
type IDSet map[ir.Identifier]struct{}

// Sorted returns the members in order.
func (s IDSet) Sorted() []ir.Identifier {
	return slices.Sorted(maps.Keys(s))
}

// LinkTable maps a source id to the set of linked target ids.
type LinkTable map[ir.Identifier]IDSet

// Add links src to dst.
func (t LinkTable) Add(src, dst ir.Identifier) {
	set, ok := t[src]
	if !ok {
		set = make(IDSet)
		t[src] = set
	}
	set[dst] = struct{}{}
}

// Has reports whether src has at least one link.
func (t LinkTable) Has(src ir.Identifier) bool {
	return len(t[src]) > 0
}

// Count returns the number of distinct targets of src.
func (t LinkTable) Count(src ir.Identifier) int {
	return len(t[src])
}

// Targets returns the targets of src in order.
func (t LinkTable) Targets(src ir.Identifier) []ir.Identifier {
	return t[src].Sorted()
}

// Keys returns every source id in order.
func (t LinkTable) Keys() []ir.Identifier {
	return slices.Sorted(maps.Keys(t))
}

// Invert returns the table with every link reversed.
func (t LinkTable) Invert() LinkTable {
	out := make(LinkTable)
	for src, targets := range t {
		for dst := range targets {
			out.Add(dst, src)
		}
	}
	return out
}

// Links bundles every link table the aggregator consumes.
type Links struct {
	ModuleOrthology   LinkTable
	ModuleReaction    LinkTable
	ReactionOrthology LinkTable
	ReactionModule    LinkTable
	ReactionEnzyme    LinkTable // optional
	EnzymeOrthology   LinkTable // optional
}

type linkSpec struct {
	src, dst Database
	required bool
	field    func(*Links) *LinkTable
}

var linkSpecs = []linkSpec{
	{Module, Orthology, true, func(l *Links) *LinkTable { return &l.ModuleOrthology }},
	{Module, Reaction, true, func(l *Links) *LinkTable { return &l.ModuleReaction }},
	{Reaction, Orthology, true, func(l *Links) *LinkTable { return &l.ReactionOrthology }},
	{Reaction, Module, true, func(l *Links) *LinkTable { return &l.ReactionModule }},
	{Reaction, Enzyme, false, func(l *Links) *LinkTable { return &l.ReactionEnzyme }},
	{Enzyme, Orthology, false, func(l *Links) *LinkTable { return &l.EnzymeOrthology }},
}

// LinkFileNames returns the file names LoadLinksDir tries for src to dst, in
// order: "md_to_ko.json" then the KEGG REST text dump "md_to_ko.txt".
func LinkFileNames(src, dst Database) []string {
	base := src.Abbrev() + "_to_" + dst.Abbrev()
	return []string{base + ".json", base + ".txt"}
}

// LoadLinksDir reads every link table from dir. A table missing in one
// direction is derived from the file for the opposite direction. Missing
// enzyme tables leave the corresponding fields empty; any other missing
// table is an error.
func LoadLinksDir(dir string) (Links, error) {
	var links Links
	var errs []error
	for _, spec := range linkSpecs {
		table, err := loadLinkPair(dir, spec.src, spec.dst)
		if errors.Is(err, fs.ErrNotExist) {
			if spec.required {
				errs = append(errs, &LoadError{
					Path:    dir,
					Message: fmt.Sprintf("no %s to %s link table (%s)", spec.src, spec.dst, strings.Join(LinkFileNames(spec.src, spec.dst), ", ")),
				})
			}
			table = make(LinkTable)
		} else if err != nil {
			errs = append(errs, err)
			continue
		}
		*spec.field(&links) = table
	}
	if len(errs) > 0 {
		return Links{}, errors.Join(errs...)
	}
	return links, nil
}

// loadLinkPair reads src to dst directly, or inverts dst to src.
// Returns fs.ErrNotExist when neither direction is on disk.
func loadLinkPair(dir string, src, dst Database) (LinkTable, error) {
	if t, err := loadLinkFile(dir, src, dst); !errors.Is(err, fs.ErrNotExist) {
		return t, err
	}
	t, err := loadLinkFile(dir, dst, src)
	if err != nil {
		return nil, err
	}
	return t.Invert(), nil
}

func loadLinkFile(dir string, src, dst Database) (LinkTable, error) {
	for _, name := range LinkFileNames(src, dst) {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &LoadError{Path: path, Message: "cannot open", Err: err}
		}
		defer f.Close()

		var t LinkTable
		if strings.HasSuffix(name, ".json") {
			t, err = DecodeLinkJSON(f)
		} else {
			t, err = DecodeLinkText(f, src, dst)
		}
		if err != nil {
			return nil, &LoadError{Path: path, Message: "invalid link table", Err: err}
		}
		return t, nil
	}
	return nil, fs.ErrNotExist
}

// DecodeLinkJSON reads {"M00001": ["K00844", ...], ...}.
func DecodeLinkJSON(r io.Reader) (LinkTable, error) {
	var raw map[ir.Identifier][]ir.Identifier
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	t := make(LinkTable, len(raw))
	for src, targets := range raw {
		for _, dst := range targets {
			if !ir.ValidIdentifier(src) || !ir.ValidIdentifier(dst) {
				return nil, fmt.Errorf("identifier contains '+' or ',': %s -> %s", src, dst)
			}
			t.Add(src, dst)
		}
	}
	return t, nil
}

// DecodeLinkText reads KEGG REST link output, one "md:M00001\tko:K00844" pair
// per line. Either column may hold the source; prefixes decide.
func DecodeLinkText(r io.Reader, src, dst Database) (LinkTable, error) {
	srcPrefix, dstPrefix := src.Abbrev()+":", dst.Abbrev()+":"
	t := make(LinkTable)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields, got %d", line, len(fields))
		}
		a, b := fields[0], fields[1]
		if !strings.HasPrefix(a, srcPrefix) {
			a, b = b, a
		}
		if !strings.HasPrefix(a, srcPrefix) || !strings.HasPrefix(b, dstPrefix) {
			return nil, fmt.Errorf("line %d: expected %s and %s ids, got %q", line, srcPrefix, dstPrefix, text)
		}
		from, to := ir.Identifier(strings.TrimPrefix(a, srcPrefix)), ir.Identifier(strings.TrimPrefix(b, dstPrefix))
		if !ir.ValidIdentifier(from) || !ir.ValidIdentifier(to) {
			return nil, fmt.Errorf("line %d: identifier contains '+' or ',': %q", line, text)
		}
		t.Add(from, to)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}
