// Package testutil provides builders shared by package tests.
package testutil

import (
	"strings"

	"github.com/roach88/rxnmap/internal/ir"
	"github.com/roach88/rxnmap/internal/kegg"
)

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Module builds a module entry with a present definition.
func Module(id, definition string, orthologs map[string]string) kegg.ModuleEntry {
	return kegg.ModuleEntry{
		ID:         ir.Identifier(id),
		Definition: Str(definition),
		Orthologs:  orthologs,
	}
}

// Modules indexes entries by id.
func Modules(entries ...kegg.ModuleEntry) map[ir.Identifier]kegg.ModuleEntry {
	out := make(map[ir.Identifier]kegg.ModuleEntry, len(entries))
	for _, e := range entries {
		out[e.ID] = e
	}
	return out
}

// Reaction builds a reaction entry with a present comment.
func Reaction(id, comment string, orthologs map[string]string) kegg.ReactionEntry {
	return kegg.ReactionEntry{
		ID:        ir.Identifier(id),
		Comment:   Str(comment),
		Orthologs: orthologs,
	}
}

// Reactions indexes entries by id.
func Reactions(entries ...kegg.ReactionEntry) map[ir.Identifier]kegg.ReactionEntry {
	out := make(map[ir.Identifier]kegg.ReactionEntry, len(entries))
	for _, e := range entries {
		out[e.ID] = e
	}
	return out
}

// Rules parses curation-format strings ("K00001+K00002,K00003") keyed by
// reaction. It panics on empty clauses.
func Rules(rules map[string]string) ir.RuleMap {
	out := make(ir.RuleMap, len(rules))
	for r, text := range rules {
		for _, clause := range strings.Split(text, ",") {
			var ids []ir.Identifier
			for _, id := range strings.Split(clause, "+") {
				ids = append(ids, ir.Identifier(strings.TrimSpace(id)))
			}
			out.Add(ir.Identifier(r), ir.MustClause(ids...))
		}
	}
	return out
}

// LinksBuilder assembles a kegg.Links with both directions of the
// module/reaction pair kept consistent.
type LinksBuilder struct {
	links kegg.Links
}

// NewLinks starts an empty set of link tables.
func NewLinks() *LinksBuilder {
	return &LinksBuilder{links: kegg.Links{
		ModuleOrthology:   make(kegg.LinkTable),
		ModuleReaction:    make(kegg.LinkTable),
		ReactionOrthology: make(kegg.LinkTable),
		ReactionModule:    make(kegg.LinkTable),
		ReactionEnzyme:    make(kegg.LinkTable),
		EnzymeOrthology:   make(kegg.LinkTable),
	}}
}

func add(t kegg.LinkTable, src string, dsts []string) {
	for _, d := range dsts {
		t.Add(ir.Identifier(src), ir.Identifier(d))
	}
}

// ModuleOrthologs links module m to orthologs.
func (b *LinksBuilder) ModuleOrthologs(m string, orthologs ...string) *LinksBuilder {
	add(b.links.ModuleOrthology, m, orthologs)
	return b
}

// ModuleReactions links module m to reactions in both directions.
func (b *LinksBuilder) ModuleReactions(m string, reactions ...string) *LinksBuilder {
	add(b.links.ModuleReaction, m, reactions)
	for _, r := range reactions {
		b.links.ReactionModule.Add(ir.Identifier(r), ir.Identifier(m))
	}
	return b
}

// ReactionOrthologs adds direct ortholog links of reaction r.
func (b *LinksBuilder) ReactionOrthologs(r string, orthologs ...string) *LinksBuilder {
	add(b.links.ReactionOrthology, r, orthologs)
	return b
}

// ReactionModulesOnly links r to modules without the forward direction, as
// for modules missing from the snapshot.
func (b *LinksBuilder) ReactionModulesOnly(r string, modules ...string) *LinksBuilder {
	add(b.links.ReactionModule, r, modules)
	return b
}

// ReactionEnzymes links reaction r to enzymes.
func (b *LinksBuilder) ReactionEnzymes(r string, enzymes ...string) *LinksBuilder {
	add(b.links.ReactionEnzyme, r, enzymes)
	return b
}

// EnzymeOrthologs links enzyme e to orthologs.
func (b *LinksBuilder) EnzymeOrthologs(e string, orthologs ...string) *LinksBuilder {
	add(b.links.EnzymeOrthology, e, orthologs)
	return b
}

// Build returns the assembled tables.
func (b *LinksBuilder) Build() kegg.Links {
	return b.links
}
