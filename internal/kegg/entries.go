// Package kegg holds the inputs retrieved from KEGG: module and reaction
// entries and the link tables between databases. Retrieval itself lives
// elsewhere; this package only decodes what the retriever wrote to disk.
package kegg

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/roach88/rxnmap/internal/ir"
)

// ModuleEntry is one module record. A nil Definition or Orthologs means the
// field was missing from the source.
type ModuleEntry struct {
	ID         ir.Identifier     `json:"entry_id,omitempty"`
	Name       string            `json:"name,omitempty"`
	Definition *string           `json:"definition,omitempty"`
	Orthologs  map[string]string `json:"orthologs,omitempty"`
}

// ReactionEntry is one reaction record. A nil Comment or Orthologs means the
// field was missing from the source.
type ReactionEntry struct {
	ID        ir.Identifier     `json:"entry_id,omitempty"`
	Name      string            `json:"name,omitempty"`
	Comment   *string           `json:"comment,omitempty"`
	Orthologs map[string]string `json:"orthologs,omitempty"`
}

// HasDefinition reports whether the definition field was present.
func (m ModuleEntry) HasDefinition() bool { return m.Definition != nil }

// DefinitionText returns the definition or "" when missing.
func (m ModuleEntry) DefinitionText() string {
	if m.Definition == nil {
		return ""
	}
	return *m.Definition
}

// CommentText returns the comment or "" when missing.
func (r ReactionEntry) CommentText() string {
	if r.Comment == nil {
		return ""
	}
	return *r.Comment
}

// LoadError reports an input that could not be read or decoded.
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

// DecodeModules reads a JSON object of module id to entry.
// Entries without an entry_id take their key.
func DecodeModules(r io.Reader) (map[ir.Identifier]ModuleEntry, error) {
	raw := make(map[ir.Identifier]ModuleEntry)
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	for id, entry := range raw {
		if entry.ID == "" {
			entry.ID = id
			raw[id] = entry
		}
	}
	return raw, nil
}

// DecodeReactions reads a JSON object of reaction id to entry.
func DecodeReactions(r io.Reader) (map[ir.Identifier]ReactionEntry, error) {
	raw := make(map[ir.Identifier]ReactionEntry)
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	for id, entry := range raw {
		if entry.ID == "" {
			entry.ID = id
			raw[id] = entry
		}
	}
	return raw, nil
}

// LoadModules reads module entries from path.
func LoadModules(path string) (map[ir.Identifier]ModuleEntry, error) {
	return loadFile(path, DecodeModules)
}

// LoadReactions reads reaction entries from path.
func LoadReactions(path string) (map[ir.Identifier]ReactionEntry, error) {
	return loadFile(path, DecodeReactions)
}

func loadFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, &LoadError{Path: path, Message: "cannot open", Err: err}
	}
	defer f.Close()

	v, err := decode(f)
	if err != nil {
		return zero, &LoadError{Path: path, Message: "invalid JSON", Err: err}
	}
	return v, nil
}

// Definitions returns the definitions of entries that have one.
func Definitions(modules map[ir.Identifier]ModuleEntry) map[ir.Identifier]string {
	out := make(map[ir.Identifier]string, len(modules))
	for id, m := range modules {
		if m.Definition != nil {
			out[id] = *m.Definition
		}
	}
	return out
}

// SortedIDs returns the keys of an entry table in order.
func SortedIDs[E any](entries map[ir.Identifier]E) []ir.Identifier {
	return slices.Sorted(maps.Keys(entries))
}
