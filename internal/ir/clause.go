package ir

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Identifier is an opaque KEGG token: ortholog, reaction, module or enzyme id,
// or the Spontaneous sentinel. Compared by value.
type Identifier string

// Spontaneous is the sentinel identifier assigned to non-enzymatic reactions.
const Spontaneous Identifier = "spontaneous"

// separators join identifiers into clause keys and clauses into rule text.
const separators = "+,"

// ValidIdentifier reports whether id can be rendered in a clause key without
// ambiguity.
func ValidIdentifier(id Identifier) bool {
	return !strings.ContainsAny(string(id), separators)
}

// ErrEmptyClause is returned when a clause would hold no identifiers.
var ErrEmptyClause = errors.New("clause must contain at least one identifier")

// Clause is an immutable, sorted, deduplicated, non-empty set of identifiers
// that must co-occur. The zero Clause is invalid and only used as a sentinel.
type Clause struct {
	ids []Identifier
}

// NewClause builds a Clause from ids. Duplicates collapse; order is irrelevant.
// Returns ErrEmptyClause when ids is empty and an error for blank identifiers
// or identifiers holding a clause or rule separator.
func NewClause(ids ...Identifier) (Clause, error) {
	if len(ids) == 0 {
		return Clause{}, ErrEmptyClause
	}
	out := make([]Identifier, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(string(id)) == "" {
			return Clause{}, fmt.Errorf("clause contains a blank identifier")
		}
		if !ValidIdentifier(id) {
			return Clause{}, fmt.Errorf("identifier %q contains %q", id, separators)
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return Clause{ids: slices.Compact(out)}, nil
}

// MustClause is like NewClause but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustClause(ids ...Identifier) Clause {
	c, err := NewClause(ids...)
	if err != nil {
		panic(err)
	}
	return c
}

// Singleton returns the one-identifier clause {id}.
func Singleton(id Identifier) Clause {
	return MustClause(id)
}

// IDs returns a sorted copy of the clause members.
func (c Clause) IDs() []Identifier {
	return slices.Clone(c.ids)
}

// Len returns the number of identifiers in the clause.
func (c Clause) Len() int {
	return len(c.ids)
}

// IsZero reports whether c is the invalid zero Clause.
func (c Clause) IsZero() bool {
	return len(c.ids) == 0
}

// Contains reports whether id is a member of the clause.
func (c Clause) Contains(id Identifier) bool {
	_, found := slices.BinarySearch(c.ids, id)
	return found
}

// SubsetOf reports whether every member of c is in set.
func (c Clause) SubsetOf(set map[Identifier]struct{}) bool {
	for _, id := range c.ids {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// Key is the canonical text of the clause ("K00001+K00002").
// Two clauses are the same set iff their keys are equal.
func (c Clause) Key() string {
	parts := make([]string, len(c.ids))
	for i, id := range c.ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, "+")
}

// String implements fmt.Stringer.
func (c Clause) String() string {
	return c.Key()
}

// CompareClauses is the total order used for every sorted rendering:
// element-wise identifier comparison, then length.
func CompareClauses(a, b Clause) int {
	return slices.Compare(a.ids, b.ids)
}
