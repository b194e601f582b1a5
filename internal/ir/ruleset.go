package ir

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// RuleSet is a set of Clauses: any one clause suffices.
// Keyed by Clause.Key so the same set built along different paths is stored once.
//
// A nil RuleSet is a valid empty set for reads. Use NewRuleSet before Add.
type RuleSet map[string]Clause

// NewRuleSet creates a RuleSet holding clauses.
func NewRuleSet(clauses ...Clause) RuleSet {
	rs := make(RuleSet, len(clauses))
	for _, c := range clauses {
		rs.Add(c)
	}
	return rs
}

// Add inserts c and reports whether it was new. Zero clauses are ignored.
func (rs RuleSet) Add(c Clause) bool {
	if c.IsZero() {
		return false
	}
	key := c.Key()
	if _, ok := rs[key]; ok {
		return false
	}
	rs[key] = c
	return true
}

// Union adds every clause of other to rs.
func (rs RuleSet) Union(other RuleSet) {
	for k, c := range other {
		rs[k] = c
	}
}

// Clone returns an independent copy.
func (rs RuleSet) Clone() RuleSet {
	out := make(RuleSet, len(rs))
	maps.Copy(out, rs)
	return out
}

// Len returns the number of clauses.
func (rs RuleSet) Len() int {
	return len(rs)
}

// IsEmpty reports whether the set holds no clauses.
func (rs RuleSet) IsEmpty() bool {
	return len(rs) == 0
}

// Has reports whether c is in the set.
func (rs RuleSet) Has(c Clause) bool {
	_, ok := rs[c.Key()]
	return ok
}

// Equal reports set equality.
func (rs RuleSet) Equal(other RuleSet) bool {
	if len(rs) != len(other) {
		return false
	}
	for k := range rs {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// AllSingletons reports whether every clause has exactly one identifier.
// Vacuously true for an empty set.
func (rs RuleSet) AllSingletons() bool {
	for _, c := range rs {
		if c.Len() != 1 {
			return false
		}
	}
	return true
}

// Clauses returns the clauses in canonical order.
func (rs RuleSet) Clauses() []Clause {
	out := slices.Collect(maps.Values(rs))
	slices.SortFunc(out, CompareClauses)
	return out
}

// Identifiers returns the sorted union of every clause's members.
func (rs RuleSet) Identifiers() []Identifier {
	var ids []Identifier
	for _, c := range rs {
		ids = append(ids, c.ids...)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// String renders the curation rule format: "K00001+K00002,K00003".
func (rs RuleSet) String() string {
	clauses := rs.Clauses()
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = c.Key()
	}
	return strings.Join(parts, ",")
}

// IRValue converts the set to a sorted array of sorted identifier arrays.
func (rs RuleSet) IRValue() IRArray {
	clauses := rs.Clauses()
	arr := make(IRArray, len(clauses))
	for i, c := range clauses {
		inner := make(IRArray, len(c.ids))
		for j, id := range c.ids {
			inner[j] = IRString(id)
		}
		arr[i] = inner
	}
	return arr
}

// MarshalJSON emits canonical JSON.
func (rs RuleSet) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(rs.IRValue())
}

// UnmarshalJSON accepts an array of identifier arrays.
func (rs *RuleSet) UnmarshalJSON(data []byte) error {
	var raw [][]Identifier
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(RuleSet, len(raw))
	for i, ids := range raw {
		c, err := NewClause(ids...)
		if err != nil {
			return fmt.Errorf("clause[%d]: %w", i, err)
		}
		out.Add(c)
	}
	*rs = out
	return nil
}
