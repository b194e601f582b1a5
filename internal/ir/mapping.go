package ir

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// RuleMap maps a reaction to the RuleSet that catalyzes it.
// Merging is additive: a later write unions into the existing set.
type RuleMap map[Identifier]RuleSet

// Add inserts one clause for reaction.
func (m RuleMap) Add(reaction Identifier, c Clause) {
	if c.IsZero() {
		return
	}
	rs, ok := m[reaction]
	if !ok {
		rs = NewRuleSet()
		m[reaction] = rs
	}
	rs.Add(c)
}

// Merge unions rs into the set stored for reaction. Empty sets are ignored so a
// tier that resolved nothing never creates an entry.
func (m RuleMap) Merge(reaction Identifier, rs RuleSet) {
	if rs.IsEmpty() {
		return
	}
	existing, ok := m[reaction]
	if !ok {
		m[reaction] = rs.Clone()
		return
	}
	existing.Union(rs)
}

// MergeAll unions every entry of other into m.
func (m RuleMap) MergeAll(other RuleMap) {
	for r, rs := range other {
		m.Merge(r, rs)
	}
}

// Reactions returns the reaction ids in sorted order.
func (m RuleMap) Reactions() []Identifier {
	return slices.Sorted(maps.Keys(m))
}

// Clone returns a deep copy.
func (m RuleMap) Clone() RuleMap {
	out := make(RuleMap, len(m))
	for r, rs := range m {
		out[r] = rs.Clone()
	}
	return out
}

// Equal reports whether both maps hold equal sets for the same reactions.
func (m RuleMap) Equal(other RuleMap) bool {
	if len(m) != len(other) {
		return false
	}
	for r, rs := range m {
		o, ok := other[r]
		if !ok || !rs.Equal(o) {
			return false
		}
	}
	return true
}

// ClauseCount returns the total number of clauses across reactions.
func (m RuleMap) ClauseCount() int {
	n := 0
	for _, rs := range m {
		n += rs.Len()
	}
	return n
}

// Strings renders every rule set in curation format, keyed by reaction.
// Convenient for assertions and text output.
func (m RuleMap) Strings() map[string]string {
	out := make(map[string]string, len(m))
	for r, rs := range m {
		out[string(r)] = rs.String()
	}
	return out
}

// IRValue converts the map to an object of reaction -> sorted rule arrays.
func (m RuleMap) IRValue() IRObject {
	obj := make(IRObject, len(m))
	for r, rs := range m {
		obj[string(r)] = rs.IRValue()
	}
	return obj
}

// MarshalJSON emits canonical JSON.
func (m RuleMap) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(m.IRValue())
}

// UnmarshalJSON accepts an object of reaction -> array of identifier arrays.
func (m *RuleMap) UnmarshalJSON(data []byte) error {
	var raw map[Identifier]RuleSet
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(RuleMap, len(raw))
	for r, rs := range raw {
		out.Merge(r, rs)
	}
	*m = out
	return nil
}

// CanonicalMapping is the final reaction -> RuleSet deliverable, built once per
// run by unioning every tier's rules. Callers only read it after construction.
type CanonicalMapping struct {
	rules RuleMap
}

// NewCanonicalMapping creates an empty mapping.
func NewCanonicalMapping() *CanonicalMapping {
	return &CanonicalMapping{rules: make(RuleMap)}
}

// Merge unions rs into reaction's rule set.
func (cm *CanonicalMapping) Merge(reaction Identifier, rs RuleSet) {
	cm.rules.Merge(reaction, rs)
}

// Get returns the rule set for reaction.
func (cm *CanonicalMapping) Get(reaction Identifier) (RuleSet, bool) {
	rs, ok := cm.rules[reaction]
	return rs, ok
}

// Len returns the number of mapped reactions.
func (cm *CanonicalMapping) Len() int {
	return len(cm.rules)
}

// Reactions returns mapped reaction ids in sorted order.
func (cm *CanonicalMapping) Reactions() []Identifier {
	return cm.rules.Reactions()
}

// Rules returns a deep copy of the underlying map.
func (cm *CanonicalMapping) Rules() RuleMap {
	return cm.rules.Clone()
}

// MarshalJSON emits canonical JSON.
func (cm *CanonicalMapping) MarshalJSON() ([]byte, error) {
	return cm.rules.MarshalJSON()
}

// Digest is the content address of the mapping.
func (cm *CanonicalMapping) Digest() (string, error) {
	canonical, err := MarshalCanonical(cm.rules.IRValue())
	if err != nil {
		return "", fmt.Errorf("mapping digest: %w", err)
	}
	return hashWithDomain(DomainMapping, canonical), nil
}
