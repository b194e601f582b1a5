package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/rxnmap/internal/ir"
)

// marshalIDs converts an identifier list to canonical JSON TEXT.
func marshalIDs(ids []ir.Identifier) (string, error) {
	arr := make(ir.IRArray, len(ids))
	for i, id := range ids {
		arr[i] = ir.IRString(id)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal ids: %w", err)
	}
	return string(data), nil
}

// marshalStrings converts a string list to canonical JSON TEXT.
func marshalStrings(values []string) (string, error) {
	arr := make(ir.IRArray, len(values))
	for i, v := range values {
		arr[i] = ir.IRString(v)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal strings: %w", err)
	}
	return string(data), nil
}

// marshalClause stores a clause as a sorted identifier array.
func marshalClause(c ir.Clause) (string, error) {
	return marshalIDs(c.IDs())
}

// marshalRuleSet stores a rule set as a sorted array of identifier arrays.
func marshalRuleSet(rs ir.RuleSet) (string, error) {
	data, err := ir.MarshalCanonical(rs.IRValue())
	if err != nil {
		return "", fmt.Errorf("marshal rule set: %w", err)
	}
	return string(data), nil
}

func unmarshalIDs(data string) ([]ir.Identifier, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var ids []ir.Identifier
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal ids: %w", err)
	}
	return ids, nil
}

func unmarshalStrings(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	return values, nil
}

func unmarshalClause(data string) (ir.Clause, error) {
	ids, err := unmarshalIDs(data)
	if err != nil {
		return ir.Clause{}, err
	}
	c, err := ir.NewClause(ids...)
	if err != nil {
		return ir.Clause{}, fmt.Errorf("unmarshal clause %s: %w", data, err)
	}
	return c, nil
}

func unmarshalRuleSet(data string) (ir.RuleSet, error) {
	rs := ir.NewRuleSet()
	if data == "" || data == "[]" {
		return rs, nil
	}
	if err := json.Unmarshal([]byte(data), &rs); err != nil {
		return nil, fmt.Errorf("unmarshal rule set: %w", err)
	}
	return rs, nil
}
