// Package curation reads and writes the spreadsheets a curator uses to
// resolve ambiguous reactions.
//
// A rule cell holds one rule set in text form: comma-separated alternative
// clauses, each a "+"-joined list of identifiers, e.g. "K00001+K00002,K00003".
package curation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/rxnmap/internal/ir"
)

// ErrMalformedRule is matched by every *RuleError.
var ErrMalformedRule = errors.New("malformed rule")

// RuleError reports a rule string that cannot be parsed.
type RuleError struct {
	Rule   string
	Clause int // 1-based clause position, 0 when not clause-specific
	Reason string
}

func (e *RuleError) Error() string {
	if e.Clause > 0 {
		return fmt.Sprintf("malformed rule %q: clause %d: %s", e.Rule, e.Clause, e.Reason)
	}
	return fmt.Sprintf("malformed rule %q: %s", e.Rule, e.Reason)
}

func (e *RuleError) Is(target error) bool {
	return target == ErrMalformedRule
}

// ParseRule parses a rule string into a rule set. Whitespace around
// identifiers is ignored; an empty clause or identifier is an error.
func ParseRule(rule string) (ir.RuleSet, error) {
	if strings.TrimSpace(rule) == "" {
		return nil, &RuleError{Rule: rule, Reason: "empty rule"}
	}
	rs := ir.NewRuleSet()
	for i, clause := range strings.Split(rule, ",") {
		var ids []ir.Identifier
		for _, id := range strings.Split(clause, "+") {
			id = strings.TrimSpace(id)
			if id == "" {
				return nil, &RuleError{Rule: rule, Clause: i + 1, Reason: "empty identifier"}
			}
			if strings.ContainsFunc(id, isSpace) {
				return nil, &RuleError{Rule: rule, Clause: i + 1, Reason: fmt.Sprintf("identifier %q contains whitespace", id)}
			}
			ids = append(ids, ir.Identifier(id))
		}
		c, err := ir.NewClause(ids...)
		if err != nil {
			return nil, &RuleError{Rule: rule, Clause: i + 1, Reason: err.Error()}
		}
		rs.Add(c)
	}
	return rs, nil
}

// MustParseRule is ParseRule for tests and literals. It panics on error.
func MustParseRule(rule string) ir.RuleSet {
	rs, err := ParseRule(rule)
	if err != nil {
		panic(err)
	}
	return rs
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
