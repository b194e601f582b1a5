// Package dnf reduces module definition trees to disjunctive normal form.
//
// Compilation runs in two stages. Expand applies the per-operator algebra and
// yields an Expansion: an ordered list of terms that may be empty and may
// repeat identifiers. Finalize drops the empty terms and collapses the rest
// into an ir.RuleSet. Only the finalized RuleSet leaves this package.
package dnf

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rxnmap/internal/definition"
	"github.com/roach88/rxnmap/internal/ir"
)

// term is one candidate clause before deduplication.
type term []ir.Identifier

// Expansion is the pre-deduplication list of terms for a node.
type Expansion []term

// Len returns the number of terms, empty ones included.
func (e Expansion) Len() int {
	return len(e)
}

// Terms returns a copy of every term in expansion order.
func (e Expansion) Terms() [][]ir.Identifier {
	out := make([][]ir.Identifier, len(e))
	for i, t := range e {
		out[i] = slices.Clone(t)
	}
	return out
}

// String renders terms in expansion order, "{}" for an empty term.
func (e Expansion) String() string {
	parts := make([]string, len(e))
	for i, t := range e {
		ids := make([]string, len(t))
		for j, id := range t {
			ids[j] = string(id)
		}
		parts[i] = "{" + strings.Join(ids, ",") + "}"
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Finalize drops empty terms and collapses the rest into a set of clauses.
func (e Expansion) Finalize() ir.RuleSet {
	rs := ir.NewRuleSet()
	for _, t := range e {
		if len(t) == 0 {
			continue
		}
		rs.Add(ir.MustClause(t...))
	}
	return rs
}

// Expand applies the operator algebra to n.
//
//	Leaf(id)             -> [{id}]
//	Sequence, Complex    -> Cartesian product, each tuple unioned
//	Alternative          -> concatenation
//	Optional(c)          -> Expand(c) + [{}]
//	OptionalChain(c0..n) -> Expand(c0) x (Expand(c1) + [{}]) x ...
func Expand(n definition.Node) Expansion {
	switch n := n.(type) {
	case definition.Leaf:
		return Expansion{{n.ID()}}
	case definition.Sequence:
		return product(expandAll(n.Children()))
	case definition.Complex:
		return product(expandAll(n.Children()))
	case definition.Alternative:
		var out Expansion
		for _, part := range expandAll(n.Children()) {
			out = append(out, part...)
		}
		return out
	case definition.Optional:
		return withAbsent(Expand(n.Child()))
	case definition.OptionalChain:
		children := n.Children()
		parts := make([]Expansion, len(children))
		parts[0] = Expand(children[0])
		for i, c := range children[1:] {
			parts[i+1] = withAbsent(Expand(c))
		}
		return product(parts)
	default:
		panic(fmt.Sprintf("dnf: unhandled node type %T", n))
	}
}

func expandAll(nodes []definition.Node) []Expansion {
	out := make([]Expansion, len(nodes))
	for i, c := range nodes {
		out[i] = Expand(c)
	}
	return out
}

// withAbsent appends the empty term that stands for "component absent".
func withAbsent(e Expansion) Expansion {
	return append(slices.Clip(e), term{})
}

// product is the Cartesian product of parts; each tuple is concatenated into
// one term. Repeats are kept until Finalize.
func product(parts []Expansion) Expansion {
	acc := Expansion{term{}}
	for _, part := range parts {
		next := make(Expansion, 0, len(acc)*len(part))
		for _, left := range acc {
			for _, right := range part {
				joined := make(term, 0, len(left)+len(right))
				joined = append(joined, left...)
				joined = append(joined, right...)
				next = append(next, joined)
			}
		}
		acc = next
	}
	return acc
}
