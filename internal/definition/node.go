package definition

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rxnmap/internal/ir"
)

// Node is a sealed union over the operator tree of a module definition.
// Only Leaf, Optional, Sequence, Complex, OptionalChain and Alternative
// implement it. Trees are built once and never mutated.
type Node interface {
	node()
	fmt.Stringer
}

// Leaf is a single identifier operand.
type Leaf struct {
	id ir.Identifier
}

// Optional is a prefix '-' operand that may be absent.
type Optional struct {
	child Node
}

// Sequence is a space-separated run of steps.
type Sequence struct {
	children []Node
}

// Complex is a '+'-joined set of components required together.
type Complex struct {
	children []Node
}

// OptionalChain is a '-'-joined chain: the first operand is mandatory, every
// later operand is independently optional.
type OptionalChain struct {
	children []Node
}

// Alternative is a ','-joined list of interchangeable operands.
type Alternative struct {
	children []Node
}

func (Leaf) node()          {}
func (Optional) node()      {}
func (Sequence) node()      {}
func (Complex) node()       {}
func (OptionalChain) node() {}
func (Alternative) node()   {}

// NewLeaf returns a leaf for id. Blank identifiers are rejected.
func NewLeaf(id ir.Identifier) (Leaf, error) {
	if strings.TrimSpace(string(id)) == "" {
		return Leaf{}, fmt.Errorf("leaf identifier must not be blank")
	}
	return Leaf{id: id}, nil
}

// NewOptional wraps child as an optional operand.
func NewOptional(child Node) (Optional, error) {
	if child == nil {
		return Optional{}, fmt.Errorf("optional requires a child")
	}
	return Optional{child: child}, nil
}

// NewSequence returns a sequence of at least two steps.
func NewSequence(children ...Node) (Sequence, error) {
	c, err := checkChildren("sequence", children)
	return Sequence{children: c}, err
}

// NewComplex returns a complex of at least two components.
func NewComplex(children ...Node) (Complex, error) {
	c, err := checkChildren("complex", children)
	return Complex{children: c}, err
}

// NewOptionalChain returns a chain of at least two operands.
func NewOptionalChain(children ...Node) (OptionalChain, error) {
	c, err := checkChildren("optional chain", children)
	return OptionalChain{children: c}, err
}

// NewAlternative returns an alternative of at least two operands.
func NewAlternative(children ...Node) (Alternative, error) {
	c, err := checkChildren("alternative", children)
	return Alternative{children: c}, err
}

func checkChildren(kind string, children []Node) ([]Node, error) {
	if len(children) < 2 {
		return nil, fmt.Errorf("%s requires at least 2 operands, got %d", kind, len(children))
	}
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("%s operand %d is nil", kind, i)
		}
	}
	return slices.Clone(children), nil
}

// ID returns the leaf identifier.
func (n Leaf) ID() ir.Identifier { return n.id }

// Child returns the wrapped operand.
func (n Optional) Child() Node { return n.child }

// Children returns a copy of the operands in source order.
func (n Sequence) Children() []Node      { return slices.Clone(n.children) }
func (n Complex) Children() []Node       { return slices.Clone(n.children) }
func (n OptionalChain) Children() []Node { return slices.Clone(n.children) }
func (n Alternative) Children() []Node   { return slices.Clone(n.children) }

func (n Leaf) String() string          { return Format(n) }
func (n Optional) String() string      { return Format(n) }
func (n Sequence) String() string      { return Format(n) }
func (n Complex) String() string       { return Format(n) }
func (n OptionalChain) String() string { return Format(n) }
func (n Alternative) String() string   { return Format(n) }

// Binding strength of each node kind, loosest first.
const (
	precAlternative = iota + 1
	precChain
	precComplex
	precSequence
	precOptional
	precLeaf
)

func precedence(n Node) int {
	switch n.(type) {
	case Alternative:
		return precAlternative
	case OptionalChain:
		return precChain
	case Complex:
		return precComplex
	case Sequence:
		return precSequence
	case Optional:
		return precOptional
	default:
		return precLeaf
	}
}

// Format renders n as definition text that parses back to an equal tree.
// Nested operands of the same or looser binding are parenthesised.
func Format(n Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case Leaf:
		writeLeaf(b, n.id)
	case Optional:
		b.WriteByte('-')
		writeOperand(b, n.child, precOptional-1)
	case Sequence:
		writeJoined(b, n.children, " ", precSequence)
	case Complex:
		writeJoined(b, n.children, "+", precComplex)
	case OptionalChain:
		writeJoined(b, n.children, "-", precChain)
	case Alternative:
		writeJoined(b, n.children, ",", precAlternative)
	default:
		panic(fmt.Sprintf("definition: unknown node %T", n))
	}
}

func writeJoined(b *strings.Builder, children []Node, sep string, prec int) {
	for i, c := range children {
		if i > 0 {
			b.WriteString(sep)
		}
		writeOperand(b, c, prec)
	}
}

// writeOperand parenthesises c unless it binds tighter than prec.
func writeOperand(b *strings.Builder, c Node, prec int) {
	if precedence(c) > prec {
		writeNode(b, c)
		return
	}
	b.WriteByte('(')
	writeNode(b, c)
	b.WriteByte(')')
}

func writeLeaf(b *strings.Builder, id ir.Identifier) {
	s := string(id)
	if isBareIdentifier(s) {
		b.WriteString(s)
		return
	}
	quote := byte('"')
	if strings.ContainsRune(s, '"') {
		quote = '\''
	}
	b.WriteByte(quote)
	b.WriteString(s)
	b.WriteByte(quote)
}

func isBareIdentifier(s string) bool {
	if len(s) != 6 || !isUpper(s[0]) {
		return false
	}
	for i := 1; i < 6; i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
