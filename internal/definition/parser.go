package definition

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/rxnmap/internal/ir"
)

// ErrMalformedDefinition matches every *MalformedDefinitionError via errors.Is.
var ErrMalformedDefinition = errors.New("malformed definition")

// MalformedDefinitionError reports why and where a definition failed to parse.
type MalformedDefinitionError struct {
	Definition string
	Offset     int    // byte offset of the offending text
	Substring  string // offending text; empty at end of input
	Reason     string
}

func (e *MalformedDefinitionError) Error() string {
	if e.Substring == "" {
		return fmt.Sprintf("malformed definition at offset %d: %s", e.Offset, e.Reason)
	}
	return fmt.Sprintf("malformed definition at offset %d near %q: %s", e.Offset, e.Substring, e.Reason)
}

func (e *MalformedDefinitionError) Is(target error) bool {
	return target == ErrMalformedDefinition
}

var moduleReference = regexp.MustCompile(`\bM\d{5}\b`)

// ContainsModuleReference reports whether def embeds another module id.
// Such definitions are never compiled; their reactions go to curation.
func ContainsModuleReference(def string) bool {
	return moduleReference.MatchString(def)
}

// HasComplexOperators reports whether def uses '+', '-' or ','.
func HasComplexOperators(def string) bool {
	return strings.ContainsAny(def, "+-,")
}

// Parse turns a module definition into an operator tree.
//
// Grammar, loosest first:
//
//	alternative := chain { "," chain }
//	chain       := complex { "-" complex }
//	complex     := sequence { "+" sequence }
//	sequence    := unary { SPACE unary }
//	unary       := "-" unary | primary
//	primary     := IDENT | QUOTED | "(" alternative ")"
func Parse(def string) (Node, error) {
	if strings.TrimSpace(def) == "" {
		return nil, &MalformedDefinitionError{Definition: def, Reason: "empty definition"}
	}
	toks, err := NewLexer(def).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{src: def, toks: toks}
	n, err := p.alternative()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.errAtToken(p.peek(), "unexpected "+p.peek().Type.String())
	}
	return n, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParse(def string) Node {
	n, err := Parse(def)
	if err != nil {
		panic(err)
	}
	return n
}

type parser struct {
	src  string
	toks []Token
	i    int
}

func (p *parser) peek() Token { return p.toks[p.i] }
func (p *parser) atEnd() bool { return p.peek().Type == EOF }

func (p *parser) match(tt TokenType) bool {
	if p.peek().Type != tt {
		return false
	}
	p.i++
	return true
}

func (p *parser) errAtToken(t Token, reason string) error {
	return &MalformedDefinitionError{
		Definition: p.src,
		Offset:     t.Offset,
		Substring:  t.Text,
		Reason:     reason,
	}
}

// binary parses operand { op operand } and builds one flat node from the run.
func (p *parser) binary(op TokenType, operand func() (Node, error), build func(...Node) (Node, error)) (Node, error) {
	first, err := operand()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for {
		opTok := p.peek()
		if !p.match(op) {
			break
		}
		if p.atEnd() {
			return nil, p.errAtToken(opTok, fmt.Sprintf("operator %s is missing its right operand", op))
		}
		next, err := operand()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return build(children...)
}

func (p *parser) alternative() (Node, error) {
	return p.binary(COMMA, p.chain, func(c ...Node) (Node, error) { return NewAlternative(c...) })
}

func (p *parser) chain() (Node, error) {
	return p.binary(MINUS, p.complex, func(c ...Node) (Node, error) { return NewOptionalChain(c...) })
}

func (p *parser) complex() (Node, error) {
	return p.binary(PLUS, p.sequence, func(c ...Node) (Node, error) { return NewComplex(c...) })
}

func (p *parser) sequence() (Node, error) {
	return p.binary(SPACE, p.unary, func(c ...Node) (Node, error) { return NewSequence(c...) })
}

func (p *parser) unary() (Node, error) {
	if p.match(OPTIONAL) {
		child, err := p.unary()
		if err != nil {
			return nil, err
		}
		return NewOptional(child)
	}
	return p.primary()
}

func (p *parser) primary() (Node, error) {
	t := p.peek()
	switch t.Type {
	case IDENT, QUOTED:
		p.i++
		return NewLeaf(ir.Identifier(t.Value))
	case LPAREN:
		p.i++
		if p.peek().Type == RPAREN {
			return nil, p.errAtToken(t, "empty parentheses")
		}
		inner, err := p.alternative()
		if err != nil {
			return nil, err
		}
		if closing := p.peek(); !p.match(RPAREN) {
			return nil, p.errAtToken(closing, "expected ')' to close '(' at offset "+fmt.Sprint(t.Offset))
		}
		return inner, nil
	case EOF:
		return nil, p.errAtToken(t, "expected an operand")
	default:
		return nil, p.errAtToken(t, "expected an operand, found "+t.Type.String())
	}
}
