package definition

import (
	"fmt"
	"strings"
)

// TokenType identifies the lexical class of a definition token.
type TokenType int

const (
	EOF TokenType = iota
	IDENT
	QUOTED
	PLUS
	COMMA
	MINUS    // infix optional chain
	OPTIONAL // prefix optional
	SPACE    // sequence separator
	LPAREN
	RPAREN
)

var tokenNames = [...]string{
	EOF:      "end of definition",
	IDENT:    "identifier",
	QUOTED:   "quoted literal",
	PLUS:     "'+'",
	COMMA:    "','",
	MINUS:    "'-'",
	OPTIONAL: "prefix '-'",
	SPACE:    "space",
	LPAREN:   "'('",
	RPAREN:   "')'",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is one lexeme with its byte offset in the definition.
type Token struct {
	Type   TokenType
	Text   string // raw source text
	Value  string // identifier value; quotes stripped for QUOTED
	Offset int
}

// Lexer splits a definition into tokens.
//
// The raw stream keeps every whitespace run as one SPACE token. Scan then
// classifies each '-' as prefix or infix and drops the whitespace that is
// layout rather than a sequence separator.
type Lexer struct {
	src string
	cur int
}

// NewLexer returns a lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *Lexer) errAt(offset, end int, reason string) error {
	if end > len(l.src) {
		end = len(l.src)
	}
	return &MalformedDefinitionError{
		Definition: l.src,
		Offset:     offset,
		Substring:  l.src[offset:end],
		Reason:     reason,
	}
}

func isDigit(b byte) bool    { return b >= '0' && b <= '9' }
func isUpper(b byte) bool    { return b >= 'A' && b <= 'Z' }
func isAlphaNum(b byte) bool { return isDigit(b) || isUpper(b) || (b >= 'a' && b <= 'z') || b == '_' }
func isSpace(b byte) bool    { return b == ' ' || b == '\t' }

// scanIdentifier reads one letter followed by exactly five digits.
func (l *Lexer) scanIdentifier() (Token, error) {
	start := l.cur
	end := start + 1
	for end < len(l.src) && isAlphaNum(l.src[end]) {
		end++
	}
	word := l.src[start:end]
	if len(word) != 6 || !isUpper(word[0]) {
		return Token{}, l.errAt(start, end, "identifier must be one uppercase letter followed by five digits")
	}
	for i := 1; i < 6; i++ {
		if !isDigit(word[i]) {
			return Token{}, l.errAt(start, end, "identifier must be one uppercase letter followed by five digits")
		}
	}
	l.cur = end
	return Token{Type: IDENT, Text: word, Value: word, Offset: start}, nil
}

func (l *Lexer) scanQuoted() (Token, error) {
	start := l.cur
	quote := l.src[start]
	end := strings.IndexByte(l.src[start+1:], quote)
	if end < 0 {
		return Token{}, l.errAt(start, len(l.src), "unterminated quoted literal")
	}
	end += start + 1
	value := l.src[start+1 : end]
	if strings.TrimSpace(value) == "" {
		return Token{}, l.errAt(start, end+1, "empty quoted literal")
	}
	if strings.ContainsAny(value, "+,") {
		return Token{}, l.errAt(start, end+1, "quoted literal cannot contain '+' or ','")
	}
	l.cur = end + 1
	return Token{Type: QUOTED, Text: l.src[start:l.cur], Value: value, Offset: start}, nil
}

func (l *Lexer) scanToken() (Token, error) {
	start := l.cur
	c := l.peek()
	single := func(tt TokenType) (Token, error) {
		l.cur++
		return Token{Type: tt, Text: string(c), Offset: start}, nil
	}
	switch {
	case isSpace(c):
		for !l.isAtEnd() && isSpace(l.peek()) {
			l.cur++
		}
		return Token{Type: SPACE, Text: l.src[start:l.cur], Offset: start}, nil
	case c == '+':
		return single(PLUS)
	case c == ',':
		return single(COMMA)
	case c == '-':
		return single(MINUS)
	case c == '(':
		return single(LPAREN)
	case c == ')':
		return single(RPAREN)
	case c == '"' || c == '\'':
		return l.scanQuoted()
	case isAlphaNum(c):
		return l.scanIdentifier()
	default:
		return Token{}, l.errAt(start, start+1, fmt.Sprintf("unexpected character %q", c))
	}
}

// scanRaw returns every token including all whitespace runs, without EOF.
func (l *Lexer) scanRaw() ([]Token, error) {
	var toks []Token
	for !l.isAtEnd() {
		tok, err := l.scanToken()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
	return toks, nil
}

// Scan tokenizes the whole definition. The result always ends with EOF.
func (l *Lexer) Scan() ([]Token, error) {
	raw, err := l.scanRaw()
	if err != nil {
		return nil, err
	}
	classifyMinus(raw)

	out := make([]Token, 0, len(raw)+1)
	for i, tok := range raw {
		if tok.Type == SPACE && isLayout(raw, i) {
			continue
		}
		out = append(out, tok)
	}
	return append(out, Token{Type: EOF, Offset: len(l.src)}), nil
}

// classifyMinus marks a '-' as OPTIONAL when it opens an operand: nothing
// that could be a left operand precedes it and an operand follows directly.
func classifyMinus(raw []Token) {
	for i := range raw {
		if raw[i].Type != MINUS {
			continue
		}
		leftOperand := i > 0 && (raw[i-1].Type == IDENT || raw[i-1].Type == QUOTED || raw[i-1].Type == RPAREN)
		spaceAfter := i+1 >= len(raw) || raw[i+1].Type == SPACE
		spaceBefore := i > 0 && raw[i-1].Type == SPACE
		if leftOperand || (spaceBefore && spaceAfter) {
			continue
		}
		raw[i].Type = OPTIONAL
	}
}

// isLayout reports whether the whitespace run at i carries no meaning.
func isLayout(raw []Token, i int) bool {
	if i == 0 || i == len(raw)-1 {
		return true
	}
	switch raw[i-1].Type {
	case LPAREN, PLUS, COMMA, MINUS:
		return true
	}
	switch raw[i+1].Type {
	case RPAREN, PLUS, COMMA, MINUS:
		return true
	}
	return false
}
