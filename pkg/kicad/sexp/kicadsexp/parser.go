package kicadsexp

import (
	"io"
)

// Parser builds expression trees from a token stream. Nesting is tracked on
// an explicit stack, so deeply nested zones do not grow the call stack.
type Parser struct {
	lexer *Lexer
}

// NewParser returns a parser reading from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{lexer: NewLexer(r)}
}

// ParseAll parses every top level expression of the input.
func (p *Parser) ParseAll() ([]Sexp, error) {
	var (
		top   []Sexp
		stack []*List
		opens []int
	)
	emit := func(e Sexp) {
		if n := len(stack); n > 0 {
			stack[n-1].elements = append(stack[n-1].elements, e)
			return
		}
		top = append(top, e)
	}

	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenEOF:
			if n := len(opens); n > 0 {
				return nil, &SyntaxError{Line: opens[n-1], Msg: "unclosed '('"}
			}
			return top, nil
		case TokenLeftParen:
			stack = append(stack, &List{})
			opens = append(opens, tok.Line)
		case TokenRightParen:
			n := len(stack)
			if n == 0 {
				return nil, &SyntaxError{Line: tok.Line, Msg: "unexpected ')'"}
			}
			l := stack[n-1]
			stack, opens = stack[:n-1], opens[:n-1]
			emit(l)
		case TokenSymbol:
			emit(Symbol(tok.Value))
		case TokenString:
			emit(Quoted(tok.Value))
		}
	}
}
