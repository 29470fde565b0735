package kicadsexp

import (
	"errors"
	"strings"
	"testing"
)

func TestParseString(t *testing.T) {
	exprs, err := ParseString("(a (b 1 \"two\\\"q\")\n (c))\n(d)")
	if err != nil {
		t.Fatalf("ParseString() error: %v", err)
	}
	if len(exprs) != 2 {
		t.Fatalf("got %d expressions, want 2", len(exprs))
	}
	a := exprs[0].(*List)
	if a.Len() != 3 {
		t.Fatalf("(a ...) has %d elements, want 3", a.Len())
	}
	b := a.Get(1).(*List)
	if s, ok := b.Get(2).(Quoted); !ok || string(s) != `two"q` {
		t.Errorf("string atom = %#v", b.Get(2))
	}
	if s, ok := b.Get(1).(Symbol); !ok || string(s) != "1" {
		t.Errorf("symbol atom = %#v", b.Get(1))
	}
	if c := a.Get(2).(*List); c.Len() != 1 {
		t.Errorf("(c) has %d elements", c.Len())
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"unclosed list", "(a\n(b)\n", 1},
		{"stray paren", "(a)\n)", 2},
		{"unterminated string", "(a\n\"open)", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("ParseString() error = %v, want *SyntaxError", err)
			}
			if se.Line != tt.line {
				t.Errorf("error line = %d, want %d", se.Line, tt.line)
			}
		})
	}
}

func TestLexerTokens(t *testing.T) {
	l := NewLexer(strings.NewReader("(at 1.5 -2)"))
	want := []TokenType{TokenLeftParen, TokenSymbol, TokenSymbol, TokenSymbol, TokenRightParen, TokenEOF}
	for i, w := range want {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("token %d: %v", i, err)
		}
		if tok.Type != w {
			t.Errorf("token %d = %v, want %v", i, tok.Type, w)
		}
	}
}
