package kicadsexp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TokenType is the kind of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenSymbol
	TokenString
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenLeftParen:
		return "'('"
	case TokenRightParen:
		return "')'"
	case TokenSymbol:
		return "symbol"
	case TokenString:
		return "string"
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is one lexical token with the line it starts on.
type Token struct {
	Type  TokenType
	Value string
	Line  int
}

// SyntaxError reports malformed input.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Lexer splits a board or footprint file into tokens. Input is scanned
// byte by byte; multi byte UTF-8 sequences only occur inside atoms and pass
// through unchanged.
type Lexer struct {
	r    *bufio.Reader
	line int
	buf  strings.Builder
}

// NewLexer returns a lexer reading from r.
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{r: bufio.NewReaderSize(r, 64*1024), line: 1}
}

// Line returns the current 1 based line.
func (l *Lexer) Line() int { return l.line }

func (l *Lexer) errorf(format string, args ...any) error {
	return &SyntaxError{Line: l.line, Msg: fmt.Sprintf(format, args...)}
}

// next returns the next byte, counting lines.
func (l *Lexer) next() (byte, error) {
	c, err := l.r.ReadByte()
	if err == nil && c == '\n' {
		l.line++
	}
	return c, err
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDelimiter(c byte) bool {
	return isSpace(c) || c == '(' || c == ')' || c == '"'
}

// NextToken returns the next token. At the end of input it returns a
// TokenEOF token and a nil error.
func (l *Lexer) NextToken() (Token, error) {
	var c byte
	var err error
	for {
		if c, err = l.next(); err != nil {
			if errors.Is(err, io.EOF) {
				return Token{Type: TokenEOF, Line: l.line}, nil
			}
			return Token{}, err
		}
		if !isSpace(c) {
			break
		}
	}

	line := l.line
	switch c {
	case '(':
		return Token{Type: TokenLeftParen, Value: "(", Line: line}, nil
	case ')':
		return Token{Type: TokenRightParen, Value: ")", Line: line}, nil
	case '"':
		s, err := l.quoted()
		return Token{Type: TokenString, Value: s, Line: line}, err
	}
	if err := l.r.UnreadByte(); err != nil {
		return Token{}, err
	}
	s, err := l.symbol()
	return Token{Type: TokenSymbol, Value: s, Line: line}, err
}

// quoted reads the rest of a string atom after its opening quote.
func (l *Lexer) quoted() (string, error) {
	l.buf.Reset()
	start := l.line
	for {
		c, err := l.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", &SyntaxError{Line: start, Msg: "unterminated string"}
			}
			return "", err
		}
		switch c {
		case '"':
			return l.buf.String(), nil
		case '\\':
			e, err := l.next()
			if err != nil {
				return "", l.errorf("unterminated escape")
			}
			l.buf.WriteByte(unescape(e))
		default:
			l.buf.WriteByte(c)
		}
	}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	}
	return c
}

// symbol reads a bare atom up to the next delimiter.
func (l *Lexer) symbol() (string, error) {
	l.buf.Reset()
	for {
		c, err := l.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		if isDelimiter(c) {
			if err := l.r.UnreadByte(); err != nil {
				return "", err
			}
			break
		}
		l.buf.WriteByte(c)
	}
	if l.buf.Len() == 0 {
		return "", l.errorf("empty symbol")
	}
	return l.buf.String(), nil
}
