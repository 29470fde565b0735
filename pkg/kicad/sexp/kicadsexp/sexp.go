// Package kicadsexp provides a lightweight streaming S-expression parser
// and writer for KiCad board files. Unlike general-purpose sexp libraries,
// this parser can handle arbitrarily large files by streaming, and it keeps
// track of which atoms were quoted so a document can be written back.
package kicadsexp

import (
	"io"
	"strings"
)

// Sexp represents an S-expression node.
// It can be either a leaf (atom) or a list.
type Sexp interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// LeafCount returns the number of elements in a list (1 for atoms)
	LeafCount() int

	// Head returns the first element of a list (the atom itself for atoms)
	Head() Sexp

	// Tail returns the rest of the list after the first element (nil for atoms)
	Tail() Sexp

	// String returns the string representation
	String() string
}

// Symbol represents a bare atom (keyword, number, identifier)
type Symbol string

func (s Symbol) IsLeaf() bool   { return true }
func (s Symbol) LeafCount() int { return 1 }
func (s Symbol) Head() Sexp     { return s }
func (s Symbol) Tail() Sexp     { return nil }
func (s Symbol) String() string { return string(s) }

// Quoted represents an atom that appeared between double quotes.
// String returns the unquoted value; the writer restores the quotes.
type Quoted string

func (q Quoted) IsLeaf() bool   { return true }
func (q Quoted) LeafCount() int { return 1 }
func (q Quoted) Head() Sexp     { return q }
func (q Quoted) Tail() Sexp     { return nil }
func (q Quoted) String() string { return string(q) }

// List represents a list of S-expressions. Lists are mutable so the board
// model can edit a parsed document in place.
type List struct {
	elements []Sexp
}

// NewList builds a list from the given elements.
func NewList(elements ...Sexp) *List {
	return &List{elements: elements}
}

// Node builds a (key values...) list. Strings become bare symbols; use
// Quoted for values that must be written between quotes.
func Node(key string, values ...Sexp) *List {
	elements := make([]Sexp, 0, len(values)+1)
	elements = append(elements, Symbol(key))
	elements = append(elements, values...)
	return &List{elements: elements}
}

func (l *List) IsLeaf() bool { return false }

func (l *List) LeafCount() int {
	return len(l.elements)
}

func (l *List) Head() Sexp {
	if len(l.elements) == 0 {
		return nil
	}
	return l.elements[0]
}

func (l *List) Tail() Sexp {
	if len(l.elements) <= 1 {
		return nil
	}
	return &List{elements: l.elements[1:]}
}

func (l *List) String() string {
	var sb strings.Builder
	writeCompact(&sb, l)
	return sb.String()
}

// Get returns the element at the given index
func (l *List) Get(index int) Sexp {
	if index < 0 || index >= len(l.elements) {
		return nil
	}
	return l.elements[index]
}

// Set replaces the element at the given index. Out of range indexes are ignored.
func (l *List) Set(index int, value Sexp) {
	if index < 0 || index >= len(l.elements) {
		return
	}
	l.elements[index] = value
}

// Len returns the number of elements in the list
func (l *List) Len() int {
	return len(l.elements)
}

// Elements returns the backing elements. Callers must not retain the slice
// across mutations.
func (l *List) Elements() []Sexp {
	return l.elements
}

// Append adds elements at the end of the list.
func (l *List) Append(values ...Sexp) {
	l.elements = append(l.elements, values...)
}

// Insert places values before index. An out of range index appends.
func (l *List) Insert(index int, values ...Sexp) {
	if index < 0 || index >= len(l.elements) {
		l.Append(values...)
		return
	}
	tail := append([]Sexp{}, l.elements[index:]...)
	l.elements = append(append(l.elements[:index], values...), tail...)
}

// Index returns the position of e in the list, or -1.
func (l *List) Index(e Sexp) int {
	for i, item := range l.elements {
		if item == e {
			return i
		}
	}
	return -1
}

// Truncate drops every element from index n onwards.
func (l *List) Truncate(n int) {
	if n < 0 || n >= len(l.elements) {
		return
	}
	for i := n; i < len(l.elements); i++ {
		l.elements[i] = nil
	}
	l.elements = l.elements[:n]
}

// RemoveFunc deletes every element for which drop returns true and reports
// how many were removed.
func (l *List) RemoveFunc(drop func(Sexp) bool) int {
	kept := l.elements[:0]
	removed := 0
	for _, e := range l.elements {
		if drop(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(l.elements); i++ {
		l.elements[i] = nil
	}
	l.elements = kept
	return removed
}

// Clone returns a deep copy of a node. Atoms are immutable and shared.
func Clone(s Sexp) Sexp {
	l, ok := s.(*List)
	if !ok {
		return s
	}
	out := &List{elements: make([]Sexp, len(l.elements))}
	for i, e := range l.elements {
		out.elements[i] = Clone(e)
	}
	return out
}

// Parse parses S-expressions from an io.Reader.
func Parse(r io.Reader) ([]Sexp, error) {
	parser := NewParser(r)
	return parser.ParseAll()
}

// ParseString parses S-expressions from a string (convenience function)
func ParseString(s string) ([]Sexp, error) {
	return Parse(strings.NewReader(s))
}
