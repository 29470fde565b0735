package kicadsexp

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
)

// inlineLimit is the widest list that is written on a single line when it
// also contains sub-lists.
const inlineLimit = 96

// Float formats a millimeter or degree value the way KiCad does: at most six
// decimals (nanometer resolution), no trailing zeros, no exponent.
func Float(v float64) Symbol {
	r := math.Round(v*1e6) / 1e6
	if r == 0 {
		// Avoid "-0"
		r = 0
	}
	return Symbol(strconv.FormatFloat(r, 'f', -1, 64))
}

// Int formats an integer value.
func Int(v int) Symbol {
	return Symbol(strconv.Itoa(v))
}

// Bool formats a KiCad yes/no flag.
func Bool(v bool) Symbol {
	if v {
		return Symbol("yes")
	}
	return Symbol("no")
}

// Write pretty-prints a sequence of S-expressions, one top-level expression
// per line, indenting nested lists with tabs like KiCad does.
func Write(w io.Writer, exprs ...Sexp) error {
	bw := bufio.NewWriter(w)
	for _, e := range exprs {
		writeIndented(bw, e, 0)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Format returns the pretty-printed form of a single expression.
func Format(s Sexp) string {
	var sb strings.Builder
	writeIndented(&sb, s, 0)
	return sb.String()
}

type stringWriter interface {
	io.Writer
	WriteString(string) (int, error)
	WriteByte(byte) error
}

func writeAtom(w stringWriter, s Sexp) {
	switch v := s.(type) {
	case Quoted:
		w.WriteByte('"')
		w.WriteString(escape(string(v)))
		w.WriteByte('"')
	case Symbol:
		w.WriteString(string(v))
	}
}

func escape(s string) string {
	if !strings.ContainsAny(s, "\"\\\n\t\r") {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func writeCompact(w stringWriter, s Sexp) {
	l, ok := s.(*List)
	if !ok {
		writeAtom(w, s)
		return
	}
	w.WriteByte('(')
	for i, e := range l.elements {
		if i > 0 {
			w.WriteByte(' ')
		}
		writeCompact(w, e)
	}
	w.WriteByte(')')
}

func hasSubList(l *List) bool {
	for _, e := range l.elements {
		if _, ok := e.(*List); ok {
			return true
		}
	}
	return false
}

func compactLen(s Sexp, limit int) int {
	l, ok := s.(*List)
	if !ok {
		if q, ok := s.(Quoted); ok {
			return len(q) + 2
		}
		return len(s.String())
	}
	n := 2
	for i, e := range l.elements {
		if i > 0 {
			n++
		}
		n += compactLen(e, limit-n)
		if n > limit {
			return n
		}
	}
	return n
}

func writeIndented(w stringWriter, s Sexp, depth int) {
	l, ok := s.(*List)
	if !ok {
		writeAtom(w, s)
		return
	}
	if !hasSubList(l) || (depth > 0 && compactLen(l, inlineLimit) <= inlineLimit) {
		writeCompact(w, l)
		return
	}

	w.WriteByte('(')
	i := 0
	// Leading atoms stay on the opening line: (footprint "R_0603" ...
	for ; i < len(l.elements); i++ {
		if _, isList := l.elements[i].(*List); isList {
			break
		}
		if i > 0 {
			w.WriteByte(' ')
		}
		writeAtom(w, l.elements[i])
	}
	indent := strings.Repeat("\t", depth+1)
	for ; i < len(l.elements); i++ {
		w.WriteByte('\n')
		w.WriteString(indent)
		writeIndented(w, l.elements[i], depth+1)
	}
	w.WriteByte('\n')
	w.WriteString(strings.Repeat("\t", depth))
	w.WriteByte(')')
}
