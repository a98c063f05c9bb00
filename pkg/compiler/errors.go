package compiler

import (
	"fmt"
	"strings"
)

// ErrorKind classifies which pipeline stage rejected the input.
type ErrorKind int

const (
	ScanError     ErrorKind = iota // a character matches no token rule
	ParseError                     // the token stream does not match the grammar
	GenerateError                  // the tree violates a code generator invariant
)

func (k ErrorKind) String() string {
	switch k {
	case ScanError:
		return "scan error"
	case ParseError:
		return "parse error"
	case GenerateError:
		return "codegen error"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the single error type returned by every stage. Pos is the 1-based
// character offset the error refers to, or 0 when no position applies.
type Error struct {
	Kind ErrorKind
	Pos  int
	Msg  string
}

func (e *Error) Error() string {
	if e.Pos > 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Kind, e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Diagnostic renders the source line holding Pos with a caret under the
// offending character, followed by the message.
//
//	1 + $
//	    ^ unexpected character '$'
func (e *Error) Diagnostic(src string) string {
	if e.Pos <= 0 {
		return e.Error()
	}

	runes := []rune(src)
	idx := e.Pos - 1
	if idx > len(runes) {
		idx = len(runes)
	}

	start := idx
	for start > 0 && runes[start-1] != '\n' {
		start--
	}
	end := idx
	for end < len(runes) && runes[end] != '\n' {
		end++
	}

	var b strings.Builder
	b.WriteString(string(runes[start:end]))
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", idx-start))
	b.WriteString("^ ")
	b.WriteString(e.Msg)
	return b.String()
}

func errorAt(kind ErrorKind, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
