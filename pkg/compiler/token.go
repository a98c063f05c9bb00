package compiler

import "fmt"

// TokenKind identifies the category of a scanned token.
type TokenKind int

const (
	RESERVED TokenKind = iota // operator or punctuation
	IDENT                     // single-letter identifier
	NUM                       // decimal integer literal
	EOF                       // sentinel: end of input
)

var tokenKindNames = [...]string{
	RESERVED: "RESERVED",
	IDENT:    "IDENT",
	NUM:      "NUM",
	EOF:      "EOF",
}

func (k TokenKind) String() string {
	if int(k) >= 0 && int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a single lexical unit produced by Tokenize. Tokens form a
// forward-only list that ends in exactly one EOF token.
type Token struct {
	Kind TokenKind
	Next *Token
	Val  int32  // NUM only
	Text string // exact source text; empty for EOF
	Pos  int    // 1-based character offset
	Len  int    // character count
}

// is reports whether t is the reserved symbol op. The length check keeps
// "<" from matching a "<=" token.
func (t *Token) is(op string) bool {
	return t.Kind == RESERVED && t.Len == len(op) && t.Text == op
}

// describe renders the token for "found ..." diagnostics.
func (t *Token) describe() string {
	if t.Kind == EOF {
		return "end of input"
	}
	return fmt.Sprintf("'%s'", t.Text)
}

func (t *Token) String() string {
	return fmt.Sprintf("%-8s %-6q pos %d", t.Kind, t.Text, t.Pos)
}
