package compiler

import (
	"strconv"
	"unicode"
)

// twoCharOps are tried before singleCharOps so "<=" never splits into "<" "=".
var twoCharOps = []string{"==", "!=", "<=", ">="}

var singleCharOps = map[rune]bool{
	'+': true, '-': true, '*': true, '/': true,
	'(': true, ')': true, '<': true, '>': true,
	';': true, '=': true,
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	head Token
	cur  *Token
}

func newLexer(src string) *Lexer {
	l := &Lexer{src: []rune(src)}
	l.cur = &l.head
	return l
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// hasPrefix reports whether the unread input starts with s.
func (l *Lexer) hasPrefix(s string) bool {
	i := l.pos
	for _, r := range s {
		if i >= len(l.src) || l.src[i] != r {
			return false
		}
		i++
	}
	return true
}

// emit appends a token covering src[start:l.pos].
func (l *Lexer) emit(kind TokenKind, start int) *Token {
	tok := &Token{
		Kind: kind,
		Text: string(l.src[start:l.pos]),
		Pos:  start + 1,
		Len:  l.pos - start,
	}
	l.cur.Next = tok
	l.cur = tok
	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.pos++
	}
}

// scanNumber collects a maximal run of decimal digits.
// The first digit must still be at l.peek().
func (l *Lexer) scanNumber() error {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.pos++
	}
	tok := l.emit(NUM, start)
	val, err := strconv.ParseInt(tok.Text, 10, 32)
	if err != nil {
		return errorAt(ScanError, tok.Pos, "number out of range: %s", tok.Text)
	}
	tok.Val = int32(val)
	return nil
}

// next scans one token, or reports false at end of input.
func (l *Lexer) next() (bool, error) {
	l.skipWhitespace()
	if l.pos >= len(l.src) {
		return false, nil
	}

	start := l.pos
	for _, op := range twoCharOps {
		if l.hasPrefix(op) {
			l.pos += 2
			l.emit(RESERVED, start)
			return true, nil
		}
	}

	ch := l.peek()
	if singleCharOps[ch] {
		l.pos++
		l.emit(RESERVED, start)
		return true, nil
	}

	if isDigit(ch) {
		return true, l.scanNumber()
	}

	if unicode.IsLetter(ch) {
		l.pos++
		l.emit(IDENT, start)
		return true, nil
	}

	return false, errorAt(ScanError, start+1, "unexpected character %q", ch)
}

// end returns the index just past the last non-whitespace rune, so an
// end-of-input error lands on the last line that has text.
func (l *Lexer) end() int {
	n := len(l.src)
	for n > 0 && unicode.IsSpace(l.src[n-1]) {
		n--
	}
	return n
}

// isDigit accepts ASCII digits only; unicode.IsDigit would let other
// scripts' digits through to strconv.
func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize scans src and returns the head of the token list, which always
// ends in a single EOF token positioned one past the last non-blank character. It stops at the first character that matches
// no token rule.
func Tokenize(src string) (*Token, error) {
	l := newLexer(src)
	for {
		more, err := l.next()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	l.cur.Next = &Token{Kind: EOF, Pos: l.end() + 1}
	return l.head.Next, nil
}
