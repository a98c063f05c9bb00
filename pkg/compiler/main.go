// Package compiler translates a small expression language into x86-64
// assembly (Intel syntax, System V, entry symbol main).
//
// Pipeline: source → Tokenize → Parse → Generate → assembly text
//
// A program is a sequence of ";"-terminated expressions over integer
// literals, + - * /, comparisons, parentheses and the variables a..z. The
// value of the last statement is returned from main.
package compiler
