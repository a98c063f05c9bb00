package compiler

import (
	"fmt"
	"strings"
)

// NodeKind identifies the operation a Node performs.
type NodeKind int

const (
	ND_ADD    NodeKind = iota // +
	ND_SUB                    // -
	ND_MUL                    // *
	ND_DIV                    // /
	ND_EQ                     // ==
	ND_NE                     // !=
	ND_LT                     // <  (also a > b, operands swapped)
	ND_LE                     // <= (also a >= b, operands swapped)
	ND_ASSIGN                 // =
	ND_VAR                    // variable a..z
	ND_NUM                    // integer literal
)

var nodeKindSymbols = [...]string{
	ND_ADD:    "+",
	ND_SUB:    "-",
	ND_MUL:    "*",
	ND_DIV:    "/",
	ND_EQ:     "==",
	ND_NE:     "!=",
	ND_LT:     "<",
	ND_LE:     "<=",
	ND_ASSIGN: "=",
	ND_VAR:    "var",
	ND_NUM:    "num",
}

func (k NodeKind) String() string {
	if int(k) >= 0 && int(k) < len(nodeKindSymbols) {
		return nodeKindSymbols[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// NumSlots is the number of variable storage slots, one per letter a..z.
const NumSlots = 26

// Node is one vertex of the syntax tree. Binary kinds own both children;
// ND_NUM and ND_VAR are leaves.
//
//	a = 1 + 2
//	  ^          Node{Kind: ND_ASSIGN, Lhs: a, Rhs: (+ 1 2)}
type Node struct {
	Kind   NodeKind
	Lhs    *Node
	Rhs    *Node
	Val    int32 // ND_NUM only
	Offset int   // ND_VAR only: slot index, letter - 'a'
	Pos    int   // source position of the operator or leaf token
}

// Name returns the letter a variable node refers to.
func (n *Node) Name() string {
	return string(rune('a' + n.Offset))
}

// String renders the node as an S-expression, e.g. (= a (+ 1 2)).
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case ND_NUM:
		return fmt.Sprintf("%d", n.Val)
	case ND_VAR:
		return n.Name()
	}
	return fmt.Sprintf("(%s %s %s)", n.Kind, n.Lhs, n.Rhs)
}

// Program is the ordered list of statement roots produced by Parse. It is
// built by exactly one parser and read once by the code generator.
type Program struct {
	Stmts []*Node
}

func (p *Program) String() string {
	var b strings.Builder
	for _, s := range p.Stmts {
		b.WriteString(s.String())
		b.WriteString(";\n")
	}
	return b.String()
}
