package compiler

import "math"

// foldConstants rewrites every operator whose operands are both literals into
// a single literal, bottom-up. Arithmetic follows the generated code: 64-bit
// two's complement with truncating division. A subtree is left alone when
// folding would divide by zero or produce a value that does not fit the
// sign-extended 32-bit immediate of "push".
func foldConstants(prog *Program) {
	for i, stmt := range prog.Stmts {
		prog.Stmts[i] = foldNode(stmt)
	}
}

func foldNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	n.Lhs = foldNode(n.Lhs)
	n.Rhs = foldNode(n.Rhs)

	if n.Lhs == nil || n.Rhs == nil || n.Lhs.Kind != ND_NUM || n.Rhs.Kind != ND_NUM {
		return n
	}

	l, r := int64(n.Lhs.Val), int64(n.Rhs.Val)
	var v int64
	switch n.Kind {
	case ND_ADD:
		v = l + r
	case ND_SUB:
		v = l - r
	case ND_MUL:
		v = l * r
	case ND_DIV:
		if r == 0 {
			return n
		}
		v = l / r
	case ND_EQ:
		v = boolToInt(l == r)
	case ND_NE:
		v = boolToInt(l != r)
	case ND_LT:
		v = boolToInt(l < r)
	case ND_LE:
		v = boolToInt(l <= r)
	default:
		return n
	}

	if v < math.MinInt32 || v > math.MaxInt32 {
		return n
	}
	return newNum(int32(v), n.Pos)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
