package compiler

import (
	"fmt"
	"strings"
)

// CodeGen walks an AST and emits x86-64 assembly in Intel syntax.
//
// Every expression is compiled as a stack machine: evaluating a node leaves
// exactly one 8-byte value pushed on the hardware stack. rdi is the first
// scratch register and rax the second.
type CodeGen struct {
	frame *Frame // nil in single-expression mode
	out   strings.Builder
	depth int // values currently pushed by generated code
}

func newCodeGen(frame *Frame) *CodeGen {
	return &CodeGen{frame: frame}
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

func (cg *CodeGen) push(operand string) {
	cg.line("  push %s", operand)
	cg.depth++
}

func (cg *CodeGen) pop(reg string) {
	cg.line("  pop %s", reg)
	cg.depth--
}

// binaryInstrs holds the instructions that combine rax (left) and rdi
// (right) into rax.
var binaryInstrs = map[NodeKind][]string{
	ND_ADD: {"add rax, rdi"},
	ND_SUB: {"sub rax, rdi"},
	ND_MUL: {"imul rax, rdi"},
	ND_DIV: {"cqo", "idiv rdi"},
	ND_EQ:  {"cmp rax, rdi", "sete al", "movzb rax, al"},
	ND_NE:  {"cmp rax, rdi", "setne al", "movzb rax, al"},
	ND_LT:  {"cmp rax, rdi", "setl al", "movzb rax, al"},
	ND_LE:  {"cmp rax, rdi", "setle al", "movzb rax, al"},
}

func (cg *CodeGen) header() {
	cg.line(".intel_syntax noprefix")
	cg.line(".globl main")
	cg.line("main:")
}

// genAddr pushes the address of a variable slot. It is an error if the node
// does not name a variable.
func (cg *CodeGen) genAddr(n *Node) error {
	if n.Kind != ND_VAR {
		return errorAt(GenerateError, n.Pos, "left side of assignment is not a variable: %s", n)
	}
	if cg.frame == nil {
		return errorAt(GenerateError, n.Pos, "variable '%s' needs a stack frame; compile as a program", n.Name())
	}
	disp, err := cg.frame.Displacement(n.Offset)
	if err != nil {
		return errorAt(GenerateError, n.Pos, "%v", err)
	}
	cg.line("  mov rax, rbp")
	cg.line("  sub rax, %d", disp)
	cg.push("rax")
	return nil
}

func (cg *CodeGen) genExpr(n *Node) error {
	if n == nil {
		return errorAt(GenerateError, 0, "missing operand")
	}

	switch n.Kind {
	case ND_NUM:
		cg.push(fmt.Sprintf("%d", n.Val))
		return nil

	case ND_VAR:
		if err := cg.genAddr(n); err != nil {
			return err
		}
		cg.pop("rax")
		cg.line("  mov rax, [rax]")
		cg.push("rax")
		return nil

	case ND_ASSIGN:
		if n.Lhs == nil {
			return errorAt(GenerateError, n.Pos, "assignment without a target")
		}
		if err := cg.genAddr(n.Lhs); err != nil {
			return err
		}
		if err := cg.genExpr(n.Rhs); err != nil {
			return err
		}
		cg.pop("rdi")
		cg.pop("rax")
		cg.line("  mov [rax], rdi")
		cg.push("rdi")
		return nil
	}

	instrs, ok := binaryInstrs[n.Kind]
	if !ok {
		return errorAt(GenerateError, n.Pos, "invalid node kind %s", n.Kind)
	}
	if n.Lhs == nil || n.Rhs == nil {
		return errorAt(GenerateError, n.Pos, "operator %s is missing an operand", n.Kind)
	}

	if err := cg.genExpr(n.Lhs); err != nil {
		return err
	}
	if err := cg.genExpr(n.Rhs); err != nil {
		return err
	}
	cg.pop("rdi")
	cg.pop("rax")
	for _, instr := range instrs {
		cg.line("  %s", instr)
	}
	cg.push("rax")
	return nil
}

// genStmt emits one statement and pops its value into rax.
func (cg *CodeGen) genStmt(n *Node) error {
	if err := cg.genExpr(n); err != nil {
		return err
	}
	cg.pop("rax")
	if cg.depth != 0 {
		return errorAt(GenerateError, n.Pos, "stack depth %d after statement, want 0", cg.depth)
	}
	return nil
}

// Generate emits a complete main function for prog. The value of the last
// statement is left in rax as the return value. On error the assembly
// emitted so far is returned alongside it.
func Generate(prog *Program, frame *Frame) (string, error) {
	if frame == nil {
		frame = NewFrame()
	}
	cg := newCodeGen(frame)
	cg.header()

	cg.line("  push rbp")
	cg.line("  mov rbp, rsp")
	cg.line("  sub rsp, %d", frame.Size())

	for _, stmt := range prog.Stmts {
		if err := cg.genStmt(stmt); err != nil {
			return cg.out.String(), err
		}
	}
	if len(prog.Stmts) == 0 {
		cg.line("  mov rax, 0")
	}

	cg.line("  mov rsp, rbp")
	cg.line("  pop rbp")
	cg.line("  ret")
	return cg.out.String(), nil
}

// GenerateExpr emits main for a single bare expression: no frame, so
// variables are rejected.
func GenerateExpr(node *Node) (string, error) {
	cg := newCodeGen(nil)
	cg.header()
	if err := cg.genStmt(node); err != nil {
		return cg.out.String(), err
	}
	cg.line("  ret")
	return cg.out.String(), nil
}
