package compiler

import (
	"errors"
	"strings"
	"testing"
)

func generateSource(t *testing.T, src string) string {
	t.Helper()
	asm, err := Generate(parseSource(t, src), NewFrame())
	if err != nil {
		t.Fatalf("Generate(%q) failed: %v\nPartial:\n%s", src, err, asm)
	}
	return asm
}

func TestGenerateListing(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:  "Empty Program Returns Zero",
			input: "",
			expected: `.intel_syntax noprefix
.globl main
main:
  push rbp
  mov rbp, rsp
  sub rsp, 208
  mov rax, 0
  mov rsp, rbp
  pop rbp
  ret
`,
		},
		{
			name:  "Assignment",
			input: "a = 1;",
			expected: `.intel_syntax noprefix
.globl main
main:
  push rbp
  mov rbp, rsp
  sub rsp, 208
  mov rax, rbp
  sub rax, 8
  push rax
  push 1
  pop rdi
  pop rax
  mov [rax], rdi
  push rdi
  pop rax
  mov rsp, rbp
  pop rbp
  ret
`,
		},
		{
			name:  "Variable Read",
			input: "c;",
			expected: `.intel_syntax noprefix
.globl main
main:
  push rbp
  mov rbp, rsp
  sub rsp, 208
  mov rax, rbp
  sub rax, 24
  push rax
  pop rax
  mov rax, [rax]
  push rax
  pop rax
  mov rsp, rbp
  pop rbp
  ret
`,
		},
		{
			name:  "Comparison",
			input: "1 < 2;",
			expected: `.intel_syntax noprefix
.globl main
main:
  push rbp
  mov rbp, rsp
  sub rsp, 208
  push 1
  push 2
  pop rdi
  pop rax
  cmp rax, rdi
  setl al
  movzb rax, al
  push rax
  pop rax
  mov rsp, rbp
  pop rbp
  ret
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := generateSource(t, tt.input)
			if got != tt.expected {
				t.Errorf("Generate(%q)\n got:\n%s\nwant:\n%s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGenerateExprListing(t *testing.T) {
	tok, err := Tokenize("1 + 2")
	if err != nil {
		t.Fatal(err)
	}
	node, err := ParseExpr(tok)
	if err != nil {
		t.Fatal(err)
	}
	got, err := GenerateExpr(node)
	if err != nil {
		t.Fatalf("GenerateExpr failed: %v", err)
	}
	expected := `.intel_syntax noprefix
.globl main
main:
  push 1
  push 2
  pop rdi
  pop rax
  add rax, rdi
  push rax
  pop rax
  ret
`
	if got != expected {
		t.Errorf("GenerateExpr\n got:\n%s\nwant:\n%s", got, expected)
	}
}

func TestGenerateDivision(t *testing.T) {
	asm := generateSource(t, "7 / 2;")
	if !strings.Contains(asm, "  cqo\n  idiv rdi\n") {
		t.Errorf("expected sign extension before idiv, got:\n%s", asm)
	}
}

func TestGenerateSlotDisplacements(t *testing.T) {
	tests := []struct {
		src  string
		disp string
	}{
		{"a;", "sub rax, 8\n"},
		{"b;", "sub rax, 16\n"},
		{"z;", "sub rax, 208\n"},
	}
	for _, tt := range tests {
		asm := generateSource(t, tt.src)
		if !strings.Contains(asm, tt.disp) {
			t.Errorf("%s: expected %q in:\n%s", tt.src, tt.disp, asm)
		}
	}
}

func TestGenerateSwappedComparisonsAreIdentical(t *testing.T) {
	pairs := [][2]string{
		{"3 > 2;", "2 < 3;"},
		{"5 >= 4;", "4 <= 5;"},
		{"a > b;", "b < a;"},
	}
	for _, pair := range pairs {
		a := generateSource(t, pair[0])
		b := generateSource(t, pair[1])
		if a != b {
			t.Errorf("%q and %q should generate identical assembly\n%s\n---\n%s", pair[0], pair[1], a, b)
		}
	}
}

func TestGenerateBalancedStack(t *testing.T) {
	asm := generateSource(t, "a = b = 3; (a + b) * (a - -b) / 2 == 9 != (c <= 4);")
	pushes := strings.Count(asm, "  push ")
	pops := strings.Count(asm, "  pop ")
	// The prologue's push rbp is matched by the epilogue's pop rbp.
	if pushes != pops {
		t.Errorf("expected balanced push/pop, got %d pushes and %d pops", pushes, pops)
	}
}

func TestGenerateRecordsFrameUse(t *testing.T) {
	frame := NewFrame()
	if _, err := Generate(parseSource(t, "b = 1; d;"), frame); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < NumSlots; i++ {
		want := i == 1 || i == 3
		if frame.Used(i) != want {
			t.Errorf("slot %c: expected used=%t", 'a'+i, want)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		prog    *Program
		pos     int
		message string
	}{
		{
			name:    "Literal Assignment Target",
			prog:    &Program{Stmts: []*Node{newBinary(ND_ASSIGN, newNum(1, 1), newNum(2, 5), 3)}},
			pos:     1,
			message: "left side of assignment is not a variable: 1",
		},
		{
			name:    "Unknown Node Kind",
			prog:    &Program{Stmts: []*Node{{Kind: NodeKind(99), Pos: 4}}},
			pos:     4,
			message: "invalid node kind NodeKind(99)",
		},
		{
			name:    "Missing Operand",
			prog:    &Program{Stmts: []*Node{{Kind: ND_ADD, Lhs: newNum(1, 1), Pos: 2}}},
			pos:     2,
			message: "operator + is missing an operand",
		},
		{
			name:    "Slot Out Of Range",
			prog:    &Program{Stmts: []*Node{{Kind: ND_VAR, Offset: NumSlots, Pos: 1}}},
			pos:     1,
			message: "slot 26 outside frame of 26",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asm, err := Generate(tt.prog, NewFrame())
			if err == nil {
				t.Fatalf("expected error, got:\n%s", asm)
			}
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if cerr.Kind != GenerateError {
				t.Errorf("Kind: expected %v, got %v", GenerateError, cerr.Kind)
			}
			if cerr.Pos != tt.pos {
				t.Errorf("Pos: expected %d, got %d", tt.pos, cerr.Pos)
			}
			if cerr.Msg != tt.message {
				t.Errorf("Msg: expected %q, got %q", tt.message, cerr.Msg)
			}
			if !strings.HasPrefix(asm, ".intel_syntax noprefix\n") {
				t.Errorf("expected the partial listing to be returned, got %q", asm)
			}
			if strings.HasSuffix(asm, "ret\n") {
				t.Errorf("partial listing must not carry the epilogue:\n%s", asm)
			}
		})
	}
}

func TestGenerateExprRejectsVariables(t *testing.T) {
	tok, err := Tokenize("a + 1")
	if err != nil {
		t.Fatal(err)
	}
	node, err := ParseExpr(tok)
	if err != nil {
		t.Fatal(err)
	}
	_, err = GenerateExpr(node)
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != GenerateError {
		t.Fatalf("expected a codegen error, got %v", err)
	}
	if cerr.Pos != 1 {
		t.Errorf("Pos: expected 1, got %d", cerr.Pos)
	}
}
