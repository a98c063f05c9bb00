package compiler

import (
	"errors"
	"reflect"
	"testing"
)

func parseSource(t *testing.T, src string) *Program {
	t.Helper()
	tok, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", src, err)
	}
	prog, err := Parse(tok)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return prog
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"Empty Program", "", nil},
		{"Literal", "42;", []string{"42"}},
		{"Precedence", "1 + 2 * 3;", []string{"(+ 1 (* 2 3))"}},
		{"Parentheses", "(1 + 2) * 3;", []string{"(* (+ 1 2) 3)"}},
		{"Left Associative Subtraction", "10 - 4 - 3;", []string{"(- (- 10 4) 3)"}},
		{"Left Associative Division", "100 / 10 / 5;", []string{"(/ (/ 100 10) 5)"}},
		{"Equality Chain", "1 == 2 != 3;", []string{"(!= (== 1 2) 3)"}},
		{"Relational Binds Tighter", "1 < 2 + 3;", []string{"(< 1 (+ 2 3))"}},
		{"Equality Below Relational", "1 < 2 == 1;", []string{"(== (< 1 2) 1)"}},
		{"Greater Is Swapped Less", "3 > 2;", []string{"(< 2 3)"}},
		{"Greater Equal Is Swapped Less Equal", "a >= b;", []string{"(<= b a)"}},
		{"Unary Minus", "-x;", []string{"(- 0 x)"}},
		{"Unary Plus Vanishes", "+5;", []string{"5"}},
		{"Double Negation", "- -3;", []string{"(- 0 (- 0 3))"}},
		{"Unary Binds Tighter Than Multiply", "2 * -3;", []string{"(* 2 (- 0 3))"}},
		{"Assignment", "a = 1;", []string{"(= a 1)"}},
		{"Assignment Is Right Associative", "a = b = 1;", []string{"(= a (= b 1))"}},
		{"Assignment Is Loosest", "a = 1 == 2;", []string{"(= a (== 1 2))"}},
		{"Nested Assignment", "x = 2 * (y = 4);", []string{"(= x (* 2 (= y 4)))"}},
		{"Sequence", "1; 2; 3;", []string{"1", "2", "3"}},
		{"Non Variable Target Still Parses", "1 = 2;", []string{"(= 1 2)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := parseSource(t, tt.input)
			var got []string
			for _, s := range prog.Stmts {
				got = append(got, s.String())
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Parse(%q)\n got %q\nwant %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseVariableSlots(t *testing.T) {
	prog := parseSource(t, "a; m; z;")
	expected := []int{0, 12, 25}
	for i, s := range prog.Stmts {
		if s.Kind != ND_VAR {
			t.Fatalf("stmt %d: expected ND_VAR, got %v", i, s.Kind)
		}
		if s.Offset != expected[i] {
			t.Errorf("stmt %d: expected slot %d, got %d", i, expected[i], s.Offset)
		}
	}
}

func TestParseSwappedComparisonsMatch(t *testing.T) {
	pairs := [][2]string{
		{"3 > 2;", "2 < 3;"},
		{"a >= b;", "b <= a;"},
	}
	for _, pair := range pairs {
		a := parseSource(t, pair[0]).String()
		b := parseSource(t, pair[1]).String()
		if a != b {
			t.Errorf("%q and %q should build the same tree, got %q and %q", pair[0], pair[1], a, b)
		}
	}
}

func TestParsePositions(t *testing.T) {
	prog := parseSource(t, "a = 12 + b;")
	assign := prog.Stmts[0]
	if assign.Pos != 3 {
		t.Errorf("assign Pos: expected 3, got %d", assign.Pos)
	}
	if assign.Lhs.Pos != 1 {
		t.Errorf("var Pos: expected 1, got %d", assign.Lhs.Pos)
	}
	add := assign.Rhs
	if add.Pos != 8 || add.Lhs.Pos != 5 || add.Rhs.Pos != 10 {
		t.Errorf("add positions: expected 8/5/10, got %d/%d/%d", add.Pos, add.Lhs.Pos, add.Rhs.Pos)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		pos     int
		message string
	}{
		{"Unclosed Parenthesis", "(1 + 2", 7, "expected ')', found end of input"},
		{"Unclosed Parenthesis Before Semicolon", "(1 + 2;", 7, "expected ')', found ';'"},
		{"Missing Semicolon", "1 + 2", 6, "expected ';', found end of input"},
		{"Missing Operand", "1 + ;", 5, "expected a number, found ';'"},
		{"Empty Statement", ";", 1, "expected a number, found ';'"},
		{"Stray Close", ");", 1, "expected a number, found ')'"},
		{"Two Letters", "ab;", 2, "expected ';', found 'b'"},
		{"Uppercase Variable", "A = 1;", 1, "'A' is not a variable name (a-z)"},
		{"Second Statement", "a = 1; b = ;", 12, "expected a number, found ';'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize failed: %v", err)
			}
			prog, err := Parse(tok)
			if err == nil {
				t.Fatalf("Parse(%q) expected error, got %v", tt.input, prog)
			}
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if cerr.Kind != ParseError {
				t.Errorf("Kind: expected %v, got %v", ParseError, cerr.Kind)
			}
			if cerr.Pos != tt.pos {
				t.Errorf("Pos: expected %d, got %d", tt.pos, cerr.Pos)
			}
			if cerr.Msg != tt.message {
				t.Errorf("Msg: expected %q, got %q", tt.message, cerr.Msg)
			}
		})
	}
}

func TestParseExpr(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"Arithmetic", "1 + 2 * 3", "(+ 1 (* 2 3))", false},
		{"Comparison", "4 >= 2", "(<= 2 4)", false},
		{"Variables Still Parse", "a + 1", "(+ a 1)", false},
		{"Trailing Semicolon", "1 + 2;", "", true},
		{"Trailing Tokens", "1 2", "", true},
		{"Empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize failed: %v", err)
			}
			node, err := ParseExpr(tok)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseExpr(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if node.String() != tt.expected {
				t.Errorf("ParseExpr(%q): expected %s, got %s", tt.input, tt.expected, node)
			}
		})
	}
}
