package compiler

import (
	"errors"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		err      *Error
		expected string
	}{
		{&Error{Kind: ParseError, Pos: 7, Msg: "expected ')', found end of input"}, "parse error at position 7: expected ')', found end of input"},
		{&Error{Kind: ScanError, Pos: 1, Msg: "unexpected character '$'"}, "scan error at position 1: unexpected character '$'"},
		{&Error{Kind: GenerateError, Msg: "missing operand"}, "codegen error: missing operand"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestDiagnostic(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		err      *Error
		expected string
	}{
		{
			name:     "Past End Of Input",
			src:      "(1 + 2",
			err:      &Error{Kind: ParseError, Pos: 7, Msg: "expected ')', found end of input"},
			expected: "(1 + 2\n      ^ expected ')', found end of input",
		},
		{
			name:     "First Character",
			src:      "$",
			err:      &Error{Kind: ScanError, Pos: 1, Msg: "unexpected character '$'"},
			expected: "$\n^ unexpected character '$'",
		},
		{
			name:     "Later Line",
			src:      "a = 1;\nb = $;\nc;",
			err:      &Error{Kind: ScanError, Pos: 12, Msg: "unexpected character '$'"},
			expected: "b = $;\n    ^ unexpected character '$'",
		},
		{
			name:     "No Position",
			src:      "1;",
			err:      &Error{Kind: GenerateError, Msg: "missing operand"},
			expected: "codegen error: missing operand",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Diagnostic(tt.src); got != tt.expected {
				t.Errorf("Diagnostic\n got %q\nwant %q", got, tt.expected)
			}
		})
	}
}

func TestDiagnosticAtEndOfFile(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		pos      int
		expected string
	}{
		{"Unclosed Parenthesis", "(1 + 2\n", 7, "(1 + 2\n      ^ expected ')', found end of input"},
		{"Missing Semicolon", "a = 1;\nb = 2\n", 13, "b = 2\n     ^ expected ';', found end of input"},
		{"Trailing Blank Lines", "1 +\n\n\t\n", 4, "1 +\n   ^ expected a number, found end of input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src, Options{})
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if cerr.Pos != tt.pos {
				t.Errorf("Pos: expected %d, got %d", tt.pos, cerr.Pos)
			}
			if got := cerr.Diagnostic(tt.src); got != tt.expected {
				t.Errorf("Diagnostic\n got %q\nwant %q", got, tt.expected)
			}
		})
	}
}

func TestDiagnosticFromPipeline(t *testing.T) {
	src := "x = 4 +\n  y * ;"
	_, err := Compile(src, Options{})
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	expected := "  y * ;\n      ^ expected a number, found ';'"
	if got := cerr.Diagnostic(src); got != expected {
		t.Errorf("Diagnostic\n got %q\nwant %q", got, expected)
	}
}
