package main

import (
	"errors"
	"fmt"
	"os"

	"minicc/pkg/compiler"
)

const testSource = `a = 3;
b = a * (4 + 1);
b > 10;
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}

	fmt.Printf("Source:\n%s\n", src)

	// Scan
	tok, err := compiler.Tokenize(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostic(err, src))
		os.Exit(1)
	}

	fmt.Println("Tokens")
	count := 0
	for t := tok; t != nil; t = t.Next {
		fmt.Println(" ", t)
		count++
	}
	fmt.Printf("(%d tokens)\n\n", count)

	// Parse
	prog, err := compiler.Parse(tok)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostic(err, src))
		os.Exit(1)
	}

	fmt.Println("AST")
	for _, s := range prog.Stmts {
		fmt.Println(" ", s)
	}
	fmt.Println()

	// Code generation
	frame := compiler.NewFrame()
	asm, err := compiler.Generate(prog, frame)
	if err != nil {
		fmt.Print(asm)
		fmt.Fprintln(os.Stderr, diagnostic(err, src))
		os.Exit(1)
	}

	fmt.Println("Generated Assembly")
	fmt.Print(asm)
	fmt.Println()
	fmt.Print(frame)
}

func diagnostic(err error, src string) string {
	var cerr *compiler.Error
	if errors.As(err, &cerr) {
		return cerr.Diagnostic(src)
	}
	return err.Error()
}
