package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"minicc/pkg/compiler"
	"minicc/pkg/utils"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: minicc [flags] '<source>'\n")
	fmt.Fprintf(os.Stderr, "       minicc [flags] -f <file>\n")
	fmt.Fprintf(os.Stderr, "       minicc [flags] -batch <file>...\n")
	flag.PrintDefaults()
}

func main() {
	exprMode := flag.Bool("expr", false, "compile a single bare expression (no frame, no ';')")
	inPath := flag.String("f", "", "read the source from a file instead of the argument")
	outPath := flag.String("o", "", "write assembly to a file (default: stdout)")
	fold := flag.Bool("O", false, "fold constant subexpressions")
	batch := flag.Bool("batch", false, "compile every argument as a file, concurrently, to <name>.s")
	verbose := flag.Bool("v", false, "log pipeline stages to stderr")
	flag.Usage = usage
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("minicc: ")

	opts := compiler.Options{Expr: *exprMode, Fold: *fold}

	if *batch {
		if *inPath != "" || *outPath != "" {
			log.Print("-batch does not combine with -f or -o")
			os.Exit(1)
		}
		os.Exit(runBatch(flag.Args(), opts, *verbose))
	}

	src, err := readSource(*inPath, flag.Args())
	if err != nil {
		log.Print(err)
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(compileTo(src, opts, *outPath, *verbose))
}

// compileTo compiles src and writes the listing to outPath, returning the exit
// status. Scan and parse errors write nothing; a generation error still
// writes the assembly emitted before it.
func compileTo(src string, opts compiler.Options, outPath string, verbose bool) int {
	start := time.Now()
	asm, err := compiler.Compile(src, opts)
	if err != nil {
		var cerr *compiler.Error
		if errors.As(err, &cerr) && cerr.Kind == compiler.GenerateError {
			if werr := writeOutput(outPath, asm); werr != nil {
				log.Printf("failed to write partial assembly: %v", werr)
			}
		}
		report(err, src)
		return 1
	}
	if verbose {
		log.Printf("compiled %d characters in %s", len([]rune(src)), time.Since(start))
	}

	if err := writeOutput(outPath, asm); err != nil {
		log.Printf("failed to write assembly: %v", err)
		return 1
	}
	return 0
}

// readSource returns the program text from -f or the single positional
// argument.
func readSource(inPath string, args []string) (string, error) {
	if inPath != "" {
		if len(args) != 0 {
			return "", fmt.Errorf("unexpected arguments with -f: %v", args)
		}
		data, err := os.ReadFile(inPath)
		if err != nil {
			return "", fmt.Errorf("failed to read input file %q: %w", inPath, err)
		}
		return string(data), nil
	}
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one source argument, got %d", len(args))
	}
	return args[0], nil
}

func writeOutput(path, asm string) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err := io.WriteString(w, asm)
	return err
}

// report prints a caret diagnostic for compiler errors and the plain
// message for anything else.
func report(err error, src string) {
	var cerr *compiler.Error
	if errors.As(err, &cerr) {
		fmt.Fprintln(os.Stderr, cerr.Diagnostic(src))
		return
	}
	fmt.Fprintln(os.Stderr, err)
}

func runBatch(paths []string, opts compiler.Options, verbose bool) int {
	if len(paths) == 0 {
		log.Print("-batch needs at least one file")
		return 1
	}

	srcs := make([]string, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Printf("failed to read input file %q: %v", p, err)
			return 1
		}
		srcs[i] = string(data)
	}

	start := time.Now()
	out, err := compiler.CompileAll(context.Background(), srcs, opts)
	if err != nil {
		var berr *compiler.BatchError
		if errors.As(err, &berr) {
			fmt.Fprintf(os.Stderr, "%s:\n", paths[berr.Index])
			report(berr.Err, srcs[berr.Index])
			return 1
		}
		log.Print(err)
		return 1
	}

	for i, p := range paths {
		dst := utils.OutputPath(p, ".s")
		if err := os.WriteFile(dst, []byte(out[i]), 0o644); err != nil {
			log.Printf("failed to write %q: %v", dst, err)
			return 1
		}
		if verbose {
			log.Printf("%s -> %s", p, dst)
		}
	}
	if verbose {
		log.Printf("compiled %d files in %s", len(paths), time.Since(start))
	}
	return 0
}
