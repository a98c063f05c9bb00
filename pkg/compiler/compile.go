package compiler

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Options selects how Compile treats its input.
type Options struct {
	// Expr compiles a single bare expression without a frame instead of a
	// sequence of statements.
	Expr bool
	// Fold evaluates literal-only subtrees at compile time.
	Fold bool
}

// Compile runs the whole pipeline on src. Scan and parse errors return no
// assembly; a generation error returns the assembly emitted before it.
func Compile(src string, opts Options) (string, error) {
	tok, err := Tokenize(src)
	if err != nil {
		return "", err
	}

	if opts.Expr {
		node, err := ParseExpr(tok)
		if err != nil {
			return "", err
		}
		if opts.Fold {
			node = foldNode(node)
		}
		return GenerateExpr(node)
	}

	prog, err := Parse(tok)
	if err != nil {
		return "", err
	}
	if opts.Fold {
		foldConstants(prog)
	}
	return Generate(prog, NewFrame())
}

// BatchError reports which source of a CompileAll call failed.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("source %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// CompileAll compiles every source concurrently. Each compilation owns its
// tokens, Program and Frame; nothing is shared between them. The first
// failure cancels the remaining work and is returned as a *BatchError.
func CompileAll(ctx context.Context, srcs []string, opts Options) ([]string, error) {
	out := make([]string, len(srcs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range srcs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			asm, err := Compile(src, opts)
			if err != nil {
				return &BatchError{Index: i, Err: err}
			}
			out[i] = asm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
