package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"minicc/pkg/compiler"
	"minicc/pkg/cpu"
	"minicc/pkg/utils"
)

// console compiles a program and runs it on the emulated machine, printing
// the value main returns. The exit status is that value truncated to a byte,
// the way a shell reports ./a.out.
func main() {
	showAsm := flag.Bool("show-asm", false, "print the generated assembly before running")
	trace := flag.Bool("trace", false, "print every executed instruction")
	exprMode := flag.Bool("expr", false, "treat the input as a single bare expression")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("console: ")

	if flag.NArg() != 1 {
		log.Fatalf("usage: console [-show-asm] [-trace] [-expr] <file>")
	}

	fullPath, _, err := utils.GetPathInfo(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to resolve %q: %v", flag.Arg(0), err)
	}
	sourceBytes, err := os.ReadFile(fullPath)
	if err != nil {
		log.Fatalf("Failed to read source file: %v", err)
	}
	src := string(sourceBytes)

	asm, err := compiler.Compile(src, compiler.Options{Expr: *exprMode})
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostic(err, src))
		os.Exit(1)
	}

	if *showAsm {
		fmt.Print("Generated Assembly:\n", asm, "\n")
	}

	vm, err := cpu.LoadListing(asm)
	if err != nil {
		log.Fatalf("Load failed: %v", err)
	}

	for !vm.Halted {
		if *trace {
			if in, ok := vm.Current(); ok {
				fmt.Printf("%4d  %-20s rax=%d rsp=%#x\n", vm.Steps, in, int64(vm.Regs[cpu.RAX]), vm.Regs[cpu.RSP])
			}
		}
		if err := vm.Step(); err != nil {
			log.Fatalf("Run failed: %v", err)
		}
		if !vm.Halted && vm.Steps >= vm.StepLimit {
			log.Fatalf("Run failed: %v", cpu.ErrStepLimit)
		}
	}

	fmt.Printf("run complete: %d instructions, result %d\n", vm.Steps, vm.Result())
	os.Exit(int(uint8(vm.Result())))
}

// diagnostic renders compiler errors with a caret under the source position.
func diagnostic(err error, src string) string {
	var cerr *compiler.Error
	if errors.As(err, &cerr) {
		return cerr.Diagnostic(src)
	}
	return fmt.Sprintf("Compilation failed: %v", err)
}
