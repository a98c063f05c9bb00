package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// OperandKind says how an instruction operand is addressed.
type OperandKind int

const (
	Reg OperandKind = iota // rax
	Imm                    // 42
	Mem                    // [rax]
)

// Operand is one decoded instruction argument. Reg names the register for
// both Reg and Mem operands.
type Operand struct {
	Kind OperandKind
	Reg  string
	Imm  int64
}

func (o Operand) String() string {
	switch o.Kind {
	case Imm:
		return strconv.FormatInt(o.Imm, 10)
	case Mem:
		return "[" + o.Reg + "]"
	}
	return o.Reg
}

// Instruction is one decoded source line.
type Instruction struct {
	Line int // 1-based source line
	Op   string
	Args []Operand
}

func (in Instruction) String() string {
	if len(in.Args) == 0 {
		return in.Op
	}
	args := make([]string, len(in.Args))
	for i, a := range in.Args {
		args[i] = a.String()
	}
	return in.Op + " " + strings.Join(args, ", ")
}

// Program is the decoded form of an assembly listing.
type Program struct {
	Instructions []Instruction
	Labels       map[string]int // label -> index of the instruction it precedes
	Globals      []string
}

// Entry returns the instruction index of a global label.
func (p *Program) Entry(name string) (int, error) {
	for _, g := range p.Globals {
		if g == name {
			return p.Labels[name], nil
		}
	}
	return 0, fmt.Errorf("no global symbol %q", name)
}

// RegWidth holds the width in bits of every register the reader accepts.
var RegWidth = map[string]int{
	"rax": 64,
	"rdi": 64,
	"rdx": 64,
	"rbp": 64,
	"rsp": 64,
	"al":  8,
}

// forms lists the accepted operand shapes per mnemonic: r register,
// i immediate, m memory. An empty string means no operands.
var forms = map[string][]string{
	"push":  {"r", "i"},
	"pop":   {"r"},
	"mov":   {"r,r", "r,i", "r,m", "m,r"},
	"add":   {"r,r", "r,i"},
	"sub":   {"r,r", "r,i"},
	"imul":  {"r,r"},
	"cmp":   {"r,r", "r,i"},
	"idiv":  {"r"},
	"cqo":   {""},
	"ret":   {""},
	"sete":  {"r"},
	"setne": {"r"},
	"setl":  {"r"},
	"setle": {"r"},
	"setg":  {"r"},
	"setge": {"r"},
	"movzb": {"r,r"},
	"movzx": {"r,r"},
}

type Assembler struct {
	labels  map[string]int
	globals []string
	intel   bool
}

type parsedLine struct {
	lineNo    int
	labels    []string
	mnemonic  string
	operands  []string
	directive bool
}

func NewAssembler() *Assembler {
	return &Assembler{labels: make(map[string]int)}
}

// Parse decodes an Intel-syntax listing.
func Parse(code string) (*Program, error) {
	return NewAssembler().Parse(code)
}

func (a *Assembler) Parse(code string) (*Program, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}
	return a.pass2(lines)
}

// pass1 assigns every label the index of the instruction that follows it.
func (a *Assembler) pass1(lines []string) error {
	index := 0
	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[lbl] = index
		}

		if p.mnemonic != "" && !p.directive {
			index++
		}
	}
	return nil
}

func (a *Assembler) pass2(lines []string) (*Program, error) {
	prog := &Program{Labels: a.labels}

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}
		if p.mnemonic == "" {
			continue
		}

		if p.directive {
			if err := a.directive(p); err != nil {
				return nil, err
			}
			continue
		}

		if !a.intel {
			return nil, fmt.Errorf("instruction before .intel_syntax noprefix on line %d", lineNo)
		}

		in, err := decode(p)
		if err != nil {
			return nil, err
		}
		prog.Instructions = append(prog.Instructions, in)
	}

	for _, g := range a.globals {
		if _, ok := a.labels[g]; !ok {
			return nil, fmt.Errorf("global symbol '%s' is never defined", g)
		}
	}
	prog.Globals = a.globals
	return prog, nil
}

func (a *Assembler) directive(p parsedLine) error {
	switch p.mnemonic {
	case ".intel_syntax":
		if len(p.operands) != 1 || p.operands[0] != "noprefix" {
			return fmt.Errorf(".intel_syntax expects noprefix on line %d", p.lineNo)
		}
		a.intel = true
	case ".globl", ".global":
		if len(p.operands) != 1 || !isIdentifier(p.operands[0]) {
			return fmt.Errorf("%s expects one symbol on line %d", p.mnemonic, p.lineNo)
		}
		a.globals = append(a.globals, p.operands[0])
	case ".text":
	default:
		return fmt.Errorf("unsupported directive %s on line %d", p.mnemonic, p.lineNo)
	}
	return nil
}

// decode checks the operand shapes against forms and register widths.
func decode(p parsedLine) (Instruction, error) {
	allowed, ok := forms[p.mnemonic]
	if !ok {
		return Instruction{}, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
	}

	in := Instruction{Line: p.lineNo, Op: p.mnemonic}
	shape := make([]string, len(p.operands))
	for i, tok := range p.operands {
		op, err := parseOperand(tok, p.lineNo)
		if err != nil {
			return Instruction{}, err
		}
		in.Args = append(in.Args, op)
		shape[i] = [...]string{Reg: "r", Imm: "i", Mem: "m"}[op.Kind]
	}

	sig := strings.Join(shape, ",")
	matched := false
	for _, f := range allowed {
		if f == sig {
			matched = true
			break
		}
	}
	if !matched {
		return Instruction{}, fmt.Errorf("invalid operands for %s on line %d: %s", p.mnemonic, p.lineNo, strings.Join(p.operands, ", "))
	}

	if err := checkWidths(in); err != nil {
		return Instruction{}, err
	}
	return in, nil
}

// checkWidths enforces that byte registers only appear where the
// instruction writes or reads a byte.
func checkWidths(in Instruction) error {
	want := make([]int, len(in.Args))
	for i := range want {
		want[i] = 64
	}
	switch in.Op {
	case "sete", "setne", "setl", "setle", "setg", "setge":
		want[0] = 8
	case "movzb", "movzx":
		want[1] = 8
	}

	for i, arg := range in.Args {
		if arg.Kind == Imm {
			continue
		}
		if RegWidth[arg.Reg] != want[i] {
			return fmt.Errorf("%s needs a %d-bit register, got %s on line %d", in.Op, want[i], arg.Reg, in.Line)
		}
	}
	return nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t[") {
			break
		}
		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	mnemonic, rest := line, ""
	if sp := strings.IndexFunc(line, unicode.IsSpace); sp >= 0 {
		mnemonic, rest = line[:sp], line[sp:]
	}
	p.mnemonic = strings.ToLower(mnemonic)
	p.directive = strings.HasPrefix(p.mnemonic, ".")

	rest = strings.TrimSpace(rest)
	if rest != "" {
		for _, op := range strings.Split(rest, ",") {
			op = strings.TrimSpace(op)
			if op == "" {
				return p, fmt.Errorf("empty operand on line %d", lineNo)
			}
			p.operands = append(p.operands, op)
		}
	}
	return p, nil
}

func stripComments(line string) string {
	if cut := strings.IndexAny(line, "#;"); cut >= 0 {
		return line[:cut]
	}
	return line
}

func parseOperand(token string, lineNo int) (Operand, error) {
	lower := strings.ToLower(token)
	lower = strings.TrimSpace(strings.TrimPrefix(lower, "qword ptr"))

	if strings.HasPrefix(lower, "[") && strings.HasSuffix(lower, "]") {
		inner := strings.TrimSpace(lower[1 : len(lower)-1])
		if RegWidth[inner] != 64 {
			return Operand{}, fmt.Errorf("invalid memory operand '%s' on line %d", token, lineNo)
		}
		return Operand{Kind: Mem, Reg: inner}, nil
	}

	if _, ok := RegWidth[lower]; ok {
		return Operand{Kind: Reg, Reg: lower}, nil
	}

	if v, err := strconv.ParseInt(lower, 0, 64); err == nil {
		return Operand{Kind: Imm, Imm: v}, nil
	}

	return Operand{}, fmt.Errorf("invalid operand '%s' on line %d", token, lineNo)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return false
		}
	}

	return true
}
