package cpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"

	"minicc/pkg/asm"
)

const (
	RAX = iota
	RDI
	RDX
	RBP
	RSP
	NumRegs
)

// RegNames is indexed by register number.
var RegNames = [NumRegs]string{
	RAX: "rax",
	RDI: "rdi",
	RDX: "rdx",
	RBP: "rbp",
	RSP: "rsp",
}

var regIndex = map[string]int{
	"rax": RAX,
	"rdi": RDI,
	"rdx": RDX,
	"rbp": RBP,
	"rsp": RSP,
}

const (
	// StackTop is one past the highest addressable byte; rsp starts here.
	StackTop uint64 = 0x7fff_0000
	// StackSize is the number of addressable bytes below StackTop.
	StackSize = 64 * 1024
	// DefaultStepLimit bounds Run so a broken listing cannot spin forever.
	DefaultStepLimit = 1_000_000

	// returnSentinel is the return address pushed by Load; popping it with
	// ret halts the machine.
	returnSentinel uint64 = 0xdead_beef_0000
)

var (
	ErrDivideByZero   = errors.New("divide by zero")
	ErrDivideOverflow = errors.New("quotient overflow")
	ErrBadAddress     = errors.New("memory access outside the stack")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrHalted         = errors.New("machine halted")
	ErrNotLoaded      = errors.New("no program loaded")
)

// Machine executes the x86-64 subset produced by the compiler: five 64-bit
// registers, the arithmetic flags and a zero-filled stack.
type Machine struct {
	Regs [NumRegs]uint64
	RIP  int // index into the loaded instruction list

	ZF bool
	SF bool
	OF bool
	CF bool

	Halted    bool
	Steps     int
	StepLimit int

	// Memory backs the addresses [StackTop-StackSize, StackTop).
	Memory []byte

	prog *asm.Program
}

func NewMachine() *Machine {
	m := &Machine{
		Memory:    make([]byte, StackSize),
		StepLimit: DefaultStepLimit,
	}
	m.Regs[RSP] = StackTop
	m.Regs[RBP] = StackTop
	return m
}

// Load points RIP at the global symbol main and pushes the return address
// that ends the run.
func (m *Machine) Load(prog *asm.Program) error {
	entry, err := prog.Entry("main")
	if err != nil {
		return err
	}
	m.prog = prog
	m.RIP = entry
	m.Halted = false
	return m.push(returnSentinel)
}

func (m *Machine) addr(a uint64) (int, error) {
	base := StackTop - StackSize
	if a < base || a > StackTop-8 {
		return 0, fmt.Errorf("%w: %#x", ErrBadAddress, a)
	}
	return int(a - base), nil
}

// Read64 loads the little-endian word at a.
func (m *Machine) Read64(a uint64) (uint64, error) {
	off, err := m.addr(a)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.Memory[off:]), nil
}

// Write64 stores v little-endian at a.
func (m *Machine) Write64(a uint64, v uint64) error {
	off, err := m.addr(a)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.Memory[off:], v)
	return nil
}

func (m *Machine) push(v uint64) error {
	m.Regs[RSP] -= 8
	return m.Write64(m.Regs[RSP], v)
}

func (m *Machine) pop() (uint64, error) {
	v, err := m.Read64(m.Regs[RSP])
	if err != nil {
		return 0, err
	}
	m.Regs[RSP] += 8
	return v, nil
}

func (m *Machine) reg(name string) uint64 {
	if name == "al" {
		return m.Regs[RAX] & 0xff
	}
	return m.Regs[regIndex[name]]
}

func (m *Machine) setReg(name string, v uint64) {
	if name == "al" {
		m.Regs[RAX] = m.Regs[RAX]&^0xff | v&0xff
		return
	}
	m.Regs[regIndex[name]] = v
}

func (m *Machine) value(op asm.Operand) (uint64, error) {
	switch op.Kind {
	case asm.Imm:
		return uint64(op.Imm), nil
	case asm.Mem:
		return m.Read64(m.reg(op.Reg))
	}
	return m.reg(op.Reg), nil
}

// setSubFlags sets the flags as cmp/sub do for a - b.
func (m *Machine) setSubFlags(a, b uint64) uint64 {
	res := a - b
	m.ZF = res == 0
	m.SF = int64(res) < 0
	m.OF = ((a^b)&(a^res))>>63 == 1
	m.CF = a < b
	return res
}

func (m *Machine) setAddFlags(a, b uint64) uint64 {
	res := a + b
	m.ZF = res == 0
	m.SF = int64(res) < 0
	m.OF = (^(a^b)&(a^res))>>63 == 1
	m.CF = res < a
	return res
}

func (m *Machine) condition(op string) bool {
	switch op {
	case "sete":
		return m.ZF
	case "setne":
		return !m.ZF
	case "setl":
		return m.SF != m.OF
	case "setle":
		return m.ZF || m.SF != m.OF
	case "setg":
		return !m.ZF && m.SF == m.OF
	case "setge":
		return m.SF == m.OF
	}
	return false
}

// idiv divides rdx:rax by divisor, leaving the quotient in rax and the
// remainder in rdx.
func (m *Machine) idiv(divisor int64) error {
	if divisor == 0 {
		return ErrDivideByZero
	}

	lo, hi := m.Regs[RAX], m.Regs[RDX]
	if int64(hi) == int64(lo)>>63 {
		a := int64(lo)
		if a == math.MinInt64 && divisor == -1 {
			return ErrDivideOverflow
		}
		m.Regs[RAX] = uint64(a / divisor)
		m.Regs[RDX] = uint64(a % divisor)
		return nil
	}

	dividend := new(big.Int).Lsh(big.NewInt(int64(hi)), 64)
	dividend.Add(dividend, new(big.Int).SetUint64(lo))
	q, r := new(big.Int).QuoRem(dividend, big.NewInt(divisor), new(big.Int))
	if !q.IsInt64() {
		return ErrDivideOverflow
	}
	m.Regs[RAX] = uint64(q.Int64())
	m.Regs[RDX] = uint64(r.Int64())
	return nil
}

// Current returns the instruction RIP points at.
func (m *Machine) Current() (asm.Instruction, bool) {
	if m.prog == nil || m.RIP < 0 || m.RIP >= len(m.prog.Instructions) {
		return asm.Instruction{}, false
	}
	return m.prog.Instructions[m.RIP], true
}

// Step executes one instruction.
func (m *Machine) Step() error {
	if m.Halted {
		return ErrHalted
	}
	if m.prog == nil {
		return ErrNotLoaded
	}
	in, ok := m.Current()
	if !ok {
		return fmt.Errorf("rip %d outside the program", m.RIP)
	}
	m.RIP++
	m.Steps++

	if err := m.exec(in); err != nil {
		return fmt.Errorf("line %d (%s): %w", in.Line, in, err)
	}
	return nil
}

func (m *Machine) exec(in asm.Instruction) error {
	args := in.Args
	switch in.Op {
	case "push":
		v, err := m.value(args[0])
		if err != nil {
			return err
		}
		return m.push(v)

	case "pop":
		v, err := m.pop()
		if err != nil {
			return err
		}
		m.setReg(args[0].Reg, v)

	case "mov":
		v, err := m.value(args[1])
		if err != nil {
			return err
		}
		if args[0].Kind == asm.Mem {
			return m.Write64(m.reg(args[0].Reg), v)
		}
		m.setReg(args[0].Reg, v)

	case "add", "sub", "imul", "cmp":
		a := m.reg(args[0].Reg)
		b, err := m.value(args[1])
		if err != nil {
			return err
		}
		switch in.Op {
		case "add":
			m.setReg(args[0].Reg, m.setAddFlags(a, b))
		case "sub":
			m.setReg(args[0].Reg, m.setSubFlags(a, b))
		case "imul":
			m.setReg(args[0].Reg, uint64(int64(a)*int64(b)))
		case "cmp":
			m.setSubFlags(a, b)
		}

	case "cqo":
		m.Regs[RDX] = uint64(int64(m.Regs[RAX]) >> 63)

	case "idiv":
		return m.idiv(int64(m.reg(args[0].Reg)))

	case "sete", "setne", "setl", "setle", "setg", "setge":
		var v uint64
		if m.condition(in.Op) {
			v = 1
		}
		m.setReg(args[0].Reg, v)

	case "movzb", "movzx":
		m.setReg(args[0].Reg, m.reg(args[1].Reg)&0xff)

	case "ret":
		target, err := m.pop()
		if err != nil {
			return err
		}
		if target != returnSentinel {
			return fmt.Errorf("return to unknown address %#x", target)
		}
		m.Halted = true

	default:
		return fmt.Errorf("unsupported instruction %s", in.Op)
	}
	return nil
}

// Run steps until main returns, a fault occurs or StepLimit is reached.
func (m *Machine) Run() error {
	for !m.Halted {
		if m.StepLimit > 0 && m.Steps >= m.StepLimit {
			return ErrStepLimit
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Result is the value main returned in rax.
func (m *Machine) Result() int64 {
	return int64(m.Regs[RAX])
}

// LoadListing parses code and loads it into a fresh machine.
func LoadListing(code string) (*Machine, error) {
	prog, err := asm.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	m := NewMachine()
	if err := m.Load(prog); err != nil {
		return nil, err
	}
	return m, nil
}

// Execute runs a listing to completion on a fresh machine. The machine is
// returned with a run error so its state can be inspected.
func Execute(code string) (*Machine, error) {
	m, err := LoadListing(code)
	if err != nil {
		return nil, err
	}
	if err := m.Run(); err != nil {
		return m, err
	}
	return m, nil
}
