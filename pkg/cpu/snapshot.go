package cpu

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// machineState is the serialisable part of a Machine. The loaded program is
// not included; a snapshot is only meaningful for the listing it came from.
type machineState struct {
	Regs   [NumRegs]uint64
	RIP    int
	ZF     bool
	SF     bool
	OF     bool
	CF     bool
	Halted bool
	Steps  int
	Memory []byte
}

// Snapshot serialises registers, flags and stack memory.
func (m *Machine) Snapshot() ([]byte, error) {
	state := machineState{
		Regs:   m.Regs,
		RIP:    m.RIP,
		ZF:     m.ZF,
		SF:     m.SF,
		OF:     m.OF,
		CF:     m.CF,
		Halted: m.Halted,
		Steps:  m.Steps,
		Memory: m.Memory,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore rewinds the machine to a state produced by Snapshot.
func (m *Machine) Restore(data []byte) error {
	var state machineState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if len(state.Memory) != StackSize {
		return fmt.Errorf("snapshot holds %d bytes of memory, want %d", len(state.Memory), StackSize)
	}

	m.Regs = state.Regs
	m.RIP = state.RIP
	m.ZF = state.ZF
	m.SF = state.SF
	m.OF = state.OF
	m.CF = state.CF
	m.Halted = state.Halted
	m.Steps = state.Steps
	m.Memory = state.Memory
	return nil
}
