package compiler

import (
	"fmt"
	"strings"
)

// SlotSize is the width in bytes of one variable slot; loads and stores
// move full 8-byte words.
const SlotSize = 8

// Frame is the fixed stack frame backing the variables a..z. Every letter
// owns a slot whether or not the program mentions it, so there is nothing to
// declare or look up by name; Frame only records which slots were touched
// for the listing printed by cmd/ccompiler.
type Frame struct {
	used [NumSlots]bool
}

func NewFrame() *Frame {
	return &Frame{}
}

// Size returns the number of bytes the prologue reserves below rbp.
func (f *Frame) Size() int {
	return NumSlots * SlotSize
}

// Displacement returns the distance below rbp of the slot at index.
// Slot i occupies [rbp-(i+1)*8, rbp-i*8), so neighbouring letters never
// overlap and slot a does not cover the saved rbp.
func (f *Frame) Displacement(index int) (int, error) {
	if index < 0 || index >= NumSlots {
		return 0, fmt.Errorf("slot %d outside frame of %d", index, NumSlots)
	}
	f.used[index] = true
	return (index + 1) * SlotSize, nil
}

// Used reports whether code was generated that addresses the slot.
func (f *Frame) Used(index int) bool {
	return index >= 0 && index < NumSlots && f.used[index]
}

func (f *Frame) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Frame (%d bytes)\n", f.Size())
	for i := 0; i < NumSlots; i++ {
		if !f.used[i] {
			continue
		}
		fmt.Fprintf(&b, "  %c  [rbp-%d]\n", 'a'+i, (i+1)*SlotSize)
	}
	return b.String()
}
