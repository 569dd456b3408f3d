// Package isa decodes ARM-family instruction words into human readable assembly.
//
// # Overview
//
// The package covers the two encodings of the simulated processor:
//
//   - ARM: fixed 32-bit instruction words
//   - Thumb: compact 16-bit instruction halfwords
//
// Decoding is stateless. Given a raw word, the address it was fetched from and
// the active [Mode], [Decode] produces an [Instruction] value carrying the
// mnemonic and rendered operands. Encodings outside the supported subset decode
// to the "undefined" mnemonic instead of failing, so callers can always render
// something for an arbitrary memory range.
package isa

import (
	"fmt"
	"strings"
)

// Mode selects the instruction encoding in effect.
type Mode int

const (
	// ModeARM is the full 32-bit wide encoding
	ModeARM Mode = iota
	// ModeThumb is the compact 16-bit wide encoding
	ModeThumb
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeARM:
		return "ARM"
	case ModeThumb:
		return "Thumb"
	default:
		return "unknown"
	}
}

// InstructionWidth returns the size in bytes of one instruction in this mode
func (m Mode) InstructionWidth() uint32 {
	if m == ModeThumb {
		return 2
	}
	return 4
}

// UndefinedMnemonic is the mnemonic assigned to encodings outside the decoded subset.
const UndefinedMnemonic = "undefined"

// Instruction is one decoded instruction.
type Instruction struct {
	// Addr is the address the instruction was fetched from
	Addr uint32
	// Raw is the encoded instruction word (halfword, zero extended, in Thumb mode)
	Raw uint32
	// Mode is the encoding the word was decoded under
	Mode Mode
	// Mnemonic is the lowercase operation name, including condition and flag suffixes
	Mnemonic string
	// Operands is the rendered operand list, empty for operand-less instructions
	Operands string
}

// String renders the instruction as assembly text
func (i Instruction) String() string {
	if i.Operands == "" {
		return i.Mnemonic
	}
	return i.Mnemonic + " " + i.Operands
}

// Undefined reports whether the word did not match any supported encoding
func (i Instruction) Undefined() bool {
	return i.Mnemonic == UndefinedMnemonic
}

// Decode decodes one instruction word fetched from addr under the given mode.
func Decode(raw uint32, addr uint32, mode Mode) Instruction {
	if mode == ModeThumb {
		return decodeThumb(uint16(raw), addr)
	}
	return decodeARM(raw, addr)
}

// RegisterName returns the assembly name of a general register index.
func RegisterName(i int) string {
	switch i {
	case 13:
		return "sp"
	case 14:
		return "lr"
	case 15:
		return "pc"
	default:
		return fmt.Sprintf("r%d", i)
	}
}

// condition suffixes indexed by the four condition bits; AL renders empty
var conditionNames = [16]string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le", "", "nv",
}

// immediate renders a literal operand, decimal for byte-sized values
func immediate(v uint32) string {
	if v < 256 {
		return fmt.Sprintf("#%d", v)
	}
	return fmt.Sprintf("#0x%X", v)
}

// registerList renders a block-transfer register set with ranges, e.g. {r0-r3, lr}
func registerList(mask uint32) string {
	var parts []string
	for i := 0; i < 16; i++ {
		if mask&(1<<i) == 0 {
			continue
		}
		start := i
		for i+1 < 16 && mask&(1<<(i+1)) != 0 {
			i++
		}
		if i > start+1 {
			parts = append(parts, RegisterName(start)+"-"+RegisterName(i))
		} else if i == start+1 {
			parts = append(parts, RegisterName(start), RegisterName(i))
		} else {
			parts = append(parts, RegisterName(start))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Reference returns a plain-text summary of the encodings the decoder understands,
// one instruction class per line.
func Reference(mode Mode) string {
	var classes []instructionClass
	if mode == ModeThumb {
		classes = thumbClasses
	} else {
		classes = armClasses
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s instruction set (%d-byte encoding)\n\n", mode, mode.InstructionWidth())
	for _, c := range classes {
		fmt.Fprintf(&sb, "  %-28s %s\n", c.syntax, c.description)
	}
	return sb.String()
}

// instructionClass documents one family of encodings for the reference dump
type instructionClass struct {
	syntax      string
	description string
}
