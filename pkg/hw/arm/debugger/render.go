package debugger

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm/isa"
)

// Style selects how session output is decorated
type Style int

const (
	// StylePlain emits unadorned text
	StylePlain Style = iota
	// StyleColored decorates addresses, mnemonics and flags
	StyleColored
)

var (
	addressColor  = color.New(color.FgCyan)
	mnemonicColor = color.New(color.FgYellow)
	flagColor     = color.New(color.FgGreen, color.Bold)
)

// renderStatus prints the sixteen general registers as four rows of four,
// the unpacked status register, and the instruction about to execute.
func (s *Session) renderStatus() {
	for row := 0; row < 4; row++ {
		fmt.Fprintf(s.out, "%08X %08X %08X %08X\n",
			s.core.Reg(row*4), s.core.Reg(row*4+1), s.core.Reg(row*4+2), s.core.Reg(row*4+3))
	}

	cpsr := s.core.CPSR()
	flags := cpsr.FlagString()
	if s.style == StyleColored {
		flags = flagColor.Sprint(flags)
	}
	fmt.Fprintf(s.out, "cpsr: %08X [%s]\n", uint32(cpsr), flags)

	s.renderInstruction(s.core.Reg(15) - s.core.Mode().InstructionWidth())
}

// renderInstruction prints one decoded line at addr using the active
// encoding: address, raw word, decoded text.
func (s *Session) renderInstruction(addr uint32) {
	mode := s.core.Mode()

	var (
		raw     uint32
		rawText string
	)
	if mode == isa.ModeARM {
		word, err := s.core.Memory().LoadWord(addr)
		if err != nil {
			fmt.Fprintf(s.out, "%08X:  out of range\n", addr)
			return
		}
		raw, rawText = word, fmt.Sprintf("%08X", word)
	} else {
		half, err := s.core.Memory().LoadHalf(addr)
		if err != nil {
			fmt.Fprintf(s.out, "%08X:  out of range\n", addr)
			return
		}
		raw, rawText = uint32(half), fmt.Sprintf("%04X", half)
	}

	text := isa.Decode(raw, addr, mode).String()
	if s.style == StyleColored {
		addressColor.Fprintf(s.out, "%08X", addr)
		fmt.Fprintf(s.out, ":  %s\t", rawText)
		mnemonicColor.Fprintln(s.out, text)
		return
	}
	fmt.Fprintf(s.out, "%08X:  %s\t%s\n", addr, rawText, text)
}
