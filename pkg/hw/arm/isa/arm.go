package isa

import (
	"fmt"

	"github.com/armadillo-emu/armadillo/pkg/utils"
)

// dataProcessingNames indexed by the opcode field (bits 24-21)
var dataProcessingNames = [16]string{
	"and", "eor", "sub", "rsb", "add", "adc", "sbc", "rsc",
	"tst", "teq", "cmp", "cmn", "orr", "mov", "bic", "mvn",
}

var shiftNames = [4]string{"lsl", "lsr", "asr", "ror"}

var armClasses = []instructionClass{
	{"b/bl <target>", "branch, branch with link"},
	{"bx <rm>", "branch and exchange (Thumb interworking)"},
	{"<op>{s} rd, rn, <operand2>", "data processing: and eor sub rsb add adc sbc rsc orr bic"},
	{"mov/mvn{s} rd, <operand2>", "move, move negated"},
	{"tst/teq/cmp/cmn rn, <operand2>", "compare and test, flags only"},
	{"mul/mla{s} rd, rm, rs{, rn}", "multiply, multiply accumulate"},
	{"mrs rd, cpsr", "status register to general register"},
	{"msr cpsr, rm", "general register to status register"},
	{"ldr/str{b} rd, <address>", "word and byte transfer"},
	{"ldrh/strh rd, <address>", "halfword transfer"},
	{"ldm/stm<mode> rn{!}, {regs}", "block transfer"},
	{"swi <imm24>", "software interrupt"},
}

func decodeARM(raw uint32, addr uint32) Instruction {
	instr := Instruction{Addr: addr, Raw: raw, Mode: ModeARM, Mnemonic: UndefinedMnemonic}

	cond := conditionNames[utils.Field(raw, 28, 4)]
	if cond == "nv" {
		return instr
	}

	switch {
	case raw&0x0FFFFFF0 == 0x012FFF10:
		// branch and exchange
		instr.Mnemonic = "bx" + cond
		instr.Operands = RegisterName(int(utils.Field(raw, 0, 4)))

	case raw&0x0E000000 == 0x0A000000:
		// branch, branch with link; offset is pipeline relative
		if utils.Bit(raw, 24) {
			instr.Mnemonic = "bl" + cond
		} else {
			instr.Mnemonic = "b" + cond
		}
		offset := utils.SignExtend(utils.Field(raw, 0, 24), 24) << 2
		instr.Operands = fmt.Sprintf("0x%08X", addr+8+offset)

	case raw&0x0FC000F0 == 0x00000090:
		// multiply, multiply accumulate
		s := ""
		if utils.Bit(raw, 20) {
			s = "s"
		}
		rd := RegisterName(int(utils.Field(raw, 16, 4)))
		rn := RegisterName(int(utils.Field(raw, 12, 4)))
		rs := RegisterName(int(utils.Field(raw, 8, 4)))
		rm := RegisterName(int(utils.Field(raw, 0, 4)))
		if utils.Bit(raw, 21) {
			instr.Mnemonic = "mla" + cond + s
			instr.Operands = fmt.Sprintf("%s, %s, %s, %s", rd, rm, rs, rn)
		} else {
			instr.Mnemonic = "mul" + cond + s
			instr.Operands = fmt.Sprintf("%s, %s, %s", rd, rm, rs)
		}

	case raw&0x0FBF0FFF == 0x010F0000:
		// status register read
		instr.Mnemonic = "mrs" + cond
		instr.Operands = RegisterName(int(utils.Field(raw, 12, 4))) + ", cpsr"

	case raw&0x0FBFFFF0 == 0x0129F000:
		// status register write
		instr.Mnemonic = "msr" + cond
		instr.Operands = "cpsr, " + RegisterName(int(utils.Field(raw, 0, 4)))

	case raw&0x0E000090 == 0x00000090 && utils.Field(raw, 5, 2) != 0:
		// halfword and signed transfer
		instr.Mnemonic, instr.Operands = decodeARMHalfword(raw, cond)

	case raw&0x0C000000 == 0x00000000:
		// data processing
		instr.Mnemonic, instr.Operands = decodeARMDataProcessing(raw, cond)
		if instr.Mnemonic == "" {
			instr.Mnemonic = UndefinedMnemonic
			instr.Operands = ""
		}

	case raw&0x0C000000 == 0x04000000:
		// single word or byte transfer
		instr.Mnemonic, instr.Operands = decodeARMSingleTransfer(raw, cond)

	case raw&0x0E000000 == 0x08000000:
		// block transfer
		instr.Mnemonic, instr.Operands = decodeARMBlockTransfer(raw, cond)

	case raw&0x0F000000 == 0x0F000000:
		// software interrupt
		instr.Mnemonic = "swi" + cond
		instr.Operands = fmt.Sprintf("0x%X", utils.Field(raw, 0, 24))
	}

	return instr
}

// operand2 renders the shifter operand of a data processing instruction
func operand2(raw uint32) string {
	if utils.Bit(raw, 25) {
		value := utils.RotateRight(utils.Field(raw, 0, 8), uint(utils.Field(raw, 8, 4))*2)
		return immediate(value)
	}

	rm := RegisterName(int(utils.Field(raw, 0, 4)))
	shift := shiftNames[utils.Field(raw, 5, 2)]
	if utils.Bit(raw, 4) {
		rs := RegisterName(int(utils.Field(raw, 8, 4)))
		return fmt.Sprintf("%s, %s %s", rm, shift, rs)
	}

	amount := utils.Field(raw, 7, 5)
	if amount == 0 {
		if shift == "lsl" {
			return rm
		}
		if shift == "ror" {
			return rm + ", rrx"
		}
		// lsr/asr #0 encode a shift by 32
		amount = 32
	}
	return fmt.Sprintf("%s, %s #%d", rm, shift, amount)
}

func decodeARMDataProcessing(raw uint32, cond string) (string, string) {
	opcode := utils.Field(raw, 21, 4)
	setFlags := utils.Bit(raw, 20)
	name := dataProcessingNames[opcode]
	rn := RegisterName(int(utils.Field(raw, 16, 4)))
	rd := RegisterName(int(utils.Field(raw, 12, 4)))

	switch opcode {
	case 8, 9, 10, 11:
		// comparison opcodes only exist with S set; otherwise this
		// encoding space belongs to mrs/msr/bx handled earlier
		if !setFlags {
			return "", ""
		}
		return name + cond, fmt.Sprintf("%s, %s", rn, operand2(raw))
	case 13, 15:
		s := ""
		if setFlags {
			s = "s"
		}
		return name + cond + s, fmt.Sprintf("%s, %s", rd, operand2(raw))
	default:
		s := ""
		if setFlags {
			s = "s"
		}
		return name + cond + s, fmt.Sprintf("%s, %s, %s", rd, rn, operand2(raw))
	}
}

func decodeARMSingleTransfer(raw uint32, cond string) (string, string) {
	name := "str"
	if utils.Bit(raw, 20) {
		name = "ldr"
	}
	name += cond
	if utils.Bit(raw, 22) {
		name += "b"
	}

	rd := RegisterName(int(utils.Field(raw, 12, 4)))
	rn := RegisterName(int(utils.Field(raw, 16, 4)))

	sign := ""
	if !utils.Bit(raw, 23) {
		sign = "-"
	}

	var offset string
	if utils.Bit(raw, 25) {
		offset = sign + RegisterName(int(utils.Field(raw, 0, 4)))
		if amount := utils.Field(raw, 7, 5); amount != 0 {
			offset += fmt.Sprintf(", %s #%d", shiftNames[utils.Field(raw, 5, 2)], amount)
		}
	} else if imm := utils.Field(raw, 0, 12); imm != 0 {
		offset = fmt.Sprintf("#%s%d", sign, imm)
	}

	return name, rd + ", " + renderAddress(raw, rn, offset)
}

func decodeARMHalfword(raw uint32, cond string) (string, string) {
	var name string
	switch utils.Field(raw, 5, 2) {
	case 1:
		if utils.Bit(raw, 20) {
			name = "ldrh"
		} else {
			name = "strh"
		}
	case 2:
		if !utils.Bit(raw, 20) {
			return UndefinedMnemonic, ""
		}
		name = "ldrsb"
	case 3:
		if !utils.Bit(raw, 20) {
			return UndefinedMnemonic, ""
		}
		name = "ldrsh"
	}
	// condition goes between the base name and the width suffix
	name = name[:3] + cond + name[3:]

	rd := RegisterName(int(utils.Field(raw, 12, 4)))
	rn := RegisterName(int(utils.Field(raw, 16, 4)))

	sign := ""
	if !utils.Bit(raw, 23) {
		sign = "-"
	}

	var offset string
	if utils.Bit(raw, 22) {
		if imm := utils.Field(raw, 8, 4)<<4 | utils.Field(raw, 0, 4); imm != 0 {
			offset = fmt.Sprintf("#%s%d", sign, imm)
		}
	} else {
		offset = sign + RegisterName(int(utils.Field(raw, 0, 4)))
	}

	return name, rd + ", " + renderAddress(raw, rn, offset)
}

// renderAddress formats the addressing mode of a load/store given the rendered
// offset operand; pre/post indexing comes from the P and W bits of the word
func renderAddress(raw uint32, rn string, offset string) string {
	preIndex := utils.Bit(raw, 24)
	writeback := utils.Bit(raw, 21)

	if offset == "" {
		return "[" + rn + "]"
	}
	if preIndex {
		s := "[" + rn + ", " + offset + "]"
		if writeback {
			s += "!"
		}
		return s
	}
	return "[" + rn + "], " + offset
}

var blockTransferModes = [4]string{"da", "ia", "db", "ib"}

func decodeARMBlockTransfer(raw uint32, cond string) (string, string) {
	name := "stm"
	if utils.Bit(raw, 20) {
		name = "ldm"
	}
	mode := blockTransferModes[utils.Field(raw, 23, 2)]

	rn := RegisterName(int(utils.Field(raw, 16, 4)))
	if utils.Bit(raw, 21) {
		rn += "!"
	}

	return name + cond + mode, rn + ", " + registerList(utils.Field(raw, 0, 16))
}
