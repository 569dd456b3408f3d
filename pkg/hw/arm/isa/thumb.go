package isa

import (
	"fmt"

	"github.com/armadillo-emu/armadillo/pkg/utils"
)

// thumbALUNames indexed by the format 4 opcode field
var thumbALUNames = [16]string{
	"and", "eor", "lsl", "lsr", "asr", "adc", "sbc", "ror",
	"tst", "neg", "cmp", "cmn", "orr", "mul", "bic", "mvn",
}

var thumbClasses = []instructionClass{
	{"lsl/lsr/asr rd, rs, #imm5", "shift by immediate"},
	{"add/sub rd, rs, rn|#imm3", "three register add and subtract"},
	{"mov/cmp/add/sub rd, #imm8", "immediate operations"},
	{"<alu> rd, rs", "register ALU operations"},
	{"add/cmp/mov rd, rs (hi)", "high register operations"},
	{"bx rs", "branch and exchange"},
	{"ldr rd, [pc, #imm]", "literal pool load"},
	{"ldr/str{b,h} rd, [rb, ro]", "register offset transfer"},
	{"ldr/str{b} rd, [rb, #imm]", "immediate offset transfer"},
	{"ldrh/strh rd, [rb, #imm]", "halfword transfer"},
	{"ldr/str rd, [sp, #imm]", "stack relative transfer"},
	{"add rd, pc|sp, #imm", "address generation"},
	{"add sp, #imm", "stack adjustment"},
	{"push/pop {regs}", "stack block transfer"},
	{"ldmia/stmia rb!, {regs}", "block transfer"},
	{"b<cond> <target>", "conditional branch"},
	{"b <target>", "unconditional branch"},
	{"bl <target>", "branch with link (halfword pair)"},
	{"swi <imm8>", "software interrupt"},
}

func decodeThumb(raw uint16, addr uint32) Instruction {
	instr := Instruction{Addr: addr, Raw: uint32(raw), Mode: ModeThumb, Mnemonic: UndefinedMnemonic}
	w := uint32(raw)

	rd := RegisterName(int(utils.Field(w, 0, 3)))
	rs := RegisterName(int(utils.Field(w, 3, 3)))

	switch {
	case w&0xF800 == 0x1800:
		// format 2: add/sub with register or 3-bit immediate
		name := "add"
		if utils.Bit(w, 9) {
			name = "sub"
		}
		if utils.Bit(w, 10) {
			instr.Mnemonic = name
			instr.Operands = fmt.Sprintf("%s, %s, #%d", rd, rs, utils.Field(w, 6, 3))
		} else {
			instr.Mnemonic = name
			instr.Operands = fmt.Sprintf("%s, %s, %s", rd, rs, RegisterName(int(utils.Field(w, 6, 3))))
		}

	case w&0xE000 == 0x0000:
		// format 1: shift by immediate
		instr.Mnemonic = shiftNames[utils.Field(w, 11, 2)]
		instr.Operands = fmt.Sprintf("%s, %s, #%d", rd, rs, utils.Field(w, 6, 5))

	case w&0xE000 == 0x2000:
		// format 3: move/compare/add/subtract immediate
		names := [4]string{"mov", "cmp", "add", "sub"}
		instr.Mnemonic = names[utils.Field(w, 11, 2)]
		instr.Operands = fmt.Sprintf("%s, #%d", RegisterName(int(utils.Field(w, 8, 3))), utils.Field(w, 0, 8))

	case w&0xFC00 == 0x4000:
		// format 4: ALU operations
		instr.Mnemonic = thumbALUNames[utils.Field(w, 6, 4)]
		instr.Operands = fmt.Sprintf("%s, %s", rd, rs)

	case w&0xFC00 == 0x4400:
		// format 5: high register operations and bx
		hd := int(utils.Field(w, 0, 3) | utils.Field(w, 7, 1)<<3)
		hs := int(utils.Field(w, 3, 4))
		switch utils.Field(w, 8, 2) {
		case 0:
			instr.Mnemonic = "add"
			instr.Operands = fmt.Sprintf("%s, %s", RegisterName(hd), RegisterName(hs))
		case 1:
			instr.Mnemonic = "cmp"
			instr.Operands = fmt.Sprintf("%s, %s", RegisterName(hd), RegisterName(hs))
		case 2:
			instr.Mnemonic = "mov"
			instr.Operands = fmt.Sprintf("%s, %s", RegisterName(hd), RegisterName(hs))
		case 3:
			instr.Mnemonic = "bx"
			instr.Operands = RegisterName(hs)
		}

	case w&0xF800 == 0x4800:
		// format 6: pc-relative load; pc reads word aligned
		instr.Mnemonic = "ldr"
		instr.Operands = fmt.Sprintf("%s, [pc, #%d]", RegisterName(int(utils.Field(w, 8, 3))), utils.Field(w, 0, 8)*4)

	case w&0xF200 == 0x5000:
		// format 7: load/store with register offset
		names := [4]string{"str", "strb", "ldr", "ldrb"}
		instr.Mnemonic = names[utils.Field(w, 10, 2)]
		instr.Operands = fmt.Sprintf("%s, [%s, %s]", rd, rs, RegisterName(int(utils.Field(w, 6, 3))))

	case w&0xF200 == 0x5200:
		// format 8: load/store sign-extended byte/halfword
		names := [4]string{"strh", "ldrsb", "ldrh", "ldrsh"}
		instr.Mnemonic = names[utils.Field(w, 10, 2)]
		instr.Operands = fmt.Sprintf("%s, [%s, %s]", rd, rs, RegisterName(int(utils.Field(w, 6, 3))))

	case w&0xE000 == 0x6000:
		// format 9: load/store with immediate offset
		scale := uint32(4)
		suffix := ""
		if utils.Bit(w, 12) {
			scale = 1
			suffix = "b"
		}
		name := "str" + suffix
		if utils.Bit(w, 11) {
			name = "ldr" + suffix
		}
		instr.Mnemonic = name
		instr.Operands = fmt.Sprintf("%s, [%s, #%d]", rd, rs, utils.Field(w, 6, 5)*scale)

	case w&0xF000 == 0x8000:
		// format 10: halfword transfer
		name := "strh"
		if utils.Bit(w, 11) {
			name = "ldrh"
		}
		instr.Mnemonic = name
		instr.Operands = fmt.Sprintf("%s, [%s, #%d]", rd, rs, utils.Field(w, 6, 5)*2)

	case w&0xF000 == 0x9000:
		// format 11: sp-relative transfer
		name := "str"
		if utils.Bit(w, 11) {
			name = "ldr"
		}
		instr.Mnemonic = name
		instr.Operands = fmt.Sprintf("%s, [sp, #%d]", RegisterName(int(utils.Field(w, 8, 3))), utils.Field(w, 0, 8)*4)

	case w&0xF000 == 0xA000:
		// format 12: address generation
		base := "pc"
		if utils.Bit(w, 11) {
			base = "sp"
		}
		instr.Mnemonic = "add"
		instr.Operands = fmt.Sprintf("%s, %s, #%d", RegisterName(int(utils.Field(w, 8, 3))), base, utils.Field(w, 0, 8)*4)

	case w&0xFF00 == 0xB000:
		// format 13: stack adjustment
		instr.Mnemonic = "add"
		amount := int(utils.Field(w, 0, 7)) * 4
		if utils.Bit(w, 7) {
			amount = -amount
		}
		instr.Operands = fmt.Sprintf("sp, #%d", amount)

	case w&0xF600 == 0xB400:
		// format 14: push/pop; R bit adds lr on push, pc on pop
		mask := utils.Field(w, 0, 8)
		if utils.Bit(w, 11) {
			if utils.Bit(w, 8) {
				mask |= 1 << 15
			}
			instr.Mnemonic = "pop"
		} else {
			if utils.Bit(w, 8) {
				mask |= 1 << 14
			}
			instr.Mnemonic = "push"
		}
		instr.Operands = registerList(mask)

	case w&0xF000 == 0xC000:
		// format 15: block transfer
		name := "stmia"
		if utils.Bit(w, 11) {
			name = "ldmia"
		}
		instr.Mnemonic = name
		instr.Operands = fmt.Sprintf("%s!, %s", RegisterName(int(utils.Field(w, 8, 3))), registerList(utils.Field(w, 0, 8)))

	case w&0xFF00 == 0xDF00:
		// format 17: software interrupt
		instr.Mnemonic = "swi"
		instr.Operands = fmt.Sprintf("0x%X", utils.Field(w, 0, 8))

	case w&0xF000 == 0xD000:
		// format 16: conditional branch; the AL slot is an undefined encoding
		if utils.Field(w, 8, 4) == 14 {
			break
		}
		cond := conditionNames[utils.Field(w, 8, 4)]
		offset := utils.SignExtend(utils.Field(w, 0, 8), 8) << 1
		instr.Mnemonic = "b" + cond
		instr.Operands = fmt.Sprintf("0x%08X", addr+4+offset)

	case w&0xF800 == 0xE000:
		// format 18: unconditional branch
		offset := utils.SignExtend(utils.Field(w, 0, 11), 11) << 1
		instr.Mnemonic = "b"
		instr.Operands = fmt.Sprintf("0x%08X", addr+4+offset)

	case w&0xF800 == 0xF000:
		// format 19 first half: target upper bits; the pair target is
		// only fully known once the second half executes
		offset := utils.SignExtend(utils.Field(w, 0, 11), 11) << 12
		instr.Mnemonic = "bl"
		instr.Operands = fmt.Sprintf("0x%08X", addr+4+offset)

	case w&0xF800 == 0xF800:
		// format 19 second half
		instr.Mnemonic = "bl"
		instr.Operands = fmt.Sprintf("+0x%X", utils.Field(w, 0, 11)<<1)
	}

	return instr
}
