package isa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeARM(t *testing.T) {
	tests := []struct {
		name     string
		raw      uint32
		addr     uint32
		expected string
	}{
		{"mov immediate", 0xE3A00001, 0, "mov r0, #1"},
		{"movs immediate", 0xE3B010FF, 0, "movs r1, #255"},
		{"mvn register", 0xE1E00001, 0, "mvn r0, r1"},
		{"add register", 0xE0832004, 0, "add r2, r3, r4"},
		{"subs immediate", 0xE2510004, 0, "subs r0, r1, #4"},
		{"cmp immediate", 0xE3500000, 0, "cmp r0, #0"},
		{"mov shifted", 0xE1A00101, 0, "mov r0, r1, lsl #2"},
		{"branch forward", 0xEA000004, 0, "b 0x00000018"},
		{"branch with link backward", 0xEBFFFFFE, 0x1000, "bl 0x00001000"},
		{"branch and exchange", 0xE12FFF1E, 0, "bx lr"},
		{"conditional branch", 0x0A000000, 0, "beq 0x00000008"},
		{"ldr immediate offset", 0xE5910004, 0, "ldr r0, [r1, #4]"},
		{"ldr post indexed", 0xE4910004, 0, "ldr r0, [r1], #4"},
		{"strb no offset", 0xE5C32000, 0, "strb r2, [r3]"},
		{"ldrh immediate offset", 0xE1D540B2, 0, "ldrh r4, [r5, #2]"},
		{"mul", 0xE0000291, 0, "mul r0, r1, r2"},
		{"push", 0xE92D4010, 0, "stmdb sp!, {r4, lr}"},
		{"mrs", 0xE10F0000, 0, "mrs r0, cpsr"},
		{"msr", 0xE129F000, 0, "msr cpsr, r0"},
		{"swi", 0xEF123456, 0, "swi 0x123456"},
		{"never condition", 0xF0000000, 0, "undefined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr := Decode(tt.raw, tt.addr, ModeARM)
			assert.Equal(t, tt.expected, instr.String())
			assert.Equal(t, tt.addr, instr.Addr)
			assert.Equal(t, ModeARM, instr.Mode)
		})
	}
}

func TestDecodeARMBranchTargetUsesPipeline(t *testing.T) {
	// offset 0 branches to the address two words ahead of the instruction
	instr := Decode(0xEA000000, 0x100, ModeARM)
	assert.Equal(t, "b 0x00000108", instr.String())
}

func TestUndefinedIsRenderable(t *testing.T) {
	instr := Decode(0xF0000000, 0, ModeARM)
	assert.True(t, instr.Undefined())
	assert.Equal(t, UndefinedMnemonic, instr.String())
}

func TestRegisterName(t *testing.T) {
	assert.Equal(t, "r0", RegisterName(0))
	assert.Equal(t, "r12", RegisterName(12))
	assert.Equal(t, "sp", RegisterName(13))
	assert.Equal(t, "lr", RegisterName(14))
	assert.Equal(t, "pc", RegisterName(15))
}

func TestModeWidths(t *testing.T) {
	assert.Equal(t, uint32(4), ModeARM.InstructionWidth())
	assert.Equal(t, uint32(2), ModeThumb.InstructionWidth())
	assert.Equal(t, "ARM", ModeARM.String())
	assert.Equal(t, "Thumb", ModeThumb.String())
}

func TestReferenceListsAllClasses(t *testing.T) {
	ref := Reference(ModeARM)
	assert.Contains(t, ref, "ARM instruction set")
	assert.Contains(t, ref, "data processing")

	ref = Reference(ModeThumb)
	assert.Contains(t, ref, "Thumb instruction set")
	assert.Contains(t, ref, "push/pop")
}
