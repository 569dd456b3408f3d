package arm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm"
	"github.com/armadillo-emu/armadillo/pkg/hw/arm/isa"
)

// newThumbCore builds a core with the given halfwords loaded from address 0
// and the entry point in Thumb state
func newThumbCore(t *testing.T, halfwords ...uint16) *arm.Core {
	t.Helper()
	core := arm.NewCore(arm.DefaultMemorySize)
	for i, h := range halfwords {
		require.NoError(t, core.Memory().StoreHalf(uint32(i)*2, h))
	}
	core.SetEntry(0, true)
	return core
}

func TestThumbImmediateOperations(t *testing.T) {
	core := newThumbCore(t,
		0x2005, // movs r0, #5
		0x3003, // adds r0, #3
		0x3808, // subs r0, #8
	)

	core.Step()
	assert.Equal(t, uint32(5), core.Reg(0))
	assert.False(t, core.CPSR().Z())

	core.Step()
	assert.Equal(t, uint32(8), core.Reg(0))

	core.Step()
	assert.Equal(t, uint32(0), core.Reg(0))
	assert.True(t, core.CPSR().Z())
	assert.True(t, core.CPSR().C(), "no borrow")
}

func TestThumbAddSubRegister(t *testing.T) {
	core := newThumbCore(t,
		0x1842, // adds r2, r0, r1
		0x1A53, // subs r3, r2, r1
	)
	core.SetReg(0, 30)
	core.SetReg(1, 12)

	core.Step()
	assert.Equal(t, uint32(42), core.Reg(2))

	core.Step()
	assert.Equal(t, uint32(30), core.Reg(3))
}

func TestThumbShiftImmediate(t *testing.T) {
	core := newThumbCore(t,
		0x0088, // lsls r0, r1, #2
		0x0851, // lsrs r1, r2, #1
	)
	core.SetReg(1, 3)
	core.SetReg(2, 5)

	core.Step()
	assert.Equal(t, uint32(12), core.Reg(0))

	core.Step()
	assert.Equal(t, uint32(2), core.Reg(1))
	assert.True(t, core.CPSR().C(), "dropped bit 0")
}

func TestThumbALUOperations(t *testing.T) {
	for _, testCase := range []struct {
		name   string
		instr  uint16
		rd, rs uint32
		result uint32
	}{
		{"ands", 0x4008, 0xFF, 0x0F, 0x0F},
		{"eors", 0x4048, 0xFF, 0x0F, 0xF0},
		{"orrs", 0x4308, 0xF0, 0x0F, 0xFF},
		{"bics", 0x4388, 0xFF, 0x0F, 0xF0},
		{"muls", 0x4348, 6, 7, 42},
		{"mvns", 0x43C8, 0, 0xFFFF0000, 0x0000FFFF},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			// all encodings operate on rd=r0, rs=r1
			core := newThumbCore(t, testCase.instr)
			core.SetReg(0, testCase.rd)
			core.SetReg(1, testCase.rs)

			core.Step()
			assert.Equal(t, testCase.result, core.Reg(0))
		})
	}
}

func TestThumbNegate(t *testing.T) {
	core := newThumbCore(t, 0x4248) // negs r0, r1
	core.SetReg(1, 1)

	core.Step()
	assert.Equal(t, uint32(0xFFFFFFFF), core.Reg(0))
	assert.True(t, core.CPSR().N())
}

func TestThumbHiRegisterOperations(t *testing.T) {
	core := newThumbCore(t,
		0x4686, // mov lr, r0
		0x44F6, // add lr, lr
	)
	core.SetReg(0, 0x21)

	core.Step()
	assert.Equal(t, uint32(0x21), core.Reg(14))

	core.Step()
	assert.Equal(t, uint32(0x42), core.Reg(14))
}

func TestThumbMovFromPC(t *testing.T) {
	core := newThumbCore(t,
		0x46C0, // nop (mov r8, r8)
		0x4678, // mov r0, pc
	)

	core.Step()
	core.Step()
	assert.Equal(t, uint32(2+4), core.Reg(0), "pc reads the instruction address plus 4")
}

func TestThumbPCRelativeLoad(t *testing.T) {
	core := newThumbCore(t, 0x4801) // ldr r0, [pc, #4]
	// pc base is (0+4) aligned to 4, so the word loads from 8
	require.NoError(t, core.Memory().StoreWord(8, 0xDEADBEEF))

	core.Step()
	assert.Equal(t, uint32(0xDEADBEEF), core.Reg(0))
}

func TestThumbLoadStore(t *testing.T) {
	core := newThumbCore(t,
		0x6008, // str r0, [r1]
		0x684A, // ldr r2, [r1, #4]
		0x7008, // strb r0, [r1]
		0x8808, // ldrh r0, [r1]
	)
	core.SetReg(0, 0x12345678)
	core.SetReg(1, 0x400)
	require.NoError(t, core.Memory().StoreWord(0x404, 0x42))

	core.Step()
	word, err := core.Memory().LoadWord(0x400)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), word)

	core.Step()
	assert.Equal(t, uint32(0x42), core.Reg(2))

	core.Step() // strb overwrites the low byte only
	word, err = core.Memory().LoadWord(0x400)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), word)

	core.Step()
	assert.Equal(t, uint32(0x5678), core.Reg(0))
}

func TestThumbStackOperations(t *testing.T) {
	core := newThumbCore(t,
		0xB082, // sub sp, #8
		0x9001, // str r0, [sp, #4]
		0x9901, // ldr r1, [sp, #4]
		0xB002, // add sp, #8
	)
	core.SetReg(13, 0x1000)
	core.SetReg(0, 77)

	core.Step()
	assert.Equal(t, uint32(0xFF8), core.Reg(13))

	core.Step()
	core.Step()
	assert.Equal(t, uint32(77), core.Reg(1))

	core.Step()
	assert.Equal(t, uint32(0x1000), core.Reg(13))
}

func TestThumbPushPop(t *testing.T) {
	core := newThumbCore(t,
		0xB503, // push {r0, r1, lr}
		0xBC0C, // pop {r2, r3}
	)
	core.SetReg(13, 0x1000)
	core.SetReg(0, 1)
	core.SetReg(1, 2)
	core.SetReg(14, 0x99)

	core.Step()
	assert.Equal(t, uint32(0x1000-12), core.Reg(13))
	top, err := core.Memory().LoadWord(0x1000 - 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x99), top, "lr pushed highest")

	core.Step()
	assert.Equal(t, uint32(1), core.Reg(2))
	assert.Equal(t, uint32(2), core.Reg(3))
	assert.Equal(t, uint32(0x1000-4), core.Reg(13))
}

func TestThumbPopReturnsThroughPC(t *testing.T) {
	core := newThumbCore(t, 0xBD00) // pop {pc}
	core.SetReg(13, 0x800)
	require.NoError(t, core.Memory().StoreWord(0x800, 0x20))

	core.Step()
	assert.Equal(t, uint32(0x22), core.Reg(15))
	assert.Equal(t, uint32(0x804), core.Reg(13))
	assert.Equal(t, isa.ModeThumb, core.Mode(), "pop does not interwork")
}

func TestThumbMultipleTransfer(t *testing.T) {
	core := newThumbCore(t,
		0xC007, // stmia r0!, {r0, r1, r2}
		0xC918, // ldmia r1!, {r3, r4}
	)
	core.SetReg(0, 0x500)
	core.SetReg(1, 0x501)
	core.SetReg(2, 0x502)

	core.Step()
	assert.Equal(t, uint32(0x50C), core.Reg(0), "base written back")
	first, err := core.Memory().LoadWord(0x500)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x500), first, "stored the pre-increment base")

	core.SetReg(1, 0x500)
	core.Step()
	assert.Equal(t, uint32(0x500), core.Reg(3))
	assert.Equal(t, uint32(0x501), core.Reg(4))
	assert.Equal(t, uint32(0x508), core.Reg(1))
}

func TestThumbConditionalBranch(t *testing.T) {
	core := newThumbCore(t,
		0x2800, // cmp r0, #0
		0xD001, // beq 0x8
		0x2101, // movs r1, #1 (skipped)
		0x2102, // movs r1, #2 (skipped)
		0x2202, // movs r2, #2
	)

	core.Step()
	core.Step()
	assert.Equal(t, uint32(8+2), core.Reg(15), "branch taken")

	core.Step()
	assert.Equal(t, uint32(0), core.Reg(1))
	assert.Equal(t, uint32(2), core.Reg(2))
}

func TestThumbConditionalBranchNotTaken(t *testing.T) {
	core := newThumbCore(t,
		0x2801, // cmp r0, #1 (r0 is 0, not equal)
		0xD001, // beq +2
		0x2101, // movs r1, #1
	)

	core.Step()
	core.Step()
	core.Step()
	assert.Equal(t, uint32(1), core.Reg(1), "fall through executed")
}

func TestThumbUnconditionalBranch(t *testing.T) {
	core := newThumbCore(t, 0xE002) // b +4 (to 8)

	core.Step()
	assert.Equal(t, uint32(8+2), core.Reg(15))
}

func TestThumbLongBranchWithLink(t *testing.T) {
	core := newThumbCore(t,
		0xF000, // bl prefix
		0xF802, // bl suffix, target 8
	)

	core.Step()
	core.Step()
	assert.Equal(t, uint32(8+2), core.Reg(15))
	assert.Equal(t, uint32(4|1), core.Reg(14), "return address with the Thumb bit")
}

func TestThumbBranchExchangeToARM(t *testing.T) {
	core := newThumbCore(t, 0x4700) // bx r0
	core.SetReg(0, 0x100)
	require.NoError(t, core.Memory().StoreWord(0x100, 0xE3A00055)) // mov r0, #0x55

	core.Step()
	assert.Equal(t, isa.ModeARM, core.Mode())

	core.Step()
	assert.Equal(t, uint32(0x55), core.Reg(0))
}

func TestThumbSoftwareInterruptTraps(t *testing.T) {
	core := newThumbCore(t, 0xDF18) // swi 0x18

	info := core.Step()
	assert.Equal(t, arm.StopIllegal, info.Reason)
}

func TestThumbUndefinedEncodingTraps(t *testing.T) {
	core := newThumbCore(t, 0xDE00) // the al condition slot is undefined

	info := core.Step()
	assert.Equal(t, arm.StopIllegal, info.Reason)
	assert.Equal(t, uint32(0+2), core.Reg(15), "pc stays put")
}
