package arm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm"
	"github.com/armadillo-emu/armadillo/pkg/hw/arm/isa"
)

// newTestCore builds a core with the given ARM words loaded from address 0
func newTestCore(t *testing.T, words ...uint32) *arm.Core {
	t.Helper()
	core := arm.NewCore(arm.DefaultMemorySize)
	for i, w := range words {
		require.NoError(t, core.Memory().StoreWord(uint32(i)*4, w))
	}
	core.SetEntry(0, false)
	return core
}

func TestStepAdvancesOneInstruction(t *testing.T) {
	core := newTestCore(t,
		0xE3A00001, // mov r0, #1
		0xE3A01002, // mov r1, #2
	)

	info := core.Step()
	assert.Equal(t, arm.StopStep, info.Reason)
	assert.Equal(t, uint32(0), info.Addr)
	assert.Equal(t, 1, info.Steps)
	assert.Equal(t, uint32(1), core.Reg(0))

	info = core.Step()
	assert.Equal(t, uint32(4), info.Addr)
	assert.Equal(t, uint32(2), core.Reg(1))
}

func TestProgramCounterPipelineSkew(t *testing.T) {
	// paused before the instruction at 0, r15 reads one width ahead
	core := newTestCore(t, 0xE1A0000F) // mov r0, pc
	assert.Equal(t, uint32(4), core.Reg(15))

	core.Step()
	assert.Equal(t, uint32(8), core.Reg(0), "r15 reads fetch+8 during execution")
	assert.Equal(t, uint32(8), core.Reg(15), "at rest r15 is one width past the next instruction")
}

func TestBranchWithLink(t *testing.T) {
	core := newTestCore(t,
		0xEB000000, // bl 0x8
		0xE3A00001, // mov r0, #1 (skipped)
		0xE3A00002, // mov r0, #2
	)

	core.Step()
	assert.Equal(t, uint32(4), core.Reg(14), "lr holds the return address")
	assert.Equal(t, uint32(12), core.Reg(15), "fetch moved to 0x8")

	core.Step()
	assert.Equal(t, uint32(2), core.Reg(0))
}

func TestBranchExchangeEntersThumb(t *testing.T) {
	core := newTestCore(t,
		0xE3A00009, // mov r0, #9
		0xE12FFF10, // bx r0
	)
	require.NoError(t, core.Memory().StoreHalf(8, 0x2007)) // movs r0, #7

	core.Step()
	core.Step()
	assert.Equal(t, isa.ModeThumb, core.Mode())
	assert.Equal(t, uint32(8+2), core.Reg(15), "pc aligned to the halfword at 8")

	core.Step()
	assert.Equal(t, uint32(7), core.Reg(0))
}

func TestRunStopsAtBreakpoint(t *testing.T) {
	core := newTestCore(t,
		0xE3A00001, // mov r0, #1
		0xE3A01002, // mov r1, #2
		0xE3A02003, // mov r2, #3
	)
	bp := core.SetBreakpoint(8)

	info := core.Run()
	assert.Equal(t, arm.StopBreakpoint, info.Reason)
	assert.Equal(t, bp.Addr, info.Addr)
	assert.Equal(t, 2, info.Steps)
	assert.Equal(t, uint32(2), core.Reg(1))
	assert.Equal(t, uint32(0), core.Reg(2), "instruction under the breakpoint did not run")
}

func TestRunResumesPastCurrentBreakpoint(t *testing.T) {
	core := newTestCore(t,
		0xE3A00001, // mov r0, #1
		0xE3A01002, // mov r1, #2
	)
	core.SetBreakpoint(0)
	core.AddTerminationAddress(8)

	// a breakpoint on the paused address must not re-trigger immediately
	info := core.Run()
	assert.Equal(t, arm.StopHalt, info.Reason)
	assert.Equal(t, 2, info.Steps)
}

func TestWatchpointStopsOnStore(t *testing.T) {
	core := newTestCore(t,
		0xE3A00C02, // mov r0, #0x200
		0xE3A01064, // mov r1, #100
		0xE5801000, // str r1, [r0]
		0xE3A02005, // mov r2, #5
	)
	core.SetWatchpoint(0x200)
	core.AddTerminationAddress(16)

	info := core.Run()
	assert.Equal(t, arm.StopWatchpoint, info.Reason)
	assert.Equal(t, uint32(0x200), info.Addr)

	stored, err := core.Memory().LoadWord(0x200)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), stored, "the store completed before stopping")
	assert.Equal(t, uint32(0), core.Reg(2), "execution paused after the store")
}

func TestWatchpointSeesPartialOverlap(t *testing.T) {
	// a word store covering the watched byte still triggers
	core := newTestCore(t,
		0xE3A00C02, // mov r0, #0x200
		0xE3A01064, // mov r1, #100
		0xE5801000, // str r1, [r0]
	)
	core.SetWatchpoint(0x203)

	info := core.Run()
	assert.Equal(t, arm.StopWatchpoint, info.Reason)
	assert.Equal(t, uint32(0x203), info.Addr)
}

func TestLoadsDoNotTriggerWatchpoints(t *testing.T) {
	core := newTestCore(t,
		0xE3A00C02, // mov r0, #0x200
		0xE5901000, // ldr r1, [r0]
	)
	core.SetWatchpoint(0x200)
	core.AddTerminationAddress(8)

	info := core.Run()
	assert.Equal(t, arm.StopHalt, info.Reason)
}

func TestIllegalInstructionHoldsPC(t *testing.T) {
	core := newTestCore(t,
		0xE3A00001, // mov r0, #1
		0xF0000000, // undefined
	)

	core.Step()
	info := core.Step()
	assert.Equal(t, arm.StopIllegal, info.Reason)
	assert.Equal(t, uint32(4), info.Addr)
	assert.Equal(t, uint32(4+4), core.Reg(15), "pc stays on the faulting instruction")

	// stepping again traps again
	info = core.Step()
	assert.Equal(t, arm.StopIllegal, info.Reason)
}

func TestSoftwareInterruptTraps(t *testing.T) {
	core := newTestCore(t, 0xEF000000) // swi 0x0

	info := core.Step()
	assert.Equal(t, arm.StopIllegal, info.Reason)
	assert.Equal(t, uint32(0), info.Addr)
}

func TestInterruptStopsRun(t *testing.T) {
	core := newTestCore(t, 0xEAFFFFFE) // b 0x0 (spin forever)

	go func() {
		time.Sleep(10 * time.Millisecond)
		core.Interrupt()
	}()

	info := core.Run()
	assert.Equal(t, arm.StopInterrupt, info.Reason)
}

func TestPendingInterruptStopsBeforeStepping(t *testing.T) {
	core := newTestCore(t, 0xE3A00001)
	core.Interrupt()

	info := core.Run()
	assert.Equal(t, arm.StopInterrupt, info.Reason)
	assert.Equal(t, 0, info.Steps)
	assert.Equal(t, uint32(0), core.Reg(0))
}

func TestTerminationAddressHalts(t *testing.T) {
	core := newTestCore(t,
		0xE3A00001, // mov r0, #1
		0xE3A01002, // mov r1, #2
	)
	core.AddTerminationAddress(8)

	info := core.Run()
	assert.Equal(t, arm.StopHalt, info.Reason)
	assert.Equal(t, uint32(8), info.Addr)
	assert.Equal(t, 2, info.Steps)
}

func TestResetReturnsToEntry(t *testing.T) {
	core := newTestCore(t,
		0xE3A00001, // mov r0, #1
		0xE3A01002, // mov r1, #2
	)
	core.SetEntry(0, false)
	core.Step()
	core.Step()
	require.Equal(t, uint32(1), core.Reg(0))

	core.Reset()
	assert.Equal(t, uint32(0), core.Reg(0))
	assert.Equal(t, uint32(0), core.Reg(1))
	assert.Equal(t, uint32(4), core.Reg(15), "fetch back at the entry point")

	// program memory survives a reset
	word, err := core.Memory().LoadWord(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xE3A00001), word)
}

func TestSetEntryThumb(t *testing.T) {
	core := arm.NewCore(arm.DefaultMemorySize)
	core.SetEntry(0x100, true)

	assert.Equal(t, isa.ModeThumb, core.Mode())
	assert.True(t, core.CPSR().T())
	assert.Equal(t, uint32(0x102), core.Reg(15))
}

func TestBreakpointBookkeeping(t *testing.T) {
	core := arm.NewCore(arm.DefaultMemorySize)

	first := core.SetBreakpoint(0x10)
	second := core.SetBreakpoint(0x20)
	assert.Less(t, first.ID, second.ID)

	// installing at the same address returns the existing entry
	again := core.SetBreakpoint(0x10)
	assert.Equal(t, first.ID, again.ID)

	list := core.Breakpoints()
	require.Len(t, list, 2)
	assert.Equal(t, uint32(0x10), list[0].Addr)
	assert.Equal(t, uint32(0x20), list[1].Addr)

	assert.True(t, core.ClearBreakpoint(0x10))
	assert.False(t, core.ClearBreakpoint(0x10))
	assert.Len(t, core.Breakpoints(), 1)
}

func TestWatchpointBookkeeping(t *testing.T) {
	core := arm.NewCore(arm.DefaultMemorySize)

	core.SetWatchpoint(0x300)
	core.SetWatchpoint(0x304)
	assert.Len(t, core.Watchpoints(), 2)

	assert.True(t, core.ClearWatchpoint(0x304))
	assert.False(t, core.ClearWatchpoint(0x304))
	require.Len(t, core.Watchpoints(), 1)
	assert.Equal(t, uint32(0x300), core.Watchpoints()[0].Addr)
}

func TestRegisterWriteToPCBranches(t *testing.T) {
	core := arm.NewCore(arm.DefaultMemorySize)
	core.SetReg(15, 0x40)
	assert.Equal(t, uint32(0x44), core.Reg(15))
}
