// Package arm simulates an ARM-family processor core.
//
// # Overview
//
// The simulated machine is a [Core]: sixteen general registers, a program
// status register and a flat little-endian [Memory]. The core executes a
// subset of the ARM and Thumb instruction sets, switching encodings through
// the T bit of the status register (bx interworking).
//
// Register 15 models the fetch pipeline: between instructions it reads as the
// address of the next instruction plus one instruction width, and during
// execution of the instruction at A operand reads yield A plus twice the
// width. Debuggers therefore find the instruction about to execute at
// pc minus one width.
//
// # Run control
//
// [Core.Step] executes exactly one instruction. [Core.Run] executes until a
// stop condition: a breakpoint on the next fetch address, a watchpoint
// triggered by a store, an undefined instruction, a termination address, or
// an external interrupt request. [Core.Interrupt] only sets an atomic flag
// and is safe to call from signal handling goroutines.
package arm

import (
	"sort"
	"sync/atomic"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm/isa"
)

// StopReason describes why execution handed control back to the caller.
type StopReason int

const (
	// StopNone means execution has not stopped
	StopNone StopReason = iota
	// StopStep means a requested single step completed
	StopStep
	// StopBreakpoint means the next fetch address carries a breakpoint
	StopBreakpoint
	// StopWatchpoint means an executed store touched a watched address
	StopWatchpoint
	// StopIllegal means the fetched word is not a valid instruction
	StopIllegal
	// StopInterrupt means an external interrupt request was observed
	StopInterrupt
	// StopHalt means execution reached a termination address
	StopHalt
)

// String returns a human readable stop cause
func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "running"
	case StopStep:
		return "step complete"
	case StopBreakpoint:
		return "breakpoint"
	case StopWatchpoint:
		return "watchpoint"
	case StopIllegal:
		return "illegal instruction"
	case StopInterrupt:
		return "interrupted"
	case StopHalt:
		return "halted"
	default:
		return "unknown"
	}
}

// StopInfo reports the outcome of a Step or Run call.
type StopInfo struct {
	// Reason is why execution stopped
	Reason StopReason
	// Addr is the instruction or data address associated with the stop
	Addr uint32
	// Steps is the number of instructions executed during the call
	Steps int
}

// Breakpoint pauses execution before the instruction at Addr executes.
type Breakpoint struct {
	ID   int
	Addr uint32
}

// Watchpoint pauses execution after a store to Addr.
type Watchpoint struct {
	ID   int
	Addr uint32
}

// Core is one simulated processor with its attached memory.
type Core struct {
	gprs [16]uint32
	cpsr PSR
	mem  *Memory

	breakpoints  map[uint32]*Breakpoint
	watchpoints  map[uint32]*Watchpoint
	terminations map[uint32]struct{}
	nextID       int

	interrupt atomic.Bool

	// watchHit holds the data address of a store that triggered a
	// watchpoint during the current instruction, if any
	watchHit  *uint32
	entryAddr uint32
	entryMode isa.Mode
}

// NewCore creates a core with a zeroed RAM of the given size
func NewCore(memSize uint32) *Core {
	c := &Core{
		mem:          NewMemory(memSize),
		breakpoints:  make(map[uint32]*Breakpoint),
		watchpoints:  make(map[uint32]*Watchpoint),
		terminations: make(map[uint32]struct{}),
		nextID:       1,
	}
	c.setPC(0)
	return c
}

// Memory returns the attached RAM
func (c *Core) Memory() *Memory {
	return c.mem
}

// Reg reads general register i; register 15 reads with the pipeline skew
func (c *Core) Reg(i int) uint32 {
	return c.gprs[i]
}

// SetReg writes general register i; writing register 15 branches
func (c *Core) SetReg(i int, v uint32) {
	if i == 15 {
		c.setPC(v)
		return
	}
	c.gprs[i] = v
}

// CPSR returns the program status register
func (c *Core) CPSR() PSR {
	return c.cpsr
}

// SetCPSR replaces the program status register
func (c *Core) SetCPSR(p PSR) {
	// resolve the fetch address under the old encoding before the
	// T bit can change the pipeline skew
	fetch := c.fetchPC()
	c.cpsr = p
	c.setPC(fetch)
}

// Mode returns the active instruction encoding
func (c *Core) Mode() isa.Mode {
	return c.cpsr.Mode()
}

// width returns the instruction width of the active encoding
func (c *Core) width() uint32 {
	return c.Mode().InstructionWidth()
}

// fetchPC returns the address of the next instruction to execute
func (c *Core) fetchPC() uint32 {
	return c.gprs[15] - c.width()
}

// setPC points the fetch stage at addr, aligned to the active width
func (c *Core) setPC(addr uint32) {
	addr &^= c.width() - 1
	c.gprs[15] = addr + c.width()
}

// SetEntry sets the execution entry point and encoding; the same state is
// restored by Reset
func (c *Core) SetEntry(addr uint32, thumb bool) {
	c.entryAddr = addr
	c.entryMode = isa.ModeARM
	if thumb {
		c.entryMode = isa.ModeThumb
	}
	c.cpsr.SetT(thumb)
	c.setPC(addr)
}

// Reset clears registers and flags and returns to the entry point.
// Memory contents and breakpoints are preserved.
func (c *Core) Reset() {
	c.gprs = [16]uint32{}
	c.cpsr = 0
	c.interrupt.Store(false)
	c.watchHit = nil
	c.cpsr.SetT(c.entryMode == isa.ModeThumb)
	c.setPC(c.entryAddr)
}

// Interrupt requests that a running core stop. Only an atomic flag is
// touched, so this is safe to call from signal handlers and other
// goroutines while the core executes.
func (c *Core) Interrupt() {
	c.interrupt.Store(true)
}

// InterruptRequested reports and clears a pending interrupt request
func (c *Core) InterruptRequested() bool {
	return c.interrupt.Swap(false)
}

// --- Breakpoints and watchpoints ---

// SetBreakpoint installs (or returns the existing) breakpoint at addr
func (c *Core) SetBreakpoint(addr uint32) *Breakpoint {
	if bp, ok := c.breakpoints[addr]; ok {
		return bp
	}
	bp := &Breakpoint{ID: c.nextID, Addr: addr}
	c.nextID++
	c.breakpoints[addr] = bp
	return bp
}

// ClearBreakpoint removes the breakpoint at addr, reporting whether one existed
func (c *Core) ClearBreakpoint(addr uint32) bool {
	if _, ok := c.breakpoints[addr]; !ok {
		return false
	}
	delete(c.breakpoints, addr)
	return true
}

// SetWatchpoint installs (or returns the existing) watchpoint at addr
func (c *Core) SetWatchpoint(addr uint32) *Watchpoint {
	if wp, ok := c.watchpoints[addr]; ok {
		return wp
	}
	wp := &Watchpoint{ID: c.nextID, Addr: addr}
	c.nextID++
	c.watchpoints[addr] = wp
	return wp
}

// ClearWatchpoint removes the watchpoint at addr, reporting whether one existed
func (c *Core) ClearWatchpoint(addr uint32) bool {
	if _, ok := c.watchpoints[addr]; !ok {
		return false
	}
	delete(c.watchpoints, addr)
	return true
}

// Breakpoints lists installed breakpoints in creation order
func (c *Core) Breakpoints() []*Breakpoint {
	out := make([]*Breakpoint, 0, len(c.breakpoints))
	for _, bp := range c.breakpoints {
		out = append(out, bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Watchpoints lists installed watchpoints in creation order
func (c *Core) Watchpoints() []*Watchpoint {
	out := make([]*Watchpoint, 0, len(c.watchpoints))
	for _, wp := range c.watchpoints {
		out = append(out, wp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddTerminationAddress registers an address that halts execution when
// it becomes the next fetch address, used to detect return from the
// program's entry function
func (c *Core) AddTerminationAddress(addr uint32) {
	c.terminations[addr] = struct{}{}
}

// --- Run control ---

// Step executes exactly one instruction. Breakpoints are not checked,
// watchpoints and undefined instructions are.
func (c *Core) Step() StopInfo {
	fetch := c.fetchPC()

	if _, ok := c.terminations[fetch]; ok {
		return StopInfo{Reason: StopHalt, Addr: fetch}
	}

	c.watchHit = nil

	var ok bool
	if c.cpsr.T() {
		ok = c.stepThumb(fetch)
	} else {
		ok = c.stepARM(fetch)
	}
	if !ok {
		return StopInfo{Reason: StopIllegal, Addr: fetch}
	}

	if c.watchHit != nil {
		return StopInfo{Reason: StopWatchpoint, Addr: *c.watchHit, Steps: 1}
	}
	return StopInfo{Reason: StopStep, Addr: fetch, Steps: 1}
}

// Run executes instructions until a stop condition occurs.
func (c *Core) Run() StopInfo {
	steps := 0
	for {
		if c.InterruptRequested() {
			return StopInfo{Reason: StopInterrupt, Addr: c.fetchPC(), Steps: steps}
		}
		if bp, ok := c.breakpoints[c.fetchPC()]; ok && steps > 0 {
			return StopInfo{Reason: StopBreakpoint, Addr: bp.Addr, Steps: steps}
		}

		info := c.Step()
		steps += info.Steps
		if info.Reason != StopStep {
			info.Steps = steps
			return info
		}
	}
}

// store routines used by the executing instruction stream; stores are
// checked against watchpoints, loads are not (watch-on-write model)

func (c *Core) execStoreByte(addr uint32, v uint8) {
	_ = c.mem.StoreByte(addr, v)
	c.checkWatch(addr, 1)
}

func (c *Core) execStoreHalf(addr uint32, v uint16) {
	_ = c.mem.StoreHalf(addr, v)
	c.checkWatch(addr, 2)
}

func (c *Core) execStoreWord(addr uint32, v uint32) {
	_ = c.mem.StoreWord(addr, v)
	c.checkWatch(addr, 4)
}

func (c *Core) execLoadByte(addr uint32) uint8 {
	v, _ := c.mem.LoadByte(addr)
	return v
}

func (c *Core) execLoadHalf(addr uint32) uint16 {
	v, _ := c.mem.LoadHalf(addr)
	return v
}

func (c *Core) execLoadWord(addr uint32) uint32 {
	v, _ := c.mem.LoadWord(addr)
	return v
}

func (c *Core) checkWatch(addr uint32, width uint32) {
	if c.watchHit != nil {
		return
	}
	for a := addr; a < addr+width; a++ {
		if wp, ok := c.watchpoints[a]; ok {
			hit := wp.Addr
			c.watchHit = &hit
			return
		}
	}
}
