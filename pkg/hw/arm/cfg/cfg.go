// Package cfg recovers basic blocks and control flow edges from code
// already placed in memory.
//
// The analysis is a linear sweep: instructions are decoded from a start
// address until the instruction limit, the first undefined encoding or the
// edge of memory. Branch targets inside the swept range become block
// leaders, splitting the run into basic blocks linked by taken and
// fall-through edges. Code reachable only through data the sweep cannot
// decode is not discovered.
package cfg

import (
	"fmt"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm"
	"github.com/armadillo-emu/armadillo/pkg/hw/arm/isa"
	"github.com/armadillo-emu/armadillo/pkg/utils"
)

// DefaultSweepLimit bounds the number of instructions decoded when the
// caller does not give a limit.
const DefaultSweepLimit = 256

// Kind classifies how a block hands over control.
type Kind int

const (
	// KindFallthrough means the block ends only because its successor
	// starts one
	KindFallthrough Kind = iota
	// KindJump means the block ends with a direct branch
	KindJump
	// KindCall means the block ends with a branch that links the return
	// address, so control comes back to the fall-through side
	KindCall
	// KindIndirect means the block ends with a register branch whose
	// target is not statically known
	KindIndirect
	// KindStop means the block ends at an undefined encoding
	KindStop
)

// Block is one basic block of the swept code.
type Block struct {
	// Index numbers the blocks in address order starting from zero
	Index int

	// Instructions is the decoded block body, never empty. A Thumb bl
	// halfword pair appears as one merged instruction.
	Instructions []isa.Instruction

	// Kind tells how the block ends
	Kind Kind

	// Branch is the block the terminating branch jumps or calls to. It
	// stays nil for indirect branches and for targets outside the swept
	// range.
	Branch *Block

	// NoBranch is the fall-through successor, nil when the block cannot
	// fall through or the sweep ended at it
	NoBranch *Block

	target    uint32
	hasTarget bool
	falls     bool
}

// Start returns the address of the first instruction in the block.
func (b *Block) Start() uint32 {
	return b.Instructions[0].Addr
}

// swept is one decoded and classified instruction of the linear run
type swept struct {
	inst      isa.Instruction
	size      uint32
	kind      Kind
	target    uint32
	hasTarget bool
	falls     bool
}

// Analyze sweeps up to limit instructions starting at start and splits the
// run into basic blocks. A limit of zero or less means DefaultSweepLimit.
// The result is nil when not even one instruction can be decoded.
func Analyze(mem *arm.Memory, start uint32, mode isa.Mode, limit int) []*Block {
	if limit <= 0 {
		limit = DefaultSweepLimit
	}

	var run []swept
	inRun := make(map[uint32]bool)
	addr := start
	for len(run) < limit {
		s, ok := sweepOne(mem, addr, mode)
		if !ok {
			break
		}
		run = append(run, s)
		inRun[addr] = true
		addr += s.size
		if s.kind == KindStop {
			break
		}
	}
	if len(run) == 0 {
		return nil
	}

	// leaders split the run: every branch target inside it, and every
	// instruction behind a block terminator
	leaders := make(map[uint32]bool)
	for i, s := range run {
		if s.hasTarget && inRun[s.target] {
			leaders[s.target] = true
		}
		if s.kind != KindFallthrough && i+1 < len(run) {
			leaders[run[i+1].inst.Addr] = true
		}
	}

	var blocks []*Block
	cur := &Block{}
	for _, s := range run {
		if len(cur.Instructions) > 0 && leaders[s.inst.Addr] {
			blocks = append(blocks, cur)
			cur = &Block{Index: len(blocks)}
		}
		cur.Instructions = append(cur.Instructions, s.inst)
		cur.Kind = s.kind
		cur.target, cur.hasTarget, cur.falls = s.target, s.hasTarget, s.falls
	}
	blocks = append(blocks, cur)

	byStart := make(map[uint32]*Block, len(blocks))
	for _, b := range blocks {
		byStart[b.Start()] = b
	}
	for i, b := range blocks {
		if b.hasTarget {
			b.Branch = byStart[b.target]
		}
		if b.falls && i+1 < len(blocks) {
			b.NoBranch = blocks[i+1]
		}
	}
	return blocks
}

// sweepOne decodes and classifies the instruction at addr. The second
// return is false when the address lies outside memory.
func sweepOne(mem *arm.Memory, addr uint32, mode isa.Mode) (swept, bool) {
	if mode == isa.ModeARM {
		word, err := mem.LoadWord(addr)
		if err != nil {
			return swept{}, false
		}
		s := classifyARM(isa.Decode(word, addr, isa.ModeARM))
		s.size = 4
		return s, true
	}

	half, err := mem.LoadHalf(addr)
	if err != nil {
		return swept{}, false
	}
	w := uint32(half)

	// a bl halfword pair carries its target split across both halves;
	// merge it into one call-classified instruction
	if w&0xF800 == 0xF000 {
		if lo, err := mem.LoadHalf(addr + 2); err == nil && uint32(lo)&0xF800 == 0xF800 {
			offset := utils.SignExtend(utils.Field(w, 0, 11), 11)<<12 + utils.Field(uint32(lo), 0, 11)<<1
			target := addr + 4 + offset
			return swept{
				inst: isa.Instruction{
					Addr:     addr,
					Raw:      w,
					Mode:     isa.ModeThumb,
					Mnemonic: "bl",
					Operands: fmt.Sprintf("0x%08X", target),
				},
				size:      4,
				kind:      KindCall,
				target:    target,
				hasTarget: true,
				falls:     true,
			}, true
		}
	}

	s := classifyThumb(isa.Decode(w, addr, isa.ModeThumb))
	s.size = 2
	return s, true
}

func classifyARM(inst isa.Instruction) swept {
	s := swept{inst: inst, falls: true}
	if inst.Undefined() {
		s.kind, s.falls = KindStop, false
		return s
	}

	raw := inst.Raw
	unconditional := utils.Field(raw, 28, 4) == 14

	switch {
	case raw&0x0FFFFFF0 == 0x012FFF10:
		s.kind = KindIndirect
		s.falls = !unconditional

	case raw&0x0E000000 == 0x0A000000:
		offset := utils.SignExtend(utils.Field(raw, 0, 24), 24) << 2
		s.target = inst.Addr + 8 + offset
		s.hasTarget = true
		if utils.Bit(raw, 24) {
			s.kind = KindCall
		} else {
			s.kind = KindJump
			s.falls = !unconditional
		}

	case raw&0x0C000000 == 0x00000000 && utils.Field(raw, 21, 4) == 13 && utils.Field(raw, 12, 4) == 15,
		raw&0x0C100000 == 0x04100000 && utils.Field(raw, 12, 4) == 15,
		raw&0x0E108000 == 0x08108000:
		// a write into r15 is a return or computed jump
		s.kind = KindIndirect
		s.falls = !unconditional
	}
	return s
}

func classifyThumb(inst isa.Instruction) swept {
	s := swept{inst: inst, falls: true}
	if inst.Undefined() {
		s.kind, s.falls = KindStop, false
		return s
	}

	w := inst.Raw
	switch {
	case w&0xFF00 == 0xDF00:
		// swi stays a plain instruction

	case w&0xF000 == 0xD000:
		s.kind = KindJump
		s.target = inst.Addr + 4 + utils.SignExtend(utils.Field(w, 0, 8), 8)<<1
		s.hasTarget = true

	case w&0xF800 == 0xE000:
		s.kind = KindJump
		s.target = inst.Addr + 4 + utils.SignExtend(utils.Field(w, 0, 11), 11)<<1
		s.hasTarget = true
		s.falls = false

	case w&0xFF00 == 0xBD00:
		// pop with pc is a return
		s.kind = KindIndirect
		s.falls = false

	case w&0xFC00 == 0x4400 && utils.Field(w, 8, 2) == 3:
		s.kind = KindIndirect
		s.falls = false
	}
	return s
}
