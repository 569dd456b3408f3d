package arm

import (
	"github.com/armadillo-emu/armadillo/pkg/utils"
)

// stepThumb executes the Thumb instruction at fetch. During execution r15
// reads as fetch+4, which is also the at-rest skew for fetch+2.
func (c *Core) stepThumb(fetch uint32) bool {
	raw := uint32(c.execLoadHalf(fetch))
	c.gprs[15] = fetch + 4
	if !c.executeThumb(raw) {
		c.setPC(fetch)
		return false
	}
	return true
}

// registerShift shifts by an amount taken from a register, where zero
// leaves the value and carry untouched
func (c *Core) registerShift(rm, kind, amount uint32) (uint32, bool) {
	if amount == 0 {
		return rm, c.cpsr.C()
	}
	return shiftValue(rm, kind, amount)
}

// executeThumb runs one Thumb halfword. The format checks mirror the
// disassembler's ordering.
func (c *Core) executeThumb(w uint32) bool {
	switch {
	case w&0xF800 == 0x1800:
		c.executeThumbAddSub(w)
	case w&0xE000 == 0x0000:
		c.executeThumbShift(w)
	case w&0xE000 == 0x2000:
		c.executeThumbImmediate(w)
	case w&0xFC00 == 0x4000:
		c.executeThumbALU(w)
	case w&0xFC00 == 0x4400:
		return c.executeThumbHiRegister(w)
	case w&0xF800 == 0x4800:
		rd := int(utils.Field(w, 8, 3))
		addr := (c.gprs[15] &^ 3) + utils.Field(w, 0, 8)<<2
		c.SetReg(rd, c.execLoadWord(addr))
	case w&0xF200 == 0x5000:
		c.executeThumbRegisterTransfer(w)
	case w&0xF200 == 0x5200:
		c.executeThumbSignedTransfer(w)
	case w&0xE000 == 0x6000:
		c.executeThumbImmediateTransfer(w)
	case w&0xF000 == 0x8000:
		c.executeThumbHalfwordTransfer(w)
	case w&0xF000 == 0x9000:
		c.executeThumbStackTransfer(w)
	case w&0xF000 == 0xA000:
		rd := int(utils.Field(w, 8, 3))
		base := c.gprs[13]
		if !utils.Bit(w, 11) {
			base = c.gprs[15] &^ 3
		}
		c.gprs[rd] = base + utils.Field(w, 0, 8)<<2
	case w&0xFF00 == 0xB000:
		offset := utils.Field(w, 0, 7) << 2
		if utils.Bit(w, 7) {
			c.gprs[13] -= offset
		} else {
			c.gprs[13] += offset
		}
	case w&0xF600 == 0xB400:
		c.executeThumbPushPop(w)
	case w&0xF000 == 0xC000:
		c.executeThumbMultipleTransfer(w)
	case w&0xF000 == 0xD000:
		return c.executeThumbConditionalBranch(w)
	case w&0xF800 == 0xE000:
		c.setPC(c.gprs[15] + utils.SignExtend(utils.Field(w, 0, 11), 11)<<1)
	case w&0xF000 == 0xF000:
		c.executeThumbLongBranch(w)
	default:
		return false
	}
	return true
}

func (c *Core) executeThumbAddSub(w uint32) {
	rd := int(utils.Field(w, 0, 3))
	rs := c.gprs[utils.Field(w, 3, 3)]

	operand := utils.Field(w, 6, 3)
	if !utils.Bit(w, 10) {
		operand = c.gprs[operand]
	}

	if utils.Bit(w, 9) {
		c.gprs[rd] = c.subWithFlags(rs, operand, 0, true)
	} else {
		c.gprs[rd] = c.addWithFlags(rs, operand, 0, true)
	}
}

func (c *Core) executeThumbShift(w uint32) {
	rd := int(utils.Field(w, 0, 3))
	rs := c.gprs[utils.Field(w, 3, 3)]
	kind := utils.Field(w, 11, 2)

	result, carry := c.immediateShift(rs, kind, utils.Field(w, 6, 5))
	c.setLogicalFlags(result, carry)
	c.gprs[rd] = result
}

func (c *Core) executeThumbImmediate(w uint32) {
	rd := int(utils.Field(w, 8, 3))
	imm := utils.Field(w, 0, 8)

	switch utils.Field(w, 11, 2) {
	case 0: // mov
		c.gprs[rd] = imm
		c.setNZ(imm)
	case 1: // cmp
		c.subWithFlags(c.gprs[rd], imm, 0, true)
	case 2: // add
		c.gprs[rd] = c.addWithFlags(c.gprs[rd], imm, 0, true)
	default: // sub
		c.gprs[rd] = c.subWithFlags(c.gprs[rd], imm, 0, true)
	}
}

func (c *Core) executeThumbALU(w uint32) {
	rd := int(utils.Field(w, 0, 3))
	rs := c.gprs[utils.Field(w, 3, 3)]
	value := c.gprs[rd]

	write := func(result uint32) {
		c.gprs[rd] = result
		c.setNZ(result)
	}

	switch utils.Field(w, 6, 4) {
	case 0: // and
		write(value & rs)
	case 1: // eor
		write(value ^ rs)
	case 2: // lsl
		result, carry := c.registerShift(value, 0, rs&0xFF)
		c.setLogicalFlags(result, carry)
		c.gprs[rd] = result
	case 3: // lsr
		result, carry := c.registerShift(value, 1, rs&0xFF)
		c.setLogicalFlags(result, carry)
		c.gprs[rd] = result
	case 4: // asr
		result, carry := c.registerShift(value, 2, rs&0xFF)
		c.setLogicalFlags(result, carry)
		c.gprs[rd] = result
	case 5: // adc
		c.gprs[rd] = c.addWithFlags(value, rs, c.carryIn(), true)
	case 6: // sbc
		c.gprs[rd] = c.subWithFlags(value, rs, c.borrowIn(), true)
	case 7: // ror
		result, carry := c.registerShift(value, 3, rs&0xFF)
		c.setLogicalFlags(result, carry)
		c.gprs[rd] = result
	case 8: // tst
		c.setNZ(value & rs)
	case 9: // neg
		c.gprs[rd] = c.subWithFlags(0, rs, 0, true)
	case 10: // cmp
		c.subWithFlags(value, rs, 0, true)
	case 11: // cmn
		c.addWithFlags(value, rs, 0, true)
	case 12: // orr
		write(value | rs)
	case 13: // mul
		write(value * rs)
	case 14: // bic
		write(value &^ rs)
	default: // mvn
		write(^rs)
	}
}

func (c *Core) executeThumbHiRegister(w uint32) bool {
	rd := int(utils.Field(w, 0, 3) | utils.Field(w, 7, 1)<<3)
	rs := int(utils.Field(w, 3, 3) | utils.Field(w, 6, 1)<<3)
	rsValue := c.gprs[rs]

	switch utils.Field(w, 8, 2) {
	case 0: // add, no flags
		c.SetReg(rd, c.gprs[rd]+rsValue)
	case 1: // cmp
		c.subWithFlags(c.gprs[rd], rsValue, 0, true)
	case 2: // mov, no flags
		c.SetReg(rd, rsValue)
	default: // bx
		if utils.Bit(w, 7) {
			return false
		}
		c.executeBranchExchange(rsValue)
	}
	return true
}

func (c *Core) executeThumbRegisterTransfer(w uint32) {
	rd := int(utils.Field(w, 0, 3))
	addr := c.gprs[utils.Field(w, 3, 3)] + c.gprs[utils.Field(w, 6, 3)]

	switch {
	case !utils.Bit(w, 11) && !utils.Bit(w, 10): // str
		c.execStoreWord(addr, c.gprs[rd])
	case !utils.Bit(w, 11): // strb
		c.execStoreByte(addr, uint8(c.gprs[rd]))
	case !utils.Bit(w, 10): // ldr
		c.gprs[rd] = c.execLoadWord(addr)
	default: // ldrb
		c.gprs[rd] = uint32(c.execLoadByte(addr))
	}
}

func (c *Core) executeThumbSignedTransfer(w uint32) {
	rd := int(utils.Field(w, 0, 3))
	addr := c.gprs[utils.Field(w, 3, 3)] + c.gprs[utils.Field(w, 6, 3)]

	switch utils.Field(w, 10, 2) {
	case 0: // strh
		c.execStoreHalf(addr, uint16(c.gprs[rd]))
	case 1: // ldsb
		c.gprs[rd] = utils.SignExtend(uint32(c.execLoadByte(addr)), 8)
	case 2: // ldrh
		c.gprs[rd] = uint32(c.execLoadHalf(addr))
	default: // ldsh
		c.gprs[rd] = utils.SignExtend(uint32(c.execLoadHalf(addr)), 16)
	}
}

func (c *Core) executeThumbImmediateTransfer(w uint32) {
	rd := int(utils.Field(w, 0, 3))
	base := c.gprs[utils.Field(w, 3, 3)]
	imm := utils.Field(w, 6, 5)

	if utils.Bit(w, 12) { // byte
		addr := base + imm
		if utils.Bit(w, 11) {
			c.gprs[rd] = uint32(c.execLoadByte(addr))
		} else {
			c.execStoreByte(addr, uint8(c.gprs[rd]))
		}
		return
	}

	addr := base + imm<<2
	if utils.Bit(w, 11) {
		c.gprs[rd] = c.execLoadWord(addr)
	} else {
		c.execStoreWord(addr, c.gprs[rd])
	}
}

func (c *Core) executeThumbHalfwordTransfer(w uint32) {
	rd := int(utils.Field(w, 0, 3))
	addr := c.gprs[utils.Field(w, 3, 3)] + utils.Field(w, 6, 5)<<1

	if utils.Bit(w, 11) {
		c.gprs[rd] = uint32(c.execLoadHalf(addr))
	} else {
		c.execStoreHalf(addr, uint16(c.gprs[rd]))
	}
}

func (c *Core) executeThumbStackTransfer(w uint32) {
	rd := int(utils.Field(w, 8, 3))
	addr := c.gprs[13] + utils.Field(w, 0, 8)<<2

	if utils.Bit(w, 11) {
		c.gprs[rd] = c.execLoadWord(addr)
	} else {
		c.execStoreWord(addr, c.gprs[rd])
	}
}

func (c *Core) executeThumbPushPop(w uint32) {
	list := utils.Field(w, 0, 8)
	linked := utils.Bit(w, 8)

	count := uint32(0)
	for i := 0; i < 8; i++ {
		if utils.Bit(list, i) {
			count++
		}
	}
	if linked {
		count++
	}

	if utils.Bit(w, 11) { // pop
		addr := c.gprs[13]
		c.gprs[13] += 4 * count
		for i := 0; i < 8; i++ {
			if utils.Bit(list, i) {
				c.gprs[i] = c.execLoadWord(addr)
				addr += 4
			}
		}
		if linked {
			c.setPC(c.execLoadWord(addr))
		}
		return
	}

	addr := c.gprs[13] - 4*count
	c.gprs[13] = addr
	for i := 0; i < 8; i++ {
		if utils.Bit(list, i) {
			c.execStoreWord(addr, c.gprs[i])
			addr += 4
		}
	}
	if linked {
		c.execStoreWord(addr, c.gprs[14])
	}
}

func (c *Core) executeThumbMultipleTransfer(w uint32) {
	rb := int(utils.Field(w, 8, 3))
	list := utils.Field(w, 0, 8)
	base := c.gprs[rb]

	count := uint32(0)
	for i := 0; i < 8; i++ {
		if utils.Bit(list, i) {
			count++
		}
	}

	load := utils.Bit(w, 11)
	if load {
		// writeback first so a loaded base register wins
		c.gprs[rb] = base + 4*count
	}

	addr := base
	for i := 0; i < 8; i++ {
		if !utils.Bit(list, i) {
			continue
		}
		if load {
			c.gprs[i] = c.execLoadWord(addr)
		} else {
			c.execStoreWord(addr, c.gprs[i])
		}
		addr += 4
	}

	if !load {
		c.gprs[rb] = base + 4*count
	}
}

func (c *Core) executeThumbConditionalBranch(w uint32) bool {
	cond := utils.Field(w, 8, 4)
	switch cond {
	case 14: // the al slot is an undefined encoding
		return false
	case 15: // swi traps, there is no handler on this machine
		return false
	}

	if c.conditionPassed(cond) {
		c.setPC(c.gprs[15] + utils.SignExtend(utils.Field(w, 0, 8), 8)<<1)
	}
	return true
}

// executeThumbLongBranch runs one half of the two-instruction bl pair
func (c *Core) executeThumbLongBranch(w uint32) {
	offset := utils.Field(w, 0, 11)
	if !utils.Bit(w, 11) {
		// first half stages the upper offset bits in lr
		c.gprs[14] = c.gprs[15] + utils.SignExtend(offset, 11)<<12
		return
	}

	target := c.gprs[14] + offset<<1
	c.gprs[14] = (c.gprs[15] - 2) | 1
	c.setPC(target)
}
