package arm

import (
	"github.com/armadillo-emu/armadillo/pkg/utils"
)

// stepARM executes the ARM instruction at fetch. During execution r15 reads
// as fetch+8; an instruction that does not branch therefore leaves r15 with
// the correct at-rest skew for fetch+4.
func (c *Core) stepARM(fetch uint32) bool {
	raw := c.execLoadWord(fetch)
	c.gprs[15] = fetch + 8
	if !c.executeARM(raw) {
		// stay at the faulting instruction
		c.setPC(fetch)
		return false
	}
	return true
}

// conditionPassed evaluates an ARM condition code against the flags
func (c *Core) conditionPassed(cond uint32) bool {
	switch cond {
	case 0:
		return c.cpsr.Z()
	case 1:
		return !c.cpsr.Z()
	case 2:
		return c.cpsr.C()
	case 3:
		return !c.cpsr.C()
	case 4:
		return c.cpsr.N()
	case 5:
		return !c.cpsr.N()
	case 6:
		return c.cpsr.V()
	case 7:
		return !c.cpsr.V()
	case 8:
		return c.cpsr.C() && !c.cpsr.Z()
	case 9:
		return !c.cpsr.C() || c.cpsr.Z()
	case 10:
		return c.cpsr.N() == c.cpsr.V()
	case 11:
		return c.cpsr.N() != c.cpsr.V()
	case 12:
		return !c.cpsr.Z() && c.cpsr.N() == c.cpsr.V()
	case 13:
		return c.cpsr.Z() || c.cpsr.N() != c.cpsr.V()
	case 14:
		return true
	default:
		// the nv condition never executes
		return false
	}
}

// executeARM runs one decoded ARM word. The dispatch order mirrors the
// disassembler so both agree on which encodings are undefined.
func (c *Core) executeARM(raw uint32) bool {
	cond := utils.Field(raw, 28, 4)
	if cond == 15 {
		return false
	}
	if !c.conditionPassed(cond) {
		return true
	}

	switch {
	case raw&0x0FFFFFF0 == 0x012FFF10:
		c.executeBranchExchange(c.gprs[utils.Field(raw, 0, 4)])
	case raw&0x0E000000 == 0x0A000000:
		offset := utils.SignExtend(utils.Field(raw, 0, 24), 24) << 2
		if utils.Bit(raw, 24) {
			// r15 reads fetch+8, the return address is fetch+4
			c.gprs[14] = c.gprs[15] - 4
		}
		c.setPC(c.gprs[15] + offset)
	case raw&0x0FC000F0 == 0x00000090:
		c.executeMultiply(raw)
	case raw&0x0FBF0FFF == 0x010F0000:
		c.gprs[utils.Field(raw, 12, 4)] = uint32(c.cpsr)
	case raw&0x0FBFFFF0 == 0x0129F000:
		c.SetCPSR(PSR(c.gprs[utils.Field(raw, 0, 4)]))
	case raw&0x0E000090 == 0x00000090 && utils.Field(raw, 5, 2) != 0:
		c.executeHalfwordTransfer(raw)
	case raw&0x0C000000 == 0x00000000:
		return c.executeDataProcessing(raw)
	case raw&0x0C000000 == 0x04000000:
		c.executeSingleTransfer(raw)
	case raw&0x0E000000 == 0x08000000:
		c.executeBlockTransfer(raw)
	default:
		// software interrupts have no handler on this machine and trap
		// like any other unsupported encoding
		return false
	}
	return true
}

// executeBranchExchange switches encodings through bit 0 of the target
func (c *Core) executeBranchExchange(target uint32) {
	c.cpsr.SetT(target&1 == 1)
	c.setPC(target &^ 1)
}

// shifterOperand computes the second operand of a data processing
// instruction together with the shifter carry-out.
func (c *Core) shifterOperand(raw uint32) (uint32, bool) {
	if utils.Bit(raw, 25) {
		rotate := uint(utils.Field(raw, 8, 4)) * 2
		value := utils.RotateRight(utils.Field(raw, 0, 8), rotate)
		if rotate == 0 {
			return value, c.cpsr.C()
		}
		return value, utils.Bit(value, 31)
	}

	rm := c.gprs[utils.Field(raw, 0, 4)]
	kind := utils.Field(raw, 5, 2)

	if utils.Bit(raw, 4) {
		// shift amount from the bottom byte of a register
		amount := c.gprs[utils.Field(raw, 8, 4)] & 0xFF
		if amount == 0 {
			return rm, c.cpsr.C()
		}
		return shiftValue(rm, kind, amount)
	}
	return c.immediateShift(rm, kind, utils.Field(raw, 7, 5))
}

// immediateShift resolves the special meanings of a zero shift amount:
// lsr/asr #0 encode a 32-bit shift and ror #0 encodes rrx
func (c *Core) immediateShift(rm, kind, amount uint32) (uint32, bool) {
	if amount == 0 {
		switch kind {
		case 0:
			return rm, c.cpsr.C()
		case 1, 2:
			amount = 32
		default:
			carry := utils.Bit(rm, 0)
			value := rm >> 1
			if c.cpsr.C() {
				value |= 1 << 31
			}
			return value, carry
		}
	}
	return shiftValue(rm, kind, amount)
}

// shiftValue applies one barrel shifter operation of 1 <= amount
func shiftValue(rm uint32, kind, amount uint32) (uint32, bool) {
	switch kind {
	case 0: // lsl
		if amount > 32 {
			return 0, false
		}
		if amount == 32 {
			return 0, utils.Bit(rm, 0)
		}
		return rm << amount, utils.Bit(rm, 32-int(amount))
	case 1: // lsr
		if amount > 32 {
			return 0, false
		}
		if amount == 32 {
			return 0, utils.Bit(rm, 31)
		}
		return rm >> amount, utils.Bit(rm, int(amount)-1)
	case 2: // asr
		if amount >= 32 {
			if utils.Bit(rm, 31) {
				return 0xFFFFFFFF, true
			}
			return 0, false
		}
		return uint32(int32(rm) >> amount), utils.Bit(rm, int(amount)-1)
	default: // ror
		amount &= 31
		if amount == 0 {
			return rm, utils.Bit(rm, 31)
		}
		value := utils.RotateRight(rm, uint(amount))
		return value, utils.Bit(value, 31)
	}
}

// --- Flag helpers ---

func (c *Core) setNZ(result uint32) {
	c.cpsr.SetN(utils.Bit(result, 31))
	c.cpsr.SetZ(result == 0)
}

// setLogicalFlags updates N, Z and the shifter carry after a logical op
func (c *Core) setLogicalFlags(result uint32, carry bool) {
	c.setNZ(result)
	c.cpsr.SetC(carry)
}

// addWithFlags computes a+b+carryIn, optionally updating all four flags
func (c *Core) addWithFlags(a, b, carryIn uint32, setFlags bool) uint32 {
	result := a + b + carryIn
	if setFlags {
		c.setNZ(result)
		c.cpsr.SetC(uint64(a)+uint64(b)+uint64(carryIn) > 0xFFFFFFFF)
		c.cpsr.SetV(utils.Bit(^(a^b)&(a^result), 31))
	}
	return result
}

// subWithFlags computes a-b-borrowIn; the carry flag holds NOT borrow
func (c *Core) subWithFlags(a, b, borrowIn uint32, setFlags bool) uint32 {
	result := a - b - borrowIn
	if setFlags {
		c.setNZ(result)
		c.cpsr.SetC(uint64(a) >= uint64(b)+uint64(borrowIn))
		c.cpsr.SetV(utils.Bit((a^b)&(a^result), 31))
	}
	return result
}

func (c *Core) borrowIn() uint32 {
	if c.cpsr.C() {
		return 0
	}
	return 1
}

func (c *Core) carryIn() uint32 {
	if c.cpsr.C() {
		return 1
	}
	return 0
}

// --- Instruction groups ---

func (c *Core) executeDataProcessing(raw uint32) bool {
	op := utils.Field(raw, 21, 4)
	setFlags := utils.Bit(raw, 20)
	if op >= 8 && op <= 11 && !setFlags {
		// the comparison row without S overlaps psr transfer space
		return false
	}

	rn := c.gprs[utils.Field(raw, 16, 4)]
	rd := int(utils.Field(raw, 12, 4))
	op2, shiftCarry := c.shifterOperand(raw)

	// flag updates with rd == r15 are privileged mode restores, which
	// this machine does not model
	if rd == 15 {
		setFlags = false
	}

	var result uint32
	writeResult := true

	switch op {
	case 0: // and
		result = rn & op2
	case 1: // eor
		result = rn ^ op2
	case 2: // sub
		result = c.subWithFlags(rn, op2, 0, setFlags)
	case 3: // rsb
		result = c.subWithFlags(op2, rn, 0, setFlags)
	case 4: // add
		result = c.addWithFlags(rn, op2, 0, setFlags)
	case 5: // adc
		result = c.addWithFlags(rn, op2, c.carryIn(), setFlags)
	case 6: // sbc
		result = c.subWithFlags(rn, op2, c.borrowIn(), setFlags)
	case 7: // rsc
		result = c.subWithFlags(op2, rn, c.borrowIn(), setFlags)
	case 8: // tst
		result = rn & op2
		writeResult = false
	case 9: // teq
		result = rn ^ op2
		writeResult = false
	case 10: // cmp
		c.subWithFlags(rn, op2, 0, true)
		return true
	case 11: // cmn
		c.addWithFlags(rn, op2, 0, true)
		return true
	case 12: // orr
		result = rn | op2
	case 13: // mov
		result = op2
	case 14: // bic
		result = rn &^ op2
	default: // mvn
		result = ^op2
	}

	logical := op <= 1 || op >= 8 && op != 10 && op != 11
	if setFlags && logical {
		c.setLogicalFlags(result, shiftCarry)
	}
	if writeResult {
		c.SetReg(rd, result)
	}
	return true
}

func (c *Core) executeMultiply(raw uint32) {
	rd := utils.Field(raw, 16, 4)
	rn := utils.Field(raw, 12, 4)
	rs := utils.Field(raw, 8, 4)
	rm := utils.Field(raw, 0, 4)

	result := c.gprs[rm] * c.gprs[rs]
	if utils.Bit(raw, 21) {
		result += c.gprs[rn]
	}
	c.gprs[rd] = result
	if utils.Bit(raw, 20) {
		c.setNZ(result)
	}
}

// transferAddress resolves the base, transfer and writeback addresses of a
// single register transfer from its P, U and W bits.
func (c *Core) transferAddress(raw uint32, offset uint32) (addr uint32, writeback func()) {
	rn := int(utils.Field(raw, 16, 4))
	base := c.gprs[rn]

	applied := base + offset
	if !utils.Bit(raw, 23) {
		applied = base - offset
	}

	if utils.Bit(raw, 24) {
		addr = applied
		if utils.Bit(raw, 21) {
			writeback = func() { c.gprs[rn] = applied }
		}
	} else {
		// post-indexed transfers always write the base back
		addr = base
		writeback = func() { c.gprs[rn] = applied }
	}
	return addr, writeback
}

func (c *Core) executeSingleTransfer(raw uint32) {
	var offset uint32
	if utils.Bit(raw, 25) {
		rm := c.gprs[utils.Field(raw, 0, 4)]
		offset, _ = c.immediateShift(rm, utils.Field(raw, 5, 2), utils.Field(raw, 7, 5))
	} else {
		offset = utils.Field(raw, 0, 12)
	}

	addr, writeback := c.transferAddress(raw, offset)
	rd := int(utils.Field(raw, 12, 4))
	byteWide := utils.Bit(raw, 22)

	if utils.Bit(raw, 20) {
		if writeback != nil {
			writeback()
		}
		if byteWide {
			c.SetReg(rd, uint32(c.execLoadByte(addr)))
		} else {
			c.SetReg(rd, c.execLoadWord(addr))
		}
	} else {
		value := c.gprs[rd]
		if byteWide {
			c.execStoreByte(addr, uint8(value))
		} else {
			c.execStoreWord(addr, value)
		}
		if writeback != nil {
			writeback()
		}
	}
}

func (c *Core) executeHalfwordTransfer(raw uint32) {
	var offset uint32
	if utils.Bit(raw, 22) {
		offset = utils.Field(raw, 8, 4)<<4 | utils.Field(raw, 0, 4)
	} else {
		offset = c.gprs[utils.Field(raw, 0, 4)]
	}

	addr, writeback := c.transferAddress(raw, offset)
	rd := int(utils.Field(raw, 12, 4))
	sh := utils.Field(raw, 5, 2)

	if utils.Bit(raw, 20) {
		if writeback != nil {
			writeback()
		}
		switch sh {
		case 1: // ldrh
			c.SetReg(rd, uint32(c.execLoadHalf(addr)))
		case 2: // ldrsb
			c.SetReg(rd, utils.SignExtend(uint32(c.execLoadByte(addr)), 8))
		default: // ldrsh
			c.SetReg(rd, utils.SignExtend(uint32(c.execLoadHalf(addr)), 16))
		}
	} else {
		// only strh exists in the store column
		c.execStoreHalf(addr, uint16(c.gprs[rd]))
		if writeback != nil {
			writeback()
		}
	}
}

func (c *Core) executeBlockTransfer(raw uint32) {
	rn := int(utils.Field(raw, 16, 4))
	base := c.gprs[rn]
	list := utils.Field(raw, 0, 16)
	load := utils.Bit(raw, 20)

	count := uint32(0)
	for i := 0; i < 16; i++ {
		if utils.Bit(list, i) {
			count++
		}
	}

	// resolve the lowest transfer address; registers always transfer in
	// ascending register order at ascending addresses
	up := utils.Bit(raw, 23)
	pre := utils.Bit(raw, 24)
	start := base
	switch {
	case up && pre: // ib
		start = base + 4
	case up: // ia
		start = base
	case pre: // db
		start = base - 4*count
	default: // da
		start = base - 4*count + 4
	}

	final := base + 4*count
	if !up {
		final = base - 4*count
	}

	if load && utils.Bit(raw, 21) {
		c.gprs[rn] = final
	}

	addr := start
	for i := 0; i < 16; i++ {
		if !utils.Bit(list, i) {
			continue
		}
		if load {
			c.SetReg(i, c.execLoadWord(addr))
		} else {
			c.execStoreWord(addr, c.gprs[i])
		}
		addr += 4
	}

	if !load && utils.Bit(raw, 21) {
		c.gprs[rn] = final
	}
}
