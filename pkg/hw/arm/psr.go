package arm

import (
	"github.com/armadillo-emu/armadillo/pkg/hw/arm/isa"
	"github.com/armadillo-emu/armadillo/pkg/utils"
)

// Bit positions of the program status flags.
const (
	FlagN = 31 // negative
	FlagZ = 30 // zero
	FlagC = 29 // carry
	FlagV = 28 // overflow
	FlagI = 7  // IRQ disable
	FlagF = 6  // FIQ disable
	FlagT = 5  // Thumb state
)

// PSR is the program status register. The four condition flags live in the
// top nibble, the control bits I, F and T in the low byte; everything else
// reads as written.
type PSR uint32

func (p PSR) N() bool { return utils.Bit(uint32(p), FlagN) }
func (p PSR) Z() bool { return utils.Bit(uint32(p), FlagZ) }
func (p PSR) C() bool { return utils.Bit(uint32(p), FlagC) }
func (p PSR) V() bool { return utils.Bit(uint32(p), FlagV) }
func (p PSR) I() bool { return utils.Bit(uint32(p), FlagI) }
func (p PSR) F() bool { return utils.Bit(uint32(p), FlagF) }
func (p PSR) T() bool { return utils.Bit(uint32(p), FlagT) }

func (p *PSR) SetN(v bool) { *p = PSR(utils.WithBit(uint32(*p), FlagN, v)) }
func (p *PSR) SetZ(v bool) { *p = PSR(utils.WithBit(uint32(*p), FlagZ, v)) }
func (p *PSR) SetC(v bool) { *p = PSR(utils.WithBit(uint32(*p), FlagC, v)) }
func (p *PSR) SetV(v bool) { *p = PSR(utils.WithBit(uint32(*p), FlagV, v)) }
func (p *PSR) SetI(v bool) { *p = PSR(utils.WithBit(uint32(*p), FlagI, v)) }
func (p *PSR) SetF(v bool) { *p = PSR(utils.WithBit(uint32(*p), FlagF, v)) }
func (p *PSR) SetT(v bool) { *p = PSR(utils.WithBit(uint32(*p), FlagT, v)) }

// Mode returns the instruction encoding selected by the T bit
func (p PSR) Mode() isa.Mode {
	if p.T() {
		return isa.ModeThumb
	}
	return isa.ModeARM
}

// FlagString renders the seven named flags in N Z C V I F T order,
// with a dash standing in for each clear flag.
func (p PSR) FlagString() string {
	flags := [7]struct {
		name byte
		set  bool
	}{
		{'N', p.N()}, {'Z', p.Z()}, {'C', p.C()}, {'V', p.V()},
		{'I', p.I()}, {'F', p.F()}, {'T', p.T()},
	}

	out := make([]byte, 7)
	for i, f := range flags {
		if f.set {
			out[i] = f.name
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}
