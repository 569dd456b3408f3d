package isa

import (
	"github.com/armadillo-emu/armadillo/pkg/utils"
)

// Field is one named bit range of an instruction encoding.
type Field struct {
	Name string
	// Low is the least significant bit of the range
	Low int
	// Width is the range size in bits
	Width int
	// Value holds the bits of the range, shifted down to bit zero
	Value uint32
}

// Fields returns the bit layout of the instruction's encoding class, in
// ascending bit order and covering the whole word. Constant pattern bits
// are reported as "fixed" ranges; undefined encodings collapse to a
// single raw field.
func (i Instruction) Fields() []Field {
	if i.Mode == ModeThumb {
		return thumbFields(i)
	}
	return armFields(i)
}

func field(raw uint32, name string, low, width int) Field {
	return Field{Name: name, Low: low, Width: width, Value: utils.Field(raw, low, width)}
}

func armFields(i Instruction) []Field {
	raw := i.Raw
	if i.Undefined() {
		return []Field{field(raw, "raw", 0, 32)}
	}

	var fields []Field
	switch {
	case raw&0x0FFFFFF0 == 0x012FFF10:
		fields = []Field{
			field(raw, "rn", 0, 4),
			field(raw, "fixed", 4, 24),
		}

	case raw&0x0E000000 == 0x0A000000:
		fields = []Field{
			field(raw, "offset", 0, 24),
			field(raw, "link", 24, 1),
			field(raw, "fixed", 25, 3),
		}

	case raw&0x0FC000F0 == 0x00000090:
		fields = []Field{
			field(raw, "rm", 0, 4),
			field(raw, "fixed", 4, 4),
			field(raw, "rs", 8, 4),
			field(raw, "rn", 12, 4),
			field(raw, "rd", 16, 4),
			field(raw, "s", 20, 1),
			field(raw, "a", 21, 1),
			field(raw, "fixed", 22, 6),
		}

	case raw&0x0FBF0FFF == 0x010F0000:
		fields = []Field{
			field(raw, "fixed", 0, 12),
			field(raw, "rd", 12, 4),
			field(raw, "fixed", 16, 12),
		}

	case raw&0x0FBFFFF0 == 0x0129F000:
		fields = []Field{
			field(raw, "rm", 0, 4),
			field(raw, "fixed", 4, 24),
		}

	case raw&0x0E000090 == 0x00000090 && utils.Field(raw, 5, 2) != 0:
		offlo := "rm"
		if utils.Bit(raw, 22) {
			offlo = "offlo"
		}
		fields = []Field{
			field(raw, offlo, 0, 4),
			field(raw, "fixed", 4, 1),
			field(raw, "sh", 5, 2),
			field(raw, "fixed", 7, 1),
			field(raw, "offhi", 8, 4),
			field(raw, "rd", 12, 4),
			field(raw, "rn", 16, 4),
			field(raw, "l", 20, 1),
			field(raw, "w", 21, 1),
			field(raw, "i", 22, 1),
			field(raw, "u", 23, 1),
			field(raw, "p", 24, 1),
			field(raw, "fixed", 25, 3),
		}

	case raw&0x0C000000 == 0x00000000:
		fields = append(operand2Fields(raw),
			field(raw, "rd", 12, 4),
			field(raw, "rn", 16, 4),
			field(raw, "s", 20, 1),
			field(raw, "opcode", 21, 4),
			field(raw, "i", 25, 1),
			field(raw, "fixed", 26, 2),
		)

	case raw&0x0C000000 == 0x04000000:
		if utils.Bit(raw, 25) {
			fields = []Field{
				field(raw, "rm", 0, 4),
				field(raw, "fixed", 4, 1),
				field(raw, "shift", 5, 2),
				field(raw, "amount", 7, 5),
			}
		} else {
			fields = []Field{field(raw, "offset", 0, 12)}
		}
		fields = append(fields,
			field(raw, "rd", 12, 4),
			field(raw, "rn", 16, 4),
			field(raw, "l", 20, 1),
			field(raw, "w", 21, 1),
			field(raw, "b", 22, 1),
			field(raw, "u", 23, 1),
			field(raw, "p", 24, 1),
			field(raw, "i", 25, 1),
			field(raw, "fixed", 26, 2),
		)

	case raw&0x0E000000 == 0x08000000:
		fields = []Field{
			field(raw, "registers", 0, 16),
			field(raw, "rn", 16, 4),
			field(raw, "l", 20, 1),
			field(raw, "w", 21, 1),
			field(raw, "s", 22, 1),
			field(raw, "u", 23, 1),
			field(raw, "p", 24, 1),
			field(raw, "fixed", 25, 3),
		}

	case raw&0x0F000000 == 0x0F000000:
		fields = []Field{
			field(raw, "comment", 0, 24),
			field(raw, "fixed", 24, 4),
		}

	default:
		return []Field{field(raw, "raw", 0, 32)}
	}

	return append(fields, field(raw, "cond", 28, 4))
}

// operand2Fields splits the data processing operand 2 by the I bit and,
// for register forms, by the shift-by-register bit
func operand2Fields(raw uint32) []Field {
	if utils.Bit(raw, 25) {
		return []Field{
			field(raw, "imm", 0, 8),
			field(raw, "rotate", 8, 4),
		}
	}
	if utils.Bit(raw, 4) {
		return []Field{
			field(raw, "rm", 0, 4),
			field(raw, "fixed", 4, 1),
			field(raw, "shift", 5, 2),
			field(raw, "fixed", 7, 1),
			field(raw, "rs", 8, 4),
		}
	}
	return []Field{
		field(raw, "rm", 0, 4),
		field(raw, "fixed", 4, 1),
		field(raw, "shift", 5, 2),
		field(raw, "amount", 7, 5),
	}
}

func thumbFields(i Instruction) []Field {
	w := i.Raw
	if i.Undefined() {
		return []Field{field(w, "raw", 0, 16)}
	}

	switch {
	case w&0xF800 == 0x1800:
		operand := "rn"
		if utils.Bit(w, 10) {
			operand = "imm"
		}
		return []Field{
			field(w, "rd", 0, 3),
			field(w, "rs", 3, 3),
			field(w, operand, 6, 3),
			field(w, "op", 9, 1),
			field(w, "i", 10, 1),
			field(w, "fixed", 11, 5),
		}

	case w&0xE000 == 0x0000:
		return []Field{
			field(w, "rd", 0, 3),
			field(w, "rs", 3, 3),
			field(w, "offset", 6, 5),
			field(w, "op", 11, 2),
			field(w, "fixed", 13, 3),
		}

	case w&0xE000 == 0x2000:
		return []Field{
			field(w, "imm", 0, 8),
			field(w, "rd", 8, 3),
			field(w, "op", 11, 2),
			field(w, "fixed", 13, 3),
		}

	case w&0xFC00 == 0x4000:
		return []Field{
			field(w, "rd", 0, 3),
			field(w, "rs", 3, 3),
			field(w, "op", 6, 4),
			field(w, "fixed", 10, 6),
		}

	case w&0xFC00 == 0x4400:
		return []Field{
			field(w, "rd", 0, 3),
			field(w, "rs", 3, 3),
			field(w, "h2", 6, 1),
			field(w, "h1", 7, 1),
			field(w, "op", 8, 2),
			field(w, "fixed", 10, 6),
		}

	case w&0xF800 == 0x4800:
		return []Field{
			field(w, "imm", 0, 8),
			field(w, "rd", 8, 3),
			field(w, "fixed", 11, 5),
		}

	case w&0xF200 == 0x5000, w&0xF200 == 0x5200:
		return []Field{
			field(w, "rd", 0, 3),
			field(w, "rb", 3, 3),
			field(w, "ro", 6, 3),
			field(w, "fixed", 9, 1),
			field(w, "op", 10, 2),
			field(w, "fixed", 12, 4),
		}

	case w&0xE000 == 0x6000:
		return []Field{
			field(w, "rd", 0, 3),
			field(w, "rb", 3, 3),
			field(w, "offset", 6, 5),
			field(w, "l", 11, 1),
			field(w, "b", 12, 1),
			field(w, "fixed", 13, 3),
		}

	case w&0xF000 == 0x8000:
		return []Field{
			field(w, "rd", 0, 3),
			field(w, "rb", 3, 3),
			field(w, "offset", 6, 5),
			field(w, "l", 11, 1),
			field(w, "fixed", 12, 4),
		}

	case w&0xF000 == 0x9000:
		return []Field{
			field(w, "imm", 0, 8),
			field(w, "rd", 8, 3),
			field(w, "l", 11, 1),
			field(w, "fixed", 12, 4),
		}

	case w&0xF000 == 0xA000:
		return []Field{
			field(w, "imm", 0, 8),
			field(w, "rd", 8, 3),
			field(w, "sp", 11, 1),
			field(w, "fixed", 12, 4),
		}

	case w&0xFF00 == 0xB000:
		return []Field{
			field(w, "imm", 0, 7),
			field(w, "sign", 7, 1),
			field(w, "fixed", 8, 8),
		}

	case w&0xF600 == 0xB400:
		return []Field{
			field(w, "registers", 0, 8),
			field(w, "r", 8, 1),
			field(w, "fixed", 9, 2),
			field(w, "l", 11, 1),
			field(w, "fixed", 12, 4),
		}

	case w&0xF000 == 0xC000:
		return []Field{
			field(w, "registers", 0, 8),
			field(w, "rb", 8, 3),
			field(w, "l", 11, 1),
			field(w, "fixed", 12, 4),
		}

	case w&0xFF00 == 0xDF00:
		return []Field{
			field(w, "imm", 0, 8),
			field(w, "fixed", 8, 8),
		}

	case w&0xF000 == 0xD000:
		return []Field{
			field(w, "offset", 0, 8),
			field(w, "cond", 8, 4),
			field(w, "fixed", 12, 4),
		}

	case w&0xF800 == 0xE000:
		return []Field{
			field(w, "offset", 0, 11),
			field(w, "fixed", 11, 5),
		}

	case w&0xF800 == 0xF000, w&0xF800 == 0xF800:
		return []Field{
			field(w, "offset", 0, 11),
			field(w, "h", 11, 1),
			field(w, "fixed", 12, 4),
		}
	}

	return []Field{field(w, "raw", 0, 16)}
}
