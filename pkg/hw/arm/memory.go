package arm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DefaultMemorySize is the RAM size used when none is configured.
const DefaultMemorySize uint32 = 0x20000

// ErrOutOfRange is returned by memory accessors for addresses past the end of RAM.
var ErrOutOfRange = errors.New("address out of memory range")

// Memory is a flat little-endian byte-addressed RAM. Accessors
// bounds-check but do not require alignment.
type Memory struct {
	data []byte
}

// NewMemory allocates a zeroed RAM of the given size in bytes
func NewMemory(size uint32) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the RAM size in bytes
func (m *Memory) Size() uint32 {
	return uint32(len(m.data))
}

func (m *Memory) check(addr uint32, width uint32) error {
	if uint64(addr)+uint64(width) > uint64(len(m.data)) {
		return fmt.Errorf("%w: 0x%08X", ErrOutOfRange, addr)
	}
	return nil
}

// LoadByte reads one byte
func (m *Memory) LoadByte(addr uint32) (uint8, error) {
	if err := m.check(addr, 1); err != nil {
		return 0, err
	}
	return m.data[addr], nil
}

// LoadHalf reads a little-endian halfword
func (m *Memory) LoadHalf(addr uint32) (uint16, error) {
	if err := m.check(addr, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[addr:]), nil
}

// LoadWord reads a little-endian word
func (m *Memory) LoadWord(addr uint32) (uint32, error) {
	if err := m.check(addr, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[addr:]), nil
}

// StoreByte writes one byte
func (m *Memory) StoreByte(addr uint32, v uint8) error {
	if err := m.check(addr, 1); err != nil {
		return err
	}
	m.data[addr] = v
	return nil
}

// StoreHalf writes a little-endian halfword
func (m *Memory) StoreHalf(addr uint32, v uint16) error {
	if err := m.check(addr, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[addr:], v)
	return nil
}

// StoreWord writes a little-endian word
func (m *Memory) StoreWord(addr uint32, v uint32) error {
	if err := m.check(addr, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[addr:], v)
	return nil
}

// WriteBytes copies a block into RAM, used by program loaders
func (m *Memory) WriteBytes(addr uint32, data []byte) error {
	if err := m.check(addr, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[addr:], data)
	return nil
}
