// Package memory implements the flat address space of the Space Invaders board.
package memory

import (
	"errors"
	"fmt"
)

// Memory layout constants
const (
	// DefaultSize covers ROM (0x0000-0x1FFF), work RAM and video RAM (0x2000-0x3FFF)
	DefaultSize = 16 * 1024

	// VideoRAMStart is the first byte of the 1bpp scanout window
	VideoRAMStart = 0x2400
	// VideoRAMSize is 256x224 pixels at 8 pixels per byte
	VideoRAMSize = 7 * 1024
)

// ErrEmptyROM is returned when a zero-length program image is loaded
var ErrEmptyROM = errors.New("rom image is empty")

// ROMSizeError reports an image that does not fit the address space
type ROMSizeError struct {
	Size     int
	Capacity int
}

func (e *ROMSizeError) Error() string {
	return fmt.Sprintf("rom image of %d bytes exceeds memory size of %d bytes", e.Size, e.Capacity)
}

// Memory is one contiguous byte array indexed modulo its size.
// It is owned by the execution loop; readers on other goroutines must
// go through a snapshot.
type Memory struct {
	data []uint8
}

// New creates a memory of the given size. Non-positive sizes fall back to DefaultSize.
func New(size int) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	return &Memory{data: make([]uint8, size)}
}

// Size returns the number of addressable bytes
func (m *Memory) Size() int {
	return len(m.data)
}

func (m *Memory) index(address uint16) int {
	return int(address) % len(m.data)
}

// Read returns the byte at address, wrapping past the end of memory
func (m *Memory) Read(address uint16) uint8 {
	return m.data[m.index(address)]
}

// Write stores a byte at address, wrapping past the end of memory
func (m *Memory) Write(address uint16, value uint8) {
	m.data[m.index(address)] = value
}

// ReadWord reads a little-endian 16-bit value
func (m *Memory) ReadWord(address uint16) uint16 {
	low := uint16(m.Read(address))
	high := uint16(m.Read(address + 1))
	return (high << 8) | low
}

// WriteWord writes a little-endian 16-bit value
func (m *Memory) WriteWord(address uint16, value uint16) {
	m.Write(address, uint8(value&0xFF))
	m.Write(address+1, uint8(value>>8))
}

// Load copies a program image to address 0. Oversized images are rejected
// and leave memory untouched.
func (m *Memory) Load(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyROM
	}
	if len(data) > len(m.data) {
		return &ROMSizeError{Size: len(data), Capacity: len(m.data)}
	}
	copy(m.data, data)
	return nil
}

// Slice returns a raw reference into memory starting at address, at most n
// bytes long. The result is clamped to the end of the array.
func (m *Memory) Slice(address, n int) []byte {
	if address < 0 || address >= len(m.data) || n <= 0 {
		return nil
	}
	end := address + n
	if end > len(m.data) {
		end = len(m.data)
	}
	return m.data[address:end]
}

// VideoRAM returns the scanout window. Nil when memory is too small to hold it.
func (m *Memory) VideoRAM() []byte {
	if len(m.data) < VideoRAMStart+VideoRAMSize {
		return nil
	}
	return m.data[VideoRAMStart : VideoRAMStart+VideoRAMSize]
}

// Reset zeroes every byte
func (m *Memory) Reset() {
	for i := range m.data {
		m.data[i] = 0
	}
}
