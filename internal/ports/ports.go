// Package ports implements the I/O port bank and the hardware shift register
// of the Space Invaders board.
package ports

import (
	"fmt"
	"log"
	"sync/atomic"
)

// Port counts and special port numbers
const (
	NumInputs  = 4
	NumOutputs = 7

	// ShiftResultPort reads the shifted window of the shift register
	ShiftResultPort = 3
	// ShiftAmountPort holds the 3-bit shift offset in its low bits
	ShiftAmountPort = 2
	// ShiftDataPort feeds a new byte into the top of the shift register
	ShiftDataPort = 4
)

// PortError reports an out-of-range latch index
type PortError struct {
	Direction string
	Index     int
}

func (e *PortError) Error() string {
	return fmt.Sprintf("%s port index %d out of range", e.Direction, e.Index)
}

// OutputWatcher is notified of every latched output write
type OutputWatcher func(port, old, value uint8)

// Ports is the bank of input and output latches.
//
// Input latches are written by the host goroutine and read by the execution
// loop; output latches are written by the execution loop and may be read by
// the host. Both are stored atomically. The shift register belongs to the
// execution loop alone.
type Ports struct {
	inputs  [NumInputs]atomic.Uint32
	outputs [NumOutputs]atomic.Uint32

	shiftRegister uint16

	watcher OutputWatcher

	logger    *log.Logger
	unknownIn [256]bool
}

// New creates an empty port bank
func New() *Ports {
	return &Ports{}
}

// SetWatcher installs a hook called after each latched output write
func (p *Ports) SetWatcher(w OutputWatcher) {
	p.watcher = w
}

// SetLogger enables a one-time debug message for each unmapped input port
func (p *Ports) SetLogger(logger *log.Logger) {
	p.logger = logger
}

// ReadInput services an IN instruction
func (p *Ports) ReadInput(port uint8) uint8 {
	if port == ShiftResultPort {
		shift := p.outputs[ShiftAmountPort].Load() & 0x7
		return uint8(p.shiftRegister >> (8 - shift))
	}
	if int(port) < NumInputs {
		return uint8(p.inputs[port].Load())
	}
	if p.logger != nil && !p.unknownIn[port] {
		p.unknownIn[port] = true
		p.logger.Printf("[PORTS] Read from unmapped input port %d", port)
	}
	return 0
}

// WriteOutput services an OUT instruction
func (p *Ports) WriteOutput(port uint8, value uint8) {
	if port == ShiftDataPort {
		p.shiftRegister = uint16(value)<<8 | p.shiftRegister>>8
		return
	}
	if int(port) >= NumOutputs {
		return
	}
	old := uint8(p.outputs[port].Swap(uint32(value)))
	if p.watcher != nil {
		p.watcher(port, old, value)
	}
}

// SetInput sets an input latch from the host side
func (p *Ports) SetInput(index int, value uint8) error {
	if index < 0 || index >= NumInputs {
		return &PortError{Direction: "input", Index: index}
	}
	p.inputs[index].Store(uint32(value))
	return nil
}

// GetOutput reads back a latched output
func (p *Ports) GetOutput(index int) (uint8, error) {
	if index < 0 || index >= NumOutputs {
		return 0, &PortError{Direction: "output", Index: index}
	}
	return uint8(p.outputs[index].Load()), nil
}

// ShiftRegister returns the raw 16-bit shift register
func (p *Ports) ShiftRegister() uint16 {
	return p.shiftRegister
}

// Reset clears every latch and the shift register
func (p *Ports) Reset() {
	for i := range p.inputs {
		p.inputs[i].Store(0)
	}
	for i := range p.outputs {
		p.outputs[i].Store(0)
	}
	p.shiftRegister = 0
}
