// Package cpu implements the Intel 8080 processor used by the Space Invaders
// arcade board.
package cpu

import (
	"errors"
	"log"
	"sync/atomic"

	"goinvaders/internal/disasm"
	"goinvaders/internal/memory"
	"goinvaders/internal/ports"
)

// ErrHalted is returned by Step when the CPU has executed HLT with interrupts
// disabled. Nothing can wake it again.
var ErrHalted = errors.New("cpu halted with interrupts disabled")

// CPU represents the 8080 processor together with its pending interrupt queue.
//
// Step, Reset and the register fields belong to the execution goroutine.
// QueueInterrupt, AddFrame, SetInput, InstructionCount and InterruptsEnabled
// may be called from the host goroutine while Step runs.
type CPU struct {
	Registers
	Flags ConditionCodes

	memory *memory.Memory
	io     *ports.Ports

	instructionCount atomic.Uint64
	interruptEnable  atomic.Bool
	halted           bool

	// EI takes effect after the instruction that follows it
	eiDelay bool

	interrupts scheduler

	logger        *log.Logger
	enableTracing bool
}

// New creates a CPU wired to the given memory and port bank
func New(mem *memory.Memory, io *ports.Ports) *CPU {
	cpu := &CPU{
		memory: mem,
		io:     io,
		logger: log.Default(),
	}
	cpu.interrupts.init(DefaultFrameSchedule, DefaultWarnDepth)
	return cpu
}

// SetLogger replaces the logger used for warnings and tracing
func (cpu *CPU) SetLogger(logger *log.Logger) {
	if logger != nil {
		cpu.logger = logger
	}
}

// Reset clears registers, flags and the interrupt queue. Memory is left
// untouched so a loaded program survives.
func (cpu *CPU) Reset() {
	cpu.Registers = Registers{}
	cpu.Flags = ConditionCodes{}
	cpu.instructionCount.Store(0)
	cpu.interruptEnable.Store(false)
	cpu.halted = false
	cpu.eiDelay = false
	cpu.interrupts.clear()
}

// LoadROM installs a program image at address 0
func (cpu *CPU) LoadROM(data []byte) error {
	return cpu.memory.Load(data)
}

// Step executes a single instruction, servicing at most one due interrupt
// first. The returned error is fatal for the machine.
func (cpu *CPU) Step() error {
	deferred := cpu.eiDelay
	cpu.eiDelay = false
	if cpu.interruptEnable.Load() && !deferred {
		if vector, ok := cpu.interrupts.due(cpu.instructionCount.Load()); ok {
			cpu.enterInterrupt(vector)
		}
	}

	if cpu.halted {
		if !cpu.interruptEnable.Load() {
			return ErrHalted
		}
		cpu.instructionCount.Add(1)
		return nil
	}

	pc := cpu.PC
	opcode := cpu.memory.Read(pc)
	instruction := &instructions[opcode]

	cpu.PC++
	count := cpu.instructionCount.Add(1)

	if cpu.enableTracing {
		cpu.logInstruction(pc, count)
	}

	if instruction.exec == nil {
		return cpu.unrecognized(pc, opcode)
	}

	var data uint16
	switch instruction.Bytes {
	case 2:
		data = uint16(cpu.memory.Read(pc + 1))
	case 3:
		data = cpu.memory.ReadWord(pc + 1)
	}
	cpu.PC = pc + uint16(instruction.Bytes)

	instruction.exec(cpu, opcode, data)
	return nil
}

// enterInterrupt performs the RST-style call to vector*8
func (cpu *CPU) enterInterrupt(vector uint8) {
	cpu.interruptEnable.Store(false)
	cpu.halted = false
	cpu.call(uint16(vector&7) * 8)
}

func (cpu *CPU) push(value uint16) {
	cpu.SP -= 2
	cpu.memory.WriteWord(cpu.SP, value)
}

func (cpu *CPU) pop() uint16 {
	value := cpu.memory.ReadWord(cpu.SP)
	cpu.SP += 2
	return value
}

func (cpu *CPU) call(address uint16) {
	cpu.push(cpu.PC)
	cpu.PC = address
}

// instructionBytes reads up to three bytes at address, wrapping
func (cpu *CPU) instructionBytes(address uint16) []byte {
	return []byte{
		cpu.memory.Read(address),
		cpu.memory.Read(address + 1),
		cpu.memory.Read(address + 2),
	}
}

func (cpu *CPU) unrecognized(pc uint16, opcode uint8) error {
	raw := cpu.instructionBytes(pc)
	text, size := disasm.Disassemble(raw)
	return &UnrecognizedInstructionError{
		PC:     pc,
		Opcode: opcode,
		Bytes:  raw[:size],
		Text:   text,
	}
}

// State returns a copy of the registers and flags. Only meaningful while the
// execution loop is stopped.
func (cpu *CPU) State() (Registers, ConditionCodes) {
	return cpu.Registers, cpu.Flags
}

// InstructionCount returns the number of instructions executed since reset
func (cpu *CPU) InstructionCount() uint64 {
	return cpu.instructionCount.Load()
}

// InterruptsEnabled reports the interrupt-enable latch
func (cpu *CPU) InterruptsEnabled() bool {
	return cpu.interruptEnable.Load()
}

// Halted reports whether the CPU is waiting in HLT
func (cpu *CPU) Halted() bool {
	return cpu.halted
}

// GetRAM returns the memory from address to the end of the array
func (cpu *CPU) GetRAM(address uint16) []byte {
	return cpu.memory.Slice(int(address), cpu.memory.Size()-int(address))
}

// VideoRAM returns the frame buffer window
func (cpu *CPU) VideoRAM() []byte {
	return cpu.memory.VideoRAM()
}

// SetInput sets input port latch index
func (cpu *CPU) SetInput(index int, value uint8) error {
	return cpu.io.SetInput(index, value)
}

// GetOutput reads output port latch index
func (cpu *CPU) GetOutput(index int) (uint8, error) {
	return cpu.io.GetOutput(index)
}

// CPU Debug Methods

// EnableTracing enables/disables per-instruction logging
func (cpu *CPU) EnableTracing(enable bool) {
	cpu.enableTracing = enable
}

// logInstruction logs the instruction about to execute at pc
func (cpu *CPU) logInstruction(pc uint16, count uint64) {
	text, _ := disasm.Disassemble(cpu.instructionBytes(pc))
	cpu.logger.Printf("[CPU] #%d PC=$%04X: %-16s | A=$%02X BC=$%04X DE=$%04X HL=$%04X SP=$%04X | %s",
		count, pc, text, cpu.A, cpu.BC(), cpu.DE(), cpu.HL(), cpu.SP, cpu.Flags)
}
