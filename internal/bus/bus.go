// Package bus wires the Space Invaders board together: memory, the port bank,
// the 8080, the control panel and the sound decoder.
package bus

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"goinvaders/internal/cpu"
	"goinvaders/internal/input"
	"goinvaders/internal/memory"
	"goinvaders/internal/ports"
	"goinvaders/internal/sound"
)

// DefaultBatchSize is the number of instructions executed between checks for
// cancellation and snapshot requests
const DefaultBatchSize = 1000

// Config selects the board options
type Config struct {
	MemorySize    int
	FrameSchedule cpu.FrameSchedule
	WarnDepth     int
	DipSwitches   input.DipSwitches

	// InstructionsPerFrame caps how far the CPU may run ahead of the frame
	// ticks. Zero runs the CPU free.
	InstructionsPerFrame uint64
	BatchSize            int

	// SoundSink receives decoded sound events; nil only counts them
	SoundSink sound.Sink

	Logger *log.Logger
}

// DefaultConfig returns the stock board
func DefaultConfig() Config {
	return Config{
		MemorySize:    memory.DefaultSize,
		FrameSchedule: cpu.DefaultFrameSchedule,
		WarnDepth:     cpu.DefaultWarnDepth,
		DipSwitches:   input.DefaultDipSwitches,
		BatchSize:     DefaultBatchSize,
	}
}

// Stats is a snapshot of the machine counters
type Stats struct {
	Instructions      uint64
	Frames            uint64
	PendingInterrupts int
	QueueHighWater    int
}

// Bus connects all board components together.
//
// Run owns the CPU and memory. Tick, Frame, SetButton and Stats are for the
// host goroutine.
type Bus struct {
	// Core components
	CPU    *cpu.CPU
	Memory *memory.Memory
	Ports  *ports.Ports
	Input  *input.Panel
	Sound  *sound.Decoder

	config Config
	logger *log.Logger

	frameCount     atomic.Uint64
	resetRequested atomic.Bool

	// Video snapshot double buffer
	snapshotRequested atomic.Bool
	videoMu           sync.Mutex
	video             []byte
	videoFrame        uint64

	// Frame pacing
	ticks      chan struct{}
	budgetBase uint64
}

// New creates a board with all components
func New(config Config) *Bus {
	if config.MemorySize <= 0 {
		config.MemorySize = memory.DefaultSize
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.FrameSchedule == (cpu.FrameSchedule{}) {
		config.FrameSchedule = cpu.DefaultFrameSchedule
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	b := &Bus{
		Memory: memory.New(config.MemorySize),
		Ports:  ports.New(),
		Input:  input.New(config.DipSwitches),
		Sound:  sound.NewDecoder(config.SoundSink),
		config: config,
		logger: config.Logger,
		video:  make([]byte, memory.VideoRAMSize),
		ticks:  make(chan struct{}, 1),
	}

	b.CPU = cpu.New(b.Memory, b.Ports)
	b.CPU.SetLogger(config.Logger)
	b.CPU.SetFrameSchedule(config.FrameSchedule)
	if config.WarnDepth > 0 {
		b.CPU.SetWarnDepth(config.WarnDepth)
	}

	b.Ports.SetWatcher(b.Sound.Observe)
	b.Sound.SetLogger(config.Logger)

	b.Reset()

	return b
}

// Reset resets the CPU, the port latches and the control panel. Memory is
// kept so a loaded ROM survives.
func (b *Bus) Reset() {
	b.CPU.Reset()
	b.Ports.Reset()
	b.Input.Reset()
	if err := b.Input.Apply(b.CPU); err != nil {
		b.logger.Printf("[BUS] Failed to apply input ports: %v", err)
	}

	b.frameCount.Store(0)
	b.budgetBase = 0
	b.snapshotRequested.Store(false)

	b.videoMu.Lock()
	clear(b.video)
	b.videoFrame = 0
	b.videoMu.Unlock()
}

// LoadROM installs a program image at address 0
func (b *Bus) LoadROM(data []byte) error {
	if err := b.CPU.LoadROM(data); err != nil {
		return fmt.Errorf("load ROM: %w", err)
	}
	b.logger.Printf("[BUS] Loaded %d byte ROM", len(data))
	return nil
}

// LoadROMFile reads a program image from disk and installs it
func (b *Bus) LoadROMFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read ROM %s: %w", path, err)
	}
	if err := b.CPU.LoadROM(data); err != nil {
		return fmt.Errorf("load ROM %s: %w", path, err)
	}
	b.logger.Printf("[BUS] Loaded %s (%d bytes)", path, len(data))
	return nil
}

// Run is the execution loop. It steps the CPU until ctx is cancelled or an
// instruction fails, and returns the failure. Cancellation is observed
// between instructions, never inside one.
func (b *Bus) Run(ctx context.Context) error {
	b.logger.Printf("[BUS] Execution loop started")
	defer b.logger.Printf("[BUS] Execution loop stopped after %d instructions", b.CPU.InstructionCount())

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if err := b.runBatch(b.config.BatchSize); err != nil {
			return err
		}

		if b.config.InstructionsPerFrame > 0 &&
			b.CPU.InstructionCount()-b.budgetBase >= b.config.InstructionsPerFrame {
			select {
			case <-ctx.Done():
				return nil
			case <-b.ticks:
				b.budgetBase = b.CPU.InstructionCount()
			}
		}
	}
}

// StepN executes n instructions on the calling goroutine
func (b *Bus) StepN(n int) error {
	for n > 0 {
		batch := min(n, b.config.BatchSize)
		if err := b.runBatch(batch); err != nil {
			return err
		}
		n -= batch
	}
	return nil
}

func (b *Bus) runBatch(n int) error {
	if b.resetRequested.Swap(false) {
		b.CPU.Reset()
		b.budgetBase = 0
		b.logger.Printf("[BUS] CPU reset")
	}
	for i := 0; i < n; i++ {
		if err := b.CPU.Step(); err != nil {
			return fmt.Errorf("execution stopped at instruction %d: %w", b.CPU.InstructionCount(), err)
		}
	}
	if b.snapshotRequested.Swap(false) {
		b.captureVideo()
	}
	return nil
}

// captureVideo copies the video window into the snapshot buffer. Only the
// execution goroutine calls it, so memory is never read concurrently.
func (b *Bus) captureVideo() {
	b.videoMu.Lock()
	copy(b.video, b.Memory.VideoRAM())
	b.videoFrame = b.frameCount.Load()
	b.videoMu.Unlock()
}

// Tick is the host frame tick: it queues the frame interrupts, asks the
// execution loop for a fresh video snapshot and releases the frame budget.
func (b *Bus) Tick() {
	b.CPU.AddFrame()
	b.frameCount.Add(1)
	b.snapshotRequested.Store(true)

	select {
	case b.ticks <- struct{}{}:
	default:
	}
}

// RequestReset pulses the CPU reset line. The execution loop performs the
// reset before its next batch; memory and the port latches are kept.
func (b *Bus) RequestReset() {
	b.resetRequested.Store(true)
}

// Frame copies the latest video snapshot into dst and returns the frame
// number it was taken at
func (b *Bus) Frame(dst []byte) uint64 {
	b.videoMu.Lock()
	defer b.videoMu.Unlock()
	copy(dst, b.video)
	return b.videoFrame
}

// SetButton updates a cabinet control and the input ports it drives
func (b *Bus) SetButton(button input.Button, pressed bool) {
	b.Input.SetButton(button, pressed)
	if err := b.Input.Apply(b.CPU); err != nil {
		b.logger.Printf("[BUS] Failed to apply input ports: %v", err)
	}
}

// FrameCount returns the number of host frame ticks
func (b *Bus) FrameCount() uint64 {
	return b.frameCount.Load()
}

// InstructionCount returns the CPU instruction counter
func (b *Bus) InstructionCount() uint64 {
	return b.CPU.InstructionCount()
}

// Stats returns the machine counters
func (b *Bus) Stats() Stats {
	return Stats{
		Instructions:      b.CPU.InstructionCount(),
		Frames:            b.frameCount.Load(),
		PendingInterrupts: b.CPU.PendingInterrupts(),
		QueueHighWater:    b.CPU.QueueHighWater(),
	}
}

// EnableCPUTracing enables per-instruction logging
func (b *Bus) EnableCPUTracing(enable bool) {
	b.CPU.EnableTracing(enable)
}

// EnableInputDebug enables debug logging for the control panel
func (b *Bus) EnableInputDebug(enable bool) {
	b.Input.EnableDebug(enable)
}

// EnableSoundDebug enables debug logging for sound triggers
func (b *Bus) EnableSoundDebug(enable bool) {
	b.Sound.EnableDebug(enable)
}
