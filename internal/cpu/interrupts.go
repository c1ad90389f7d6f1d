package cpu

import "sync"

// DefaultWarnDepth is the queue depth at which starvation is reported
const DefaultWarnDepth = 64

// FrameSchedule describes the interrupts queued for every displayed frame
type FrameSchedule struct {
	MidVector uint8
	MidDelay  uint64
	EndVector uint8
	EndDelay  uint64
}

// DefaultFrameSchedule queues RST 2 immediately and again 25000 instructions
// later
var DefaultFrameSchedule = FrameSchedule{
	MidVector: 2,
	MidDelay:  0,
	EndVector: 2,
	EndDelay:  25000,
}

// BoardFrameSchedule follows the arcade board: RST 1 when the beam reaches
// mid-screen and RST 2 at vertical blank
var BoardFrameSchedule = FrameSchedule{
	MidVector: 1,
	MidDelay:  0,
	EndVector: 2,
	EndDelay:  16667,
}

type pendingInterrupt struct {
	vector uint8
	target uint64
}

// scheduler is the FIFO of pending interrupts. It is shared between the host
// goroutine, which enqueues, and the execution goroutine, which dequeues.
type scheduler struct {
	mu        sync.Mutex
	queue     []pendingInterrupt
	schedule  FrameSchedule
	warnDepth int
	warned    bool
	highWater int
}

func (s *scheduler) init(schedule FrameSchedule, warnDepth int) {
	s.schedule = schedule
	s.warnDepth = warnDepth
}

func (s *scheduler) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = s.queue[:0]
	s.warned = false
}

// enqueue appends under the lock and reports whether depth just crossed the
// warning threshold
func (s *scheduler) enqueue(entries ...pendingInterrupt) (depth int, crossed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, entries...)
	depth = len(s.queue)
	if depth > s.highWater {
		s.highWater = depth
	}
	if s.warnDepth > 0 && depth >= s.warnDepth && !s.warned {
		s.warned = true
		crossed = true
	}
	return depth, crossed
}

// due pops the head if its target has been reached
func (s *scheduler) due(count uint64) (uint8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 || s.queue[0].target > count {
		return 0, false
	}
	vector := s.queue[0].vector
	s.queue = s.queue[1:]
	if s.warned && len(s.queue) < s.warnDepth {
		s.warned = false
	}
	return vector, true
}

// QueueInterrupt schedules vector to fire once delay more instructions have
// executed. It does nothing while interrupts are disabled.
func (cpu *CPU) QueueInterrupt(vector uint8, delay uint64) {
	if !cpu.interruptEnable.Load() {
		return
	}
	cpu.report(cpu.interrupts.enqueue(pendingInterrupt{
		vector: vector & 7,
		target: cpu.instructionCount.Load() + delay,
	}))
}

// AddFrame queues the interrupts for one displayed frame
func (cpu *CPU) AddFrame() {
	if !cpu.interruptEnable.Load() {
		return
	}
	count := cpu.instructionCount.Load()

	cpu.interrupts.mu.Lock()
	schedule := cpu.interrupts.schedule
	cpu.interrupts.mu.Unlock()

	cpu.report(cpu.interrupts.enqueue(
		pendingInterrupt{vector: schedule.MidVector & 7, target: count + schedule.MidDelay},
		pendingInterrupt{vector: schedule.EndVector & 7, target: count + schedule.EndDelay},
	))
}

func (cpu *CPU) report(depth int, crossed bool) {
	if crossed {
		cpu.logger.Printf("[CPU_WARNING] Interrupt queue depth reached %d, execution is falling behind frame ticks", depth)
	}
}

// SetFrameSchedule replaces the per-frame interrupt schedule
func (cpu *CPU) SetFrameSchedule(schedule FrameSchedule) {
	cpu.interrupts.mu.Lock()
	defer cpu.interrupts.mu.Unlock()
	cpu.interrupts.schedule = schedule
}

// SetWarnDepth sets the queue depth that triggers a starvation warning. Zero
// disables the warning.
func (cpu *CPU) SetWarnDepth(depth int) {
	cpu.interrupts.mu.Lock()
	defer cpu.interrupts.mu.Unlock()
	cpu.interrupts.warnDepth = depth
}

// PendingInterrupts returns the current queue depth
func (cpu *CPU) PendingInterrupts() int {
	cpu.interrupts.mu.Lock()
	defer cpu.interrupts.mu.Unlock()
	return len(cpu.interrupts.queue)
}

// QueueHighWater returns the deepest the queue has been since creation
func (cpu *CPU) QueueHighWater() int {
	cpu.interrupts.mu.Lock()
	defer cpu.interrupts.mu.Unlock()
	return cpu.interrupts.highWater
}
