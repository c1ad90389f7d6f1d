package app

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"goinvaders/internal/bus"
	"goinvaders/internal/graphics"
	"goinvaders/internal/input"
	"goinvaders/internal/memory"
)

// Emulator is the host half of the machine. Once per displayed frame it
// feeds input to the panel, ticks the bus and presents the video snapshot.
// It runs on the host goroutine while the bus executes on its own.
type Emulator struct {
	bus    *bus.Bus
	config *Config
	window graphics.Window
	video  *graphics.VideoProcessor
	logger *log.Logger

	bindings map[graphics.Key]input.Button
	hotkeys  map[graphics.Key]Hotkey

	// Frame state
	vram            []byte
	frameCount      uint64
	lastVideoFrame  uint64
	targetFrameTime time.Duration

	// Timing
	startTime     time.Time
	lastFrameTime time.Duration

	onFrame func()

	paused atomic.Bool
	quit   bool
}

// NewEmulator creates the host loop for a bus. window may be nil, in which
// case frames are ticked but not presented.
func NewEmulator(b *bus.Bus, config *Config, window graphics.Window, video *graphics.VideoProcessor, logger *log.Logger) (*Emulator, error) {
	bindings, err := config.Bindings()
	if err != nil {
		return nil, err
	}
	hotkeys, err := config.Hotkeys()
	if err != nil {
		return nil, err
	}

	frameRate := config.Emulation.FrameRate
	if frameRate <= 0 {
		frameRate = 60
	}

	return &Emulator{
		bus:             b,
		config:          config,
		window:          window,
		video:           video,
		logger:          logger,
		bindings:        bindings,
		hotkeys:         hotkeys,
		vram:            make([]byte, memory.VideoRAMSize),
		targetFrameTime: time.Duration(float64(time.Second) / frameRate),
		startTime:       time.Now(),
	}, nil
}

// Frame runs one host frame
func (e *Emulator) Frame() error {
	frameStart := time.Now()

	if e.window != nil {
		e.HandleEvents(e.window.PollEvents())
	}

	if !e.paused.Load() {
		e.bus.Tick()
	}
	e.frameCount++

	if err := e.present(); err != nil {
		return err
	}

	e.lastFrameTime = time.Since(frameStart)
	if e.onFrame != nil {
		e.onFrame()
	}
	return nil
}

// SetFrameHook sets a function called at the end of every frame
func (e *Emulator) SetFrameHook(hook func()) {
	e.onFrame = hook
}

// present converts the latest video snapshot and hands it to the window.
// A snapshot is presented even when it has not changed so backends that
// count frames stay in step with the host clock.
func (e *Emulator) present() error {
	if e.window == nil || e.video == nil {
		return nil
	}
	e.lastVideoFrame = e.bus.Frame(e.vram)
	return e.window.RenderFrame(e.video.Convert(e.vram))
}

// HandleEvents applies window events to the control panel and hotkeys
func (e *Emulator) HandleEvents(events []graphics.InputEvent) {
	for _, event := range events {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			e.logger.Printf("[APP] Quit requested")
			e.quit = true

		case graphics.InputEventTypeKey:
			if hotkey, ok := e.hotkeys[event.Key]; ok {
				if event.Pressed {
					e.handleHotkey(hotkey)
				}
				continue
			}
			if button, ok := e.bindings[event.Key]; ok {
				e.bus.SetButton(button, event.Pressed)
			}
		}
	}
}

func (e *Emulator) handleHotkey(hotkey Hotkey) {
	switch hotkey {
	case HotkeyPause:
		e.TogglePause()
	case HotkeyReset:
		e.Reset()
	}
}

// RunLoop ticks frames at the configured rate until ctx is cancelled, the
// window closes, a quit is requested or the frame limit is reached
func (e *Emulator) RunLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.targetFrameTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := e.Frame(); err != nil {
			return err
		}
		if e.Done() {
			return nil
		}
	}
}

// Done reports whether the host loop should stop
func (e *Emulator) Done() bool {
	if e.quit {
		return true
	}
	if e.window != nil && e.window.ShouldClose() {
		return true
	}
	limit := e.config.Emulation.MaxFrames
	return limit > 0 && e.frameCount >= limit
}

// Pause stops the frame interrupts. The CPU keeps executing the game's idle
// loop, which waits for them.
func (e *Emulator) Pause() {
	if !e.paused.Swap(true) {
		e.bus.Sound.SetMuted(true)
		e.logger.Printf("[APP] Paused at frame %d", e.frameCount)
	}
}

// Resume restarts the frame interrupts
func (e *Emulator) Resume() {
	if e.paused.Swap(false) {
		e.bus.Sound.SetMuted(false)
		e.logger.Printf("[APP] Resumed at frame %d", e.frameCount)
	}
}

// TogglePause toggles the pause state
func (e *Emulator) TogglePause() {
	if e.paused.Load() {
		e.Resume()
	} else {
		e.Pause()
	}
}

// IsPaused returns true while paused
func (e *Emulator) IsPaused() bool {
	return e.paused.Load()
}

// Reset restarts the game from address 0
func (e *Emulator) Reset() {
	e.logger.Printf("[APP] Reset requested at frame %d", e.frameCount)
	e.bus.RequestReset()
}

// GetFrameCount returns the number of host frames run
func (e *Emulator) GetFrameCount() uint64 {
	return e.frameCount
}

// GetLastVideoFrame returns the frame number of the last presented snapshot
func (e *Emulator) GetLastVideoFrame() uint64 {
	return e.lastVideoFrame
}

// GetTargetFrameTime returns the host frame period
func (e *Emulator) GetTargetFrameTime() time.Duration {
	return e.targetFrameTime
}

// GetActualFrameTime returns how long the last frame took to process
func (e *Emulator) GetActualFrameTime() time.Duration {
	return e.lastFrameTime
}

// GetUptime returns the time since the emulator was created
func (e *Emulator) GetUptime() time.Duration {
	return time.Since(e.startTime)
}
