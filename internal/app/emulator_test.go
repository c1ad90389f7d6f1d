package app

import (
	"bytes"
	"context"
	"image/color"
	"log"
	"strings"
	"testing"

	"goinvaders/internal/bus"
	"goinvaders/internal/graphics"
	"goinvaders/internal/input"
)

// emulatorTestHelper holds an emulator driving a headless window over a bus
// that is stepped on the test goroutine
type emulatorTestHelper struct {
	Bus      *bus.Bus
	Window   *graphics.HeadlessWindow
	Emulator *Emulator
	Config   *Config
	Log      *bytes.Buffer
}

func newEmulatorTestHelper(t *testing.T, program ...byte) *emulatorTestHelper {
	t.Helper()

	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	config := NewConfig()
	config.Video.Rotate = false
	config.Video.Overlay = false
	config.Emulation.FrameRate = 1000

	busConfig := bus.DefaultConfig()
	busConfig.Logger = logger
	b := bus.New(busConfig)
	if len(program) > 0 {
		if err := b.LoadROM(program); err != nil {
			t.Fatalf("LoadROM failed: %v", err)
		}
	}

	backend := graphics.NewHeadlessBackend()
	if err := backend.Initialize(graphics.Config{Headless: true}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	window, err := backend.CreateWindow("test", 224, 256)
	if err != nil {
		t.Fatalf("CreateWindow failed: %v", err)
	}

	video := graphics.NewVideoProcessor(false, false, 1.0)
	e, err := NewEmulator(b, config, window, video, logger)
	if err != nil {
		t.Fatalf("NewEmulator failed: %v", err)
	}

	return &emulatorTestHelper{
		Bus:      b,
		Window:   window.(*graphics.HeadlessWindow),
		Emulator: e,
		Config:   config,
		Log:      &buf,
	}
}

func (h *emulatorTestHelper) step(t *testing.T, n int) {
	t.Helper()
	if err := h.Bus.StepN(n); err != nil {
		t.Fatalf("StepN failed: %v", err)
	}
}

func (h *emulatorTestHelper) frame(t *testing.T) {
	t.Helper()
	if err := h.Emulator.Frame(); err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
}

func keyEvent(key graphics.Key, pressed bool) graphics.InputEvent {
	return graphics.InputEvent{Type: graphics.InputEventTypeKey, Key: key, Pressed: pressed}
}

func TestEmulator_FramePresentsSnapshot(t *testing.T) {
	h := newEmulatorTestHelper(t,
		0x3E, 0xFF,       // MVI A,$FF
		0x32, 0x00, 0x24, // STA $2400
		0xC3, 0x05, 0x00, // JMP $0005
	)
	h.step(t, 2)

	// The snapshot is taken by the execution side after the tick
	h.frame(t)
	h.step(t, 1)
	h.frame(t)

	if h.Window.GetFrameCount() != 2 || h.Emulator.GetFrameCount() != 2 {
		t.Fatalf("Expected 2 frames, window %d emulator %d", h.Window.GetFrameCount(), h.Emulator.GetFrameCount())
	}
	if h.Emulator.GetLastVideoFrame() != 1 {
		t.Errorf("Expected snapshot from frame 1, got %d", h.Emulator.GetLastVideoFrame())
	}

	frame := h.Window.LastFrame()
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for x := 0; x < 8; x++ {
		if frame.RGBAAt(x, 0) != white {
			t.Errorf("Pixel (%d,0) should be lit, got %v", x, frame.RGBAAt(x, 0))
		}
	}
	if frame.RGBAAt(8, 0).A != 0 {
		t.Error("Pixel (8,0) should be dark")
	}
}

func TestEmulator_HandleEvents(t *testing.T) {
	h := newEmulatorTestHelper(t, 0x00)

	h.Emulator.HandleEvents([]graphics.InputEvent{
		keyEvent(graphics.KeySpace, true),
		keyEvent(graphics.KeyC, true),
		keyEvent(graphics.KeyJ, true), // unbound
	})

	if !h.Bus.Input.IsPressed(input.ButtonP1Fire) || !h.Bus.Input.IsPressed(input.ButtonCoin) {
		t.Fatal("Expected fire and coin pressed")
	}
	if h.Bus.Ports.ReadInput(1) != 0x08|0x01|0x10 {
		t.Errorf("Unexpected port 1 value 0x%02X", h.Bus.Ports.ReadInput(1))
	}

	h.Emulator.HandleEvents([]graphics.InputEvent{keyEvent(graphics.KeySpace, false)})
	if h.Bus.Input.IsPressed(input.ButtonP1Fire) {
		t.Error("Fire should be released")
	}

	h.Emulator.HandleEvents([]graphics.InputEvent{{Type: graphics.InputEventTypeQuit, Pressed: true}})
	if !h.Emulator.Done() {
		t.Error("Quit event should end the loop")
	}
}

func TestEmulator_PauseHotkey(t *testing.T) {
	h := newEmulatorTestHelper(t, 0x00)

	h.Emulator.HandleEvents([]graphics.InputEvent{keyEvent(graphics.KeyP, true), keyEvent(graphics.KeyP, false)})
	if !h.Emulator.IsPaused() {
		t.Fatal("P should pause")
	}

	h.frame(t)
	if h.Bus.FrameCount() != 0 {
		t.Error("Paused frames should not tick the bus")
	}
	if h.Window.GetFrameCount() != 1 {
		t.Error("Paused frames should still be presented")
	}

	h.Emulator.HandleEvents([]graphics.InputEvent{keyEvent(graphics.KeyP, true)})
	if h.Emulator.IsPaused() {
		t.Fatal("P should resume")
	}
	h.frame(t)
	if h.Bus.FrameCount() != 1 {
		t.Error("Resumed frames should tick the bus")
	}

	out := h.Log.String()
	if !strings.Contains(out, "[APP] Paused") || !strings.Contains(out, "[APP] Resumed") {
		t.Errorf("Expected pause and resume log lines, got %q", out)
	}
}

func TestEmulator_ResetHotkey(t *testing.T) {
	h := newEmulatorTestHelper(t, 0x00, 0x00, 0x00, 0x00)
	h.step(t, 3)

	h.Emulator.HandleEvents([]graphics.InputEvent{keyEvent(graphics.KeyF5, true)})
	h.step(t, 1)

	if h.Bus.InstructionCount() != 1 || h.Bus.CPU.PC != 1 {
		t.Errorf("Expected restart from 0, count %d PC %04X", h.Bus.InstructionCount(), h.Bus.CPU.PC)
	}
}

func TestEmulator_RunLoopMaxFrames(t *testing.T) {
	h := newEmulatorTestHelper(t, 0x00)
	h.Config.Emulation.MaxFrames = 3

	hooked := 0
	h.Emulator.SetFrameHook(func() { hooked++ })

	if err := h.Emulator.RunLoop(context.Background()); err != nil {
		t.Fatalf("RunLoop failed: %v", err)
	}

	if h.Emulator.GetFrameCount() != 3 || h.Bus.FrameCount() != 3 || hooked != 3 {
		t.Errorf("Expected 3 frames, emulator %d bus %d hook %d",
			h.Emulator.GetFrameCount(), h.Bus.FrameCount(), hooked)
	}
	if h.Emulator.GetTargetFrameTime().Milliseconds() != 1 {
		t.Errorf("Expected 1 ms frame period, got %v", h.Emulator.GetTargetFrameTime())
	}
}

func TestEmulator_RunLoopCancelled(t *testing.T) {
	h := newEmulatorTestHelper(t, 0x00)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Emulator.RunLoop(ctx); err != nil {
		t.Fatalf("RunLoop failed: %v", err)
	}
	if h.Emulator.GetFrameCount() != 0 {
		t.Errorf("Cancelled loop ran %d frames", h.Emulator.GetFrameCount())
	}
}

func TestEmulator_WindowClose(t *testing.T) {
	h := newEmulatorTestHelper(t, 0x00)
	if h.Emulator.Done() {
		t.Fatal("Fresh emulator should not be done")
	}
	h.Window.Cleanup()
	if !h.Emulator.Done() {
		t.Error("Closed window should end the loop")
	}
}
