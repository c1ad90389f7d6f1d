// Package graphics provides the video converter and the rendering backends
// that present the cabinet monitor.
package graphics

import (
	"fmt"
	"image"
	"strings"
)

// Backend represents a graphics rendering backend (Ebitengine, terminal, etc.)
type Backend interface {
	// Initialize initializes the graphics backend
	Initialize(config Config) error

	// CreateWindow creates a window for rendering
	CreateWindow(title string, width, height int) (Window, error)

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless returns true if running in headless mode
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Window represents a rendering window
type Window interface {
	// SetTitle sets the window title
	SetTitle(title string)

	// GetSize returns window dimensions
	GetSize() (width, height int)

	// ShouldClose returns true if window should close
	ShouldClose() bool

	// SwapBuffers presents the rendered frame
	SwapBuffers()

	// PollEvents processes input events
	PollEvents() []InputEvent

	// RenderFrame renders a converted video frame to the window
	RenderFrame(frame *image.RGBA) error

	// Cleanup releases window resources
	Cleanup() error
}

// Config contains configuration for graphics backends
type Config struct {
	// Window configuration
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	VSync        bool

	// Rendering configuration
	Filter      string // "nearest", "linear"
	AspectRatio string // "keep", "stretch"

	// Headless screenshots
	ScreenshotDir    string
	ScreenshotFrames []int
	ScreenshotScale  int

	// Backend-specific options
	Headless bool
	Debug    bool
}

// InputEvent represents an input event from the window
type InputEvent struct {
	Type      InputEventType
	Key       Key
	Pressed   bool
	Modifiers ModifierKey
}

// InputEventType represents the type of input event
type InputEventType int

const (
	InputEventTypeKey InputEventType = iota
	InputEventTypeQuit
)

// Key represents keyboard keys
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeySpace
	KeyTab
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyA
	KeyC
	KeyD
	KeyJ
	KeyK
	KeyL
	KeyP
	KeyS
	KeyT
	KeyW
	Key1
	Key2
	Key3
	Key4
	Key5
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

var keyNames = map[Key]string{
	KeyEscape: "escape",
	KeyEnter:  "enter",
	KeySpace:  "space",
	KeyTab:    "tab",
	KeyUp:     "up",
	KeyDown:   "down",
	KeyLeft:   "left",
	KeyRight:  "right",
	KeyA:      "a",
	KeyC:      "c",
	KeyD:      "d",
	KeyJ:      "j",
	KeyK:      "k",
	KeyL:      "l",
	KeyP:      "p",
	KeyS:      "s",
	KeyT:      "t",
	KeyW:      "w",
	Key1:      "1",
	Key2:      "2",
	Key3:      "3",
	Key4:      "4",
	Key5:      "5",
	KeyF1:     "f1",
	KeyF2:     "f2",
	KeyF3:     "f3",
	KeyF4:     "f4",
	KeyF5:     "f5",
	KeyF6:     "f6",
	KeyF7:     "f7",
	KeyF8:     "f8",
	KeyF9:     "f9",
	KeyF10:    "f10",
	KeyF11:    "f11",
	KeyF12:    "f12",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// ParseKey resolves a key name as used in the configuration file
func ParseKey(name string) (Key, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for key, n := range keyNames {
		if n == name {
			return key, nil
		}
	}
	return KeyUnknown, fmt.Errorf("unknown key %q", name)
}

// ModifierKey represents modifier keys
type ModifierKey int

const (
	ModifierNone  ModifierKey = 0
	ModifierShift ModifierKey = 1 << iota
	ModifierCtrl
	ModifierAlt
)

// BackendType represents different graphics backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// CreateBackend creates a graphics backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendEbitengine, "":
		return NewEbitengineBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(), nil
	default:
		return nil, fmt.Errorf("unknown graphics backend %q", backendType)
	}
}

// AsEbitengineWindow tries to cast a Window to EbitengineWindow
func AsEbitengineWindow(window Window) (*EbitengineWindow, bool) {
	if ebitengineWindow, ok := window.(*EbitengineWindow); ok {
		return ebitengineWindow, true
	}
	return nil, false
}
