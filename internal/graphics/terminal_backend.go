package graphics

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"

	"golang.org/x/term"
)

// Default character grid when the output is not a terminal
const (
	defaultTerminalColumns = 80
	defaultTerminalRows    = 40
)

// TerminalBackend implements the Backend interface for terminal-based rendering
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow implements the Window interface for terminal rendering
type TerminalWindow struct {
	title   string
	width   int
	height  int
	running bool

	out     io.Writer
	columns int
	rows    int
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates a terminal "window" sized to the controlling terminal
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	columns, rows := defaultTerminalColumns, defaultTerminalRows
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if c, r, err := term.GetSize(fd); err == nil && c > 0 && r > 1 {
			columns, rows = c, r-1
		}
	}

	return &TerminalWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
		out:     os.Stdout,
		columns: columns,
		rows:    rows,
	}, nil
}

// Cleanup releases all terminal resources
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false (terminal has basic output)
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// TerminalWindow implementation

// SetTitle sets the terminal title
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	fmt.Fprintf(w.out, "\033]0;%s\007", title)
}

// GetSize returns window dimensions
func (w *TerminalWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *TerminalWindow) ShouldClose() bool {
	return !w.running
}

// SwapBuffers does nothing for terminal
func (w *TerminalWindow) SwapBuffers() {}

// PollEvents returns empty events list (no input handling in the terminal)
func (w *TerminalWindow) PollEvents() []InputEvent {
	return nil
}

// SetOutput redirects rendering and sets the character grid size
func (w *TerminalWindow) SetOutput(out io.Writer, columns, rows int) {
	w.out = out
	if columns > 0 {
		w.columns = columns
	}
	if rows > 0 {
		w.rows = rows
	}
}

// RenderFrame draws the frame as ASCII art. Each character cell covers a
// block of pixels and is lit when any pixel in the block is lit.
func (w *TerminalWindow) RenderFrame(frame *image.RGBA) error {
	if frame == nil {
		return fmt.Errorf("nil frame")
	}

	bounds := frame.Bounds()
	stepX := (bounds.Dx() + w.columns - 1) / w.columns
	stepY := (bounds.Dy() + w.rows - 1) / w.rows
	if stepX < 1 {
		stepX = 1
	}
	if stepY < 1 {
		stepY = 1
	}

	buf := bufio.NewWriter(w.out)
	buf.WriteString("\033[2J\033[H")

	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			if blockLit(frame, x, y, stepX, stepY) {
				buf.WriteByte('#')
			} else {
				buf.WriteByte(' ')
			}
		}
		buf.WriteByte('\n')
	}

	return buf.Flush()
}

func blockLit(frame *image.RGBA, x0, y0, w, h int) bool {
	bounds := frame.Bounds()
	for y := y0; y < y0+h && y < bounds.Max.Y; y++ {
		for x := x0; x < x0+w && x < bounds.Max.X; x++ {
			if frame.Pix[frame.PixOffset(x, y)+3] != 0 {
				return true
			}
		}
	}
	return false
}

// Cleanup releases window resources
func (w *TerminalWindow) Cleanup() error {
	w.running = false
	return nil
}
