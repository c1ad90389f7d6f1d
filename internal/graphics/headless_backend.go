package graphics

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// HeadlessBackend implements the Backend interface for headless operation
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow implements the Window interface for headless operation
type HeadlessWindow struct {
	title       string
	width       int
	height      int
	running     bool
	frameCount  int
	outputPath  string
	scale       int
	screenshots map[int]bool
	lastFrame   *image.RGBA
	debug       bool
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates a headless "window" (no actual window)
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	outputPath := b.config.ScreenshotDir
	if outputPath == "" {
		outputPath = "."
	}
	scale := b.config.ScreenshotScale
	if scale < 1 {
		scale = 1
	}

	screenshots := make(map[int]bool, len(b.config.ScreenshotFrames))
	for _, frame := range b.config.ScreenshotFrames {
		screenshots[frame] = true
	}

	return &HeadlessWindow{
		title:       title,
		width:       width,
		height:      height,
		running:     true,
		outputPath:  outputPath,
		scale:       scale,
		screenshots: screenshots,
		debug:       b.config.Debug,
	}, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true (this is a headless backend)
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

// HeadlessWindow implementation

// SetTitle sets the window title (for logging purposes)
func (w *HeadlessWindow) SetTitle(title string) {
	w.title = title
}

// GetSize returns window dimensions
func (w *HeadlessWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *HeadlessWindow) ShouldClose() bool {
	return !w.running
}

// SwapBuffers does nothing in headless mode
func (w *HeadlessWindow) SwapBuffers() {}

// PollEvents returns empty events list (no input in headless mode)
func (w *HeadlessWindow) PollEvents() []InputEvent {
	return nil
}

// RenderFrame counts the frame, keeps a copy of it and writes a screenshot
// when the frame number is one of the configured ones
func (w *HeadlessWindow) RenderFrame(frame *image.RGBA) error {
	if frame == nil {
		return fmt.Errorf("nil frame")
	}
	w.frameCount++

	if w.lastFrame == nil || w.lastFrame.Rect != frame.Rect {
		w.lastFrame = image.NewRGBA(frame.Rect)
	}
	copy(w.lastFrame.Pix, frame.Pix)

	if w.screenshots[w.frameCount] {
		filename := filepath.Join(w.outputPath, fmt.Sprintf("frame_%05d.png", w.frameCount))
		if err := w.SavePNG(filename); err != nil {
			return err
		}
		if w.debug {
			log.Printf("[Headless] Saved %s", filename)
		}
	}

	return nil
}

// SavePNG writes the last rendered frame as an opaque PNG, scaled by the
// configured integer factor
func (w *HeadlessWindow) SavePNG(filename string) error {
	if w.lastFrame == nil {
		return fmt.Errorf("no frame rendered yet")
	}

	bounds := w.lastFrame.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx()*w.scale, bounds.Dy()*w.scale))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), w.lastFrame, bounds, draw.Over, nil)

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filename, err)
	}
	defer file.Close()

	if err := png.Encode(file, dst); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}
	return file.Close()
}

// LastFrame returns the most recently rendered frame, or nil
func (w *HeadlessWindow) LastFrame() *image.RGBA {
	return w.lastFrame
}

// Cleanup releases window resources
func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// SetOutputPath sets the output directory for screenshots
func (w *HeadlessWindow) SetOutputPath(path string) {
	w.outputPath = path
}

// GetFrameCount returns the current frame count
func (w *HeadlessWindow) GetFrameCount() int {
	return w.frameCount
}
