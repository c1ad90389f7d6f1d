//go:build !headless
// +build !headless

package graphics

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame
}

// EbitengineWindow implements the Window interface for Ebitengine
type EbitengineWindow struct {
	backend            *EbitengineBackend
	title              string
	width              int
	height             int
	game               *EbitengineGame
	running            bool
	events             []InputEvent
	emulatorUpdateFunc func() error
}

// EbitengineGame implements ebiten.Game for the cabinet monitor
type EbitengineGame struct {
	window       *EbitengineWindow
	frameImage   *ebiten.Image
	frameWidth   int
	frameHeight  int
	windowWidth  int
	windowHeight int

	// Latest frame waiting to be uploaded by Draw
	pending []byte
	dirty   bool

	drawCount int
}

// keyMappings maps Ebitengine keys to backend keys
var keyMappings = map[ebiten.Key]Key{
	ebiten.KeyEscape:     KeyEscape,
	ebiten.KeyEnter:      KeyEnter,
	ebiten.KeySpace:      KeySpace,
	ebiten.KeyTab:        KeyTab,
	ebiten.KeyArrowUp:    KeyUp,
	ebiten.KeyArrowDown:  KeyDown,
	ebiten.KeyArrowLeft:  KeyLeft,
	ebiten.KeyArrowRight: KeyRight,
	ebiten.KeyA:          KeyA,
	ebiten.KeyC:          KeyC,
	ebiten.KeyD:          KeyD,
	ebiten.KeyJ:          KeyJ,
	ebiten.KeyK:          KeyK,
	ebiten.KeyL:          KeyL,
	ebiten.KeyP:          KeyP,
	ebiten.KeyS:          KeyS,
	ebiten.KeyT:          KeyT,
	ebiten.KeyW:          KeyW,
	ebiten.Key1:          Key1,
	ebiten.Key2:          Key2,
	ebiten.Key3:          Key3,
	ebiten.Key4:          Key4,
	ebiten.Key5:          Key5,
	ebiten.KeyF1:         KeyF1,
	ebiten.KeyF2:         KeyF2,
	ebiten.KeyF3:         KeyF3,
	ebiten.KeyF4:         KeyF4,
	ebiten.KeyF5:         KeyF5,
	ebiten.KeyF6:         KeyF6,
	ebiten.KeyF7:         KeyF7,
	ebiten.KeyF8:         KeyF8,
	ebiten.KeyF9:         KeyF9,
	ebiten.KeyF10:        KeyF10,
	ebiten.KeyF11:        KeyF11,
	ebiten.KeyF12:        KeyF12,
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates an Ebitengine window
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	game := &EbitengineGame{
		frameWidth:   ScreenHeight,
		frameHeight:  ScreenWidth,
		windowWidth:  width,
		windowHeight: height,
	}

	window := &EbitengineWindow{
		backend: b,
		title:   title,
		width:   width,
		height:  height,
		game:    game,
		running: true,
	}

	game.window = window
	b.game = game

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)
	ebiten.SetTPS(60)

	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	ebiten.SetScreenFilterEnabled(b.config.Filter == "linear")

	return window, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// EbitengineWindow implementation

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// GetSize returns window dimensions
func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// SwapBuffers is handled automatically by Ebitengine
func (w *EbitengineWindow) SwapBuffers() {}

// PollEvents returns the input events collected since the last call
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame stores a converted frame. It is uploaded to the GPU on the
// next Draw.
func (w *EbitengineWindow) RenderFrame(frame *image.RGBA) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	if frame == nil {
		return fmt.Errorf("nil frame")
	}

	g := w.game
	bounds := frame.Bounds()
	if bounds.Dx() != g.frameWidth || bounds.Dy() != g.frameHeight {
		g.frameWidth = bounds.Dx()
		g.frameHeight = bounds.Dy()
		g.frameImage = nil
	}

	if len(g.pending) != len(frame.Pix) {
		g.pending = make([]byte, len(frame.Pix))
	}
	copy(g.pending, frame.Pix)
	g.dirty = true

	return nil
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop. It returns nil when the window is
// closed or Escape is pressed.
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}

	err := ebiten.RunGame(w.game)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// SetEmulatorUpdateFunc sets the function called once per tick
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

// EbitengineGame implementation

// Update implements ebiten.Game.Update
func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}

	g.processInput()

	if g.window.emulatorUpdateFunc != nil {
		if err := g.window.emulatorUpdateFunc(); err != nil {
			log.Printf("[Ebitengine] Emulator update error: %v", err)
			return err
		}
	}

	if !g.window.running {
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 0, G: 0, B: 0, A: 255})

	if g.frameImage == nil && g.pending != nil {
		g.frameImage = ebiten.NewImage(g.frameWidth, g.frameHeight)
	}
	if g.frameImage == nil {
		return
	}
	if g.dirty {
		g.frameImage.WritePixels(g.pending)
		g.dirty = false
	}

	scale, offsetX, offsetY := fitScale(g.windowWidth, g.windowHeight, g.frameWidth, g.frameHeight)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(g.frameImage, op)

	g.drawCount++
	if g.window.backend != nil && g.window.backend.config.Debug && g.drawCount%1800 == 0 {
		log.Printf("[Ebitengine] Drawing frame %d - %dx%d scaled %.2fx at offset (%.1f,%.1f)",
			g.drawCount, g.frameWidth, g.frameHeight, scale, offsetX, offsetY)
	}
}

// fitScale returns the largest scale that fits the frame in the window
// while keeping its aspect ratio, and the offsets that centre it
func fitScale(windowWidth, windowHeight, frameWidth, frameHeight int) (scale, offsetX, offsetY float64) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return 1, 0, 0
	}
	scaleX := float64(windowWidth) / float64(frameWidth)
	scaleY := float64(windowHeight) / float64(frameHeight)

	scale = scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	offsetX = (float64(windowWidth) - float64(frameWidth)*scale) / 2
	offsetY = (float64(windowHeight) - float64(frameHeight)*scale) / 2
	return scale, offsetX, offsetY
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

// processInput turns key transitions into input events
func (g *EbitengineGame) processInput() {
	if g.window == nil {
		return
	}

	var events []InputEvent

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		events = append(events, InputEvent{
			Type:    InputEventTypeQuit,
			Pressed: true,
		})
	}

	modifiers := ModifierNone
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		modifiers |= ModifierShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		modifiers |= ModifierCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		modifiers |= ModifierAlt
	}

	for ebitenKey, key := range keyMappings {
		if inpututil.IsKeyJustPressed(ebitenKey) {
			events = append(events, InputEvent{
				Type:      InputEventTypeKey,
				Key:       key,
				Pressed:   true,
				Modifiers: modifiers,
			})
		} else if inpututil.IsKeyJustReleased(ebitenKey) {
			events = append(events, InputEvent{
				Type:      InputEventTypeKey,
				Key:       key,
				Pressed:   false,
				Modifiers: modifiers,
			})
		}
	}

	g.window.events = append(g.window.events, events...)
}
