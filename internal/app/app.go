// Package app implements the emulator application: configuration, the
// presentation backends and the goroutines that run the machine.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"goinvaders/internal/bus"
	"goinvaders/internal/graphics"
	"goinvaders/internal/logger"
	"goinvaders/internal/sound"
	"goinvaders/internal/statsview"
)

// Application represents the emulator application
type Application struct {
	// Core emulation components
	bus *bus.Bus

	// Graphics backend
	graphicsBackend graphics.Backend
	window          graphics.Window
	videoProcessor  *graphics.VideoProcessor

	// Audio
	synth  *sound.Synth
	player *sound.Player

	// Application state
	config    *Config
	emulator  *Emulator
	logger    *log.Logger
	logCloser io.Closer
	stats     *statsview.Server

	// Control flags
	running     atomic.Bool
	initialized bool
	headless    bool

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	// ROM management
	romPath   string
	romLoaded bool

	// Performance tracking
	startTime        time.Time
	lastStatusTime   time.Time
	lastStatusFrames uint64
	lastStatusCount  uint64
	currentFPS       float64
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates the application from a configuration file. A
// missing file is created with the defaults; an unreadable or invalid one is
// reported and the defaults are used.
func NewApplication(configPath string, headless bool) (*Application, error) {
	config := NewConfig()
	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			log.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v", configPath, err)
			config = NewConfig()
		}
	}
	return NewApplicationWithConfig(config, headless)
}

// NewApplicationWithConfig creates the application from a configuration
// already in memory
func NewApplicationWithConfig(config *Config, headless bool) (*Application, error) {
	if err := config.validate(); err != nil {
		return nil, &ApplicationError{
			Component: "config",
			Operation: "validate",
			Err:       err,
		}
	}

	app := &Application{
		config:    config,
		headless:  headless,
		startTime: time.Now(),
	}

	if err := app.initializeComponents(); err != nil {
		app.Cleanup()
		return nil, &ApplicationError{
			Component: "initialization",
			Operation: "component setup",
			Err:       err,
		}
	}

	return app, nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	l, closer, err := logger.New(app.config.Debug.LogFile)
	if err != nil {
		return err
	}
	app.logger = l
	app.logCloser = closer

	app.initializeAudio()

	var sink sound.Sink
	if app.synth != nil {
		sink = app.synth
	}

	app.bus = bus.New(bus.Config{
		MemorySize:           app.config.Emulation.MemorySize,
		FrameSchedule:        app.config.FrameSchedule(),
		WarnDepth:            app.config.Emulation.WarnDepth,
		DipSwitches:          app.config.DipSwitches(),
		InstructionsPerFrame: app.config.Emulation.InstructionsPerFrame,
		SoundSink:            sink,
		Logger:               app.logger,
	})
	app.ApplyDebugSettings()

	if err := app.initializeGraphicsBackend(); err != nil {
		return fmt.Errorf("failed to initialize graphics backend: %w", err)
	}

	app.emulator, err = NewEmulator(app.bus, app.config, app.window, app.videoProcessor, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create emulator: %w", err)
	}
	app.emulator.SetFrameHook(app.updateStatus)

	app.initialized = true
	return nil
}

// initializeAudio opens the audio device. Audio is optional: without a
// device the sound triggers are still decoded and counted.
func (app *Application) initializeAudio() {
	if !app.config.Audio.Enabled || app.headless {
		return
	}

	synth := sound.NewSynth(app.config.Audio.SampleRate, app.config.Audio.Volume)
	player, err := sound.NewPlayer(synth)
	if err != nil {
		if errors.Is(err, sound.ErrAudioUnavailable) {
			app.logger.Printf("[APP_WARNING] %v, continuing without sound", err)
		} else {
			app.logger.Printf("[APP_WARNING] Audio setup failed, continuing without sound: %v", err)
		}
		return
	}

	app.synth = synth
	app.player = player
}

// initializeGraphicsBackend initializes the graphics backend based on configuration
func (app *Application) initializeGraphicsBackend() error {
	backendType := graphics.BackendType(app.config.Video.Backend)
	if app.headless {
		backendType = graphics.BackendHeadless
	}

	var err error
	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %w", err)
	}

	width, height := app.config.Window.Width, app.config.Window.Height
	graphicsConfig := graphics.Config{
		WindowTitle:      "goinvaders",
		WindowWidth:      width,
		WindowHeight:     height,
		Fullscreen:       app.config.Window.Fullscreen,
		VSync:            app.config.Video.VSync,
		Filter:           app.config.Video.Filter,
		AspectRatio:      app.config.Video.AspectRatio,
		ScreenshotDir:    app.config.Paths.Screenshots,
		ScreenshotFrames: app.config.Debug.ScreenshotFrames,
		ScreenshotScale:  app.config.Debug.ScreenshotScale,
		Headless:         app.headless,
		Debug:            app.config.Debug.EnableLogging,
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		// Without a display Ebitengine cannot start; fall back to headless
		if app.graphicsBackend.GetName() != "Ebitengine" {
			return fmt.Errorf("failed to initialize graphics backend: %w", err)
		}
		app.logger.Printf("[APP_WARNING] Ebitengine backend failed (%v), falling back to headless mode", err)
		app.graphicsBackend = graphics.NewHeadlessBackend()
		graphicsConfig.Headless = true
		if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
			return fmt.Errorf("failed to initialize fallback headless backend: %w", err)
		}
	}

	app.window, err = app.graphicsBackend.CreateWindow(graphicsConfig.WindowTitle, width, height)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	app.videoProcessor = graphics.NewVideoProcessor(
		app.config.Video.Rotate,
		app.config.Video.Overlay,
		app.config.Video.Brightness,
	)

	return nil
}

// LoadROM loads a program image file into the emulator
func (app *Application) LoadROM(romPath string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}
	if app.running.Load() {
		return &ApplicationError{Component: "rom", Operation: "load ROM", Err: errors.New("emulator is running")}
	}

	if err := app.bus.LoadROMFile(romPath); err != nil {
		return &ApplicationError{
			Component: "rom",
			Operation: "load ROM",
			Err:       err,
		}
	}

	app.romLoaded = true
	app.romPath = romPath
	app.bus.Reset()

	if app.window != nil {
		app.window.SetTitle(fmt.Sprintf("goinvaders - %s", filepath.Base(romPath)))
	}

	return nil
}

// LoadROMData loads a program image held in memory
func (app *Application) LoadROMData(name string, data []byte) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}
	if app.running.Load() {
		return &ApplicationError{Component: "rom", Operation: "load ROM", Err: errors.New("emulator is running")}
	}

	if err := app.bus.LoadROM(data); err != nil {
		return &ApplicationError{
			Component: "rom",
			Operation: "load ROM",
			Err:       err,
		}
	}

	app.romLoaded = true
	app.romPath = name
	app.bus.Reset()
	return nil
}

// Run runs the machine until ctx is cancelled, the window closes or the CPU
// stops on an error. The execution loop and the host loop run concurrently;
// whichever ends first stops the other, and Run returns once both have.
func (app *Application) Run(ctx context.Context) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}
	if !app.romLoaded {
		return &ApplicationError{Component: "emulator", Operation: "run", Err: errors.New("no ROM loaded")}
	}
	if !app.running.CompareAndSwap(false, true) {
		return errors.New("application already running")
	}
	defer app.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	app.cancelMu.Lock()
	app.cancel = cancel
	app.cancelMu.Unlock()

	app.startTime = time.Now()
	app.lastStatusTime = app.startTime
	app.logger.Printf("[APP] Starting %s with %s backend", app.romPath, app.graphicsBackend.GetName())

	if app.config.Debug.StatsView {
		app.stats = statsview.Start(app.config.Debug.StatsViewAddr, app.logger)
		defer app.stats.Stop()
	}
	if app.player != nil {
		app.player.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.bus.Run(gctx); err != nil {
			return &ApplicationError{Component: "cpu", Operation: "execute", Err: err}
		}
		return nil
	})

	// The host loop stays on the calling goroutine; Ebitengine needs the
	// main thread.
	hostErr := app.runHost(gctx)
	cancel()
	err := g.Wait()

	app.logStatus(time.Since(app.lastStatusTime))
	app.logger.Printf("[APP] Stopped after %d frames", app.emulator.GetFrameCount())

	if err != nil {
		return err
	}
	if hostErr != nil {
		return &ApplicationError{Component: "host", Operation: "present", Err: hostErr}
	}
	return nil
}

// runHost runs the presentation loop for the configured backend
func (app *Application) runHost(ctx context.Context) error {
	if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
		ebitengineWindow.SetEmulatorUpdateFunc(func() error {
			if ctx.Err() == nil {
				if err := app.emulator.Frame(); err != nil {
					return err
				}
			}
			if ctx.Err() != nil || app.emulator.Done() {
				ebitengineWindow.Cleanup()
			}
			return nil
		})
		return ebitengineWindow.Run()
	}

	return app.emulator.RunLoop(ctx)
}

// updateStatus refreshes the FPS figure and writes the periodic status line
func (app *Application) updateStatus() {
	now := time.Now()
	elapsed := now.Sub(app.lastStatusTime)

	interval := time.Duration(app.config.Debug.StatusInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	if elapsed < interval {
		return
	}

	frames := app.emulator.GetFrameCount()
	app.currentFPS = float64(frames-app.lastStatusFrames) / elapsed.Seconds()
	if app.config.Debug.StatusInterval > 0 {
		app.logStatus(elapsed)
	}

	app.lastStatusTime = now
	app.lastStatusFrames = frames
	app.lastStatusCount = app.bus.InstructionCount()
}

// logStatus writes the machine counters
func (app *Application) logStatus(elapsed time.Duration) {
	stats := app.bus.Stats()
	var mips float64
	if elapsed > 0 && stats.Instructions >= app.lastStatusCount {
		mips = float64(stats.Instructions-app.lastStatusCount) / elapsed.Seconds() / 1e6
	}
	app.logger.Printf("[APP] frame %d fps %.1f instructions %d (%.2f MIPS) pending interrupts %d high water %d",
		stats.Frames, app.currentFPS, stats.Instructions, mips, stats.PendingInterrupts, stats.QueueHighWater)
}

// Stop asks a running application to shut down
func (app *Application) Stop() {
	app.cancelMu.Lock()
	defer app.cancelMu.Unlock()
	if app.cancel != nil {
		app.cancel()
	}
}

// Pause stops the frame interrupts
func (app *Application) Pause() {
	app.emulator.Pause()
}

// Resume restarts the frame interrupts
func (app *Application) Resume() {
	app.emulator.Resume()
}

// TogglePause toggles the pause state
func (app *Application) TogglePause() {
	app.emulator.TogglePause()
}

// Reset restarts the game from address 0
func (app *Application) Reset() {
	app.emulator.Reset()
}

// IsRunning returns whether Run is in progress
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// IsPaused returns whether the emulator is paused
func (app *Application) IsPaused() bool {
	return app.emulator.IsPaused()
}

// GetFPS returns the measured host frame rate
func (app *Application) GetFPS() float64 {
	return app.currentFPS
}

// GetFrameCount returns the number of host frames run
func (app *Application) GetFrameCount() uint64 {
	return app.emulator.GetFrameCount()
}

// GetUptime returns the time since Run started
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetROMPath returns the loaded program path
func (app *Application) GetROMPath() string {
	return app.romPath
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetBus returns the machine
func (app *Application) GetBus() *bus.Bus {
	return app.bus
}

// GetWindow returns the presentation window
func (app *Application) GetWindow() graphics.Window {
	return app.window
}

// ApplyDebugSettings applies the debug section to the machine
func (app *Application) ApplyDebugSettings() {
	app.bus.EnableCPUTracing(app.config.Debug.CPUTracing)
	app.bus.EnableInputDebug(app.config.Debug.InputDebug)
	app.bus.EnableSoundDebug(app.config.Debug.SoundDebug)
}

// Cleanup releases the window, the backend, the audio device and the log
// file
func (app *Application) Cleanup() error {
	var errs []error

	if app.player != nil {
		if err := app.player.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audio: %w", err))
		}
		app.player = nil
	}
	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("window: %w", err))
		}
		app.window = nil
	}
	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("graphics: %w", err))
		}
		app.graphicsBackend = nil
	}
	if app.logCloser != nil {
		if err := app.logCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("log: %w", err))
		}
		app.logCloser = nil
	}

	app.initialized = false
	return errors.Join(errs...)
}
