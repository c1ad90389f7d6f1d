// Package app provides configuration management for the emulator.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"goinvaders/internal/cpu"
	"goinvaders/internal/graphics"
	"goinvaders/internal/input"
	"goinvaders/internal/memory"
)

// Config holds all application configuration
type Config struct {
	Window    WindowConfig    `json:"window"`
	Video     VideoConfig     `json:"video"`
	Audio     AudioConfig     `json:"audio"`
	Input     InputConfig     `json:"input"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	// Internal state
	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Fullscreen bool `json:"fullscreen"`
	Scale      int  `json:"scale"` // Monitor resolution multiplier
}

// VideoConfig contains video rendering configuration
type VideoConfig struct {
	VSync       bool    `json:"vsync"`
	AspectRatio string  `json:"aspect_ratio"` // "keep", "stretch"
	Filter      string  `json:"filter"`       // "nearest", "linear"
	Backend     string  `json:"backend"`      // "ebitengine", "headless", "terminal"
	Brightness  float32 `json:"brightness"`
	Rotate      bool    `json:"rotate"`  // Turn the picture upright like the cabinet monitor
	Overlay     bool    `json:"overlay"` // Colour the red and green gel bands
}

// AudioConfig contains audio configuration
type AudioConfig struct {
	Enabled    bool    `json:"enabled"`
	SampleRate int     `json:"sample_rate"`
	Volume     float32 `json:"volume"`
}

// InputConfig maps keyboard keys to cabinet controls and hotkeys
type InputConfig struct {
	Coin    string `json:"coin"`
	P1Start string `json:"p1_start"`
	P2Start string `json:"p2_start"`
	P1Fire  string `json:"p1_fire"`
	P1Left  string `json:"p1_left"`
	P1Right string `json:"p1_right"`
	P2Fire  string `json:"p2_fire"`
	P2Left  string `json:"p2_left"`
	P2Right string `json:"p2_right"`
	Tilt    string `json:"tilt"`

	Pause string `json:"pause"`
	Reset string `json:"reset"`
}

// EmulationConfig contains emulation-specific settings
type EmulationConfig struct {
	ROMPath    string  `json:"rom_path"`
	MemorySize int     `json:"memory_size"`
	FrameRate  float64 `json:"frame_rate"` // Host frame ticks per second

	// Interrupts queued per frame: vector and delay in instructions
	MidVector uint8  `json:"mid_vector"`
	MidDelay  uint64 `json:"mid_delay"`
	EndVector uint8  `json:"end_vector"`
	EndDelay  uint64 `json:"end_delay"`

	WarnDepth            int    `json:"warn_depth"`             // Pending interrupt warning threshold
	InstructionsPerFrame uint64 `json:"instructions_per_frame"` // 0 runs the CPU free

	// DIP switches
	Lives       int  `json:"lives"`
	BonusAt1000 bool `json:"bonus_at_1000"`
	CoinInfo    bool `json:"coin_info"`

	MaxFrames uint64 `json:"max_frames"` // Stop after this many frames, 0 runs forever
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	EnableLogging    bool   `json:"enable_logging"`
	LogFile          string `json:"log_file"` // Empty logs to stdout
	CPUTracing       bool   `json:"cpu_tracing"`
	InputDebug       bool   `json:"input_debug"`
	SoundDebug       bool   `json:"sound_debug"`
	StatsView        bool   `json:"stats_view"`
	StatsViewAddr    string `json:"stats_view_addr"`
	StatusInterval   int    `json:"status_interval"` // Seconds between status lines, 0 disables
	ScreenshotFrames []int  `json:"screenshot_frames"`
	ScreenshotScale  int    `json:"screenshot_scale"`
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	ROMs        string `json:"roms"`
	Screenshots string `json:"screenshots"`
	Config      string `json:"config"`
	Logs        string `json:"logs"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	config := &Config{
		Window: WindowConfig{
			Width:      448,
			Height:     512,
			Fullscreen: false,
			Scale:      2, // 448x512 (224x256 * 2)
		},
		Video: VideoConfig{
			VSync:       true,
			AspectRatio: "keep",
			Filter:      "nearest",
			Backend:     "ebitengine",
			Brightness:  1.0,
			Rotate:      true,
			Overlay:     true,
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 44100,
			Volume:     0.8,
		},
		Input: InputConfig{
			Coin:    "c",
			P1Start: "1",
			P2Start: "2",
			P1Fire:  "space",
			P1Left:  "left",
			P1Right: "right",
			P2Fire:  "w",
			P2Left:  "a",
			P2Right: "d",
			Tilt:    "t",
			Pause:   "p",
			Reset:   "f5",
		},
		Emulation: EmulationConfig{
			ROMPath:              "",
			MemorySize:           memory.DefaultSize,
			FrameRate:            60.0,
			MidVector:            cpu.DefaultFrameSchedule.MidVector,
			MidDelay:             cpu.DefaultFrameSchedule.MidDelay,
			EndVector:            cpu.DefaultFrameSchedule.EndVector,
			EndDelay:             cpu.DefaultFrameSchedule.EndDelay,
			WarnDepth:            cpu.DefaultWarnDepth,
			InstructionsPerFrame: 0,
			Lives:                input.DefaultDipSwitches.Lives,
			BonusAt1000:          input.DefaultDipSwitches.BonusAt1000,
			CoinInfo:             input.DefaultDipSwitches.CoinInfo,
		},
		Debug: DebugConfig{
			EnableLogging:   false,
			CPUTracing:      false,
			StatsView:       false,
			StatsViewAddr:   "localhost:12600",
			StatusInterval:  5,
			ScreenshotScale: 2,
		},
		Paths: PathsConfig{
			ROMs:        "./roms",
			Screenshots: "./screenshots",
			Config:      "./config",
			Logs:        "./logs",
		},
		loaded: false,
	}

	return config
}

// LoadFromFile loads configuration from a JSON file
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	// A missing file gets the defaults written out
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := c.createDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the current config file
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config file path set")
	}

	return c.SaveToFile(c.configPath)
}

// validate rejects unusable values and clamps the rest into range
func (c *Config) validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return &ConfigError{
			Field: "window",
			Value: fmt.Sprintf("%dx%d", c.Window.Width, c.Window.Height),
			Err:   errors.New("invalid window dimensions"),
		}
	}

	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}

	switch graphics.BackendType(c.Video.Backend) {
	case graphics.BackendEbitengine, graphics.BackendHeadless, graphics.BackendTerminal, "":
	default:
		return &ConfigError{Field: "video.backend", Value: c.Video.Backend, Err: errors.New("unknown backend")}
	}

	if c.Video.Brightness < 0.1 || c.Video.Brightness > 3.0 {
		c.Video.Brightness = 1.0
	}

	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 44100
	}

	if c.Audio.Volume < 0.0 || c.Audio.Volume > 1.0 {
		c.Audio.Volume = 0.8
	}

	if _, err := c.Bindings(); err != nil {
		return err
	}

	if c.Emulation.MemorySize == 0 {
		c.Emulation.MemorySize = memory.DefaultSize
	}
	videoEnd := memory.VideoRAMStart + memory.VideoRAMSize
	if c.Emulation.MemorySize < videoEnd || c.Emulation.MemorySize > 0x10000 {
		return &ConfigError{
			Field: "emulation.memory_size",
			Value: c.Emulation.MemorySize,
			Err:   fmt.Errorf("must be between %d and %d bytes", videoEnd, 0x10000),
		}
	}

	if c.Emulation.FrameRate <= 0 {
		c.Emulation.FrameRate = 60.0
	}

	if c.Emulation.MidVector > 7 {
		return &ConfigError{Field: "emulation.mid_vector", Value: c.Emulation.MidVector, Err: errors.New("RST vector must be 0-7")}
	}
	if c.Emulation.EndVector > 7 {
		return &ConfigError{Field: "emulation.end_vector", Value: c.Emulation.EndVector, Err: errors.New("RST vector must be 0-7")}
	}

	if c.Emulation.WarnDepth <= 0 {
		c.Emulation.WarnDepth = cpu.DefaultWarnDepth
	}

	if c.Emulation.Lives < 3 {
		c.Emulation.Lives = 3
	} else if c.Emulation.Lives > 6 {
		c.Emulation.Lives = 6
	}

	if c.Debug.StatusInterval < 0 {
		c.Debug.StatusInterval = 0
	}

	if c.Debug.ScreenshotScale < 1 {
		c.Debug.ScreenshotScale = 1
	}

	if c.Debug.StatsViewAddr == "" {
		c.Debug.StatsViewAddr = "localhost:12600"
	}

	return nil
}

// createDirectories creates required directories
func (c *Config) createDirectories() error {
	dirs := []string{
		c.Paths.ROMs,
		c.Paths.Screenshots,
		c.Paths.Config,
		c.Paths.Logs,
	}

	for _, dir := range dirs {
		if dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// Bindings resolves the key names of the input section. A key may drive
// only one control.
func (c *Config) Bindings() (map[graphics.Key]input.Button, error) {
	mapping := []struct {
		field  string
		name   string
		button input.Button
	}{
		{"input.coin", c.Input.Coin, input.ButtonCoin},
		{"input.p1_start", c.Input.P1Start, input.ButtonP1Start},
		{"input.p2_start", c.Input.P2Start, input.ButtonP2Start},
		{"input.p1_fire", c.Input.P1Fire, input.ButtonP1Fire},
		{"input.p1_left", c.Input.P1Left, input.ButtonP1Left},
		{"input.p1_right", c.Input.P1Right, input.ButtonP1Right},
		{"input.p2_fire", c.Input.P2Fire, input.ButtonP2Fire},
		{"input.p2_left", c.Input.P2Left, input.ButtonP2Left},
		{"input.p2_right", c.Input.P2Right, input.ButtonP2Right},
		{"input.tilt", c.Input.Tilt, input.ButtonTilt},
	}

	hotkeys, err := c.Hotkeys()
	if err != nil {
		return nil, err
	}

	bindings := make(map[graphics.Key]input.Button, len(mapping))
	for _, m := range mapping {
		if m.name == "" {
			continue
		}
		key, err := graphics.ParseKey(m.name)
		if err != nil {
			return nil, &ConfigError{Field: m.field, Value: m.name, Err: err}
		}
		if _, taken := bindings[key]; taken {
			return nil, &ConfigError{Field: m.field, Value: m.name, Err: errors.New("key already bound")}
		}
		if _, taken := hotkeys[key]; taken {
			return nil, &ConfigError{Field: m.field, Value: m.name, Err: errors.New("key already used as a hotkey")}
		}
		bindings[key] = m.button
	}

	return bindings, nil
}

// Hotkey is a host action triggered from the keyboard
type Hotkey int

const (
	HotkeyPause Hotkey = iota
	HotkeyReset
)

// Hotkeys resolves the pause and reset keys
func (c *Config) Hotkeys() (map[graphics.Key]Hotkey, error) {
	hotkeys := make(map[graphics.Key]Hotkey, 2)
	for _, h := range []struct {
		field  string
		name   string
		hotkey Hotkey
	}{
		{"input.pause", c.Input.Pause, HotkeyPause},
		{"input.reset", c.Input.Reset, HotkeyReset},
	} {
		if h.name == "" {
			continue
		}
		key, err := graphics.ParseKey(h.name)
		if err != nil {
			return nil, &ConfigError{Field: h.field, Value: h.name, Err: err}
		}
		if _, taken := hotkeys[key]; taken {
			return nil, &ConfigError{Field: h.field, Value: h.name, Err: errors.New("key already bound")}
		}
		hotkeys[key] = h.hotkey
	}
	return hotkeys, nil
}

// FrameSchedule returns the interrupts queued per frame
func (c *Config) FrameSchedule() cpu.FrameSchedule {
	return cpu.FrameSchedule{
		MidVector: c.Emulation.MidVector,
		MidDelay:  c.Emulation.MidDelay,
		EndVector: c.Emulation.EndVector,
		EndDelay:  c.Emulation.EndDelay,
	}
}

// DipSwitches returns the operator settings
func (c *Config) DipSwitches() input.DipSwitches {
	return input.DipSwitches{
		Lives:       c.Emulation.Lives,
		BonusAt1000: c.Emulation.BonusAt1000,
		CoinInfo:    c.Emulation.CoinInfo,
	}
}

// GetMonitorResolution returns the picture size produced by the video
// converter
func (c *Config) GetMonitorResolution() (int, int) {
	if c.Video.Rotate {
		return graphics.ScreenHeight, graphics.ScreenWidth
	}
	return graphics.ScreenWidth, graphics.ScreenHeight
}

// GetWindowResolution returns the window resolution based on scale
func (c *Config) GetWindowResolution() (int, int) {
	width, height := c.GetMonitorResolution()
	return width * c.Window.Scale, height * c.Window.Scale
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		return NewConfig()
	}

	clone := &Config{}
	if err := json.Unmarshal(data, clone); err != nil {
		return NewConfig()
	}

	clone.configPath = c.configPath
	clone.loaded = c.loaded

	return clone
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/goinvaders.json"
}

// GetDefaultConfigDir returns the default configuration directory
func GetDefaultConfigDir() string {
	return "./config"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
