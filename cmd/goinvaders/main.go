// Package main implements the goinvaders Space Invaders arcade emulator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"goinvaders/internal/app"
	"goinvaders/internal/cpu"
	"goinvaders/internal/version"
)

const defaultROM = "invaders.rom"

func main() {
	var (
		romFile     = flag.String("rom", "", "Path to the 8 KiB program image (default from config, then "+defaultROM+")")
		configFile  = flag.String("config", "", "Path to configuration file")
		backend     = flag.String("backend", "", "Graphics backend: ebitengine, headless or terminal")
		nogui       = flag.Bool("nogui", false, "Run without a window (headless mode)")
		frames      = flag.Uint64("frames", 0, "Stop after this many frames (0 runs until closed)")
		schedule    = flag.String("schedule", "", "Interrupt schedule: default or board")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		trace       = flag.Bool("trace", false, "Log every executed instruction")
		mute        = flag.Bool("mute", false, "Disable audio")
		stats       = flag.Bool("statsview", false, "Serve runtime metrics at http://localhost:12600/debug/statsview")
		help        = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}

	if *showVersion {
		version.PrintBuildInfo(os.Stdout, "goinvaders")
		os.Exit(0)
	}

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	config := app.NewConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		log.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v", configPath, err)
		config = app.NewConfig()
	}

	// Command line overrides
	if *backend != "" {
		config.Video.Backend = *backend
	}
	if *frames > 0 {
		config.Emulation.MaxFrames = *frames
	}
	switch *schedule {
	case "":
	case "default":
		setSchedule(config, cpu.DefaultFrameSchedule)
	case "board":
		setSchedule(config, cpu.BoardFrameSchedule)
	default:
		log.Fatalf("Unknown interrupt schedule %q", *schedule)
	}
	if *debug {
		config.Debug.EnableLogging = true
		config.Debug.InputDebug = true
		config.Debug.SoundDebug = true
	}
	if *trace {
		config.Debug.CPUTracing = true
	}
	if *mute {
		config.Audio.Enabled = false
	}
	if *stats {
		config.Debug.StatsView = true
	}

	romPath := *romFile
	if romPath == "" {
		romPath = config.Emulation.ROMPath
	}
	if romPath == "" {
		romPath = defaultROM
	}

	application, err := app.NewApplicationWithConfig(config, *nogui)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	os.Exit(run(application, romPath))
}

// run loads the program and runs it until the window closes, a signal
// arrives or the CPU stops. It returns the process exit code.
func run(application *app.Application, romPath string) int {
	defer func() {
		if err := application.Cleanup(); err != nil {
			log.Printf("Application cleanup error: %v", err)
		}
	}()

	if err := application.LoadROM(romPath); err != nil {
		log.Printf("Failed to load ROM: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := application.Run(ctx)

	fmt.Printf("Frames: %d, session time: %v, average FPS: %.1f\n",
		application.GetFrameCount(), application.GetUptime(), application.GetFPS())

	if err != nil {
		printFatal(application, err)
		return 1
	}
	return 0
}

// printFatal reports why the machine stopped. An unrecognized instruction
// is shown with its disassembly and the register file.
func printFatal(application *app.Application, err error) {
	var instrErr *cpu.UnrecognizedInstructionError
	if !errors.As(err, &instrErr) {
		fmt.Fprintf(os.Stderr, "Emulator stopped: %v\n", err)
		return
	}

	regs, flags := application.GetBus().CPU.State()
	fmt.Fprintf(os.Stderr, "Unrecognized instruction at $%04X: %s\n", instrErr.PC, instrErr.Text)
	fmt.Fprintf(os.Stderr, "  opcode 0x%02X after %d instructions\n", instrErr.Opcode, application.GetBus().InstructionCount())
	fmt.Fprintf(os.Stderr, "  A=%02X BC=%04X DE=%04X HL=%04X SP=%04X PC=%04X\n",
		regs.A, regs.BC(), regs.DE(), regs.HL(), regs.SP, regs.PC)
	fmt.Fprintf(os.Stderr, "  S=%t Z=%t AC=%t P=%t CY=%t\n",
		flags.S, flags.Z, flags.AC, flags.P, flags.CY)
}

func setSchedule(config *app.Config, schedule cpu.FrameSchedule) {
	config.Emulation.MidVector = schedule.MidVector
	config.Emulation.MidDelay = schedule.MidDelay
	config.Emulation.EndVector = schedule.EndVector
	config.Emulation.EndDelay = schedule.EndDelay
}

func printUsage() {
	fmt.Println("goinvaders - Space Invaders arcade emulator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  goinvaders [options]                    # Run invaders.rom")
	fmt.Println("  goinvaders -rom <file> [options]        # Run a program image")
	fmt.Println("  goinvaders -nogui -frames 600 [options] # Run headless for testing")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("CONTROLS (Default):")
	fmt.Println("    C                 - Insert coin")
	fmt.Println("    1 / 2             - 1 or 2 player start")
	fmt.Println("    Left / Right      - Move (player 1)")
	fmt.Println("    Space             - Fire (player 1)")
	fmt.Println("    A / D / W         - Left, right, fire (player 2)")
	fmt.Println("    T                 - Tilt")
	fmt.Println("    P                 - Pause")
	fmt.Println("    F5                - Reset")
	fmt.Println("    Escape            - Quit")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Printf("  Config file: %s\n", app.GetDefaultConfigPath())
	fmt.Println("  Screenshots: ./screenshots/")
}
