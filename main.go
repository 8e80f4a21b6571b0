package main

import (
	"os"
	"runtime"

	"enginesound/cmd"
	"enginesound/internal/log"
	"enginesound/pkg/build"
)

// main is the entry point for the engine sound synthesizer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Simulation goroutine feeds the synthesizer
//   - Render goroutine fills the output ring
//   - Pump goroutine keeps the device buffer ahead of playback
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop recording if active
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds carry no ldflags; report and continue.
	if err := build.Initialize(); err != nil {
		log.Debugf("Build info incomplete: %v", err)
	}

	// Simulation, render, pump and the device callback each want a thread.
	runtime.GOMAXPROCS(max(4, runtime.GOMAXPROCS(0)))

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if opts == nil {
		return // --help or --version
	}

	// ============ CONCURRENT PHASE (Hot Path) and SHUTDOWN ============

	if err := cmd.Run(opts); err != nil {
		log.Fatal(err)
	}
}
