// Command cubesim runs a simulated master radio talking to a set of cubes.
//
// The master executes the example VRAM sync firmware: a pattern task writes
// into per-cube video buffers and the firmware streams the changes to the
// cubes over the simulated radio. All components share one simulated clock.
//
// Usage:
//
//	cubesim [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-cubes int          Number of cubes (overrides config)
//	-trace              Trace every radio attempt
//	-trace-file string  Write CBOR trace events to this file (see cubesim-log)
//	-log-level string   Log level: debug, info, warn, error
//	-flash-file string  Persist the flash array in this file
//	-install string     Install this image into flash before starting
//	-interactive        Run the interactive console
//
// Examples:
//
//	# Run three cubes with radio tracing on the terminal
//	cubesim -trace
//
//	# Record a trace for offline inspection
//	cubesim -trace -trace-file sim.rlog
//
//	# Install a firmware image into a persistent flash store
//	cubesim -flash-file flash.bin -install game.img -interactive
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cubesim/cubesim-go/cmd/cubesim/interactive"
	"github.com/cubesim/cubesim-go/pkg/config"
)

// Flag values. Only flags that were set on the command line override the
// configuration file.
var (
	configFile  string
	cubes       int
	trace       bool
	traceFile   string
	logLevel    string
	flashFile   string
	installPath string
	interact    bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.IntVar(&cubes, "cubes", 3, "Number of cubes")
	flag.BoolVar(&trace, "trace", false, "Trace every radio attempt")
	flag.StringVar(&traceFile, "trace-file", "", "Write CBOR trace events to this file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&flashFile, "flash-file", "", "Persist the flash array in this file")
	flag.StringVar(&installPath, "install", "", "Install this image into flash before starting")
	flag.BoolVar(&interact, "interactive", false, "Run the interactive console")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cubesim: %v\n", err)
		os.Exit(1)
	}

	var console *interactive.Console
	var out io.Writer = os.Stderr
	if interact {
		console, err = interactive.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cubesim: %v\n", err)
			os.Exit(1)
		}
		out = console.Stderr()
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	sim, err := newSimulation(cfg, logger, out)
	if err != nil {
		logger.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	if installPath != "" {
		if err := sim.master.InstallImage(installPath); err != nil {
			logger.Error("install failed", "error", err)
			_ = sim.close()
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting simulation",
		"cubes", cfg.Cubes,
		"max_retries", cfg.MaxRetries,
		"ticks_per_packet", cfg.TicksPerPacket,
		"trace_radio", cfg.TraceRadio)
	sim.start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if console != nil {
		go func() {
			<-sigCh
			cancel()
		}()
		console.Run(ctx, cancel, sim)
	} else {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig)
		case <-ctx.Done():
		}
	}

	logger.Info("shutting down")
	if err := sim.close(); err != nil {
		logger.Error("shutdown", "error", err)
	}

	st := sim.master.Stats()
	logger.Info("done",
		"transactions", st.Transactions,
		"attempts", st.Attempts,
		"acks", st.Acks+st.EmptyAcks,
		"timeouts", st.Timeouts)
}

// loadConfig reads the configuration file, if any, and applies the flags
// set on the command line.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cubes":
			cfg.Cubes = cubes
		case "trace":
			cfg.TraceRadio = trace
		case "trace-file":
			cfg.TraceFile = traceFile
		case "log-level":
			cfg.LogLevel = logLevel
		case "flash-file":
			cfg.FlashFile = flashFile
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
