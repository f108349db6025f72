// Package log provides structured radio trace logging for the simulator.
//
// This package defines the Logger interface and Event types for capturing
// what the master's radio driver does: every transmission attempt, every
// master lifecycle transition and every flash image installation. It is
// separate from operational logging (slog); the radio trace is a complete
// machine-readable record for debugging firmware against simulated cubes.
//
// # Basic Usage
//
// Applications configure tracing by providing a Logger implementation:
//
//	// For development: the classic one-line-per-attempt text format
//	cfg.TraceLogger = log.NewTextLogger(os.Stderr)
//
//	// For analysis: write to binary file
//	cfg.TraceLogger, _ = log.NewFileLogger("/tmp/cubesim.rlog")
//
//	// Both: use MultiLogger
//	cfg.TraceLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Radio: one transmission attempt (AttemptEvent)
//   - State: master lifecycle transition (StateChangeEvent)
//   - Flash: image installation result (InstallEvent)
//
// Every event carries the simulated time and tick count at which it was
// recorded, and the ID of the master run that produced it.
//
// # File Format
//
// Trace files use CBOR encoding with .rlog extension. FileLogger buffers
// records until Flush or Close. Readers reject records whose payload does
// not match their category with ErrMalformedEvent. The cubesim-log CLI
// provides viewing, filtering, and export capabilities.
//
// Tracing is observation only. Loggers must never influence the protocol.
package log
