package master

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cubesim/cubesim-go/pkg/cube"
	"github.com/cubesim/cubesim-go/pkg/cubesync"
	"github.com/cubesim/cubesim-go/pkg/log"
	"github.com/cubesim/cubesim-go/pkg/radio"
	"github.com/cubesim/cubesim-go/pkg/simclock"
)

// Master errors.
var (
	ErrStopped           = errors.New("master: stopped")
	ErrSourceUnavailable = errors.New("master: image source unavailable")
	ErrImageTooLarge     = errors.New("master: image larger than flash")
	ErrNoFlash           = errors.New("master: no flash device configured")
	ErrInvalidConfig     = errors.New("master: invalid configuration")
)

// DefaultMaxRetries is the number of delivery attempts per transaction.
const DefaultMaxRetries = 3

// ImageChunkSize is the write granularity used by InstallImage.
const ImageChunkSize = 512

// ThreadState is the lifecycle state of the master goroutine.
type ThreadState uint32

const (
	// ThreadIdle - never started.
	ThreadIdle ThreadState = iota

	// ThreadRunning - the master goroutine is executing.
	ThreadRunning

	// ThreadStopRequested - Stop was called; the goroutine is unwinding.
	ThreadStopRequested

	// ThreadExited - the goroutine returned. Terminal for this run.
	ThreadExited
)

// String returns the state name.
func (s ThreadState) String() string {
	switch s {
	case ThreadIdle:
		return "IDLE"
	case ThreadRunning:
		return "RUNNING"
	case ThreadStopRequested:
		return "STOP_REQUESTED"
	case ThreadExited:
		return "EXITED"
	default:
		return "UNKNOWN"
	}
}

// Runner is the firmware's main loop. It calls halt whenever it is idle;
// each call performs one radio transaction. A non-nil error from halt means
// the master is stopping and Run must return.
type Runner interface {
	Run(ctx context.Context, halt func(context.Context) error) error
}

// TaskRunner runs pending background work between transactions.
type TaskRunner interface {
	Work()
}

// FlashDevice is the non-volatile store images are installed into.
type FlashDevice interface {
	ChipErase()
	Write(addr uint32, data []byte) error
}

// BlockCache caches flash contents and must be dropped after an install.
type BlockCache interface {
	Invalidate()
}

// CubeSlot is the firmware's view of one cube.
type CubeSlot interface {
	ID() int

	// RadioAddress returns the slot's paired address, or nil.
	RadioAddress() *radio.Address
}

// VideoSlot is a CubeSlot with a video buffer attached.
type VideoSlot interface {
	CubeSlot

	// VideoBuffer returns the attached buffer, or nil.
	VideoBuffer() *cube.VideoBuffer
}

// VRAMSource is implemented by peripherals that expose their video memory.
type VRAMSource interface {
	VRAM() []byte
}

// Config configures a Master.
type Config struct {
	// Firmware produces packets and consumes transaction reports. Required.
	Firmware radio.Firmware

	// Cubes is the fixed set of peripherals reachable over the radio.
	Cubes []radio.Peripheral

	// Sync is the rendezvous shared with the cube goroutines. Required.
	Sync *cubesync.Sync

	// Clock is the master clock. A new clock at zero is used if nil.
	Clock *simclock.Clock

	// Flash is the store InstallImage writes to. Optional.
	Flash FlashDevice

	// Cache is invalidated after every install. Optional.
	Cache BlockCache

	// Runner is the firmware main loop. Optional.
	Runner Runner

	// Tasks runs between transactions once Runner returns. Optional.
	Tasks TaskRunner

	// MaxRetries is the number of delivery attempts per transaction.
	MaxRetries int

	// TicksPerPacket is the clock quantum consumed by each attempt.
	TicksPerPacket simclock.Ticks

	// StartupDelay is added to the system time when the master starts.
	StartupDelay simclock.Ticks

	// TraceRadio enables per-attempt radio trace events.
	TraceRadio bool

	// TraceLogger receives trace events. Nil disables tracing.
	TraceLogger log.Logger

	// Logger is used for operational output. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with protocol defaults. Firmware and Sync
// must still be set.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     DefaultMaxRetries,
		TicksPerPacket: simclock.TicksPerPacket,
		StartupDelay:   simclock.StartupDelay,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.Firmware == nil:
		return fmt.Errorf("%w: firmware is required", ErrInvalidConfig)
	case c.Sync == nil:
		return fmt.Errorf("%w: sync is required", ErrInvalidConfig)
	case c.MaxRetries < 1 || c.MaxRetries > 255:
		return fmt.Errorf("%w: max retries %d not in 1..255", ErrInvalidConfig, c.MaxRetries)
	case c.TicksPerPacket == 0:
		return fmt.Errorf("%w: ticks per packet must be positive", ErrInvalidConfig)
	}
	for i, p := range c.Cubes {
		if p == nil {
			return fmt.Errorf("%w: nil cube at index %d", ErrInvalidConfig, i)
		}
	}
	return nil
}

// Stats holds transaction counters.
type Stats struct {
	Transactions uint64
	Attempts     uint64
	Acks         uint64
	EmptyAcks    uint64
	Timeouts     uint64
}
