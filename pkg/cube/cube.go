package cube

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cubesim/cubesim-go/pkg/cubesync"
	"github.com/cubesim/cubesim-go/pkg/radio"
	"github.com/cubesim/cubesim-go/pkg/simclock"
)

// DefaultFramePeriod is the display refresh period (60 Hz).
var DefaultFramePeriod = simclock.Ticks(simclock.TickHz / 60)

// Config configures a Cube.
type Config struct {
	// ID is the cube's index in the simulated system.
	ID int

	// Address is the initial radio address. Nil leaves the radio unpaired.
	Address *radio.Address

	// FramePeriod is the number of ticks between display frames.
	FramePeriod simclock.Ticks

	// Logger is used for debug output. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns a Config for cube id with the default frame period.
func DefaultConfig(id int) Config {
	return Config{
		ID:          id,
		FramePeriod: DefaultFramePeriod,
	}
}

// Cube is a simulated peripheral: a radio receiver in front of a VRAM
// store, running on its own goroutine in lockstep with the master.
type Cube struct {
	config Config
	logger *slog.Logger

	// packed is the packed RX address, radio.PackedNone when unpaired.
	packed atomic.Uint64

	mu   sync.Mutex
	vram [VRAMSize]byte

	frames  atomic.Uint32
	packets atomic.Uint64
	local   atomic.Uint64
}

// New creates a cube.
func New(config Config) *Cube {
	if config.FramePeriod == 0 {
		config.FramePeriod = DefaultFramePeriod
	}
	c := &Cube{
		config: config,
		logger: config.Logger,
	}
	c.packed.Store(radio.PackedNone)
	if config.Address != nil {
		c.SetRadioAddress(*config.Address)
	}
	return c
}

// ID returns the cube's index.
func (c *Cube) ID() int {
	return c.config.ID
}

// PackedRXAddr returns the packed receive address, or radio.PackedNone.
func (c *Cube) PackedRXAddr() uint64 {
	return c.packed.Load()
}

// SetRadioAddress changes the address the cube listens on.
func (c *Cube) SetRadioAddress(addr radio.Address) {
	c.packed.Store(addr.Pack())
	c.debugLog("cube: radio address set", "cube", c.config.ID, "addr", addr.String())
}

// ClearRadioAddress stops the cube from receiving.
func (c *Cube) ClearRadioAddress() {
	c.packed.Store(radio.PackedNone)
	c.debugLog("cube: radio address cleared", "cube", c.config.ID)
}

// HandlePacket applies the VRAM writes in pkt and acknowledges.
// An empty packet gets an empty acknowledgment; any other packet is
// answered with the current frame count.
func (c *Cube) HandlePacket(pkt radio.Packet, reply *radio.Packet) bool {
	if c.packed.Load() == radio.PackedNone {
		return false
	}
	c.packets.Add(1)

	if pkt.Len == 0 {
		reply.Len = 0
		return true
	}

	c.mu.Lock()
	DecodeWrites(pkt.Bytes(), func(word, val uint16) {
		word %= VRAMWords
		c.vram[2*word] = byte(val)
		c.vram[2*word+1] = byte(val >> 8)
	})
	c.mu.Unlock()

	reply.Len = 0
	_ = reply.Append(byte(c.frames.Load()))
	return true
}

// VRAM returns a copy of the cube's video memory.
func (c *Cube) VRAM() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, VRAMSize)
	copy(out, c.vram[:])
	return out
}

// Frames returns the number of frames displayed so far.
func (c *Cube) Frames() uint32 {
	return c.frames.Load()
}

// Packets returns the number of packets received.
func (c *Cube) Packets() uint64 {
	return c.packets.Load()
}

// Now returns the cube's local clock.
func (c *Cube) Now() simclock.Ticks {
	return simclock.Ticks(c.local.Load())
}

// Run simulates the cube until ctx is done. The cube never runs past the
// deadline published on s and parks there until the master moves it.
func (c *Cube) Run(ctx context.Context, s *cubesync.Sync) error {
	p := s.Join(c.Now())
	defer p.Leave()

	period := c.config.FramePeriod
	nextFrame := c.Now() + period

	c.debugLog("cube: running", "cube", c.config.ID)
	for {
		deadline := p.Deadline()
		for nextFrame <= deadline {
			c.frames.Add(1)
			nextFrame += period
		}
		if now := c.Now(); deadline > now {
			c.local.Store(uint64(deadline))
		}

		if _, err := p.Reached(ctx, c.Now()); err != nil {
			c.debugLog("cube: stopped", "cube", c.config.ID, "ticks", c.Now())
			return err
		}
	}
}

func (c *Cube) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

var _ radio.Peripheral = (*Cube)(nil)
