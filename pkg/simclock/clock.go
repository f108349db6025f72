package simclock

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Ticks counts master oscillator cycles.
type Ticks uint64

// Clock constants.
const (
	// TickHz is the master clock rate.
	TickHz = 16000000

	// FracBits is the number of fractional bits used by ToDuration.
	FracBits = 4

	// TicksPerPacket is the minimum radio packet period (450us).
	TicksPerPacket Ticks = 7200

	// StartupDelay lets the cubes come up before the master's first packet.
	StartupDelay Ticks = TickHz / 4
)

// nsPerFracTick is the length of 1<<FracBits ticks in nanoseconds.
var nsPerFracTick = uint64(HzTicks(TickHz >> FracBits))

// HzTicks returns the period of a frequency in nanoseconds.
func HzTicks(hz uint64) time.Duration {
	return time.Duration(uint64(time.Second) / hz)
}

// MsTicks returns the number of clock ticks in the given milliseconds.
func MsTicks(ms uint64) Ticks {
	return Ticks(ms * (TickHz / 1000))
}

// ToDuration converts ticks to simulated elapsed time using 60.4 fixed-point.
func ToDuration(t Ticks) time.Duration {
	return time.Duration((uint64(t) * nsPerFracTick) >> FracBits)
}

// FromDuration converts simulated elapsed time to ticks, rounding down.
func FromDuration(d time.Duration) Ticks {
	if d <= 0 {
		return 0
	}
	return Ticks((uint64(d) << FracBits) / nsPerFracTick)
}

// Clock is a monotonically increasing tick counter.
//
// Only the owning goroutine may call Advance or Set. Now is safe to call
// from any goroutine.
type Clock struct {
	ticks atomic.Uint64
}

// New returns a clock starting at the given tick count.
func New(start Ticks) *Clock {
	c := &Clock{}
	c.ticks.Store(uint64(start))
	return c
}

// Now returns the current tick count.
func (c *Clock) Now() Ticks {
	return Ticks(c.ticks.Load())
}

// Advance adds q ticks and returns the new value.
func (c *Clock) Advance(q Ticks) Ticks {
	return Ticks(c.ticks.Add(uint64(q)))
}

// Set moves the clock forward to t. Moving backwards is a programming error.
func (c *Clock) Set(t Ticks) {
	if now := c.Now(); t < now {
		panic(fmt.Sprintf("simclock: Set(%d) would move clock backwards from %d", t, now))
	}
	c.ticks.Store(uint64(t))
}

// Elapsed returns the clock's current value as simulated elapsed time.
func (c *Clock) Elapsed() time.Duration {
	return ToDuration(c.Now())
}
