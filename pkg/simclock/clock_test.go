package simclock

import (
	"testing"
	"time"
)

func TestToDuration(t *testing.T) {
	tests := []struct {
		name  string
		ticks Ticks
		want  time.Duration
	}{
		{"Zero", 0, 0},
		{"OneTick", 1, 62},
		{"TwoTicks", 2, 125},
		{"SixteenTicks", 16, time.Microsecond},
		{"Packet", TicksPerPacket, 450 * time.Microsecond},
		{"OneMs", MsTicks(1), time.Millisecond},
		{"OneSecond", TickHz, time.Second},
		{"StartupDelay", StartupDelay, 250 * time.Millisecond},
		{"TenHours", Ticks(10 * 3600 * TickHz), 10 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToDuration(tt.ticks); got != tt.want {
				t.Errorf("ToDuration(%d) = %v, want %v", tt.ticks, got, tt.want)
			}
		})
	}
}

func TestHzTicks(t *testing.T) {
	if got := HzTicks(TickHz >> FracBits); got != time.Microsecond {
		t.Errorf("HzTicks(1MHz) = %v, want 1us", got)
	}
	if got := HzTicks(1000); got != time.Millisecond {
		t.Errorf("HzTicks(1kHz) = %v, want 1ms", got)
	}
}

func TestClockAdvance(t *testing.T) {
	c := New(100)

	if c.Now() != 100 {
		t.Fatalf("Now() = %d, want 100", c.Now())
	}

	var prev Ticks = c.Now()
	for i := 0; i < 10; i++ {
		got := c.Advance(TicksPerPacket)
		if got != prev+TicksPerPacket {
			t.Fatalf("Advance() = %d, want %d", got, prev+TicksPerPacket)
		}
		if c.Now() != got {
			t.Fatalf("Now() = %d after Advance() returned %d", c.Now(), got)
		}
		prev = got
	}

	if c.Elapsed() != ToDuration(c.Now()) {
		t.Errorf("Elapsed() = %v, want %v", c.Elapsed(), ToDuration(c.Now()))
	}
}

func TestClockSet(t *testing.T) {
	c := New(0)
	c.Set(StartupDelay)
	if c.Now() != StartupDelay {
		t.Errorf("Now() = %d, want %d", c.Now(), StartupDelay)
	}

	// Same value is allowed.
	c.Set(StartupDelay)

	defer func() {
		if recover() == nil {
			t.Error("Set() backwards did not panic")
		}
	}()
	c.Set(StartupDelay - 1)
}

func TestFromDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want Ticks
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Microsecond, 16},
		{450 * time.Microsecond, TicksPerPacket},
		{250 * time.Millisecond, StartupDelay},
		{time.Second, TickHz},
	}
	for _, tt := range tests {
		if got := FromDuration(tt.d); got != tt.want {
			t.Errorf("FromDuration(%v) = %d, want %d", tt.d, got, tt.want)
		}
		if tt.d > 0 && ToDuration(FromDuration(tt.d)) != tt.d {
			t.Errorf("ToDuration(FromDuration(%v)) = %v", tt.d, ToDuration(FromDuration(tt.d)))
		}
	}
}
