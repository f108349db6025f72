package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubesim/cubesim-go/pkg/master"
	"github.com/cubesim/cubesim-go/pkg/simclock"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, 3, c.Cubes)
	assert.Equal(t, master.DefaultMaxRetries, c.MaxRetries)
	assert.Equal(t, uint64(simclock.TicksPerPacket), c.TicksPerPacket)
	assert.Equal(t, 250*time.Millisecond, c.StartupDelay)
	assert.False(t, c.TraceRadio)
	assert.Equal(t, 16<<20, c.FlashSize)

	level, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestDefaultMatchesMasterDefaults(t *testing.T) {
	mc := Default().Master()
	want := master.DefaultConfig()
	assert.Equal(t, want.MaxRetries, mc.MaxRetries)
	assert.Equal(t, want.TicksPerPacket, mc.TicksPerPacket)
	assert.Equal(t, want.StartupDelay, mc.StartupDelay)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
cubes: 5
trace_radio: true
startup_delay: 1s
pattern:
  seed: 99
`))
	require.NoError(t, err)

	assert.Equal(t, 5, c.Cubes)
	assert.True(t, c.TraceRadio)
	assert.Equal(t, time.Second, c.StartupDelay)
	assert.Equal(t, uint64(99), c.Pattern.Seed)

	// Untouched fields keep their defaults.
	assert.Equal(t, 3, c.MaxRetries)
	assert.Equal(t, 4, c.Pattern.PerFrame)

	mc := c.Master()
	assert.True(t, mc.TraceRadio)
	assert.Equal(t, simclock.Ticks(simclock.TickHz), mc.StartupDelay)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "cubes: [1, 2"},
		{"too many cubes", "cubes: 33"},
		{"bad channel", "channel: 200"},
		{"zero retries", "max_retries: 0"},
		{"zero quantum", "ticks_per_packet: 0"},
		{"negative delay", "startup_delay: -1s"},
		{"no flash", "flash_size: 0"},
		{"no cache", "cache_blocks: 0"},
		{"bad level", "log_level: loud"},
		{"negative pattern", "pattern: {writes: -1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cubesim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cubes: 1\nlog_level: debug\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Cubes)

	level, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAddresses(t *testing.T) {
	c := Default()
	addrs := c.Addresses()
	require.Len(t, addrs, 3)

	seen := map[uint64]bool{}
	for i, a := range addrs {
		assert.Equal(t, c.Channel, a.Channel)
		assert.Equal(t, byte(i), a.ID[0])
		seen[a.Pack()] = true
	}
	assert.Len(t, seen, 3, "addresses are distinct")
}
