// Package config loads the simulator configuration from YAML.
//
// Defaults are embedded in the binary; a user file only needs the fields it
// changes.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cubesim/cubesim-go/pkg/master"
	"github.com/cubesim/cubesim-go/pkg/radio"
	"github.com/cubesim/cubesim-go/pkg/simclock"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// MaxCubes is the largest number of cubes the simulator runs.
const MaxCubes = 32

// Config is the simulator configuration.
type Config struct {
	Cubes   int   `yaml:"cubes"`
	Channel uint8 `yaml:"channel"`

	MaxRetries     int           `yaml:"max_retries"`
	TicksPerPacket uint64        `yaml:"ticks_per_packet"`
	StartupDelay   time.Duration `yaml:"startup_delay"`

	TraceRadio bool   `yaml:"trace_radio"`
	TraceFile  string `yaml:"trace_file"`

	FlashSize   int    `yaml:"flash_size"`
	FlashFile   string `yaml:"flash_file"`
	CacheBlocks int    `yaml:"cache_blocks"`

	LogLevel string `yaml:"log_level"`

	Pattern Pattern `yaml:"pattern"`
}

// Pattern configures the example workload.
type Pattern struct {
	Seed     uint64 `yaml:"seed"`
	PerFrame int    `yaml:"per_frame"`
	Writes   int    `yaml:"writes"`
	Frames   int    `yaml:"frames"`
}

// Default returns the embedded default configuration.
func Default() *Config {
	var c Config
	if err := yaml.Unmarshal(defaultYAML, &c); err != nil {
		panic(fmt.Sprintf("config: embedded default is invalid: %v", err))
	}
	return &c
}

// Load reads the file at path on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	switch {
	case c.Cubes < 0 || c.Cubes > MaxCubes:
		return fmt.Errorf("%w: cubes must be in 0..%d, got %d", ErrInvalidConfig, MaxCubes, c.Cubes)
	case c.Channel > 125:
		return fmt.Errorf("%w: channel must be in 0..125, got %d", ErrInvalidConfig, c.Channel)
	case c.MaxRetries < 1 || c.MaxRetries > 255:
		return fmt.Errorf("%w: max_retries must be in 1..255, got %d", ErrInvalidConfig, c.MaxRetries)
	case c.TicksPerPacket == 0:
		return fmt.Errorf("%w: ticks_per_packet must be positive", ErrInvalidConfig)
	case c.StartupDelay < 0:
		return fmt.Errorf("%w: startup_delay must not be negative", ErrInvalidConfig)
	case c.FlashSize <= 0:
		return fmt.Errorf("%w: flash_size must be positive", ErrInvalidConfig)
	case c.CacheBlocks <= 0:
		return fmt.Errorf("%w: cache_blocks must be positive", ErrInvalidConfig)
	case c.Pattern.PerFrame < 0 || c.Pattern.Writes < 0 || c.Pattern.Frames < 0:
		return fmt.Errorf("%w: pattern values must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return l, nil
}

// Addresses returns the radio address of every cube. Cube i listens on the
// configured channel with ID e7e7e7e7<i>.
func (c *Config) Addresses() []radio.Address {
	addrs := make([]radio.Address, c.Cubes)
	for i := range addrs {
		addrs[i] = radio.Address{
			Channel: c.Channel,
			ID:      [5]byte{byte(i), 0xe7, 0xe7, 0xe7, 0xe7},
		}
	}
	return addrs
}

// Master returns a master.Config carrying the protocol settings. The
// caller supplies the collaborators.
func (c *Config) Master() master.Config {
	mc := master.DefaultConfig()
	mc.MaxRetries = c.MaxRetries
	mc.TicksPerPacket = simclock.Ticks(c.TicksPerPacket)
	mc.StartupDelay = simclock.FromDuration(c.StartupDelay)
	mc.TraceRadio = c.TraceRadio
	return mc
}
