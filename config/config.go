// Package config loads the JSON configuration shared by the kernel and
// the host tools.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"tempo/core"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level configuration file
type Config struct {
	Kernel  core.Config   `json:"kernel"`
	Counter CounterConfig `json:"counter"`
	Serial  SerialConfig  `json:"serial"`
	Log     LogConfig     `json:"log"`
}

// CounterConfig describes the hardware counter behind the clock driver
type CounterConfig struct {
	Bits          uint   `json:"bits"`            // counter width, 1..32
	Hz            uint32 `json:"hz"`              // counter rate
	CyclesPerTick uint32 `json:"cycles_per_tick"` // counter cycles per kernel tick
}

// SerialConfig locates the remote clock MCU
type SerialConfig struct {
	Device        string `json:"device"`
	Baud          int    `json:"baud"`
	ReadTimeoutMs int    `json:"read_timeout_ms"`
}

// LogConfig controls host logging
type LogConfig struct {
	Path       string `json:"path"` // directory for the log file, empty for console only
	Name       string `json:"name"`
	Level      string `json:"level"`
	StdOut     bool   `json:"std_out"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// LoadConfig parses JSON configuration and fills in defaults
func LoadConfig(jsonData []byte) (*Config, error) {
	var config Config

	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFile reads and parses the configuration file at path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return LoadConfig(data)
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *Config) {
	if config.Kernel.MaxWaitTicks == 0 {
		config.Kernel.MaxWaitTicks = core.DefaultMaxWait
	}

	if config.Counter.Bits == 0 {
		config.Counter.Bits = 32
	}
	if config.Counter.Hz == 0 {
		config.Counter.Hz = core.HwCyclesPerSec
	}
	if config.Counter.CyclesPerTick == 0 {
		config.Counter.CyclesPerTick = config.Counter.Hz / core.TicksPerSec
	}

	if config.Serial.Baud == 0 {
		config.Serial.Baud = 250000 // USB CDC ignores it
	}
	if config.Serial.ReadTimeoutMs == 0 {
		config.Serial.ReadTimeoutMs = 100
	}

	if config.Log.Name == "" {
		config.Log.Name = "tempo"
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.MaxSizeMB == 0 {
		config.Log.MaxSizeMB = 100
	}
	if config.Log.MaxBackups == 0 {
		config.Log.MaxBackups = 3
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	if c.Kernel.MaxWaitTicks < 0 {
		return fmt.Errorf("%w: kernel.max_wait_ticks is negative", ErrInvalid)
	}
	if c.Counter.Bits > 32 {
		return fmt.Errorf("%w: counter.bits %d exceeds 32", ErrInvalid, c.Counter.Bits)
	}
	if c.Counter.CyclesPerTick == 0 {
		return fmt.Errorf("%w: counter rate %dHz is below the tick rate", ErrInvalid, c.Counter.Hz)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	config := &Config{Kernel: core.DefaultConfig()}
	applyDefaults(config)
	return config
}
