// Package serial opens the port a remote clock MCU is attached to
package serial

import (
	"io"
	"time"

	"tempo/config"
)

// Port is an open serial line
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input so the next read starts on a frame
	// boundary
	Flush() error

	// Device returns the path the port was opened on
	Device() string
}

// Config holds serial port settings
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate; USB CDC devices ignore it
	Baud int

	// ReadTimeout bounds each read (0 = blocking)
	ReadTimeout time.Duration
}

// FromConfig converts the file configuration
func FromConfig(c config.SerialConfig) *Config {
	return &Config{
		Device:      c.Device,
		Baud:        c.Baud,
		ReadTimeout: time.Duration(c.ReadTimeoutMs) * time.Millisecond,
	}
}
