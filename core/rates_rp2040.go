//go:build rp2040 && !lptimer

package core

// The RP2040 TIMER counts microseconds
const (
	TicksPerSec    = 1000
	HwCyclesPerSec = 1000000
)
