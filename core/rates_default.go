//go:build !lptimer && !rp2040

package core

// Timer frequencies for the default 12MHz system timer
const (
	TicksPerSec    = 1000
	HwCyclesPerSec = 12000000
)
