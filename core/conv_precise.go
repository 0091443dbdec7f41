//go:build lptimer

package core

// 32.768kHz low-power timer; 1000 ticks/s does not divide it, so every
// conversion goes through the 64-bit precision path.
const (
	TicksPerSec    = 1000
	HwCyclesPerSec = 32768
)

// PreciseConversion reports which conversion algorithm this build uses
const PreciseConversion = true

func convert(t, fromHz, toHz uint64, r Rounding) uint64 {
	return convPrecise(t, fromHz, toHz, r)
}
