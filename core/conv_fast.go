//go:build !lptimer

package core

// The fast path needs each pair of rates to divide evenly; a non-zero
// product of remainders fails to compile here. Build with -tags lptimer
// for rates that do not divide.
var (
	_ = [1]struct{}{}[(HwCyclesPerSec%TicksPerSec)*(TicksPerSec%HwCyclesPerSec)]
	_ = [1]struct{}{}[(TicksPerSec%msPerSec)*(msPerSec%TicksPerSec)]
	_ = [1]struct{}{}[(TicksPerSec%usPerSec)*(usPerSec%TicksPerSec)]
)

// PreciseConversion reports which conversion algorithm this build uses
const PreciseConversion = false

func convert(t, fromHz, toHz uint64, r Rounding) uint64 {
	return convFast(t, fromHz, toHz, r)
}
