package core

import (
	"math"
	"math/bits"
)

// Rounding selects how a conversion treats a partial unit
type Rounding uint8

const (
	Floor Rounding = iota
	Ceil
	Near
)

const (
	msPerSec = 1000
	usPerSec = 1000000
)

// convFast converts between rates where one divides the other, using a
// single integer multiply or divide.
func convFast(t, fromHz, toHz uint64, r Rounding) uint64 {
	switch {
	case fromHz == toHz:
		return t
	case fromHz > toHz:
		div := fromHz / toHz
		q, rem := t/div, t%div
		switch r {
		case Ceil:
			if rem != 0 {
				q++
			}
		case Near:
			if rem*2 >= div {
				q++
			}
		}
		return q
	default:
		mul := toHz / fromHz
		hi, lo := bits.Mul64(t, mul)
		if hi != 0 {
			return math.MaxUint64
		}
		return lo
	}
}

// convPrecise converts between arbitrary rates through a 128-bit
// intermediate, saturating when the result does not fit 64 bits.
func convPrecise(t, fromHz, toHz uint64, r Rounding) uint64 {
	if fromHz == toHz {
		return t
	}
	var off uint64
	switch r {
	case Ceil:
		off = fromHz - 1
	case Near:
		off = fromHz / 2
	}
	hi, lo := bits.Mul64(t, toHz)
	var carry uint64
	lo, carry = bits.Add64(lo, off, 0)
	hi += carry
	if hi >= fromHz {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, fromHz)
	return q
}

func clamp32(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// MsToTicksCeil32 converts milliseconds to ticks, rounding up
func MsToTicksCeil32(ms uint32) uint32 {
	return clamp32(convert(uint64(ms), msPerSec, TicksPerSec, Ceil))
}

// MsToTicksCeil64 converts milliseconds to ticks, rounding up
func MsToTicksCeil64(ms uint64) uint64 {
	return convert(ms, msPerSec, TicksPerSec, Ceil)
}

// MsToTicksFloor64 converts milliseconds to ticks, rounding down
func MsToTicksFloor64(ms uint64) uint64 {
	return convert(ms, msPerSec, TicksPerSec, Floor)
}

// MsToTicksNear64 converts milliseconds to the nearest tick
func MsToTicksNear64(ms uint64) uint64 {
	return convert(ms, msPerSec, TicksPerSec, Near)
}

// TicksToMsFloor64 converts ticks to milliseconds, rounding down
func TicksToMsFloor64(ticks uint64) uint64 {
	return convert(ticks, TicksPerSec, msPerSec, Floor)
}

// TicksToMsCeil64 converts ticks to milliseconds, rounding up
func TicksToMsCeil64(ticks uint64) uint64 {
	return convert(ticks, TicksPerSec, msPerSec, Ceil)
}

// TicksToMsNear64 converts ticks to the nearest millisecond
func TicksToMsNear64(ticks uint64) uint64 {
	return convert(ticks, TicksPerSec, msPerSec, Near)
}

// UsToTicksCeil64 converts microseconds to ticks, rounding up
func UsToTicksCeil64(us uint64) uint64 {
	return convert(us, usPerSec, TicksPerSec, Ceil)
}

// TicksToUsFloor64 converts ticks to microseconds, rounding down
func TicksToUsFloor64(ticks uint64) uint64 {
	return convert(ticks, TicksPerSec, usPerSec, Floor)
}

// CyclesToTicksFloor64 converts hardware cycles to whole ticks
func CyclesToTicksFloor64(cycles uint64) uint64 {
	return convert(cycles, HwCyclesPerSec, TicksPerSec, Floor)
}

// TicksToCyclesFloor64 converts ticks to hardware cycles
func TicksToCyclesFloor64(ticks uint64) uint64 {
	return convert(ticks, TicksPerSec, HwCyclesPerSec, Floor)
}

// MsToCyclesCeil64 converts milliseconds to hardware cycles, rounding up
func MsToCyclesCeil64(ms uint64) uint64 {
	return convert(ms, msPerSec, HwCyclesPerSec, Ceil)
}
