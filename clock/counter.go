// Package clock provides the drivers that turn a free-running hardware
// counter into a core.ClockSource.
package clock

import (
	"errors"
	"fmt"
	"sync"

	"tempo/core"
)

var (
	ErrCounterBits   = errors.New("counter width must be 1..32 bits")
	ErrCyclesPerTick = errors.New("cycles per tick must be non-zero")
)

// Hardware is a free-running up-counter with one compare alarm. The alarm
// fires once when the counter reaches the programmed value; the driver's
// interrupt path must then call Counter.Interrupt.
type Hardware interface {
	Read() uint32
	SetAlarm(at uint32)
}

// Announcer receives the ticks elapsed at each clock interrupt
type Announcer interface {
	Announce(ticks int64)
}

// Counter drives a core.Queue from an N-bit counter. It keeps the count
// at the last announced tick boundary and measures everything relative to
// it with masked arithmetic, so wraparound of the narrow counter never
// shows up in the queue's 64-bit uptime. Waits are capped at half the
// counter range so an alarm can always be told apart from a wrap.
type Counter struct {
	mu sync.Mutex

	hw            Hardware
	mask          uint32
	cyclesPerTick uint32
	maxTicks      int64

	last uint32 // count at the last announced tick boundary
	q    Announcer
}

// NewCounter creates a driver for a bits-wide counter advancing
// cyclesPerTick times per kernel tick
func NewCounter(hw Hardware, bits uint, cyclesPerTick uint32) (*Counter, error) {
	if bits < 1 || bits > 32 {
		return nil, fmt.Errorf("%w: got %d", ErrCounterBits, bits)
	}
	if cyclesPerTick == 0 {
		return nil, ErrCyclesPerTick
	}
	mask := uint32(1<<bits - 1)
	maxTicks := int64(mask/2) / int64(cyclesPerTick)
	if maxTicks < 1 {
		return nil, fmt.Errorf("%d-bit counter cannot hold a tick of %d cycles", bits, cyclesPerTick)
	}
	return &Counter{
		hw:            hw,
		mask:          mask,
		cyclesPerTick: cyclesPerTick,
		maxTicks:      maxTicks,
		last:          hw.Read() & mask,
	}, nil
}

// Attach sets the queue that Interrupt announces to
func (c *Counter) Attach(q Announcer) {
	c.mu.Lock()
	c.q = q
	c.mu.Unlock()
}

// MaxTicks returns the longest wait the counter can represent
func (c *Counter) MaxTicks() int64 {
	return c.maxTicks
}

func (c *Counter) elapsedCycles() uint32 {
	return (c.hw.Read() - c.last) & c.mask
}

// Elapsed implements core.ClockSource
func (c *Counter) Elapsed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(c.elapsedCycles() / c.cyclesPerTick)
}

// SetTimeout implements core.ClockSource. The alarm lands on a tick
// boundary; Forever and over-long requests are clamped to the longest
// wait the counter width allows.
func (c *Counter) SetTimeout(ticks int64, idle bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := int64(c.elapsedCycles() / c.cyclesPerTick)
	if ticks == core.Forever || ticks > c.maxTicks {
		ticks = c.maxTicks
	}
	if ticks < 1 {
		ticks = 1
	}
	// The whole span since the last announce must fit in half the range
	target := elapsed + ticks
	if target > c.maxTicks {
		target = c.maxTicks
	}
	if target <= elapsed {
		target = elapsed + 1
	}
	c.hw.SetAlarm((c.last + uint32(target)*c.cyclesPerTick) & c.mask)
}

// Interrupt is called from the alarm interrupt. It announces the whole
// ticks elapsed since the previous announce and advances the boundary.
func (c *Counter) Interrupt() {
	c.mu.Lock()
	dticks := c.elapsedCycles() / c.cyclesPerTick
	c.last = (c.last + dticks*c.cyclesPerTick) & c.mask
	q := c.q
	c.mu.Unlock()

	if q != nil {
		q.Announce(int64(dticks))
	}
}
