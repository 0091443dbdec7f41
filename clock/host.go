//go:build !tinygo

package clock

import (
	"math/bits"
	"sync"
	"time"
)

// HostCounter is a 32-bit counter derived from the host's monotonic
// clock, for running the kernel queue in real time on a workstation.
// Alarms are delivered from runtime timer goroutines, one at a time, the
// way a hardware alarm interrupt never nests with itself.
type HostCounter struct {
	mu      sync.Mutex
	fireMu  sync.Mutex // held while the handler runs
	hz      uint64
	base    int64 // monotonic ns at creation
	timer   *time.Timer
	handler func()
}

// NewHostCounter creates a counter running at hz cycles per second
func NewHostCounter(hz uint32) *HostCounter {
	return &HostCounter{
		hz:   uint64(hz),
		base: monotonicNanos(),
	}
}

// OnAlarm sets the function run when the alarm expires
func (h *HostCounter) OnAlarm(fn func()) {
	h.mu.Lock()
	h.handler = fn
	h.mu.Unlock()
}

func (h *HostCounter) cycles() uint64 {
	ns := uint64(monotonicNanos() - h.base)
	hi, lo := bits.Mul64(ns, h.hz)
	q, _ := bits.Div64(hi%uint64(time.Second), lo, uint64(time.Second))
	return q
}

// Read implements Hardware
func (h *HostCounter) Read() uint32 {
	return uint32(h.cycles())
}

// SetAlarm implements Hardware
func (h *HostCounter) SetAlarm(at uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.timer != nil {
		h.timer.Stop()
	}
	// Distances over half the range are alarms already in the past
	d := uint64(at - uint32(h.cycles()))
	if d > 1<<31 {
		d = 0
	}
	hi, lo := bits.Mul64(d, uint64(time.Second))
	ns, _ := bits.Div64(hi%h.hz, lo, h.hz)
	h.timer = time.AfterFunc(time.Duration(ns), h.fire)
}

func (h *HostCounter) fire() {
	h.fireMu.Lock()
	defer h.fireMu.Unlock()

	h.mu.Lock()
	fn := h.handler
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop cancels any pending alarm
func (h *HostCounter) Stop() {
	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
	}
	h.mu.Unlock()
}
