package core

import "math"

// Forever is the "never" sentinel for clock-source requests and NextExpiry
const Forever int64 = -1

// DefaultMaxWait bounds a single hardware wait when idling forever is not
// allowed, and caps any delta handed to the clock source.
const DefaultMaxWait int64 = math.MaxInt32

// ClockSource is the hardware timer driver behind a Queue.
//
// Neither method may call back into the Queue: SetTimeout is invoked with
// the queue lock held. The driver's interrupt handler must call
// Queue.Announce with the whole ticks elapsed since its last announce.
type ClockSource interface {
	// SetTimeout requests an interrupt no later than ticks from now.
	// ticks is Forever when nothing is pending and idling forever is
	// permitted; idle is set when the caller is the idle loop.
	SetTimeout(ticks int64, idle bool)

	// Elapsed returns the whole ticks elapsed since the last announce,
	// without side effects.
	Elapsed() int64
}

// Config holds the runtime-tunable parts of the timeout queue
type Config struct {
	// MaxWaitTicks bounds the wait handed to the clock source (0 = DefaultMaxWait)
	MaxWaitTicks int64 `json:"max_wait_ticks"`

	// BoundedIdle forbids parking the clock forever when no timeout is
	// pending; the queue then asks for MaxWaitTicks instead. Needed on
	// hardware whose counter would wrap unnoticed during long idle periods.
	BoundedIdle bool `json:"bounded_idle"`

	// SliceMs is the scheduler time slice (0 = slicing disabled)
	SliceMs uint32 `json:"slice_ms"`
}

// DefaultConfig returns the configuration used when none is supplied
func DefaultConfig() Config {
	return Config{
		MaxWaitTicks: DefaultMaxWait,
	}
}
