package core

import "sync/atomic"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a queue event for post-mortem analysis
type TimingEvent struct {
	EventType uint8
	Tick      uint64 // Uptime when the event was recorded
	Value1    int64  // Context-dependent value
	Value2    int64  // Context-dependent value
}

// Event type codes
const (
	EvtTimeoutAdd   = 1 // v1 = requested ticks, v2 = head delta
	EvtTimeoutAbort = 2 // v1 = folded delta
	EvtTimeoutFire  = 3 // v1 = ticks left in the announce
	EvtAnnounce     = 4 // v1 = announced ticks
	EvtSetTimeout   = 5 // v1 = ticks requested from the clock source, v2 = idle
	EvtTimerStart   = 6 // v1 = duration, v2 = period
	EvtTimerStop    = 7
	EvtFatal        = 8
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	debugWriter  atomic.Pointer[DebugWriter]
	debugEnabled atomic.Bool

	// Timing capture ring buffer, always on
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8
	timingLock     spinlock
	timingEnabled  atomic.Bool

	debugChan atomic.Pointer[chan string]
)

func init() {
	timingEnabled.Store(true)
}

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	if writer == nil {
		debugWriter.Store(nil)
		return
	}
	debugWriter.Store(&writer)
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled.Load()
}

// SetTimingEnabled turns the timing ring on or off
func SetTimingEnabled(enabled bool) {
	timingEnabled.Store(enabled)
}

// InitAsyncDebug starts the async debug output goroutine. Later calls
// are no-ops. Until it runs, DebugAsync reports every message as dropped.
func InitAsyncDebug() {
	ch := make(chan string, 16)
	if debugChan.CompareAndSwap(nil, &ch) {
		go debugOutputWorker(ch)
	}
}

func debugOutputWorker(ch <-chan string) {
	for msg := range ch {
		if w := debugWriter.Load(); w != nil {
			(*w)(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Blocks for as long as the writer does; interrupt context should go
// through DebugAsync.
func DebugPrintln(msg string) {
	if !debugEnabled.Load() {
		return
	}
	if w := debugWriter.Load(); w != nil {
		(*w)(msg)
	}
}

// DebugAsync queues a debug message for the output goroutine without
// blocking and reports whether it was queued
func DebugAsync(msg string) bool {
	ch := debugChan.Load()
	if ch == nil || !debugEnabled.Load() {
		return false
	}
	select {
	case *ch <- msg:
		return true
	default:
		// full, drop
		return false
	}
}

// debugFromAnyContext writes msg without blocking an interrupt handler
// when the async worker is running
func debugFromAnyContext(msg string) {
	if InInterrupt() && DebugAsync(msg) {
		return
	}
	DebugPrintln(msg)
}

// RecordTiming captures a timing event in the ring buffer
func RecordTiming(eventType uint8, tick uint64, value1, value2 int64) {
	if !timingEnabled.Load() {
		return
	}
	state := timingLock.lock()
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		Tick:      tick,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
	timingLock.unlock(state)
}

// TimingEvents returns the recorded events, oldest first
func TimingEvents() []TimingEvent {
	state := timingLock.lock()
	defer timingLock.unlock(state)

	events := make([]TimingEvent, 0, TimingRingSize)
	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(start+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue
		}
		events = append(events, evt)
	}
	return events
}

// DumpTimingRing writes the timing ring through the debug writer,
// regardless of SetDebugEnabled (call on shutdown/fatal paths)
func DumpTimingRing() {
	wp := debugWriter.Load()
	if wp == nil {
		return
	}
	w := *wp

	w("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		w("[TIMING] " + eventName(evt.EventType) +
			" tick=" + utoa(evt.Tick) +
			" v1=" + itoa(evt.Value1) +
			" v2=" + itoa(evt.Value2))
	}
	w("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	state := timingLock.lock()
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
	timingLock.unlock(state)
}

func eventName(t uint8) string {
	switch t {
	case EvtTimeoutAdd:
		return "TO_ADD"
	case EvtTimeoutAbort:
		return "TO_ABORT"
	case EvtTimeoutFire:
		return "TO_FIRE"
	case EvtAnnounce:
		return "ANNOUNCE"
	case EvtSetTimeout:
		return "SET_TIMEOUT"
	case EvtTimerStart:
		return "TIMER_START"
	case EvtTimerStop:
		return "TIMER_STOP"
	case EvtFatal:
		return "FATAL!"
	}
	return "UNKNOWN"
}
