package core

import "sync/atomic"

var defaultQueue atomic.Pointer[Queue]

// Init creates the system timeout queue on cs and installs it as the
// default. It is called once during boot; later calls return the queue
// created by the first.
func Init(cs ClockSource, cfg Config) *Queue {
	if q := defaultQueue.Load(); q != nil {
		return q
	}
	q := NewQueue(cs, cfg)
	if !defaultQueue.CompareAndSwap(nil, q) {
		return defaultQueue.Load()
	}
	return q
}

// Default returns the queue installed by Init, or nil before boot
func Default() *Queue {
	return defaultQueue.Load()
}

// GetUptime returns the system uptime in ticks (0 before Init)
func GetUptime() uint64 {
	q := defaultQueue.Load()
	if q == nil {
		return 0
	}
	return q.Uptime()
}

// GetUptimeMs returns the system uptime in milliseconds
func GetUptimeMs() uint64 {
	return TicksToMsFloor64(GetUptime())
}
