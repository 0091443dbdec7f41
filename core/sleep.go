package core

import "runtime"

// Sleeper parks one goroutine on a timeout. Like a Timer its storage is
// owned by the caller; Init it before use and do not share it between
// concurrent sleepers.
type Sleeper struct {
	timeout Timeout
	q       *Queue
	expire  TimeoutFunc
	wake    chan struct{}
}

// Init binds s to q
func (s *Sleeper) Init(q *Queue) {
	assert(q != nil, "sleeper queue is nil")
	s.q = q
	s.wake = make(chan struct{}, 1)
	s.expire = func(*Timeout) { s.signal() }
}

func (s *Sleeper) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Sleep blocks for ticks ticks and returns how many were left if Wakeup
// cut it short. Zero or negative ticks just yield the processor.
func (s *Sleeper) Sleep(ticks int64) int64 {
	if InInterrupt() {
		fatal("sleep from interrupt context")
	}
	assert(s.q != nil, "sleep before init")

	if ticks <= 0 {
		runtime.Gosched()
		return 0
	}

	expected := s.q.Uptime() + uint64(ticks)
	s.q.Add(&s.timeout, s.expire, ticks)
	<-s.wake

	now := s.q.Uptime()
	if expected > now {
		return int64(expected - now)
	}
	return 0
}

// SleepMs sleeps for at least ms milliseconds and returns the milliseconds
// left if woken early
func (s *Sleeper) SleepMs(ms uint32) uint64 {
	left := s.Sleep(int64(MsToTicksCeil32(ms)))
	return TicksToMsFloor64(uint64(left))
}

// Wakeup ends a sleep early. It returns false if s was not sleeping or
// its timeout already fired.
func (s *Sleeper) Wakeup() bool {
	if s.q == nil || !s.q.Abort(&s.timeout) {
		return false
	}
	s.signal()
	return true
}
