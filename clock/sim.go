package clock

import "sync"

// SimCounter is a deterministic counter for simulation and tests. Time
// only moves when Advance is called; the alarm handler runs at the exact
// cycle the compare matches.
type SimCounter struct {
	mu sync.Mutex

	mask    uint32
	count   uint64 // total cycles since creation
	alarm   uint32
	armed   bool
	handler func()
	fired   uint64
}

// NewSimCounter creates a simulated bits-wide counter (1..32)
func NewSimCounter(bits uint) *SimCounter {
	if bits < 1 || bits > 32 {
		bits = 32
	}
	return &SimCounter{mask: uint32(1<<bits - 1)}
}

// OnAlarm sets the function run on a compare match
func (s *SimCounter) OnAlarm(fn func()) {
	s.mu.Lock()
	s.handler = fn
	s.mu.Unlock()
}

// Read implements Hardware
func (s *SimCounter) Read() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(s.count) & s.mask
}

// SetAlarm implements Hardware. An alarm equal to the current count
// matches only after a full wrap, as on real compare hardware.
func (s *SimCounter) SetAlarm(at uint32) {
	s.mu.Lock()
	s.alarm = at & s.mask
	s.armed = true
	s.mu.Unlock()
}

// Cycles returns the cycles elapsed since creation, unwrapped
func (s *SimCounter) Cycles() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Fired returns how many alarms have matched
func (s *SimCounter) Fired() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Advance runs the counter forward by cycles, stopping at every compare
// match to run the alarm handler. Alarms re-armed by the handler are
// honoured within the same call.
func (s *SimCounter) Advance(cycles uint64) {
	for cycles > 0 {
		s.mu.Lock()
		if !s.armed || s.handler == nil {
			s.count += cycles
			s.mu.Unlock()
			return
		}
		d := uint64((s.alarm - uint32(s.count)) & s.mask)
		if d == 0 {
			d = uint64(s.mask) + 1
		}
		if d > cycles {
			s.count += cycles
			s.mu.Unlock()
			return
		}
		s.count += d
		cycles -= d
		s.armed = false
		s.fired++
		h := s.handler
		s.mu.Unlock()

		h()
	}
}
