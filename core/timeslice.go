package core

// TimeSlicer accounts the running thread's time slice from the per-announce
// hook. Which thread is sliceable and what "yield" means belong to the
// scheduler and are supplied as functions.
type TimeSlicer struct {
	q    *Queue
	lock spinlock

	sliceTicks int64
	remaining  int64

	sliceable func() bool
	yield     func()
}

// NewTimeSlicer installs a slicer as q's slice hook. sliceable may be nil
// (always sliceable); yield is called when the slice runs out.
func NewTimeSlicer(q *Queue, sliceable func() bool, yield func()) *TimeSlicer {
	s := &TimeSlicer{
		q:         q,
		sliceable: sliceable,
		yield:     yield,
	}
	q.SetSliceHook(s.tick)
	return s
}

// Set changes the slice length; 0 disables slicing
func (s *TimeSlicer) Set(sliceMs uint32) {
	state := s.lock.lock()
	s.remaining = 0
	s.sliceTicks = int64(MsToTicksCeil32(sliceMs))
	s.resetLocked()
	s.lock.unlock(state)
}

// Reset starts a fresh slice, e.g. on a context switch
func (s *TimeSlicer) Reset() {
	state := s.lock.lock()
	s.resetLocked()
	s.lock.unlock(state)
}

// Remaining returns the ticks left in the current slice
func (s *TimeSlicer) Remaining() int64 {
	state := s.lock.lock()
	defer s.lock.unlock(state)
	return s.remaining
}

// Ticks counted but not yet announced will arrive in a later tick() call,
// so they are added to the new slice.
func (s *TimeSlicer) resetLocked() {
	if s.sliceTicks == 0 {
		return
	}
	s.remaining = s.sliceTicks + s.q.Elapsed()
	s.q.SetExpiry(s.sliceTicks, false)
}

func (s *TimeSlicer) tick(ticks int64) {
	sliceable := s.sliceable == nil || s.sliceable()

	state := s.lock.lock()
	expired := false
	if s.sliceTicks != 0 && sliceable {
		if ticks >= s.remaining {
			expired = true
			s.resetLocked()
		} else {
			s.remaining -= ticks
		}
	} else {
		s.remaining = 0
	}
	s.lock.unlock(state)

	if expired && s.yield != nil {
		s.yield()
	}
}
