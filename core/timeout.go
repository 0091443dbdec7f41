package core

import "math"

// TimeoutFunc is invoked when a timeout expires. It runs from Announce with
// no queue lock held and may Add or Abort any timeout, including its own.
// It must run to completion without blocking.
type TimeoutFunc func(to *Timeout)

// Timeout is one pending wake-up. It is embedded by value in the object
// that waits (a Timer, a Sleeper, a wait descriptor); the queue only links
// to it and never owns it.
//
// A zero Timeout is inactive.
type Timeout struct {
	prev, next *Timeout
	dticks     int64 // ticks after the previous entry's expiry
	fn         TimeoutFunc
}

// Queue is the delta-encoded list of pending timeouts and the owner of the
// 64-bit uptime counter. Summing dticks from the head through an entry
// gives the ticks until that entry expires, relative to curTick.
type Queue struct {
	lock spinlock

	root    Timeout // list sentinel
	curTick uint64

	// announceRemaining holds the ticks of the announce in progress that
	// have not been folded into curTick yet.
	announceRemaining int64
	announcing        bool

	cs          ClockSource
	maxWait     int64
	boundedIdle bool
	sliceHook   func(ticks int64)
}

// NewQueue creates a queue driven by cs
func NewQueue(cs ClockSource, cfg Config) *Queue {
	assert(cs != nil, "queue needs a clock source")
	q := &Queue{
		cs:          cs,
		maxWait:     cfg.MaxWaitTicks,
		boundedIdle: cfg.BoundedIdle,
	}
	if q.maxWait <= 0 {
		q.maxWait = DefaultMaxWait
	}
	q.root.prev = &q.root
	q.root.next = &q.root
	return q
}

func (q *Queue) first() *Timeout {
	if q.root.next == &q.root {
		return nil
	}
	return q.root.next
}

// elapsed is zero while an announce is running: the ticks it carries are
// accounted through announceRemaining, and callbacks re-adding themselves
// must be relative to the tick at which they fired.
func (q *Queue) elapsed() int64 {
	if q.announcing {
		return 0
	}
	return q.cs.Elapsed()
}

func linkBefore(at, to *Timeout) {
	to.prev = at.prev
	to.next = at
	at.prev.next = to
	at.prev = to
}

// insert walks from the head consuming deltas. Equal expiries go after
// existing entries so ties fire in registration order.
func (q *Queue) insert(to *Timeout) {
	for t := q.root.next; t != &q.root; t = t.next {
		if t.dticks > to.dticks {
			t.dticks -= to.dticks
			linkBefore(t, to)
			return
		}
		to.dticks -= t.dticks
	}
	linkBefore(&q.root, to)
}

func (q *Queue) remove(to *Timeout) {
	if to.next != &q.root {
		to.next.dticks += to.dticks
	}
	to.prev.next = to.next
	to.next.prev = to.prev
	to.prev = nil
	to.next = nil
}

// nextTimeout returns the ticks to hand to the clock source
func (q *Queue) nextTimeout() int64 {
	to := q.first()
	if to == nil {
		if q.boundedIdle {
			return q.maxWait
		}
		return Forever
	}
	ticks := to.dticks - q.elapsed()
	if ticks < 0 {
		ticks = 0
	}
	if ticks > q.maxWait {
		ticks = q.maxWait
	}
	return ticks
}

func (q *Queue) setTimeout(ticks int64, idle bool) {
	var flag int64
	if idle {
		flag = 1
	}
	RecordTiming(EvtSetTimeout, q.curTick, ticks, flag)
	q.cs.SetTimeout(ticks, idle)
}

// Add registers to to fire fn after ticks ticks (at least one) from now.
// Adding a timeout that is already active is a fatal contract violation.
func (q *Queue) Add(to *Timeout, fn TimeoutFunc, ticks int64) {
	assert(fn != nil, "timeout callback is nil")
	if ticks < 1 {
		ticks = 1
	}

	state := q.lock.lock()
	if to.next != nil {
		q.lock.unlock(state)
		fatal("timeout added while already active")
	}
	q.addLocked(to, fn, ticks)
	q.lock.unlock(state)
}

// AddAt registers to to fire fn at the absolute uptime tick. Deadlines that
// are not in the future fire on the next tick.
func (q *Queue) AddAt(to *Timeout, fn TimeoutFunc, tick uint64) {
	assert(fn != nil, "timeout callback is nil")

	state := q.lock.lock()
	if to.next != nil {
		q.lock.unlock(state)
		fatal("timeout added while already active")
	}
	now := q.curTick + uint64(q.elapsed())
	ticks := int64(1)
	if tick > now+1 {
		ticks = math.MaxInt64
		if d := tick - now; d < math.MaxInt64 {
			ticks = int64(d)
		}
	}
	q.addLocked(to, fn, ticks)
	q.lock.unlock(state)
}

func (q *Queue) addLocked(to *Timeout, fn TimeoutFunc, ticks int64) {
	to.fn = fn
	// saturate: a delta must never wrap negative
	e := q.elapsed()
	if ticks > math.MaxInt64-e {
		ticks = math.MaxInt64 - e
	}
	to.dticks = ticks + e
	q.insert(to)

	head := q.first()
	RecordTiming(EvtTimeoutAdd, q.curTick, ticks, head.dticks)
	if head == to && !q.announcing {
		q.setTimeout(q.nextTimeout(), false)
	}
}

// Abort removes to from the queue, returning whether it was active.
// Aborting an inactive timeout (including one that is firing right now)
// is a harmless no-op.
func (q *Queue) Abort(to *Timeout) bool {
	state := q.lock.lock()
	defer q.lock.unlock(state)

	if to.next == nil {
		return false
	}
	RecordTiming(EvtTimeoutAbort, q.curTick, to.dticks, 0)
	q.remove(to)
	return true
}

// Active reports whether to is currently queued
func (q *Queue) Active(to *Timeout) bool {
	state := q.lock.lock()
	active := to.next != nil
	q.lock.unlock(state)
	return active
}

// ticksThrough sums the deltas from the head through to
func (q *Queue) ticksThrough(to *Timeout) int64 {
	var ticks int64
	for t := q.root.next; t != &q.root; t = t.next {
		if ticks > math.MaxInt64-t.dticks {
			return math.MaxInt64
		}
		ticks += t.dticks
		if t == to {
			break
		}
	}
	return ticks
}

// Remaining returns the ticks until to expires, or 0 if it is inactive
func (q *Queue) Remaining(to *Timeout) int64 {
	state := q.lock.lock()
	defer q.lock.unlock(state)

	if to.next == nil {
		return 0
	}
	ticks := q.ticksThrough(to) - q.elapsed()
	if ticks < 0 {
		return 0
	}
	return ticks
}

// Expires returns the absolute uptime tick at which to fires, or 0 if it
// is inactive
func (q *Queue) Expires(to *Timeout) uint64 {
	state := q.lock.lock()
	defer q.lock.unlock(state)

	if to.next == nil {
		return 0
	}
	d := uint64(q.ticksThrough(to))
	if q.curTick > math.MaxUint64-d {
		return math.MaxUint64
	}
	return q.curTick + d
}

// NextExpiry returns the ticks until the earliest pending timeout. With
// nothing pending it returns Forever, or the bounded maximum wait when
// idling forever is disabled.
func (q *Queue) NextExpiry() int64 {
	state := q.lock.lock()
	defer q.lock.unlock(state)
	return q.nextTimeout()
}

// SetExpiry asks the clock source for an interrupt within ticks, unless
// the head timeout is due sooner or is imminent anyway. Used by time
// slicing to get a wake-up that is not backed by a queue entry.
func (q *Queue) SetExpiry(ticks int64, idle bool) {
	state := q.lock.lock()
	defer q.lock.unlock(state)

	next := q.nextTimeout()
	sooner := next == Forever || ticks <= next
	imminent := next != Forever && next <= 1
	if imminent || !sooner {
		return
	}
	if ticks < 0 {
		ticks = 0
	}
	q.setTimeout(ticks, idle)
}

// Idle arms the clock source for the next expiry in idle mode and returns
// the ticks requested. Called by the idle loop before sleeping the CPU.
func (q *Queue) Idle() int64 {
	state := q.lock.lock()
	defer q.lock.unlock(state)

	ticks := q.nextTimeout()
	q.setTimeout(ticks, true)
	return ticks
}

// Elapsed returns the ticks elapsed since the last announce
func (q *Queue) Elapsed() int64 {
	state := q.lock.lock()
	defer q.lock.unlock(state)
	return q.elapsed()
}

// Uptime returns the ticks since boot, including ticks the clock source
// has counted but not yet announced. It does not modify the stored counter.
func (q *Queue) Uptime() uint64 {
	state := q.lock.lock()
	defer q.lock.unlock(state)
	return q.curTick + uint64(q.elapsed())
}

// UptimeMs returns the uptime in milliseconds, rounded down
func (q *Queue) UptimeMs() uint64 {
	return TicksToMsFloor64(q.Uptime())
}
