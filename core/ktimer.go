package core

// TimerFunc is a timer expiry or stop callback. Expiry callbacks run from
// Announce in interrupt context and must not block.
type TimerFunc func(t *Timer)

// Timer is a one-shot or periodic kernel timer built on a single Timeout.
// Its storage belongs to the caller; Init it before use.
//
// Querying or stopping a timer that was never started is a no-op.
type Timer struct {
	timeout Timeout
	q       *Queue
	expire  TimeoutFunc

	lock     spinlock
	period   int64
	status   uint32
	expiryFn TimerFunc
	stopFn   TimerFunc
	waiters  waitQueue
	userData any
}

// Init prepares t to run on q. Both callbacks are optional.
func (t *Timer) Init(q *Queue, expiry, stop TimerFunc) {
	assert(q != nil, "timer queue is nil")
	if t.q != nil {
		assert(!t.q.Active(&t.timeout), "init of a running timer")
	}
	*t = Timer{
		q:        q,
		expiryFn: expiry,
		stopFn:   stop,
	}
	t.expire = t.onExpire
}

// Start (re)starts the timer to fire after duration ticks and then every
// period ticks (0 for one-shot). Any pending expiry is cancelled and the
// status counter is reset. Negative values, or both values zero, are a
// contract violation.
func (t *Timer) Start(duration, period int64) {
	assert(t.q != nil, "timer started before init")
	assert(duration >= 0 && period >= 0, "negative timer duration or period")
	assert(duration != 0 || period != 0, "timer duration and period both zero")

	state := t.lock.lock()
	t.q.Abort(&t.timeout)
	t.period = period
	t.status = 0
	t.q.Add(&t.timeout, t.expire, duration)
	t.lock.unlock(state)

	RecordTiming(EvtTimerStart, t.q.Uptime(), duration, period)
}

// StartMs is Start with millisecond arguments, rounded up to whole ticks
func (t *Timer) StartMs(durationMs, periodMs uint32) {
	t.Start(int64(MsToTicksCeil32(durationMs)), int64(MsToTicksCeil32(periodMs)))
}

// onExpire is the timeout callback. The next period is queued before the
// user callback runs, relative to the tick the expiry was due, so a slow
// callback never shifts the cadence.
func (t *Timer) onExpire(*Timeout) {
	state := t.lock.lock()
	// Restarted between being dequeued and getting here
	if t.q.Active(&t.timeout) {
		t.lock.unlock(state)
		return
	}
	if t.period > 0 {
		t.q.Add(&t.timeout, t.expire, t.period)
	}
	t.status++
	fn := t.expiryFn
	t.lock.unlock(state)

	if fn != nil {
		fn(t)
	}

	state = t.lock.lock()
	t.waiters.wakeOne(WakeExpired)
	t.lock.unlock(state)
}

// Stop cancels a pending expiry. The stop callback runs only if the timer
// was pending; every goroutine parked in StatusSync is released.
func (t *Timer) Stop() {
	if t.q == nil {
		return
	}

	state := t.lock.lock()
	wasActive := t.q.Abort(&t.timeout)
	fn := t.stopFn
	t.lock.unlock(state)

	if wasActive {
		RecordTiming(EvtTimerStop, t.q.Uptime(), 0, 0)
		if fn != nil {
			fn(t)
		}
	}

	state = t.lock.lock()
	t.waiters.wakeAll(WakeStopped)
	t.lock.unlock(state)
}

// StatusGet returns the expirations since the last status read and
// resets the count
func (t *Timer) StatusGet() uint32 {
	state := t.lock.lock()
	status := t.status
	t.status = 0
	t.lock.unlock(state)
	return status
}

// StatusSync is StatusGet, but when nothing has expired yet and the timer
// is pending it blocks until the next expiry or a Stop. Calling it in
// interrupt context is a contract violation.
func (t *Timer) StatusSync() uint32 {
	if InInterrupt() {
		fatal("timer status sync from interrupt context")
	}
	if t.q == nil {
		return 0
	}

	state := t.lock.lock()
	result := t.status
	if result == 0 && t.q.Active(&t.timeout) {
		w := t.waiters.pend()
		t.lock.unlock(state)
		<-w.wake
		state = t.lock.lock()
		result = t.status
	}
	t.status = 0
	t.lock.unlock(state)
	return result
}

// RemainingTicks returns the ticks until the next expiry, 0 if stopped
func (t *Timer) RemainingTicks() int64 {
	if t.q == nil {
		return 0
	}
	return t.q.Remaining(&t.timeout)
}

// RemainingGet returns the milliseconds until the next expiry, 0 if stopped
func (t *Timer) RemainingGet() uint32 {
	return clamp32(TicksToMsFloor64(uint64(t.RemainingTicks())))
}

// ExpiresTicks returns the uptime tick of the next expiry, 0 if stopped
func (t *Timer) ExpiresTicks() uint64 {
	if t.q == nil {
		return 0
	}
	return t.q.Expires(&t.timeout)
}

// Period returns the configured period in ticks
func (t *Timer) Period() int64 {
	state := t.lock.lock()
	defer t.lock.unlock(state)
	return t.period
}

// SetUserData attaches caller-opaque data to the timer
func (t *Timer) SetUserData(data any) {
	state := t.lock.lock()
	t.userData = data
	t.lock.unlock(state)
}

// UserData returns the data set with SetUserData
func (t *Timer) UserData() any {
	state := t.lock.lock()
	defer t.lock.unlock(state)
	return t.userData
}

// waiting returns the number of goroutines parked in StatusSync
func (t *Timer) waiting() int {
	state := t.lock.lock()
	defer t.lock.unlock(state)
	return t.waiters.len
}
