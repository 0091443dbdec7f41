package core

// Announce informs the queue that ticks ticks have elapsed. It is called
// from the clock source's interrupt handler, never concurrently with
// itself.
//
// Every timeout due within the announced span fires, in expiry order, each
// with the queue unlocked so the callback may Add or Abort. A backlog that
// built up while interrupts were off is drained in one pass. Afterwards the
// clock source is re-armed for the new head and the time-slice hook runs.
func (q *Queue) Announce(ticks int64) {
	enterInterrupt()
	defer exitInterrupt()

	if ticks < 0 {
		ticks = 0
	}

	state := q.lock.lock()
	if q.announcing {
		q.lock.unlock(state)
		fatal("nested announce")
	}
	q.announcing = true
	q.announceRemaining = ticks
	RecordTiming(EvtAnnounce, q.curTick, ticks, 0)

	for {
		t := q.first()
		if t == nil || t.dticks > q.announceRemaining {
			break
		}
		dt := t.dticks
		q.curTick += uint64(dt)
		q.announceRemaining -= dt
		t.dticks = 0
		q.remove(t)
		fn := t.fn
		RecordTiming(EvtTimeoutFire, q.curTick, q.announceRemaining, 0)

		q.lock.unlock(state)
		fn(t)
		state = q.lock.lock()
	}

	if t := q.first(); t != nil {
		t.dticks -= q.announceRemaining
	}
	q.curTick += uint64(q.announceRemaining)
	q.announceRemaining = 0
	q.announcing = false

	q.setTimeout(q.nextTimeout(), false)
	hook := q.sliceHook
	q.lock.unlock(state)

	if hook != nil {
		hook(ticks)
	}
}

// SetSliceHook installs the scheduler's time-slice accounting hook. It is
// called once per announce, after all due timeouts have fired, with the
// ticks that were announced.
func (q *Queue) SetSliceHook(hook func(ticks int64)) {
	state := q.lock.lock()
	q.sliceHook = hook
	q.lock.unlock(state)
}
