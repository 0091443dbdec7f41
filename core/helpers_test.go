package core

import (
	"errors"
	"sync"
	"testing"
)

// fakeClock is a ClockSource whose elapsed count is set by the test
type fakeClock struct {
	mu      sync.Mutex
	elapsed int64
	armed   []int64
	idle    []bool
}

func (c *fakeClock) SetTimeout(ticks int64, idle bool) {
	c.mu.Lock()
	c.armed = append(c.armed, ticks)
	c.idle = append(c.idle, idle)
	c.mu.Unlock()
}

func (c *fakeClock) Elapsed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

func (c *fakeClock) setElapsed(ticks int64) {
	c.mu.Lock()
	c.elapsed = ticks
	c.mu.Unlock()
}

func (c *fakeClock) lastArmed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.armed) == 0 {
		return 0
	}
	return c.armed[len(c.armed)-1]
}

func (c *fakeClock) armCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.armed)
}

// tick announces elapsed plus n ticks, like a clock ISR would
func (c *fakeClock) tick(q *Queue, n int64) {
	c.mu.Lock()
	n += c.elapsed
	c.elapsed = 0
	c.mu.Unlock()
	q.Announce(n)
}

func newTestQueue(cfg Config) (*Queue, *fakeClock) {
	cs := &fakeClock{}
	return NewQueue(cs, cfg), cs
}

// expectContractViolation runs fn and fails unless it panics with a
// *ContractError
func expectContractViolation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected contract violation, got none")
		}
		err, ok := r.(error)
		var ce *ContractError
		if !ok || !errors.As(err, &ce) {
			t.Fatalf("expected *ContractError, got %v", r)
		}
	}()
	fn()
}
