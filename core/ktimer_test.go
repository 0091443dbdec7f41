package core

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTimerPeriodic(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var tm Timer
	tm.Init(q, nil, nil)
	tm.Start(10, 10)

	q.Announce(10)
	if got := tm.StatusGet(); got != 1 {
		t.Errorf("Expected status 1 after first expiry, got %d", got)
	}
	if got := tm.RemainingGet(); got != 10 {
		t.Errorf("Expected 10ms to next expiry, got %d", got)
	}
	if got := tm.StatusGet(); got != 0 {
		t.Errorf("StatusGet did not reset the count, got %d", got)
	}

	tm.Stop()
	if got := tm.StatusGet(); got != 0 {
		t.Errorf("Expected status 0 after stop, got %d", got)
	}
	if got := tm.RemainingGet(); got != 0 {
		t.Errorf("Expected remaining 0 after stop, got %d", got)
	}
}

func TestTimerExpiryCount(t *testing.T) {
	tests := []struct {
		name     string
		duration int64
		period   int64
		announce int64
		step     int64
		want     uint32
	}{
		{"one-shot", 7, 0, 100, 1, 1},
		{"one-shot not due", 7, 0, 6, 1, 0},
		{"periodic exact", 5, 3, 5 + 3*10, 1, 11},
		{"periodic partial", 5, 3, 5 + 3*10 + 2, 1, 11},
		{"periodic single announce", 5, 3, 5 + 3*10, 5 + 3*10, 11},
		{"periodic uneven steps", 5, 3, 5 + 3*10, 7, 11},
		{"period only", 0, 4, 40, 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := newTestQueue(DefaultConfig())

			var tm Timer
			var calls uint32
			tm.Init(q, func(*Timer) { calls++ }, nil)
			tm.Start(tt.duration, tt.period)

			for left := tt.announce; left > 0; left -= tt.step {
				n := tt.step
				if n > left {
					n = left
				}
				q.Announce(n)
			}

			if got := tm.StatusGet(); got != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, got)
			}
			if calls != tt.want {
				t.Errorf("Expected %d expiry callbacks, got %d", tt.want, calls)
			}
		})
	}
}

// Periodic expiries keep the phase of the first one however the ticks
// are announced
func TestTimerPeriodicNoDrift(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var tm Timer
	var at []uint64
	tm.Init(q, func(*Timer) { at = append(at, q.Uptime()) }, nil)
	tm.Start(2, 5)

	q.Announce(1)
	q.Announce(3) // fires at 2, leftover 2
	q.Announce(9) // fires at 7 and 12
	want := []uint64{2, 7, 12}
	if len(at) != len(want) {
		t.Fatalf("Expected expiries %v, got %v", want, at)
	}
	for i := range want {
		if at[i] != want[i] {
			t.Errorf("Expiry %d at %d, want %d", i, at[i], want[i])
		}
	}
	if got := tm.ExpiresTicks(); got != 17 {
		t.Errorf("Expected next expiry at 17, got %d", got)
	}
}

func TestTimerRestart(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var tm Timer
	tm.Init(q, nil, nil)
	tm.Start(5, 5)
	q.Announce(5)

	tm.Start(20, 0)
	if got := tm.StatusGet(); got != 0 {
		t.Errorf("Restart did not reset status, got %d", got)
	}
	if got := tm.RemainingTicks(); got != 20 {
		t.Errorf("Expected 20 ticks remaining after restart, got %d", got)
	}
	if got := tm.Period(); got != 0 {
		t.Errorf("Expected period 0 after restart, got %d", got)
	}
}

func TestTimerRestartFromCallback(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var tm Timer
	var n int
	tm.Init(q, func(self *Timer) {
		n++
		if n == 1 {
			self.Start(4, 0)
		}
	}, nil)
	tm.Start(2, 0)

	q.Announce(2)
	if got := tm.RemainingTicks(); got != 4 {
		t.Fatalf("Expected restarted timer due in 4, got %d", got)
	}
	q.Announce(4)
	if n != 2 {
		t.Errorf("Expected 2 expiries, got %d", n)
	}
}

func TestTimerStopCallback(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var stops int
	var tm Timer
	tm.Init(q, nil, func(*Timer) { stops++ })

	tm.Stop()
	if stops != 0 {
		t.Errorf("Stop of an idle timer ran the stop callback")
	}

	tm.Start(3, 0)
	tm.Stop()
	tm.Stop()
	if stops != 1 {
		t.Errorf("Expected exactly one stop callback, got %d", stops)
	}

	tm.Start(3, 0)
	q.Announce(3)
	tm.Stop()
	if stops != 1 {
		t.Errorf("Stop after a one-shot expiry ran the stop callback")
	}
}

func TestTimerStopFromExpiry(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var stops, calls int
	var tm Timer
	tm.Init(q, func(self *Timer) {
		calls++
		if calls == 3 {
			self.Stop()
		}
	}, func(*Timer) { stops++ })
	tm.Start(1, 1)

	q.Announce(10)
	if calls != 3 {
		t.Errorf("Expected periodic timer stopped after 3 expiries, got %d", calls)
	}
	if stops != 1 {
		t.Errorf("Expected stop callback for the re-queued period, got %d", stops)
	}
}

func TestTimerZeroValue(t *testing.T) {
	var tm Timer
	tm.Stop()
	if got := tm.StatusGet(); got != 0 {
		t.Errorf("Expected status 0, got %d", got)
	}
	if got := tm.StatusSync(); got != 0 {
		t.Errorf("Expected sync status 0, got %d", got)
	}
	if got := tm.RemainingGet(); got != 0 {
		t.Errorf("Expected remaining 0, got %d", got)
	}
	if got := tm.ExpiresTicks(); got != 0 {
		t.Errorf("Expected expires 0, got %d", got)
	}
}

func TestTimerStartContract(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var tm Timer
	tm.Init(q, nil, nil)
	expectContractViolation(t, func() { tm.Start(0, 0) })
	expectContractViolation(t, func() { tm.Start(-1, 5) })
	expectContractViolation(t, func() { tm.Start(5, -1) })

	var uninit Timer
	expectContractViolation(t, func() { uninit.Start(5, 0) })
}

func TestTimerUserData(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var tm Timer
	tm.Init(q, nil, nil)
	if tm.UserData() != nil {
		t.Fatal("Expected nil user data after init")
	}
	tm.SetUserData("led0")
	if got, _ := tm.UserData().(string); got != "led0" {
		t.Errorf("Expected user data led0, got %v", tm.UserData())
	}
}

func TestTimerStartMs(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var tm Timer
	tm.Init(q, nil, nil)
	tm.StartMs(250, 100)

	if got, want := tm.RemainingTicks(), int64(MsToTicksCeil32(250)); got != want {
		t.Errorf("Expected %d ticks remaining, got %d", want, got)
	}
	if got, want := tm.Period(), int64(MsToTicksCeil32(100)); got != want {
		t.Errorf("Expected period %d ticks, got %d", want, got)
	}
}

func TestTimerStatusSyncReturnsPending(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var tm Timer
	tm.Init(q, nil, nil)
	tm.Start(1, 1)
	q.Announce(3)

	if got := tm.StatusSync(); got != 3 {
		t.Errorf("Expected sync to return 3 pending expiries, got %d", got)
	}
}

func TestTimerStatusSyncWokenByExpiry(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var tm Timer
	tm.Init(q, nil, nil)
	tm.Start(5, 0)

	done := make(chan uint32, 1)
	go func() { done <- tm.StatusSync() }()
	waitFor(t, "StatusSync to park", func() bool { return tm.waiting() == 1 })

	q.Announce(5)
	select {
	case got := <-done:
		if got != 1 {
			t.Errorf("Expected sync status 1, got %d", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("StatusSync was not woken by the expiry")
	}
}

func TestTimerStatusSyncWokenByStop(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var tm Timer
	tm.Init(q, nil, nil)
	tm.Start(50, 0)

	const n = 3
	done := make(chan uint32, n)
	for i := 0; i < n; i++ {
		go func() { done <- tm.StatusSync() }()
	}
	waitFor(t, "all waiters to park", func() bool { return tm.waiting() == n })

	tm.Stop()
	for i := 0; i < n; i++ {
		select {
		case got := <-done:
			if got != 0 {
				t.Errorf("Expected status 0 after stop, got %d", got)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("StatusSync was not woken by Stop")
		}
	}
}

func TestTimerStatusSyncStopped(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var tm Timer
	tm.Init(q, nil, nil)
	tm.Start(5, 0)
	tm.Stop()

	// Not pending: must not block
	if got := tm.StatusSync(); got != 0 {
		t.Errorf("Expected status 0, got %d", got)
	}
}

func TestTimerStatusSyncFromInterrupt(t *testing.T) {
	q, _ := newTestQueue(DefaultConfig())

	var tm Timer
	violated := false
	tm.Init(q, func(self *Timer) {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(*ContractError); ok {
					violated = true
				}
			}
		}()
		self.StatusSync()
	}, nil)
	tm.Start(1, 0)

	q.Announce(1)
	if !violated {
		t.Error("StatusSync from an expiry callback was not a contract violation")
	}
	if InInterrupt() {
		t.Error("Interrupt context leaked past Announce")
	}
}
