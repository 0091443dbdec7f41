package core

import (
	"strings"
	"testing"
	"time"
)

func TestTimingRingRecordsQueueEvents(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()

	q, _ := newTestQueue(DefaultConfig())
	var to Timeout
	q.Add(&to, func(*Timeout) {}, 3)
	q.Announce(3)

	var kinds []uint8
	for _, evt := range TimingEvents() {
		kinds = append(kinds, evt.EventType)
	}
	want := []uint8{EvtTimeoutAdd, EvtSetTimeout, EvtAnnounce, EvtTimeoutFire, EvtSetTimeout}
	if len(kinds) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, eventName(want[i]), eventName(kinds[i]))
		}
	}
}

func TestTimingRingWraps(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()

	for i := 0; i < TimingRingSize+8; i++ {
		RecordTiming(EvtAnnounce, uint64(i), 0, 0)
	}
	events := TimingEvents()
	if len(events) != TimingRingSize {
		t.Fatalf("Expected %d events, got %d", TimingRingSize, len(events))
	}
	if events[0].Tick != 8 {
		t.Errorf("Expected oldest surviving event at tick 8, got %d", events[0].Tick)
	}
	if last := events[len(events)-1].Tick; last != TimingRingSize+7 {
		t.Errorf("Expected newest event at tick %d, got %d", TimingRingSize+7, last)
	}
}

func TestDumpTimingRing(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(nil)

	RecordTiming(EvtTimerStart, 42, 10, -1)
	DumpTimingRing()

	if len(lines) != 3 {
		t.Fatalf("Expected header, one event and footer, got %q", lines)
	}
	if want := "[TIMING] TIMER_START tick=42 v1=10 v2=-1"; lines[1] != want {
		t.Errorf("Expected %q, got %q", want, lines[1])
	}
}

func TestDebugPrintlnGated(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(nil)
	defer SetDebugEnabled(false)

	SetDebugEnabled(false)
	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("shown")

	if len(lines) != 1 || lines[0] != "shown" {
		t.Errorf("Expected only the enabled line, got %q", lines)
	}
}

func TestFatalHandler(t *testing.T) {
	var got error
	SetFatalHandler(func(err error) { got = err })
	defer SetFatalHandler(nil)

	expectContractViolation(t, func() { fatal("boom") })
	if got == nil || !strings.Contains(got.Error(), "boom") {
		t.Errorf("Expected handler to see the violation, got %v", got)
	}
}

func TestTimingCanBeDisabled(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()
	defer SetTimingEnabled(true)

	SetTimingEnabled(false)
	RecordTiming(EvtAnnounce, 1, 0, 0)
	if n := len(TimingEvents()); n != 0 {
		t.Fatalf("Expected no events while disabled, got %d", n)
	}
	SetTimingEnabled(true)
	RecordTiming(EvtAnnounce, 2, 0, 0)
	if n := len(TimingEvents()); n != 1 {
		t.Errorf("Expected one event after re-enabling, got %d", n)
	}
}

func TestTimerEventsCarryUptime(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()

	q, cs := newTestQueue(DefaultConfig())
	cs.tick(q, 40)
	cs.setElapsed(2)

	var tm Timer
	tm.Init(q, nil, nil)
	tm.Start(10, 0)
	tm.Stop()

	ticks := map[uint8]uint64{}
	for _, evt := range TimingEvents() {
		ticks[evt.EventType] = evt.Tick
	}
	if ticks[EvtTimerStart] != 42 || ticks[EvtTimerStop] != 42 {
		t.Errorf("Expected start and stop at tick 42, got %d and %d", ticks[EvtTimerStart], ticks[EvtTimerStop])
	}
}

func TestFatalInInterruptIsWrittenAsync(t *testing.T) {
	type line struct {
		msg         string
		inInterrupt bool
	}
	lines := make(chan line, 16)
	SetDebugWriter(func(s string) { lines <- line{s, InInterrupt()} })
	defer SetDebugWriter(nil)
	SetDebugEnabled(true)
	defer SetDebugEnabled(false)
	InitAsyncDebug()

	if !DebugAsync("queued") {
		t.Fatal("DebugAsync dropped a message with the worker running")
	}
	select {
	case l := <-lines:
		if l.msg != "queued" {
			t.Fatalf("Expected the queued line, got %q", l.msg)
		}
	case <-time.After(time.Second):
		t.Fatal("async worker never wrote the line")
	}

	q, _ := newTestQueue(DefaultConfig())
	var s Sleeper
	s.Init(q)
	var to Timeout
	q.Add(&to, func(*Timeout) {
		defer func() { recover() }()
		s.Sleep(5)
	}, 1)
	q.Announce(1)

	select {
	case l := <-lines:
		if l.msg != "[FATAL] sleep from interrupt context" {
			t.Errorf("Unexpected line %q", l.msg)
		}
		if l.inInterrupt {
			t.Error("Fatal message was written from interrupt context")
		}
	case <-time.After(time.Second):
		t.Fatal("fatal message from interrupt context was never written")
	}
}

func TestItoa(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{-42, "-42"},
		{9223372036854775807, "9223372036854775807"},
		{-9223372036854775808, "-9223372036854775808"},
	}
	for _, tt := range tests {
		if got := itoa(tt.in); got != tt.want {
			t.Errorf("itoa(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
