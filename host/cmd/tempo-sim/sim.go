package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"tempo/clock"
	"tempo/config"
	"tempo/core"
)

var errQuit = errors.New("quit")

// simulator owns a queue driven by a simulated counter plus the named
// timeouts and timers created from the command line
type simulator struct {
	out io.Writer
	log *zap.Logger

	hw      *clock.SimCounter
	counter *clock.Counter
	q       *core.Queue
	cpt     uint64

	timeouts map[string]*core.Timeout
	timers   map[string]*core.Timer
	slicer   *core.TimeSlicer
	yields   int
}

func newSimulator(cfg *config.Config, out io.Writer, log *zap.Logger) (*simulator, error) {
	hw := clock.NewSimCounter(cfg.Counter.Bits)
	counter, err := clock.NewCounter(hw, cfg.Counter.Bits, cfg.Counter.CyclesPerTick)
	if err != nil {
		return nil, fmt.Errorf("counter: %w", err)
	}
	q := core.NewQueue(counter, cfg.Kernel)
	counter.Attach(q)
	hw.OnAlarm(counter.Interrupt)

	s := &simulator{
		out:      out,
		log:      log,
		hw:       hw,
		counter:  counter,
		q:        q,
		cpt:      uint64(cfg.Counter.CyclesPerTick),
		timeouts: make(map[string]*core.Timeout),
		timers:   make(map[string]*core.Timer),
	}
	s.slicer = core.NewTimeSlicer(q, nil, func() {
		s.yields++
		fmt.Fprintf(s.out, "slice expired at tick %d\n", s.q.Uptime())
	})
	if cfg.Kernel.SliceMs > 0 {
		s.slicer.Set(cfg.Kernel.SliceMs)
	}
	q.Idle()
	return s, nil
}

func parseTicks(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return v, nil
}

func need(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

// run executes one command line. Kernel contract violations are reported
// as errors so a typo does not end the session.
func (s *simulator) run(args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var ce *core.ContractError
			if e, ok := r.(error); ok && errors.As(e, &ce) {
				err = ce
				return
			}
			panic(r)
		}
	}()
	return s.exec(args)
}

func (s *simulator) exec(args []string) error {
	if len(args) == 0 {
		return nil
	}
	switch args[0] {
	case "quit", "exit", "q":
		return errQuit

	case "help", "?":
		printHelp(s.out)

	case "add":
		if err := need(args, 3, "add <name> <ticks>"); err != nil {
			return err
		}
		ticks, err := parseTicks(args[2])
		if err != nil {
			return err
		}
		return s.add(args[1], ticks)

	case "abort":
		if err := need(args, 2, "abort <name>"); err != nil {
			return err
		}
		to, ok := s.timeouts[args[1]]
		if !ok {
			return fmt.Errorf("no timeout %q", args[1])
		}
		fmt.Fprintf(s.out, "%s: aborted=%v\n", args[1], s.q.Abort(to))

	case "remaining":
		if err := need(args, 2, "remaining <name>"); err != nil {
			return err
		}
		if to, ok := s.timeouts[args[1]]; ok {
			fmt.Fprintf(s.out, "%s: %d ticks\n", args[1], s.q.Remaining(to))
			return nil
		}
		if t, ok := s.timers[args[1]]; ok {
			fmt.Fprintf(s.out, "%s: %d ms\n", args[1], t.RemainingGet())
			return nil
		}
		return fmt.Errorf("no timeout or timer %q", args[1])

	case "tick":
		if err := need(args, 2, "tick <ticks>"); err != nil {
			return err
		}
		ticks, err := parseTicks(args[1])
		if err != nil || ticks < 0 {
			return fmt.Errorf("bad tick count %q", args[1])
		}
		s.hw.Advance(uint64(ticks) * s.cpt)

	case "advance":
		if err := need(args, 2, "advance <cycles>"); err != nil {
			return err
		}
		cycles, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad cycle count %q", args[1])
		}
		s.hw.Advance(cycles)

	case "uptime":
		fmt.Fprintf(s.out, "uptime: %d ticks (%d ms), %d cycles\n", s.q.Uptime(), s.q.UptimeMs(), s.hw.Cycles())

	case "next":
		if next := s.q.NextExpiry(); next == core.Forever {
			fmt.Fprintln(s.out, "next: forever")
		} else {
			fmt.Fprintf(s.out, "next: %d ticks\n", next)
		}

	case "timer":
		return s.timer(args[1:])

	case "slice":
		if err := need(args, 2, "slice <ms>"); err != nil {
			return err
		}
		ms, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("bad slice %q", args[1])
		}
		s.slicer.Set(uint32(ms))

	case "list":
		s.list()

	case "dump":
		core.DumpTimingRing()

	default:
		return fmt.Errorf("unknown command %q (type 'help')", args[0])
	}
	return nil
}

func (s *simulator) add(name string, ticks int64) error {
	to, ok := s.timeouts[name]
	if !ok {
		to = new(core.Timeout)
		s.timeouts[name] = to
	}
	s.q.Add(to, func(*core.Timeout) {
		fmt.Fprintf(s.out, "%s fired at tick %d\n", name, s.q.Uptime())
	}, ticks)
	s.log.Debug("timeout added", zap.String("name", name), zap.Int64("ticks", ticks))
	return nil
}

func (s *simulator) timer(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: timer start|stop|status|sync <name> [duration_ms period_ms]")
	}
	name := args[1]
	t, ok := s.timers[name]
	if args[0] == "start" {
		if len(args) != 4 {
			return errors.New("usage: timer start <name> <duration_ms> <period_ms>")
		}
		d, err1 := strconv.ParseUint(args[2], 10, 32)
		p, err2 := strconv.ParseUint(args[3], 10, 32)
		if err1 != nil || err2 != nil || (d == 0 && p == 0) {
			return errors.New("duration and period must be non-negative and not both zero")
		}
		if !ok {
			t = new(core.Timer)
			t.Init(s.q, func(*core.Timer) {
				fmt.Fprintf(s.out, "timer %s expired at tick %d\n", name, s.q.Uptime())
			}, func(*core.Timer) {
				fmt.Fprintf(s.out, "timer %s stopped\n", name)
			})
			s.timers[name] = t
		}
		t.StartMs(uint32(d), uint32(p))
		return nil
	}
	if !ok {
		return fmt.Errorf("no timer %q", name)
	}
	switch args[0] {
	case "stop":
		t.Stop()
	case "status":
		fmt.Fprintf(s.out, "timer %s: status %d\n", name, t.StatusGet())
	default:
		return fmt.Errorf("unknown timer command %q", args[0])
	}
	return nil
}

func (s *simulator) list() {
	names := make([]string, 0, len(s.timeouts))
	for name, to := range s.timeouts {
		if s.q.Active(to) {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return s.q.Expires(s.timeouts[names[i]]) < s.q.Expires(s.timeouts[names[j]])
	})
	for _, name := range names {
		fmt.Fprintf(s.out, "%-12s expires at tick %d\n", name, s.q.Expires(s.timeouts[name]))
	}
	for name, t := range s.timers {
		if exp := t.ExpiresTicks(); exp != 0 {
			fmt.Fprintf(s.out, "%-12s timer, next expiry at tick %d, period %d\n", name, exp, t.Period())
		}
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "\nAvailable commands:")
	fmt.Fprintln(w, "  add <name> <ticks>                 - Queue a timeout")
	fmt.Fprintln(w, "  abort <name>                       - Abort a timeout")
	fmt.Fprintln(w, "  remaining <name>                   - Ticks (timeout) or ms (timer) left")
	fmt.Fprintln(w, "  tick <n>                           - Run the counter forward n ticks")
	fmt.Fprintln(w, "  advance <cycles>                   - Run the counter forward in cycles")
	fmt.Fprintln(w, "  uptime                             - Show uptime")
	fmt.Fprintln(w, "  next                               - Ticks to the next expiry")
	fmt.Fprintln(w, "  timer start <name> <ms> <period>   - Start a timer")
	fmt.Fprintln(w, "  timer stop|status <name>           - Stop or read a timer")
	fmt.Fprintln(w, "  slice <ms>                         - Set the time slice (0 = off)")
	fmt.Fprintln(w, "  list                               - Show pending timeouts and timers")
	fmt.Fprintln(w, "  dump                               - Dump the timing ring")
	fmt.Fprintln(w, "  quit/exit/q                        - Exit")
	fmt.Fprintln(w)
}
