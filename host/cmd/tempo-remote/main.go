// Command tempo-remote runs the kernel timeout queue on the counter of a
// remote clock MCU attached over serial.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"tempo/clock"
	"tempo/config"
	"tempo/core"
	"tempo/host/logging"
	"tempo/host/mcu"
	"tempo/host/serial"
)

var (
	configPath  = flag.String("config", "", "JSON configuration file")
	device      = flag.String("device", "", "Serial device path (overrides config)")
	heartbeatMs = flag.Uint("heartbeat", 1000, "Heartbeat timer period in ms")
	pollMs      = flag.Uint("poll", 250, "Counter poll interval in ms")
	interactive = flag.Bool("i", false, "Read commands from stdin")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logging.Install(log)
	core.InitAsyncDebug()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("exiting", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	m, err := mcu.Connect(connCtx, serial.FromConfig(cfg.Serial), log)
	cancel()
	if err != nil {
		return err
	}
	defer m.Close()

	counter, err := clock.NewCounter(m, cfg.Counter.Bits, cfg.Counter.CyclesPerTick)
	if err != nil {
		return fmt.Errorf("counter: %w", err)
	}
	q := core.Init(counter, cfg.Kernel)
	counter.Attach(q)
	m.OnAlarm(counter.Interrupt)
	q.Idle()

	go m.Poll(ctx, time.Duration(*pollMs)*time.Millisecond)

	beats := make(chan uint64, 1)
	var heartbeat core.Timer
	heartbeat.Init(q, func(*core.Timer) {
		select {
		case beats <- core.GetUptimeMs():
		default:
		}
	}, nil)
	heartbeat.StartMs(uint32(*heartbeatMs), uint32(*heartbeatMs))

	log.Info("running",
		zap.String("device", cfg.Serial.Device),
		zap.Uint32("cycles_per_tick", cfg.Counter.CyclesPerTick),
		zap.Bool("precise_conversion", core.PreciseConversion))

	if *interactive {
		go readCommands(ctx, q, &heartbeat, m, log)
	}

loop:
	for {
		select {
		case ms := <-beats:
			log.Info("heartbeat", zap.Uint64("uptime_ms", ms), zap.Uint32("expiries", heartbeat.StatusGet()))
		case <-ctx.Done():
			break loop
		}
	}
	heartbeat.Stop()
	log.Info("shutting down",
		zap.Uint64("uptime_ms", q.UptimeMs()),
		zap.Uint64("alarms", m.Alarms()),
		zap.Uint32("bad_frames", m.BadFrames()))
	core.DumpTimingRing()
	return nil
}

// readCommands serves a small interactive console until stdin closes
func readCommands(ctx context.Context, q *core.Queue, hb *core.Timer, m *mcu.MCU, log *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		args, err := shlex.Split(scanner.Text())
		if err != nil || len(args) == 0 {
			continue
		}
		switch args[0] {
		case "get_clock":
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			count, err := m.Sync(sctx)
			cancel()
			if err != nil {
				log.Warn("get_clock failed", zap.Error(err))
				continue
			}
			fmt.Printf("clock: %d\n", count)
		case "uptime":
			fmt.Printf("uptime: %d ticks (%d ms)\n", q.Uptime(), q.UptimeMs())
		case "status":
			fmt.Printf("heartbeat: %d expiries, next in %d ms\n", hb.StatusGet(), hb.RemainingGet())
		case "wait":
			fmt.Printf("heartbeat: %d\n", hb.StatusSync())
		case "dump":
			core.DumpTimingRing()
		default:
			fmt.Println("commands: get_clock uptime status wait dump")
		}
	}
}
