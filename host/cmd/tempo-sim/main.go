// Command tempo-sim is an interactive simulator for the kernel timeout
// queue running on a simulated hardware counter.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"tempo/config"
	"tempo/host/logging"
)

var (
	configPath = flag.String("config", "", "JSON configuration file")
	bits       = flag.Uint("bits", 0, "Counter width override (1-32)")
	verbose    = flag.Bool("verbose", false, "Log kernel debug output")
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
	if *bits != 0 {
		cfg.Counter.Bits = *bits
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logging.Install(log)

	sim, err := newSimulator(cfg, os.Stdout, log)
	if err != nil {
		log.Fatal("simulator setup failed", zap.Error(err))
	}
	log.Info("simulator ready",
		zap.Uint("bits", cfg.Counter.Bits),
		zap.Uint32("cycles_per_tick", cfg.Counter.CyclesPerTick),
		zap.Int64("max_ticks", sim.counter.MaxTicks()))

	fmt.Println("tempo simulator (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if err := sim.run(args); err != nil {
			if errors.Is(err, errQuit) {
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		log.Error("reading input", zap.Error(err))
		os.Exit(1)
	}
}
