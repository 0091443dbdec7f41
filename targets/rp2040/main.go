//go:build rp2040

// Firmware for the RP2040: runs the kernel timeout queue on TIMER ALARM2
// and serves the remote clock protocol for tempo-remote on ALARM3.
package main

import (
	"machine"
	"sync/atomic"
	"time"

	"tempo/clock"
	"tempo/core"
	"tempo/protocol"
)

const blinkMs = 500

var (
	link *protocol.Link

	// remote alarm raised in the ISR, reported from the main loop
	alarmPending atomic.Bool
	alarmCount   atomic.Uint32

	msgerrors uint32
)

func main() {
	// Disable any watchdog left running across a reset
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()

	// Contract violations reset the chip instead of panicking
	core.SetFatalHandler(func(error) {
		resetViaWatchdog()
	})

	counter, err := clock.NewCounter(kernelAlarm, 32, core.HwCyclesPerSec/core.TicksPerSec)
	if err != nil {
		resetViaWatchdog()
	}
	q := core.Init(counter, core.DefaultConfig())
	counter.Attach(q)

	InitClock(counter.Interrupt, func() {
		alarmCount.Store(remoteAlarm.Read())
		alarmPending.Store(true)
	})

	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	var blink core.Timer
	blink.Init(q, func(*core.Timer) {
		machine.LED.Set(!machine.LED.Get())
	}, func(*core.Timer) {
		machine.LED.Low()
	})
	blink.StartMs(blinkMs, blinkMs)

	link = protocol.NewLink(usbStream{}, handleMessage)
	buf := make([]byte, 64)
	for {
		if n, _ := (usbStream{}).Read(buf); n > 0 {
			link.Receive(buf[:n])
		}

		if alarmPending.CompareAndSwap(true, false) {
			send(protocol.Message{ID: protocol.MsgAlarm, Args: []uint32{alarmCount.Load()}})
		}

		time.Sleep(100 * time.Microsecond)
	}
}

// handleMessage answers host requests; it runs on the main loop
func handleMessage(msg protocol.Message) {
	switch msg.ID {
	case protocol.MsgGetClock:
		send(protocol.Message{ID: protocol.MsgClock, Args: []uint32{remoteAlarm.Read()}})
	case protocol.MsgSetAlarm:
		remoteAlarm.SetAlarm(msg.Arg(0))
	}
}

func send(msg protocol.Message) {
	if err := link.Send(msg); err != nil {
		msgerrors++
	}
}

// resetViaWatchdog reboots the chip through a 1ms watchdog
func resetViaWatchdog() {
	if machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1}) == nil {
		machine.Watchdog.Start()
	}
	for {
		time.Sleep(time.Millisecond)
	}
}
