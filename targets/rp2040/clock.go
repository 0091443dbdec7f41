//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

// RP2040 TIMER peripheral. The TinyGo runtime sleeps on ALARM0, so the
// kernel counter uses ALARM2 and the remote clock service uses ALARM3.
const (
	timerBase     = 0x40054000
	timerALARM2   = timerBase + 0x18
	timerALARM3   = timerBase + 0x1C
	timerTIMERAWL = timerBase + 0x28
	timerINTR     = timerBase + 0x34
	timerINTE     = timerBase + 0x38

	alarm2Bit = 1 << 2
	alarm3Bit = 1 << 3
)

var (
	timerRAWL   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerAlarm2 = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM2)))
	timerAlarm3 = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM3)))
	timerIntr   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
)

// timerAlarm exposes one TIMER compare channel as a clock.Hardware. The
// raw low word is a free-running 32-bit microsecond counter; writing the
// alarm register arms it, and it fires once when the low word matches.
type timerAlarm struct {
	reg *volatile.Register32
}

func (a timerAlarm) Read() uint32 {
	return timerRAWL.Get()
}

func (a timerAlarm) SetAlarm(at uint32) {
	a.reg.Set(at)
}

var (
	kernelAlarm = timerAlarm{reg: timerAlarm2}
	remoteAlarm = timerAlarm{reg: timerAlarm3}

	kernelHandler func()
	remoteHandler func()
)

// InitClock routes the two alarm interrupts to their handlers
func InitClock(onKernel, onRemote func()) {
	kernelHandler = onKernel
	remoteHandler = onRemote

	timerIntr.Set(alarm2Bit | alarm3Bit)
	timerInte.SetBits(alarm2Bit | alarm3Bit)

	irq2 := interrupt.New(rp.IRQ_TIMER_IRQ_2, func(interrupt.Interrupt) {
		timerIntr.Set(alarm2Bit)
		if kernelHandler != nil {
			kernelHandler()
		}
	})
	irq2.SetPriority(0x40)
	irq2.Enable()

	irq3 := interrupt.New(rp.IRQ_TIMER_IRQ_3, func(interrupt.Interrupt) {
		timerIntr.Set(alarm3Bit)
		if remoteHandler != nil {
			remoteHandler()
		}
	})
	irq3.SetPriority(0x80)
	irq3.Enable()
}
