//go:build tinygo

package core

import "runtime/interrupt"

// State is the saved interrupt mask
type State = interrupt.State

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state State) {
	interrupt.Restore(state)
}

// Announce already runs inside the clock ISR on hardware.
func enterInterrupt() {}

func exitInterrupt() {}

// InInterrupt reports whether the caller is running in interrupt context
func InInterrupt() bool {
	return interrupt.In()
}
