//go:build !tinygo

package core

import (
	"sync"

	"github.com/petermattis/goid"
)

// State is a placeholder for interrupt state on regular Go
type State uintptr

// disableInterrupts is a no-op on regular Go, the spinlock provides exclusion
func disableInterrupts() State {
	return 0
}

// restoreInterrupts is a no-op on regular Go
func restoreInterrupts(state State) {}

// On the host, "interrupt context" is whichever goroutine is running
// Queue.Announce on behalf of a clock source.
var (
	isrMu    sync.Mutex
	isrDepth = make(map[int64]int)
)

func enterInterrupt() {
	id := goid.Get()
	isrMu.Lock()
	isrDepth[id]++
	isrMu.Unlock()
}

func exitInterrupt() {
	id := goid.Get()
	isrMu.Lock()
	if isrDepth[id] <= 1 {
		delete(isrDepth, id)
	} else {
		isrDepth[id]--
	}
	isrMu.Unlock()
}

// InInterrupt reports whether the caller is running in interrupt context
func InInterrupt() bool {
	id := goid.Get()
	isrMu.Lock()
	n := isrDepth[id]
	isrMu.Unlock()
	return n > 0
}
