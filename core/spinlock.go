package core

import (
	"runtime"
	"sync/atomic"
)

// spinlock is the interrupt-safe, non-sleeping lock used for all queue and
// timer state. Holders must never block or call into a clock source that
// could call back into the queue.
type spinlock uint32

const maxBackoff = 16

func (sl *spinlock) lock() State {
	state := disableInterrupts()
	backoff := 1
	for !atomic.CompareAndSwapUint32((*uint32)(sl), 0, 1) {
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < maxBackoff {
			backoff <<= 1
		}
	}
	return state
}

func (sl *spinlock) unlock(state State) {
	atomic.StoreUint32((*uint32)(sl), 0)
	restoreInterrupts(state)
}
