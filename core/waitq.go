package core

// WakeReason tells a parked goroutine why it was released
type WakeReason uint8

const (
	WakeExpired WakeReason = iota + 1
	WakeStopped
)

type waiter struct {
	wake chan WakeReason
	next *waiter
}

// waitQueue is a FIFO of parked goroutines. It has no lock of its own;
// the owning object's spinlock protects it.
type waitQueue struct {
	head *waiter
	tail *waiter
	len  int
}

// pend appends a waiter; the caller blocks on w.wake after dropping its lock
func (wq *waitQueue) pend() *waiter {
	w := &waiter{wake: make(chan WakeReason, 1)}
	if wq.head == nil {
		wq.head = w
		wq.tail = w
	} else {
		wq.tail.next = w
		wq.tail = w
	}
	wq.len++
	return w
}

func (wq *waitQueue) pop() *waiter {
	w := wq.head
	if w == nil {
		return nil
	}
	wq.head = w.next
	if wq.head == nil {
		wq.tail = nil
	}
	w.next = nil
	wq.len--
	return w
}

// wakeOne releases the longest waiting goroutine
func (wq *waitQueue) wakeOne(reason WakeReason) bool {
	w := wq.pop()
	if w == nil {
		return false
	}
	w.wake <- reason
	return true
}

// wakeAll releases every waiter and returns how many there were
func (wq *waitQueue) wakeAll(reason WakeReason) int {
	n := 0
	for w := wq.pop(); w != nil; w = wq.pop() {
		w.wake <- reason
		n++
	}
	return n
}
