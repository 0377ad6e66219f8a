package asyncrt

// AsyncSemaphore is a cooperative counting semaphore (spec §4.8). Like
// AsyncMutex, it is confined to a single executor's goroutine and uses
// barging semantics: Release increments the count and wakes the
// longest-waiting task, but any task's Acquire re-checks the count on
// every poll, so whichever is polled first gets the permit.
type AsyncSemaphore struct {
	permits int
	waiters *WakerSet
}

// NewAsyncSemaphore constructs a semaphore with the given initial permit
// count.
func NewAsyncSemaphore(initial int) *AsyncSemaphore {
	return &AsyncSemaphore{permits: initial, waiters: NewWakerSet()}
}

// Release returns one permit to the semaphore and wakes one waiter, if
// any.
func (s *AsyncSemaphore) Release(ex *Executor) {
	s.permits++
	if w, ok := s.waiters.Pop(); ok {
		w.Wake(ex)
	}
}

type semaphoreAcquireFuture struct {
	s          *AsyncSemaphore
	guard      *WakerGuard
	registered bool
}

func (f *semaphoreAcquireFuture) Poll(cx *Context) (struct{}, bool) {
	if f.s.permits > 0 {
		f.s.permits--
		if f.registered {
			f.guard.Release()
		}
		return struct{}{}, true
	}
	// A waiter that was woken and then lost the race (barged) was already
	// popped out of waiters by the Release that woke it, so it must
	// re-register here or it would sit in no WakerSet at all and never be
	// woken again (spec §4.8's barging is explicitly permitted, but the
	// barged waiter must still get another turn).
	id := cx.Waker().TaskID()
	if !f.registered || !f.s.waiters.Contains(id) {
		f.guard = f.s.waiters.AddWithDropper(cx.Waker().Clone())
		f.registered = true
	}
	return struct{}{}, false
}

func (f *semaphoreAcquireFuture) Cancel() {
	if f.guard != nil {
		f.guard.Release()
	}
}

// Acquire returns a future that resolves once a permit is available.
func (s *AsyncSemaphore) Acquire() Future[struct{}] {
	return &semaphoreAcquireFuture{s: s}
}

// TryAcquire takes a permit immediately if available, reporting whether it
// succeeded.
func (s *AsyncSemaphore) TryAcquire() bool {
	if s.permits > 0 {
		s.permits--
		return true
	}
	return false
}
