package asyncrt

// AsyncMutex is a cooperative mutual-exclusion lock (spec §4.7). Every
// primitive in this file is confined to a single Executor's goroutine, so
// state is plain fields, not atomics: the concurrency this package
// provides is between tasks on one executor, not between OS threads (see
// doc.go, Thread confinement).
//
// Unlock uses barging semantics: it clears the locked flag and wakes the
// longest-waiting task, but does not hand the lock to it directly. Any
// task's Lock().Poll re-CASes on every call, so a task that calls Lock
// after Unlock but before the woken waiter is repolled can acquire first.
// This keeps AsyncMutex lock-free and starvation is bounded only by the
// executor's FIFO ready-queue fairness (spec §8 property 7), not by the
// mutex itself.
type AsyncMutex struct {
	locked  bool
	waiters *WakerSet
}

// NewAsyncMutex constructs an unlocked AsyncMutex.
func NewAsyncMutex() *AsyncMutex {
	return &AsyncMutex{waiters: NewWakerSet()}
}

// MutexGuard is returned by a successful Lock; Unlock releases it.
type MutexGuard struct {
	m *AsyncMutex
}

// Unlock releases the lock and wakes one waiter, if any.
func (g *MutexGuard) Unlock(ex *Executor) {
	g.m.locked = false
	if w, ok := g.m.waiters.Pop(); ok {
		w.Wake(ex)
	}
}

type mutexAcquireFuture struct {
	m          *AsyncMutex
	guard      *WakerGuard
	registered bool
}

func (f *mutexAcquireFuture) Poll(cx *Context) (*MutexGuard, bool) {
	if !f.m.locked {
		f.m.locked = true
		if f.registered {
			f.guard.Release()
		}
		return &MutexGuard{m: f.m}, true
	}
	// A waiter that was woken and then lost the race (barged) was already
	// popped out of waiters by the Unlock that woke it, so it must
	// re-register here or it would sit in no WakerSet at all and never be
	// woken again (spec §4.7's barging is explicitly permitted, but the
	// barged waiter must still get another turn).
	id := cx.Waker().TaskID()
	if !f.registered || !f.m.waiters.Contains(id) {
		f.guard = f.m.waiters.AddWithDropper(cx.Waker().Clone())
		f.registered = true
	}
	return nil, false
}

func (f *mutexAcquireFuture) Cancel() {
	if f.guard != nil {
		f.guard.Release()
	}
}

// Lock returns a future that resolves to a MutexGuard once the lock is
// acquired.
func (m *AsyncMutex) Lock() Future[*MutexGuard] {
	return &mutexAcquireFuture{m: m}
}

// TryLock attempts to acquire the lock without waiting, returning nil if
// it's already held.
func (m *AsyncMutex) TryLock() *MutexGuard {
	if m.locked {
		return nil
	}
	m.locked = true
	return &MutexGuard{m: m}
}
