package asyncrt

// Future is the suspend/resume contract every async value in this package
// implements (spec §4.1's poll model, translated from Rust's Future/Poll).
// Poll returns (zero, false) when not yet ready -- having first registered
// cx.Waker() wherever progress will eventually be signalled -- or (v, true)
// once a result is available. A future must not be polled again after it
// has returned true.
type Future[T any] interface {
	Poll(cx *Context) (T, bool)
}

// pollFunc adapts a plain function to Future[T], mirroring the teacher's
// functional-option style for one-off futures.
type pollFunc[T any] struct {
	f func(cx *Context) (T, bool)
}

func (p pollFunc[T]) Poll(cx *Context) (T, bool) { return p.f(cx) }

// PollFn builds a Future[T] from a poll function directly, for futures with
// no state beyond what the closure captures.
func PollFn[T any](f func(cx *Context) (T, bool)) Future[T] {
	return pollFunc[T]{f: f}
}

// Cancellable is implemented by futures that hold a registration (a
// WakerSet membership, a timer slot, a pending acquire) that must be
// released if the future is abandoned before completing. select (§4.10)
// type-asserts losing branches against this interface and calls Cancel on
// them; Go has no destructors, so this is the explicit substitute for the
// Rust original's drop-guard semantics.
type Cancellable interface {
	Cancel()
}

// Context is the per-poll handle a future uses to obtain its Waker (spec
// §4.1's cx argument). It carries no other state: this runtime is strictly
// single-threaded per Executor, so there is no executor handle or
// task-local storage to thread through.
type Context struct {
	waker Waker
}

// Waker returns the Waker bound to the task currently being polled.
func (c *Context) Waker() Waker { return c.waker }

// Waker is a cloneable, wakeable handle to a suspended task (spec §4.1).
// Cloning increments the task's refcount; Release decrements it. Wake
// consumes the Waker (it implies a Release after re-scheduling); WakeByRef
// re-schedules without releasing, for call sites that need to wake more
// than once or continue holding the handle (e.g. a WakerSet iterating its
// members).
//
// The zero Waker is not valid; Wakers are only produced by the executor via
// Spawn or by cloning an existing Waker.
type Waker struct {
	handle *taskHandle
}

// TaskID recovers the identity of the task this Waker wakes, in O(1) and
// without any map lookup (spec's "Waker → TaskAttr identity" testable
// property, §8 property 2).
func (w Waker) TaskID() TaskID {
	if w.handle == nil {
		return 0
	}
	return w.handle.ID()
}

// Clone returns a new Waker referencing the same task, incrementing its
// refcount.
func (w Waker) Clone() Waker {
	if w.handle != nil {
		w.handle.retain()
	}
	return w
}

// Release drops this Waker's reference without waking the task. Every
// WakerSet/timer-slot/ready-queue entry holds exactly one Waker reference
// and must call either Release (discarded unfired) or Wake (fired) exactly
// once.
func (w Waker) Release() {
	if w.handle != nil {
		w.handle.release()
	}
}

// WakeByRef schedules the task for polling without releasing this Waker's
// reference. Waking an already-scheduled task enqueues it a second time,
// and the executor polls it once per queue entry (a spurious poll that
// returns Pending again); waking a task that has already completed is
// safe and does not poll its future again (see Spawn in executor.go).
func (w Waker) WakeByRef(ex *Executor) {
	if w.handle == nil {
		return
	}
	ex.schedule(w.Clone())
}

// Wake schedules the task for polling and then releases this Waker's
// reference, i.e. `w.WakeByRef(ex); w.Release()` but without the redundant
// clone.
func (w Waker) Wake(ex *Executor) {
	if w.handle == nil {
		return
	}
	ex.schedule(w)
}

// Valid reports whether this Waker refers to a live task handle.
func (w Waker) Valid() bool { return w.handle != nil }
