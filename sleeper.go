package asyncrt

import "time"

// sleepFuture is the Future[struct{}] behind Sleep. It registers a timer
// slot on first poll and resolves once the stored deadline has actually
// passed; Cancel revokes the slot if the sleep is abandoned (a losing
// select branch, or a Conn deadline superseded by I/O completing first).
type sleepFuture struct {
	ex     *Executor
	d      time.Duration
	wakeAt time.Time
	guard  *TimerGuard
	fired  bool
	armed  bool
}

func (f *sleepFuture) Poll(cx *Context) (struct{}, bool) {
	if f.fired {
		return struct{}{}, true
	}
	if !f.armed {
		f.armed = true
		f.wakeAt = time.Now().Add(f.d)
		f.guard = f.ex.addTimer(f.d, cx.Waker().Clone())
		return struct{}{}, false
	}
	// Reaching a second poll doesn't by itself mean the timer fired: this
	// future may be a sibling Select branch, re-polled because a different
	// branch's waker fired on the same shared Context. Only resolve once
	// the deadline has actually passed (spec §4.11); otherwise the timer
	// slot registered above is still live and will wake us again.
	if time.Now().Before(f.wakeAt) {
		return struct{}{}, false
	}
	f.fired = true
	return struct{}{}, true
}

func (f *sleepFuture) Cancel() {
	if f.guard != nil {
		f.guard.Release()
	}
}

// Sleep returns a future that resolves after d elapses (spec §4.11:
// Sleeper). Intended for use with Spawn/await-style polling loops or as a
// select branch racing against I/O.
func Sleep(ex *Executor, d time.Duration) Future[struct{}] {
	return &sleepFuture{ex: ex, d: d}
}

// YieldNow returns a future that completes on the executor's next
// ready-queue pass, after every task currently ready has had a turn.
func YieldNow(ex *Executor) Future[struct{}] {
	done := false
	return PollFn(func(cx *Context) (struct{}, bool) {
		if done {
			return struct{}{}, true
		}
		done = true
		cx.Waker().Clone().Wake(ex)
		return struct{}{}, false
	})
}
