package asyncrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// notifierWaitRecordFuture waits on n, then appends idx to out.
type notifierWaitRecordFuture struct {
	n   *Notifier
	idx int
	out *[]int

	waitFut Future[struct{}]
	done    bool
}

func (f *notifierWaitRecordFuture) Poll(cx *Context) (struct{}, bool) {
	if f.done {
		return struct{}{}, true
	}
	if f.waitFut == nil {
		f.waitFut = f.n.Wait()
	}
	if _, ready := f.waitFut.Poll(cx); !ready {
		return struct{}{}, false
	}
	*f.out = append(*f.out, f.idx)
	f.done = true
	return struct{}{}, true
}

// TestNotifierNotifyWakesOneWaiter checks that Notify wakes exactly one of
// several waiters, leaving the rest still registered.
func TestNotifierNotifyWakesOneWaiter(t *testing.T) {
	n := NewNotifier()
	var out []int
	ex, err := NewExecutor()
	require.NoError(t, err)
	defer ex.Close()

	var tasks []*notifierWaitRecordFuture
	for i := 0; i < 3; i++ {
		f := &notifierWaitRecordFuture{n: n, idx: i, out: &out}
		tasks = append(tasks, f)
		Spawn(ex, f)
	}

	// Spawned after the waiters, so every waiter is registered on the
	// notifier by the time this task first runs. It notifies once, requeues
	// itself behind the woken waiter, and then records how many waiters
	// ran. Run only returns once no task is live, so it finally releases
	// the two waiters still registered with NotifyAll.
	notified := false
	woken, stillWaiting := -1, -1
	Spawn(ex, PollFn(func(cx *Context) (struct{}, bool) {
		if !notified {
			if n.Waiting() < 3 {
				return struct{}{}, false
			}
			n.Notify(ex)
			notified = true
			cx.Waker().WakeByRef(ex)
			return struct{}{}, false
		}
		woken, stillWaiting = len(out), n.Waiting()
		n.NotifyAll(ex)
		return struct{}{}, true
	}))

	require.NoError(t, ex.Run())
	assert.Equal(t, 1, woken, "want exactly one waiter woken")
	assert.Equal(t, 2, stillWaiting, "want the other two waiters still registered")
}

func TestNotifierNotifyAllWakesEveryWaiter(t *testing.T) {
	n := NewNotifier()
	var out []int
	ex, err := NewExecutor()
	require.NoError(t, err)
	defer ex.Close()

	for i := 0; i < 3; i++ {
		Spawn(ex, &notifierWaitRecordFuture{n: n, idx: i, out: &out})
	}
	Spawn(ex, PollFn(func(cx *Context) (struct{}, bool) {
		if n.Waiting() < 3 {
			return struct{}{}, false
		}
		n.NotifyAll(ex)
		return struct{}{}, true
	}))

	require.NoError(t, ex.Run())
	assert.Len(t, out, 3, "want all three waiters woken")
}

// TestNotifierNotifyBeforeWaitIsLost pins the condition-variable semantics
// documented on Notifier: a Notify with no registered waiter is a no-op,
// it does not accumulate like a WaitGroup/Semaphore permit.
func TestNotifierNotifyBeforeWaitIsLost(t *testing.T) {
	n := NewNotifier()
	n.Notify(nil) // no waiters yet; must not panic, must not queue anything

	cx := &Context{waker: newTestWaker(1, nil)}
	fut := n.Wait()
	_, ready := fut.Poll(cx)
	assert.False(t, ready, "expected Wait to block: the earlier Notify must not have been buffered")
}

func TestNotifierCancelledWaitRemovesRegistration(t *testing.T) {
	n := NewNotifier()
	cx := &Context{waker: newTestWaker(1, nil)}
	fut := n.Wait().(*notifierWaitFuture)
	_, ready := fut.Poll(cx)
	require.False(t, ready, "expected first poll to register and block")
	require.Equal(t, 1, n.Waiting(), "want one registered waiter")

	fut.Cancel()
	assert.Zero(t, n.Waiting(), "cancelling Wait must deregister it")
}
