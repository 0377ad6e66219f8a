package asyncrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selectRaceFuture races two Sleeps via Select and records the winning
// branch index. The Select (and the Sleeps underneath it) is built once,
// on first poll, and then reused across every subsequent poll -- unlike a
// stateless PollFn, which would hand Select a brand-new, never-armed Sleep
// pair on every call and could never observe a deadline passing.
type selectRaceFuture struct {
	ex         *Executor
	fast, slow time.Duration
	winner     *int

	sel Future[SelectResult]
}

func (f *selectRaceFuture) Poll(cx *Context) (struct{}, bool) {
	if f.sel == nil {
		f.sel = Select(Case(Sleep(f.ex, f.fast)), Case(Sleep(f.ex, f.slow)))
	}
	res, ready := f.sel.Poll(cx)
	if !ready {
		return struct{}{}, false
	}
	*f.winner = res.Index
	return struct{}{}, true
}

// TestSelectResolvesOnFasterBranch is scenario S3 (spec §8): two sleepers
// raced via Select, only the faster one's body should run.
func TestSelectResolvesOnFasterBranch(t *testing.T) {
	ex, err := NewExecutor()
	require.NoError(t, err)
	defer ex.Close()

	var winner int
	Spawn(ex, &selectRaceFuture{ex: ex, fast: 5 * time.Millisecond, slow: 20 * time.Millisecond, winner: &winner})

	require.NoError(t, ex.Run())
	assert.Equal(t, 0, winner, "want the faster branch (index 0) to win")
}

// TestSelectCancelsLosingBranch is spec §4.10's cancellation-of-losing-
// branches contract: once one branch wins, every other branch's Cancel is
// invoked, here observed via the mutex waiter it leaves behind (or not).
func TestSelectCancelsLosingBranch(t *testing.T) {
	// Notify wakes the notifier branch's waker onto an executor's ready
	// queue, so it needs a real one; Run is never called.
	ex, err := NewExecutor()
	require.NoError(t, err)
	defer ex.Close()

	mu := NewAsyncMutex()
	mu.locked = true // force the Lock branch to block
	notifier := NewNotifier()

	sel := Select(Case(mu.Lock()), Case(notifier.Wait()))
	cx := &Context{waker: newTestWaker(1, nil)}
	_, ready := sel.Poll(cx)
	require.False(t, ready, "expected Select to block: both branches pending")
	require.Equal(t, 1, mu.waiters.Len(), "expected the Lock branch to have registered a waiter")

	notifier.Notify(ex)
	res, ready := sel.Poll(cx)
	require.True(t, ready, "expected Select to resolve once the notifier branch is ready")
	assert.Equal(t, 1, res.Index, "want notifier branch (index 1) to win")
	assert.Zero(t, mu.waiters.Len(), "expected the losing Lock branch to be cancelled, leaving no waiter behind")
}
