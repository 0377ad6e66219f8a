package asyncrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitThenRecordFuture waits on g, then appends idx to out.
type waitThenRecordFuture struct {
	g   *WaitGroup
	idx int
	out *[]int

	waitFut Future[struct{}]
}

func (f *waitThenRecordFuture) Poll(cx *Context) (struct{}, bool) {
	if f.waitFut == nil {
		f.waitFut = f.g.Wait()
	}
	if _, ready := f.waitFut.Poll(cx); !ready {
		return struct{}{}, false
	}
	*f.out = append(*f.out, f.idx)
	return struct{}{}, true
}

// TestWaitGroupResolvesOnceCountReachesZero is spec §8's join-barrier
// property: every Wait resolves exactly once all outstanding work Done()s.
func TestWaitGroupResolvesOnceCountReachesZero(t *testing.T) {
	ex, err := NewExecutor()
	require.NoError(t, err)
	defer ex.Close()

	g := NewWaitGroup()
	g.Add(ex, 3)

	var out []int
	for i := 0; i < 2; i++ {
		Spawn(ex, &waitThenRecordFuture{g: g, idx: i, out: &out})
	}
	for i := 0; i < 3; i++ {
		Spawn(ex, PollFn(func(cx *Context) (struct{}, bool) {
			g.Done(ex)
			return struct{}{}, true
		}))
	}

	require.NoError(t, ex.Run())
	assert.Len(t, out, 2, "want both waiters to observe completion")
}

// TestWaitGroupWaitOnAlreadyZeroResolvesImmediately documents the
// divergence from sync.WaitGroup noted on WaitGroup: Wait may be called
// any number of times, including after the count already reached zero.
func TestWaitGroupWaitOnAlreadyZeroResolvesImmediately(t *testing.T) {
	g := NewWaitGroup()
	cx := &Context{waker: newTestWaker(1, nil)}
	_, ready := g.Wait().Poll(cx)
	assert.True(t, ready, "expected Wait on a zero-count WaitGroup to resolve immediately")
}

func TestWaitGroupAddNegativeBelowZeroPanics(t *testing.T) {
	defer func() {
		assert.NotNil(t, recover(), "expected panic on negative WaitGroup count")
	}()
	g := NewWaitGroup()
	g.Add(nil, -1)
}

func TestWaitGroupCancelledWaitRemovesRegistration(t *testing.T) {
	g := NewWaitGroup()
	g.Add(nil, 1)
	cx := &Context{waker: newTestWaker(1, nil)}
	fut := g.Wait().(*waitGroupFuture)
	_, ready := fut.Poll(cx)
	require.False(t, ready, "expected Wait to block while count is nonzero")
	require.Equal(t, 1, g.waiters.Len(), "want one registered waiter")

	fut.Cancel()
	assert.Zero(t, g.waiters.Len(), "cancelling Wait must deregister it")
}
