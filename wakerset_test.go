package asyncrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWaker(id TaskID, clear func()) Waker {
	if clear == nil {
		clear = func() {}
	}
	return Waker{handle: newTaskHandle(id, clear)}
}

func TestWakerSetFIFOOrder(t *testing.T) {
	s := NewWakerSet()
	s.Add(newTestWaker(1, nil))
	s.Add(newTestWaker(2, nil))
	s.Add(newTestWaker(3, nil))

	var order []TaskID
	for {
		w, ok := s.Pop()
		if !ok {
			break
		}
		order = append(order, w.TaskID())
	}
	assert.Equal(t, []TaskID{1, 2, 3}, order)
}

func TestWakerSetContainsReflectsDelivery(t *testing.T) {
	s := NewWakerSet()
	s.Add(newTestWaker(5, nil))
	require.True(t, s.Contains(5), "expected 5 to be registered")

	w, ok := s.Pop()
	require.True(t, ok)
	require.Equal(t, TaskID(5), w.TaskID())
	assert.False(t, s.Contains(5), "delivered waker must be absent from the set (readiness-by-absence contract)")
}

// TestWakerGuardReleaseIsCancellationSafe is spec §8 property 3: dropping a
// future (releasing its guard) must leave no waker in the set.
func TestWakerGuardReleaseIsCancellationSafe(t *testing.T) {
	released := 0
	s := NewWakerSet()
	w := newTestWaker(7, func() { released++ })
	guard := s.AddWithDropper(w)
	require.True(t, s.Contains(7), "expected 7 to be registered")

	guard.Release()
	assert.False(t, s.Contains(7), "guard release must remove the waker from the set")
	assert.Equal(t, 1, released, "guard release must release the waker's task reference")

	// Idempotent.
	guard.Release()
	assert.Equal(t, 1, released, "second release must be a no-op")
}

func TestWakerGuardReleaseAfterDeliveryIsNoop(t *testing.T) {
	released := 0
	s := NewWakerSet()
	w := newTestWaker(9, func() { released++ })
	guard := s.AddWithDropper(w)
	popped, ok := s.Pop()
	require.True(t, ok)
	require.Equal(t, TaskID(9), popped.TaskID())

	// Pop already removed it; Release must not double-remove or panic.
	guard.Release()
	popped.Release()
	assert.Equal(t, 1, released, "want exactly one release")
}

func TestWakerSetDrainAllReturnsInsertionOrder(t *testing.T) {
	s := NewWakerSet()
	s.Add(newTestWaker(1, nil))
	s.Add(newTestWaker(2, nil))
	s.Add(newTestWaker(3, nil))
	all := s.DrainAll()
	require.Len(t, all, 3)
	for i, want := range []TaskID{1, 2, 3} {
		assert.Equal(t, want, all[i].TaskID(), "drain order mismatch at %d", i)
	}
	assert.Zero(t, s.Len(), "want empty set after drain")
}

func TestWakerSetAddReplacesExistingRegistrationForSameTask(t *testing.T) {
	firstReleased := 0
	s := NewWakerSet()
	s.Add(newTestWaker(1, func() { firstReleased++ }))
	s.Add(newTestWaker(1, nil))
	assert.Equal(t, 1, s.Len(), "want a single entry per TaskID")
	assert.Equal(t, 1, firstReleased, "replacing a registration must release the old waker")
}
