package asyncrt

import (
	"container/heap"
	"time"
)

// timerSlot is one entry in the PriorityTimerQueue. revoked entries are
// left in place and lazily discarded on pop/peek rather than removed
// eagerly from the heap's interior (spec §4.4: "revocable waker slots,
// lazy discard of revoked entries" -- removing from the middle of a binary
// heap is O(n); marking dead and skipping on pop keeps cancellation O(log
// n) amortized).
type timerSlot struct {
	wakeAt  time.Time
	waker   Waker
	revoked bool
	seq     uint64 // tie-break for equal deadlines, preserves insertion order
	index   int    // heap.Interface bookkeeping
}

type timerHeap []*timerSlot

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].wakeAt.Equal(h[j].wakeAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].wakeAt.Before(h[j].wakeAt)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	s := x.(*timerSlot)
	s.index = len(*h)
	*h = append(*h, s)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.index = -1
	*h = old[:n-1]
	return s
}

// PriorityTimerQueue is the executor's min-heap of pending deadlines (spec
// §4.4). Every Sleeper and every Conn deadline holds one slot.
type PriorityTimerQueue struct {
	h       timerHeap
	nextSeq uint64
}

// NewPriorityTimerQueue constructs an empty timer queue.
func NewPriorityTimerQueue() *PriorityTimerQueue {
	return &PriorityTimerQueue{}
}

// TimerGuard revokes its timer slot on Release, preventing it from firing.
// Releasing after the timer has already fired (been popped by PopExpired)
// is a safe no-op.
type TimerGuard struct {
	slot *timerSlot
}

// Release revokes the timer slot. The slot is discarded lazily the next
// time it's encountered at the top of the heap.
func (g *TimerGuard) Release() {
	if g != nil && g.slot != nil {
		g.slot.revoked = true
	}
}

// Add schedules w to be woken at wakeAt, returning a guard that cancels it.
func (q *PriorityTimerQueue) Add(wakeAt time.Time, w Waker) *TimerGuard {
	q.nextSeq++
	slot := &timerSlot{wakeAt: wakeAt, waker: w, seq: q.nextSeq}
	heap.Push(&q.h, slot)
	return &TimerGuard{slot: slot}
}

// discardRevoked pops and releases revoked entries off the top of the
// heap, leaving the first live entry (if any) at the top.
func (q *PriorityTimerQueue) discardRevoked() {
	for len(q.h) > 0 {
		top := q.h[0]
		if !top.revoked {
			return
		}
		heap.Pop(&q.h)
		top.waker.Release()
	}
}

// NextDeadline returns the earliest live deadline in the queue, if any.
// Used by the Poller to bound its OS wait (spec §4.3).
func (q *PriorityTimerQueue) NextDeadline() (time.Time, bool) {
	q.discardRevoked()
	if len(q.h) == 0 {
		return time.Time{}, false
	}
	return q.h[0].wakeAt, true
}

// PopExpired removes and returns, in increasing-deadline order, every live
// waker whose deadline is at or before now.
func (q *PriorityTimerQueue) PopExpired(now time.Time) []Waker {
	var out []Waker
	for {
		q.discardRevoked()
		if len(q.h) == 0 || q.h[0].wakeAt.After(now) {
			return out
		}
		slot := heap.Pop(&q.h).(*timerSlot)
		out = append(out, slot.waker)
	}
}

// Len reports the total number of slots, including not-yet-discarded
// revoked ones.
func (q *PriorityTimerQueue) Len() int { return len(q.h) }
