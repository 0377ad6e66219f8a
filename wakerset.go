package asyncrt

import "container/list"

// WakerSet is an insertion-ordered collection of Wakers keyed by TaskID
// (spec §4.5). Cooperative primitives (AsyncMutex, AsyncSemaphore,
// Notifier, WaitGroup, IoEvent) each hold one or more WakerSets to track
// who is waiting; a waiting future's readiness is detected by the absence
// of its TaskID from the set (see DESIGN.md, Open Question on delivery
// detection).
type WakerSet struct {
	order *list.List
	index map[TaskID]*list.Element
}

// NewWakerSet constructs an empty WakerSet.
func NewWakerSet() *WakerSet {
	return &WakerSet{
		order: list.New(),
		index: make(map[TaskID]*list.Element),
	}
}

// Add inserts w at the back of the set. If a waker for the same TaskID is
// already present, it is released and replaced -- a task can only be
// waiting on one registration per WakerSet at a time.
func (s *WakerSet) Add(w Waker) {
	id := w.TaskID()
	if elem, ok := s.index[id]; ok {
		elem.Value.(Waker).Release()
		elem.Value = w
		return
	}
	elem := s.order.PushBack(w)
	s.index[id] = elem
}

// WakerGuard is the drop-guard returned by AddWithDropper (spec §4.5:
// "add_with_dropper produces an RAII guard for cancellation safety").
// Release is idempotent and must be called when the waiting future is
// abandoned before the waker fires, so the set doesn't retain a reference
// to a task that's no longer listening.
type WakerGuard struct {
	set      *WakerSet
	id       TaskID
	released bool
}

// Release removes the guarded entry from its WakerSet, if still present,
// and releases the waker reference it held. Safe to call multiple times
// and safe to call after the entry already fired (Pop/DrainAll/Remove).
func (g *WakerGuard) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	if w, ok := g.set.remove(g.id); ok {
		w.Release()
	}
}

// AddWithDropper inserts w and returns a guard that removes it on demand.
func (s *WakerSet) AddWithDropper(w Waker) *WakerGuard {
	s.Add(w)
	return &WakerGuard{set: s, id: w.TaskID()}
}

// remove deletes the entry for id without releasing its waker (the caller
// already owns that reference via a guard, or is about to Wake it).
func (s *WakerSet) remove(id TaskID) (Waker, bool) {
	elem, ok := s.index[id]
	if !ok {
		return Waker{}, false
	}
	delete(s.index, id)
	s.order.Remove(elem)
	return elem.Value.(Waker), true
}

// Remove deletes and releases the entry for id, if present.
func (s *WakerSet) Remove(id TaskID) {
	if w, ok := s.remove(id); ok {
		w.Release()
	}
}

// Contains reports whether id is currently registered in the set. Futures
// waiting on a WakerSet-backed primitive poll this (inverted) as their
// readiness check: once the primitive has delivered to a task, it removes
// that task from the set, and the next poll observes the absence.
func (s *WakerSet) Contains(id TaskID) bool {
	_, ok := s.index[id]
	return ok
}

// Len reports the number of registered wakers.
func (s *WakerSet) Len() int { return s.order.Len() }

// Pop removes and returns the oldest (front) entry, without releasing it --
// ownership of the single reference transfers to the caller, who must wake
// or release it. Used by primitives that hand off to exactly one waiter at
// a time (AsyncMutex unlock, AsyncSemaphore release).
func (s *WakerSet) Pop() (Waker, bool) {
	front := s.order.Front()
	if front == nil {
		return Waker{}, false
	}
	w := front.Value.(Waker)
	delete(s.index, w.TaskID())
	s.order.Remove(front)
	return w, true
}

// DrainAll removes and returns every entry in insertion order, without
// releasing them. Used by primitives that wake every waiter at once
// (Notifier.NotifyAll, WaitGroup completion).
func (s *WakerSet) DrainAll() []Waker {
	out := make([]Waker, 0, s.order.Len())
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(Waker))
	}
	s.order.Init()
	s.index = make(map[TaskID]*list.Element)
	return out
}
