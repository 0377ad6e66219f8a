package asyncrt

// Event is a readiness interest bitmask (spec §4.3/§9: IOEvents, translated
// from the teacher's IOEvents type).
type Event uint8

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead Event = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
)

// FoldEvents combines a list of interests into one mask, resolving the
// spec §9 open question ("Event::to_interests as a reducing fold"):
// folding is associative and commutative, so combining N waiters' current
// interests is just an OR-reduce. Returns ok == false for an empty list,
// so callers can distinguish "no interest" from "interest in nothing".
func FoldEvents(events []Event) (mask Event, ok bool) {
	for _, e := range events {
		mask |= e
	}
	return mask, len(events) > 0
}

// IoEvent is the heap-resident per-fd record the spec calls for (§4.3):
// one IoEvent per registered file descriptor, holding a WakerSet of
// readers and one of writers. Readiness is delivered by draining the
// relevant set when the poller reports the fd ready; a waiting future
// detects delivery by the absence of its own TaskID from the set (see
// WakerSet and DESIGN.md).
type IoEvent struct {
	fd      int
	readers *WakerSet
	writers *WakerSet

	// osRegistered is the interest mask currently registered with the OS
	// poller for this fd (0 if not registered at all). Owned exclusively
	// by Poller.updateInterest.
	osRegistered Event
}

func newIoEvent(fd int) *IoEvent {
	return &IoEvent{fd: fd, readers: NewWakerSet(), writers: NewWakerSet()}
}

func (e *IoEvent) setFor(ev Event) *WakerSet {
	if ev == EventWrite {
		return e.writers
	}
	return e.readers
}

// interest returns the combined interest mask this IoEvent currently
// needs registered with the OS poller, derived from whether either
// WakerSet is non-empty.
func (e *IoEvent) interest() Event {
	var mask Event
	if e.readers.Len() > 0 {
		mask |= EventRead
	}
	if e.writers.Len() > 0 {
		mask |= EventWrite
	}
	return mask
}

// deliver drains the WakerSet(s) matching ready and schedules every waiter
// found there onto the executor.
func (e *IoEvent) deliver(ex *Executor, ready Event) {
	if ready&EventRead != 0 {
		for _, w := range e.readers.DrainAll() {
			w.Wake(ex)
		}
	}
	if ready&EventWrite != 0 {
		for _, w := range e.writers.DrainAll() {
			w.Wake(ex)
		}
	}
}

// ioReadyFuture is the Future[struct{}] returned by Executor.Readable and
// Executor.Writable. Poll registers interest on first call and thereafter
// checks for delivery by absence from the WakerSet; Cancel releases the
// registration if the future is abandoned (e.g. a losing select branch or
// a Conn deadline firing first).
type ioReadyFuture struct {
	ex         *Executor
	io         *IoEvent
	ev         Event
	guard      *WakerGuard
	registered bool
}

func (f *ioReadyFuture) Poll(cx *Context) (struct{}, bool) {
	id := cx.Waker().TaskID()
	set := f.io.setFor(f.ev)
	if !f.registered {
		f.guard = set.AddWithDropper(cx.Waker().Clone())
		f.registered = true
		f.ex.poller.updateInterest(f.io)
		return struct{}{}, false
	}
	if !set.Contains(id) {
		return struct{}{}, true
	}
	return struct{}{}, false
}

func (f *ioReadyFuture) Cancel() {
	if f.guard != nil {
		f.guard.Release()
		f.ex.poller.updateInterest(f.io)
	}
}
