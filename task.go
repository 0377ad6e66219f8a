package asyncrt

import "sync"

// TaskID is a small dense identifier for a spawned task, recycled when the
// task is dropped (spec §3: TaskId). Equal TaskIDs denote the same task
// across its lifetime.
type TaskID uint64

// TaskAttr is the fixed-layout header every task carries (spec §3:
// TaskAttr). In the Rust original, any live Waker's raw data pointer can be
// reinterpreted as a *TaskAttr; Go has no safe equivalent of that cast, so
// here TaskAttr is reached via Waker.TaskID(), an ordinary method on the
// handle the Waker already carries a pointer to. The invariant it
// preserves is identical: identity recovery from a Waker is O(1) and
// requires no generic parameter or map lookup (see DESIGN.md).
type TaskAttr struct {
	id TaskID
}

// ID returns the task identifier.
func (a TaskAttr) ID() TaskID { return a.id }

// taskIDAllocator hands out dense, reusable TaskIDs (spec §3: "dense
// reusable identifiers"). Freed IDs are returned to a free list and reused
// before the counter advances, the same way a slot-map recycles indices.
type taskIDAllocator struct {
	mu   sync.Mutex
	next TaskID
	free []TaskID
}

func (a *taskIDAllocator) alloc() TaskID {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		return id
	}
	a.next++
	return a.next
}

func (a *taskIDAllocator) release(id TaskID) {
	a.mu.Lock()
	a.free = append(a.free, id)
	a.mu.Unlock()
}

// taskHandle is the heap-resident, shared object a Task's Wakers all point
// to (spec §3: Task⟨F,C⟩). It begins with the TaskAttr header and carries
// the clear hook run when the last Waker referencing it is released.
//
// Ownership: one refcount is held per queued waker (ready queue entry),
// per WakerSet membership, and per live timer/IO registration that
// references this task. The task is considered destroyed -- its clear hook
// run -- when the refcount reaches zero.
type taskHandle struct {
	TaskAttr

	mu       sync.Mutex
	refcount int32
	pollOnce func() (done bool) // invoked by wake/wake-by-ref; polls the future once
	clear    func()             // removes the TaskID from LiveTasks; runs exactly once
	cleared  bool
}

func newTaskHandle(id TaskID, clear func()) *taskHandle {
	return &taskHandle{TaskAttr: TaskAttr{id: id}, refcount: 1, clear: clear}
}

// retain increments the refcount, modelling a Waker clone.
func (h *taskHandle) retain() {
	h.mu.Lock()
	h.refcount++
	h.mu.Unlock()
}

// release decrements the refcount; on the last release it runs the clear
// hook exactly once (spec §3: "Destroyed when the last waker is dropped;
// the clear hook runs in destructor").
func (h *taskHandle) release() {
	h.mu.Lock()
	h.refcount--
	n := h.refcount
	already := h.cleared
	if n <= 0 {
		h.cleared = true
	}
	h.mu.Unlock()
	if n <= 0 && !already {
		h.clear()
	}
}

// poll invokes the task's future once. Re-entrancy note (spec §4.1): a
// task's future is polled only via its own Waker, and the executor always
// dequeues a ready entry before polling it, so there's no reentrancy
// concern unless the future wakes itself synchronously -- which simply
// requeues it for the next ready-queue pass.
func (h *taskHandle) poll() (done bool) {
	return h.pollOnce()
}
