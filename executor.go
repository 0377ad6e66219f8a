package asyncrt

import (
	"sync"
	"time"
)

// Executor is the single-threaded cooperative scheduler (spec §4.2, §5).
// Exactly one goroutine may call Run; every Future registered with it is
// polled from that same goroutine, so none of the core types in this
// package need internal locking. Spawning from another goroutine is
// supported via SpawnExternal, which hands the work across through a
// mutex-protected queue drained once per loop iteration and wakes the
// poller through a self-pipe/eventfd.
type Executor struct {
	ids       taskIDAllocator
	ready     readyQueue
	liveTasks map[TaskID]struct{}
	timers    *PriorityTimerQueue
	poller    *Poller
	logger    Logger
	opts      *executorOptions

	wakeReadFd, wakeWriteFd int

	state        atomicState
	stopRequested bool

	extMu    sync.Mutex
	extQueue []func(*Executor)
}

// NewExecutor constructs an Executor, initializing its OS readiness poller
// and cross-goroutine wake primitive.
func NewExecutor(opts ...Option) (*Executor, error) {
	cfg, err := resolveExecutorOptions(opts)
	if err != nil {
		return nil, err
	}

	poller, err := NewPoller(cfg.pollEventBatch)
	if err != nil {
		return nil, err
	}

	readFd, writeFd, err := createWakeFd()
	if err != nil {
		_ = poller.Close()
		return nil, err
	}
	if readFd >= 0 {
		if err := poller.registerWakeFd(readFd); err != nil {
			_ = poller.Close()
			_ = closeWakeFd(readFd, writeFd)
			return nil, err
		}
	}

	ex := &Executor{
		liveTasks:   make(map[TaskID]struct{}),
		timers:      NewPriorityTimerQueue(),
		poller:      poller,
		logger:      cfg.logger,
		opts:        cfg,
		wakeReadFd:  readFd,
		wakeWriteFd: writeFd,
	}
	return ex, nil
}

// State returns the executor's current lifecycle state.
func (ex *Executor) State() ExecutorState { return ex.state.Load() }

// LiveTaskCount returns the number of tasks currently tracked as live
// (spawned but not yet completed), the quantity spec §8's monotonicity
// property is stated over.
func (ex *Executor) LiveTaskCount() int { return len(ex.liveTasks) }

func (ex *Executor) log(level Level, category, message string, taskID TaskID, err error) {
	if !ex.logger.IsEnabled(level) {
		return
	}
	ex.logger.Log(Entry{
		Level:    level,
		Category: category,
		TaskID:   int64(taskID),
		Message:  message,
		Err:      err,
	})
}

// schedule appends w to the ready queue, taking ownership of its
// reference. Called by Waker.Wake/WakeByRef.
func (ex *Executor) schedule(w Waker) {
	ex.ready.push(w)
}

// Spawn registers fut as a new task and schedules it for its first poll
// (spec §3, §4.2). The returned TaskID is freed for reuse once the task
// completes; join semantics are expressed externally via a WaitGroup or
// Notifier the spawned future signals itself, not via a return value from
// Spawn (spec's Non-goal: no generic join handle with a result channel).
func Spawn[T any](ex *Executor, fut Future[T]) TaskID {
	id := ex.ids.alloc()
	ex.liveTasks[id] = struct{}{}

	handle := newTaskHandle(id, func() {
		delete(ex.liveTasks, id)
		ex.ids.release(id)
	})

	finished := false
	handle.pollOnce = func() bool {
		if finished {
			return true
		}
		cx := &Context{waker: Waker{handle: handle}}
		_, done := fut.Poll(cx)
		finished = done
		return done
	}

	w := Waker{handle: handle}
	ex.ready.push(w)
	ex.log(LevelDebug, "executor", "spawned", id, nil)
	return id
}

// SpawnExternal schedules fn to run on the executor's own goroutine,
// calling Spawn itself from inside fn. Safe to call from any goroutine;
// wakes a blocked Run if necessary.
func (ex *Executor) SpawnExternal(fn func(*Executor)) {
	ex.extMu.Lock()
	ex.extQueue = append(ex.extQueue, fn)
	ex.extMu.Unlock()
	_ = submitWakeup(ex.wakeWriteFd)
}

func (ex *Executor) drainExternal() {
	ex.extMu.Lock()
	if len(ex.extQueue) == 0 {
		ex.extMu.Unlock()
		return
	}
	pending := ex.extQueue
	ex.extQueue = nil
	ex.extMu.Unlock()
	for _, fn := range pending {
		fn(ex)
	}
}

// addTimer schedules w to be woken after d elapses.
func (ex *Executor) addTimer(d time.Duration, w Waker) *TimerGuard {
	return ex.timers.Add(time.Now().Add(d), w)
}

// RequestGracefulStop asks Run to return once at most one task remains
// live (spec §5: Stopping state, "LiveTasks.len() <= 1" termination rule).
// Run checks this only after the ready queue has drained, so a task that
// called RequestGracefulStop and then completed no longer counts; the one
// allowed survivor is a task that is still waiting. Moves the executor into StateStopping
// immediately if it's currently Running or Sleeping; Run keeps it there
// for the remainder of the drain instead of cycling back through Running
// or Sleeping, until the last task finishes and it reaches Terminated.
func (ex *Executor) RequestGracefulStop() {
	ex.stopRequested = true
	if cur := ex.state.Load(); cur == StateRunning || cur == StateSleeping {
		ex.state.TryTransition(cur, StateStopping)
	}
}

// canFinish reports whether Run should stop: no live tasks at all, or
// graceful shutdown was requested and at most one remains.
func (ex *Executor) canFinish() bool {
	if len(ex.liveTasks) == 0 {
		return true
	}
	return ex.stopRequested && len(ex.liveTasks) <= 1
}

// Run drives the executor until every task completes, or until
// RequestGracefulStop was called and at most one task remains live (spec
// §5). It must be called from exactly one goroutine.
func (ex *Executor) Run() error {
	ex.state.Store(StateRunning)
	defer ex.state.Store(StateTerminated)

	for {
		ex.drainExternal()

		for {
			w, ok := ex.ready.pop()
			if !ok {
				break
			}
			id := w.TaskID()
			done := w.handle.poll()
			w.Release()
			if done {
				ex.log(LevelDebug, "executor", "completed", id, nil)
			}
		}

		if ex.canFinish() {
			return nil
		}

		ex.setParkedState()
		if err := ex.parkForReadiness(); err != nil {
			ex.setActiveState()
			return err
		}
		ex.setActiveState()
	}
}

// setActiveState moves the executor back to Running after a ready-queue
// pass or a park, unless a graceful stop is in progress, in which case it
// stays in Stopping instead of cycling back through Running.
func (ex *Executor) setActiveState() {
	if ex.stopRequested {
		ex.state.Store(StateStopping)
		return
	}
	ex.state.Store(StateRunning)
}

// setParkedState moves the executor to Sleeping before parking on the
// poller, unless a graceful stop is in progress, in which case it stays
// in Stopping instead of cycling through Sleeping.
func (ex *Executor) setParkedState() {
	if ex.stopRequested {
		ex.state.Store(StateStopping)
		return
	}
	ex.state.Store(StateSleeping)
}

// parkForReadiness blocks in the OS poller until a timer expires, an fd
// becomes ready, or a cross-goroutine wakeup arrives, pushing every waker
// it collects onto the ready queue.
func (ex *Executor) parkForReadiness() error {
	deadline, hasDeadline := ex.timers.NextDeadline()
	// NextDeadline releases the wakers held by revoked timer slots, which
	// can drop the last reference to an already-finished task; don't park
	// if that leaves nothing to wait for.
	if ex.canFinish() {
		return nil
	}
	if ex.wakeReadFd < 0 {
		// No fd-based wake (Windows/WSAPoll, see wakeup_windows.go): bound
		// the wait so a cross-goroutine SpawnExternal is still noticed
		// promptly.
		bound := time.Now().Add(windowsWakePollInterval)
		if !hasDeadline || bound.Before(deadline) {
			deadline, hasDeadline = bound, true
		}
	}

	events, err := ex.poller.wait(deadline, hasDeadline, ex.wakeReadFd)
	if err != nil {
		return err
	}
	for _, ev := range events {
		ev.io.deliver(ex, ev.ready)
		ex.poller.updateInterest(ev.io)
	}

	for _, w := range ex.timers.PopExpired(time.Now()) {
		w.Wake(ex)
	}
	return nil
}

// Close releases the executor's poller and wake primitive. Call after Run
// returns.
func (ex *Executor) Close() error {
	err1 := ex.poller.Close()
	err2 := closeWakeFd(ex.wakeReadFd, ex.wakeWriteFd)
	if err1 != nil {
		return err1
	}
	return err2
}
