// Package asyncrt is a single-threaded cooperative asynchronous runtime.
//
// It schedules user-supplied futures as resumable computations, drives them
// with OS readiness events (epoll on Linux, kqueue on Darwin, WSAPoll on
// Windows) and expiring timers, and layers a small set of synchronization
// and I/O primitives on top of the same waker-based polling contract.
//
// # Architecture
//
// An [Executor] owns the ready queue, the live-task set, the [Poller], and
// the timer priority queue. Futures are submitted with [Spawn];
// each spawn allocates a [TaskID] and wraps the future in a heap-resident
// task whose first field is a fixed [TaskAttr] header, so any [Waker]
// produced from that task can recover its identity without a generic
// parameter. [Executor.Run] drains the ready queue, parks on the poller
// when it's empty, and returns once no tasks remain live.
//
// # Synchronization
//
// [AsyncMutex], [AsyncSemaphore], [Notifier] and [WaitGroup] are cooperative
// primitives layered on [WakerSet]: a task that can't proceed attaches its
// waker via a drop-guarded insertion and returns Pending; the primitive
// wakes one or all waiters on release.
//
// # I/O
//
// [AsyncReader] and [AsyncBufWriter] are readiness-polled buffered streams
// with delimiter, exact-N, and read-to-EOF framing. [Conn] composes a
// buffered stream with an overall and per-operation deadline via [Select].
//
// # Platform support
//
// I/O readiness uses platform-native mechanisms:
//   - Linux: epoll
//   - macOS: kqueue
//   - Windows: WSAPoll
//
// # Thread confinement
//
// This runtime assumes a single executor goroutine drives every future it
// schedules; tasks never migrate between goroutines once spawned. There is
// no work-stealing and no preemption: a future that never returns Pending
// starves the loop. [Spawn] must be called from the executor's own
// goroutine (or before Run starts); from any other goroutine, use
// [Executor.SpawnExternal], which hands the work to the executor's
// goroutine. Polling a future outside its owning executor's goroutine is a
// misuse of the API.
//
// # Usage
//
//	ex, err := asyncrt.NewExecutor()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ex.Close()
//	asyncrt.Spawn[struct{}](ex, asyncrt.PollFn(func(*asyncrt.Context) (struct{}, bool) {
//	    fmt.Println("hello from a task")
//	    return struct{}{}, true
//	}))
//	if err := ex.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error kinds
//
// I/O and synchronization operations surface a small closed set of error
// kinds ([ErrEOF], [ErrBlocked], [Timeout], [ReadTimeout], [WriteTimeout],
// [RuntimeError]) rather than abandoning the executor; see errors.go.
package asyncrt
