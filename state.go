package asyncrt

import "sync/atomic"

// ExecutorState is the lifecycle of an Executor (spec §5: Termination).
//
//	StateAwake      → StateRunning      [Run()]
//	StateRunning     → StateSleeping     [parking on the poller]
//	StateSleeping    → StateRunning      [poller returns ready wakers]
//	StateRunning     → StateStopping     [RequestGracefulStop()]
//	StateSleeping    → StateStopping     [RequestGracefulStop()]
//	StateRunning     → StateTerminated   [Run() returns: LiveTasks empty]
//	StateStopping    → StateTerminated   [LiveTasks.len() <= 1]
type ExecutorState uint32

const (
	StateAwake ExecutorState = iota
	StateRunning
	StateSleeping
	StateStopping
	StateTerminated
)

func (s ExecutorState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateStopping:
		return "Stopping"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// atomicState is a lock-free state machine for Executor.state.
type atomicState struct {
	v atomic.Uint32
}

func (s *atomicState) Load() ExecutorState { return ExecutorState(s.v.Load()) }

func (s *atomicState) Store(state ExecutorState) { s.v.Store(uint32(state)) }

// TryTransition CASes from one state to another, returning whether it
// succeeded.
func (s *atomicState) TryTransition(from, to ExecutorState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
