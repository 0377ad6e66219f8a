// I/O readiness polling.
//
// The executor owns exactly one Poller, used to park the OS thread when
// there's no ready work and at least one task is waiting on I/O or a timer
// (spec §4.3, §5). Registration is keyed by file descriptor; each
// registered fd owns one IoEvent holding the WakerSets of its readers and
// writers. Platform backends:
//
//   - Linux: epoll (poller_linux.go)
//   - Darwin/BSD: kqueue (poller_darwin.go)
//   - Windows: WSAPoll (poller_windows.go)
//
// Deregister must be called before closing a file descriptor, or a later
// fd with the same number can receive stale readiness notifications.
package asyncrt

import "time"

// windowsWakePollInterval bounds how long the Windows WSAPoll backend
// blocks when it has no wake fd to watch (see wakeup_windows.go), so a
// cross-goroutine SpawnExternal is still noticed promptly.
const windowsWakePollInterval = 200 * time.Millisecond

// readyEvent is one fd's delivered readiness, returned by Poller.wait.
type readyEvent struct {
	io    *IoEvent
	ready Event
}

// waitTimeout resolves the wait timeout for a Poller.wait call from the
// executor's next timer deadline: block forever if there's no timer and no
// explicit override, otherwise wake no later than the nearest deadline.
func waitTimeout(deadline time.Time, hasDeadline bool) time.Duration {
	if !hasDeadline {
		return -1
	}
	d := time.Until(deadline)
	if d < 0 {
		return 0
	}
	return d
}
