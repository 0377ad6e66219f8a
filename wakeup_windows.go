//go:build windows

package asyncrt

// createWakeFd has no WSAPoll-compatible equivalent on Windows without a
// loopback socket pair, which this package doesn't stand up just for a
// wake signal. Instead wakeFd is always -1 on this platform, and the
// Windows Poller.wait bounds its timeout so a cross-goroutine Spawn is
// picked up within windowsWakePollInterval even without an fd to poll (see
// DESIGN.md).
func createWakeFd() (readFd, writeFd int, err error) { return -1, -1, nil }

func closeWakeFd(readFd, writeFd int) error { return nil }

func submitWakeup(writeFd int) error { return nil }

func drainWakeUpFd(fd int) error { return nil }
