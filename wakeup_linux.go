//go:build linux

package asyncrt

import "golang.org/x/sys/unix"

// createWakeFd creates the eventfd used to interrupt a blocked poller wait
// from another goroutine (spec §6: cross-goroutine Spawn). The same fd
// serves as both read and write end.
func createWakeFd() (readFd, writeFd int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, -1, err
	}
	return fd, fd, nil
}

func closeWakeFd(readFd, writeFd int) error {
	if readFd >= 0 {
		return unix.Close(readFd)
	}
	return nil
}

// submitWakeup signals the eventfd, waking a blocked EpollWait.
func submitWakeup(writeFd int) error {
	if writeFd < 0 {
		return nil
	}
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(writeFd, buf[:])
	return err
}

// drainWakeUpFd consumes the eventfd's counter so it doesn't immediately
// re-signal readiness.
func drainWakeUpFd(fd int) error {
	var buf [8]byte
	for {
		_, err := unix.Read(fd, buf[:])
		if err != nil {
			return nil
		}
	}
}
