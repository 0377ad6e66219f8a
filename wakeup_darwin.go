//go:build darwin

package asyncrt

import "golang.org/x/sys/unix"

// createWakeFd creates a self-pipe used to interrupt a blocked poller wait
// from another goroutine (spec §6: cross-goroutine Spawn). Darwin has no
// eventfd, so this is a non-blocking pipe pair instead.
func createWakeFd() (readFd, writeFd int, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(fds[0])
			_ = unix.Close(fds[1])
			return -1, -1, err
		}
	}
	return fds[0], fds[1], nil
}

func closeWakeFd(readFd, writeFd int) error {
	if readFd >= 0 {
		_ = unix.Close(readFd)
	}
	if writeFd >= 0 && writeFd != readFd {
		_ = unix.Close(writeFd)
	}
	return nil
}

// submitWakeup writes a single byte to the pipe, waking a blocked kevent.
func submitWakeup(writeFd int) error {
	if writeFd < 0 {
		return nil
	}
	_, err := unix.Write(writeFd, []byte{1})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// drainWakeUpFd drains every pending byte from the wake pipe.
func drainWakeUpFd(fd int) error {
	var buf [64]byte
	for {
		_, err := unix.Read(fd, buf[:])
		if err != nil {
			return nil
		}
	}
}
