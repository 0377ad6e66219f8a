//go:build linux || darwin

package asyncrt

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// closeFD closes a file descriptor on Unix systems.
func closeFD(fd int) error {
	return unix.Close(fd)
}

// readFD performs a single non-blocking read from fd.
func readFD(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

// writeFD performs a single non-blocking write to fd.
func writeFD(fd int, buf []byte) (int, error) {
	return unix.Write(fd, buf)
}

// setNonblock puts fd into non-blocking mode, required before registering
// it with the poller.
func setNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}

// isEAGAIN reports whether err is the "would block" errno a non-blocking
// read/write returns when no data/buffer space is currently available.
func isEAGAIN(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

// acceptFD accepts one pending connection on the non-blocking listening
// socket fd, returning the new connection's fd already set non-blocking.
func acceptFD(fd int) (int, error) {
	nfd, _, err := unix.Accept(fd)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		_ = unix.Close(nfd)
		return -1, err
	}
	return nfd, nil
}

// dupFD duplicates the file descriptor behind sc (a *net.TCPListener or
// *net.TCPConn), so this package can drive it with its own poller while
// the net package's copy is closed.
func dupFD(sc syscall.Conn) (int, error) {
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}
	var dupFd int
	var dupErr error
	err = raw.Control(func(fd uintptr) {
		dupFd, dupErr = unix.Dup(int(fd))
	})
	if err != nil {
		return -1, err
	}
	if dupErr != nil {
		return -1, dupErr
	}
	return dupFd, nil
}
