//go:build windows

package asyncrt

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// closeFD closes a socket handle on Windows.
func closeFD(fd int) error {
	return windows.Closesocket(windows.Handle(fd))
}

// readFD performs a single non-blocking recv from fd.
func readFD(fd int, buf []byte) (int, error) {
	return windows.Recv(windows.Handle(fd), buf, 0)
}

// writeFD performs a single non-blocking send to fd.
func writeFD(fd int, buf []byte) (int, error) {
	return windows.Send(windows.Handle(fd), buf, 0)
}

// setNonblock puts the socket handle fd into non-blocking mode.
func setNonblock(fd int) error {
	var nonBlocking uint32 = 1
	return windows.IoctlSocket(windows.Handle(fd), windows.FIONBIO, &nonBlocking)
}

// isEAGAIN reports whether err is the "would block" errno a non-blocking
// recv/send returns when no data/buffer space is currently available.
func isEAGAIN(err error) bool {
	return err == windows.WSAEWOULDBLOCK
}

// acceptFD accepts one pending connection on the non-blocking listening
// socket fd, returning the new connection's fd already set non-blocking.
func acceptFD(fd int) (int, error) {
	nfd, _, err := windows.Accept(windows.Handle(fd))
	if err != nil {
		return -1, err
	}
	if err := setNonblock(int(nfd)); err != nil {
		_ = windows.Closesocket(nfd)
		return -1, err
	}
	return int(nfd), nil
}

// dupFD duplicates the socket handle behind sc (a *net.TCPListener or
// *net.TCPConn), so this package can drive it with its own poller while
// the net package's copy is closed.
func dupFD(sc syscall.Conn) (int, error) {
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}
	var dupFd windows.Handle
	var dupErr error
	err = raw.Control(func(fd uintptr) {
		var proc windows.Handle
		proc, dupErr = windows.GetCurrentProcess()
		if dupErr != nil {
			return
		}
		dupErr = windows.DuplicateHandle(proc, windows.Handle(fd), proc, &dupFd, 0, true, windows.DUPLICATE_SAME_ACCESS)
	})
	if err != nil {
		return -1, err
	}
	if dupErr != nil {
		return -1, dupErr
	}
	return int(dupFd), nil
}
