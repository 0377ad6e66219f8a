package asyncrt

import (
	"errors"
	"net"
	"syscall"
)

// Listener is a non-blocking TCP listener driven by an Executor's poller
// (spec §6: Serve). It's built on top of the standard library's own
// listen/bind/resolve logic -- net.Listen -- and then takes over the raw
// fd with a dup, the same technique RTradeLtd/gaio uses to hand a
// net.Conn's descriptor to a custom event loop: duplicate it, hand the
// dup to our own poller, and close the net package's copy (the duplicate
// keeps the underlying socket alive).
type Listener struct {
	ex *Executor
	fd int
}

// Listen starts listening on address (e.g. "127.0.0.1:0" or ":9000").
func Listen(ex *Executor, network, address string) (*Listener, error) {
	raw, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}
	sc, ok := raw.(syscall.Conn)
	if !ok {
		_ = raw.Close()
		return nil, errors.New("asyncrt: listener does not support SyscallConn")
	}

	fd, err := dupFD(sc)
	closeErr := raw.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		_ = closeFD(fd)
		return nil, closeErr
	}
	if err := setNonblock(fd); err != nil {
		_ = closeFD(fd)
		return nil, err
	}
	return &Listener{ex: ex, fd: fd}, nil
}

// FD returns the underlying (duplicated, non-blocking) listening socket.
func (l *Listener) FD() int { return l.fd }

// Dial connects to address using the standard library's blocking resolver
// and connect logic, then hands the resulting socket over to ex's poller
// the same way Listen does: dup the fd, close the net package's copy, mark
// it non-blocking. The connect itself is synchronous (it happens before
// Dial returns), matching the demo clients' needs; nothing in this package
// requires a non-blocking connect.
func Dial(ex *Executor, network, address string) (*Conn, error) {
	raw, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}
	sc, ok := raw.(syscall.Conn)
	if !ok {
		_ = raw.Close()
		return nil, errors.New("asyncrt: connection does not support SyscallConn")
	}

	fd, err := dupFD(sc)
	closeErr := raw.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		_ = closeFD(fd)
		return nil, closeErr
	}
	if err := setNonblock(fd); err != nil {
		_ = closeFD(fd)
		return nil, err
	}
	return NewConn(ex, fd), nil
}

// Close stops accepting and releases the fd.
func (l *Listener) Close() error {
	l.ex.Deregister(l.fd)
	return closeFD(l.fd)
}

// AcceptResult is the outcome of an Accept: exactly one of Conn or Err is
// set.
type AcceptResult struct {
	Conn *Conn
	Err  error
}

type acceptFuture struct {
	l     *Listener
	ioFut Future[struct{}]
}

func (f *acceptFuture) Poll(cx *Context) (AcceptResult, bool) {
	for {
		nfd, err := acceptFD(f.l.fd)
		if err == nil {
			return AcceptResult{Conn: NewConn(f.l.ex, nfd)}, true
		}
		if !isEAGAIN(err) {
			return AcceptResult{Err: NewIOError(err)}, true
		}
		if f.ioFut == nil {
			f.ioFut = f.l.ex.Readable(f.l.fd)
		}
		if _, ready := f.ioFut.Poll(cx); !ready {
			return AcceptResult{}, false
		}
		f.ioFut = nil
	}
}

func (f *acceptFuture) Cancel() {
	if c, ok := f.ioFut.(Cancellable); ok {
		c.Cancel()
	}
}

// Accept returns a future that resolves to the next inbound connection.
func (l *Listener) Accept() Future[AcceptResult] {
	return &acceptFuture{l: l}
}

// Serve spawns a new task on ex for every accepted connection, calling
// handle with it, until the listener is closed or accept hard-fails.
func Serve(ex *Executor, l *Listener, handle func(ex *Executor, c *Conn) Future[struct{}]) {
	Spawn(ex, serveLoop(ex, l, l.Accept(), handle))
}

func serveLoop(ex *Executor, l *Listener, acceptFut Future[AcceptResult], handle func(ex *Executor, c *Conn) Future[struct{}]) Future[struct{}] {
	return PollFn(func(cx *Context) (struct{}, bool) {
		for {
			res, ready := acceptFut.Poll(cx)
			if !ready {
				return struct{}{}, false
			}
			if res.Err != nil {
				ex.log(LevelWarn, "listener", "accept failed", 0, res.Err)
				return struct{}{}, true
			}
			Spawn(ex, handle(ex, res.Conn))
			acceptFut = l.Accept()
		}
	})
}
