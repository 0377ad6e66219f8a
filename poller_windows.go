//go:build windows

package asyncrt

import (
	"time"

	"golang.org/x/sys/windows"
)

// Poller is the Windows readiness backend.
//
// The teacher's Windows backend drives an IOCP completion port, which
// reports finished overlapped operations rather than "this socket is now
// readable" -- it doesn't fit the fd-readiness contract the rest of this
// package is built on (Readable/Writable futures, one IoEvent per fd)
// without restructuring every caller around overlapped buffers. WSAPoll is
// the readiness-style primitive x/sys/windows exposes instead, and is what
// this backend uses; see DESIGN.md.
type Poller struct {
	events map[int]*IoEvent
	closed bool
}

// NewPoller constructs a WSAPoll-backed Poller. batch is accepted for
// parity with the other platform constructors but unused: WSAPoll takes
// the full fd set on every call.
func NewPoller(batch int) (*Poller, error) {
	return &Poller{events: make(map[int]*IoEvent)}, nil
}

// Close is a no-op: WSAPoll holds no kernel object of its own.
func (p *Poller) Close() error {
	p.closed = true
	return nil
}

func (p *Poller) getOrCreate(fd int) *IoEvent {
	if io, ok := p.events[fd]; ok {
		return io
	}
	io := newIoEvent(fd)
	p.events[fd] = io
	return io
}

// Readable returns a future that resolves once fd is readable.
func (ex *Executor) Readable(fd int) Future[struct{}] {
	io := ex.poller.getOrCreate(fd)
	return &ioReadyFuture{ex: ex, io: io, ev: EventRead}
}

// Writable returns a future that resolves once fd is writable.
func (ex *Executor) Writable(fd int) Future[struct{}] {
	io := ex.poller.getOrCreate(fd)
	return &ioReadyFuture{ex: ex, io: io, ev: EventWrite}
}

// Deregister drops all bookkeeping for fd. Call this before closing fd.
func (ex *Executor) Deregister(fd int) {
	p := ex.poller
	io, ok := p.events[fd]
	if !ok {
		return
	}
	for _, w := range io.readers.DrainAll() {
		w.Release()
	}
	for _, w := range io.writers.DrainAll() {
		w.Release()
	}
	delete(p.events, fd)
}

// updateInterest is a no-op on this backend: WSAPoll is rebuilt from
// p.events on every wait call, so there's no persistent OS-side
// registration to reconcile.
func (p *Poller) updateInterest(io *IoEvent) {}

func (p *Poller) wait(deadline time.Time, hasDeadline bool, wakeFd int) ([]readyEvent, error) {
	fds := make([]windows.WSAPollFd, 0, len(p.events)+1)
	order := make([]*IoEvent, 0, len(p.events))
	for fd, io := range p.events {
		want := io.interest()
		if want == 0 {
			continue
		}
		var events int16
		if want&EventRead != 0 {
			events |= windows.POLLRDNORM
		}
		if want&EventWrite != 0 {
			events |= windows.POLLWRNORM
		}
		fds = append(fds, windows.WSAPollFd{Fd: windows.Handle(fd), Events: events})
		order = append(order, io)
	}
	wakeIdx := -1
	if wakeFd >= 0 {
		wakeIdx = len(fds)
		fds = append(fds, windows.WSAPollFd{Fd: windows.Handle(wakeFd), Events: windows.POLLRDNORM})
	}

	timeoutMs := int32(-1)
	if d := waitTimeout(deadline, hasDeadline); d >= 0 {
		timeoutMs = int32(d / time.Millisecond)
	}

	n, err := windows.WSAPoll(fds, timeoutMs)
	if err != nil {
		return nil, NewIOError(err)
	}
	if n <= 0 {
		return nil, nil
	}

	out := make([]readyEvent, 0, n)
	for i, pfd := range fds {
		if pfd.REvents == 0 {
			continue
		}
		if i == wakeIdx {
			_ = drainWakeUpFd(wakeFd)
			continue
		}
		var ready Event
		if pfd.REvents&(windows.POLLRDNORM|windows.POLLHUP|windows.POLLERR) != 0 {
			ready |= EventRead
		}
		if pfd.REvents&(windows.POLLWRNORM|windows.POLLERR) != 0 {
			ready |= EventWrite
		}
		out = append(out, readyEvent{io: order[i], ready: ready})
	}
	return out, nil
}

func (p *Poller) registerWakeFd(fd int) error { return nil }
