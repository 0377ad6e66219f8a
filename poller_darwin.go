//go:build darwin

package asyncrt

import (
	"time"

	"golang.org/x/sys/unix"
)

// Poller is the kqueue-backed readiness poller for Darwin/BSD.
type Poller struct {
	kq     int
	events map[int]*IoEvent
	buf    []unix.Kevent_t
	closed bool
}

// NewPoller creates a kqueue instance with room for batch events per wait.
func NewPoller(batch int) (*Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, NewIOError(err)
	}
	unix.CloseOnExec(kq)
	if batch <= 0 {
		batch = DefaultPollEventBatch
	}
	return &Poller{
		kq:     kq,
		events: make(map[int]*IoEvent),
		buf:    make([]unix.Kevent_t, batch),
	}, nil
}

// Close releases the kqueue fd.
func (p *Poller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.kq)
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
	changes := kqueueChangesFor(fd, io.osRegistered, 0)
	if len(changes) > 0 {
		_, _ = unix.Kevent(p.kq, changes, nil, nil)
	}
	for _, w := range io.readers.DrainAll() {
		w.Release()
	}
	for _, w := range io.writers.DrainAll() {
		w.Release()
	}
	delete(p.events, fd)
}

func kqueueChangesFor(fd int, have, want Event) []unix.Kevent_t {
	var changes []unix.Kevent_t
	if (have&EventRead != 0) != (want&EventRead != 0) {
		flag := uint16(unix.EV_ADD | unix.EV_ENABLE)
		if want&EventRead == 0 {
			flag = unix.EV_DELETE
		}
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flag})
	}
	if (have&EventWrite != 0) != (want&EventWrite != 0) {
		flag := uint16(unix.EV_ADD | unix.EV_ENABLE)
		if want&EventWrite == 0 {
			flag = unix.EV_DELETE
		}
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flag})
	}
	return changes
}

// updateInterest reconciles the OS registration for io with its current
// WakerSet occupancy, issuing EV_ADD/EV_DELETE changes as needed.
func (p *Poller) updateInterest(io *IoEvent) {
	want := io.interest()
	if want == io.osRegistered {
		return
	}
	changes := kqueueChangesFor(io.fd, io.osRegistered, want)
	if len(changes) > 0 {
		_, _ = unix.Kevent(p.kq, changes, nil, nil)
	}
	io.osRegistered = want
}

// wait blocks until at least one registered fd is ready, the deadline
// passes, or it's interrupted by a cross-goroutine wakeup (via wakeFd).
func (p *Poller) wait(deadline time.Time, hasDeadline bool, wakeFd int) ([]readyEvent, error) {
	var ts *unix.Timespec
	if d := waitTimeout(deadline, hasDeadline); d >= 0 {
		t := unix.NsecToTimespec(int64(d))
		ts = &t
	}

	n, err := unix.Kevent(p.kq, nil, p.buf, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, NewIOError(err)
	}

	byFD := make(map[int]Event, n)
	for i := 0; i < n; i++ {
		fd := int(p.buf[i].Ident)
		if fd == wakeFd {
			_ = drainWakeUpFd(wakeFd)
			continue
		}
		switch p.buf[i].Filter {
		case unix.EVFILT_READ:
			byFD[fd] |= EventRead
		case unix.EVFILT_WRITE:
			byFD[fd] |= EventWrite
		}
	}

	out := make([]readyEvent, 0, len(byFD))
	for fd, ready := range byFD {
		if io, ok := p.events[fd]; ok {
			out = append(out, readyEvent{io: io, ready: ready})
		}
	}
	return out, nil
}

// registerWakeFd adds the self-pipe wake fd to the kqueue set, read-only.
func (p *Poller) registerWakeFd(fd int) error {
	changes := []unix.Kevent_t{{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE}}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}
