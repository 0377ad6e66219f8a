//go:build linux

package asyncrt

import (
	"time"

	"golang.org/x/sys/unix"
)

// Poller is the epoll-backed readiness poller for Linux.
type Poller struct {
	epfd   int
	events map[int]*IoEvent
	buf    []unix.EpollEvent
	closed bool
}

// NewPoller creates an epoll instance with room for batch events per wait.
func NewPoller(batch int) (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, NewIOError(err)
	}
	if batch <= 0 {
		batch = DefaultPollEventBatch
	}
	return &Poller{
		epfd:   epfd,
		events: make(map[int]*IoEvent),
		buf:    make([]unix.EpollEvent, batch),
	}, nil
}

// Close releases the epoll fd. Registered IoEvents are abandoned; callers
// must deregister every fd before shutdown if they expect clean delivery.
func (p *Poller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.epfd)
}

// getOrCreate returns the IoEvent for fd, creating and tracking one if this
// is the first registration for it.
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
	if io.osRegistered != 0 {
		_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	}
	for _, w := range io.readers.DrainAll() {
		w.Release()
	}
	for _, w := range io.writers.DrainAll() {
		w.Release()
	}
	delete(p.events, fd)
}

// updateInterest reconciles the OS registration for io with its current
// WakerSet occupancy, issuing ADD/MOD/DEL as needed.
func (p *Poller) updateInterest(io *IoEvent) {
	want := io.interest()
	if want == io.osRegistered {
		return
	}
	ev := &unix.EpollEvent{Events: eventsToEpoll(want), Fd: int32(io.fd)}
	switch {
	case io.osRegistered == 0:
		_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, io.fd, ev)
	case want == 0:
		_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, io.fd, nil)
	default:
		_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, io.fd, ev)
	}
	io.osRegistered = want
}

// wait blocks until at least one registered fd is ready, the deadline
// passes, or it's interrupted by a cross-goroutine wakeup (via wakeFd).
func (p *Poller) wait(deadline time.Time, hasDeadline bool, wakeFd int) ([]readyEvent, error) {
	timeoutMs := -1
	if d := waitTimeout(deadline, hasDeadline); d >= 0 {
		timeoutMs = int(d / time.Millisecond)
	}

	n, err := unix.EpollWait(p.epfd, p.buf, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, NewIOError(err)
	}

	out := make([]readyEvent, 0, n)
	for i := 0; i < n; i++ {
		fd := int(p.buf[i].Fd)
		if fd == wakeFd {
			_ = drainWakeUpFd(wakeFd)
			continue
		}
		io, ok := p.events[fd]
		if !ok {
			continue
		}
		out = append(out, readyEvent{io: io, ready: epollToEvents(p.buf[i].Events)})
	}
	return out, nil
}

func eventsToEpoll(ev Event) uint32 {
	var mask uint32
	if ev&EventRead != 0 {
		mask |= unix.EPOLLIN
	}
	if ev&EventWrite != 0 {
		mask |= unix.EPOLLOUT
	}
	return mask
}

func epollToEvents(mask uint32) Event {
	var ev Event
	if mask&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		ev |= EventRead
	}
	if mask&(unix.EPOLLOUT|unix.EPOLLERR) != 0 {
		ev |= EventWrite
	}
	return ev
}

// registerWakeFd adds the eventfd wake fd to the epoll set, read-only.
func (p *Poller) registerWakeFd(fd int) error {
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev)
}
