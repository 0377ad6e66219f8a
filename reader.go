package asyncrt

import "bytes"

// ReadResult is the outcome of an AsyncReader operation: exactly one of
// Data (possibly empty) or Err is meaningful, following the spec §7 rule
// that EOF from Readall is success while EOF from a delimited/exact read
// is an error (spec §4.9).
type ReadResult struct {
	Data []byte
	Err  error
}

// AsyncReader is a non-blocking, buffered reader over a raw file
// descriptor (spec §4.9). It is not safe for concurrent use; like every
// other future-returning type in this package it belongs to one task at a
// time on one executor, unless callers serialize through Lock.
type AsyncReader struct {
	ex  *Executor
	fd  int
	buf []byte
	eof bool
	mu  *AsyncMutex
}

// NewAsyncReader wraps fd (already non-blocking, see Conn) in a buffered
// AsyncReader. The fd is registered with the executor's poller lazily, the
// first time a read has to await readability.
func NewAsyncReader(ex *Executor, fd int) *AsyncReader {
	return &AsyncReader{ex: ex, fd: fd, mu: NewAsyncMutex()}
}

// ReaderGuard is held by whichever task currently owns r's AsyncMutex,
// acquired via AsyncReader.Lock.
type ReaderGuard struct {
	r  *AsyncReader
	mg *MutexGuard
}

// Reader returns the AsyncReader this guard holds exclusive access to.
func (g *ReaderGuard) Reader() *AsyncReader { return g.r }

// Unlock releases the guard, waking the next waiter, if any.
func (g *ReaderGuard) Unlock(ex *Executor) { g.mg.Unlock(ex) }

type readerLockFuture struct {
	r   *AsyncReader
	fut Future[*MutexGuard]
}

func (f *readerLockFuture) Poll(cx *Context) (*ReaderGuard, bool) {
	if f.fut == nil {
		f.fut = f.r.mu.Lock()
	}
	mg, ready := f.fut.Poll(cx)
	if !ready {
		return nil, false
	}
	return &ReaderGuard{r: f.r, mg: mg}, true
}

func (f *readerLockFuture) Cancel() {
	if c, ok := f.fut.(Cancellable); ok {
		c.Cancel()
	}
}

// Lock serializes access to r across multiple holders of the same handle
// (spec §4.9: "both readers and writers expose an async lock() returning a
// guard built on AsyncMutex").
func (r *AsyncReader) Lock() Future[*ReaderGuard] {
	return &readerLockFuture{r: r}
}

// fillOnce performs a single non-blocking read into r.buf. Returns
// (true, nil) if it made progress or observed EOF, (false, nil) if the fd
// would block (caller must await readiness), or (_, err) on a real error.
func (r *AsyncReader) fillOnce() (progressed bool, err error) {
	chunk := make([]byte, r.ex.opts.readBufSize)
	n, err := readFD(r.fd, chunk)
	if err != nil {
		if isEAGAIN(err) {
			return false, nil
		}
		return false, err
	}
	if n == 0 {
		r.eof = true
		return true, nil
	}
	r.buf = append(r.buf, chunk[:n]...)
	return true, nil
}

// readLoopFuture drives the read-more-or-await-readable loop shared by
// every AsyncReader operation; satisfied stops when tryTake reports ready.
type readLoopFuture struct {
	r       *AsyncReader
	tryTake func(*AsyncReader) (ReadResult, bool)
	ioFut   Future[struct{}]
}

func (f *readLoopFuture) Poll(cx *Context) (ReadResult, bool) {
	for {
		if res, ok := f.tryTake(f.r); ok {
			return res, true
		}
		if f.ioFut == nil {
			f.ioFut = f.r.ex.Readable(f.r.fd)
		}
		if _, ready := f.ioFut.Poll(cx); !ready {
			return ReadResult{}, false
		}
		f.ioFut = nil

		progressed, err := f.r.fillOnce()
		if err != nil {
			return ReadResult{Err: NewIOError(err)}, true
		}
		if !progressed {
			// spurious wakeup: fd reported readable but the read still
			// would have blocked. Go around again and re-await.
			continue
		}
	}
}

func (f *readLoopFuture) Cancel() {
	if c, ok := f.ioFut.(Cancellable); ok {
		c.Cancel()
	}
}

func (r *AsyncReader) loop(tryTake func(*AsyncReader) (ReadResult, bool)) Future[ReadResult] {
	return &readLoopFuture{r: r, tryTake: tryTake}
}

// ReadUntil reads until delim is found, returning the data including the
// delimiter. Returns ErrEOF if the connection closes before delim appears.
func (r *AsyncReader) ReadUntil(delim byte) Future[ReadResult] {
	return r.loop(func(r *AsyncReader) (ReadResult, bool) {
		if idx := bytes.IndexByte(r.buf, delim); idx >= 0 {
			data := append([]byte(nil), r.buf[:idx+1]...)
			r.buf = r.buf[idx+1:]
			return ReadResult{Data: data}, true
		}
		if r.eof {
			return ReadResult{Err: ErrEOF}, true
		}
		return ReadResult{}, false
	})
}

// ReadUntilExclusive is ReadUntil but the returned data excludes the
// delimiter (which is still consumed from the stream).
func (r *AsyncReader) ReadUntilExclusive(delim byte) Future[ReadResult] {
	return r.loop(func(r *AsyncReader) (ReadResult, bool) {
		if idx := bytes.IndexByte(r.buf, delim); idx >= 0 {
			data := append([]byte(nil), r.buf[:idx]...)
			r.buf = r.buf[idx+1:]
			return ReadResult{Data: data}, true
		}
		if r.eof {
			return ReadResult{Err: ErrEOF}, true
		}
		return ReadResult{}, false
	})
}

// ReadExactly reads exactly n bytes, returning ErrEOF if the stream ends
// first.
func (r *AsyncReader) ReadExactly(n int) Future[ReadResult] {
	return r.loop(func(r *AsyncReader) (ReadResult, bool) {
		if len(r.buf) >= n {
			data := append([]byte(nil), r.buf[:n]...)
			r.buf = r.buf[n:]
			return ReadResult{Data: data}, true
		}
		if r.eof {
			return ReadResult{Err: ErrEOF}, true
		}
		return ReadResult{}, false
	})
}

// ReadOnce returns whatever is currently buffered, reading at least one
// chunk from the fd first if the buffer is empty. Unlike the other
// methods it doesn't wait for a delimiter or exact count, matching a
// typical single recv() call.
func (r *AsyncReader) ReadOnce() Future[ReadResult] {
	return r.loop(func(r *AsyncReader) (ReadResult, bool) {
		if len(r.buf) > 0 {
			data := r.buf
			r.buf = nil
			return ReadResult{Data: data}, true
		}
		if r.eof {
			return ReadResult{Err: ErrEOF}, true
		}
		return ReadResult{}, false
	})
}

// ReadAll reads until EOF and returns everything read. Unlike the other
// methods, EOF here is success, not an error (spec §4.9/§7).
func (r *AsyncReader) ReadAll() Future[ReadResult] {
	return r.loop(func(r *AsyncReader) (ReadResult, bool) {
		if r.eof {
			data := r.buf
			r.buf = nil
			return ReadResult{Data: data}, true
		}
		return ReadResult{}, false
	})
}
