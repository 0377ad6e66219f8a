package asyncrt

// AsyncBufWriter is a non-blocking, coalescing buffered writer over a raw
// file descriptor (spec §4.9). Write appends to an internal buffer and
// only performs I/O once it reaches maxBuf, coalescing many small writes
// into fewer syscalls; Flush (and Send) force the buffer out immediately.
// Not safe for concurrent use, unless callers serialize through Lock.
type AsyncBufWriter struct {
	ex     *Executor
	fd     int
	buf    []byte
	maxBuf int
	mu     *AsyncMutex
}

// NewAsyncBufWriter wraps fd in a coalescing buffered writer, using the
// executor's configured MaxWriteBufSize as the coalescing threshold.
func NewAsyncBufWriter(ex *Executor, fd int) *AsyncBufWriter {
	return &AsyncBufWriter{ex: ex, fd: fd, maxBuf: ex.opts.maxWriteBufSize, mu: NewAsyncMutex()}
}

// WriterGuard is held by whichever task currently owns w's AsyncMutex,
// acquired via AsyncBufWriter.Lock.
type WriterGuard struct {
	w  *AsyncBufWriter
	mg *MutexGuard
}

// Writer returns the AsyncBufWriter this guard holds exclusive access to.
func (g *WriterGuard) Writer() *AsyncBufWriter { return g.w }

// Unlock releases the guard, waking the next waiter, if any.
func (g *WriterGuard) Unlock(ex *Executor) { g.mg.Unlock(ex) }

type writerLockFuture struct {
	w   *AsyncBufWriter
	fut Future[*MutexGuard]
}

func (f *writerLockFuture) Poll(cx *Context) (*WriterGuard, bool) {
	if f.fut == nil {
		f.fut = f.w.mu.Lock()
	}
	mg, ready := f.fut.Poll(cx)
	if !ready {
		return nil, false
	}
	return &WriterGuard{w: f.w, mg: mg}, true
}

func (f *writerLockFuture) Cancel() {
	if c, ok := f.fut.(Cancellable); ok {
		c.Cancel()
	}
}

// Lock serializes access to w across multiple holders of the same handle
// (spec §4.9: "both readers and writers expose an async lock() returning a
// guard built on AsyncMutex").
func (w *AsyncBufWriter) Lock() Future[*WriterGuard] {
	return &writerLockFuture{w: w}
}

// Write appends data to the internal buffer, flushing first if the buffer
// has reached its coalescing threshold. Returns as soon as data is safely
// queued (or flushed); call Flush to guarantee it has left the process.
func (w *AsyncBufWriter) Write(data []byte) Future[error] {
	w.buf = append(w.buf, data...)
	if len(w.buf) < w.maxBuf {
		return PollFn(func(cx *Context) (error, bool) { return nil, true })
	}
	return w.Flush()
}

type flushFuture struct {
	w     *AsyncBufWriter
	ioFut Future[struct{}]
}

func (f *flushFuture) Poll(cx *Context) (error, bool) {
	for len(f.w.buf) > 0 {
		n, err := writeFD(f.w.fd, f.w.buf)
		if err != nil {
			if isEAGAIN(err) {
				if f.ioFut == nil {
					f.ioFut = f.w.ex.Writable(f.w.fd)
				}
				if _, ready := f.ioFut.Poll(cx); !ready {
					return nil, false
				}
				f.ioFut = nil
				continue
			}
			return NewIOError(err), true
		}
		f.ioFut = nil
		f.w.buf = f.w.buf[n:]
	}
	return nil, true
}

func (f *flushFuture) Cancel() {
	if c, ok := f.ioFut.(Cancellable); ok {
		c.Cancel()
	}
}

// Flush drains the internal buffer to the fd completely, awaiting
// writability as many times as needed.
func (w *AsyncBufWriter) Flush() Future[error] {
	return &flushFuture{w: w}
}

type sendFuture struct {
	w      *AsyncBufWriter
	data   []byte
	queued bool
	flush  Future[error]
}

func (f *sendFuture) Poll(cx *Context) (error, bool) {
	if !f.queued {
		f.w.buf = append(f.w.buf, f.data...)
		f.queued = true
		f.flush = f.w.Flush()
	}
	return f.flush.Poll(cx)
}

func (f *sendFuture) Cancel() {
	if c, ok := f.flush.(Cancellable); ok {
		c.Cancel()
	}
}

// Send is Write immediately followed by Flush, as one future: it appends
// data and does not return until it has left the process (or an error
// occurs).
func (w *AsyncBufWriter) Send(data []byte) Future[error] {
	return &sendFuture{w: w, data: data}
}

// Buffered reports how many bytes are currently queued, unflushed.
func (w *AsyncBufWriter) Buffered() int { return len(w.buf) }

// Close performs a best-effort, one-shot flush of whatever is still
// buffered and logs failure, per spec §4.9: "guard drop performs a
// best-effort one-shot flush and logs failure -- it cannot await." Unlike
// Flush, Close never awaits writability: a would-block return stops the
// attempt immediately, and whatever remains unflushed is logged rather
// than retried.
func (w *AsyncBufWriter) Close() {
	for len(w.buf) > 0 {
		n, err := writeFD(w.fd, w.buf)
		if err != nil {
			if isEAGAIN(err) {
				break
			}
			w.ex.log(LevelWarn, "writer", "best-effort close flush failed", 0, NewIOError(err))
			return
		}
		w.buf = w.buf[n:]
	}
	if len(w.buf) > 0 {
		w.ex.log(LevelWarn, "writer", "best-effort close flush left bytes unflushed", 0, nil)
	}
}
