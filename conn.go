package asyncrt

import "time"

// Conn is a non-blocking TCP connection, pairing an AsyncReader and
// AsyncBufWriter over one fd (spec §4.12). Deadlines are composed by
// racing the requested operation against a Sleep future with Select, so
// they reuse the same cancellation-safe machinery as everything else in
// this package rather than a special-cased timer path.
type Conn struct {
	ex     *Executor
	fd     int
	reader *AsyncReader
	writer *AsyncBufWriter

	deadline     time.Time // overall; zero means unset
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps fd (already non-blocking) as a Conn.
func NewConn(ex *Executor, fd int) *Conn {
	return &Conn{
		ex:     ex,
		fd:     fd,
		reader: NewAsyncReader(ex, fd),
		writer: NewAsyncBufWriter(ex, fd),
	}
}

// FD returns the underlying file descriptor, for callers that need to pass
// it to Executor.Deregister or platform-specific socket options directly.
func (c *Conn) FD() int { return c.fd }

// SetDeadline sets (or, with the zero time, clears) the connection's
// overall deadline (spec §4.12: DeadlineOverall).
func (c *Conn) SetDeadline(t time.Time) { c.deadline = t }

// SetReadTimeout sets the per-read timeout, overriding the executor's
// DefaultConnTimeout. Zero clears it (falls back to the executor default).
func (c *Conn) SetReadTimeout(d time.Duration) { c.readTimeout = d }

// SetWriteTimeout sets the per-write timeout. Zero clears it.
func (c *Conn) SetWriteTimeout(d time.Duration) { c.writeTimeout = d }

// Close performs a best-effort flush of whatever is still buffered in the
// writer (spec §4.9's guard-drop flush, see AsyncBufWriter.Close),
// deregisters the fd from the executor's poller, and closes it.
func (c *Conn) Close() error {
	c.writer.Close()
	c.ex.Deregister(c.fd)
	return closeFD(c.fd)
}

// effectiveTimeout picks the tighter of the overall deadline and the given
// per-op timeout (the executor's DefaultConnTimeout stands in for the
// per-op timeout whenever that is unset, whether or not an overall
// deadline is set), reporting which one it was so a firing timer can be
// tagged with the right DeadlineKind.
func (c *Conn) effectiveTimeout(opTimeout time.Duration, opKind DeadlineKind) (time.Duration, DeadlineKind, bool) {
	type candidate struct {
		d time.Duration
		k DeadlineKind
	}
	var candidates []candidate
	if !c.deadline.IsZero() {
		candidates = append(candidates, candidate{time.Until(c.deadline), DeadlineOverall})
	}
	if opTimeout > 0 {
		candidates = append(candidates, candidate{opTimeout, opKind})
	} else if c.ex.opts.defaultConnTimeout > 0 {
		candidates = append(candidates, candidate{c.ex.opts.defaultConnTimeout, opKind})
	}
	if len(candidates) == 0 {
		return 0, 0, false
	}
	best := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.d < best.d {
			best = cand
		}
	}
	if best.d < 0 {
		best.d = 0
	}
	return best.d, best.k, true
}

func withReadTimeout(ex *Executor, fut Future[ReadResult], d time.Duration, kind DeadlineKind) Future[ReadResult] {
	sel := Select(Case(fut), Case(Sleep(ex, d)))
	return PollFn(func(cx *Context) (ReadResult, bool) {
		res, ready := sel.Poll(cx)
		if !ready {
			return ReadResult{}, false
		}
		if res.Index == 0 {
			return res.Value.(ReadResult), true
		}
		return ReadResult{Err: NewTimeoutError(kind)}, true
	})
}

func withWriteTimeout(ex *Executor, fut Future[error], d time.Duration, kind DeadlineKind) Future[error] {
	sel := Select(Case(fut), Case(Sleep(ex, d)))
	return PollFn(func(cx *Context) (error, bool) {
		res, ready := sel.Poll(cx)
		if !ready {
			return nil, false
		}
		if res.Index == 0 {
			if res.Value == nil {
				return nil, true
			}
			return res.Value.(error), true
		}
		return NewTimeoutError(kind), true
	})
}

func (c *Conn) wrapRead(fut Future[ReadResult]) Future[ReadResult] {
	if d, kind, ok := c.effectiveTimeout(c.readTimeout, DeadlineRead); ok {
		return withReadTimeout(c.ex, fut, d, kind)
	}
	return fut
}

func (c *Conn) wrapWrite(fut Future[error]) Future[error] {
	if d, kind, ok := c.effectiveTimeout(c.writeTimeout, DeadlineWrite); ok {
		return withWriteTimeout(c.ex, fut, d, kind)
	}
	return fut
}

// ReadUntil reads until delim, subject to the connection's deadlines.
func (c *Conn) ReadUntil(delim byte) Future[ReadResult] {
	return c.wrapRead(c.reader.ReadUntil(delim))
}

// ReadUntilExclusive reads until delim, excluding it from the result,
// subject to the connection's deadlines.
func (c *Conn) ReadUntilExclusive(delim byte) Future[ReadResult] {
	return c.wrapRead(c.reader.ReadUntilExclusive(delim))
}

// ReadExactly reads exactly n bytes, subject to the connection's
// deadlines.
func (c *Conn) ReadExactly(n int) Future[ReadResult] {
	return c.wrapRead(c.reader.ReadExactly(n))
}

// ReadOnce returns whatever is immediately available, subject to the
// connection's deadlines.
func (c *Conn) ReadOnce() Future[ReadResult] {
	return c.wrapRead(c.reader.ReadOnce())
}

// ReadAll reads until EOF, subject to the connection's deadlines.
func (c *Conn) ReadAll() Future[ReadResult] {
	return c.wrapRead(c.reader.ReadAll())
}

// Write queues data (flushing if the coalescing buffer is full), subject
// to the connection's deadlines.
func (c *Conn) Write(data []byte) Future[error] {
	return c.wrapWrite(c.writer.Write(data))
}

// Send writes data and flushes it immediately, subject to the
// connection's deadlines.
func (c *Conn) Send(data []byte) Future[error] {
	return c.wrapWrite(c.writer.Send(data))
}

// Flush drains any buffered output, subject to the connection's
// deadlines.
func (c *Conn) Flush() Future[error] {
	return c.wrapWrite(c.writer.Flush())
}
