package asyncrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoOnceFuture reads one chunk from c and writes it straight back,
// closing c once done. Mirrors cmd/echosrv's handler in miniature.
type echoOnceFuture struct {
	c *Conn

	step    int
	readFut Future[ReadResult]
	sendFut Future[error]
}

func (f *echoOnceFuture) Poll(cx *Context) (struct{}, bool) {
	for {
		switch f.step {
		case 0:
			if f.readFut == nil {
				f.readFut = f.c.ReadOnce()
			}
			res, ready := f.readFut.Poll(cx)
			if !ready {
				return struct{}{}, false
			}
			if res.Err != nil || len(res.Data) == 0 {
				_ = f.c.Close()
				return struct{}{}, true
			}
			f.sendFut = f.c.Send(res.Data)
			f.step = 1
		case 1:
			_, ready := f.sendFut.Poll(cx)
			if !ready {
				return struct{}{}, false
			}
			_ = f.c.Close()
			return struct{}{}, true
		}
	}
}

// clientRoundTripFuture dials, sends a payload, reads the echo back, and
// records it.
type clientRoundTripFuture struct {
	ex      *Executor
	addr    string
	payload []byte
	out     *[]byte

	step    int
	conn    *Conn
	sendFut Future[error]
	readFut Future[ReadResult]
}

func (f *clientRoundTripFuture) Poll(cx *Context) (struct{}, bool) {
	for {
		switch f.step {
		case 0:
			c, err := Dial(f.ex, "tcp", f.addr)
			if err != nil {
				panic(err)
			}
			f.conn = c
			f.sendFut = c.Send(f.payload)
			f.step = 1
		case 1:
			_, ready := f.sendFut.Poll(cx)
			if !ready {
				return struct{}{}, false
			}
			f.readFut = f.conn.ReadOnce()
			f.step = 2
		case 2:
			res, ready := f.readFut.Poll(cx)
			if !ready {
				return struct{}{}, false
			}
			if res.Err == nil {
				*f.out = append([]byte(nil), res.Data...)
			}
			_ = f.conn.Close()
			return struct{}{}, true
		}
	}
}

// TestConnEchoRoundTrip is scenario S2 (spec §8): a real loopback TCP
// connection carries a payload out and back through Listen/Dial/Conn.
func TestConnEchoRoundTrip(t *testing.T) {
	ex, err := NewExecutor()
	require.NoError(t, err)
	defer ex.Close()

	const addr = "127.0.0.1:18471"
	l, err := Listen(ex, "tcp", addr)
	require.NoError(t, err)

	Serve(ex, l, func(ex *Executor, c *Conn) Future[struct{}] {
		return &echoOnceFuture{c: c}
	})

	var got []byte
	payload := []byte("hello asyncrt")
	Spawn(ex, &clientRoundTripFuture{ex: ex, addr: addr, payload: payload, out: &got})

	Spawn(ex, &closeAfterFuture{ex: ex, d: 100 * time.Millisecond, closer: l})

	require.NoError(t, ex.Run())
	assert.Equal(t, string(payload), string(got), "got echoed mismatch")
}

// closeAfterFuture sleeps for d, then closes closer: used to stop a
// listener's accept loop once a test's traffic has had time to complete.
type closeAfterFuture struct {
	ex     *Executor
	d      time.Duration
	closer interface{ Close() error }

	fut Future[struct{}]
}

func (f *closeAfterFuture) Poll(cx *Context) (struct{}, bool) {
	if f.fut == nil {
		f.fut = Sleep(f.ex, f.d)
	}
	if _, ready := f.fut.Poll(cx); !ready {
		return struct{}{}, false
	}
	_ = f.closer.Close()
	return struct{}{}, true
}

// timeoutReadFuture dials addr, arms a short read timeout, and reads once,
// recording whatever error comes back.
type timeoutReadFuture struct {
	ex      *Executor
	addr    string
	timeout time.Duration
	outErr  *error

	step    int
	conn    *Conn
	readFut Future[ReadResult]
}

func (f *timeoutReadFuture) Poll(cx *Context) (struct{}, bool) {
	switch f.step {
	case 0:
		c, err := Dial(f.ex, "tcp", f.addr)
		if err != nil {
			panic(err)
		}
		c.SetReadTimeout(f.timeout)
		f.conn = c
		f.readFut = c.ReadOnce()
		f.step = 1
		fallthrough
	case 1:
		res, ready := f.readFut.Poll(cx)
		if !ready {
			return struct{}{}, false
		}
		*f.outErr = res.Err
		_ = f.conn.Close()
		return struct{}{}, true
	}
	return struct{}{}, true
}

// TestConnReadTimeoutFiresAsTimeoutError is scenario S5 (spec §8): a read
// with no data arriving within the configured timeout resolves to a
// TimeoutError rather than blocking forever.
func TestConnReadTimeoutFiresAsTimeoutError(t *testing.T) {
	ex, err := NewExecutor()
	require.NoError(t, err)
	defer ex.Close()

	const addr = "127.0.0.1:18472"
	l, err := Listen(ex, "tcp", addr)
	require.NoError(t, err)

	// Server accepts and never writes back until after the client's read
	// has had time to time out, then closes its side so the handler task
	// itself terminates.
	Serve(ex, l, func(ex *Executor, c *Conn) Future[struct{}] {
		return &closeAfterFuture{ex: ex, d: 50 * time.Millisecond, closer: c}
	})

	var gotErr error
	Spawn(ex, &timeoutReadFuture{ex: ex, addr: addr, timeout: 20 * time.Millisecond, outErr: &gotErr})
	Spawn(ex, &closeAfterFuture{ex: ex, d: 100 * time.Millisecond, closer: l})

	require.NoError(t, ex.Run())
	require.Error(t, gotErr, "expected a timeout error")

	var te *TimeoutError
	require.ErrorAs(t, gotErr, &te)
	assert.Equal(t, DeadlineRead, te.Kind)
	assert.ErrorIs(t, gotErr, ReadTimeout)
}
