package asyncrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeThenCloseFuture sends data over c, then closes it, letting the
// reader side observe both the bytes and the subsequent EOF.
type writeThenCloseFuture struct {
	c    *Conn
	data []byte

	sendFut Future[error]
}

func (f *writeThenCloseFuture) Poll(cx *Context) (struct{}, bool) {
	if f.sendFut == nil {
		f.sendFut = f.c.Send(f.data)
	}
	if _, ready := f.sendFut.Poll(cx); !ready {
		return struct{}{}, false
	}
	_ = f.c.Close()
	return struct{}{}, true
}

// readUntilFuture drives a single Conn read operation (selected by which)
// to completion and records its result.
type readUntilFuture struct {
	c      *Conn
	which  func(*Conn) Future[ReadResult]
	out    *ReadResult
	wasSet *bool

	fut Future[ReadResult]
}

func (f *readUntilFuture) Poll(cx *Context) (struct{}, bool) {
	if f.fut == nil {
		f.fut = f.which(f.c)
	}
	res, ready := f.fut.Poll(cx)
	if !ready {
		return struct{}{}, false
	}
	*f.out = res
	*f.wasSet = true
	_ = f.c.Close()
	return struct{}{}, true
}

// runClientServerOnce wires up a listener/dial pair, runs server (writer
// side) and client (reader side) futures to completion, and returns.
func runClientServerOnce(t *testing.T, addr string, server func(*Conn) Future[struct{}], client func(ex *Executor, c *Conn) Future[struct{}]) {
	t.Helper()
	ex, err := NewExecutor()
	require.NoError(t, err)
	defer ex.Close()

	l, err := Listen(ex, "tcp", addr)
	require.NoError(t, err)
	Serve(ex, l, func(ex *Executor, c *Conn) Future[struct{}] { return server(c) })

	Spawn(ex, PollFn(func(cx *Context) (struct{}, bool) {
		c, err := Dial(ex, "tcp", addr)
		if err != nil {
			panic(err)
		}
		Spawn(ex, client(ex, c))
		return struct{}{}, true
	}))
	Spawn(ex, &closeAfterFuture{ex: ex, d: 200 * time.Millisecond, closer: l})

	require.NoError(t, ex.Run())
}

// TestAsyncReaderReadUntilFramesOnDelimiter is spec §4.9/§8: ReadUntil
// returns exactly the bytes up to and including the delimiter.
func TestAsyncReaderReadUntilFramesOnDelimiter(t *testing.T) {
	var res ReadResult
	var set bool
	runClientServerOnce(t, "127.0.0.1:18481",
		func(c *Conn) Future[struct{}] {
			return &writeThenCloseFuture{c: c, data: []byte("line one\nrest")}
		},
		func(ex *Executor, c *Conn) Future[struct{}] {
			return &readUntilFuture{c: c, out: &res, wasSet: &set, which: func(c *Conn) Future[ReadResult] {
				return c.ReadUntil('\n')
			}}
		},
	)
	require.True(t, set, "client read never completed")
	require.NoError(t, res.Err)
	assert.Equal(t, "line one\n", string(res.Data))
}

func TestAsyncReaderReadUntilExclusiveDropsDelimiter(t *testing.T) {
	var res ReadResult
	var set bool
	runClientServerOnce(t, "127.0.0.1:18482",
		func(c *Conn) Future[struct{}] {
			return &writeThenCloseFuture{c: c, data: []byte("framed\n")}
		},
		func(ex *Executor, c *Conn) Future[struct{}] {
			return &readUntilFuture{c: c, out: &res, wasSet: &set, which: func(c *Conn) Future[ReadResult] {
				return c.ReadUntilExclusive('\n')
			}}
		},
	)
	require.True(t, set, "client read never completed")
	assert.Equal(t, "framed", string(res.Data))
}

func TestAsyncReaderReadExactlyWaitsForFullCount(t *testing.T) {
	var res ReadResult
	var set bool
	runClientServerOnce(t, "127.0.0.1:18483",
		func(c *Conn) Future[struct{}] {
			return &writeThenCloseFuture{c: c, data: []byte("abcdefgh")}
		},
		func(ex *Executor, c *Conn) Future[struct{}] {
			return &readUntilFuture{c: c, out: &res, wasSet: &set, which: func(c *Conn) Future[ReadResult] {
				return c.ReadExactly(5)
			}}
		},
	)
	require.True(t, set, "client read never completed")
	assert.Equal(t, "abcde", string(res.Data))
}

// TestAsyncReaderReadExactlyOnEarlyCloseIsEOFError pins spec §4.9/§7: a
// delimited/exact read that hits EOF before satisfying its condition
// surfaces ErrEOF as an error, unlike ReadAll.
func TestAsyncReaderReadExactlyOnEarlyCloseIsEOFError(t *testing.T) {
	var res ReadResult
	var set bool
	runClientServerOnce(t, "127.0.0.1:18484",
		func(c *Conn) Future[struct{}] {
			return &writeThenCloseFuture{c: c, data: []byte("ab")}
		},
		func(ex *Executor, c *Conn) Future[struct{}] {
			return &readUntilFuture{c: c, out: &res, wasSet: &set, which: func(c *Conn) Future[ReadResult] {
				return c.ReadExactly(10)
			}}
		},
	)
	require.True(t, set, "client read never completed")
	assert.Error(t, res.Err, "expected an error for a short read ending in EOF")
}

// TestAsyncReaderReadAllTreatsEOFAsSuccess pins the other half of the same
// rule: ReadAll's EOF is not an error.
func TestAsyncReaderReadAllTreatsEOFAsSuccess(t *testing.T) {
	var res ReadResult
	var set bool
	runClientServerOnce(t, "127.0.0.1:18485",
		func(c *Conn) Future[struct{}] {
			return &writeThenCloseFuture{c: c, data: []byte("everything")}
		},
		func(ex *Executor, c *Conn) Future[struct{}] {
			return &readUntilFuture{c: c, out: &res, wasSet: &set, which: func(c *Conn) Future[ReadResult] {
				return c.ReadAll()
			}}
		},
	)
	require.True(t, set, "client read never completed")
	assert.NoError(t, res.Err, "ReadAll must treat EOF as success")
	assert.Equal(t, "everything", string(res.Data))
}
