// Command echosrv is the TCP echo demo server from SPEC_FULL.md's
// "Supplemented features" section: it accepts connections, reads once, and
// writes back `fmt.Sprintf("%s(size=%d)", line, len(line))`, matching
// end-to-end scenario S2. It is not part of the specified runtime core; it
// exists only to exercise Listener/Conn/Serve against a real socket.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/finshing/asyncrt"
	"github.com/finshing/asyncrt/internal/logifaceadapter"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "address to listen on")
	flag.Parse()

	logger := logifaceadapter.New(asyncrt.LevelInfo)

	ex, err := asyncrt.NewExecutor(asyncrt.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, "echosrv: new executor:", err)
		os.Exit(1)
	}
	defer ex.Close()

	l, err := asyncrt.Listen(ex, "tcp", *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "echosrv: listen:", err)
		os.Exit(1)
	}
	defer l.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		ex.SpawnExternal(func(ex *asyncrt.Executor) {
			ex.RequestGracefulStop()
		})
	}()

	asyncrt.Serve(ex, l, handleEcho)

	if err := ex.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "echosrv: run:", err)
		os.Exit(1)
	}
}

// echoFuture drives the single demonstrated round trip from scenario S2:
// read once, write back the payload annotated with its size, then close.
// It's a stateful struct (not a stateless PollFn) because it spans two
// awaits -- the read and the send -- and must resume the same in-flight
// future across polls rather than re-creating it each time.
type echoFuture struct {
	c       *asyncrt.Conn
	readFut asyncrt.Future[asyncrt.ReadResult]
	sendFut asyncrt.Future[error]
	reading bool
}

func handleEcho(ex *asyncrt.Executor, c *asyncrt.Conn) asyncrt.Future[struct{}] {
	return &echoFuture{c: c, readFut: c.ReadOnce(), reading: true}
}

func (f *echoFuture) Poll(cx *asyncrt.Context) (struct{}, bool) {
	if f.reading {
		res, ready := f.readFut.Poll(cx)
		if !ready {
			return struct{}{}, false
		}
		f.reading = false
		if res.Err != nil {
			f.c.Close()
			return struct{}{}, true
		}
		reply := fmt.Sprintf("%s(size=%d)", res.Data, len(res.Data))
		f.sendFut = f.c.Send([]byte(reply))
	}
	if _, ready := f.sendFut.Poll(cx); !ready {
		return struct{}{}, false
	}
	f.c.Close()
	return struct{}{}, true
}

func (f *echoFuture) Cancel() {
	if f.reading {
		if can, ok := f.readFut.(asyncrt.Cancellable); ok {
			can.Cancel()
		}
	} else if f.sendFut != nil {
		if can, ok := f.sendFut.(asyncrt.Cancellable); ok {
			can.Cancel()
		}
	}
}
