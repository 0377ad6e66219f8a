// Command echoclient is the client half of the echo demo (scenario S2): it
// connects, sends a payload, and prints whatever ReadAll returns once the
// server closes its side.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/finshing/asyncrt"
	"github.com/finshing/asyncrt/internal/logifaceadapter"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "server address")
	message := flag.String("msg", "hello", "payload to send")
	flag.Parse()

	logger := logifaceadapter.New(asyncrt.LevelInfo)

	ex, err := asyncrt.NewExecutor(asyncrt.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, "echoclient: new executor:", err)
		os.Exit(1)
	}
	defer ex.Close()

	c, err := asyncrt.Dial(ex, "tcp", *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "echoclient: dial:", err)
		os.Exit(1)
	}

	exitCode := 0
	asyncrt.Spawn[struct{}](ex, &roundTripFuture{c: c, msg: *message, exitCode: &exitCode})

	if err := ex.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "echoclient: run:", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// roundTripFuture sends msg, then reads until the server closes the
// connection, printing whatever came back. Two awaits (send, then
// read-to-EOF) means it needs to be a stateful struct, not a one-shot
// PollFn, to resume the in-flight sub-future across polls.
type roundTripFuture struct {
	c        *asyncrt.Conn
	msg      string
	exitCode *int

	sending bool
	sendFut asyncrt.Future[error]
	readFut asyncrt.Future[asyncrt.ReadResult]
}

func (f *roundTripFuture) Poll(cx *asyncrt.Context) (struct{}, bool) {
	if f.sendFut == nil {
		f.sending = true
		f.sendFut = f.c.Send([]byte(f.msg))
	}
	if f.sending {
		err, ready := f.sendFut.Poll(cx)
		if !ready {
			return struct{}{}, false
		}
		f.sending = false
		if err != nil {
			fmt.Fprintln(os.Stderr, "echoclient: send:", err)
			*f.exitCode = 1
			f.c.Close()
			return struct{}{}, true
		}
		f.readFut = f.c.ReadAll()
	}
	res, ready := f.readFut.Poll(cx)
	if !ready {
		return struct{}{}, false
	}
	f.c.Close()
	if res.Err != nil {
		fmt.Fprintln(os.Stderr, "echoclient: read:", res.Err)
		*f.exitCode = 1
		return struct{}{}, true
	}
	fmt.Println(string(res.Data))
	return struct{}{}, true
}

func (f *roundTripFuture) Cancel() {
	if f.sending {
		if c, ok := f.sendFut.(asyncrt.Cancellable); ok {
			c.Cancel()
		}
		return
	}
	if f.readFut != nil {
		if c, ok := f.readFut.(asyncrt.Cancellable); ok {
			c.Cancel()
		}
	}
}
