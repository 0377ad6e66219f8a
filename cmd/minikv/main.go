// Command minikv is the line-framed JSON key-value demo from
// SPEC_FULL.md's "Supplemented features" section, grounded on
// original_source/mini_redis/src/{request,response,db,client}.rs: a get/
// set/del protocol framed with a trailing newline ('\n'), reusing
// Conn.ReadUntilExclusive for request delimiting. It is explicitly out of scope for protocol
// correctness per spec.md's Non-goals -- this is a real, working program
// exercising the runtime core, not a tested wire format.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/finshing/asyncrt"
	"github.com/finshing/asyncrt/internal/logifaceadapter"
)

// crlf is the frame delimiter: a single '\n' byte, since Conn's delimited
// reads split on one byte.
const crlf = '\n'

// request mirrors the original's Request enum (Get/Set/Del) as a single
// tagged struct, since Go has no sum types.
type request struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// response mirrors the original's Response enum (Exist/NotFound/Err/Ok).
type response struct {
	Status string `json:"status"`
	Value  string `json:"value,omitempty"`
}

const (
	statusExist    = "exist"
	statusNotFound = "not_found"
	statusErr      = "err"
	statusOK       = "ok"
)

func main() {
	mode := flag.String("mode", "server", "server or client")
	addr := flag.String("addr", "127.0.0.1:9001", "address")
	op := flag.String("op", "get", "client op: get|set|del")
	key := flag.String("key", "", "client key")
	value := flag.String("value", "", "client value (set only)")
	flag.Parse()

	logger := logifaceadapter.New(asyncrt.LevelInfo)
	ex, err := asyncrt.NewExecutor(asyncrt.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, "minikv:", err)
		os.Exit(1)
	}
	defer ex.Close()

	switch *mode {
	case "server":
		runServer(ex, *addr)
	case "client":
		runClient(ex, *addr, *op, *key, *value)
	default:
		fmt.Fprintln(os.Stderr, "minikv: unknown mode", *mode)
		os.Exit(1)
	}

	if err := ex.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "minikv: run:", err)
		os.Exit(1)
	}
}

func runServer(ex *asyncrt.Executor, addr string) {
	l, err := asyncrt.Listen(ex, "tcp", addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minikv: listen:", err)
		os.Exit(1)
	}
	store := newStore()
	asyncrt.Serve(ex, l, func(ex *asyncrt.Executor, c *asyncrt.Conn) asyncrt.Future[struct{}] {
		return &serverConnFuture{c: c, store: store}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		ex.SpawnExternal(func(ex *asyncrt.Executor) {
			ex.RequestGracefulStop()
		})
	}()
}

// store is the in-memory key-value table, grounded on mini_redis/src/db.rs
// (there a lazy_static global behind a single-threaded unsafe cell; here a
// plain map, since the whole runtime already confines access to one
// goroutine).
type store struct {
	data map[string]string
}

func newStore() *store { return &store{data: make(map[string]string)} }

func (s *store) apply(req request) response {
	switch req.Op {
	case "set":
		s.data[req.Key] = req.Value
		return response{Status: statusOK}
	case "get":
		if v, ok := s.data[req.Key]; ok {
			return response{Status: statusExist, Value: v}
		}
		return response{Status: statusNotFound}
	case "del":
		if _, ok := s.data[req.Key]; ok {
			delete(s.data, req.Key)
			return response{Status: statusOK}
		}
		return response{Status: statusNotFound}
	default:
		return response{Status: statusErr, Value: fmt.Sprintf("unknown op %q", req.Op)}
	}
}

// serverConnFuture serves one connection for its lifetime: repeatedly read
// a newline-delimited request, apply it, and send back a newline-delimited
// response, until the client disconnects.
type serverConnFuture struct {
	c     *asyncrt.Conn
	store *store

	reading bool
	readFut asyncrt.Future[asyncrt.ReadResult]
	sendFut asyncrt.Future[error]
}

func (f *serverConnFuture) Poll(cx *asyncrt.Context) (struct{}, bool) {
	for {
		if f.sendFut == nil && !f.reading {
			f.reading = true
			f.readFut = f.c.ReadUntilExclusive(crlf)
		}
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
			var req request
			var resp response
			if err := json.Unmarshal(res.Data, &req); err != nil {
				resp = response{Status: statusErr, Value: err.Error()}
			} else {
				resp = f.store.apply(req)
			}
			body, _ := json.Marshal(resp)
			body = append(body, crlf)
			f.sendFut = f.c.Send(body)
		}
		res, ready := f.sendFut.Poll(cx)
		if !ready {
			return struct{}{}, false
		}
		f.sendFut = nil
		if res != nil {
			f.c.Close()
			return struct{}{}, true
		}
	}
}

func (f *serverConnFuture) Cancel() {
	if f.reading {
		if c, ok := f.readFut.(asyncrt.Cancellable); ok {
			c.Cancel()
		}
	} else if f.sendFut != nil {
		if c, ok := f.sendFut.(asyncrt.Cancellable); ok {
			c.Cancel()
		}
	}
}

// clientFuture sends one request and prints the single response, grounded
// on mini_redis/src/client.rs's RedisClient::cmd (send, then receive).
type clientFuture struct {
	c   *asyncrt.Conn
	req request

	sending bool
	sendFut asyncrt.Future[error]
	readFut asyncrt.Future[asyncrt.ReadResult]
}

func runClient(ex *asyncrt.Executor, addr, op, key, value string) {
	c, err := asyncrt.Dial(ex, "tcp", addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minikv: dial:", err)
		os.Exit(1)
	}
	asyncrt.Spawn[struct{}](ex, &clientFuture{c: c, req: request{Op: op, Key: key, Value: value}})
}

func (f *clientFuture) Poll(cx *asyncrt.Context) (struct{}, bool) {
	if f.sendFut == nil {
		f.sending = true
		body, _ := json.Marshal(f.req)
		body = append(body, crlf)
		f.sendFut = f.c.Send(body)
	}
	if f.sending {
		err, ready := f.sendFut.Poll(cx)
		if !ready {
			return struct{}{}, false
		}
		f.sending = false
		if err != nil {
			fmt.Fprintln(os.Stderr, "minikv: send:", err)
			f.c.Close()
			return struct{}{}, true
		}
		f.readFut = f.c.ReadUntilExclusive(crlf)
	}
	res, ready := f.readFut.Poll(cx)
	if !ready {
		return struct{}{}, false
	}
	f.c.Close()
	if res.Err != nil {
		fmt.Fprintln(os.Stderr, "minikv: read:", res.Err)
		return struct{}{}, true
	}
	var resp response
	if err := json.Unmarshal(res.Data, &resp); err != nil {
		fmt.Fprintln(os.Stderr, "minikv: decode:", err)
		return struct{}{}, true
	}
	fmt.Printf("%s %s\n", resp.Status, resp.Value)
	return struct{}{}, true
}

func (f *clientFuture) Cancel() {
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
