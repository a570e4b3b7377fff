package sockettest

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/kleeedolinux/legacyio/socket/transport"
)

// Result is one scripted outcome of Conn.Receive.
type Result struct {
	Frame transport.Frame
	Err   error
}

func Text(s string) Result {
	return Result{Frame: transport.TextFrame(s)}
}

func Binary(b []byte) Result {
	return Result{Frame: transport.Frame{Kind: transport.FrameBinary, Data: b}}
}

func Ping(payload string) Result {
	return Result{Frame: transport.Frame{Kind: transport.FramePing, Data: []byte(payload)}}
}

func Pong(payload string) Result {
	return Result{Frame: transport.Frame{Kind: transport.FramePong, Data: []byte(payload)}}
}

func Close(reason string) Result {
	return Result{Frame: transport.Frame{Kind: transport.FrameClose, CloseCode: 1000, CloseReason: reason, HasReason: true}}
}

func CloseNoReason() Result {
	return Result{Frame: transport.Frame{Kind: transport.FrameClose, CloseCode: 1005}}
}

func Failure(err error) Result {
	return Result{Err: err}
}

// Conn is a scripted transport.Conn. Receive replays the script in order,
// then reads pushed results. With WouldBlock set an empty Conn returns
// transport.ErrWouldBlock immediately; otherwise it waits for ctx.
type Conn struct {
	WouldBlock bool

	mu       sync.Mutex
	script   []Result
	pushed   chan Result
	sent     []transport.Frame
	closed   bool
	done     chan struct{}
	receives atomic.Int64
}

func NewConn(script ...Result) *Conn {
	return &Conn{
		script: script,
		pushed: make(chan Result, 64),
		done:   make(chan struct{}),
	}
}

// Push queues a result for a later Receive.
func (c *Conn) Push(r Result) {
	c.pushed <- r
}

// Receives returns how many times Receive has been called.
func (c *Conn) Receives() int {
	return int(c.receives.Load())
}

func (c *Conn) Receive(ctx context.Context) (transport.Frame, error) {
	c.receives.Add(1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return transport.Frame{}, net.ErrClosed
	}
	if len(c.script) > 0 {
		r := c.script[0]
		c.script = c.script[1:]
		c.mu.Unlock()
		return r.Frame, r.Err
	}
	c.mu.Unlock()

	select {
	case r := <-c.pushed:
		return r.Frame, r.Err
	default:
	}
	if c.WouldBlock {
		return transport.Frame{}, transport.ErrWouldBlock
	}

	select {
	case r := <-c.pushed:
		return r.Frame, r.Err
	case <-c.done:
		return transport.Frame{}, net.ErrClosed
	case <-ctx.Done():
		return transport.Frame{}, ctx.Err()
	}
}

func (c *Conn) Send(f transport.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	c.sent = append(c.sent, f)
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Sent returns a copy of every frame written so far.
func (c *Conn) Sent() []transport.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]transport.Frame, len(c.sent))
	copy(out, c.sent)
	return out
}

// SentText returns the payloads of text frames written so far.
func (c *Conn) SentText() []string {
	var out []string
	for _, f := range c.Sent() {
		if f.Kind == transport.FrameText {
			out = append(out, string(f.Data))
		}
	}
	return out
}
