package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kleeedolinux/legacyio/debug"
)

type readResult struct {
	frame Frame
	err   error
}

// WebSocketConn adapts a gorilla connection to Conn. A single goroutine owns
// ReadMessage and hands frames over a channel, since gorilla connections
// cannot be read again after a read deadline expires.
type WebSocketConn struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
	incoming     chan readResult
	done         chan struct{}
	closeOnce    sync.Once
}

type dialConfig struct {
	dialer           websocket.Dialer
	headers          http.Header
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	bufferSize       int
}

type WebSocketOption func(*dialConfig)

func WithHeaders(headers http.Header) WebSocketOption {
	return func(c *dialConfig) {
		for k, v := range headers {
			c.headers[k] = append(c.headers[k], v...)
		}
	}
}

func WithHandshakeTimeout(timeout time.Duration) WebSocketOption {
	return func(c *dialConfig) {
		c.handshakeTimeout = timeout
	}
}

func WithWriteTimeout(timeout time.Duration) WebSocketOption {
	return func(c *dialConfig) {
		c.writeTimeout = timeout
	}
}

func WithCompression(enabled bool) WebSocketOption {
	return func(c *dialConfig) {
		c.dialer.EnableCompression = enabled
	}
}

// WithBufferSize sets how many received frames may queue before reads stall.
func WithBufferSize(n int) WebSocketOption {
	return func(c *dialConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// Dial opens a websocket connection to rawURL.
func Dial(ctx context.Context, rawURL string, opts ...WebSocketOption) (*WebSocketConn, error) {
	cfg := &dialConfig{
		dialer:           *websocket.DefaultDialer,
		headers:          make(http.Header),
		handshakeTimeout: 10 * time.Second,
		writeTimeout:     10 * time.Second,
		bufferSize:       64,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.dialer.HandshakeTimeout = cfg.handshakeTimeout

	debug.Printf("WebSocketConn: connecting to %s", rawURL)
	conn, resp, err := cfg.dialer.DialContext(ctx, rawURL, cfg.headers)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		debug.Printf("WebSocketConn: connection failed: %v", err)
		return nil, err
	}
	debug.Printf("WebSocketConn: connected")

	return NewWebSocketConn(conn, cfg.writeTimeout, cfg.bufferSize), nil
}

// NewWebSocketConn wraps an established gorilla connection and starts its reader.
func NewWebSocketConn(conn *websocket.Conn, writeTimeout time.Duration, bufferSize int) *WebSocketConn {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	c := &WebSocketConn{
		conn:         conn,
		writeTimeout: writeTimeout,
		incoming:     make(chan readResult, bufferSize),
		done:         make(chan struct{}),
	}

	// Pings are surfaced to the owner, which answers them through Send.
	conn.SetPingHandler(func(data string) error {
		c.deliver(readResult{frame: Frame{Kind: FramePing, Data: []byte(data)}})
		return nil
	})
	conn.SetPongHandler(func(data string) error {
		c.deliver(readResult{frame: Frame{Kind: FramePong, Data: []byte(data)}})
		return nil
	})

	go c.readLoop()
	return c
}

func (c *WebSocketConn) readLoop() {
	defer close(c.incoming)
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				debug.Printf("WebSocketConn: close frame %d %q", ce.Code, ce.Text)
				c.deliver(readResult{frame: closeFrame(ce)})
				return
			}
			debug.Printf("WebSocketConn: read error: %v", err)
			c.deliver(readResult{err: err})
			return
		}

		kind := FrameText
		if mt == websocket.BinaryMessage {
			kind = FrameBinary
		}
		debug.Printf("WebSocketConn: received %s frame: %s", kind, string(data))
		if !c.deliver(readResult{frame: Frame{Kind: kind, Data: data}}) {
			return
		}
	}
}

func closeFrame(ce *websocket.CloseError) Frame {
	f := Frame{Kind: FrameClose, CloseCode: ce.Code}
	if ce.Code != websocket.CloseNoStatusReceived {
		f.CloseReason = ce.Text
		f.HasReason = true
	}
	return f
}

func (c *WebSocketConn) deliver(r readResult) bool {
	select {
	case c.incoming <- r:
		return true
	case <-c.done:
		return false
	}
}

func (c *WebSocketConn) Receive(ctx context.Context) (Frame, error) {
	select {
	case r, ok := <-c.incoming:
		if !ok {
			return Frame{}, net.ErrClosed
		}
		return r.frame, r.err
	case <-c.done:
		return Frame{}, net.ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (c *WebSocketConn) Send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}

	deadline := time.Time{}
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}

	debug.Printf("WebSocketConn: sending %s frame: %s", f.Kind, string(f.Data))
	var err error
	switch f.Kind {
	case FrameText:
		if err = c.conn.SetWriteDeadline(deadline); err == nil {
			err = c.conn.WriteMessage(websocket.TextMessage, f.Data)
		}
	case FrameBinary:
		if err = c.conn.SetWriteDeadline(deadline); err == nil {
			err = c.conn.WriteMessage(websocket.BinaryMessage, f.Data)
		}
	case FramePing:
		err = c.conn.WriteControl(websocket.PingMessage, f.Data, deadline)
	case FramePong:
		err = c.conn.WriteControl(websocket.PongMessage, f.Data, deadline)
	case FrameClose:
		code := f.CloseCode
		if code == 0 {
			code = websocket.CloseNormalClosure
		}
		err = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, f.CloseReason), deadline)
	default:
		err = errors.New("transport: unknown frame kind")
	}
	if err != nil {
		debug.Printf("WebSocketConn: send error: %v", err)
	}
	return err
}

// Close sends a normal closure frame (best effort) and closes the socket.
// It is safe to call from another goroutine to stop a blocked Receive.
func (c *WebSocketConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		debug.Printf("WebSocketConn: closing connection")
		c.mu.Lock()
		close(c.done)
		if werr := c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		); werr != nil {
			debug.Printf("WebSocketConn: error sending close message: %v", werr)
		}
		c.mu.Unlock()

		err = c.conn.Close()
		if err != nil {
			debug.Printf("WebSocketConn: error closing connection: %v", err)
		}
	})
	return err
}
