// Package sockettest provides an in-process legacy socket.io server and a
// scripted transport.Conn for testing clients.
package sockettest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kleeedolinux/legacyio/debug"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server answers handshakes on /{namespace}/1 and accepts websocket
// connections on /{namespace}/1/websocket/{sid}.
type Server struct {
	*httptest.Server

	Namespace string

	// HandshakeBody builds the handshake response for a new session id.
	// Defaults to "sid:60:60:websocket,xhr-polling".
	HandshakeBody func(sid string) string

	// HandshakeStatus overrides the handshake status code when non-zero.
	HandshakeStatus int

	handshakes atomic.Int64
	nextSID    atomic.Int64
	accepted   chan *ServerConn

	mu      sync.Mutex
	headers []http.Header
}

// NewServer starts a server for namespace (socket.io when empty).
func NewServer(namespace string) *Server {
	if namespace == "" {
		namespace = "socket.io"
	}
	s := &Server{
		Namespace: namespace,
		accepted:  make(chan *ServerConn, 16),
	}
	s.HandshakeBody = func(sid string) string {
		return sid + ":60:60:websocket,xhr-polling"
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// Handshakes returns the number of handshake requests served.
func (s *Server) Handshakes() int {
	return int(s.handshakes.Load())
}

// RequestHeaders returns the headers of every request served, in order.
func (s *Server) RequestHeaders() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]http.Header, len(s.headers))
	copy(out, s.headers)
	return out
}

// Accept waits for the next websocket connection.
func (s *Server) Accept(timeout time.Duration) (*ServerConn, error) {
	select {
	case c := <-s.accepted:
		return c, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("sockettest: no connection within %v", timeout)
	}
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.headers = append(s.headers, r.Header.Clone())
	s.mu.Unlock()

	prefix := "/" + s.Namespace + "/1"
	switch {
	case r.URL.Path == prefix || r.URL.Path == prefix+"/":
		s.handleHandshake(w)
	case strings.HasPrefix(r.URL.Path, prefix+"/websocket/"):
		sid := strings.TrimPrefix(r.URL.Path, prefix+"/websocket/")
		s.handleWebSocket(w, r, sid)
	default:
		http.Error(w, "Unknown endpoint", http.StatusNotFound)
	}
}

func (s *Server) handleHandshake(w http.ResponseWriter) {
	s.handshakes.Add(1)
	sid := fmt.Sprintf("sid%d", s.nextSID.Add(1))
	if s.HandshakeStatus != 0 {
		w.WriteHeader(s.HandshakeStatus)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(s.HandshakeBody(sid)))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, sid string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Printf("sockettest: upgrade failed: %v", err)
		return
	}
	sc := newServerConn(sid, conn)
	s.accepted <- sc
}

// ServerConn is the server side of one accepted websocket.
type ServerConn struct {
	SID string

	conn     *websocket.Conn
	sendCh   chan []byte
	closeCh  chan struct{}
	received chan string
	pings    chan string
	writeWg  sync.WaitGroup
	mu       sync.Mutex
	closed   bool
}

func newServerConn(sid string, conn *websocket.Conn) *ServerConn {
	c := &ServerConn{
		SID:      sid,
		conn:     conn,
		sendCh:   make(chan []byte, 64),
		closeCh:  make(chan struct{}),
		received: make(chan string, 64),
		pings:    make(chan string, 16),
	}
	conn.SetPongHandler(func(data string) error {
		select {
		case c.pings <- data:
		default:
		}
		return nil
	})

	c.writeWg.Add(1)
	go c.writePump()
	go c.readPump()
	return c
}

func (c *ServerConn) writePump() {
	defer c.writeWg.Done()
	for {
		select {
		case <-c.closeCh:
			return
		case message := <-c.sendCh:
			c.mu.Lock()
			err := c.conn.WriteMessage(websocket.TextMessage, message)
			c.mu.Unlock()
			if err != nil {
				debug.Printf("sockettest %s: write error: %v", c.SID, err)
				return
			}
		}
	}
}

func (c *ServerConn) readPump() {
	defer close(c.received)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.received <- string(data)
	}
}

// Send queues a text frame.
func (c *ServerConn) Send(text string) {
	select {
	case c.sendCh <- []byte(text):
	case <-c.closeCh:
	}
}

// Ping sends a websocket ping with payload.
func (c *ServerConn) Ping(payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, []byte(payload), time.Now().Add(time.Second))
}

// Pongs returns payloads of pongs received from the client.
func (c *ServerConn) Pongs() <-chan string {
	return c.pings
}

// Read waits for the next text frame from the client.
func (c *ServerConn) Read(timeout time.Duration) (string, error) {
	select {
	case msg, ok := <-c.received:
		if !ok {
			return "", fmt.Errorf("sockettest %s: connection closed", c.SID)
		}
		return msg, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("sockettest %s: no frame within %v", c.SID, timeout)
	}
}

// CloseWith sends a close frame carrying code and reason, then drops the socket.
func (c *ServerConn) CloseWith(code int, reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closeCh)
	err := c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	)
	c.mu.Unlock()

	c.writeWg.Wait()
	// let the close frame reach the peer before the TCP connection goes away
	time.Sleep(50 * time.Millisecond)
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close closes with a normal closure and no reason.
func (c *ServerConn) Close() error {
	return c.CloseWith(websocket.CloseNormalClosure, "")
}
