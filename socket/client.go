package socket

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kleeedolinux/legacyio/socket/transport"
	"github.com/kleeedolinux/legacyio/telemetry"
)

// DialFunc opens the websocket transport.
type DialFunc func(ctx context.Context, rawURL string, header http.Header) (transport.Conn, error)

// Client connects to one legacy socket.io origin. It never reconnects on its
// own: callers that want resilience call Run again after it returns.
type Client struct {
	mu           sync.Mutex
	origin       *url.URL
	namespace    string
	httpClient   *http.Client
	dial         DialFunc
	header       http.Header
	wsOptions    []transport.WebSocketOption
	pollInterval time.Duration
	logger       *slog.Logger

	session *Session
	conn    transport.Conn
}

type ClientOption func(*Client)

// WithNamespace replaces the default "socket.io" path segment.
func WithNamespace(namespace string) ClientOption {
	return func(c *Client) {
		c.namespace = namespace
	}
}

// WithHTTPClient sets the client used for the handshake.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithDialer replaces the gorilla websocket dialer.
func WithDialer(dial DialFunc) ClientOption {
	return func(c *Client) {
		c.dial = dial
	}
}

// WithTransportOptions tunes the default gorilla dialer. It has no effect
// together with WithDialer.
func WithTransportOptions(opts ...transport.WebSocketOption) ClientOption {
	return func(c *Client) {
		c.wsOptions = append(c.wsOptions, opts...)
	}
}

// WithHeader adds headers to the handshake request and the websocket upgrade.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for k, v := range header {
			c.header[k] = append(c.header[k], v...)
		}
	}
}

// WithPollInterval bounds how long one receive waits before the loop
// re-checks heartbeats. Heartbeat timing is no finer than this interval for
// transports that return transport.ErrWouldBlock.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient validates origin (http or https) and applies opts.
func NewClient(origin string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, invalidURL(origin, err.Error())
	}
	if err := checkBase(u); err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, invalidURL(origin, "unsupported scheme \""+u.Scheme+"\"")
	}

	telemetry.Init()

	c := &Client{
		origin:       u,
		namespace:    DefaultNamespace,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		header:       make(http.Header),
		pollInterval: time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dial == nil {
		c.dial = c.dialWebSocket
	}
	return c, nil
}

func (c *Client) dialWebSocket(ctx context.Context, rawURL string, header http.Header) (transport.Conn, error) {
	opts := append([]transport.WebSocketOption{transport.WithHeaders(header)}, c.wsOptions...)
	conn, err := transport.Dial(ctx, rawURL, opts...)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Origin returns the configured origin URL.
func (c *Client) Origin() *url.URL {
	u := *c.origin
	return &u
}

// Session returns the current session, or nil when not connected.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect performs the handshake and opens the websocket. It is a no-op when
// already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "socketio.connect",
		attribute.String("origin", c.origin.String()),
		attribute.String("namespace", c.namespace))
	defer span.End()

	hs, err := PerformHandshake(ctx, c.httpClient, c.origin, c.namespace, c.header)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	span.SetAttributes(attribute.String("sid", hs.SID))

	u, err := TransportURL(c.origin, c.namespace, hs.SID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	conn, err := c.dial(ctx, u.String(), c.header.Clone())
	if err != nil {
		err = transportError(err)
		telemetry.RecordError(span, err)
		return err
	}

	c.conn = conn
	c.session = newSession(hs, time.Now())
	telemetry.SetSpanSuccess(span)

	telemetry.LoggerWithCorr(ctx, c.logger).Info("socket.io connected",
		slog.String("sid", hs.SID),
		slog.String("url", u.Redacted()),
		slog.Duration("heartbeat_interval", c.session.HeartbeatInterval))
	return nil
}

// Run connects if needed, then processes frames until the connection ends.
// handler is called synchronously for every event; it may be nil. Run always
// returns a non-nil error describing why the connection stopped, and the
// client is disconnected afterwards.
func (c *Client) Run(ctx context.Context, handler EventHandler) error {
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())

	if err := c.Connect(ctx); err != nil {
		telemetry.IncClosed(kindOf(err).String())
		return err
	}

	c.mu.Lock()
	conn, sess := c.conn, c.session
	c.mu.Unlock()
	if conn == nil {
		// closed between Connect and here
		return transportError(net.ErrClosed)
	}

	log := telemetry.LoggerWithCorr(ctx, c.logger).With(slog.String("sid", sess.SID))

	ctx, span := telemetry.StartSpan(ctx, "socketio.run", attribute.String("sid", sess.SID))
	telemetry.SetConnected(true)

	err := c.loop(ctx, conn, sess, handler, log)

	telemetry.SetConnected(false)
	telemetry.IncClosed(kindOf(err).String())
	telemetry.RecordError(span, err)
	span.End()

	c.release(conn)
	log.Warn("socket.io connection closed", slog.Any("err", err))
	return err
}

// Close closes the socket. A Run in progress returns with a transport error.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.session = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) release(conn transport.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.session = nil
	}
	c.mu.Unlock()

	if err := conn.Close(); err != nil {
		c.logger.Debug("socket.io close failed", slog.Any("err", err))
	}
}
