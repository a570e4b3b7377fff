package socket

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kleeedolinux/legacyio/telemetry"
)

// Handshake is the session negotiated over HTTP before the websocket upgrade.
type Handshake struct {
	SID string

	// Zero means absent: the server sent 0, nothing, or something that is not
	// an unsigned integer. A zero HeartbeatTimeout disables heartbeats.
	// Values beyond the time.Duration range are clamped to its maximum.
	HeartbeatTimeout time.Duration
	CloseTimeout     time.Duration

	Transports []string
}

// HeartbeatInterval returns half the heartbeat timeout, or 0 (heartbeats
// disabled) when the timeout is below one second.
func (h *Handshake) HeartbeatInterval() time.Duration {
	if h.HeartbeatTimeout < time.Second {
		return 0
	}
	return h.HeartbeatTimeout / 2
}

// HandshakeURL returns {origin}/{namespace}/1.
func HandshakeURL(origin *url.URL, namespace string) (*url.URL, error) {
	if err := checkBase(origin); err != nil {
		return nil, err
	}
	return joinPath(origin, namespace, protocolVersion), nil
}

// TransportURL rewrites origin to ws/wss and appends
// /{namespace}/1/websocket/{sid}.
func TransportURL(origin *url.URL, namespace, sid string) (*url.URL, error) {
	if err := checkBase(origin); err != nil {
		return nil, err
	}
	u := joinPath(origin, namespace, protocolVersion, "websocket", sid)
	switch origin.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, invalidURL(origin.String(), "unsupported scheme "+strconv.Quote(origin.Scheme))
	}
	return u, nil
}

func joinPath(origin *url.URL, elem ...string) *url.URL {
	base := *origin
	if base.Path == "" {
		base.Path = "/"
		base.RawPath = ""
	}
	return base.JoinPath(elem...)
}

func checkBase(u *url.URL) error {
	if u == nil {
		return invalidURL("", "missing URL")
	}
	if u.Opaque != "" || u.Host == "" {
		return invalidURL(u.String(), "cannot be base")
	}
	return nil
}

// PerformHandshake runs GET {origin}/{namespace}/1 and parses the response.
// header is added to the request and may be nil.
func PerformHandshake(ctx context.Context, client *http.Client, origin *url.URL, namespace string, header http.Header) (*Handshake, error) {
	ctx, span := telemetry.StartSpan(ctx, "socketio.handshake", attribute.String("namespace", namespace))
	defer span.End()

	hs, err := performHandshake(ctx, client, origin, namespace, header)
	if err != nil {
		telemetry.IncHandshake(kindOf(err).String())
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.IncHandshake("ok")
	telemetry.SetSpanSuccess(span)
	return hs, nil
}

func performHandshake(ctx context.Context, client *http.Client, origin *url.URL, namespace string, header http.Header) (*Handshake, error) {
	u, err := HandshakeURL(origin, namespace)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, invalidURL(u.String(), err.Error())
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	var body []byte
	telemetry.TimeFunc(telemetry.HandshakeDuration, func() {
		var resp *http.Response
		resp, err = client.Do(req)
		if err != nil {
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			err = fmt.Errorf("handshake: unexpected status %s", resp.Status)
			return
		}
		body, err = io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, transportError(err)
	}

	return ParseHandshake(string(body))
}

// ParseHandshake parses "sid:heartbeat_timeout:close_timeout:transports".
// Malformed timeouts become zero; the transport list must offer websocket.
func ParseHandshake(body string) (*Handshake, error) {
	parts := strings.Split(body, ":")
	if len(parts) != 4 {
		return nil, &Error{Kind: KindInvalidHandshake, Detail: body}
	}

	transports := strings.Split(parts[3], ",")
	found := false
	for _, t := range transports {
		if t == "websocket" {
			found = true
			break
		}
	}
	if !found {
		return nil, &Error{Kind: KindUnsupportedTransports, Detail: parts[3]}
	}

	return &Handshake{
		SID:              parts[0],
		HeartbeatTimeout: parseSeconds(parts[1]),
		CloseTimeout:     parseSeconds(parts[2]),
		Transports:       transports,
	}, nil
}

const maxSeconds = uint64(math.MaxInt64 / int64(time.Second))

func parseSeconds(s string) time.Duration {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	if n > maxSeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(n) * time.Second
}
