// Package telemetry provides Prometheus metrics, OpenTelemetry tracing and
// connection-id aware logging for socket.io connections.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	Handshakes        *prometheus.CounterVec // label: result
	FramesReceived    *prometheus.CounterVec // label: kind
	FramesMalformed   prometheus.Counter
	EventsDispatched  prometheus.Counter
	RepliesSent       prometheus.Counter
	HeartbeatsSent    prometheus.Counter
	PongsSent         prometheus.Counter
	ConnectionsClosed *prometheus.CounterVec // label: kind

	// Histograms (seconds)
	HandlerDuration   prometheus.Observer
	HandshakeDuration prometheus.Observer

	// Gauges
	ConnectedGauge prometheus.Gauge
)

// Init registers metrics on the default registry (idempotent).
func Init() {
	once.Do(func() {
		Handshakes = promauto.NewCounterVec(prometheus.CounterOpts{Name: "socketio_handshakes_total", Help: "Handshake attempts by result"}, []string{"result"})
		FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{Name: "socketio_frames_received_total", Help: "Transport frames received by kind"}, []string{"kind"})
		FramesMalformed = promauto.NewCounter(prometheus.CounterOpts{Name: "socketio_frames_malformed_total", Help: "Text frames dropped because they did not parse as messages"})
		EventsDispatched = promauto.NewCounter(prometheus.CounterOpts{Name: "socketio_events_dispatched_total", Help: "Events passed to the event handler"})
		RepliesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "socketio_replies_sent_total", Help: "Messages returned by the event handler and sent"})
		HeartbeatsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "socketio_heartbeats_sent_total", Help: "Protocol heartbeats sent"})
		PongsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "socketio_pongs_sent_total", Help: "Websocket pongs sent in reply to pings"})
		ConnectionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "socketio_connections_closed_total", Help: "Connection loop exits by error kind"}, []string{"kind"})
		HandlerDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "socketio_handler_duration_seconds", Help: "Event handler duration seconds", Buckets: prometheus.DefBuckets})
		HandshakeDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "socketio_handshake_duration_seconds", Help: "Handshake request duration seconds", Buckets: prometheus.DefBuckets})
		ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "socketio_connected", Help: "Number of open connections"})
	})
}

// IncHandshake counts a handshake attempt with the given result label.
func IncHandshake(result string) {
	if Handshakes != nil {
		Handshakes.WithLabelValues(result).Inc()
	}
}

// IncFrame counts a received transport frame.
func IncFrame(kind string) {
	if FramesReceived != nil {
		FramesReceived.WithLabelValues(kind).Inc()
	}
}

// IncClosed counts a connection loop exit.
func IncClosed(kind string) {
	if ConnectionsClosed != nil {
		ConnectionsClosed.WithLabelValues(kind).Inc()
	}
}

// Inc increments c if it has been registered.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// SetConnected adjusts the open connection gauge.
func SetConnected(open bool) {
	if ConnectedGauge == nil {
		return
	}
	if open {
		ConnectedGauge.Inc()
	} else {
		ConnectedGauge.Dec()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns base (or the default logger) with a conn attribute if present.
func LoggerWithCorr(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if id := GetCorrelation(ctx); id != "" {
		return base.With(slog.String("conn", id))
	}
	return base
}
