package socket

import (
	"sync/atomic"
	"time"
)

// Session is the state negotiated by one handshake. It lives until the
// connection loop exits.
type Session struct {
	SID string

	// HeartbeatInterval is zero when heartbeats are disabled.
	HeartbeatInterval time.Duration
	CloseTimeout      time.Duration

	lastHeartbeat atomic.Int64 // unix nanoseconds
}

func newSession(hs *Handshake, now time.Time) *Session {
	s := &Session{
		SID:               hs.SID,
		HeartbeatInterval: hs.HeartbeatInterval(),
		CloseTimeout:      hs.CloseTimeout,
	}
	s.markHeartbeat(now)
	return s
}

// LastHeartbeat returns when the last heartbeat was sent, or when the
// session was created if none has been sent yet.
func (s *Session) LastHeartbeat() time.Time {
	return time.Unix(0, s.lastHeartbeat.Load())
}

func (s *Session) markHeartbeat(now time.Time) {
	s.lastHeartbeat.Store(now.UnixNano())
}

// untilHeartbeat returns the time left before the next heartbeat is due.
// ok is false when heartbeats are disabled.
func (s *Session) untilHeartbeat(now time.Time) (d time.Duration, ok bool) {
	if s.HeartbeatInterval <= 0 {
		return 0, false
	}
	d = s.HeartbeatInterval - now.Sub(s.LastHeartbeat())
	if d < 0 {
		d = 0
	}
	return d, true
}

func (s *Session) heartbeatDue(now time.Time) bool {
	return s.HeartbeatInterval > 0 && now.Sub(s.LastHeartbeat()) >= s.HeartbeatInterval
}
