package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kleeedolinux/legacyio/socket"
	"github.com/kleeedolinux/legacyio/telemetry"
)

type fakeConn struct {
	connected bool
	session   *socket.Session
}

func (f fakeConn) IsConnected() bool        { return f.connected }
func (f fakeConn) Session() *socket.Session { return f.session }

type fixedTitle string

func (f fixedTitle) Title() string { return string(f) }

func TestHealthz(t *testing.T) {
	tests := []struct {
		connected bool
		want      int
	}{
		{true, http.StatusOK},
		{false, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		h := newStatusRouter(fakeConn{connected: tt.connected}, fixedTitle(""))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != tt.want {
			t.Errorf("connected=%v: status %d, want %d", tt.connected, rec.Code, tt.want)
		}
	}
}

func TestStatusDisconnected(t *testing.T) {
	h := newStatusRouter(fakeConn{}, fixedTitle("Song (0:10/3:05)"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["connected"] != false || got["now_playing"] != "Song (0:10/3:05)" {
		t.Errorf("body = %v", got)
	}
	if _, ok := got["sid"]; ok {
		t.Errorf("sid present while disconnected: %v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	telemetry.Init()
	telemetry.IncHandshake("success")

	h := newStatusRouter(fakeConn{}, fixedTitle(""))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "socketio_handshakes_total") {
		t.Error("handshake counter missing from /metrics")
	}
}
