package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kleeedolinux/legacyio/socket"
)

type connState interface {
	IsConnected() bool
	Session() *socket.Session
}

type titleSource interface {
	Title() string
}

type statusResponse struct {
	Connected     bool       `json:"connected"`
	SID           string     `json:"sid,omitempty"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
	NowPlaying    string     `json:"now_playing"`
}

func newStatusRouter(conn connState, titles titleSource) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !conn.IsConnected() {
			http.Error(w, "disconnected", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Connected:  conn.IsConnected(),
			NowPlaying: titles.Title(),
		}
		if sess := conn.Session(); sess != nil {
			resp.SID = sess.SID
			last := sess.LastHeartbeat().UTC()
			resp.LastHeartbeat = &last
		}
		w.Header().Set("Content-Type", "application/json")
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}
