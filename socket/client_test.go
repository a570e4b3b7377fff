package socket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kleeedolinux/legacyio/socket/sockettest"
	"github.com/kleeedolinux/legacyio/socket/transport"
)

func TestClientOverWebSocket(t *testing.T) {
	srv := sockettest.NewServer("")
	defer srv.Close()

	c, err := NewClient(srv.URL, WithHTTPClient(srv.Client()), WithLogger(quietLogger))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	events := make(chan Event, 4)
	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background(), func(ev Event) *Message {
			events <- ev
			ack, _ := ev.Ack("hi")
			return ack
		})
	}()

	sc, err := srv.Accept(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if sc.SID != "sid1" {
		t.Errorf("websocket opened for sid %q, want sid1", sc.SID)
	}

	sc.Send(`5:1+::{"name":"hello","args":["world"]}`)
	select {
	case ev := <-events:
		if ev.Name != "hello" || len(ev.Args) != 1 || string(ev.Args[0]) != `"world"` {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not dispatched")
	}

	reply, err := sc.Read(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if reply != `6:::1+["hi"]` {
		t.Errorf("reply = %q", reply)
	}

	if err := sc.Ping("abc"); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	select {
	case p := <-sc.Pongs():
		if p != "abc" {
			t.Errorf("pong payload = %q, want abc", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no pong")
	}

	if err := sc.CloseWith(1000, "bye"); err != nil {
		t.Fatalf("CloseWith: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, ErrWebsocketClose) || !strings.Contains(err.Error(), "bye") {
			t.Errorf("Run err = %v, want close with reason bye", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after close")
	}
}

func TestClientSendsHeaders(t *testing.T) {
	srv := sockettest.NewServer("custom")
	defer srv.Close()

	c, err := NewClient(srv.URL,
		WithNamespace("custom"),
		WithHTTPClient(srv.Client()),
		WithLogger(quietLogger),
		WithHeader(http.Header{"X-Token": {"secret"}}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if _, err := srv.Accept(2 * time.Second); err != nil {
		t.Fatal(err)
	}
	headers := srv.RequestHeaders()
	if len(headers) != 2 {
		t.Fatalf("served %d requests, want handshake and upgrade", len(headers))
	}
	for i, h := range headers {
		if got := h.Get("X-Token"); got != "secret" {
			t.Errorf("request %d X-Token = %q, want secret", i, got)
		}
	}
}

func TestClientTransportOptions(t *testing.T) {
	srv := sockettest.NewServer("")
	defer srv.Close()

	c, err := NewClient(srv.URL,
		WithHTTPClient(srv.Client()),
		WithLogger(quietLogger),
		WithTransportOptions(
			transport.WithHeaders(http.Header{"X-Upgrade-Only": {"1"}}),
			transport.WithCompression(true),
			transport.WithWriteTimeout(time.Second),
			transport.WithBufferSize(1),
		))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	events := make(chan string, 3)
	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background(), func(ev Event) *Message {
			events <- ev.Name
			return nil
		})
	}()

	sc, err := srv.Accept(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", "b", "c"} {
		sc.Send(`5:::{"name":"` + name + `","args":[]}`)
	}
	var names []string
	for len(names) < 3 {
		select {
		case name := <-events:
			names = append(names, name)
		case <-time.After(2 * time.Second):
			t.Fatalf("dispatched %v, want three events", names)
		}
	}
	if err := sc.CloseWith(1000, "done"); err != nil {
		t.Fatalf("CloseWith: %v", err)
	}
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after close")
	}

	if strings.Join(names, ",") != "a,b,c" {
		t.Errorf("dispatched %v, want a,b,c in order", names)
	}

	headers := srv.RequestHeaders()
	if len(headers) != 2 {
		t.Fatalf("served %d requests, want handshake and upgrade", len(headers))
	}
	if headers[0].Get("X-Upgrade-Only") != "" {
		t.Error("transport header sent with the handshake")
	}
	if headers[1].Get("X-Upgrade-Only") != "1" {
		t.Error("transport header missing from the upgrade")
	}
	if ext := headers[1].Get("Sec-Websocket-Extensions"); !strings.Contains(ext, "permessage-deflate") {
		t.Errorf("upgrade extensions = %q, want permessage-deflate offered", ext)
	}
}
