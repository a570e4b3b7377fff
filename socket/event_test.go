package socket

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeEvent(t *testing.T) {
	m, err := ParseMessage(`5:1::{"name":"x","args":[]}`)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if m.Type != TypeEvent || m.ID == nil || *m.ID != 1 {
		t.Fatalf("unexpected message %+v", m)
	}

	ev, ok, err := DecodeEvent(m)
	if err != nil || !ok {
		t.Fatalf("DecodeEvent = ok %v, err %v", ok, err)
	}
	if ev.Name != "x" {
		t.Errorf("Name = %q, want x", ev.Name)
	}
	if ev.Args == nil || len(ev.Args) != 0 {
		t.Errorf("Args = %v, want empty list", ev.Args)
	}
	if ev.ID == nil || *ev.ID != 1 {
		t.Errorf("ID = %v, want 1", ev.ID)
	}
}

func TestDecodeEventArgsOrder(t *testing.T) {
	m := NewMessage(TypeEvent).WithData(`{"name":"videoChange","args":[{"title":"a"},2,"three",null]}`)
	ev, _, err := DecodeEvent(m)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	want := []string{`{"title":"a"}`, `2`, `"three"`, `null`}
	if len(ev.Args) != len(want) {
		t.Fatalf("got %d args, want %d", len(ev.Args), len(want))
	}
	for i, w := range want {
		if string(ev.Args[i]) != w {
			t.Errorf("arg %d = %s, want %s", i, ev.Args[i], w)
		}
	}

	var video struct {
		Title string `json:"title"`
	}
	if err := ev.Arg(0, &video); err != nil {
		t.Fatalf("Arg(0): %v", err)
	}
	if video.Title != "a" {
		t.Errorf("title = %q", video.Title)
	}
	var n int
	if err := ev.Arg(1, &n); err != nil || n != 2 {
		t.Errorf("Arg(1) = %d, %v", n, err)
	}
	if err := ev.Arg(9, &n); !errors.Is(err, ErrJSON) {
		t.Errorf("Arg(9) err = %v, want json error", err)
	}
}

func TestDecodeEventMissingArgs(t *testing.T) {
	for _, data := range []string{`{"name":"ping"}`, `{"name":"ping","args":null}`} {
		_, ok, err := DecodeEvent(NewMessage(TypeEvent).WithData(data))
		if !ok {
			t.Errorf("%s: ok = false, want true", data)
		}
		if !errors.Is(err, ErrJSON) {
			t.Errorf("%s: err = %v, want json error", data, err)
		}
		if err != nil && !strings.Contains(err.Error(), "args") {
			t.Errorf("%s: err = %q, want it to name args", data, err)
		}
	}
}

func TestDecodeEventErrors(t *testing.T) {
	for _, data := range []string{`not json`, `{"args":[]}`, `null`, `{"name":"x","args":{}}`} {
		_, ok, err := DecodeEvent(NewMessage(TypeEvent).WithData(data))
		if !ok {
			t.Errorf("%s: ok = false, want true", data)
		}
		if !errors.Is(err, ErrJSON) {
			t.Errorf("%s: err = %v, want json error", data, err)
		}
	}
}

func TestDecodeEventIgnoresOtherMessages(t *testing.T) {
	for _, m := range []*Message{
		NewMessage(TypeEvent),
		NewMessage(TypeMessage).WithData(`{"name":"x"}`),
		NewMessage(TypeHeartbeat),
	} {
		if _, ok, err := DecodeEvent(m); ok || err != nil {
			t.Errorf("DecodeEvent(%s) = %v, %v", m, ok, err)
		}
	}
}

func TestNewEvent(t *testing.T) {
	m, err := NewEvent("chat", map[string]string{"msg": "hi"}, 3)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if got, want := m.String(), `5:::{"name":"chat","args":[{"msg":"hi"},3]}`; got != want {
		t.Errorf("NewEvent = %q, want %q", got, want)
	}

	ev, _, err := DecodeEvent(m)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Name != "chat" || len(ev.Args) != 2 {
		t.Errorf("decoded %+v", ev)
	}
}

func TestEventAck(t *testing.T) {
	ev := Event{Name: "q", ID: u64(4), Endpoint: "/room"}

	m, err := ev.Ack()
	if err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if got := m.String(); got != "6::/room:4" {
		t.Errorf("Ack() = %q", got)
	}

	m, err = ev.Ack("ok", 1)
	if err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if got := m.String(); got != `6::/room:4+["ok",1]` {
		t.Errorf("Ack(args) = %q", got)
	}

	m, err = Event{Name: "no-id"}.Ack("x")
	if err != nil || m != nil {
		t.Errorf("Ack without id = %v, %v; want nil, nil", m, err)
	}
}
