package socket

import (
	"encoding/json"
	"errors"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is the payload of an Event message: {"name": ..., "args": [...]}.
type Event struct {
	Name string            `json:"name"`
	Args []json.RawMessage `json:"args"`

	// Copied from the carrying message.
	ID       *uint64 `json:"-"`
	AckData  bool    `json:"-"`
	Endpoint string  `json:"-"`
}

type eventPayload struct {
	Name *string           `json:"name"`
	Args []json.RawMessage `json:"args"`
}

var (
	errMissingName = errors.New("missing field `name`")
	errMissingArgs = errors.New("missing field `args`")
)

// DecodeEvent extracts the event carried by m. It returns ok=false when m is
// not an Event message with data. Both name and args are required; an args
// of null counts as missing.
func DecodeEvent(m *Message) (ev Event, ok bool, err error) {
	if m.Type != TypeEvent || m.Data == nil {
		return Event{}, false, nil
	}

	var p eventPayload
	if err := codec.UnmarshalFromString(*m.Data, &p); err != nil {
		return Event{}, true, jsonError(err)
	}
	if p.Name == nil {
		return Event{}, true, jsonError(errMissingName)
	}
	if p.Args == nil {
		return Event{}, true, jsonError(errMissingArgs)
	}

	return Event{
		Name:     *p.Name,
		Args:     p.Args,
		ID:       m.ID,
		AckData:  m.AckData,
		Endpoint: m.Endpoint,
	}, true, nil
}

// Arg decodes argument i into v.
func (e Event) Arg(i int, v any) error {
	if i < 0 || i >= len(e.Args) {
		return jsonError(errors.New("argument " + strconv.Itoa(i) + " out of range"))
	}
	if err := codec.Unmarshal(e.Args[i], v); err != nil {
		return jsonError(err)
	}
	return nil
}

// NewEvent builds an Event message with the given name and arguments.
func NewEvent(name string, args ...any) (*Message, error) {
	raw, err := marshalArgs(args)
	if err != nil {
		return nil, err
	}
	data, err := codec.MarshalToString(Event{Name: name, Args: raw})
	if err != nil {
		return nil, jsonError(err)
	}
	return NewMessage(TypeEvent).WithData(data), nil
}

// Ack builds the acknowledgment for e: "6:::<id>" or "6:::<id>+[args]".
// It returns nil when the event carried no id.
func (e Event) Ack(args ...any) (*Message, error) {
	if e.ID == nil {
		return nil, nil
	}
	data := strconv.FormatUint(*e.ID, 10)
	if len(args) > 0 {
		payload, err := codec.MarshalToString(args)
		if err != nil {
			return nil, jsonError(err)
		}
		data += "+" + payload
	}
	return NewMessage(TypeAck).WithEndpoint(e.Endpoint).WithData(data), nil
}

func marshalArgs(args []any) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		b, err := codec.Marshal(a)
		if err != nil {
			return nil, jsonError(err)
		}
		raw = append(raw, b)
	}
	return raw, nil
}
