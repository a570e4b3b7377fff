package socket

import (
	"strconv"
	"strings"
)

// Message is one protocol frame: "type:id:endpoint[:data]".
type Message struct {
	Type MessageType

	// ID is nil when the id segment is empty or not a number.
	ID *uint64

	// AckData marks an id written as "N+": the sender wants the ack to
	// carry data. Ignored when ID is nil.
	AckData bool

	// Endpoint is empty for the default endpoint.
	Endpoint string

	// Data is nil when the frame has only three segments.
	Data *string
}

// NewMessage returns a message of type t with no id, endpoint or data.
func NewMessage(t MessageType) *Message {
	return &Message{Type: t}
}

// WithID sets the message id.
func (m *Message) WithID(id uint64) *Message {
	m.ID = &id
	return m
}

// WithEndpoint sets the message endpoint.
func (m *Message) WithEndpoint(endpoint string) *Message {
	m.Endpoint = endpoint
	return m
}

// WithData sets the data segment.
func (m *Message) WithData(data string) *Message {
	m.Data = &data
	return m
}

// String encodes the message in its wire form.
func (m *Message) String() string {
	var b strings.Builder
	b.WriteString(m.Type.String())
	b.WriteByte(':')
	if m.ID != nil {
		b.WriteString(strconv.FormatUint(*m.ID, 10))
		if m.AckData {
			b.WriteByte('+')
		}
	}
	b.WriteByte(':')
	b.WriteString(m.Endpoint)
	if m.Data != nil {
		b.WriteByte(':')
		b.WriteString(*m.Data)
	}
	return b.String()
}

// Equal reports whether m and o encode to the same frame.
func (m *Message) Equal(o *Message) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Type != o.Type || m.Endpoint != o.Endpoint {
		return false
	}
	if (m.ID == nil) != (o.ID == nil) {
		return false
	}
	if m.ID != nil && (*m.ID != *o.ID || m.AckData != o.AckData) {
		return false
	}
	if (m.Data == nil) != (o.Data == nil) {
		return false
	}
	return m.Data == nil || *m.Data == *o.Data
}

// ParseMessage decodes a wire frame. The data segment is never split, so it
// may contain colons.
func ParseMessage(s string) (*Message, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 3 && len(parts) != 4 {
		return nil, parseError("wrong number of elements")
	}

	typ, err := ParseMessageType(parts[0])
	if err != nil {
		return nil, err
	}

	m := &Message{Type: typ, Endpoint: parts[2]}
	m.ID, m.AckData = parseID(parts[1])
	if len(parts) == 4 {
		data := parts[3]
		m.Data = &data
	}
	return m, nil
}

// parseID is lenient: anything that is not a non-negative integer
// (optionally followed by '+') yields no id.
func parseID(s string) (*uint64, bool) {
	if s == "" {
		return nil, false
	}
	ackData := false
	if strings.HasSuffix(s, "+") {
		s = s[:len(s)-1]
		ackData = true
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, ackData
}
