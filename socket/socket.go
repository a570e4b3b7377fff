// Package socket implements a client for the legacy (0.9-era) socket.io
// protocol: an HTTP handshake, a colon-delimited text framing, protocol
// heartbeats, and a receive loop that hands decoded events to a handler.
package socket

import (
	"strconv"
)

// DefaultNamespace is the path segment used when no namespace is configured.
const DefaultNamespace = "socket.io"

// protocolVersion is the path segment following the namespace.
const protocolVersion = "1"

// MessageType is the frame kind carried in the first segment of a message.
type MessageType uint8

const (
	TypeDisconnect MessageType = iota
	TypeConnect
	TypeHeartbeat
	TypeMessage
	TypeJSON
	TypeEvent
	TypeAck
	TypeError
	TypeNoop
)

var typeNames = [...]string{
	TypeDisconnect: "disconnect",
	TypeConnect:    "connect",
	TypeHeartbeat:  "heartbeat",
	TypeMessage:    "message",
	TypeJSON:       "json",
	TypeEvent:      "event",
	TypeAck:        "ack",
	TypeError:      "error",
	TypeNoop:       "noop",
}

// String returns the wire discriminant.
func (t MessageType) String() string {
	return strconv.Itoa(int(t))
}

// Name returns a readable name for logs.
func (t MessageType) Name() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// ParseMessageType maps a wire discriminant to a MessageType.
func ParseMessageType(s string) (MessageType, error) {
	if len(s) == 1 && s[0] >= '0' && s[0] <= '8' {
		return MessageType(s[0] - '0'), nil
	}
	return 0, parseError("unknown message type")
}

// EventHandler receives every decoded event, on the connection loop's
// goroutine. A non-nil return value is sent back as one text frame.
type EventHandler func(Event) *Message
