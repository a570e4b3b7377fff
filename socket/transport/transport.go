// Package transport provides the frame-level socket used by the socket.io client.
package transport

import (
	"context"
	"errors"
)

// ErrWouldBlock is returned by non-blocking connections when no frame is
// ready. The caller waits and retries.
var ErrWouldBlock = errors.New("transport: operation would block")

// FrameKind identifies the websocket frame type.
type FrameKind int

const (
	FrameText FrameKind = iota + 1
	FrameBinary
	FramePing
	FramePong
	FrameClose
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	case FramePing:
		return "ping"
	case FramePong:
		return "pong"
	case FrameClose:
		return "close"
	default:
		return "unknown"
	}
}

// Frame is one unit exchanged over the transport.
type Frame struct {
	Kind FrameKind
	Data []byte

	// Close frames only. HasReason is false when the peer sent no status.
	CloseCode   int
	CloseReason string
	HasReason   bool
}

func TextFrame(s string) Frame {
	return Frame{Kind: FrameText, Data: []byte(s)}
}

func PongFrame(data []byte) Frame {
	return Frame{Kind: FramePong, Data: data}
}

// Conn is a bidirectional frame socket owned by a single reader and a single writer.
//
// Receive blocks until a frame arrives or ctx is done, in which case it
// returns ctx.Err(). Implementations that cannot block return ErrWouldBlock.
type Conn interface {
	Receive(ctx context.Context) (Frame, error)
	Send(f Frame) error
	Close() error
}
