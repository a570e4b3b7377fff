package socket

import (
	"fmt"
)

// ErrorKind classifies why an operation failed.
type ErrorKind int

const (
	KindInvalidURL ErrorKind = iota + 1
	KindInvalidHandshake
	KindUnsupportedTransports
	KindParseMessage
	KindTransport
	KindWebsocketClose
	KindJSON
)

// String returns a snake_case name, suitable as a metric label.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindInvalidHandshake:
		return "invalid_handshake"
	case KindUnsupportedTransports:
		return "unsupported_transports"
	case KindParseMessage:
		return "parse_message"
	case KindTransport:
		return "transport"
	case KindWebsocketClose:
		return "websocket_close"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Error is returned by every operation in this package.
type Error struct {
	Kind ErrorKind

	// Detail is the URL and reason, handshake body, transport list, parse
	// reason or close reason, depending on Kind.
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidURL            = &Error{Kind: KindInvalidURL}
	ErrInvalidHandshake      = &Error{Kind: KindInvalidHandshake}
	ErrUnsupportedTransports = &Error{Kind: KindUnsupportedTransports}
	ErrParseMessage          = &Error{Kind: KindParseMessage}
	ErrTransport             = &Error{Kind: KindTransport}
	ErrWebsocketClose        = &Error{Kind: KindWebsocketClose}
	ErrJSON                  = &Error{Kind: KindJSON}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidURL:
		return "invalid URL " + e.Detail
	case KindInvalidHandshake:
		return "invalid handshake: " + e.Detail
	case KindUnsupportedTransports:
		return "unsupported transports: " + e.Detail
	case KindParseMessage:
		return "invalid message: " + e.Detail
	case KindWebsocketClose:
		return "got websocket close message: " + e.Detail
	case KindJSON:
		if e.Err != nil {
			return "invalid event payload: " + e.Err.Error()
		}
		return "invalid event payload: " + e.Detail
	case KindTransport:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "transport error"
	default:
		return fmt.Sprintf("socket.io error (%d): %s", e.Kind, e.Detail)
	}
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. A target with a
// Detail only matches that exact detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

func invalidURL(url, reason string) *Error {
	return &Error{Kind: KindInvalidURL, Detail: url + ": " + reason}
}

func parseError(reason string) *Error {
	return &Error{Kind: KindParseMessage, Detail: reason}
}

func closeError(reason string) *Error {
	return &Error{Kind: KindWebsocketClose, Detail: reason}
}

func jsonError(err error) *Error {
	return &Error{Kind: KindJSON, Err: err}
}

// transportError wraps err unless it already is an *Error.
func transportError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{Kind: KindTransport, Err: err}
}

// kindOf returns the Kind of err, or 0 when err is not an *Error.
func kindOf(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return 0
}
