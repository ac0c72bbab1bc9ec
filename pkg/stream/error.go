package stream

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the conditions the client reports.
type ErrorKind int

const (
	// KindTransport is a socket error or close.
	KindTransport ErrorKind = iota + 1
	// KindProtocol is a malformed text frame.
	KindProtocol
	// KindEmptyPayload is a Flushed with nothing buffered.
	KindEmptyPayload
	// KindDecode is an audio decode or playback start failure.
	KindDecode
	// KindSendRejected is a send attempted while the connection is not open.
	KindSendRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindEmptyPayload:
		return "empty_payload"
	case KindDecode:
		return "decode"
	case KindSendRejected:
		return "send_rejected"
	default:
		return "unknown"
	}
}

var (
	// ErrSendRejected is wrapped by errors returned from Send while the
	// connection is not open.
	ErrSendRejected = errors.New("channel not ready")

	// ErrEmptyPayload is reported when a Flushed arrives with an empty buffer.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrClientClosed is returned by methods called after Close.
	ErrClientClosed = errors.New("stream: client closed")

	// ErrNoEpoch is returned when a chunk arrives outside an active epoch.
	ErrNoEpoch = errors.New("no active epoch")
)

// Error is a condition reported by the client. None of them is fatal; they
// are logged and passed to Hooks.OnError.
type Error struct {
	Kind ErrorKind
	// Op is the operation that failed (e.g., "dial", "read", "classify").
	Op  string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stream: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("stream: %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
