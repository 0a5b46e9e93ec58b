package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected = errors.New("not connected to server")
	ErrClientClosed = errors.New("client closed")
	ErrSendBuffer   = errors.New("send buffer full")
)

// ValidationError reports bad user input. It never changes connection state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// ConnectionError reports a transport open or send failure. It is always
// followed by a transition to Disconnected; nothing is retried.
type ConnectionError struct {
	Op  string // "dial", "read", "write"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DecodeError reports an inbound frame that could not be decoded. The frame
// is dropped and the connection stays open.
type DecodeError struct {
	Frame []byte
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame (%d bytes): %v", len(e.Frame), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
