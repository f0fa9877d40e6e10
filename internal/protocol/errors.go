package protocol

import (
	"errors"
	"fmt"
)

// Kind classifies a bridge failure.
type Kind string

const (
	KindConnection    Kind = "connection_failure"
	KindCommunication Kind = "communication_failure"
	KindDecoding      Kind = "decoding_failure"
	KindEncoding      Kind = "encoding_failure"
	KindRemote        Kind = "remote_error"
	KindTimeout       Kind = "timeout"
	KindClosed        Kind = "closed"
)

// Sentinel errors, one per Kind, for use with errors.Is.
var (
	ErrConnectionFailure    = &Error{Kind: KindConnection}
	ErrCommunicationFailure = &Error{Kind: KindCommunication}
	ErrDecodingFailure      = &Error{Kind: KindDecoding}
	ErrEncodingFailure      = &Error{Kind: KindEncoding}
	ErrRemote               = &Error{Kind: KindRemote}
	ErrTimeout              = &Error{Kind: KindTimeout}
	ErrClosed               = &Error{Kind: KindClosed}
)

// Error is the error type returned by every layer below the tool surface.
//
// Msg, when set, replaces the default rendering and is what ends up after the
// "Error: " prefix of a failed tool call. Err carries the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a protocol error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of err, or "" if err is not a protocol error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// ConnectionError reports that the remote plugin could not be reached.
func ConnectionError(cause error) *Error {
	return &Error{
		Kind: KindConnection,
		Msg:  "Could not connect to GIMP. Ensure the MCP Server plugin is running.",
		Err:  cause,
	}
}

// CommunicationError reports a write or read failure on an open connection.
func CommunicationError(cause error) *Error {
	return &Error{
		Kind: KindCommunication,
		Msg:  fmt.Sprintf("Error communicating with GIMP: %v", cause),
		Err:  cause,
	}
}

// TimeoutError reports that an exchange did not finish before its deadline.
func TimeoutError(op string, cause error) *Error {
	return &Error{
		Kind: KindTimeout,
		Msg:  fmt.Sprintf("Timed out waiting for GIMP during %s: %v", op, cause),
		Err:  cause,
	}
}
