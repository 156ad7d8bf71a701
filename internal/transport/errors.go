package transport

import "errors"

// ErrClosed indicates the transport's sink or source was closed, either
// locally (Close was called) or by the remote end draining cleanly.
// transport.Loop treats it as a normal termination, not a failure.
var ErrClosed = errors.New("transport closed")

// ErrWriteFailed wraps a failure to hand a message to the underlying
// connection.
var ErrWriteFailed = errors.New("transport write failed")

// ErrReadFailed wraps a failure to read or frame a message from the
// underlying connection.
var ErrReadFailed = errors.New("transport read failed")

// ErrDecodeFailed indicates a frame was read but did not parse as a
// JSON-RPC message.
var ErrDecodeFailed = errors.New("transport decode failed")

// Error wraps a concrete transport failure with the stage it occurred at,
// per spec.md §7's transport-error taxonomy (connection failed, write
// failed, read failed, decode failed, remote closed).
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return errors.Is(e.Kind, target) }

// NewError wraps err with kind for uniform handling by transport.Loop
// callers.
func NewError(kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
