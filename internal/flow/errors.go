package flow

import "errors"

// FailureKind classifies why a submission ended in the Failed state.
type FailureKind string

const (
	KindValidation    FailureKind = "validation"
	KindTransport     FailureKind = "transport"
	KindRejected      FailureKind = "rejected"
	KindTimeout       FailureKind = "timeout"
	KindUnknownStatus FailureKind = "unknown_status"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrTransport     = errors.New("transport failure")
	ErrRejected      = errors.New("rejected by backend")
	ErrTimeout       = errors.New("polling timed out")
	ErrUnknownStatus = errors.New("unknown analysis status")
)

var kindSentinels = map[FailureKind]error{
	KindValidation:    ErrValidation,
	KindTransport:     ErrTransport,
	KindRejected:      ErrRejected,
	KindTimeout:       ErrTimeout,
	KindUnknownStatus: ErrUnknownStatus,
}

// Error is the terminal failure of one submission. Message is what the UI
// shows; Err carries the underlying cause when there is one.
type Error struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel for the failure kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return kindSentinels[e.Kind] == target
}

func newError(kind FailureKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}
