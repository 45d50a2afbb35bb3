package types

import (
	"errors"
	"fmt"
)

type Kind string

const (
	PermissionDenied        Kind = "PermissionDenied"
	MissingCredentials      Kind = "MissingCredentials"
	InvalidReference        Kind = "InvalidReference"
	UploadFailed            Kind = "UploadFailed"
	Timeout                 Kind = "Timeout"
	AvailabilityCheckFailed Kind = "AvailabilityCheckFailed"
	DownloadFailed          Kind = "DownloadFailed"
	VerificationFailed      Kind = "VerificationFailed"
	Busy                    Kind = "Busy"
	Internal                Kind = "Internal"
)

// FlowError carries the failure kind through wrapping so callers can decide
// how to report or requeue.
type FlowError struct {
	Kind       Kind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *FlowError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, op string, message string) *FlowError {
	return &FlowError{Kind: kind, Op: op, Message: message}
}

func WrapError(kind Kind, op string, err error) *FlowError {
	return &FlowError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first FlowError in err's chain, or Internal.
func KindOf(err error) Kind {
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return flowErr.Kind
	}
	return Internal
}

func IsTransient(err error) bool {
	switch KindOf(err) {
	case Timeout, Busy:
		return true
	}
	return false
}
