package remote

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying: network trouble, timeouts,
// server unavailability. The sync engine leaves the operation queued.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// RejectedError marks a semantic rejection by the remote store: the operation
// can never succeed (e.g. it references a deleted document) and must be
// dropped rather than retried.
type RejectedError struct {
	Reason string
	Err    error
}

func (e *RejectedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rejected: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("rejected: %s", e.Reason)
}
func (e *RejectedError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Rejected wraps err as a terminal rejection.
func Rejected(reason string, err error) error {
	return &RejectedError{Reason: reason, Err: err}
}

// IsTransient reports whether err is retryable. Unclassified errors count as
// transient: the safe default for a network-facing call is to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return !IsRejected(err)
}

// IsRejected reports whether err is a terminal rejection.
func IsRejected(err error) bool {
	var rej *RejectedError
	return errors.As(err, &rej)
}
