package core

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy is returned when a retention policy is misconfigured,
// before any I/O is performed.
var ErrInvalidPolicy = errors.New("invalid retention policy")

// ListError is returned when a version listing could not complete after
// retries. A run that hits it performs no deletions: the retained buffer
// cannot be computed from a partial set.
type ListError struct {
	Owner   string
	Package string
	Err     error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("listing versions of %s/%s: %v", e.Owner, e.Package, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// MalformedRecordError is returned when a version record's fields could not
// be parsed. It aborts the run: a dropped record would shrink the retained
// buffer incorrectly.
type MalformedRecordError struct {
	ID    string
	Field string
	Value string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("version %s: malformed %s %q", e.ID, e.Field, e.Value)
}

// Deletion failure reasons.
const (
	ReasonUnauthorized  = "unauthorized"
	ReasonRateLimited   = "rate_limited"
	ReasonUnavailable   = "unavailable"
	ReasonCanceled      = "canceled"
	ReasonRequestFailed = "request_failed"
)

// DeleteError is returned when one deletion did not succeed. It is recorded
// per version and never aborts the run.
type DeleteError struct {
	ID     string
	Reason string
	Err    error
}

func (e *DeleteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deleting version %s (%s): %v", e.ID, e.Reason, e.Err)
	}
	return fmt.Sprintf("deleting version %s: %s", e.ID, e.Reason)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}
