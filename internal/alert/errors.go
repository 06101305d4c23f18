package alert

import (
	"fmt"
)

// ValidationError reports malformed trigger input. It is rejected before
// any emergency id or storage is consumed, so the whole call is safe to
// retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotAuthenticatedError reports that no session is active. Like
// validation failures, it fires before any id is allocated.
type NotAuthenticatedError struct{}

func (e *NotAuthenticatedError) Error() string {
	return "no active session"
}

// StorageError reports that counter or queue persistence failed. Nothing
// was sent and no id was allocated past the failure point.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
