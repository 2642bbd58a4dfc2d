// Copyright 2025 James Ross
package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrOwnershipLost means the job's current worker does not match the
	// caller; the caller's lock is gone and it should drop the job.
	ErrOwnershipLost = errors.New("job lock lost: job is not owned by this worker")

	// ErrStateViolation means the operation requires the job to be running
	// and it is not.
	ErrStateViolation = errors.New("job is not currently running")
)

// ArgumentError reports an absent or malformed caller argument.
type ArgumentError struct {
	msg string
}

func (e *ArgumentError) Error() string { return e.msg }

func argErrorf(format string, args ...interface{}) *ArgumentError {
	return &ArgumentError{msg: fmt.Sprintf(format, args...)}
}

// IsArgumentError reports whether err is an ArgumentError.
func IsArgumentError(err error) bool {
	var ae *ArgumentError
	return errors.As(err, &ae)
}
