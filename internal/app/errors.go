package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrClosed is returned by operations on a shut down application.
	ErrClosed = errors.New("application is shut down")

	// ErrInconsistent is returned by Check when the timeline fails its audit.
	ErrInconsistent = errors.New("timeline is inconsistent")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
