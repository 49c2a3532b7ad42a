package script

import "errors"

// Errors for script execution.
var (
	// ErrStateClosed is returned when running on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrTimeout is returned when a run outlives its timeout or context.
	ErrTimeout = errors.New("lua execution timeout")
)

// Error is a Lua compile or runtime error.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return "lua: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
