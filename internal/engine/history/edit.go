package history

import (
	"errors"
	"fmt"

	"github.com/Tilix4/kdenlive/internal/engine/ident"
)

// Errors returned while applying edits.
var (
	// ErrUnknownTarget indicates the edit names an entity that is not registered.
	ErrUnknownTarget = errors.New("unknown edit target")

	// ErrUnknownEdit indicates the target does not understand the edit type.
	ErrUnknownEdit = errors.New("unknown edit kind")
)

// Edit is a single reversible state transition addressed to one entity.
type Edit interface {
	// Target returns the id of the entity that interprets the edit.
	Target() ident.ID

	// Kind returns a stable tag for the edit type (e.g. "stack.move_leaf").
	Kind() string

	// Describe returns a human-readable description of the edit.
	Describe() string
}

// Applier interprets edits addressed to it.
type Applier interface {
	Apply(e Edit) error
}

// ApplierFunc adapts a function to the Applier interface.
type ApplierFunc func(e Edit) error

// Apply calls f(e).
func (f ApplierFunc) Apply(e Edit) error {
	return f(e)
}

// UnknownEdit builds the error an Applier returns for an edit it does not handle.
func UnknownEdit(e Edit) error {
	return fmt.Errorf("%w: %s for target %d", ErrUnknownEdit, e.Kind(), e.Target())
}
