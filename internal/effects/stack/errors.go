package stack

import "errors"

// Errors returned by edit interpretation and the consistency checker.
var (
	// ErrServiceGone indicates the media service the stack is planted into
	// has been torn down.
	ErrServiceGone = errors.New("media service gone")

	// ErrNotLeaf indicates a leaf-only operation named a group.
	ErrNotLeaf = errors.New("node is not an effect")

	// ErrUnknownNode indicates the id is not part of the stack.
	ErrUnknownNode = errors.New("unknown effect node")

	// ErrInconsistent indicates the tree and the service disagree.
	ErrInconsistent = errors.New("effect stack inconsistent")
)
