// Package ident hands out the process-unique identifiers shared by every
// timeline entity: tracks, clips, compositions, effect stacks, effect nodes
// and keyframe models.
//
// Identifiers are assigned from a single monotonic counter and are never
// reused within a process, so an undo edit that names an id keeps referring
// to the same logical entity regardless of what happened in between.
package ident

import (
	"strconv"
	"sync/atomic"
)

// ID identifies a timeline entity.
type ID int64

// Invalid marks the absence of an entity (for example a detached clip's track).
const Invalid ID = -1

// counter is the shared id source.
var counter int64

// Next returns a new unique ID.
// This is thread-safe using atomic operations.
func Next() ID {
	return ID(atomic.AddInt64(&counter, 1))
}

// Valid reports whether the id refers to an entity.
func (id ID) Valid() bool {
	return id > 0
}

// String returns the decimal form of the id.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
