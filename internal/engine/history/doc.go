// Package history provides undo/redo functionality for the timeline engine.
//
// The history system records reversible edits as plain values rather than
// closures, so a recorded action never holds a live pointer to the entity it
// changes. Key concepts:
//
// # Edits
//
// An Edit is a single state transition addressed to an entity by id:
//   - Target: the id of the entity that interprets the edit
//   - Kind: a stable tag used for dispatch and serialization
//   - Describe: a short human-readable description
//
// Concrete edit types live next to the entity that interprets them (clips,
// tracks, effect stacks, keyframe models). Each entity implements Applier and
// switches on the concrete edit type.
//
// # Sequences
//
// A Sequence is an ordered list of (redo, undo) edit pairs. Redo applies the
// redo edits first to last; Undo applies the undo edits last to first:
//
//	var seq history.Sequence
//	seq.Push(forward, inverse)
//	seq.Redo(router) // forward edits, in order
//	seq.Undo(router) // inverse edits, reverse order
//
// A failure in the middle of a replay reverts the steps already replayed, so
// a sequence is either applied entirely or not at all.
//
// # Routing
//
// The Router maps ids to Appliers. Entities register themselves when they are
// created and deregister on teardown; an edit whose target is gone fails with
// ErrUnknownTarget instead of touching freed state.
//
// # History Stack
//
// The History type manages undo/redo stacks and grouping:
//
//	h := NewHistory(router, 1000) // Max 1000 undo entries
//
//	h.Push("Resize clip", seq)
//	h.Undo()
//	h.Redo()
//
// # Grouping
//
// Multiple pushes can be grouped as a single undo unit:
//
//	h.BeginGroup("Adjust fade")
//	// ... several pushes ...
//	h.EndGroup()
//
// # Serialization
//
// Dump writes the undo and redo stacks as YAML, which makes recorded edits
// easy to inspect in tests and bug reports.
package history
