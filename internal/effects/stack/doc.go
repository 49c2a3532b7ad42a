// Package stack implements the effect stack attached to a clip, track or
// composition.
//
// A Stack owns one ordered tree of effects and groups. Every leaf carries a
// filter planted into the owner's media service; the depth-first order of
// leaves is the order of filters on the service, and every structural change
// keeps the two in step.
//
// # Edits
//
// Mutations are expressed as edit values (AddLeaf, RemoveLeaf, MoveLeaf,
// FadeSpan, ...) interpreted by Stack.Apply. High level operations build a
// history.Sequence of (redo, undo) pairs, apply it, and push it to the
// history under a label such as "Add effect Volume".
//
// # Fades
//
// Leaves whose asset is a fade (fadein, fade_from_black, fadeout,
// fade_to_black) are tracked in two sets. Their spans follow the owner's
// boundaries when it is resized. A fade shortened by a resize remembers its
// previous span so growing the owner back restores it exactly.
//
// # Service lifetime
//
// The stack holds its service through a weak media.Handle. Once the service
// is torn down every operation is a no-op reporting failure.
package stack
