package history

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Errors returned by Undo and Redo.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultMaxEntries is used when a non-positive limit is requested.
const DefaultMaxEntries = 1000

// undoEntry wraps a recorded sequence with metadata.
type undoEntry struct {
	id        uuid.UUID
	label     string
	seq       *Sequence
	timestamp time.Time
}

// OperationInfo describes a history entry.
type OperationInfo struct {
	ID          uuid.UUID
	Description string
	Steps       int
	Timestamp   time.Time
}

func (e *undoEntry) info() OperationInfo {
	return OperationInfo{
		ID:          e.id,
		Description: e.label,
		Steps:       e.seq.Len(),
		Timestamp:   e.timestamp,
	}
}

// History manages undo/redo state for a timeline.
// It never builds edits itself; callers hand it finished sequences.
type History struct {
	mu sync.Mutex

	applier Applier

	undoStack []*undoEntry
	redoStack []*undoEntry

	// Grouping state
	grouping  bool
	groupName string
	groupSeq  *Sequence

	// Configuration
	maxEntries int
}

// NewHistory creates a history that replays edits through applier.
func NewHistory(applier Applier, maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{
		applier:    applier,
		maxEntries: maxEntries,
	}
}

// Push records an already applied sequence under label.
// Empty sequences are ignored. Clears the redo stack.
func (h *History) Push(label string, seq *Sequence) {
	if seq.Empty() {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		h.groupSeq.Append(seq)
		return
	}

	h.pushLocked(label, seq)
}

// pushLocked adds an entry without acquiring the lock.
func (h *History) pushLocked(label string, seq *Sequence) {
	h.undoStack = append(h.undoStack, &undoEntry{
		id:        uuid.New(),
		label:     label,
		seq:       seq,
		timestamp: time.Now(),
	})

	h.redoStack = nil
	h.trimLocked(h.maxEntries)
}

// trimLocked drops the oldest undo entries beyond max.
func (h *History) trimLocked(max int) {
	if excess := len(h.undoStack) - max; excess > 0 {
		h.undoStack = h.undoStack[excess:]
	}
}

// Undo reverts the last entry.
// The lock is released while edits are replayed because targets may call
// back into the history (for example to query CanUndo).
func (h *History) Undo() error {
	return h.step(&h.undoStack, &h.redoStack, ErrNothingToUndo, (*Sequence).Undo)
}

// Redo replays the last undone entry.
func (h *History) Redo() error {
	return h.step(&h.redoStack, &h.undoStack, ErrNothingToRedo, (*Sequence).Redo)
}

// step pops the top of from, replays it and pushes it onto to. A failed
// replay puts the entry back where it was.
func (h *History) step(from, to *[]*undoEntry, empty error, replay func(*Sequence, Applier) error) error {
	h.mu.Lock()
	n := len(*from)
	if n == 0 {
		h.mu.Unlock()
		return empty
	}
	entry := (*from)[n-1]
	*from = (*from)[:n-1]
	h.mu.Unlock()

	err := replay(entry.seq, h.applier)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		*from = append(*from, entry)
		return err
	}
	*to = append(*to, entry)
	return nil
}

// CanUndo reports whether an entry can be undone.
func (h *History) CanUndo() bool {
	return h.UndoCount() > 0
}

// CanRedo reports whether an undone entry can be replayed.
func (h *History) CanRedo() bool {
	return h.RedoCount() > 0
}

// UndoCount is the depth of the undo stack.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount is the depth of the redo stack.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// BeginGroup starts a group.
// Sequences pushed while grouping are merged into a single undo unit.
func (h *History) BeginGroup(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		// Already grouping, ignore nested calls
		return
	}

	h.grouping = true
	h.groupName = name
	h.groupSeq = NewSequence()
}

// EndGroup finishes a group.
// Everything pushed since BeginGroup becomes one entry.
func (h *History) EndGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.grouping {
		return
	}

	h.grouping = false
	seq := h.groupSeq
	h.groupSeq = nil

	if seq.Empty() {
		return
	}
	h.pushLocked(h.groupName, seq)
}

// CancelGroup drops the current group without recording it and returns what
// had been collected so the caller can revert it.
// Note: edits already applied still affect the timeline!
func (h *History) CancelGroup() *Sequence {
	h.mu.Lock()
	defer h.mu.Unlock()

	seq := h.groupSeq
	h.grouping = false
	h.groupSeq = nil
	if seq == nil {
		seq = NewSequence()
	}
	return seq
}

// IsGrouping returns true if currently in a group.
func (h *History) IsGrouping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grouping
}

// Clear removes all undo/redo history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undoStack = nil
	h.redoStack = nil
	h.grouping = false
	h.groupSeq = nil
}

// UndoInfo lists the undo stack, oldest first.
func (h *History) UndoInfo() []OperationInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.undoStack)
}

// RedoInfo lists the redo stack, oldest first.
func (h *History) RedoInfo() []OperationInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.redoStack)
}

// PeekUndo describes the entry Undo would revert.
func (h *History) PeekUndo() (OperationInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return top(h.undoStack)
}

// PeekRedo describes the entry Redo would replay.
func (h *History) PeekRedo() (OperationInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return top(h.redoStack)
}

func infos(entries []*undoEntry) []OperationInfo {
	out := make([]OperationInfo, len(entries))
	for i, e := range entries {
		out[i] = e.info()
	}
	return out
}

func top(entries []*undoEntry) (OperationInfo, bool) {
	if len(entries) == 0 {
		return OperationInfo{}, false
	}
	return entries[len(entries)-1].info(), true
}

// SetMaxEntries bounds the undo stack, dropping the oldest entries at once
// when it is already deeper. A non-positive max restores the default.
func (h *History) SetMaxEntries(max int) {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxEntries = max
	h.trimLocked(max)
}

// MaxEntries is the current bound.
func (h *History) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}
