package history

// GroupScope closes a group opened by History.GroupScope, usually deferred:
//
//	func adjustFades(h *History) {
//	    defer h.GroupScope("Adjust fades").End()
//	    // ... multiple pushes ...
//	}
type GroupScope struct {
	history *History
	active  bool
}

// GroupScope opens a group and returns the scope that ends it.
func (h *History) GroupScope(name string) *GroupScope {
	h.BeginGroup(name)
	return &GroupScope{
		history: h,
		active:  true,
	}
}

// End records the group. Later calls do nothing.
func (g *GroupScope) End() {
	if g.active {
		g.history.EndGroup()
		g.active = false
	}
}

// Cancel discards the group scope and reverts what it collected.
func (g *GroupScope) Cancel() error {
	if !g.active {
		return nil
	}
	g.active = false
	return g.history.CancelGroup().Undo(g.history.applier)
}

// Transaction runs fn inside a group labelled name. When fn fails, the edits
// it pushed are reverted and nothing is recorded.
func (h *History) Transaction(name string, fn func() error) error {
	h.BeginGroup(name)

	if err := fn(); err != nil {
		if undoErr := h.CancelGroup().Undo(h.applier); undoErr != nil {
			return undoErr
		}
		return err
	}

	h.EndGroup()
	return nil
}

// Checkpoint marks an undo depth to come back to.
type Checkpoint struct {
	undoDepth int
}

// CreateCheckpoint marks the current depth.
func (h *History) CreateCheckpoint() Checkpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Checkpoint{undoDepth: len(h.undoStack)}
}

// UndoToCheckpoint undoes entries until the depth of cp.
func (h *History) UndoToCheckpoint(cp Checkpoint) error {
	for h.UndoCount() > cp.undoDepth {
		if err := h.Undo(); err != nil {
			return err
		}
	}
	return nil
}

// RedoToCheckpoint redoes entries back up to the depth of cp, as far as the
// redo stack reaches.
func (h *History) RedoToCheckpoint(cp Checkpoint) error {
	for h.UndoCount() < cp.undoDepth && h.CanRedo() {
		if err := h.Redo(); err != nil {
			return err
		}
	}
	return nil
}
