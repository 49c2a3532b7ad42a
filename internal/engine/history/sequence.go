package history

import "fmt"

// step pairs a forward edit with the edit that reverses it.
type step struct {
	redo Edit
	undo Edit
}

// Sequence is an ordered list of (redo, undo) edit pairs.
// The zero value is an empty sequence ready to use.
type Sequence struct {
	steps []step
}

// NewSequence creates an empty sequence.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Push appends a (redo, undo) pair.
func (s *Sequence) Push(redo, undo Edit) {
	s.steps = append(s.steps, step{redo: redo, undo: undo})
}

// Do applies redo through a and, if it succeeds, appends the pair.
// Nothing is recorded when the edit fails.
func (s *Sequence) Do(a Applier, redo, undo Edit) error {
	if err := a.Apply(redo); err != nil {
		return err
	}
	s.Push(redo, undo)
	return nil
}

// Append concatenates other after the steps already in s.
func (s *Sequence) Append(other *Sequence) {
	if other == nil {
		return
	}
	s.steps = append(s.steps, other.steps...)
}

// Len returns the number of steps.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.steps)
}

// Empty returns true if no steps were recorded.
func (s *Sequence) Empty() bool {
	return s.Len() == 0
}

// Clone returns a copy that shares the edits but not the step list.
func (s *Sequence) Clone() *Sequence {
	c := &Sequence{steps: make([]step, len(s.steps))}
	copy(c.steps, s.steps)
	return c
}

// RedoEdits returns the forward edits in replay order.
func (s *Sequence) RedoEdits() []Edit {
	result := make([]Edit, len(s.steps))
	for i, st := range s.steps {
		result[i] = st.redo
	}
	return result
}

// UndoEdits returns the inverse edits in replay order (last step first).
func (s *Sequence) UndoEdits() []Edit {
	result := make([]Edit, len(s.steps))
	for i := range s.steps {
		result[i] = s.steps[len(s.steps)-1-i].undo
	}
	return result
}

// Redo applies every forward edit first to last.
// If an edit fails, the steps already applied are undone in reverse order.
func (s *Sequence) Redo(a Applier) error {
	for i, st := range s.steps {
		if err := a.Apply(st.redo); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = a.Apply(s.steps[j].undo)
			}
			return fmt.Errorf("redo %s: %w", st.redo.Describe(), err)
		}
	}
	return nil
}

// Undo applies every inverse edit last to first.
// If an edit fails, the steps already undone are redone in forward order.
func (s *Sequence) Undo(a Applier) error {
	for i := len(s.steps) - 1; i >= 0; i-- {
		st := s.steps[i]
		if err := a.Apply(st.undo); err != nil {
			for j := i + 1; j < len(s.steps); j++ {
				_ = a.Apply(s.steps[j].redo)
			}
			return fmt.Errorf("undo %s: %w", st.undo.Describe(), err)
		}
	}
	return nil
}
