package stack

import (
	"github.com/Tilix4/kdenlive/internal/effects/keyframe"
	"github.com/Tilix4/kdenlive/internal/engine/ident"
	"github.com/Tilix4/kdenlive/internal/engine/tree"
	"github.com/Tilix4/kdenlive/internal/media"
)

// importFilter is the Effect view of a foreign filter.
func (s *Stack) importFilter(f *media.Filter) Effect {
	disabled, _ := f.Get(disableParam)
	e := Effect{
		Asset:   f.Asset(),
		Name:    s.registry.Name(f.Asset()),
		Params:  f.Params(),
		In:      f.In(),
		Out:     f.Out(),
		Enabled: disabled != "1",
	}
	if def, ok := s.registry.Get(f.Asset()); ok && def.Keyframes {
		e.Animated = true
		for _, p := range e.Params {
			if frames, ok := keyframe.Parse(p.Value); ok {
				e.Frames = frames
				break
			}
		}
	}
	return e
}

// ImportFromStack copies every effect of src without recording undo and
// returns the number copied.
func (s *Stack) ImportFromStack(src *Stack) int {
	if src == nil || src == s {
		return 0
	}
	effects := src.Effects()

	s.mu.Lock()
	defer s.unlock()
	count := 0
	for _, e := range effects {
		if e.Group {
			continue
		}
		if err := s.addLocked(nil, copyState(e)); err != nil {
			s.logger.Warn("import %s: %v", e.Asset, err)
			continue
		}
		count++
	}
	s.logger.Debug("imported %d effects from stack %d", count, src.id)
	return count
}

// ImportFromService populates the stack from the filters of h without
// recording undo. When alreadyAttached is set and h is the stack's own
// service, the filters are adopted in place instead of planted again.
func (s *Stack) ImportFromService(h media.Handle, alreadyAttached bool) int {
	s.mu.Lock()
	defer s.unlock()

	other, ok := h.Lock()
	if !ok {
		return 0
	}
	if _, ok := s.service.Lock(); !ok {
		return 0
	}
	adopt := alreadyAttached && h.Same(s.service)

	var filters []*media.Filter
	for i := 0; i < other.FilterCount(); i++ {
		if f := other.FilterAt(i); f != nil && f.Asset() != "" {
			filters = append(filters, f)
		}
	}

	owned := make(map[*media.Filter]bool)
	for _, id := range s.tree.Leaves() {
		n, _ := s.tree.Get(id)
		owned[n.filter] = true
	}

	count := 0
	for _, f := range filters {
		if owned[f] {
			continue
		}
		if adopt {
			if err := s.adoptLocked(f); err != nil {
				s.logger.Warn("adopt %s: %v", f.Asset(), err)
				continue
			}
		} else if err := s.addLocked(nil, copyState(s.importFilter(f))); err != nil {
			s.logger.Warn("import %s: %v", f.Asset(), err)
			continue
		}
		count++
	}
	return count
}

// adoptLocked wraps a filter already attached to the stack's service in a
// new leaf. An animated filter is keyframed from the first parameter that
// holds an animation, or starts with no keyframes.
func (s *Stack) adoptLocked(f *media.Filter) error {
	e := s.importFilter(f)
	n := &node{asset: e.Asset, name: e.Name, filter: f, enabled: e.Enabled}
	if e.Animated {
		n.keyframes = keyframe.Restore(ident.Next(), e.Frames)
	}
	if err := s.tree.Insert(s.tree.Root(), -1, ident.Next(), tree.KindLeaf, n); err != nil {
		return err
	}
	s.touch(TopicChanged)
	return nil
}

// ResetService moves every effect onto another service.
func (s *Stack) ResetService(h media.Handle) bool {
	s.mu.Lock()
	defer s.unlock()

	next, ok := h.Lock()
	if !ok {
		return false
	}
	leaves := s.tree.Leaves()
	old, oldLive := s.service.Lock()
	for _, id := range leaves {
		n, _ := s.tree.Get(id)
		if oldLive && n.filter.Attached() {
			_ = old.Detach(n.filter)
		}
		if n.filter.Attached() {
			n.filter = n.filter.Clone()
		}
	}
	s.service = h
	for i, id := range leaves {
		n, _ := s.tree.Get(id)
		if err := next.Attach(n.filter, i); err != nil {
			s.logger.Warn("reset service: %v", err)
			return false
		}
		s.applyDisable(n)
	}
	s.touch(TopicChanged)
	return true
}
