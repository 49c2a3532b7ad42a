package stack

import (
	"github.com/Tilix4/kdenlive/internal/effects/asset"
	"github.com/Tilix4/kdenlive/internal/engine/history"
	"github.com/Tilix4/kdenlive/internal/engine/ident"
)

// orderedFades returns the ids of set in plant order.
func (s *Stack) orderedFades(set map[ident.ID]*fadeRecord) []ident.ID {
	var ids []ident.ID
	for _, id := range s.tree.Leaves() {
		if _, ok := set[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Stack) span(id ident.ID) Span {
	n, _ := s.tree.Get(id)
	return Span{In: n.filter.In(), Out: n.filter.Out()}
}

// setSpan applies a span and fade reference to id. The pair is pushed onto
// seq when record is set; unchanged fades push nothing.
func (s *Stack) setSpan(seq *history.Sequence, record bool, id ident.ID, span Span, ref *Span) error {
	cur := s.span(id)
	var curRef *Span
	if rec := s.fadeRecord(id); rec != nil {
		curRef = rec.ref
	}
	if cur == span && sameSpan(curRef, ref) {
		return nil
	}
	redo := FadeSpan{Stack: s.id, Leaf: id, In: span.In, Out: span.Out, Ref: cloneSpan(ref)}
	undo := FadeSpan{Stack: s.id, Leaf: id, In: cur.In, Out: cur.Out, Ref: cloneSpan(curRef)}
	if err := s.applyLocked(redo); err != nil {
		return err
	}
	if record && seq != nil {
		seq.Push(redo, undo)
	}
	return nil
}

// fit clamps a fade to duration frames. A fade that no longer fits keeps the
// span it should grow back to; one that fits entirely drops it.
func fit(cur Span, ref *Span, duration int) (int, *Span) {
	desired := cur.Len()
	if ref != nil {
		desired = ref.Len()
	}
	l := min(desired, duration)
	if l < desired {
		if ref == nil {
			c := cur
			return l, &c
		}
		return l, cloneSpan(ref)
	}
	return l, nil
}

func (s *Stack) hasAsset(ids []ident.ID, assetID string) bool {
	for _, id := range ids {
		n, _ := s.tree.Get(id)
		if n.asset == assetID {
			return true
		}
	}
	return false
}

// AdjustFadeLength sets every fade-in (fromStart) or fade-out to duration
// frames, clamped to the service playtime. Missing fades are created first
// when audioFade or videoFade ask for them. The whole change is one history
// entry.
func (s *Stack) AdjustFadeLength(duration int, fromStart, audioFade, videoFade bool) bool {
	s.mu.Lock()
	defer s.unlock()

	svc, ok := s.service.Lock()
	if !ok {
		return false
	}
	set, audioID, videoID, label := s.fadeOuts, asset.FadeOut, asset.FadeToBlack, "Adjust fade out"
	if fromStart {
		set, audioID, videoID, label = s.fadeIns, asset.FadeIn, asset.FadeFromBlack, "Adjust fade in"
	}

	seq := history.NewSequence()
	existing := s.orderedFades(set)
	for _, want := range []struct {
		on bool
		id string
	}{{audioFade, audioID}, {videoFade, videoID}} {
		if !want.on || s.hasAsset(existing, want.id) {
			continue
		}
		def, ok := s.registry.Get(want.id)
		if !ok {
			continue
		}
		if err := s.addLocked(seq, newLeafState(def)); err != nil {
			s.logger.Warn("create %s: %v", want.id, err)
			_ = seq.Undo(s.local())
			return false
		}
	}

	in := svc.In()
	length := svc.Playtime()
	d := max(min(duration, length), 0)
	span := Span{In: in + length - d, Out: in + length}
	if fromStart {
		span = Span{In: in, Out: in + d}
	}
	for _, id := range s.orderedFades(set) {
		if err := s.setSpan(seq, true, id, span, nil); err != nil {
			s.logger.Warn("fade %d: %v", id, err)
			_ = seq.Undo(s.local())
			return false
		}
	}
	s.push(label, seq)
	return true
}

// AdjustStackLength keeps fades aligned after the owner moved from
// [oldIn, oldIn+oldDuration) to [newIn, newIn+newDuration).
//
// When the start moved, fade-ins shift to the new start keeping their length.
// Otherwise each fade is clamped to the new duration; a clamped fade
// remembers its span so a later lengthening restores it. Fade-outs stay
// anchored to the new end. Pairs are pushed onto seq when logUndo is set.
func (s *Stack) AdjustStackLength(fromEnd bool, oldIn, oldDuration, newIn, newDuration int, seq *history.Sequence, logUndo bool) bool {
	s.mu.Lock()
	defer s.unlock()

	if _, ok := s.service.Lock(); !ok {
		return false
	}
	end := newIn + newDuration
	startMoved := !fromEnd && (oldIn != newIn || oldDuration != newDuration)

	for _, id := range s.orderedFades(s.fadeIns) {
		rec := s.fadeIns[id]
		cur := s.span(id)
		if cur.Len() == 0 && rec.ref == nil {
			continue
		}
		var err error
		if startMoved {
			err = s.setSpan(seq, logUndo, id, Span{In: newIn, Out: newIn + min(cur.Len(), newDuration)}, rec.ref)
		} else {
			l, ref := fit(cur, rec.ref, newDuration)
			err = s.setSpan(seq, logUndo, id, Span{In: cur.In, Out: cur.In + l}, ref)
		}
		if err != nil {
			s.logger.Warn("fade in %d: %v", id, err)
			return false
		}
	}
	for _, id := range s.orderedFades(s.fadeOuts) {
		rec := s.fadeOuts[id]
		cur := s.span(id)
		if cur.Len() == 0 && rec.ref == nil {
			continue
		}
		l, ref := fit(cur, rec.ref, newDuration)
		if err := s.setSpan(seq, logUndo, id, Span{In: end - l, Out: end}, ref); err != nil {
			s.logger.Warn("fade out %d: %v", id, err)
			return false
		}
	}
	return true
}

// CleanFadeEffects removes every fade-out (outEffects) or fade-in, recording
// the removals into seq. No history entry is pushed.
func (s *Stack) CleanFadeEffects(outEffects bool, seq *history.Sequence) bool {
	s.mu.Lock()
	defer s.unlock()

	svc, ok := s.service.Lock()
	if !ok {
		return false
	}
	set := s.fadeIns
	if outEffects {
		set = s.fadeOuts
	}
	for _, id := range s.orderedFades(set) {
		if err := s.removeLocked(svc, seq, id); err != nil {
			s.logger.Warn("clean fade %d: %v", id, err)
			return false
		}
	}
	return true
}

// RemoveFade deletes every fade-in (fromStart) or fade-out as one entry.
func (s *Stack) RemoveFade(fromStart bool) bool {
	seq := history.NewSequence()
	if !s.CleanFadeEffects(!fromStart, seq) {
		s.mu.Lock()
		_ = seq.Undo(s.local())
		s.unlock()
		return false
	}
	label := "Remove fade out"
	if fromStart {
		label = "Remove fade in"
	}
	s.push(label, seq)
	return true
}

// FadeIns returns the fade-in leaves in plant order.
func (s *Stack) FadeIns() []ident.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orderedFades(s.fadeIns)
}

// FadeOuts returns the fade-out leaves in plant order.
func (s *Stack) FadeOuts() []ident.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orderedFades(s.fadeOuts)
}

// FadeReference returns the span a shortened fade will grow back to.
func (s *Stack) FadeReference(id ident.ID) (Span, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.fadeRecord(id)
	if rec == nil || rec.ref == nil {
		return Span{}, false
	}
	return *rec.ref, true
}

// FadePosition returns the span length of the first fade-in (fromStart) or
// fade-out, or 0 when there is none.
func (s *Stack) FadePosition(fromStart bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.fadeOuts
	if fromStart {
		set = s.fadeIns
	}
	ids := s.orderedFades(set)
	if len(ids) == 0 {
		return 0
	}
	return s.span(ids[0]).Len()
}
