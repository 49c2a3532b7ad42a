package stack

import (
	"fmt"

	"github.com/Tilix4/kdenlive/internal/effects/asset"
	"github.com/Tilix4/kdenlive/internal/effects/keyframe"
	"github.com/Tilix4/kdenlive/internal/engine/history"
	"github.com/Tilix4/kdenlive/internal/engine/ident"
	"github.com/Tilix4/kdenlive/internal/engine/tree"
	"github.com/Tilix4/kdenlive/internal/media"
)

// Effect is a read-only snapshot of one node.
type Effect struct {
	ID      ident.ID
	Group   bool
	Asset   string
	Name    string
	Params  []media.Param
	In      int
	Out     int
	Enabled bool

	// Animated is set when the effect carries a keyframe model.
	Animated bool
	Frames   []keyframe.Keyframe
}

// Param returns the value of a parameter.
func (e Effect) Param(name string) (string, bool) {
	for _, p := range e.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func (s *Stack) effectLocked(id ident.ID) Effect {
	n, _ := s.tree.Get(id)
	e := Effect{ID: id, Name: n.name, Enabled: n.enabled, Asset: n.asset}
	if !n.leaf() {
		e.Group = true
		return e
	}
	e.Params = n.filter.Params()
	e.In = n.filter.In()
	e.Out = n.filter.Out()
	if n.keyframes != nil {
		e.Animated = true
		e.Frames = n.keyframes.Frames()
	}
	return e
}

// newLeafState builds the snapshot of a fresh leaf for def. New leaves start
// with an empty span.
func newLeafState(def asset.Definition) LeafState {
	st := LeafState{
		ID:        ident.Next(),
		Name:      def.Name,
		Asset:     def.ID,
		Params:    def.Params,
		Enabled:   true,
		Keyframes: ident.Invalid,
	}
	if def.Keyframes {
		st.Keyframes = ident.Next()
	}
	return st
}

// addLocked appends st under the root, recording into seq when it is not nil.
func (s *Stack) addLocked(seq *history.Sequence, st LeafState) error {
	add := AddLeaf{Stack: s.id, Parent: s.tree.Root(), Row: -1, State: st}
	if seq == nil {
		return s.applyLocked(add)
	}
	return seq.Do(s.local(), add, RemoveLeaf{Stack: s.id, Leaf: st.ID})
}

// AppendEffect adds a new effect built from the registry as the last child
// of the root. With makeCurrent it also becomes the active effect.
func (s *Stack) AppendEffect(assetID string, makeCurrent bool) (ident.ID, bool) {
	s.mu.Lock()
	defer s.unlock()

	svc, ok := s.service.Lock()
	if !ok {
		s.logger.Warn("append %s: %v", assetID, ErrServiceGone)
		return ident.Invalid, false
	}
	def, ok := s.registry.Get(assetID)
	if !ok {
		s.logger.Warn("append %s: %v", assetID, asset.ErrUnknownAsset)
		return ident.Invalid, false
	}

	seq := history.NewSequence()
	st := newLeafState(def)
	if err := s.addLocked(seq, st); err != nil {
		s.logger.Warn("append %s: %v", assetID, err)
		return ident.Invalid, false
	}
	if makeCurrent {
		row := s.tree.Row(st.ID)
		prev := activeIndex(svc)
		err := seq.Do(s.local(), ActiveEffect{Stack: s.id, Index: row}, ActiveEffect{Stack: s.id, Index: prev})
		if err != nil {
			_ = seq.Undo(s.local())
			return ident.Invalid, false
		}
	}
	s.logger.Debug("appended %s as %d", assetID, st.ID)
	s.push(fmt.Sprintf("Add effect %s", def.Name), seq)
	return st.ID, true
}

// copyState turns src into the snapshot of a new leaf, keeping its span.
func copyState(src Effect) LeafState {
	st := LeafState{
		ID:        ident.Next(),
		Name:      src.Name,
		Asset:     src.Asset,
		Params:    src.Params,
		In:        src.In,
		Out:       src.Out,
		Enabled:   src.Enabled,
		Keyframes: ident.Invalid,
	}
	if src.Animated {
		st.Keyframes = ident.Next()
		st.Frames = src.Frames
	}
	return st
}

// CopyEffect appends a duplicate of src, including its raw span.
// When logUndo is false no history entry is created.
func (s *Stack) CopyEffect(src Effect, logUndo bool) (ident.ID, bool) {
	if src.Group || src.Asset == "" {
		return ident.Invalid, false
	}
	s.mu.Lock()
	defer s.unlock()

	if src.Name == "" {
		src.Name = s.registry.Name(src.Asset)
	}
	st := copyState(src)
	var seq *history.Sequence
	if logUndo {
		seq = history.NewSequence()
	}
	if err := s.addLocked(seq, st); err != nil {
		s.logger.Warn("copy %s: %v", src.Asset, err)
		return ident.Invalid, false
	}
	if logUndo {
		s.push(fmt.Sprintf("Copy effect %s", st.Name), seq)
	}
	return st.ID, true
}

// removeLocked records the removal of id into seq. When id is not the last
// row it is first moved there, so undo re-appends it and moves it back.
func (s *Stack) removeLocked(svc media.Service, seq *history.Sequence, id ident.ID) error {
	if !s.tree.Has(id) || id == s.tree.Root() {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	parent, _ := s.tree.Parent(id)
	row := s.tree.Row(id)
	last := s.tree.ChildCount(parent) - 1
	st := s.snapshot(id)

	if row != last {
		err := seq.Do(s.local(), MoveLeaf{Stack: s.id, Leaf: id, Row: last}, MoveLeaf{Stack: s.id, Leaf: id, Row: row})
		if err != nil {
			return err
		}
	}
	err := seq.Do(s.local(),
		RemoveLeaf{Stack: s.id, Leaf: id},
		AddLeaf{Stack: s.id, Parent: parent, Row: -1, State: st})
	if err != nil {
		return err
	}

	if parent != s.tree.Root() {
		return nil
	}
	active := activeIndex(svc)
	next := active
	count := s.tree.ChildCount(parent)
	if active > row {
		next = active - 1
	} else if active >= count {
		next = count - 1
	}
	if next == active {
		return nil
	}
	return seq.Do(s.local(), ActiveEffect{Stack: s.id, Index: next}, ActiveEffect{Stack: s.id, Index: active})
}

// RemoveEffect deletes an effect or group. Undo restores it at its row.
func (s *Stack) RemoveEffect(id ident.ID) bool {
	s.mu.Lock()
	defer s.unlock()

	svc, ok := s.service.Lock()
	if !ok {
		return false
	}
	n, ok := s.tree.Get(id)
	if !ok {
		return false
	}
	seq := history.NewSequence()
	if err := s.removeLocked(svc, seq, id); err != nil {
		_ = seq.Undo(s.local())
		s.logger.Warn("remove %d: %v", id, err)
		return false
	}
	s.logger.Debug("removed %s %d", n.asset, id)
	s.push(fmt.Sprintf("Delete effect %s", n.name), seq)
	return true
}

// MoveEffect changes the row of id within its parent.
func (s *Stack) MoveEffect(destRow int, id ident.ID) bool {
	s.mu.Lock()
	defer s.unlock()

	n, ok := s.tree.Get(id)
	if !ok || id == s.tree.Root() {
		return false
	}
	parent, _ := s.tree.Parent(id)
	if destRow < 0 || destRow >= s.tree.ChildCount(parent) {
		return false
	}
	row := s.tree.Row(id)
	if row == destRow {
		return true
	}
	seq := history.NewSequence()
	err := seq.Do(s.local(), MoveLeaf{Stack: s.id, Leaf: id, Row: destRow}, MoveLeaf{Stack: s.id, Leaf: id, Row: row})
	if err != nil {
		s.logger.Warn("move %d to %d: %v", id, destRow, err)
		return false
	}
	s.push(fmt.Sprintf("Move effect %s", n.name), seq)
	return true
}

// CreateGroup wraps id in a new group placed at its row.
func (s *Stack) CreateGroup(id ident.ID) (ident.ID, bool) {
	s.mu.Lock()
	defer s.unlock()

	if !s.tree.Has(id) || id == s.tree.Root() {
		return ident.Invalid, false
	}
	parent, _ := s.tree.Parent(id)
	row := s.tree.Row(id)
	group := LeafState{ID: ident.Next(), Group: true, Name: "Group", Enabled: true, Keyframes: ident.Invalid}

	seq := history.NewSequence()
	err := seq.Do(s.local(),
		AddLeaf{Stack: s.id, Parent: parent, Row: row, State: group},
		RemoveLeaf{Stack: s.id, Leaf: group.ID})
	if err == nil {
		err = seq.Do(s.local(),
			Reparent{Stack: s.id, Leaf: id, Parent: group.ID, Row: 0},
			Reparent{Stack: s.id, Leaf: id, Parent: parent, Row: row})
	}
	if err != nil {
		_ = seq.Undo(s.local())
		s.logger.Warn("group %d: %v", id, err)
		return ident.Invalid, false
	}
	s.push("Create group", seq)
	return group.ID, true
}

// SetActiveEffect stores the active row on the service.
func (s *Stack) SetActiveEffect(ix int) bool {
	s.mu.Lock()
	defer s.unlock()
	return s.applyLocked(ActiveEffect{Stack: s.id, Index: ix}) == nil
}

// ActiveEffect returns the active row, or -1 when none is set or the service
// is gone.
func (s *Stack) ActiveEffect() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.service.Lock()
	if !ok {
		return -1
	}
	return activeIndex(svc)
}

// SetParameter changes one parameter of a leaf as an undoable edit.
// Assets that cannot be reconfigured in place are replugged.
func (s *Stack) SetParameter(id ident.ID, name, value string) bool {
	s.mu.Lock()
	defer s.unlock()

	n, err := s.leafNode(id)
	if err != nil {
		return false
	}
	old, had := n.filter.Get(name)
	if had && old == value {
		return true
	}
	seq := history.NewSequence()
	err = seq.Do(s.local(),
		SetParam{Stack: s.id, Leaf: id, Name: name, Value: value},
		SetParam{Stack: s.id, Leaf: id, Name: name, Value: old, Unset: !had})
	if err != nil {
		s.logger.Warn("set %s on %d: %v", name, id, err)
		return false
	}
	s.push(fmt.Sprintf("Edit effect %s", n.name), seq)
	return true
}

// ReplugEffect rebuilds the filter of id from the registry and replants
// every leaf from its position onward.
func (s *Stack) ReplugEffect(id ident.ID) bool {
	s.mu.Lock()
	defer s.unlock()

	svc, ok := s.service.Lock()
	if !ok {
		return false
	}
	if err := s.replugLocked(svc, id); err != nil {
		s.logger.Warn("replug %d: %v", id, err)
		return false
	}
	return true
}

func (s *Stack) replugLocked(svc media.Service, id ident.ID) error {
	n, err := s.leafNode(id)
	if err != nil {
		return err
	}
	leaves := s.tree.Leaves()
	start := -1
	for i, leaf := range leaves {
		if leaf == id {
			start = i
			break
		}
	}
	for i := len(leaves) - 1; i >= start; i-- {
		ln, _ := s.tree.Get(leaves[i])
		if ln.filter.Attached() {
			if err := svc.Detach(ln.filter); err != nil {
				return err
			}
		}
	}

	rebuilt, err := s.registry.NewFilter(n.asset)
	if err != nil {
		rebuilt = media.NewFilter(n.asset, nil)
	}
	for _, p := range n.filter.Params() {
		rebuilt.Set(p.Name, p.Value)
	}
	rebuilt.SetInOut(n.filter.In(), n.filter.Out())
	n.filter = rebuilt

	for i := start; i < len(leaves); i++ {
		ln, _ := s.tree.Get(leaves[i])
		if err := svc.Attach(ln.filter, i); err != nil {
			return err
		}
	}
	s.touch(TopicChanged)
	return nil
}

// SetEnabled enables or disables the whole stack.
func (s *Stack) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.unlock()
	if s.enabled == enabled {
		return
	}
	s.enabled = enabled
	for _, id := range s.tree.Leaves() {
		n, _ := s.tree.Get(id)
		s.applyDisable(n)
	}
	s.touch(TopicChanged)
}

// Enabled reports whether the stack is enabled.
func (s *Stack) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// SetEffectEnabled toggles one effect as an undoable edit.
func (s *Stack) SetEffectEnabled(id ident.ID, enabled bool) bool {
	s.mu.Lock()
	defer s.unlock()

	n, err := s.leafNode(id)
	if err != nil {
		return false
	}
	if n.enabled == enabled {
		return true
	}
	seq := history.NewSequence()
	err = seq.Do(s.local(),
		LeafEnabled{Stack: s.id, Leaf: id, Enabled: enabled},
		LeafEnabled{Stack: s.id, Leaf: id, Enabled: !enabled})
	if err != nil {
		return false
	}
	label := "Disable effect %s"
	if enabled {
		label = "Enable effect %s"
	}
	s.push(fmt.Sprintf(label, n.name), seq)
	return true
}

// EffectNames returns the display names of the effects in plant order.
func (s *Stack) EffectNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leaves := s.tree.Leaves()
	names := make([]string, 0, len(leaves))
	for _, id := range leaves {
		n, _ := s.tree.Get(id)
		names = append(names, n.name)
	}
	return names
}

// RowCount returns the number of top level nodes.
func (s *Stack) RowCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.ChildCount(s.tree.Root())
}

// Len returns the number of effects, excluding groups.
func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tree.Leaves())
}

// EffectAt returns the top level node at row.
func (s *Stack) EffectAt(row int) (Effect, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tree.Child(s.tree.Root(), row)
	if !ok {
		return Effect{}, false
	}
	return s.effectLocked(id), true
}

// Effect returns the node with the given id.
func (s *Stack) Effect(id ident.ID) (Effect, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.tree.Has(id) || id == s.tree.Root() {
		return Effect{}, false
	}
	return s.effectLocked(id), true
}

// Effects returns every effect in plant order.
func (s *Stack) Effects() []Effect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leaves := s.tree.Leaves()
	out := make([]Effect, 0, len(leaves))
	for _, id := range leaves {
		out = append(out, s.effectLocked(id))
	}
	return out
}

// Row returns the row of id within its parent, or -1.
func (s *Stack) Row(id ident.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Row(id)
}

// Parent returns the parent of id. Top level nodes report the root id.
func (s *Stack) Parent(id ident.ID) (ident.ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Parent(id)
}

// Root returns the id of the tree root.
func (s *Stack) Root() ident.ID {
	return s.tree.Root()
}

// IsGroup reports whether id is a group.
func (s *Stack) IsGroup(id ident.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.tree.Kind(id)
	return ok && k == tree.KindGroup
}

// HasFilter reports whether an effect of assetID is in the stack.
func (s *Stack) HasFilter(assetID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.findAsset(assetID)
	return ok
}

// FilterParam returns a parameter of the first effect of assetID.
func (s *Stack) FilterParam(assetID, param string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.findAsset(assetID)
	if !ok {
		return "", false
	}
	return n.filter.Get(param)
}

// Adjust sets a parameter on every effect of assetID without recording
// undo. It returns false when no such effect exists.
func (s *Stack) Adjust(assetID, param, value string) bool {
	s.mu.Lock()
	defer s.unlock()

	svc, ok := s.service.Lock()
	if !ok {
		return false
	}
	found := false
	for _, id := range s.tree.Leaves() {
		n, _ := s.tree.Get(id)
		if n.asset != assetID {
			continue
		}
		found = true
		if err := s.setParam(svc, SetParam{Stack: s.id, Leaf: id, Name: param, Value: value}); err != nil {
			s.logger.Warn("adjust %s: %v", assetID, err)
			return false
		}
	}
	return found
}

// ActiveKeyframes returns the keyframe model of the active effect.
func (s *Stack) ActiveKeyframes() (*keyframe.Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.service.Lock()
	if !ok {
		return nil, false
	}
	id, ok := s.tree.Child(s.tree.Root(), activeIndex(svc))
	if !ok {
		return nil, false
	}
	n, _ := s.tree.Get(id)
	if n.keyframes == nil {
		return nil, false
	}
	return n.keyframes, true
}

// Keyframes returns the keyframe model of id.
func (s *Stack) Keyframes(id ident.ID) (*keyframe.Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err := s.leafNode(id)
	if err != nil || n.keyframes == nil {
		return nil, false
	}
	return n.keyframes, true
}

func (s *Stack) findAsset(assetID string) (*node, bool) {
	for _, id := range s.tree.Leaves() {
		n, _ := s.tree.Get(id)
		if n.asset == assetID {
			return n, true
		}
	}
	return nil, false
}
