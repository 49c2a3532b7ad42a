package stack

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/Tilix4/kdenlive/internal/effects/asset"
	"github.com/Tilix4/kdenlive/internal/effects/keyframe"
	"github.com/Tilix4/kdenlive/internal/engine/history"
	"github.com/Tilix4/kdenlive/internal/engine/ident"
	"github.com/Tilix4/kdenlive/internal/engine/tree"
	"github.com/Tilix4/kdenlive/internal/event"
	"github.com/Tilix4/kdenlive/internal/logging"
	"github.com/Tilix4/kdenlive/internal/media"
)

// ActiveEffectProperty is the service property holding the active row.
const ActiveEffectProperty = "kdenlive:activeeffect"

// disableParam is set on filters of disabled effects.
const disableParam = "disable"

// Topics published after a stack changes.
const (
	TopicChanged   event.Topic = "stack.changed"
	TopicFadeIn    event.Topic = "stack.fade.in"
	TopicFadeOut   event.Topic = "stack.fade.out"
	TopicKeyframes event.Topic = "stack.keyframes"
)

// OwnerKind tags the kind of timeline object owning a stack.
type OwnerKind uint8

const (
	OwnerClip OwnerKind = iota + 1
	OwnerTrack
	OwnerComposition
)

// String returns the owner kind name.
func (k OwnerKind) String() string {
	switch k {
	case OwnerClip:
		return "clip"
	case OwnerTrack:
		return "track"
	case OwnerComposition:
		return "composition"
	default:
		return fmt.Sprintf("owner(%d)", uint8(k))
	}
}

// Owner identifies the timeline object a stack belongs to.
type Owner struct {
	Kind OwnerKind
	ID   ident.ID
}

// Change is the payload of every stack event.
type Change struct {
	Stack ident.ID
	Owner Owner
}

// node is the payload of a tree node. Groups have no filter.
type node struct {
	asset     string
	name      string
	filter    *media.Filter
	enabled   bool
	keyframes *keyframe.Model
}

func (n *node) leaf() bool {
	return n.filter != nil
}

// fadeRecord tracks one fade leaf. ref is the span a shortened fade grows
// back to.
type fadeRecord struct {
	ref *Span
}

// Option configures a Stack.
type Option func(*Stack)

// WithHistory sets the history that receives undo entries.
// Without one, operations still apply but nothing is recorded.
func WithHistory(h *history.History) Option {
	return func(s *Stack) {
		s.history = h
	}
}

// WithBus sets the bus change events are published on.
func WithBus(b *event.Bus) Option {
	return func(s *Stack) {
		s.bus = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Stack) {
		if l != nil {
			s.logger = l
		}
	}
}

// Stack is an ordered effect tree planted into one media service.
// It is safe for concurrent use.
type Stack struct {
	mu sync.RWMutex

	id       ident.ID
	owner    Owner
	service  media.Handle
	registry *asset.Registry
	router   *history.Router
	history  *history.History
	bus      *event.Bus
	logger   *logging.Logger

	tree     *tree.Model[*node]
	fadeIns  map[ident.ID]*fadeRecord
	fadeOuts map[ident.ID]*fadeRecord
	enabled  bool

	// pending holds topics raised under the lock, published on unlock.
	pending []event.Topic
	// holds counts open Hold calls; pending topics wait for the last release.
	holds int
}

// New creates an empty stack for owner planted into service and registers
// it with router.
func New(owner Owner, service media.Handle, registry *asset.Registry, router *history.Router, opts ...Option) *Stack {
	if registry == nil {
		registry = asset.Builtin()
	}
	if router == nil {
		router = history.NewRouter()
	}
	s := &Stack{
		id:       ident.Next(),
		owner:    owner,
		service:  service,
		registry: registry,
		router:   router,
		logger:   logging.Nop(),
		fadeIns:  make(map[ident.ID]*fadeRecord),
		fadeOuts: make(map[ident.ID]*fadeRecord),
		enabled:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("stack").With("stack", s.id)
	s.tree = tree.New(&node{name: "root", enabled: true}, tree.Hooks[*node]{
		Registered:   s.registered,
		Deregistered: s.deregistered,
	})
	router.Register(s.id, s)
	return s
}

// ID returns the stack id used to address edits.
func (s *Stack) ID() ident.ID {
	return s.id
}

// Owner returns the owning timeline object.
func (s *Stack) Owner() Owner {
	return s.owner
}

// Service returns the handle of the service the stack is planted into.
func (s *Stack) Service() media.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.service
}

// Close unplants every effect and detaches the stack from its router.
func (s *Stack) Close() {
	s.mu.Lock()
	if svc, ok := s.service.Lock(); ok {
		for _, id := range s.tree.Leaves() {
			n, _ := s.tree.Get(id)
			_ = svc.Detach(n.filter)
		}
	}
	for _, id := range s.tree.Children(s.tree.Root()) {
		_ = s.tree.Remove(id)
	}
	s.router.Deregister(s.id)
	s.unlock()
}

func (s *Stack) registered(id ident.ID, n *node) {
	if !n.leaf() {
		return
	}
	switch {
	case asset.IsFadeIn(n.asset):
		s.fadeIns[id] = &fadeRecord{}
		s.touch(TopicFadeIn)
	case asset.IsFadeOut(n.asset):
		s.fadeOuts[id] = &fadeRecord{}
		s.touch(TopicFadeOut)
	}
	if n.keyframes != nil {
		s.router.Register(n.keyframes.ID(), n.keyframes)
		s.touch(TopicKeyframes)
	}
}

func (s *Stack) deregistered(id ident.ID, n *node) {
	if _, ok := s.fadeIns[id]; ok {
		delete(s.fadeIns, id)
		s.touch(TopicFadeIn)
	}
	if _, ok := s.fadeOuts[id]; ok {
		delete(s.fadeOuts, id)
		s.touch(TopicFadeOut)
	}
	if n.keyframes != nil {
		s.router.Deregister(n.keyframes.ID())
		s.touch(TopicKeyframes)
	}
}

// touch queues topic for publication once the lock is released.
func (s *Stack) touch(topic event.Topic) {
	for _, t := range s.pending {
		if t == topic {
			return
		}
	}
	s.pending = append(s.pending, topic)
}

// unlock releases the write lock and publishes the queued topics, unless a
// Hold is open.
func (s *Stack) unlock() {
	if s.holds > 0 {
		s.mu.Unlock()
		return
	}
	topics := s.pending
	s.pending = nil
	s.mu.Unlock()

	if s.bus == nil {
		return
	}
	change := Change{Stack: s.id, Owner: s.owner}
	for _, t := range topics {
		if err := s.bus.Publish(event.New(t, change, "stack")); err != nil {
			s.logger.Warn("publish %s: %v", t, err)
		}
	}
}

// Hold queues change events until the returned release runs. Owners that
// mutate the stack while holding their own lock take a hold first and release
// it after unlocking, so subscribers may read the owner. Holds nest; release
// is safe to call more than once.
func (s *Stack) Hold() (release func()) {
	s.mu.Lock()
	s.holds++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.holds--
			s.unlock()
		})
	}
}

// push hands a finished sequence to the history.
func (s *Stack) push(label string, seq *history.Sequence) {
	if s.history == nil || seq.Empty() {
		return
	}
	s.history.Push(label, seq)
}

// local applies edits while the lock is already held.
func (s *Stack) local() history.Applier {
	return history.ApplierFunc(s.applyLocked)
}

// Apply interprets stack edits.
func (s *Stack) Apply(e history.Edit) error {
	s.mu.Lock()
	defer s.unlock()
	return s.applyLocked(e)
}

func (s *Stack) applyLocked(e history.Edit) error {
	svc, ok := s.service.Lock()
	if !ok {
		return ErrServiceGone
	}
	switch e := e.(type) {
	case AddLeaf:
		return s.addLeaf(svc, e)
	case RemoveLeaf:
		return s.removeLeaf(svc, e)
	case MoveLeaf:
		return s.moveLeaf(svc, e)
	case Reparent:
		return s.reparent(svc, e)
	case FadeSpan:
		return s.fadeSpan(e)
	case ActiveEffect:
		svc.Set(ActiveEffectProperty, strconv.Itoa(e.Index))
		s.touch(TopicChanged)
		return nil
	case SetParam:
		return s.setParam(svc, e)
	case LeafEnabled:
		n, err := s.leafNode(e.Leaf)
		if err != nil {
			return err
		}
		n.enabled = e.Enabled
		s.applyDisable(n)
		s.touch(TopicChanged)
		return nil
	default:
		return history.UnknownEdit(e)
	}
}

func (s *Stack) addLeaf(svc media.Service, e AddLeaf) error {
	parent := e.Parent
	if !parent.Valid() {
		parent = s.tree.Root()
	}
	if err := s.insertState(parent, e.Row, e.State); err != nil {
		return err
	}
	if err := s.plant(svc, e.State.ID); err != nil {
		_ = s.tree.Remove(e.State.ID)
		return err
	}
	s.touch(TopicChanged)
	return nil
}

// insertState recreates a snapshot and its subtree under parent.
func (s *Stack) insertState(parent ident.ID, row int, st LeafState) error {
	kind := tree.KindLeaf
	n := &node{asset: st.Asset, name: st.Name, enabled: st.Enabled}
	if st.Group {
		kind = tree.KindGroup
	} else {
		n.filter = media.NewFilter(st.Asset, st.Params)
		n.filter.SetInOut(st.In, st.Out)
		if st.Keyframes.Valid() {
			n.keyframes = keyframe.Restore(st.Keyframes, st.Frames)
		}
	}
	if err := s.tree.Insert(parent, row, st.ID, kind, n); err != nil {
		return err
	}
	if rec := s.fadeRecord(st.ID); rec != nil {
		rec.ref = cloneSpan(st.FadeRef)
	}
	for _, child := range st.Children {
		if err := s.insertState(st.ID, -1, child); err != nil {
			_ = s.tree.Remove(st.ID)
			return err
		}
	}
	return nil
}

func (s *Stack) removeLeaf(svc media.Service, e RemoveLeaf) error {
	if !s.tree.Has(e.Leaf) || e.Leaf == s.tree.Root() {
		return fmt.Errorf("%w: %d", ErrUnknownNode, e.Leaf)
	}
	if err := s.unplant(svc, e.Leaf); err != nil {
		return err
	}
	if err := s.tree.Remove(e.Leaf); err != nil {
		return err
	}
	s.touch(TopicChanged)
	return nil
}

func (s *Stack) moveLeaf(svc media.Service, e MoveLeaf) error {
	if !s.tree.Has(e.Leaf) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, e.Leaf)
	}
	if err := s.unplant(svc, e.Leaf); err != nil {
		return err
	}
	moveErr := s.tree.Move(e.Leaf, e.Row)
	if err := s.plant(svc, e.Leaf); err != nil {
		return err
	}
	if moveErr != nil {
		return moveErr
	}
	s.touch(TopicChanged)
	return nil
}

func (s *Stack) reparent(svc media.Service, e Reparent) error {
	if !s.tree.Has(e.Leaf) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, e.Leaf)
	}
	if err := s.unplant(svc, e.Leaf); err != nil {
		return err
	}
	moveErr := s.tree.Reparent(e.Leaf, e.Parent, e.Row)
	if err := s.plant(svc, e.Leaf); err != nil {
		return err
	}
	if moveErr != nil {
		return moveErr
	}
	s.touch(TopicChanged)
	return nil
}

func (s *Stack) fadeSpan(e FadeSpan) error {
	n, err := s.leafNode(e.Leaf)
	if err != nil {
		return err
	}
	n.filter.SetInOut(e.In, e.Out)
	if rec, ok := s.fadeIns[e.Leaf]; ok {
		rec.ref = cloneSpan(e.Ref)
		s.touch(TopicFadeIn)
	}
	if rec, ok := s.fadeOuts[e.Leaf]; ok {
		rec.ref = cloneSpan(e.Ref)
		s.touch(TopicFadeOut)
	}
	return nil
}

func (s *Stack) setParam(svc media.Service, e SetParam) error {
	n, err := s.leafNode(e.Leaf)
	if err != nil {
		return err
	}
	if e.Unset {
		n.filter.Unset(e.Name)
	} else {
		n.filter.Set(e.Name, e.Value)
	}
	s.touch(TopicChanged)
	if def, ok := s.registry.Get(n.asset); ok && def.Replug {
		return s.replugLocked(svc, e.Leaf)
	}
	return nil
}

func (s *Stack) leafNode(id ident.ID) (*node, error) {
	n, ok := s.tree.Get(id)
	if !ok || id == s.tree.Root() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	if !n.leaf() {
		return nil, fmt.Errorf("%w: %d", ErrNotLeaf, id)
	}
	return n, nil
}

func (s *Stack) fadeRecord(id ident.ID) *fadeRecord {
	if rec, ok := s.fadeIns[id]; ok {
		return rec
	}
	return s.fadeOuts[id]
}

// subtreeLeaves returns the leaves at or below id.
func (s *Stack) subtreeLeaves(id ident.ID) map[ident.ID]bool {
	set := make(map[ident.ID]bool)
	var visit func(ident.ID)
	visit = func(cur ident.ID) {
		if k, _ := s.tree.Kind(cur); k == tree.KindLeaf {
			set[cur] = true
			return
		}
		for _, c := range s.tree.Children(cur) {
			visit(c)
		}
	}
	visit(id)
	return set
}

// plant attaches the leaves below id. Each lands at the position given by
// the number of attached leaves preceding it in depth-first order.
func (s *Stack) plant(svc media.Service, id ident.ID) error {
	sub := s.subtreeLeaves(id)
	var planted []*media.Filter
	pos := 0
	for _, leaf := range s.tree.Leaves() {
		n, _ := s.tree.Get(leaf)
		if sub[leaf] {
			if err := svc.Attach(n.filter, pos); err != nil {
				for _, f := range planted {
					_ = svc.Detach(f)
				}
				return fmt.Errorf("plant %s: %w", n.asset, err)
			}
			planted = append(planted, n.filter)
			s.applyDisable(n)
		}
		if n.filter.Attached() {
			pos++
		}
	}
	return nil
}

// unplant detaches the leaves below id.
func (s *Stack) unplant(svc media.Service, id ident.ID) error {
	sub := s.subtreeLeaves(id)
	for _, leaf := range s.tree.Leaves() {
		if !sub[leaf] {
			continue
		}
		n, _ := s.tree.Get(leaf)
		if !n.filter.Attached() {
			continue
		}
		if err := svc.Detach(n.filter); err != nil {
			return fmt.Errorf("unplant %s: %w", n.asset, err)
		}
	}
	return nil
}

func (s *Stack) applyDisable(n *node) {
	if !s.enabled || !n.enabled {
		n.filter.Set(disableParam, "1")
		return
	}
	n.filter.Unset(disableParam)
}

// snapshot captures id and its subtree.
func (s *Stack) snapshot(id ident.ID) LeafState {
	n, _ := s.tree.Get(id)
	st := LeafState{ID: id, Name: n.name, Enabled: n.enabled, Keyframes: ident.Invalid}
	if !n.leaf() {
		st.Group = true
		for _, c := range s.tree.Children(id) {
			st.Children = append(st.Children, s.snapshot(c))
		}
		return st
	}
	st.Asset = n.asset
	st.Params = n.filter.Params()
	st.In = n.filter.In()
	st.Out = n.filter.Out()
	if n.keyframes != nil {
		st.Keyframes = n.keyframes.ID()
		st.Frames = n.keyframes.Frames()
	}
	if rec := s.fadeRecord(id); rec != nil {
		st.FadeRef = cloneSpan(rec.ref)
	}
	return st
}

// activeIndex returns the stored active row, or -1.
func activeIndex(svc media.Service) int {
	v, ok := svc.Get(ActiveEffectProperty)
	if !ok {
		return -1
	}
	ix, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return ix
}
