package timeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Tilix4/kdenlive/internal/effects/asset"
	"github.com/Tilix4/kdenlive/internal/effects/stack"
	"github.com/Tilix4/kdenlive/internal/engine/history"
	"github.com/Tilix4/kdenlive/internal/engine/ident"
	"github.com/Tilix4/kdenlive/internal/event"
	"github.com/Tilix4/kdenlive/internal/logging"
	"github.com/Tilix4/kdenlive/internal/media"
)

// Errors returned by the timeline.
var (
	ErrUnknownItem  = errors.New("unknown item")
	ErrUnknownTrack = errors.New("unknown track")
)

// Option configures a Timeline.
type Option func(*Timeline)

// WithBus sets the bus change events are published on.
func WithBus(b *event.Bus) Option {
	return func(t *Timeline) {
		t.bus = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Timeline) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMaxUndoEntries bounds the undo history.
func WithMaxUndoEntries(n int) Option {
	return func(t *Timeline) {
		t.maxUndo = n
	}
}

// Timeline owns tracks and items and records every edit in one history.
// It is safe for concurrent use.
type Timeline struct {
	mu sync.RWMutex

	profile  media.Profile
	registry *asset.Registry
	router   *history.Router
	history  *history.History
	bus      *event.Bus
	logger   *logging.Logger
	maxUndo  int

	tracks []*Track
	items  map[ident.ID]Item
}

// New creates an empty timeline.
func New(profile media.Profile, registry *asset.Registry, opts ...Option) *Timeline {
	if registry == nil {
		registry = asset.Builtin()
	}
	t := &Timeline{
		profile:  profile,
		registry: registry,
		router:   history.NewRouter(),
		logger:   logging.Nop(),
		maxUndo:  history.DefaultMaxEntries,
		items:    make(map[ident.ID]Item),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.history = history.NewHistory(t.router, t.maxUndo)
	return t
}

// Profile returns the media profile.
func (t *Timeline) Profile() media.Profile {
	return t.profile
}

// Registry returns the asset registry.
func (t *Timeline) Registry() *asset.Registry {
	return t.registry
}

// History returns the undo history.
func (t *Timeline) History() *history.History {
	return t.history
}

// Router returns the edit router.
func (t *Timeline) Router() *history.Router {
	return t.router
}

// AddTrack appends a track and returns its id.
func (t *Timeline) AddTrack(kind TrackKind, name string) ident.ID {
	tr := newTrack(kind, name)
	tr.stack = stack.New(stack.Owner{Kind: stack.OwnerTrack, ID: tr.id}, media.NewHandle(tr.producer),
		t.registry, t.router, stack.WithHistory(t.history), stack.WithBus(t.bus), stack.WithLogger(t.logger))
	t.router.Register(tr.id, tr)

	t.mu.Lock()
	t.tracks = append(t.tracks, tr)
	t.mu.Unlock()
	t.logger.Debug("added %s track %s (%d)", kind, name, tr.id)
	return tr.id
}

// Track returns a track by id.
func (t *Timeline) Track(id ident.ID) (*Track, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, tr := range t.tracks {
		if tr.id == id {
			return tr, true
		}
	}
	return nil, false
}

// Tracks returns the tracks in order.
func (t *Timeline) Tracks() []*Track {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Track, len(t.tracks))
	copy(out, t.tracks)
	return out
}

// Item returns an item by id.
func (t *Timeline) Item(id ident.ID) (Item, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	it, ok := t.items[id]
	return it, ok
}

// Clip returns a clip by id.
func (t *Timeline) Clip(id ident.ID) (*Clip, bool) {
	it, ok := t.Item(id)
	if !ok {
		return nil, false
	}
	c, ok := it.(*Clip)
	return c, ok
}

// Composition returns a composition by id.
func (t *Timeline) Composition(id ident.ID) (*Composition, bool) {
	it, ok := t.Item(id)
	if !ok {
		return nil, false
	}
	c, ok := it.(*Composition)
	return c, ok
}

// Items returns every item id in ascending order.
func (t *Timeline) Items() []ident.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]ident.ID, 0, len(t.items))
	for id := range t.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *Timeline) register(it Item) {
	t.router.Register(it.ID(), it)
	t.mu.Lock()
	t.items[it.ID()] = it
	t.mu.Unlock()
}

// discard forgets a detached item that never reached the history.
func (t *Timeline) discard(b *base) {
	t.router.Deregister(b.id)
	t.mu.Lock()
	delete(t.items, b.id)
	t.mu.Unlock()
	b.stack.Close()
	b.producer.Close()
}

// insertEdits records placing it on track at position.
func (t *Timeline) insertEdits(seq *history.Sequence, it Item, track ident.ID, position int) error {
	tr, ok := t.Track(track)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTrack, track)
	}
	redo, undo, err := tr.InsertEdits(it.ID(), position, it.Playtime())
	if err != nil {
		return err
	}
	if err := seq.Do(t.router, redo, undo); err != nil {
		return err
	}
	return seq.Do(t.router,
		Attach{Item: it.ID(), Track: track, Position: position},
		Attach{Item: it.ID(), Track: it.Track(), Position: it.Position()})
}

func (t *Timeline) place(label string, it Item, track ident.ID, position int) bool {
	seq := history.NewSequence()
	if err := t.insertEdits(seq, it, track, position); err != nil {
		_ = seq.Undo(t.router)
		t.logger.Warn("%s: %v", label, err)
		return false
	}
	t.history.Push(label, seq)
	return true
}

// CreateClip registers a detached clip for p.
func (t *Timeline) CreateClip(p *media.Producer) *Clip {
	c := newClip(t, p)
	t.register(c)
	return c
}

// InsertClip creates a clip for p and places it on track at position.
func (t *Timeline) InsertClip(p *media.Producer, track ident.ID, position int) (ident.ID, bool) {
	c := t.CreateClip(p)
	if !t.place("Insert clip", c, track, position) {
		t.discard(&c.base)
		return ident.Invalid, false
	}
	return c.id, true
}

// InsertColorClip places an endless color clip lasting d.
func (t *Timeline) InsertColorClip(color string, track ident.ID, position int, d time.Duration) (ident.ID, bool) {
	frames := t.profile.Frames(d)
	if frames <= 0 {
		return ident.Invalid, false
	}
	p := media.NewEndlessProducer("color:"+color, frames)
	return t.InsertClip(p, track, position)
}

// CreateComposition registers a detached composition.
func (t *Timeline) CreateComposition(assetID string, duration int) *Composition {
	c := newComposition(t, assetID, duration)
	t.register(c)
	return c
}

// InsertComposition creates a composition and places it on track.
func (t *Timeline) InsertComposition(assetID string, track ident.ID, position, duration int) (ident.ID, bool) {
	if duration <= 0 {
		return ident.Invalid, false
	}
	c := t.CreateComposition(assetID, duration)
	if !t.place("Insert composition", c, track, position) {
		t.router.Deregister(c.keyframes.ID())
		t.discard(&c.base)
		return ident.Invalid, false
	}
	return c.id, true
}

// removeEdits records taking it off its track.
func (t *Timeline) removeEdits(seq *history.Sequence, it Item) error {
	tr, ok := t.Track(it.Track())
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTrack, it.Track())
	}
	redo, undo, err := tr.RemoveEdits(it.ID())
	if err != nil {
		return err
	}
	err = seq.Do(t.router,
		Attach{Item: it.ID(), Track: ident.Invalid, Position: it.Position()},
		Attach{Item: it.ID(), Track: tr.id, Position: it.Position()})
	if err != nil {
		return err
	}
	return seq.Do(t.router, redo, undo)
}

// RemoveItem takes an item off its track.
func (t *Timeline) RemoveItem(id ident.ID) bool {
	it, ok := t.Item(id)
	if !ok || !it.Track().Valid() {
		return false
	}
	seq := history.NewSequence()
	if err := t.removeEdits(seq, it); err != nil {
		_ = seq.Undo(t.router)
		return false
	}
	t.history.Push(fmt.Sprintf("Delete %s", itemNoun(it)), seq)
	return true
}

func itemNoun(it Item) string {
	if _, ok := it.(*Composition); ok {
		return "composition"
	}
	return "clip"
}

// RequestItemResize resizes an item to size frames. With logUndo the change
// is one history entry labelled "Resize clip" or "Resize composition".
func (t *Timeline) RequestItemResize(id ident.ID, size int, fromRight, logUndo bool) bool {
	it, ok := t.Item(id)
	if !ok {
		return false
	}
	seq := history.NewSequence()
	if !it.RequestResize(size, fromRight, seq, logUndo) {
		t.logger.Debug("resize of %d to %d rejected", id, size)
		return false
	}
	if logUndo {
		t.history.Push("Resize "+itemNoun(it), seq)
	}
	return true
}

// AddEffect appends an effect to an item and makes it current. Clips
// refuse effects for a stream they do not play.
func (t *Timeline) AddEffect(id ident.ID, assetID string) (ident.ID, bool) {
	it, ok := t.Item(id)
	if !ok {
		return ident.Invalid, false
	}
	typ, ok := t.registry.Type(assetID)
	if !ok {
		return ident.Invalid, false
	}
	if c, isClip := it.(*Clip); isClip && !c.State().Accepts(typ) {
		t.logger.Debug("clip %d in state %s refuses %s effect %s", id, c.State(), typ, assetID)
		return ident.Invalid, false
	}
	return it.Stack().AppendEffect(assetID, true)
}

// AdjustFade sets the fade-in (fromStart) or fade-out of an item to
// duration frames, creating the fades the clip's streams need.
func (t *Timeline) AdjustFade(id ident.ID, duration int, fromStart bool) bool {
	it, ok := t.Item(id)
	if !ok {
		return false
	}
	audio, video := false, true
	if c, isClip := it.(*Clip); isClip {
		st := c.State()
		audio, video = st.HasAudio(), st.HasVideo()
	}
	return it.Stack().AdjustFadeLength(duration, fromStart, audio, video)
}

// SetClipState changes which streams a clip plays.
func (t *Timeline) SetClipState(id ident.ID, state ClipState) bool {
	c, ok := t.Clip(id)
	if !ok {
		return false
	}
	old := c.State()
	if old == state {
		return true
	}
	seq := history.NewSequence()
	if err := seq.Do(t.router, SetState{Item: id, State: state}, SetState{Item: id, State: old}); err != nil {
		return false
	}
	t.history.Push("Change clip state", seq)
	return true
}

// RequestClipSpeed plays a clip at speed times its natural rate. The clip
// keeps its position and its source span is rescaled; the change is
// rejected when the retimed clip no longer fits on its track.
func (t *Timeline) RequestClipSpeed(id ident.ID, speed float64) bool {
	c, ok := t.Clip(id)
	if !ok || speed <= 0 || c.Endless() {
		return false
	}
	if sameSpeed(c.Speed(), speed) {
		return true
	}
	track, position := c.Track(), c.Position()
	seq := history.NewSequence()
	fail := func(err error) bool {
		if err != nil {
			t.logger.Debug("speed of %d to %g: %v", id, speed, err)
		}
		_ = seq.Undo(t.router)
		return false
	}
	if track.Valid() {
		if err := t.removeEdits(seq, c); err != nil {
			return fail(err)
		}
	}
	if !c.requestSpeed(speed, seq) {
		return fail(nil)
	}
	if track.Valid() {
		if err := t.insertEdits(seq, c, track, position); err != nil {
			return fail(err)
		}
	}
	t.history.Push("Change clip speed", seq)
	return true
}

// SetCompositionATrack sets the track a composition blends onto, as an
// index into Tracks. -1 clears it. A composition cannot blend onto its own
// track.
func (t *Timeline) SetCompositionATrack(id ident.ID, aTrack int) bool {
	c, ok := t.Composition(id)
	if !ok {
		return false
	}
	if aTrack < -1 || aTrack >= len(t.Tracks()) {
		return false
	}
	if aTrack >= 0 && aTrack == t.trackIndex(c.Track()) {
		return false
	}
	old := c.ATrack()
	if old == aTrack {
		return true
	}
	seq := history.NewSequence()
	if err := seq.Do(t.router, SetATrack{Item: id, ATrack: aTrack}, SetATrack{Item: id, ATrack: old}); err != nil {
		return false
	}
	t.history.Push("Change composition track", seq)
	return true
}

// SetCompositionForceTrack pins a composition to its a-track instead of
// the track below it.
func (t *Timeline) SetCompositionForceTrack(id ident.ID, force bool) bool {
	c, ok := t.Composition(id)
	if !ok {
		return false
	}
	old := c.Forced()
	if old == force {
		return true
	}
	seq := history.NewSequence()
	if err := seq.Do(t.router, ForceTrack{Item: id, Forced: force}, ForceTrack{Item: id, Forced: old}); err != nil {
		return false
	}
	t.history.Push("Change composition track", seq)
	return true
}

func (t *Timeline) trackIndex(id ident.ID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, tr := range t.tracks {
		if tr.id == id {
			return i
		}
	}
	return -1
}

// RequestClipCut splits a clip at the track frame position. The left part
// loses its fade-outs and the new right part its fade-ins.
func (t *Timeline) RequestClipCut(id ident.ID, position int) (ident.ID, bool) {
	c, ok := t.Clip(id)
	if !ok || !c.Track().Valid() {
		return ident.Invalid, false
	}
	offset := position - c.Position()
	if offset <= 0 || offset >= c.Playtime() {
		return ident.Invalid, false
	}
	track := c.Track()

	p := c.producer
	cut := media.NewProducer(p.Name(), p.Length())
	in, out := p.In()+offset, p.Out()
	if p.Endless() {
		cut = media.NewEndlessProducer(p.Name(), p.Length())
		in, out = 0, out-in
	}
	if err := cut.SetInOut(in, out); err != nil {
		return ident.Invalid, false
	}
	right := t.CreateClip(cut)
	right.state = c.State()
	right.speed = c.Speed()
	right.stack.ImportFromStack(c.stack)

	seq := history.NewSequence()
	ok = c.RequestResize(offset, true, seq, true) &&
		c.stack.CleanFadeEffects(true, seq) &&
		right.stack.CleanFadeEffects(false, seq)
	if ok {
		if err := t.insertEdits(seq, right, track, position); err != nil {
			t.logger.Warn("cut %d: %v", id, err)
			ok = false
		}
	}
	if !ok {
		_ = seq.Undo(t.router)
		t.discard(&right.base)
		return ident.Invalid, false
	}
	t.history.Push("Cut clip", seq)
	return right.id, true
}

// Undo reverts the last history entry.
func (t *Timeline) Undo() error {
	return t.history.Undo()
}

// Redo replays the last undone entry.
func (t *Timeline) Redo() error {
	return t.history.Redo()
}

// CheckConsistency verifies every track, that items and track entries
// agree, and every effect stack.
func (t *Timeline) CheckConsistency() error {
	for _, tr := range t.Tracks() {
		if err := tr.CheckConsistency(); err != nil {
			return err
		}
		for _, id := range tr.Items() {
			it, ok := t.Item(id)
			if !ok {
				return fmt.Errorf("track %d: %w: %d", tr.id, ErrUnknownItem, id)
			}
			pos, length, _ := tr.Footprint(id)
			if it.Track() != tr.id {
				return fmt.Errorf("item %d: on track %d but attached to %d", id, tr.id, it.Track())
			}
			if it.Position() != pos || it.Playtime() != length {
				return fmt.Errorf("item %d: at %d+%d but track has %d+%d", id, it.Position(), it.Playtime(), pos, length)
			}
		}
		if err := tr.stack.CheckConsistency(); err != nil {
			return fmt.Errorf("track %d: %w", tr.id, err)
		}
	}
	for _, id := range t.Items() {
		it, _ := t.Item(id)
		if tid := it.Track(); tid.Valid() {
			tr, ok := t.Track(tid)
			if !ok {
				return fmt.Errorf("item %d: %w: %d", id, ErrUnknownTrack, tid)
			}
			if _, _, ok := tr.Footprint(id); !ok {
				return fmt.Errorf("item %d: attached to track %d which does not list it", id, tid)
			}
		}
		if err := it.Stack().CheckConsistency(); err != nil {
			return fmt.Errorf("item %d: %w", id, err)
		}
	}
	return nil
}
