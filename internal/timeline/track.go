package timeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Tilix4/kdenlive/internal/effects/stack"
	"github.com/Tilix4/kdenlive/internal/engine/history"
	"github.com/Tilix4/kdenlive/internal/engine/ident"
	"github.com/Tilix4/kdenlive/internal/media"
)

// Track errors.
var (
	ErrOverlap          = errors.New("item overlaps a neighbour")
	ErrNegativePosition = errors.New("position before track start")
	ErrNotOnTrack       = errors.New("item not on track")
	ErrAlreadyOnTrack   = errors.New("item already on track")
	ErrBadLength        = errors.New("length must be positive")
)

// TrackKind tags a track as carrying audio or video.
type TrackKind uint8

const (
	VideoTrack TrackKind = iota
	AudioTrack
)

// String returns the track kind name.
func (k TrackKind) String() string {
	if k == AudioTrack {
		return "audio"
	}
	return "video"
}

// entry is one item's footprint on a track, in track frames.
type entry struct {
	item     ident.ID
	position int
	length   int
}

func (e entry) end() int {
	return e.position + e.length
}

// Track is an ordered, non-overlapping sequence of items.
// It is safe for concurrent use.
type Track struct {
	mu sync.RWMutex

	id      ident.ID
	name    string
	kind    TrackKind
	entries []entry

	producer *media.Producer
	stack    *stack.Stack
}

func newTrack(kind TrackKind, name string) *Track {
	return &Track{
		id:       ident.Next(),
		name:     name,
		kind:     kind,
		producer: media.NewEndlessProducer(name, 1),
	}
}

// ID returns the track id.
func (t *Track) ID() ident.ID {
	return t.id
}

// Name returns the track name.
func (t *Track) Name() string {
	return t.name
}

// Kind returns the track kind.
func (t *Track) Kind() TrackKind {
	return t.kind
}

// Stack returns the track effect stack.
func (t *Track) Stack() *stack.Stack {
	return t.stack
}

// Len returns the number of items on the track.
func (t *Track) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Items returns the item ids in position order.
func (t *Track) Items() []ident.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]ident.ID, len(t.entries))
	for i, e := range t.entries {
		ids[i] = e.item
	}
	return ids
}

// Footprint returns the position and length of item on the track.
func (t *Track) Footprint(item ident.ID) (position, length int, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := t.find(item)
	if i < 0 {
		return 0, 0, false
	}
	return t.entries[i].position, t.entries[i].length, true
}

// ItemAt returns the item covering frame.
func (t *Track) ItemAt(frame int) (ident.ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if frame >= e.position && frame < e.end() {
			return e.item, true
		}
	}
	return ident.Invalid, false
}

func (t *Track) find(item ident.ID) int {
	for i, e := range t.entries {
		if e.item == item {
			return i
		}
	}
	return -1
}

// fits reports whether [position, position+length) is free, ignoring skip.
func (t *Track) fits(skip ident.ID, position, length int) error {
	if length <= 0 {
		return fmt.Errorf("%w: %d", ErrBadLength, length)
	}
	if position < 0 {
		return fmt.Errorf("%w: %d", ErrNegativePosition, position)
	}
	for _, e := range t.entries {
		if e.item == skip {
			continue
		}
		if position < e.end() && e.position < position+length {
			return fmt.Errorf("%w: %d at [%d, %d)", ErrOverlap, e.item, e.position, e.end())
		}
	}
	return nil
}

// ResizeEdits builds the structural edit pair for resizing item to the
// source span [newIn, newOut]. From the right the position is kept;
// from the left the item's end stays put.
func (t *Track) ResizeEdits(item ident.ID, newIn, newOut int, fromRight bool) (TrackResize, TrackResize, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i := t.find(item)
	if i < 0 {
		return TrackResize{}, TrackResize{}, fmt.Errorf("%w: %d", ErrNotOnTrack, item)
	}
	cur := t.entries[i]
	length := newOut - newIn + 1
	position := cur.position
	if !fromRight {
		position = cur.end() - length
	}
	if err := t.fits(item, position, length); err != nil {
		return TrackResize{}, TrackResize{}, err
	}
	redo := TrackResize{Track: t.id, Item: item, Position: position, Length: length}
	undo := TrackResize{Track: t.id, Item: item, Position: cur.position, Length: cur.length}
	return redo, undo, nil
}

// InsertEdits builds the edit pair placing item at position.
func (t *Track) InsertEdits(item ident.ID, position, length int) (TrackInsert, TrackRemove, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.find(item) >= 0 {
		return TrackInsert{}, TrackRemove{}, fmt.Errorf("%w: %d", ErrAlreadyOnTrack, item)
	}
	if err := t.fits(item, position, length); err != nil {
		return TrackInsert{}, TrackRemove{}, err
	}
	return TrackInsert{Track: t.id, Item: item, Position: position, Length: length},
		TrackRemove{Track: t.id, Item: item}, nil
}

// RemoveEdits builds the edit pair taking item off the track.
func (t *Track) RemoveEdits(item ident.ID) (TrackRemove, TrackInsert, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := t.find(item)
	if i < 0 {
		return TrackRemove{}, TrackInsert{}, fmt.Errorf("%w: %d", ErrNotOnTrack, item)
	}
	e := t.entries[i]
	return TrackRemove{Track: t.id, Item: item},
		TrackInsert{Track: t.id, Item: item, Position: e.position, Length: e.length}, nil
}

// Apply interprets track edits.
func (t *Track) Apply(e history.Edit) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := e.(type) {
	case TrackResize:
		i := t.find(e.Item)
		if i < 0 {
			return fmt.Errorf("%w: %d", ErrNotOnTrack, e.Item)
		}
		if err := t.fits(e.Item, e.Position, e.Length); err != nil {
			return err
		}
		t.entries[i].position = e.Position
		t.entries[i].length = e.Length
	case TrackInsert:
		if t.find(e.Item) >= 0 {
			return fmt.Errorf("%w: %d", ErrAlreadyOnTrack, e.Item)
		}
		if err := t.fits(e.Item, e.Position, e.Length); err != nil {
			return err
		}
		t.entries = append(t.entries, entry{item: e.Item, position: e.Position, length: e.Length})
	case TrackRemove:
		i := t.find(e.Item)
		if i < 0 {
			return fmt.Errorf("%w: %d", ErrNotOnTrack, e.Item)
		}
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
		return nil
	default:
		return history.UnknownEdit(e)
	}
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].position < t.entries[j].position })
	return nil
}

// CheckConsistency verifies the entries are ordered and do not overlap.
func (t *Track) CheckConsistency() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[ident.ID]bool, len(t.entries))
	for i, e := range t.entries {
		if seen[e.item] {
			return fmt.Errorf("track %d: item %d listed twice", t.id, e.item)
		}
		seen[e.item] = true
		if e.length <= 0 || e.position < 0 {
			return fmt.Errorf("track %d: item %d has footprint %d+%d", t.id, e.item, e.position, e.length)
		}
		if i > 0 && t.entries[i-1].end() > e.position {
			return fmt.Errorf("track %d: %d overlaps %d", t.id, t.entries[i-1].item, e.item)
		}
	}
	return nil
}
