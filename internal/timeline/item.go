package timeline

import (
	"sync"

	"github.com/Tilix4/kdenlive/internal/effects/stack"
	"github.com/Tilix4/kdenlive/internal/engine/history"
	"github.com/Tilix4/kdenlive/internal/engine/ident"
	"github.com/Tilix4/kdenlive/internal/event"
	"github.com/Tilix4/kdenlive/internal/logging"
	"github.com/Tilix4/kdenlive/internal/media"
)

// TopicItemChanged is published when an item's geometry changes.
const TopicItemChanged event.Topic = "timeline.item.changed"

// Role names a derived item field reported in change events.
type Role uint8

const (
	RoleStart Role = iota
	RoleDuration
	RoleInPoint
	RoleOutPoint
	RoleSpeed
	RoleATrack
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleStart:
		return "start"
	case RoleDuration:
		return "duration"
	case RoleInPoint:
		return "in"
	case RoleOutPoint:
		return "out"
	case RoleSpeed:
		return "speed"
	case RoleATrack:
		return "a_track"
	default:
		return "unknown"
	}
}

// ItemChange is the payload of TopicItemChanged.
type ItemChange struct {
	Item  ident.ID
	Roles []Role
}

// Item is a resizable timeline object.
type Item interface {
	ID() ident.ID
	Track() ident.ID
	Position() int
	In() int
	Out() int
	Playtime() int
	Endless() bool
	Stack() *stack.Stack

	// RequestResize changes the playtime to size frames, trimming from the
	// right or left edge. Edits are appended to seq. It returns false and
	// changes nothing when the resize is rejected.
	RequestResize(size int, fromRight bool, seq *history.Sequence, logUndo bool) bool

	Apply(e history.Edit) error
}

// geometry computes the source span an item takes after a resize.
type geometry interface {
	span(in, out, size int, fromRight bool) (newIn, newOut int)
}

// trimGeometry moves the edge being dragged in source time.
type trimGeometry struct{}

func (trimGeometry) span(in, out, size int, fromRight bool) (int, int) {
	if fromRight {
		return in, in + size - 1
	}
	return out - size + 1, out
}

// anchoredGeometry keeps the source span starting at frame 0. Endless
// media has no source position worth preserving.
type anchoredGeometry struct{}

func (anchoredGeometry) span(_, _, size int, _ bool) (int, int) {
	return 0, size - 1
}

// base holds the state and resize protocol shared by clips and compositions.
type base struct {
	mu sync.RWMutex

	id       ident.ID
	tl       *Timeline
	producer *media.Producer
	geometry geometry
	track    ident.ID
	position int
	stack    *stack.Stack
	logger   *logging.Logger

	// local applies edits while mu is held; others go to the router.
	local history.Applier

	pending []Role
	release func()
}

func (b *base) init(tl *Timeline, p *media.Producer, g geometry, kind stack.OwnerKind, own func(history.Edit) error) {
	b.id = ident.Next()
	b.tl = tl
	b.producer = p
	b.geometry = g
	b.track = ident.Invalid
	b.logger = tl.logger.WithComponent(kind.String()).With("item", b.id)
	b.local = history.ApplierFunc(func(e history.Edit) error {
		if e.Target() == b.id {
			return own(e)
		}
		return tl.router.Apply(e)
	})
	b.stack = stack.New(stack.Owner{Kind: kind, ID: b.id}, media.NewHandle(p), tl.registry, tl.router,
		stack.WithHistory(tl.history), stack.WithBus(tl.bus), stack.WithLogger(tl.logger))
}

// ID returns the item id.
func (b *base) ID() ident.ID {
	return b.id
}

// Track returns the track id, or Invalid when detached.
func (b *base) Track() ident.ID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.track
}

// Position returns the first track frame.
func (b *base) Position() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.position
}

// In returns the first source frame.
func (b *base) In() int {
	return b.producer.In()
}

// Out returns the last source frame.
func (b *base) Out() int {
	return b.producer.Out()
}

// Playtime returns the number of frames played.
func (b *base) Playtime() int {
	return b.producer.Playtime()
}

// Endless reports whether the underlying media has no length limit.
func (b *base) Endless() bool {
	return b.producer.Endless()
}

// Stack returns the item's effect stack.
func (b *base) Stack() *stack.Stack {
	return b.stack
}

// Service returns a handle to the item's media service.
func (b *base) Service() media.Handle {
	return media.NewHandle(b.producer)
}

func (b *base) touch(roles ...Role) {
	for _, r := range roles {
		found := false
		for _, p := range b.pending {
			if p == r {
				found = true
				break
			}
		}
		if !found {
			b.pending = append(b.pending, r)
		}
	}
}

// lock takes the write lock. Stack events raised until unlock are held
// back so that their subscribers can read the item.
func (b *base) lock() {
	release := b.stack.Hold()
	b.mu.Lock()
	b.release = release
}

// unlock releases the write lock, then publishes the pending roles and the
// held stack events.
func (b *base) unlock() {
	roles, release := b.pending, b.release
	b.pending, b.release = nil, nil
	b.mu.Unlock()
	if release != nil {
		defer release()
	}
	if len(roles) == 0 || b.tl.bus == nil {
		return
	}
	change := ItemChange{Item: b.id, Roles: roles}
	if err := b.tl.bus.Publish(event.New(TopicItemChanged, change, "timeline")); err != nil {
		b.logger.Warn("publish: %v", err)
	}
}

// applyLocked interprets the edits common to every item.
func (b *base) applyLocked(e history.Edit) error {
	switch e := e.(type) {
	case Resize:
		in, out := b.producer.In(), b.producer.Out()
		if err := b.producer.SetInOut(e.In, e.Out); err != nil {
			return err
		}
		if b.position != e.Position {
			b.touch(RoleStart)
		}
		if e.In != in {
			b.touch(RoleInPoint)
		}
		if e.Out != out {
			b.touch(RoleOutPoint)
		}
		if e.Out-e.In != out-in {
			b.touch(RoleDuration)
		}
		b.position = e.Position
		return nil
	case Attach:
		b.track = e.Track
		if b.position != e.Position {
			b.touch(RoleStart)
		}
		b.position = e.Position
		return nil
	default:
		return history.UnknownEdit(e)
	}
}

// requestResize runs the resize protocol with mu held. On success the
// track edit, the item edit and the fade edits are in seq, in that order.
func (b *base) requestResize(size int, fromRight bool, seq *history.Sequence, logUndo bool) bool {
	if size <= 0 {
		return false
	}
	endless := b.producer.Endless()
	length := b.producer.Length()
	if !endless && size > length {
		return false
	}
	in, out := b.producer.In(), b.producer.Out()
	cur := out - in + 1
	delta := cur - size
	if delta == 0 {
		return true
	}
	if !endless {
		if !fromRight && in+delta < 0 {
			return false
		}
		if fromRight && out-delta >= length {
			return false
		}
	}
	newIn, newOut := b.geometry.span(in, out, size, fromRight)
	position := b.position
	if !fromRight {
		position += delta
	}
	if position < 0 {
		return false
	}

	local := history.NewSequence()
	rollback := func() bool {
		_ = local.Undo(b.local)
		b.pending = nil
		return false
	}
	if b.track.Valid() {
		tr, ok := b.tl.Track(b.track)
		if !ok {
			return false
		}
		redo, undo, err := tr.ResizeEdits(b.id, newIn, newOut, fromRight)
		if err != nil {
			b.logger.Debug("resize rejected by track: %v", err)
			return false
		}
		if err := local.Do(b.local, redo, undo); err != nil {
			return false
		}
	}
	err := local.Do(b.local,
		Resize{Item: b.id, Position: position, In: newIn, Out: newOut},
		Resize{Item: b.id, Position: b.position, In: in, Out: out})
	if err != nil {
		b.logger.Warn("resize: %v", err)
		return rollback()
	}
	if logUndo && !b.stack.AdjustStackLength(fromRight, in, cur, newIn, size, local, true) {
		return rollback()
	}

	b.pending = nil
	if fromRight {
		b.touch(RoleDuration, RoleOutPoint)
	} else {
		b.touch(RoleDuration, RoleStart, RoleInPoint)
	}
	if seq != nil {
		seq.Append(local)
	}
	return true
}
