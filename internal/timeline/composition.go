package timeline

import (
	"strconv"

	"github.com/Tilix4/kdenlive/internal/effects/keyframe"
	"github.com/Tilix4/kdenlive/internal/effects/stack"
	"github.com/Tilix4/kdenlive/internal/engine/history"
	"github.com/Tilix4/kdenlive/internal/media"
)

// Composition blends tracks over a span. Its source always starts at frame
// 0, so only the position and duration move.
type Composition struct {
	base
	asset     string
	keyframes *keyframe.Model
	aTrack    int
	forced    bool
}

var _ Item = (*Composition)(nil)

func newComposition(tl *Timeline, assetID string, duration int) *Composition {
	c := &Composition{asset: assetID, keyframes: keyframe.New(), aTrack: -1}
	c.init(tl, media.NewEndlessProducer(assetID, duration), anchoredGeometry{}, stack.OwnerComposition, c.applyLocked)
	tl.router.Register(c.keyframes.ID(), c.keyframes)
	return c
}

// Asset returns the composition asset id.
func (c *Composition) Asset() string {
	return c.asset
}

// Duration returns the composition length in frames.
func (c *Composition) Duration() int {
	return c.Playtime()
}

// Keyframes returns the composition animation.
func (c *Composition) Keyframes() *keyframe.Model {
	return c.keyframes
}

// ATrack returns the index of the track blended onto, or -1.
func (c *Composition) ATrack() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.aTrack < 0 {
		return -1
	}
	return c.producer.GetInt("a_track")
}

// Forced reports whether the composition is pinned to its a-track.
func (c *Composition) Forced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.forced
}

// ForcedTrack returns the a-track when the composition is pinned to it,
// or -1.
func (c *Composition) ForcedTrack() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.forced || c.aTrack < 0 {
		return -1
	}
	return c.aTrack
}

// RequestResize implements Item. Keyframes are remapped onto the new
// duration after the structural edits.
func (c *Composition) RequestResize(size int, fromRight bool, seq *history.Sequence, logUndo bool) bool {
	c.lock()
	defer c.unlock()

	oldLen := c.producer.Playtime()
	local := history.NewSequence()
	if !c.requestResize(size, fromRight, local, logUndo) {
		return false
	}
	if !local.Empty() {
		c.keyframes.Resize(0, oldLen-1, 0, size-1, local)
	}
	if seq != nil {
		seq.Append(local)
	}
	return true
}

// Apply interprets composition edits.
func (c *Composition) Apply(e history.Edit) error {
	c.lock()
	defer c.unlock()
	return c.applyLocked(e)
}

func (c *Composition) applyLocked(e history.Edit) error {
	switch e := e.(type) {
	case SetATrack:
		c.aTrack = e.ATrack
		if e.ATrack >= 0 {
			c.producer.Set("a_track", strconv.Itoa(e.ATrack))
		}
		c.touch(RoleATrack)
		return nil
	case ForceTrack:
		c.forced = e.Forced
		force := "0"
		if e.Forced {
			force = "1"
		}
		c.producer.Set("force_track", force)
		c.touch(RoleATrack)
		return nil
	default:
		return c.base.applyLocked(e)
	}
}
