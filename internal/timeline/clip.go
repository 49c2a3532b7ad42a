package timeline

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Tilix4/kdenlive/internal/effects/asset"
	"github.com/Tilix4/kdenlive/internal/effects/stack"
	"github.com/Tilix4/kdenlive/internal/engine/history"
	"github.com/Tilix4/kdenlive/internal/media"
)

// ClipState selects which streams of a clip play.
type ClipState uint8

const (
	StateAudioVideo ClipState = iota
	StateVideoOnly
	StateAudioOnly
	StateDisabled
)

// String returns the state name.
func (s ClipState) String() string {
	switch s {
	case StateAudioVideo:
		return "audio+video"
	case StateVideoOnly:
		return "video"
	case StateAudioOnly:
		return "audio"
	case StateDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// HasAudio reports whether the state plays audio.
func (s ClipState) HasAudio() bool {
	return s == StateAudioVideo || s == StateAudioOnly
}

// HasVideo reports whether the state plays video.
func (s ClipState) HasVideo() bool {
	return s == StateAudioVideo || s == StateVideoOnly
}

// Accepts reports whether an effect of type t can be added in this state.
func (s ClipState) Accepts(t asset.Type) bool {
	switch s {
	case StateVideoOnly:
		return t != asset.Audio
	case StateAudioOnly:
		return t != asset.Video
	default:
		return true
	}
}

// Clip is a producer cut placed on a track.
type Clip struct {
	base
	state ClipState
	speed float64
}

var _ Item = (*Clip)(nil)

func newClip(tl *Timeline, p *media.Producer) *Clip {
	c := &Clip{speed: 1}
	var g geometry = trimGeometry{}
	if p.Endless() {
		g = anchoredGeometry{}
	}
	c.init(tl, p, g, stack.OwnerClip, c.applyLocked)
	return c
}

// Name returns the producer name.
func (c *Clip) Name() string {
	return c.producer.Name()
}

// Length returns the source length in frames.
func (c *Clip) Length() int {
	return c.producer.Length()
}

// State returns the clip state.
func (c *Clip) State() ClipState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Speed returns the playback rate, 1 being the natural rate.
func (c *Clip) Speed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

func sameSpeed(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// requestSpeed retimes the clip's source to speed. The played span is
// rescaled and the fades are moved onto it. The clip must be detached.
func (c *Clip) requestSpeed(speed float64, seq *history.Sequence) bool {
	c.lock()
	defer c.unlock()
	if c.track.Valid() || c.producer.Endless() || speed <= 0 {
		return false
	}
	prev := c.speed
	if sameSpeed(prev, speed) {
		return true
	}
	ratio := prev / speed
	length, in, out := c.producer.Length(), c.producer.In(), c.producer.Out()
	playtime := out - in + 1

	newLength := int(float64(length) * ratio)
	newIn := int(float64(in) * ratio)
	if newLength < 1 || newIn >= newLength {
		return false
	}
	duration := min(int(float64(playtime)*ratio), newLength-newIn)
	if duration < 1 {
		return false
	}

	local := history.NewSequence()
	err := local.Do(c.local,
		SetSpeed{Item: c.id, Speed: speed, Length: newLength, In: newIn, Out: newIn + duration - 1},
		SetSpeed{Item: c.id, Speed: prev, Length: length, In: in, Out: out})
	if err != nil {
		c.logger.Warn("speed: %v", err)
		return false
	}
	if !c.stack.AdjustStackLength(false, in, playtime, newIn, duration, local, true) {
		_ = local.Undo(c.local)
		c.pending = nil
		return false
	}
	if seq != nil {
		seq.Append(local)
	}
	return true
}

// RequestResize implements Item.
func (c *Clip) RequestResize(size int, fromRight bool, seq *history.Sequence, logUndo bool) bool {
	c.lock()
	defer c.unlock()
	return c.requestResize(size, fromRight, seq, logUndo)
}

// Apply interprets clip edits.
func (c *Clip) Apply(e history.Edit) error {
	c.lock()
	defer c.unlock()
	return c.applyLocked(e)
}

func (c *Clip) applyLocked(e history.Edit) error {
	if st, ok := e.(SetState); ok {
		c.state = st.State
		c.producer.Set("kdenlive:clipstate", st.State.String())
		return nil
	}
	if sp, ok := e.(SetSpeed); ok {
		if err := c.producer.Retime(sp.Length, sp.In, sp.Out); err != nil {
			return err
		}
		c.speed = sp.Speed
		c.producer.Set("warp_speed", strconv.FormatFloat(sp.Speed, 'g', -1, 64))
		c.touch(RoleSpeed, RoleInPoint, RoleOutPoint, RoleDuration)
		return nil
	}
	return c.base.applyLocked(e)
}
