// Package keyframe stores animated parameter values as sorted (frame, value)
// pairs and remaps them when the owning item changes length.
package keyframe

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Tilix4/kdenlive/internal/engine/history"
	"github.com/Tilix4/kdenlive/internal/engine/ident"
)

// Keyframe is a value pinned to a frame.
type Keyframe struct {
	Frame int     `yaml:"frame"`
	Value float64 `yaml:"value"`
}

// SetFrames replaces the whole keyframe list of a model.
type SetFrames struct {
	Model  ident.ID   `yaml:"model"`
	Frames []Keyframe `yaml:"frames"`
}

func (e SetFrames) Target() ident.ID { return e.Model }
func (e SetFrames) Kind() string     { return "keyframe.set_frames" }
func (e SetFrames) Describe() string {
	return fmt.Sprintf("set %d keyframes on %d", len(e.Frames), e.Model)
}

// Model is a keyframe list for one animated parameter set.
type Model struct {
	mu     sync.RWMutex
	id     ident.ID
	frames []Keyframe
}

// New creates an empty model with a fresh id.
func New() *Model {
	return &Model{id: ident.Next()}
}

// Restore recreates a model under a known id, for undo of a removal.
func Restore(id ident.ID, frames []Keyframe) *Model {
	m := &Model{id: id, frames: clone(frames)}
	sort.Slice(m.frames, func(i, j int) bool { return m.frames[i].Frame < m.frames[j].Frame })
	return m
}

// ID returns the model id used to address edits.
func (m *Model) ID() ident.ID {
	return m.id
}

// Len returns the number of keyframes.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.frames)
}

// Frames returns a copy of the keyframes in frame order.
func (m *Model) Frames() []Keyframe {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.frames)
}

// Add inserts a keyframe, replacing any keyframe already at frame.
func (m *Model) Add(frame int, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.frames), func(i int) bool { return m.frames[i].Frame >= frame })
	if i < len(m.frames) && m.frames[i].Frame == frame {
		m.frames[i].Value = value
		return
	}
	m.frames = append(m.frames, Keyframe{})
	copy(m.frames[i+1:], m.frames[i:])
	m.frames[i] = Keyframe{Frame: frame, Value: value}
}

// Remove deletes the keyframe at frame.
func (m *Model) Remove(frame int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, k := range m.frames {
		if k.Frame == frame {
			m.frames = append(m.frames[:i], m.frames[i+1:]...)
			return true
		}
	}
	return false
}

// ValueAt interpolates linearly between the surrounding keyframes.
// Frames outside the keyframed range hold the nearest value.
func (m *Model) ValueAt(frame int) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.frames) == 0 {
		return 0
	}
	i := sort.Search(len(m.frames), func(i int) bool { return m.frames[i].Frame >= frame })
	switch {
	case i == 0:
		return m.frames[0].Value
	case i == len(m.frames):
		return m.frames[len(m.frames)-1].Value
	}
	next := m.frames[i]
	if next.Frame == frame {
		return next.Value
	}
	prev := m.frames[i-1]
	t := float64(frame-prev.Frame) / float64(next.Frame-prev.Frame)
	return prev.Value + t*(next.Value-prev.Value)
}

// Resize maps keyframes from [oldStart, oldEnd] onto [newStart, newEnd]
// proportionally. The change is applied immediately and its (redo, undo) pair
// pushed onto seq. It returns false when nothing moved.
func (m *Model) Resize(oldStart, oldEnd, newStart, newEnd int, seq *history.Sequence) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return false
	}

	remapped := remap(m.frames, oldStart, oldEnd, newStart, newEnd)
	if equal(remapped, m.frames) {
		return false
	}
	old := clone(m.frames)
	m.frames = remapped
	seq.Push(SetFrames{Model: m.id, Frames: clone(remapped)}, SetFrames{Model: m.id, Frames: old})
	return true
}

// Apply interprets keyframe edits.
func (m *Model) Apply(e history.Edit) error {
	switch e := e.(type) {
	case SetFrames:
		m.mu.Lock()
		m.frames = clone(e.Frames)
		m.mu.Unlock()
		return nil
	default:
		return history.UnknownEdit(e)
	}
}

// Parse reads an animation property of the form "0=1;50=0.5". A frame may
// carry an interpolation mark ("10|=1", "10~=1"), which is dropped. It
// reports false when s is a plain value.
func Parse(s string) ([]Keyframe, bool) {
	if !strings.Contains(s, "=") {
		return nil, false
	}
	var frames []Keyframe
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, false
		}
		frame, err := strconv.Atoi(strings.TrimRight(strings.TrimSpace(key), "|~"))
		if err != nil {
			return nil, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, false
		}
		frames = append(frames, Keyframe{Frame: frame, Value: v})
	}
	if len(frames) == 0 {
		return nil, false
	}
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].Frame < frames[j].Frame })
	return frames, true
}

func remap(frames []Keyframe, oldStart, oldEnd, newStart, newEnd int) []Keyframe {
	out := make([]Keyframe, 0, len(frames))
	oldLen := oldEnd - oldStart
	newLen := newEnd - newStart
	for _, k := range frames {
		var f int
		if oldLen == 0 {
			f = newStart + (k.Frame - oldStart)
		} else {
			f = newStart + int(math.Round(float64(k.Frame-oldStart)*float64(newLen)/float64(oldLen)))
		}
		// Frames that collapse onto the same position keep the later value.
		if n := len(out); n > 0 && out[n-1].Frame >= f {
			out[n-1].Value = k.Value
			continue
		}
		out = append(out, Keyframe{Frame: f, Value: k.Value})
	}
	return out
}

func clone(frames []Keyframe) []Keyframe {
	out := make([]Keyframe, len(frames))
	copy(out, frames)
	return out
}

func equal(a, b []Keyframe) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
