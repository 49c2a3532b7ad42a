package stack

import (
	"fmt"

	"github.com/Tilix4/kdenlive/internal/effects/keyframe"
	"github.com/Tilix4/kdenlive/internal/engine/ident"
	"github.com/Tilix4/kdenlive/internal/media"
)

// Span is a filter span in source frames.
type Span struct {
	In  int `yaml:"in"`
	Out int `yaml:"out"`
}

// Len returns Out - In.
func (s Span) Len() int {
	return s.Out - s.In
}

func cloneSpan(s *Span) *Span {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func sameSpan(a, b *Span) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// LeafState is a full snapshot of a node and its subtree, enough to recreate
// it under the same ids.
type LeafState struct {
	ID      ident.ID      `yaml:"id"`
	Group   bool          `yaml:"group,omitempty"`
	Name    string        `yaml:"name,omitempty"`
	Asset   string        `yaml:"asset,omitempty"`
	Params  []media.Param `yaml:"params,omitempty"`
	In      int           `yaml:"in"`
	Out     int           `yaml:"out"`
	Enabled bool          `yaml:"enabled"`

	// Keyframes is the id of the keyframe model, or Invalid when the asset is
	// not animated.
	Keyframes ident.ID            `yaml:"keyframes,omitempty"`
	Frames    []keyframe.Keyframe `yaml:"frames,omitempty"`

	// FadeRef is the span a shortened fade returns to.
	FadeRef *Span `yaml:"fade_ref,omitempty"`

	Children []LeafState `yaml:"children,omitempty"`
}

// AddLeaf inserts a node (and its subtree) under Parent at Row and plants
// its filters. Row -1 appends.
type AddLeaf struct {
	Stack  ident.ID  `yaml:"stack"`
	Parent ident.ID  `yaml:"parent"`
	Row    int       `yaml:"row"`
	State  LeafState `yaml:"state"`
}

func (e AddLeaf) Target() ident.ID { return e.Stack }
func (e AddLeaf) Kind() string     { return "stack.add_leaf" }
func (e AddLeaf) Describe() string {
	return fmt.Sprintf("add %s %d to stack %d", e.State.Asset, e.State.ID, e.Stack)
}

// RemoveLeaf unplants and removes a node with its subtree.
type RemoveLeaf struct {
	Stack ident.ID `yaml:"stack"`
	Leaf  ident.ID `yaml:"leaf"`
}

func (e RemoveLeaf) Target() ident.ID { return e.Stack }
func (e RemoveLeaf) Kind() string     { return "stack.remove_leaf" }
func (e RemoveLeaf) Describe() string {
	return fmt.Sprintf("remove %d from stack %d", e.Leaf, e.Stack)
}

// MoveLeaf changes the row of a node within its parent.
type MoveLeaf struct {
	Stack ident.ID `yaml:"stack"`
	Leaf  ident.ID `yaml:"leaf"`
	Row   int      `yaml:"row"`
}

func (e MoveLeaf) Target() ident.ID { return e.Stack }
func (e MoveLeaf) Kind() string     { return "stack.move_leaf" }
func (e MoveLeaf) Describe() string {
	return fmt.Sprintf("move %d to row %d in stack %d", e.Leaf, e.Row, e.Stack)
}

// Reparent moves a node under another parent.
type Reparent struct {
	Stack  ident.ID `yaml:"stack"`
	Leaf   ident.ID `yaml:"leaf"`
	Parent ident.ID `yaml:"parent"`
	Row    int      `yaml:"row"`
}

func (e Reparent) Target() ident.ID { return e.Stack }
func (e Reparent) Kind() string     { return "stack.reparent" }
func (e Reparent) Describe() string {
	return fmt.Sprintf("reparent %d under %d in stack %d", e.Leaf, e.Parent, e.Stack)
}

// FadeSpan sets a leaf's span and its fade reference. Both are always set
// exactly, so the inverse is the previous pair.
type FadeSpan struct {
	Stack ident.ID `yaml:"stack"`
	Leaf  ident.ID `yaml:"leaf"`
	In    int      `yaml:"in"`
	Out   int      `yaml:"out"`
	Ref   *Span    `yaml:"ref,omitempty"`
}

func (e FadeSpan) Target() ident.ID { return e.Stack }
func (e FadeSpan) Kind() string     { return "stack.fade_span" }
func (e FadeSpan) Describe() string {
	return fmt.Sprintf("span %d to [%d, %d] in stack %d", e.Leaf, e.In, e.Out, e.Stack)
}

// ActiveEffect stores the active effect row on the service.
type ActiveEffect struct {
	Stack ident.ID `yaml:"stack"`
	Index int      `yaml:"index"`
}

func (e ActiveEffect) Target() ident.ID { return e.Stack }
func (e ActiveEffect) Kind() string     { return "stack.active_effect" }
func (e ActiveEffect) Describe() string {
	return fmt.Sprintf("activate row %d in stack %d", e.Index, e.Stack)
}

// SetParam sets or clears one filter parameter.
type SetParam struct {
	Stack ident.ID `yaml:"stack"`
	Leaf  ident.ID `yaml:"leaf"`
	Name  string   `yaml:"name"`
	Value string   `yaml:"value"`
	Unset bool     `yaml:"unset,omitempty"`
}

func (e SetParam) Target() ident.ID { return e.Stack }
func (e SetParam) Kind() string     { return "stack.set_param" }
func (e SetParam) Describe() string {
	return fmt.Sprintf("set %s=%q on %d in stack %d", e.Name, e.Value, e.Leaf, e.Stack)
}

// LeafEnabled toggles a single effect.
type LeafEnabled struct {
	Stack   ident.ID `yaml:"stack"`
	Leaf    ident.ID `yaml:"leaf"`
	Enabled bool     `yaml:"enabled"`
}

func (e LeafEnabled) Target() ident.ID { return e.Stack }
func (e LeafEnabled) Kind() string     { return "stack.leaf_enabled" }
func (e LeafEnabled) Describe() string {
	return fmt.Sprintf("enable=%v %d in stack %d", e.Enabled, e.Leaf, e.Stack)
}
