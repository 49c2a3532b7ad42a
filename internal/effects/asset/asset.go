// Package asset provides the effect definition registry: for each asset id it
// knows a display name, a type tag and the default parameters a new filter
// starts from.
package asset

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Tilix4/kdenlive/internal/media"
)

// Errors returned by the registry.
var (
	ErrUnknownAsset = errors.New("unknown asset")
)

// Type tags an asset as processing audio or video.
type Type string

const (
	Audio Type = "audio"
	Video Type = "video"
)

// Asset ids recognized as fades.
const (
	FadeIn        = "fadein"
	FadeOut       = "fadeout"
	FadeFromBlack = "fade_from_black"
	FadeToBlack   = "fade_to_black"
)

// IsFadeIn reports whether id is a fade-in asset.
func IsFadeIn(id string) bool {
	return id == FadeIn || id == FadeFromBlack
}

// IsFadeOut reports whether id is a fade-out asset.
func IsFadeOut(id string) bool {
	return id == FadeOut || id == FadeToBlack
}

// Definition describes one effect asset.
type Definition struct {
	ID   string `toml:"id" yaml:"id"`
	Name string `toml:"name" yaml:"name"`
	Type Type   `toml:"type" yaml:"type"`

	// Params are the default parameters, in order.
	Params []media.Param `toml:"param" yaml:"params"`

	// Replug marks assets the media engine cannot reconfigure in place.
	// Changing a parameter rebuilds the filter and replants the chain below it.
	Replug bool `toml:"replug" yaml:"replug"`

	// Keyframes marks assets whose parameters are animated.
	Keyframes bool `toml:"keyframes" yaml:"keyframes"`
}

// Validate checks the definition fields.
func (d Definition) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Type, validation.Required, validation.In(Audio, Video)),
	)
}

// Registry holds asset definitions keyed by id.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds or replaces a definition.
func (r *Registry) Register(d Definition) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("asset %q: %w", d.ID, err)
	}
	params := make([]media.Param, len(d.Params))
	copy(params, d.Params)
	d.Params = params

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[d.ID] = d
	return nil
}

// Get returns the definition for id.
func (r *Registry) Get(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[id]
	return d, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// Name returns the display name of id, or id itself when unknown.
func (r *Registry) Name(id string) string {
	if d, ok := r.Get(id); ok {
		return d.Name
	}
	return id
}

// Type returns the type tag of id.
func (r *Registry) Type(id string) (Type, bool) {
	d, ok := r.Get(id)
	return d.Type, ok
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// NewFilter builds a detached filter for id carrying the default parameters.
func (r *Registry) NewFilter(id string) (*media.Filter, error) {
	d, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}
	return media.NewFilter(d.ID, d.Params), nil
}

// Builtin returns a registry seeded with the fades and a few common effects.
func Builtin() *Registry {
	r := NewRegistry()
	for _, d := range builtinDefinitions {
		_ = r.Register(d)
	}
	return r
}

var builtinDefinitions = []Definition{
	{ID: FadeIn, Name: "Fade in", Type: Audio, Params: []media.Param{{Name: "gain", Value: "0"}, {Name: "end", Value: "1"}}},
	{ID: FadeOut, Name: "Fade out", Type: Audio, Params: []media.Param{{Name: "gain", Value: "1"}, {Name: "end", Value: "0"}}},
	{ID: FadeFromBlack, Name: "Fade from black", Type: Video, Params: []media.Param{{Name: "alpha", Value: "0"}}},
	{ID: FadeToBlack, Name: "Fade to black", Type: Video, Params: []media.Param{{Name: "alpha", Value: "1"}}},
	{ID: "volume", Name: "Volume", Type: Audio, Keyframes: true, Params: []media.Param{{Name: "level", Value: "0"}}},
	{ID: "brightness", Name: "Brightness", Type: Video, Keyframes: true, Params: []media.Param{{Name: "level", Value: "1"}}},
	{ID: "sox", Name: "SoX effect", Type: Audio, Replug: true, Params: []media.Param{{Name: "effect", Value: "gain 0"}}},
	{ID: "affine", Name: "Transform", Type: Video, Keyframes: true, Params: []media.Param{{Name: "rect", Value: "0 0 100% 100%"}}},
}
