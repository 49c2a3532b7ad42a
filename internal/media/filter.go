package media

import (
	"strconv"
	"sync"
)

// Param is one named filter parameter.
type Param struct {
	Name  string `toml:"name" yaml:"name"`
	Value string `toml:"value" yaml:"value"`
}

// Filter is an attachable effect slot.
type Filter struct {
	mu sync.RWMutex

	asset  string
	params []Param
	in     int
	out    int

	attached bool
}

// NewFilter creates a detached filter for asset with the given parameters.
func NewFilter(asset string, params []Param) *Filter {
	p := make([]Param, len(params))
	copy(p, params)
	return &Filter{asset: asset, params: p}
}

// Asset returns the asset id the filter was built from.
func (f *Filter) Asset() string {
	return f.asset
}

// Get returns the value of a parameter.
func (f *Filter) Get(name string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range f.params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// GetInt returns a parameter parsed as an integer, or 0.
func (f *Filter) GetInt(name string) int {
	v, ok := f.Get(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// Set changes a parameter, appending it if it does not exist yet.
func (f *Filter) Set(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.params {
		if f.params[i].Name == name {
			f.params[i].Value = value
			return
		}
	}
	f.params = append(f.params, Param{Name: name, Value: value})
}

// Unset removes a parameter.
func (f *Filter) Unset(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.params {
		if f.params[i].Name == name {
			f.params = append(f.params[:i], f.params[i+1:]...)
			return
		}
	}
}

// Params returns a copy of the parameters in order.
func (f *Filter) Params() []Param {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Param, len(f.params))
	copy(out, f.params)
	return out
}

// In returns the filter's first frame in source time.
func (f *Filter) In() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.in
}

// Out returns the filter's last frame in source time.
func (f *Filter) Out() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.out
}

// SetInOut sets the filter's span.
func (f *Filter) SetInOut(in, out int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.in = in
	f.out = out
}

// Attached reports whether the filter is currently attached to a service.
func (f *Filter) Attached() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.attached
}

func (f *Filter) setAttached(v bool) {
	f.mu.Lock()
	f.attached = v
	f.mu.Unlock()
}

// Clone returns a detached copy with the same asset, parameters and span.
func (f *Filter) Clone() *Filter {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c := NewFilter(f.asset, f.params)
	c.in = f.in
	c.out = f.out
	return c
}
