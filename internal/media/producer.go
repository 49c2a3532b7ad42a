package media

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// Errors returned by services.
var (
	ErrClosed            = errors.New("service closed")
	ErrFilterAttached    = errors.New("filter already attached")
	ErrFilterNotAttached = errors.New("filter not attached to this service")
	ErrPosition          = errors.New("attach position out of range")
	ErrBounds            = errors.New("in/out outside media bounds")
)

// Service is an attachment point in the media graph.
type Service interface {
	Attach(f *Filter, pos int) error
	Detach(f *Filter) error
	FilterCount() int
	FilterAt(i int) *Filter

	Set(key, value string)
	Get(key string) (string, bool)
	GetInt(key string) int

	In() int
	Out() int
	Playtime() int
	Length() int
	SetInOut(in, out int) error
}

// Producer is an in-memory Service backed by a fixed length source.
type Producer struct {
	mu sync.RWMutex

	name    string
	length  int
	endless bool
	in      int
	out     int
	props   map[string]string
	filters []*Filter
	closed  bool
}

// NewProducer creates a producer of length frames spanning its whole source.
func NewProducer(name string, length int) *Producer {
	return &Producer{
		name:   name,
		length: length,
		in:     0,
		out:    length - 1,
		props:  make(map[string]string),
	}
}

// NewEndlessProducer creates a producer without an intrinsic length, such as
// a generated color field. length is the initial playtime.
func NewEndlessProducer(name string, length int) *Producer {
	p := NewProducer(name, length)
	p.endless = true
	return p
}

// Name returns the producer name.
func (p *Producer) Name() string {
	return p.name
}

// Endless reports whether the producer has no upper length bound.
func (p *Producer) Endless() bool {
	return p.endless
}

// Close tears the producer down. Handles stop resolving afterwards.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for _, f := range p.filters {
		f.setAttached(false)
	}
	p.filters = nil
}

// Closed reports whether Close was called.
func (p *Producer) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Attach inserts f at pos in the filter list. pos == FilterCount appends.
func (p *Producer) Attach(f *Filter, pos int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if f.Attached() {
		return ErrFilterAttached
	}
	if pos < 0 || pos > len(p.filters) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrPosition, pos, len(p.filters))
	}
	p.filters = append(p.filters, nil)
	copy(p.filters[pos+1:], p.filters[pos:])
	p.filters[pos] = f
	f.setAttached(true)
	return nil
}

// Detach removes f from the filter list.
func (p *Producer) Detach(f *Filter) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	for i, cur := range p.filters {
		if cur == f {
			p.filters = append(p.filters[:i], p.filters[i+1:]...)
			f.setAttached(false)
			return nil
		}
	}
	return ErrFilterNotAttached
}

// FilterCount returns the number of attached filters.
func (p *Producer) FilterCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.filters)
}

// FilterAt returns the filter at position i, or nil.
func (p *Producer) FilterAt(i int) *Filter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i < 0 || i >= len(p.filters) {
		return nil
	}
	return p.filters[i]
}

// Set stores a property.
func (p *Producer) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.props[key] = value
}

// Get returns a property.
func (p *Producer) Get(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.props[key]
	return v, ok
}

// GetInt returns a property parsed as an integer, or 0.
func (p *Producer) GetInt(key string) int {
	v, ok := p.Get(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// In returns the first used source frame.
func (p *Producer) In() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.in
}

// Out returns the last used source frame.
func (p *Producer) Out() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.out
}

// Playtime returns the number of frames between in and out inclusive.
func (p *Producer) Playtime() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.out - p.in + 1
}

// Length returns the source length in frames.
func (p *Producer) Length() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.length
}

// SetInOut changes the used span of the source.
// Endless producers grow their length to fit.
func (p *Producer) SetInOut(in, out int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if in < 0 || out < in {
		return fmt.Errorf("%w: [%d, %d]", ErrBounds, in, out)
	}
	if out >= p.length {
		if !p.endless {
			return fmt.Errorf("%w: out %d >= length %d", ErrBounds, out, p.length)
		}
		p.length = out + 1
	}
	p.in = in
	p.out = out
	return nil
}

// Retime replaces the source length and the used span, as when the source
// plays at a different rate.
func (p *Producer) Retime(length, in, out int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if length < 1 || in < 0 || out < in || out >= length {
		return fmt.Errorf("%w: [%d, %d] of %d", ErrBounds, in, out, length)
	}
	p.length = length
	p.in = in
	p.out = out
	return nil
}
