package media

import "weak"

// Handle is a weak reference to a Producer.
// The zero value never resolves.
type Handle struct {
	p weak.Pointer[Producer]
}

// NewHandle returns a handle to p. A nil producer yields the zero handle.
func NewHandle(p *Producer) Handle {
	if p == nil {
		return Handle{}
	}
	return Handle{p: weak.Make(p)}
}

// Lock resolves the handle. It fails once the producer is closed or collected.
func (h Handle) Lock() (Service, bool) {
	p := h.p.Value()
	if p == nil || p.Closed() {
		return nil, false
	}
	return p, true
}

// Valid reports whether Lock would currently succeed.
func (h Handle) Valid() bool {
	_, ok := h.Lock()
	return ok
}

// Same reports whether both handles refer to the same producer.
func (h Handle) Same(other Handle) bool {
	return h.p == other.p
}
