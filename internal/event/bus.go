package event

import (
	"sync"
	"sync/atomic"
)

// Handler receives delivered events.
type Handler func(e Event)

// PanicHandler is called with the recovered panic of a handler.
type PanicHandler func(err *PanicError)

// Subscription identifies a registered handler.
type Subscription struct {
	id      uint64
	pattern Topic
}

// ID returns the subscription id.
func (s Subscription) ID() uint64 {
	return s.id
}

// Pattern returns the topic pattern.
func (s Subscription) Pattern() Topic {
	return s.pattern
}

type subscriber struct {
	Subscription
	handler Handler
}

// Stats reports delivery counters.
type Stats struct {
	Published uint64
	Delivered uint64
	Panics    uint64
	Active    int
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithPanicHandler sets the function called when a handler panics.
func WithPanicHandler(h PanicHandler) BusOption {
	return func(b *Bus) {
		b.panicHandler = h
	}
}

// Bus delivers events synchronously to matching subscribers.
// It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID uint64

	panicHandler PanicHandler

	published atomic.Uint64
	delivered atomic.Uint64
	panics    atomic.Uint64
}

// NewBus creates a bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for topics matching pattern.
func (b *Bus) Subscribe(pattern Topic, handler Handler) (Subscription, error) {
	if handler == nil {
		return Subscription{}, ErrNilHandler
	}
	if !pattern.IsValid() {
		return Subscription{}, ErrInvalidTopic
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := Subscription{id: b.nextID, pattern: pattern}
	b.subs = append(b.subs, subscriber{Subscription: sub, handler: handler})
	return sub, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == sub.id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Publish delivers e to every matching subscriber before returning.
// A nil bus drops the event.
func (b *Bus) Publish(e Event) error {
	if b == nil {
		return nil
	}
	if !e.Topic.IsValid() || e.Topic.IsPattern() {
		return ErrInvalidTopic
	}

	b.mu.RLock()
	matched := make([]subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if e.Topic.Matches(s.pattern) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	b.published.Add(1)
	for _, s := range matched {
		b.deliver(s, e)
	}
	return nil
}

func (b *Bus) deliver(s subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			if b.panicHandler != nil {
				b.panicHandler(&PanicError{Subscription: s.id, Topic: e.Topic, Value: r})
			}
		}
	}()
	s.handler(e)
	b.delivered.Add(1)
}

// Stats returns the delivery counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := len(b.subs)
	b.mu.RUnlock()
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Panics:    b.panics.Load(),
		Active:    active,
	}
}
