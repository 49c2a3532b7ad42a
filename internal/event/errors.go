package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event bus.
var (
	// ErrInvalidTopic is returned when a topic is empty or malformed.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrSubscriptionNotFound is returned when unsubscribing an unknown subscription.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrHandlerPanic matches any PanicError.
	ErrHandlerPanic = errors.New("handler panicked")
)

// PanicError wraps a recovered handler panic.
type PanicError struct {
	// Subscription is the id of the subscription whose handler panicked.
	Subscription uint64

	// Topic is the topic of the event being delivered.
	Topic Topic

	// Value is the value passed to panic().
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic for subscription %d on topic %s: %v", e.Subscription, e.Topic, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
