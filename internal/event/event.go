package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Topic is a hierarchical event type using dot notation.
type Topic string

// Wildcard segments.
const (
	WildcardSingle = "*"
	WildcardMulti  = "**"
	separator      = "."
)

// Segments returns the topic split on dots.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), separator)
}

// IsValid reports whether the topic is non-empty with no empty segments.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Matches reports whether t matches pattern.
func (t Topic) Matches(pattern Topic) bool {
	return match(t.Segments(), pattern.Segments())
}

func match(topic, pattern []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		if head == WildcardMulti {
			for skip := 0; skip <= len(topic); skip++ {
				if match(topic[skip:], pattern[1:]) {
					return true
				}
			}
			return false
		}
		if len(topic) == 0 {
			return false
		}
		if head != WildcardSingle && head != topic[0] {
			return false
		}
		topic, pattern = topic[1:], pattern[1:]
	}
	return len(topic) == 0
}

// Metadata is attached to every event.
type Metadata struct {
	// ID is a unique identifier for this event instance.
	ID uuid.UUID

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the publishing component.
	Source string
}

// Event is a published notification.
type Event struct {
	Topic    Topic
	Payload  any
	Metadata Metadata
}

// New creates an event with fresh metadata.
func New(topic Topic, payload any, source string) Event {
	return Event{
		Topic:   topic,
		Payload: payload,
		Metadata: Metadata{
			ID:        uuid.New(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// IsPattern reports whether the topic contains wildcard segments.
func (t Topic) IsPattern() bool {
	for _, seg := range t.Segments() {
		if seg == WildcardSingle || seg == WildcardMulti {
			return true
		}
	}
	return false
}
