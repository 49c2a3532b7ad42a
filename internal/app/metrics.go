package app

import (
	"sort"
	"sync"
	"time"

	"github.com/Tilix4/kdenlive/internal/event"
)

// Metrics counts the notifications published while the application runs.
type Metrics struct {
	mu sync.Mutex

	topics    map[event.Topic]uint64
	last      time.Time
	startTime time.Time
}

// NewMetrics creates an empty tracker.
func NewMetrics() *Metrics {
	return &Metrics{
		topics:    make(map[event.Topic]uint64),
		startTime: time.Now(),
	}
}

// Observe records one event.
func (m *Metrics) Observe(e event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics[e.Topic]++
	m.last = e.Metadata.Timestamp
}

// TopicCount is the number of events seen on one topic.
type TopicCount struct {
	Topic event.Topic
	Count uint64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Topics    []TopicCount
	Total     uint64
	LastEvent time.Time
	Uptime    time.Duration
}

// Snapshot returns the counters sorted by topic.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := MetricsSnapshot{LastEvent: m.last, Uptime: time.Since(m.startTime)}
	for topic, n := range m.topics {
		s.Topics = append(s.Topics, TopicCount{Topic: topic, Count: n})
		s.Total += n
	}
	sort.Slice(s.Topics, func(i, j int) bool { return s.Topics[i].Topic < s.Topics[j].Topic })
	return s
}

// Count returns the events seen on topic.
func (s MetricsSnapshot) Count(topic event.Topic) uint64 {
	for _, tc := range s.Topics {
		if tc.Topic == topic {
			return tc.Count
		}
	}
	return 0
}

// Reset clears the counters.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = make(map[event.Topic]uint64)
	m.last = time.Time{}
}
