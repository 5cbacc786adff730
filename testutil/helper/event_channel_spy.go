package helper

import (
	"context"
	"sync"
)

// EventChannelSpy is an event channel implementation that captures published events for testing.
type EventChannelSpy struct {
	published []map[string]any
	failWith  error
	mu        sync.Mutex
}

// NewEventChannelSpy creates a new EventChannelSpy.
func NewEventChannelSpy() *EventChannelSpy {
	return &EventChannelSpy{published: make([]map[string]any, 0)}
}

// FailWith makes every following Publish call return err after recording the event.
func (s *EventChannelSpy) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Publish records the event.
func (s *EventChannelSpy) Publish(_ context.Context, event map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.published = append(s.published, event)

	return s.failWith
}

// PublishCount returns the number of Publish calls.
func (s *EventChannelSpy) PublishCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.published)
}

// Published returns a copy of all published events.
func (s *EventChannelSpy) Published() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	published := make([]map[string]any, len(s.published))
	copy(published, s.published)

	return published
}
