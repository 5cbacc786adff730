package trackerstore

import (
	"context"
	"iter"
	"time"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/slots"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/tracker"
)

// Backend is the storage contract of a tracker store.
//
// Load must return every event ever persisted for the sender id in insertion order, so that
// replaying them reproduces the saved slot state. An unknown sender id is reported as
// (nil, false, nil).
//
// Persist receives the number of events that were stored before the call as offset. Snapshot
// backends ignore it and overwrite the full state, log backends append t.EventsAfter(offset).
// An expiration of 0 selects the backend's default, backends without expiry ignore it.
type Backend interface {
	Load(ctx context.Context, senderID string) (events.Events, bool, error)
	Persist(ctx context.Context, t *tracker.DialogueStateTracker, offset int, expiration time.Duration) error
	CountEvents(ctx context.Context, senderID string) (int, error)
	Keys(ctx context.Context) iter.Seq2[string, error]
	Close() error
}

// Domain supplies the slots trackers are seeded and replayed with.
// *domain.Domain implements it.
type Domain interface {
	NewSlots() []slots.Slot
}

// EventChannel receives every newly stored event, with the sender id merged into the payload.
type EventChannel interface {
	Publish(ctx context.Context, event map[string]any) error
}
