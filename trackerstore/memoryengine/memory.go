// Package memoryengine provides the in-memory tracker store backend.
//
// Every save overwrites the serialized dialogue of the sender id in a process-local cache.
// Nothing survives a restart of the process.
package memoryengine

import (
	"context"
	"errors"
	"iter"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/tracker"
)

const (
	defaultCleanupInterval = 10 * time.Minute
	logMsgDialogueStored   = "dialogue stored in memory"
	logMsgUnexpectedEntry  = "cache entry is not a serialized dialogue"
	logAttrSenderID        = "sender_id"
	logAttrEventCount      = "event_count"
	logAttrExpiration      = "expiration"
)

// ErrUnexpectedEntry is returned when a cache entry does not hold a serialized dialogue.
var ErrUnexpectedEntry = errors.New("cache entry is not a serialized dialogue")

// Logger interface for debug logging and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Store keeps one serialized dialogue per sender id.
type Store struct {
	cache             *cache.Cache
	defaultExpiration time.Duration
	logger            Logger
}

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithLogger sets the logger for the Store.
func WithLogger(logger Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithDefaultExpiration lets entries expire after d unless a save passes its own expiration.
func WithDefaultExpiration(d time.Duration) Option {
	return func(s *Store) error {
		s.defaultExpiration = d
		return nil
	}
}

// New creates an empty in-memory Store.
func New(options ...Option) (*Store, error) {
	s := &Store{defaultExpiration: cache.NoExpiration}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	s.cache = cache.New(cache.NoExpiration, defaultCleanupInterval)

	return s, nil
}

// Load returns the stored events of senderID.
func (s *Store) Load(_ context.Context, senderID string) (events.Events, bool, error) {
	entry, found := s.cache.Get(senderID)
	if !found {
		return nil, false, nil
	}

	data, ok := entry.([]byte)
	if !ok {
		if s.logger != nil {
			s.logger.Error(logMsgUnexpectedEntry, logAttrSenderID, senderID)
		}

		return nil, false, ErrUnexpectedEntry
	}

	_, evts, err := tracker.UnmarshalDialogue(data)
	if err != nil {
		return nil, false, err
	}

	return evts, true, nil
}

// Persist overwrites the serialized dialogue of the tracker. The offset is not needed for a full overwrite.
func (s *Store) Persist(_ context.Context, t *tracker.DialogueStateTracker, _ int, expiration time.Duration) error {
	data, err := tracker.MarshalDialogue(t)
	if err != nil {
		return err
	}

	if expiration <= 0 {
		expiration = s.defaultExpiration
	}

	s.cache.Set(t.SenderID(), data, expiration)

	if s.logger != nil {
		s.logger.Debug(logMsgDialogueStored,
			logAttrSenderID, t.SenderID(),
			logAttrEventCount, t.EventCount(),
			logAttrExpiration, expiration.String())
	}

	return nil
}

// CountEvents returns the number of stored events of senderID.
func (s *Store) CountEvents(ctx context.Context, senderID string) (int, error) {
	evts, _, err := s.Load(ctx, senderID)
	if err != nil {
		return 0, err
	}

	return len(evts), nil
}

// Keys yields the sender ids of all unexpired entries in lexical order.
func (s *Store) Keys(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		items := s.cache.Items()

		senderIDs := make([]string, 0, len(items))
		for senderID := range items {
			senderIDs = append(senderIDs, senderID)
		}

		sort.Strings(senderIDs)

		for _, senderID := range senderIDs {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			if !yield(senderID, nil) {
				return
			}
		}
	}
}

// Close empties the cache.
func (s *Store) Close() error {
	s.cache.Flush()
	return nil
}
