package trackerstore

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"time"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/slots"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/tracker"
)

const (
	logMsgTrackerRetrieved    = "tracker retrieved"
	logMsgTrackerNotFound     = "no tracker stored for sender id"
	logMsgTrackerSaved        = "tracker saved"
	logMsgTrackerCreated      = "tracker created"
	logMsgTrackerBehindStore  = "tracker holds fewer events than the store, nothing new to publish"
	logMsgLoadFailed          = "loading tracker from backend failed"
	logMsgPersistFailed       = "persisting tracker to backend failed"
	logMsgCountFailed         = "counting stored events failed"
	logMsgPublishFailed       = "publishing event to event channel failed"
	logMsgEventsPublished     = "events published"
	logMsgCloseFailed         = "closing backend failed"
	logAttrError              = "error"
	logAttrSenderID           = "sender_id"
	logAttrEventCount         = "event_count"
	logAttrNewEventCount      = "new_event_count"
	logAttrStoredEventCount   = "stored_event_count"
	logAttrEventType          = "event_type"
	logAttrDurationMS         = "duration_ms"
	logAttrBackendType        = "backend_type"
	logAttrAttempt            = "attempt"
	logAttrWait               = "wait"
	publishedEventKeySenderID = "sender_id"
)

// Store is the tracker store façade: it retrieves trackers by replay and saves them through a Backend.
//
// A Store is safe for concurrent use as far as its Backend is. It does not serialize writes per
// sender id: two concurrent Save calls for the same sender race, snapshot backends end up with
// the last write, the sql backend may store rows twice.
type Store struct {
	backend          Backend
	domain           Domain
	eventChannel     EventChannel
	logger           Logger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// New resolves the backend named by cfg.Type, connects to it, and retries failed connection
// attempts as configured in cfg.Retry. With cfg.Retry.MaxRetries of 0 it retries until the
// connection succeeds or ctx is canceled.
//
// A nil domain creates trackers without slots.
func New(ctx context.Context, cfg config.StoreConfig, domain Domain, options ...Option) (*Store, error) {
	s := &Store{domain: domain}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory := s.resolveBackendFactory(cfg.Type)

	backend, err := s.connect(ctx, factory, cfg)
	if err != nil {
		return nil, err
	}

	s.backend = backend

	return s, nil
}

// NewStore creates a Store on top of an already connected backend.
func NewStore(backend Backend, domain Domain, options ...Option) (*Store, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}

	s := &Store{backend: backend, domain: domain}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Retrieve loads the tracker of senderID. A sender id without stored events is not an error,
// it is reported as (nil, false, nil).
func (s *Store) Retrieve(ctx context.Context, senderID string) (*tracker.DialogueStateTracker, bool, error) {
	if senderID == "" {
		return nil, false, ErrEmptySenderID
	}

	start := time.Now()
	ctx, span := s.startSpan(ctx, spanRetrieve, senderID)

	evts, found, err := s.backend.Load(ctx, senderID)
	if err != nil {
		s.logError(logMsgLoadFailed, err, logAttrSenderID, senderID)
		s.recordOperation(operationRetrieve, statusError, time.Since(start))
		s.finishSpan(span, statusError, nil)

		return nil, false, errors.Join(ErrLoadingTrackerFailed, err)
	}

	if !found {
		s.logDebug(logMsgTrackerNotFound, logAttrSenderID, senderID)
		s.recordOperation(operationRetrieve, statusNotFound, time.Since(start))
		s.finishSpan(span, statusNotFound, nil)

		return nil, false, nil
	}

	t := tracker.FromEvents(senderID, evts, s.newSlots())

	duration := time.Since(start)
	s.logDebug(logMsgTrackerRetrieved,
		logAttrSenderID, senderID,
		logAttrEventCount, t.EventCount(),
		logAttrDurationMS, toMilliseconds(duration))
	s.recordOperation(operationRetrieve, statusSuccess, duration)
	s.finishSpan(span, statusSuccess, map[string]string{spanAttrEventCount: strconv.Itoa(t.EventCount())})

	return t, true, nil
}

// GetOrCreate retrieves the tracker of senderID or, if none is stored, creates one seeded with an
// initial action_listen event and saves it right away.
func (s *Store) GetOrCreate(ctx context.Context, senderID string, options ...SaveOption) (*tracker.DialogueStateTracker, error) {
	t, found, err := s.Retrieve(ctx, senderID)
	if err != nil {
		return nil, err
	}

	if found {
		return t, nil
	}

	return s.Create(ctx, senderID, true, options...)
}

// Create builds a fresh tracker for senderID, seeded with an initial action_listen event if
// appendInitialListen is set, and saves it.
func (s *Store) Create(
	ctx context.Context,
	senderID string,
	appendInitialListen bool,
	options ...SaveOption,
) (*tracker.DialogueStateTracker, error) {

	if senderID == "" {
		return nil, ErrEmptySenderID
	}

	t := tracker.New(senderID, s.newSlots())
	if appendInitialListen {
		t.Update(events.BuildActionExecuted(events.ActionListenName, time.Now()))
	}

	if err := s.Save(ctx, t, options...); err != nil {
		return nil, err
	}

	s.logOperation(logMsgTrackerCreated, logAttrSenderID, senderID, logAttrEventCount, t.EventCount())

	return t, nil
}

// Save persists the tracker and publishes every event beyond the count stored before the call.
//
// Calling Save again without new events neither stores nor publishes anything new.
// A failed publish is logged and does not fail the save.
func (s *Store) Save(ctx context.Context, t *tracker.DialogueStateTracker, options ...SaveOption) error {
	if t == nil {
		return ErrNilTracker
	}

	if t.SenderID() == "" {
		return ErrEmptySenderID
	}

	opts := saveOptions{}
	for _, option := range options {
		option(&opts)
	}

	start := time.Now()
	ctx, span := s.startSpan(ctx, spanSave, t.SenderID())

	offset, err := s.CountExistingEvents(ctx, t.SenderID())
	if err != nil {
		s.recordOperation(operationSave, statusError, time.Since(start))
		s.finishSpan(span, statusError, nil)

		return err
	}

	if offset > t.EventCount() {
		s.logWarn(logMsgTrackerBehindStore,
			logAttrSenderID, t.SenderID(),
			logAttrEventCount, t.EventCount(),
			logAttrStoredEventCount, offset)

		offset = t.EventCount()
	}

	if err = s.backend.Persist(ctx, t, offset, opts.expiration); err != nil {
		s.logError(logMsgPersistFailed, err, logAttrSenderID, t.SenderID())
		s.recordOperation(operationSave, statusError, time.Since(start))
		s.finishSpan(span, statusError, nil)

		return errors.Join(ErrSavingTrackerFailed, err)
	}

	newEvents := t.EventsAfter(offset)

	duration := time.Since(start)
	s.logOperation(logMsgTrackerSaved,
		logAttrSenderID, t.SenderID(),
		logAttrEventCount, t.EventCount(),
		logAttrNewEventCount, len(newEvents),
		logAttrDurationMS, toMilliseconds(duration))
	s.recordOperation(operationSave, statusSuccess, duration)
	s.recordValue(metricEventsPersisted, float64(len(newEvents)), operationSave)

	s.publish(ctx, t.SenderID(), newEvents)
	s.finishSpan(span, statusSuccess, map[string]string{
		spanAttrEventCount:    strconv.Itoa(t.EventCount()),
		spanAttrNewEventCount: strconv.Itoa(len(newEvents)),
	})

	return nil
}

func (s *Store) publish(ctx context.Context, senderID string, newEvents events.Events) {
	if s.eventChannel == nil || len(newEvents) == 0 {
		return
	}

	published := 0

	for _, e := range newEvents {
		payload := e.AsMap()
		payload[publishedEventKeySenderID] = senderID

		if err := s.eventChannel.Publish(ctx, payload); err != nil {
			s.logWarn(logMsgPublishFailed,
				logAttrSenderID, senderID,
				logAttrEventType, e.EventType(),
				logAttrError, err.Error())
			s.incrementCounter(metricEventsPublished, statusError)

			continue
		}

		published++
		s.incrementCounter(metricEventsPublished, statusSuccess)
	}

	s.logOperation(logMsgEventsPublished, logAttrSenderID, senderID, logAttrEventCount, published)
}

// CountExistingEvents returns the number of events stored for senderID, 0 for an unknown sender.
func (s *Store) CountExistingEvents(ctx context.Context, senderID string) (int, error) {
	if senderID == "" {
		return 0, ErrEmptySenderID
	}

	count, err := s.backend.CountEvents(ctx, senderID)
	if err != nil {
		s.logError(logMsgCountFailed, err, logAttrSenderID, senderID)
		return 0, errors.Join(ErrCountingEventsFailed, err)
	}

	return count, nil
}

// Keys lazily yields the sender ids of all stored trackers. The order is backend defined.
// Iteration stops after the first error.
func (s *Store) Keys(ctx context.Context) iter.Seq2[string, error] {
	return s.backend.Keys(ctx)
}

// Close releases the backend's connections.
func (s *Store) Close() error {
	if err := s.backend.Close(); err != nil {
		s.logError(logMsgCloseFailed, err)
		return err
	}

	return nil
}

func (s *Store) newSlots() []slots.Slot {
	if s.domain == nil {
		return nil
	}

	return s.domain.NewSlots()
}
