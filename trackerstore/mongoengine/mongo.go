// Package mongoengine provides the document tracker store backend on top of MongoDB.
//
// Every save replaces the single current-state document of the sender id:
//
//	{sender_id, events: [...], slot_values: {...}, latest_message, latest_event_time, latest_action_name, paused}
//
// Older deployments stored purely numeric sender ids as numbers. A lookup of "42" that finds no
// document rewrites a document stored under 42 to the string id and returns it.
package mongoengine

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/tracker"
)

const (
	defaultDatabase          = "rasa"
	defaultCollection        = "conversations"
	fieldSenderID            = "sender_id"
	serverSelectionTimeout   = 5 * time.Second
	connectTimeout           = 10 * time.Second
	logMsgConnected          = "connected to mongodb"
	logMsgLegacyIDMigrated   = "numeric sender id migrated to string"
	logMsgDocumentReplaced   = "conversation document replaced"
	logMsgFindFailed         = "mongodb find failed"
	logMsgMigrationFailed    = "migrating numeric sender id failed"
	logMsgReplaceFailed      = "mongodb replace failed"
	logMsgDistinctFailed     = "mongodb distinct failed"
	logMsgSenderIDNotAString = "stored sender id could not be converted to a string, skipped"
	logAttrSenderID          = "sender_id"
	logAttrDatabase          = "database"
	logAttrCollection        = "collection"
	logAttrEventCount        = "event_count"
	logAttrError             = "error"
)

var (
	// ErrNilCollection is returned when a Store is created without a collection.
	ErrNilCollection = errors.New("mongodb collection must not be nil")

	// ErrInvalidDocument is returned when a stored conversation document can not be decoded.
	ErrInvalidDocument = errors.New("conversation document is not valid")
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Logger interface for operation logging and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Store keeps one current-state document per sender id.
type Store struct {
	coll   collection
	client *mongo.Client
	logger Logger
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

// New creates a Store on an existing collection and ensures the sender_id index.
// Close leaves the client of the collection connected.
func New(ctx context.Context, coll *mongo.Collection, options ...Option) (*Store, error) {
	if coll == nil {
		return nil, ErrNilCollection
	}

	return newStore(ctx, mongoCollection{coll: coll}, options...)
}

func newStore(ctx context.Context, coll collection, options ...Option) (*Store, error) {
	s := &Store{coll: coll}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	if err := s.coll.ensureIndex(ctx, fieldSenderID); err != nil {
		return nil, err
	}

	return s, nil
}

// NewFromConfig connects a client for the store configuration, pings the primary, and opens
// the configured database and collection, "rasa" and "conversations" by default.
func NewFromConfig(ctx context.Context, cfg config.StoreConfig, options ...Option) (*Store, error) {
	clientOptions := mongoOptions(cfg)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if pingErr := client.Ping(ctx, readpref.Primary()); pingErr != nil {
		_ = client.Disconnect(ctx)
		return nil, pingErr
	}

	database := cfg.DB
	if database == "" {
		database = defaultDatabase
	}

	collectionName := cfg.Collection
	if collectionName == "" {
		collectionName = defaultCollection
	}

	s, err := New(ctx, client.Database(database).Collection(collectionName), options...)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	s.client = client

	if s.logger != nil {
		s.logger.Info(logMsgConnected, logAttrDatabase, database, logAttrCollection, collectionName)
	}

	return s, nil
}

func mongoOptions(cfg config.StoreConfig) *options.ClientOptions {
	return options.Client().
		ApplyURI(cfg.MongoURI()).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetConnectTimeout(connectTimeout)
}

// Load returns the events of the stored document of senderID, migrating a numeric legacy id if needed.
func (s *Store) Load(ctx context.Context, senderID string) (events.Events, bool, error) {
	raw, err := s.find(ctx, senderID)
	if err != nil {
		return nil, false, err
	}

	if raw == nil {
		return nil, false, nil
	}

	evts, err := decodeEvents(raw)
	if err != nil {
		return nil, false, err
	}

	return evts, true, nil
}

func (s *Store) find(ctx context.Context, senderID string) (bson.Raw, error) {
	raw, err := s.coll.findOne(ctx, bson.M{fieldSenderID: senderID})
	if err != nil {
		s.logError(logMsgFindFailed, err, senderID)
		return nil, err
	}

	if raw != nil {
		return raw, nil
	}

	legacyID, isNumeric := numericSenderID(senderID)
	if !isNumeric {
		return nil, nil
	}

	raw, err = s.coll.findOneAndSet(ctx, bson.M{fieldSenderID: legacyID}, bson.M{fieldSenderID: senderID})
	if err != nil {
		s.logError(logMsgMigrationFailed, err, senderID)
		return nil, err
	}

	if raw != nil {
		if s.logger != nil {
			s.logger.Info(logMsgLegacyIDMigrated, logAttrSenderID, senderID)
		}

		return raw, nil
	}

	// a concurrent lookup may have migrated the document in between
	raw, err = s.coll.findOne(ctx, bson.M{fieldSenderID: senderID})
	if err != nil {
		s.logError(logMsgFindFailed, err, senderID)
		return nil, err
	}

	return raw, nil
}

// numericSenderID reports whether senderID consists of digits only and returns its numeric form.
func numericSenderID(senderID string) (int64, bool) {
	if senderID == "" {
		return 0, false
	}

	for _, r := range senderID {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	n, err := strconv.ParseInt(senderID, 10, 64)
	if err != nil {
		return 0, false
	}

	return n, true
}

// decodeEvents reads the events array of a conversation document through relaxed extended JSON,
// which keeps the JSON shapes the event codec expects.
func decodeEvents(raw bson.Raw) (events.Events, error) {
	extJSON, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, errors.Join(ErrInvalidDocument, err)
	}

	var doc struct {
		Events jsoniter.RawMessage `json:"events"`
	}

	if err = jsonAPI.Unmarshal(extJSON, &doc); err != nil {
		return nil, errors.Join(ErrInvalidDocument, err)
	}

	if len(doc.Events) == 0 || string(doc.Events) == "null" {
		return events.Events{}, nil
	}

	return events.ManyFromJSON(doc.Events)
}

// Persist replaces the document of the tracker with its current state.
// The offset is not needed for a full replace.
func (s *Store) Persist(ctx context.Context, t *tracker.DialogueStateTracker, _ int, _ time.Duration) error {
	if err := s.coll.upsert(ctx, bson.M{fieldSenderID: t.SenderID()}, t.CurrentState()); err != nil {
		s.logError(logMsgReplaceFailed, err, t.SenderID())
		return err
	}

	if s.logger != nil {
		s.logger.Debug(logMsgDocumentReplaced, logAttrSenderID, t.SenderID(), logAttrEventCount, t.EventCount())
	}

	return nil
}

// CountEvents returns the number of events in the stored document of senderID.
func (s *Store) CountEvents(ctx context.Context, senderID string) (int, error) {
	evts, _, err := s.Load(ctx, senderID)
	if err != nil {
		return 0, err
	}

	return len(evts), nil
}

// Keys yields the sender id of every stored document. Numeric legacy ids are yielded in string form.
func (s *Store) Keys(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		senderIDs, err := s.coll.distinct(ctx, fieldSenderID)
		if err != nil {
			s.logError(logMsgDistinctFailed, err, "")
			yield("", err)

			return
		}

		for _, senderID := range senderIDs {
			id, castErr := cast.ToStringE(senderID)
			if castErr != nil {
				if s.logger != nil {
					s.logger.Warn(logMsgSenderIDNotAString, logAttrError, castErr.Error())
				}

				continue
			}

			if !yield(id, nil) {
				return
			}
		}
	}
}

// Close disconnects the client if the Store created it.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}

	return s.client.Disconnect(context.Background())
}

func (s *Store) logError(msg string, err error, senderID string) {
	if s.logger != nil {
		s.logger.Error(msg, logAttrError, err.Error(), logAttrSenderID, senderID)
	}
}
