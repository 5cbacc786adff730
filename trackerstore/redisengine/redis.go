// Package redisengine provides the key-value tracker store backend on top of Redis.
//
// Every save overwrites one serialized dialogue per sender id. Records expire after the
// expiration passed to the save, or else after the store-wide default; a zero default keeps
// records forever.
package redisengine

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/tracker"
)

const (
	scanBatchSize        = 100
	logMsgConnected      = "connected to redis"
	logMsgDialogueStored = "dialogue stored in redis"
	logMsgGetFailed      = "redis get failed"
	logMsgSetFailed      = "redis set failed"
	logMsgScanFailed     = "redis scan failed"
	logAttrKey           = "key"
	logAttrAddress       = "address"
	logAttrEventCount    = "event_count"
	logAttrExpiration    = "expiration"
	logAttrError         = "error"
)

var (
	// ErrNilClient is returned when a Store is created without a redis client.
	ErrNilClient = errors.New("redis client must not be nil")

	// ErrPingFailed is returned when the redis server does not answer a ping.
	ErrPingFailed = errors.New("redis ping failed")
)

// Logger interface for command logging and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Store keeps one serialized dialogue per sender id under keyPrefix + sender id.
type Store struct {
	client            redis.UniversalClient
	keyPrefix         string
	defaultExpiration time.Duration
	ownsClient        bool
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

// WithKeyPrefix stores all records under keys starting with prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) error {
		s.keyPrefix = prefix
		return nil
	}
}

// WithDefaultExpiration sets the time to live of records saved without an explicit expiration.
func WithDefaultExpiration(d time.Duration) Option {
	return func(s *Store) error {
		s.defaultExpiration = d
		return nil
	}
}

// New creates a Store using an existing client. Close leaves the client open.
func New(client redis.UniversalClient, options ...Option) (*Store, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	s := &Store{client: client}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// NewFromConfig connects a new client for the store configuration and pings the server.
// Options passed explicitly are applied after the ones derived from cfg.
func NewFromConfig(ctx context.Context, cfg config.StoreConfig, options ...Option) (*Store, error) {
	redisOptions, err := cfg.RedisOptions()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(redisOptions)

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		_ = client.Close()
		return nil, errors.Join(ErrPingFailed, pingErr)
	}

	allOptions := []Option{
		WithKeyPrefix(cfg.KeyPrefix),
		WithDefaultExpiration(cfg.RecordExpiration()),
	}

	s, err := New(client, append(allOptions, options...)...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	s.ownsClient = true

	if s.logger != nil {
		s.logger.Info(logMsgConnected, logAttrAddress, redisOptions.Addr)
	}

	return s, nil
}

func (s *Store) key(senderID string) string {
	return s.keyPrefix + senderID
}

// Load returns the stored events of senderID.
func (s *Store) Load(ctx context.Context, senderID string) (events.Events, bool, error) {
	data, err := s.client.Get(ctx, s.key(senderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		s.logError(logMsgGetFailed, err, s.key(senderID))
		return nil, false, err
	}

	_, evts, err := tracker.UnmarshalDialogue(data)
	if err != nil {
		return nil, false, err
	}

	return evts, true, nil
}

// Persist overwrites the serialized dialogue of the tracker with a SET.
// The offset is not needed for a full overwrite.
func (s *Store) Persist(ctx context.Context, t *tracker.DialogueStateTracker, _ int, expiration time.Duration) error {
	data, err := tracker.MarshalDialogue(t)
	if err != nil {
		return err
	}

	if expiration <= 0 {
		expiration = s.defaultExpiration
	}

	key := s.key(t.SenderID())

	if err = s.client.Set(ctx, key, data, expiration).Err(); err != nil {
		s.logError(logMsgSetFailed, err, key)
		return err
	}

	if s.logger != nil {
		s.logger.Debug(logMsgDialogueStored,
			logAttrKey, key,
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

// Keys lazily scans the keys under the prefix and yields them without the prefix.
// The order is the server's scan order.
func (s *Store) Keys(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var cursor uint64

		for {
			keys, next, err := s.client.Scan(ctx, cursor, s.keyPrefix+"*", scanBatchSize).Result()
			if err != nil {
				s.logError(logMsgScanFailed, err, s.keyPrefix+"*")
				yield("", err)

				return
			}

			for _, key := range keys {
				if !yield(strings.TrimPrefix(key, s.keyPrefix), nil) {
					return
				}
			}

			if next == 0 {
				return
			}

			cursor = next
		}
	}
}

// Close closes the client if the Store created it.
func (s *Store) Close() error {
	if !s.ownsClient {
		return nil
	}

	return s.client.Close()
}

func (s *Store) logError(msg string, err error, key string) {
	if s.logger != nil {
		s.logger.Error(msg, logAttrError, err.Error(), logAttrKey, key)
	}
}
