package eventchannel

import (
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
)

const (
	// DefaultRedisChannel is the pub/sub channel used when none is configured.
	DefaultRedisChannel = "tracker_events"

	logMsgRedisPublished     = "event published to redis channel"
	logMsgRedisPublishFailed = "publishing event to redis channel failed"
	logMsgRedisConnected     = "connected to redis event broker"
	logAttrChannel           = "channel"
	logAttrReceivers         = "receivers"
	logAttrError             = "error"
)

var (
	// ErrNilClient is returned when a RedisChannel is created without a client.
	ErrNilClient = errors.New("redis client must not be nil")

	// ErrEncodingEventFailed is returned when an event can't be encoded as JSON.
	ErrEncodingEventFailed = errors.New("encoding event failed")

	// ErrPublishingEventFailed is returned when Redis rejects the publish.
	ErrPublishingEventFailed = errors.New("publishing event failed")
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisChannel publishes events as JSON messages on a Redis pub/sub channel.
type RedisChannel struct {
	client     redis.UniversalClient
	channel    string
	ownsClient bool
	logger     Logger
}

// Option defines a functional option for configuring RedisChannel.
type Option func(*RedisChannel) error

// WithLogger sets the logger for the RedisChannel.
func WithLogger(logger Logger) Option {
	return func(c *RedisChannel) error {
		c.logger = logger
		return nil
	}
}

// WithChannel sets the pub/sub channel name, DefaultRedisChannel if empty.
func WithChannel(channel string) Option {
	return func(c *RedisChannel) error {
		if channel != "" {
			c.channel = channel
		}

		return nil
	}
}

// NewRedisChannel creates a RedisChannel on an existing client. Close leaves the client open.
func NewRedisChannel(client redis.UniversalClient, options ...Option) (*RedisChannel, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	c := &RedisChannel{client: client, channel: DefaultRedisChannel}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// NewRedisChannelFromConfig connects a client for the broker configuration and pings it.
func NewRedisChannelFromConfig(ctx context.Context, cfg config.BrokerConfig, options ...Option) (*RedisChannel, error) {
	redisOptions, err := cfg.RedisOptions()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(redisOptions)

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		_ = client.Close()
		return nil, pingErr
	}

	c, err := NewRedisChannel(client, append([]Option{WithChannel(cfg.Channel)}, options...)...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	c.ownsClient = true

	if c.logger != nil {
		c.logger.Info(logMsgRedisConnected, logAttrChannel, c.channel)
	}

	return c, nil
}

// Publish encodes the event as JSON and publishes it on the channel.
func (c *RedisChannel) Publish(ctx context.Context, event map[string]any) error {
	message, err := jsonAPI.Marshal(event)
	if err != nil {
		return errors.Join(ErrEncodingEventFailed, err)
	}

	receivers, err := c.client.Publish(ctx, c.channel, message).Result()
	if err != nil {
		if c.logger != nil {
			c.logger.Error(logMsgRedisPublishFailed, logAttrChannel, c.channel, logAttrError, err.Error())
		}

		return errors.Join(ErrPublishingEventFailed, err)
	}

	if c.logger != nil {
		c.logger.Debug(logMsgRedisPublished, logAttrChannel, c.channel, logAttrReceivers, receivers)
	}

	return nil
}

// Close closes the client if the RedisChannel created it.
func (c *RedisChannel) Close() error {
	if !c.ownsClient {
		return nil
	}

	return c.client.Close()
}
