package eventchannel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore"
)

// Broker types accepted in the event_broker.type configuration key.
const (
	TypeRedis = "redis"
	TypeLog   = "log"
)

// ErrUnsupportedBrokerType is returned by NewFromConfig for unknown broker types.
var ErrUnsupportedBrokerType = errors.New("unsupported event broker type")

// Logger interface for publish logging and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Channel is an event channel that holds resources until it is closed.
type Channel interface {
	trackerstore.EventChannel
	Close() error
}

// Func adapts a function to trackerstore.EventChannel.
type Func func(ctx context.Context, event map[string]any) error

// Publish calls f.
func (f Func) Publish(ctx context.Context, event map[string]any) error {
	return f(ctx, event)
}

// NewFromConfig builds the channel the broker configuration selects.
// An empty type yields (nil, nil): no event channel is configured.
func NewFromConfig(ctx context.Context, cfg config.BrokerConfig, logger Logger) (Channel, error) {
	switch strings.ToLower(cfg.Type) {
	case "":
		return nil, nil

	case TypeRedis:
		c, err := NewRedisChannelFromConfig(ctx, cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}

		return c, nil

	case TypeLog:
		if logger == nil {
			return nil, errors.Join(config.ErrInvalidConfig, errors.New("the log event broker needs a logger"))
		}

		return NewLogChannel(logger), nil
	}

	return nil, errors.Join(ErrUnsupportedBrokerType, config.ErrInvalidConfig, fmt.Errorf("type %q", cfg.Type))
}

var (
	_ trackerstore.EventChannel = Func(nil)
	_ Channel                   = (*RedisChannel)(nil)
	_ Channel                   = (*LogChannel)(nil)
)
