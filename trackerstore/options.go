package trackerstore

import (
	"context"
	"time"
)

// Logger interface for operation logging, warnings, and error reporting.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsCollector interface for collecting Store performance and operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector starts and finishes spans around Store operations.
// The context returned by StartSpan is the one passed on to the backend and the event channel.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// Option defines a functional option for configuring a Store.
type Option func(*Store) error

// WithLogger sets the logger for the Store and the backends it creates.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: keys, offsets and per-call details (development use)
// Info level: connections, saved trackers, published event counts (production-safe)
// Warn level: backend type fallback, connection retries, publish failures
// Error level: failed backend operations.
func WithLogger(logger Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
func WithMetrics(collector MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store.
func WithTracing(collector TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}

// WithEventChannel sets the channel new events are published to on save.
func WithEventChannel(channel EventChannel) Option {
	return func(s *Store) error {
		s.eventChannel = channel
		return nil
	}
}

// SaveOption defines a functional option for a single Save call.
type SaveOption func(*saveOptions)

type saveOptions struct {
	expiration time.Duration
}

// WithExpiration sets the time to live of the saved record for backends which support expiry.
// It overrides the store-wide default for this call.
func WithExpiration(expiration time.Duration) SaveOption {
	return func(o *saveOptions) {
		o.expiration = expiration
	}
}
