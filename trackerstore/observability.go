package trackerstore

import (
	"context"
	"math"
	"time"
)

const (
	metricOperationDuration = "trackerstore_operation_duration_seconds"
	metricOperations        = "trackerstore_operations_total"
	metricEventsPublished   = "trackerstore_events_published_total"
	metricEventsPersisted   = "trackerstore_events_persisted"
	metricConnectAttempts   = "trackerstore_connect_attempts_total"
	labelOperation          = "operation"
	labelStatus             = "status"
	operationRetrieve       = "retrieve"
	operationSave           = "save"
	operationConnect        = "connect"
	operationPublish        = "publish"
	statusSuccess           = "success"
	statusError             = "error"
	statusNotFound          = "not_found"
	spanRetrieve            = "trackerstore.retrieve"
	spanSave                = "trackerstore.save"
	spanAttrSenderID        = "sender_id"
	spanAttrEventCount      = "event_count"
	spanAttrNewEventCount   = "new_event_count"
)

// logDebug logs per-call details at debug level if the logger is configured.
func (s *Store) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// logOperation logs operational information at info level if the logger is configured.
func (s *Store) logOperation(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

// logWarn logs recoverable problems at warn level if the logger is configured.
func (s *Store) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// logError logs error information at the error level if the logger is configured.
func (s *Store) logError(msg string, err error, args ...any) {
	if s.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		s.logger.Error(msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordOperation records the duration and the outcome of an operation if the metrics collector is configured.
func (s *Store) recordOperation(operation, status string, duration time.Duration) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		labelOperation: operation,
		labelStatus:    status,
	}

	s.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
	s.metricsCollector.IncrementCounter(metricOperations, labels)
}

// recordValue records a gauge value if the metrics collector is configured.
func (s *Store) recordValue(metric string, value float64, operation string) {
	if s.metricsCollector != nil {
		s.metricsCollector.RecordValue(metric, value, map[string]string{labelOperation: operation})
	}
}

// incrementCounter increments a counter labeled with the publish operation and status.
func (s *Store) incrementCounter(metric, status string) {
	if s.metricsCollector != nil {
		labels := map[string]string{
			labelOperation: operationPublish,
			labelStatus:    status,
		}
		s.metricsCollector.IncrementCounter(metric, labels)
	}
}

// startSpan starts a span tagged with the sender id if the tracing collector is configured.
func (s *Store) startSpan(ctx context.Context, name, senderID string) (context.Context, SpanContext) {
	if s.tracingCollector == nil {
		return ctx, nil
	}

	return s.tracingCollector.StartSpan(ctx, name, map[string]string{spanAttrSenderID: senderID})
}

// finishSpan finishes a span started by startSpan.
func (s *Store) finishSpan(span SpanContext, status string, attrs map[string]string) {
	if s.tracingCollector != nil && span != nil {
		s.tracingCollector.FinishSpan(span, status, attrs)
	}
}
