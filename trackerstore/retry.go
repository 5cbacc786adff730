package trackerstore

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
)

const (
	logMsgConnectFailedRetrying = "connecting to tracker store backend failed, retrying"
	logMsgConnected             = "connected to tracker store backend"
	logMsgConnectGaveUp         = "connecting to tracker store backend failed"
	exponentialBackoffFactor    = 2.0
)

// connect calls the factory until it succeeds, the configured number of retries is exhausted,
// the factory reports a configuration error, or ctx is canceled.
func (s *Store) connect(ctx context.Context, factory BackendFactory, cfg config.StoreConfig) (Backend, error) {
	var (
		backend Backend
		attempt int
	)

	operation := func() error {
		attempt++

		b, err := factory(ctx, cfg, s.logger)
		if err != nil {
			s.incrementConnectAttempts(statusError)

			if isConfigurationError(err) {
				return backoff.Permanent(err)
			}

			return err
		}

		s.incrementConnectAttempts(statusSuccess)
		backend = b

		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logWarn(logMsgConnectFailedRetrying,
			logAttrBackendType, cfg.Type,
			logAttrAttempt, attempt,
			logAttrWait, wait.String(),
			logAttrError, err.Error())
	}

	if err := backoff.RetryNotify(operation, retryPolicy(ctx, cfg.Retry), notify); err != nil {
		s.logError(logMsgConnectGaveUp, err, logAttrBackendType, cfg.Type, logAttrAttempt, attempt)

		if isConfigurationError(err) {
			return nil, err
		}

		return nil, errors.Join(ErrBackendUnavailable, err)
	}

	s.logOperation(logMsgConnected, logAttrBackendType, cfg.Type, logAttrAttempt, attempt)

	return backend, nil
}

// retryPolicy builds the backoff policy for the retry configuration.
// MaxRetries of 0 never stops on its own.
func retryPolicy(ctx context.Context, cfg config.RetryConfig) backoff.BackOffContext {
	var policy backoff.BackOff

	switch cfg.Backoff {
	case config.BackoffExponential:
		exponential := backoff.NewExponentialBackOff()
		exponential.InitialInterval = cfg.Delay
		exponential.Multiplier = exponentialBackoffFactor
		exponential.MaxElapsedTime = 0
		exponential.Reset()
		policy = exponential

	default:
		policy = backoff.NewConstantBackOff(cfg.Delay)
	}

	if cfg.MaxRetries > 0 {
		policy = backoff.WithMaxRetries(policy, uint64(cfg.MaxRetries))
	}

	return backoff.WithContext(policy, ctx)
}

func isConfigurationError(err error) bool {
	return errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, config.ErrUnsupportedDialect)
}

func (s *Store) incrementConnectAttempts(status string) {
	if s.metricsCollector != nil {
		labels := map[string]string{
			labelOperation: operationConnect,
			labelStatus:    status,
		}
		s.metricsCollector.IncrementCounter(metricConnectAttempts, labels)
	}
}
