package oteladapters

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore"
)

// NewSlogBridgeLogger returns a *slog.Logger that emits its records through the OpenTelemetry
// slog bridge. A nil provider selects the global LoggerProvider.
func NewSlogBridgeLogger(name string, provider log.LoggerProvider) *slog.Logger {
	if provider == nil {
		return otelslog.NewLogger(name)
	}

	return otelslog.NewLogger(name, otelslog.WithLoggerProvider(provider))
}

var _ trackerstore.Logger = (*slog.Logger)(nil)
