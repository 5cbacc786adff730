// Package helper provides fixtures and test doubles shared by the tracker store test suites.
//
// It contains a slog handler spy for asserting log output, spies for the event channel and
// the metrics collector, and fixture domains and conversations.
package helper
