package trackerstore

import "errors"

var (
	// ErrNilBackend is returned when a Store is created without a backend.
	ErrNilBackend = errors.New("backend must not be nil")

	// ErrNilTracker is returned when nil is passed to Save.
	ErrNilTracker = errors.New("tracker must not be nil")

	// ErrEmptySenderID is returned when an operation is called with an empty sender id.
	ErrEmptySenderID = errors.New("sender id must not be empty")

	// ErrBackendUnavailable is returned when a bounded number of connection attempts is exhausted.
	ErrBackendUnavailable = errors.New("tracker store backend is unavailable")

	// ErrLoadingTrackerFailed is returned when the backend could not load the events of a sender.
	ErrLoadingTrackerFailed = errors.New("loading tracker failed")

	// ErrSavingTrackerFailed is returned when the backend could not persist a tracker.
	ErrSavingTrackerFailed = errors.New("saving tracker failed")

	// ErrCountingEventsFailed is returned when the backend could not count the stored events of a sender.
	ErrCountingEventsFailed = errors.New("counting stored events failed")

	// ErrEmptyBackendType is returned when RegisterBackend is called without a type name.
	ErrEmptyBackendType = errors.New("backend type must not be empty")

	// ErrNilBackendFactory is returned when RegisterBackend is called without a factory.
	ErrNilBackendFactory = errors.New("backend factory must not be nil")

	// ErrBackendTypeAlreadyRegistered is returned when a type name is built in or registered twice.
	ErrBackendTypeAlreadyRegistered = errors.New("backend type is already registered")
)
