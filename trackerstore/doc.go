// Package trackerstore persists dialogue state trackers across interchangeable storage backends.
//
// A Store retrieves trackers by replaying the persisted events of a sender id against fresh
// slots of the domain, and saves them through the configured Backend:
//
//   - in-memory and redis keep one serialized dialogue per sender id (full overwrite)
//   - mongod keeps one current-state document per sender id (full upsert)
//   - sql keeps one row per event and appends only the events that are not yet stored
//
// On every save the events beyond the previously stored count are published to the optional
// EventChannel, tagged with the sender id. Publishing happens after the write succeeded, so an
// event is published at most once even when the process dies in the middle of a save.
//
// Common usage pattern:
//
//	endpoints, err := config.Load("endpoints.yml")
//	if err != nil {
//		// handle error
//	}
//
//	store, err := trackerstore.New(ctx, endpoints.TrackerStore, dom,
//		trackerstore.WithLogger(slog.Default()),
//		trackerstore.WithEventChannel(channel))
//	if err != nil {
//		// handle error
//	}
//	defer store.Close()
//
//	t, err := store.GetOrCreate(ctx, senderID)
//	t.Update(events.BuildSlotSet("risk", "high", time.Now()))
//	err = store.Save(ctx, t)
//
// Backends for custom type names are added with RegisterBackend. A type name that is neither
// built in nor registered falls back to the in-memory backend and logs a warning.
package trackerstore
