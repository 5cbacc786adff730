// Package sqlengine provides the relational tracker store backend.
//
// Every event is one row of an append-only table, "events" by default:
//
//	id            auto increment, defines the replay order
//	sender_id     conversation the event belongs to
//	type_name     event type, e.g. "slot" or "user"
//	timestamp     seconds since the epoch
//	intent_name   intent of user events, NULL otherwise
//	action_name   action of action events, NULL otherwise
//	payload_json  full serialized event
//
// A save only inserts the events that were appended since the previous save of the sender id,
// so repeated saves of the same tracker never duplicate rows.
//
// PostgreSQL, MySQL, and SQLite are supported. The store runs on a pgxpool.Pool, a sql.DB, or a
// sqlx.DB; NewFromConfig opens the connection described by a config.StoreConfig and creates the
// table if it does not exist.
//
// Usage:
//
//	store, err := sqlengine.NewFromSQLDB(db, sqlengine.WithDialect(config.DialectSQLite))
//	if err != nil {
//		return err
//	}
//
//	if err = store.CreateTable(ctx); err != nil {
//		return err
//	}
package sqlengine
