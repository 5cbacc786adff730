// Package adapters provide database adapter implementations for the SQL tracker store.
//
// The sql backend can run on a pgxpool.Pool, a sql.DB, or a sqlx.DB. Every adapter offers
// the same DBAdapter interface, so the store builds its SQL once and executes it on whatever
// connection type it was created with.
package adapters
