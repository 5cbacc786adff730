package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // goqu MySQL dialect
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // goqu PostgreSQL dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // goqu SQLite dialect
	_ "github.com/go-sql-driver/mysql"                  // database/sql driver "mysql"
	_ "github.com/lib/pq"                               // database/sql driver "postgres"
	_ "modernc.org/sqlite"                              // database/sql driver "sqlite"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/tracker"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore/sqlengine/internal/adapters"
)

// Adapter names accepted in the adapter field of a store configuration.
const (
	AdapterPGX  = "pgx"
	AdapterSQL  = "sql"
	AdapterSQLX = "sqlx"
)

const (
	defaultTableName = "events"
	keysBatchSize    = 100

	colID          = "id"
	colSenderID    = "sender_id"
	colTypeName    = "type_name"
	colTimestamp   = "timestamp"
	colIntentName  = "intent_name"
	colActionName  = "action_name"
	colPayloadJSON = "payload_json"

	goquDialectPostgres = "postgres"
	goquDialectMySQL    = "mysql"
	goquDialectSQLite   = "sqlite3"
)

const (
	logMsgBuildQueryFailed  = "failed to build query"
	logMsgQueryFailed       = "database query failed"
	logMsgScanFailed        = "database row scan failed"
	logMsgCloseRowsFailed   = "failed to close database rows"
	logMsgDecodeEventFailed = "stored event could not be decoded"
	logMsgCreateTableFailed = "creating events table failed"
	logMsgEventsAppended    = "events appended"
	logMsgNothingToAppend   = "no new events to append"
	logMsgConnected         = "connected to sql database"
	logMsgSQLExecuted       = "executed sql"
	logAttrSenderID         = "sender_id"
	logAttrEventCount       = "event_count"
	logAttrOffset           = "offset"
	logAttrQuery            = "query"
	logAttrAction           = "action"
	logAttrDurationMS       = "duration_ms"
	logAttrDialect          = "dialect"
	logAttrAdapter          = "adapter"
	logAttrTable            = "table"
	logAttrError            = "error"
	logActionLoad           = "load"
	logActionCount          = "count"
	logActionAppend         = "append"
	logActionKeys           = "keys"
	logActionSchema         = "schema"
)

var (
	// ErrNilDatabaseConnection is returned when a Store is created without a database connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned when an empty table name is configured.
	ErrEmptyTableName = errors.New("table name must not be empty")

	// ErrInvalidTableName is returned when a table name is not a plain SQL identifier.
	ErrInvalidTableName = errors.New("table name must be a plain sql identifier")

	// ErrUnsupportedAdapter is returned for adapters other than pgx, sql, sqlx, or pgx on a non-PostgreSQL dialect.
	ErrUnsupportedAdapter = errors.New("unsupported database adapter")

	// ErrPingFailed is returned when the database does not answer a ping.
	ErrPingFailed = errors.New("database ping failed")

	// ErrBuildingQueryFailed is returned when goqu can't render a query.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrQueryingEventsFailed is returned when reading events fails.
	ErrQueryingEventsFailed = errors.New("querying events failed")

	// ErrScanningRowFailed is returned when a result row can't be scanned.
	ErrScanningRowFailed = errors.New("scanning db row failed")

	// ErrAppendingEventsFailed is returned when inserting events fails.
	ErrAppendingEventsFailed = errors.New("appending events failed")

	// ErrCreatingTableFailed is returned when the events table can't be created.
	ErrCreatingTableFailed = errors.New("creating events table failed")
)

// Logger interface for SQL query logging, operations, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Store appends events to a relational table and replays them in insertion order.
type Store struct {
	db        adapters.DBAdapter
	dialect   string
	tableName string
	ownsDB    bool
	logger    Logger
}

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithLogger sets the logger for the Store.
func WithLogger(logger Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithTableName sets the events table, "events" by default.
func WithTableName(tableName string) Option {
	return func(s *Store) error {
		if err := validateTableName(tableName); err != nil {
			return err
		}

		s.tableName = tableName

		return nil
	}
}

// WithDialect selects the SQL dialect, see config.StoreConfig.NormalizedDialect for accepted names.
func WithDialect(dialect string) Option {
	return func(s *Store) error {
		normalized, err := config.StoreConfig{Dialect: dialect}.NormalizedDialect()
		if err != nil {
			return err
		}

		s.dialect = normalized

		return nil
	}
}

// NewFromPGXPool creates a PostgreSQL Store on a pgx connection pool.
// Close leaves the pool open.
func NewFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	s, err := newStore(adapters.NewPGXAdapter(db), config.DialectPostgres, options...)
	if err != nil {
		return nil, err
	}

	if s.dialect != config.DialectPostgres {
		return nil, errors.Join(ErrUnsupportedAdapter, fmt.Errorf("adapter %q with dialect %q", AdapterPGX, s.dialect))
	}

	return s, nil
}

// NewFromSQLDB creates a Store on a database/sql connection.
// The dialect is PostgreSQL unless WithDialect selects another one. Close leaves the connection open.
func NewFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), config.DialectPostgres, options...)
}

// NewFromSQLX creates a Store on a sqlx connection.
// The dialect follows the driver name of the connection unless WithDialect selects one. Close leaves the connection open.
func NewFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	dialect, err := config.StoreConfig{Dialect: db.DriverName()}.NormalizedDialect()
	if err != nil {
		dialect = config.DialectPostgres
	}

	return newStore(adapters.NewSQLXAdapter(db), dialect, options...)
}

func newStore(db adapters.DBAdapter, dialect string, options ...Option) (*Store, error) {
	s := &Store{
		db:        db,
		dialect:   dialect,
		tableName: defaultTableName,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// NewFromConfig opens the database described by cfg, pings it, and creates the events table if needed.
//
// The adapter defaults to pgx for PostgreSQL and to database/sql for MySQL and SQLite.
// The Store owns the connection and Close closes it.
func NewFromConfig(ctx context.Context, cfg config.StoreConfig, options ...Option) (*Store, error) {
	dialect, err := cfg.NormalizedDialect()
	if err != nil {
		return nil, err
	}

	driverName, dsn, err := cfg.SQLDSN()
	if err != nil {
		return nil, err
	}

	adapter := strings.ToLower(cfg.Adapter)
	if adapter == "" {
		adapter = AdapterSQL
		if dialect == config.DialectPostgres {
			adapter = AdapterPGX
		}
	}

	configured := []Option{WithDialect(dialect)}
	if cfg.TableName != "" {
		configured = append(configured, WithTableName(cfg.TableName))
	}

	options = append(configured, options...)

	s, err := openStore(ctx, adapter, dialect, driverName, dsn, options...)
	if err != nil {
		if errors.Is(err, ErrEmptyTableName) || errors.Is(err, ErrInvalidTableName) || errors.Is(err, ErrUnsupportedAdapter) {
			return nil, errors.Join(config.ErrInvalidConfig, err)
		}

		return nil, err
	}

	s.ownsDB = true

	if pingErr := s.db.Ping(ctx); pingErr != nil {
		_ = s.db.Close()
		return nil, errors.Join(ErrPingFailed, pingErr)
	}

	if tableErr := s.CreateTable(ctx); tableErr != nil {
		_ = s.db.Close()
		return nil, tableErr
	}

	if s.logger != nil {
		s.logger.Info(logMsgConnected, logAttrDialect, s.dialect, logAttrAdapter, adapter, logAttrTable, s.tableName)
	}

	return s, nil
}

func openStore(ctx context.Context, adapter, dialect, driverName, dsn string, options ...Option) (*Store, error) {
	switch adapter {
	case AdapterPGX:
		if dialect != config.DialectPostgres {
			return nil, errors.Join(ErrUnsupportedAdapter, fmt.Errorf("adapter %q with dialect %q", adapter, dialect))
		}

		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, err
		}

		s, err := NewFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, err
		}

		return s, nil

	case AdapterSQL:
		db, err := sql.Open(driverName, dsn)
		if err != nil {
			return nil, err
		}

		if dialect == config.DialectSQLite {
			db.SetMaxOpenConns(1)
		}

		s, err := NewFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, err
		}

		return s, nil

	case AdapterSQLX:
		db, err := sqlx.Open(driverName, dsn)
		if err != nil {
			return nil, err
		}

		if dialect == config.DialectSQLite {
			db.SetMaxOpenConns(1)
		}

		s, err := NewFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, err
		}

		return s, nil
	}

	return nil, errors.Join(ErrUnsupportedAdapter, fmt.Errorf("adapter %q", adapter))
}

// Load returns all events of senderID ordered by insertion.
func (s *Store) Load(ctx context.Context, senderID string) (events.Events, bool, error) {
	sqlQuery, _, err := s.builder().
		From(goqu.T(s.tableName)).
		Select(goqu.C(colPayloadJSON)).
		Where(goqu.C(colSenderID).Eq(senderID)).
		Order(goqu.C(colID).Asc()).
		ToSQL()

	if err != nil {
		s.logError(logMsgBuildQueryFailed, err, senderID)
		return nil, false, errors.Join(ErrBuildingQueryFailed, err)
	}

	rows, err := s.executeQuery(ctx, sqlQuery, logActionLoad)
	if err != nil {
		s.logError(logMsgQueryFailed, err, senderID)
		return nil, false, errors.Join(ErrQueryingEventsFailed, err)
	}
	defer s.closeRows(rows)

	evts, err := s.processLoadResults(rows, senderID)
	if err != nil {
		return nil, false, err
	}

	if len(evts) == 0 {
		return nil, false, nil
	}

	return evts, true, nil
}

func (s *Store) processLoadResults(rows adapters.DBRows, senderID string) (events.Events, error) {
	evts := make(events.Events, 0)

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			s.logError(logMsgScanFailed, err, senderID)
			return nil, errors.Join(ErrScanningRowFailed, err)
		}

		e, err := events.FromJSON([]byte(payload))
		if err != nil {
			s.logError(logMsgDecodeEventFailed, err, senderID)
			return nil, err
		}

		evts = append(evts, e)
	}

	if err := rows.Err(); err != nil {
		s.logError(logMsgQueryFailed, err, senderID)
		return nil, errors.Join(ErrQueryingEventsFailed, err)
	}

	return evts, nil
}

// CountEvents returns the number of stored rows of senderID.
func (s *Store) CountEvents(ctx context.Context, senderID string) (int, error) {
	sqlQuery, _, err := s.builder().
		From(goqu.T(s.tableName)).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C(colSenderID).Eq(senderID)).
		ToSQL()

	if err != nil {
		s.logError(logMsgBuildQueryFailed, err, senderID)
		return 0, errors.Join(ErrBuildingQueryFailed, err)
	}

	rows, err := s.executeQuery(ctx, sqlQuery, logActionCount)
	if err != nil {
		s.logError(logMsgQueryFailed, err, senderID)
		return 0, errors.Join(ErrQueryingEventsFailed, err)
	}
	defer s.closeRows(rows)

	var count int64
	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			s.logError(logMsgScanFailed, scanErr, senderID)
			return 0, errors.Join(ErrScanningRowFailed, scanErr)
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return 0, errors.Join(ErrQueryingEventsFailed, rowsErr)
	}

	return int(count), nil
}

// Persist inserts t.EventsAfter(offset) as new rows within one statement.
// Rows of earlier saves are never touched, the expiration is not supported and ignored.
func (s *Store) Persist(ctx context.Context, t *tracker.DialogueStateTracker, offset int, _ time.Duration) error {
	newEvents := t.EventsAfter(offset)
	if len(newEvents) == 0 {
		if s.logger != nil {
			s.logger.Debug(logMsgNothingToAppend, logAttrSenderID, t.SenderID(), logAttrOffset, offset)
		}

		return nil
	}

	rows := make([]any, 0, len(newEvents))
	for _, e := range newEvents {
		payload, err := events.ToJSON(e)
		if err != nil {
			return errors.Join(ErrAppendingEventsFailed, err)
		}

		rows = append(rows, goqu.Record{
			colSenderID:    t.SenderID(),
			colTypeName:    e.EventType(),
			colTimestamp:   e.HasOccurredAt(),
			colIntentName:  nullable(events.IntentName(e)),
			colActionName:  nullable(events.ActionName(e)),
			colPayloadJSON: string(payload),
		})
	}

	sqlQuery, _, err := s.builder().Insert(goqu.T(s.tableName)).Rows(rows...).ToSQL()
	if err != nil {
		s.logError(logMsgBuildQueryFailed, err, t.SenderID())
		return errors.Join(ErrBuildingQueryFailed, err)
	}

	if _, err = s.executeStatement(ctx, sqlQuery); err != nil {
		s.logError(logMsgQueryFailed, err, t.SenderID())
		return errors.Join(ErrAppendingEventsFailed, err)
	}

	if s.logger != nil {
		s.logger.Debug(logMsgEventsAppended, logAttrSenderID, t.SenderID(), logAttrOffset, offset, logAttrEventCount, len(newEvents))
	}

	return nil
}

// nullable turns an empty string into SQL NULL.
func nullable(value string) any {
	if value == "" {
		return nil
	}

	return value
}

// Keys yields every distinct sender id in ascending order, fetching them in batches.
// No connection is held while the caller processes a key.
func (s *Store) Keys(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		after, first := "", true

		for {
			batch, err := s.keysBatch(ctx, after, first)
			if err != nil {
				yield("", err)
				return
			}

			for _, senderID := range batch {
				if !yield(senderID, nil) {
					return
				}
			}

			if len(batch) < keysBatchSize {
				return
			}

			after, first = batch[len(batch)-1], false
		}
	}
}

func (s *Store) keysBatch(ctx context.Context, after string, first bool) ([]string, error) {
	query := s.builder().
		From(goqu.T(s.tableName)).
		Select(goqu.C(colSenderID)).
		Distinct().
		Order(goqu.C(colSenderID).Asc()).
		Limit(keysBatchSize)

	if !first {
		query = query.Where(goqu.C(colSenderID).Gt(after))
	}

	sqlQuery, _, err := query.ToSQL()
	if err != nil {
		s.logError(logMsgBuildQueryFailed, err, "")
		return nil, errors.Join(ErrBuildingQueryFailed, err)
	}

	rows, err := s.executeQuery(ctx, sqlQuery, logActionKeys)
	if err != nil {
		s.logError(logMsgQueryFailed, err, "")
		return nil, errors.Join(ErrQueryingEventsFailed, err)
	}
	defer s.closeRows(rows)

	batch := make([]string, 0, keysBatchSize)
	for rows.Next() {
		var senderID string
		if scanErr := rows.Scan(&senderID); scanErr != nil {
			s.logError(logMsgScanFailed, scanErr, "")
			return nil, errors.Join(ErrScanningRowFailed, scanErr)
		}

		batch = append(batch, senderID)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(ErrQueryingEventsFailed, rowsErr)
	}

	return batch, nil
}

// Close closes the database connection if the Store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}

	return s.db.Close()
}

func (s *Store) builder() goqu.DialectWrapper {
	switch s.dialect {
	case config.DialectMySQL:
		return goqu.Dialect(goquDialectMySQL)
	case config.DialectSQLite:
		return goqu.Dialect(goquDialectSQLite)
	default:
		return goqu.Dialect(goquDialectPostgres)
	}
}

// executeQuery runs a query and logs it with its duration.
func (s *Store) executeQuery(ctx context.Context, sqlQuery, action string) (adapters.DBRows, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx, sqlQuery)
	s.logQueryWithDuration(sqlQuery, action, time.Since(start))

	return rows, err
}

func (s *Store) executeStatement(ctx context.Context, sqlQuery string) (adapters.DBResult, error) {
	action := logActionAppend
	if strings.HasPrefix(sqlQuery, "CREATE") {
		action = logActionSchema
	}

	start := time.Now()
	result, err := s.db.Exec(ctx, sqlQuery)
	s.logQueryWithDuration(sqlQuery, action, time.Since(start))

	return result, err
}

func (s *Store) closeRows(rows adapters.DBRows) {
	if err := rows.Close(); err != nil && s.logger != nil {
		s.logger.Warn(logMsgCloseRowsFailed, logAttrError, err.Error())
	}
}

func (s *Store) logQueryWithDuration(sqlQuery, action string, duration time.Duration) {
	if s.logger != nil {
		s.logger.Debug(
			logMsgSQLExecuted,
			logAttrAction, action,
			logAttrQuery, sqlQuery,
			logAttrDurationMS, float64(duration.Nanoseconds())/1e6,
		)
	}
}

func (s *Store) logError(msg string, err error, senderID string) {
	if s.logger != nil {
		s.logger.Error(msg, logAttrError, err.Error(), logAttrSenderID, senderID)
	}
}
