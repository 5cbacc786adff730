package sqlengine_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/testutil/helper"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/tracker"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore/sqlengine"
)

const (
	postgresDSNEnv = "TRACKERSTORE_TEST_POSTGRES_DSN"
	mysqlDSNEnv    = "TRACKERSTORE_TEST_MYSQL_DSN"
)

func givenSQLiteConfig(t *testing.T) config.StoreConfig {
	t.Helper()

	return config.StoreConfig{
		Type:    "sql",
		Dialect: config.DialectSQLite,
		DB:      filepath.Join(t.TempDir(), "trackers.db"),
	}
}

func givenSQLiteStore(t *testing.T, options ...sqlengine.Option) *sqlengine.Store {
	t.Helper()

	store, err := sqlengine.NewFromConfig(context.Background(), givenSQLiteConfig(t), options...)
	require.NoError(t, err, "error in arranging test data")
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func givenOpenSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open(config.DriverSQLite, filepath.Join(t.TempDir(), "trackers.db"))
	require.NoError(t, err, "error in arranging test data")
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func countRows(t *testing.T, db *sql.DB, query string) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(query).Scan(&n))

	return n
}

func Test_Persist_Then_Load(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(1_700_000_000, 0)
	store := givenSQLiteStore(t)

	evts := helper.FixtureConversation(fakeClock)
	trk := tracker.FromEvents("sender-1", evts, helper.FixtureDomain(t).NewSlots())

	// act
	require.NoError(t, store.Persist(ctx, trk, 0, 0))
	loaded, found, loadErr := store.Load(ctx, "sender-1")
	count, countErr := store.CountEvents(ctx, "sender-1")

	// assert
	require.NoError(t, loadErr)
	require.NoError(t, countErr)
	assert.True(t, found)
	assert.Equal(t, evts, loaded)
	assert.Equal(t, len(evts), count)
}

func Test_Load_UnknownSender(t *testing.T) {
	// setup
	store := givenSQLiteStore(t)

	// act
	loaded, found, err := store.Load(context.Background(), "nobody")
	count, countErr := store.CountEvents(context.Background(), "nobody")

	// assert
	require.NoError(t, err)
	require.NoError(t, countErr)
	assert.False(t, found)
	assert.Nil(t, loaded)
	assert.Zero(t, count)
}

func Test_Persist_AppendsOnlyEventsAfterOffset(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(1_700_000_000, 0)
	store := givenSQLiteStore(t)

	conversation := helper.FixtureConversation(fakeClock)
	trk := tracker.FromEvents("sender-1", conversation, helper.FixtureDomain(t).NewSlots())
	require.NoError(t, store.Persist(ctx, trk, 0, 0), "error in arranging test data")

	followUp := helper.FixtureFollowUp(fakeClock)
	for _, e := range followUp {
		trk.Update(e)
	}

	// act
	require.NoError(t, store.Persist(ctx, trk, len(conversation), 0))
	loaded, _, err := store.Load(ctx, "sender-1")

	// assert
	require.NoError(t, err)
	assert.Equal(t, append(conversation, followUp...), loaded)
}

func Test_Persist_WithUnchangedTracker_AddsNoRows(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(1_700_000_000, 0)
	store := givenSQLiteStore(t)

	evts := helper.FixtureConversation(fakeClock)
	trk := tracker.FromEvents("sender-1", evts, helper.FixtureDomain(t).NewSlots())
	require.NoError(t, store.Persist(ctx, trk, 0, 0), "error in arranging test data")

	// act
	require.NoError(t, store.Persist(ctx, trk, len(evts), 0))
	count, err := store.CountEvents(ctx, "sender-1")

	// assert
	require.NoError(t, err)
	assert.Equal(t, len(evts), count)
}

func Test_Persist_WritesDenormalizedColumns(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(1_700_000_000, 0)
	db := givenOpenSQLiteDB(t)

	store, err := sqlengine.NewFromSQLDB(db, sqlengine.WithDialect(config.DialectSQLite), sqlengine.WithTableName("dialogue_events"))
	require.NoError(t, err, "error in arranging test data")
	require.NoError(t, store.CreateTable(ctx), "error in arranging test data")

	trk := tracker.FromEvents("sender-1", helper.FixtureConversation(fakeClock), helper.FixtureDomain(t).NewSlots())

	// act
	require.NoError(t, store.Persist(ctx, trk, 0, 0))

	// assert
	assert.Equal(t, 8, countRows(t, db, "SELECT COUNT(*) FROM dialogue_events"))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM dialogue_events WHERE intent_name = 'order_pizza'"))
	assert.Equal(t, 3, countRows(t, db, "SELECT COUNT(*) FROM dialogue_events WHERE action_name IS NOT NULL"))
	assert.Equal(t, 5, countRows(t, db, "SELECT COUNT(*) FROM dialogue_events WHERE action_name IS NULL"))
	assert.Equal(t, 3, countRows(t, db, "SELECT COUNT(*) FROM dialogue_events WHERE type_name = '"+events.SlotSetEventType+"'"))

	var timestamp float64
	require.NoError(t, db.QueryRow("SELECT timestamp FROM dialogue_events ORDER BY id LIMIT 1").Scan(&timestamp))
	assert.Equal(t, events.ToTimestamp(fakeClock), timestamp)
}

func Test_Persist_KeepsQuotesInPayload(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(1_700_000_000, 0)
	store := givenSQLiteStore(t)

	trk := tracker.New("sender-1", helper.FixtureDomain(t).NewSlots())
	trk.Update(events.BuildBotUttered(`it's a "quoted" \ text`, nil, fakeClock))

	// act
	require.NoError(t, store.Persist(ctx, trk, 0, 0))
	loaded, _, err := store.Load(ctx, "sender-1")

	// assert
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, `it's a "quoted" \ text`, loaded[0].(events.BotUttered).Text)
}

func Test_Keys_YieldsDistinctSendersAcrossBatches(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(1_700_000_000, 0)
	store := givenSQLiteStore(t)

	expected := make([]string, 0, 150)
	for i := range 150 {
		senderID := "sender-" + strconv.Itoa(1000+i)
		expected = append(expected, senderID)

		trk := tracker.New(senderID, nil)
		trk.Update(events.BuildActionExecuted(events.ActionListenName, fakeClock))
		trk.Update(events.BuildActionExecuted(events.ActionListenName, fakeClock.Add(time.Second)))
		require.NoError(t, store.Persist(ctx, trk, 0, 0), "error in arranging test data")
	}

	// act
	keys := make([]string, 0)
	for key, err := range store.Keys(ctx) {
		require.NoError(t, err)
		keys = append(keys, key)
	}

	// assert
	sort.Strings(expected)
	assert.Equal(t, expected, keys)
}

func Test_Keys_StopsEarly(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(1_700_000_000, 0)
	store := givenSQLiteStore(t)

	for _, senderID := range []string{"a", "b", "c"} {
		trk := tracker.New(senderID, nil)
		trk.Update(events.BuildActionExecuted(events.ActionListenName, fakeClock))
		require.NoError(t, store.Persist(ctx, trk, 0, 0), "error in arranging test data")
	}

	// act
	keys := make([]string, 0)
	for key := range store.Keys(ctx) {
		keys = append(keys, key)
		if len(keys) == 2 {
			break
		}
	}

	// assert
	assert.Equal(t, []string{"a", "b"}, keys)
}

func Test_NewFromConfig_WithSQLXAdapter(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(1_700_000_000, 0)
	cfg := givenSQLiteConfig(t)
	cfg.Adapter = sqlengine.AdapterSQLX
	cfg.TableName = "conversation_events"

	// act
	store, err := sqlengine.NewFromConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	trk := tracker.FromEvents("sender-1", helper.FixtureConversation(fakeClock), nil)
	require.NoError(t, store.Persist(ctx, trk, 0, 0))

	// assert
	db, err := sqlx.Open(config.DriverSQLite, cfg.DB)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM conversation_events"))
	assert.Equal(t, 8, n)
}

func Test_NewFromConfig_ShouldFail(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(cfg *config.StoreConfig)
		expectedErr error
	}{
		{
			name:        "unsupported adapter",
			mutate:      func(cfg *config.StoreConfig) { cfg.Adapter = "odbc" },
			expectedErr: sqlengine.ErrUnsupportedAdapter,
		},
		{
			name:        "pgx on sqlite",
			mutate:      func(cfg *config.StoreConfig) { cfg.Adapter = sqlengine.AdapterPGX },
			expectedErr: sqlengine.ErrUnsupportedAdapter,
		},
		{
			name:        "invalid table name",
			mutate:      func(cfg *config.StoreConfig) { cfg.TableName = "events; DROP TABLE x" },
			expectedErr: sqlengine.ErrInvalidTableName,
		},
		{
			name:        "unsupported dialect",
			mutate:      func(cfg *config.StoreConfig) { cfg.Dialect = "oracle" },
			expectedErr: config.ErrUnsupportedDialect,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			cfg := givenSQLiteConfig(t)
			tc.mutate(&cfg)

			// act
			_, err := sqlengine.NewFromConfig(context.Background(), cfg)

			// assert
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func Test_NewFromConfig_ConfigErrorsAreInvalidConfig(t *testing.T) {
	// setup
	cfg := givenSQLiteConfig(t)
	cfg.Adapter = "odbc"

	// act
	_, err := sqlengine.NewFromConfig(context.Background(), cfg)

	// assert
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func Test_New_ShouldFail_WithNilConnection(t *testing.T) {
	_, pgxErr := sqlengine.NewFromPGXPool(nil)
	_, sqlErr := sqlengine.NewFromSQLDB(nil)
	_, sqlxErr := sqlengine.NewFromSQLX(nil)

	assert.ErrorIs(t, pgxErr, sqlengine.ErrNilDatabaseConnection)
	assert.ErrorIs(t, sqlErr, sqlengine.ErrNilDatabaseConnection)
	assert.ErrorIs(t, sqlxErr, sqlengine.ErrNilDatabaseConnection)
}

func Test_WithTableName_ShouldFail_WhenEmpty(t *testing.T) {
	// act
	_, err := sqlengine.NewFromSQLDB(givenOpenSQLiteDB(t), sqlengine.WithTableName(""))

	// assert
	assert.ErrorIs(t, err, sqlengine.ErrEmptyTableName)
}

func Test_Close_LeavesForeignConnectionOpen(t *testing.T) {
	// setup
	db := givenOpenSQLiteDB(t)
	store, err := sqlengine.NewFromSQLDB(db, sqlengine.WithDialect(config.DialectSQLite))
	require.NoError(t, err, "error in arranging test data")

	// act
	require.NoError(t, store.Close())

	// assert
	assert.NoError(t, db.Ping())
}

func Test_Postgres_PGXPool_Persist_Then_Load(t *testing.T) {
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", postgresDSNEnv)
	}

	// setup
	ctx := context.Background()
	fakeClock := time.Unix(1_700_000_000, 0)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "error in arranging test data")
	t.Cleanup(pool.Close)

	tableName := "events_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	store, err := sqlengine.NewFromPGXPool(pool, sqlengine.WithTableName(tableName))
	require.NoError(t, err, "error in arranging test data")
	require.NoError(t, store.CreateTable(ctx), "error in arranging test data")
	t.Cleanup(func() { _, _ = pool.Exec(ctx, "DROP TABLE "+tableName) })

	senderID := helper.GivenUniqueSenderID(t)
	evts := helper.FixtureConversation(fakeClock)

	// act
	require.NoError(t, store.Persist(ctx, tracker.FromEvents(senderID, evts, nil), 0, 0))
	loaded, found, loadErr := store.Load(ctx, senderID)

	// assert
	require.NoError(t, loadErr)
	assert.True(t, found)
	assert.Equal(t, evts, loaded)
}

func Test_MySQL_Persist_Then_Load(t *testing.T) {
	dsn := os.Getenv(mysqlDSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", mysqlDSNEnv)
	}

	// setup
	ctx := context.Background()
	fakeClock := time.Unix(1_700_000_000, 0)

	db, err := sqlx.Open(config.DriverMySQL, dsn)
	require.NoError(t, err, "error in arranging test data")
	t.Cleanup(func() { _ = db.Close() })

	tableName := "events_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	store, err := sqlengine.NewFromSQLX(db, sqlengine.WithTableName(tableName))
	require.NoError(t, err, "error in arranging test data")
	require.NoError(t, store.CreateTable(ctx), "error in arranging test data")
	t.Cleanup(func() { _, _ = db.Exec("DROP TABLE " + tableName) })

	senderID := helper.GivenUniqueSenderID(t)
	evts := helper.FixtureConversation(fakeClock)

	// act
	require.NoError(t, store.Persist(ctx, tracker.FromEvents(senderID, evts, nil), 0, 0))
	loaded, found, loadErr := store.Load(ctx, senderID)

	// assert
	require.NoError(t, loadErr)
	assert.True(t, found)
	assert.Equal(t, evts, loaded)
}
