package redisengine_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/testutil/helper"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/tracker"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore/redisengine"
)

func givenRedisStore(t *testing.T, options ...redisengine.Option) (*redisengine.Store, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := redisengine.New(client, options...)
	require.NoError(t, err, "error in arranging test data")

	return store, server
}

func Test_Persist_Then_Load(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(1_700_000_000, 0)
	store, _ := givenRedisStore(t)

	senderID := helper.GivenUniqueSenderID(t)
	evts := helper.FixtureConversation(fakeClock)
	trk := tracker.FromEvents(senderID, evts, helper.FixtureDomain(t).NewSlots())

	// act
	require.NoError(t, store.Persist(ctx, trk, 0, 0))
	loaded, found, loadErr := store.Load(ctx, senderID)
	count, countErr := store.CountEvents(ctx, senderID)

	// assert
	require.NoError(t, loadErr)
	require.NoError(t, countErr)
	assert.True(t, found)
	assert.Equal(t, evts, loaded)
	assert.Equal(t, len(evts), count)
}

func Test_Load_UnknownSender(t *testing.T) {
	// setup
	store, _ := givenRedisStore(t)

	// act
	loaded, found, err := store.Load(context.Background(), "nobody")

	// assert
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, loaded)
}

func Test_Persist_UsesKeyPrefix(t *testing.T) {
	// setup
	ctx := context.Background()
	store, server := givenRedisStore(t, redisengine.WithKeyPrefix("tracker:"))

	// act
	require.NoError(t, store.Persist(ctx, tracker.New("sender-1", nil), 0, 0))

	// assert
	assert.True(t, server.Exists("tracker:sender-1"))
	assert.False(t, server.Exists("sender-1"))
}

func Test_Persist_Expiration(t *testing.T) {
	testCases := []struct {
		name              string
		defaultExpiration time.Duration
		callExpiration    time.Duration
		expectedTTL       time.Duration
	}{
		{name: "no expiration", expectedTTL: 0},
		{name: "store default", defaultExpiration: time.Hour, expectedTTL: time.Hour},
		{name: "per call wins", defaultExpiration: time.Hour, callExpiration: time.Minute, expectedTTL: time.Minute},
		{name: "per call without default", callExpiration: 30 * time.Second, expectedTTL: 30 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			store, server := givenRedisStore(t, redisengine.WithDefaultExpiration(tc.defaultExpiration))

			// act
			require.NoError(t, store.Persist(context.Background(), tracker.New("sender-1", nil), 0, tc.callExpiration))

			// assert
			assert.Equal(t, tc.expectedTTL, server.TTL("sender-1"))
		})
	}
}

func Test_Persist_RecordExpires(t *testing.T) {
	// setup
	ctx := context.Background()
	store, server := givenRedisStore(t)
	require.NoError(t, store.Persist(ctx, tracker.New("sender-1", nil), 0, time.Minute))

	// act
	server.FastForward(2 * time.Minute)
	_, found, err := store.Load(ctx, "sender-1")

	// assert
	require.NoError(t, err)
	assert.False(t, found)
}

func Test_Keys_StripsPrefix(t *testing.T) {
	// setup
	ctx := context.Background()
	store, server := givenRedisStore(t, redisengine.WithKeyPrefix("tracker:"))
	require.NoError(t, server.Set("unrelated", "value"))

	for _, senderID := range []string{"a", "b", "c"} {
		require.NoError(t, store.Persist(ctx, tracker.New(senderID, nil), 0, 0))
	}

	// act
	keys := make([]string, 0)
	for key, err := range store.Keys(ctx) {
		require.NoError(t, err)
		keys = append(keys, key)
	}

	// assert
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func Test_NewFromConfig(t *testing.T) {
	// setup
	ctx := context.Background()
	server := miniredis.RunT(t)
	cfg := config.StoreConfig{Type: "redis", Host: server.Addr(), KeyPrefix: "bot:", RecordExp: 60}

	// act
	store, err := redisengine.NewFromConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Persist(ctx, tracker.New("sender-1", nil), 0, 0))

	// assert
	assert.Equal(t, time.Minute, server.TTL("bot:sender-1"))
}

func Test_NewFromConfig_ShouldFail_WhenServerIsDown(t *testing.T) {
	// setup
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	// act
	_, err := redisengine.NewFromConfig(context.Background(), config.StoreConfig{Host: addr})

	// assert
	assert.ErrorIs(t, err, redisengine.ErrPingFailed)
}

func Test_New_ShouldFail_WithNilClient(t *testing.T) {
	// act
	_, err := redisengine.New(nil)

	// assert
	assert.ErrorIs(t, err, redisengine.ErrNilClient)
}
