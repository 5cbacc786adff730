package eventchannel_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/eventchannel"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/testutil/helper"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/tracker"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/trackerstore/memoryengine"
)

func givenSubscription(t *testing.T, client *redis.Client, channel string) *redis.PubSub {
	t.Helper()

	sub := client.Subscribe(context.Background(), channel)
	t.Cleanup(func() { _ = sub.Close() })

	_, err := sub.Receive(context.Background())
	require.NoError(t, err, "error in arranging test data")

	return sub
}

func receiveMessage(t *testing.T, sub *redis.PubSub) *redis.Message {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	return msg
}

func Test_RedisChannel_Publish(t *testing.T) {
	// setup
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sub := givenSubscription(t, client, "bot_events")

	channel, err := eventchannel.NewRedisChannel(client, eventchannel.WithChannel("bot_events"))
	require.NoError(t, err, "error in arranging test data")

	// act
	err = channel.Publish(context.Background(), map[string]any{"event": "action", "name": "action_listen", "sender_id": "s1"})

	// assert
	require.NoError(t, err)
	msg := receiveMessage(t, sub)
	assert.Equal(t, "bot_events", msg.Channel)
	assert.JSONEq(t, `{"event":"action","name":"action_listen","sender_id":"s1"}`, msg.Payload)
}

func Test_RedisChannel_UsesDefaultChannel(t *testing.T) {
	// setup
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sub := givenSubscription(t, client, eventchannel.DefaultRedisChannel)

	channel, err := eventchannel.NewRedisChannel(client, eventchannel.WithChannel(""))
	require.NoError(t, err, "error in arranging test data")

	// act
	require.NoError(t, channel.Publish(context.Background(), map[string]any{"event": "restart"}))

	// assert
	assert.Equal(t, eventchannel.DefaultRedisChannel, receiveMessage(t, sub).Channel)
}

func Test_RedisChannel_ShouldFail_WhenServerIsGone(t *testing.T) {
	// setup
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	channel, err := eventchannel.NewRedisChannel(client)
	require.NoError(t, err, "error in arranging test data")
	server.Close()

	// act
	err = channel.Publish(context.Background(), map[string]any{"event": "restart"})

	// assert
	assert.ErrorIs(t, err, eventchannel.ErrPublishingEventFailed)
}

func Test_NewRedisChannel_ShouldFail_WithNilClient(t *testing.T) {
	// act
	_, err := eventchannel.NewRedisChannel(nil)

	// assert
	assert.ErrorIs(t, err, eventchannel.ErrNilClient)
}

func Test_NewFromConfig(t *testing.T) {
	// setup
	ctx := context.Background()
	server := miniredis.RunT(t)

	testCases := []struct {
		name         string
		cfg          config.BrokerConfig
		expectNil    bool
		expectedErr  error
		expectedType any
	}{
		{name: "no broker", cfg: config.BrokerConfig{}, expectNil: true},
		{name: "redis", cfg: config.BrokerConfig{Type: "redis", Host: server.Addr(), Channel: "c"}, expectedType: &eventchannel.RedisChannel{}},
		{name: "log", cfg: config.BrokerConfig{Type: "LOG"}, expectedType: &eventchannel.LogChannel{}},
		{name: "kafka", cfg: config.BrokerConfig{Type: "kafka"}, expectNil: true, expectedErr: eventchannel.ErrUnsupportedBrokerType},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			channel, err := eventchannel.NewFromConfig(ctx, tc.cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

			// assert
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				require.NoError(t, err)
			}

			if tc.expectNil {
				assert.Nil(t, channel)
				return
			}

			t.Cleanup(func() { _ = channel.Close() })
			assert.IsType(t, tc.expectedType, channel)
		})
	}
}

func Test_NewFromConfig_UnsupportedTypeIsInvalidConfig(t *testing.T) {
	// act
	_, err := eventchannel.NewFromConfig(context.Background(), config.BrokerConfig{Type: "kafka"}, nil)

	// assert
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func Test_LogChannel_Publish(t *testing.T) {
	// setup
	var buf bytes.Buffer
	channel := eventchannel.NewLogChannel(slog.New(slog.NewJSONHandler(&buf, nil)))

	// act
	err := channel.Publish(context.Background(), map[string]any{"event": "pause", "sender_id": "s1"})

	// assert
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"sender_id":"s1"`)
	assert.Contains(t, buf.String(), `"msg":"event published"`)
}

func Test_Func_Publish(t *testing.T) {
	// setup
	errFailing := errors.New("failing")
	received := make([]map[string]any, 0)
	channel := eventchannel.Func(func(_ context.Context, event map[string]any) error {
		received = append(received, event)
		return errFailing
	})

	// act
	err := channel.Publish(context.Background(), map[string]any{"event": "resume"})

	// assert
	assert.ErrorIs(t, err, errFailing)
	assert.Equal(t, []map[string]any{{"event": "resume"}}, received)
}

func Test_RedisChannel_WithStore_PublishesNewEvents(t *testing.T) {
	// setup
	ctx := context.Background()
	fakeClock := time.Unix(1_700_000_000, 0)
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sub := givenSubscription(t, client, eventchannel.DefaultRedisChannel)

	channel, err := eventchannel.NewRedisChannel(client)
	require.NoError(t, err, "error in arranging test data")

	backend, err := memoryengine.New()
	require.NoError(t, err, "error in arranging test data")

	store, err := trackerstore.NewStore(backend, helper.FixtureDomain(t), trackerstore.WithEventChannel(channel))
	require.NoError(t, err, "error in arranging test data")

	trk := tracker.New("sender-1", helper.FixtureDomain(t).NewSlots())
	trk.Update(events.BuildActionExecuted(events.ActionListenName, fakeClock))
	trk.Update(events.BuildSlotSet("risk", "high", fakeClock.Add(time.Second)))

	// act
	require.NoError(t, store.Save(ctx, trk))

	// assert
	assert.JSONEq(t, `{"event":"action","timestamp":1700000000,"name":"action_listen","sender_id":"sender-1"}`, receiveMessage(t, sub).Payload)
	assert.JSONEq(t, `{"event":"slot","timestamp":1700000001,"name":"risk","value":"high","sender_id":"sender-1"}`, receiveMessage(t, sub).Payload)
}
