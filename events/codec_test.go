package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
)

func Test_FromJSON_RebuildsEveryEventType(t *testing.T) {
	// setup
	fakeClock := time.Unix(1700000000, 500000000).UTC()
	confidence := 0.87

	action := events.BuildActionExecuted("utter_greet", fakeClock)
	action.Policy = "policy_2_MemoizationPolicy"
	action.Confidence = &confidence

	testCases := []struct {
		name  string
		event events.Event
	}{
		{name: "action", event: action},
		{name: "slot", event: events.BuildSlotSet("city", "Berlin", fakeClock)},
		{name: "slot without value", event: events.BuildSlotSet("city", nil, fakeClock)},
		{name: "user", event: events.BuildUserUttered(
			"I want to fly to Berlin",
			events.Intent{Name: "book_flight", Confidence: 0.93},
			[]map[string]any{{"entity": "city", "value": "Berlin"}},
			fakeClock,
		)},
		{name: "user without entities", event: events.BuildUserUttered("hi", events.Intent{Name: "greet", Confidence: 1}, nil, fakeClock)},
		{name: "bot", event: events.BuildBotUttered("Hello!", map[string]any{"buttons": []any{"yes", "no"}}, fakeClock)},
		{name: "bot without data", event: events.BuildBotUttered("Hello!", nil, fakeClock)},
		{name: "restart", event: events.BuildRestarted(fakeClock)},
		{name: "reset slots", event: events.BuildAllSlotsReset(fakeClock)},
		{name: "pause", event: events.BuildConversationPaused(fakeClock)},
		{name: "resume", event: events.BuildConversationResumed(fakeClock)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			data, err := events.ToJSON(tc.event)
			require.NoError(t, err)

			// act
			rebuilt, err := events.FromJSON(data)

			// assert
			require.NoError(t, err)
			assert.Equal(t, tc.event, rebuilt)
		})
	}
}

func Test_FromJSON_ShouldFail_WithUnknownEventType(t *testing.T) {
	// act
	_, unknownErr := events.FromJSON([]byte(`{"event": "followup", "timestamp": 1}`))
	_, missingErr := events.FromJSON([]byte(`{"timestamp": 1}`))

	// assert
	assert.ErrorIs(t, unknownErr, events.ErrUnknownEventType)
	assert.ErrorContains(t, unknownErr, "followup")
	assert.ErrorIs(t, missingErr, events.ErrUnknownEventType)
}

func Test_FromJSON_ShouldFail_WithInvalidJSON(t *testing.T) {
	// act
	_, err := events.FromJSON([]byte(`{"event": `))

	// assert
	assert.ErrorIs(t, err, events.ErrInvalidEventJSON)
}

func Test_AsMap_ContainsTypeAndTimestamp(t *testing.T) {
	// setup
	fakeClock := time.Unix(1700000000, 0).UTC()

	// act
	m := events.BuildSlotSet("city", "Berlin", fakeClock).AsMap()

	// assert
	assert.Equal(t, map[string]any{
		"event":     "slot",
		"timestamp": 1700000000.0,
		"name":      "city",
		"value":     "Berlin",
	}, m)
}

func Test_FromMap_RebuildsEvent(t *testing.T) {
	// setup
	fakeClock := time.Unix(1700000000, 0).UTC()
	original := events.BuildActionExecuted(events.ActionListenName, fakeClock)

	// act
	rebuilt, err := events.FromMap(original.AsMap())

	// assert
	require.NoError(t, err)
	assert.Equal(t, original, rebuilt)
}

func Test_ManyFromJSON_KeepsOrder(t *testing.T) {
	// setup
	fakeClock := time.Unix(1700000000, 0).UTC()
	original := events.Events{
		events.BuildActionExecuted(events.ActionListenName, fakeClock),
		events.BuildUserUttered("hi", events.Intent{Name: "greet", Confidence: 1}, nil, fakeClock.Add(time.Second)),
		events.BuildSlotSet("name", "Ada", fakeClock.Add(2*time.Second)),
		events.BuildBotUttered("Hi Ada", nil, fakeClock.Add(3*time.Second)),
	}

	data, err := events.ManyToJSON(original)
	require.NoError(t, err)

	// act
	rebuilt, err := events.ManyFromJSON(data)

	// assert
	require.NoError(t, err)
	assert.Equal(t, original, rebuilt)
}

func Test_DenormalizedNames(t *testing.T) {
	// setup
	fakeClock := time.Unix(1700000000, 0).UTC()
	user := events.BuildUserUttered("hi", events.Intent{Name: "greet", Confidence: 1}, nil, fakeClock)
	action := events.BuildActionExecuted("utter_greet", fakeClock)
	slot := events.BuildSlotSet("name", "Ada", fakeClock)

	// act + assert
	assert.Equal(t, "greet", events.IntentName(user))
	assert.Equal(t, "", events.ActionName(user))
	assert.Equal(t, "utter_greet", events.ActionName(action))
	assert.Equal(t, "", events.IntentName(action))
	assert.Equal(t, "", events.ActionName(slot))
}

func Test_ToTimestamp_HasMicrosecondPrecision(t *testing.T) {
	// setup
	fakeClock := time.Unix(1700000000, 123456789).UTC()

	// act
	ts := events.ToTimestamp(fakeClock)

	// assert
	assert.InDelta(t, 1700000000.123456, ts, 1e-6)
}
