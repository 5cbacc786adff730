package helper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/domain"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
)

// FixtureDomainYAML declares one slot of every built-in type.
const FixtureDomainYAML = `
slots:
  temperature:
    type: float
    min_value: 0
    max_value: 100
  risk:
    type: categorical
    values: [low, medium, high]
  confirmed:
    type: bool
  name:
    type: text
  toppings:
    type: list
  notes:
    type: unfeaturized
`

// GivenUniqueSenderID returns a fresh sender id.
func GivenUniqueSenderID(t testing.TB) string {
	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return id.String()
}

// FixtureDomain returns the domain declared by FixtureDomainYAML.
func FixtureDomain(t testing.TB) *domain.Domain {
	d, err := domain.Load([]byte(FixtureDomainYAML))
	require.NoError(t, err, "error in arranging test data")

	return d
}

// FixtureConversation returns a short conversation which sets some slots of the fixture domain.
func FixtureConversation(fakeClock time.Time) events.Events {
	return events.Events{
		events.BuildActionExecuted(events.ActionListenName, fakeClock),
		events.BuildUserUttered(
			"I'd like a hot pizza with olives",
			events.Intent{Name: "order_pizza", Confidence: 0.91},
			[]map[string]any{{"entity": "topping", "value": "olives"}},
			fakeClock.Add(1*time.Second),
		),
		events.BuildSlotSet("temperature", 50.0, fakeClock.Add(2*time.Second)),
		events.BuildSlotSet("toppings", []any{"olives"}, fakeClock.Add(3*time.Second)),
		events.BuildSlotSet("risk", "medium", fakeClock.Add(4*time.Second)),
		events.BuildActionExecuted("utter_confirm_order", fakeClock.Add(5*time.Second)),
		events.BuildBotUttered("One hot pizza with olives?", nil, fakeClock.Add(6*time.Second)),
		events.BuildActionExecuted(events.ActionListenName, fakeClock.Add(7*time.Second)),
	}
}

// FixtureFollowUp returns events continuing FixtureConversation.
func FixtureFollowUp(fakeClock time.Time) events.Events {
	return events.Events{
		events.BuildUserUttered("yes", events.Intent{Name: "affirm", Confidence: 0.99}, nil, fakeClock),
		events.BuildSlotSet("confirmed", true, fakeClock.Add(1*time.Second)),
		events.BuildActionExecuted("utter_order_placed", fakeClock.Add(2*time.Second)),
	}
}
