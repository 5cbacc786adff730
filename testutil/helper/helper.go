package helper

import (
	"iter"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/tracker"
)

// GivenFakeClock returns the fixed point in time the fixtures are built around.
func GivenFakeClock() time.Time {
	return time.Unix(1_700_000_000, 0)
}

// GivenTrackerWithEvents replays evts into a tracker with the slots of the fixture domain.
func GivenTrackerWithEvents(t testing.TB, senderID string, evts events.Events) *tracker.DialogueStateTracker {
	t.Helper()

	return tracker.FromEvents(senderID, evts, FixtureDomain(t).NewSlots())
}

// GivenConversationTracker returns a tracker holding FixtureConversation.
func GivenConversationTracker(t testing.TB, senderID string, fakeClock time.Time) *tracker.DialogueStateTracker {
	t.Helper()

	return GivenTrackerWithEvents(t, senderID, FixtureConversation(fakeClock))
}

// AppendFollowUp updates trk with FixtureFollowUp and returns the appended events.
func AppendFollowUp(trk *tracker.DialogueStateTracker, fakeClock time.Time) events.Events {
	followUp := FixtureFollowUp(fakeClock)
	for _, e := range followUp {
		trk.Update(e)
	}

	return followUp
}

// CollectKeys drains a key sequence and returns the keys sorted.
func CollectKeys(t testing.TB, keys iter.Seq2[string, error]) []string {
	t.Helper()

	collected := make([]string, 0)
	for key, err := range keys {
		require.NoError(t, err)
		collected = append(collected, key)
	}

	sort.Strings(collected)

	return collected
}

// ReplayedSlotValues returns the slot values a fresh replay of evts yields with the fixture domain.
func ReplayedSlotValues(t testing.TB, evts events.Events) map[string]any {
	t.Helper()

	return GivenTrackerWithEvents(t, "replay", evts).SlotValues()
}
