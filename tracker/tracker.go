package tracker

import (
	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/slots"
)

const (
	stateKeySenderID         = "sender_id"
	stateKeySlotValues       = "slot_values"
	stateKeyLatestMessage    = "latest_message"
	stateKeyLatestEventTime  = "latest_event_time"
	stateKeyLatestActionName = "latest_action_name"
	stateKeyPaused           = "paused"
	stateKeyEvents           = "events"
)

// DialogueStateTracker is the aggregate for one sender id:
// the ordered events of a conversation plus the slot state derived from them.
type DialogueStateTracker struct {
	senderID         string
	events           events.Events
	slots            []slots.Slot
	slotsByName      map[string]slots.Slot
	latestMessage    *events.UserUttered
	latestActionName string
	paused           bool
}

// New creates a tracker without events. All slots are reset to their initial values.
//
// The tracker takes ownership of the given slots, they must not be shared with another tracker.
func New(senderID string, slotList []slots.Slot) *DialogueStateTracker {
	t := &DialogueStateTracker{
		senderID:    senderID,
		events:      make(events.Events, 0),
		slots:       slotList,
		slotsByName: make(map[string]slots.Slot, len(slotList)),
	}

	for _, slot := range slotList {
		slot.Reset()
		t.slotsByName[slot.Name()] = slot
	}

	return t
}

// FromEvents replays evts, in order, onto freshly seeded slots.
func FromEvents(senderID string, evts events.Events, slotList []slots.Slot) *DialogueStateTracker {
	t := New(senderID, slotList)

	for _, e := range evts {
		t.Update(e)
	}

	return t
}

// Update appends an event and applies it to the tracker state.
func (t *DialogueStateTracker) Update(e events.Event) {
	t.events = append(t.events, e)
	t.apply(e)
}

func (t *DialogueStateTracker) apply(e events.Event) {
	switch ev := e.(type) {
	case events.SlotSet:
		if slot, ok := t.slotsByName[ev.Key]; ok {
			slot.SetValue(ev.Value)
		}

	case events.ActionExecuted:
		t.latestActionName = ev.Name

	case events.UserUttered:
		t.latestMessage = &ev

	case events.Restarted:
		t.resetSlots()
		t.latestMessage = nil
		t.latestActionName = ""
		t.paused = false

	case events.AllSlotsReset:
		t.resetSlots()

	case events.ConversationPaused:
		t.paused = true

	case events.ConversationResumed:
		t.paused = false
	}
}

func (t *DialogueStateTracker) resetSlots() {
	for _, slot := range t.slots {
		slot.Reset()
	}
}

// SenderID returns the id of the conversation.
func (t *DialogueStateTracker) SenderID() string {
	return t.senderID
}

// Events returns a copy of all events in order.
func (t *DialogueStateTracker) Events() events.Events {
	evts := make(events.Events, len(t.events))
	copy(evts, t.events)

	return evts
}

// EventCount returns the number of events.
func (t *DialogueStateTracker) EventCount() int {
	return len(t.events)
}

// EventsAfter returns a copy of the events following the first offset events.
func (t *DialogueStateTracker) EventsAfter(offset int) events.Events {
	if offset < 0 {
		offset = 0
	}

	if offset >= len(t.events) {
		return events.Events{}
	}

	evts := make(events.Events, len(t.events)-offset)
	copy(evts, t.events[offset:])

	return evts
}

// Slot returns the slot with the given name.
func (t *DialogueStateTracker) Slot(name string) (slots.Slot, bool) {
	slot, ok := t.slotsByName[name]
	return slot, ok
}

// SlotValue returns the current value of a slot, nil if the slot is unknown or not set.
func (t *DialogueStateTracker) SlotValue(name string) any {
	if slot, ok := t.slotsByName[name]; ok {
		return slot.Value()
	}

	return nil
}

// SlotValues returns the current value of every slot by name.
func (t *DialogueStateTracker) SlotValues() map[string]any {
	values := make(map[string]any, len(t.slots))
	for _, slot := range t.slots {
		values[slot.Name()] = slot.Value()
	}

	return values
}

// SlotFeatures concatenates the encodings of all featurized slots in domain order.
// Slots without features are skipped.
func (t *DialogueStateTracker) SlotFeatures() []float64 {
	features := make([]float64, 0, t.FeatureDimensionality())
	for _, slot := range t.slots {
		if !slot.HasFeatures() {
			continue
		}

		features = append(features, slot.Encode()...)
	}

	return features
}

// FeatureDimensionality returns the length of SlotFeatures.
func (t *DialogueStateTracker) FeatureDimensionality() int {
	dimensionality := 0
	for _, slot := range t.slots {
		dimensionality += slot.Dimensionality()
	}

	return dimensionality
}

// LatestMessage returns the most recent user message since the last restart.
func (t *DialogueStateTracker) LatestMessage() (events.UserUttered, bool) {
	if t.latestMessage == nil {
		return events.UserUttered{}, false
	}

	return *t.latestMessage, true
}

// LatestActionName returns the most recently executed action since the last restart.
func (t *DialogueStateTracker) LatestActionName() string {
	return t.latestActionName
}

// IsPaused reports whether the conversation is paused.
func (t *DialogueStateTracker) IsPaused() bool {
	return t.paused
}

// LatestEventTime returns the timestamp of the last event, 0 if there is none.
func (t *DialogueStateTracker) LatestEventTime() events.TimestampFloat {
	if len(t.events) == 0 {
		return 0
	}

	return t.events[len(t.events)-1].HasOccurredAt()
}

// CurrentState returns the full snapshot of the tracker as it is stored by document backends.
func (t *DialogueStateTracker) CurrentState() map[string]any {
	serialized := make([]any, 0, len(t.events))
	for _, e := range t.events {
		serialized = append(serialized, e.AsMap())
	}

	var latestMessage map[string]any
	if t.latestMessage != nil {
		latestMessage = t.latestMessage.AsMap()
	}

	return map[string]any{
		stateKeySenderID:         t.senderID,
		stateKeySlotValues:       t.SlotValues(),
		stateKeyLatestMessage:    latestMessage,
		stateKeyLatestEventTime:  t.LatestEventTime(),
		stateKeyLatestActionName: t.latestActionName,
		stateKeyPaused:           t.paused,
		stateKeyEvents:           serialized,
	}
}
