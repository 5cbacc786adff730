// Package tracker reconstructs the state of one conversation from its events.
//
// A DialogueStateTracker owns an ordered event sequence and the slots of a domain.
// Its slot state is always exactly the result of applying the events, in order, to the
// initial slot values; the only way to change it is Update, which appends an event.
//
// FromEvents is the replay engine. It does no I/O and publishes nothing, so it is used
// both when a tracker is rebuilt from storage and when an event sequence is validated:
//
//	t := tracker.FromEvents(senderID, storedEvents, domain.NewSlots())
//	t.Update(events.BuildSlotSet("city", "Berlin", time.Now()))
//	features := t.SlotFeatures()
package tracker
