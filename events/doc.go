// Package events contains the records a conversation is made of.
//
// Events are immutable and append-only. A tracker's state is always the result of
// applying its events in order, so nothing but events ever changes a conversation.
//
// Every event serializes to a flat mapping with an "event" type key and a float
// "timestamp" (seconds since the epoch), which is the format all tracker store
// backends persist and the event channel receives:
//
//	{"event": "slot", "timestamp": 1700000000.5, "name": "city", "value": "Berlin"}
//
// Use ToJSON / FromJSON and FromMap to convert between events and their persisted form.
package events
