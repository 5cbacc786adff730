// Package eventchannel provides the event channels a tracker store publishes newly saved events to.
//
// Every published event is the serialized event with the sender id merged in:
//
//	{"event": "slot", "timestamp": 1700000002, "name": "risk", "value": "high", "sender_id": "default"}
//
// RedisChannel publishes JSON messages on a Redis pub/sub channel, LogChannel writes them to a
// logger, and Func adapts a plain function. NewFromConfig builds a channel from the event_broker
// section of the endpoint configuration.
package eventchannel
