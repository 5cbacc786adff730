package events

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

const (
	keyEvent        = "event"
	keyTimestamp    = "timestamp"
	keyName         = "name"
	keyValue        = "value"
	keyPolicy       = "policy"
	keyConfidence   = "confidence"
	keyText         = "text"
	keyParseData    = "parse_data"
	keyIntent       = "intent"
	keyEntities     = "entities"
	keyInputChannel = "input_channel"
	keyMessageID    = "message_id"
	keyData         = "data"
)

var (
	// ErrUnknownEventType is returned when a serialized event has a missing or unknown "event" key.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrInvalidEventJSON is returned when a serialized event can not be decoded.
	ErrInvalidEventJSON = errors.New("event json is not valid")
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type envelope struct {
	Event     string         `json:"event"`
	Timestamp TimestampFloat `json:"timestamp"`
}

type actionPayload struct {
	Name       string   `json:"name"`
	Policy     string   `json:"policy"`
	Confidence *float64 `json:"confidence"`
}

type slotPayload struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type userPayload struct {
	Text      string `json:"text"`
	ParseData struct {
		Intent   Intent           `json:"intent"`
		Entities []map[string]any `json:"entities"`
	} `json:"parse_data"`
	InputChannel string `json:"input_channel"`
	MessageID    string `json:"message_id"`
}

type botPayload struct {
	Text string         `json:"text"`
	Data map[string]any `json:"data"`
}

// ToJSON serializes an event into its persisted form.
func ToJSON(e Event) ([]byte, error) {
	data, err := jsonAPI.Marshal(e.AsMap())
	if err != nil {
		return nil, errors.Join(errors.New("marshalling event to json failed"), err)
	}

	return data, nil
}

// FromMap rebuilds an event from its mapping form.
func FromMap(m map[string]any) (Event, error) {
	data, err := jsonAPI.Marshal(m)
	if err != nil {
		return nil, errors.Join(ErrInvalidEventJSON, err)
	}

	return FromJSON(data)
}

// FromJSON rebuilds an event from its persisted form.
func FromJSON(data []byte) (Event, error) {
	var head envelope
	if err := jsonAPI.Unmarshal(data, &head); err != nil {
		return nil, errors.Join(ErrInvalidEventJSON, err)
	}

	switch head.Event {
	case ActionExecutedEventType:
		var p actionPayload
		if err := jsonAPI.Unmarshal(data, &p); err != nil {
			return nil, errors.Join(ErrInvalidEventJSON, err)
		}

		return ActionExecuted{Name: p.Name, Policy: p.Policy, Confidence: p.Confidence, OccurredAt: head.Timestamp}, nil

	case SlotSetEventType:
		var p slotPayload
		if err := jsonAPI.Unmarshal(data, &p); err != nil {
			return nil, errors.Join(ErrInvalidEventJSON, err)
		}

		return SlotSet{Key: p.Name, Value: p.Value, OccurredAt: head.Timestamp}, nil

	case UserUtteredEventType:
		var p userPayload
		if err := jsonAPI.Unmarshal(data, &p); err != nil {
			return nil, errors.Join(ErrInvalidEventJSON, err)
		}

		entities := p.ParseData.Entities
		if len(entities) == 0 {
			entities = nil
		}

		return UserUttered{
			Text:         p.Text,
			Intent:       p.ParseData.Intent,
			Entities:     entities,
			InputChannel: p.InputChannel,
			MessageID:    p.MessageID,
			OccurredAt:   head.Timestamp,
		}, nil

	case BotUtteredEventType:
		var p botPayload
		if err := jsonAPI.Unmarshal(data, &p); err != nil {
			return nil, errors.Join(ErrInvalidEventJSON, err)
		}

		return BotUttered{Text: p.Text, Data: p.Data, OccurredAt: head.Timestamp}, nil

	case RestartedEventType:
		return Restarted{OccurredAt: head.Timestamp}, nil

	case AllSlotsResetEventType:
		return AllSlotsReset{OccurredAt: head.Timestamp}, nil

	case ConversationPausedEventType:
		return ConversationPaused{OccurredAt: head.Timestamp}, nil

	case ConversationResumedEventType:
		return ConversationResumed{OccurredAt: head.Timestamp}, nil
	}

	return nil, errors.Join(ErrUnknownEventType, fmt.Errorf("event type %q", head.Event))
}

// ManyToJSON serializes events into a JSON array.
func ManyToJSON(evts Events) ([]byte, error) {
	maps := make([]map[string]any, 0, len(evts))
	for _, e := range evts {
		maps = append(maps, e.AsMap())
	}

	data, err := jsonAPI.Marshal(maps)
	if err != nil {
		return nil, errors.Join(errors.New("marshalling events to json failed"), err)
	}

	return data, nil
}

// ManyFromJSON rebuilds events from a JSON array, keeping their order.
func ManyFromJSON(data []byte) (Events, error) {
	var raw []jsoniter.RawMessage
	if err := jsonAPI.Unmarshal(data, &raw); err != nil {
		return nil, errors.Join(ErrInvalidEventJSON, err)
	}

	evts := make(Events, 0, len(raw))
	for _, r := range raw {
		e, err := FromJSON(r)
		if err != nil {
			return nil, err
		}

		evts = append(evts, e)
	}

	return evts, nil
}
