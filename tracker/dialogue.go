package tracker

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/events"
)

// ErrInvalidDialogue is returned when a serialized dialogue can not be decoded.
var ErrInvalidDialogue = errors.New("dialogue json is not valid")

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type dialogue struct {
	Name   string              `json:"name"`
	Events jsoniter.RawMessage `json:"events"`
}

// MarshalDialogue serializes the sender id and the events of a tracker.
// Slot state is not part of it, it is rebuilt by replay.
func MarshalDialogue(t *DialogueStateTracker) ([]byte, error) {
	evts, err := events.ManyToJSON(t.events)
	if err != nil {
		return nil, err
	}

	data, err := jsonAPI.Marshal(dialogue{Name: t.senderID, Events: evts})
	if err != nil {
		return nil, errors.Join(errors.New("marshalling dialogue failed"), err)
	}

	return data, nil
}

// UnmarshalDialogue decodes what MarshalDialogue produced.
func UnmarshalDialogue(data []byte) (string, events.Events, error) {
	var d dialogue
	if err := jsonAPI.Unmarshal(data, &d); err != nil {
		return "", nil, errors.Join(ErrInvalidDialogue, err)
	}

	if len(d.Events) == 0 {
		return d.Name, events.Events{}, nil
	}

	evts, err := events.ManyFromJSON(d.Events)
	if err != nil {
		return "", nil, errors.Join(ErrInvalidDialogue, err)
	}

	return d.Name, evts, nil
}
