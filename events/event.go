package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type names as they appear under the "event" key of a serialized event.
const (
	ActionExecutedEventType      = "action"
	SlotSetEventType             = "slot"
	UserUtteredEventType         = "user"
	BotUtteredEventType          = "bot"
	RestartedEventType           = "restart"
	AllSlotsResetEventType       = "reset_slots"
	ConversationPausedEventType  = "pause"
	ConversationResumedEventType = "resume"
)

// ActionListenName is the action that makes the bot wait for the next user message.
const ActionListenName = "action_listen"

// TimestampFloat is a point in time as seconds since the epoch.
type TimestampFloat = float64

// Events is a slice of Event instances.
type Events = []Event

// Event is one immutable record of something that happened in a conversation.
type Event interface {
	// EventType returns the type name stored under the "event" key.
	EventType() string

	// HasOccurredAt returns when the event occurred.
	HasOccurredAt() TimestampFloat

	// AsMap returns the serialized form of the event.
	AsMap() map[string]any
}

// ToTimestamp converts a time to seconds since the epoch with microsecond precision.
func ToTimestamp(t time.Time) TimestampFloat {
	return float64(t.UTC().Truncate(time.Microsecond).UnixMicro()) / 1e6
}

// ActionExecuted records that the bot ran an action.
type ActionExecuted struct {
	Name       string
	Policy     string
	Confidence *float64
	OccurredAt TimestampFloat
}

// BuildActionExecuted creates a new ActionExecuted event.
func BuildActionExecuted(name string, occurredAt time.Time) ActionExecuted {
	return ActionExecuted{Name: name, OccurredAt: ToTimestamp(occurredAt)}
}

// EventType returns the event type identifier.
func (e ActionExecuted) EventType() string {
	return ActionExecutedEventType
}

// HasOccurredAt returns when this event occurred.
func (e ActionExecuted) HasOccurredAt() TimestampFloat {
	return e.OccurredAt
}

// AsMap returns the serialized form of the event.
func (e ActionExecuted) AsMap() map[string]any {
	m := header(e)
	m[keyName] = e.Name

	if e.Policy != "" {
		m[keyPolicy] = e.Policy
	}

	if e.Confidence != nil {
		m[keyConfidence] = *e.Confidence
	}

	return m
}

// SlotSet records that a slot got a new value.
type SlotSet struct {
	Key        string
	Value      any
	OccurredAt TimestampFloat
}

// BuildSlotSet creates a new SlotSet event.
func BuildSlotSet(key string, value any, occurredAt time.Time) SlotSet {
	return SlotSet{Key: key, Value: value, OccurredAt: ToTimestamp(occurredAt)}
}

// EventType returns the event type identifier.
func (e SlotSet) EventType() string {
	return SlotSetEventType
}

// HasOccurredAt returns when this event occurred.
func (e SlotSet) HasOccurredAt() TimestampFloat {
	return e.OccurredAt
}

// AsMap returns the serialized form of the event.
func (e SlotSet) AsMap() map[string]any {
	m := header(e)
	m[keyName] = e.Key
	m[keyValue] = e.Value

	return m
}

// Intent is the classified intention of a user message.
type Intent struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// UserUttered records a message the user sent, together with what the NLU made of it.
type UserUttered struct {
	Text         string
	Intent       Intent
	Entities     []map[string]any
	InputChannel string
	MessageID    string
	OccurredAt   TimestampFloat
}

// BuildUserUttered creates a new UserUttered event with a fresh message id.
func BuildUserUttered(text string, intent Intent, entities []map[string]any, occurredAt time.Time) UserUttered {
	if len(entities) == 0 {
		entities = nil
	}

	return UserUttered{
		Text:       text,
		Intent:     intent,
		Entities:   entities,
		MessageID:  uuid.NewString(),
		OccurredAt: ToTimestamp(occurredAt),
	}
}

// EventType returns the event type identifier.
func (e UserUttered) EventType() string {
	return UserUtteredEventType
}

// HasOccurredAt returns when this event occurred.
func (e UserUttered) HasOccurredAt() TimestampFloat {
	return e.OccurredAt
}

// AsMap returns the serialized form of the event.
func (e UserUttered) AsMap() map[string]any {
	entities := make([]any, 0, len(e.Entities))
	for _, entity := range e.Entities {
		entities = append(entities, entity)
	}

	m := header(e)
	m[keyText] = e.Text
	m[keyParseData] = map[string]any{
		keyIntent: map[string]any{
			keyName:       e.Intent.Name,
			keyConfidence: e.Intent.Confidence,
		},
		keyEntities: entities,
		keyText:     e.Text,
	}
	m[keyInputChannel] = e.InputChannel
	m[keyMessageID] = e.MessageID

	return m
}

// BotUttered records a message the bot sent.
type BotUttered struct {
	Text       string
	Data       map[string]any
	OccurredAt TimestampFloat
}

// BuildBotUttered creates a new BotUttered event.
func BuildBotUttered(text string, data map[string]any, occurredAt time.Time) BotUttered {
	return BotUttered{Text: text, Data: data, OccurredAt: ToTimestamp(occurredAt)}
}

// EventType returns the event type identifier.
func (e BotUttered) EventType() string {
	return BotUtteredEventType
}

// HasOccurredAt returns when this event occurred.
func (e BotUttered) HasOccurredAt() TimestampFloat {
	return e.OccurredAt
}

// AsMap returns the serialized form of the event.
func (e BotUttered) AsMap() map[string]any {
	m := header(e)
	m[keyText] = e.Text

	if e.Data != nil {
		m[keyData] = e.Data
	}

	return m
}

// Restarted records that the conversation was restarted, all slots go back to their initial values.
type Restarted struct {
	OccurredAt TimestampFloat
}

// BuildRestarted creates a new Restarted event.
func BuildRestarted(occurredAt time.Time) Restarted {
	return Restarted{OccurredAt: ToTimestamp(occurredAt)}
}

// EventType returns the event type identifier.
func (e Restarted) EventType() string {
	return RestartedEventType
}

// HasOccurredAt returns when this event occurred.
func (e Restarted) HasOccurredAt() TimestampFloat {
	return e.OccurredAt
}

// AsMap returns the serialized form of the event.
func (e Restarted) AsMap() map[string]any {
	return header(e)
}

// AllSlotsReset records that all slots went back to their initial values.
type AllSlotsReset struct {
	OccurredAt TimestampFloat
}

// BuildAllSlotsReset creates a new AllSlotsReset event.
func BuildAllSlotsReset(occurredAt time.Time) AllSlotsReset {
	return AllSlotsReset{OccurredAt: ToTimestamp(occurredAt)}
}

// EventType returns the event type identifier.
func (e AllSlotsReset) EventType() string {
	return AllSlotsResetEventType
}

// HasOccurredAt returns when this event occurred.
func (e AllSlotsReset) HasOccurredAt() TimestampFloat {
	return e.OccurredAt
}

// AsMap returns the serialized form of the event.
func (e AllSlotsReset) AsMap() map[string]any {
	return header(e)
}

// ConversationPaused records that the bot stopped handling messages, e.g. during a human handoff.
type ConversationPaused struct {
	OccurredAt TimestampFloat
}

// BuildConversationPaused creates a new ConversationPaused event.
func BuildConversationPaused(occurredAt time.Time) ConversationPaused {
	return ConversationPaused{OccurredAt: ToTimestamp(occurredAt)}
}

// EventType returns the event type identifier.
func (e ConversationPaused) EventType() string {
	return ConversationPausedEventType
}

// HasOccurredAt returns when this event occurred.
func (e ConversationPaused) HasOccurredAt() TimestampFloat {
	return e.OccurredAt
}

// AsMap returns the serialized form of the event.
func (e ConversationPaused) AsMap() map[string]any {
	return header(e)
}

// ConversationResumed records that the bot handles messages again.
type ConversationResumed struct {
	OccurredAt TimestampFloat
}

// BuildConversationResumed creates a new ConversationResumed event.
func BuildConversationResumed(occurredAt time.Time) ConversationResumed {
	return ConversationResumed{OccurredAt: ToTimestamp(occurredAt)}
}

// EventType returns the event type identifier.
func (e ConversationResumed) EventType() string {
	return ConversationResumedEventType
}

// HasOccurredAt returns when this event occurred.
func (e ConversationResumed) HasOccurredAt() TimestampFloat {
	return e.OccurredAt
}

// AsMap returns the serialized form of the event.
func (e ConversationResumed) AsMap() map[string]any {
	return header(e)
}

// IntentName returns the intent of a UserUttered event, "" for all other events.
func IntentName(e Event) string {
	if u, ok := e.(UserUttered); ok {
		return u.Intent.Name
	}

	return ""
}

// ActionName returns the action of an ActionExecuted event, "" for all other events.
func ActionName(e Event) string {
	if a, ok := e.(ActionExecuted); ok {
		return a.Name
	}

	return ""
}

func header(e Event) map[string]any {
	return map[string]any{
		keyEvent:     e.EventType(),
		keyTimestamp: e.HasOccurredAt(),
	}
}
