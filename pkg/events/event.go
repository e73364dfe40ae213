package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "MEDIA_UPLOADED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is a plain implementation used by the services.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Event type codes published on the bus.
const (
	TypeChatExchangeCompleted = "CHAT_EXCHANGE_COMPLETED"
	TypeMediaUploaded         = "MEDIA_UPLOADED"
)

func NewChatExchangeCompleted(data map[string]interface{}) Event {
	return BaseEvent{Type: TypeChatExchangeCompleted, Data: data, OccurredAt: time.Now()}
}

func NewMediaUploaded(data map[string]interface{}) Event {
	return BaseEvent{Type: TypeMediaUploaded, Data: data, OccurredAt: time.Now()}
}
