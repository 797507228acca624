package models

const (
	EventMessageReceived = "message.received"
	EventMessageUpdated  = "message.updated"
	EventMessageDeleted  = "message.deleted"
)

// Event is a lifecycle notification as it travels over the event bus.
// Exactly one of Message and Deleted is set.
type Event struct {
	Type    string          `json:"type"`
	Message *Message        `json:"message,omitempty"`
	Deleted *DeletedMessage `json:"deleted,omitempty"`
}
