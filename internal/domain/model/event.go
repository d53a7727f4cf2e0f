package model

import "time"

type MessageEventType string

const (
	EventMessageSent MessageEventType = "message.sent"
	EventMessageRead MessageEventType = "message.read"
)

// MessageEvent is queued for the notification worker after a message is sent
// or first read.
type MessageEvent struct {
	ID           string           `json:"id"`
	Type         MessageEventType `json:"type"`
	MessageID    int64            `json:"message_id"`
	FromUsername string           `json:"from_username"`
	ToUsername   string           `json:"to_username"`
	At           time.Time        `json:"at"`
	Attempts     int              `json:"attempts,omitempty"`
}

// Recipient is the user who should hear about the event: the addressee of a
// new message, or the author of a message that was just read.
func (e MessageEvent) Recipient() string {
	if e.Type == EventMessageRead {
		return e.FromUsername
	}
	return e.ToUsername
}
