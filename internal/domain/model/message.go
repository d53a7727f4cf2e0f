package model

import "time"

// Message is a stored directed message. ReadAt is nil until the recipient
// first reads it and never changes afterwards.
type Message struct {
	ID           int64      `json:"id"`
	FromUsername string     `json:"from_username"`
	ToUsername   string     `json:"to_username"`
	Body         string     `json:"body"`
	SentAt       time.Time  `json:"sent_at"`
	ReadAt       *time.Time `json:"read_at"`
}

// IsRead reports whether the message left the Unread state.
func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}

// MessageDetail is a message with both parties embedded.
type MessageDetail struct {
	ID     int64       `json:"id"`
	Body   string      `json:"body"`
	SentAt time.Time   `json:"sent_at"`
	ReadAt *time.Time  `json:"read_at"`
	From   UserSummary `json:"from_user"`
	To     UserSummary `json:"to_user"`
}

// SentMessage is an entry of a user's outbox, embedding the recipient.
type SentMessage struct {
	ID     int64       `json:"id"`
	Body   string      `json:"body"`
	SentAt time.Time   `json:"sent_at"`
	ReadAt *time.Time  `json:"read_at"`
	To     UserSummary `json:"to_user"`
}

// ReceivedMessage is an entry of a user's inbox, embedding the sender.
type ReceivedMessage struct {
	ID     int64       `json:"id"`
	Body   string      `json:"body"`
	SentAt time.Time   `json:"sent_at"`
	ReadAt *time.Time  `json:"read_at"`
	From   UserSummary `json:"from_user"`
}

type ReadReceipt struct {
	ID     int64     `json:"id"`
	ReadAt time.Time `json:"read_at"`
}
