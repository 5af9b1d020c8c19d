package core

import "time"

// Message is the domain model for a chat message. It is constructed only
// after the store assigned the durable id, so every broadcast copy agrees
// with the persisted row.
type Message struct {
	ID         int64
	Channel    ChannelRef
	SenderID   int64
	SenderName string
	Content    string
	CreatedAt  time.Time
}
