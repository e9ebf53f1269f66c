package events

import (
	"time"

	domain "github.com/example/chatflow/domain/chat"
	"github.com/go-monolith/mono/pkg/helper"
)

// MessageStoredEvent is emitted after a message has been persisted. The
// embedded view carries plaintext content and the resolved sender, ready for
// delivery to live connections.
type MessageStoredEvent struct {
	Message domain.MessageView `json:"message"`
}

// MessageReadEvent is emitted after a read receipt has been appended.
// RoomID/RecipientID/SenderID describe the message's conversation so the
// router can scope the notification to its participants.
type MessageReadEvent struct {
	MessageID   uint64    `json:"message_id"`
	ReaderID    string    `json:"reader_id"`
	ReadAt      time.Time `json:"read_at"`
	RoomID      string    `json:"room_id,omitempty"`
	RecipientID string    `json:"recipient_id,omitempty"`
	SenderID    string    `json:"sender_id"`
}

// Event definitions for the chat domain.
var (
	MessageStoredV1 = helper.EventDefinition[MessageStoredEvent](
		"chat",
		"MessageStored",
		"v1",
	)

	MessageReadV1 = helper.EventDefinition[MessageReadEvent](
		"chat",
		"MessageRead",
		"v1",
	)
)
