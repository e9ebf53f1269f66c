package chat

import (
	"time"
)

// Message destination kinds. A message is addressed to exactly one of a room
// channel or a direct recipient; the tagged Destination type makes the
// both-set/both-absent states unrepresentable in service APIs.
type DestinationKind int

const (
	DestinationRoom DestinationKind = iota + 1
	DestinationDirect
)

// Destination identifies where a message is delivered.
type Destination struct {
	Kind     DestinationKind
	TargetID string
}

// RoomDestination addresses a message to a room channel.
func RoomDestination(roomID string) Destination {
	return Destination{Kind: DestinationRoom, TargetID: roomID}
}

// DirectDestination addresses a message to a single recipient.
func DirectDestination(userID string) Destination {
	return Destination{Kind: DestinationDirect, TargetID: userID}
}

// ResolveDestination maps the wire-level optional roomId/recipientId pair to
// a Destination. Both absent is not a valid destination; when both are
// present the room wins.
func ResolveDestination(roomID, recipientID string) (Destination, bool) {
	switch {
	case roomID != "":
		return RoomDestination(roomID), true
	case recipientID != "":
		return DirectDestination(recipientID), true
	default:
		return Destination{}, false
	}
}

// Room represents a chat room.
type Room struct {
	ID          string  `gorm:"primaryKey;type:text"`
	Name        string  `gorm:"not null;type:text"`
	Description string  `gorm:"type:text"`
	IsPrivate   bool    `gorm:"not null;default:false"`
	AdminID     *string `gorm:"type:text"`
	CreatedAt   time.Time
}

// TableName returns the table name for the Room entity.
func (Room) TableName() string {
	return "rooms"
}

// RoomMember links a user to a room. Membership is mutated only by room
// creation and explicit add operations.
type RoomMember struct {
	RoomID   string `gorm:"primaryKey;type:text"`
	UserID   string `gorm:"primaryKey;type:text"`
	JoinedAt time.Time
}

// TableName returns the table name for the RoomMember entity.
func (RoomMember) TableName() string {
	return "room_members"
}

// Message is the persisted message record. Content is ciphertext at rest.
// The autoincrement ID is the authoritative order key; wall-clock timestamps
// can collide or skew. Exactly one of RoomID/RecipientID is set.
type Message struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement"`
	Content     string  `gorm:"not null;type:text"`
	SenderID    string  `gorm:"index;not null;type:text"`
	RoomID      *string `gorm:"index;type:text"`
	RecipientID *string `gorm:"index;type:text"`
	MessageType string  `gorm:"not null;default:text;type:text"`
	Timestamp   time.Time
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "messages"
}

// Destination returns the tagged destination of a stored message.
func (m *Message) Destination() (Destination, bool) {
	roomID := ""
	if m.RoomID != nil {
		roomID = *m.RoomID
	}
	recipientID := ""
	if m.RecipientID != nil {
		recipientID = *m.RecipientID
	}
	return ResolveDestination(roomID, recipientID)
}

// ReadReceipt records that a user has read a message. The composite primary
// key deduplicates repeated reads by the same user.
type ReadReceipt struct {
	MessageID uint64 `gorm:"primaryKey;autoIncrement:false"`
	UserID    string `gorm:"primaryKey;type:text"`
	ReadAt    time.Time
}

// TableName returns the table name for the ReadReceipt entity.
func (ReadReceipt) TableName() string {
	return "read_receipts"
}

// Message types accepted on the wire.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

// ValidMessageType reports whether t is a known message type.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile:
		return true
	}
	return false
}

// UserRef is the sender projection attached to delivered messages.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// ReadReceiptView is the wire projection of a read receipt.
type ReadReceiptView struct {
	UserID string    `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

// MessageView is the delivery and history projection of a message: plaintext
// content with the sender resolved to a public reference.
type MessageView struct {
	ID          uint64            `json:"id"`
	Content     string            `json:"content"`
	Sender      UserRef           `json:"sender"`
	RoomID      string            `json:"roomId,omitempty"`
	RecipientID string            `json:"recipientId,omitempty"`
	MessageType string            `json:"messageType"`
	ReadBy      []ReadReceiptView `json:"readBy"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Destination returns the tagged destination of the message view.
func (m MessageView) Destination() (Destination, bool) {
	return ResolveDestination(m.RoomID, m.RecipientID)
}

// MemberView is the member projection embedded in room listings.
type MemberView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	IsOnline bool   `json:"isOnline"`
}

// RoomView is the room projection returned by the REST API, with member
// profiles resolved.
type RoomView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	IsPrivate   bool         `json:"isPrivate"`
	AdminID     string       `json:"adminId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	Members     []MemberView `json:"members"`
}
