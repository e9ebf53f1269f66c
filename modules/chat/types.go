package chat

import (
	domain "github.com/example/chatflow/domain/chat"
)

// Request/response types for the chat module's request-reply services.

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"isPrivate"`
	CreatorID   string `json:"creatorId"`
}

type CreateRoomResponse struct {
	Room domain.RoomView `json:"room"`
}

type ListRoomsRequest struct {
	UserID string `json:"userId"`
}

type ListRoomsResponse struct {
	Rooms []domain.RoomView `json:"rooms"`
}

type MemberRoomIDsRequest struct {
	UserID string `json:"userId"`
}

type MemberRoomIDsResponse struct {
	RoomIDs []string `json:"roomIds"`
}

type JoinPublicRoomsRequest struct {
	UserID string `json:"userId"`
}

type JoinPublicRoomsResponse struct{}

type RoomHistoryRequest struct {
	RoomID string `json:"roomId"`
	Limit  int    `json:"limit"`
}

type RoomHistoryResponse struct {
	Messages []domain.MessageView `json:"messages"`
}

type DirectHistoryRequest struct {
	UserID      string `json:"userId"`
	OtherUserID string `json:"otherUserId"`
	Limit       int    `json:"limit"`
}

type DirectHistoryResponse struct {
	Messages []domain.MessageView `json:"messages"`
}

type StoreMessageRequest struct {
	SenderID    string `json:"senderId"`
	RoomID      string `json:"roomId,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
}

type StoreMessageResponse struct {
	Message domain.MessageView `json:"message"`
}

type MarkReadRequest struct {
	MessageID uint64 `json:"messageId"`
	UserID    string `json:"userId"`
}

type MarkReadResponse struct {
	Added       bool                   `json:"added"`
	Receipt     domain.ReadReceiptView `json:"receipt"`
	RoomID      string                 `json:"roomId,omitempty"`
	RecipientID string                 `json:"recipientId,omitempty"`
	SenderID    string                 `json:"senderId"`
}
