package chat

import (
	"context"
	"encoding/json"

	domain "github.com/example/chatflow/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ChatPort is the interface other modules use to talk to the chat module.
type ChatPort interface {
	CreateRoom(ctx context.Context, name, description string, isPrivate bool, creatorID string) (domain.RoomView, error)
	ListRoomsFor(ctx context.Context, userID string) ([]domain.RoomView, error)
	MemberRoomIDs(ctx context.Context, userID string) ([]string, error)
	JoinPublicRooms(ctx context.Context, userID string) error
	RoomHistory(ctx context.Context, roomID string, limit int) ([]domain.MessageView, error)
	DirectHistory(ctx context.Context, userA, userB string, limit int) ([]domain.MessageView, error)
	StoreMessage(ctx context.Context, senderID, roomID, recipientID, content, messageType string) (domain.MessageView, error)
	MarkRead(ctx context.Context, messageID uint64, userID string) (MarkReadResponse, error)
}

// ChatAdapter implements ChatPort over the chat module's service container.
type ChatAdapter struct {
	container mono.ServiceContainer
}

// NewChatAdapter creates an adapter bound to the chat module's container.
func NewChatAdapter(container mono.ServiceContainer) ChatPort {
	if container == nil {
		panic("chat service container is nil")
	}
	return &ChatAdapter{container: container}
}

func (a *ChatAdapter) CreateRoom(ctx context.Context, name, description string, isPrivate bool, creatorID string) (domain.RoomView, error) {
	req := CreateRoomRequest{Name: name, Description: description, IsPrivate: isPrivate, CreatorID: creatorID}
	var resp CreateRoomResponse
	err := helper.CallRequestReplyService(ctx, a.container, "create-room",
		json.Marshal, json.Unmarshal, &req, &resp)
	if err != nil {
		return domain.RoomView{}, err
	}
	return resp.Room, nil
}

func (a *ChatAdapter) ListRoomsFor(ctx context.Context, userID string) ([]domain.RoomView, error) {
	req := ListRoomsRequest{UserID: userID}
	var resp ListRoomsResponse
	err := helper.CallRequestReplyService(ctx, a.container, "list-rooms",
		json.Marshal, json.Unmarshal, &req, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (a *ChatAdapter) MemberRoomIDs(ctx context.Context, userID string) ([]string, error) {
	req := MemberRoomIDsRequest{UserID: userID}
	var resp MemberRoomIDsResponse
	err := helper.CallRequestReplyService(ctx, a.container, "member-room-ids",
		json.Marshal, json.Unmarshal, &req, &resp)
	if err != nil {
		return nil, err
	}
	return resp.RoomIDs, nil
}

func (a *ChatAdapter) JoinPublicRooms(ctx context.Context, userID string) error {
	req := JoinPublicRoomsRequest{UserID: userID}
	var resp JoinPublicRoomsResponse
	return helper.CallRequestReplyService(ctx, a.container, "join-public-rooms",
		json.Marshal, json.Unmarshal, &req, &resp)
}

func (a *ChatAdapter) RoomHistory(ctx context.Context, roomID string, limit int) ([]domain.MessageView, error) {
	req := RoomHistoryRequest{RoomID: roomID, Limit: limit}
	var resp RoomHistoryResponse
	err := helper.CallRequestReplyService(ctx, a.container, "room-history",
		json.Marshal, json.Unmarshal, &req, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (a *ChatAdapter) DirectHistory(ctx context.Context, userA, userB string, limit int) ([]domain.MessageView, error) {
	req := DirectHistoryRequest{UserID: userA, OtherUserID: userB, Limit: limit}
	var resp DirectHistoryResponse
	err := helper.CallRequestReplyService(ctx, a.container, "direct-history",
		json.Marshal, json.Unmarshal, &req, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (a *ChatAdapter) StoreMessage(ctx context.Context, senderID, roomID, recipientID, content, messageType string) (domain.MessageView, error) {
	req := StoreMessageRequest{
		SenderID:    senderID,
		RoomID:      roomID,
		RecipientID: recipientID,
		Content:     content,
		MessageType: messageType,
	}
	var resp StoreMessageResponse
	err := helper.CallRequestReplyService(ctx, a.container, "store-message",
		json.Marshal, json.Unmarshal, &req, &resp)
	if err != nil {
		return domain.MessageView{}, err
	}
	return resp.Message, nil
}

func (a *ChatAdapter) MarkRead(ctx context.Context, messageID uint64, userID string) (MarkReadResponse, error) {
	req := MarkReadRequest{MessageID: messageID, UserID: userID}
	var resp MarkReadResponse
	err := helper.CallRequestReplyService(ctx, a.container, "mark-read",
		json.Marshal, json.Unmarshal, &req, &resp)
	if err != nil {
		return MarkReadResponse{}, err
	}
	return resp, nil
}
