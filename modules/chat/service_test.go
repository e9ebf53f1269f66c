package chat

import (
	"context"
	"errors"
	"testing"

	domain "github.com/example/chatflow/domain/chat"
	userdomain "github.com/example/chatflow/domain/user"
	"gorm.io/gorm"
)

// fakeResolver resolves profiles from a fixed map.
type fakeResolver struct {
	profiles map[string]userdomain.PublicProfile
}

func (f *fakeResolver) Profiles(_ context.Context, ids []string) (map[string]userdomain.PublicProfile, error) {
	out := make(map[string]userdomain.PublicProfile)
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newTestChatService(t *testing.T) (*ChatService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	resolver := &fakeResolver{profiles: map[string]userdomain.PublicProfile{
		"alice": {ID: "alice", Username: "alice", Avatar: "A"},
		"bob":   {ID: "bob", Username: "bob", Avatar: "B"},
	}}
	svc := NewChatService(
		NewRoomRepository(db),
		NewMessageRepository(db),
		NewCipher("test-secret"),
		resolver,
	)
	return svc, db
}

func TestChatService_CreateRoom(t *testing.T) {
	svc, _ := newTestChatService(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "general", "the lobby", false, "alice")
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	if room.ID == "" {
		t.Error("expected generated room ID")
	}
	if room.AdminID != "alice" {
		t.Errorf("expected admin alice, got %q", room.AdminID)
	}
	if len(room.Members) != 1 || room.Members[0].ID != "alice" {
		t.Errorf("expected creator as sole member, got %v", room.Members)
	}
}

func TestChatService_CreateRoom_Validation(t *testing.T) {
	svc, _ := newTestChatService(t)
	ctx := context.Background()

	if _, err := svc.CreateRoom(ctx, "", "", false, "alice"); !errors.Is(err, ErrRoomNameEmpty) {
		t.Errorf("expected ErrRoomNameEmpty, got %v", err)
	}

	long := make([]byte, MaxRoomNameLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := svc.CreateRoom(ctx, string(long), "", false, "alice"); !errors.Is(err, ErrRoomNameTooLong) {
		t.Errorf("expected ErrRoomNameTooLong, got %v", err)
	}
}

func TestChatService_ListRoomsFor_DropsUnresolvedMembers(t *testing.T) {
	svc, _ := newTestChatService(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "general", "", false, "alice")
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if err := svc.AddMember(ctx, room.ID, "ghost"); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	rooms, err := svc.ListRoomsFor(ctx, "alice")
	if err != nil {
		t.Fatalf("ListRoomsFor() error = %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(rooms))
	}
	// ghost has no profile, so only alice remains
	if len(rooms[0].Members) != 1 || rooms[0].Members[0].ID != "alice" {
		t.Errorf("expected only resolved members, got %v", rooms[0].Members)
	}
}

func TestChatService_StoreMessage_EncryptsAtRest(t *testing.T) {
	svc, db := newTestChatService(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "general", "", false, "alice")
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	view, err := svc.StoreMessage(ctx, "alice", domain.RoomDestination(room.ID), "hello room", "")
	if err != nil {
		t.Fatalf("StoreMessage() error = %v", err)
	}

	if view.Content != "hello room" {
		t.Errorf("delivered view should carry plaintext, got %q", view.Content)
	}
	if view.MessageType != domain.MessageTypeText {
		t.Errorf("empty type should normalize to text, got %q", view.MessageType)
	}
	if view.Sender.Username != "alice" {
		t.Errorf("expected resolved sender, got %v", view.Sender)
	}

	var stored domain.Message
	if err := db.First(&stored, "id = ?", view.ID).Error; err != nil {
		t.Fatalf("failed to load stored message: %v", err)
	}
	if stored.Content == "hello room" {
		t.Error("stored content must not be plaintext")
	}
}

func TestChatService_StoreMessage_Validation(t *testing.T) {
	svc, _ := newTestChatService(t)
	ctx := context.Background()

	dest := domain.DirectDestination("bob")

	if _, err := svc.StoreMessage(ctx, "alice", dest, "", ""); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("expected ErrMessageEmpty, got %v", err)
	}

	long := make([]byte, MaxMessageLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := svc.StoreMessage(ctx, "alice", dest, string(long), ""); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("expected ErrMessageTooLong, got %v", err)
	}

	if _, err := svc.StoreMessage(ctx, "alice", dest, "hi", "video"); !errors.Is(err, ErrBadMessageType) {
		t.Errorf("expected ErrBadMessageType, got %v", err)
	}

	if _, err := svc.StoreMessage(ctx, "alice", domain.RoomDestination("no-such-room"), "hi", ""); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestChatService_DirectHistory_RoundTrip(t *testing.T) {
	svc, _ := newTestChatService(t)
	ctx := context.Background()

	if _, err := svc.StoreMessage(ctx, "alice", domain.DirectDestination("bob"), "first", ""); err != nil {
		t.Fatalf("StoreMessage() error = %v", err)
	}
	if _, err := svc.StoreMessage(ctx, "bob", domain.DirectDestination("alice"), "second", ""); err != nil {
		t.Fatalf("StoreMessage() error = %v", err)
	}

	msgs, err := svc.DirectHistory(ctx, "alice", "bob", 0)
	if err != nil {
		t.Fatalf("DirectHistory() error = %v", err)
	}

	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[1].Content != "second" {
		t.Errorf("expected decrypted ascending history, got %v", msgs)
	}
	if msgs[1].Sender.Username != "bob" {
		t.Errorf("expected resolved sender bob, got %v", msgs[1].Sender)
	}
}

func TestChatService_MarkRead(t *testing.T) {
	svc, _ := newTestChatService(t)
	ctx := context.Background()

	view, err := svc.StoreMessage(ctx, "alice", domain.DirectDestination("bob"), "hello", "")
	if err != nil {
		t.Fatalf("StoreMessage() error = %v", err)
	}

	receipt, msg, added, err := svc.MarkRead(ctx, view.ID, "bob")
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if !added {
		t.Fatal("first read should be new")
	}
	if receipt.UserID != "bob" {
		t.Errorf("expected receipt for bob, got %v", receipt)
	}
	if msg.SenderID != "alice" {
		t.Errorf("expected sender alice, got %q", msg.SenderID)
	}

	_, _, added, err = svc.MarkRead(ctx, view.ID, "bob")
	if err != nil {
		t.Fatalf("second MarkRead() error = %v", err)
	}
	if added {
		t.Error("repeat read should not count as new")
	}

	history, err := svc.DirectHistory(ctx, "alice", "bob", 0)
	if err != nil {
		t.Fatalf("DirectHistory() error = %v", err)
	}
	if len(history) != 1 || len(history[0].ReadBy) != 1 {
		t.Fatalf("expected 1 message with 1 receipt, got %v", history)
	}
	if history[0].ReadBy[0].UserID != "bob" {
		t.Errorf("expected receipt from bob, got %v", history[0].ReadBy)
	}

	if _, _, _, err := svc.MarkRead(ctx, 99999, "bob"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestChatService_JoinPublicRooms(t *testing.T) {
	svc, _ := newTestChatService(t)
	ctx := context.Background()

	public, err := svc.CreateRoom(ctx, "public", "", false, "alice")
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if _, err := svc.CreateRoom(ctx, "private", "", true, "alice"); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	if err := svc.JoinPublicRooms(ctx, "bob"); err != nil {
		t.Fatalf("JoinPublicRooms() error = %v", err)
	}
	// Idempotent
	if err := svc.JoinPublicRooms(ctx, "bob"); err != nil {
		t.Fatalf("second JoinPublicRooms() error = %v", err)
	}

	ids, err := svc.MemberRoomIDs(ctx, "bob")
	if err != nil {
		t.Fatalf("MemberRoomIDs() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != public.ID {
		t.Errorf("expected only the public room, got %v", ids)
	}
}
