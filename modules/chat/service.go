package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/chatflow/domain/chat"
	userdomain "github.com/example/chatflow/domain/user"
	"github.com/google/uuid"
)

// Validation constants.
const (
	MaxRoomNameLength   = 100
	MaxMessageLength    = 5000
	DefaultHistoryLimit = 50
)

// Validation errors.
var (
	ErrRoomNameEmpty   = errors.New("room name cannot be empty")
	ErrRoomNameTooLong = errors.New("room name exceeds maximum length")
	ErrMessageEmpty    = errors.New("message content cannot be empty")
	ErrMessageTooLong  = errors.New("message exceeds maximum length")
	ErrBadMessageType  = errors.New("unknown message type")
)

// ProfileResolver resolves user IDs to public profiles. The auth module
// provides the production implementation.
type ProfileResolver interface {
	Profiles(ctx context.Context, ids []string) (map[string]userdomain.PublicProfile, error)
}

// ChatService implements the room registry and message store.
type ChatService struct {
	rooms    *RoomRepository
	messages *MessageRepository
	cipher   *Cipher
	profiles ProfileResolver
}

// NewChatService creates a new ChatService.
func NewChatService(rooms *RoomRepository, messages *MessageRepository, cipher *Cipher, profiles ProfileResolver) *ChatService {
	return &ChatService{
		rooms:    rooms,
		messages: messages,
		cipher:   cipher,
		profiles: profiles,
	}
}

// CreateRoom creates a room with the creator as sole member and admin.
func (s *ChatService) CreateRoom(ctx context.Context, name, description string, isPrivate bool, creatorID string) (domain.RoomView, error) {
	if name == "" {
		return domain.RoomView{}, ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLength {
		return domain.RoomView{}, ErrRoomNameTooLong
	}

	room := &domain.Room{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		IsPrivate:   isPrivate,
		CreatedAt:   time.Now(),
	}
	if creatorID != "" {
		admin := creatorID
		room.AdminID = &admin
	}

	if err := s.rooms.Create(room, creatorID); err != nil {
		return domain.RoomView{}, fmt.Errorf("failed to create room: %w", err)
	}

	return s.roomView(ctx, room)
}

// ListRoomsFor returns the rooms where the user is a member, with member
// profiles resolved. Unresolved members are dropped silently.
func (s *ChatService) ListRoomsFor(ctx context.Context, userID string) ([]domain.RoomView, error) {
	rooms, err := s.rooms.RoomsFor(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	views := make([]domain.RoomView, 0, len(rooms))
	for i := range rooms {
		view, err := s.roomView(ctx, &rooms[i])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// MemberRoomIDs returns the IDs of rooms where the user is a member. The
// router uses this for join-time channel subscription.
func (s *ChatService) MemberRoomIDs(_ context.Context, userID string) ([]string, error) {
	return s.rooms.MemberRoomIDs(userID)
}

// AddMember adds a user to a room's membership set.
func (s *ChatService) AddMember(_ context.Context, roomID, userID string) error {
	return s.rooms.AddMember(roomID, userID)
}

// JoinPublicRooms adds the user to every public room. Called when a user
// connects so that the seeded rooms show up in their listing. Idempotent.
func (s *ChatService) JoinPublicRooms(_ context.Context, userID string) error {
	ids, err := s.rooms.PublicRoomIDs()
	if err != nil {
		return fmt.Errorf("failed to list public rooms: %w", err)
	}
	for _, id := range ids {
		if err := s.rooms.AddMember(id, userID); err != nil {
			return fmt.Errorf("failed to join room %s: %w", id, err)
		}
	}
	return nil
}

// StoreMessage persists a message addressed by dest. Content goes through
// the at-rest transform before insert; the returned view carries the
// plaintext and resolved sender, ready for delivery.
func (s *ChatService) StoreMessage(ctx context.Context, senderID string, dest domain.Destination, content, messageType string) (domain.MessageView, error) {
	if content == "" {
		return domain.MessageView{}, ErrMessageEmpty
	}
	if len(content) > MaxMessageLength {
		return domain.MessageView{}, ErrMessageTooLong
	}
	if messageType == "" {
		messageType = domain.MessageTypeText
	}
	if !domain.ValidMessageType(messageType) {
		return domain.MessageView{}, ErrBadMessageType
	}

	msg := &domain.Message{
		SenderID:    senderID,
		MessageType: messageType,
		Timestamp:   time.Now(),
	}
	switch dest.Kind {
	case domain.DestinationRoom:
		if _, err := s.rooms.FindByID(dest.TargetID); err != nil {
			return domain.MessageView{}, err
		}
		roomID := dest.TargetID
		msg.RoomID = &roomID
	case domain.DestinationDirect:
		recipientID := dest.TargetID
		msg.RecipientID = &recipientID
	default:
		return domain.MessageView{}, fmt.Errorf("invalid destination kind %d", dest.Kind)
	}

	ciphertext, err := s.cipher.Encrypt(content)
	if err != nil {
		return domain.MessageView{}, fmt.Errorf("failed to encrypt content: %w", err)
	}
	msg.Content = ciphertext

	if err := s.messages.Insert(msg); err != nil {
		return domain.MessageView{}, fmt.Errorf("failed to store message: %w", err)
	}

	profiles, err := s.profiles.Profiles(ctx, []string{senderID})
	if err != nil {
		return domain.MessageView{}, fmt.Errorf("failed to resolve sender: %w", err)
	}

	view := s.messageView(msg, content, profiles, nil)
	return view, nil
}

// RoomHistory returns the most recent limit messages of a room in ascending
// ID order, decrypted and with senders resolved.
func (s *ChatService) RoomHistory(ctx context.Context, roomID string, limit int) ([]domain.MessageView, error) {
	if _, err := s.rooms.FindByID(roomID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	msgs, err := s.messages.RecentByRoom(roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load room history: %w", err)
	}
	return s.messageViews(ctx, msgs)
}

// DirectHistory returns the most recent limit messages exchanged between the
// unordered pair (userA, userB) in ascending ID order.
func (s *ChatService) DirectHistory(ctx context.Context, userA, userB string, limit int) ([]domain.MessageView, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	msgs, err := s.messages.RecentDirect(userA, userB, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load direct history: %w", err)
	}
	return s.messageViews(ctx, msgs)
}

// MarkRead appends a read receipt for the message. Repeat reads by the same
// user are idempotent: added reports whether a new receipt was recorded, and
// only new receipts should be broadcast.
func (s *ChatService) MarkRead(_ context.Context, messageID uint64, userID string) (receipt domain.ReadReceiptView, msg *domain.Message, added bool, err error) {
	msg, err = s.messages.FindByID(messageID)
	if err != nil {
		return domain.ReadReceiptView{}, nil, false, err
	}
	rec, added, err := s.messages.AddReadReceipt(messageID, userID)
	if err != nil {
		return domain.ReadReceiptView{}, nil, false, fmt.Errorf("failed to add read receipt: %w", err)
	}
	return domain.ReadReceiptView{UserID: rec.UserID, ReadAt: rec.ReadAt}, msg, added, nil
}

// roomView resolves the member profiles of a room.
func (s *ChatService) roomView(ctx context.Context, room *domain.Room) (domain.RoomView, error) {
	memberIDs, err := s.rooms.MemberIDs(room.ID)
	if err != nil {
		return domain.RoomView{}, fmt.Errorf("failed to load room members: %w", err)
	}
	profiles, err := s.profiles.Profiles(ctx, memberIDs)
	if err != nil {
		return domain.RoomView{}, fmt.Errorf("failed to resolve room members: %w", err)
	}

	members := make([]domain.MemberView, 0, len(memberIDs))
	for _, id := range memberIDs {
		p, ok := profiles[id]
		if !ok {
			continue
		}
		members = append(members, domain.MemberView{
			ID:       p.ID,
			Username: p.Username,
			Avatar:   p.Avatar,
			IsOnline: p.IsOnline,
		})
	}

	adminID := ""
	if room.AdminID != nil {
		adminID = *room.AdminID
	}
	return domain.RoomView{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		IsPrivate:   room.IsPrivate,
		AdminID:     adminID,
		CreatedAt:   room.CreatedAt,
		Members:     members,
	}, nil
}

// messageViews decrypts a batch of messages and resolves their senders and
// read receipts.
func (s *ChatService) messageViews(ctx context.Context, msgs []domain.Message) ([]domain.MessageView, error) {
	senderIDs := make([]string, 0, len(msgs))
	messageIDs := make([]uint64, 0, len(msgs))
	seen := make(map[string]bool)
	for i := range msgs {
		messageIDs = append(messageIDs, msgs[i].ID)
		if !seen[msgs[i].SenderID] {
			seen[msgs[i].SenderID] = true
			senderIDs = append(senderIDs, msgs[i].SenderID)
		}
	}

	profiles, err := s.profiles.Profiles(ctx, senderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve senders: %w", err)
	}
	receipts, err := s.messages.ReceiptsFor(messageIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load read receipts: %w", err)
	}

	views := make([]domain.MessageView, 0, len(msgs))
	for i := range msgs {
		plaintext, err := s.cipher.Decrypt(msgs[i].Content)
		if err != nil {
			return nil, err
		}
		views = append(views, s.messageView(&msgs[i], plaintext, profiles, receipts[msgs[i].ID]))
	}
	return views, nil
}

func (s *ChatService) messageView(msg *domain.Message, plaintext string, profiles map[string]userdomain.PublicProfile, receipts []domain.ReadReceipt) domain.MessageView {
	sender := domain.UserRef{ID: msg.SenderID}
	if p, ok := profiles[msg.SenderID]; ok {
		sender.Username = p.Username
		sender.Avatar = p.Avatar
	}

	readBy := make([]domain.ReadReceiptView, 0, len(receipts))
	for _, rec := range receipts {
		readBy = append(readBy, domain.ReadReceiptView{UserID: rec.UserID, ReadAt: rec.ReadAt})
	}

	view := domain.MessageView{
		ID:          msg.ID,
		Content:     plaintext,
		Sender:      sender,
		MessageType: msg.MessageType,
		ReadBy:      readBy,
		Timestamp:   msg.Timestamp,
	}
	if msg.RoomID != nil {
		view.RoomID = *msg.RoomID
	}
	if msg.RecipientID != nil {
		view.RecipientID = *msg.RecipientID
	}
	return view
}
