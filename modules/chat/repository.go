package chat

import (
	"errors"
	"time"

	domain "github.com/example/chatflow/domain/chat"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrRoomNotFound is returned when a room is not found.
	ErrRoomNotFound = errors.New("room not found")
	// ErrMessageNotFound is returned when a message is not found.
	ErrMessageNotFound = errors.New("message not found")
)

// RoomRepository handles room and membership persistence using GORM.
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create creates a room and, when creatorID is non-empty, its sole initial
// member in one transaction.
func (r *RoomRepository) Create(room *domain.Room, creatorID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(room); result.Error != nil {
			return result.Error
		}
		if creatorID == "" {
			return nil
		}
		member := &domain.RoomMember{
			RoomID:   room.ID,
			UserID:   creatorID,
			JoinedAt: time.Now(),
		}
		if result := tx.Create(member); result.Error != nil {
			return result.Error
		}
		return nil
	})
}

// FindByID finds a room by ID.
func (r *RoomRepository) FindByID(id string) (*domain.Room, error) {
	var room domain.Room
	result := r.db.First(&room, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, result.Error
	}
	return &room, nil
}

// RoomsFor returns the rooms where the user is a member.
func (r *RoomRepository) RoomsFor(userID string) ([]domain.Room, error) {
	var rooms []domain.Room
	result := r.db.
		Joins("JOIN room_members ON room_members.room_id = rooms.id").
		Where("room_members.user_id = ?", userID).
		Order("rooms.created_at").
		Find(&rooms)
	if result.Error != nil {
		return nil, result.Error
	}
	return rooms, nil
}

// MemberRoomIDs returns the IDs of rooms where the user is a member.
func (r *RoomRepository) MemberRoomIDs(userID string) ([]string, error) {
	var ids []string
	result := r.db.Model(&domain.RoomMember{}).
		Where("user_id = ?", userID).
		Pluck("room_id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}

// MemberIDs returns the member user IDs of a room.
func (r *RoomRepository) MemberIDs(roomID string) ([]string, error) {
	var ids []string
	result := r.db.Model(&domain.RoomMember{}).
		Where("room_id = ?", roomID).
		Pluck("user_id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}

// PublicRoomIDs returns the IDs of all non-private rooms.
func (r *RoomRepository) PublicRoomIDs() ([]string, error) {
	var ids []string
	result := r.db.Model(&domain.Room{}).
		Where("is_private = ?", false).
		Pluck("id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}

// AddMember adds a user to a room. Re-adding an existing member is a no-op.
func (r *RoomRepository) AddMember(roomID, userID string) error {
	if _, err := r.FindByID(roomID); err != nil {
		return err
	}
	member := &domain.RoomMember{RoomID: roomID, UserID: userID, JoinedAt: time.Now()}
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(member)
	return result.Error
}

// Count returns the number of rooms.
func (r *RoomRepository) Count() (int64, error) {
	var count int64
	result := r.db.Model(&domain.Room{}).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// MessageRepository handles message and read-receipt persistence using GORM.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert appends a message. The database assigns the strictly increasing ID.
func (r *MessageRepository) Insert(msg *domain.Message) error {
	result := r.db.Create(msg)
	return result.Error
}

// FindByID finds a message by ID.
func (r *MessageRepository) FindByID(id uint64) (*domain.Message, error) {
	var msg domain.Message
	result := r.db.First(&msg, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, result.Error
	}
	return &msg, nil
}

// RecentByRoom returns the most recent limit messages of a room in ascending
// ID order.
func (r *MessageRepository) RecentByRoom(roomID string, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	result := r.db.
		Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(limit).
		Find(&msgs)
	if result.Error != nil {
		return nil, result.Error
	}
	reverse(msgs)
	return msgs, nil
}

// RecentDirect returns the most recent limit messages exchanged between the
// unordered pair (userA, userB) in ascending ID order.
func (r *MessageRepository) RecentDirect(userA, userB string, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	result := r.db.
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA).
		Order("id DESC").
		Limit(limit).
		Find(&msgs)
	if result.Error != nil {
		return nil, result.Error
	}
	reverse(msgs)
	return msgs, nil
}

// AddReadReceipt appends a read receipt. The composite primary key makes the
// operation idempotent; the return value reports whether a row was added.
func (r *MessageRepository) AddReadReceipt(messageID uint64, userID string) (*domain.ReadReceipt, bool, error) {
	receipt := &domain.ReadReceipt{
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    time.Now(),
	}
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(receipt)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		var existing domain.ReadReceipt
		if res := r.db.First(&existing, "message_id = ? AND user_id = ?", messageID, userID); res.Error != nil {
			return nil, false, res.Error
		}
		return &existing, false, nil
	}
	return receipt, true, nil
}

// ReceiptsFor returns the read receipts of the given messages, keyed by
// message ID, in read order.
func (r *MessageRepository) ReceiptsFor(messageIDs []uint64) (map[uint64][]domain.ReadReceipt, error) {
	if len(messageIDs) == 0 {
		return map[uint64][]domain.ReadReceipt{}, nil
	}
	var receipts []domain.ReadReceipt
	result := r.db.
		Where("message_id IN ?", messageIDs).
		Order("read_at").
		Find(&receipts)
	if result.Error != nil {
		return nil, result.Error
	}
	byMessage := make(map[uint64][]domain.ReadReceipt)
	for _, rec := range receipts {
		byMessage[rec.MessageID] = append(byMessage[rec.MessageID], rec)
	}
	return byMessage, nil
}

func reverse(msgs []domain.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
