package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	domain "github.com/example/chatflow/domain/chat"
	userdomain "github.com/example/chatflow/domain/user"
	"github.com/example/chatflow/events"
	"github.com/example/chatflow/modules/auth"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ChatModule provides the room registry, message store and read receipts.
type ChatModule struct {
	db       *gorm.DB
	service  *ChatService
	eventBus mono.EventBus
	authPort auth.AuthPort
	dbPath   string
	secret   string
	seed     bool
}

// Compile-time interface checks.
var _ mono.Module = (*ChatModule)(nil)
var _ mono.ServiceProviderModule = (*ChatModule)(nil)
var _ mono.DependentModule = (*ChatModule)(nil)
var _ mono.EventBusAwareModule = (*ChatModule)(nil)
var _ mono.EventEmitterModule = (*ChatModule)(nil)
var _ mono.HealthCheckableModule = (*ChatModule)(nil)

// NewModule creates a new ChatModule.
func NewModule() *ChatModule {
	dbPath := os.Getenv("CHAT_DB_PATH")
	if dbPath == "" {
		dbPath = "chatflow_chat.db"
	}
	secret := os.Getenv("CHAT_ENCRYPTION_KEY")
	if secret == "" {
		secret = "default-key"
	}
	return &ChatModule{
		dbPath: dbPath,
		secret: secret,
		seed:   os.Getenv("CHAT_SEED_DEMO_DATA") != "false",
	}
}

// Name returns the module name.
func (m *ChatModule) Name() string {
	return "chat"
}

// Dependencies returns the modules this module depends on.
func (m *ChatModule) Dependencies() []string {
	return []string{"auth"}
}

// SetDependencyServiceContainer receives service containers of dependencies.
func (m *ChatModule) SetDependencyServiceContainer(dep string, container mono.ServiceContainer) {
	if dep == "auth" {
		m.authPort = auth.NewAuthAdapter(container)
	}
}

// SetEventBus receives the application event bus.
func (m *ChatModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *ChatModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageStoredV1.ToBase(),
		events.MessageReadV1.ToBase(),
	}
}

// Start initializes the chat module.
func (m *ChatModule) Start(_ context.Context) error {
	if m.authPort == nil {
		return fmt.Errorf("auth dependency not wired")
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.Room{}, &domain.RoomMember{}, &domain.Message{}, &domain.ReadReceipt{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	rooms := NewRoomRepository(db)
	messages := NewMessageRepository(db)
	cipher := NewCipher(m.secret)
	resolver := &authProfileResolver{auth: m.authPort}

	m.service = NewChatService(rooms, messages, cipher, resolver)

	if m.seed {
		if err := seedDefaultRooms(rooms); err != nil {
			return fmt.Errorf("failed to seed default rooms: %w", err)
		}
	}

	log.Printf("[chat] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop shuts down the module.
func (m *ChatModule) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[chat] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *ChatModule) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *ChatModule) RegisterServices(container mono.ServiceContainer) error {
	services := []struct {
		name     string
		register func() error
	}{
		{"create-room", func() error {
			return helper.RegisterTypedRequestReplyService(container, "create-room",
				json.Unmarshal, json.Marshal, m.handleCreateRoom)
		}},
		{"list-rooms", func() error {
			return helper.RegisterTypedRequestReplyService(container, "list-rooms",
				json.Unmarshal, json.Marshal, m.handleListRooms)
		}},
		{"member-room-ids", func() error {
			return helper.RegisterTypedRequestReplyService(container, "member-room-ids",
				json.Unmarshal, json.Marshal, m.handleMemberRoomIDs)
		}},
		{"join-public-rooms", func() error {
			return helper.RegisterTypedRequestReplyService(container, "join-public-rooms",
				json.Unmarshal, json.Marshal, m.handleJoinPublicRooms)
		}},
		{"room-history", func() error {
			return helper.RegisterTypedRequestReplyService(container, "room-history",
				json.Unmarshal, json.Marshal, m.handleRoomHistory)
		}},
		{"direct-history", func() error {
			return helper.RegisterTypedRequestReplyService(container, "direct-history",
				json.Unmarshal, json.Marshal, m.handleDirectHistory)
		}},
		{"store-message", func() error {
			return helper.RegisterTypedRequestReplyService(container, "store-message",
				json.Unmarshal, json.Marshal, m.handleStoreMessage)
		}},
		{"mark-read", func() error {
			return helper.RegisterTypedRequestReplyService(container, "mark-read",
				json.Unmarshal, json.Marshal, m.handleMarkRead)
		}},
	}

	for _, svc := range services {
		if err := svc.register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", svc.name, err)
		}
	}

	log.Println("[chat] Registered services: create-room, list-rooms, member-room-ids, join-public-rooms, room-history, direct-history, store-message, mark-read")
	return nil
}

func (m *ChatModule) handleCreateRoom(ctx context.Context, req CreateRoomRequest, _ *mono.Msg) (CreateRoomResponse, error) {
	room, err := m.service.CreateRoom(ctx, req.Name, req.Description, req.IsPrivate, req.CreatorID)
	if err != nil {
		return CreateRoomResponse{}, err
	}
	return CreateRoomResponse{Room: room}, nil
}

func (m *ChatModule) handleListRooms(ctx context.Context, req ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	rooms, err := m.service.ListRoomsFor(ctx, req.UserID)
	if err != nil {
		return ListRoomsResponse{}, err
	}
	return ListRoomsResponse{Rooms: rooms}, nil
}

func (m *ChatModule) handleMemberRoomIDs(ctx context.Context, req MemberRoomIDsRequest, _ *mono.Msg) (MemberRoomIDsResponse, error) {
	ids, err := m.service.MemberRoomIDs(ctx, req.UserID)
	if err != nil {
		return MemberRoomIDsResponse{}, err
	}
	return MemberRoomIDsResponse{RoomIDs: ids}, nil
}

func (m *ChatModule) handleJoinPublicRooms(ctx context.Context, req JoinPublicRoomsRequest, _ *mono.Msg) (JoinPublicRoomsResponse, error) {
	if err := m.service.JoinPublicRooms(ctx, req.UserID); err != nil {
		return JoinPublicRoomsResponse{}, err
	}
	return JoinPublicRoomsResponse{}, nil
}

func (m *ChatModule) handleRoomHistory(ctx context.Context, req RoomHistoryRequest, _ *mono.Msg) (RoomHistoryResponse, error) {
	messages, err := m.service.RoomHistory(ctx, req.RoomID, req.Limit)
	if err != nil {
		return RoomHistoryResponse{}, err
	}
	return RoomHistoryResponse{Messages: messages}, nil
}

func (m *ChatModule) handleDirectHistory(ctx context.Context, req DirectHistoryRequest, _ *mono.Msg) (DirectHistoryResponse, error) {
	messages, err := m.service.DirectHistory(ctx, req.UserID, req.OtherUserID, req.Limit)
	if err != nil {
		return DirectHistoryResponse{}, err
	}
	return DirectHistoryResponse{Messages: messages}, nil
}

func (m *ChatModule) handleStoreMessage(ctx context.Context, req StoreMessageRequest, _ *mono.Msg) (StoreMessageResponse, error) {
	dest, ok := domain.ResolveDestination(req.RoomID, req.RecipientID)
	if !ok {
		return StoreMessageResponse{}, fmt.Errorf("message needs a room or a recipient")
	}

	view, err := m.service.StoreMessage(ctx, req.SenderID, dest, req.Content, req.MessageType)
	if err != nil {
		return StoreMessageResponse{}, err
	}

	if err := events.MessageStoredV1.Publish(m.eventBus, events.MessageStoredEvent{Message: view}, nil); err != nil {
		log.Printf("[chat] Failed to publish message stored event: %v", err)
	}

	return StoreMessageResponse{Message: view}, nil
}

func (m *ChatModule) handleMarkRead(ctx context.Context, req MarkReadRequest, _ *mono.Msg) (MarkReadResponse, error) {
	receipt, msg, added, err := m.service.MarkRead(ctx, req.MessageID, req.UserID)
	if err != nil {
		return MarkReadResponse{}, err
	}

	resp := MarkReadResponse{
		Added:    added,
		Receipt:  receipt,
		SenderID: msg.SenderID,
	}
	if msg.RoomID != nil {
		resp.RoomID = *msg.RoomID
	}
	if msg.RecipientID != nil {
		resp.RecipientID = *msg.RecipientID
	}

	if added {
		event := events.MessageReadEvent{
			MessageID:   req.MessageID,
			ReaderID:    req.UserID,
			ReadAt:      receipt.ReadAt,
			RoomID:      resp.RoomID,
			RecipientID: resp.RecipientID,
			SenderID:    msg.SenderID,
		}
		if err := events.MessageReadV1.Publish(m.eventBus, event, nil); err != nil {
			log.Printf("[chat] Failed to publish message read event: %v", err)
		}
	}

	return resp, nil
}

// authProfileResolver adapts the auth port to the service's resolver.
type authProfileResolver struct {
	auth auth.AuthPort
}

func (r *authProfileResolver) Profiles(ctx context.Context, ids []string) (map[string]userdomain.PublicProfile, error) {
	return r.auth.GetProfiles(ctx, ids)
}

// seedDefaultRooms creates the public rooms users land in on first run.
func seedDefaultRooms(rooms *RoomRepository) error {
	count, err := rooms.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []struct {
		name        string
		description string
	}{
		{"General", "General discussion for everyone"},
		{"Tech Talk", "Discuss technology and programming"},
		{"Random", "Random conversations and fun"},
	}

	for _, d := range defaults {
		room := &domain.Room{
			ID:          uuid.New().String(),
			Name:        d.name,
			Description: d.description,
			CreatedAt:   time.Now(),
		}
		if err := rooms.Create(room, ""); err != nil {
			return err
		}
	}

	log.Printf("[chat] Seeded %d default rooms", len(defaults))
	return nil
}
