package router

import (
	"context"
	"fmt"
	"log"

	"github.com/example/chatflow/events"
	"github.com/example/chatflow/modules/auth"
	"github.com/example/chatflow/modules/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RouterModule consumes chat events and fans them out to live websocket
// connections through the hub.
type RouterModule struct {
	hub      *Hub
	welcome  *WelcomeScheduler
	authPort auth.AuthPort
	chatPort chat.ChatPort
}

// Compile-time interface checks.
var _ mono.Module = (*RouterModule)(nil)
var _ mono.DependentModule = (*RouterModule)(nil)
var _ mono.EventConsumerModule = (*RouterModule)(nil)
var _ mono.HealthCheckableModule = (*RouterModule)(nil)

// NewModule creates a new RouterModule. The hub and the onboarding
// scheduler exist from construction so the API layer can hold references
// before the application starts; the scheduler's ports are bound in Start.
func NewModule() *RouterModule {
	return &RouterModule{
		hub:     NewHub(),
		welcome: NewWelcomeScheduler(nil, nil),
	}
}

// Name returns the module name.
func (m *RouterModule) Name() string {
	return "router"
}

// Dependencies returns the modules this module depends on.
func (m *RouterModule) Dependencies() []string {
	return []string{"auth", "chat"}
}

// SetDependencyServiceContainer receives service containers of dependencies.
func (m *RouterModule) SetDependencyServiceContainer(dep string, container mono.ServiceContainer) {
	switch dep {
	case "auth":
		m.authPort = auth.NewAuthAdapter(container)
	case "chat":
		m.chatPort = chat.NewChatAdapter(container)
	}
}

// Start initializes the router module.
func (m *RouterModule) Start(_ context.Context) error {
	if m.authPort == nil || m.chatPort == nil {
		return fmt.Errorf("dependencies not wired")
	}
	m.welcome.bind(m.authPort, m.chatPort)
	log.Println("[router] Module started")
	return nil
}

// Stop shuts down the module.
func (m *RouterModule) Stop(_ context.Context) error {
	log.Println("[router] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *RouterModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections": m.hub.ConnectionCount(),
		},
	}
}

// Hub returns the connection hub for the API layer.
func (m *RouterModule) Hub() *Hub {
	return m.hub
}

// Welcome returns the onboarding scheduler for the API layer.
func (m *RouterModule) Welcome() *WelcomeScheduler {
	return m.welcome
}

// RegisterEventConsumers subscribes to chat events.
func (m *RouterModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageStoredV1, m.handleMessageStored, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageStored consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageReadV1, m.handleMessageRead, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageRead consumer: %w", err)
	}

	log.Println("[router] Registered event consumers: MessageStored, MessageRead")
	return nil
}

// handleMessageStored fans a freshly stored message out to its audience.
// Room messages go to every subscriber of the room channel, the sender
// included. Direct messages go to the sender's connection as an echo and to
// the recipient if online; offline recipients read it from history later.
func (m *RouterModule) handleMessageStored(_ context.Context, event events.MessageStoredEvent, _ *mono.Msg) error {
	msg := event.Message
	if msg.RoomID != "" {
		m.hub.BroadcastRoom(msg.RoomID, "newMessage", msg)
		return nil
	}

	m.hub.SendToUser(msg.Sender.ID, "newMessage", msg)
	if msg.RecipientID != msg.Sender.ID {
		m.hub.SendToUser(msg.RecipientID, "newMessage", msg)
	}
	return nil
}

// handleMessageRead notifies a conversation's participants about a new read
// receipt. The reader already knows; they are excluded.
func (m *RouterModule) handleMessageRead(_ context.Context, event events.MessageReadEvent, _ *mono.Msg) error {
	data := map[string]any{
		"messageId": event.MessageID,
		"userId":    event.ReaderID,
		"readAt":    event.ReadAt,
	}

	if event.RoomID != "" {
		m.hub.RelayRoomExcept(event.RoomID, event.ReaderID, "messageRead", data)
		return nil
	}

	// Direct conversation: tell the other participant.
	other := event.SenderID
	if other == event.ReaderID {
		other = event.RecipientID
	}
	if other != "" && other != event.ReaderID {
		m.hub.SendToUser(other, "messageRead", data)
	}
	return nil
}
