package router

import (
	"encoding/json"
	"sync"
	"testing"
)

// fakeConn records every frame written to it.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, buf)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) events(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	events := make([]string, 0, len(c.frames))
	for _, frame := range c.frames {
		var envelope struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal(frame, &envelope); err != nil {
			t.Fatalf("malformed frame %q: %v", frame, err)
		}
		events = append(events, envelope.Event)
	}
	return events
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func register(hub *Hub, connID, userID string) *fakeConn {
	conn := &fakeConn{}
	hub.Register(NewClient(connID, userID, userID, conn))
	return conn
}

func TestHub_BroadcastRoom_IncludesSender(t *testing.T) {
	hub := NewHub()

	alice := register(hub, "c1", "alice")
	bob := register(hub, "c2", "bob")
	carol := register(hub, "c3", "carol")

	hub.Subscribe("c1", "room-1")
	hub.Subscribe("c2", "room-1")
	// carol is not subscribed

	hub.BroadcastRoom("room-1", "newMessage", map[string]string{"content": "hi"})

	if got := alice.events(t); len(got) != 1 || got[0] != "newMessage" {
		t.Errorf("sender should receive the room broadcast, got %v", got)
	}
	if got := bob.events(t); len(got) != 1 {
		t.Errorf("subscriber should receive the room broadcast, got %v", got)
	}
	if got := carol.events(t); len(got) != 0 {
		t.Errorf("non-subscriber should receive nothing, got %v", got)
	}
}

func TestHub_RelayRoomExcept(t *testing.T) {
	hub := NewHub()

	alice := register(hub, "c1", "alice")
	bob := register(hub, "c2", "bob")

	hub.Subscribe("c1", "room-1")
	hub.Subscribe("c2", "room-1")

	hub.RelayRoomExcept("room-1", "alice", "typing", map[string]bool{"isTyping": true})

	if got := alice.events(t); len(got) != 0 {
		t.Errorf("excluded user should receive nothing, got %v", got)
	}
	if got := bob.events(t); len(got) != 1 || got[0] != "typing" {
		t.Errorf("other subscriber should receive the relay, got %v", got)
	}
}

func TestHub_SendToUser(t *testing.T) {
	hub := NewHub()

	bob := register(hub, "c2", "bob")

	if !hub.SendToUser("bob", "newMessage", map[string]string{"content": "hi"}) {
		t.Error("expected delivery to a registered user")
	}
	if hub.SendToUser("nobody", "newMessage", nil) {
		t.Error("expected no delivery to an unregistered user")
	}

	if got := bob.events(t); len(got) != 1 || got[0] != "newMessage" {
		t.Errorf("expected one newMessage, got %v", got)
	}
}

func TestHub_DirectMessageFlow(t *testing.T) {
	hub := NewHub()

	alice := register(hub, "c1", "alice")
	bob := register(hub, "c2", "bob")

	// sender echo plus recipient delivery, the way the fanout path does it
	hub.SendToUser("alice", "newMessage", map[string]string{"content": "hi"})
	hub.SendToUser("bob", "newMessage", map[string]string{"content": "hi"})

	if got := alice.events(t); len(got) != 1 {
		t.Errorf("sender should get exactly one echo, got %v", got)
	}
	if got := bob.events(t); len(got) != 1 {
		t.Errorf("recipient should get exactly one delivery, got %v", got)
	}
}

func TestHub_BroadcastAllExcept(t *testing.T) {
	hub := NewHub()

	alice := register(hub, "c1", "alice")
	bob := register(hub, "c2", "bob")
	carol := register(hub, "c3", "carol")

	hub.BroadcastAllExcept("alice", "userOnline", map[string]string{"userId": "alice"})

	if got := alice.events(t); len(got) != 0 {
		t.Errorf("excluded user should receive nothing, got %v", got)
	}
	if got := bob.events(t); len(got) != 1 {
		t.Errorf("expected delivery to bob, got %v", got)
	}
	if got := carol.events(t); len(got) != 1 {
		t.Errorf("expected delivery to carol, got %v", got)
	}
}

func TestHub_Register_SupersedesOldConnection(t *testing.T) {
	hub := NewHub()

	old := register(hub, "c1", "alice")
	hub.Subscribe("c1", "room-1")

	fresh := register(hub, "c2", "alice")
	hub.Subscribe("c2", "room-1")

	if !old.isClosed() {
		t.Error("superseded connection should be closed")
	}
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.BroadcastRoom("room-1", "newMessage", nil)
	if got := old.events(t); len(got) != 0 {
		t.Errorf("superseded connection should receive nothing, got %v", got)
	}
	if got := fresh.events(t); len(got) != 1 {
		t.Errorf("new connection should receive the broadcast, got %v", got)
	}

	if !hub.UserOnline("alice") {
		t.Error("user should still count as online")
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()

	conn := register(hub, "c1", "alice")
	hub.Subscribe("c1", "room-1")

	hub.Unregister("c1")
	// unknown connection is a no-op
	hub.Unregister("no-such-conn")

	if hub.UserOnline("alice") {
		t.Error("unregistered user should be offline")
	}

	hub.BroadcastRoom("room-1", "newMessage", nil)
	if got := conn.events(t); len(got) != 0 {
		t.Errorf("removed connection should receive nothing, got %v", got)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()

	conn := register(hub, "c1", "alice")
	hub.Subscribe("c1", "room-1")
	hub.Unsubscribe("c1", "room-1")

	hub.BroadcastRoom("room-1", "newMessage", nil)
	if got := conn.events(t); len(got) != 0 {
		t.Errorf("unsubscribed connection should receive nothing, got %v", got)
	}
}
