package api

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/example/chatflow/modules/router"
)

// Inbound socket frame. Mirrors the outbound envelope shape.
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type wsJoinData struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type wsRoomData struct {
	RoomID string `json:"roomId"`
}

type wsSendMessageData struct {
	Content     string `json:"content"`
	RoomID      string `json:"roomId"`
	RecipientID string `json:"recipientId"`
	MessageType string `json:"messageType"`
}

type wsMessageReadData struct {
	MessageID uint64 `json:"messageId"`
}

type wsTypingData struct {
	RoomID      string `json:"roomId"`
	RecipientID string `json:"recipientId"`
	IsTyping    bool   `json:"isTyping"`
}

// wsSession is the per-connection state. A connection starts unauthenticated
// and becomes joined after a valid join frame; every other inbound event is
// ignored until then.
type wsSession struct {
	connID   string
	userID   string
	username string
	joined   bool
}

// handleWebSocket runs the read loop for one websocket connection.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	session := &wsSession{connID: uuid.New().String()}
	defer m.handleDisconnect(session)

	log.Printf("[api] WebSocket connected: %s", session.connID)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] Connection %s closed", session.connID)
			} else {
				log.Printf("[api] Read error on %s: %v", session.connID, err)
			}
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("[api] Dropped malformed frame on %s: %v", session.connID, err)
			continue
		}

		if frame.Event == "join" {
			m.handleJoin(c, session, frame.Data)
			continue
		}

		if !session.joined {
			log.Printf("[api] Dropped %s frame on unjoined connection %s", frame.Event, session.connID)
			continue
		}

		switch frame.Event {
		case "joinRoom":
			var data wsRoomData
			if err := json.Unmarshal(frame.Data, &data); err != nil || data.RoomID == "" {
				continue
			}
			m.hub.Subscribe(session.connID, data.RoomID)
		case "leaveRoom":
			var data wsRoomData
			if err := json.Unmarshal(frame.Data, &data); err != nil || data.RoomID == "" {
				continue
			}
			m.hub.Unsubscribe(session.connID, data.RoomID)
		case "sendMessage":
			m.handleSendMessage(session, frame.Data)
		case "messageRead":
			m.handleMessageRead(session, frame.Data)
		case "typing":
			m.handleTyping(session, frame.Data)
		default:
			log.Printf("[api] Dropped unknown frame %q on %s", frame.Event, session.connID)
		}
	}
}

// handleJoin authenticates the connection against the user directory. An
// unknown user ID leaves the connection unauthenticated. A connection joins
// at most once; rebinding it to another user would strand the first user's
// presence.
func (m *APIModule) handleJoin(c *websocket.Conn, session *wsSession, data json.RawMessage) {
	if session.joined {
		log.Printf("[api] Dropped repeat join on %s", session.connID)
		return
	}

	var join wsJoinData
	if err := json.Unmarshal(data, &join); err != nil || join.UserID == "" {
		log.Printf("[api] Dropped malformed join on %s", session.connID)
		return
	}

	ctx := context.Background()

	profile, err := m.authAdapter.GetUser(ctx, join.UserID)
	if err != nil {
		log.Printf("[api] Dropped join for unknown user %s: %v", join.UserID, err)
		return
	}

	session.userID = profile.ID
	session.username = profile.Username
	session.joined = true

	if _, err := m.authAdapter.SetPresence(ctx, profile.ID, true); err != nil {
		log.Printf("[api] Failed to mark %s online: %v", profile.ID, err)
	}

	m.hub.Register(router.NewClient(session.connID, profile.ID, profile.Username, c))

	if err := m.chatAdapter.JoinPublicRooms(ctx, profile.ID); err != nil {
		log.Printf("[api] Failed to join public rooms for %s: %v", profile.ID, err)
	}

	// Snapshot of current memberships; later changes need explicit joinRoom
	roomIDs, err := m.chatAdapter.MemberRoomIDs(ctx, profile.ID)
	if err != nil {
		log.Printf("[api] Failed to load rooms for %s: %v", profile.ID, err)
	}
	for _, roomID := range roomIDs {
		m.hub.Subscribe(session.connID, roomID)
	}

	m.hub.BroadcastAllExcept(profile.ID, "userOnline", map[string]any{
		"userId":   profile.ID,
		"username": profile.Username,
	})

	if m.welcome != nil {
		m.welcome.Schedule(session.connID, profile.ID, profile.Username)
	}

	log.Printf("[api] User %s (%s) joined on %s", profile.Username, profile.ID, session.connID)
}

// handleSendMessage stores the message; delivery rides the fanout path.
// Failures are logged and swallowed, the sender gets no error frame.
func (m *APIModule) handleSendMessage(session *wsSession, data json.RawMessage) {
	var msg wsSendMessageData
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("[api] Dropped malformed sendMessage on %s", session.connID)
		return
	}
	if msg.RoomID == "" && msg.RecipientID == "" {
		log.Printf("[api] Dropped unaddressed message on %s", session.connID)
		return
	}

	_, err := m.chatAdapter.StoreMessage(
		context.Background(),
		session.userID,
		msg.RoomID,
		msg.RecipientID,
		msg.Content,
		msg.MessageType,
	)
	if err != nil {
		log.Printf("[api] Failed to store message from %s: %v", session.userID, err)
	}
}

// handleMessageRead appends a read receipt; the notification rides the
// fanout path, and repeat reads produce none.
func (m *APIModule) handleMessageRead(session *wsSession, data json.RawMessage) {
	var read wsMessageReadData
	if err := json.Unmarshal(data, &read); err != nil || read.MessageID == 0 {
		return
	}

	if _, err := m.chatAdapter.MarkRead(context.Background(), read.MessageID, session.userID); err != nil {
		log.Printf("[api] Failed to mark message %d read: %v", read.MessageID, err)
	}
}

// handleTyping relays a transient typing indicator. Nothing is persisted.
func (m *APIModule) handleTyping(session *wsSession, data json.RawMessage) {
	var typing wsTypingData
	if err := json.Unmarshal(data, &typing); err != nil {
		return
	}

	payload := map[string]any{
		"userId":   session.userID,
		"username": session.username,
		"isTyping": typing.IsTyping,
	}

	if typing.RoomID != "" {
		payload["roomId"] = typing.RoomID
		m.hub.RelayRoomExcept(typing.RoomID, session.userID, "userTyping", payload)
		return
	}
	if typing.RecipientID != "" {
		m.hub.SendToUser(typing.RecipientID, "userTyping", payload)
	}
}

// handleDisconnect tears the connection down. The offline transition is
// skipped when the user is still online through a superseding connection.
func (m *APIModule) handleDisconnect(session *wsSession) {
	if m.welcome != nil {
		m.welcome.Cancel(session.connID)
	}
	m.hub.Unregister(session.connID)

	if !session.joined {
		log.Printf("[api] WebSocket disconnected: %s", session.connID)
		return
	}

	if m.hub.UserOnline(session.userID) {
		log.Printf("[api] Connection %s superseded for user %s", session.connID, session.userID)
		return
	}

	profile, err := m.authAdapter.SetPresence(context.Background(), session.userID, false)
	if err != nil {
		log.Printf("[api] Failed to mark %s offline: %v", session.userID, err)
		m.hub.BroadcastAllExcept(session.userID, "userOffline", map[string]any{
			"userId":   session.userID,
			"username": session.username,
		})
		return
	}

	m.hub.BroadcastAllExcept(session.userID, "userOffline", map[string]any{
		"userId":   session.userID,
		"username": session.username,
		"lastSeen": profile.LastSeen,
	})

	log.Printf("[api] User %s (%s) disconnected", session.username, session.userID)
}
