package router

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the subset of the websocket connection the hub needs. Tests plug
// in fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live websocket connection bound to a user.
type Client struct {
	ConnID   string
	UserID   string
	Username string

	conn Conn
	mu   sync.Mutex
}

// NewClient creates a client for a connection.
func NewClient(connID, userID, username string, conn Conn) *Client {
	return &Client{ConnID: connID, UserID: userID, Username: username, conn: conn}
}

// Send writes a text frame to the connection. Concurrent senders are
// serialized on the client's mutex; the websocket connection itself does not
// allow concurrent writes.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Hub tracks live connections, the user each belongs to, and room channel
// subscriptions. Delivery is fire-and-forget: a failed write is logged and
// the message is dropped for that connection.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client         // connID -> client
	byUser  map[string]string          // userID -> connID
	rooms   map[string]map[string]bool // roomID -> set of connIDs
	joined  map[string]map[string]bool // connID -> set of roomIDs
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		byUser:  make(map[string]string),
		rooms:   make(map[string]map[string]bool),
		joined:  make(map[string]map[string]bool),
	}
}

// Register adds a client. Registering the same connection ID again replaces
// the previous entry. A second connection for the same user supersedes the
// first: the old connection is removed and closed.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	var superseded *Client
	if oldConnID, ok := h.byUser[client.UserID]; ok && oldConnID != client.ConnID {
		superseded = h.clients[oldConnID]
		h.removeLocked(oldConnID)
	}
	if _, ok := h.clients[client.ConnID]; ok {
		h.removeLocked(client.ConnID)
	}
	h.clients[client.ConnID] = client
	h.byUser[client.UserID] = client.ConnID
	h.mu.Unlock()

	if superseded != nil {
		superseded.Close()
	}
}

// Unregister removes a connection. Unknown connection IDs are a no-op.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(connID)
}

// removeLocked drops a connection from all indexes. Caller holds h.mu.
func (h *Hub) removeLocked(connID string) {
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	if h.byUser[client.UserID] == connID {
		delete(h.byUser, client.UserID)
	}
	for roomID := range h.joined[connID] {
		delete(h.rooms[roomID], connID)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.joined, connID)
}

// Subscribe adds the connection to a room channel.
func (h *Hub) Subscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][connID] = true
	if h.joined[connID] == nil {
		h.joined[connID] = make(map[string]bool)
	}
	h.joined[connID][roomID] = true
}

// Unsubscribe removes the connection from a room channel.
func (h *Hub) Unsubscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[roomID], connID)
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
	delete(h.joined[connID], roomID)
}

// BroadcastRoom sends an event to every connection subscribed to the room,
// including the sender's.
func (h *Hub) BroadcastRoom(roomID, event string, data any) {
	payload, err := Envelope(event, data)
	if err != nil {
		log.Printf("[router] Failed to encode %s event: %v", event, err)
		return
	}
	for _, client := range h.roomClients(roomID) {
		if err := client.Send(payload); err != nil {
			log.Printf("[router] Dropped %s for connection %s: %v", event, client.ConnID, err)
		}
	}
}

// RelayRoomExcept sends an event to every connection subscribed to the room
// except the one belonging to userID.
func (h *Hub) RelayRoomExcept(roomID, userID, event string, data any) {
	payload, err := Envelope(event, data)
	if err != nil {
		log.Printf("[router] Failed to encode %s event: %v", event, err)
		return
	}
	for _, client := range h.roomClients(roomID) {
		if client.UserID == userID {
			continue
		}
		if err := client.Send(payload); err != nil {
			log.Printf("[router] Dropped %s for connection %s: %v", event, client.ConnID, err)
		}
	}
}

// SendToUser sends an event to the user's connection, if any. It reports
// whether the user had a registered connection.
func (h *Hub) SendToUser(userID, event string, data any) bool {
	payload, err := Envelope(event, data)
	if err != nil {
		log.Printf("[router] Failed to encode %s event: %v", event, err)
		return false
	}

	h.mu.RLock()
	connID, ok := h.byUser[userID]
	client := h.clients[connID]
	h.mu.RUnlock()
	if !ok || client == nil {
		return false
	}

	if err := client.Send(payload); err != nil {
		log.Printf("[router] Dropped %s for user %s: %v", event, userID, err)
	}
	return true
}

// BroadcastAllExcept sends an event to every connection except those
// belonging to userID.
func (h *Hub) BroadcastAllExcept(userID, event string, data any) {
	payload, err := Envelope(event, data)
	if err != nil {
		log.Printf("[router] Failed to encode %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		if client.UserID == userID {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if err := client.Send(payload); err != nil {
			log.Printf("[router] Dropped %s for connection %s: %v", event, client.ConnID, err)
		}
	}
}

// UserOnline reports whether the user has a registered connection.
func (h *Hub) UserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.byUser[userID]
	return ok
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) roomClients(roomID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for connID := range h.rooms[roomID] {
		if client, ok := h.clients[connID]; ok {
			clients = append(clients, client)
		}
	}
	return clients
}

// Envelope encodes an outbound socket frame as {"event": ..., "data": ...}.
func Envelope(event string, data any) ([]byte, error) {
	return json.Marshal(map[string]any{
		"event": event,
		"data":  data,
	})
}
