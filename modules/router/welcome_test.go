package router

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	chatdomain "github.com/example/chatflow/domain/chat"
	userdomain "github.com/example/chatflow/domain/user"
	"github.com/example/chatflow/modules/auth"
)

type fakeDirectory struct {
	bot *userdomain.PublicProfile
	err error
}

func (d *fakeDirectory) GetBot(_ context.Context) (*userdomain.PublicProfile, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.bot, nil
}

type storedMessage struct {
	SenderID    string
	RecipientID string
	Content     string
}

type fakeStore struct {
	mu       sync.Mutex
	messages []storedMessage
}

func (s *fakeStore) StoreMessage(_ context.Context, senderID, _, recipientID, content, _ string) (chatdomain.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, storedMessage{SenderID: senderID, RecipientID: recipientID, Content: content})
	return chatdomain.MessageView{}, nil
}

func (s *fakeStore) stored() []storedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storedMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func newTestScheduler(directory botDirectory, store messageStore) *WelcomeScheduler {
	w := NewWelcomeScheduler(directory, store)
	w.delay = time.Millisecond
	w.interval = time.Millisecond
	return w
}

func waitForMessages(t *testing.T, store *fakeStore, want int) []storedMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := store.stored(); len(msgs) >= want {
			return msgs
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, got %d", want, len(store.stored()))
	return nil
}

func TestWelcomeScheduler_SendsFullSequence(t *testing.T) {
	directory := &fakeDirectory{bot: &userdomain.PublicProfile{ID: "bot-1", Username: "ChatFlow_Bot", IsBot: true}}
	store := &fakeStore{}
	w := newTestScheduler(directory, store)

	w.Schedule("c1", "alice-id", "alice")

	msgs := waitForMessages(t, store, len(welcomeMessages))
	if len(msgs) != len(welcomeMessages) {
		t.Fatalf("expected %d messages, got %d", len(welcomeMessages), len(msgs))
	}

	if !strings.Contains(msgs[0].Content, "alice") {
		t.Errorf("first message should greet the user by name, got %q", msgs[0].Content)
	}
	for i, msg := range msgs {
		if msg.SenderID != "bot-1" {
			t.Errorf("message %d: sender = %q, want bot-1", i, msg.SenderID)
		}
		if msg.RecipientID != "alice-id" {
			t.Errorf("message %d: recipient = %q, want alice-id", i, msg.RecipientID)
		}
	}
	for i, msg := range msgs[1:] {
		if strings.Contains(msg.Content, "%s") {
			t.Errorf("message %d: unexpanded placeholder in %q", i+1, msg.Content)
		}
	}
}

func TestWelcomeScheduler_CancelStopsSequence(t *testing.T) {
	directory := &fakeDirectory{bot: &userdomain.PublicProfile{ID: "bot-1", IsBot: true}}
	store := &fakeStore{}
	w := NewWelcomeScheduler(directory, store)
	w.delay = 100 * time.Millisecond
	w.interval = 100 * time.Millisecond

	w.Schedule("c1", "alice-id", "alice")
	w.Cancel("c1")

	time.Sleep(200 * time.Millisecond)
	if msgs := store.stored(); len(msgs) != 0 {
		t.Errorf("cancelled sequence should send nothing, got %d messages", len(msgs))
	}
}

func TestWelcomeScheduler_NoBot(t *testing.T) {
	directory := &fakeDirectory{err: auth.ErrNoBot}
	store := &fakeStore{}
	w := newTestScheduler(directory, store)

	w.Schedule("c1", "alice-id", "alice")

	time.Sleep(50 * time.Millisecond)
	if msgs := store.stored(); len(msgs) != 0 {
		t.Errorf("no bot identity should mean no messages, got %d", len(msgs))
	}
}

func TestWelcomeScheduler_RescheduleRestarts(t *testing.T) {
	directory := &fakeDirectory{bot: &userdomain.PublicProfile{ID: "bot-1", IsBot: true}}
	store := &fakeStore{}
	w := newTestScheduler(directory, store)
	w.delay = 50 * time.Millisecond

	w.Schedule("c1", "alice-id", "alice")
	w.Schedule("c1", "alice-id", "alice")

	// Exactly one full sequence should complete; the first run was cancelled.
	waitForMessages(t, store, len(welcomeMessages))
	time.Sleep(20 * time.Millisecond)
	if got := len(store.stored()); got > len(welcomeMessages) {
		t.Errorf("restart should not double-send, got %d messages", got)
	}
}

func TestWelcomeScheduler_RescheduleAfterFirstSend(t *testing.T) {
	directory := &fakeDirectory{bot: &userdomain.PublicProfile{ID: "bot-1", IsBot: true}}
	store := &fakeStore{}
	w := newTestScheduler(directory, store)
	w.interval = 10 * time.Millisecond

	// Let the first sequence get under way before restarting it. The exit
	// of the old run must not take the new run down with it.
	w.Schedule("c1", "alice-id", "alice")
	waitForMessages(t, store, 1)
	w.Schedule("c1", "alice-id", "alice")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if greetings(store) == 2 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("restarted sequence never began: %d greetings, %d messages total",
		greetings(store), len(store.stored()))
}

// greetings counts how many times the sequence started from the top.
func greetings(store *fakeStore) int {
	n := 0
	for _, msg := range store.stored() {
		if strings.Contains(msg.Content, "Welcome to ChatFlow") {
			n++
		}
	}
	return n
}

func TestWelcomeScheduler_UnboundIsNoop(t *testing.T) {
	w := newTestScheduler(nil, nil)

	// Ports not bound yet; scheduling must be a quiet no-op.
	w.Schedule("c1", "alice-id", "alice")
	w.Cancel("c1")

	w.mu.Lock()
	pending := len(w.pending)
	w.mu.Unlock()
	if pending != 0 {
		t.Errorf("unbound scheduler should track nothing, got %d pending", pending)
	}
}
