package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	chatdomain "github.com/example/chatflow/domain/chat"
	userdomain "github.com/example/chatflow/domain/user"
	"github.com/example/chatflow/modules/auth"
)

// Onboarding sequence sent by the bot to a freshly joined user.
var welcomeMessages = []string{
	"👋 Welcome to ChatFlow, %s! I'm ChatFlow Bot, your friendly assistant.",
	"🎉 Great to see you here! Feel free to explore the chat rooms or start direct conversations.",
	"💡 Pro tip: You can search for users by their username or mobile number using the search feature!",
	"🚀 If you need any help navigating the app, just ask me. I'm here to help!",
}

const (
	defaultWelcomeDelay    = 1 * time.Second
	defaultWelcomeInterval = 2 * time.Second
)

// botDirectory is the slice of the auth port the scheduler needs.
type botDirectory interface {
	GetBot(ctx context.Context) (*userdomain.PublicProfile, error)
}

// messageStore is the slice of the chat port the scheduler needs.
type messageStore interface {
	StoreMessage(ctx context.Context, senderID, roomID, recipientID, content, messageType string) (chatdomain.MessageView, error)
}

// welcomeRun is one scheduled sequence. The pending map holds the run itself
// rather than a bare cancel func so a finished run can tell whether the
// registration still belongs to it or to a successor.
type welcomeRun struct {
	cancel context.CancelFunc
}

// WelcomeScheduler runs the bot onboarding sequence for new connections.
// Each message is stored as a direct message from the bot; delivery rides the
// normal fanout path. Disconnecting cancels the remainder of the sequence.
type WelcomeScheduler struct {
	directory botDirectory
	store     messageStore

	delay    time.Duration
	interval time.Duration

	mu      sync.Mutex
	pending map[string]*welcomeRun // connID -> active run
}

// NewWelcomeScheduler creates a scheduler with production timings. The ports
// may be bound later, before the first Schedule call.
func NewWelcomeScheduler(directory botDirectory, store messageStore) *WelcomeScheduler {
	return &WelcomeScheduler{
		directory: directory,
		store:     store,
		delay:     defaultWelcomeDelay,
		interval:  defaultWelcomeInterval,
		pending:   make(map[string]*welcomeRun),
	}
}

// bind supplies the ports. Called during module start, before any
// connection can reach Schedule.
func (w *WelcomeScheduler) bind(directory botDirectory, store messageStore) {
	w.directory = directory
	w.store = store
}

// Schedule starts the onboarding sequence for a connection. Scheduling again
// for the same connection restarts the sequence. No bot identity means no
// sequence.
func (w *WelcomeScheduler) Schedule(connID, recipientID, username string) {
	if w.directory == nil || w.store == nil {
		return
	}

	bot, err := w.directory.GetBot(context.Background())
	if err != nil {
		if !errors.Is(err, auth.ErrNoBot) {
			log.Printf("[router] Failed to look up bot identity: %v", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &welcomeRun{cancel: cancel}

	w.mu.Lock()
	if prev, ok := w.pending[connID]; ok {
		prev.cancel()
	}
	w.pending[connID] = run
	w.mu.Unlock()

	go w.run(ctx, run, connID, bot.ID, recipientID, username)
}

// Cancel stops a pending sequence for the connection, if any.
func (w *WelcomeScheduler) Cancel(connID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if run, ok := w.pending[connID]; ok {
		run.cancel()
		delete(w.pending, connID)
	}
}

func (w *WelcomeScheduler) run(ctx context.Context, self *welcomeRun, connID, botID, recipientID, username string) {
	defer func() {
		self.cancel()
		w.mu.Lock()
		// A restarted sequence owns the slot now; leave it alone.
		if w.pending[connID] == self {
			delete(w.pending, connID)
		}
		w.mu.Unlock()
	}()

	wait := w.delay
	for i, template := range welcomeMessages {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		wait = w.interval

		content := template
		if i == 0 {
			content = fmt.Sprintf(template, username)
		}
		if _, err := w.store.StoreMessage(ctx, botID, "", recipientID, content, chatdomain.MessageTypeText); err != nil {
			log.Printf("[router] Failed to send welcome message: %v", err)
			return
		}
	}
}
