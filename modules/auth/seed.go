package auth

import (
	"log"
	"time"

	domain "github.com/example/chatflow/domain/user"
	"github.com/google/uuid"
)

// demoContact describes a seeded directory entry.
type demoContact struct {
	username string
	email    string
	mobile   string
	avatar   string
}

var demoContacts = []demoContact{
	{username: "alice_wonder", email: "alice@example.com", mobile: "+1234567891", avatar: "👩‍💼"},
	{username: "bob_builder", email: "bob@example.com", mobile: "+1234567892", avatar: "👨‍🔧"},
	{username: "charlie_brown", email: "charlie@example.com", mobile: "+1234567893", avatar: "👨‍🎨"},
	{username: "diana_prince", email: "diana@example.com", mobile: "+1234567894", avatar: "👩‍⚖️"},
}

// seedDemoUsers populates the directory with an admin account, the welcome
// bot, and a handful of demo contacts. It runs only when the directory is
// empty so restarts never duplicate records.
func seedDemoUsers(repo *UserRepository, hasher *PasswordHasher) error {
	count, err := repo.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	adminHash, err := hasher.Hash("password")
	if err != nil {
		return err
	}
	adminMobile := "+1234567890"
	admin := &domain.User{
		ID:           uuid.New().String(),
		Username:     "admin",
		Email:        "admin@chatflow.com",
		Mobile:       &adminMobile,
		PasswordHash: adminHash,
		LastSeen:     time.Now(),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if key, err := generateEncryptionKey(); err == nil {
		admin.EncryptionKey = key
	}
	if err := repo.Create(admin); err != nil {
		return err
	}

	botHash, err := hasher.Hash("bot123")
	if err != nil {
		return err
	}
	botMobile := "+1800CHATBOT"
	bot := &domain.User{
		ID:           uuid.New().String(),
		Username:     "ChatFlow_Bot",
		Email:        "bot@chatflow.com",
		Mobile:       &botMobile,
		PasswordHash: botHash,
		Avatar:       "🤖",
		IsOnline:     true,
		IsBot:        true,
		LastSeen:     time.Now(),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if key, err := generateEncryptionKey(); err == nil {
		bot.EncryptionKey = key
	}
	if err := repo.Create(bot); err != nil {
		return err
	}

	contactHash, err := hasher.Hash("password123")
	if err != nil {
		return err
	}
	for _, c := range demoContacts {
		mobile := c.mobile
		user := &domain.User{
			ID:           uuid.New().String(),
			Username:     c.username,
			Email:        c.email,
			Mobile:       &mobile,
			PasswordHash: contactHash,
			Avatar:       c.avatar,
			LastSeen:     time.Now(),
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		if key, err := generateEncryptionKey(); err == nil {
			user.EncryptionKey = key
		}
		if err := repo.Create(user); err != nil {
			return err
		}
	}

	log.Printf("[auth] Seeded demo directory: admin, ChatFlow_Bot, %d contacts", len(demoContacts))
	return nil
}
