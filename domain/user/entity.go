package user

import (
	"time"
)

// User represents an identity in the directory. Users are never deleted;
// presence fields are mutated by the router on connect/disconnect.
type User struct {
	ID            string  `gorm:"primaryKey;type:text"`
	Username      string  `gorm:"uniqueIndex;not null;type:text"`
	Email         string  `gorm:"uniqueIndex;not null;type:text"`
	Mobile        *string `gorm:"uniqueIndex;type:text"`
	PasswordHash  string  `gorm:"not null;type:text"`
	Avatar        string  `gorm:"type:text"`
	IsOnline      bool    `gorm:"not null;default:false"`
	LastSeen      time.Time
	EncryptionKey string `gorm:"type:text"`
	IsBot         bool   `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// PublicProfile is the projection of a user exposed to other users.
type PublicProfile struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
	Mobile   string    `json:"mobile,omitempty"`
	IsBot    bool      `json:"isBot"`
}

// Profile returns the public projection of the user.
func (u *User) Profile() PublicProfile {
	mobile := ""
	if u.Mobile != nil {
		mobile = *u.Mobile
	}
	return PublicProfile{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		IsOnline: u.IsOnline,
		LastSeen: u.LastSeen,
		Mobile:   mobile,
		IsBot:    u.IsBot,
	}
}

// Claims represents the validated identity carried by a bearer token.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
