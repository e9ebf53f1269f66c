package auth

import (
	"time"

	domain "github.com/example/chatflow/domain/user"
)

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Mobile   string `json:"mobile,omitempty"`
}

// RegisterResponse represents a user registration response.
type RegisterResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// LoginRequest represents a user login request. Email also accepts a
// username as the identifier.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a user login response.
type LoginResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// UserInfo is the account projection returned on register/login.
type UserInfo struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Avatar        string    `json:"avatar"`
	Mobile        string    `json:"mobile,omitempty"`
	EncryptionKey string    `json:"encryptionKey"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}

// GetUserRequest represents a get user request.
type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// GetUserResponse represents a get user response.
type GetUserResponse struct {
	Profile domain.PublicProfile `json:"profile"`
}

// ListUsersRequest represents a list users request.
type ListUsersRequest struct {
	ExcludeID string `json:"exclude_id"`
}

// ListUsersResponse represents a list users response.
type ListUsersResponse struct {
	Users []domain.PublicProfile `json:"users"`
}

// SearchUsersRequest represents a user search request.
type SearchUsersRequest struct {
	Query       string `json:"query"`
	RequesterID string `json:"requester_id"`
}

// SearchUsersResponse represents a user search response.
type SearchUsersResponse struct {
	Users []domain.PublicProfile `json:"users"`
}

// GetProfilesRequest represents a bulk profile resolution request.
type GetProfilesRequest struct {
	UserIDs []string `json:"user_ids"`
}

// GetProfilesResponse represents a bulk profile resolution response.
type GetProfilesResponse struct {
	Profiles map[string]domain.PublicProfile `json:"profiles"`
}

// SetPresenceRequest represents a presence update request.
type SetPresenceRequest struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// SetPresenceResponse represents a presence update response.
type SetPresenceResponse struct {
	Profile domain.PublicProfile `json:"profile"`
}

// GetBotRequest represents a bot lookup request.
type GetBotRequest struct{}

// GetBotResponse represents a bot lookup response.
type GetBotResponse struct {
	Found   bool                 `json:"found"`
	Profile domain.PublicProfile `json:"profile"`
}

// toUserInfo builds the account projection from a user entity.
func toUserInfo(u *domain.User) UserInfo {
	mobile := ""
	if u.Mobile != nil {
		mobile = *u.Mobile
	}
	return UserInfo{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Avatar:        u.Avatar,
		Mobile:        mobile,
		EncryptionKey: u.EncryptionKey,
		CreatedAt:     u.CreatedAt,
	}
}
