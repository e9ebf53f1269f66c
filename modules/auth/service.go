package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"time"
	"unicode/utf8"

	domain "github.com/example/chatflow/domain/user"
	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidEmail is returned when email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrUsernameRequired is returned when the username is empty.
	ErrUsernameRequired = errors.New("username is required")
	// ErrWeakPassword is returned when password is too weak.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

const (
	maxUsernameLength = 50
	searchResultLimit = 10
	minSearchQueryLen = 2
)

// AuthService handles identity directory and credential business logic.
type AuthService struct {
	repo   *UserRepository
	hasher *PasswordHasher
	jwt    *JWTManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *UserRepository, hasher *PasswordHasher, jwt *JWTManager) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		jwt:    jwt,
	}
}

// Register creates a new user account and returns the user with a bearer
// token. Username, email, and mobile must not collide with existing records.
func (s *AuthService) Register(_ context.Context, username, email, password string, mobile *string) (*domain.User, string, error) {
	if username == "" {
		return nil, "", ErrUsernameRequired
	}
	if len(username) > maxUsernameLength {
		return nil, "", fmt.Errorf("username exceeds %d characters", maxUsernameLength)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, "", ErrWeakPassword
	}
	if len(password) > 72 {
		return nil, "", ErrPasswordTooLong
	}

	exists, err := s.repo.IdentityExists(username, email, mobile)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check identity existence: %w", err)
	}
	if exists {
		return nil, "", ErrDuplicateIdentity
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	key, err := generateEncryptionKey()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate encryption key: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:            uuid.New().String(),
		Username:      username,
		Email:         email,
		Mobile:        mobile,
		PasswordHash:  passwordHash,
		LastSeen:      now,
		EncryptionKey: key,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(user); err != nil {
		return nil, "", err
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user, token, nil
}

// Login authenticates a user by email or username and returns the user with
// a bearer token. The user is marked online.
func (s *AuthService) Login(_ context.Context, identifier, password string) (*domain.User, string, error) {
	user, err := s.repo.FindByIdentifier(identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	user, err = s.repo.SetPresence(user.ID, true)
	if err != nil {
		return nil, "", fmt.Errorf("failed to update presence: %w", err)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user, token, nil
}

// ValidateToken validates a bearer token and returns the identity claims.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*domain.Claims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	return &domain.Claims{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(_ context.Context, userID string) (*domain.User, error) {
	return s.repo.FindByID(userID)
}

// ListUsers returns the public profiles of all users except the caller.
func (s *AuthService) ListUsers(_ context.Context, excludeID string) ([]domain.PublicProfile, error) {
	users, err := s.repo.ListExcept(excludeID)
	if err != nil {
		return nil, err
	}
	profiles := make([]domain.PublicProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Profile())
	}
	return profiles, nil
}

// SearchUsers returns at most 10 users matching the query, excluding the
// requester. Queries shorter than 2 characters return an empty result.
func (s *AuthService) SearchUsers(_ context.Context, query, requesterID string) ([]domain.PublicProfile, error) {
	if utf8.RuneCountInString(query) < minSearchQueryLen {
		return []domain.PublicProfile{}, nil
	}
	users, err := s.repo.Search(query, requesterID, searchResultLimit)
	if err != nil {
		return nil, err
	}
	profiles := make([]domain.PublicProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Profile())
	}
	return profiles, nil
}

// GetProfiles resolves a batch of user IDs to public profiles. Unknown IDs
// are silently dropped.
func (s *AuthService) GetProfiles(_ context.Context, ids []string) (map[string]domain.PublicProfile, error) {
	users, err := s.repo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]domain.PublicProfile, len(users))
	for i := range users {
		profiles[users[i].ID] = users[i].Profile()
	}
	return profiles, nil
}

// SetPresence marks a user online or offline; going offline stamps last seen.
func (s *AuthService) SetPresence(_ context.Context, userID string, online bool) (*domain.User, error) {
	return s.repo.SetPresence(userID, online)
}

// GetBot returns the designated bot identity, if one exists.
func (s *AuthService) GetBot(_ context.Context) (*domain.User, error) {
	return s.repo.FindBot()
}

// generateEncryptionKey returns an opaque per-user key. It exists to mirror
// the key material the directory hands to clients; it is not used to secure
// anything server-side.
func generateEncryptionKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
