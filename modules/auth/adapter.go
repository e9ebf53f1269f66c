package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/example/chatflow/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface other modules use to access the identity
// directory.
type AuthPort interface {
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	GetUser(ctx context.Context, userID string) (*domain.PublicProfile, error)
	ListUsers(ctx context.Context, excludeID string) ([]domain.PublicProfile, error)
	SearchUsers(ctx context.Context, query, requesterID string) ([]domain.PublicProfile, error)
	GetProfiles(ctx context.Context, userIDs []string) (map[string]domain.PublicProfile, error)
	SetPresence(ctx context.Context, userID string, online bool) (*domain.PublicProfile, error)
	GetBot(ctx context.Context) (*domain.PublicProfile, error)
}

// ErrNoBot is returned by GetBot when no bot identity exists.
var ErrNoBot = errors.New("no bot identity configured")

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) AuthPort {
	if container == nil {
		panic("auth: ServiceContainer is nil")
	}
	return &AuthAdapter{container: container}
}

// ValidateToken validates a bearer token and returns the identity claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "validate-token",
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token request failed: %w", err)
	}
	if !resp.Valid {
		return nil, ErrInvalidToken
	}
	return &domain.Claims{UserID: resp.UserID, Username: resp.Username}, nil
}

// GetUser retrieves the public profile of a user.
func (a *AuthAdapter) GetUser(ctx context.Context, userID string) (*domain.PublicProfile, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "get-user",
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("get-user request failed: %w", err)
	}
	return &resp.Profile, nil
}

// ListUsers returns all public profiles except the excluded user's.
func (a *AuthAdapter) ListUsers(ctx context.Context, excludeID string) ([]domain.PublicProfile, error) {
	req := ListUsersRequest{ExcludeID: excludeID}
	var resp ListUsersResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "list-users",
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("list-users request failed: %w", err)
	}
	return resp.Users, nil
}

// SearchUsers searches the directory.
func (a *AuthAdapter) SearchUsers(ctx context.Context, query, requesterID string) ([]domain.PublicProfile, error) {
	req := SearchUsersRequest{Query: query, RequesterID: requesterID}
	var resp SearchUsersResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "search-users",
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("search-users request failed: %w", err)
	}
	return resp.Users, nil
}

// GetProfiles resolves a batch of user IDs to public profiles.
func (a *AuthAdapter) GetProfiles(ctx context.Context, userIDs []string) (map[string]domain.PublicProfile, error) {
	req := GetProfilesRequest{UserIDs: userIDs}
	var resp GetProfilesResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "get-profiles",
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("get-profiles request failed: %w", err)
	}
	return resp.Profiles, nil
}

// SetPresence updates a user's online flag.
func (a *AuthAdapter) SetPresence(ctx context.Context, userID string, online bool) (*domain.PublicProfile, error) {
	req := SetPresenceRequest{UserID: userID, Online: online}
	var resp SetPresenceResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "set-presence",
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("set-presence request failed: %w", err)
	}
	return &resp.Profile, nil
}

// GetBot returns the designated bot identity, or ErrNoBot.
func (a *AuthAdapter) GetBot(ctx context.Context) (*domain.PublicProfile, error) {
	var resp GetBotResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "get-bot",
		json.Marshal, json.Unmarshal, &GetBotRequest{}, &resp,
	); err != nil {
		return nil, fmt.Errorf("get-bot request failed: %w", err)
	}
	if !resp.Found {
		return nil, ErrNoBot
	}
	return &resp.Profile, nil
}
