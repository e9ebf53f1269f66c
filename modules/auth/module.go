package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	domain "github.com/example/chatflow/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AuthModule provides the identity directory and credential services.
type AuthModule struct {
	db      *gorm.DB
	service *AuthService
	dbPath  string
	seed    bool
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule() *AuthModule {
	dbPath := os.Getenv("AUTH_DB_PATH")
	if dbPath == "" {
		dbPath = "chatflow_users.db"
	}
	return &AuthModule{
		dbPath: dbPath,
		seed:   os.Getenv("CHAT_SEED_DEMO_DATA") != "false",
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start initializes the auth module.
func (m *AuthModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	repo := NewUserRepository(db)
	hasher := NewPasswordHasher()
	jwtManager := NewJWTManager(loadJWTConfig())

	m.service = NewAuthService(repo, hasher, jwtManager)

	if m.seed {
		if err := seedDemoUsers(repo, hasher); err != nil {
			return fmt.Errorf("failed to seed demo users: %w", err)
		}
	}

	log.Printf("[auth] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop shuts down the module.
func (m *AuthModule) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	services := []struct {
		name     string
		register func() error
	}{
		{"register", func() error {
			return helper.RegisterTypedRequestReplyService(container, "register",
				json.Unmarshal, json.Marshal, m.handleRegister)
		}},
		{"login", func() error {
			return helper.RegisterTypedRequestReplyService(container, "login",
				json.Unmarshal, json.Marshal, m.handleLogin)
		}},
		{"validate-token", func() error {
			return helper.RegisterTypedRequestReplyService(container, "validate-token",
				json.Unmarshal, json.Marshal, m.handleValidateToken)
		}},
		{"get-user", func() error {
			return helper.RegisterTypedRequestReplyService(container, "get-user",
				json.Unmarshal, json.Marshal, m.handleGetUser)
		}},
		{"list-users", func() error {
			return helper.RegisterTypedRequestReplyService(container, "list-users",
				json.Unmarshal, json.Marshal, m.handleListUsers)
		}},
		{"search-users", func() error {
			return helper.RegisterTypedRequestReplyService(container, "search-users",
				json.Unmarshal, json.Marshal, m.handleSearchUsers)
		}},
		{"get-profiles", func() error {
			return helper.RegisterTypedRequestReplyService(container, "get-profiles",
				json.Unmarshal, json.Marshal, m.handleGetProfiles)
		}},
		{"set-presence", func() error {
			return helper.RegisterTypedRequestReplyService(container, "set-presence",
				json.Unmarshal, json.Marshal, m.handleSetPresence)
		}},
		{"get-bot", func() error {
			return helper.RegisterTypedRequestReplyService(container, "get-bot",
				json.Unmarshal, json.Marshal, m.handleGetBot)
		}},
	}

	for _, svc := range services {
		if err := svc.register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", svc.name, err)
		}
	}

	log.Println("[auth] Registered services: register, login, validate-token, get-user, list-users, search-users, get-profiles, set-presence, get-bot")
	return nil
}

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	var mobile *string
	if req.Mobile != "" {
		mobile = &req.Mobile
	}
	user, token, err := m.service.Register(ctx, req.Username, req.Email, req.Password, mobile)
	if err != nil {
		return RegisterResponse{}, err
	}
	return RegisterResponse{Token: token, User: toUserInfo(user)}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	user, token, err := m.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{Token: token, User: toUserInfo(user)}, nil
}

func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		errMsg := "invalid token"
		if errors.Is(err, ErrExpiredToken) {
			errMsg = "token expired"
		}
		// Validation failures are responses, not transport errors.
		return ValidateTokenResponse{Valid: false, Error: errMsg}, nil
	}
	return ValidateTokenResponse{
		Valid:    true,
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}

func (m *AuthModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		return GetUserResponse{}, err
	}
	return GetUserResponse{Profile: user.Profile()}, nil
}

func (m *AuthModule) handleListUsers(ctx context.Context, req ListUsersRequest, _ *mono.Msg) (ListUsersResponse, error) {
	users, err := m.service.ListUsers(ctx, req.ExcludeID)
	if err != nil {
		return ListUsersResponse{}, err
	}
	return ListUsersResponse{Users: users}, nil
}

func (m *AuthModule) handleSearchUsers(ctx context.Context, req SearchUsersRequest, _ *mono.Msg) (SearchUsersResponse, error) {
	users, err := m.service.SearchUsers(ctx, req.Query, req.RequesterID)
	if err != nil {
		return SearchUsersResponse{}, err
	}
	return SearchUsersResponse{Users: users}, nil
}

func (m *AuthModule) handleGetProfiles(ctx context.Context, req GetProfilesRequest, _ *mono.Msg) (GetProfilesResponse, error) {
	profiles, err := m.service.GetProfiles(ctx, req.UserIDs)
	if err != nil {
		return GetProfilesResponse{}, err
	}
	return GetProfilesResponse{Profiles: profiles}, nil
}

func (m *AuthModule) handleSetPresence(ctx context.Context, req SetPresenceRequest, _ *mono.Msg) (SetPresenceResponse, error) {
	user, err := m.service.SetPresence(ctx, req.UserID, req.Online)
	if err != nil {
		return SetPresenceResponse{}, err
	}
	return SetPresenceResponse{Profile: user.Profile()}, nil
}

func (m *AuthModule) handleGetBot(ctx context.Context, _ GetBotRequest, _ *mono.Msg) (GetBotResponse, error) {
	bot, err := m.service.GetBot(ctx)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return GetBotResponse{Found: false}, nil
		}
		return GetBotResponse{}, err
	}
	return GetBotResponse{Found: true, Profile: bot.Profile()}, nil
}

// loadJWTConfig loads JWT configuration from environment variables.
func loadJWTConfig() JWTConfig {
	config := DefaultJWTConfig()

	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		config.SecretKey = secret
	}

	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}

	return config
}
