package auth

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(
		NewUserRepository(setupTestDB(t)),
		NewPasswordHasher(),
		NewJWTManager(testJWTConfig()),
	)
}

func TestAuthService_Register(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "alice", "alice@example.com", "password123", nil)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if user.ID == "" {
		t.Error("expected generated user ID")
	}
	if user.PasswordHash == "password123" {
		t.Error("password must not be stored in plaintext")
	}
	if user.EncryptionKey == "" {
		t.Error("expected generated encryption key")
	}
	if token == "" {
		t.Fatal("expected bearer token")
	}

	claims, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("token user ID = %q, want %q", claims.UserID, user.ID)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	longPassword := make([]byte, 80)
	for i := range longPassword {
		longPassword[i] = 'a'
	}

	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"empty username", "", "a@example.com", "password123", ErrUsernameRequired},
		{"bad email", "alice", "not-an-email", "password123", ErrInvalidEmail},
		{"short password", "alice", "a@example.com", "short", ErrWeakPassword},
		{"long password", "alice", "a@example.com", string(longPassword), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tt.username, tt.email, tt.password, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "alice@example.com", "password123", nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, _, err := svc.Register(ctx, "alice", "other@example.com", "password123", nil); !errors.Is(err, ErrDuplicateIdentity) {
		t.Errorf("expected ErrDuplicateIdentity for username, got %v", err)
	}
	if _, _, err := svc.Register(ctx, "other", "alice@example.com", "password123", nil); !errors.Is(err, ErrDuplicateIdentity) {
		t.Errorf("expected ErrDuplicateIdentity for email, got %v", err)
	}
}

func TestAuthService_Login(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "alice@example.com", "password123", nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("by email", func(t *testing.T) {
		user, token, err := svc.Login(ctx, "alice@example.com", "password123")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if token == "" {
			t.Error("expected bearer token")
		}
		if !user.IsOnline {
			t.Error("login should mark the user online")
		}
	})

	t.Run("by username", func(t *testing.T) {
		if _, _, err := svc.Login(ctx, "alice", "password123"); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, _, err := svc.Login(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, _, err := svc.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_SearchUsers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	requester, _, err := svc.Register(ctx, "requester", "requester@example.com", "password123", nil)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, _, err := svc.Register(ctx, "alice_wonder", "alice@example.com", "password123", nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("short query returns empty", func(t *testing.T) {
		users, err := svc.SearchUsers(ctx, "a", requester.ID)
		if err != nil {
			t.Fatalf("SearchUsers() error = %v", err)
		}
		if len(users) != 0 {
			t.Errorf("expected empty result, got %v", users)
		}
	})

	t.Run("single multibyte character is still too short", func(t *testing.T) {
		// One rune, three bytes; the gate counts characters, not bytes.
		users, err := svc.SearchUsers(ctx, "日", requester.ID)
		if err != nil {
			t.Fatalf("SearchUsers() error = %v", err)
		}
		if len(users) != 0 {
			t.Errorf("expected empty result, got %v", users)
		}
	})

	t.Run("match", func(t *testing.T) {
		users, err := svc.SearchUsers(ctx, "wonder", requester.ID)
		if err != nil {
			t.Fatalf("SearchUsers() error = %v", err)
		}
		if len(users) != 1 || users[0].Username != "alice_wonder" {
			t.Errorf("expected alice_wonder, got %v", users)
		}
	})
}

func TestAuthService_GetProfiles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice, _, err := svc.Register(ctx, "alice", "alice@example.com", "password123", nil)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	profiles, err := svc.GetProfiles(ctx, []string{alice.ID, "unknown-id"})
	if err != nil {
		t.Fatalf("GetProfiles() error = %v", err)
	}

	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
	if profiles[alice.ID].Username != "alice" {
		t.Errorf("expected alice, got %v", profiles[alice.ID])
	}
}

func TestSeedDemoUsers(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	hasher := NewPasswordHasher()

	if err := seedDemoUsers(repo, hasher); err != nil {
		t.Fatalf("seedDemoUsers() error = %v", err)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count == 0 {
		t.Fatal("expected seeded users")
	}

	bot, err := repo.FindBot()
	if err != nil {
		t.Fatalf("FindBot() error = %v", err)
	}
	if !bot.IsBot {
		t.Error("expected bot flag on seeded bot")
	}

	// Seeding again must be a no-op
	if err := seedDemoUsers(repo, hasher); err != nil {
		t.Fatalf("second seedDemoUsers() error = %v", err)
	}
	again, err := repo.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if again != count {
		t.Errorf("expected count to stay %d, got %d", count, again)
	}
}
