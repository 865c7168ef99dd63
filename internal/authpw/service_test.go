package authpw

import (
	"context"
	"errors"
	"testing"
	"time"

	"huddle/api/internal/store"
)

// mockUserStore is a mock implementation of UserStore for testing
type mockUserStore struct {
	users      map[string]store.User
	emailIndex map[string]string // email -> userID
	resets     map[string]struct {
		userID    string
		expiresAt time.Time
		used      bool
	}
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:      make(map[string]store.User),
		emailIndex: make(map[string]string),
		resets: make(map[string]struct {
			userID    string
			expiresAt time.Time
			used      bool
		}),
	}
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if userID, ok := m.emailIndex[email]; ok {
		return m.users[userID], nil
	}
	return store.User{}, errors.New("user not found")
}

func (m *mockUserStore) CreateUser(ctx context.Context, user store.User) error {
	if _, ok := m.emailIndex[user.Email]; ok {
		return store.ErrDuplicateEmail
	}
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	return nil
}

func (m *mockUserStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	if user, ok := m.users[userID]; ok {
		user.PasswordHash = passwordHash
		m.users[userID] = user
		return nil
	}
	return errors.New("user not found")
}

func (m *mockUserStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	m.resets[token] = struct {
		userID    string
		expiresAt time.Time
		used      bool
	}{userID: userID, expiresAt: expiresAt, used: false}
	return nil
}

func (m *mockUserStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	if reset, ok := m.resets[token]; ok && !reset.used && time.Now().Before(reset.expiresAt) {
		return reset.userID, nil
	}
	return "", errors.New("invalid or expired token")
}

func (m *mockUserStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	if reset, ok := m.resets[token]; ok {
		reset.used = true
		m.resets[token] = reset
	}
	return nil
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	mockStore := newMockUserStore()
	svc := NewService(mockStore)

	t.Run("successful sign up", func(t *testing.T) {
		user, err := svc.SignUp(ctx, SignUpRequest{
			Email:       "priya@example.com",
			Password:    "password123",
			DisplayName: "Priya",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID == "" {
			t.Error("expected user ID to be set")
		}
		if user.Role != "member" {
			t.Errorf("expected default role member, got %s", user.Role)
		}
		if user.PasswordHash == "password123" {
			t.Error("password must not be stored in the clear")
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{
			Email:       "priya@example.com",
			Password:    "password123",
			DisplayName: "Impostor",
		})
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{
			Email:       "short@example.com",
			Password:    "short",
			DisplayName: "Short",
		})
		if !errors.Is(err, ErrWeakPassword) {
			t.Errorf("expected ErrWeakPassword, got %v", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		if _, err := svc.SignUp(ctx, SignUpRequest{}); err == nil {
			t.Error("expected error for missing fields")
		}
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	mockStore := newMockUserStore()
	svc := NewService(mockStore)

	if _, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "priya@example.com",
		Password:    "password123",
		DisplayName: "Priya",
	}); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	t.Run("successful sign in", func(t *testing.T) {
		user, err := svc.SignIn(ctx, SignInRequest{
			Email:    "priya@example.com",
			Password: "password123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Email != "priya@example.com" {
			t.Errorf("expected email priya@example.com, got %s", user.Email)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "priya@example.com",
			Password: "wrongpassword",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("non-existent user", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "nobody@example.com",
			Password: "password123",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	mockStore := newMockUserStore()
	svc := NewService(mockStore)

	if _, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "priya@example.com",
		Password:    "password123",
		DisplayName: "Priya",
	}); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	t.Run("request reset for existing user", func(t *testing.T) {
		token, err := svc.RequestPasswordReset(ctx, "priya@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token == "" {
			t.Error("expected token to be generated")
		}
	})

	t.Run("request reset for non-existent user - no error", func(t *testing.T) {
		token, err := svc.RequestPasswordReset(ctx, "nobody@example.com")
		if err != nil {
			t.Errorf("expected no error for non-existent user, got: %v", err)
		}
		if token != "" {
			t.Error("expected empty token for non-existent user")
		}
	})

	t.Run("reset password with valid token", func(t *testing.T) {
		token, _ := svc.RequestPasswordReset(ctx, "priya@example.com")

		err := svc.ResetPassword(ctx, ResetPasswordRequest{
			Token:       token,
			NewPassword: "newpassword123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := svc.SignIn(ctx, SignInRequest{
			Email:    "priya@example.com",
			Password: "password123",
		}); err == nil {
			t.Error("expected old password to not work")
		}

		if _, err := svc.SignIn(ctx, SignInRequest{
			Email:    "priya@example.com",
			Password: "newpassword123",
		}); err != nil {
			t.Errorf("expected new password to work: %v", err)
		}
	})

	t.Run("reset token is single use", func(t *testing.T) {
		token, _ := svc.RequestPasswordReset(ctx, "priya@example.com")
		if err := svc.ResetPassword(ctx, ResetPasswordRequest{
			Token:       token,
			NewPassword: "anotherpass456",
		}); err != nil {
			t.Fatalf("first reset failed: %v", err)
		}
		if err := svc.ResetPassword(ctx, ResetPasswordRequest{
			Token:       token,
			NewPassword: "yetanother789",
		}); err == nil {
			t.Error("expected error reusing a reset token")
		}
	})

	t.Run("reset with invalid token", func(t *testing.T) {
		err := svc.ResetPassword(ctx, ResetPasswordRequest{
			Token:       "invalid-token",
			NewPassword: "newpassword123",
		})
		if err == nil {
			t.Error("expected error for invalid token")
		}
	})

	t.Run("reset with short password", func(t *testing.T) {
		err := svc.ResetPassword(ctx, ResetPasswordRequest{
			Token:       "some-token",
			NewPassword: "short",
		})
		if !errors.Is(err, ErrWeakPassword) {
			t.Errorf("expected ErrWeakPassword, got %v", err)
		}
	})
}
