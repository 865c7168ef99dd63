package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	tokenHash := "test-token-hash"
	userID := "usr_1f00d"
	expiresAt := time.Now().Add(24 * time.Hour)

	if err := store.SaveRefreshSession(ctx, tokenHash, userID, expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	user, err := store.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}
	if user.ID != userID {
		t.Errorf("expected user ID %s, got %s", userID, user.ID)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	expiresAt := time.Now().Add(1 * time.Millisecond)
	if err := store.SaveRefreshSession(ctx, "expired-token", "usr_2b00", expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	s.FastForward(2 * time.Millisecond)

	if _, err := store.LookupRefreshSession(ctx, "expired-token"); err == nil {
		t.Error("expected error for expired token, got nil")
	}
}

func TestLookupNonExistentSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	if _, err := store.LookupRefreshSession(context.Background(), "non-existent-token"); err == nil {
		t.Error("expected error for non-existent token, got nil")
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	tokenHash := "token-to-revoke"
	expiresAt := time.Now().Add(24 * time.Hour)

	if err := store.SaveRefreshSession(ctx, tokenHash, "usr_3c00", expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if _, err := store.LookupRefreshSession(ctx, tokenHash); err != nil {
		t.Fatalf("Lookup before revoke failed: %v", err)
	}

	if err := store.RevokeRefreshSession(ctx, tokenHash); err != nil {
		t.Fatalf("RevokeRefreshSession failed: %v", err)
	}

	if _, err := store.LookupRefreshSession(ctx, tokenHash); err == nil {
		t.Error("expected error for revoked token, got nil")
	}
}

func TestRevokeNonExistentSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	// Revoking an unknown token is a no-op, not an error.
	if err := store.RevokeRefreshSession(context.Background(), "non-existent-token"); err != nil {
		t.Errorf("RevokeRefreshSession for non-existent token failed: %v", err)
	}
}

func TestSessionIsolation(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	expiresAt := time.Now().Add(24 * time.Hour)

	if err := store.SaveRefreshSession(ctx, "token-1", "usr_a", expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession 1 failed: %v", err)
	}
	if err := store.SaveRefreshSession(ctx, "token-2", "usr_b", expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession 2 failed: %v", err)
	}

	if err := store.RevokeRefreshSession(ctx, "token-1"); err != nil {
		t.Fatalf("Revoke token-1 failed: %v", err)
	}

	if _, err := store.LookupRefreshSession(ctx, "token-1"); err == nil {
		t.Error("expected error for revoked token-1, got nil")
	}

	user, err := store.LookupRefreshSession(ctx, "token-2")
	if err != nil {
		t.Fatalf("Lookup token-2 after revoke failed: %v", err)
	}
	if user.ID != "usr_b" {
		t.Errorf("expected usr_b after revoke, got %s", user.ID)
	}
}
