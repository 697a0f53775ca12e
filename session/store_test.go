package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewStore(rdb, "refresh_token", time.Hour), mr
}

func TestIssueRedeemRoundTrip(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	userID, err := store.Redeem(ctx, token)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("userID = %q", userID)
	}
}

func TestRedeemIsSingleUse(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := store.Redeem(ctx, token); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if _, err := store.Redeem(ctx, token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("replay should fail with ErrTokenNotFound, got %v", err)
	}
}

func TestRedeemGarbage(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()

	for _, token := range []string{"", "not-base64!!!", "c2hvcnQ"} {
		if _, err := store.Redeem(ctx, token); !errors.Is(err, ErrTokenNotFound) {
			t.Fatalf("token %q: expected ErrTokenNotFound, got %v", token, err)
		}
	}
}

func TestTokenExpires(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	if _, err := store.Redeem(ctx, token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestRevokeSingle(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()

	tokenA, _ := store.Issue(ctx, "user-1")
	tokenB, _ := store.Issue(ctx, "user-1")

	if err := store.Revoke(ctx, "user-1", tokenA); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, err := store.Redeem(ctx, tokenA); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("revoked token should be dead, got %v", err)
	}
	if _, err := store.Redeem(ctx, tokenB); err != nil {
		t.Fatalf("other token should survive: %v", err)
	}
}

func TestRevokeMalformedTokenIsNoop(t *testing.T) {
	store, _ := newSessionStoreTest(t)

	if err := store.Revoke(context.Background(), "user-1", "???"); err != nil {
		t.Fatalf("revoking garbage should not error: %v", err)
	}
}

func TestRevokeAll(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()

	tokens := make([]string, 3)
	for i := range tokens {
		token, err := store.Issue(ctx, "user-1")
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		tokens[i] = token
	}
	other, _ := store.Issue(ctx, "user-2")

	if err := store.RevokeAll(ctx, "user-1"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}

	for i, token := range tokens {
		if _, err := store.Redeem(ctx, token); !errors.Is(err, ErrTokenNotFound) {
			t.Fatalf("token %d should be dead, got %v", i, err)
		}
	}
	if _, err := store.Redeem(ctx, other); err != nil {
		t.Fatalf("user-2 token should survive: %v", err)
	}
}

func TestPlaintextNeverStored(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for _, key := range mr.Keys() {
		if key == token {
			t.Fatal("plaintext token used as redis key")
		}
		if value, err := mr.Get(key); err == nil && value == token {
			t.Fatalf("plaintext token stored in key %q", key)
		}
	}
}
