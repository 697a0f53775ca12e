package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/redis/go-redis/v9"
)

const refreshTokenRawSize = 32

var (
	// ErrTokenNotFound is returned when a token is absent, expired, or
	// already redeemed.
	ErrTokenNotFound = errors.New("refresh token not found")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Store is the refresh-token registry. Tokens are opaque, single-use, and
// TTL-bound; a user may hold any number of live tokens concurrently
// (multi-device).
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore creates a registry under the given key prefix with the session
// window ttl applied to every issued token.
func NewStore(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "refresh_token"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *Store) tokenKey(hash string) string {
	return s.prefix + ":token:" + hash
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":user:" + userID
}

// TTL returns the configured session window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Issue generates a fresh opaque token for the user and registers it.
func (s *Store) Issue(ctx context.Context, userID string) (string, error) {
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		return "", err
	}

	hash := hex.EncodeToString(hashOf(secret[:]))

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.tokenKey(hash), userID, s.ttl)
	pipe.SAdd(ctx, s.userKey(userID), hash)
	pipe.Expire(ctx, s.userKey(userID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return internal.EncodeOpaqueToken(secret[:]), nil
}

// Redeem consumes the token and returns the owning user id. The forward key
// is deleted atomically, so redeeming the same token twice fails with
// [ErrTokenNotFound] on the replay.
func (s *Store) Redeem(ctx context.Context, token string) (string, error) {
	hash, err := s.hashToken(token)
	if err != nil {
		return "", ErrTokenNotFound
	}

	userID, err := s.redis.GetDel(ctx, s.tokenKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Index upkeep only; the forward key is already gone.
	_ = s.redis.SRem(ctx, s.userKey(userID), hash).Err()

	return userID, nil
}

// Revoke removes one token for the user. Removing an already-dead token is
// not an error.
func (s *Store) Revoke(ctx context.Context, userID, token string) error {
	hash, err := s.hashToken(token)
	if err != nil {
		return nil
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, s.tokenKey(hash))
	pipe.SRem(ctx, s.userKey(userID), hash)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokeAll removes every live token for the user.
func (s *Store) RevokeAll(ctx context.Context, userID string) error {
	hashes, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	pipe := s.redis.TxPipeline()
	for _, hash := range hashes {
		pipe.Del(ctx, s.tokenKey(hash))
	}
	pipe.Del(ctx, s.userKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) hashToken(token string) (string, error) {
	raw, err := internal.DecodeOpaqueToken(token, refreshTokenRawSize)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hashOf(raw)), nil
}

func hashOf(raw []byte) []byte {
	sum := internal.HashSecret(raw)
	return sum[:]
}
