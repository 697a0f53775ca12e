package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrDeviceStoreUnavailable wraps Redis transport failures from the
// trusted-device set.
var ErrDeviceStoreUnavailable = errors.New("trusted device redis unavailable")

// TrustedDeviceStore tracks which device identifiers have completed a
// successful login for a username. Membership never expires: a trusted
// device keeps its lenient rate-limit treatment indefinitely.
type TrustedDeviceStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewTrustedDeviceStore creates the set store under the given key prefix.
func NewTrustedDeviceStore(redisClient redis.UniversalClient, prefix string) *TrustedDeviceStore {
	if prefix == "" {
		prefix = "trusted_device"
	}
	return &TrustedDeviceStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *TrustedDeviceStore) key(username string) string {
	return s.prefix + ":" + username
}

// IsTrusted reports whether the device id belongs to the username's trusted
// set. An empty device id is never trusted.
func (s *TrustedDeviceStore) IsTrusted(ctx context.Context, username, deviceID string) (bool, error) {
	if deviceID == "" {
		return false, nil
	}

	ok, err := s.redis.SIsMember(ctx, s.key(username), deviceID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDeviceStoreUnavailable, err)
	}
	return ok, nil
}

// Trust adds the device id to the username's trusted set.
func (s *TrustedDeviceStore) Trust(ctx context.Context, username, deviceID string) error {
	if err := s.redis.SAdd(ctx, s.key(username), deviceID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceStoreUnavailable, err)
	}
	return nil
}
