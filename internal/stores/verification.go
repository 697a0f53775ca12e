package stores

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrVerificationNotFound is returned when no live record matches.
	ErrVerificationNotFound = errors.New("verification record not found")
	// ErrVerificationUnavailable wraps Redis transport failures.
	ErrVerificationUnavailable = errors.New("verification redis unavailable")
)

// smsRecord is the JSON value stored per mobile number.
type smsRecord struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

// VerificationStore issues and matches one-time email tokens and SMS codes.
type VerificationStore struct {
	redis  redis.UniversalClient
	prefix string
	digits int
}

// NewVerificationStore creates a store under the given key prefix.
// digits is the SMS code length.
func NewVerificationStore(redisClient redis.UniversalClient, prefix string, digits int) *VerificationStore {
	if prefix == "" {
		prefix = "verification"
	}
	if digits <= 0 {
		digits = 6
	}
	return &VerificationStore{
		redis:  redisClient,
		prefix: prefix,
		digits: digits,
	}
}

func (s *VerificationStore) emailTokenKey(token string) string {
	return s.prefix + ":email:token:" + token
}

func (s *VerificationStore) emailOwnerKey(email string) string {
	return s.prefix + ":email:addr:" + email
}

func (s *VerificationStore) smsKey(mobile string) string {
	return s.prefix + ":sms:" + mobile
}

// issueEmailLua writes token->email and email->token, deleting the address's
// prior pending token so only one live token exists per address.
//
// KEYS[1] = new token key
// KEYS[2] = owner key
// ARGV[1] = email
// ARGV[2] = ttl ms
// ARGV[3] = token key prefix
// ARGV[4] = token
var issueEmailLua = redis.NewScript(`
local prior = redis.call('GET', KEYS[2])
if prior then
  redis.call('DEL', ARGV[3] .. prior)
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('SET', KEYS[2], ARGV[4], 'PX', ARGV[2])
return 1
`)

// IssueEmailToken generates a fresh link token for the address and stores it
// with the given TTL, invalidating any prior pending token for the same
// address.
func (s *VerificationStore) IssueEmailToken(ctx context.Context, email string, ttl time.Duration) (string, error) {
	token, err := internal.NewEmailToken()
	if err != nil {
		return "", err
	}

	err = issueEmailLua.Run(ctx, s.redis,
		[]string{s.emailTokenKey(token), s.emailOwnerKey(email)},
		email,
		ttl.Milliseconds(),
		s.prefix+":email:token:",
		token,
	).Err()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	return token, nil
}

// EmailByToken resolves a link token to the address it was issued for.
// The record stays live until TTL expiry; a second call with the same token
// succeeds again.
func (s *VerificationStore) EmailByToken(ctx context.Context, token string) (string, error) {
	email, err := s.redis.Get(ctx, s.emailTokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrVerificationNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	return email, nil
}

// IssueSMSCode generates a numeric code for the mobile number, bound to the
// owning user id, overwriting any prior pending code for the same number.
func (s *VerificationStore) IssueSMSCode(ctx context.Context, mobile, userID string, ttl time.Duration) (string, error) {
	code, err := internal.NewOTP(s.digits)
	if err != nil {
		return "", err
	}

	value, err := json.Marshal(smsRecord{UserID: userID, Code: code})
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(ctx, s.smsKey(mobile), value, ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	return code, nil
}

// MatchSMSCode reports whether the code matches the live record for the
// mobile number AND that record's owning user. A missing or expired record
// matches nothing.
func (s *VerificationStore) MatchSMSCode(ctx context.Context, userID, mobile, code string) (bool, error) {
	raw, err := s.redis.Get(ctx, s.smsKey(mobile)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	var record smsRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return false, nil
	}

	if record.UserID != userID {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) == 1, nil
}
