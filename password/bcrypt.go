package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when Config.Cost is zero.
const DefaultCost = 10

// Config holds hasher tuning parameters.
type Config struct {
	Cost int
}

// Hasher is a bcrypt password hasher with a fixed work factor. Instances are
// immutable and safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher validates the work factor and returns a [Hasher].
func NewHasher(cfg Config) (*Hasher, error) {
	cost := cfg.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("invalid bcrypt cost")
	}
	return &Hasher{cost: cost}, nil
}

// Hash derives a salted one-way hash of the plaintext. bcrypt generates the
// salt internally, so two hashes of the same input differ.
func (h *Hasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether the plaintext matches the stored hash. A mismatch
// is (false, nil); only a malformed hash or computation failure returns an
// error.
func (h *Hasher) Verify(plaintext, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
