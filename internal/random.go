package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	refreshSecretSize = 32
	emailTokenSize    = 24
)

// NewRefreshSecret returns the random secret half of an opaque refresh token.
func NewRefreshSecret() ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashSecret derives the storage key for an opaque secret. Plaintext secrets
// never reach Redis.
func HashSecret(secret []byte) [32]byte {
	return sha256.Sum256(secret)
}

// EncodeOpaqueToken packs raw token bytes into the wire form handed to the
// boundary layer.
func EncodeOpaqueToken(raw []byte) string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeOpaqueToken reverses [EncodeOpaqueToken] and enforces the expected
// raw size.
func DecodeOpaqueToken(token string, size int) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	if len(raw) != size {
		return nil, errors.New("invalid opaque token size")
	}
	return raw, nil
}

// NewEmailToken generates the url-safe token embedded in verification links.
func NewEmailToken() (string, error) {
	raw := make([]byte, emailTokenSize)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewOTP generates a fixed-length numeric one-time code with uniform digits.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}
