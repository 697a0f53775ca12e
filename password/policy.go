package password

import (
	"errors"
	"fmt"
	"unicode"
)

// Policy is the signup strength policy. The zero value accepts anything;
// use [DefaultPolicy] for the intended rules.
type Policy struct {
	MinLength int
	MaxLength int
}

// DefaultPolicy mirrors the OWASP guidance the service has always shipped
// with: at least 10 characters, at most 128, with lowercase, uppercase,
// digit, and special classes all present.
func DefaultPolicy() Policy {
	return Policy{
		MinLength: 10,
		MaxLength: 128,
	}
}

// Check returns a descriptive error for the first rule the password fails,
// or nil when it passes.
func (p Policy) Check(plaintext string) error {
	if p.MinLength > 0 && len(plaintext) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}
	if p.MaxLength > 0 && len(plaintext) > p.MaxLength {
		return fmt.Errorf("password must be at most %d characters long", p.MaxLength)
	}
	if p.MinLength == 0 && p.MaxLength == 0 {
		return nil
	}

	var lower, upper, digit, special bool
	for _, r := range plaintext {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	switch {
	case !lower:
		return errors.New("password must contain at least one lowercase letter")
	case !upper:
		return errors.New("password must contain at least one uppercase letter")
	case !digit:
		return errors.New("password must contain at least one number")
	case !special:
		return errors.New("password must contain at least one special character")
	}

	return nil
}
