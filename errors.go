package authcore

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrWeakPassword is returned by Signup when the password fails the
	// strength policy. Wraps a descriptive reason.
	ErrWeakPassword = errors.New("password does not meet the policy")
	// ErrUserAlreadyExists is returned by Signup and SetEmail when the
	// email is already taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidEmailOrPassword is the uniform login failure. It covers
	// unknown emails, wrong passwords, and blocked accounts alike so the
	// response does not leak which one it was.
	ErrInvalidEmailOrPassword = errors.New("invalid email or password")
	// ErrInvalidEmailOrPasswordOrVerificationCode is the uniform failure
	// for the second login step when SMS 2FA is enabled.
	ErrInvalidEmailOrPasswordOrVerificationCode = errors.New("invalid email or password or verification code")
	// ErrCouldNotVerifyEmail is returned for unknown or expired email
	// verification tokens.
	ErrCouldNotVerifyEmail = errors.New("could not verify email")
	// ErrCouldNotVerifyMobile is returned for wrong or expired SMS codes.
	ErrCouldNotVerifyMobile = errors.New("could not verify mobile")
	// ErrMobileMustBeVerified is returned when enabling SMS 2FA without a
	// verified mobile number.
	ErrMobileMustBeVerified = errors.New("mobile number must be verified first")
	// ErrUserDoesNotExist is returned by admin lookups for unknown ids.
	ErrUserDoesNotExist = errors.New("user does not exist")
	// ErrInvalidRefreshToken covers unknown, already-redeemed, and
	// malformed refresh tokens, and refresh attempts by blocked users.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidToken covers missing, malformed, expired, or otherwise
	// unverifiable access tokens.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrForbidden is returned when a valid identity lacks the permission
	// for the requested action.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited is the target for errors.Is on a *RateLimitedError.
	ErrRateLimited = errors.New("too many requests")
	// ErrStoreUnavailable wraps infrastructure failures (Redis or the
	// user store) so callers can map them to a 5xx instead of a 4xx.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrEngineNotReady is returned by Build when required dependencies
	// are missing.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitedError reports a login rejected by the brute-force guard.
// RetryAfter is zero when the block has no finite end.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
	}
	return "too many requests"
}

// Unwrap lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }
