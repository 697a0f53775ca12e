package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Login is the first authentication step. The brute-force guard runs before
// credentials are even looked at; blocked callers get a *RateLimitedError.
//
// On bad credentials the failure counters are charged and the caller gets
// the uniform ErrInvalidEmailOrPassword. Blocked accounts fail the same way
// so the response does not reveal the block.
//
// When the account has SMS two-factor enabled the result carries
// TwoFARequired and a code is texted to the verified mobile number; the
// caller must finish with LoginTwoFA. No tokens are issued and the failure
// counters stay charged until the second step succeeds.
func (e *Engine) Login(ctx context.Context, email, plainPassword string) (*LoginResult, error) {
	email = normalizeEmail(email)
	ip := clientIPFromContext(ctx)
	deviceID := deviceIDFromContext(ctx)

	state, err := e.guard.check(ctx, email, ip, deviceID)
	if err != nil {
		var rle *RateLimitedError
		if errors.As(err, &rle) {
			e.metrics.Inc(MetricLoginRateLimited)
			e.emitAudit(ctx, AuditEvent{EventType: AuditLoginRateLimit, Email: email})
		}
		return nil, err
	}

	user, ok, err := e.checkCredentials(ctx, email, plainPassword)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.loginFailed(ctx, state, email, ip)
		return nil, ErrInvalidEmailOrPassword
	}

	if user.SMSTwoFA {
		if err := e.sendVerificationSMS(ctx, user, user.Mobile); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		e.metrics.Inc(MetricLoginTwoFARequired)
		return &LoginResult{TwoFARequired: true}, nil
	}

	auth, err := e.loginSucceeded(ctx, state, user, ip, deviceID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Auth: auth}, nil
}

// LoginTwoFA is the second authentication step for accounts with SMS 2FA.
// Password and code are both required again; any mismatch yields the
// uniform ErrInvalidEmailOrPasswordOrVerificationCode and charges the
// failure counters.
func (e *Engine) LoginTwoFA(ctx context.Context, email, plainPassword, code string) (*AuthResult, error) {
	email = normalizeEmail(email)
	ip := clientIPFromContext(ctx)
	deviceID := deviceIDFromContext(ctx)

	state, err := e.guard.check(ctx, email, ip, deviceID)
	if err != nil {
		var rle *RateLimitedError
		if errors.As(err, &rle) {
			e.metrics.Inc(MetricLoginRateLimited)
			e.emitAudit(ctx, AuditEvent{EventType: AuditLoginRateLimit, Email: email})
		}
		return nil, err
	}

	user, ok, err := e.checkCredentials(ctx, email, plainPassword)
	if err != nil {
		return nil, err
	}
	if ok {
		var match bool
		match, err = e.verify.MatchSMSCode(ctx, user.ID, user.Mobile, code)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		ok = match
	}
	if !ok {
		e.metrics.Inc(MetricLoginTwoFAFailure)
		e.loginFailed(ctx, state, email, ip)
		return nil, ErrInvalidEmailOrPasswordOrVerificationCode
	}

	auth, err := e.loginSucceeded(ctx, state, user, ip, deviceID)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricLoginTwoFASuccess)
	e.emitAudit(ctx, AuditEvent{EventType: AuditLoginTwoFA, UserID: user.ID, Success: true})
	return auth, nil
}

// checkCredentials resolves the email and verifies the password. Blocked
// accounts verify as a failure. The returned user is only meaningful when
// ok is true.
func (e *Engine) checkCredentials(ctx context.Context, email, plainPassword string) (*User, bool, error) {
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserDoesNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	match, err := e.hasher.Verify(plainPassword, user.PasswordHash)
	if err != nil {
		return nil, false, fmt.Errorf("verify password: %w", err)
	}
	if !match || user.BlockedNow(time.Now()) {
		return nil, false, nil
	}
	return user, true, nil
}

func (e *Engine) loginFailed(ctx context.Context, state *guardState, email, ip string) {
	e.metrics.Inc(MetricLoginFailure)
	if err := e.guard.recordFailure(ctx, state, email, ip); err != nil {
		e.logger.Error("record login failure", "email", email, "error", err)
	}
	e.emitAudit(ctx, AuditEvent{EventType: AuditLogin, Email: email, Error: ErrInvalidEmailOrPassword.Error()})
}

// loginSucceeded issues the token pair, clears the strict failure counter,
// and trusts the device. The device id lands on the result when a new one
// was minted.
func (e *Engine) loginSucceeded(ctx context.Context, state *guardState, user *User, ip, deviceID string) (*AuthResult, error) {
	auth, err := e.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	newDevice, err := e.guard.recordSuccess(ctx, state, user.Email, ip, deviceID)
	if err != nil {
		e.logger.Error("record login success", "userId", user.ID, "error", err)
	}
	auth.DeviceID = newDevice

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{EventType: AuditLogin, UserID: user.ID, Email: user.Email, Success: true})
	return auth, nil
}
