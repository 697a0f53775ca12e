package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GetProfile returns the authenticated user's own profile.
func (e *Engine) GetProfile(ctx context.Context, accessToken string) (*Profile, error) {
	user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	p := user.Profile()
	return &p, nil
}

// SetInfo merges the non-empty fields of info into the authenticated
// user's profile block. Empty fields leave the stored value alone.
func (e *Engine) SetInfo(ctx context.Context, accessToken string, info UserInfo) (*Profile, error) {
	user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if info.FirstName != "" {
		user.Info.FirstName = info.FirstName
	}
	if info.LastName != "" {
		user.Info.LastName = info.LastName
	}
	user.Updated = time.Now()

	if err := e.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, AuditEvent{EventType: AuditProfileUpdate, UserID: user.ID, Success: true})
	p := user.Profile()
	return &p, nil
}

// SetMobile changes the authenticated user's mobile number and sends a
// fresh verification code to it. Setting the current, already-verified
// number again is a no-op; any other change resets the verified flag and,
// with it, disables SMS two-factor until the new number is verified.
func (e *Engine) SetMobile(ctx context.Context, accessToken, mobile string) (*Profile, error) {
	user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	mobile = strings.TrimSpace(mobile)
	if mobile == user.Mobile && user.MobileVerified {
		p := user.Profile()
		return &p, nil
	}

	user.Mobile = mobile
	user.MobileVerified = false
	user.SMSTwoFA = false
	user.Updated = time.Now()

	if err := e.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if mobile != "" {
		if err := e.sendVerificationSMS(ctx, user, mobile); err != nil {
			e.logger.Error("issue mobile verification code failed",
				"userId", user.ID, "error", err)
		}
	}

	e.emitAudit(ctx, AuditEvent{EventType: AuditMobileChange, UserID: user.ID, Success: true})
	p := user.Profile()
	return &p, nil
}

// SetEmail changes the authenticated user's email address. The new address
// must not belong to another account; the verified flag resets and a fresh
// verification message goes out.
func (e *Engine) SetEmail(ctx context.Context, accessToken, email string) (*Profile, error) {
	user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.New("set email: email required")
	}
	if email == user.Email {
		p := user.Profile()
		return &p, nil
	}

	other, err := e.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserDoesNotExist) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if other != nil && other.ID != user.ID {
		return nil, ErrUserAlreadyExists
	}

	user.Email = email
	user.EmailVerified = false
	user.Updated = time.Now()

	if err := e.users.Update(ctx, user); err != nil {
		// a concurrent signup or email change can take the address
		// between the check above and the write
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.sendVerificationEmail(ctx, email); err != nil {
		e.logger.Error("issue verification email token failed",
			"userId", user.ID, "error", err)
	}

	e.emitAudit(ctx, AuditEvent{EventType: AuditEmailChange, UserID: user.ID, Success: true})
	p := user.Profile()
	return &p, nil
}

// SetSMSTwoFA toggles SMS two-factor login. Enabling requires a verified
// mobile number; disabling is always allowed.
func (e *Engine) SetSMSTwoFA(ctx context.Context, accessToken string, enabled bool) (*Profile, error) {
	user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if enabled && !user.MobileVerified {
		return nil, ErrMobileMustBeVerified
	}

	if user.SMSTwoFA != enabled {
		user.SMSTwoFA = enabled
		user.Updated = time.Now()
		if err := e.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditTwoFAToggle,
			UserID:    user.ID,
			Success:   true,
			Metadata:  map[string]string{"enabled": fmt.Sprintf("%t", enabled)},
		})
	}

	p := user.Profile()
	return &p, nil
}
