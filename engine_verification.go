package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal/stores"
)

// VerifyEmail marks the account owning the token's email address as
// verified. Tokens expire after the configured TTL but are not consumed on
// success, so retrying a verification link that already worked succeeds
// again; verifying an already-verified account is a no-op success.
//
// Unknown or expired tokens fail with ErrCouldNotVerifyEmail.
func (e *Engine) VerifyEmail(ctx context.Context, token string) error {
	email, err := e.verify.EmailByToken(ctx, token)
	if err != nil {
		if errors.Is(err, stores.ErrVerificationNotFound) {
			e.metrics.Inc(MetricEmailVerificationFailure)
			return ErrCouldNotVerifyEmail
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserDoesNotExist) {
			e.metrics.Inc(MetricEmailVerificationFailure)
			return ErrCouldNotVerifyEmail
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if user.EmailVerified {
		return nil
	}

	user.EmailVerified = true
	user.Updated = time.Now()
	if err := e.users.Update(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, AuditEvent{EventType: AuditVerifyEmail, UserID: user.ID, Success: true})
	return nil
}

// VerifyMobile checks the SMS code delivered to the authenticated user's
// mobile number and marks the number verified. Wrong, expired, or
// missing codes fail with ErrCouldNotVerifyMobile.
func (e *Engine) VerifyMobile(ctx context.Context, accessToken, code string) error {
	user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return err
	}

	match, err := e.verify.MatchSMSCode(ctx, user.ID, user.Mobile, code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !match {
		e.metrics.Inc(MetricMobileVerificationFailure)
		return ErrCouldNotVerifyMobile
	}

	if user.MobileVerified {
		return nil
	}

	user.MobileVerified = true
	user.Updated = time.Now()
	if err := e.users.Update(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricMobileVerificationSuccess)
	e.emitAudit(ctx, AuditEvent{EventType: AuditVerifyMobile, UserID: user.ID, Success: true})
	return nil
}

// ResendVerificationEmail issues a fresh email token for the authenticated
// user and queues the message. Any previously issued token for the address
// is invalidated.
func (e *Engine) ResendVerificationEmail(ctx context.Context, accessToken string) error {
	user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}
	if err := e.sendVerificationEmail(ctx, user.Email); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// SendMobileVerification issues a fresh SMS code for the authenticated
// user's mobile number and queues the message.
func (e *Engine) SendMobileVerification(ctx context.Context, accessToken string) error {
	user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return err
	}
	if user.Mobile == "" {
		return ErrCouldNotVerifyMobile
	}
	if err := e.sendVerificationSMS(ctx, user, user.Mobile); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
