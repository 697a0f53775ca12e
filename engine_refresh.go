package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/session"
)

// Refresh redeems a refresh token for a new access/refresh pair. Tokens are
// single use: the presented one is consumed atomically, so a replayed token
// fails with ErrInvalidRefreshToken even if the first redemption happened a
// moment earlier.
//
// The user record is re-read before reissuing, so a block applied since the
// last refresh cuts the session off here.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := e.sessions.Redeem(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrTokenNotFound) {
			e.metrics.Inc(MetricRefreshFailure)
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserDoesNotExist) {
			e.metrics.Inc(MetricRefreshFailure)
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if user.BlockedNow(time.Now()) {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, ErrInvalidRefreshToken
	}

	auth, err := e.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditEvent{EventType: AuditRefresh, UserID: user.ID, Success: true})
	return auth, nil
}

// Logout revokes the presented refresh token. With allDevices set, every
// live refresh token of the account is revoked instead. The access token
// is not blacklisted, it simply runs out its short lifetime.
//
// Logout is idempotent: revoking an unknown or already-revoked token
// succeeds.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string, allDevices bool) error {
	user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return err
	}

	if allDevices {
		if err := e.sessions.RevokeAll(ctx, user.ID); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		e.metrics.Inc(MetricLogoutAll)
	} else {
		if err := e.sessions.Revoke(ctx, user.ID, refreshToken); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		e.metrics.Inc(MetricLogout)
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLogout,
		UserID:    user.ID,
		Success:   true,
		Metadata:  map[string]string{"allDevices": fmt.Sprintf("%t", allDevices)},
	})
	return nil
}
