package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/permission"
)

// requireAdmin authenticates the token and checks the role may manage
// users. The stock admin role passes through its {manage, all} wildcard.
func (e *Engine) requireAdmin(ctx context.Context, accessToken string) (*User, error) {
	user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !e.acl.Can(user.Role, permission.ActionManage, "users") {
		e.metrics.Inc(MetricAuthorizeDenied)
		return nil, ErrForbidden
	}
	return user, nil
}

// ListUsers returns one page of accounts for the admin console. Admin only.
func (e *Engine) ListUsers(ctx context.Context, accessToken string, q ListUsersQuery) (*UserPage, error) {
	if _, err := e.requireAdmin(ctx, accessToken); err != nil {
		return nil, err
	}

	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	page, err := e.users.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return page, nil
}

// GetUser returns one account by id. Admin only.
func (e *Engine) GetUser(ctx context.Context, accessToken, userID string) (*Profile, error) {
	if _, err := e.requireAdmin(ctx, accessToken); err != nil {
		return nil, err
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserDoesNotExist) {
			return nil, ErrUserDoesNotExist
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	p := user.Profile()
	return &p, nil
}

// BlockUser blocks an account until the given time, or indefinitely when
// until is nil. Blocked accounts cannot log in, refresh, or use their
// access tokens; every live refresh token is revoked immediately. Admin
// only.
func (e *Engine) BlockUser(ctx context.Context, accessToken, userID string, until *time.Time) error {
	admin, err := e.requireAdmin(ctx, accessToken)
	if err != nil {
		return err
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserDoesNotExist) {
			return ErrUserDoesNotExist
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	user.Blocked = true
	user.BlockedUntil = until
	user.Updated = time.Now()
	if err := e.users.Update(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.sessions.RevokeAll(ctx, user.ID); err != nil {
		e.logger.Error("revoke sessions of blocked user", "userId", user.ID, "error", err)
	}

	e.metrics.Inc(MetricUserBlocked)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditUserBlocked,
		UserID:    user.ID,
		Success:   true,
		Metadata:  map[string]string{"by": admin.ID},
	})
	return nil
}

// UnblockUser lifts a block. Admin only.
func (e *Engine) UnblockUser(ctx context.Context, accessToken, userID string) error {
	admin, err := e.requireAdmin(ctx, accessToken)
	if err != nil {
		return err
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserDoesNotExist) {
			return ErrUserDoesNotExist
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !user.Blocked {
		return nil
	}

	user.Blocked = false
	user.BlockedUntil = nil
	user.Updated = time.Now()
	if err := e.users.Update(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricUserUnblocked)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditUserUnblocked,
		UserID:    user.ID,
		Success:   true,
		Metadata:  map[string]string{"by": admin.ID},
	})
	return nil
}
