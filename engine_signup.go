package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Signup registers a new account, sends the email verification message, and
// logs the user straight in.
//
// The uniqueness check and the insert run inside one serializable
// transaction so two concurrent signups for the same email cannot both
// succeed; the loser gets ErrUserAlreadyExists.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, errors.New("signup: email required")
	}

	if err := e.policy.Check(req.Password); err != nil {
		e.metrics.Inc(MetricSignupWeakPassword)
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Mobile:       strings.TrimSpace(req.Mobile),
		PasswordHash: hash,
		Role:         e.config.ACL.DefaultRole,
		Info:         req.Info,
		Created:      now,
		Updated:      now,
	}

	err = e.users.CreateSerializable(ctx, func(ctx context.Context, tx UserTx) error {
		existing, err := tx.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, ErrUserDoesNotExist) {
			return err
		}
		if existing != nil {
			return ErrUserAlreadyExists
		}
		return tx.Insert(ctx, user)
	})
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			e.metrics.Inc(MetricSignupDuplicate)
			e.emitAudit(ctx, AuditEvent{EventType: AuditSignup, Email: email, Error: err.Error()})
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// delivery is async and best effort, signup stands even if it fails
	if err := e.sendVerificationEmail(ctx, email); err != nil {
		e.logger.Error("issue verification email token failed",
			"userId", user.ID, "error", err)
	}

	auth, err := e.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricSignupSuccess)
	e.emitAudit(ctx, AuditEvent{EventType: AuditSignup, UserID: user.ID, Email: email, Success: true})
	return auth, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
