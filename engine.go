package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/permission"
	"github.com/MrEthical07/authcore/session"
)

type redisClient = redis.UniversalClient

// Engine is the account security core. Build one with [New]; the zero value
// is unusable. All methods are safe for concurrent use.
type Engine struct {
	config Config

	users    UserRepository
	tokens   *jwt.Manager
	hasher   *password.Hasher
	policy   password.Policy
	sessions *session.Store
	verify   *stores.VerificationStore
	guard    *loginGuard
	acl      *permission.Policy

	notify  *notifier
	audit   *auditDispatcher
	metrics *Metrics
	logger  *slog.Logger
}

// Close stops the background dispatchers, draining queued notifications and
// audit events first. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.notify.Close()
	e.audit.Close()
}

// Metrics exposes the engine counters for exporters. Nil when metrics are
// disabled is fine, the Metrics methods tolerate it.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// MetricsSnapshot copies every counter, for pull-based exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	e.audit.Emit(ctx, event)
}

// issueTokens mints the access/refresh pair for an authenticated user.
func (e *Engine) issueTokens(ctx context.Context, user *User) (*AuthResult, error) {
	access, err := e.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := e.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &AuthResult{
		UserID:       user.ID,
		Role:         user.Role,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// authenticate resolves an access token to its current user record. The
// token alone is not enough: role and block status are re-read from the
// store so revoked privileges take effect before the token expires.
func (e *Engine) authenticate(ctx context.Context, accessToken string) (*User, error) {
	claims, err := e.tokens.Parse(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	user, err := e.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserDoesNotExist) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if user.BlockedNow(time.Now()) {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// Authorize validates the access token and checks the role against the
// policy. Returns the identity on success, ErrInvalidToken or ErrForbidden
// otherwise.
func (e *Engine) Authorize(ctx context.Context, accessToken, action, subject string) (*Identity, error) {
	user, err := e.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !e.acl.Can(user.Role, action, subject) {
		e.metrics.Inc(MetricAuthorizeDenied)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditAuthorizeDenied,
			UserID:    user.ID,
			Metadata:  map[string]string{"action": action, "subject": subject},
		})
		return nil, ErrForbidden
	}
	return &Identity{UserID: user.ID, Role: user.Role}, nil
}

func (e *Engine) sendVerificationEmail(ctx context.Context, email string) error {
	token, err := e.verify.IssueEmailToken(ctx, email, e.config.Verification.EmailTokenTTL)
	if err != nil {
		return err
	}
	link := token
	if e.config.Verification.EmailURL != "" {
		link = e.config.Verification.EmailURL + token
	}
	e.notify.SendEmail(email, "Verify your email address", "Confirm your email address by visiting "+link)
	e.metrics.Inc(MetricEmailVerificationSent)
	return nil
}

func (e *Engine) sendVerificationSMS(ctx context.Context, user *User, mobile string) error {
	code, err := e.verify.IssueSMSCode(ctx, mobile, user.ID, e.config.Verification.SMSCodeTTL)
	if err != nil {
		return err
	}
	e.notify.SendSMS(mobile, "Your verification code is "+code)
	e.metrics.Inc(MetricMobileVerificationSent)
	return nil
}
