package authcore

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/permission"
	"github.com/MrEthical07/authcore/session"
)

// Builder assembles an Engine. Builders are single use.
type Builder struct {
	config    Config
	configSet bool

	redis redisClient
	users UserRepository

	emailSender EmailSender
	smsSender   SMSSender
	auditSink   AuditSink
	logger      *slog.Logger

	built bool
}

// New starts a builder with the stock configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. Zero fields are filled with
// defaults at Build, so partial configs are fine.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	b.configSet = true
	return b
}

// WithRedis sets the Redis client backing sessions, verification codes,
// rate counters, and trusted devices. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUsers sets the user repository. Required.
func (b *Builder) WithUsers(repo UserRepository) *Builder {
	b.users = repo
	return b
}

// WithRoles replaces the role table used for authorization.
func (b *Builder) WithRoles(roles map[string][]permission.Rule) *Builder {
	b.config.ACL.Roles = roles
	return b
}

// WithEmailSender sets the outgoing mail transport. Without one, email
// verification messages are silently skipped.
func (b *Builder) WithEmailSender(sender EmailSender) *Builder {
	b.emailSender = sender
	return b
}

// WithSMSSender sets the outgoing SMS transport. Required when any account
// enables SMS two-factor login.
func (b *Builder) WithSMSSender(sender SMSSender) *Builder {
	b.smsSender = sender
	return b
}

// WithAuditSink enables audit events and directs them to the sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires every component, and starts the
// background dispatchers. Errors wrap ErrEngineNotReady.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, fmt.Errorf("%w: builder already used", ErrEngineNotReady)
	}
	b.built = true

	if b.redis == nil {
		return nil, fmt.Errorf("%w: redis client required", ErrEngineNotReady)
	}
	if b.users == nil {
		return nil, fmt.Errorf("%w: user repository required", ErrEngineNotReady)
	}

	cfg := b.config
	if b.configSet {
		cfg = mergeDefaults(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineNotReady, err)
	}

	tokens, err := jwt.NewManager(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineNotReady, err)
	}

	hasher, err := password.NewHasher(password.Config{Cost: cfg.Password.Cost})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineNotReady, err)
	}

	acl, err := permission.NewPolicy(cfg.ACL.Roles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineNotReady, err)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config: cfg,
		users:  b.users,
		tokens: tokens,
		hasher: hasher,
		policy: password.Policy{
			MinLength: cfg.Password.MinLength,
			MaxLength: cfg.Password.MaxLength,
		},
		sessions: session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.RefreshTTL),
		verify:   stores.NewVerificationStore(b.redis, cfg.Verification.RedisPrefix, cfg.Verification.SMSCodeDigits),
		guard:    newLoginGuard(b.redis, cfg.BruteForce),
		acl:      acl,
		metrics:  NewMetrics(cfg.Metrics),
		logger:   logger,
	}
	engine.notify = newNotifier(cfg.Notify, b.emailSender, b.smsSender, logger)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)

	return engine, nil
}
