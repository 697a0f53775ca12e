package authcore

import (
	"errors"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/permission"
)

// Config is the full engine configuration. Zero fields are filled from
// defaultConfig by the builder, so callers only set what they change.
type Config struct {
	JWT          jwt.Config
	Password     PasswordConfig
	Session      SessionConfig
	Verification VerificationConfig
	BruteForce   BruteForceConfig
	ACL          ACLConfig
	Audit        AuditConfig
	Notify       NotifyConfig
	Metrics      MetricsConfig
}

// PasswordConfig tunes hashing and the signup strength policy.
type PasswordConfig struct {
	Cost      int
	MinLength int
	MaxLength int
}

// SessionConfig tunes the refresh token registry.
type SessionConfig struct {
	RefreshTTL  time.Duration
	RedisPrefix string
}

// VerificationConfig tunes email and SMS verification.
type VerificationConfig struct {
	EmailTokenTTL time.Duration
	SMSCodeTTL    time.Duration
	SMSCodeDigits int
	// EmailURL is the link prefix the verification token is appended to
	// in outgoing mail.
	EmailURL    string
	RedisPrefix string
}

// LimitConfig is one fixed-window limiter: Points failures inside Window
// trigger a block of BlockDuration.
type LimitConfig struct {
	Points        int
	Window        time.Duration
	BlockDuration time.Duration
}

// BruteForceConfig tunes the three login failure counters and the trusted
// device set.
type BruteForceConfig struct {
	ByIP         LimitConfig
	ByUsername   LimitConfig
	ByUsernameIP LimitConfig

	TrustedDevicePrefix string
}

// ACLConfig sets the role table and the role new signups receive.
type ACLConfig struct {
	Roles       map[string][]permission.Rule
	DefaultRole string
}

// AuditConfig tunes the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// BlockIfFull makes Emit wait for buffer space instead of dropping
	// the event. Off by default: auth flows must not stall on a slow
	// audit sink.
	BlockIfFull bool
}

// NotifyConfig tunes the async notification dispatcher that delivers
// verification email and SMS.
type NotifyConfig struct {
	BufferSize  int
	SendTimeout time.Duration
}

// MetricsConfig enables the in-process counters read by metrics exporters.
type MetricsConfig struct {
	Enabled bool
}

// twentyYears is the effectively-permanent block applied to the username
// scoped counters. Resetting requires operator action.
const twentyYears = 20 * 365 * 24 * time.Hour

func defaultConfig() Config {
	return Config{
		JWT: jwt.Config{
			AccessTTL:     15 * time.Minute,
			SigningMethod: jwt.MethodRS256,
			Issuer:        "authcore",
		},
		Password: PasswordConfig{
			Cost:      10,
			MinLength: 10,
			MaxLength: 128,
		},
		Session: SessionConfig{
			RefreshTTL:  30 * 24 * time.Hour,
			RedisPrefix: "refresh_token",
		},
		Verification: VerificationConfig{
			EmailTokenTTL: 24 * time.Hour,
			SMSCodeTTL:    5 * time.Minute,
			SMSCodeDigits: 6,
			RedisPrefix:   "verification",
		},
		BruteForce: BruteForceConfig{
			ByIP: LimitConfig{
				Points:        50,
				Window:        24 * time.Hour,
				BlockDuration: 24 * time.Hour,
			},
			ByUsername: LimitConfig{
				Points:        50,
				Window:        24 * time.Hour,
				BlockDuration: twentyYears,
			},
			ByUsernameIP: LimitConfig{
				Points:        10,
				Window:        90 * 24 * time.Hour,
				BlockDuration: twentyYears,
			},
			TrustedDevicePrefix: "trusted_device",
		},
		ACL: ACLConfig{
			Roles:       DefaultRoles(),
			DefaultRole: RoleMember,
		},
		Audit: AuditConfig{
			BufferSize: 1024,
		},
		Notify: NotifyConfig{
			BufferSize:  256,
			SendTimeout: 10 * time.Second,
		},
	}
}

// DefaultRoles returns the stock role table: admin may do anything, member
// may read and update its own account surface.
func DefaultRoles() map[string][]permission.Rule {
	return map[string][]permission.Rule{
		RoleAdmin: {
			{Action: permission.ActionManage, Subject: permission.SubjectAll},
		},
		RoleMember: {
			{Action: "read", Subject: "profile"},
			{Action: "update", Subject: "profile"},
			{Action: "update", Subject: "credentials"},
		},
	}
}

func (c *Config) validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("access token TTL must be positive")
	}
	if c.Session.RefreshTTL <= 0 {
		return errors.New("refresh token TTL must be positive")
	}
	if c.Verification.EmailTokenTTL <= 0 || c.Verification.SMSCodeTTL <= 0 {
		return errors.New("verification TTLs must be positive")
	}
	if c.Verification.SMSCodeDigits < 4 || c.Verification.SMSCodeDigits > 10 {
		return errors.New("sms code digits out of range")
	}
	for _, lc := range []LimitConfig{c.BruteForce.ByIP, c.BruteForce.ByUsername, c.BruteForce.ByUsernameIP} {
		if lc.Points <= 0 || lc.Window <= 0 || lc.BlockDuration <= 0 {
			return errors.New("brute force limits must be positive")
		}
	}
	if c.ACL.DefaultRole == "" {
		return errors.New("default role must be set")
	}
	if _, ok := c.ACL.Roles[c.ACL.DefaultRole]; !ok {
		return errors.New("default role missing from role table")
	}
	return nil
}

// mergeDefaults fills zero fields so partial configs behave like the stock
// one. JWT keys and the role table are the only fields without defaults.
func mergeDefaults(c Config) Config {
	d := defaultConfig()
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = d.JWT.AccessTTL
	}
	if c.JWT.SigningMethod == "" {
		c.JWT.SigningMethod = d.JWT.SigningMethod
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = d.JWT.Issuer
	}
	if c.Password.Cost == 0 {
		c.Password.Cost = d.Password.Cost
	}
	if c.Password.MinLength == 0 {
		c.Password.MinLength = d.Password.MinLength
	}
	if c.Password.MaxLength == 0 {
		c.Password.MaxLength = d.Password.MaxLength
	}
	if c.Session.RefreshTTL == 0 {
		c.Session.RefreshTTL = d.Session.RefreshTTL
	}
	if c.Session.RedisPrefix == "" {
		c.Session.RedisPrefix = d.Session.RedisPrefix
	}
	if c.Verification.EmailTokenTTL == 0 {
		c.Verification.EmailTokenTTL = d.Verification.EmailTokenTTL
	}
	if c.Verification.SMSCodeTTL == 0 {
		c.Verification.SMSCodeTTL = d.Verification.SMSCodeTTL
	}
	if c.Verification.SMSCodeDigits == 0 {
		c.Verification.SMSCodeDigits = d.Verification.SMSCodeDigits
	}
	if c.Verification.RedisPrefix == "" {
		c.Verification.RedisPrefix = d.Verification.RedisPrefix
	}
	if c.BruteForce.ByIP == (LimitConfig{}) {
		c.BruteForce.ByIP = d.BruteForce.ByIP
	}
	if c.BruteForce.ByUsername == (LimitConfig{}) {
		c.BruteForce.ByUsername = d.BruteForce.ByUsername
	}
	if c.BruteForce.ByUsernameIP == (LimitConfig{}) {
		c.BruteForce.ByUsernameIP = d.BruteForce.ByUsernameIP
	}
	if c.BruteForce.TrustedDevicePrefix == "" {
		c.BruteForce.TrustedDevicePrefix = d.BruteForce.TrustedDevicePrefix
	}
	if c.ACL.Roles == nil {
		c.ACL.Roles = d.ACL.Roles
	}
	if c.ACL.DefaultRole == "" {
		c.ACL.DefaultRole = d.ACL.DefaultRole
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = d.Audit.BufferSize
	}
	if c.Notify.BufferSize == 0 {
		c.Notify.BufferSize = d.Notify.BufferSize
	}
	if c.Notify.SendTimeout == 0 {
		c.Notify.SendTimeout = d.Notify.SendTimeout
	}
	return c
}
