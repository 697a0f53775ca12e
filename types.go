package authcore

import (
	"context"
	"time"
)

// Built-in role names. The role table may define more.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// UserInfo is the free-form profile block attached to a user.
type UserInfo struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// User is the stored account record. PasswordHash never leaves the engine;
// use Profile for anything caller-facing.
type User struct {
	ID             string
	Email          string
	Mobile         string
	PasswordHash   string
	Role           string
	Info           UserInfo
	EmailVerified  bool
	MobileVerified bool
	SMSTwoFA       bool
	Blocked        bool
	BlockedUntil   *time.Time
	Created        time.Time
	Updated        time.Time
}

// BlockedNow reports whether the block is in effect at the given instant.
// A nil BlockedUntil on a blocked user means indefinite.
func (u *User) BlockedNow(now time.Time) bool {
	if !u.Blocked {
		return false
	}
	if u.BlockedUntil == nil {
		return true
	}
	return now.Before(*u.BlockedUntil)
}

// Profile is the caller-facing view of a user.
type Profile struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Mobile         string    `json:"mobile,omitempty"`
	Role           string    `json:"role"`
	Info           UserInfo  `json:"info"`
	EmailVerified  bool      `json:"emailVerified"`
	MobileVerified bool      `json:"mobileVerified"`
	SMSTwoFA       bool      `json:"smsTwoFA"`
	Blocked        bool      `json:"blocked"`
	Created        time.Time `json:"created"`
	Updated        time.Time `json:"updated"`
}

// Profile strips the credential fields off a user record.
func (u *User) Profile() Profile {
	return Profile{
		ID:             u.ID,
		Email:          u.Email,
		Mobile:         u.Mobile,
		Role:           u.Role,
		Info:           u.Info,
		EmailVerified:  u.EmailVerified,
		MobileVerified: u.MobileVerified,
		SMSTwoFA:       u.SMSTwoFA,
		Blocked:        u.Blocked,
		Created:        u.Created,
		Updated:        u.Updated,
	}
}

// UserRepository is the persistence port for account records. Package
// postgres ships the reference implementation; tests use an in-memory one.
//
// GetByID and FindByEmail return ErrUserDoesNotExist for unknown users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	List(ctx context.Context, q ListUsersQuery) (*UserPage, error)

	// CreateSerializable runs fn inside a serializable transaction so that
	// the find-then-insert signup sequence cannot race a concurrent signup
	// for the same email.
	CreateSerializable(ctx context.Context, fn func(ctx context.Context, tx UserTx) error) error
}

// UserTx is the slice of the repository visible inside CreateSerializable.
type UserTx interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Insert(ctx context.Context, user *User) error
}

// ListUsersQuery selects a page of users for the admin listing.
type ListUsersQuery struct {
	// Search filters by substring match on email, case insensitive.
	Search string
	// OrderBy is one of "email", "role", "created", "updated". Empty means
	// "created".
	OrderBy    string
	Descending bool
	Offset     int
	Limit      int
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users []Profile `json:"users"`
	Total int       `json:"total"`
}

// EmailSender delivers outgoing mail. Implementations should honor the
// context deadline; the notifier applies one.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers outgoing text messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// SignupRequest carries the fields accepted at registration.
type SignupRequest struct {
	Email    string
	Password string
	Mobile   string
	Info     UserInfo
}

// AuthResult is a successful token issuance.
type AuthResult struct {
	UserID       string `json:"userId"`
	Role         string `json:"role"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// DeviceID identifies the now-trusted device. Set when the login minted
	// a new trusted device, empty otherwise; callers persist it client side
	// and present it on future logins.
	DeviceID string `json:"deviceId,omitempty"`
}

// LoginResult is the outcome of the first login step. When TwoFARequired is
// set, Auth is nil and the caller must complete LoginTwoFA with the SMS
// code that was just sent.
type LoginResult struct {
	TwoFARequired bool        `json:"twoFARequired"`
	Auth          *AuthResult `json:"auth,omitempty"`
}

// Identity is the authenticated principal extracted from an access token.
type Identity struct {
	UserID string
	Role   string
}
