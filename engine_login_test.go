package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func strictLimits(points int) func(*Config) {
	return func(cfg *Config) {
		cfg.BruteForce.ByUsernameIP = LimitConfig{
			Points:        points,
			Window:        time.Hour,
			BlockDuration: time.Hour,
		}
	}
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t)

	auth, err := env.engine.Login(loginCtx("10.0.0.1", ""), testEmail, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if auth.TwoFARequired {
		t.Fatal("2FA not enabled, should not be required")
	}
	if auth.Auth == nil || auth.Auth.AccessToken == "" || auth.Auth.RefreshToken == "" {
		t.Fatalf("auth result incomplete: %+v", auth.Auth)
	}
	if auth.Auth.DeviceID == "" {
		t.Fatal("first login should mint a device id")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t)

	_, err := env.engine.Login(loginCtx("10.0.0.1", ""), testEmail, "not-the-password")
	if !errors.Is(err, ErrInvalidEmailOrPassword) {
		t.Fatalf("err = %v, want ErrInvalidEmailOrPassword", err)
	}
}

func TestLoginUnknownUserSameError(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Login(loginCtx("10.0.0.1", ""), "nobody@example.com", testPassword)
	if !errors.Is(err, ErrInvalidEmailOrPassword) {
		t.Fatalf("unknown user: err = %v, want ErrInvalidEmailOrPassword", err)
	}
}

func TestLoginBlockedUserSameError(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t)

	user := env.user(t, testEmail)
	user.Blocked = true
	if err := env.repo.Update(context.Background(), user); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err := env.engine.Login(loginCtx("10.0.0.1", ""), testEmail, testPassword)
	if !errors.Is(err, ErrInvalidEmailOrPassword) {
		t.Fatalf("blocked user: err = %v, want ErrInvalidEmailOrPassword", err)
	}
}

func TestLoginBruteForceBlock(t *testing.T) {
	env := newTestEnv(t, strictLimits(3))
	env.signup(t)
	ctx := loginCtx("10.0.0.1", "")

	for i := 0; i < 3; i++ {
		if _, err := env.engine.Login(ctx, testEmail, "wrong"); !errors.Is(err, ErrInvalidEmailOrPassword) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}

	// budget exhausted, even the right password is refused now
	_, err := env.engine.Login(ctx, testEmail, testPassword)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("err %T does not carry retry-after", err)
	}
	if limited.RetryAfter <= 0 {
		t.Fatalf("RetryAfter = %v, want > 0", limited.RetryAfter)
	}
	if got := env.engine.Metrics().Value(MetricLoginRateLimited); got != 1 {
		t.Fatalf("rate-limited metric = %d, want 1", got)
	}
}

func TestLoginBlockScopedToUsernameAndIP(t *testing.T) {
	env := newTestEnv(t, strictLimits(3))
	env.signup(t)

	for i := 0; i < 3; i++ {
		env.engine.Login(loginCtx("10.0.0.1", ""), testEmail, "wrong")
	}
	if _, err := env.engine.Login(loginCtx("10.0.0.1", ""), testEmail, testPassword); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("same ip: err = %v, want ErrRateLimited", err)
	}

	// another address still gets through
	auth, err := env.engine.Login(loginCtx("10.0.0.2", ""), testEmail, testPassword)
	if err != nil {
		t.Fatalf("other ip: %v", err)
	}
	if auth.Auth == nil {
		t.Fatal("expected tokens from the other ip")
	}
}

func TestLoginSuccessResetsStrictCounter(t *testing.T) {
	env := newTestEnv(t, strictLimits(3))
	env.signup(t)
	ctx := loginCtx("10.0.0.1", "")

	env.engine.Login(ctx, testEmail, "wrong")
	env.engine.Login(ctx, testEmail, "wrong")
	if _, err := env.engine.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("login before budget: %v", err)
	}

	// the reset bought back the full budget
	env.engine.Login(ctx, testEmail, "wrong")
	env.engine.Login(ctx, testEmail, "wrong")
	if _, err := env.engine.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}

func TestTrustedDeviceBypassesBroadCounters(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.BruteForce.ByIP = LimitConfig{Points: 2, Window: time.Hour, BlockDuration: time.Hour}
	})
	env.signup(t)

	first, err := env.engine.Login(loginCtx("10.0.0.1", ""), testEmail, testPassword)
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	device := first.Auth.DeviceID

	// an attacker on the same address burns the per-IP budget
	env.engine.Login(loginCtx("10.0.0.1", ""), "victim@example.com", "wrong")
	env.engine.Login(loginCtx("10.0.0.1", ""), "victim@example.com", "wrong")

	if _, err := env.engine.Login(loginCtx("10.0.0.1", ""), testEmail, testPassword); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("untrusted on blocked ip: err = %v, want ErrRateLimited", err)
	}

	auth, err := env.engine.Login(loginCtx("10.0.0.1", device), testEmail, testPassword)
	if err != nil {
		t.Fatalf("trusted device on blocked ip: %v", err)
	}
	if auth.Auth == nil {
		t.Fatal("trusted device should receive tokens")
	}
	if auth.Auth.DeviceID != "" {
		t.Fatalf("already trusted device re-minted: %q", auth.Auth.DeviceID)
	}
}

func TestLoginStoreOutage(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t)

	env.repo.mu.Lock()
	env.repo.failAll = true
	env.repo.mu.Unlock()

	_, err := env.engine.Login(loginCtx("10.0.0.1", ""), testEmail, testPassword)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if errors.Is(err, ErrInvalidEmailOrPassword) {
		t.Fatalf("an outage must not read as bad credentials: %v", err)
	}
}

func enableTwoFA(t *testing.T, env *testEnv) {
	t.Helper()
	user := env.user(t, testEmail)
	user.MobileVerified = true
	user.SMSTwoFA = true
	if err := env.repo.Update(context.Background(), user); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestLoginTwoFAFlow(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t)
	enableTwoFA(t, env)
	ctx := loginCtx("10.0.0.1", "")

	res, err := env.engine.Login(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.TwoFARequired {
		t.Fatal("expected a 2FA challenge")
	}
	if res.Auth != nil {
		t.Fatal("no tokens before the code is confirmed")
	}

	sms := env.sms.wait(t, 1)
	code := codeFromSMS(t, sms[0].Body)

	auth, err := env.engine.LoginTwoFA(ctx, testEmail, testPassword, code)
	if err != nil {
		t.Fatalf("login 2fa: %v", err)
	}
	if auth.AccessToken == "" || auth.RefreshToken == "" {
		t.Fatalf("incomplete auth: %+v", auth)
	}
	if auth.DeviceID == "" {
		t.Fatal("completed 2FA login should mint a device id")
	}
}

func TestLoginTwoFAWrongCode(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t)
	enableTwoFA(t, env)
	ctx := loginCtx("10.0.0.1", "")

	if _, err := env.engine.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	env.sms.wait(t, 1)

	_, err := env.engine.LoginTwoFA(ctx, testEmail, testPassword, "000000")
	if !errors.Is(err, ErrInvalidEmailOrPasswordOrVerificationCode) {
		t.Fatalf("err = %v, want ErrInvalidEmailOrPasswordOrVerificationCode", err)
	}

	// a bad password with the right code fails with the same error
	sms := env.sms.sentCopy()
	code := codeFromSMS(t, sms[0].Body)
	_, err = env.engine.LoginTwoFA(ctx, testEmail, "wrong", code)
	if !errors.Is(err, ErrInvalidEmailOrPasswordOrVerificationCode) {
		t.Fatalf("bad password: err = %v, want ErrInvalidEmailOrPasswordOrVerificationCode", err)
	}
}

func TestPendingTwoFADoesNotTrustDevice(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.BruteForce.ByIP = LimitConfig{Points: 1, Window: time.Hour, BlockDuration: time.Hour}
	})
	env.signup(t)
	enableTwoFA(t, env)

	// password accepted but the challenge is never completed
	if _, err := env.engine.Login(loginCtx("10.0.0.1", "dev-1"), testEmail, testPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	env.sms.wait(t, 1)

	// the device never entered the trusted set, so a per-IP block applies
	env.engine.Login(loginCtx("10.0.0.1", ""), "victim@example.com", "wrong")
	_, err := env.engine.Login(loginCtx("10.0.0.1", "dev-1"), testEmail, testPassword)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}
