package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/internal/stores"
)

// Login failure counter key prefixes. Stable so operators can inspect and
// reset the Redis keys directly.
const (
	prefixFailIP         = "login_fail_ip_per_day"
	prefixFailUsername   = "login_fail_username_per_day"
	prefixFailUsernameIP = "login_fail_consecutive_username_and_ip"
)

// loginGuard is the brute-force layer in front of Login. Three counters
// with different scopes and lifetimes:
//
//   - per IP, generous, short block: slows credential stuffing runs.
//   - per username, generous, permanent block: a distributed attack on one
//     account eventually locks it for everyone but trusted devices.
//   - per username+IP, strict, permanent block: one attacker grinding one
//     account from one address is cut off after a handful of tries.
//
// Devices in the account's trusted set skip the two broad counters so a
// lockout caused by an attacker does not keep the real owner out. The
// strict counter always applies and is reset on successful login.
type loginGuard struct {
	byIP         *rate.Limiter
	byUsername   *rate.Limiter
	byUsernameIP *rate.Limiter
	devices      *stores.TrustedDeviceStore
}

type guardState struct {
	trusted bool
}

func newLoginGuard(client redisClient, cfg BruteForceConfig) *loginGuard {
	return &loginGuard{
		byIP: rate.New(client, prefixFailIP, rate.Config{
			Points:        cfg.ByIP.Points,
			Window:        cfg.ByIP.Window,
			BlockDuration: cfg.ByIP.BlockDuration,
		}),
		byUsername: rate.New(client, prefixFailUsername, rate.Config{
			Points:        cfg.ByUsername.Points,
			Window:        cfg.ByUsername.Window,
			BlockDuration: cfg.ByUsername.BlockDuration,
		}),
		byUsernameIP: rate.New(client, prefixFailUsernameIP, rate.Config{
			Points:        cfg.ByUsernameIP.Points,
			Window:        cfg.ByUsernameIP.Window,
			BlockDuration: cfg.ByUsernameIP.BlockDuration,
		}),
		devices: stores.NewTrustedDeviceStore(client, cfg.TrustedDevicePrefix),
	}
}

func usernameIPKey(username, ip string) string {
	return username + "_" + ip
}

// check inspects the counters without consuming and returns a
// *RateLimitedError when any applicable one is already blocked.
func (g *loginGuard) check(ctx context.Context, username, ip, deviceID string) (*guardState, error) {
	trusted, err := g.devices.IsTrusted(ctx, username, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	state := &guardState{trusted: trusted}

	var retryAfter time.Duration
	blocked := false

	consider := func(res *rate.Result) {
		if res == nil || !res.Blocked {
			return
		}
		blocked = true
		if res.RetryAfter > retryAfter {
			retryAfter = res.RetryAfter
		}
	}

	res, err := g.byUsernameIP.Get(ctx, usernameIPKey(username, ip))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	consider(res)

	if !trusted {
		if res, err = g.byIP.Get(ctx, ip); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		consider(res)

		if res, err = g.byUsername.Get(ctx, username); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		consider(res)
	}

	if blocked {
		return state, &RateLimitedError{RetryAfter: retryAfter}
	}
	return state, nil
}

// recordFailure charges the counters after a bad credential attempt. The
// strict username+IP counter is charged regardless; the broad counters only
// when the device is not trusted. Counter errors are returned so the caller
// can log them, the login failure itself stands either way.
func (g *loginGuard) recordFailure(ctx context.Context, state *guardState, username, ip string) error {
	if _, err := g.byUsernameIP.Consume(ctx, usernameIPKey(username, ip), 1); err != nil {
		return err
	}
	if state.trusted {
		return nil
	}
	if _, err := g.byIP.Consume(ctx, ip, 1); err != nil {
		return err
	}
	if _, err := g.byUsername.Consume(ctx, username, 1); err != nil {
		return err
	}
	return nil
}

// recordSuccess clears the strict counter and trusts the device. When the
// caller presented no known device id, a fresh one is minted, added to the
// account's trusted set, and returned for the client to keep.
func (g *loginGuard) recordSuccess(ctx context.Context, state *guardState, username, ip, deviceID string) (string, error) {
	if err := g.byUsernameIP.Reset(ctx, usernameIPKey(username, ip)); err != nil {
		return "", err
	}
	if state.trusted {
		return "", nil
	}

	newDevice := deviceID
	if newDevice == "" {
		newDevice = uuid.NewString()
	}
	if err := g.devices.Trust(ctx, username, newDevice); err != nil {
		return "", err
	}
	return newDevice, nil
}
