package rate

import "errors"

var (
	// ErrRedisUnavailable wraps any transport failure from the backing store.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
