// Package rate provides a generic Redis-backed points limiter: consume N
// points per key inside a fixed window, block the key once the budget is
// exhausted.
//
// # Window semantics
//
// Counters use a fixed window: INCRBY + EXPIRE on the first hit. When the
// consumed total reaches the configured budget the key's TTL is extended to
// the block duration, so the counter itself doubles as the block marker and
// its remaining TTL is the retry-after hint. A block duration far in excess
// of the window yields "blocked forever in practice" semantics.
//
// The consume path runs as a single Lua script so concurrent requests for
// the same key cannot interleave between increment and block arming.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (key choice, thresholds, bypass
//     rules live with the caller).
//   - Be imported outside the authcore module.
package rate
