// Package session provides the Redis-backed refresh-token registry.
//
// # Token shape
//
// A refresh token is 32 random bytes, base64url-encoded for the wire. Redis
// only ever sees the SHA-256 of those bytes: the forward key maps the hash
// to the owning user id with a TTL equal to the session window, and a
// per-user set indexes live hashes so a full logout can revoke every device
// without scanning the keyspace.
//
// Redemption is single-use by construction: the forward key is consumed
// with an atomic GETDEL, so a replayed token finds nothing.
//
// # What this package must NOT do
//
//   - Import authcore, jwt, or permission (no upward imports).
//   - Store plaintext token material.
//   - Decide what a redeemed user id is allowed to do.
package session
