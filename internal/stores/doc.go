// Package stores provides Redis-backed, short-lived record stores for
// account verification flows, plus the trusted-device set consulted by the
// brute-force guard.
//
// # Design
//
// Verification records are TTL-bound and keyed by target: one live code per
// email address or mobile number, a reissue overwrites the prior pending
// record. Records are NOT deleted on a successful match; a still-valid code
// verifies repeatedly until its TTL expires. SMS matches are bound to both
// the owning user id and the mobile number captured at issuance, so a code
// leaked from one account cannot verify another.
//
// # What this package must NOT do
//
//   - Import authcore or any sibling internal package except internal.
//   - Send anything; dispatch belongs to the engine's notifier.
//   - Make authentication decisions.
package stores
