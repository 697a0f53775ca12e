// Package internal provides shared helpers for opaque token generation and
// hashing used by the session registry and verification stores.
//
// # What this package must NOT do
//
//   - Import authcore or any sibling internal package.
//   - Persist anything; generation only.
package internal
