// Package jwt issues and verifies the short-lived access tokens handed out
// after a successful login or refresh.
//
// Tokens are asymmetric only. RS256 is the default so that existing RSA key
// pairs keep working; Ed25519 is available for new deployments. Symmetric
// methods are deliberately not offered: resource servers verify with the
// public key and never hold signing material.
//
// A token carries the user id as the registered subject and the role as a
// private claim. Nothing else goes in: permissions are resolved server side
// on every request, so claims never go stale between refreshes.
//
// # What this package must NOT do
//
//   - No revocation or blacklist checks. Access tokens live for minutes;
//     revocation is handled by the refresh registry in package session.
//   - No user lookups. Parse validates the signature and the registered
//     claims, nothing more.
package jwt
