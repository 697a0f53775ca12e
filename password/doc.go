// Package password provides the credential hasher (bcrypt) and the signup
// strength policy.
//
// # What this package must NOT do
//
//   - Persist anything.
//   - Log plaintext passwords.
package password
