// Package middleware exposes net/http adapters for authcore.Engine: a
// permission guard and a context filler for client IP and device id.
//
// [Guard] reads the Authorization header, calls Engine.Authorize, and
// injects the validated identity into the request context. [ClientInfo]
// runs earlier in the chain and attaches the remote IP and the device
// cookie so the brute-force guard sees them.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Engine.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or the user store (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
