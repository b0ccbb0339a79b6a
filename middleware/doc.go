// Package middleware exposes HTTP middleware adapters that enforce
// authkit.Engine authentication in front of protected handlers.
//
// # Guards
//
//   - [Guard] — requires a valid access token, any account state.
//   - [RequireVerified] — additionally requires a verified account.
//
// Each guard extracts the bearer token (Authorization header first,
// session cookie as fallback), calls Engine.Authenticate, and injects
// the resolved identity into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch the user store (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject.
package middleware
