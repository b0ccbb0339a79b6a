// Package authkit provides the authentication and token lifecycle engine
// for the Inkwell content backend: credential verification, access/refresh
// session issuance, single-use password-reset and account-verification
// tokens, and the request-time auth gate.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// the [UserStore] persistence contract, and value types. Crypto concerns
// live in the password and jwt subpackages; token generation and the
// login throttle live under internal/ and are never exported.
//
// The document store, HTTP routing, and outbound email delivery are
// external collaborators. The engine only ever hands plaintext tokens
// back to the caller for one-time out-of-band delivery; all persisted
// secrets are digests.
//
// # What this package must NOT do
//
//   - Persist or log a plaintext password or token, anywhere, ever.
//   - Reveal whether an email exists or why a presented token failed.
//   - Mutate a user record except through a [UserStore] method; the
//     single-use token invariant rides on the store's conditional update.
package authkit
