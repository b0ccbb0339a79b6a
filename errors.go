package authkit

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called before
	// Build wired the required dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrMissingFields is returned when a required input is empty after
	// trimming. Raised before any store lookup.
	ErrMissingFields = errors.New("missing required fields")
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// the two are deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountBlocked is returned when the target account is blocked by
	// policy, at login and at the auth gate.
	ErrAccountBlocked = errors.New("account blocked")
	// ErrUserExists is returned by registration when the email is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned by stores when no user matches a lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrPasswordPolicy is returned when a new password fails the minimum
	// length requirement.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrAlreadyVerified is returned when a verification token is
	// requested for an account that is already verified.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrTokenInvalidOrExpired is the single coarse class covering wrong,
	// already-consumed, and expired ephemeral action tokens. Which of the
	// three occurred is never revealed.
	ErrTokenInvalidOrExpired = errors.New("token invalid or expired")
	// ErrSessionRevoked is returned by refresh when no live refresh digest
	// is associated with the user, or the presented one does not match.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrUnauthenticated is returned by the auth gate for missing, forged,
	// or expired access tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrLoginRateLimited is returned when the login throttle budget for
	// the identifier or client IP is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrStoreUnavailable wraps persistence-layer transport failures. It
	// is safe to retry and is surfaced to clients as a generic internal
	// error.
	ErrStoreUnavailable = errors.New("user store unavailable")
	// ErrInternal covers hashing and signing failures. Detail is audited
	// server-side, never returned to clients.
	ErrInternal = errors.New("internal error")
)
