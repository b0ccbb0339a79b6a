package authkit

import (
	"context"
	"time"
)

// TokenKind selects which digest/expiry pair on the user record an
// ephemeral action token operation touches.
type TokenKind uint8

const (
	// TokenVerification gates the one-time account verification flow.
	TokenVerification TokenKind = iota
	// TokenPasswordReset gates the one-time password reset flow.
	TokenPasswordReset
)

// User is the full account record held by the persistence layer. Secret
// material is stored only in digest form; plaintext passwords and tokens
// never reach the store.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string

	// PasswordHash is the PHC-encoded Argon2id digest of the current
	// password. Recomputed whenever the password changes; never settable
	// directly by a caller.
	PasswordHash string

	IsBlocked         bool
	IsAccountVerified bool

	// RefreshTokenDigest is the SHA-256 digest of the currently valid
	// refresh token, or nil when no session is active.
	RefreshTokenDigest *[32]byte

	// Digest/expiry pairs for outstanding ephemeral action tokens. Both
	// fields of a pair are set together and cleared together; at most one
	// token of each kind is outstanding per user.
	VerificationTokenDigest *[32]byte
	VerificationExpiresAt   time.Time
	ResetTokenDigest        *[32]byte
	ResetExpiresAt          time.Time

	CreatedAt time.Time
}

// Identity is the authenticated view of a user handed to callers by the
// credential verifier and the auth gate. It carries no secret material.
type Identity struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Verified  bool
}

// Identity projects the safe fields of a user record.
func (u User) Identity() Identity {
	return Identity{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Verified:  u.IsAccountVerified,
	}
}

// Sanitized returns a copy of the user with all secret digests removed,
// suitable for returning to clients.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshTokenDigest = nil
	u.VerificationTokenDigest = nil
	u.ResetTokenDigest = nil
	return u
}

// ActionToken reports the digest/expiry pair for the given kind.
func (u User) ActionToken(kind TokenKind) (*[32]byte, time.Time) {
	if kind == TokenVerification {
		return u.VerificationTokenDigest, u.VerificationExpiresAt
	}
	return u.ResetTokenDigest, u.ResetExpiresAt
}

// CreateUserInput is the record handed to UserStore.CreateUser. The
// engine fills every field; stores persist it as-is.
type CreateUserInput struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
}

// RegisterInput is the caller-facing registration request.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// SessionTokens is the access/refresh pair minted at login and refresh.
// Deliver both as HTTP-only, Secure cookies (see SessionCookies) or an
// equivalent secure channel; never expose them to client-side script.
type SessionTokens struct {
	Access  string
	Refresh string
}

// LoginResult is returned by Engine.Login.
type LoginResult struct {
	User   User
	Tokens SessionTokens
}

// RedeemEffect is the kind-specific state change applied atomically with
// the clearing of an action token's digest/expiry pair.
type RedeemEffect struct {
	// MarkVerified flips IsAccountVerified to true (verification flow).
	MarkVerified bool
	// NewPasswordHash, when non-empty, replaces the stored password hash
	// (reset flow).
	NewPasswordHash string
}

// UserStore is the interface the embedding application implements over
// its document store. The user record is the only shared mutable resource
// in this subsystem; every mutation goes through these methods, and
// RedeemActionToken must be a single atomic conditional update scoped to
// one user record.
//
// Lookups that match nothing return ErrUserNotFound; CreateUser returns
// ErrUserExists for a duplicate email. Transport failures may be any
// other error and are mapped to ErrStoreUnavailable by the engine.
type UserStore interface {
	CreateUser(ctx context.Context, input CreateUserInput) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByTokenDigest(ctx context.Context, kind TokenKind, digest [32]byte) (User, error)

	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
	SetRefreshTokenDigest(ctx context.Context, userID string, digest [32]byte) error
	ClearRefreshTokenDigest(ctx context.Context, userID string) error

	// SetActionToken stores the digest/expiry pair for kind, overwriting
	// any prior outstanding token of that kind.
	SetActionToken(ctx context.Context, userID string, kind TokenKind, digest [32]byte, expiresAt time.Time) error

	// RedeemActionToken clears the kind's digest/expiry pair and applies
	// effect, but only if the stored digest still equals expected. It
	// reports false when the digest changed or is already gone, so that
	// concurrent redemption attempts cannot both succeed.
	RedeemActionToken(ctx context.Context, userID string, kind TokenKind, expected [32]byte, effect RedeemEffect) (bool, error)
}
