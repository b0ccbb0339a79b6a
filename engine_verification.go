package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/inkwellhq/authkit/internal/token"
)

// RequestVerification mints a fresh account-verification token for the
// user and stores its digest with a new expiry window. Any previously
// issued verification token is invalidated by the overwrite.
//
// The returned plaintext exists only on this call path; hand it to the
// mail delivery layer and discard it.
func (e *Engine) RequestVerification(ctx context.Context, userID string) (string, error) {
	if e == nil || e.store == nil {
		return "", ErrEngineNotReady
	}
	if trimmed(userID) == "" {
		return "", ErrMissingFields
	}

	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		return "", mapStoreErr(err)
	}
	if user.IsAccountVerified {
		return "", ErrAlreadyVerified
	}

	plaintext, err := e.setActionToken(ctx, user.ID, TokenVerification)
	if err != nil {
		return "", err
	}

	e.metricInc(MetricVerificationRequest)
	e.emitAudit(ctx, auditEventVerificationRequest, true, user.ID, nil, nil)
	return plaintext, nil
}

// ConfirmVerification redeems a verification token: if the digest of the
// presented plaintext matches an unexpired stored digest, the account is
// marked verified and the token pair is cleared in one atomic update.
//
// Every failure mode collapses to [ErrTokenInvalidOrExpired]; callers
// cannot distinguish an unknown token from an expired or already-used one.
func (e *Engine) ConfirmVerification(ctx context.Context, plaintext string) (*Identity, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	user, digest, err := e.matchActionToken(ctx, TokenVerification, plaintext)
	if err != nil {
		e.metricInc(MetricVerificationConfirmFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, "", err, nil)
		return nil, err
	}

	redeemed, err := e.store.RedeemActionToken(ctx, user.ID, TokenVerification, digest, RedeemEffect{
		MarkVerified: true,
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !redeemed {
		// Lost the race against a concurrent redemption.
		e.metricInc(MetricVerificationConfirmFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, user.ID, ErrTokenInvalidOrExpired, nil)
		return nil, ErrTokenInvalidOrExpired
	}

	e.metricInc(MetricVerificationConfirmSuccess)
	e.emitAudit(ctx, auditEventVerificationConfirm, true, user.ID, nil, nil)

	identity := user.Identity()
	identity.Verified = true
	return &identity, nil
}

// setActionToken mints a token of the given kind, persists its digest
// with a fresh expiry, and returns the plaintext.
func (e *Engine) setActionToken(ctx context.Context, userID string, kind TokenKind) (string, error) {
	plaintext, digest, err := token.New()
	if err != nil {
		e.emitAudit(ctx, auditEventInternalFailure, false, userID, err, nil)
		return "", ErrInternal
	}

	expiresAt := time.Now().Add(e.config.ActionTokens.TTL).UTC()
	if err := e.store.SetActionToken(ctx, userID, kind, [32]byte(digest), expiresAt); err != nil {
		return "", mapStoreErr(err)
	}
	return plaintext, nil
}

// matchActionToken resolves a presented plaintext to the user whose
// stored digest of the given kind matches, enforcing the expiry window.
// An expired match is cleared on the spot so it can never resolve again.
func (e *Engine) matchActionToken(ctx context.Context, kind TokenKind, plaintext string) (User, [32]byte, error) {
	plaintext = trimmed(plaintext)
	if plaintext == "" {
		return User{}, [32]byte{}, ErrTokenInvalidOrExpired
	}

	digest := [32]byte(token.Compute(plaintext))
	user, err := e.store.GetUserByTokenDigest(ctx, kind, digest)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, [32]byte{}, ErrTokenInvalidOrExpired
		}
		return User{}, [32]byte{}, ErrStoreUnavailable
	}

	_, expiresAt := user.ActionToken(kind)
	if expiresAt.IsZero() || time.Now().After(expiresAt) {
		_, _ = e.store.RedeemActionToken(ctx, user.ID, kind, digest, RedeemEffect{})
		return User{}, [32]byte{}, ErrTokenInvalidOrExpired
	}
	return user, digest, nil
}
