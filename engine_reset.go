package authkit

import (
	"context"
	"errors"
	"time"
)

// resetEnumerationDelay pads the not-found path of RequestPasswordReset
// so its latency resembles the token-minting path. Var for tests.
var resetEnumerationDelay = 300 * time.Millisecond

// RequestPasswordReset mints a fresh password-reset token for the account
// registered under email and returns the plaintext for delivery. Any
// previously issued reset token is invalidated by the overwrite.
//
// An unknown email yields [ErrUserNotFound] after a fixed delay; the
// transport layer is expected to answer the same way regardless, so the
// distinction never reaches an outside observer.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if e == nil || e.store == nil {
		return "", ErrEngineNotReady
	}

	email = trimmed(email)
	if email == "" {
		return "", ErrMissingFields
	}

	user, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			sleepWithContext(ctx, resetEnumerationDelay)
			return "", ErrUserNotFound
		}
		return "", ErrStoreUnavailable
	}

	if user.IsBlocked {
		return "", ErrAccountBlocked
	}

	plaintext, err := e.setActionToken(ctx, user.ID, TokenPasswordReset)
	if err != nil {
		return "", err
	}

	e.metricInc(MetricResetRequest)
	e.emitAudit(ctx, auditEventResetRequest, true, user.ID, nil, nil)
	return plaintext, nil
}

// ConfirmPasswordReset redeems a reset token: if the digest of the
// presented plaintext matches an unexpired stored digest, the password
// hash is replaced and the token pair cleared in one atomic update. The
// active session, if any, is revoked afterwards.
//
// Token failures collapse to [ErrTokenInvalidOrExpired]; the password
// policy is checked before the token so a weak password never consumes
// a valid token.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, plaintext, newPassword string) (*Identity, error) {
	if e == nil || e.store == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	if trimmed(newPassword) == "" {
		return nil, ErrMissingFields
	}
	if len(newPassword) < e.config.Password.MinLength {
		return nil, ErrPasswordPolicy
	}

	user, digest, err := e.matchActionToken(ctx, TokenPasswordReset, plaintext)
	if err != nil {
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, "", err, nil)
		return nil, err
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		e.emitAudit(ctx, auditEventInternalFailure, false, user.ID, err, nil)
		return nil, ErrInternal
	}

	redeemed, err := e.store.RedeemActionToken(ctx, user.ID, TokenPasswordReset, digest, RedeemEffect{
		NewPasswordHash: newHash,
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !redeemed {
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, user.ID, ErrTokenInvalidOrExpired, nil)
		return nil, ErrTokenInvalidOrExpired
	}

	// A reset proves loss of the old credential; kill the old session.
	if err := e.store.ClearRefreshTokenDigest(ctx, user.ID); err != nil {
		e.emitAudit(ctx, auditEventInternalFailure, false, user.ID, err, nil)
	}

	e.metricInc(MetricResetConfirmSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, true, user.ID, nil, nil)

	identity := user.Identity()
	return &identity, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
