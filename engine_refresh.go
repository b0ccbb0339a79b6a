package authkit

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/inkwellhq/authkit/internal/token"
)

// Refresh exchanges a valid refresh token for a brand new access/refresh
// pair. The presented token must both verify as a refresh JWT and match
// the single digest stored on the user record; rotation replaces that
// digest, so each refresh token is usable at most once.
//
// A malformed or expired token yields [ErrUnauthenticated]. A token that
// verifies but no longer matches the stored digest yields
// [ErrSessionRevoked].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	refreshToken = trimmed(refreshToken)
	if refreshToken == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshRejected, false, "", ErrUnauthenticated, func() map[string]string {
			return map[string]string{"reason": "invalid_token"}
		})
		return nil, ErrUnauthenticated
	}

	user, err := e.store.GetUserByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshRejected, false, claims.UID, ErrUnauthenticated, func() map[string]string {
				return map[string]string{"reason": "user_not_found"}
			})
			return nil, ErrUnauthenticated
		}
		return nil, ErrStoreUnavailable
	}

	if user.IsBlocked {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshRejected, false, user.ID, ErrAccountBlocked, nil)
		return nil, ErrAccountBlocked
	}

	presented := token.Compute(refreshToken)
	if user.RefreshTokenDigest == nil ||
		subtle.ConstantTimeCompare(user.RefreshTokenDigest[:], presented[:]) != 1 {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshRejected, false, user.ID, ErrSessionRevoked, func() map[string]string {
			return map[string]string{"reason": "digest_mismatch"}
		})
		return nil, ErrSessionRevoked
	}

	tokens, err := e.issueSession(ctx, user.ID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventInternalFailure, false, user.ID, err, nil)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, nil, nil)

	return &LoginResult{
		User:   user.Sanitized(),
		Tokens: tokens,
	}, nil
}

// RevokeSession clears the stored refresh digest so the current refresh
// token can never be redeemed again. Revoking an already-revoked session
// is a no-op; access tokens already in flight remain valid until expiry.
func (e *Engine) RevokeSession(ctx context.Context, userID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if trimmed(userID) == "" {
		return ErrMissingFields
	}

	if err := e.store.ClearRefreshTokenDigest(ctx, userID); err != nil {
		return mapStoreErr(err)
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventSessionRevoked, true, userID, nil, nil)
	return nil
}
