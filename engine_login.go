package authkit

import (
	"context"
	"errors"

	"github.com/inkwellhq/authkit/internal/rate"
	"github.com/inkwellhq/authkit/internal/token"
)

// Login verifies the email/password pair and, on success, issues a fresh
// access/refresh session bound to the user.
//
// Unknown email and wrong password both yield [ErrInvalidCredentials];
// callers cannot tell the two cases apart. A blocked
// account yields [ErrAccountBlocked] regardless of the password. Empty
// fields fail fast with [ErrMissingFields] before any store round-trip.
func (e *Engine) Login(ctx context.Context, email, plaintextPassword string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.hasher == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	// The password is compared byte-for-byte as provided; only the
	// emptiness gate looks at the trimmed form.
	email = trimmed(email)
	if email == "" || trimmed(plaintextPassword) == "" {
		return nil, ErrMissingFields
	}

	ip := clientIPFromContext(ctx)
	if e.loginLimiter != nil {
		switch err := e.loginLimiter.Check(ctx, email, ip); {
		case err == nil:
		case errors.Is(err, rate.ErrRateLimited):
			return nil, e.failLoginThrottled(ctx, email, "")
		default:
			// Throttle backend down: fail open so an outage cannot
			// lock every account out, but leave a trace.
			e.emitAudit(ctx, auditEventInternalFailure, false, "", ErrStoreUnavailable, func() map[string]string {
				return map[string]string{"component": "login_throttle"}
			})
		}
	}

	user, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, ErrStoreUnavailable
		}
		return nil, e.failLogin(ctx, email, "", "user_not_found")
	}

	if user.IsBlocked {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, ErrAccountBlocked, func() map[string]string {
			return map[string]string{"reason": "account_blocked"}
		})
		return nil, ErrAccountBlocked
	}

	ok, err := e.hasher.Verify(plaintextPassword, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.failLogin(ctx, email, user.ID, "password_mismatch")
	}

	if e.config.Password.RehashOnLogin {
		if stale, err := e.hasher.NeedsRehash(user.PasswordHash); err == nil && stale {
			if newHash, err := e.hasher.Hash(plaintextPassword); err == nil {
				// Best effort: a failed upgrade must not block the login.
				_ = e.store.UpdatePasswordHash(ctx, user.ID, newHash)
			}
		}
	}

	tokens, err := e.issueSession(ctx, user.ID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventInternalFailure, false, user.ID, err, nil)
		return nil, err
	}

	if e.loginLimiter != nil {
		_ = e.loginLimiter.Reset(ctx, email, ip)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, nil, nil)

	return &LoginResult{
		User:   user.Sanitized(),
		Tokens: tokens,
	}, nil
}

// issueSession mints the access/refresh pair and persists the refresh
// digest, replacing any prior session. Re-issuing is safe to retry.
func (e *Engine) issueSession(ctx context.Context, userID string) (SessionTokens, error) {
	access, err := e.jwtManager.CreateAccess(userID)
	if err != nil {
		return SessionTokens{}, ErrInternal
	}
	refresh, err := e.jwtManager.CreateRefresh(userID)
	if err != nil {
		return SessionTokens{}, ErrInternal
	}

	digest := token.Compute(refresh)
	if err := e.store.SetRefreshTokenDigest(ctx, userID, [32]byte(digest)); err != nil {
		return SessionTokens{}, mapStoreErr(err)
	}

	return SessionTokens{Access: access, Refresh: refresh}, nil
}

func (e *Engine) failLogin(ctx context.Context, email, userID, reason string) error {
	if e.loginLimiter != nil {
		if err := e.loginLimiter.Fail(ctx, email, clientIPFromContext(ctx)); errors.Is(err, rate.ErrRateLimited) {
			return e.failLoginThrottled(ctx, email, userID)
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return ErrInvalidCredentials
}

func (e *Engine) failLoginThrottled(ctx context.Context, email, userID string) error {
	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, ErrLoginRateLimited, func() map[string]string {
		return map[string]string{"email": email}
	})
	return ErrLoginRateLimited
}
