package authkit

import (
	"context"
	"errors"
)

// Authenticate verifies a bearer access token and resolves it to a live
// account. It is the single gate in front of protected operations: a
// missing, malformed, or expired token and a token whose subject no
// longer exists all collapse to [ErrUnauthenticated]. A blocked account
// is rejected with [ErrAccountBlocked] even when its token is valid.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if e == nil || e.store == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	accessToken = trimmed(accessToken)
	if accessToken == "" {
		return nil, e.denyGate(ctx, "", "missing_token")
	}

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		return nil, e.denyGate(ctx, "", "invalid_token")
	}

	user, err := e.store.GetUserByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, e.denyGate(ctx, claims.UID, "user_not_found")
		}
		return nil, ErrStoreUnavailable
	}

	if user.IsBlocked {
		e.metricInc(MetricGateDenied)
		e.emitAudit(ctx, auditEventGateDenied, false, user.ID, ErrAccountBlocked, nil)
		return nil, ErrAccountBlocked
	}

	identity := user.Identity()
	return &identity, nil
}

func (e *Engine) denyGate(ctx context.Context, userID, reason string) error {
	e.metricInc(MetricGateDenied)
	e.emitAudit(ctx, auditEventGateDenied, false, userID, ErrUnauthenticated, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return ErrUnauthenticated
}
