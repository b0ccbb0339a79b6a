package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Register creates a new unverified account. The plaintext password is
// hashed before anything is persisted and is never stored or logged.
//
// A duplicate email yields [ErrUserExists]; a password shorter than the
// configured minimum yields [ErrPasswordPolicy].
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if e == nil || e.store == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	input.Email = trimmed(input.Email)
	input.FirstName = trimmed(input.FirstName)
	input.LastName = trimmed(input.LastName)
	if input.Email == "" || input.FirstName == "" || input.LastName == "" || trimmed(input.Password) == "" {
		return nil, ErrMissingFields
	}
	if len(input.Password) < e.config.Password.MinLength {
		return nil, ErrPasswordPolicy
	}

	hash, err := e.hasher.Hash(input.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventInternalFailure, false, "", err, nil)
		return nil, ErrInternal
	}

	user, err := e.store.CreateUser(ctx, CreateUserInput{
		ID:           uuid.NewString(),
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", ErrUserExists, nil)
			return nil, ErrUserExists
		}
		return nil, ErrStoreUnavailable
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, nil, nil)

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// ChangePassword replaces the stored hash for an already-authenticated
// user and revokes the active session, forcing a fresh login everywhere.
func (e *Engine) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if e == nil || e.store == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	if trimmed(userID) == "" || trimmed(newPassword) == "" {
		return ErrMissingFields
	}
	if len(newPassword) < e.config.Password.MinLength {
		return ErrPasswordPolicy
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		e.emitAudit(ctx, auditEventInternalFailure, false, userID, err, nil)
		return ErrInternal
	}

	if err := e.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return mapStoreErr(err)
	}
	// Old refresh tokens must not outlive the old password.
	if err := e.store.ClearRefreshTokenDigest(ctx, userID); err != nil {
		return mapStoreErr(err)
	}

	e.metricInc(MetricPasswordChange)
	e.emitAudit(ctx, auditEventPasswordChange, true, userID, nil, nil)
	return nil
}
