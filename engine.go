package authkit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/inkwellhq/authkit/internal/rate"
	"github.com/inkwellhq/authkit/jwt"
	"github.com/inkwellhq/authkit/password"
)

// Engine is the authentication and token lifecycle engine. Engines are
// built once through [Builder.Build] and are safe for concurrent use;
// the only shared mutable state is the user record behind [UserStore].
type Engine struct {
	config       Config
	store        UserStore
	hasher       *password.Hasher
	jwtManager   *jwt.Manager
	loginLimiter *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close flushes and stops the audit dispatcher. Safe on a nil engine.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters,
// including the audit dispatcher's drop count under MetricAuditDropped.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	snap := e.metrics.Snapshot()
	if e.metrics.Enabled() && e.audit != nil {
		snap.Counters[MetricAuditDropped] = e.audit.Dropped()
	}
	return snap
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Error:     auditErrorCode(err),
		Metadata:  metadata,
	}

	e.audit.Emit(ctx, event)
}

// mapStoreErr classifies a store failure: ErrUserNotFound and ErrUserExists
// pass through; anything else is a transport fault.
func mapStoreErr(err error) error {
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUserExists) {
		return err
	}
	return ErrStoreUnavailable
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
