package alert

import (
	"context"
	"time"
)

// Service owns the alert lifecycle state machine:
//
//	OPEN -> ACKNOWLEDGED -> RESOLVED
//	OPEN -> RESOLVED
//	OPEN -> SUPPRESSED -> OPEN (expiry or manual)
//
// Illegal transitions fail with a state-conflict error naming the current
// status; the alert is left unmodified.
type Service interface {
	// Create persists a candidate alert (always starts OPEN), fans out
	// notifications and publishes a new-alert event
	Create(ctx context.Context, a *Alert) (*Alert, error)

	// Get retrieves an alert by ID
	Get(ctx context.Context, id string) (*Alert, error)

	// List retrieves alerts with filters and pagination
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Alert, int64, error)

	// Acknowledge transitions OPEN -> ACKNOWLEDGED
	Acknowledge(ctx context.Context, id, userID, message string) (*Alert, error)

	// Resolve transitions any non-terminal status -> RESOLVED
	Resolve(ctx context.Context, id, userID, reason string) (*Alert, error)

	// Suppress transitions OPEN -> SUPPRESSED until the given time
	Suppress(ctx context.Context, id string, until time.Time, userID, reason string) (*Alert, error)

	// Delete removes the alert permanently (administrative action)
	Delete(ctx context.Context, id string) error

	// UnsuppressExpired returns expired suppressed alerts to OPEN
	UnsuppressExpired(ctx context.Context) (int64, error)

	// AutoResolveForSource resolves all open alerts for a source whose
	// condition has cleared
	AutoResolveForSource(ctx context.Context, sourceType SourceType, sourceID string) (int64, error)

	// AutoResolveForRule resolves all open alerts of a rule. Used when the
	// rule is deleted.
	AutoResolveForRule(ctx context.Context, ruleID string) (int64, error)

	// CleanupResolved deletes resolved alerts older than the retention window
	CleanupResolved(ctx context.Context, retention time.Duration) (int64, error)

	// Statistics aggregates alert counts
	Statistics(ctx context.Context) (*Statistics, error)
}
