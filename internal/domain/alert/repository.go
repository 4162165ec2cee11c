package alert

import (
	"context"
	"time"
)

// Repository defines the interface for alert data access. Status transitions
// use conditional updates so concurrent schedulers cannot double-apply them.
type Repository interface {
	// Create persists a new alert
	Create(ctx context.Context, a *Alert) error

	// GetByID retrieves an alert by ID
	GetByID(ctx context.Context, id string) (*Alert, error)

	// Update persists the full alert record
	Update(ctx context.Context, a *Alert) error

	// UpdateStatusIf transitions id from one status to another atomically.
	// Returns false without error when the alert was not in the expected
	// status (someone else transitioned it first).
	UpdateStatusIf(ctx context.Context, id string, from, to Status, apply func(*Alert)) (bool, error)

	// Delete removes the alert record permanently
	Delete(ctx context.Context, id string) error

	// List retrieves alerts with filters and pagination
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Alert, int64, error)

	// ResolveOpenByRule resolves every open alert of a rule, returning the
	// number affected. Used when a rule is deleted.
	ResolveOpenByRule(ctx context.Context, ruleID string, at time.Time) (int64, error)

	// ResolveOpenBySource resolves every open alert for a source
	ResolveOpenBySource(ctx context.Context, sourceType SourceType, sourceID string, at time.Time) (int64, error)

	// UnsuppressExpired returns suppressed alerts whose suppressedUntil has
	// passed back to open and clears the field
	UnsuppressExpired(ctx context.Context, now time.Time) (int64, error)

	// DeleteResolvedBefore removes resolved alerts last updated before cutoff
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Statistics aggregates counts by status, severity and rule type
	Statistics(ctx context.Context) (*Statistics, error)
}
