package rule

import (
	"context"
	"time"
)

// Repository defines the interface for rule data access
type Repository interface {
	// Create creates a new rule
	Create(ctx context.Context, r *Rule) error

	// GetByID retrieves a rule by ID
	GetByID(ctx context.Context, id string) (*Rule, error)

	// Update updates a rule
	Update(ctx context.Context, r *Rule) error

	// Delete deletes a rule
	Delete(ctx context.Context, id string) error

	// List retrieves rules with filters
	List(ctx context.Context, filter Filter) ([]*Rule, error)

	// ListEnabled retrieves all enabled rules ordered by severity
	ListEnabled(ctx context.Context) ([]*Rule, error)

	// SetEnabled flips the enabled flag
	SetEnabled(ctx context.Context, id string, enabled bool) error

	// RecordEvaluation bumps evaluation bookkeeping atomically:
	// evaluationCount++, lastEvaluatedAt=at, and triggerCount += triggered.
	RecordEvaluation(ctx context.Context, id string, at time.Time, triggered int) error
}
