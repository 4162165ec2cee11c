package notification

import (
	"context"
	"time"
)

// Repository defines the interface for notification data access
type Repository interface {
	// Create persists a new notification
	Create(ctx context.Context, n *Notification) error

	// GetByID retrieves a notification by ID
	GetByID(ctx context.Context, id string) (*Notification, error)

	// Update persists the notification delivery state
	Update(ctx context.Context, n *Notification) error

	// ListByAlert retrieves all notifications for an alert
	ListByAlert(ctx context.Context, alertID string) ([]*Notification, error)

	// ListRetryable selects failed notifications whose nextRetryAt has
	// passed, ordered oldest first, bounded to limit rows
	ListRetryable(ctx context.Context, now time.Time, limit int) ([]*Notification, error)
}

// ChannelRepository defines the interface for channel configuration access
type ChannelRepository interface {
	// Create persists a new channel
	Create(ctx context.Context, c *Channel) error

	// GetByID retrieves a channel by ID
	GetByID(ctx context.Context, id string) (*Channel, error)

	// Update persists the channel
	Update(ctx context.Context, c *Channel) error

	// Delete removes the channel
	Delete(ctx context.Context, id string) error

	// List retrieves all channels
	List(ctx context.Context) ([]*Channel, error)

	// ListEnabledByIDs retrieves the enabled subset of the given channel IDs
	ListEnabledByIDs(ctx context.Context, ids []string) ([]*Channel, error)

	// RecordResult updates delivery counters and last-error bookkeeping
	RecordResult(ctx context.Context, id string, success bool, errMsg string, at time.Time) error
}
