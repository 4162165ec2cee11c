package notification

import (
	"context"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
)

// Service dispatches alerts to configured channels with at-least-once
// delivery and exponential backoff retries. Delivery errors are recorded on
// the notification row, never propagated past the dispatcher.
type Service interface {
	// DispatchForAlert creates one notification per enabled channel in
	// channelIDs and attempts delivery of each
	DispatchForAlert(ctx context.Context, a *alert.Alert, channelIDs []string) error

	// RetryFailed re-dispatches failed notifications whose backoff has
	// elapsed, a bounded batch per call. Returns the number retried.
	RetryFailed(ctx context.Context) (int, error)

	// ListForAlert retrieves notifications for an alert
	ListForAlert(ctx context.Context, alertID string) ([]*Notification, error)

	// TestChannel renders and delivers a synthetic low-severity alert
	// through the channel, reporting whether delivery succeeded
	TestChannel(ctx context.Context, channelID string) error
}
