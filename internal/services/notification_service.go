package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/notification"
	"github.com/peerwatch/peerwatch/internal/events"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
	"github.com/peerwatch/peerwatch/internal/pkg/logger"
	"github.com/peerwatch/peerwatch/internal/pkg/metrics"
)

const (
	// retryBatchSize bounds how many failed notifications one retry sweep
	// picks up
	retryBatchSize = 100

	// baseRetryDelay is the backoff for the first retry; each subsequent
	// retry doubles it up to maxRetryDelay
	baseRetryDelay = 5 * time.Minute
	maxRetryDelay  = 60 * time.Minute
)

// NotificationService implements notification.Service
type NotificationService struct {
	notifications notification.Repository
	channels      notification.ChannelRepository
	alerts        AlertLoader
	mailer        Mailer
	events        events.Publisher
	httpClient    *http.Client
	log           *logger.Logger
	now           func() time.Time
}

// AlertLoader provides read access to alerts for retry re-rendering
type AlertLoader interface {
	GetByID(ctx context.Context, id string) (*alert.Alert, error)
}

// NewNotificationService creates a notification service
func NewNotificationService(
	notifications notification.Repository,
	channels notification.ChannelRepository,
	mailer Mailer,
	publisher events.Publisher,
	log *logger.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		channels:      channels,
		mailer:        mailer,
		events:        publisher,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		log:           log,
		now:           time.Now,
	}
}

// backoffDelay returns the wait before the next attempt given the number of
// failures so far: 5m, 10m, 20m, 40m, then capped at 60m.
func backoffDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	delay := baseRetryDelay
	for i := 1; i < retryCount; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

// DispatchForAlert creates one notification per enabled channel and attempts
// delivery of each. Failures are recorded for retry, never returned.
func (s *NotificationService) DispatchForAlert(ctx context.Context, a *alert.Alert, channelIDs []string) error {
	if len(channelIDs) == 0 {
		return nil
	}

	chans, err := s.channels.ListEnabledByIDs(ctx, channelIDs)
	if err != nil {
		return errors.DatabaseError("failed to load notification channels", err)
	}

	for _, ch := range chans {
		n := &notification.Notification{
			ID:            uuid.NewString(),
			AlertID:       a.ID,
			ChannelID:     ch.ID,
			ChannelType:   ch.Type,
			ChannelConfig: ch.Config,
			Status:        notification.StatusPending,
			MaxRetries:    notification.DefaultMaxRetries,
			CreatedAt:     s.now(),
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			s.log.WithError(err).Errorf("failed to persist notification for alert %s", a.ID)
			continue
		}
		s.attempt(ctx, n, a)
	}
	return nil
}

// attempt delivers one notification and records the outcome. On failure the
// retry schedule is advanced; the error stays on the row.
func (s *NotificationService) attempt(ctx context.Context, n *notification.Notification, a *alert.Alert) {
	now := s.now()
	err := s.deliver(ctx, n, a)

	if err == nil {
		n.Status = notification.StatusSent
		n.SentAt = &now
		n.ResponseData = map[string]interface{}{
			"sent_at": now.Format(time.RFC3339),
			"channel": string(n.ChannelType),
			"attempt": n.RetryCount + 1,
		}
		n.ErrorMessage = ""
		n.NextRetryAt = nil
		metrics.RecordNotification(string(n.ChannelType), "sent")
	} else {
		n.Status = notification.StatusFailed
		n.ErrorMessage = err.Error()
		n.RetryCount++
		next := now.Add(backoffDelay(n.RetryCount))
		n.NextRetryAt = &next
		metrics.RecordNotification(string(n.ChannelType), "failed")
		s.log.WithError(err).WithFields(map[string]interface{}{
			"notification_id": n.ID,
			"channel_type":    n.ChannelType,
			"retry_count":     n.RetryCount,
		}).Warn("notification delivery failed")
	}

	if uerr := s.notifications.Update(ctx, n); uerr != nil {
		s.log.WithError(uerr).Errorf("failed to update notification %s", n.ID)
	}

	if n.ChannelID != "" {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		if rerr := s.channels.RecordResult(ctx, n.ChannelID, err == nil, msg, now); rerr != nil {
			s.log.WithError(rerr).Errorf("failed to record channel result for %s", n.ChannelID)
		}
	}

	s.events.Publish(events.EventNotificationStatus, map[string]interface{}{
		"notification_id": n.ID,
		"alert_id":        n.AlertID,
		"channel_type":    n.ChannelType,
		"status":          n.Status,
		"retry_count":     n.RetryCount,
	})
}

// deliver routes one notification through its channel type
func (s *NotificationService) deliver(ctx context.Context, n *notification.Notification, a *alert.Alert) error {
	switch n.ChannelType {
	case notification.ChannelEmail:
		return s.deliverEmail(ctx, n.ChannelConfig, a)
	case notification.ChannelWebhook:
		return s.deliverWebhook(ctx, n.ChannelConfig, a)
	case notification.ChannelSlack:
		return s.deliverSlack(ctx, n.ChannelConfig, a)
	case notification.ChannelInApp:
		return s.deliverInApp(n.ChannelConfig, a)
	default:
		return fmt.Errorf("unsupported channel type %q", n.ChannelType)
	}
}

// deliverInApp pushes the notification over the event feed to the user named
// in the channel config. Without a configured user it goes to every
// connected client.
func (s *NotificationService) deliverInApp(config map[string]interface{}, a *alert.Alert) error {
	userID := notification.ConfigString(config, "user_id")
	if userID == "" {
		userID = notification.ConfigString(config, "userId")
	}
	s.events.PublishTo(userID, events.EventInAppNotification, inAppPayload(a, userID, s.now()))
	return nil
}

func (s *NotificationService) deliverEmail(ctx context.Context, config map[string]interface{}, a *alert.Alert) error {
	if s.mailer == nil {
		return fmt.Errorf("no mailer configured")
	}
	to := notification.ConfigStrings(config, "recipients")
	if len(to) == 0 {
		if single := notification.ConfigString(config, "recipient"); single != "" {
			to = []string{single}
		}
	}
	err := s.mailer.Send(ctx, to, renderEmailSubject(a), renderEmailHTML(a), renderEmailText(a))
	if err != nil {
		return errors.DeliveryError("email", err)
	}
	return nil
}

func (s *NotificationService) deliverWebhook(ctx context.Context, config map[string]interface{}, a *alert.Alert) error {
	url := notification.ConfigString(config, "url")
	if url == "" {
		return fmt.Errorf("webhook channel has no url configured")
	}

	body, err := json.Marshal(webhookPayload(a))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if secret := notification.ConfigString(config, "secret"); secret != "" {
		req.Header.Set("X-Peerwatch-Signature", signPayload(body, secret))
	}

	return s.doPost(req, "webhook")
}

func (s *NotificationService) deliverSlack(ctx context.Context, config map[string]interface{}, a *alert.Alert) error {
	url := notification.ConfigString(config, "webhook_url")
	if url == "" {
		return fmt.Errorf("slack channel has no webhook_url configured")
	}

	body, err := json.Marshal(slackPayload(a))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return s.doPost(req, "slack")
}

func (s *NotificationService) doPost(req *http.Request, channel string) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.DeliveryError(channel, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.DeliveryError(channel, fmt.Errorf("endpoint returned status %d", resp.StatusCode))
	}
	return nil
}

// signPayload computes the hex HMAC-SHA256 of the body under the channel
// secret
func signPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// RetryFailed re-dispatches failed notifications whose backoff has elapsed.
// Notifications out of attempts are marked terminally failed. Returns the
// number of notifications retried.
func (s *NotificationService) RetryFailed(ctx context.Context) (int, error) {
	now := s.now()
	pending, err := s.notifications.ListRetryable(ctx, now, retryBatchSize)
	if err != nil {
		return 0, errors.DatabaseError("failed to list retryable notifications", err)
	}

	retried := 0
	for _, n := range pending {
		if n.RetryCount >= n.MaxRetries {
			n.ErrorMessage = "max retries exceeded"
			n.NextRetryAt = nil
			if uerr := s.notifications.Update(ctx, n); uerr != nil {
				s.log.WithError(uerr).Errorf("failed to finalize notification %s", n.ID)
			}
			s.events.Publish(events.EventNotificationStatus, map[string]interface{}{
				"notification_id": n.ID,
				"alert_id":        n.AlertID,
				"channel_type":    n.ChannelType,
				"status":          n.Status,
				"terminal":        true,
			})
			continue
		}

		a, err := s.loadAlert(ctx, n.AlertID)
		if err != nil {
			s.log.WithError(err).Warnf("skipping retry for notification %s, alert unavailable", n.ID)
			continue
		}

		// Mark the row as being retried so an interrupted sweep is visible
		// and the next sweep still picks it up.
		n.Status = notification.StatusRetry
		if uerr := s.notifications.Update(ctx, n); uerr != nil {
			s.log.WithError(uerr).Errorf("failed to mark notification %s for retry", n.ID)
		}

		metrics.RecordNotificationRetry()
		s.attempt(ctx, n, a)
		retried++
	}
	return retried, nil
}

// SetAlertLoader wires the alert reader used when retrying. The notifier only
// needs read access for re-rendering.
func (s *NotificationService) SetAlertLoader(loader AlertLoader) {
	s.alerts = loader
}

func (s *NotificationService) loadAlert(ctx context.Context, id string) (*alert.Alert, error) {
	if s.alerts == nil {
		return nil, fmt.Errorf("alert loader not configured")
	}
	return s.alerts.GetByID(ctx, id)
}

// ListForAlert retrieves notifications for an alert
func (s *NotificationService) ListForAlert(ctx context.Context, alertID string) ([]*notification.Notification, error) {
	return s.notifications.ListByAlert(ctx, alertID)
}

// TestChannel renders and delivers a synthetic low-severity alert through the
// channel
func (s *NotificationService) TestChannel(ctx context.Context, channelID string) error {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}

	now := s.now()
	probe := &alert.Alert{
		ID:          uuid.NewString(),
		Title:       "Test notification",
		Description: fmt.Sprintf("Test delivery through channel %q.", ch.Name),
		Severity:    "low",
		Status:      alert.StatusOpen,
		SourceType:  alert.SourceSystem,
		SourceID:    "channel-test",
		TriggeredAt: now,
	}

	n := &notification.Notification{
		ID:            uuid.NewString(),
		AlertID:       probe.ID,
		ChannelID:     ch.ID,
		ChannelType:   ch.Type,
		ChannelConfig: ch.Config,
	}

	err = s.deliver(ctx, n, probe)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if rerr := s.channels.RecordResult(ctx, ch.ID, err == nil, msg, now); rerr != nil {
		s.log.WithError(rerr).Errorf("failed to record test result for channel %s", ch.ID)
	}
	return err
}
