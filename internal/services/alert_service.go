package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/notification"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
	"github.com/peerwatch/peerwatch/internal/events"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
	"github.com/peerwatch/peerwatch/internal/pkg/logger"
	"github.com/peerwatch/peerwatch/internal/pkg/metrics"
)

// AlertService implements alert.Service
type AlertService struct {
	alerts   alert.Repository
	rules    rule.Repository
	notifier notification.Service
	events   events.Publisher
	log      *logger.Logger
}

// NewAlertService creates an alert service
func NewAlertService(
	alerts alert.Repository,
	rules rule.Repository,
	notifier notification.Service,
	publisher events.Publisher,
	log *logger.Logger,
) *AlertService {
	return &AlertService{
		alerts:   alerts,
		rules:    rules,
		notifier: notifier,
		events:   publisher,
		log:      log,
	}
}

// Create persists a candidate alert, fans out notifications on the rule's
// channels and publishes a new-alert event. Delivery failures are logged and
// recorded on the notification rows; they never fail alert creation.
func (s *AlertService) Create(ctx context.Context, a *alert.Alert) (*alert.Alert, error) {
	now := time.Now()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Status = alert.StatusOpen
	if a.TriggeredAt.IsZero() {
		a.TriggeredAt = now
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	if err := s.alerts.Create(ctx, a); err != nil {
		return nil, errors.DatabaseError("failed to create alert", err)
	}

	metrics.RecordAlertTransition(string(alert.StatusOpen))
	s.events.Publish(events.EventNewAlert, a)
	s.log.WithFields(map[string]interface{}{
		"alert_id":    a.ID,
		"rule_id":     a.RuleID,
		"severity":    a.Severity,
		"source_type": a.SourceType,
		"source_id":   a.SourceID,
	}).Info("alert created")

	s.dispatchNotifications(ctx, a)
	return a, nil
}

// dispatchNotifications looks up the originating rule's channel list and
// hands the alert to the notifier
func (s *AlertService) dispatchNotifications(ctx context.Context, a *alert.Alert) {
	if a.RuleID == "" || s.notifier == nil {
		return
	}

	r, err := s.rules.GetByID(ctx, a.RuleID)
	if err != nil {
		s.log.WithError(err).Warnf("cannot load rule %s for notification fan-out", a.RuleID)
		return
	}
	if len(r.NotificationChannels) == 0 {
		return
	}

	if err := s.notifier.DispatchForAlert(ctx, a, r.NotificationChannels); err != nil {
		s.log.WithError(err).Errorf("notification dispatch failed for alert %s", a.ID)
	}
}

// Get retrieves an alert by ID
func (s *AlertService) Get(ctx context.Context, id string) (*alert.Alert, error) {
	a, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List retrieves alerts with filters and pagination
func (s *AlertService) List(ctx context.Context, filter alert.Filter, limit, offset int) ([]*alert.Alert, int64, error) {
	return s.alerts.List(ctx, filter, limit, offset)
}

// Acknowledge transitions OPEN -> ACKNOWLEDGED
func (s *AlertService) Acknowledge(ctx context.Context, id, userID, message string) (*alert.Alert, error) {
	now := time.Now()
	ok, err := s.alerts.UpdateStatusIf(ctx, id, alert.StatusOpen, alert.StatusAcknowledged, func(a *alert.Alert) {
		a.AcknowledgedAt = &now
		a.AcknowledgedByID = userID
		if message != "" {
			setMetadata(a, "acknowledge_message", message)
		}
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionConflict(ctx, id, "acknowledge")
	}

	a, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.RecordAlertTransition(string(alert.StatusAcknowledged))
	s.events.Publish(events.EventAlertAcknowledged, a)
	return a, nil
}

// Resolve transitions any non-terminal status to RESOLVED
func (s *AlertService) Resolve(ctx context.Context, id, userID, reason string) (*alert.Alert, error) {
	current, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, errors.StateConflict(fmt.Sprintf("cannot resolve alert in status %q", current.Status))
	}

	now := time.Now()
	ok, err := s.alerts.UpdateStatusIf(ctx, id, current.Status, alert.StatusResolved, func(a *alert.Alert) {
		a.ResolvedAt = &now
		a.ResolvedByID = userID
		a.SuppressedUntil = nil
		if reason != "" {
			setMetadata(a, "resolve_reason", reason)
		}
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionConflict(ctx, id, "resolve")
	}

	a, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.RecordAlertTransition(string(alert.StatusResolved))
	s.events.Publish(events.EventAlertResolved, a)
	return a, nil
}

// Suppress transitions OPEN -> SUPPRESSED until the given time
func (s *AlertService) Suppress(ctx context.Context, id string, until time.Time, userID, reason string) (*alert.Alert, error) {
	if !until.After(time.Now()) {
		return nil, errors.BadRequest("suppression end time must be in the future")
	}

	ok, err := s.alerts.UpdateStatusIf(ctx, id, alert.StatusOpen, alert.StatusSuppressed, func(a *alert.Alert) {
		u := until
		a.SuppressedUntil = &u
		if reason != "" {
			setMetadata(a, "suppress_reason", reason)
		}
		if userID != "" {
			setMetadata(a, "suppressed_by", userID)
		}
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.transitionConflict(ctx, id, "suppress")
	}

	a, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.RecordAlertTransition(string(alert.StatusSuppressed))
	s.events.Publish(events.EventAlertSuppressed, a)
	return a, nil
}

// Delete removes the alert permanently
func (s *AlertService) Delete(ctx context.Context, id string) error {
	if _, err := s.alerts.GetByID(ctx, id); err != nil {
		return err
	}
	return s.alerts.Delete(ctx, id)
}

// UnsuppressExpired returns expired suppressed alerts to OPEN
func (s *AlertService) UnsuppressExpired(ctx context.Context) (int64, error) {
	n, err := s.alerts.UnsuppressExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Infof("unsuppressed %d alerts past their suppression window", n)
		s.events.Publish(events.EventAlertUpdate, map[string]interface{}{
			"action": "unsuppressed",
			"count":  n,
		})
	}
	return n, nil
}

// AutoResolveForSource resolves all open alerts for a source whose condition
// has cleared
func (s *AlertService) AutoResolveForSource(ctx context.Context, sourceType alert.SourceType, sourceID string) (int64, error) {
	n, err := s.alerts.ResolveOpenBySource(ctx, sourceType, sourceID, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.events.Publish(events.EventAlertResolved, map[string]interface{}{
			"source_type": sourceType,
			"source_id":   sourceID,
			"count":       n,
		})
	}
	return n, nil
}

// AutoResolveForRule resolves all open alerts of a rule
func (s *AlertService) AutoResolveForRule(ctx context.Context, ruleID string) (int64, error) {
	n, err := s.alerts.ResolveOpenByRule(ctx, ruleID, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.events.Publish(events.EventAlertResolved, map[string]interface{}{
			"rule_id": ruleID,
			"count":   n,
		})
	}
	return n, nil
}

// CleanupResolved deletes resolved alerts older than the retention window
func (s *AlertService) CleanupResolved(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	n, err := s.alerts.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Infof("cleaned up %d resolved alerts older than %s", n, retention)
	}
	return n, nil
}

// Statistics aggregates alert counts
func (s *AlertService) Statistics(ctx context.Context) (*alert.Statistics, error) {
	return s.alerts.Statistics(ctx)
}

// transitionConflict builds the state-conflict error for a rejected
// transition, naming the status the alert is actually in
func (s *AlertService) transitionConflict(ctx context.Context, id, action string) error {
	a, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return errors.StateConflict(fmt.Sprintf("cannot %s alert in status %q", action, a.Status))
}

func setMetadata(a *alert.Alert, key string, value interface{}) {
	if a.Metadata == nil {
		a.Metadata = make(map[string]interface{})
	}
	a.Metadata[key] = value
}
