package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/netmap"
	"github.com/peerwatch/peerwatch/internal/domain/notification"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
)

// RuleRepository is an in-memory rule.Repository for tests
type RuleRepository struct {
	mu    sync.Mutex
	rules map[string]*rule.Rule
}

// NewRuleRepository creates an empty in-memory rule repository
func NewRuleRepository() *RuleRepository {
	return &RuleRepository{rules: make(map[string]*rule.Rule)}
}

func (r *RuleRepository) Create(_ context.Context, ru *rule.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ru
	r.rules[ru.ID] = &cp
	return nil
}

func (r *RuleRepository) GetByID(_ context.Context, id string) (*rule.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ru, ok := r.rules[id]
	if !ok {
		return nil, errors.NotFound("rule")
	}
	cp := *ru
	return &cp, nil
}

func (r *RuleRepository) Update(_ context.Context, ru *rule.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[ru.ID]; !ok {
		return errors.NotFound("rule")
	}
	cp := *ru
	r.rules[ru.ID] = &cp
	return nil
}

func (r *RuleRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return errors.NotFound("rule")
	}
	delete(r.rules, id)
	return nil
}

func (r *RuleRepository) List(_ context.Context, filter rule.Filter) ([]*rule.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*rule.Rule
	for _, ru := range r.rules {
		if filter.RuleType != "" && ru.RuleType != filter.RuleType {
			continue
		}
		if filter.Severity != "" && ru.Severity != filter.Severity {
			continue
		}
		if filter.Enabled != nil && ru.IsEnabled != *filter.Enabled {
			continue
		}
		cp := *ru
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RuleRepository) ListEnabled(ctx context.Context) ([]*rule.Rule, error) {
	enabled := true
	return r.List(ctx, rule.Filter{Enabled: &enabled})
}

func (r *RuleRepository) SetEnabled(_ context.Context, id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ru, ok := r.rules[id]
	if !ok {
		return errors.NotFound("rule")
	}
	ru.IsEnabled = enabled
	return nil
}

func (r *RuleRepository) RecordEvaluation(_ context.Context, id string, at time.Time, triggered int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ru, ok := r.rules[id]
	if !ok {
		return errors.NotFound("rule")
	}
	ru.EvaluationCount++
	ru.TriggerCount += int64(triggered)
	t := at
	ru.LastEvaluatedAt = &t
	return nil
}

// AlertRepository is an in-memory alert.Repository for tests
type AlertRepository struct {
	mu     sync.Mutex
	alerts map[string]*alert.Alert
}

// NewAlertRepository creates an empty in-memory alert repository
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{alerts: make(map[string]*alert.Alert)}
}

func (r *AlertRepository) Create(_ context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.alerts[a.ID] = &cp
	return nil
}

func (r *AlertRepository) GetByID(_ context.Context, id string) (*alert.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok {
		return nil, errors.NotFound("alert")
	}
	cp := *a
	return &cp, nil
}

func (r *AlertRepository) Update(_ context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[a.ID]; !ok {
		return errors.NotFound("alert")
	}
	cp := *a
	r.alerts[a.ID] = &cp
	return nil
}

func (r *AlertRepository) UpdateStatusIf(_ context.Context, id string, from, to alert.Status, apply func(*alert.Alert)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok {
		return false, errors.NotFound("alert")
	}
	if a.Status != from {
		return false, nil
	}
	a.Status = to
	if apply != nil {
		apply(a)
	}
	a.UpdatedAt = time.Now()
	return true, nil
}

func (r *AlertRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[id]; !ok {
		return errors.NotFound("alert")
	}
	delete(r.alerts, id)
	return nil
}

func (r *AlertRepository) List(_ context.Context, filter alert.Filter, limit, offset int) ([]*alert.Alert, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*alert.Alert
	for _, a := range r.alerts {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.SourceType != "" && a.SourceType != filter.SourceType {
			continue
		}
		if filter.SourceID != "" && a.SourceID != filter.SourceID {
			continue
		}
		if filter.RuleID != "" && a.RuleID != filter.RuleID {
			continue
		}
		cp := *a
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TriggeredAt.After(all[j].TriggeredAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *AlertRepository) ResolveOpenByRule(_ context.Context, ruleID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.alerts {
		if a.RuleID == ruleID && a.Status != alert.StatusResolved {
			a.Status = alert.StatusResolved
			t := at
			a.ResolvedAt = &t
			n++
		}
	}
	return n, nil
}

func (r *AlertRepository) ResolveOpenBySource(_ context.Context, sourceType alert.SourceType, sourceID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.alerts {
		if a.SourceType == sourceType && a.SourceID == sourceID && a.Status == alert.StatusOpen {
			a.Status = alert.StatusResolved
			t := at
			a.ResolvedAt = &t
			n++
		}
	}
	return n, nil
}

func (r *AlertRepository) UnsuppressExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.alerts {
		if a.Status == alert.StatusSuppressed && a.SuppressedUntil != nil && !a.SuppressedUntil.After(now) {
			a.Status = alert.StatusOpen
			a.SuppressedUntil = nil
			n++
		}
	}
	return n, nil
}

func (r *AlertRepository) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, a := range r.alerts {
		if a.Status == alert.StatusResolved && a.UpdatedAt.Before(cutoff) {
			delete(r.alerts, id)
			n++
		}
	}
	return n, nil
}

func (r *AlertRepository) Statistics(_ context.Context) (*alert.Statistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &alert.Statistics{
		AlertsBySeverity: make(map[string]int64),
		AlertsByRuleType: make(map[string]int64),
	}
	for _, a := range r.alerts {
		stats.TotalAlerts++
		switch a.Status {
		case alert.StatusOpen:
			stats.OpenAlerts++
		case alert.StatusAcknowledged:
			stats.AcknowledgedAlerts++
		case alert.StatusResolved:
			stats.ResolvedAlerts++
		case alert.StatusSuppressed:
			stats.SuppressedAlerts++
		}
		stats.AlertsBySeverity[a.Severity]++
		if rt, ok := a.Metadata["rule_type"].(string); ok {
			stats.AlertsByRuleType[rt]++
		}
	}
	return stats, nil
}

// NotificationRepository is an in-memory notification.Repository for tests
type NotificationRepository struct {
	mu            sync.Mutex
	notifications map[string]*notification.Notification
}

// NewNotificationRepository creates an empty in-memory notification repository
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{notifications: make(map[string]*notification.Notification)}
}

func (r *NotificationRepository) Create(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.notifications[n.ID] = &cp
	return nil
}

func (r *NotificationRepository) GetByID(_ context.Context, id string) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, errors.NotFound("notification")
	}
	cp := *n
	return &cp, nil
}

func (r *NotificationRepository) Update(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notifications[n.ID]; !ok {
		return errors.NotFound("notification")
	}
	cp := *n
	r.notifications[n.ID] = &cp
	return nil
}

func (r *NotificationRepository) ListByAlert(_ context.Context, alertID string) ([]*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.notifications {
		if n.AlertID == alertID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *NotificationRepository) ListRetryable(_ context.Context, now time.Time, limit int) ([]*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.notifications {
		if n.Status != notification.StatusFailed && n.Status != notification.StatusRetry {
			continue
		}
		if n.NextRetryAt == nil || n.NextRetryAt.After(now) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRetryAt.Before(*out[j].NextRetryAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// ChannelRepository is an in-memory notification.ChannelRepository for tests
type ChannelRepository struct {
	mu       sync.Mutex
	channels map[string]*notification.Channel
}

// NewChannelRepository creates an empty in-memory channel repository
func NewChannelRepository() *ChannelRepository {
	return &ChannelRepository{channels: make(map[string]*notification.Channel)}
}

func (r *ChannelRepository) Create(_ context.Context, c *notification.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.channels[c.ID] = &cp
	return nil
}

func (r *ChannelRepository) GetByID(_ context.Context, id string) (*notification.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.channels[id]
	if !ok {
		return nil, errors.NotFound("channel")
	}
	cp := *c
	return &cp, nil
}

func (r *ChannelRepository) Update(_ context.Context, c *notification.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[c.ID]; !ok {
		return errors.NotFound("channel")
	}
	cp := *c
	r.channels[c.ID] = &cp
	return nil
}

func (r *ChannelRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[id]; !ok {
		return errors.NotFound("channel")
	}
	delete(r.channels, id)
	return nil
}

func (r *ChannelRepository) List(_ context.Context) ([]*notification.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Channel
	for _, c := range r.channels {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ChannelRepository) ListEnabledByIDs(_ context.Context, ids []string) ([]*notification.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Channel
	for _, id := range ids {
		c, ok := r.channels[id]
		if !ok || !c.IsEnabled {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *ChannelRepository) RecordResult(_ context.Context, id string, success bool, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.channels[id]
	if !ok {
		return errors.NotFound("channel")
	}
	t := at
	c.LastUsedAt = &t
	if success {
		c.SuccessCount++
		c.LastSuccessAt = &t
		c.LastError = ""
	} else {
		c.FailureCount++
		c.LastFailureAt = &t
		c.LastError = errMsg
	}
	return nil
}

// StaticProvider is a netmap.Provider serving fixed peer and group lists
type StaticProvider struct {
	PeerList  []*netmap.Peer
	GroupList []*netmap.Group
	Err       error
}

func (p *StaticProvider) Peers(_ context.Context) ([]*netmap.Peer, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.PeerList, nil
}

func (p *StaticProvider) Groups(_ context.Context) ([]*netmap.Group, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.GroupList, nil
}

// SnapshotStore is an in-memory netmap.SnapshotStore for tests
type SnapshotStore struct {
	mu        sync.Mutex
	snapshots []*netmap.NetworkSnapshot
}

func (s *SnapshotStore) Save(_ context.Context, snap *netmap.NetworkSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	s.snapshots = append(s.snapshots, &cp)
	return nil
}

func (s *SnapshotStore) Latest(_ context.Context, before time.Time) (*netmap.NetworkSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *netmap.NetworkSnapshot
	for _, snap := range s.snapshots {
		if snap.TakenAt.After(before) {
			continue
		}
		if latest == nil || snap.TakenAt.After(latest.TakenAt) {
			latest = snap
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *SnapshotStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.snapshots[:0]
	var deleted int64
	for _, snap := range s.snapshots {
		if snap.TakenAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, snap)
	}
	s.snapshots = kept
	return deleted, nil
}

// Count returns the number of stored snapshots
func (s *SnapshotStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// CapturePublisher records published events for assertions
type CapturePublisher struct {
	mu     sync.Mutex
	Events []CapturedEvent
}

// CapturedEvent is one recorded publish call
type CapturedEvent struct {
	Event  string
	UserID string
	Data   interface{}
}

func (p *CapturePublisher) Publish(event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, CapturedEvent{Event: event, Data: data})
}

func (p *CapturePublisher) PublishTo(userID, event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, CapturedEvent{Event: event, UserID: userID, Data: data})
}

// Count returns how many events with the given name were published
func (p *CapturePublisher) Count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// FakeMailer records sent mail and can be set to fail
type FakeMailer struct {
	mu       sync.Mutex
	Sent     []FakeMail
	FailWith error
}

// FakeMail is one recorded send
type FakeMail struct {
	To      []string
	Subject string
}

func (m *FakeMailer) Send(_ context.Context, to []string, subject, htmlBody, textBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Sent = append(m.Sent, FakeMail{To: to, Subject: subject})
	return nil
}

// SentCount returns the number of successfully sent mails
func (m *FakeMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
