package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/netmap"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
	"github.com/peerwatch/peerwatch/internal/evaluator"
	"github.com/peerwatch/peerwatch/internal/events"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
	"github.com/peerwatch/peerwatch/internal/pkg/logger"
	"github.com/peerwatch/peerwatch/internal/pkg/metrics"
)

// RulesEngine owns rule management and the periodic evaluation sweep. One
// sweep builds the network context once, runs every enabled rule against it
// in isolation, persists triggered alerts and records a snapshot for the next
// cycle's baseline.
type RulesEngine struct {
	rules     rule.Repository
	alerts    alert.Service
	registry  *evaluator.Registry
	builder   *evaluator.ContextBuilder
	snapshots netmap.SnapshotStore
	events    events.Publisher
	log       *logger.Logger
}

// NewRulesEngine creates a rules engine
func NewRulesEngine(
	rules rule.Repository,
	alerts alert.Service,
	registry *evaluator.Registry,
	builder *evaluator.ContextBuilder,
	snapshots netmap.SnapshotStore,
	publisher events.Publisher,
	log *logger.Logger,
) *RulesEngine {
	return &RulesEngine{
		rules:     rules,
		alerts:    alerts,
		registry:  registry,
		builder:   builder,
		snapshots: snapshots,
		events:    publisher,
		log:       log,
	}
}

// EvaluateAll runs one evaluation sweep. A context build failure aborts the
// sweep; a single rule failing never stops the others.
func (e *RulesEngine) EvaluateAll(ctx context.Context) error {
	started := time.Now()
	defer func() {
		metrics.RecordSweepDuration(time.Since(started))
	}()

	ec, err := e.builder.Build(ctx)
	if err != nil {
		e.log.WithError(err).Error("evaluation sweep aborted, cannot build context")
		return err
	}

	rules, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return errors.DatabaseError("failed to list enabled rules", err)
	}

	triggered := 0
	for _, r := range rules {
		n := e.evaluateRule(ctx, r, ec)
		triggered += n
	}

	if err := e.snapshots.Save(ctx, ec.Snapshot()); err != nil {
		e.log.WithError(err).Error("failed to save network snapshot")
	}

	e.log.WithFields(map[string]interface{}{
		"rules":     len(rules),
		"peers":     len(ec.Peers),
		"groups":    len(ec.Groups),
		"triggered": triggered,
		"elapsed":   time.Since(started).String(),
	}).Info("evaluation sweep complete")
	return nil
}

// evaluateRule runs one rule against the shared context and persists whatever
// it triggers. Returns the number of alerts created. Panics and errors are
// contained to this rule.
func (e *RulesEngine) evaluateRule(ctx context.Context, r *rule.Rule, ec *evaluator.Context) (created int) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.RecordRuleEvaluation(string(r.RuleType), "error")
			e.log.Errorf("evaluator for rule %s (%s) panicked: %v", r.ID, r.RuleType, rec)
		}
		// Bookkeeping happens even when evaluation failed.
		if err := e.rules.RecordEvaluation(ctx, r.ID, ec.Timestamp, created); err != nil {
			e.log.WithError(err).Warnf("failed to record evaluation of rule %s", r.ID)
		}
	}()

	ev, ok := e.registry.Lookup(r.RuleType)
	if !ok {
		metrics.RecordRuleEvaluation(string(r.RuleType), "error")
		e.log.Errorf("rule %s has unknown type %q, skipping", r.ID, r.RuleType)
		return 0
	}

	candidates, err := ev.Evaluate(r, ec)
	if err != nil {
		metrics.RecordRuleEvaluation(string(r.RuleType), "error")
		e.log.WithError(err).Errorf("evaluation of rule %s (%s) failed", r.ID, r.RuleType)
		return 0
	}

	for _, a := range candidates {
		if _, err := e.alerts.Create(ctx, a); err != nil {
			e.log.WithError(err).Errorf("failed to persist alert for rule %s", r.ID)
			continue
		}
		metrics.RecordAlertGenerated(string(r.RuleType), a.Severity)
		created++
	}

	result := "ok"
	if created > 0 {
		result = "triggered"
	}
	metrics.RecordRuleEvaluation(string(r.RuleType), result)

	e.events.Publish(events.EventRuleEvaluation, map[string]interface{}{
		"rule_id":   r.ID,
		"rule_type": r.RuleType,
		"triggered": created,
	})
	return created
}

// EvaluateRule runs one rule on demand, outside the sweep cadence. When ec is
// nil a fresh context is built. Triggered alerts are persisted and the rule's
// counters updated exactly as in a sweep. Returns the number of alerts
// created.
func (e *RulesEngine) EvaluateRule(ctx context.Context, id string, ec *evaluator.Context) (int, error) {
	r, err := e.rules.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	if ec == nil {
		ec, err = e.builder.Build(ctx)
		if err != nil {
			return 0, err
		}
	}

	return e.evaluateRule(ctx, r, ec), nil
}

// TestRule evaluates a rule against the live network without persisting
// anything. Used by the dry-run API.
func (e *RulesEngine) TestRule(ctx context.Context, r *rule.Rule) ([]*alert.Alert, error) {
	ev, ok := e.registry.Lookup(r.RuleType)
	if !ok {
		return nil, errors.UnknownRuleType(string(r.RuleType))
	}

	ec, err := e.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	return ev.Evaluate(r, ec)
}

// CreateRule validates and persists a rule
func (e *RulesEngine) CreateRule(ctx context.Context, r *rule.Rule) (*rule.Rule, error) {
	if !r.RuleType.IsValid() {
		return nil, errors.UnknownRuleType(string(r.RuleType))
	}
	if r.Severity == "" {
		r.Severity = rule.SeverityMedium
	}
	if !rule.ValidSeverity(r.Severity) {
		return nil, errors.BadRequest(fmt.Sprintf("unknown severity %q", r.Severity))
	}
	if r.Conditions == nil {
		r.Conditions = make(map[string]interface{})
	}

	now := time.Now()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := e.rules.Create(ctx, r); err != nil {
		return nil, errors.DatabaseError("failed to create rule", err)
	}
	e.log.Infof("rule %s (%s) created", r.Name, r.RuleType)
	return r, nil
}

// GetRule retrieves a rule by ID
func (e *RulesEngine) GetRule(ctx context.Context, id string) (*rule.Rule, error) {
	return e.rules.GetByID(ctx, id)
}

// ListRules retrieves rules with filters
func (e *RulesEngine) ListRules(ctx context.Context, filter rule.Filter) ([]*rule.Rule, error) {
	return e.rules.List(ctx, filter)
}

// UpdateRule validates and persists rule changes. The rule type is immutable
// after creation.
func (e *RulesEngine) UpdateRule(ctx context.Context, r *rule.Rule) (*rule.Rule, error) {
	existing, err := e.rules.GetByID(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if r.RuleType != existing.RuleType {
		return nil, errors.BadRequest("rule type cannot be changed")
	}
	if !rule.ValidSeverity(r.Severity) {
		return nil, errors.BadRequest(fmt.Sprintf("unknown severity %q", r.Severity))
	}

	r.CreatedAt = existing.CreatedAt
	r.EvaluationCount = existing.EvaluationCount
	r.TriggerCount = existing.TriggerCount
	r.LastEvaluatedAt = existing.LastEvaluatedAt
	r.UpdatedAt = time.Now()

	if err := e.rules.Update(ctx, r); err != nil {
		return nil, errors.DatabaseError("failed to update rule", err)
	}
	return r, nil
}

// SetRuleEnabled flips a rule's enabled flag
func (e *RulesEngine) SetRuleEnabled(ctx context.Context, id string, enabled bool) error {
	if _, err := e.rules.GetByID(ctx, id); err != nil {
		return err
	}
	if err := e.rules.SetEnabled(ctx, id, enabled); err != nil {
		return errors.DatabaseError("failed to update rule", err)
	}
	return nil
}

// DeleteRule removes a rule and resolves its open alerts so nothing orphaned
// stays active
func (e *RulesEngine) DeleteRule(ctx context.Context, id string) error {
	if _, err := e.rules.GetByID(ctx, id); err != nil {
		return err
	}

	resolved, err := e.alerts.AutoResolveForRule(ctx, id)
	if err != nil {
		return err
	}
	if resolved > 0 {
		e.log.Infof("resolved %d open alerts of deleted rule %s", resolved, id)
	}

	return e.rules.Delete(ctx, id)
}

// CleanupSnapshots deletes network snapshots older than the retention window.
// Only the most recent snapshot feeds the next sweep's baseline; the rest is
// history.
func (e *RulesEngine) CleanupSnapshots(ctx context.Context, retention time.Duration) (int64, error) {
	return e.snapshots.DeleteBefore(ctx, time.Now().Add(-retention))
}

// SeedDefaultRules creates one disabled starter rule per type when the rule
// table is empty, so a fresh install has a visible template for each
// evaluator.
func (e *RulesEngine) SeedDefaultRules(ctx context.Context) error {
	existing, err := e.rules.List(ctx, rule.Filter{})
	if err != nil {
		return errors.DatabaseError("failed to list rules", err)
	}
	if len(existing) > 0 {
		return nil
	}

	defaults := []*rule.Rule{
		{
			Name:        "Peer offline",
			Description: "Alerts when a peer stays disconnected past the threshold",
			RuleType:    rule.TypePeerOffline,
			Severity:    rule.SeverityHigh,
			Conditions:  map[string]interface{}{"thresholdMinutes": 5},
		},
		{
			Name:        "Peer flapping",
			Description: "Alerts when a peer's connection state changes repeatedly",
			RuleType:    rule.TypePeerFlapping,
			Severity:    rule.SeverityMedium,
			Conditions:  map[string]interface{}{"periodMinutes": 10, "stateChangeThreshold": 3},
		},
		{
			Name:        "Group health",
			Description: "Alerts when a group's online ratio drops below the minimum",
			RuleType:    rule.TypeGroupHealth,
			Severity:    rule.SeverityHigh,
			Conditions:  map[string]interface{}{"minOnlineRate": 0.8},
		},
		{
			Name:        "New peer",
			Description: "Alerts when a previously unknown peer joins the network",
			RuleType:    rule.TypeNewPeer,
			Severity:    rule.SeverityLow,
			Conditions:  map[string]interface{}{"thresholdMinutes": 60},
		},
		{
			Name:        "Peer inactivity",
			Description: "Alerts when a peer has not been seen for a long stretch",
			RuleType:    rule.TypePeerInactivity,
			Severity:    rule.SeverityLow,
			Conditions:  map[string]interface{}{"thresholdDays": 30},
		},
		{
			Name:        "Network change",
			Description: "Alerts on sharp shifts in aggregate network metrics",
			RuleType:    rule.TypeNetworkChange,
			Severity:    rule.SeverityMedium,
			Conditions:  map[string]interface{}{"changeThreshold": 0.2},
		},
	}

	now := time.Now()
	for _, r := range defaults {
		r.ID = uuid.NewString()
		r.IsEnabled = false
		r.CreatedAt = now
		r.UpdatedAt = now
		if err := e.rules.Create(ctx, r); err != nil {
			return errors.DatabaseError("failed to seed default rules", err)
		}
	}
	e.log.Infof("seeded %d default rules (disabled)", len(defaults))
	return nil
}
