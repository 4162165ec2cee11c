package services

import (
	"context"
	"testing"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/netmap"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
	"github.com/peerwatch/peerwatch/internal/evaluator"
	"github.com/peerwatch/peerwatch/internal/events"
	"github.com/peerwatch/peerwatch/internal/testutil"
)

type engineFixture struct {
	engine    *RulesEngine
	rules     *testutil.RuleRepository
	alerts    *testutil.AlertRepository
	provider  *testutil.StaticProvider
	snapshots *testutil.SnapshotStore
	pub       *testutil.CapturePublisher
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		rules:     testutil.NewRuleRepository(),
		alerts:    testutil.NewAlertRepository(),
		provider:  &testutil.StaticProvider{},
		snapshots: &testutil.SnapshotStore{},
		pub:       &testutil.CapturePublisher{},
	}
	alertSvc := NewAlertService(f.alerts, f.rules, nil, f.pub, testLogger())
	f.engine = NewRulesEngine(
		f.rules,
		alertSvc,
		evaluator.NewRegistry(),
		evaluator.NewContextBuilder(f.provider, f.snapshots),
		f.snapshots,
		f.pub,
		testLogger(),
	)
	return f
}

func offlinePeer(id string, ago time.Duration) *netmap.Peer {
	seen := time.Now().Add(-ago)
	return &netmap.Peer{
		ID:          id,
		AccountID:   "acct-1",
		Name:        "peer-" + id,
		IP:          "100.64.0.1",
		Status:      netmap.PeerDisconnected,
		LastSeen:    &seen,
		FirstSeenAt: time.Now().Add(-30 * 24 * time.Hour),
	}
}

func enabledRule(t rule.Type) *rule.Rule {
	return &rule.Rule{
		Name:      "sweep rule",
		RuleType:  t,
		Severity:  rule.SeverityHigh,
		IsEnabled: true,
	}
}

func TestEvaluateAllCreatesAlertsAndBookkeeping(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.provider.PeerList = []*netmap.Peer{offlinePeer("a", 20*time.Minute)}

	created, err := f.engine.CreateRule(ctx, enabledRule(rule.TypePeerOffline))
	if err != nil {
		t.Fatalf("create rule failed: %v", err)
	}

	if err := f.engine.EvaluateAll(ctx); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	alerts, total, _ := f.alerts.List(ctx, alert.Filter{}, 10, 0)
	if total != 1 {
		t.Fatalf("got %d alerts, want 1", total)
	}
	if alerts[0].RuleID != created.ID {
		t.Errorf("alert rule id = %s, want %s", alerts[0].RuleID, created.ID)
	}

	stored, _ := f.rules.GetByID(ctx, created.ID)
	if stored.EvaluationCount != 1 {
		t.Errorf("evaluationCount = %d, want 1", stored.EvaluationCount)
	}
	if stored.TriggerCount != 1 {
		t.Errorf("triggerCount = %d, want 1", stored.TriggerCount)
	}
	if stored.LastEvaluatedAt == nil {
		t.Error("lastEvaluatedAt not recorded")
	}

	if f.snapshots.Count() != 1 {
		t.Errorf("snapshots saved = %d, want 1", f.snapshots.Count())
	}
	if f.pub.Count(events.EventRuleEvaluation) != 1 {
		t.Error("rule_evaluation event not published")
	}
}

func TestEvaluateAllSkipsDisabledRules(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.provider.PeerList = []*netmap.Peer{offlinePeer("a", 20*time.Minute)}

	r := enabledRule(rule.TypePeerOffline)
	r.IsEnabled = false
	created, _ := f.engine.CreateRule(ctx, r)

	if err := f.engine.EvaluateAll(ctx); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	_, total, _ := f.alerts.List(ctx, alert.Filter{}, 10, 0)
	if total != 0 {
		t.Fatalf("disabled rule produced %d alerts", total)
	}
	stored, _ := f.rules.GetByID(ctx, created.ID)
	if stored.EvaluationCount != 0 {
		t.Error("disabled rule was evaluated")
	}
}

func TestEvaluateAllIsolatesBadRules(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.provider.PeerList = []*netmap.Peer{offlinePeer("a", 20*time.Minute)}

	// A rule whose type has no evaluator must not stop the sweep. It can
	// only exist by bypassing CreateRule validation, which a stale row in
	// the database effectively does.
	bad := &rule.Rule{ID: "bad", Name: "stale", RuleType: "retired_type", Severity: "high", IsEnabled: true}
	f.rules.Create(ctx, bad)
	good, _ := f.engine.CreateRule(ctx, enabledRule(rule.TypePeerOffline))

	if err := f.engine.EvaluateAll(ctx); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	_, total, _ := f.alerts.List(ctx, alert.Filter{}, 10, 0)
	if total != 1 {
		t.Fatalf("healthy rule did not run, got %d alerts", total)
	}

	// Bookkeeping still advances for the failed rule.
	stored, _ := f.rules.GetByID(ctx, "bad")
	if stored.EvaluationCount != 1 {
		t.Errorf("failed rule evaluationCount = %d, want 1", stored.EvaluationCount)
	}
	goodStored, _ := f.rules.GetByID(ctx, good.ID)
	if goodStored.TriggerCount != 1 {
		t.Errorf("healthy rule triggerCount = %d, want 1", goodStored.TriggerCount)
	}
}

func TestEvaluateAllAbortsWhenProviderFails(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.provider.Err = context.DeadlineExceeded
	f.engine.CreateRule(ctx, enabledRule(rule.TypePeerOffline))

	if err := f.engine.EvaluateAll(ctx); err == nil {
		t.Fatal("expected sweep to fail when provider is down")
	}
	if f.snapshots.Count() != 0 {
		t.Error("snapshot saved for aborted sweep")
	}
}

func TestEvaluateRuleOnDemand(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.provider.PeerList = []*netmap.Peer{offlinePeer("a", 20*time.Minute)}

	created, _ := f.engine.CreateRule(ctx, enabledRule(rule.TypePeerOffline))

	n, err := f.engine.EvaluateRule(ctx, created.ID, nil)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("created %d alerts, want 1", n)
	}

	_, total, _ := f.alerts.List(ctx, alert.Filter{}, 10, 0)
	if total != 1 {
		t.Fatalf("got %d persisted alerts, want 1", total)
	}
	stored, _ := f.rules.GetByID(ctx, created.ID)
	if stored.EvaluationCount != 1 || stored.TriggerCount != 1 {
		t.Errorf("counters = %d/%d, want 1/1", stored.EvaluationCount, stored.TriggerCount)
	}

	if _, err := f.engine.EvaluateRule(ctx, "missing", nil); err == nil {
		t.Error("unknown rule id accepted")
	}
}

func TestTestRuleDoesNotPersist(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.provider.PeerList = []*netmap.Peer{offlinePeer("a", 20*time.Minute)}

	r := enabledRule(rule.TypePeerOffline)
	r.ID = "dry-run"
	matches, err := f.engine.TestRule(ctx, r)
	if err != nil {
		t.Fatalf("test rule failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}

	_, total, _ := f.alerts.List(ctx, alert.Filter{}, 10, 0)
	if total != 0 {
		t.Error("dry run persisted alerts")
	}
	if f.snapshots.Count() != 0 {
		t.Error("dry run saved a snapshot")
	}
}

func TestCreateRuleValidation(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	if _, err := f.engine.CreateRule(ctx, &rule.Rule{Name: "x", RuleType: "bogus"}); err == nil {
		t.Error("unknown rule type accepted")
	}
	if _, err := f.engine.CreateRule(ctx, &rule.Rule{Name: "x", RuleType: rule.TypePeerOffline, Severity: "urgent"}); err == nil {
		t.Error("unknown severity accepted")
	}

	created, err := f.engine.CreateRule(ctx, &rule.Rule{Name: "x", RuleType: rule.TypePeerOffline})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Severity != rule.SeverityMedium {
		t.Errorf("default severity = %s, want medium", created.Severity)
	}
}

func TestUpdateRuleTypeImmutable(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	created, _ := f.engine.CreateRule(ctx, enabledRule(rule.TypePeerOffline))
	update := *created
	update.RuleType = rule.TypeGroupHealth
	if _, err := f.engine.UpdateRule(ctx, &update); err == nil {
		t.Error("rule type change accepted")
	}
}

func TestDeleteRuleResolvesOpenAlerts(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.provider.PeerList = []*netmap.Peer{offlinePeer("a", 20*time.Minute)}

	created, _ := f.engine.CreateRule(ctx, enabledRule(rule.TypePeerOffline))
	f.engine.EvaluateAll(ctx)

	if err := f.engine.DeleteRule(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	alerts, _, _ := f.alerts.List(ctx, alert.Filter{RuleID: created.ID}, 10, 0)
	for _, a := range alerts {
		if a.Status != alert.StatusResolved {
			t.Errorf("alert %s status = %s, want resolved after rule deletion", a.ID, a.Status)
		}
	}
	if _, err := f.rules.GetByID(ctx, created.ID); err == nil {
		t.Error("rule still present after delete")
	}
}

func TestCleanupSnapshotsShedsOldRows(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	f.snapshots.Save(ctx, &netmap.NetworkSnapshot{
		TakenAt:    time.Now().Add(-10 * 24 * time.Hour),
		TotalPeers: 1,
	})
	f.snapshots.Save(ctx, &netmap.NetworkSnapshot{
		TakenAt:    time.Now().Add(-time.Hour),
		TotalPeers: 2,
	})

	deleted, err := f.engine.CleanupSnapshots(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted %d snapshots, want 1", deleted)
	}
	if f.snapshots.Count() != 1 {
		t.Fatalf("stored snapshots = %d, want 1", f.snapshots.Count())
	}

	latest, _ := f.snapshots.Latest(ctx, time.Now())
	if latest == nil || latest.TotalPeers != 2 {
		t.Error("recent snapshot lost by cleanup")
	}
}

func TestSeedDefaultRules(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	if err := f.engine.SeedDefaultRules(ctx); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	rules, _ := f.rules.List(ctx, rule.Filter{})
	if len(rules) != len(rule.Types()) {
		t.Fatalf("seeded %d rules, want %d", len(rules), len(rule.Types()))
	}
	seen := make(map[rule.Type]bool)
	for _, r := range rules {
		if r.IsEnabled {
			t.Errorf("seeded rule %s is enabled, want disabled", r.Name)
		}
		seen[r.RuleType] = true
	}
	for _, rt := range rule.Types() {
		if !seen[rt] {
			t.Errorf("no seeded rule for type %s", rt)
		}
	}

	// Seeding again is a no-op.
	if err := f.engine.SeedDefaultRules(ctx); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	rules, _ = f.rules.List(ctx, rule.Filter{})
	if len(rules) != len(rule.Types()) {
		t.Errorf("second seed duplicated rules: %d", len(rules))
	}
}
