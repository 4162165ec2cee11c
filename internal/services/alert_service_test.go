package services

import (
	"context"
	"testing"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/events"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
	"github.com/peerwatch/peerwatch/internal/pkg/logger"
	"github.com/peerwatch/peerwatch/internal/testutil"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "fatal"})
}

func newAlertFixture() (*AlertService, *testutil.AlertRepository, *testutil.CapturePublisher) {
	alerts := testutil.NewAlertRepository()
	rules := testutil.NewRuleRepository()
	pub := &testutil.CapturePublisher{}
	svc := NewAlertService(alerts, rules, nil, pub, testLogger())
	return svc, alerts, pub
}

func openAlert() *alert.Alert {
	return &alert.Alert{
		Title:       "Peer peer-a is offline",
		Description: "Peer peer-a has been offline for 10 minutes",
		Severity:    "high",
		SourceType:  alert.SourcePeer,
		SourceID:    "peer-a",
	}
}

func TestAlertCreateStartsOpen(t *testing.T) {
	svc, repo, pub := newAlertFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, openAlert())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated ID")
	}
	if created.Status != alert.StatusOpen {
		t.Errorf("status = %s, want open", created.Status)
	}

	stored, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("stored alert not found: %v", err)
	}
	if stored.Title != created.Title {
		t.Errorf("stored title %q, want %q", stored.Title, created.Title)
	}
	if pub.Count(events.EventNewAlert) != 1 {
		t.Errorf("new_alert events = %d, want 1", pub.Count(events.EventNewAlert))
	}
}

func TestAlertLifecycleOpenAckResolve(t *testing.T) {
	svc, _, pub := newAlertFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, openAlert())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	acked, err := svc.Acknowledge(ctx, created.ID, "user-1", "looking into it")
	if err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if acked.Status != alert.StatusAcknowledged {
		t.Errorf("status = %s, want acknowledged", acked.Status)
	}
	if acked.AcknowledgedAt == nil || acked.AcknowledgedByID != "user-1" {
		t.Error("acknowledgement bookkeeping not recorded")
	}

	resolved, err := svc.Resolve(ctx, created.ID, "user-1", "fixed")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Status != alert.StatusResolved {
		t.Errorf("status = %s, want resolved", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Error("resolvedAt not set")
	}

	if pub.Count(events.EventAlertAcknowledged) != 1 || pub.Count(events.EventAlertResolved) != 1 {
		t.Error("lifecycle events not published")
	}
}

func TestAlertDirectResolveFromOpen(t *testing.T) {
	svc, _, _ := newAlertFixture()
	ctx := context.Background()

	created, _ := svc.Create(ctx, openAlert())
	resolved, err := svc.Resolve(ctx, created.ID, "", "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Status != alert.StatusResolved {
		t.Errorf("status = %s, want resolved", resolved.Status)
	}
}

func TestAlertIllegalTransitionsRejected(t *testing.T) {
	svc, repo, _ := newAlertFixture()
	ctx := context.Background()

	created, _ := svc.Create(ctx, openAlert())
	if _, err := svc.Resolve(ctx, created.ID, "", ""); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	tests := []struct {
		name string
		call func() error
	}{
		{"acknowledge resolved", func() error {
			_, err := svc.Acknowledge(ctx, created.ID, "u", "")
			return err
		}},
		{"resolve resolved", func() error {
			_, err := svc.Resolve(ctx, created.ID, "u", "")
			return err
		}},
		{"suppress resolved", func() error {
			_, err := svc.Suppress(ctx, created.ID, time.Now().Add(time.Hour), "u", "")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.IsStateConflict(err) {
				t.Fatalf("expected state conflict, got %v", err)
			}
		})
	}

	// The rejected transitions must leave the record untouched.
	stored, _ := repo.GetByID(ctx, created.ID)
	if stored.Status != alert.StatusResolved {
		t.Errorf("status changed to %s after rejected transitions", stored.Status)
	}
}

func TestAlertSuppressAndUnsuppress(t *testing.T) {
	svc, repo, _ := newAlertFixture()
	ctx := context.Background()

	created, _ := svc.Create(ctx, openAlert())
	until := time.Now().Add(50 * time.Millisecond)
	suppressed, err := svc.Suppress(ctx, created.ID, until, "user-1", "maintenance")
	if err != nil {
		t.Fatalf("suppress failed: %v", err)
	}
	if suppressed.Status != alert.StatusSuppressed {
		t.Errorf("status = %s, want suppressed", suppressed.Status)
	}
	if suppressed.SuppressedUntil == nil {
		t.Fatal("suppressedUntil not set")
	}

	time.Sleep(60 * time.Millisecond)
	n, err := svc.UnsuppressExpired(ctx)
	if err != nil {
		t.Fatalf("unsuppress failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("unsuppressed %d alerts, want 1", n)
	}

	stored, _ := repo.GetByID(ctx, created.ID)
	if stored.Status != alert.StatusOpen {
		t.Errorf("status = %s, want open after expiry", stored.Status)
	}
	if stored.SuppressedUntil != nil {
		t.Error("suppressedUntil not cleared")
	}
}

func TestAlertSuppressRequiresFutureTime(t *testing.T) {
	svc, _, _ := newAlertFixture()
	ctx := context.Background()

	created, _ := svc.Create(ctx, openAlert())
	if _, err := svc.Suppress(ctx, created.ID, time.Now().Add(-time.Minute), "u", ""); err == nil {
		t.Fatal("expected error for past suppression time")
	}
}

func TestAlertAutoResolveForSource(t *testing.T) {
	svc, repo, _ := newAlertFixture()
	ctx := context.Background()

	first, _ := svc.Create(ctx, openAlert())
	second, _ := svc.Create(ctx, openAlert())
	other := openAlert()
	other.SourceID = "peer-b"
	third, _ := svc.Create(ctx, other)

	n, err := svc.AutoResolveForSource(ctx, alert.SourcePeer, "peer-a")
	if err != nil {
		t.Fatalf("auto-resolve failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("resolved %d alerts, want 2", n)
	}

	for _, id := range []string{first.ID, second.ID} {
		a, _ := repo.GetByID(ctx, id)
		if a.Status != alert.StatusResolved {
			t.Errorf("alert %s status = %s, want resolved", id, a.Status)
		}
	}
	a, _ := repo.GetByID(ctx, third.ID)
	if a.Status != alert.StatusOpen {
		t.Errorf("unrelated alert was resolved")
	}
}

func TestAlertCleanupResolved(t *testing.T) {
	svc, repo, _ := newAlertFixture()
	ctx := context.Background()

	old := openAlert()
	old.ID = "old"
	repo.Create(ctx, old)
	stale, _ := repo.GetByID(ctx, "old")
	stale.Status = alert.StatusResolved
	stale.UpdatedAt = time.Now().Add(-8 * 24 * time.Hour)
	repo.Update(ctx, stale)

	fresh, _ := svc.Create(ctx, openAlert())
	svc.Resolve(ctx, fresh.ID, "", "")

	n, err := svc.CleanupResolved(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d alerts, want 1", n)
	}
	if _, err := repo.GetByID(ctx, "old"); !errors.IsNotFound(err) {
		t.Error("stale resolved alert still present")
	}
	if _, err := repo.GetByID(ctx, fresh.ID); err != nil {
		t.Error("recently resolved alert was deleted")
	}
}
