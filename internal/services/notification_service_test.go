package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/notification"
	"github.com/peerwatch/peerwatch/internal/events"
	"github.com/peerwatch/peerwatch/internal/testutil"
)

func TestBackoffDelaySequence(t *testing.T) {
	want := []time.Duration{
		5 * time.Minute,
		10 * time.Minute,
		20 * time.Minute,
		40 * time.Minute,
		60 * time.Minute,
		60 * time.Minute,
	}
	for i, w := range want {
		if got := backoffDelay(i + 1); got != w {
			t.Errorf("backoffDelay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

type notifFixture struct {
	svc           *NotificationService
	notifications *testutil.NotificationRepository
	channels      *testutil.ChannelRepository
	alerts        *testutil.AlertRepository
	mailer        *testutil.FakeMailer
	pub           *testutil.CapturePublisher
}

func newNotifFixture() *notifFixture {
	f := &notifFixture{
		notifications: testutil.NewNotificationRepository(),
		channels:      testutil.NewChannelRepository(),
		alerts:        testutil.NewAlertRepository(),
		mailer:        &testutil.FakeMailer{},
		pub:           &testutil.CapturePublisher{},
	}
	f.svc = NewNotificationService(f.notifications, f.channels, f.mailer, f.pub, testLogger())
	f.svc.SetAlertLoader(f.alerts)
	return f
}

func (f *notifFixture) addEmailChannel(t *testing.T, id string, enabled bool) {
	t.Helper()
	err := f.channels.Create(context.Background(), &notification.Channel{
		ID:        id,
		Name:      "ops mail",
		Type:      notification.ChannelEmail,
		Config:    map[string]interface{}{"recipients": []string{"ops@example.com"}},
		IsEnabled: enabled,
	})
	if err != nil {
		t.Fatalf("failed to seed channel: %v", err)
	}
}

func (f *notifFixture) addAlert(t *testing.T, id string) *alert.Alert {
	t.Helper()
	a := &alert.Alert{
		ID:          id,
		Title:       "Peer peer-a is offline",
		Description: "offline for 10 minutes",
		Severity:    "high",
		Status:      alert.StatusOpen,
		SourceType:  alert.SourcePeer,
		SourceID:    "peer-a",
		TriggeredAt: time.Now(),
	}
	if err := f.alerts.Create(context.Background(), a); err != nil {
		t.Fatalf("failed to seed alert: %v", err)
	}
	return a
}

func TestDispatchSendsThroughEnabledChannels(t *testing.T) {
	f := newNotifFixture()
	ctx := context.Background()
	f.addEmailChannel(t, "ch-1", true)
	f.addEmailChannel(t, "ch-2", false)
	a := f.addAlert(t, "alert-1")

	if err := f.svc.DispatchForAlert(ctx, a, []string{"ch-1", "ch-2"}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if f.mailer.SentCount() != 1 {
		t.Fatalf("sent %d mails, want 1 (disabled channel must be skipped)", f.mailer.SentCount())
	}
	if got := f.mailer.Sent[0].Subject; got != "[HIGH] Peer peer-a is offline" {
		t.Errorf("subject = %q", got)
	}

	list, _ := f.notifications.ListByAlert(ctx, "alert-1")
	if len(list) != 1 {
		t.Fatalf("got %d notification records, want 1", len(list))
	}
	n := list[0]
	if n.Status != notification.StatusSent {
		t.Errorf("status = %s, want sent", n.Status)
	}
	if n.SentAt == nil {
		t.Error("sentAt not set")
	}
	if n.ResponseData == nil {
		t.Error("response snapshot not recorded on success")
	} else {
		if n.ResponseData["channel"] != "email" {
			t.Errorf("response channel = %v, want email", n.ResponseData["channel"])
		}
		if n.ResponseData["sent_at"] == "" || n.ResponseData["sent_at"] == nil {
			t.Error("response snapshot missing sent_at")
		}
	}
	if n.RetryCount != 0 {
		t.Errorf("retryCount = %d, want 0", n.RetryCount)
	}

	ch, _ := f.channels.GetByID(ctx, "ch-1")
	if ch.SuccessCount != 1 {
		t.Errorf("channel success count = %d, want 1", ch.SuccessCount)
	}
}

func TestDispatchFailureSchedulesRetry(t *testing.T) {
	f := newNotifFixture()
	ctx := context.Background()
	f.mailer.FailWith = fmt.Errorf("smtp unreachable")
	f.addEmailChannel(t, "ch-1", true)
	a := f.addAlert(t, "alert-1")

	if err := f.svc.DispatchForAlert(ctx, a, []string{"ch-1"}); err != nil {
		t.Fatalf("dispatch returned error: %v", err)
	}

	list, _ := f.notifications.ListByAlert(ctx, "alert-1")
	if len(list) != 1 {
		t.Fatalf("got %d notification records, want 1", len(list))
	}
	n := list[0]
	if n.Status != notification.StatusFailed {
		t.Errorf("status = %s, want failed", n.Status)
	}
	if n.RetryCount != 1 {
		t.Errorf("retryCount = %d, want 1", n.RetryCount)
	}
	if n.NextRetryAt == nil {
		t.Fatal("nextRetryAt not scheduled")
	}
	wantNext := time.Now().Add(5 * time.Minute)
	if diff := n.NextRetryAt.Sub(wantNext); diff < -time.Second || diff > time.Second {
		t.Errorf("nextRetryAt %v not ~5m out", n.NextRetryAt)
	}
	if n.ErrorMessage == "" {
		t.Error("error message not recorded")
	}

	ch, _ := f.channels.GetByID(ctx, "ch-1")
	if ch.FailureCount != 1 {
		t.Errorf("channel failure count = %d, want 1", ch.FailureCount)
	}
}

func TestRetryFailedRecovers(t *testing.T) {
	f := newNotifFixture()
	ctx := context.Background()
	f.mailer.FailWith = fmt.Errorf("smtp unreachable")
	f.addEmailChannel(t, "ch-1", true)
	a := f.addAlert(t, "alert-1")
	f.svc.DispatchForAlert(ctx, a, []string{"ch-1"})

	// Backoff elapsed, transport recovered.
	f.svc.now = func() time.Time { return time.Now().Add(6 * time.Minute) }
	f.mailer.FailWith = nil

	retried, err := f.svc.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("retry sweep failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("retried %d, want 1", retried)
	}

	list, _ := f.notifications.ListByAlert(ctx, "alert-1")
	if list[0].Status != notification.StatusSent {
		t.Errorf("status = %s, want sent after successful retry", list[0].Status)
	}
	if list[0].ErrorMessage != "" {
		t.Error("error message not cleared on success")
	}
}

func TestRetrySweepResumesInterruptedRows(t *testing.T) {
	f := newNotifFixture()
	ctx := context.Background()
	f.addEmailChannel(t, "ch-1", true)
	f.addAlert(t, "alert-1")

	// A row left in retry by an interrupted sweep stays eligible.
	next := time.Now().Add(-time.Minute)
	n := &notification.Notification{
		ID:            "n-1",
		AlertID:       "alert-1",
		ChannelID:     "ch-1",
		ChannelType:   notification.ChannelEmail,
		ChannelConfig: map[string]interface{}{"recipients": []string{"ops@example.com"}},
		Status:        notification.StatusRetry,
		RetryCount:    1,
		MaxRetries:    3,
		NextRetryAt:   &next,
		CreatedAt:     time.Now().Add(-time.Hour),
	}
	if err := f.notifications.Create(ctx, n); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	retried, err := f.svc.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("retry sweep failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("retried %d, want 1", retried)
	}

	stored, _ := f.notifications.GetByID(ctx, "n-1")
	if stored.Status != notification.StatusSent {
		t.Errorf("status = %s, want sent", stored.Status)
	}
}

func TestInAppDeliveryTargetsConfiguredUser(t *testing.T) {
	f := newNotifFixture()
	ctx := context.Background()
	if err := f.channels.Create(ctx, &notification.Channel{
		ID:        "ch-app",
		Name:      "operator inbox",
		Type:      notification.ChannelInApp,
		Config:    map[string]interface{}{"user_id": "user-7"},
		IsEnabled: true,
	}); err != nil {
		t.Fatalf("failed to seed channel: %v", err)
	}
	a := f.addAlert(t, "alert-1")

	if err := f.svc.DispatchForAlert(ctx, a, []string{"ch-app"}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	var got *testutil.CapturedEvent
	for i, e := range f.pub.Events {
		if e.Event == events.EventInAppNotification {
			got = &f.pub.Events[i]
		}
	}
	if got == nil {
		t.Fatal("no in-app notification published")
	}
	if got.UserID != "user-7" {
		t.Errorf("addressed to %q, want user-7", got.UserID)
	}
	payload, ok := got.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("payload type %T", got.Data)
	}
	if payload["user_id"] != "user-7" {
		t.Errorf("payload user_id = %v, want user-7", payload["user_id"])
	}
	if payload["level"] != "error" {
		t.Errorf("payload level = %v, want error for high severity", payload["level"])
	}
}

func TestRetryFailedRespectsBackoff(t *testing.T) {
	f := newNotifFixture()
	ctx := context.Background()
	f.mailer.FailWith = fmt.Errorf("smtp unreachable")
	f.addEmailChannel(t, "ch-1", true)
	a := f.addAlert(t, "alert-1")
	f.svc.DispatchForAlert(ctx, a, []string{"ch-1"})

	// Backoff has not elapsed yet.
	retried, err := f.svc.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("retry sweep failed: %v", err)
	}
	if retried != 0 {
		t.Fatalf("retried %d notifications before backoff elapsed", retried)
	}
}

func TestRetryExhaustionIsTerminal(t *testing.T) {
	f := newNotifFixture()
	ctx := context.Background()
	f.addEmailChannel(t, "ch-1", true)
	f.addAlert(t, "alert-1")

	next := time.Now().Add(-time.Minute)
	n := &notification.Notification{
		ID:          "n-1",
		AlertID:     "alert-1",
		ChannelID:   "ch-1",
		ChannelType: notification.ChannelEmail,
		Status:      notification.StatusFailed,
		RetryCount:  3,
		MaxRetries:  3,
		NextRetryAt: &next,
		CreatedAt:   time.Now().Add(-time.Hour),
	}
	if err := f.notifications.Create(ctx, n); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	retried, err := f.svc.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("retry sweep failed: %v", err)
	}
	if retried != 0 {
		t.Fatalf("retried %d, want 0 for exhausted notification", retried)
	}

	stored, _ := f.notifications.GetByID(ctx, "n-1")
	if stored.Status != notification.StatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}
	if stored.ErrorMessage != "max retries exceeded" {
		t.Errorf("error = %q, want max retries exceeded", stored.ErrorMessage)
	}
	if stored.NextRetryAt != nil {
		t.Error("terminal notification still scheduled for retry")
	}
	if f.mailer.SentCount() != 0 {
		t.Error("exhausted notification was delivered")
	}
}

func TestChannelConfigSnapshotIsolation(t *testing.T) {
	f := newNotifFixture()
	ctx := context.Background()
	f.addEmailChannel(t, "ch-1", true)
	a := f.addAlert(t, "alert-1")
	f.svc.DispatchForAlert(ctx, a, []string{"ch-1"})

	// Edit the channel after dispatch; the stored notification keeps the
	// config it was sent with.
	ch, _ := f.channels.GetByID(ctx, "ch-1")
	ch.Config = map[string]interface{}{"recipients": []string{"new@example.com"}}
	f.channels.Update(ctx, ch)

	list, _ := f.notifications.ListByAlert(ctx, "alert-1")
	got := notification.ConfigStrings(list[0].ChannelConfig, "recipients")
	if len(got) != 1 || got[0] != "ops@example.com" {
		t.Errorf("notification config changed with channel edit: %v", got)
	}
}

func TestChannelCRUDValidation(t *testing.T) {
	f := newNotifFixture()
	ctx := context.Background()

	if _, err := f.svc.CreateChannel(ctx, &notification.Channel{
		Name: "bad", Type: "pager",
	}); err == nil {
		t.Error("unknown channel type accepted")
	}

	if _, err := f.svc.CreateChannel(ctx, &notification.Channel{
		Name: "no url", Type: notification.ChannelWebhook,
	}); err == nil {
		t.Error("webhook without url accepted")
	}

	ch, err := f.svc.CreateChannel(ctx, &notification.Channel{
		Name:   "ops hook",
		Type:   notification.ChannelWebhook,
		Config: map[string]interface{}{"url": "https://example.com/hook"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if ch.ID == "" {
		t.Error("expected generated ID")
	}

	if err := f.svc.DeleteChannel(ctx, ch.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := f.svc.DeleteChannel(ctx, ch.ID); err == nil {
		t.Error("double delete should fail")
	}
}
