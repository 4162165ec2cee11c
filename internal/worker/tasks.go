package worker

import (
	"context"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/notification"
	"github.com/peerwatch/peerwatch/internal/pkg/logger"
	"github.com/peerwatch/peerwatch/internal/services"
)

// Task names, used by the API to trigger runs directly
const (
	TaskEvaluate       = "evaluate_rules"
	TaskMaintenance    = "alert_maintenance"
	TaskCleanupMonthly = "cleanup_30d"
	TaskCleanupQuarter = "cleanup_90d"
	TaskStatsReport    = "stats_report"
)

// RegisterTasks wires the standard periodic jobs into the scheduler. The
// short maintenance pass keeps suppression windows and retries honest; the
// longer cleanups shed history at staggered retention depths.
func RegisterTasks(
	s *Scheduler,
	engine *services.RulesEngine,
	alerts alert.Service,
	notifier notification.Service,
	log *logger.Logger,
) {
	s.Register(Task{
		Name:     TaskEvaluate,
		Interval: time.Minute,
		Run:      engine.EvaluateAll,
	})

	s.Register(Task{
		Name:     TaskMaintenance,
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			if _, err := alerts.UnsuppressExpired(ctx); err != nil {
				log.WithError(err).Error("unsuppress pass failed")
			}
			if n, err := notifier.RetryFailed(ctx); err != nil {
				log.WithError(err).Error("notification retry pass failed")
			} else if n > 0 {
				log.Infof("retried %d failed notifications", n)
			}
			if _, err := alerts.CleanupResolved(ctx, 7*24*time.Hour); err != nil {
				log.WithError(err).Error("7 day cleanup failed")
			}
			if _, err := engine.CleanupSnapshots(ctx, 7*24*time.Hour); err != nil {
				log.WithError(err).Error("snapshot cleanup failed")
			}
			return nil
		},
	})

	s.Register(Task{
		Name:     TaskCleanupMonthly,
		Interval: 15 * time.Minute,
		Run: func(ctx context.Context) error {
			_, err := alerts.CleanupResolved(ctx, 30*24*time.Hour)
			return err
		},
	})

	s.Register(Task{
		Name:     TaskCleanupQuarter,
		Interval: 30 * time.Minute,
		Run: func(ctx context.Context) error {
			_, err := alerts.CleanupResolved(ctx, 90*24*time.Hour)
			return err
		},
	})

	s.Register(Task{
		Name:     TaskStatsReport,
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			stats, err := alerts.Statistics(ctx)
			if err != nil {
				return err
			}
			log.WithFields(map[string]interface{}{
				"total":        stats.TotalAlerts,
				"open":         stats.OpenAlerts,
				"acknowledged": stats.AcknowledgedAlerts,
				"resolved":     stats.ResolvedAlerts,
				"suppressed":   stats.SuppressedAlerts,
			}).Info("hourly alert statistics")
			return nil
		},
	})
}
