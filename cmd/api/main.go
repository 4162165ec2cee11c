package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/peerwatch/peerwatch/internal/api/handlers"
	"github.com/peerwatch/peerwatch/internal/api/router"
	"github.com/peerwatch/peerwatch/internal/config"
	"github.com/peerwatch/peerwatch/internal/evaluator"
	"github.com/peerwatch/peerwatch/internal/events"
	"github.com/peerwatch/peerwatch/internal/netbird"
	"github.com/peerwatch/peerwatch/internal/pkg/logger"
	"github.com/peerwatch/peerwatch/internal/pkg/validator"
	"github.com/peerwatch/peerwatch/internal/repository/postgres"
	"github.com/peerwatch/peerwatch/internal/services"
	"github.com/peerwatch/peerwatch/internal/worker"
	"github.com/peerwatch/peerwatch/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	db, err := postgres.New(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, migrations.GetFS()); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Repositories
	ruleRepo := postgres.NewRuleRepository(db)
	alertRepo := postgres.NewAlertRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	channelRepo := postgres.NewChannelRepository(db)
	snapshotStore := postgres.NewSnapshotStore(db)

	// Upstream peer data with in-memory state tracking
	upstream := netbird.NewClient(cfg.Upstream.APIURL, cfg.Upstream.APIToken)
	tracker := netbird.NewStateTracker(upstream)

	// Event hub
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub(log)
	go hub.Run(rootCtx)

	// Services
	mailer := &services.SMTPMailer{
		Host:     cfg.Notifier.SMTPHost,
		Port:     cfg.Notifier.SMTPPort,
		Username: cfg.Notifier.SMTPUsername,
		Password: cfg.Notifier.SMTPPassword,
		From:     cfg.Notifier.SMTPFrom,
	}
	notifier := services.NewNotificationService(notificationRepo, channelRepo, mailer, hub, log)
	notifier.SetAlertLoader(alertRepo)
	alertSvc := services.NewAlertService(alertRepo, ruleRepo, notifier, hub, log)

	registry := evaluator.NewRegistry()
	builder := evaluator.NewContextBuilder(tracker, snapshotStore)
	engine := services.NewRulesEngine(ruleRepo, alertSvc, registry, builder, snapshotStore, hub, log)

	if err := engine.SeedDefaultRules(rootCtx); err != nil {
		log.WithError(err).Warn("failed to seed default rules")
	}

	// Background scheduler
	scheduler := worker.NewScheduler(log)
	worker.RegisterTasks(scheduler, engine, alertSvc, notifier, log)
	if cfg.Scheduler.Enabled {
		if err := scheduler.Start(rootCtx); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
		defer scheduler.Stop()
	} else {
		log.Info("scheduler disabled, background tasks will not run in this process")
	}

	// HTTP API
	val := validator.New()
	h := &router.Handlers{
		Health:       handlers.NewHealthHandler(db, log),
		Rule:         handlers.NewRuleHandler(engine, log, val),
		Alert:        handlers.NewAlertHandler(alertSvc, log, val),
		Notification: handlers.NewNotificationHandler(notifier, log, val),
		Events:       handlers.NewEventsHandler(hub),
		Task:         handlers.NewTaskHandler(scheduler, log),
	}

	// No WriteTimeout: the websocket event stream holds connections open
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.New(cfg, log, h),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("API server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Fatalf("server error: %v", err)
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	log.Info("server stopped")
}
