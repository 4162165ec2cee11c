package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/peerwatch/peerwatch/internal/api/handlers"
	"github.com/peerwatch/peerwatch/internal/api/middleware"
	"github.com/peerwatch/peerwatch/internal/config"
	"github.com/peerwatch/peerwatch/internal/pkg/logger"
	"github.com/peerwatch/peerwatch/internal/pkg/metrics"
)

type Handlers struct {
	Health       *handlers.HealthHandler
	Rule         *handlers.RuleHandler
	Alert        *handlers.AlertHandler
	Notification *handlers.NotificationHandler
	Events       *handlers.EventsHandler
	Task         *handlers.TaskHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))
	r.Use(middleware.RateLimit(100, 200)) // 100 req/sec, burst of 200

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/health", h.Health.Healthz)
		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)
		r.Handle("/metrics", metrics.Handler())
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))

		// Event stream
		r.Get("/ws/events", h.Events.Serve)
		r.Get("/api/v1/events/stats", h.Events.Stats)

		// Alert rules
		r.Route("/api/v1/rules", func(r chi.Router) {
			r.Get("/", h.Rule.List)
			r.Post("/", h.Rule.Create)
			r.Post("/test", h.Rule.Test)
			r.Get("/{id}", h.Rule.Get)
			r.Put("/{id}", h.Rule.Update)
			r.Delete("/{id}", h.Rule.Delete)
			r.Post("/{id}/enable", h.Rule.Enable)
			r.Post("/{id}/disable", h.Rule.Disable)
			r.Post("/{id}/evaluate", h.Rule.Evaluate)
		})

		// Alerts
		r.Route("/api/v1/alerts", func(r chi.Router) {
			r.Get("/", h.Alert.List)
			r.Get("/statistics", h.Alert.Statistics)
			r.Get("/{id}", h.Alert.Get)
			r.Delete("/{id}", h.Alert.Delete)
			r.Post("/{id}/acknowledge", h.Alert.Acknowledge)
			r.Post("/{id}/resolve", h.Alert.Resolve)
			r.Post("/{id}/suppress", h.Alert.Suppress)
			r.Get("/{id}/notifications", h.Notification.ListForAlert)
		})

		// Notification channels
		r.Route("/api/v1/channels", func(r chi.Router) {
			r.Get("/", h.Notification.ListChannels)
			r.Post("/", h.Notification.CreateChannel)
			r.Get("/{id}", h.Notification.GetChannel)
			r.Put("/{id}", h.Notification.UpdateChannel)
			r.Delete("/{id}", h.Notification.DeleteChannel)
			r.Post("/{id}/test", h.Notification.TestChannel)
		})

		r.Route("/api/v1/notifications", func(r chi.Router) {
			r.Post("/retry", h.Notification.RetryFailed)
		})

		// Background tasks
		r.Route("/api/v1/tasks", func(r chi.Router) {
			r.Get("/", h.Task.List)
			r.Post("/{name}/run", h.Task.Run)
		})
	})

	return r
}
