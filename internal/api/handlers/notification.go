package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peerwatch/peerwatch/internal/api/dto"
	"github.com/peerwatch/peerwatch/internal/api/middleware"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
	"github.com/peerwatch/peerwatch/internal/pkg/logger"
	"github.com/peerwatch/peerwatch/internal/pkg/utils"
	"github.com/peerwatch/peerwatch/internal/pkg/validator"
	"github.com/peerwatch/peerwatch/internal/services"
)

type NotificationHandler struct {
	service   *services.NotificationService
	logger    *logger.Logger
	validator *validator.Validator
}

func NewNotificationHandler(service *services.NotificationService, log *logger.Logger, val *validator.Validator) *NotificationHandler {
	return &NotificationHandler{service: service, logger: log, validator: val}
}

// ListChannels returns all notification channels
func (h *NotificationHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.service.ListChannels(r.Context())
	if err != nil {
		utils.WriteError(w, errors.Internal("failed to list channels", err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, channels)
}

// GetChannel returns a single channel by ID
func (h *NotificationHandler) GetChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ch, err := h.service.GetChannel(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, ch)
}

// CreateChannel creates a new notification channel
func (h *NotificationHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("validation failed", errs))
		return
	}

	created, err := h.service.CreateChannel(r.Context(), req.ToChannel(middleware.GetUserID(r)))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, created)
}

// UpdateChannel updates an existing channel. In-flight notifications keep
// their config snapshot and are unaffected.
func (h *NotificationHandler) UpdateChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.UpdateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("validation failed", errs))
		return
	}

	existing, err := h.service.GetChannel(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	req.Apply(existing)

	updated, err := h.service.UpdateChannel(r.Context(), existing)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, updated)
}

// DeleteChannel deletes a channel
func (h *NotificationHandler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteChannel(r.Context(), id); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "channel deleted", nil)
}

// TestChannel sends a probe notification through the channel
func (h *NotificationHandler) TestChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.TestChannel(r.Context(), id); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "test notification delivered", nil)
}

// RetryFailed runs the failed-notification retry sweep immediately
func (h *NotificationHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	retried, err := h.service.RetryFailed(r.Context())
	if err != nil {
		utils.WriteError(w, errors.Internal("retry sweep failed", err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"retried": retried,
	})
}

// ListForAlert returns the delivery records for one alert
func (h *NotificationHandler) ListForAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")

	notifications, err := h.service.ListForAlert(r.Context(), alertID)
	if err != nil {
		utils.WriteError(w, errors.Internal("failed to list notifications", err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, notifications)
}
