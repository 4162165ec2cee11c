package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/peerwatch/peerwatch/internal/api/dto"
	"github.com/peerwatch/peerwatch/internal/api/middleware"
	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
	"github.com/peerwatch/peerwatch/internal/pkg/logger"
	"github.com/peerwatch/peerwatch/internal/pkg/utils"
	"github.com/peerwatch/peerwatch/internal/pkg/validator"
)

type AlertHandler struct {
	service   alert.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewAlertHandler(service alert.Service, log *logger.Logger, val *validator.Validator) *AlertHandler {
	return &AlertHandler{service: service, logger: log, validator: val}
}

// List returns alerts with pagination and filtering
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	params := utils.ParsePagination(r)

	filter := alert.Filter{
		Status:     alert.Status(r.URL.Query().Get("status")),
		Severity:   r.URL.Query().Get("severity"),
		SourceType: alert.SourceType(r.URL.Query().Get("source_type")),
		SourceID:   r.URL.Query().Get("source_id"),
		RuleID:     r.URL.Query().Get("rule_id"),
	}
	if v := r.URL.Query().Get("start_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.EndDate = &t
		}
	}
	if v := r.URL.Query().Get("tags"); v != "" {
		filter.Tags = strings.Split(v, ",")
	}

	alerts, total, err := h.service.List(r.Context(), filter, params.PageSize, params.Offset)
	if err != nil {
		utils.WriteError(w, errors.Internal("failed to list alerts", err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(alerts, params.Page, params.PageSize, total))
}

// Get returns a single alert by ID
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, a)
}

// Acknowledge moves an open alert to acknowledged
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.AcknowledgeAlertRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.WriteError(w, errors.BadRequest("invalid request body"))
			return
		}
	}

	a, err := h.service.Acknowledge(r.Context(), id, middleware.GetUserID(r), req.Message)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, a)
}

// Resolve moves an alert to its terminal resolved state
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.ResolveAlertRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.WriteError(w, errors.BadRequest("invalid request body"))
			return
		}
	}

	a, err := h.service.Resolve(r.Context(), id, middleware.GetUserID(r), req.Reason)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, a)
}

// Suppress mutes an open alert until the given time
func (h *AlertHandler) Suppress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.SuppressAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("validation failed", errs))
		return
	}

	a, err := h.service.Suppress(r.Context(), id, req.Until, middleware.GetUserID(r), req.Reason)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, a)
}

// Delete deletes an alert
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "alert deleted", nil)
}

// Statistics returns aggregate alert counts
func (h *AlertHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		utils.WriteError(w, errors.Internal("failed to get statistics", err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, stats)
}
