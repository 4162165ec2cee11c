package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peerwatch/peerwatch/internal/api/dto"
	"github.com/peerwatch/peerwatch/internal/api/middleware"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
	"github.com/peerwatch/peerwatch/internal/pkg/logger"
	"github.com/peerwatch/peerwatch/internal/pkg/utils"
	"github.com/peerwatch/peerwatch/internal/pkg/validator"
	"github.com/peerwatch/peerwatch/internal/services"
)

type RuleHandler struct {
	engine    *services.RulesEngine
	logger    *logger.Logger
	validator *validator.Validator
}

func NewRuleHandler(engine *services.RulesEngine, log *logger.Logger, val *validator.Validator) *RuleHandler {
	return &RuleHandler{engine: engine, logger: log, validator: val}
}

// List returns all rules with optional filtering
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := rule.Filter{
		RuleType: rule.Type(r.URL.Query().Get("rule_type")),
		Severity: r.URL.Query().Get("severity"),
	}
	if v := r.URL.Query().Get("enabled"); v != "" {
		enabled := v == "true"
		filter.Enabled = &enabled
	}

	rules, err := h.engine.ListRules(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, errors.Internal("failed to list rules", err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, rules)
}

// Get returns a single rule by ID
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rl, err := h.engine.GetRule(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, rl)
}

// Create creates a new alert rule
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("validation failed", errs))
		return
	}

	created, err := h.engine.CreateRule(r.Context(), req.ToRule(middleware.GetUserID(r)))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, created)
}

// Update updates an existing rule. The rule type cannot change.
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("validation failed", errs))
		return
	}

	existing, err := h.engine.GetRule(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	req.Apply(existing)

	updated, err := h.engine.UpdateRule(r.Context(), existing)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, updated)
}

// Delete deletes a rule and auto-resolves its open alerts
func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.engine.DeleteRule(r.Context(), id); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "rule deleted", nil)
}

// Enable enables a rule
func (h *RuleHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// Disable disables a rule
func (h *RuleHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *RuleHandler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "id")

	if err := h.engine.SetRuleEnabled(r.Context(), id, enabled); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	msg := "rule disabled"
	if enabled {
		msg = "rule enabled"
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, msg, nil)
}

// Evaluate runs one rule immediately, persisting any alerts it triggers
func (h *RuleHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	created, err := h.engine.EvaluateRule(r.Context(), id, nil)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"alerts_created": created,
	})
}

// Test evaluates a rule definition against the live network without
// persisting anything
func (h *RuleHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req dto.TestRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("validation failed", errs))
		return
	}

	severity := req.Severity
	if severity == "" {
		severity = rule.SeverityMedium
	}

	alerts, err := h.engine.TestRule(r.Context(), &rule.Rule{
		Name:       "test",
		RuleType:   rule.Type(req.RuleType),
		Severity:   severity,
		Conditions: req.Conditions,
	})
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"triggered":   len(alerts) > 0,
		"alert_count": len(alerts),
		"alerts":      alerts,
	})
}
