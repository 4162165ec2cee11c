package dto

import (
	"github.com/peerwatch/peerwatch/internal/domain/rule"
)

// CreateRuleRequest is the payload for creating an alert rule
type CreateRuleRequest struct {
	Name                 string                 `json:"name" validate:"required,min=1,max=200"`
	Description          string                 `json:"description,omitempty" validate:"max=1000"`
	RuleType             string                 `json:"rule_type" validate:"required,oneof=peer_offline peer_flapping group_health new_peer peer_inactivity network_change"`
	Severity             string                 `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Conditions           map[string]interface{} `json:"conditions,omitempty"`
	IsEnabled            *bool                  `json:"is_enabled,omitempty"`
	NotificationChannels []string               `json:"notification_channels,omitempty" validate:"dive,uuid"`
}

// ToRule converts the request to a domain rule
func (r *CreateRuleRequest) ToRule(createdByID string) *rule.Rule {
	enabled := true
	if r.IsEnabled != nil {
		enabled = *r.IsEnabled
	}
	return &rule.Rule{
		Name:                 r.Name,
		Description:          r.Description,
		RuleType:             rule.Type(r.RuleType),
		Severity:             r.Severity,
		Conditions:           r.Conditions,
		IsEnabled:            enabled,
		NotificationChannels: r.NotificationChannels,
		CreatedByID:          createdByID,
	}
}

// UpdateRuleRequest is the payload for updating an alert rule. RuleType is
// immutable after creation and is intentionally absent.
type UpdateRuleRequest struct {
	Name                 *string                `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description          *string                `json:"description,omitempty" validate:"omitempty,max=1000"`
	Severity             *string                `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Conditions           map[string]interface{} `json:"conditions,omitempty"`
	IsEnabled            *bool                  `json:"is_enabled,omitempty"`
	NotificationChannels []string               `json:"notification_channels,omitempty" validate:"dive,uuid"`
}

// Apply overlays the request's set fields onto an existing rule
func (r *UpdateRuleRequest) Apply(existing *rule.Rule) {
	if r.Name != nil {
		existing.Name = *r.Name
	}
	if r.Description != nil {
		existing.Description = *r.Description
	}
	if r.Severity != nil {
		existing.Severity = *r.Severity
	}
	if r.Conditions != nil {
		existing.Conditions = r.Conditions
	}
	if r.IsEnabled != nil {
		existing.IsEnabled = *r.IsEnabled
	}
	if r.NotificationChannels != nil {
		existing.NotificationChannels = r.NotificationChannels
	}
}

// TestRuleRequest is the payload for a dry-run rule evaluation
type TestRuleRequest struct {
	RuleType   string                 `json:"rule_type" validate:"required,oneof=peer_offline peer_flapping group_health new_peer peer_inactivity network_change"`
	Severity   string                 `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Conditions map[string]interface{} `json:"conditions,omitempty"`
}
