package client

import (
	"context"
	"fmt"
	"net/url"
)

// RuleService handles alert rule API calls
type RuleService struct {
	client *Client
}

// CreateRuleRequest represents a request to create an alert rule
type CreateRuleRequest struct {
	Name                 string                 `json:"name"`
	Description          string                 `json:"description,omitempty"`
	RuleType             string                 `json:"rule_type"`
	Severity             string                 `json:"severity,omitempty"`
	Conditions           map[string]interface{} `json:"conditions,omitempty"`
	IsEnabled            *bool                  `json:"is_enabled,omitempty"`
	NotificationChannels []string               `json:"notification_channels,omitempty"`
}

// UpdateRuleRequest represents a request to update an alert rule
type UpdateRuleRequest struct {
	Name                 *string                `json:"name,omitempty"`
	Description          *string                `json:"description,omitempty"`
	Severity             *string                `json:"severity,omitempty"`
	Conditions           map[string]interface{} `json:"conditions,omitempty"`
	IsEnabled            *bool                  `json:"is_enabled,omitempty"`
	NotificationChannels []string               `json:"notification_channels,omitempty"`
}

// TestRuleRequest represents a dry-run evaluation request
type TestRuleRequest struct {
	RuleType   string                 `json:"rule_type"`
	Severity   string                 `json:"severity,omitempty"`
	Conditions map[string]interface{} `json:"conditions,omitempty"`
}

// TestRuleResult is the outcome of a dry-run evaluation
type TestRuleResult struct {
	Triggered  bool    `json:"triggered"`
	AlertCount int     `json:"alert_count"`
	Alerts     []Alert `json:"alerts"`
}

// RuleListOptions contains options for listing rules
type RuleListOptions struct {
	RuleType string
	Severity string
	Enabled  *bool
}

// List retrieves all rules
func (s *RuleService) List(ctx context.Context, opts *RuleListOptions) ([]Rule, error) {
	query := url.Values{}
	if opts != nil {
		if opts.RuleType != "" {
			query.Set("rule_type", opts.RuleType)
		}
		if opts.Severity != "" {
			query.Set("severity", opts.Severity)
		}
		if opts.Enabled != nil {
			query.Set("enabled", fmt.Sprintf("%t", *opts.Enabled))
		}
	}

	path := "/api/v1/rules"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var rules []Rule
	if err := s.client.doRequest(ctx, "GET", path, nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// Get retrieves a single rule by ID
func (s *RuleService) Get(ctx context.Context, id string) (*Rule, error) {
	var rule Rule
	if err := s.client.doRequest(ctx, "GET", "/api/v1/rules/"+id, nil, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create creates a new rule
func (s *RuleService) Create(ctx context.Context, req CreateRuleRequest) (*Rule, error) {
	var rule Rule
	if err := s.client.doRequest(ctx, "POST", "/api/v1/rules", req, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Update updates an existing rule
func (s *RuleService) Update(ctx context.Context, id string, req UpdateRuleRequest) (*Rule, error) {
	var rule Rule
	if err := s.client.doRequest(ctx, "PUT", "/api/v1/rules/"+id, req, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Delete deletes a rule
func (s *RuleService) Delete(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, "DELETE", "/api/v1/rules/"+id, nil, nil)
}

// Enable enables a rule
func (s *RuleService) Enable(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, "POST", "/api/v1/rules/"+id+"/enable", nil, nil)
}

// Disable disables a rule
func (s *RuleService) Disable(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, "POST", "/api/v1/rules/"+id+"/disable", nil, nil)
}

// Evaluate runs a rule immediately, persisting any alerts it triggers.
// Returns the number of alerts created.
func (s *RuleService) Evaluate(ctx context.Context, id string) (int, error) {
	var result struct {
		AlertsCreated int `json:"alerts_created"`
	}
	if err := s.client.doRequest(ctx, "POST", "/api/v1/rules/"+id+"/evaluate", nil, &result); err != nil {
		return 0, err
	}
	return result.AlertsCreated, nil
}

// Test runs a dry-run evaluation of a rule definition
func (s *RuleService) Test(ctx context.Context, req TestRuleRequest) (*TestRuleResult, error) {
	var result TestRuleResult
	if err := s.client.doRequest(ctx, "POST", "/api/v1/rules/test", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
