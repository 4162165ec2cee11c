package client

import "time"

// Rule is an alert rule as returned by the API
type Rule struct {
	ID                   string                 `json:"id"`
	Name                 string                 `json:"name"`
	Description          string                 `json:"description,omitempty"`
	RuleType             string                 `json:"rule_type"`
	Severity             string                 `json:"severity"`
	Conditions           map[string]interface{} `json:"conditions"`
	IsEnabled            bool                   `json:"is_enabled"`
	NotificationChannels []string               `json:"notification_channels"`
	EvaluationCount      int64                  `json:"evaluation_count"`
	TriggerCount         int64                  `json:"trigger_count"`
	LastEvaluatedAt      *time.Time             `json:"last_evaluated_at,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// Alert is a triggered alert as returned by the API
type Alert struct {
	ID              string                 `json:"id"`
	RuleID          string                 `json:"rule_id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Severity        string                 `json:"severity"`
	Status          string                 `json:"status"`
	SourceType      string                 `json:"source_type"`
	SourceID        string                 `json:"source_id"`
	SourceData      map[string]interface{} `json:"source_data,omitempty"`
	TriggeredAt     time.Time              `json:"triggered_at"`
	AcknowledgedAt  *time.Time             `json:"acknowledged_at,omitempty"`
	ResolvedAt      *time.Time             `json:"resolved_at,omitempty"`
	SuppressedUntil *time.Time             `json:"suppressed_until,omitempty"`
	Tags            []string               `json:"tags,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// AlertStatistics aggregates alert counts
type AlertStatistics struct {
	TotalAlerts        int64            `json:"total_alerts"`
	OpenAlerts         int64            `json:"open_alerts"`
	AcknowledgedAlerts int64            `json:"acknowledged_alerts"`
	ResolvedAlerts     int64            `json:"resolved_alerts"`
	SuppressedAlerts   int64            `json:"suppressed_alerts"`
	AlertsBySeverity   map[string]int64 `json:"alerts_by_severity"`
	AlertsByRuleType   map[string]int64 `json:"alerts_by_rule_type"`
}

// Channel is a notification channel as returned by the API
type Channel struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	Type         string                 `json:"type"`
	Config       map[string]interface{} `json:"config"`
	IsEnabled    bool                   `json:"is_enabled"`
	SuccessCount int64                  `json:"success_count"`
	FailureCount int64                  `json:"failure_count"`
	LastUsedAt   *time.Time             `json:"last_used_at,omitempty"`
	LastError    string                 `json:"last_error,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Notification is one delivery record for an alert
type Notification struct {
	ID           string     `json:"id"`
	AlertID      string     `json:"alert_id"`
	ChannelID    string     `json:"channel_id"`
	ChannelType  string     `json:"channel_type"`
	Status       string     `json:"status"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	RetryCount   int        `json:"retry_count"`
	MaxRetries   int        `json:"max_retries"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Paginated wraps a page of results
type Paginated[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ListOptions contains common pagination options
type ListOptions struct {
	Page     int
	PageSize int
}
