package alert

import "time"

// Status is the alert lifecycle state
type Status string

// Alert lifecycle states. OPEN is the initial state; RESOLVED is terminal.
const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusSuppressed   Status = "suppressed"
)

// IsTerminal reports whether no further transitions are legal from s
func (s Status) IsTerminal() bool {
	return s == StatusResolved
}

// SourceType identifies what triggered an alert
type SourceType string

// Alert source types
const (
	SourcePeer    SourceType = "peer"
	SourceGroup   SourceType = "group"
	SourceNetwork SourceType = "network"
	SourceSystem  SourceType = "system"
)

// Alert is a persisted record of a triggered rule condition. Its lifecycle is
// independent of the rule that caused it and of any notifications sent for it.
type Alert struct {
	ID               string                 `json:"id"`
	RuleID           string                 `json:"rule_id"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description"`
	Severity         string                 `json:"severity"`
	Status           Status                 `json:"status"`
	SourceType       SourceType             `json:"source_type"`
	SourceID         string                 `json:"source_id"`
	SourceData       map[string]interface{} `json:"source_data,omitempty"`
	TriggeredAt      time.Time              `json:"triggered_at"`
	AcknowledgedAt   *time.Time             `json:"acknowledged_at,omitempty"`
	AcknowledgedByID string                 `json:"acknowledged_by_id,omitempty"`
	ResolvedAt       *time.Time             `json:"resolved_at,omitempty"`
	ResolvedByID     string                 `json:"resolved_by_id,omitempty"`
	SuppressedUntil  *time.Time             `json:"suppressed_until,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// Filter contains alert listing options
type Filter struct {
	Status     Status
	Severity   string
	SourceType SourceType
	SourceID   string
	RuleID     string
	StartDate  *time.Time
	EndDate    *time.Time
	Tags       []string
}

// Statistics aggregates alert counts for reporting
type Statistics struct {
	TotalAlerts        int64            `json:"total_alerts"`
	OpenAlerts         int64            `json:"open_alerts"`
	AcknowledgedAlerts int64            `json:"acknowledged_alerts"`
	ResolvedAlerts     int64            `json:"resolved_alerts"`
	SuppressedAlerts   int64            `json:"suppressed_alerts"`
	AlertsBySeverity   map[string]int64 `json:"alerts_by_severity"`
	AlertsByRuleType   map[string]int64 `json:"alerts_by_rule_type"`
}
