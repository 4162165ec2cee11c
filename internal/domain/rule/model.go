package rule

import "time"

// Type identifies the evaluator that owns a rule's condition semantics
type Type string

// Rule types
const (
	TypePeerOffline    Type = "peer_offline"
	TypePeerFlapping   Type = "peer_flapping"
	TypeGroupHealth    Type = "group_health"
	TypeNewPeer        Type = "new_peer"
	TypePeerInactivity Type = "peer_inactivity"
	TypeNetworkChange  Type = "network_change"
)

// Types lists every known rule type in registration order
func Types() []Type {
	return []Type{
		TypePeerOffline,
		TypePeerFlapping,
		TypeGroupHealth,
		TypeNewPeer,
		TypePeerInactivity,
		TypeNetworkChange,
	}
}

// IsValid reports whether t is a known rule type
func (t Type) IsValid() bool {
	switch t {
	case TypePeerOffline, TypePeerFlapping, TypeGroupHealth,
		TypeNewPeer, TypePeerInactivity, TypeNetworkChange:
		return true
	}
	return false
}

// Alert severity levels, ordered low to critical
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// ValidSeverity reports whether s is a known severity level
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Rule is a configured condition that produces alerts when it evaluates true.
// Conditions is a free-form map whose keys are owned by the matching
// evaluator (thresholdMinutes, minOnlineRate, ...).
type Rule struct {
	ID                   string                 `json:"id"`
	Name                 string                 `json:"name"`
	Description          string                 `json:"description,omitempty"`
	RuleType             Type                   `json:"rule_type"`
	Severity             string                 `json:"severity"`
	Conditions           map[string]interface{} `json:"conditions"`
	IsEnabled            bool                   `json:"is_enabled"`
	NotificationChannels []string               `json:"notification_channels"`
	CreatedByID          string                 `json:"created_by_id,omitempty"`
	EvaluationCount      int64                  `json:"evaluation_count"`
	TriggerCount         int64                  `json:"trigger_count"`
	LastEvaluatedAt      *time.Time             `json:"last_evaluated_at,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// ConditionFloat reads a numeric condition value, falling back to def when the
// key is absent or not a number. JSON decoding yields float64 for all numbers.
func (r *Rule) ConditionFloat(key string, def float64) float64 {
	v, ok := r.Conditions[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// ConditionInt reads an integer condition value with a default
func (r *Rule) ConditionInt(key string, def int) int {
	return int(r.ConditionFloat(key, float64(def)))
}

// Filter contains rule listing options
type Filter struct {
	RuleType Type
	Severity string
	Enabled  *bool
}
