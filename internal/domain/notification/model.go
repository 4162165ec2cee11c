package notification

import "time"

// Status is the delivery state of one notification
type Status string

// Delivery states. PENDING is initial, SENT is terminal success; FAILED is
// retried with backoff until retryCount exceeds maxRetries, after which it is
// terminally FAILED. RETRY marks a row the sweep is re-attempting; it resolves
// to SENT or FAILED, and a sweep interrupted mid-attempt leaves the row
// eligible for the next pass.
const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusRetry   Status = "retry"
)

// ChannelType identifies the delivery mechanism of a channel
type ChannelType string

// Notification channel types
const (
	ChannelEmail   ChannelType = "email"
	ChannelWebhook ChannelType = "webhook"
	ChannelSlack   ChannelType = "slack"
	ChannelInApp   ChannelType = "in_app"
)

// IsValid reports whether t is a known channel type
func (t ChannelType) IsValid() bool {
	switch t {
	case ChannelEmail, ChannelWebhook, ChannelSlack, ChannelInApp:
		return true
	}
	return false
}

// DefaultMaxRetries bounds delivery attempts per notification
const DefaultMaxRetries = 3

// Notification tracks one delivery of an alert to one channel. ChannelConfig
// is a snapshot captured at send time, not a live reference, so later channel
// edits do not change in-flight deliveries.
type Notification struct {
	ID            string                 `json:"id"`
	AlertID       string                 `json:"alert_id"`
	ChannelID     string                 `json:"channel_id"`
	ChannelType   ChannelType            `json:"channel_type"`
	ChannelConfig map[string]interface{} `json:"channel_config"`
	Status        Status                 `json:"status"`
	SentAt        *time.Time             `json:"sent_at,omitempty"`
	ResponseData  map[string]interface{} `json:"response_data,omitempty"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	RetryCount    int                    `json:"retry_count"`
	MaxRetries    int                    `json:"max_retries"`
	NextRetryAt   *time.Time             `json:"next_retry_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// Channel is a configured notification destination. Consumed by the
// dispatcher; managed through the configuration API.
type Channel struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description,omitempty"`
	Type          ChannelType            `json:"type"`
	Config        map[string]interface{} `json:"config"`
	IsEnabled     bool                   `json:"is_enabled"`
	SuccessCount  int64                  `json:"success_count"`
	FailureCount  int64                  `json:"failure_count"`
	LastUsedAt    *time.Time             `json:"last_used_at,omitempty"`
	LastSuccessAt *time.Time             `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time             `json:"last_failure_at,omitempty"`
	LastError     string                 `json:"last_error,omitempty"`
	CreatedByID   string                 `json:"created_by_id,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// ConfigString reads a string value from a channel config map
func ConfigString(config map[string]interface{}, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

// ConfigStrings reads a string list from a channel config map
func ConfigStrings(config map[string]interface{}, key string) []string {
	switch v := config[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
