package evaluator

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/netmap"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
)

// formatDuration renders a duration in the largest whole unit, days first
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d >= 24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	case d >= time.Hour:
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	default:
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
}

// percentChange returns the relative change from previous to current as a
// fraction. A zero baseline counts as total change when current is non-zero.
func percentChange(previous, current float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 1
		}
		return 0
	}
	return (current - previous) / previous
}

// countStateChanges counts connectivity transitions within the window ending
// at now. Consecutive entries with the same status collapse to one, so
// repeated reports of an unchanged state are not transitions.
func countStateChanges(history []netmap.StateChange, windowStart time.Time) int {
	var collapsed []netmap.PeerStatus
	for _, entry := range history {
		if entry.Timestamp.Before(windowStart) {
			continue
		}
		if len(collapsed) > 0 && collapsed[len(collapsed)-1] == entry.Status {
			continue
		}
		collapsed = append(collapsed, entry.Status)
	}
	if len(collapsed) < 2 {
		return 0
	}
	return len(collapsed) - 1
}

// buildTags assembles the searchable tag set for an alert
func buildTags(r *rule.Rule, accountID, country string) []string {
	tags := []string{string(r.RuleType), r.Severity}
	if accountID != "" {
		tags = append(tags, "account:"+accountID)
	}
	if country != "" {
		tags = append(tags, "country:"+country)
	}
	return tags
}

// newAlert constructs an open alert for a triggered rule. Severity is copied
// from the rule; evaluators never override it.
func newAlert(r *rule.Rule, ec *Context, title, description string, sourceType alert.SourceType, sourceID string, sourceData map[string]interface{}, tags []string) *alert.Alert {
	return &alert.Alert{
		ID:          uuid.NewString(),
		RuleID:      r.ID,
		Title:       title,
		Description: description,
		Severity:    r.Severity,
		Status:      alert.StatusOpen,
		SourceType:  sourceType,
		SourceID:    sourceID,
		SourceData:  sourceData,
		TriggeredAt: ec.Timestamp,
		Metadata: map[string]interface{}{
			"rule_type": string(r.RuleType),
			"rule_name": r.Name,
		},
		Tags:      tags,
		CreatedAt: ec.Timestamp,
		UpdatedAt: ec.Timestamp,
	}
}

// roundPercent converts a fractional change to a whole percentage
func roundPercent(fraction float64) int {
	return int(math.Round(math.Abs(fraction) * 100))
}
