package services

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
)

// renderEmailSubject builds the subject line for an alert email
func renderEmailSubject(a *alert.Alert) string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(a.Severity), a.Title)
}

// renderEmailHTML builds the HTML body for an alert email
func renderEmailHTML(a *alert.Alert) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString(fmt.Sprintf("<h2>%s</h2>", html.EscapeString(a.Title)))
	b.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(a.Description)))
	b.WriteString("<table>")
	b.WriteString(fmt.Sprintf("<tr><td>Severity</td><td>%s</td></tr>", html.EscapeString(a.Severity)))
	b.WriteString(fmt.Sprintf("<tr><td>Source</td><td>%s %s</td></tr>", a.SourceType, html.EscapeString(a.SourceID)))
	b.WriteString(fmt.Sprintf("<tr><td>Triggered</td><td>%s</td></tr>", a.TriggeredAt.Format(time.RFC3339)))
	b.WriteString("</table>")
	b.WriteString("</body></html>")
	return b.String()
}

// renderEmailText builds the plain-text body for an alert email
func renderEmailText(a *alert.Alert) string {
	return fmt.Sprintf("%s\n\n%s\n\nSeverity: %s\nSource: %s %s\nTriggered: %s\n",
		a.Title, a.Description, a.Severity, a.SourceType, a.SourceID,
		a.TriggeredAt.Format(time.RFC3339))
}

// webhookPayload builds the JSON envelope delivered to webhook endpoints
func webhookPayload(a *alert.Alert) map[string]interface{} {
	return map[string]interface{}{
		"alert": map[string]interface{}{
			"id":           a.ID,
			"rule_id":      a.RuleID,
			"title":        a.Title,
			"description":  a.Description,
			"severity":     a.Severity,
			"status":       a.Status,
			"source_type":  a.SourceType,
			"source_id":    a.SourceID,
			"source_data":  a.SourceData,
			"triggered_at": a.TriggeredAt.Format(time.RFC3339),
			"tags":         a.Tags,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

// severityColor maps severity to a Slack attachment color
func severityColor(severity string) string {
	switch severity {
	case "low":
		return "good"
	case "medium":
		return "warning"
	default:
		return "danger"
	}
}

// slackPayload builds the Slack webhook message for an alert
func slackPayload(a *alert.Alert) map[string]interface{} {
	return map[string]interface{}{
		"attachments": []map[string]interface{}{
			{
				"color": severityColor(a.Severity),
				"title": a.Title,
				"text":  a.Description,
				"fields": []map[string]interface{}{
					{"title": "Severity", "value": a.Severity, "short": true},
					{"title": "Source", "value": fmt.Sprintf("%s %s", a.SourceType, a.SourceID), "short": true},
				},
				"ts": a.TriggeredAt.Unix(),
			},
		},
	}
}

// inAppLevel maps alert severity to the in-app message level
func inAppLevel(severity string) string {
	switch severity {
	case "low":
		return "info"
	case "medium":
		return "warning"
	default:
		return "error"
	}
}

// inAppPayload builds the in-app notification pushed over the event feed.
// In-app messages expire after seven days.
func inAppPayload(a *alert.Alert, userID string, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"alert_id":   a.ID,
		"user_id":    userID,
		"title":      a.Title,
		"message":    a.Description,
		"level":      inAppLevel(a.Severity),
		"expires_at": now.Add(7 * 24 * time.Hour).Format(time.RFC3339),
	}
}
