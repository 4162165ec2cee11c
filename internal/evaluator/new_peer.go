package evaluator

import (
	"fmt"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
)

// NewPeer alerts on peers first seen within the configured recency window.
// There is no per-peer dedup here; a short window keeps repeat alerts bounded
// while open-alert handling upstream decides what to surface.
type NewPeer struct{}

// RuleType implements Evaluator
func (e *NewPeer) RuleType() rule.Type { return rule.TypeNewPeer }

// Evaluate implements Evaluator
func (e *NewPeer) Evaluate(r *rule.Rule, ec *Context) ([]*alert.Alert, error) {
	window := time.Duration(r.ConditionInt("thresholdMinutes", 60)) * time.Minute
	cutoff := ec.Timestamp.Add(-window)

	var alerts []*alert.Alert
	for _, p := range ec.Peers {
		if p.FirstSeenAt.Before(cutoff) {
			continue
		}

		age := ec.Timestamp.Sub(p.FirstSeenAt)
		title := fmt.Sprintf("New peer %s joined the network", p.Name)
		description := fmt.Sprintf("Peer %s (%s) registered %s ago.",
			p.Name, p.IP, formatDuration(age))

		sourceData := map[string]interface{}{
			"peer_name":     p.Name,
			"peer_ip":       p.IP,
			"peer_os":       p.OS,
			"first_seen_at": p.FirstSeenAt,
		}

		tags := buildTags(r, p.AccountID, p.LocationCountry)
		alerts = append(alerts, newAlert(r, ec, title, description, alert.SourcePeer, p.ID, sourceData, tags))
	}
	return alerts, nil
}
