package evaluator

import (
	"fmt"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
)

// PeerInactivity alerts on peers not seen for a long stretch, measured in
// days. Aimed at stale registrations rather than transient outages.
type PeerInactivity struct{}

// RuleType implements Evaluator
func (e *PeerInactivity) RuleType() rule.Type { return rule.TypePeerInactivity }

// Evaluate implements Evaluator
func (e *PeerInactivity) Evaluate(r *rule.Rule, ec *Context) ([]*alert.Alert, error) {
	threshold := time.Duration(r.ConditionInt("thresholdDays", 30)) * 24 * time.Hour
	cutoff := ec.Timestamp.Add(-threshold)

	var alerts []*alert.Alert
	for _, p := range ec.Peers {
		lastSeen := p.LastSeenOrFirstSeen()
		if lastSeen.After(cutoff) {
			continue
		}

		inactiveFor := ec.Timestamp.Sub(lastSeen)
		title := fmt.Sprintf("Peer %s is inactive", p.Name)
		description := fmt.Sprintf("Peer %s (%s) has not been seen for %s, exceeding the %s inactivity threshold.",
			p.Name, p.IP, formatDuration(inactiveFor), formatDuration(threshold))

		sourceData := map[string]interface{}{
			"peer_name":     p.Name,
			"peer_ip":       p.IP,
			"last_seen":     lastSeen,
			"inactive_days": int(inactiveFor.Hours() / 24),
		}

		tags := buildTags(r, p.AccountID, p.LocationCountry)
		alerts = append(alerts, newAlert(r, ec, title, description, alert.SourcePeer, p.ID, sourceData, tags))
	}
	return alerts, nil
}
