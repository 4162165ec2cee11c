package evaluator

import (
	"fmt"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
)

// PeerFlapping alerts on peers whose connectivity changed state too many
// times within a sliding window.
type PeerFlapping struct{}

// RuleType implements Evaluator
func (e *PeerFlapping) RuleType() rule.Type { return rule.TypePeerFlapping }

// Evaluate implements Evaluator. State changes are counted over the last
// periodMinutes; repeated reports of the same state are not changes.
func (e *PeerFlapping) Evaluate(r *rule.Rule, ec *Context) ([]*alert.Alert, error) {
	period := time.Duration(r.ConditionInt("periodMinutes", 10)) * time.Minute
	threshold := r.ConditionInt("stateChangeThreshold", 3)
	windowStart := ec.Timestamp.Add(-period)

	var alerts []*alert.Alert
	for _, p := range ec.Peers {
		changes := countStateChanges(p.StateHistory, windowStart)
		if changes < threshold {
			continue
		}

		title := fmt.Sprintf("Peer %s is flapping", p.Name)
		description := fmt.Sprintf("Peer %s (%s) changed connection state %d times in the last %s (threshold %d).",
			p.Name, p.IP, changes, formatDuration(period), threshold)

		sourceData := map[string]interface{}{
			"peer_name":      p.Name,
			"peer_ip":        p.IP,
			"state_changes":  changes,
			"period_minutes": int(period.Minutes()),
		}

		tags := buildTags(r, p.AccountID, p.LocationCountry)
		alerts = append(alerts, newAlert(r, ec, title, description, alert.SourcePeer, p.ID, sourceData, tags))
	}
	return alerts, nil
}
