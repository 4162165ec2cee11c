package evaluator

import (
	"fmt"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/netmap"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
)

// PeerOffline alerts on peers that have been disconnected for longer than the
// configured threshold.
type PeerOffline struct{}

// RuleType implements Evaluator
func (e *PeerOffline) RuleType() rule.Type { return rule.TypePeerOffline }

// Evaluate implements Evaluator. A peer qualifies when its status is
// disconnected and it was last seen at least thresholdMinutes ago.
func (e *PeerOffline) Evaluate(r *rule.Rule, ec *Context) ([]*alert.Alert, error) {
	threshold := time.Duration(r.ConditionInt("thresholdMinutes", 5)) * time.Minute
	cutoff := ec.Timestamp.Add(-threshold)

	var alerts []*alert.Alert
	for _, p := range ec.Peers {
		if p.Status != netmap.PeerDisconnected {
			continue
		}
		lastSeen := p.LastSeenOrFirstSeen()
		if lastSeen.After(cutoff) {
			continue
		}

		offlineFor := ec.Timestamp.Sub(lastSeen)
		title := fmt.Sprintf("Peer %s is offline", p.Name)
		description := fmt.Sprintf("Peer %s (%s) has been offline for %s, exceeding the %s threshold.",
			p.Name, p.IP, formatDuration(offlineFor), formatDuration(threshold))

		sourceData := map[string]interface{}{
			"peer_name":       p.Name,
			"peer_ip":         p.IP,
			"last_seen":       lastSeen,
			"offline_minutes": int(offlineFor.Minutes()),
		}

		tags := buildTags(r, p.AccountID, p.LocationCountry)
		alerts = append(alerts, newAlert(r, ec, title, description, alert.SourcePeer, p.ID, sourceData, tags))
	}
	return alerts, nil
}
