package evaluator

import (
	"fmt"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/netmap"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
)

// GroupHealth alerts on groups whose online member ratio drops below the
// configured minimum. Empty groups are skipped rather than treated as down.
type GroupHealth struct{}

// RuleType implements Evaluator
func (e *GroupHealth) RuleType() rule.Type { return rule.TypeGroupHealth }

// Evaluate implements Evaluator
func (e *GroupHealth) Evaluate(r *rule.Rule, ec *Context) ([]*alert.Alert, error) {
	minRate := r.ConditionFloat("minOnlineRate", 0.8)

	var alerts []*alert.Alert
	for _, g := range ec.Groups {
		members := g.Members(ec.Peers)
		if len(members) == 0 {
			continue
		}

		online := 0
		for _, p := range members {
			if p.Status == netmap.PeerConnected {
				online++
			}
		}

		rate := float64(online) / float64(len(members))
		if rate >= minRate {
			continue
		}

		title := fmt.Sprintf("Group %s health degraded", g.Name)
		description := fmt.Sprintf("Group %s has %d of %d peers online (%.0f%%), below the %.0f%% minimum.",
			g.Name, online, len(members), rate*100, minRate*100)

		sourceData := map[string]interface{}{
			"group_name":   g.Name,
			"online_peers": online,
			"total_peers":  len(members),
			"online_rate":  rate,
		}

		tags := buildTags(r, g.AccountID, "")
		alerts = append(alerts, newAlert(r, ec, title, description, alert.SourceGroup, g.ID, sourceData, tags))
	}
	return alerts, nil
}
