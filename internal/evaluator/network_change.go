package evaluator

import (
	"fmt"
	"math"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
)

// NetworkChange alerts when aggregate network metrics shift sharply between
// the previous snapshot and the current sweep. Without a prior snapshot there
// is no baseline and the evaluator stays silent.
type NetworkChange struct{}

// RuleType implements Evaluator
func (e *NetworkChange) RuleType() rule.Type { return rule.TypeNetworkChange }

// Evaluate implements Evaluator. Each metric is checked independently and
// yields its own alert when its relative change meets the threshold.
func (e *NetworkChange) Evaluate(r *rule.Rule, ec *Context) ([]*alert.Alert, error) {
	previous := ec.PreviousSnapshot
	if previous == nil {
		return nil, nil
	}

	threshold := r.ConditionFloat("changeThreshold", 0.2)
	current := ec.Snapshot()

	metrics := []struct {
		name     string
		previous float64
		current  float64
	}{
		{"peer_count", float64(previous.TotalPeers), float64(current.TotalPeers)},
		{"group_count", float64(previous.TotalGroups), float64(current.TotalGroups)},
		{"connectivity", float64(previous.ConnectedPeers), float64(current.ConnectedPeers)},
	}

	var alerts []*alert.Alert
	for _, m := range metrics {
		change := percentChange(m.previous, m.current)
		if math.Abs(change) < threshold {
			continue
		}

		direction := "increased"
		if change < 0 {
			direction = "decreased"
		}
		pct := roundPercent(change)

		title := fmt.Sprintf("Network %s changed by %d%%", m.name, pct)
		description := fmt.Sprintf("Network %s %s from %.0f to %.0f (%d%% change, threshold %.0f%%).",
			m.name, direction, m.previous, m.current, pct, threshold*100)

		sourceData := map[string]interface{}{
			"metric":           m.name,
			"previous_value":   m.previous,
			"current_value":    m.current,
			"changePercentage": pct,
		}

		tags := buildTags(r, current.AccountID, "")
		alerts = append(alerts, newAlert(r, ec, title, description, alert.SourceNetwork, "network:"+m.name, sourceData, tags))
	}
	return alerts, nil
}
