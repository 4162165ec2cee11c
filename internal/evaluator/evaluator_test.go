package evaluator

import (
	"testing"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/netmap"
	"github.com/peerwatch/peerwatch/internal/domain/rule"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func testRule(t rule.Type, conditions map[string]interface{}) *rule.Rule {
	return &rule.Rule{
		ID:         "rule-1",
		Name:       "test rule",
		RuleType:   t,
		Severity:   rule.SeverityMedium,
		Conditions: conditions,
		IsEnabled:  true,
	}
}

func peerSeenAgo(id string, status netmap.PeerStatus, ago time.Duration) *netmap.Peer {
	seen := testNow.Add(-ago)
	return &netmap.Peer{
		ID:          id,
		AccountID:   "acct-1",
		Name:        "peer-" + id,
		IP:          "100.64.0.1",
		Status:      status,
		LastSeen:    &seen,
		FirstSeenAt: testNow.Add(-30 * 24 * time.Hour),
	}
}

func TestRegistryCoversAllRuleTypes(t *testing.T) {
	reg := NewRegistry()
	for _, rt := range rule.Types() {
		e, ok := reg.Lookup(rt)
		if !ok {
			t.Fatalf("no evaluator registered for %s", rt)
		}
		if e.RuleType() != rt {
			t.Errorf("evaluator for %s reports type %s", rt, e.RuleType())
		}
	}
	if _, ok := reg.Lookup(rule.Type("bogus")); ok {
		t.Error("lookup of unknown type should fail")
	}
}

func TestPeerOffline(t *testing.T) {
	tests := []struct {
		name       string
		peers      []*netmap.Peer
		conditions map[string]interface{}
		want       int
	}{
		{
			name:       "offline past threshold",
			peers:      []*netmap.Peer{peerSeenAgo("a", netmap.PeerDisconnected, 10*time.Minute)},
			conditions: map[string]interface{}{"thresholdMinutes": float64(5)},
			want:       1,
		},
		{
			name:       "offline exactly at threshold",
			peers:      []*netmap.Peer{peerSeenAgo("a", netmap.PeerDisconnected, 5*time.Minute)},
			conditions: map[string]interface{}{"thresholdMinutes": float64(5)},
			want:       1,
		},
		{
			name:       "offline under threshold",
			peers:      []*netmap.Peer{peerSeenAgo("a", netmap.PeerDisconnected, 3*time.Minute)},
			conditions: map[string]interface{}{"thresholdMinutes": float64(5)},
			want:       0,
		},
		{
			name:       "connected peer ignored",
			peers:      []*netmap.Peer{peerSeenAgo("a", netmap.PeerConnected, time.Hour)},
			conditions: map[string]interface{}{"thresholdMinutes": float64(5)},
			want:       0,
		},
		{
			name:  "default threshold applies",
			peers: []*netmap.Peer{peerSeenAgo("a", netmap.PeerDisconnected, 6*time.Minute)},
			want:  1,
		},
	}

	e := &PeerOffline{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRule(rule.TypePeerOffline, tt.conditions)
			ec := &Context{Peers: tt.peers, Timestamp: testNow}
			alerts, err := e.Evaluate(r, ec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(alerts) != tt.want {
				t.Fatalf("got %d alerts, want %d", len(alerts), tt.want)
			}
			for _, a := range alerts {
				if a.Severity != r.Severity {
					t.Errorf("alert severity %s does not match rule severity %s", a.Severity, r.Severity)
				}
				if a.RuleID != r.ID {
					t.Errorf("alert rule id %s, want %s", a.RuleID, r.ID)
				}
			}
		})
	}
}

func TestPeerOfflineUsesFirstSeenWhenNeverSeen(t *testing.T) {
	p := &netmap.Peer{
		ID:          "a",
		Name:        "peer-a",
		Status:      netmap.PeerDisconnected,
		FirstSeenAt: testNow.Add(-time.Hour),
	}
	r := testRule(rule.TypePeerOffline, nil)
	alerts, err := (&PeerOffline{}).Evaluate(r, &Context{Peers: []*netmap.Peer{p}, Timestamp: testNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
}

func TestPeerFlapping(t *testing.T) {
	history := func(ago []time.Duration, states []netmap.PeerStatus) []netmap.StateChange {
		out := make([]netmap.StateChange, len(ago))
		for i := range ago {
			out[i] = netmap.StateChange{Status: states[i], Timestamp: testNow.Add(-ago[i])}
		}
		return out
	}

	tests := []struct {
		name    string
		history []netmap.StateChange
		want    int
	}{
		{
			name: "four transitions in window",
			history: history(
				[]time.Duration{9 * time.Minute, 7 * time.Minute, 5 * time.Minute, 3 * time.Minute, time.Minute},
				[]netmap.PeerStatus{netmap.PeerConnected, netmap.PeerDisconnected, netmap.PeerConnected, netmap.PeerDisconnected, netmap.PeerConnected},
			),
			want: 1,
		},
		{
			name: "duplicates collapse below threshold",
			history: history(
				[]time.Duration{9 * time.Minute, 7 * time.Minute, 5 * time.Minute, 3 * time.Minute},
				[]netmap.PeerStatus{netmap.PeerConnected, netmap.PeerConnected, netmap.PeerConnected, netmap.PeerDisconnected},
			),
			want: 0,
		},
		{
			name: "old entries outside window ignored",
			history: history(
				[]time.Duration{60 * time.Minute, 50 * time.Minute, 40 * time.Minute, 5 * time.Minute},
				[]netmap.PeerStatus{netmap.PeerConnected, netmap.PeerDisconnected, netmap.PeerConnected, netmap.PeerDisconnected},
			),
			want: 0,
		},
		{
			name:    "no history",
			history: nil,
			want:    0,
		},
	}

	e := &PeerFlapping{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := peerSeenAgo("a", netmap.PeerConnected, time.Minute)
			p.StateHistory = tt.history
			r := testRule(rule.TypePeerFlapping, map[string]interface{}{
				"periodMinutes":        float64(10),
				"stateChangeThreshold": float64(3),
			})
			alerts, err := e.Evaluate(r, &Context{Peers: []*netmap.Peer{p}, Timestamp: testNow})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(alerts) != tt.want {
				t.Fatalf("got %d alerts, want %d", len(alerts), tt.want)
			}
		})
	}
}

func TestGroupHealth(t *testing.T) {
	makePeers := func(online, offline int) []*netmap.Peer {
		var peers []*netmap.Peer
		for i := 0; i < online; i++ {
			peers = append(peers, peerSeenAgo(string(rune('a'+i)), netmap.PeerConnected, 0))
		}
		for i := 0; i < offline; i++ {
			peers = append(peers, peerSeenAgo(string(rune('n'+i)), netmap.PeerDisconnected, time.Hour))
		}
		return peers
	}

	tests := []struct {
		name    string
		online  int
		offline int
		minRate float64
		want    int
	}{
		{"healthy group", 4, 1, 0.8, 0},
		{"degraded group", 3, 2, 0.8, 1},
		{"rate exactly at minimum", 4, 0, 1.0, 0},
		{"all offline", 0, 3, 0.8, 1},
	}

	e := &GroupHealth{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peers := makePeers(tt.online, tt.offline)
			ids := make([]string, len(peers))
			for i, p := range peers {
				ids[i] = p.ID
			}
			g := &netmap.Group{ID: "g1", AccountID: "acct-1", Name: "servers", PeerIDs: ids}
			r := testRule(rule.TypeGroupHealth, map[string]interface{}{"minOnlineRate": tt.minRate})
			alerts, err := e.Evaluate(r, &Context{Peers: peers, Groups: []*netmap.Group{g}, Timestamp: testNow})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(alerts) != tt.want {
				t.Fatalf("got %d alerts, want %d", len(alerts), tt.want)
			}
		})
	}
}

func TestGroupHealthSkipsEmptyGroup(t *testing.T) {
	g := &netmap.Group{ID: "g1", Name: "empty"}
	r := testRule(rule.TypeGroupHealth, nil)
	alerts, err := (&GroupHealth{}).Evaluate(r, &Context{Groups: []*netmap.Group{g}, Timestamp: testNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("empty group should not alert, got %d", len(alerts))
	}
}

func TestNewPeer(t *testing.T) {
	tests := []struct {
		name     string
		firstAgo time.Duration
		want     int
	}{
		{"registered recently", 30 * time.Minute, 1},
		{"registered long ago", 2 * time.Hour, 0},
	}

	e := &NewPeer{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := peerSeenAgo("a", netmap.PeerConnected, 0)
			p.FirstSeenAt = testNow.Add(-tt.firstAgo)
			r := testRule(rule.TypeNewPeer, map[string]interface{}{"thresholdMinutes": float64(60)})
			alerts, err := e.Evaluate(r, &Context{Peers: []*netmap.Peer{p}, Timestamp: testNow})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(alerts) != tt.want {
				t.Fatalf("got %d alerts, want %d", len(alerts), tt.want)
			}
		})
	}
}

func TestPeerInactivity(t *testing.T) {
	tests := []struct {
		name    string
		lastAgo time.Duration
		want    int
	}{
		{"inactive past threshold", 45 * 24 * time.Hour, 1},
		{"recently active", 10 * 24 * time.Hour, 0},
	}

	e := &PeerInactivity{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := peerSeenAgo("a", netmap.PeerDisconnected, tt.lastAgo)
			p.FirstSeenAt = testNow.Add(-90 * 24 * time.Hour)
			r := testRule(rule.TypePeerInactivity, map[string]interface{}{"thresholdDays": float64(30)})
			alerts, err := e.Evaluate(r, &Context{Peers: []*netmap.Peer{p}, Timestamp: testNow})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(alerts) != tt.want {
				t.Fatalf("got %d alerts, want %d", len(alerts), tt.want)
			}
		})
	}
}

func TestNetworkChange(t *testing.T) {
	makePeers := func(n int) []*netmap.Peer {
		peers := make([]*netmap.Peer, n)
		for i := range peers {
			peers[i] = peerSeenAgo(string(rune(i)), netmap.PeerConnected, 0)
		}
		return peers
	}

	t.Run("no previous snapshot", func(t *testing.T) {
		r := testRule(rule.TypeNetworkChange, nil)
		alerts, err := (&NetworkChange{}).Evaluate(r, &Context{Peers: makePeers(100), Timestamp: testNow})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(alerts) != 0 {
			t.Fatalf("without baseline there should be no alerts, got %d", len(alerts))
		}
	})

	t.Run("peer count growth triggers", func(t *testing.T) {
		previous := &netmap.NetworkSnapshot{
			TakenAt:        testNow.Add(-time.Minute),
			TotalPeers:     100,
			ConnectedPeers: 130,
		}
		r := testRule(rule.TypeNetworkChange, map[string]interface{}{"changeThreshold": 0.2})
		ec := &Context{Peers: makePeers(130), PreviousSnapshot: previous, Timestamp: testNow}
		alerts, err := (&NetworkChange{}).Evaluate(r, ec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(alerts) != 1 {
			t.Fatalf("got %d alerts, want 1", len(alerts))
		}
		if got := alerts[0].SourceData["changePercentage"]; got != 30 {
			t.Errorf("changePercentage = %v, want 30", got)
		}
	})

	t.Run("change under threshold", func(t *testing.T) {
		previous := &netmap.NetworkSnapshot{
			TakenAt:        testNow.Add(-time.Minute),
			TotalPeers:     100,
			ConnectedPeers: 110,
		}
		r := testRule(rule.TypeNetworkChange, map[string]interface{}{"changeThreshold": 0.2})
		ec := &Context{Peers: makePeers(110), PreviousSnapshot: previous, Timestamp: testNow}
		alerts, err := (&NetworkChange{}).Evaluate(r, ec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(alerts) != 0 {
			t.Fatalf("got %d alerts, want 0", len(alerts))
		}
	})

	t.Run("zero baseline counts as full change", func(t *testing.T) {
		previous := &netmap.NetworkSnapshot{TakenAt: testNow.Add(-time.Minute)}
		r := testRule(rule.TypeNetworkChange, nil)
		ec := &Context{Peers: makePeers(5), PreviousSnapshot: previous, Timestamp: testNow}
		alerts, err := (&NetworkChange{}).Evaluate(r, ec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// peer_count and connectivity both go 0 -> 5
		if len(alerts) != 2 {
			t.Fatalf("got %d alerts, want 2", len(alerts))
		}
	})
}

func TestEvaluatorsAreDeterministic(t *testing.T) {
	p := peerSeenAgo("a", netmap.PeerDisconnected, 20*time.Minute)
	r := testRule(rule.TypePeerOffline, nil)
	ec := &Context{Peers: []*netmap.Peer{p}, Timestamp: testNow}

	first, err := (&PeerOffline{}).Evaluate(r, ec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := (&PeerOffline{}).Evaluate(r, ec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("repeated evaluation differs: %d vs %d", len(first), len(second))
	}
	if first[0].Title != second[0].Title || first[0].Description != second[0].Description {
		t.Error("repeated evaluation produced different content")
	}
}
