package netbird

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/netmap"
)

func TestClientPeers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/peers" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("auth header = %q", got)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"id":           "p1",
				"name":         "web-1",
				"ip":           "100.64.0.1",
				"connected":    true,
				"account_id":   "acct-1",
				"country_code": "DE",
			},
			{
				"id":        "p2",
				"name":      "db-1",
				"ip":        "100.64.0.2",
				"connected": false,
				"last_seen": time.Now().Add(-time.Hour).Format(time.RFC3339),
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	peers, err := c.Peers(context.Background())
	if err != nil {
		t.Fatalf("peers failed: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("got %d peers, want 2", len(peers))
	}
	if peers[0].Status != netmap.PeerConnected {
		t.Errorf("peer 1 status = %s, want connected", peers[0].Status)
	}
	if peers[1].Status != netmap.PeerDisconnected {
		t.Errorf("peer 2 status = %s, want disconnected", peers[1].Status)
	}
	if peers[0].LocationCountry != "DE" {
		t.Errorf("peer 1 country = %q", peers[0].LocationCountry)
	}
}

func TestClientGroups(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/groups" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"id":    "g1",
				"name":  "servers",
				"peers": []map[string]string{{"id": "p1"}, {"id": "p2"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	groups, err := c.Groups(context.Background())
	if err != nil {
		t.Fatalf("groups failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if len(groups[0].PeerIDs) != 2 {
		t.Errorf("group members = %v", groups[0].PeerIDs)
	}
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Peers(context.Background()); err == nil {
		t.Fatal("expected error on 502")
	}
}

type scriptedProvider struct {
	batches [][]*netmap.Peer
	call    int
}

func (p *scriptedProvider) Peers(context.Context) ([]*netmap.Peer, error) {
	batch := p.batches[p.call]
	if p.call < len(p.batches)-1 {
		p.call++
	}
	// Return copies, the tracker mutates StateHistory on what it returns.
	out := make([]*netmap.Peer, len(batch))
	for i, peer := range batch {
		cp := *peer
		out[i] = &cp
	}
	return out, nil
}

func (p *scriptedProvider) Groups(context.Context) ([]*netmap.Group, error) { return nil, nil }

func TestStateTrackerRecordsTransitions(t *testing.T) {
	peer := func(status netmap.PeerStatus) *netmap.Peer {
		return &netmap.Peer{ID: "p1", Name: "web-1", Status: status}
	}
	upstream := &scriptedProvider{batches: [][]*netmap.Peer{
		{peer(netmap.PeerConnected)},
		{peer(netmap.PeerDisconnected)},
		{peer(netmap.PeerDisconnected)},
		{peer(netmap.PeerConnected)},
	}}

	tracker := NewStateTracker(upstream)
	ctx := context.Background()

	var last []*netmap.Peer
	for i := 0; i < 4; i++ {
		var err error
		last, err = tracker.Peers(ctx)
		if err != nil {
			t.Fatalf("poll %d failed: %v", i, err)
		}
	}

	history := last[0].StateHistory
	// connected -> disconnected -> connected; the repeated disconnected
	// poll must not add an entry.
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3: %v", len(history), history)
	}
	want := []netmap.PeerStatus{netmap.PeerConnected, netmap.PeerDisconnected, netmap.PeerConnected}
	for i, w := range want {
		if history[i].Status != w {
			t.Errorf("history[%d] = %s, want %s", i, history[i].Status, w)
		}
	}
}

func TestStateTrackerDropsVanishedPeers(t *testing.T) {
	upstream := &scriptedProvider{batches: [][]*netmap.Peer{
		{{ID: "p1", Status: netmap.PeerConnected}, {ID: "p2", Status: netmap.PeerConnected}},
		{{ID: "p1", Status: netmap.PeerConnected}},
	}}

	tracker := NewStateTracker(upstream)
	ctx := context.Background()
	tracker.Peers(ctx)
	tracker.Peers(ctx)

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if _, ok := tracker.history["p2"]; ok {
		t.Error("history for vanished peer retained")
	}
	if _, ok := tracker.history["p1"]; !ok {
		t.Error("history for live peer dropped")
	}
}
