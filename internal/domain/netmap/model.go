package netmap

import "time"

// PeerStatus is the connectivity state reported by the upstream provider
type PeerStatus string

// Peer connectivity states
const (
	PeerConnected    PeerStatus = "connected"
	PeerDisconnected PeerStatus = "disconnected"
	PeerError        PeerStatus = "error"
)

// StateChange is one entry in a peer's retained connectivity history
type StateChange struct {
	Status    PeerStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}

// Peer is a snapshot of one network peer as supplied by the upstream
// peer-data provider. The alerting core reads it, never mutates it.
type Peer struct {
	ID                 string        `json:"id"`
	AccountID          string        `json:"account_id"`
	Name               string        `json:"name"`
	IP                 string        `json:"ip"`
	OS                 string        `json:"os,omitempty"`
	Version            string        `json:"version,omitempty"`
	Status             PeerStatus    `json:"status"`
	LastSeen           *time.Time    `json:"last_seen,omitempty"`
	FirstSeenAt        time.Time     `json:"first_seen_at"`
	CreatedAt          time.Time     `json:"created_at"`
	LocationCountry    string        `json:"location_country,omitempty"`
	LocationCity       string        `json:"location_city,omitempty"`
	Desktop            bool          `json:"desktop"`
	SSHEnabled         bool          `json:"ssh_enabled"`
	DNSEnabled         bool          `json:"dns_enabled"`
	FirewallEnabled    bool          `json:"firewall_enabled"`
	TotalUptimeMinutes int64         `json:"total_uptime_minutes"`
	StateHistory       []StateChange `json:"state_history,omitempty"`
}

// LastSeenOrFirstSeen returns lastSeen when present, firstSeenAt otherwise
func (p *Peer) LastSeenOrFirstSeen() time.Time {
	if p.LastSeen != nil {
		return *p.LastSeen
	}
	return p.FirstSeenAt
}

// Group is a named set of peers
type Group struct {
	ID        string   `json:"id"`
	AccountID string   `json:"account_id"`
	Name      string   `json:"name"`
	PeerIDs   []string `json:"peer_ids"`
}

// Members returns the peers of the group present in peers
func (g *Group) Members(peers []*Peer) []*Peer {
	if len(g.PeerIDs) == 0 {
		return nil
	}

	ids := make(map[string]struct{}, len(g.PeerIDs))
	for _, id := range g.PeerIDs {
		ids[id] = struct{}{}
	}

	var members []*Peer
	for _, p := range peers {
		if _, ok := ids[p.ID]; ok {
			members = append(members, p)
		}
	}
	return members
}

// NetworkSnapshot is an aggregate view of the network at one instant, used by
// the network-change evaluator to detect sudden shifts between sweeps.
type NetworkSnapshot struct {
	TakenAt           time.Time `json:"taken_at"`
	TotalPeers        int       `json:"total_peers"`
	TotalGroups       int       `json:"total_groups"`
	ConnectedPeers    int       `json:"connected_peers"`
	DisconnectedPeers int       `json:"disconnected_peers"`
	AccountID         string    `json:"account_id,omitempty"`
}
