package netbird

import (
	"context"
	"sync"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/netmap"
)

// historyRetention bounds how far back per-peer state history is kept. The
// flapping evaluator only ever looks minutes back; a day is generous.
const historyRetention = 24 * time.Hour

// StateTracker wraps a provider and maintains per-peer connectivity history
// across polls, which the upstream API does not supply. History lives in
// memory and restarts empty; flapping detection warms up within one window.
type StateTracker struct {
	upstream netmap.Provider

	mu      sync.Mutex
	history map[string][]netmap.StateChange
}

// NewStateTracker wraps upstream with state-history tracking
func NewStateTracker(upstream netmap.Provider) *StateTracker {
	return &StateTracker{
		upstream: upstream,
		history:  make(map[string][]netmap.StateChange),
	}
}

// Peers implements netmap.Provider. Each call records status observations and
// attaches the retained history to the returned peers.
func (t *StateTracker) Peers(ctx context.Context) ([]*netmap.Peer, error) {
	peers, err := t.upstream.Peers(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cutoff := now.Add(-historyRetention)

	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[string]struct{}, len(peers))
	for _, p := range peers {
		seen[p.ID] = struct{}{}

		entries := t.history[p.ID]
		if len(entries) == 0 || entries[len(entries)-1].Status != p.Status {
			entries = append(entries, netmap.StateChange{Status: p.Status, Timestamp: now})
		}
		entries = trimBefore(entries, cutoff)
		t.history[p.ID] = entries
		p.StateHistory = append([]netmap.StateChange(nil), entries...)
	}

	// Drop history of peers that disappeared upstream.
	for id := range t.history {
		if _, ok := seen[id]; !ok {
			delete(t.history, id)
		}
	}

	return peers, nil
}

// Groups implements netmap.Provider
func (t *StateTracker) Groups(ctx context.Context) ([]*netmap.Group, error) {
	return t.upstream.Groups(ctx)
}

func trimBefore(entries []netmap.StateChange, cutoff time.Time) []netmap.StateChange {
	i := 0
	for i < len(entries) && entries[i].Timestamp.Before(cutoff) {
		i++
	}
	// Keep at least the most recent entry so the current state survives.
	if i == len(entries) && len(entries) > 0 {
		i = len(entries) - 1
	}
	return entries[i:]
}
