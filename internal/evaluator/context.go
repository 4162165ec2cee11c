package evaluator

import (
	"context"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/netmap"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
)

// Context is the snapshot every evaluator in one sweep reads. It is built
// once per cycle and shared by reference; evaluators must not mutate it.
type Context struct {
	Peers            []*netmap.Peer
	Groups           []*netmap.Group
	PreviousSnapshot *netmap.NetworkSnapshot
	Timestamp        time.Time
}

// Snapshot derives the current network snapshot from the context
func (c *Context) Snapshot() *netmap.NetworkSnapshot {
	connected := 0
	disconnected := 0
	for _, p := range c.Peers {
		switch p.Status {
		case netmap.PeerConnected:
			connected++
		case netmap.PeerDisconnected:
			disconnected++
		}
	}

	accountID := ""
	if len(c.Peers) > 0 {
		accountID = c.Peers[0].AccountID
	} else if len(c.Groups) > 0 {
		accountID = c.Groups[0].AccountID
	}

	return &netmap.NetworkSnapshot{
		TakenAt:           c.Timestamp,
		TotalPeers:        len(c.Peers),
		TotalGroups:       len(c.Groups),
		ConnectedPeers:    connected,
		DisconnectedPeers: disconnected,
		AccountID:         accountID,
	}
}

// ContextBuilder assembles evaluation contexts from the upstream provider
type ContextBuilder struct {
	provider  netmap.Provider
	snapshots netmap.SnapshotStore
}

// NewContextBuilder creates a context builder
func NewContextBuilder(provider netmap.Provider, snapshots netmap.SnapshotStore) *ContextBuilder {
	return &ContextBuilder{provider: provider, snapshots: snapshots}
}

// Build fetches peers, groups and the most recent prior snapshot. A failure
// here aborts only the current sweep; the next scheduled tick retries.
func (b *ContextBuilder) Build(ctx context.Context) (*Context, error) {
	now := time.Now()

	peers, err := b.provider.Peers(ctx)
	if err != nil {
		return nil, errors.ContextBuildError(err)
	}

	groups, err := b.provider.Groups(ctx)
	if err != nil {
		return nil, errors.ContextBuildError(err)
	}

	previous, err := b.snapshots.Latest(ctx, now)
	if err != nil {
		return nil, errors.ContextBuildError(err)
	}

	return &Context{
		Peers:            peers,
		Groups:           groups,
		PreviousSnapshot: previous,
		Timestamp:        now,
	}, nil
}
