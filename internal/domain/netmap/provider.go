package netmap

import (
	"context"
	"time"
)

// Provider supplies the current peer and group state. The upstream sync that
// populates it is outside the alerting core.
type Provider interface {
	// Peers returns the current peer list including retained state history
	Peers(ctx context.Context) ([]*Peer, error)

	// Groups returns the current group list with membership
	Groups(ctx context.Context) ([]*Group, error)
}

// SnapshotStore persists network snapshots taken after each evaluation sweep
type SnapshotStore interface {
	// Save records a snapshot
	Save(ctx context.Context, s *NetworkSnapshot) error

	// Latest returns the most recent snapshot taken before the given time,
	// or nil when none exists yet
	Latest(ctx context.Context, before time.Time) (*NetworkSnapshot, error)

	// DeleteBefore removes snapshots older than the cutoff and returns how
	// many were deleted
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
