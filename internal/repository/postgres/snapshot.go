package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/netmap"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
)

type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) netmap.SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) Save(ctx context.Context, snap *netmap.NetworkSnapshot) error {
	query := `INSERT INTO network_snapshots
		(taken_at, total_peers, total_groups, connected_peers, disconnected_peers, account_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		snap.TakenAt, snap.TotalPeers, snap.TotalGroups,
		snap.ConnectedPeers, snap.DisconnectedPeers, nullString(snap.AccountID),
	)
	if err != nil {
		return errors.DatabaseError("failed to save network snapshot", err)
	}
	return nil
}

func (s *SnapshotStore) Latest(ctx context.Context, before time.Time) (*netmap.NetworkSnapshot, error) {
	query := `SELECT taken_at, total_peers, total_groups, connected_peers,
		disconnected_peers, COALESCE(account_id, '')
		FROM network_snapshots WHERE taken_at <= $1
		ORDER BY taken_at DESC LIMIT 1`

	var snap netmap.NetworkSnapshot
	err := s.db.QueryRowContext(ctx, query, before).Scan(
		&snap.TakenAt, &snap.TotalPeers, &snap.TotalGroups,
		&snap.ConnectedPeers, &snap.DisconnectedPeers, &snap.AccountID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load network snapshot", err)
	}
	return &snap, nil
}

func (s *SnapshotStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM network_snapshots WHERE taken_at < $1`, cutoff)
	if err != nil {
		return 0, errors.DatabaseError("failed to delete network snapshots", err)
	}
	return res.RowsAffected()
}
