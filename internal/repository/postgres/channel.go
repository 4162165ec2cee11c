package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/peerwatch/peerwatch/internal/domain/notification"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
)

type ChannelRepository struct {
	db *sql.DB
}

func NewChannelRepository(db *sql.DB) notification.ChannelRepository {
	return &ChannelRepository{db: db}
}

const channelColumns = `id, name, description, type, config, is_enabled,
	success_count, failure_count, last_used_at, last_success_at, last_failure_at,
	last_error, created_by_id, created_at, updated_at`

func (r *ChannelRepository) Create(ctx context.Context, c *notification.Channel) error {
	config, err := json.Marshal(c.Config)
	if err != nil {
		return errors.DatabaseError("failed to encode channel config", err)
	}

	query := `INSERT INTO notification_channels (` + channelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Description, c.Type, config, c.IsEnabled,
		c.SuccessCount, c.FailureCount, c.LastUsedAt, c.LastSuccessAt,
		c.LastFailureAt, nullString(c.LastError), nullString(c.CreatedByID),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return errors.DatabaseError("failed to create channel", err)
	}
	return nil
}

func (r *ChannelRepository) GetByID(ctx context.Context, id string) (*notification.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM notification_channels WHERE id = $1`
	c, err := scanChannel(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("channel")
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get channel", err)
	}
	return c, nil
}

func (r *ChannelRepository) Update(ctx context.Context, c *notification.Channel) error {
	config, err := json.Marshal(c.Config)
	if err != nil {
		return errors.DatabaseError("failed to encode channel config", err)
	}

	query := `UPDATE notification_channels SET name = $1, description = $2, type = $3,
		config = $4, is_enabled = $5, updated_at = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		c.Name, c.Description, c.Type, config, c.IsEnabled, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return errors.DatabaseError("failed to update channel", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return errors.NotFound("channel")
	}
	return nil
}

func (r *ChannelRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM notification_channels WHERE id = $1", id)
	if err != nil {
		return errors.DatabaseError("failed to delete channel", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return errors.NotFound("channel")
	}
	return nil
}

func (r *ChannelRepository) List(ctx context.Context) ([]*notification.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM notification_channels ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.DatabaseError("failed to list channels", err)
	}
	defer rows.Close()

	var out []*notification.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, errors.DatabaseError("failed to scan channel", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed to list channels", err)
	}
	return out, nil
}

func (r *ChannelRepository) ListEnabledByIDs(ctx context.Context, ids []string) ([]*notification.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + channelColumns + ` FROM notification_channels
		WHERE id = ANY($1) AND is_enabled = true ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, errors.DatabaseError("failed to list channels", err)
	}
	defer rows.Close()

	var out []*notification.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, errors.DatabaseError("failed to scan channel", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed to list channels", err)
	}
	return out, nil
}

func (r *ChannelRepository) RecordResult(ctx context.Context, id string, success bool, errMsg string, at time.Time) error {
	var query string
	var args []interface{}
	if success {
		query = `UPDATE notification_channels SET success_count = success_count + 1,
			last_used_at = $1, last_success_at = $1, last_error = NULL, updated_at = $1
			WHERE id = $2`
		args = []interface{}{at, id}
	} else {
		query = `UPDATE notification_channels SET failure_count = failure_count + 1,
			last_used_at = $1, last_failure_at = $1, last_error = $2, updated_at = $1
			WHERE id = $3`
		args = []interface{}{at, errMsg, id}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.DatabaseError("failed to record channel result", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return errors.NotFound("channel")
	}
	return nil
}

func scanChannel(row scanner) (*notification.Channel, error) {
	var c notification.Channel
	var config []byte
	var lastError, createdBy sql.NullString

	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Type, &config, &c.IsEnabled,
		&c.SuccessCount, &c.FailureCount, &c.LastUsedAt, &c.LastSuccessAt,
		&c.LastFailureAt, &lastError, &createdBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.LastError = lastError.String
	c.CreatedByID = createdBy.String
	if len(config) > 0 {
		if err := json.Unmarshal(config, &c.Config); err != nil {
			return nil, err
		}
	}
	return &c, nil
}
