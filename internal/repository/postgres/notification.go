package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/notification"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) notification.Repository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, alert_id, channel_id, channel_type, channel_config,
	status, sent_at, response_data, error_message, retry_count, max_retries,
	next_retry_at, created_at`

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	config, err := json.Marshal(n.ChannelConfig)
	if err != nil {
		return errors.DatabaseError("failed to encode channel config", err)
	}
	response, err := json.Marshal(n.ResponseData)
	if err != nil {
		return errors.DatabaseError("failed to encode response data", err)
	}

	query := `INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.ExecContext(ctx, query,
		n.ID, n.AlertID, nullString(n.ChannelID), n.ChannelType, config,
		n.Status, n.SentAt, response, nullString(n.ErrorMessage),
		n.RetryCount, n.MaxRetries, n.NextRetryAt, n.CreatedAt,
	)
	if err != nil {
		return errors.DatabaseError("failed to create notification", err)
	}
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("notification")
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get notification", err)
	}
	return n, nil
}

func (r *NotificationRepository) Update(ctx context.Context, n *notification.Notification) error {
	response, err := json.Marshal(n.ResponseData)
	if err != nil {
		return errors.DatabaseError("failed to encode response data", err)
	}

	query := `UPDATE notifications SET status = $1, sent_at = $2, response_data = $3,
		error_message = $4, retry_count = $5, next_retry_at = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		n.Status, n.SentAt, response, nullString(n.ErrorMessage),
		n.RetryCount, n.NextRetryAt, n.ID,
	)
	if err != nil {
		return errors.DatabaseError("failed to update notification", err)
	}
	if rows, err := result.RowsAffected(); err != nil || rows == 0 {
		return errors.NotFound("notification")
	}
	return nil
}

func (r *NotificationRepository) ListByAlert(ctx context.Context, alertID string) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE alert_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, alertID)
	if err != nil {
		return nil, errors.DatabaseError("failed to list notifications", err)
	}
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.DatabaseError("failed to scan notification", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed to list notifications", err)
	}
	return out, nil
}

func (r *NotificationRepository) ListRetryable(ctx context.Context, now time.Time, limit int) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE status IN ($1, $2) AND next_retry_at IS NOT NULL AND next_retry_at <= $3
		ORDER BY next_retry_at LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, notification.StatusFailed, notification.StatusRetry, now, limit)
	if err != nil {
		return nil, errors.DatabaseError("failed to list retryable notifications", err)
	}
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.DatabaseError("failed to scan notification", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed to list retryable notifications", err)
	}
	return out, nil
}

func scanNotification(row scanner) (*notification.Notification, error) {
	var n notification.Notification
	var channelID, errMsg sql.NullString
	var config, response []byte

	err := row.Scan(
		&n.ID, &n.AlertID, &channelID, &n.ChannelType, &config,
		&n.Status, &n.SentAt, &response, &errMsg,
		&n.RetryCount, &n.MaxRetries, &n.NextRetryAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.ChannelID = channelID.String
	n.ErrorMessage = errMsg.String
	if len(config) > 0 {
		if err := json.Unmarshal(config, &n.ChannelConfig); err != nil {
			return nil, err
		}
	}
	if len(response) > 0 {
		if err := json.Unmarshal(response, &n.ResponseData); err != nil {
			return nil, err
		}
	}
	return &n, nil
}
