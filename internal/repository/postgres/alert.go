package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/peerwatch/peerwatch/internal/domain/alert"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
)

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) alert.Repository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, rule_id, title, description, severity, status, source_type,
	source_id, source_data, triggered_at, acknowledged_at, acknowledged_by_id,
	resolved_at, resolved_by_id, suppressed_until, metadata, tags, created_at, updated_at`

func (r *AlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	sourceData, err := json.Marshal(a.SourceData)
	if err != nil {
		return errors.DatabaseError("failed to encode alert source data", err)
	}
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return errors.DatabaseError("failed to encode alert metadata", err)
	}

	query := `INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err = r.db.ExecContext(ctx, query,
		a.ID, nullString(a.RuleID), a.Title, a.Description, a.Severity, a.Status,
		a.SourceType, a.SourceID, sourceData, a.TriggeredAt,
		a.AcknowledgedAt, nullString(a.AcknowledgedByID),
		a.ResolvedAt, nullString(a.ResolvedByID), a.SuppressedUntil,
		metadata, pq.Array(a.Tags), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return errors.DatabaseError("failed to create alert", err)
	}
	return nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id string) (*alert.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	a, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("alert")
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get alert", err)
	}
	return a, nil
}

func (r *AlertRepository) Update(ctx context.Context, a *alert.Alert) error {
	sourceData, err := json.Marshal(a.SourceData)
	if err != nil {
		return errors.DatabaseError("failed to encode alert source data", err)
	}
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return errors.DatabaseError("failed to encode alert metadata", err)
	}

	query := `UPDATE alerts SET title = $1, description = $2, severity = $3, status = $4,
		source_data = $5, acknowledged_at = $6, acknowledged_by_id = $7,
		resolved_at = $8, resolved_by_id = $9, suppressed_until = $10,
		metadata = $11, tags = $12, updated_at = $13
		WHERE id = $14`

	result, err := r.db.ExecContext(ctx, query,
		a.Title, a.Description, a.Severity, a.Status, sourceData,
		a.AcknowledgedAt, nullString(a.AcknowledgedByID),
		a.ResolvedAt, nullString(a.ResolvedByID), a.SuppressedUntil,
		metadata, pq.Array(a.Tags), a.UpdatedAt, a.ID,
	)
	if err != nil {
		return errors.DatabaseError("failed to update alert", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return errors.NotFound("alert")
	}
	return nil
}

// UpdateStatusIf applies the transition in memory, then persists it with a
// status guard in the WHERE clause so a concurrent transition loses cleanly.
func (r *AlertRepository) UpdateStatusIf(ctx context.Context, id string, from, to alert.Status, apply func(*alert.Alert)) (bool, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if a.Status != from {
		return false, nil
	}

	a.Status = to
	if apply != nil {
		apply(a)
	}
	a.UpdatedAt = time.Now()

	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return false, errors.DatabaseError("failed to encode alert metadata", err)
	}

	query := `UPDATE alerts SET status = $1, acknowledged_at = $2, acknowledged_by_id = $3,
		resolved_at = $4, resolved_by_id = $5, suppressed_until = $6, metadata = $7,
		updated_at = $8
		WHERE id = $9 AND status = $10`

	result, err := r.db.ExecContext(ctx, query,
		a.Status, a.AcknowledgedAt, nullString(a.AcknowledgedByID),
		a.ResolvedAt, nullString(a.ResolvedByID), a.SuppressedUntil,
		metadata, a.UpdatedAt, id, from,
	)
	if err != nil {
		return false, errors.DatabaseError("failed to transition alert", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("failed to transition alert", err)
	}
	return n > 0, nil
}

func (r *AlertRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM alerts WHERE id = $1", id)
	if err != nil {
		return errors.DatabaseError("failed to delete alert", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return errors.NotFound("alert")
	}
	return nil
}

func (r *AlertRepository) List(ctx context.Context, filter alert.Filter, limit, offset int) ([]*alert.Alert, int64, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		where = append(where, fmt.Sprintf("severity = $%d", len(args)))
	}
	if filter.SourceType != "" {
		args = append(args, filter.SourceType)
		where = append(where, fmt.Sprintf("source_type = $%d", len(args)))
	}
	if filter.SourceID != "" {
		args = append(args, filter.SourceID)
		where = append(where, fmt.Sprintf("source_id = $%d", len(args)))
	}
	if filter.RuleID != "" {
		args = append(args, filter.RuleID)
		where = append(where, fmt.Sprintf("rule_id = $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		where = append(where, fmt.Sprintf("triggered_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		where = append(where, fmt.Sprintf("triggered_at <= $%d", len(args)))
	}
	if len(filter.Tags) > 0 {
		args = append(args, pq.Array(filter.Tags))
		where = append(where, fmt.Sprintf("tags @> $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM alerts WHERE " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("failed to count alerts", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT `+alertColumns+` FROM alerts WHERE %s
		ORDER BY triggered_at DESC LIMIT $%d OFFSET $%d`,
		whereClause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("failed to list alerts", err)
	}
	defer rows.Close()

	var alerts []*alert.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("failed to scan alert", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.DatabaseError("failed to list alerts", err)
	}
	return alerts, total, nil
}

func (r *AlertRepository) ResolveOpenByRule(ctx context.Context, ruleID string, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET status = $1, resolved_at = $2, updated_at = $2
		WHERE rule_id = $3 AND status != $1`,
		alert.StatusResolved, at, ruleID,
	)
	if err != nil {
		return 0, errors.DatabaseError("failed to resolve alerts by rule", err)
	}
	return result.RowsAffected()
}

func (r *AlertRepository) ResolveOpenBySource(ctx context.Context, sourceType alert.SourceType, sourceID string, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET status = $1, resolved_at = $2, updated_at = $2
		WHERE source_type = $3 AND source_id = $4 AND status = $5`,
		alert.StatusResolved, at, sourceType, sourceID, alert.StatusOpen,
	)
	if err != nil {
		return 0, errors.DatabaseError("failed to resolve alerts by source", err)
	}
	return result.RowsAffected()
}

func (r *AlertRepository) UnsuppressExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET status = $1, suppressed_until = NULL, updated_at = $2
		WHERE status = $3 AND suppressed_until IS NOT NULL AND suppressed_until <= $2`,
		alert.StatusOpen, now, alert.StatusSuppressed,
	)
	if err != nil {
		return 0, errors.DatabaseError("failed to unsuppress alerts", err)
	}
	return result.RowsAffected()
}

func (r *AlertRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM alerts WHERE status = $1 AND updated_at < $2",
		alert.StatusResolved, cutoff,
	)
	if err != nil {
		return 0, errors.DatabaseError("failed to delete resolved alerts", err)
	}
	return result.RowsAffected()
}

func (r *AlertRepository) Statistics(ctx context.Context) (*alert.Statistics, error) {
	stats := &alert.Statistics{
		AlertsBySeverity: make(map[string]int64),
		AlertsByRuleType: make(map[string]int64),
	}

	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM alerts GROUP BY status")
	if err != nil {
		return nil, errors.DatabaseError("failed to aggregate alert statuses", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status alert.Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.DatabaseError("failed to scan alert statistics", err)
		}
		stats.TotalAlerts += count
		switch status {
		case alert.StatusOpen:
			stats.OpenAlerts = count
		case alert.StatusAcknowledged:
			stats.AcknowledgedAlerts = count
		case alert.StatusResolved:
			stats.ResolvedAlerts = count
		case alert.StatusSuppressed:
			stats.SuppressedAlerts = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed to aggregate alert statuses", err)
	}

	sevRows, err := r.db.QueryContext(ctx, "SELECT severity, COUNT(*) FROM alerts GROUP BY severity")
	if err != nil {
		return nil, errors.DatabaseError("failed to aggregate alert severities", err)
	}
	defer sevRows.Close()
	for sevRows.Next() {
		var severity string
		var count int64
		if err := sevRows.Scan(&severity, &count); err != nil {
			return nil, errors.DatabaseError("failed to scan alert statistics", err)
		}
		stats.AlertsBySeverity[severity] = count
	}
	if err := sevRows.Err(); err != nil {
		return nil, errors.DatabaseError("failed to aggregate alert severities", err)
	}

	typeRows, err := r.db.QueryContext(ctx,
		"SELECT COALESCE(metadata->>'rule_type', 'unknown'), COUNT(*) FROM alerts GROUP BY 1")
	if err != nil {
		return nil, errors.DatabaseError("failed to aggregate alert rule types", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var ruleType string
		var count int64
		if err := typeRows.Scan(&ruleType, &count); err != nil {
			return nil, errors.DatabaseError("failed to scan alert statistics", err)
		}
		stats.AlertsByRuleType[ruleType] = count
	}
	if err := typeRows.Err(); err != nil {
		return nil, errors.DatabaseError("failed to aggregate alert rule types", err)
	}

	return stats, nil
}

func scanAlert(row scanner) (*alert.Alert, error) {
	var a alert.Alert
	var ruleID, ackBy, resolvedBy sql.NullString
	var sourceData, metadata []byte
	var tags pq.StringArray

	err := row.Scan(
		&a.ID, &ruleID, &a.Title, &a.Description, &a.Severity, &a.Status,
		&a.SourceType, &a.SourceID, &sourceData, &a.TriggeredAt,
		&a.AcknowledgedAt, &ackBy, &a.ResolvedAt, &resolvedBy,
		&a.SuppressedUntil, &metadata, &tags, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.RuleID = ruleID.String
	a.AcknowledgedByID = ackBy.String
	a.ResolvedByID = resolvedBy.String
	a.Tags = tags
	if len(sourceData) > 0 {
		if err := json.Unmarshal(sourceData, &a.SourceData); err != nil {
			return nil, err
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return nil, err
		}
	}
	return &a, nil
}
