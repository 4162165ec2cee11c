package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/peerwatch/peerwatch/internal/domain/rule"
	"github.com/peerwatch/peerwatch/internal/pkg/errors"
)

type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) rule.Repository {
	return &RuleRepository{db: db}
}

const ruleColumns = `id, name, description, rule_type, severity, conditions, is_enabled,
	notification_channels, created_by_id, evaluation_count, trigger_count,
	last_evaluated_at, created_at, updated_at`

func (r *RuleRepository) Create(ctx context.Context, ru *rule.Rule) error {
	conditions, err := json.Marshal(ru.Conditions)
	if err != nil {
		return errors.DatabaseError("failed to encode rule conditions", err)
	}

	query := `INSERT INTO alert_rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.ExecContext(ctx, query,
		ru.ID, ru.Name, ru.Description, ru.RuleType, ru.Severity, conditions,
		ru.IsEnabled, pq.Array(ru.NotificationChannels), nullString(ru.CreatedByID),
		ru.EvaluationCount, ru.TriggerCount, ru.LastEvaluatedAt,
		ru.CreatedAt, ru.UpdatedAt,
	)
	if err != nil {
		return errors.DatabaseError("failed to create rule", err)
	}
	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*rule.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM alert_rules WHERE id = $1`
	ru, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("rule")
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get rule", err)
	}
	return ru, nil
}

func (r *RuleRepository) Update(ctx context.Context, ru *rule.Rule) error {
	conditions, err := json.Marshal(ru.Conditions)
	if err != nil {
		return errors.DatabaseError("failed to encode rule conditions", err)
	}

	query := `UPDATE alert_rules SET name = $1, description = $2, severity = $3,
		conditions = $4, is_enabled = $5, notification_channels = $6, updated_at = $7
		WHERE id = $8`

	result, err := r.db.ExecContext(ctx, query,
		ru.Name, ru.Description, ru.Severity, conditions, ru.IsEnabled,
		pq.Array(ru.NotificationChannels), ru.UpdatedAt, ru.ID,
	)
	if err != nil {
		return errors.DatabaseError("failed to update rule", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return errors.NotFound("rule")
	}
	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM alert_rules WHERE id = $1", id)
	if err != nil {
		return errors.DatabaseError("failed to delete rule", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return errors.NotFound("rule")
	}
	return nil
}

func (r *RuleRepository) List(ctx context.Context, filter rule.Filter) ([]*rule.Rule, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.RuleType != "" {
		args = append(args, filter.RuleType)
		where = append(where, fmt.Sprintf("rule_type = $%d", len(args)))
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		where = append(where, fmt.Sprintf("severity = $%d", len(args)))
	}
	if filter.Enabled != nil {
		args = append(args, *filter.Enabled)
		where = append(where, fmt.Sprintf("is_enabled = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT `+ruleColumns+` FROM alert_rules WHERE %s ORDER BY created_at DESC`,
		strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("failed to list rules", err)
	}
	defer rows.Close()

	var rules []*rule.Rule
	for rows.Next() {
		ru, err := scanRule(rows)
		if err != nil {
			return nil, errors.DatabaseError("failed to scan rule", err)
		}
		rules = append(rules, ru)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed to list rules", err)
	}
	return rules, nil
}

func (r *RuleRepository) ListEnabled(ctx context.Context) ([]*rule.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM alert_rules WHERE is_enabled = true
		ORDER BY CASE severity
			WHEN 'critical' THEN 0
			WHEN 'high' THEN 1
			WHEN 'medium' THEN 2
			ELSE 3
		END, created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.DatabaseError("failed to list enabled rules", err)
	}
	defer rows.Close()

	var rules []*rule.Rule
	for rows.Next() {
		ru, err := scanRule(rows)
		if err != nil {
			return nil, errors.DatabaseError("failed to scan rule", err)
		}
		rules = append(rules, ru)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed to list enabled rules", err)
	}
	return rules, nil
}

func (r *RuleRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alert_rules SET is_enabled = $1, updated_at = NOW() WHERE id = $2",
		enabled, id,
	)
	if err != nil {
		return errors.DatabaseError("failed to update rule", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return errors.NotFound("rule")
	}
	return nil
}

func (r *RuleRepository) RecordEvaluation(ctx context.Context, id string, at time.Time, triggered int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE alert_rules SET evaluation_count = evaluation_count + 1,
			trigger_count = trigger_count + $1, last_evaluated_at = $2
		WHERE id = $3`,
		triggered, at, id,
	)
	if err != nil {
		return errors.DatabaseError("failed to record rule evaluation", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row scanner) (*rule.Rule, error) {
	var ru rule.Rule
	var conditions []byte
	var channels pq.StringArray
	var createdBy sql.NullString

	err := row.Scan(
		&ru.ID, &ru.Name, &ru.Description, &ru.RuleType, &ru.Severity, &conditions,
		&ru.IsEnabled, &channels, &createdBy, &ru.EvaluationCount, &ru.TriggerCount,
		&ru.LastEvaluatedAt, &ru.CreatedAt, &ru.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &ru.Conditions); err != nil {
			return nil, err
		}
	}
	ru.NotificationChannels = channels
	ru.CreatedByID = createdBy.String
	return &ru, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
