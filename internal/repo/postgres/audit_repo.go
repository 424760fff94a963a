package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"talentr/internal/domain/onboarding"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepo struct {
	Pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{Pool: pool}
}

func (r *AuditRepo) Append(ctx context.Context, entry onboarding.AuditEntry) (onboarding.AuditEntry, error) {
	if r == nil || r.Pool == nil {
		return onboarding.AuditEntry{}, fmt.Errorf("db not configured")
	}
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return onboarding.AuditEntry{}, err
	}
	query := `
INSERT INTO audit_entries (actor_type, actor_id, action, target_type, target_id, details_json)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`
	row := r.Pool.QueryRow(ctx, query,
		entry.ActorType,
		entry.ActorID,
		string(entry.Action),
		entry.TargetType,
		entry.TargetID,
		details,
	)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return onboarding.AuditEntry{}, err
	}
	return entry, nil
}

func (r *AuditRepo) ListByTarget(ctx context.Context, targetType, targetID string) ([]onboarding.AuditEntry, error) {
	if r == nil || r.Pool == nil {
		return nil, fmt.Errorf("db not configured")
	}
	query := `
SELECT id, actor_type, actor_id, action, target_type, target_id, details_json, created_at
FROM audit_entries
WHERE target_type = $1 AND target_id = $2
ORDER BY created_at ASC, id ASC`
	rows, err := r.Pool.Query(ctx, query, targetType, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []onboarding.AuditEntry
	for rows.Next() {
		var entry onboarding.AuditEntry
		var action string
		var detailsBytes []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorType,
			&entry.ActorID,
			&action,
			&entry.TargetType,
			&entry.TargetID,
			&detailsBytes,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Action = onboarding.AuditAction(action)
		if len(detailsBytes) > 0 {
			if err := json.Unmarshal(detailsBytes, &entry.Details); err != nil {
				return nil, err
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
