package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

// AppendAudit добавляет запись в журнал аудита. Время записи ставит база.
func (s *Storage) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	const op = "storage.AppendAudit"

	payload := entry.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	query := `INSERT INTO audit_log (actor_id, action, target_table, target_id, payload)
			  VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.q(ctx).ExecContext(ctx, query,
		entry.ActorID, entry.Action, entry.TargetTable, entry.TargetID, []byte(payload)); err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return nil
}

// ListAudit возвращает записи журнала, новые первыми.
func (s *Storage) ListAudit(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	const op = "storage.ListAudit"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, actor_id, action, target_table, target_id, payload, created_at
			  FROM audit_log
			  ORDER BY id DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.q(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	defer rows.Close()

	var result []models.AuditEntry
	for rows.Next() {
		var (
			e       models.AuditEntry
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetTable, &e.TargetID, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		e.Payload = payload
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
