package repository

import (
	"context"

	"github.com/spec-kit/request-desk/internal/domain"
)

// AuditRepository appends and reads audit entries. There is no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	db DB
}

// NewAuditRepository builds repository.
func NewAuditRepository(db DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_entries (entity_type, entity_id, kind, field, old_value, new_value, actor_id, note)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		entry.EntityType,
		entry.EntityID,
		entry.Kind,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.ActorID,
		entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.AuditEntry, error) {
	const query = `
        SELECT id, entity_type, entity_id, kind, field, old_value, new_value, actor_id, note, created_at
        FROM audit_entries WHERE entity_type=$1 AND entity_id=$2 ORDER BY created_at ASC, id ASC`
	rows, err := conn(ctx, r.db).Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(
			&e.ID,
			&e.EntityType,
			&e.EntityID,
			&e.Kind,
			&e.Field,
			&e.OldValue,
			&e.NewValue,
			&e.ActorID,
			&e.Note,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
