package history

import (
	"context"

	"studio-admin/internal/models"
	"studio-admin/internal/repository"

	"github.com/jmoiron/sqlx"
)

type historyRepository struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) repository.HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Record(ctx context.Context, e *models.HistoryEntry) error {
	query := `
		INSERT INTO studio.history (entity, entity_id, action, before_json, after_json, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		e.Entity,
		e.EntityID,
		e.Action,
		nullJSON(e.Before),
		nullJSON(e.After),
		e.ActorID,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *historyRepository) ListByEntity(ctx context.Context, entity string, entityID int64) ([]models.HistoryEntry, error) {
	query := `
		SELECT id, entity, entity_id, action,
		       COALESCE(before_json, 'null'::jsonb) AS before_json,
		       COALESCE(after_json, 'null'::jsonb) AS after_json,
		       actor_id, created_at
		FROM studio.history
		WHERE entity = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC
	`
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, entity, entityID); err != nil {
		return nil, err
	}
	return entries, nil
}

// nullJSON - пустой снимок пишем как NULL
func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
