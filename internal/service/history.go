package service

import (
	"context"
	"encoding/json"

	"studio-admin/internal/models"
	"studio-admin/internal/repository"

	"go.uber.org/zap"
)

// RecordHistory пишет снимки до/после; ошибка аудита не откатывает операцию
func RecordHistory(
	ctx context.Context,
	repo repository.HistoryRepository,
	log *zap.Logger,
	entity string,
	entityID int64,
	action string,
	before, after any,
	actorID *int64,
) {
	entry := &models.HistoryEntry{
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Before:   snapshot(before),
		After:    snapshot(after),
		ActorID:  actorID,
	}
	if err := repo.Record(ctx, entry); err != nil {
		log.Warn("не удалось записать историю",
			zap.String("entity", entity),
			zap.Int64("entity_id", entityID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
