package models

import (
	"encoding/json"
	"time"
)

const (
	HistoryCreate = "CREATE"
	HistoryUpdate = "UPDATE"
	HistoryDelete = "DELETE"
)

// HistoryEntry - запись аудита (снимки до/после в JSON)
type HistoryEntry struct {
	ID        int64           `db:"id" json:"id"`
	Entity    string          `db:"entity" json:"entity"`
	EntityID  int64           `db:"entity_id" json:"entity_id"`
	Action    string          `db:"action" json:"action"`
	Before    json.RawMessage `db:"before_json" json:"before,omitempty"`
	After     json.RawMessage `db:"after_json" json:"after,omitempty"`
	ActorID   *int64          `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
