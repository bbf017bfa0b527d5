package models

import "time"

type Member struct {
	ID         int64      `db:"id" json:"id"`
	FirstName  string     `db:"first_name" json:"first_name"`
	LastName   string     `db:"last_name" json:"last_name"`
	IsTeacher  bool       `db:"is_teacher" json:"is_teacher"`
	TelegramID *int64     `db:"telegram_id" json:"telegram_id,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	DeletedAt  *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// FullName "Имя Фамилия", как в запросах (first_name || ' ' || last_name)
func (m *Member) FullName() string {
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}
