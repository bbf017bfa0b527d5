package models

import "time"

// ScheduleTemplate - недельный шаблон занятия
type ScheduleTemplate struct {
	ID         int64      `db:"id" json:"id"`
	ActivityID int64      `db:"activity_id" json:"activity_id"`
	PlaceID    int64      `db:"place_id" json:"place_id"`
	TeacherID  *int64     `db:"teacher_id" json:"teacher_id,omitempty"`
	Weekday    int        `db:"weekday" json:"weekday"`       // 0=воскресенье ... 6=суббота
	StartTime  string     `db:"start_time" json:"start_time"` // "18:00:00"
	EndTime    string     `db:"end_time" json:"end_time"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	CreatedBy  *int64     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt  *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`

	// Joined fields
	ActivityName string `db:"activity_name" json:"activity_name,omitempty"`
	PlaceName    string `db:"place_name" json:"place_name,omitempty"`
}
