package models

import "time"

type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionHeld      SessionStatus = "held"
	SessionCancelled SessionStatus = "cancelled"
	SessionSuspended SessionStatus = "suspended"
	SessionClosed    SessionStatus = "closed"
)

// ClassType берётся из активности занятия
type ClassType string

const (
	ClassFixed    ClassType = "fixed"    // групповые
	ClassFlexible ClassType = "flexible" // индивидуальные / совместные
)

// Session - конкретное занятие на дату
type Session struct {
	ID                 int64         `db:"id" json:"id"`
	TemplateID         *int64        `db:"template_id" json:"template_id,omitempty"`
	ActivityID         int64         `db:"activity_id" json:"activity_id"`
	PlaceID            int64         `db:"place_id" json:"place_id"`
	TeacherID          *int64        `db:"teacher_id" json:"teacher_id,omitempty"`
	Date               time.Time     `db:"session_date" json:"date"`
	OriginDate         *time.Time    `db:"origin_date" json:"origin_date,omitempty"`
	StartTime          string        `db:"start_time" json:"start_time"`
	EndTime            string        `db:"end_time" json:"end_time"`
	Status             SessionStatus `db:"status" json:"status"`
	CancellationReason *string       `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	Observations       string        `db:"observations" json:"observations"`
	TeacherPaid        bool          `db:"teacher_paid" json:"teacher_paid"`
	TeacherPaymentDate *time.Time    `db:"teacher_payment_date" json:"teacher_payment_date,omitempty"`
	CreatedBy          *int64        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
	DeletedAt          *time.Time    `db:"deleted_at" json:"deleted_at,omitempty"`

	// Joined fields
	ClassType    ClassType `db:"class_type" json:"class_type"`
	ActivityName string    `db:"activity_name" json:"activity_name,omitempty"`
	PlaceName    string    `db:"place_name" json:"place_name,omitempty"`
	TeacherName  string    `db:"teacher_name" json:"teacher_name,omitempty"`
}

// GeneratedFor - дата шаблона, по которой занятие было создано.
// Перенос меняет Date, но не OriginDate.
func (s *Session) GeneratedFor() time.Time {
	if s.OriginDate != nil {
		return *s.OriginDate
	}
	return s.Date
}

// DateKey ключ даты без времени, "2006-01-02"
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SessionFilter - фильтры списка занятий
type SessionFilter struct {
	From       *time.Time
	To         *time.Time
	ActivityID *int64
	PlaceID    *int64
	TeacherID  *int64
	ClassType  *ClassType
	Status     *SessionStatus
}
