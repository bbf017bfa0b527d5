package models

import "time"

// Attendance - отметка посещения (member, session)
type Attendance struct {
	MemberID   int64     `db:"member_id" json:"member_id"`
	SessionID  int64     `db:"session_id" json:"session_id"`
	Present    bool      `db:"present" json:"present"`
	RecordedBy *int64    `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceMark - одна отметка из пакета
type AttendanceMark struct {
	MemberID int64 `json:"member_id" validate:"required,gt=0"`
	Present  bool  `json:"present"`
}

// EligibilityRow - строка списка учеников для отметки
type EligibilityRow struct {
	MemberID             int64  `json:"member_id"`
	MemberName           string `json:"member_name"`
	SubscriptionID       *int64 `json:"subscription_id,omitempty"`
	SubscriptionTypeName string `json:"subscription_type_name"`
	WeeklyAllowance      int    `json:"weekly_allowance"`
	Quantity             int    `json:"quantity"`
	Category             string `json:"category"`
	AttendedThisWeek     int    `json:"attended_this_week"`
	Present              *bool  `json:"present"` // nil - отметки ещё нет
	LimitReached         bool   `json:"limit_reached"`
}

// AttendanceStats - сводка по занятию
type AttendanceStats struct {
	Present int `db:"present" json:"present"`
	Absent  int `db:"absent" json:"absent"`
	Total   int `db:"total" json:"total"`
}

// PresentMark - присутствие ученика на неудалённом занятии
type PresentMark struct {
	MemberID    int64     `db:"member_id"`
	SessionDate time.Time `db:"session_date"`
}
