package repository

import (
	"context"
	"time"

	"studio-admin/internal/models"
)

type MemberRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Member, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.Member, error)
	// ListStudents - все неудалённые участники, кроме преподавателей, по имени
	ListStudents(ctx context.Context) ([]models.Member, error)
}

type ScheduleTemplateRepository interface {
	GetAllActive(ctx context.Context) ([]models.ScheduleTemplate, error)
	List(ctx context.Context, activeOnly bool) ([]models.ScheduleTemplate, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduleTemplate, error)
	Create(ctx context.Context, template *models.ScheduleTemplate) error
	Update(ctx context.Context, template *models.ScheduleTemplate) error
	SetActive(ctx context.Context, id int64, active bool) error
	SoftDelete(ctx context.Context, id int64) error
}

type SessionRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	// ListByDateRange - неудалённые занятия с датой в [from, to]
	ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	// CreateGenerated вставляет занятие из шаблона; false, если (шаблон, дата) уже заняты
	CreateGenerated(ctx context.Context, session *models.Session) (bool, error)
	Update(ctx context.Context, session *models.Session) error
	SoftDelete(ctx context.Context, id int64) error
}

// AttendanceGate решает, можно ли менять посещаемость занятия.
// Вызывается внутри транзакции записи, строка занятия заблокирована.
type AttendanceGate func(session *models.Session) error

type AttendanceRepository interface {
	ListBySession(ctx context.Context, sessionID int64) ([]models.Attendance, error)
	// ListPresent - отметки present=true на неудалённых занятиях в [from, to]
	ListPresent(ctx context.Context, memberIDs []int64, from, to time.Time) ([]models.PresentMark, error)
	// UpsertBatch перепроверяет gate и пишет все отметки в одной транзакции
	UpsertBatch(ctx context.Context, sessionID int64, recordedBy *int64, marks []models.AttendanceMark, gate AttendanceGate) error
	Delete(ctx context.Context, sessionID, memberID int64, gate AttendanceGate) error
	Stats(ctx context.Context, sessionID int64) (models.AttendanceStats, error)
	CountInWindow(ctx context.Context, memberID int64, from, to time.Time) (int, error)
}

type SubscriptionRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Subscription, error)
	ListByMember(ctx context.Context, memberID int64) ([]models.Subscription, error)
	// LatestByMember - для каждого участника абонемент с самой поздней датой окончания
	LatestByMember(ctx context.Context, memberIDs []int64) (map[int64]models.Subscription, error)
	ListExpiring(ctx context.Context, from, to time.Time) ([]models.Subscription, error)
	// CreateWithPayment создаёт абонемент и (если payment != nil) оплату в одной транзакции
	CreateWithPayment(ctx context.Context, sub *models.Subscription, payment *models.Payment) error
	SoftDelete(ctx context.Context, id int64) error
	GetType(ctx context.Context, id int64) (*models.SubscriptionType, error)
}

type HistoryRepository interface {
	Record(ctx context.Context, entry *models.HistoryEntry) error
	ListByEntity(ctx context.Context, entity string, entityID int64) ([]models.HistoryEntry, error)
}
