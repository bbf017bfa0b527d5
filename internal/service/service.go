package service

import (
	"context"
	"time"

	"studio-admin/internal/models"
)

// ///шаблоны и генерация занятий................................
type ScheduleService interface {
	ListTemplates(ctx context.Context, activeOnly bool) ([]models.ScheduleTemplate, error)
	GetTemplate(ctx context.Context, id int64) (*models.ScheduleTemplate, error)
	CreateTemplate(ctx context.Context, cmd TemplateCommand, actorID *int64) (*models.ScheduleTemplate, error)
	UpdateTemplate(ctx context.Context, id int64, cmd TemplateCommand, actorID *int64) (*models.ScheduleTemplate, error)
	SetTemplateActive(ctx context.Context, id int64, active bool, actorID *int64) error
	DeleteTemplate(ctx context.Context, id int64, actorID *int64) error

	// GenerateSessions разворачивает активные шаблоны в занятия на [start, end]
	GenerateSessions(ctx context.Context, cmd GenerateCommand) ([]models.Session, error)
}

// ...............................
type SessionService interface {
	ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	GetSession(ctx context.Context, id int64) (*models.Session, error)
	CreateSession(ctx context.Context, cmd CreateSessionCommand, actorID *int64) (*models.Session, error)
	UpdateSession(ctx context.Context, id int64, cmd UpdateSessionCommand) (*models.Session, error)
	DeleteSession(ctx context.Context, id int64) error
}

type AttendanceService interface {
	GetEligibleMembers(ctx context.Context, sessionID int64) ([]models.EligibilityRow, error)
	SetAttendance(ctx context.Context, sessionID int64, actorID *int64, marks []models.AttendanceMark) error
	RemoveAttendance(ctx context.Context, sessionID, memberID int64) error
	GetStats(ctx context.Context, sessionID int64) (models.AttendanceStats, error)
}

type SubscriptionService interface {
	ListByMember(ctx context.Context, memberID int64) ([]models.Subscription, error)
	CreateSubscription(ctx context.Context, cmd CreateSubscriptionCommand, actorID *int64) (*models.Subscription, error)
	RenewSubscription(ctx context.Context, id int64, actorID *int64) (*models.Subscription, error)
	ListExpiring(ctx context.Context, withinDays int) ([]models.Subscription, error)
	DeleteSubscription(ctx context.Context, id int64, actorID *int64) error
}

// Notifier - уведомления администраторам (Telegram или no-op)
type Notifier interface {
	SessionsGenerated(ctx context.Context, from, to time.Time, sessions []models.Session)
	SessionStatusChanged(ctx context.Context, session *models.Session)
}

// Clock возвращает текущее время; подменяется в тестах
type Clock func() time.Time

// Today - текущая дата в часовом поясе студии (00:00, UTC-метка дня)
func (c Clock) Today(loc *time.Location) time.Time {
	now := c().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// NopNotifier используется, когда бот не настроен
type NopNotifier struct{}

func (NopNotifier) SessionsGenerated(context.Context, time.Time, time.Time, []models.Session) {}
func (NopNotifier) SessionStatusChanged(context.Context, *models.Session)                     {}
