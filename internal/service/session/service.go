package session_service

import (
	"context"
	"strings"
	"time"

	"studio-admin/internal/apperr"
	"studio-admin/internal/metrics"
	"studio-admin/internal/models"
	"studio-admin/internal/models/config"
	"studio-admin/internal/repository"
	"studio-admin/internal/service"

	"go.uber.org/zap"
)

// transitions - допустимые смены статуса; closed конечный
var transitions = map[models.SessionStatus][]models.SessionStatus{
	models.SessionScheduled: {models.SessionHeld, models.SessionCancelled, models.SessionSuspended},
	models.SessionHeld:      {models.SessionClosed},
	models.SessionCancelled: {models.SessionClosed},
	models.SessionSuspended: {models.SessionClosed},
}

// CanTransition сообщает, можно ли перевести занятие из from в to
func CanTransition(from, to models.SessionStatus) bool {
	if from == to {
		return from != models.SessionClosed
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanMutateAttendance - правило записи посещаемости:
// групповые (fixed) только в статусе held, flexible - в scheduled или held.
func CanMutateAttendance(sess *models.Session) error {
	switch sess.ClassType {
	case models.ClassFlexible:
		if sess.Status == models.SessionScheduled || sess.Status == models.SessionHeld {
			return nil
		}
	default:
		if sess.Status == models.SessionHeld {
			return nil
		}
	}
	metrics.AttendanceRejected.Inc()
	return apperr.Forbidden("attendance of %s session %d cannot change while %s", classTypeOf(sess), sess.ID, sess.Status)
}

func classTypeOf(sess *models.Session) models.ClassType {
	if sess.ClassType == "" {
		return models.ClassFixed
	}
	return sess.ClassType
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	notifier    service.Notifier
	clock       service.Clock
	loc         *time.Location
	log         *zap.Logger
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	notifier service.Notifier,
	clock service.Clock,
	cfg *config.Config,
	log *zap.Logger,
) service.SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		notifier:    notifier,
		clock:       clock,
		loc:         cfg.Location(),
		log:         log.Named("session"),
	}
}

func (s *sessionService) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperr.Validation("from %s is after to %s", models.DateKey(*filter.From), models.DateKey(*filter.To))
	}
	return s.sessionRepo.List(ctx, filter)
}

func (s *sessionService) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	return s.sessionRepo.GetByID(ctx, id)
}

// CreateSession - разовое занятие вне шаблонов
func (s *sessionService) CreateSession(ctx context.Context, cmd service.CreateSessionCommand, actorID *int64) (*models.Session, error) {
	if err := service.Validate(cmd); err != nil {
		return nil, err
	}
	start, end, err := clockRange(cmd.StartTime, cmd.EndTime)
	if err != nil {
		return nil, err
	}

	sess := &models.Session{
		ActivityID:   cmd.ActivityID,
		PlaceID:      cmd.PlaceID,
		TeacherID:    cmd.TeacherID,
		Date:         service.DateOnly(cmd.Date),
		StartTime:    start,
		EndTime:      end,
		Status:       models.SessionScheduled,
		Observations: cmd.Observations,
		CreatedBy:    actorID,
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.log.Info("занятие создано",
		zap.Int64("session_id", sess.ID),
		zap.String("date", models.DateKey(sess.Date)),
	)
	return s.sessionRepo.GetByID(ctx, sess.ID)
}

// UpdateSession применяет команду: смену статуса, отмену, оплату преподавателю, перенос
func (s *sessionService) UpdateSession(ctx context.Context, id int64, cmd service.UpdateSessionCommand) (*models.Session, error) {
	if err := service.Validate(cmd); err != nil {
		return nil, err
	}

	current, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.SessionClosed {
		return nil, apperr.Forbidden("session %d is closed", id)
	}

	updated := *current
	if cmd.Date != nil {
		updated.Date = service.DateOnly(*cmd.Date)
	}
	if cmd.StartTime != nil || cmd.EndTime != nil {
		start, end := updated.StartTime, updated.EndTime
		if cmd.StartTime != nil {
			start = *cmd.StartTime
		}
		if cmd.EndTime != nil {
			end = *cmd.EndTime
		}
		if updated.StartTime, updated.EndTime, err = clockRange(start, end); err != nil {
			return nil, err
		}
	}
	if cmd.TeacherID != nil {
		updated.TeacherID = cmd.TeacherID
	}
	if cmd.Observations != nil {
		updated.Observations = *cmd.Observations
	}
	if cmd.CancellationReason != nil {
		reason := strings.TrimSpace(*cmd.CancellationReason)
		updated.CancellationReason = &reason
	}

	statusChanged := false
	if cmd.Status != nil {
		next := models.SessionStatus(*cmd.Status)
		if err := s.checkTransition(&updated, current.Status, next); err != nil {
			return nil, err
		}
		statusChanged = next != current.Status
		updated.Status = next
	}

	// проведённое занятие нельзя перенести в будущее
	rescheduled := !updated.Date.Equal(current.Date) || updated.StartTime != current.StartTime
	if updated.Status == models.SessionHeld && rescheduled && cmd.Status == nil {
		if err := s.checkStarted(&updated); err != nil {
			return nil, err
		}
	}

	if cmd.TeacherPaid != nil {
		updated.TeacherPaid = *cmd.TeacherPaid
		if !updated.TeacherPaid {
			updated.TeacherPaymentDate = nil
		}
	}
	if cmd.TeacherPaymentDate != nil {
		if !updated.TeacherPaid {
			return nil, apperr.Validation("teacher_payment_date requires teacher_paid")
		}
		paid := service.DateOnly(*cmd.TeacherPaymentDate)
		updated.TeacherPaymentDate = &paid
	}
	if updated.TeacherPaid && updated.TeacherPaymentDate == nil {
		today := s.clock.Today(s.loc)
		updated.TeacherPaymentDate = &today
	}

	if err := s.sessionRepo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	if statusChanged {
		metrics.SessionTransitions.WithLabelValues(string(updated.Status)).Inc()
		s.log.Info("статус занятия изменён",
			zap.Int64("session_id", id),
			zap.String("from", string(current.Status)),
			zap.String("to", string(updated.Status)),
		)
		if updated.Status == models.SessionCancelled || updated.Status == models.SessionSuspended {
			s.notifier.SessionStatusChanged(ctx, &updated)
		}
	}
	return &updated, nil
}

func (s *sessionService) checkTransition(sess *models.Session, from, to models.SessionStatus) error {
	if !CanTransition(from, to) {
		return apperr.Forbidden("session %d: %s -> %s", sess.ID, from, to)
	}

	switch to {
	case models.SessionHeld:
		return s.checkStarted(sess)
	case models.SessionCancelled, models.SessionSuspended:
		if sess.CancellationReason == nil || *sess.CancellationReason == "" {
			s.log.Warn("занятие отменено без причины",
				zap.Int64("session_id", sess.ID),
				zap.String("status", string(to)),
			)
		}
	}
	return nil
}

// checkStarted - занятие со статусом held должно уже начаться
func (s *sessionService) checkStarted(sess *models.Session) error {
	startsAt, err := service.StartsAt(sess.Date, sess.StartTime, s.loc)
	if err != nil {
		return apperr.Validation("%v", err)
	}
	if s.clock().Before(startsAt) {
		return apperr.Forbidden("session %d starts at %s and cannot be held yet", sess.ID, startsAt.Format(time.RFC3339))
	}
	return nil
}

func (s *sessionService) DeleteSession(ctx context.Context, id int64) error {
	if err := s.sessionRepo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.log.Info("занятие удалено", zap.Int64("session_id", id))
	return nil
}

func clockRange(startTime, endTime string) (string, string, error) {
	start, err := service.NormalizeClock(startTime)
	if err != nil {
		return "", "", err
	}
	end, err := service.NormalizeClock(endTime)
	if err != nil {
		return "", "", err
	}
	if end <= start {
		return "", "", apperr.Validation("end_time %s must be after start_time %s", end, start)
	}
	return start, end, nil
}
