package attendance_service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"studio-admin/internal/apperr"
	"studio-admin/internal/metrics"
	"studio-admin/internal/models"
	"studio-admin/internal/models/config"
	"studio-admin/internal/repository"
	"studio-admin/internal/service"
	session_service "studio-admin/internal/service/session"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type attendanceService struct {
	sessionRepo      repository.SessionRepository
	memberRepo       repository.MemberRepository
	subscriptionRepo repository.SubscriptionRepository
	attendanceRepo   repository.AttendanceRepository
	clock            service.Clock
	loc              *time.Location
	log              *zap.Logger
}

func NewAttendanceService(
	sessionRepo repository.SessionRepository,
	memberRepo repository.MemberRepository,
	subscriptionRepo repository.SubscriptionRepository,
	attendanceRepo repository.AttendanceRepository,
	clock service.Clock,
	cfg *config.Config,
	log *zap.Logger,
) service.AttendanceService {
	return &attendanceService{
		sessionRepo:      sessionRepo,
		memberRepo:       memberRepo,
		subscriptionRepo: subscriptionRepo,
		attendanceRepo:   attendanceRepo,
		clock:            clock,
		loc:              cfg.Location(),
		log:              log.Named("attendance"),
	}
}

// GetEligibleMembers - все ученики (без преподавателей) с абонементом и счётчиком посещений за неделю.
// Список не фильтруется по активности или месту занятия.
func (s *attendanceService) GetEligibleMembers(ctx context.Context, sessionID int64) ([]models.EligibilityRow, error) {
	if _, err := s.sessionRepo.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}

	students, err := s.memberRepo.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if len(students) == 0 {
		return []models.EligibilityRow{}, nil
	}

	ids := lo.Map(students, func(m models.Member, _ int) int64 { return m.ID })
	subs, err := s.subscriptionRepo.LatestByMember(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("latest subscriptions: %w", err)
	}

	var present []models.PresentMark
	if len(subs) > 0 {
		from, to := coveringWindow(lo.Values(subs))
		present, err = s.attendanceRepo.ListPresent(ctx, lo.Keys(subs), from, to)
		if err != nil {
			return nil, fmt.Errorf("present marks: %w", err)
		}
	}

	marks, err := s.attendanceRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session marks: %w", err)
	}

	return BuildRoster(students, subs, present, marks, s.clock.Today(s.loc)), nil
}

// coveringWindow - наименьший интервал, покрывающий окна всех абонементов
func coveringWindow(subs []models.Subscription) (time.Time, time.Time) {
	from := lo.MinBy(subs, func(a, b models.Subscription) bool { return a.StartDate.Before(b.StartDate) }).StartDate
	to := lo.MaxBy(subs, func(a, b models.Subscription) bool { return a.ExpiryDate.After(b.ExpiryDate) }).ExpiryDate
	return from, to
}

// BuildRoster собирает строки списка в порядке students.
// Неделя считается по ISO (с понедельника) относительно today, прижатого к окну абонемента;
// учитываются только присутствия внутри окна.
func BuildRoster(
	students []models.Member,
	subs map[int64]models.Subscription,
	present []models.PresentMark,
	marks []models.Attendance,
	today time.Time,
) []models.EligibilityRow {
	presentByMember := lo.GroupBy(present, func(p models.PresentMark) int64 { return p.MemberID })
	markByMember := lo.KeyBy(marks, func(a models.Attendance) int64 { return a.MemberID })

	rows := make([]models.EligibilityRow, 0, len(students))
	for _, m := range students {
		if m.IsTeacher {
			continue
		}
		row := models.EligibilityRow{
			MemberID:             m.ID,
			MemberName:           m.FullName(),
			SubscriptionTypeName: models.NoActiveSubscription,
		}
		if mark, ok := markByMember[m.ID]; ok {
			p := mark.Present
			row.Present = &p
		}

		if sub, ok := subs[m.ID]; ok {
			subID := sub.ID
			row.SubscriptionID = &subID
			row.SubscriptionTypeName = sub.TypeName
			row.WeeklyAllowance = sub.WeeklyAllowance
			row.Quantity = sub.Quantity
			row.Category = sub.Category
			row.AttendedThisWeek = countWeek(&sub, presentByMember[m.ID], referenceDay(&sub, today))
			row.LimitReached = row.WeeklyAllowance > 0 && row.AttendedThisWeek >= row.WeeklyAllowance
		}
		rows = append(rows, row)
	}
	return rows
}

// referenceDay прижимает today к [start, expiry] абонемента
func referenceDay(sub *models.Subscription, today time.Time) time.Time {
	day := models.DateKey(today)
	switch {
	case day < models.DateKey(sub.StartDate):
		return sub.StartDate
	case day > models.DateKey(sub.ExpiryDate):
		return sub.ExpiryDate
	}
	return today
}

func countWeek(sub *models.Subscription, present []models.PresentMark, ref time.Time) int {
	refYear, refWeek := ref.ISOWeek()
	return lo.CountBy(present, func(p models.PresentMark) bool {
		if !sub.Covers(p.SessionDate) {
			return false
		}
		y, w := p.SessionDate.ISOWeek()
		return y == refYear && w == refWeek
	})
}

// SetAttendance записывает пакет отметок. Правило статуса/типа занятия
// перепроверяется репозиторием под блокировкой строки занятия.
func (s *attendanceService) SetAttendance(ctx context.Context, sessionID int64, actorID *int64, marks []models.AttendanceMark) error {
	if len(marks) == 0 {
		return apperr.Validation("attendance list is empty")
	}

	var errs error
	seen := make(map[int64]struct{}, len(marks))
	for i, mark := range marks {
		if err := service.Validate(mark); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("marks[%d]: %w", i, err))
			continue
		}
		if _, dup := seen[mark.MemberID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("marks[%d]: member %d listed twice", i, mark.MemberID))
		}
		seen[mark.MemberID] = struct{}{}
	}
	if errs != nil {
		return apperr.Validation("%s", errs.Error())
	}

	for _, mark := range marks {
		member, err := s.memberRepo.GetByID(ctx, mark.MemberID)
		if err != nil {
			return err
		}
		if member.IsTeacher {
			return apperr.Validation("member %d is a teacher and cannot be marked", mark.MemberID)
		}
	}

	if err := s.attendanceRepo.UpsertBatch(ctx, sessionID, actorID, marks, session_service.CanMutateAttendance); err != nil {
		return err
	}

	for _, mark := range marks {
		metrics.AttendanceMarks.WithLabelValues(strconv.FormatBool(mark.Present)).Inc()
	}
	s.log.Info("посещаемость записана",
		zap.Int64("session_id", sessionID),
		zap.Int("marks", len(marks)),
		zap.Int("present", lo.CountBy(marks, func(m models.AttendanceMark) bool { return m.Present })),
	)
	return nil
}

func (s *attendanceService) RemoveAttendance(ctx context.Context, sessionID, memberID int64) error {
	if err := s.attendanceRepo.Delete(ctx, sessionID, memberID, session_service.CanMutateAttendance); err != nil {
		return err
	}
	s.log.Info("отметка удалена", zap.Int64("session_id", sessionID), zap.Int64("member_id", memberID))
	return nil
}

func (s *attendanceService) GetStats(ctx context.Context, sessionID int64) (models.AttendanceStats, error) {
	if _, err := s.sessionRepo.GetByID(ctx, sessionID); err != nil {
		return models.AttendanceStats{}, err
	}
	return s.attendanceRepo.Stats(ctx, sessionID)
}
