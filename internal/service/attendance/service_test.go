package attendance_service

import (
	"context"
	"testing"
	"time"

	"studio-admin/internal/apperr"
	"studio-admin/internal/models"
	"studio-admin/internal/models/config"
	"studio-admin/internal/repository/memory"
	"studio-admin/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

func date(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

type AttendanceServiceSuite struct {
	suite.Suite
	ctx   context.Context
	store *memory.Store
	svc   service.AttendanceService

	teacher, ana, bruno, carla models.Member
	past, monday, tuesday      models.Session
	wednesday, thursday        models.Session
}

func TestAttendanceService(t *testing.T) {
	suite.Run(t, new(AttendanceServiceSuite))
}

func (s *AttendanceServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.store.AddActivity(1, "Yoga", models.ClassFixed)
	s.store.AddActivity(2, "Particular", models.ClassFlexible)

	twice := s.store.AddSubscriptionType(models.SubscriptionType{Name: "2x semana", ClassesPerWeek: 2, Category: "adultos"})
	once := s.store.AddSubscriptionType(models.SubscriptionType{Name: "1x semana", ClassesPerWeek: 1, Category: "adultos"})

	s.teacher = s.store.AddMember(models.Member{FirstName: "Tomás", LastName: "Ruiz", IsTeacher: true})
	s.carla = s.store.AddMember(models.Member{FirstName: "Carla", LastName: "Paz"})
	s.bruno = s.store.AddMember(models.Member{FirstName: "Bruno", LastName: "Díaz"})
	s.ana = s.store.AddMember(models.Member{FirstName: "Ana", LastName: "Gómez"})

	s.store.AddSubscription(models.Subscription{
		MemberID: s.ana.ID, SubscriptionTypeID: twice.ID, Quantity: 8,
		StartDate: date(time.June, 1), ExpiryDate: date(time.June, 30),
	})
	s.store.AddSubscription(models.Subscription{
		MemberID: s.bruno.ID, SubscriptionTypeID: once.ID, Quantity: 4,
		StartDate: date(time.June, 1), ExpiryDate: date(time.June, 30),
	})
	// преподаватель с абонементом всё равно не попадает в список
	s.store.AddSubscription(models.Subscription{
		MemberID: s.teacher.ID, SubscriptionTypeID: twice.ID,
		StartDate: date(time.June, 1), ExpiryDate: date(time.June, 30),
	})

	held := func(d time.Time) models.Session {
		return s.store.AddSession(models.Session{ActivityID: 1, Date: d, StartTime: "18:00:00", EndTime: "19:00:00", Status: models.SessionHeld})
	}
	s.past = held(date(time.June, 3))
	s.monday = held(date(time.June, 10))
	s.tuesday = held(date(time.June, 11))
	s.wednesday = s.store.AddSession(models.Session{ActivityID: 1, Date: date(time.June, 12), StartTime: "18:00:00", EndTime: "19:00:00"})
	s.thursday = s.store.AddSession(models.Session{ActivityID: 2, Date: date(time.June, 13), StartTime: "10:00:00", EndTime: "11:00:00"})

	// среда, 12 июня 2024: ISO-неделя 10-16 июня
	clock := func() time.Time { return time.Date(2024, time.June, 12, 12, 0, 0, 0, time.UTC) }
	s.svc = NewAttendanceService(
		s.store.Sessions(),
		s.store.Members(),
		s.store.Subscriptions(),
		s.store.Attendance(),
		clock,
		&config.Config{Timezone: "UTC"},
		zap.NewNop(),
	)
}

func (s *AttendanceServiceSuite) present(sess models.Session, member models.Member) {
	s.store.AddAttendance(models.Attendance{MemberID: member.ID, SessionID: sess.ID, Present: true})
}

func (s *AttendanceServiceSuite) rowFor(rows []models.EligibilityRow, memberID int64) models.EligibilityRow {
	for _, r := range rows {
		if r.MemberID == memberID {
			return r
		}
	}
	s.FailNow("member not in roster", "member %d", memberID)
	return models.EligibilityRow{}
}

func (s *AttendanceServiceSuite) TestRosterExcludesTeachersAndSortsByName() {
	rows, err := s.svc.GetEligibleMembers(s.ctx, s.wednesday.ID)
	s.Require().NoError(err)
	s.Require().Len(rows, 3)

	s.Equal("Ana Gómez", rows[0].MemberName)
	s.Equal("Bruno Díaz", rows[1].MemberName)
	s.Equal("Carla Paz", rows[2].MemberName)
	for _, r := range rows {
		s.NotEqual(s.teacher.ID, r.MemberID)
	}

	carla := rows[2]
	s.Nil(carla.SubscriptionID)
	s.Equal(models.NoActiveSubscription, carla.SubscriptionTypeName)
	s.Zero(carla.WeeklyAllowance)
	s.False(carla.LimitReached)
	s.Nil(carla.Present)
}

func (s *AttendanceServiceSuite) TestWeeklyCapReached() {
	s.present(s.past, s.ana) // прошлая неделя
	s.present(s.monday, s.ana)
	s.present(s.tuesday, s.ana)

	rows, err := s.svc.GetEligibleMembers(s.ctx, s.wednesday.ID)
	s.Require().NoError(err)

	ana := s.rowFor(rows, s.ana.ID)
	s.Equal(2, ana.WeeklyAllowance)
	s.Equal(2, ana.AttendedThisWeek)
	s.True(ana.LimitReached)
	s.Equal("2x semana", ana.SubscriptionTypeName)
	s.Equal("adultos", ana.Category)
	s.Equal(8, ana.Quantity)
}

func (s *AttendanceServiceSuite) TestSingleAllowanceScenario() {
	rows, err := s.svc.GetEligibleMembers(s.ctx, s.wednesday.ID)
	s.Require().NoError(err)
	bruno := s.rowFor(rows, s.bruno.ID)
	s.Equal(0, bruno.AttendedThisWeek)
	s.False(bruno.LimitReached)

	marks := []models.AttendanceMark{{MemberID: s.bruno.ID, Present: true}}

	// групповое занятие в статусе scheduled закрыто для отметок
	err = s.svc.SetAttendance(s.ctx, s.wednesday.ID, nil, marks)
	s.ErrorIs(err, apperr.ErrForbiddenTransition)

	wed := s.wednesday
	wed.Status = models.SessionHeld
	s.Require().NoError(s.store.Sessions().Update(s.ctx, &wed))

	actor := s.teacher.ID
	s.Require().NoError(s.svc.SetAttendance(s.ctx, s.wednesday.ID, &actor, marks))

	rows, err = s.svc.GetEligibleMembers(s.ctx, s.wednesday.ID)
	s.Require().NoError(err)
	bruno = s.rowFor(rows, s.bruno.ID)
	s.Require().NotNil(bruno.Present)
	s.True(*bruno.Present)
	s.Equal(1, bruno.AttendedThisWeek)

	rows, err = s.svc.GetEligibleMembers(s.ctx, s.thursday.ID)
	s.Require().NoError(err)
	bruno = s.rowFor(rows, s.bruno.ID)
	s.Nil(bruno.Present)
	s.Equal(1, bruno.AttendedThisWeek)
	s.True(bruno.LimitReached)
}

func (s *AttendanceServiceSuite) TestFlexibleSessionAcceptsScheduled() {
	err := s.svc.SetAttendance(s.ctx, s.thursday.ID, nil, []models.AttendanceMark{
		{MemberID: s.ana.ID, Present: true},
		{MemberID: s.carla.ID, Present: false},
	})
	s.Require().NoError(err)

	stats, err := s.svc.GetStats(s.ctx, s.thursday.ID)
	s.Require().NoError(err)
	s.Equal(models.AttendanceStats{Present: 1, Absent: 1, Total: 2}, stats)

	// повторная отметка перезаписывает
	s.Require().NoError(s.svc.SetAttendance(s.ctx, s.thursday.ID, nil, []models.AttendanceMark{{MemberID: s.carla.ID, Present: true}}))
	stats, err = s.svc.GetStats(s.ctx, s.thursday.ID)
	s.Require().NoError(err)
	s.Equal(models.AttendanceStats{Present: 2, Absent: 0, Total: 2}, stats)

	s.Require().NoError(s.svc.RemoveAttendance(s.ctx, s.thursday.ID, s.carla.ID))
	s.True(apperr.IsNotFound(s.svc.RemoveAttendance(s.ctx, s.thursday.ID, s.carla.ID)))
}

func (s *AttendanceServiceSuite) TestSetAttendanceValidation() {
	err := s.svc.SetAttendance(s.ctx, s.monday.ID, nil, nil)
	s.True(apperr.IsValidation(err))

	err = s.svc.SetAttendance(s.ctx, s.monday.ID, nil, []models.AttendanceMark{
		{MemberID: 0, Present: true},
		{MemberID: s.ana.ID, Present: true},
		{MemberID: s.ana.ID, Present: false},
	})
	s.Require().Error(err)
	s.True(apperr.IsValidation(err))
	s.Contains(err.Error(), "marks[0]")
	s.Contains(err.Error(), "listed twice")

	err = s.svc.SetAttendance(s.ctx, s.monday.ID, nil, []models.AttendanceMark{{MemberID: s.teacher.ID, Present: true}})
	s.True(apperr.IsValidation(err))

	err = s.svc.SetAttendance(s.ctx, s.monday.ID, nil, []models.AttendanceMark{{MemberID: 999, Present: true}})
	s.True(apperr.IsNotFound(err))

	err = s.svc.SetAttendance(s.ctx, 999, nil, []models.AttendanceMark{{MemberID: s.ana.ID, Present: true}})
	s.True(apperr.IsNotFound(err))
}

func (s *AttendanceServiceSuite) TestClosedSessionIsImmutable() {
	s.present(s.monday, s.ana)
	mon := s.monday
	mon.Status = models.SessionClosed
	s.Require().NoError(s.store.Sessions().Update(s.ctx, &mon))

	err := s.svc.SetAttendance(s.ctx, s.monday.ID, nil, []models.AttendanceMark{{MemberID: s.ana.ID, Present: false}})
	s.ErrorIs(err, apperr.ErrForbiddenTransition)
	s.ErrorIs(s.svc.RemoveAttendance(s.ctx, s.monday.ID, s.ana.ID), apperr.ErrForbiddenTransition)
}

func (s *AttendanceServiceSuite) TestUnknownSession() {
	_, err := s.svc.GetEligibleMembers(s.ctx, 999)
	s.True(apperr.IsNotFound(err))
	_, err = s.svc.GetStats(s.ctx, 999)
	s.True(apperr.IsNotFound(err))
}

func TestBuildRosterClampsReferenceToWindow(t *testing.T) {
	students := []models.Member{{ID: 1, FirstName: "Eva"}}
	subs := map[int64]models.Subscription{
		1: {ID: 10, MemberID: 1, WeeklyAllowance: 3, StartDate: date(time.May, 1), ExpiryDate: date(time.May, 31)},
	}
	// неделя 27 мая - 2 июня; 1 июня вне окна абонемента
	present := []models.PresentMark{
		{MemberID: 1, SessionDate: date(time.May, 20)},
		{MemberID: 1, SessionDate: date(time.May, 28)},
		{MemberID: 1, SessionDate: date(time.May, 30)},
		{MemberID: 1, SessionDate: date(time.June, 1)},
		{MemberID: 1, SessionDate: date(time.June, 10)},
	}

	rows := BuildRoster(students, subs, present, nil, date(time.June, 12))
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].AttendedThisWeek)
	assert.False(t, rows[0].LimitReached)
	require.NotNil(t, rows[0].SubscriptionID)
	assert.Equal(t, int64(10), *rows[0].SubscriptionID)
}

func TestBuildRosterZeroAllowanceNeverLimits(t *testing.T) {
	students := []models.Member{{ID: 1, FirstName: "Eva"}}
	subs := map[int64]models.Subscription{
		1: {ID: 10, MemberID: 1, StartDate: date(time.June, 1), ExpiryDate: date(time.June, 30)},
	}
	present := []models.PresentMark{{MemberID: 1, SessionDate: date(time.June, 11)}}

	rows := BuildRoster(students, subs, present, nil, date(time.June, 12))
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttendedThisWeek)
	assert.False(t, rows[0].LimitReached)
}
