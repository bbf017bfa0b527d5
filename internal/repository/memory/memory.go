// Package memory - in-memory реализация репозиториев для тестов и локальной отладки.
package memory

import (
	"sync"

	"studio-admin/internal/models"
)

// Store хранит все таблицы; репозитории - тонкие обёртки над ним
type Store struct {
	mu sync.RWMutex

	members       map[int64]models.Member
	activities    map[int64]activity
	places        map[int64]string
	subTypes      map[int64]models.SubscriptionType
	subscriptions map[int64]models.Subscription
	payments      []models.Payment
	templates     map[int64]models.ScheduleTemplate
	sessions      map[int64]models.Session
	attendance    map[attendanceKey]models.Attendance
	history       []models.HistoryEntry

	nextID int64

	// FailSessionCreateAfter > 0: n-я вставка занятия завершится ошибкой
	FailSessionCreateAfter int
	sessionCreates         int
}

type activity struct {
	name      string
	classType models.ClassType
}

type attendanceKey struct {
	memberID  int64
	sessionID int64
}

func NewStore() *Store {
	return &Store{
		members:       make(map[int64]models.Member),
		activities:    make(map[int64]activity),
		places:        make(map[int64]string),
		subTypes:      make(map[int64]models.SubscriptionType),
		subscriptions: make(map[int64]models.Subscription),
		templates:     make(map[int64]models.ScheduleTemplate),
		sessions:      make(map[int64]models.Session),
		attendance:    make(map[attendanceKey]models.Attendance),
	}
}

func (s *Store) newID() int64 {
	s.nextID++
	return s.nextID
}

// =============================================================================
// SEED HELPERS
// =============================================================================

func (s *Store) AddMember(m models.Member) models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		m.ID = s.newID()
	}
	s.members[m.ID] = m
	return m
}

func (s *Store) AddActivity(id int64, name string, classType models.ClassType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[id] = activity{name: name, classType: classType}
}

func (s *Store) AddPlace(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places[id] = name
}

func (s *Store) AddSubscriptionType(t models.SubscriptionType) models.SubscriptionType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.newID()
	}
	s.subTypes[t.ID] = t
	return t
}

func (s *Store) AddSubscription(sub models.Subscription) models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == 0 {
		sub.ID = s.newID()
	}
	if sub.Status == "" {
		sub.Status = models.SubscriptionActive
	}
	s.subscriptions[sub.ID] = sub
	return s.joinSubscription(sub)
}

func (s *Store) AddSession(sess models.Session) models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == 0 {
		sess.ID = s.newID()
	}
	if sess.Status == "" {
		sess.Status = models.SessionScheduled
	}
	s.sessions[sess.ID] = sess
	return s.joinSession(sess)
}

func (s *Store) AddAttendance(a models.Attendance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance[attendanceKey{a.MemberID, a.SessionID}] = a
}

// Payments - записанные оплаты
func (s *Store) Payments() []models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Payment(nil), s.payments...)
}

// AllSessions - все занятия, включая удалённые
func (s *Store) AllSessions() []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, s.joinSession(sess))
	}
	return out
}

// =============================================================================
// JOINS
// =============================================================================

func (s *Store) joinSession(sess models.Session) models.Session {
	if a, ok := s.activities[sess.ActivityID]; ok {
		sess.ActivityName = a.name
		sess.ClassType = a.classType
	} else {
		sess.ClassType = models.ClassFixed
	}
	sess.PlaceName = s.places[sess.PlaceID]
	if sess.TeacherID != nil {
		if m, ok := s.members[*sess.TeacherID]; ok {
			sess.TeacherName = m.FullName()
		}
	}
	return sess
}

func (s *Store) joinSubscription(sub models.Subscription) models.Subscription {
	if t, ok := s.subTypes[sub.SubscriptionTypeID]; ok {
		sub.TypeName = t.Name
		sub.WeeklyAllowance = t.ClassesPerWeek
		sub.Category = t.Category
	}
	return sub
}

func (s *Store) joinTemplate(t models.ScheduleTemplate) models.ScheduleTemplate {
	t.ActivityName = s.activities[t.ActivityID].name
	t.PlaceName = s.places[t.PlaceID]
	return t
}
