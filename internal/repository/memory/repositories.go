package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"studio-admin/internal/apperr"
	"studio-admin/internal/models"
	"studio-admin/internal/repository"
)

// ErrInjected - ошибка, подставляемая FailSessionCreateAfter
var ErrInjected = errors.New("injected failure")

func (s *Store) Members() repository.MemberRepository             { return memberRepo{s} }
func (s *Store) Templates() repository.ScheduleTemplateRepository { return templateRepo{s} }
func (s *Store) Sessions() repository.SessionRepository           { return sessionRepo{s} }
func (s *Store) Attendance() repository.AttendanceRepository      { return attendanceRepo{s} }
func (s *Store) Subscriptions() repository.SubscriptionRepository { return subscriptionRepo{s} }
func (s *Store) History() repository.HistoryRepository            { return historyRepo{s} }

// =============================================================================
// MEMBERS
// =============================================================================

type memberRepo struct{ s *Store }

func (r memberRepo) GetByID(_ context.Context, id int64) (*models.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.members[id]
	if !ok || m.DeletedAt != nil {
		return nil, apperr.NotFound("member", id)
	}
	return &m, nil
}

func (r memberRepo) GetByTelegramID(_ context.Context, telegramID int64) (*models.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.members {
		if m.TelegramID != nil && *m.TelegramID == telegramID && m.DeletedAt == nil {
			return &m, nil
		}
	}
	return nil, apperr.NotFound("member with telegram id", telegramID)
}

func (r memberRepo) ListStudents(_ context.Context) ([]models.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Member
	for _, m := range r.s.members {
		if !m.IsTeacher && m.DeletedAt == nil {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName() != out[j].FullName() {
			return out[i].FullName() < out[j].FullName()
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// =============================================================================
// TEMPLATES
// =============================================================================

type templateRepo struct{ s *Store }

func (r templateRepo) GetAllActive(ctx context.Context) ([]models.ScheduleTemplate, error) {
	return r.List(ctx, true)
}

func (r templateRepo) List(_ context.Context, activeOnly bool) ([]models.ScheduleTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.ScheduleTemplate
	for _, t := range r.s.templates {
		if t.DeletedAt != nil || (activeOnly && !t.IsActive) {
			continue
		}
		out = append(out, r.s.joinTemplate(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r templateRepo) GetByID(_ context.Context, id int64) (*models.ScheduleTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.templates[id]
	if !ok || t.DeletedAt != nil {
		return nil, apperr.NotFound("schedule template", id)
	}
	t = r.s.joinTemplate(t)
	return &t, nil
}

func (r templateRepo) Create(_ context.Context, t *models.ScheduleTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.newID()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.s.templates[t.ID] = *t
	return nil
}

func (r templateRepo) Update(_ context.Context, t *models.ScheduleTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.templates[t.ID]
	if !ok || cur.DeletedAt != nil {
		return apperr.NotFound("schedule template", t.ID)
	}
	t.UpdatedAt = time.Now()
	r.s.templates[t.ID] = *t
	return nil
}

func (r templateRepo) SetActive(_ context.Context, id int64, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.templates[id]
	if !ok || t.DeletedAt != nil {
		return apperr.NotFound("schedule template", id)
	}
	t.IsActive = active
	r.s.templates[id] = t
	return nil
}

func (r templateRepo) SoftDelete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.templates[id]
	if !ok || t.DeletedAt != nil {
		return apperr.NotFound("schedule template", id)
	}
	now := time.Now()
	t.DeletedAt = &now
	t.IsActive = false
	r.s.templates[id] = t
	return nil
}

// =============================================================================
// SESSIONS
// =============================================================================

type sessionRepo struct{ s *Store }

func (r sessionRepo) GetByID(_ context.Context, id int64) (*models.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sess, ok := r.s.sessions[id]
	if !ok || sess.DeletedAt != nil {
		return nil, apperr.NotFound("session", id)
	}
	sess = r.s.joinSession(sess)
	return &sess, nil
}

func (r sessionRepo) List(_ context.Context, f models.SessionFilter) ([]models.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Session
	for _, raw := range r.s.sessions {
		sess := r.s.joinSession(raw)
		if sess.DeletedAt != nil || !matches(sess, f) {
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := models.DateKey(out[i].Date), models.DateKey(out[j].Date)
		if di != dj {
			return di < dj
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matches(sess models.Session, f models.SessionFilter) bool {
	day := models.DateKey(sess.Date)
	switch {
	case f.From != nil && day < models.DateKey(*f.From):
		return false
	case f.To != nil && day > models.DateKey(*f.To):
		return false
	case f.ActivityID != nil && sess.ActivityID != *f.ActivityID:
		return false
	case f.PlaceID != nil && sess.PlaceID != *f.PlaceID:
		return false
	case f.TeacherID != nil && (sess.TeacherID == nil || *sess.TeacherID != *f.TeacherID):
		return false
	case f.ClassType != nil && sess.ClassType != *f.ClassType:
		return false
	case f.Status != nil && sess.Status != *f.Status:
		return false
	}
	return true
}

func (r sessionRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	return r.List(ctx, models.SessionFilter{From: &from, To: &to})
}

func (r sessionRepo) Create(_ context.Context, sess *models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insertLocked(sess)
}

func (r sessionRepo) insertLocked(sess *models.Session) error {
	r.s.sessionCreates++
	if r.s.FailSessionCreateAfter > 0 && r.s.sessionCreates >= r.s.FailSessionCreateAfter {
		return ErrInjected
	}
	sess.ID = r.s.newID()
	sess.CreatedAt = time.Now()
	sess.UpdatedAt = sess.CreatedAt
	r.s.sessions[sess.ID] = *sess
	*sess = r.s.joinSession(*sess)
	return nil
}

func (r sessionRepo) CreateGenerated(_ context.Context, sess *models.Session) (bool, error) {
	if sess.TemplateID == nil {
		return false, apperr.Validation("generated session requires a template")
	}
	if sess.OriginDate == nil {
		origin := sess.Date
		sess.OriginDate = &origin
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	day := models.DateKey(*sess.OriginDate)
	for _, other := range r.s.sessions {
		if other.DeletedAt == nil && other.TemplateID != nil &&
			*other.TemplateID == *sess.TemplateID && models.DateKey(other.GeneratedFor()) == day {
			return false, nil
		}
	}
	if err := r.insertLocked(sess); err != nil {
		return false, err
	}
	return true, nil
}

func (r sessionRepo) Update(_ context.Context, sess *models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.sessions[sess.ID]
	if !ok || cur.DeletedAt != nil {
		return apperr.NotFound("session", sess.ID)
	}
	sess.UpdatedAt = time.Now()
	r.s.sessions[sess.ID] = *sess
	return nil
}

func (r sessionRepo) SoftDelete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok || sess.DeletedAt != nil {
		return apperr.NotFound("session", id)
	}
	now := time.Now()
	sess.DeletedAt = &now
	r.s.sessions[id] = sess
	return nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type attendanceRepo struct{ s *Store }

func (r attendanceRepo) ListBySession(_ context.Context, sessionID int64) ([]models.Attendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Attendance
	for k, a := range r.s.attendance {
		if k.sessionID == sessionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

func (r attendanceRepo) ListPresent(_ context.Context, memberIDs []int64, from, to time.Time) ([]models.PresentMark, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	wanted := make(map[int64]bool, len(memberIDs))
	for _, id := range memberIDs {
		wanted[id] = true
	}
	lo, hi := models.DateKey(from), models.DateKey(to)

	var out []models.PresentMark
	for k, a := range r.s.attendance {
		if !a.Present || !wanted[k.memberID] {
			continue
		}
		sess, ok := r.s.sessions[k.sessionID]
		if !ok || sess.DeletedAt != nil {
			continue
		}
		day := models.DateKey(sess.Date)
		if day < lo || day > hi {
			continue
		}
		out = append(out, models.PresentMark{MemberID: k.memberID, SessionDate: sess.Date})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MemberID != out[j].MemberID {
			return out[i].MemberID < out[j].MemberID
		}
		return out[i].SessionDate.Before(out[j].SessionDate)
	})
	return out, nil
}

func (r attendanceRepo) lockedSession(sessionID int64, gate repository.AttendanceGate) error {
	sess, ok := r.s.sessions[sessionID]
	if !ok || sess.DeletedAt != nil {
		return apperr.NotFound("session", sessionID)
	}
	if gate == nil {
		return nil
	}
	joined := r.s.joinSession(sess)
	return gate(&joined)
}

func (r attendanceRepo) UpsertBatch(_ context.Context, sessionID int64, recordedBy *int64, marks []models.AttendanceMark, gate repository.AttendanceGate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.lockedSession(sessionID, gate); err != nil {
		return err
	}
	for _, m := range marks {
		if _, ok := r.s.members[m.MemberID]; !ok {
			return apperr.Conflict("attendance for member %d: related record missing", m.MemberID)
		}
	}
	now := time.Now()
	for _, m := range marks {
		k := attendanceKey{m.MemberID, sessionID}
		a, ok := r.s.attendance[k]
		if !ok {
			a = models.Attendance{MemberID: m.MemberID, SessionID: sessionID, CreatedAt: now}
		}
		a.Present = m.Present
		a.RecordedBy = recordedBy
		a.UpdatedAt = now
		r.s.attendance[k] = a
	}
	return nil
}

func (r attendanceRepo) Delete(_ context.Context, sessionID, memberID int64, gate repository.AttendanceGate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.lockedSession(sessionID, gate); err != nil {
		return err
	}
	k := attendanceKey{memberID, sessionID}
	if _, ok := r.s.attendance[k]; !ok {
		return apperr.NotFound("attendance for member", memberID)
	}
	delete(r.s.attendance, k)
	return nil
}

func (r attendanceRepo) Stats(_ context.Context, sessionID int64) (models.AttendanceStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var st models.AttendanceStats
	for k, a := range r.s.attendance {
		if k.sessionID != sessionID {
			continue
		}
		st.Total++
		if a.Present {
			st.Present++
		} else {
			st.Absent++
		}
	}
	return st, nil
}

func (r attendanceRepo) CountInWindow(_ context.Context, memberID int64, from, to time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	lo, hi := models.DateKey(from), models.DateKey(to)
	count := 0
	for k := range r.s.attendance {
		if k.memberID != memberID {
			continue
		}
		sess, ok := r.s.sessions[k.sessionID]
		if !ok || sess.DeletedAt != nil {
			continue
		}
		if day := models.DateKey(sess.Date); day >= lo && day <= hi {
			count++
		}
	}
	return count, nil
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

type subscriptionRepo struct{ s *Store }

func (r subscriptionRepo) GetByID(_ context.Context, id int64) (*models.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sub, ok := r.s.subscriptions[id]
	if !ok || sub.DeletedAt != nil {
		return nil, apperr.NotFound("subscription", id)
	}
	sub = r.s.joinSubscription(sub)
	return &sub, nil
}

func (r subscriptionRepo) ListByMember(_ context.Context, memberID int64) ([]models.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Subscription
	for _, sub := range r.s.subscriptions {
		if sub.MemberID == memberID && sub.DeletedAt == nil {
			out = append(out, r.s.joinSubscription(sub))
		}
	}
	sortByExpiryDesc(out)
	return out, nil
}

func sortByExpiryDesc(subs []models.Subscription) {
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].ExpiryDate.Equal(subs[j].ExpiryDate) {
			return subs[i].ExpiryDate.After(subs[j].ExpiryDate)
		}
		return subs[i].ID > subs[j].ID
	})
}

func (r subscriptionRepo) LatestByMember(ctx context.Context, memberIDs []int64) (map[int64]models.Subscription, error) {
	out := make(map[int64]models.Subscription, len(memberIDs))
	for _, id := range memberIDs {
		subs, _ := r.ListByMember(ctx, id)
		if len(subs) > 0 {
			out[id] = subs[0]
		}
	}
	return out, nil
}

func (r subscriptionRepo) ListExpiring(_ context.Context, from, to time.Time) ([]models.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	lo, hi := models.DateKey(from), models.DateKey(to)
	var out []models.Subscription
	for _, sub := range r.s.subscriptions {
		day := models.DateKey(sub.ExpiryDate)
		if sub.DeletedAt == nil && sub.Status == models.SubscriptionActive && day >= lo && day <= hi {
			out = append(out, r.s.joinSubscription(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].MemberID < out[j].MemberID
	})
	return out, nil
}

func (r subscriptionRepo) CreateWithPayment(_ context.Context, sub *models.Subscription, payment *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.members[sub.MemberID]; !ok {
		return apperr.Conflict("subscription for member %d: related record missing", sub.MemberID)
	}
	if _, ok := r.s.subTypes[sub.SubscriptionTypeID]; !ok {
		return apperr.Conflict("subscription for member %d: unknown type %d", sub.MemberID, sub.SubscriptionTypeID)
	}
	sub.ID = r.s.newID()
	sub.CreatedAt = time.Now()
	r.s.subscriptions[sub.ID] = *sub
	if payment != nil {
		payment.ID = r.s.newID()
		payment.SubscriptionID = sub.ID
		payment.MemberID = sub.MemberID
		payment.PaidAt = sub.CreatedAt
		r.s.payments = append(r.s.payments, *payment)
	}
	*sub = r.s.joinSubscription(*sub)
	return nil
}

func (r subscriptionRepo) SoftDelete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subscriptions[id]
	if !ok || sub.DeletedAt != nil {
		return apperr.NotFound("subscription", id)
	}
	now := time.Now()
	sub.DeletedAt = &now
	r.s.subscriptions[id] = sub
	return nil
}

func (r subscriptionRepo) GetType(_ context.Context, id int64) (*models.SubscriptionType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.subTypes[id]
	if !ok {
		return nil, apperr.NotFound("subscription type", id)
	}
	return &t, nil
}

// =============================================================================
// HISTORY
// =============================================================================

type historyRepo struct{ s *Store }

func (r historyRepo) Record(_ context.Context, e *models.HistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.newID()
	e.CreatedAt = time.Now()
	r.s.history = append(r.s.history, *e)
	return nil
}

func (r historyRepo) ListByEntity(_ context.Context, entity string, entityID int64) ([]models.HistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.HistoryEntry
	for i := len(r.s.history) - 1; i >= 0; i-- {
		e := r.s.history[i]
		if e.Entity == entity && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}
