package session

import (
	"context"
	"fmt"
	"time"

	"studio-admin/internal/apperr"
	"studio-admin/internal/models"
	"studio-admin/internal/repository"

	"github.com/jmoiron/sqlx"
)

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// SelectSessions общий SELECT занятий с именами активности, зала и преподавателя.
// Используется и репозиторием посещаемости (SELECT ... FOR UPDATE).
const SelectSessions = `
	SELECT
		s.id, s.template_id, s.activity_id, s.place_id, s.teacher_id, s.session_date, s.origin_date,
		s.start_time::text AS start_time, s.end_time::text AS end_time,
		s.status, s.cancellation_reason, s.observations, s.teacher_paid, s.teacher_payment_date,
		s.created_by, s.created_at, s.updated_at, s.deleted_at,
		COALESCE(a.class_type, 'fixed') AS class_type,
		COALESCE(a.name, '') AS activity_name,
		COALESCE(p.name, '') AS place_name,
		COALESCE(m.first_name || ' ' || m.last_name, '') AS teacher_name
	FROM studio.sessions s
	LEFT JOIN studio.activities a ON s.activity_id = a.id
	LEFT JOIN studio.places p ON s.place_id = p.id
	LEFT JOIN studio.members m ON s.teacher_id = m.id
`

func (r *sessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	var s models.Session
	query := SelectSessions + ` WHERE s.id = $1 AND s.deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, repository.MapError(err, "session", id)
	}
	return &s, nil
}

func (r *sessionRepository) List(ctx context.Context, f models.SessionFilter) ([]models.Session, error) {
	query := SelectSessions + ` WHERE s.deleted_at IS NULL`
	args := []any{}
	argIndex := 1

	add := func(cond string, value any) {
		query += fmt.Sprintf(" AND "+cond, argIndex)
		args = append(args, value)
		argIndex++
	}

	if f.From != nil {
		add("s.session_date >= $%d", models.DateKey(*f.From))
	}
	if f.To != nil {
		add("s.session_date <= $%d", models.DateKey(*f.To))
	}
	if f.ActivityID != nil {
		add("s.activity_id = $%d", *f.ActivityID)
	}
	if f.PlaceID != nil {
		add("s.place_id = $%d", *f.PlaceID)
	}
	if f.TeacherID != nil {
		add("s.teacher_id = $%d", *f.TeacherID)
	}
	if f.ClassType != nil {
		add("a.class_type = $%d", string(*f.ClassType))
	}
	if f.Status != nil {
		add("s.status = $%d", string(*f.Status))
	}

	query += ` ORDER BY s.session_date ASC, s.start_time ASC, s.id ASC`

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	return r.List(ctx, models.SessionFilter{From: &from, To: &to})
}

func (r *sessionRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO studio.sessions
		(template_id, activity_id, place_id, teacher_id, session_date, origin_date, start_time, end_time,
		 status, observations, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, insertArgs(s)...).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return repository.MapError(err, "session", 0)
}

func (r *sessionRepository) CreateGenerated(ctx context.Context, s *models.Session) (bool, error) {
	if s.TemplateID == nil {
		return false, apperr.Validation("generated session requires a template")
	}
	if s.OriginDate == nil {
		origin := s.Date
		s.OriginDate = &origin
	}
	query := `
		INSERT INTO studio.sessions
		(template_id, activity_id, place_id, teacher_id, session_date, origin_date, start_time, end_time,
		 status, observations, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (template_id, origin_date)
			WHERE template_id IS NOT NULL AND deleted_at IS NULL
			DO NOTHING
		RETURNING id, created_at, updated_at
	`
	rows, err := r.db.QueryxContext(ctx, query, insertArgs(s)...)
	if err != nil {
		return false, repository.MapError(err, "session", 0)
	}
	defer rows.Close()

	if !rows.Next() {
		// конфликт: занятие уже создано параллельным запросом
		return false, rows.Err()
	}
	if err := rows.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return false, err
	}
	return true, rows.Err()
}

func insertArgs(s *models.Session) []any {
	var origin *string
	if s.OriginDate != nil {
		d := models.DateKey(*s.OriginDate)
		origin = &d
	}
	return []any{
		s.TemplateID,
		s.ActivityID,
		s.PlaceID,
		s.TeacherID,
		models.DateKey(s.Date),
		origin,
		s.StartTime,
		s.EndTime,
		string(s.Status),
		s.Observations,
		s.CreatedBy,
	}
}

func (r *sessionRepository) Update(ctx context.Context, s *models.Session) error {
	query := `
		UPDATE studio.sessions
		SET teacher_id = $1, session_date = $2, start_time = $3, end_time = $4,
		    status = $5, cancellation_reason = $6, observations = $7,
		    teacher_paid = $8, teacher_payment_date = $9, updated_at = CURRENT_TIMESTAMP
		WHERE id = $10 AND deleted_at IS NULL
		RETURNING updated_at
	`
	var paymentDate *string
	if s.TeacherPaymentDate != nil {
		d := models.DateKey(*s.TeacherPaymentDate)
		paymentDate = &d
	}
	err := r.db.QueryRowxContext(ctx, query,
		s.TeacherID,
		models.DateKey(s.Date),
		s.StartTime,
		s.EndTime,
		string(s.Status),
		s.CancellationReason,
		s.Observations,
		s.TeacherPaid,
		paymentDate,
		s.ID,
	).Scan(&s.UpdatedAt)
	return repository.MapError(err, "session", s.ID)
}

func (r *sessionRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE studio.sessions SET deleted_at = CURRENT_TIMESTAMP WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return repository.MapError(err, "session", id)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperr.NotFound("session", id)
	}
	return nil
}
