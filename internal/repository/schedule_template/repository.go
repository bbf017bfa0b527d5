package schedule_template

import (
	"context"

	"studio-admin/internal/apperr"
	"studio-admin/internal/models"
	"studio-admin/internal/repository"

	"github.com/jmoiron/sqlx"
)

type scheduleTemplateRepository struct {
	db *sqlx.DB
}

func NewScheduleTemplateRepository(db *sqlx.DB) repository.ScheduleTemplateRepository {
	return &scheduleTemplateRepository{db: db}
}

const selectTemplates = `
	SELECT
		t.id, t.activity_id, t.place_id, t.teacher_id, t.weekday,
		t.start_time::text AS start_time, t.end_time::text AS end_time,
		t.is_active, t.created_by, t.created_at, t.updated_at, t.deleted_at,
		COALESCE(a.name, '') AS activity_name,
		COALESCE(p.name, '') AS place_name
	FROM studio.schedule_templates t
	LEFT JOIN studio.activities a ON t.activity_id = a.id
	LEFT JOIN studio.places p ON t.place_id = p.id
`

func (r *scheduleTemplateRepository) GetAllActive(ctx context.Context) ([]models.ScheduleTemplate, error) {
	return r.List(ctx, true)
}

func (r *scheduleTemplateRepository) List(ctx context.Context, activeOnly bool) ([]models.ScheduleTemplate, error) {
	query := selectTemplates + ` WHERE t.deleted_at IS NULL`
	if activeOnly {
		query += ` AND t.is_active = TRUE`
	}
	query += ` ORDER BY t.weekday, t.start_time, t.id`

	var templates []models.ScheduleTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *scheduleTemplateRepository) GetByID(ctx context.Context, id int64) (*models.ScheduleTemplate, error) {
	var t models.ScheduleTemplate
	query := selectTemplates + ` WHERE t.id = $1 AND t.deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		return nil, repository.MapError(err, "schedule template", id)
	}
	return &t, nil
}

func (r *scheduleTemplateRepository) Create(ctx context.Context, template *models.ScheduleTemplate) error {
	query := `
		INSERT INTO studio.schedule_templates
		(activity_id, place_id, teacher_id, weekday, start_time, end_time, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		template.ActivityID,
		template.PlaceID,
		template.TeacherID,
		template.Weekday,
		template.StartTime,
		template.EndTime,
		template.IsActive,
		template.CreatedBy,
	).Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt)
	return repository.MapError(err, "schedule template", 0)
}

func (r *scheduleTemplateRepository) Update(ctx context.Context, template *models.ScheduleTemplate) error {
	query := `
		UPDATE studio.schedule_templates
		SET activity_id = $1, place_id = $2, teacher_id = $3, weekday = $4,
		    start_time = $5, end_time = $6, is_active = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $8 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		template.ActivityID,
		template.PlaceID,
		template.TeacherID,
		template.Weekday,
		template.StartTime,
		template.EndTime,
		template.IsActive,
		template.ID,
	).Scan(&template.UpdatedAt)
	return repository.MapError(err, "schedule template", template.ID)
}

func (r *scheduleTemplateRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `
		UPDATE studio.schedule_templates
		SET is_active = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND deleted_at IS NULL
	`
	return r.execOne(ctx, id, query, active, id)
}

func (r *scheduleTemplateRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `
		UPDATE studio.schedule_templates
		SET deleted_at = CURRENT_TIMESTAMP, is_active = FALSE
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.execOne(ctx, id, query, id)
}

func (r *scheduleTemplateRepository) execOne(ctx context.Context, id int64, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return repository.MapError(err, "schedule template", id)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperr.NotFound("schedule template", id)
	}
	return nil
}
