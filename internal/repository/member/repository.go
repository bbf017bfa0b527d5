package member

import (
	"context"

	"studio-admin/internal/models"
	"studio-admin/internal/repository"

	"github.com/jmoiron/sqlx"
)

type memberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) repository.MemberRepository {
	return &memberRepository{db: db}
}

const memberColumns = `id, first_name, last_name, is_teacher, telegram_id, created_at, deleted_at`

func (r *memberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	var m models.Member
	query := `SELECT ` + memberColumns + ` FROM studio.members WHERE id = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		return nil, repository.MapError(err, "member", id)
	}
	return &m, nil
}

func (r *memberRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Member, error) {
	var m models.Member
	query := `SELECT ` + memberColumns + ` FROM studio.members WHERE telegram_id = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &m, query, telegramID); err != nil {
		return nil, repository.MapError(err, "member with telegram id", telegramID)
	}
	return &m, nil
}

func (r *memberRepository) ListStudents(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	query := `
		SELECT ` + memberColumns + `
		FROM studio.members
		WHERE is_teacher = FALSE AND deleted_at IS NULL
		ORDER BY first_name || ' ' || last_name
	`
	if err := r.db.SelectContext(ctx, &members, query); err != nil {
		return nil, err
	}
	return members, nil
}
