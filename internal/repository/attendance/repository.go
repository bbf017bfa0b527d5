package attendance

import (
	"context"
	"fmt"
	"time"

	"studio-admin/internal/apperr"
	"studio-admin/internal/models"
	"studio-admin/internal/repository"
	"studio-admin/internal/repository/session"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type attendanceRepository struct {
	db *sqlx.DB
}

func NewAttendanceRepository(db *sqlx.DB) repository.AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.Attendance, error) {
	query := `
		SELECT member_id, session_id, present, recorded_by, created_at, updated_at
		FROM studio.attendance
		WHERE session_id = $1
		ORDER BY member_id
	`
	var marks []models.Attendance
	if err := r.db.SelectContext(ctx, &marks, query, sessionID); err != nil {
		return nil, err
	}
	return marks, nil
}

func (r *attendanceRepository) ListPresent(ctx context.Context, memberIDs []int64, from, to time.Time) ([]models.PresentMark, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT a.member_id, s.session_date
		FROM studio.attendance a
		JOIN studio.sessions s ON a.session_id = s.id
		WHERE a.present = TRUE
		  AND s.deleted_at IS NULL
		  AND a.member_id = ANY($1)
		  AND s.session_date BETWEEN $2 AND $3
		ORDER BY a.member_id, s.session_date
	`
	var marks []models.PresentMark
	err := r.db.SelectContext(ctx, &marks, query, pq.Array(memberIDs), models.DateKey(from), models.DateKey(to))
	if err != nil {
		return nil, err
	}
	return marks, nil
}

func (r *attendanceRepository) UpsertBatch(
	ctx context.Context,
	sessionID int64,
	recordedBy *int64,
	marks []models.AttendanceMark,
	gate repository.AttendanceGate,
) error {
	return r.withLockedSession(ctx, sessionID, gate, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO studio.attendance (member_id, session_id, present, recorded_by)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (member_id, session_id)
			DO UPDATE SET
				present = EXCLUDED.present,
				recorded_by = EXCLUDED.recorded_by,
				updated_at = CURRENT_TIMESTAMP
		`
		for _, m := range marks {
			if _, err := tx.ExecContext(ctx, query, m.MemberID, sessionID, m.Present, recordedBy); err != nil {
				return repository.MapError(err, "attendance for member", m.MemberID)
			}
		}
		return nil
	})
}

func (r *attendanceRepository) Delete(ctx context.Context, sessionID, memberID int64, gate repository.AttendanceGate) error {
	return r.withLockedSession(ctx, sessionID, gate, func(tx *sqlx.Tx) error {
		query := `DELETE FROM studio.attendance WHERE session_id = $1 AND member_id = $2`
		result, err := tx.ExecContext(ctx, query, sessionID, memberID)
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return apperr.NotFound("attendance for member", memberID)
		}
		return nil
	})
}

// withLockedSession блокирует строку занятия, проверяет gate и выполняет fn в той же транзакции
func (r *attendanceRepository) withLockedSession(
	ctx context.Context,
	sessionID int64,
	gate repository.AttendanceGate,
	fn func(tx *sqlx.Tx) error,
) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var s models.Session
	query := session.SelectSessions + ` WHERE s.id = $1 AND s.deleted_at IS NULL FOR UPDATE OF s`
	if err = tx.GetContext(ctx, &s, query, sessionID); err != nil {
		return repository.MapError(err, "session", sessionID)
	}

	if gate != nil {
		if err = gate(&s); err != nil {
			return err
		}
	}

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance tx: %w", err)
	}
	return nil
}

func (r *attendanceRepository) Stats(ctx context.Context, sessionID int64) (models.AttendanceStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN present = TRUE THEN 1 END) AS present,
			COUNT(CASE WHEN present = FALSE THEN 1 END) AS absent
		FROM studio.attendance
		WHERE session_id = $1
	`
	var stats models.AttendanceStats
	err := r.db.GetContext(ctx, &stats, query, sessionID)
	return stats, err
}

func (r *attendanceRepository) CountInWindow(ctx context.Context, memberID int64, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM studio.attendance a
		JOIN studio.sessions s ON a.session_id = s.id
		WHERE a.member_id = $1
		  AND s.deleted_at IS NULL
		  AND s.session_date BETWEEN $2 AND $3
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, memberID, models.DateKey(from), models.DateKey(to))
	return count, err
}
