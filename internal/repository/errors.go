package repository

import (
	"database/sql"
	"errors"

	"studio-admin/internal/apperr"

	"github.com/lib/pq"
)

// MapError переводит ошибки драйвера в таксономию apperr
func MapError(err error, entity string, id int64) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23503": // foreign_key_violation
			return apperr.Conflict("%s %d: related record %s", entity, id, pqErr.Constraint)
		case "23505": // unique_violation
			return apperr.Conflict("%s %d: duplicate %s", entity, id, pqErr.Constraint)
		case "23514": // check_violation
			return apperr.Validation("%s: %s", entity, pqErr.Message)
		}
	}
	return err
}
