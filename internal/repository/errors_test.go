package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"studio-admin/internal/apperr"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil, "session", 1))
	assert.True(t, apperr.IsNotFound(MapError(sql.ErrNoRows, "session", 1)))
	assert.True(t, apperr.IsNotFound(MapError(fmt.Errorf("scan: %w", sql.ErrNoRows), "session", 1)))

	fk := &pq.Error{Code: "23503", Constraint: "attendance_session_id_fkey"}
	assert.True(t, apperr.IsConflict(MapError(fk, "session", 1)))

	check := &pq.Error{Code: "23514", Message: "violates check"}
	assert.True(t, apperr.IsValidation(MapError(check, "template", 2)))

	other := errors.New("boom")
	assert.Equal(t, other, MapError(other, "session", 1))
}
