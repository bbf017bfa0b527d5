package apperr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomy(t *testing.T) {
	assert.True(t, IsValidation(Validation("startDate is required")))
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", NotFound("session", 7))))
	assert.True(t, IsConflict(Conflict("has attendance")))

	forbidden := Forbidden("session %d is closed", 3)
	assert.True(t, IsConflict(forbidden))
	assert.ErrorIs(t, forbidden, ErrForbiddenTransition)
	assert.False(t, IsValidation(forbidden))
	assert.Equal(t, "conflict: forbidden transition: session 3 is closed", forbidden.Error())
}
