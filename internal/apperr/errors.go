// Package apperr содержит таксономию ошибок приложения.
// Сервисы и репозитории оборачивают сентинелы через %w,
// HTTP-слой сопоставляет их со статусами через errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation - неверный или неполный ввод (400)
	ErrValidation = errors.New("validation error")

	// ErrNotFound - сущность не найдена (404)
	ErrNotFound = errors.New("not found")

	// ErrConflict - операция противоречит состоянию данных (409)
	ErrConflict = errors.New("conflict")

	// ErrForbiddenTransition - недопустимая смена статуса или запись посещаемости (409)
	ErrForbiddenTransition = fmt.Errorf("%w: forbidden transition", ErrConflict)
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(entity string, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbiddenTransition, fmt.Sprintf(format, args...))
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
