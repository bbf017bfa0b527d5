package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"studio-admin/internal/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate проверяет команду по тегам validate и возвращает apperr.ErrValidation
func Validate(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Validation("%v", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}

// ParseClock разбирает "15:30", "15:30:00" или "0000-01-01T15:30:00Z" в смещение от полуночи
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	// Пример: "0000-01-01T15:30:00Z" -> "15:30:00"
	if idx := strings.Index(s, "T"); idx != -1 {
		s = strings.TrimSuffix(s[idx+1:], "Z")
	}

	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// NormalizeClock приводит время к виду "15:04:05"
func NormalizeClock(s string) (string, error) {
	d, err := ParseClock(s)
	if err != nil {
		return "", apperr.Validation("%v", err)
	}
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d).Format("15:04:05"), nil
}

// StartsAt - момент начала занятия в часовом поясе студии
func StartsAt(date time.Time, startTime string, loc *time.Location) (time.Time, error) {
	offset, err := ParseClock(startTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc).Add(offset), nil
}

// DateOnly отбрасывает время, оставляя календарный день (UTC)
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
