package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionCovers(t *testing.T) {
	sub := &Subscription{
		StartDate:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, sub.Covers(time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)))
	assert.True(t, sub.Covers(time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC)))
	assert.False(t, sub.Covers(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, sub.Covers(time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)))
}

func TestMemberFullName(t *testing.T) {
	assert.Equal(t, "Ana Gómez", (&Member{FirstName: "Ana", LastName: "Gómez"}).FullName())
	assert.Equal(t, "Ana", (&Member{FirstName: "Ana"}).FullName())
}
