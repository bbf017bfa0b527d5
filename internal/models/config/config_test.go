package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_USER", "studio")
	t.Setenv("ADMIN_IDS", "10, 20,abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, []int64{10, 20}, cfg.Bot.AdminIDs)
	assert.Equal(t, 14, cfg.Scheduler.GenerateDays)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_USER is required")
	assert.Contains(t, err.Error(), "DB_PASSWORD is required in production")
	assert.Contains(t, err.Error(), "JWT_SECRET is required in production")
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestLoad_GenerateDaysBounds(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_USER", "studio")

	t.Setenv("SCHEDULER_GENERATE_DAYS", "400")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULER_GENERATE_DAYS must be between 1 and 366")

	t.Setenv("SCHEDULER_GENERATE_DAYS", "366")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 366, cfg.Scheduler.GenerateDays)
}
