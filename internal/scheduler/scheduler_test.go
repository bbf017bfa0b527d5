package scheduler

import (
	"context"
	"testing"
	"time"

	"studio-admin/internal/models"
	"studio-admin/internal/models/config"
	"studio-admin/internal/repository/memory"
	"studio-admin/internal/service"
	schedule_service "studio-admin/internal/service/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newScheduler(t *testing.T, spec string) (*Scheduler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.AddActivity(1, "Yoga", models.ClassFixed)
	require.NoError(t, store.Templates().Create(context.Background(), &models.ScheduleTemplate{
		ActivityID: 1, PlaceID: 1, Weekday: 1, StartTime: "18:00:00", EndTime: "19:00:00", IsActive: true,
	}))

	log := zap.NewNop()
	svc := schedule_service.NewScheduleService(store.Templates(), store.Sessions(), store.History(), service.NopNotifier{}, log)
	cfg := &config.Config{
		Timezone:  "UTC",
		Scheduler: config.SchedulerConfig{GenerateCron: spec, GenerateDays: 14},
	}
	// воскресенье, 2 июня 2024
	clock := func() time.Time { return time.Date(2024, time.June, 2, 20, 0, 0, 0, time.UTC) }
	s, err := New(cfg, svc, clock, log)
	require.NoError(t, err)
	return s, store
}

func TestRunOnceGeneratesFromTomorrow(t *testing.T) {
	s, _ := newScheduler(t, "0 20 * * 0")
	assert.True(t, s.Enabled())

	created, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "2024-06-03", models.DateKey(created[0].Date))
	assert.Equal(t, "2024-06-10", models.DateKey(created[1].Date))
	assert.Nil(t, created[0].CreatedBy)

	again, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestDisabledWithoutSpec(t *testing.T) {
	s, store := newScheduler(t, "")
	assert.False(t, s.Enabled())
	s.Start()
	s.Stop(context.Background())
	assert.Empty(t, store.AllSessions())
}

func TestInvalidSpec(t *testing.T) {
	_, err := New(&config.Config{Scheduler: config.SchedulerConfig{GenerateCron: "not a cron", GenerateDays: 7}},
		nil, time.Now, zap.NewNop())
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, _ := newScheduler(t, "@every 1h")
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
